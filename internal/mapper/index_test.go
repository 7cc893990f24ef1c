package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scorewatch/scorewatch/internal/identity"
)

func parseAll(t *testing.T, names ...string) []*identity.FileIdentity {
	t.Helper()

	p := identity.Default()

	ids := make([]*identity.FileIdentity, 0, len(names))
	for _, n := range names {
		ids = append(ids, p.Parse(n))
	}

	return ids
}

func TestBuildIndex_GroupsByUnit(t *testing.T) {
	ix := BuildIndex(parseAll(t,
		"Acme Corp__www.acme.example__OK__1111.xlsx",
		"Acme Corp__portal.acme.example__OK__2222.xlsx",
		"Globex__www.globex.example__OK__3333.xlsx",
		"overall_summary_20260216.xlsx",
		"not-a-detail.xlsx", // unrecognized, nil identity
	))

	assert.Equal(t, 2, ix.UnitCount())
	assert.Equal(t, 3, ix.DetailCount())
	assert.Len(t, ix.Files("Acme Corp"), 2)
	assert.Len(t, ix.Files("Globex"), 1)

	require.NotNil(t, ix.Overall())
	assert.Equal(t, "overall_summary_20260216.xlsx", ix.Overall().Filename)

	assert.Equal(t, []string{"Acme Corp", "Globex"}, ix.Units())
}

func TestBuildIndex_FirstSummaryWins(t *testing.T) {
	ix := BuildIndex(parseAll(t,
		"overall_summary_a.xlsx",
		"overall_summary_b.xlsx",
	))

	require.NotNil(t, ix.Overall())
	assert.Equal(t, "overall_summary_a.xlsx", ix.Overall().Filename)
}

func TestResolve_ExactUnitAndSite(t *testing.T) {
	ix := BuildIndex(parseAll(t,
		"Acme Corp__www.acme.example__OK__1111.xlsx",
		"Acme Corp__portal.acme.example__OK__2222.xlsx",
	))

	m := ix.Resolve("Acme Corp", "portal.acme.example")
	require.True(t, m.Found())
	assert.Equal(t, MatchExact, m.Kind)
	assert.Equal(t, "2222", m.File.Code)
}

func TestResolve_SiteMismatchReturnsFirstEntry(t *testing.T) {
	ix := BuildIndex(parseAll(t,
		"Acme Corp__www.acme.example__OK__1111.xlsx",
		"Acme Corp__portal.acme.example__OK__2222.xlsx",
	))

	m := ix.Resolve("Acme Corp", "unknown.example")
	require.True(t, m.Found())
	assert.Equal(t, MatchDefault, m.Kind)
	assert.Equal(t, "1111", m.File.Code)
}

func TestResolve_FuzzyUnitMatch(t *testing.T) {
	ix := BuildIndex(parseAll(t,
		"Acme Corporation (HQ)__www.acme.example__OK__1111.xlsx",
	))

	// Query contained in index key.
	m := ix.Resolve("Acme Corporation", "www.acme.example")
	require.True(t, m.Found())
	assert.Equal(t, MatchFuzzy, m.Kind)
	assert.Equal(t, "1111", m.File.Code)

	// Index key contained in query.
	m = ix.Resolve("Acme Corporation (HQ) East Branch", "www.acme.example")
	require.True(t, m.Found())
	assert.Equal(t, MatchFuzzy, m.Kind)
}

func TestResolve_FuzzyFollowsInsertionOrder(t *testing.T) {
	ix := BuildIndex(parseAll(t,
		"Northwind Library__lib.northwind.example__OK__aaaa.xlsx",
		"Northwind Library Annex__annex.northwind.example__OK__bbbb.xlsx",
	))

	// Both keys contain "Northwind"; the first inserted wins.
	m := ix.Resolve("Northwind", "nope.example")
	require.True(t, m.Found())
	assert.Equal(t, "aaaa", m.File.Code)
}

func TestResolve_NoMatch(t *testing.T) {
	ix := BuildIndex(parseAll(t,
		"Acme Corp__www.acme.example__OK__1111.xlsx",
	))

	m := ix.Resolve("Initech", "www.initech.example")
	assert.False(t, m.Found())
	assert.Equal(t, MatchNone, m.Kind)
	assert.Nil(t, m.File)
}

func TestResolve_EmptyIndex(t *testing.T) {
	ix := BuildIndex(nil)

	m := ix.Resolve("anything", "anywhere")
	assert.Equal(t, MatchNone, m.Kind)
}

func TestResolve_EmptyUnitNameDoesNotFuzzyMatch(t *testing.T) {
	ix := BuildIndex(parseAll(t,
		"Acme Corp__www.acme.example__OK__1111.xlsx",
	))

	// An empty query would be "contained" in every key; it must not match.
	m := ix.Resolve("", "www.acme.example")
	assert.Equal(t, MatchNone, m.Kind)
}
