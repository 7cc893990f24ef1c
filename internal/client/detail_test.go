package client

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scorewatch/scorewatch/internal/identity"
	"github.com/scorewatch/scorewatch/internal/mapper"
)

func detailIndex(names ...string) *mapper.UnitIndex {
	parser := identity.Default()

	ids := make([]*identity.FileIdentity, 0, len(names))
	for _, n := range names {
		if id := parser.Parse(n); id != nil {
			ids = append(ids, id)
		}
	}

	return mapper.BuildIndex(ids)
}

func TestDetail_LoadResolvedWorkbook(t *testing.T) {
	b := &testBackend{
		workbooks: map[string][]byte{
			"Acme__www.acme.example__OK__1.xlsx": workbookBytes(t, map[string][][]string{
				"checks": {
					{"page", "status", "composite_score", "detected_at"},
					{"/", "ok", "95.5", "2026-01-01"},
					{"/about", "ok", "", ""},
				},
			}),
		},
	}

	p := NewDetailPage(newTestClient(t, b), discardLogger())
	index := detailIndex("Acme__www.acme.example__OK__1.xlsx")

	p.Load(context.Background(), index, "Acme", "www.acme.example", "")

	assert.False(t, p.Missing())
	assert.Equal(t, mapper.MatchExact, p.MatchKind())
	assert.Equal(t, "Acme__www.acme.example__OK__1.xlsx", p.Filename())
	assert.Equal(t, []string{"checks"}, p.SheetNames())
	assert.Equal(t, []string{"page", "status", "composite_score", "detected_at"}, p.Columns())
	assert.Len(t, p.Page(), 2)

	score, detected := p.HeaderInfo()
	assert.Equal(t, "95.5", score)
	assert.Equal(t, "2026-01-01", detected)
}

func TestDetail_ExplicitFilenameBypassesResolution(t *testing.T) {
	b := &testBackend{
		workbooks: map[string][]byte{
			"custom.xlsx": workbookBytes(t, map[string][][]string{
				"s": {{"a"}, {"1"}},
			}),
		},
	}

	p := NewDetailPage(newTestClient(t, b), discardLogger())

	// The index knows nothing about custom.xlsx; the filename wins anyway.
	p.Load(context.Background(), detailIndex(), "Whoever", "wherever", "custom.xlsx")

	assert.False(t, p.Missing())
	assert.Equal(t, "custom.xlsx", p.Filename())
	assert.Equal(t, []string{"s"}, p.SheetNames())
}

func TestDetail_MissingFileShowsSampleSheets(t *testing.T) {
	p := NewDetailPage(newTestClient(t, &testBackend{}), discardLogger())

	p.Load(context.Background(), detailIndex(), "Unknown", "nowhere", "")

	assert.True(t, p.Missing())
	assert.Equal(t, mapper.MatchNone, p.MatchKind())
	assert.Equal(t, SampleSheetNames, p.SheetNames())

	// Sample sheets are empty-state views, not errors.
	sheet := p.ActiveSheet()
	require.NotNil(t, sheet)
	assert.True(t, sheet.Empty())
	assert.Nil(t, p.Page())
}

func TestDetail_FetchFailureDegradesToSamples(t *testing.T) {
	p := NewDetailPage(newTestClient(t, &testBackend{}), discardLogger())
	index := detailIndex("Acme__site__OK__1.xlsx")

	// Resolves fine, but the server has no such file.
	p.Load(context.Background(), index, "Acme", "site", "")

	assert.True(t, p.Missing())
	assert.Equal(t, SampleSheetNames, p.SheetNames())
}

func TestDetail_SwitchSheetResetsPage(t *testing.T) {
	rows := [][]string{{"col"}}
	for i := 0; i < 45; i++ {
		rows = append(rows, []string{fmt.Sprintf("v%d", i)})
	}

	b := &testBackend{
		workbooks: map[string][]byte{
			"Acme__s__OK__1.xlsx": workbookBytes(t, map[string][][]string{
				"big":   rows,
				"small": {{"col"}, {"x"}},
			}),
		},
	}

	p := NewDetailPage(newTestClient(t, b), discardLogger())
	p.Load(context.Background(), detailIndex("Acme__s__OK__1.xlsx"), "Acme", "s", "")

	require.Len(t, p.SheetNames(), 2)

	p.SwitchSheet("big")
	assert.Equal(t, 3, p.PageCount())

	p.NextPage()
	p.NextPage()
	assert.Equal(t, 3, p.CurrentPage())
	assert.Len(t, p.Page(), 5)

	p.NextPage() // clamped
	assert.Equal(t, 3, p.CurrentPage())

	p.SwitchSheet("small")
	assert.Equal(t, 1, p.CurrentPage())
	assert.Equal(t, 1, p.PageCount())
	assert.Len(t, p.Page(), 1)
}

func TestDetail_SwitchToUnknownSheetIgnored(t *testing.T) {
	b := &testBackend{
		workbooks: map[string][]byte{
			"Acme__s__OK__1.xlsx": workbookBytes(t, map[string][][]string{
				"only": {{"c"}, {"1"}},
			}),
		},
	}

	p := NewDetailPage(newTestClient(t, b), discardLogger())
	p.Load(context.Background(), detailIndex("Acme__s__OK__1.xlsx"), "Acme", "s", "")

	p.SwitchSheet("nope")
	require.NotNil(t, p.ActiveSheet())
	assert.Equal(t, "only", p.ActiveSheet().Name)
}

func TestDetail_FuzzyResolutionSurfaced(t *testing.T) {
	b := &testBackend{
		workbooks: map[string][]byte{
			"Acme Corporation__s__OK__1.xlsx": workbookBytes(t, map[string][][]string{
				"c": {{"x"}, {"1"}},
			}),
		},
	}

	p := NewDetailPage(newTestClient(t, b), discardLogger())
	index := detailIndex("Acme Corporation__s__OK__1.xlsx")

	p.Load(context.Background(), index, "Acme", "s", "")

	assert.False(t, p.Missing())
	assert.Equal(t, mapper.MatchFuzzy, p.MatchKind())
}
