package mapper

import (
	"strings"

	"github.com/scorewatch/scorewatch/internal/identity"
)

// MatchKind tags the confidence level of a Resolve result so callers can
// distinguish a hit from a guess.
type MatchKind string

const (
	// MatchExact means both unit name and site matched exactly.
	MatchExact MatchKind = "exact"

	// MatchFuzzy means the unit was matched by substring containment in
	// either direction and the site matched exactly.
	MatchFuzzy MatchKind = "fuzzy"

	// MatchDefault means a unit was found but none of its entries matched
	// the requested site; the first entry for the unit was returned as a
	// last-resort default. Best-effort, possibly wrong for multi-site units.
	MatchDefault MatchKind = "default"

	// MatchNone means no unit matched at all. File is nil.
	MatchNone MatchKind = "none"
)

// Match is the tagged result of a unit/site lookup.
type Match struct {
	Kind MatchKind
	File *identity.FileIdentity
}

// Found reports whether the match carries a file.
func (m Match) Found() bool { return m.File != nil }

// UnitIndex maps unit names to their detail file identities. A unit may have
// multiple site entries. The index is rebuilt wholesale on every scan and
// never mutated afterwards; consumers always see a complete index.
type UnitIndex struct {
	units   map[string][]*identity.FileIdentity
	order   []string // insertion order, fixes fuzzy-scan iteration order
	overall *identity.FileIdentity
}

// BuildIndex constructs a UnitIndex from parsed identities. Detail records
// are grouped by unit name in input order; the first summary identity wins.
func BuildIndex(ids []*identity.FileIdentity) *UnitIndex {
	ix := &UnitIndex{units: make(map[string][]*identity.FileIdentity)}

	for _, id := range ids {
		switch {
		case id == nil:
			// Unrecognized, excluded from the index.
		case id.IsSummary():
			if ix.overall == nil {
				ix.overall = id
			}
		case id.IsDetail():
			if _, ok := ix.units[id.UnitName]; !ok {
				ix.order = append(ix.order, id.UnitName)
			}

			ix.units[id.UnitName] = append(ix.units[id.UnitName], id)
		}
	}

	return ix
}

// Overall returns the summary file identity, or nil when the scan found none.
func (ix *UnitIndex) Overall() *identity.FileIdentity { return ix.overall }

// UnitCount returns the number of distinct units.
func (ix *UnitIndex) UnitCount() int { return len(ix.units) }

// Units returns the unit names in insertion order.
func (ix *UnitIndex) Units() []string {
	out := make([]string, len(ix.order))
	copy(out, ix.order)

	return out
}

// Files returns the detail entries for an exact unit name, in scan order.
func (ix *UnitIndex) Files(unitName string) []*identity.FileIdentity {
	return ix.units[unitName]
}

// DetailCount returns the total number of detail entries across all units.
func (ix *UnitIndex) DetailCount() int {
	n := 0
	for _, files := range ix.units {
		n += len(files)
	}

	return n
}

// Resolve looks up the detail file for a unit and site using a two-tier
// strategy: exact unit key first, then substring containment in either
// direction over the index keys in insertion order. Within the matched
// unit's entries an exact site match is preferred; otherwise the first
// entry is returned as a default. Filenames carry free-text unit names with
// punctuation and naming variants, so the fuzzy tier is deliberately
// permissive; the returned MatchKind tells callers how much to trust it.
func (ix *UnitIndex) Resolve(unitName, site string) Match {
	files, fuzzy := ix.lookupUnit(unitName)
	if files == nil {
		return Match{Kind: MatchNone}
	}

	for _, f := range files {
		if f.Site == site {
			kind := MatchExact
			if fuzzy {
				kind = MatchFuzzy
			}

			return Match{Kind: kind, File: f}
		}
	}

	return Match{Kind: MatchDefault, File: files[0]}
}

// lookupUnit finds the entries for a unit name, reporting whether the fuzzy
// tier was used.
func (ix *UnitIndex) lookupUnit(unitName string) ([]*identity.FileIdentity, bool) {
	if files, ok := ix.units[unitName]; ok {
		return files, false
	}

	if unitName == "" {
		return nil, false
	}

	for _, key := range ix.order {
		if strings.Contains(key, unitName) || strings.Contains(unitName, key) {
			return ix.units[key], true
		}
	}

	return nil, false
}
