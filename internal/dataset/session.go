package dataset

import (
	"sort"
	"strconv"
	"strings"
)

// Sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// DefaultPageSize matches the overview table's initial page size.
const DefaultPageSize = 20

// ViewState is the per-page browser-session state: filter keyword, sort
// column and direction, page size, and current page. It is owned by the
// session and must be explicitly preserved across a reload.
type ViewState struct {
	Keyword       string
	SortColumn    string
	SortDirection string
	PageSize      int
	Page          int
}

// Session owns the loaded overview dataset and its ViewState, and implements
// filtering, sorting, and pagination over it. It is not safe for concurrent
// use; each page controller holds exactly one instance.
type Session struct {
	all      []Row
	filtered []Row
	state    ViewState
}

// NewSession creates an empty session with default view state.
func NewSession() *Session {
	return &Session{
		state: ViewState{
			SortDirection: SortAsc,
			PageSize:      DefaultPageSize,
			Page:          1,
		},
	}
}

// Load replaces the dataset wholesale and resets the view state except for
// the page size. Row identity is not preserved across loads.
func (s *Session) Load(rows []Row) {
	s.all = rows
	s.filtered = append([]Row(nil), rows...)
	s.state.Keyword = ""
	s.state.SortColumn = ""
	s.state.SortDirection = SortAsc
	s.state.Page = 1
}

// Reload replaces the dataset while preserving the current view state: the
// filter keyword and sort order are re-applied to the new rows and the page
// number is kept when still in range, else clamped to the last valid page.
func (s *Session) Reload(rows []Row) {
	prev := s.state

	s.Load(rows)

	if prev.Keyword != "" {
		s.Filter(prev.Keyword)
	}

	if prev.SortColumn != "" {
		s.SortBy(prev.SortColumn, prev.SortDirection)
	}

	s.state.PageSize = prev.PageSize
	s.goTo(prev.Page)
}

// State returns a copy of the current view state.
func (s *Session) State() ViewState { return s.state }

// TotalItems returns the size of the filtered dataset.
func (s *Session) TotalItems() int { return len(s.filtered) }

// Filter applies a case-insensitive substring match over unit name and site
// (logical OR) and resets to page 1. An empty keyword restores the full
// dataset.
func (s *Session) Filter(keyword string) {
	s.state.Keyword = strings.TrimSpace(keyword)
	s.state.Page = 1

	if s.state.Keyword == "" {
		// Restores the full dataset in load order; the active sort column is
		// remembered but not re-applied until the next sort action.
		s.filtered = append([]Row(nil), s.all...)

		return
	}

	needle := strings.ToLower(s.state.Keyword)

	s.filtered = s.filtered[:0]
	for _, row := range s.all {
		if strings.Contains(strings.ToLower(row.UnitName), needle) ||
			strings.Contains(strings.ToLower(row.Site), needle) {
			s.filtered = append(s.filtered, row)
		}
	}
}

// Sort sorts by column, toggling direction when the same column is clicked
// again, and resets to page 1.
func (s *Session) Sort(column string) {
	if s.state.SortColumn == column {
		if s.state.SortDirection == SortAsc {
			s.state.SortDirection = SortDesc
		} else {
			s.state.SortDirection = SortAsc
		}
	} else {
		s.state.SortColumn = column
		s.state.SortDirection = SortAsc
	}

	s.state.Page = 1
	s.resort()
}

// SortBy sets an explicit sort column and direction without toggling. Used
// when restoring a snapshot after reload.
func (s *Session) SortBy(column, direction string) {
	s.state.SortColumn = column

	if direction == SortDesc {
		s.state.SortDirection = SortDesc
	} else {
		s.state.SortDirection = SortAsc
	}

	s.resort()
}

// resort re-applies the active sort to the filtered rows. Percentage strings
// compare numerically after stripping the % suffix; otherwise numeric when
// both sides parse, else case-insensitive string order.
func (s *Session) resort() {
	column := s.state.SortColumn
	if column == "" {
		return
	}

	asc := s.state.SortDirection == SortAsc

	sort.SliceStable(s.filtered, func(i, j int) bool {
		less := valueLess(s.filtered[i].value(column), s.filtered[j].value(column))
		if asc {
			return less
		}

		return valueLess(s.filtered[j].value(column), s.filtered[i].value(column))
	})
}

func valueLess(a, b string) bool {
	na, aOK := numeric(a)
	nb, bOK := numeric(b)

	if aOK && bOK {
		return na < nb
	}

	return strings.ToLower(a) < strings.ToLower(b)
}

func numeric(s string) (float64, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}

	return n, true
}

// SetPageSize changes the page size and resets to page 1.
func (s *Session) SetPageSize(size int) {
	if size < 1 {
		size = DefaultPageSize
	}

	s.state.PageSize = size
	s.state.Page = 1
}

// PageCount returns the number of pages over the filtered dataset, at least 1.
func (s *Session) PageCount() int {
	if len(s.filtered) == 0 {
		return 1
	}

	return (len(s.filtered) + s.state.PageSize - 1) / s.state.PageSize
}

// CurrentPage returns the 1-based current page number.
func (s *Session) CurrentPage() int { return s.state.Page }

// Page returns the rows of the current page.
func (s *Session) Page() []Row {
	start := (s.state.Page - 1) * s.state.PageSize
	if start >= len(s.filtered) {
		return nil
	}

	end := start + s.state.PageSize
	if end > len(s.filtered) {
		end = len(s.filtered)
	}

	return s.filtered[start:end]
}

// CanPrev reports whether a previous page exists.
func (s *Session) CanPrev() bool { return s.state.Page > 1 }

// CanNext reports whether a following page exists.
func (s *Session) CanNext() bool { return s.state.Page < s.PageCount() }

// GoToFirstPage navigates to page 1.
func (s *Session) GoToFirstPage() { s.state.Page = 1 }

// GoToPrevPage navigates one page back, clamped at the first page.
func (s *Session) GoToPrevPage() {
	if s.CanPrev() {
		s.state.Page--
	}
}

// GoToNextPage navigates one page forward, clamped at the last page.
func (s *Session) GoToNextPage() {
	if s.CanNext() {
		s.state.Page++
	}
}

// GoToLastPage navigates to the last page.
func (s *Session) GoToLastPage() { s.state.Page = s.PageCount() }

// goTo clamps a requested page into the valid range.
func (s *Session) goTo(page int) {
	if page < 1 {
		page = 1
	}

	if last := s.PageCount(); page > last {
		page = last
	}

	s.state.Page = page
}

// Stats summarizes the full (unfiltered) dataset for the overview header.
type Stats struct {
	Total     int
	AvgScore  float64
	HighCount int // rows with composite score >= 100
}

// Stats computes the overview header statistics.
func (s *Session) Stats() Stats {
	st := Stats{Total: len(s.all)}
	if st.Total == 0 {
		return st
	}

	sum := 0.0
	for _, row := range s.all {
		sum += row.Score

		if row.Score >= 100 {
			st.HighCount++
		}
	}

	st.AvgScore = sum / float64(st.Total)

	return st
}

// Rows returns the filtered, sorted dataset in full, for export.
func (s *Session) Rows() []Row {
	out := make([]Row, len(s.filtered))
	copy(out, s.filtered)

	return out
}
