package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scorewatch/scorewatch/internal/dataset"
)

// overviewBackend serves a manifest and an overall summary workbook.
func overviewBackend(t *testing.T, units [][]string) *testBackend {
	t.Helper()

	rows := [][]string{{"unit_name", "site", "composite_score", "home_rate", "second_level_rate", "third_level_rate", "detected_at"}}
	rows = append(rows, units...)

	manifest := `["overall_summary.xlsx","Acme Corp__www.acme.example__OK__1.xlsx"]`

	return &testBackend{
		manifest: []byte(manifest),
		workbooks: map[string][]byte{
			"overall_summary.xlsx": workbookBytes(t, map[string][][]string{"summary": rows}),
		},
	}
}

func TestOverview_Load(t *testing.T) {
	b := overviewBackend(t, [][]string{
		{"Acme Corp", "www.acme.example", "95.5", "0.875", "0.5", "0.25", "2026-01-01"},
		{"Globex", "www.globex.example", "71", "0.5", "0.4", "0.3", "2026-01-02"},
	})

	p := NewOverviewPage(newTestClient(t, b), discardLogger())
	require.NoError(t, p.Load(context.Background()))

	s := p.Session()
	require.Equal(t, 2, s.TotalItems())

	rows := s.Page()
	assert.Equal(t, "Acme Corp", rows[0].UnitName)
	assert.Equal(t, "87.50%", rows[0].HomeRate)
	assert.InDelta(t, 95.5, rows[0].Score, 0.001)

	// The first unit resolves to its detail file; the second has none.
	require.NotNil(t, rows[0].Detail)
	assert.Equal(t, "Acme Corp__www.acme.example__OK__1.xlsx", rows[0].Detail.Filename)
	assert.Nil(t, rows[1].Detail)
}

func TestOverview_LoadWithoutOverallIsEmpty(t *testing.T) {
	b := &testBackend{manifest: []byte(`["a__b__c__d.xlsx"]`)}

	p := NewOverviewPage(newTestClient(t, b), discardLogger())
	require.NoError(t, p.Load(context.Background()))
	assert.Equal(t, 0, p.Session().TotalItems())
	assert.NotNil(t, p.Index())
}

func TestOverview_ReloadPreservesViewState(t *testing.T) {
	units := [][]string{
		{"Acme Corp", "www.acme.example", "95.5", "", "", "", ""},
		{"Globex", "www.globex.example", "71", "", "", "", ""},
		{"Initech", "www.initech.example", "88", "", "", "", ""},
	}
	b := overviewBackend(t, units)

	p := NewOverviewPage(newTestClient(t, b), discardLogger())
	require.NoError(t, p.Load(context.Background()))

	s := p.Session()
	s.Sort(dataset.ColScore)
	s.Filter("example")

	ok, err := p.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	state := s.State()
	assert.Equal(t, "example", state.Keyword)
	assert.Equal(t, dataset.ColScore, state.SortColumn)
	assert.Equal(t, 3, s.TotalItems())
}

func TestOverview_ReloadSetsAutoDismissingNotice(t *testing.T) {
	b := overviewBackend(t, [][]string{{"Acme", "s", "1", "", "", "", ""}})

	p := NewOverviewPage(newTestClient(t, b), discardLogger())
	p.noticeTTL = 50 * time.Millisecond

	require.NoError(t, p.Load(context.Background()))

	_, err := p.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "data updated", p.Notice())

	require.Eventually(t, func() bool {
		return p.Notice() == ""
	}, time.Second, 10*time.Millisecond)
}

func TestOverview_ConcurrentReloadDropped(t *testing.T) {
	b := overviewBackend(t, [][]string{{"Acme", "s", "1", "", "", "", ""}})

	release := make(chan struct{})
	inner := b.handler()

	// Hold the first workbook fetch open so a second reload overlaps it.
	blocking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/data/overall_summary.xlsx" {
			<-release
		}

		inner.ServeHTTP(w, r)
	})

	srv := httptest.NewServer(blocking)
	t.Cleanup(srv.Close)

	p := NewOverviewPage(New(srv.URL, nil, discardLogger()), discardLogger())

	firstDone := make(chan error, 1)
	go func() {
		_, err := p.Reload(context.Background())
		firstDone <- err
	}()

	// Wait until the first reload is holding the guard.
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()

		return p.reloading
	}, 2*time.Second, 5*time.Millisecond)

	ran, err := p.Reload(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)

	close(release)
	require.NoError(t, <-firstDone)

	// Guard released: the next reload runs.
	ran, err = p.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
}
