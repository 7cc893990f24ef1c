package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scorewatch/scorewatch/internal/mapper"
)

// newScanFixture populates a temp data directory with an overall summary and
// two detail workbooks.
func newScanFixture(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	writeWorkbookFile(t, dir, "overall_summary.xlsx", map[string][][]string{
		"overview": {
			{"unit_name", "site", "composite_score"},
			{"Acme", "www.acme.example", "95.5"},
		},
	})
	writeWorkbookFile(t, dir, "Acme__www.acme.example__OK__101.xlsx", map[string][][]string{
		"checks": {{"page", "status"}, {"/", "ok"}},
	})
	writeWorkbookFile(t, dir, "Globex__www.globex.example__OK__102.xlsx", map[string][][]string{
		"checks": {{"page", "status"}, {"/", "ok"}},
	})

	return dir
}

func TestScanCommand_Text(t *testing.T) {
	dir := newScanFixture(t)

	stdout, _, err := executeCommand("scan", "-q", "-d", dir)
	require.NoError(t, err)

	assert.Contains(t, stdout, "total files:  3")
	assert.Contains(t, stdout, "detail files: 2 (2 units)")
	assert.Contains(t, stdout, "overall_summary.xlsx")
	assert.Contains(t, stdout, mapper.ManifestFilename)
	assert.Contains(t, stdout, mapper.ReportFilename)

	// The scan persists the manifest and report next to the data.
	_, err = os.Stat(filepath.Join(dir, mapper.ManifestFilename))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, mapper.ReportFilename))
	require.NoError(t, err)
}

func TestScanCommand_JSON(t *testing.T) {
	dir := newScanFixture(t)

	stdout, _, err := executeCommand("scan", "-q", "-d", dir, "--format", "json")
	require.NoError(t, err)

	var summary scanSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))

	assert.Equal(t, 3, summary.TotalFiles)
	assert.Equal(t, 2, summary.DetailFiles)
	assert.Equal(t, 2, summary.Units)
	assert.Equal(t, "overall_summary.xlsx", summary.OverallFile)
	assert.Equal(t, 0, summary.Unrecognized)
}

func TestScanCommand_YAML(t *testing.T) {
	dir := newScanFixture(t)

	stdout, _, err := executeCommand("scan", "-q", "-d", dir, "--format", "yaml")
	require.NoError(t, err)

	assert.Contains(t, stdout, "totalFiles: 3")
	assert.Contains(t, stdout, "overallFile: overall_summary.xlsx")
}

func TestScanCommand_UnrecognizedCounted(t *testing.T) {
	dir := t.TempDir()

	// Supported extension but no recognizable naming convention.
	writeWorkbookFile(t, dir, "notes.xlsx", map[string][][]string{
		"s": {{"a"}, {"1"}},
	})

	stdout, _, err := executeCommand("scan", "-q", "-d", dir)
	require.NoError(t, err)

	assert.Contains(t, stdout, "unrecognized: 1")
	assert.Contains(t, stdout, "overall:      (none)")
}

func TestScanCommand_MissingDirectory(t *testing.T) {
	_, _, err := executeCommand("scan", "-q", "-d", "/nonexistent/data")
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
}

func TestScanCommand_UnknownFormat(t *testing.T) {
	dir := newScanFixture(t)

	_, _, err := executeCommand("scan", "-q", "-d", dir, "--format", "csv")
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}
