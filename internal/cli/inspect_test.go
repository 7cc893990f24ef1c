package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectCommand_Text(t *testing.T) {
	dir := t.TempDir()
	path := writeWorkbookFile(t, dir, "Acme__www.acme.example__OK__101.xlsx", map[string][][]string{
		"checks": {
			{"page", "status"},
			{"/", "ok"},
			{"/about", "broken"},
		},
	})

	stdout, _, err := executeCommand("inspect", "-q", path)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Kind: detail")
	assert.Contains(t, stdout, "Unit: Acme (site www.acme.example, status OK, code 101)")
	assert.Contains(t, stdout, "checks")
	assert.Contains(t, stdout, "page, status")
	assert.Contains(t, stdout, "page=/about")
}

func TestInspectCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeWorkbookFile(t, dir, "overall_summary.xlsx", map[string][][]string{
		"overview": {
			{"unit_name", "composite_score"},
			{"Acme", "95.5"},
		},
	})

	stdout, _, err := executeCommand("inspect", "-q", "--format", "json", path)
	require.NoError(t, err)

	var report inspectReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))

	assert.Equal(t, "overall_summary.xlsx", report.Filename)
	assert.Equal(t, "summary", report.Kind)
	require.Len(t, report.Sheets, 1)
	assert.Equal(t, "overview", report.Sheets[0].Name)
	assert.Equal(t, []string{"unit_name", "composite_score"}, report.Sheets[0].Columns)
	assert.Equal(t, 1, report.Sheets[0].Rows)
}

func TestInspectCommand_UnrecognizedFilename(t *testing.T) {
	dir := t.TempDir()
	path := writeWorkbookFile(t, dir, "notes.xlsx", map[string][][]string{
		"s": {{"a"}, {"1"}},
	})

	stdout, _, err := executeCommand("inspect", "-q", path)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Kind: unrecognized")
	assert.NotContains(t, stdout, "Unit:")
}

func TestInspectCommand_SampleLimit(t *testing.T) {
	dir := t.TempDir()
	path := writeWorkbookFile(t, dir, "Acme__s__OK__1.xlsx", map[string][][]string{
		"checks": {
			{"n"},
			{"1"}, {"2"}, {"3"}, {"4"}, {"5"},
		},
	})

	stdout, _, err := executeCommand("inspect", "-q", "--samples", "1", "--format", "json", path)
	require.NoError(t, err)

	var report inspectReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))

	require.Len(t, report.Sheets, 1)
	assert.Equal(t, 5, report.Sheets[0].Rows)
	assert.Len(t, report.Sheets[0].Samples, 1)
}

func TestInspectCommand_MissingFile(t *testing.T) {
	_, _, err := executeCommand("inspect", "-q", "/nonexistent/file.xlsx")
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
}

func TestInspectCommand_NoArgs(t *testing.T) {
	_, _, err := executeCommand("inspect")
	require.Error(t, err)
}
