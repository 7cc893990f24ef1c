package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"fraction", "0.875", "87.50%"},
		{"zero fraction", "0", "0.00%"},
		{"one", "1", "100.00%"},
		{"already formatted", "87.50%", "87.50%"},
		{"formatted untouched precision", "87.5%", "87.5%"},
		{"missing", "", "0.00%"},
		{"whitespace", "   ", "0.00%"},
		{"garbage", "n/a", "0.00%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPercent(tt.input))
		})
	}
}

func TestPercentValue(t *testing.T) {
	assert.InDelta(t, 12.5, PercentValue("12.50%"), 0.001)
	assert.InDelta(t, 12.51, PercentValue("12.51%"), 0.001)
	assert.InDelta(t, 87.5, PercentValue("87.5"), 0.001)
	assert.Zero(t, PercentValue("junk"))

	assert.Less(t, PercentValue("12.50%"), PercentValue("12.51%"))
}

func TestRowsFromRecords(t *testing.T) {
	records := []map[string]string{
		{
			ColUnit:     "Acme Corp",
			ColSite:     "www.acme.example",
			ColScore:    "95.5",
			ColHomeRate: "0.875",
			ColL2Rate:   "50.00%",
			ColDetected: "2026-02-16 11:44:02",
		},
		{
			ColUnit: "Globex",
			ColSite: "www.globex.example",
			// score and rates absent
		},
	}

	rows := RowsFromRecords(records, nil)

	assert.Equal(t, 1, rows[0].Index)
	assert.Equal(t, 95.5, rows[0].Score)
	assert.Equal(t, "87.50%", rows[0].HomeRate)
	assert.Equal(t, "50.00%", rows[0].L2Rate)
	assert.Equal(t, "0.00%", rows[0].L3Rate)
	assert.Nil(t, rows[0].Detail)

	assert.Equal(t, 2, rows[1].Index)
	assert.Zero(t, rows[1].Score)
	assert.Equal(t, "0.00%", rows[1].HomeRate)
}
