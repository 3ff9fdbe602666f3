package inmet_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropi/cropi/internal/inmet"
)

// row renders one table row. Numeric cells after the temperature default
// to "1,0"; overrides replaces cells by column index.
func row(date, hour, temp string, overrides ...map[int]string) string {
	cells := []string{date, hour, temp}
	for i := 3; i < 19; i++ {
		cells = append(cells, "1,0")
	}
	for _, o := range overrides {
		for idx, v := range o {
			cells[idx] = v
		}
	}

	var b strings.Builder
	b.WriteString(`<tr class="tabela-row">`)
	for _, c := range cells {
		fmt.Fprintf(&b, `<td class="aligned">%s</td>`, c)
	}
	b.WriteString(`</tr>`)
	return b.String()
}

func table(rows ...string) string {
	return `<html><body><table><tbody class="tabela-body">` +
		`<tr class="tabela-row"><td class="aligned">Data</td><td class="aligned">Hora</td></tr>` +
		strings.Join(rows, "") +
		`</tbody></table></body></html>`
}

func TestParseStationTable(t *testing.T) {
	html := table(
		row("01/03/2024", "1410", "18,4", map[int]string{5: "92,0", 17: "3,5", 18: "0,2"}),
		row("01/03/2024", "1400", "18,2", map[int]string{5: "91,5"}),
	)

	readings, err := inmet.ParseStationTable(html, time.UTC)
	require.NoError(t, err)
	require.Len(t, readings, 2)

	first := readings[0]
	assert.Equal(t, time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC), first.Timestamp)
	assert.InDelta(t, 18.2, first.Temperature.Instant(), 1e-9)
	assert.InDelta(t, 91.5, first.Humidity.Instant(), 1e-9)

	second := readings[1]
	assert.Equal(t, time.Date(2024, 3, 1, 14, 10, 0, 0, time.UTC), second.Timestamp)
	assert.InDelta(t, 18.4, second.Temperature[0], 1e-9)
	assert.InDelta(t, 92.0, second.Humidity[0], 1e-9)
	assert.InDelta(t, 1.0, second.Wind[0], 1e-9)
	assert.InDelta(t, 3.5, second.UVIndex, 1e-9)
	assert.InDelta(t, 0.2, second.Precipitation, 1e-9)
	assert.Zero(t, second.CoercedCells)
}

func TestParseStationTable_DropsSensorGaps(t *testing.T) {
	html := table(
		row("01/03/2024", "1400", ""),
		row("01/03/2024", "1410", "18,4"),
	)

	readings, err := inmet.ParseStationTable(html, time.UTC)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, 14, readings[0].Timestamp.Hour())
	assert.Equal(t, 10, readings[0].Timestamp.Minute())
}

func TestParseStationTable_SkipsShortRows(t *testing.T) {
	html := table(
		`<tr class="tabela-row"><td class="aligned">01/03/2024</td><td class="aligned">1400</td><td class="aligned">18,0</td></tr>`,
		row("01/03/2024", "1410", "18,4"),
	)

	readings, err := inmet.ParseStationTable(html, time.UTC)
	require.NoError(t, err)
	assert.Len(t, readings, 1)
}

func TestParseStationTable_CoercesBadNumbers(t *testing.T) {
	html := table(row("01/03/2024", "1400", "18,2", map[int]string{5: "abc", 18: ""}))

	readings, err := inmet.ParseStationTable(html, time.UTC)
	require.NoError(t, err)
	require.Len(t, readings, 1)

	assert.Zero(t, readings[0].Humidity[0])
	assert.Zero(t, readings[0].Precipitation)
	assert.Equal(t, 2, readings[0].CoercedCells)
}

func TestParseStationTable_MalformedTimestamp(t *testing.T) {
	html := table(
		row("01/03/2024", "1400", "18,2"),
		row("2024-03-01", "1410", "18,4"),
	)

	readings, err := inmet.ParseStationTable(html, time.UTC)
	require.Error(t, err)
	assert.ErrorIs(t, err, inmet.ErrParse)
	assert.Nil(t, readings)
}

func TestParseStationTable_Location(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	readings, err := inmet.ParseStationTable(table(row("01/03/2024", "2350", "18,2")), loc)
	require.NoError(t, err)
	require.Len(t, readings, 1)

	assert.Equal(t, loc, readings[0].Timestamp.Location())
	assert.Equal(t, time.Date(2024, 3, 2, 2, 50, 0, 0, time.UTC), readings[0].Timestamp.UTC())
}

func TestParseStationTable_Empty(t *testing.T) {
	readings, err := inmet.ParseStationTable(table(), nil)
	require.NoError(t, err)
	assert.Empty(t, readings)
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "18,4", want: 18.4},
		{in: " 92,0 ", want: 92},
		{in: "-3,25", want: -3.25},
		{in: "1013.5", want: 1013.5},
		{in: "", wantErr: true},
		{in: "---", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := inmet.ParseDecimal(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
