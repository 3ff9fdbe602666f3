package inmet

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	cellsPerRow     = 19
	timestampLayout = "02/01/2006 1504"
)

// ParseStationTable extracts readings from a rendered station table.
//
// Only rows with exactly 19 data cells are considered; header and separator
// rows are skipped. Rows with an empty instantaneous temperature are sensor
// gaps and are dropped. Numeric cells use a decimal comma; unparsable cells
// become 0 and are counted in CoercedCells. A malformed date/time in an
// accepted row fails the whole parse with ErrParse.
//
// Readings are returned in chronological order.
func ParseStationTable(html string, loc *time.Location) ([]StationReading, error) {
	if loc == nil {
		loc = time.UTC
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	var (
		readings []StationReading
		parseErr error
	)

	doc.Find(RowSelector).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find(CellSelector).Map(func(_ int, cell *goquery.Selection) string {
			return strings.TrimSpace(cell.Text())
		})
		if len(cells) != cellsPerRow {
			return true
		}

		reading, ok, err := parseRow(cells, loc)
		if err != nil {
			parseErr = err
			return false
		}
		if ok {
			readings = append(readings, reading)
		}
		return true
	})

	if parseErr != nil {
		return nil, parseErr
	}

	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].Timestamp.Before(readings[j].Timestamp)
	})

	return readings, nil
}

// parseRow converts the 19 cells of an accepted row. ok is false for
// sensor-gap rows.
func parseRow(cells []string, loc *time.Location) (StationReading, bool, error) {
	if cells[2] == "" {
		return StationReading{}, false, nil
	}

	ts, err := time.ParseInLocation(timestampLayout, cells[0]+" "+cells[1], loc)
	if err != nil {
		return StationReading{}, false, fmt.Errorf("%w: timestamp %q %q: %v", ErrParse, cells[0], cells[1], err)
	}

	p := numberParser{}
	reading := StationReading{
		Timestamp:     ts,
		Temperature:   p.triple(cells[2:5]),
		Humidity:      p.triple(cells[5:8]),
		Wind:          p.triple(cells[8:11]),
		Pressure:      p.triple(cells[11:14]),
		Visibility:    p.triple(cells[14:17]),
		UVIndex:       p.number(cells[17]),
		Precipitation: p.number(cells[18]),
	}
	reading.CoercedCells = p.coerced

	return reading, true, nil
}

// numberParser parses locale numbers and counts the cells it had to zero.
type numberParser struct {
	coerced int
}

func (p *numberParser) number(s string) float64 {
	v, err := ParseDecimal(s)
	if err != nil {
		p.coerced++
		return 0
	}
	return v
}

func (p *numberParser) triple(cells []string) Triple {
	return Triple{p.number(cells[0]), p.number(cells[1]), p.number(cells[2])}
}

// ParseDecimal parses a number written with a decimal comma ("18,4").
func ParseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
}
