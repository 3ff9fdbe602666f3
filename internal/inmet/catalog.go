package inmet

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const catalogCells = 8

// ParseCatalog extracts stations from the rendered INMET automatic station
// catalog. Columns are city, state, situation, latitude, longitude,
// altitude, installation date and station code.
//
// Rows without data cells (the header) are skipped. Rows whose coordinates
// do not parse are returned in skipped rather than failing the catalog.
func ParseCatalog(html string) (entries []CatalogEntry, skipped []string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	doc.Find(CatalogTableSelector + " tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td").Map(func(_ int, cell *goquery.Selection) string {
			return strings.TrimSpace(cell.Text())
		})
		if len(cells) == 0 {
			return
		}
		if len(cells) < catalogCells {
			skipped = append(skipped, strings.Join(cells, "|"))
			return
		}

		entry, ok := parseCatalogRow(cells)
		if !ok {
			skipped = append(skipped, cells[7])
			return
		}
		entries = append(entries, entry)
	})

	return entries, skipped, nil
}

func parseCatalogRow(cells []string) (CatalogEntry, bool) {
	lat, err := ParseDecimal(cells[3])
	if err != nil {
		return CatalogEntry{}, false
	}
	lon, err := ParseDecimal(cells[4])
	if err != nil {
		return CatalogEntry{}, false
	}
	// Altitude is informational; a blank value is stored as 0.
	alt, _ := ParseDecimal(cells[5])

	code := cells[7]
	if code == "" {
		return CatalogEntry{}, false
	}

	return CatalogEntry{
		City:        cells[0],
		Region:      cells[1],
		Situation:   cells[2],
		Latitude:    lat,
		Longitude:   lon,
		Altitude:    alt,
		InstalledAt: cells[6],
		Code:        code,
	}, true
}
