// Package inmet scrapes automatic weather station data from the INMET
// portal (tempo.inmet.gov.br) and its station catalog.
package inmet

import (
	"errors"
	"time"
)

// Page structure of the station table and catalog. These are tied to the
// current INMET front-end and are the only site-specific knowledge in the
// scraper.
const (
	// MenuToggleSelector opens the sidebar holding the date filter.
	MenuToggleSelector = "#root > div.ui.top.attached.header-container.menu > div.left.menu > i"

	// DateInputSelector is the first date input of the sidebar (start date).
	DateInputSelector = "#root > div.pushable.sidebar-content > .menu input[type=date]:first-of-type"

	// ConfirmButtonSelector submits the sidebar filter.
	ConfirmButtonSelector = "#root > div:nth-of-type(2) > div:nth-of-type(1) > div:nth-of-type(2) > button"

	// TableBodySelector marks a rendered result table.
	TableBodySelector = ".tabela-body"

	// RowSelector and CellSelector locate data rows and their cells.
	RowSelector  = "tr.tabela-row"
	CellSelector = "td.aligned"

	// CatalogTableSelector marks the rendered station catalog.
	CatalogTableSelector = "#tb"
)

// Errors returned by the scraper.
var (
	// ErrParse is returned when an accepted table row has a malformed timestamp.
	ErrParse = errors.New("malformed station table")

	// ErrInvalidStation is returned for an empty station code.
	ErrInvalidStation = errors.New("invalid station code")
)

// Triple holds the instantaneous, minimum and maximum values of one
// 10-minute slot, in table order.
type Triple [3]float64

// Instant returns the instantaneous value.
func (t Triple) Instant() float64 { return t[0] }

// StationReading is one row of the station table.
type StationReading struct {
	// Timestamp is the slot time as printed by the table (naive, interpreted
	// in the fetcher's configured location).
	Timestamp time.Time

	Temperature Triple
	Humidity    Triple
	Wind        Triple
	Pressure    Triple
	Visibility  Triple

	UVIndex       float64
	Precipitation float64

	// CoercedCells counts numeric cells that were empty or unparsable and
	// were recorded as 0. A non-zero value means some zeros are not real.
	CoercedCells int
}

// CatalogEntry is one automatic station from the INMET catalog.
type CatalogEntry struct {
	City        string
	Region      string
	Situation   string
	Latitude    float64
	Longitude   float64
	Altitude    float64
	InstalledAt string
	Code        string
}

// Active reports whether the catalog lists the station as operating.
func (e CatalogEntry) Active() bool {
	return e.Situation == "Operante"
}
