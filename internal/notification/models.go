// Package notification persists grower notifications and fans alerts out to
// growers near a triggering plantation.
package notification

import (
	"strings"
	"time"
)

// Record is the audit row written for every notification attempt. The
// message text is fixed when the record is written.
type Record struct {
	ID      string
	UserID  string
	Message string

	// Viewed is set by the grower's app; new records are always unviewed.
	Viewed    bool
	CreatedAt time.Time
}

// Template is a notification title and body with {pathogenic} and {culture}
// placeholders.
type Template struct {
	Title string
	Body  string
}

// Templates used by the jobs.
var (
	// RiskTemplate announces disease-favorable weather at a station.
	RiskTemplate = Template{
		Title: "ALERTA: Probabilidade de ocorrência",
		Body:  "Detectamos que há probabilidade de {pathogenic} em uma ou mais plantações de {culture}.",
	}

	// OccurrenceTemplate announces an occurrence reported near the grower.
	OccurrenceTemplate = Template{
		Title: "ALERTA: Ocorrência próxima",
		Body:  "Uma ocorrência de {pathogenic} foi registrada em uma plantação de {culture} próxima a você.",
	}
)

// Render substitutes the placeholders in title and body.
func (t Template) Render(pathogenic, culture string) (title, body string) {
	r := strings.NewReplacer("{pathogenic}", pathogenic, "{culture}", culture)
	return r.Replace(t.Title), r.Replace(t.Body)
}
