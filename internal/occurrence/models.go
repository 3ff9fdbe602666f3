// Package occurrence reads disease occurrences reported by growers and
// stores the climate buckets observed before each one.
package occurrence

import "time"

// Occurrence is a grower's report of a pathogenic in one of their plantations.
type Occurrence struct {
	ID           string
	UserID       string
	PlantationID string
	PathogenicID int64

	// OccurredAt is the wall-clock time reported by the grower. It carries
	// no zone; callers reinterpret it in the station's location.
	OccurredAt time.Time

	// StationID and StationCode identify the station serving the
	// plantation. StationCode is empty when there is none.
	StationID   *int64
	StationCode string
}

// HasStation reports whether the occurrence's plantation has a station code.
func (o *Occurrence) HasStation() bool {
	return o.StationCode != ""
}
