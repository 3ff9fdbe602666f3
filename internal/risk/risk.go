// Package risk turns station readings into daily climate buckets and
// decides whether a station's recent weather favors a disease.
//
// Sample counts are per distinct reading timestamp, so with the usual
// 10-minute sampling a count of 13 is a little over two hours of
// qualifying weather, not thirteen hours.
package risk

import (
	"math"
	"sort"
	"time"

	"github.com/cropi/cropi/internal/inmet"
)

// Window selects readings with Start < t <= End. A zero bound is open.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Trailing returns the window of length d ending at end.
func Trailing(end time.Time, d time.Duration) Window {
	return Window{Start: end.Add(-d), End: end}
}

// Contains reports whether t falls in the window.
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && !t.After(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// Bucket counts the samples of one day that quantize to Value.
type Bucket struct {
	// Day is midnight of the reading's calendar day, in the reading's location.
	Day   time.Time `json:"day"`
	Value float64   `json:"value"`
	Count int       `json:"count"`
}

// Buckets is a sorted bucket list.
type Buckets []Bucket

// Filter returns the buckets keep accepts, preserving order.
func (b Buckets) Filter(keep func(Bucket) bool) Buckets {
	out := make(Buckets, 0, len(b))
	for _, bucket := range b {
		if keep(bucket) {
			out = append(out, bucket)
		}
	}
	return out
}

// Total sums the sample counts.
func (b Buckets) Total() int {
	n := 0
	for _, bucket := range b {
		n += bucket.Count
	}
	return n
}

// Series holds the temperature and humidity buckets of one aggregation.
type Series struct {
	Temperature Buckets
	Humidity    Buckets
}

// Aggregate buckets the readings in w by (day, floor of instantaneous
// temperature) and (day, instantaneous humidity). Each bucket counts
// distinct sample times. Buckets are sorted by day, then value.
func Aggregate(readings []inmet.StationReading, w Window) Series {
	temperature := newBucketSet()
	humidity := newBucketSet()

	for _, r := range readings {
		if !w.Contains(r.Timestamp) {
			continue
		}
		temperature.add(r.Timestamp, math.Floor(r.Temperature.Instant()))
		humidity.add(r.Timestamp, r.Humidity.Instant())
	}

	return Series{
		Temperature: temperature.sorted(),
		Humidity:    humidity.sorted(),
	}
}

type bucketKey struct {
	year  int
	month time.Month
	day   int
	value float64
}

type bucketSet struct {
	samples map[bucketKey]map[int64]struct{}
	days    map[bucketKey]time.Time
}

func newBucketSet() *bucketSet {
	return &bucketSet{
		samples: make(map[bucketKey]map[int64]struct{}),
		days:    make(map[bucketKey]time.Time),
	}
}

func (s *bucketSet) add(ts time.Time, value float64) {
	y, m, d := ts.Date()
	key := bucketKey{year: y, month: m, day: d, value: value}

	set, ok := s.samples[key]
	if !ok {
		set = make(map[int64]struct{})
		s.samples[key] = set
		s.days[key] = time.Date(y, m, d, 0, 0, 0, 0, ts.Location())
	}
	set[sampleKey(ts)] = struct{}{}
}

func (s *bucketSet) sorted() Buckets {
	out := make(Buckets, 0, len(s.samples))
	for key, set := range s.samples {
		out = append(out, Bucket{Day: s.days[key], Value: key.value, Count: len(set)})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Day.Equal(out[j].Day) {
			return out[i].Day.Before(out[j].Day)
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// sampleKey identifies a sample by its minute.
func sampleKey(ts time.Time) int64 {
	return ts.Unix() / 60
}

// CountQualifyingSamples counts distinct sample times in w whose reading
// satisfies pred.
func CountQualifyingSamples(readings []inmet.StationReading, w Window, pred func(inmet.StationReading) bool) int {
	seen := make(map[int64]struct{})
	for _, r := range readings {
		if !w.Contains(r.Timestamp) || !pred(r) {
			continue
		}
		seen[sampleKey(r.Timestamp)] = struct{}{}
	}
	return len(seen)
}
