package risk_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropi/cropi/internal/inmet"
	"github.com/cropi/cropi/internal/risk"
)

func reading(ts time.Time, temp, hum float64) inmet.StationReading {
	return inmet.StationReading{
		Timestamp:   ts,
		Temperature: inmet.Triple{temp, temp, temp},
		Humidity:    inmet.Triple{hum, hum, hum},
	}
}

func at(day, hour, minute int) time.Time {
	return time.Date(2024, 3, day, hour, minute, 0, 0, time.UTC)
}

func TestAggregate(t *testing.T) {
	readings := []inmet.StationReading{
		reading(at(1, 14, 0), 18.2, 92.0),
		reading(at(1, 14, 10), 18.4, 92.0),
	}

	series := risk.Aggregate(readings, risk.Window{})

	require.Len(t, series.Temperature, 1)
	assert.Equal(t, at(1, 0, 0), series.Temperature[0].Day)
	assert.InDelta(t, 18.0, series.Temperature[0].Value, 1e-9)
	assert.Equal(t, 2, series.Temperature[0].Count)

	require.Len(t, series.Humidity, 1)
	assert.InDelta(t, 92.0, series.Humidity[0].Value, 1e-9)
	assert.Equal(t, 2, series.Humidity[0].Count)
}

func TestAggregate_SortedByDayThenValue(t *testing.T) {
	readings := []inmet.StationReading{
		reading(at(2, 1, 0), 21.9, 95),
		reading(at(1, 1, 0), 19.5, 80),
		reading(at(1, 2, 0), 9.7, 80),
		reading(at(2, 2, 0), 18.0, 91),
		reading(at(1, 3, 0), 19.1, 99),
	}

	series := risk.Aggregate(readings, risk.Window{})

	var temps []float64
	for _, b := range series.Temperature {
		temps = append(temps, b.Value)
	}
	assert.Equal(t, []float64{9, 19, 18, 21}, temps)
	assert.Equal(t, 2, series.Temperature[1].Count)

	var hums []float64
	for _, b := range series.Humidity {
		hums = append(hums, b.Value)
	}
	assert.Equal(t, []float64{80, 99, 91, 95}, hums)
	assert.Equal(t, 5, series.Temperature.Total())
}

func TestAggregate_DuplicateSampleCountedOnce(t *testing.T) {
	readings := []inmet.StationReading{
		reading(at(1, 14, 0), 18.2, 92),
		reading(at(1, 14, 0), 18.2, 92),
	}

	series := risk.Aggregate(readings, risk.Window{})
	require.Len(t, series.Temperature, 1)
	assert.Equal(t, 1, series.Temperature[0].Count)
}

func TestAggregate_ExcludesReadingsAfterWindowEnd(t *testing.T) {
	event := at(5, 12, 0)
	readings := []inmet.StationReading{
		reading(at(5, 11, 50), 20, 91),
		reading(event, 20, 91),
		reading(at(5, 12, 10), 20, 91),
	}

	series := risk.Aggregate(readings, risk.Window{End: event})
	require.Len(t, series.Temperature, 1)
	assert.Equal(t, 2, series.Temperature[0].Count)
}

func TestWindow_Contains(t *testing.T) {
	w := risk.Window{Start: at(1, 0, 0), End: at(2, 0, 0)}

	assert.False(t, w.Contains(at(1, 0, 0)))
	assert.True(t, w.Contains(at(1, 0, 10)))
	assert.True(t, w.Contains(at(2, 0, 0)))
	assert.False(t, w.Contains(at(2, 0, 10)))

	assert.True(t, risk.Window{}.Contains(at(9, 9, 9)))
}

func TestBuckets_Filter(t *testing.T) {
	b := risk.Buckets{
		{Day: at(1, 0, 0), Value: 16, Count: 3},
		{Day: at(1, 0, 0), Value: 17, Count: 4},
		{Day: at(1, 0, 0), Value: 25, Count: 1},
		{Day: at(1, 0, 0), Value: 26, Count: 2},
	}

	got := b.Filter(func(b risk.Bucket) bool { return b.Value >= 17 && b.Value <= 25 })
	require.Len(t, got, 2)
	assert.Equal(t, 5, got.Total())
}

func TestCountQualifyingSamples(t *testing.T) {
	now := at(2, 12, 0)
	readings := []inmet.StationReading{
		reading(at(1, 11, 0), 20, 95), // outside the 24h window
		reading(at(1, 13, 0), 20, 95),
		reading(at(1, 13, 0), 20, 95),
		reading(at(2, 1, 0), 30, 95),
		reading(at(2, 12, 0), 20, 50),
	}

	w := risk.Trailing(now, 24*time.Hour)
	th := risk.DefaultThresholds()

	assert.Equal(t, 2, risk.CountQualifyingSamples(readings, w, th.FavorableTemperature))
	assert.Equal(t, 2, risk.CountQualifyingSamples(readings, w, th.FavorableHumidity))
}

func TestThresholds_Boundaries(t *testing.T) {
	th := risk.DefaultThresholds()
	ts := at(1, 0, 0)

	assert.False(t, th.FavorableTemperature(reading(ts, 17.0, 0)))
	assert.True(t, th.FavorableTemperature(reading(ts, 17.01, 0)))
	assert.True(t, th.FavorableTemperature(reading(ts, 23.99, 0)))
	assert.False(t, th.FavorableTemperature(reading(ts, 24.0, 0)))

	assert.False(t, th.FavorableHumidity(reading(ts, 0, 90.0)))
	assert.True(t, th.FavorableHumidity(reading(ts, 0, 90.1)))
}

func samples(n int, end time.Time, temp, hum float64) []inmet.StationReading {
	out := make([]inmet.StationReading, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, reading(end.Add(-time.Duration(i)*10*time.Minute), temp, hum))
	}
	return out
}

func TestThresholds_Evaluate(t *testing.T) {
	now := at(2, 12, 0)
	th := risk.DefaultThresholds()

	tests := []struct {
		name      string
		readings  []inmet.StationReading
		wantTemp  int
		wantHum   int
		triggered bool
	}{
		{
			name:      "twelve samples do not trigger",
			readings:  samples(12, now, 20, 95),
			wantTemp:  12,
			wantHum:   12,
			triggered: false,
		},
		{
			name:      "thirteen samples trigger",
			readings:  samples(13, now, 20, 95),
			wantTemp:  13,
			wantHum:   13,
			triggered: true,
		},
		{
			name:      "humid but too hot",
			readings:  samples(30, now, 26, 95),
			wantTemp:  0,
			wantHum:   30,
			triggered: false,
		},
		{
			name:      "warm but dry",
			readings:  samples(30, now, 20, 60),
			wantTemp:  30,
			wantHum:   0,
			triggered: false,
		},
		{
			name:     "no data",
			readings: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := th.Evaluate(tt.readings, now)
			assert.Equal(t, tt.wantTemp, e.TemperatureSamples)
			assert.Equal(t, tt.wantHum, e.HumiditySamples)
			assert.Equal(t, tt.triggered, e.Triggered)
		})
	}
}

func TestAggregate_SeparateHumidityReading(t *testing.T) {
	// The humidity sample shares 08:10 with a temperature sample, so it adds
	// no new temperature timestamp.
	readings := []inmet.StationReading{
		reading(at(1, 8, 0), 18.2, 0),
		reading(at(1, 8, 10), 18.4, 0),
		reading(at(1, 8, 10), 18.4, 92.0),
	}

	series := risk.Aggregate(readings, risk.Window{})

	require.Len(t, series.Temperature, 1)
	assert.Equal(t, risk.Bucket{Day: at(1, 0, 0), Value: 18, Count: 2}, series.Temperature[0])

	humidity := series.Humidity.Filter(func(b risk.Bucket) bool { return b.Value == 92.0 })
	require.Len(t, humidity, 1)
	assert.Equal(t, risk.Bucket{Day: at(1, 0, 0), Value: 92.0, Count: 1}, humidity[0])
}

func TestAggregate_ReaggregationKeepsTotals(t *testing.T) {
	var readings []inmet.StationReading
	for day := 1; day <= 3; day++ {
		for i := 0; i < 12; i++ {
			readings = append(readings, reading(at(day, i, 10*(i%6)), 15+float64(i)*0.7, 85+float64(i%4)*3))
		}
	}

	type key struct {
		day   int64
		value float64
	}
	sum := func(dst map[key]int, buckets risk.Buckets) {
		for _, b := range buckets {
			dst[key{b.Day.Unix(), b.Value}] += b.Count
		}
	}

	tests := []struct {
		name  string
		split int
	}{
		{name: "first day apart", split: 12},
		{name: "halves", split: len(readings) / 2},
		{name: "single reading apart", split: 1},
	}

	whole := risk.Aggregate(readings, risk.Window{})
	wantTemp, wantHum := map[key]int{}, map[key]int{}
	sum(wantTemp, whole.Temperature)
	sum(wantHum, whole.Humidity)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := risk.Aggregate(readings[:tt.split], risk.Window{})
			second := risk.Aggregate(readings[tt.split:], risk.Window{})

			gotTemp, gotHum := map[key]int{}, map[key]int{}
			sum(gotTemp, first.Temperature)
			sum(gotTemp, second.Temperature)
			sum(gotHum, first.Humidity)
			sum(gotHum, second.Humidity)

			assert.Equal(t, wantTemp, gotTemp)
			assert.Equal(t, wantHum, gotHum)
			assert.Equal(t, whole.Temperature.Total(), first.Temperature.Total()+second.Temperature.Total())
		})
	}
}
