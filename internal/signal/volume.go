// Package signal holds the delay-estimation and timing-plan engine: the
// per-intersection volume store, the uniform-delay model, timing plans and
// their combination, the proportional timing plan generator and the
// baseline/alternative comparison engine.
//
// Everything in this package is single-threaded and operates on values that
// are read-only once constructed. Independent intersections may be processed
// in parallel by callers without locking.
package signal

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
)

// ApproachVolume is one interval's vehicle count for one approach of one
// intersection.
type ApproachVolume struct {
	IntersectionID string
	Approach       string
	IntervalStart  time.Time
	Count          int
}

// Metadata describes where an intersection is.
type Metadata struct {
	Location string
	Lat      float64
	Lon      float64
}

// HasCoordinates reports whether both coordinates are set.
func (m Metadata) HasCoordinates() bool {
	return m.Lat != 0 || m.Lon != 0
}

// IntervalTotal is the volume summed across approaches for one interval.
type IntervalTotal struct {
	Start      time.Time
	Volume     int
	Approaches int
}

type recordKey struct {
	approach string
	interval int64 // UnixNano, so equal instants in different zones collide
}

// IntersectionData owns the volume records of a single intersection, keyed by
// (approach, interval). Records are appended during ingestion only; all other
// methods are read-only views.
type IntersectionData struct {
	id       string
	metadata Metadata
	records  []ApproachVolume
	index    map[recordKey]int
}

// NewIntersectionData returns an empty store for the given intersection.
func NewIntersectionData(id string, meta Metadata) *IntersectionData {
	return &IntersectionData{
		id:       id,
		metadata: meta,
		index:    make(map[recordKey]int),
	}
}

// Append adds one validated record. It rejects records for another
// intersection, negative counts, blank approaches and duplicate
// (approach, interval) pairs.
func (d *IntersectionData) Append(v ApproachVolume) error {
	const op = "append volume"
	if v.IntersectionID != d.id {
		return dataError(op, d.id, ErrInvalidRecord, "record belongs to intersection %q", v.IntersectionID)
	}
	if v.Approach == "" {
		return dataError(op, d.id, ErrInvalidRecord, "empty approach at %s", v.IntervalStart.Format(time.RFC3339))
	}
	if v.Count < 0 {
		return dataError(op, d.id, ErrNegativeVolume, "approach %s at %s has count %d", v.Approach, v.IntervalStart.Format(time.RFC3339), v.Count)
	}
	key := recordKey{approach: v.Approach, interval: v.IntervalStart.UnixNano()}
	if _, exists := d.index[key]; exists {
		return dataError(op, d.id, ErrDuplicateRecord, "approach %s at %s", v.Approach, v.IntervalStart.Format(time.RFC3339))
	}
	d.index[key] = len(d.records)
	d.records = append(d.records, v)
	return nil
}

func (d *IntersectionData) ID() string { return d.id }

func (d *IntersectionData) Metadata() Metadata { return d.metadata }

// Len returns the number of records.
func (d *IntersectionData) Len() int { return len(d.records) }

// Records returns a copy of all records ordered by interval, then approach.
func (d *IntersectionData) Records() []ApproachVolume {
	out := slices.Clone(d.records)
	slices.SortFunc(out, func(a, b ApproachVolume) int {
		if c := a.IntervalStart.Compare(b.IntervalStart); c != 0 {
			return c
		}
		return cmp.Compare(a.Approach, b.Approach)
	})
	return out
}

// Approaches returns the sorted set of approaches that have at least one record.
func (d *IntersectionData) Approaches() []string {
	approaches := lo.Uniq(lo.Map(d.records, func(v ApproachVolume, _ int) string { return v.Approach }))
	slices.Sort(approaches)
	return approaches
}

// Intervals returns the sorted, distinct interval starts. Gaps are preserved
// as-is; nothing is interpolated.
func (d *IntersectionData) Intervals() []time.Time {
	seen := make(map[int64]time.Time)
	for _, v := range d.records {
		seen[v.IntervalStart.UnixNano()] = v.IntervalStart
	}
	out := lo.Values(seen)
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return out
}

// Volume looks up the count recorded for one approach and interval.
func (d *IntersectionData) Volume(approach string, interval time.Time) (int, bool) {
	i, ok := d.index[recordKey{approach: approach, interval: interval.UnixNano()}]
	if !ok {
		return 0, false
	}
	return d.records[i].Count, true
}

// TotalByInterval sums volume across approaches for each recorded interval.
func (d *IntersectionData) TotalByInterval() []IntervalTotal {
	totals := make(map[int64]*IntervalTotal)
	for _, v := range d.records {
		k := v.IntervalStart.UnixNano()
		t, ok := totals[k]
		if !ok {
			t = &IntervalTotal{Start: v.IntervalStart}
			totals[k] = t
		}
		t.Volume += v.Count
		t.Approaches++
	}
	out := make([]IntervalTotal, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b IntervalTotal) int { return a.Start.Compare(b.Start) })
	return out
}

// TotalByApproach sums volume per approach over all intervals.
func (d *IntersectionData) TotalByApproach() map[string]int {
	out := make(map[string]int)
	for _, v := range d.records {
		out[v.Approach] += v.Count
	}
	return out
}

// TotalVolume sums every record.
func (d *IntersectionData) TotalVolume() int {
	return lo.SumBy(d.records, func(v ApproachVolume) int { return v.Count })
}

// AverageVolume is the mean count per record, 0 when there are none.
func (d *IntersectionData) AverageVolume() float64 {
	if len(d.records) == 0 {
		return 0
	}
	return float64(d.TotalVolume()) / float64(len(d.records))
}

// PeakInterval returns the interval with the highest total volume. The
// earliest interval wins ties.
func (d *IntersectionData) PeakInterval() (IntervalTotal, bool) {
	totals := d.TotalByInterval()
	if len(totals) == 0 {
		return IntervalTotal{}, false
	}
	peak := totals[0]
	for _, t := range totals[1:] {
		if t.Volume > peak.Volume {
			peak = t
		}
	}
	return peak, true
}

// PeakHour returns the start of the 60-minute window, anchored on a recorded
// interval, that carries the most volume, together with that volume.
func (d *IntersectionData) PeakHour() (time.Time, int, bool) {
	totals := d.TotalByInterval()
	if len(totals) == 0 {
		return time.Time{}, 0, false
	}
	var (
		bestStart  time.Time
		bestVolume = -1
	)
	for i, start := range totals {
		end := start.Start.Add(time.Hour)
		sum := 0
		for _, t := range totals[i:] {
			if !t.Start.Before(end) {
				break
			}
			sum += t.Volume
		}
		if sum > bestVolume {
			bestStart, bestVolume = start.Start, sum
		}
	}
	return bestStart, bestVolume, true
}

// HourlyTotals sums volume into 24 hour-of-day bins. Hours without records are 0.
func (d *IntersectionData) HourlyTotals() [24]int {
	var bins [24]int
	for _, v := range d.records {
		bins[v.IntervalStart.Hour()] += v.Count
	}
	return bins
}

// ByDay splits the records into one store per calendar day, keyed by
// YYYY-MM-DD in the records' own location.
func (d *IntersectionData) ByDay() map[string]*IntersectionData {
	out := make(map[string]*IntersectionData)
	for _, v := range d.Records() {
		day := v.IntervalStart.Format(time.DateOnly)
		sub, ok := out[day]
		if !ok {
			sub = NewIntersectionData(d.id, d.metadata)
			out[day] = sub
		}
		// keys are unique in d, so they are unique in every subset
		_ = sub.Append(v)
	}
	return out
}

// window returns a read-only subset restricted to [from, to).
func (d *IntersectionData) window(from, to time.Time) *IntersectionData {
	sub := NewIntersectionData(d.id, d.metadata)
	for _, v := range d.records {
		if !v.IntervalStart.Before(from) && v.IntervalStart.Before(to) {
			_ = sub.Append(v)
		}
	}
	return sub
}

func (d *IntersectionData) String() string {
	location := d.metadata.Location
	if location == "" {
		location = "Unknown"
	}
	return fmt.Sprintf("Intersection %s: Location=%s, Avg Volume=%.1f, Total Readings=%d",
		d.id, location, d.AverageVolume(), len(d.records))
}
