package models

import (
	"time"

	"github.com/kyleponte/signaltiming/internal/signal"
)

// Intersection is the summary view of one intersection's counts.
type Intersection struct {
	Id               string         `json:"id"`
	Location         string         `json:"location"`
	Lat              *float64       `json:"lat,omitempty"`
	Lon              *float64       `json:"lon,omitempty"`
	Approaches       []string       `json:"approaches"`
	Records          int            `json:"records"`
	Intervals        int            `json:"intervals"`
	TotalVolume      int            `json:"totalVolume"`
	AverageVolume    float64        `json:"averageVolume"`
	VolumeByApproach map[string]int `json:"volumeByApproach"`
	FirstInterval    *time.Time     `json:"firstInterval,omitempty"`
	LastInterval     *time.Time     `json:"lastInterval,omitempty"`
	PeakInterval     *time.Time     `json:"peakInterval,omitempty"`
	PeakVolume       int            `json:"peakVolume"`
	PeakHourStart    *time.Time     `json:"peakHourStart,omitempty"`
	PeakHourVolume   int            `json:"peakHourVolume"`
	Distance         *float64       `json:"distance,omitempty"`
}

func NewIntersection(d *signal.IntersectionData) Intersection {
	meta := d.Metadata()
	out := Intersection{
		Id:               d.ID(),
		Location:         meta.Location,
		Approaches:       d.Approaches(),
		Records:          d.Len(),
		TotalVolume:      d.TotalVolume(),
		AverageVolume:    d.AverageVolume(),
		VolumeByApproach: d.TotalByApproach(),
	}
	if meta.HasCoordinates() {
		lat, lon := meta.Lat, meta.Lon
		out.Lat, out.Lon = &lat, &lon
	}
	intervals := d.Intervals()
	out.Intervals = len(intervals)
	if len(intervals) > 0 {
		first, last := intervals[0], intervals[len(intervals)-1]
		out.FirstInterval, out.LastInterval = &first, &last
	}
	if peak, ok := d.PeakInterval(); ok {
		out.PeakInterval = &peak.Start
		out.PeakVolume = peak.Volume
	}
	if start, volume, ok := d.PeakHour(); ok {
		out.PeakHourStart = &start
		out.PeakHourVolume = volume
	}
	return out
}

// NewIntersectionWithDistance adds the distance in meters from a query point.
func NewIntersectionWithDistance(d *signal.IntersectionData, distance float64) Intersection {
	out := NewIntersection(d)
	out.Distance = &distance
	return out
}

// IntersectionDetail adds the hourly profile and the latest stored analysis.
type IntersectionDetail struct {
	Intersection
	HourlyTotals []int       `json:"hourlyTotals"`
	LatestRun    *RunSummary `json:"latestRun,omitempty"`
}

func NewIntersectionDetail(d *signal.IntersectionData, latest *RunSummary) IntersectionDetail {
	hourly := d.HourlyTotals()
	return IntersectionDetail{
		Intersection: NewIntersection(d),
		HourlyTotals: hourly[:],
		LatestRun:    latest,
	}
}

// RunSummary is a stored analysis result for one intersection.
type RunSummary struct {
	RunId                string   `json:"runId"`
	Status               string   `json:"status"`
	Error                string   `json:"error,omitempty"`
	BaselineMeanDelay    *float64 `json:"baselineMeanDelay,omitempty"`
	AlternativeMeanDelay *float64 `json:"alternativeMeanDelay,omitempty"`
	ImprovementPercent   *float64 `json:"improvementPercent,omitempty"`
}
