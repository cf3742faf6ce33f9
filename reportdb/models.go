package reportdb

import (
	"database/sql"
)

type Intersection struct {
	ID        string
	Location  string
	Lat       sql.NullFloat64
	Lon       sql.NullFloat64
	UpdatedAt int64
}

type Volume struct {
	IntersectionID  string
	Approach        string
	IntervalStartNs int64
	Count           int64
}

type AnalysisRun struct {
	ID            string
	GeneratedAt   int64
	Intersections int64
	Failed        int64
}

type RunSummary struct {
	RunID                string
	IntersectionID       string
	Status               string
	Error                sql.NullString
	BaselineMeanDelay    sql.NullFloat64
	AlternativeMeanDelay sql.NullFloat64
	AbsoluteChange       sql.NullFloat64
	RelativeChange       sql.NullFloat64
	ImprovementPercent   sql.NullFloat64
	Throughput           sql.NullInt64
	Intervals            sql.NullInt64
}

type RunPlan struct {
	RunID          string
	IntersectionID string
	Role           string
	CycleLength    float64
	LostTime       float64
	Greens         string
}

type DelayResult struct {
	RunID           string
	IntersectionID  string
	Approach        string
	IntervalStartNs int64
	Plan            string
	Volume          int64
	Delay           float64
	Saturated       int64
	NoGreen         int64
}
