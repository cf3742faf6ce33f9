package reportdb

import (
	"context"
	"database/sql"
)

const upsertIntersection = `
INSERT INTO
    intersections (id, location, lat, lon, updated_at)
VALUES
    (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE
SET
    location = excluded.location,
    lat = excluded.lat,
    lon = excluded.lon,
    updated_at = excluded.updated_at
`

type UpsertIntersectionParams struct {
	ID        string
	Location  string
	Lat       sql.NullFloat64
	Lon       sql.NullFloat64
	UpdatedAt int64
}

func (q *Queries) UpsertIntersection(ctx context.Context, arg UpsertIntersectionParams) error {
	_, err := q.db.ExecContext(ctx, upsertIntersection,
		arg.ID,
		arg.Location,
		arg.Lat,
		arg.Lon,
		arg.UpdatedAt,
	)
	return err
}

const deleteVolumes = `
DELETE FROM volumes
WHERE
    intersection_id = ?
`

func (q *Queries) DeleteVolumes(ctx context.Context, intersectionID string) error {
	_, err := q.db.ExecContext(ctx, deleteVolumes, intersectionID)
	return err
}

const insertVolume = `
INSERT INTO
    volumes (intersection_id, approach, interval_start_ns, count)
VALUES
    (?, ?, ?, ?)
`

type InsertVolumeParams struct {
	IntersectionID  string
	Approach        string
	IntervalStartNs int64
	Count           int64
}

func (q *Queries) InsertVolume(ctx context.Context, arg InsertVolumeParams) error {
	_, err := q.db.ExecContext(ctx, insertVolume,
		arg.IntersectionID,
		arg.Approach,
		arg.IntervalStartNs,
		arg.Count,
	)
	return err
}

const listIntersections = `
SELECT
    id,
    location,
    lat,
    lon,
    updated_at
FROM
    intersections
ORDER BY
    id
`

func (q *Queries) ListIntersections(ctx context.Context) ([]Intersection, error) {
	rows, err := q.db.QueryContext(ctx, listIntersections)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Intersection
	for rows.Next() {
		var i Intersection
		if err := rows.Scan(
			&i.ID,
			&i.Location,
			&i.Lat,
			&i.Lon,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listVolumes = `
SELECT
    intersection_id,
    approach,
    interval_start_ns,
    count
FROM
    volumes
WHERE
    intersection_id = ?
ORDER BY
    interval_start_ns,
    approach
`

func (q *Queries) ListVolumes(ctx context.Context, intersectionID string) ([]Volume, error) {
	rows, err := q.db.QueryContext(ctx, listVolumes, intersectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Volume
	for rows.Next() {
		var i Volume
		if err := rows.Scan(
			&i.IntersectionID,
			&i.Approach,
			&i.IntervalStartNs,
			&i.Count,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createRun = `
INSERT INTO
    analysis_runs (id, generated_at, intersections, failed)
VALUES
    (?, ?, ?, ?)
`

type CreateRunParams struct {
	ID            string
	GeneratedAt   int64
	Intersections int64
	Failed        int64
}

func (q *Queries) CreateRun(ctx context.Context, arg CreateRunParams) error {
	_, err := q.db.ExecContext(ctx, createRun,
		arg.ID,
		arg.GeneratedAt,
		arg.Intersections,
		arg.Failed,
	)
	return err
}

const insertSummary = `
INSERT INTO
    run_summaries (
        run_id,
        intersection_id,
        status,
        error,
        baseline_mean_delay,
        alternative_mean_delay,
        absolute_change,
        relative_change,
        improvement_percent,
        throughput,
        intervals
    )
VALUES
    (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type InsertSummaryParams struct {
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

func (q *Queries) InsertSummary(ctx context.Context, arg InsertSummaryParams) error {
	_, err := q.db.ExecContext(ctx, insertSummary,
		arg.RunID,
		arg.IntersectionID,
		arg.Status,
		arg.Error,
		arg.BaselineMeanDelay,
		arg.AlternativeMeanDelay,
		arg.AbsoluteChange,
		arg.RelativeChange,
		arg.ImprovementPercent,
		arg.Throughput,
		arg.Intervals,
	)
	return err
}

const insertPlan = `
INSERT INTO
    run_plans (run_id, intersection_id, role, cycle_length, lost_time, greens)
VALUES
    (?, ?, ?, ?, ?, ?)
`

type InsertPlanParams struct {
	RunID          string
	IntersectionID string
	Role           string
	CycleLength    float64
	LostTime       float64
	Greens         string
}

func (q *Queries) InsertPlan(ctx context.Context, arg InsertPlanParams) error {
	_, err := q.db.ExecContext(ctx, insertPlan,
		arg.RunID,
		arg.IntersectionID,
		arg.Role,
		arg.CycleLength,
		arg.LostTime,
		arg.Greens,
	)
	return err
}

const insertDelayResult = `
INSERT INTO
    delay_results (
        run_id,
        intersection_id,
        approach,
        interval_start_ns,
        plan,
        volume,
        delay,
        saturated,
        no_green
    )
VALUES
    (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type InsertDelayResultParams struct {
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

func (q *Queries) InsertDelayResult(ctx context.Context, arg InsertDelayResultParams) error {
	_, err := q.db.ExecContext(ctx, insertDelayResult,
		arg.RunID,
		arg.IntersectionID,
		arg.Approach,
		arg.IntervalStartNs,
		arg.Plan,
		arg.Volume,
		arg.Delay,
		arg.Saturated,
		arg.NoGreen,
	)
	return err
}

const getLatestSummary = `
SELECT
    s.run_id,
    s.intersection_id,
    s.status,
    s.error,
    s.baseline_mean_delay,
    s.alternative_mean_delay,
    s.absolute_change,
    s.relative_change,
    s.improvement_percent,
    s.throughput,
    s.intervals
FROM
    run_summaries s
    JOIN analysis_runs r ON r.id = s.run_id
WHERE
    s.intersection_id = ?
ORDER BY
    r.generated_at DESC
LIMIT
    1
`

func (q *Queries) GetLatestSummary(ctx context.Context, intersectionID string) (RunSummary, error) {
	row := q.db.QueryRowContext(ctx, getLatestSummary, intersectionID)
	var i RunSummary
	err := row.Scan(
		&i.RunID,
		&i.IntersectionID,
		&i.Status,
		&i.Error,
		&i.BaselineMeanDelay,
		&i.AlternativeMeanDelay,
		&i.AbsoluteChange,
		&i.RelativeChange,
		&i.ImprovementPercent,
		&i.Throughput,
		&i.Intervals,
	)
	return i, err
}

const listRunPlans = `
SELECT
    run_id,
    intersection_id,
    role,
    cycle_length,
    lost_time,
    greens
FROM
    run_plans
WHERE
    run_id = ?
ORDER BY
    intersection_id,
    role
`

func (q *Queries) ListRunPlans(ctx context.Context, runID string) ([]RunPlan, error) {
	rows, err := q.db.QueryContext(ctx, listRunPlans, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RunPlan
	for rows.Next() {
		var i RunPlan
		if err := rows.Scan(
			&i.RunID,
			&i.IntersectionID,
			&i.Role,
			&i.CycleLength,
			&i.LostTime,
			&i.Greens,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
