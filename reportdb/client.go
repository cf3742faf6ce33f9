// Package reportdb persists traffic volumes and analysis runs in SQLite.
package reportdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kyleponte/signaltiming/internal/batch"
	"github.com/kyleponte/signaltiming/internal/logging"
	"github.com/kyleponte/signaltiming/internal/report"
	"github.com/kyleponte/signaltiming/internal/signal"
)

// Client is the main entry point for the library
type Client struct {
	config  Config
	DB      *sql.DB
	Queries *Queries
}

// NewClient opens the database described by config and migrates it.
func NewClient(config Config) (*Client, error) {
	db, err := createDB(config)
	if err != nil {
		return nil, fmt.Errorf("unable to create DB: %w", err)
	}
	if config.verbose {
		logging.LogOperation(logger(), "database_ready", slog.String("path", config.DBPath))
	}

	return &Client{
		config:  config,
		DB:      db,
		Queries: New(db),
	}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func (c *Client) GetDBPath() string {
	return c.config.DBPath
}

func logger() *slog.Logger {
	return slog.Default().With(slog.String("component", "reportdb"))
}

// SaveIntersection stores data's metadata and replaces its stored volumes.
func (c *Client) SaveIntersection(ctx context.Context, data *signal.IntersectionData) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer logging.SafeRollbackWithLogging(tx, logger(), "save_intersection")

	q := c.Queries.WithTx(tx)
	meta := data.Metadata()
	if err := q.UpsertIntersection(ctx, UpsertIntersectionParams{
		ID:        data.ID(),
		Location:  meta.Location,
		Lat:       toNullFloat64(meta.Lat, meta.HasCoordinates()),
		Lon:       toNullFloat64(meta.Lon, meta.HasCoordinates()),
		UpdatedAt: time.Now().Unix(),
	}); err != nil {
		return fmt.Errorf("failed to upsert intersection %s: %w", data.ID(), err)
	}
	if err := q.DeleteVolumes(ctx, data.ID()); err != nil {
		return err
	}
	for _, v := range data.Records() {
		if err := q.InsertVolume(ctx, InsertVolumeParams{
			IntersectionID:  v.IntersectionID,
			Approach:        v.Approach,
			IntervalStartNs: v.IntervalStart.UnixNano(),
			Count:           int64(v.Count),
		}); err != nil {
			return fmt.Errorf("failed to insert volume for %s: %w", data.ID(), err)
		}
	}
	return tx.Commit()
}

// LoadIntersections rebuilds every stored intersection, ordered by id.
// Interval starts come back in loc, or UTC when loc is nil.
func (c *Client) LoadIntersections(ctx context.Context, loc *time.Location) ([]*signal.IntersectionData, error) {
	if loc == nil {
		loc = time.UTC
	}
	rows, err := c.Queries.ListIntersections(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*signal.IntersectionData, 0, len(rows))
	for _, row := range rows {
		data := signal.NewIntersectionData(row.ID, signal.Metadata{
			Location: row.Location,
			Lat:      row.Lat.Float64,
			Lon:      row.Lon.Float64,
		})
		volumes, err := c.Queries.ListVolumes(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		for _, v := range volumes {
			if err := data.Append(signal.ApproachVolume{
				IntersectionID: v.IntersectionID,
				Approach:       v.Approach,
				IntervalStart:  time.Unix(0, v.IntervalStartNs).In(loc),
				Count:          int(v.Count),
			}); err != nil {
				return nil, fmt.Errorf("stored volume for %s: %w", row.ID, err)
			}
		}
		out = append(out, data)
	}
	return out, nil
}

// SaveRun stores a batch run with its summaries, plans and, for the
// intersections that succeeded, every delay estimate.
func (c *Client) SaveRun(ctx context.Context, run *report.Run) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer logging.SafeRollbackWithLogging(tx, logger(), "save_run")

	q := c.Queries.WithTx(tx)
	runID := run.ID.String()
	if err := q.CreateRun(ctx, CreateRunParams{
		ID:            runID,
		GeneratedAt:   run.GeneratedAt.Unix(),
		Intersections: int64(len(run.Outcomes)),
		Failed:        int64(run.Failed()),
	}); err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	for _, o := range run.Outcomes {
		if err := q.InsertSummary(ctx, summaryParams(runID, o)); err != nil {
			return fmt.Errorf("failed to insert summary for %s: %w", o.IntersectionID, err)
		}
		for role, plan := range map[signal.PlanRole]signal.TimingPlan{
			signal.Baseline:    o.Baseline,
			signal.Alternative: o.Alternative,
		} {
			if plan.IsZero() {
				continue
			}
			greens, err := json.Marshal(plan.Greens())
			if err != nil {
				return err
			}
			if err := q.InsertPlan(ctx, InsertPlanParams{
				RunID:          runID,
				IntersectionID: o.IntersectionID,
				Role:           string(role),
				CycleLength:    plan.CycleLength(),
				LostTime:       plan.LostTime(),
				Greens:         string(greens),
			}); err != nil {
				return fmt.Errorf("failed to insert %s plan for %s: %w", role, o.IntersectionID, err)
			}
		}
		if !o.OK() {
			continue
		}
		for _, results := range [][]signal.DelayResult{o.Comparison.Baseline, o.Comparison.Alternative} {
			for _, r := range results {
				if err := q.InsertDelayResult(ctx, InsertDelayResultParams{
					RunID:           runID,
					IntersectionID:  r.IntersectionID,
					Approach:        r.Approach,
					IntervalStartNs: r.IntervalStart.UnixNano(),
					Plan:            string(r.Plan),
					Volume:          int64(r.Volume),
					Delay:           r.Delay,
					Saturated:       boolToInt(r.Saturated),
					NoGreen:         boolToInt(r.NoGreen),
				}); err != nil {
					return fmt.Errorf("failed to insert delay result for %s: %w", o.IntersectionID, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	logging.LogOperation(logger(), "analysis_run_saved",
		slog.String("run_id", runID),
		slog.Int("intersections", len(run.Outcomes)))
	return nil
}

func summaryParams(runID string, o batch.Outcome) InsertSummaryParams {
	p := InsertSummaryParams{
		RunID:          runID,
		IntersectionID: o.IntersectionID,
		Status:         "failed",
	}
	if o.Err != nil {
		p.Error = toNullString(o.Err.Error())
	}
	if !o.OK() {
		return p
	}
	s := o.Comparison.Summary
	p.Status = "ok"
	p.BaselineMeanDelay = toNullFloat64(s.BaselineMeanDelay, true)
	p.AlternativeMeanDelay = toNullFloat64(s.AlternativeMeanDelay, true)
	p.AbsoluteChange = toNullFloat64(s.AbsoluteChange, true)
	p.RelativeChange = toNullFloat64(s.RelativeChange, true)
	p.ImprovementPercent = toNullFloat64(s.ImprovementPercent, true)
	p.Throughput = toNullInt64(int64(s.BaselineThroughput), true)
	p.Intervals = toNullInt64(int64(s.Intervals), true)
	return p
}

// LatestSummary returns the most recent stored summary for an intersection,
// or sql.ErrNoRows when it was never analyzed.
func (c *Client) LatestSummary(ctx context.Context, intersectionID string) (RunSummary, error) {
	return c.Queries.GetLatestSummary(ctx, intersectionID)
}
