// Package ingest turns count CSV files into validated volume records.
//
// Malformed rows are collected as RowErrors instead of aborting the load; only
// a missing header column or an I/O failure stops ingestion.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kyleponte/signaltiming/internal/clock"
	"github.com/kyleponte/signaltiming/internal/signal"
)

// ErrEmpty is returned for input without a header row.
var ErrEmpty = errors.New("data file is empty")

// Columns names the CSV header fields to read.
type Columns struct {
	Intersection string
	Approach     string
	Timestamp    string
	Count        string
}

func DefaultColumns() Columns {
	return Columns{
		Intersection: "intersection_id",
		Approach:     "approach",
		Timestamp:    "timestamp",
		Count:        "count",
	}
}

type Config struct {
	Columns Columns
	// DefaultApproach is used when the file has no approach column or a row
	// leaves it blank. Empty makes the approach column required.
	DefaultApproach string
	// Location interprets timestamps that carry no zone. Nil means UTC.
	Location *time.Location
}

func (c Config) withDefaults() Config {
	d := DefaultColumns()
	if c.Columns.Intersection == "" {
		c.Columns.Intersection = d.Intersection
	}
	if c.Columns.Approach == "" {
		c.Columns.Approach = d.Approach
	}
	if c.Columns.Timestamp == "" {
		c.Columns.Timestamp = d.Timestamp
	}
	if c.Columns.Count == "" {
		c.Columns.Count = d.Count
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return c
}

// RowError describes one rejected row. Line is 1-based and counts the header.
type RowError struct {
	Line   int    `json:"line"`
	Field  string `json:"field,omitempty"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("line %d: %s %q: %s", e.Line, e.Field, e.Value, e.Reason)
}

// Reader streams validated records from CSV input.
type Reader struct {
	csv      *csv.Reader
	cfg      Config
	idx      map[string]int
	line     int
	rows     int
	rejected []RowError
	err      error
	consumed bool
}

// NewReader reads and checks the header.
func NewReader(r io.Reader, cfg Config) (*Reader, error) {
	cfg = cfg.withDefaults()
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx := makeIndex(header)
	required := []string{cfg.Columns.Intersection, cfg.Columns.Timestamp, cfg.Columns.Count}
	if cfg.DefaultApproach == "" {
		required = append(required, cfg.Columns.Approach)
	}
	var missing []string
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	return &Reader{csv: cr, cfg: cfg, idx: idx, line: 1}, nil
}

// Records yields each valid row. The sequence is single-pass: a second
// range over it yields nothing. Check Err after the loop.
func (r *Reader) Records() iter.Seq[signal.ApproachVolume] {
	return func(yield func(signal.ApproachVolume) bool) {
		if r.consumed {
			return
		}
		r.consumed = true
		for {
			record, err := r.csv.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				r.line = parseErr.StartLine
				r.rows++
				r.reject(RowError{Line: r.line, Reason: parseErr.Err.Error()})
				continue
			}
			if err != nil {
				r.err = fmt.Errorf("read after line %d: %w", r.line, err)
				return
			}
			r.line, _ = r.csv.FieldPos(0)
			r.rows++
			v, rowErr := r.parse(record)
			if rowErr != nil {
				r.reject(*rowErr)
				continue
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Line is the input line of the record most recently yielded.
func (r *Reader) Line() int { return r.line }

// Rows counts data rows read so far, valid or not.
func (r *Reader) Rows() int { return r.rows }

// Rejected returns the rows dropped so far.
func (r *Reader) Rejected() []RowError { return slices.Clone(r.rejected) }

// Err reports the I/O error that ended the sequence early, if any.
func (r *Reader) Err() error { return r.err }

func (r *Reader) reject(e RowError) {
	r.rejected = append(r.rejected, e)
}

func (r *Reader) parse(record []string) (signal.ApproachVolume, *RowError) {
	cols := r.cfg.Columns
	fail := func(field, value, reason string) (signal.ApproachVolume, *RowError) {
		return signal.ApproachVolume{}, &RowError{Line: r.line, Field: field, Value: value, Reason: reason}
	}

	id := getField(record, r.idx, cols.Intersection)
	if id == "" {
		return fail(cols.Intersection, id, "missing intersection id")
	}

	approach := getField(record, r.idx, cols.Approach)
	if approach == "" {
		approach = r.cfg.DefaultApproach
	}
	if approach == "" {
		return fail(cols.Approach, approach, "missing approach")
	}

	rawTime := getField(record, r.idx, cols.Timestamp)
	ts, err := clock.ParseTime(rawTime, r.cfg.Location)
	if err != nil {
		return fail(cols.Timestamp, rawTime, "unparsable timestamp")
	}

	rawCount := getField(record, r.idx, cols.Count)
	count, reason := parseCount(rawCount)
	if reason != "" {
		return fail(cols.Count, rawCount, reason)
	}

	return signal.ApproachVolume{
		IntersectionID: id,
		Approach:       signal.NormalizeApproach(approach),
		IntervalStart:  ts,
		Count:          count,
	}, nil
}

// parseCount accepts integers and integral floats such as "12.0", which
// spreadsheet exports produce.
func parseCount(s string) (int, string) {
	if s == "" {
		return 0, "missing count"
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, "non-numeric count"
		}
		if f != math.Trunc(f) {
			return 0, "fractional count"
		}
		n = int(f)
	}
	if n < 0 {
		return 0, "negative count"
	}
	return n, ""
}

func makeIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return idx
}

func getField(record []string, idx map[string]int, field string) string {
	if i, ok := idx[field]; ok && i < len(record) {
		return strings.TrimSpace(record[i])
	}
	return ""
}
