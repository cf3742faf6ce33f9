package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/kyleponte/signaltiming/internal/logging"
	"github.com/kyleponte/signaltiming/internal/signal"
)

// File is a Reader over a file on disk. Close releases the file.
type File struct {
	*Reader
	closers []io.Closer
}

func (f *File) Close() error {
	var errs []error
	for i := len(f.closers) - 1; i >= 0; i-- {
		errs = append(errs, f.closers[i].Close())
	}
	return errors.Join(errs...)
}

// Open opens path for reading. Gzip input is detected from its magic bytes,
// so both volumes.csv and volumes.csv.gz work.
func Open(path string, cfg Config) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("traffic data file not found: %w", err)
	}
	f := &File{closers: []io.Closer{fh}}

	br := bufio.NewReader(fh)
	var src io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to open gzip stream %s: %w", path, err)
		}
		f.closers = append(f.closers, gz)
		src = gz
	}

	r, err := NewReader(src, cfg)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Reader = r
	return f, nil
}

// Result is everything a load produced.
type Result struct {
	Intersections []*signal.IntersectionData
	Rows          int
	Accepted      int
	Rejected      []RowError
	// ZeroCounts counts accepted rows whose count is 0. They are kept, but a
	// high number usually points at a detector outage.
	ZeroCounts int
}

// Load drains r into per-intersection stores. Duplicate (intersection,
// approach, interval) rows are rejected; the first occurrence wins.
func Load(r *Reader, meta map[string]signal.Metadata) (*Result, error) {
	intersections, err := signal.CollectIntersectionsFunc(r.Records(), meta, func(v signal.ApproachVolume, err error) error {
		if !errors.Is(err, signal.ErrDuplicateRecord) {
			return err
		}
		r.reject(RowError{Line: r.Line(), Field: r.cfg.Columns.Approach, Value: v.Approach, Reason: "duplicate approach and interval"})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := r.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Intersections: intersections,
		Rows:          r.Rows(),
		Rejected:      r.Rejected(),
	}
	for _, d := range intersections {
		res.Accepted += d.Len()
		for _, v := range d.Records() {
			if v.Count == 0 {
				res.ZeroCounts++
			}
		}
	}
	return res, nil
}

// LoadFile opens path and loads it.
func LoadFile(path string, cfg Config, meta map[string]signal.Metadata) (*Result, error) {
	f, err := Open(path, cfg)
	if err != nil {
		return nil, err
	}
	defer logging.SafeCloseWithLogging(f,
		slog.Default().With(slog.String("component", "ingest")),
		"volume_file")

	res, err := Load(f.Reader, meta)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}
