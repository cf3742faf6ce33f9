package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

const (
	SummariesFile = "summaries.csv"
	DelaysFile    = "delays.csv"
	PlansFile     = "plans.json"
)

type Options struct {
	// Gzip compresses every file and appends .gz to its name.
	Gzip bool
}

// Save writes the summaries, delays and plans of run into dir, creating it if
// needed, and returns the paths written. The delays file is skipped when no
// intersection succeeded.
func Save(dir string, run *Run, opts Options) ([]string, error) {
	if run == nil || len(run.Outcomes) == 0 {
		return nil, ErrEmptyRun
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	writers := []struct {
		name  string
		write func(io.Writer, *Run) error
	}{
		{SummariesFile, WriteSummaries},
		{DelaysFile, WriteDelays},
		{PlansFile, WritePlans},
	}

	var paths []string
	for _, w := range writers {
		path := filepath.Join(dir, w.name)
		if opts.Gzip {
			path += ".gz"
		}
		err := writeFile(path, opts.Gzip, func(out io.Writer) error { return w.write(out, run) })
		if errors.Is(err, ErrEmptyRun) {
			continue
		}
		if err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", w.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, compress bool, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if !compress {
		return write(f)
	}
	zw := gzip.NewWriter(f)
	if err := write(zw); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}
