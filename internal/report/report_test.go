package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleponte/signaltiming/internal/batch"
	"github.com/kyleponte/signaltiming/internal/clock"
	"github.com/kyleponte/signaltiming/internal/signal"
)

var generatedAt = time.Date(2024, 6, 16, 9, 30, 0, 0, time.UTC)

func sampleRun(t *testing.T) *Run {
	t.Helper()
	start := time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)

	x1 := signal.NewIntersectionData("X1", signal.Metadata{})
	for i, v := range []struct {
		approach string
		count    int
	}{{"N", 100}, {"S", 50}, {"N", 80}, {"S", 60}} {
		require.NoError(t, x1.Append(signal.ApproachVolume{
			IntersectionID: "X1",
			Approach:       v.approach,
			IntervalStart:  start.Add(time.Duration(i/2) * 15 * time.Minute),
			Count:          v.count,
		}))
	}
	x2 := signal.NewIntersectionData("X2", signal.Metadata{})

	gen, err := signal.NewGenerator(signal.GeneratorConfig{CycleLength: 60, LostTime: 10, MinGreen: 7})
	require.NoError(t, err)
	model, err := signal.NewDelayModel(signal.DefaultDelayConfig())
	require.NoError(t, err)
	r := &batch.Runner{Generator: gen, Model: model, Workers: 1}

	outcomes := r.Run(context.Background(), []*signal.IntersectionData{x1, x2})
	return NewRun(clock.NewMockClock(generatedAt), outcomes)
}

func readCSV(t *testing.T, b []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestNewRun(t *testing.T) {
	run := sampleRun(t)
	assert.NotEqual(t, uuid.Nil, run.ID)
	assert.Equal(t, generatedAt, run.GeneratedAt)
	assert.Equal(t, 1, run.Failed())
}

func TestWriteSummaries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummaries(&buf, sampleRun(t)))

	rows := readCSV(t, buf.Bytes())
	require.Len(t, rows, 3)
	assert.Equal(t, summaryHeader, rows[0])

	assert.Equal(t, "X1", rows[1][0])
	assert.Equal(t, "ok", rows[1][1])
	assert.Empty(t, rows[1][2])
	assert.Equal(t, "290", rows[1][8])
	assert.Equal(t, "2", rows[1][9])

	assert.Equal(t, "X2", rows[2][0])
	assert.Equal(t, "failed", rows[2][1])
	assert.NotEmpty(t, rows[2][2])
	assert.Empty(t, rows[2][3])
}

func TestWriteDelays(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDelays(&buf, sampleRun(t)))

	rows := readCSV(t, buf.Bytes())
	// two intervals by two approaches by two plans
	require.Len(t, rows, 9)
	assert.Equal(t, delayHeader, rows[0])
	assert.Equal(t, []string{"X1", "N", "2024-06-15T08:00:00Z", "08:00", "baseline", "100"}, rows[1][:6])
	assert.Equal(t, "alternative", rows[8][4])
	assert.Equal(t, "08:15", rows[8][3])
}

func TestWritePlans(t *testing.T) {
	run := sampleRun(t)
	var buf bytes.Buffer
	require.NoError(t, WritePlans(&buf, run))

	var doc struct {
		RunID         string `json:"runId"`
		Intersections []struct {
			IntersectionID string             `json:"intersectionId"`
			Baseline       *signal.TimingPlan `json:"baseline"`
			Alternative    *signal.TimingPlan `json:"alternative"`
			Error          string             `json:"error"`
		} `json:"intersections"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, run.ID.String(), doc.RunID)
	require.Len(t, doc.Intersections, 2)

	x1 := doc.Intersections[0]
	require.NotNil(t, x1.Baseline)
	require.NotNil(t, x1.Alternative)
	assert.Equal(t, map[string]float64{"N": 25, "S": 25}, x1.Baseline.Greens())
	assert.Empty(t, x1.Error)

	x2 := doc.Intersections[1]
	assert.Nil(t, x2.Alternative)
	assert.NotEmpty(t, x2.Error)
}

func TestWritersRejectEmptyRuns(t *testing.T) {
	empty := NewRun(clock.NewMockClock(generatedAt), nil)
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteSummaries(&buf, empty), ErrEmptyRun)
	assert.ErrorIs(t, WriteDelays(&buf, empty), ErrEmptyRun)
	assert.ErrorIs(t, WritePlans(&buf, empty), ErrEmptyRun)
	assert.ErrorIs(t, WriteDelays(&buf, nil), ErrEmptyRun)

	_, err := Save(t.TempDir(), empty, Options{})
	assert.ErrorIs(t, err, ErrEmptyRun)
}

func TestSave(t *testing.T) {
	run := sampleRun(t)

	t.Run("plain", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "out")
		paths, err := Save(dir, run, Options{})
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, SummariesFile),
			filepath.Join(dir, DelaysFile),
			filepath.Join(dir, PlansFile),
		}, paths)

		b, err := os.ReadFile(paths[0])
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(b), "intersection_id,status,error"))
	})

	t.Run("gzip", func(t *testing.T) {
		dir := t.TempDir()
		paths, err := Save(dir, run, Options{Gzip: true})
		require.NoError(t, err)
		require.Len(t, paths, 3)

		f, err := os.Open(filepath.Join(dir, PlansFile+".gz"))
		require.NoError(t, err)
		defer f.Close()
		zr, err := gzip.NewReader(f)
		require.NoError(t, err)
		var doc PlansDocument
		require.NoError(t, json.NewDecoder(zr).Decode(&doc))
		assert.Equal(t, run.ID.String(), doc.RunID)
	})

	t.Run("failures only skips delays", func(t *testing.T) {
		failedOnly := &Run{Outcomes: run.Outcomes[1:]}
		paths, err := Save(t.TempDir(), failedOnly, Options{})
		require.NoError(t, err)
		require.Len(t, paths, 2)
		assert.Equal(t, PlansFile, filepath.Base(paths[1]))
	})
}
