// Package clock abstracts the wall clock so report timestamps, API responses
// and rate limiting can be pinned in tests and in replays of historical counts.
package clock

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
	NowUnixMilli() int64
}

// RealClock reads the system time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) NowUnixMilli() int64 { return time.Now().UnixMilli() }

// MockClock is a settable, goroutine-safe Clock.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *MockClock) NowUnixMilli() int64 {
	return m.Now().UnixMilli()
}

// Set moves the clock to t.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Advance moves the clock by d, which may be negative.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Layouts accepted by ParseTime after RFC3339. They carry no zone, so they
// are interpreted in the caller's location.
var Layouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04",
	"2006-01-02",
}

// ParseTime parses s as RFC3339 or, failing that, as one of Layouts in loc.
// A nil loc means UTC.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range Layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time %q: expected RFC3339 or one of %s", s, strings.Join(Layouts, ", "))
}

// FromEnv returns a MockClock frozen at the time in envVar when it is set,
// and RealClock otherwise. A set but unparsable value is an error.
func FromEnv(envVar string, loc *time.Location) (Clock, error) {
	v, ok := os.LookupEnv(envVar)
	if !ok || strings.TrimSpace(v) == "" {
		return RealClock{}, nil
	}
	t, err := ParseTime(v, loc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", envVar, err)
	}
	return NewMockClock(t), nil
}
