package clock

import "time"

// Clock provides the current wall-clock time. All duration math in the
// attempt lifecycle goes through a Clock so tests can pin time exactly.
type Clock interface {
	Now() time.Time
}

// System is the real clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed is a test clock that returns a settable instant.
type Fixed struct {
	Instant time.Time
}

func NewFixed(t time.Time) *Fixed { return &Fixed{Instant: t} }

func (f *Fixed) Now() time.Time { return f.Instant }

// Advance moves the fixed clock forward by d.
func (f *Fixed) Advance(d time.Duration) { f.Instant = f.Instant.Add(d) }

// Set pins the fixed clock to t.
func (f *Fixed) Set(t time.Time) { f.Instant = t }
