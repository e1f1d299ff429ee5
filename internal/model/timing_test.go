package model

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func at(sec int64) time.Time { return epoch.Add(time.Duration(sec) * time.Second) }

func TestRemainingSeconds(t *testing.T) {
	tests := []struct {
		name     string
		now      int64 // seconds after start
		paused   int64
		duration int64
		want     int64
	}{
		{name: "untouched budget at start", now: 0, paused: 0, duration: 5400, want: 5400},
		{name: "simple decay", now: 600, paused: 0, duration: 5400, want: 4800},
		{name: "pause credit restores budget", now: 1200, paused: 300, duration: 5400, want: 4500},
		{name: "exactly exhausted", now: 5400, paused: 0, duration: 5400, want: 0},
		{name: "past deadline clamps to zero", now: 9000, paused: 0, duration: 5400, want: 0},
		{name: "pause credit past deadline", now: 5500, paused: 200, duration: 5400, want: 100},
		{name: "zero duration", now: 1, paused: 0, duration: 0, want: 0},
		{name: "long pause dwarfs elapsed", now: 100, paused: 1000, duration: 60, want: 960},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := RemainingSeconds(epoch, at(tc.now), tc.paused, tc.duration)
			if got != tc.want {
				t.Fatalf("RemainingSeconds(now=+%ds, paused=%d, dur=%d) = %d, want %d",
					tc.now, tc.paused, tc.duration, got, tc.want)
			}
		})
	}
}

// The result at instant T must depend only on (T − startedAt), duration and
// the pause credit — never on how many intermediate computations happened or
// at which offsets. Simulates N heartbeats at arbitrary times and checks the
// final reading equals a single direct computation.
func TestRemainingSecondsAnchoring(t *testing.T) {
	const duration = 5400
	offsets := []int64{1, 7, 30, 31, 32, 600, 601, 1199, 1200}

	var last int64
	for _, off := range offsets {
		last = RemainingSeconds(epoch, at(off), 0, duration)
	}

	direct := RemainingSeconds(epoch, at(1200), 0, duration)
	if last != direct {
		t.Fatalf("after %d heartbeats got %d, direct computation gives %d", len(offsets), last, direct)
	}
	if direct != duration-1200 {
		t.Fatalf("direct = %d, want %d", direct, duration-1200)
	}
}

// Spec scenario: start at t=0 with 5400s, interrupt at t=600, resume at
// t=900 (300s paused), heartbeat at t=1200 → 4500s left, not 5400−(1200−900).
func TestRemainingSecondsPauseScenario(t *testing.T) {
	got := RemainingSeconds(epoch, at(1200), 300, 5400)
	if got != 4500 {
		t.Fatalf("remaining after pause = %d, want 4500", got)
	}
}

func TestDeadline(t *testing.T) {
	d := Deadline(epoch, 300, 5400)
	want := at(5700)
	if !d.Equal(want) {
		t.Fatalf("Deadline = %v, want %v", d, want)
	}
}
