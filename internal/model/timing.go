package model

import "time"

// RemainingSeconds computes the time budget left for an in-progress attempt.
//
// The result depends only on the fixed start anchor, the accumulated pause
// credit and "now" — never on how many times it was computed before. Two
// heartbeats at the same instant always agree, regardless of how many ticks
// happened in between:
//
//	remaining = duration − (now − startedAt) + totalPaused
//
// Clamped to zero; never negative.
func RemainingSeconds(startedAt, now time.Time, totalPausedSeconds, durationSeconds int64) int64 {
	elapsed := int64(now.Sub(startedAt) / time.Second)
	remaining := durationSeconds - elapsed + totalPausedSeconds
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Deadline returns the wall-clock instant at which the attempt's budget runs
// out, given the current pause credit. The schedule's closing time still
// bounds it separately.
func Deadline(startedAt time.Time, totalPausedSeconds, durationSeconds int64) time.Time {
	return startedAt.Add(time.Duration(durationSeconds+totalPausedSeconds) * time.Second)
}
