package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ParticipantSessionKey returns the cache key for a participant's login session.
func (r *CacheKeyStruct) ParticipantSessionKey(participantID int) string {
	return fmt.Sprintf("login:%d", participantID)
}

// AttemptAnswersKey returns the cache key for a participant's buffered answers.
func (r *CacheKeyStruct) AttemptAnswersKey(scheduleID string, participantID int) string {
	return fmt.Sprintf("participant:%d:schedule:%s:answers", participantID, scheduleID)
}

// AccessModeKey returns the cache key for the system access mode setting.
// Cached briefly because the gate consults it on every request.
func (r *CacheKeyStruct) AccessModeKey() string {
	return "settings:access_mode"
}

// ScheduleEventChannel returns the Redis PubSub channel carrying lifecycle
// events (started, interrupted, resumed, violation, submitted) for a schedule.
func (r *CacheKeyStruct) ScheduleEventChannel(scheduleID string) string {
	return fmt.Sprintf("schedule:%s:events", scheduleID)
}

var CacheKey = NewCacheKeyStruct()
