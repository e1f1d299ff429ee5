package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/unsikalab/tesonline-backend/internal/config"
	"github.com/unsikalab/tesonline-backend/internal/model"
	"github.com/unsikalab/tesonline-backend/internal/repository"
)

// answerEnvelope is the Redis hash field format: the value plus the client
// capture timestamp that drives conflict resolution.
type answerEnvelope struct {
	Value   string    `json:"v"`
	SavedAt time.Time `json:"ts"`
}

// AnswerPersistPayload is one persist_answers_queue item.
type AnswerPersistPayload struct {
	AttemptID  string    `json:"attempt_id"`
	QuestionID string    `json:"question_id"`
	Value      string    `json:"value"`
	SavedAt    time.Time `json:"saved_at"`
}

// AnswerService buffers answer saves in Redis for fast reload recovery and
// queues them for durable persistence. Ordering is decided by the client
// capture timestamp, not arrival: a delayed older save never clobbers a
// newer one.
type AnswerService struct {
	answerRepo *repository.AnswerRepository
	rdb        *redis.Client
	log        zerolog.Logger
}

// NewAnswerService creates a new AnswerService.
func NewAnswerService(answerRepo *repository.AnswerRepository, rdb *redis.Client, log zerolog.Logger) *AnswerService {
	return &AnswerService{
		answerRepo: answerRepo,
		rdb:        rdb,
		log:        log.With().Str("component", "answer_service").Logger(),
	}
}

// Save records one answer for an in-progress attempt. Returns false when the
// save was dropped as stale; staleness is not an error, the client keeps its
// newer value and both sides agree.
func (s *AnswerService) Save(ctx context.Context, attempt *model.Attempt, req *model.SaveAnswerRequest) (bool, error) {
	key := config.CacheKey.AttemptAnswersKey(attempt.ScheduleID.String(), attempt.ParticipantID)
	field := req.QuestionID.String()

	// Compare against the buffered envelope. The authoritative guard is the
	// conditional UPSERT the worker runs, so a lost race here costs only a
	// moment of cache staleness.
	current, err := s.rdb.HGet(ctx, key, field).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("read buffered answer: %w", err)
	}
	if current != "" {
		var existing answerEnvelope
		if err := json.Unmarshal([]byte(current), &existing); err == nil {
			if !req.ClientTS.After(existing.SavedAt) {
				return false, nil
			}
		}
	}

	envelope, err := json.Marshal(answerEnvelope{Value: req.Value, SavedAt: req.ClientTS})
	if err != nil {
		return false, fmt.Errorf("marshal answer: %w", err)
	}
	if err := s.rdb.HSet(ctx, key, field, envelope).Err(); err != nil {
		return false, fmt.Errorf("buffer answer: %w", err)
	}

	payload, _ := json.Marshal(AnswerPersistPayload{
		AttemptID:  attempt.ID.String(),
		QuestionID: field,
		Value:      req.Value,
		SavedAt:    req.ClientTS,
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload).Err(); err != nil {
		// The buffer has it; GetSaved still serves the value. Persistence
		// catches up via the final flush on submit.
		s.log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Msg("enqueue answer persist")
	}

	return true, nil
}

// FlushFinal persists a submit payload's answer batch synchronously, under
// the same stale-drop rule as live saves. Called right before completion so
// the submitted snapshot is durable even if the queue is backed up.
func (s *AnswerService) FlushFinal(ctx context.Context, attempt *model.Attempt, answers []model.SubmitAnswer) error {
	for i := range answers {
		ans := &answers[i]
		if _, err := s.answerRepo.Upsert(ctx, attempt.ID, ans.QuestionID, ans.Value, ans.ClientTS); err != nil {
			return fmt.Errorf("flush answer %s: %w", ans.QuestionID, err)
		}
	}
	return nil
}

// GetSaved returns the participant's saved answers keyed by question ID,
// serving from the Redis buffer and falling back to PostgreSQL on a cache
// miss (eviction, restart). The DB copy is re-buffered so the next reload
// is fast again.
func (s *AnswerService) GetSaved(ctx context.Context, attempt *model.Attempt) (map[string]string, error) {
	key := config.CacheKey.AttemptAnswersKey(attempt.ScheduleID.String(), attempt.ParticipantID)

	buffered, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("read answer buffer: %w", err)
	}

	if len(buffered) > 0 {
		answers := make(map[string]string, len(buffered))
		for qid, raw := range buffered {
			var env answerEnvelope
			if err := json.Unmarshal([]byte(raw), &env); err != nil {
				continue
			}
			answers[qid] = env.Value
		}
		return answers, nil
	}

	// Cache miss: fall back to the durable copy, keeping its saved_at so
	// the re-buffered envelopes still order correctly against live saves.
	rows, err := s.answerRepo.ListByAttempt(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("read persisted answers: %w", err)
	}

	answers := make(map[string]string, len(rows))
	if len(rows) > 0 {
		fields := make(map[string]interface{}, len(rows))
		for _, row := range rows {
			answers[row.QuestionID.String()] = row.Value
			env, _ := json.Marshal(answerEnvelope{Value: row.Value, SavedAt: row.SavedAt})
			fields[row.QuestionID.String()] = env
		}
		_ = s.rdb.HSet(ctx, key, fields).Err()
	}

	return answers, nil
}

// ClearBuffer drops the Redis answer buffer for a settled attempt.
func (s *AnswerService) ClearBuffer(ctx context.Context, attempt *model.Attempt) {
	key := config.CacheKey.AttemptAnswersKey(attempt.ScheduleID.String(), attempt.ParticipantID)
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("clear answer buffer")
	}
}

// ListByAttempt returns the persisted answer rows for supervisor review.
func (s *AnswerService) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.Answer, error) {
	return s.answerRepo.ListByAttempt(ctx, attemptID)
}
