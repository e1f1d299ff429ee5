package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/unsikalab/tesonline-backend/internal/config"
	"github.com/unsikalab/tesonline-backend/internal/service"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// ViolationWorker consumes persist_violations_queue and writes the
// append-only violation log. Rows are immutable, so the fast path is a bulk
// COPY with a row-by-row fallback when a batch contains a bad record.
type ViolationWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewViolationWorker creates a new ViolationWorker.
func NewViolationWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ViolationWorker {
	return &ViolationWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "violation_worker").Logger(),
	}
}

// Start begins the batching loop. Call in a goroutine.
func (w *ViolationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	buffer := make([]*service.ViolationPersistPayload, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		// Flush on size or age.
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistViolationsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // Queue empty, loop back to check the flush timer.
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var payload service.ViolationPersistPayload
		if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
			// Malformed JSON can never succeed on retry. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		buffer = append(buffer, &payload)
	}
}

// flushSafe attempts bulk insert, then fallback insert, then requeue.
func (w *ViolationWorker) flushSafe(ctx context.Context, batch []*service.ViolationPersistPayload) {
	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

type violationRow struct {
	id        uuid.UUID
	attemptID uuid.UUID
	occurred  time.Time
	metadata  []byte
}

func parseViolationRow(p *service.ViolationPersistPayload) (*violationRow, error) {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return nil, err
	}
	attemptID, err := uuid.Parse(p.AttemptID)
	if err != nil {
		return nil, err
	}
	occurred, err := time.Parse(time.RFC3339Nano, p.OccurredAt)
	if err != nil {
		return nil, err
	}
	metadata := []byte(p.ClientMetadata)
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}
	return &violationRow{id: id, attemptID: attemptID, occurred: occurred, metadata: metadata}, nil
}

func (w *ViolationWorker) bulkInsert(ctx context.Context, batch []*service.ViolationPersistPayload) error {
	rows := make([][]interface{}, 0, len(batch))
	for _, p := range batch {
		row, err := parseViolationRow(p)
		if err != nil {
			// Trigger the fallback, which handles the bad record individually.
			return err
		}
		rows = append(rows, []interface{}{
			row.id, row.attemptID, p.ViolationType, p.DetectionMethod,
			row.metadata, row.occurred, p.ForcedSubmission,
		})
	}

	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"violations"},
		[]string{"id", "attempt_id", "violation_type", "detection_method", "client_metadata", "occurred_at", "forced_submission"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (w *ViolationWorker) fallbackInsert(ctx context.Context, batch []*service.ViolationPersistPayload) {
	requeueList := make([]*service.ViolationPersistPayload, 0)

	for _, p := range batch {
		row, err := parseViolationRow(p)
		if err != nil {
			w.log.Error().Str("violation_id", p.ID).Msg("Dropping violation with malformed fields")
			continue
		}

		_, err = w.pool.Exec(ctx,
			`INSERT INTO violations (id, attempt_id, violation_type, detection_method,
			                         client_metadata, occurred_at, forced_submission)
			 VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)
			 ON CONFLICT (id) DO NOTHING`,
			row.id, row.attemptID, p.ViolationType, p.DetectionMethod,
			row.metadata, row.occurred, p.ForcedSubmission,
		)
		if err != nil {
			w.log.Error().Err(err).Str("attempt_id", p.AttemptID).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, p)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *ViolationWorker) requeue(ctx context.Context, items []*service.ViolationPersistPayload) {
	pipe := w.rdb.Pipeline()
	for _, p := range items {
		data, _ := json.Marshal(p)
		pipe.RPush(ctx, config.WorkerKey.PersistViolationsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
	// Avoid thrashing while the DB is down.
	time.Sleep(2 * time.Second)
}

func (w *ViolationWorker) shutdown(buffer []*service.ViolationPersistPayload) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
