package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/findit-id/cbt-backend/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	UnfairnessBatchSize    = 50
	UnfairnessBatchTimeout = 2 * time.Second
	UnfairnessPollTimeout  = 1 * time.Second
)

// UnfairnessWorker drains the unfairness report queue and appends the audit
// rows. The table is append-only; nothing here updates or deletes.
type UnfairnessWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewUnfairnessWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *UnfairnessWorker {
	return &UnfairnessWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "unfairness_worker").Logger(),
	}
}

type unfairnessPayload struct {
	UserID        string  `json:"user_id"`
	Category      string  `json:"category"`
	Detail        string  `json:"detail"`
	TestSessionID *string `json:"test_session_id,omitempty"`
}

func (w *UnfairnessWorker) Start(ctx context.Context) {
	w.log.Info().Msg("UnfairnessWorker started")

	buffer := make([]*unfairnessPayload, 0, UnfairnessBatchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 &&
			(len(buffer) >= UnfairnessBatchSize || time.Since(lastFlush) >= UnfairnessBatchTimeout) {

			w.flushSafe(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), buffer)
			return

		default:
			result, err := w.rdb.BLPop(ctx, UnfairnessPollTimeout, config.WorkerKey.PersistUnfairnessQueue).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if ctx.Err() != nil {
					w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
					w.flushSafe(context.Background(), buffer)
					return
				}
				w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
				time.Sleep(3 * time.Second)
				continue
			}

			if len(result) < 2 {
				continue
			}

			var payload unfairnessPayload
			if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
				w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed unfairness payload")
				continue
			}

			buffer = append(buffer, &payload)
		}
	}
}

func (w *UnfairnessWorker) flushSafe(ctx context.Context, batch []*unfairnessPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

func (w *UnfairnessWorker) bulkInsert(ctx context.Context, batch []*unfairnessPayload) error {
	now := time.Now()
	rows := make([][]interface{}, 0, len(batch))
	for _, p := range batch {
		rows = append(rows, []interface{}{
			p.UserID, p.Category, p.Detail, p.TestSessionID, now,
		})
	}

	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"unfairness"},
		[]string{"user_id", "category", "detail", "test_session_id", "created_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (w *UnfairnessWorker) fallbackInsert(ctx context.Context, batch []*unfairnessPayload) {
	for _, p := range batch {
		_, err := w.pool.Exec(ctx,
			`INSERT INTO unfairness (user_id, category, detail, test_session_id)
			 VALUES ($1, $2, $3, $4)`,
			p.UserID, p.Category, p.Detail, p.TestSessionID)
		if err != nil {
			w.log.Error().Err(err).Str("user_id", p.UserID).Msg("Insert failed, requeueing")
			raw, _ := json.Marshal(p)
			w.rdb.RPush(ctx, config.WorkerKey.PersistUnfairnessQueue, raw)
		}
	}
}
