package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/findit-id/cbt-backend/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ScoreBatchSize    = 50
	ScoreBatchTimeout = 2 * time.Second
	ScorePollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// ScoreWorker drains the score queue and persists final scores in batches.
// Scores are computed upstream; this worker only writes them. The
// deterministic score id makes every write idempotent, so requeueing after a
// failure can never double-score a session.
type ScoreWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewScoreWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ScoreWorker {
	return &ScoreWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "score_worker").Logger(),
	}
}

type scorePayload struct {
	ID        string `json:"id"`
	TeamID    string `json:"team_id"`
	TestID    int    `json:"test_id"`
	SessionID string `json:"session_id"`
	Score     int    `json:"score"`
}

func (w *ScoreWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ScoreWorker started")

	batch := make([]*scorePayload, 0, ScoreBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= ScoreBatchSize || time.Since(lastFlush) >= ScoreBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ScorePollTimeout, config.WorkerKey.PersistScoresQueue).Result()
			if err != nil {
				if err == redis.Nil {
					continue // Queue empty, loop back to check flush timer
				}
				if ctx.Err() != nil {
					w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
					w.flushSafe(context.Background(), batch)
					return
				}
				w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
				time.Sleep(3 * time.Second)
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p scorePayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				// Malformed JSON cannot be retried. Log and discard.
				w.log.Error().Err(err).Str("data", item[1]).Msg("Discarding malformed score payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

// flushSafe attempts bulk upsert, then row-by-row fallback, then requeue.
func (w *ScoreWorker) flushSafe(ctx context.Context, batch []*scorePayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkUpsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk score upsert failed, attempting row-by-row recovery")

		for _, p := range batch {
			if err := w.persistSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Str("score_id", p.ID).Msg("Insert failed, requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistScoresQueue, raw)
			}
		}
	}
}

// bulkUpsert writes the whole batch in one statement via UNNEST arrays.
func (w *ScoreWorker) bulkUpsert(ctx context.Context, batch []*scorePayload) error {
	n := len(batch)

	ids := make([]string, 0, n)
	teamIDs := make([]string, 0, n)
	testIDs := make([]int, 0, n)
	sessionIDs := make([]string, 0, n)
	scores := make([]int, 0, n)

	for _, p := range batch {
		ids = append(ids, p.ID)
		teamIDs = append(teamIDs, p.TeamID)
		testIDs = append(testIDs, p.TestID)
		sessionIDs = append(sessionIDs, p.SessionID)
		scores = append(scores, p.Score)
	}

	query := `
		INSERT INTO scores (id, team_id, test_id, session_id, score)
		SELECT u.id, u.team_id, u.test_id, u.session_id, u.score
		FROM UNNEST(
			$1::text[],
			$2::text[],
			$3::int[],
			$4::text[],
			$5::int[]
		) AS u (id, team_id, test_id, session_id, score)
		ON CONFLICT (id) DO UPDATE SET score = EXCLUDED.score
	`

	_, err := w.pool.Exec(ctx, query, ids, teamIDs, testIDs, sessionIDs, scores)
	return err
}

func (w *ScoreWorker) persistSingle(ctx context.Context, p *scorePayload) error {
	_, err := w.pool.Exec(ctx,
		`INSERT INTO scores (id, team_id, test_id, session_id, score)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET score = EXCLUDED.score`,
		p.ID, p.TeamID, p.TestID, p.SessionID, p.Score)
	return err
}
