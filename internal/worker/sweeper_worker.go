package worker

import (
	"context"
	"time"

	"github.com/findit-id/cbt-backend/internal/model"
	"github.com/rs/zerolog"
)

// OverdueSweeper force-finishes the sessions the sweep finds overdue.
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context) ([]model.ForceSubmitResult, error)
}

// SweeperWorker periodically force-submits ongoing sessions whose test window
// has closed. This is the backstop for clients that never delivered their
// expiry submission: a crashed laptop cannot keep a session ongoing forever.
type SweeperWorker struct {
	sweeper  OverdueSweeper
	interval time.Duration
	log      zerolog.Logger
}

func NewSweeperWorker(sweeper OverdueSweeper, interval time.Duration, log zerolog.Logger) *SweeperWorker {
	return &SweeperWorker{
		sweeper:  sweeper,
		interval: interval,
		log:      log.With().Str("component", "sweeper_worker").Logger(),
	}
}

func (w *SweeperWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("SweeperWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("SweeperWorker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SweeperWorker) sweep(ctx context.Context) {
	results, err := w.sweeper.SweepOverdue(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("Overdue sweep failed")
		return
	}
	if len(results) == 0 {
		return
	}

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		} else {
			w.log.Warn().Str("session_id", r.SessionID).Str("error", r.Error).Msg("Overdue session not finished")
		}
	}
	w.log.Info().Int("swept", succeeded).Int("total", len(results)).Msg("Overdue sessions force submitted")
}
