package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/findit-id/cbt-backend/internal/model"
	"github.com/rs/zerolog"
)

func newSessionService(store *fakeSessionStore, tests *fakeTestStore, fin *fakeFinalizer, cache *fakeEndTimeCache) *SessionService {
	if tests == nil {
		tests = &fakeTestStore{tests: map[int]*model.Test{}}
	}
	if fin == nil {
		fin = &fakeFinalizer{}
	}
	if cache == nil {
		cache = newFakeEndTimeCache()
	}
	return NewSessionService(store, tests, fin, cache, zerolog.Nop())
}

func TestGetOrCreateStartsSessionOnce(t *testing.T) {
	store := newFakeSessionStore()
	svc := newSessionService(store, nil, nil, nil)
	ctx := context.Background()

	first, err := svc.GetOrCreate(ctx, "alpha", 1)
	if err != nil {
		t.Fatalf("first GetOrCreate: %v", err)
	}
	if first.ID != "alpha-1" {
		t.Fatalf("session id = %q, want %q", first.ID, "alpha-1")
	}
	if first.Status != model.SessionStatusOngoing {
		t.Fatalf("status = %q, want ongoing", first.Status)
	}

	// A teammate entering later converges on the same row.
	second, err := svc.GetOrCreate(ctx, "alpha", 1)
	if err != nil {
		t.Fatalf("second GetOrCreate: %v", err)
	}
	if second.ID != first.ID || !second.StartTime.Equal(*first.StartTime) {
		t.Fatal("second entry did not converge on the original session")
	}
}

func TestGetOrCreateReturnsFinishedUnchanged(t *testing.T) {
	store := newFakeSessionStore()
	fin := &fakeFinalizer{}
	svc := newSessionService(store, nil, fin, nil)
	ctx := context.Background()

	end := time.Now().Add(-time.Hour)
	store.sessions["alpha-1"] = &model.TestSession{
		ID: "alpha-1", TeamID: "alpha", TestID: 1,
		Status: model.SessionStatusFinished, EndTime: &end,
	}

	got, err := svc.GetOrCreate(ctx, "alpha", 1)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if got.Status != model.SessionStatusFinished {
		t.Fatalf("status = %q, want finished", got.Status)
	}
	if !got.EndTime.Equal(end) {
		t.Fatal("finished session was modified on re-entry")
	}
	if len(fin.finalized) != 1 || fin.finalized[0] != "alpha-1" {
		t.Fatalf("finalized = %v, want one entry for alpha-1", fin.finalized)
	}
}

func TestGetOrCreateFailsWhenPersistFails(t *testing.T) {
	store := newFakeSessionStore()
	store.failIDs["alpha-1"] = true
	svc := newSessionService(store, nil, nil, nil)

	if _, err := svc.GetOrCreate(context.Background(), "alpha", 1); err == nil {
		t.Fatal("expected error when session cannot be persisted")
	}
}

func TestSubmitFinishesAndScoresOnce(t *testing.T) {
	store := newFakeSessionStore()
	fin := &fakeFinalizer{}
	svc := newSessionService(store, nil, fin, nil)
	ctx := context.Background()

	if _, err := svc.GetOrCreate(ctx, "alpha", 1); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	snapshot := json.RawMessage(`[{"question_id":1,"choice_id":11}]`)
	if err := svc.Submit(ctx, "alpha-1", snapshot); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	s := store.sessions["alpha-1"]
	if s.Status != model.SessionStatusFinished || s.EndTime == nil {
		t.Fatal("submit did not finish the session")
	}
	if string(s.Answers) != string(snapshot) {
		t.Fatal("answers snapshot not stored")
	}
	if len(fin.finalized) != 1 {
		t.Fatalf("finalized %d times, want 1", len(fin.finalized))
	}

	// Re-submitting is a no-op success and does not re-trigger scoring here.
	if err := svc.Submit(ctx, "alpha-1", nil); err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if len(fin.finalized) != 1 {
		t.Fatalf("finalized %d times after resubmit, want 1", len(fin.finalized))
	}
}

func TestSubmitUnknownSession(t *testing.T) {
	svc := newSessionService(newFakeSessionStore(), nil, nil, nil)

	err := svc.Submit(context.Background(), "ghost-9", nil)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestForceSubmitIndependentOutcomes(t *testing.T) {
	store := newFakeSessionStore()
	svc := newSessionService(store, nil, nil, nil)
	ctx := context.Background()

	if _, err := svc.GetOrCreate(ctx, "alpha", 1); err != nil {
		t.Fatalf("GetOrCreate alpha: %v", err)
	}
	if _, err := svc.GetOrCreate(ctx, "bravo", 1); err != nil {
		t.Fatalf("GetOrCreate bravo: %v", err)
	}
	store.failIDs["bravo-1"] = true

	end := time.Now()
	store.sessions["charlie-1"] = &model.TestSession{
		ID: "charlie-1", TeamID: "charlie", TestID: 1,
		Status: model.SessionStatusFinished, EndTime: &end,
	}

	results := svc.ForceSubmit(ctx, []string{"alpha-1", "bravo-1", "charlie-1", "ghost-1"})
	want := map[string]bool{"alpha-1": true, "bravo-1": false, "charlie-1": true, "ghost-1": false}
	for _, r := range results {
		if r.Success != want[r.SessionID] {
			t.Errorf("%s: success = %v, want %v (error: %q)", r.SessionID, r.Success, want[r.SessionID], r.Error)
		}
	}
	if store.sessions["alpha-1"].Status != model.SessionStatusFinished {
		t.Fatal("alpha-1 not finished despite success")
	}
}

func TestRemainingSecondsFallsBackToStorage(t *testing.T) {
	end := time.Now().Add(90 * time.Second)
	tests := &fakeTestStore{tests: map[int]*model.Test{
		5: {ID: 5, Slug: "quiz", DurationMinutes: 60, EndTime: &end},
	}}
	cache := newFakeEndTimeCache()
	svc := newSessionService(newFakeSessionStore(), tests, nil, cache)

	remaining, err := svc.RemainingSeconds(context.Background(), 5)
	if err != nil {
		t.Fatalf("RemainingSeconds: %v", err)
	}
	if remaining < 85 || remaining > 90 {
		t.Fatalf("remaining = %d, want ~90", remaining)
	}
	if cache.sets != 1 {
		t.Fatalf("cache backfilled %d times, want 1", cache.sets)
	}

	// Second call is served from cache.
	if _, err := svc.RemainingSeconds(context.Background(), 5); err != nil {
		t.Fatalf("cached RemainingSeconds: %v", err)
	}
	if cache.sets != 1 {
		t.Fatal("cache hit still wrote through")
	}
}

func TestRemainingSecondsNegativeAfterWindow(t *testing.T) {
	cache := newFakeEndTimeCache()
	cache.endTimes[5] = time.Now().Add(-30 * time.Second)
	svc := newSessionService(newFakeSessionStore(), nil, nil, cache)

	remaining, err := svc.RemainingSeconds(context.Background(), 5)
	if err != nil {
		t.Fatalf("RemainingSeconds: %v", err)
	}
	if remaining >= 0 {
		t.Fatalf("remaining = %d, want negative", remaining)
	}
}

func TestRemainingSecondsUnknownTest(t *testing.T) {
	svc := newSessionService(newFakeSessionStore(), nil, nil, nil)

	if _, err := svc.RemainingSeconds(context.Background(), 404); !errors.Is(err, ErrTestNotFound) {
		t.Fatalf("err = %v, want ErrTestNotFound", err)
	}
}

func TestSweepOverdueFinishesOngoing(t *testing.T) {
	store := newFakeSessionStore()
	fin := &fakeFinalizer{}
	svc := newSessionService(store, nil, fin, nil)
	ctx := context.Background()

	if _, err := svc.GetOrCreate(ctx, "alpha", 1); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	results, err := svc.SweepOverdue(ctx)
	if err != nil {
		t.Fatalf("SweepOverdue: %v", err)
	}
	if len(results) != 1 || !results[0].Success {
		t.Fatalf("results = %+v, want one success", results)
	}
	if store.sessions["alpha-1"].Status != model.SessionStatusFinished {
		t.Fatal("overdue session not finished")
	}
}
