package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/findit-id/cbt-backend/internal/model"
	"github.com/findit-id/cbt-backend/internal/repository"
	"github.com/jackc/pgx/v5"
)

// In-memory fakes backing the service tests.

type fakeSessionStore struct {
	sessions map[string]*model.TestSession
	failIDs  map[string]bool // ids whose writes fail
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]*model.TestSession{}, failIDs: map[string]bool{}}
}

func (f *fakeSessionStore) Get(_ context.Context, id string) (*model.TestSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionStore) GetFinished(_ context.Context, teamID string, testID int) (*model.TestSession, error) {
	s, ok := f.sessions[model.SessionID(teamID, testID)]
	if !ok || s.Status != model.SessionStatusFinished {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionStore) Upsert(_ context.Context, s *model.TestSession) error {
	if f.failIDs[s.ID] {
		return errStorage
	}
	if existing, ok := f.sessions[s.ID]; ok {
		if existing.Status == model.SessionStatusFinished {
			return pgx.ErrNoRows
		}
		*s = *existing
		return nil
	}
	now := time.Now()
	s.Status = model.SessionStatusOngoing
	s.StartTime = &now
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeSessionStore) MarkFinished(_ context.Context, id string, answers json.RawMessage) (bool, error) {
	if f.failIDs[id] {
		return false, errStorage
	}
	s, ok := f.sessions[id]
	if !ok || s.Status != model.SessionStatusOngoing {
		return false, nil
	}
	now := time.Now()
	s.Status = model.SessionStatusFinished
	s.EndTime = &now
	if answers != nil {
		s.Answers = answers
	}
	return true, nil
}

func (f *fakeSessionStore) Exists(_ context.Context, id string) (bool, error) {
	_, ok := f.sessions[id]
	return ok, nil
}

func (f *fakeSessionStore) ListOngoing(_ context.Context, _ time.Time) ([]repository.SessionOverview, error) {
	return nil, nil
}

func (f *fakeSessionStore) ListOverdueIDs(_ context.Context, _ time.Time) ([]string, error) {
	var ids []string
	for id, s := range f.sessions {
		if s.Status == model.SessionStatusOngoing {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type fakeTestStore struct {
	tests map[int]*model.Test
}

func (f *fakeTestStore) GetByID(_ context.Context, id int) (*model.Test, error) {
	t, ok := f.tests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTestStore) GetBySlug(_ context.Context, slug string) (*model.Test, error) {
	for _, t := range f.tests {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeFinalizer struct {
	finalized []string
	err       error
}

func (f *fakeFinalizer) Finalize(_ context.Context, session *model.TestSession) error {
	if f.err != nil {
		return f.err
	}
	f.finalized = append(f.finalized, session.ID)
	return nil
}

type fakeEndTimeCache struct {
	endTimes map[int]time.Time
	getErr   error
	sets     int
}

func newFakeEndTimeCache() *fakeEndTimeCache {
	return &fakeEndTimeCache{endTimes: map[int]time.Time{}}
}

func (f *fakeEndTimeCache) GetEndTime(_ context.Context, testID int) (time.Time, error) {
	if f.getErr != nil {
		return time.Time{}, f.getErr
	}
	end, ok := f.endTimes[testID]
	if !ok {
		return time.Time{}, errCacheMiss
	}
	return end, nil
}

func (f *fakeEndTimeCache) SetEndTime(_ context.Context, testID int, end time.Time) error {
	f.endTimes[testID] = end
	f.sets++
	return nil
}

func (f *fakeEndTimeCache) InvalidateEndTime(_ context.Context, testID int) error {
	delete(f.endTimes, testID)
	return nil
}

type fakeAnswerStore struct {
	answers map[string]*model.Answer
	failAll bool
}

func newFakeAnswerStore() *fakeAnswerStore {
	return &fakeAnswerStore{answers: map[string]*model.Answer{}}
}

func (f *fakeAnswerStore) Upsert(_ context.Context, a *model.Answer) error {
	if f.failAll {
		return errStorage
	}
	cp := *a
	cp.Timestamp = time.Now()
	f.answers[a.ID] = &cp
	return nil
}

func (f *fakeAnswerStore) Delete(_ context.Context, id string) error {
	delete(f.answers, id)
	return nil
}

func (f *fakeAnswerStore) ListBySession(_ context.Context, sessionID string) ([]model.Answer, error) {
	var out []model.Answer
	for _, a := range f.answers {
		if a.SessionID == sessionID {
			out = append(out, *a)
		}
	}
	return out, nil
}

type fakeQuestionStore struct {
	questions   map[int]*model.Question
	choices     map[int][]model.Choice
	corrections []model.CorrectionEntry
}

func newFakeQuestionStore() *fakeQuestionStore {
	return &fakeQuestionStore{questions: map[int]*model.Question{}, choices: map[int][]model.Choice{}}
}

func (f *fakeQuestionStore) ListByTest(_ context.Context, testID int) ([]model.Question, error) {
	var out []model.Question
	for id := 0; id < 1000; id++ {
		if q, ok := f.questions[id]; ok && q.TestID == testID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (f *fakeQuestionStore) GetByID(_ context.Context, id int) (*model.Question, error) {
	q, ok := f.questions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *q
	return &cp, nil
}

func (f *fakeQuestionStore) ListChoices(_ context.Context, questionID int) ([]model.Choice, error) {
	return f.choices[questionID], nil
}

func (f *fakeQuestionStore) ListAllCorrections(_ context.Context) ([]model.CorrectionEntry, error) {
	return f.corrections, nil
}

type fakeFlagStore struct {
	flags map[string]*model.Flag
}

func newFakeFlagStore() *fakeFlagStore {
	return &fakeFlagStore{flags: map[string]*model.Flag{}}
}

func (f *fakeFlagStore) Exists(_ context.Context, id string) (bool, error) {
	_, ok := f.flags[id]
	return ok, nil
}

func (f *fakeFlagStore) Upsert(_ context.Context, fl *model.Flag) error {
	cp := *fl
	f.flags[fl.ID] = &cp
	return nil
}

func (f *fakeFlagStore) Delete(_ context.Context, id string) error {
	delete(f.flags, id)
	return nil
}

func (f *fakeFlagStore) ListBySessionTeam(_ context.Context, sessionID, teamID string) ([]model.Flag, error) {
	prefix := sessionID + "-" + teamID + "-"
	var out []model.Flag
	for id, fl := range f.flags {
		if strings.HasPrefix(id, prefix) {
			out = append(out, *fl)
		}
	}
	return out, nil
}

type fakeEventPublisher struct {
	events []*SessionEvent
}

func (f *fakeEventPublisher) Publish(_ context.Context, _ string, event *SessionEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeScoreStore struct {
	scores map[string]*model.Score
}

func newFakeScoreStore() *fakeScoreStore {
	return &fakeScoreStore{scores: map[string]*model.Score{}}
}

func (f *fakeScoreStore) Get(_ context.Context, id string) (*model.Score, error) {
	s, ok := f.scores[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

type fakeScoreQueue struct {
	enqueued []*model.Score
	err      error
}

func (f *fakeScoreQueue) EnqueueScore(_ context.Context, s *model.Score) error {
	if f.err != nil {
		return f.err
	}
	cp := *s
	f.enqueued = append(f.enqueued, &cp)
	return nil
}

type fakeUserSessionStore struct {
	active map[string]*model.UserSession // token → session
	recent map[string][]model.UserSession
	getErr error
}

func newFakeUserSessionStore() *fakeUserSessionStore {
	return &fakeUserSessionStore{active: map[string]*model.UserSession{}, recent: map[string][]model.UserSession{}}
}

func (f *fakeUserSessionStore) Activate(_ context.Context, s *model.UserSession) error {
	for token, existing := range f.active {
		if existing.UserID == s.UserID {
			delete(f.active, token)
		}
	}
	s.IsActive = true
	s.CreatedAt = time.Now()
	cp := *s
	f.active[s.SessionToken] = &cp
	f.recent[s.UserID] = append([]model.UserSession{cp}, f.recent[s.UserID]...)
	return nil
}

func (f *fakeUserSessionStore) GetActiveByToken(_ context.Context, token string) (*model.UserSession, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.active[token]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (f *fakeUserSessionStore) ListRecentByUser(_ context.Context, userID string, limit int) ([]model.UserSession, error) {
	sessions := f.recent[userID]
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (f *fakeUserSessionStore) DeactivateByUser(_ context.Context, userID string) error {
	for token, s := range f.active {
		if s.UserID == userID {
			delete(f.active, token)
		}
	}
	return nil
}

type fakeUnfairnessRecorder struct {
	reports []*model.UnfairnessReport
}

func (f *fakeUnfairnessRecorder) Report(_ context.Context, r *model.UnfairnessReport) error {
	cp := *r
	f.reports = append(f.reports, &cp)
	return nil
}

var (
	errStorage   = errFake("storage failure")
	errCacheMiss = errFake("cache miss")
)

type errFake string

func (e errFake) Error() string { return string(e) }

func intPtr(v int) *int              { return &v }
func strPtr(v string) *string        { return &v }
func timePtr(v time.Time) *time.Time { return &v }
