package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/findit-id/cbt-backend/internal/middleware"
	"github.com/findit-id/cbt-backend/internal/model"
	"github.com/findit-id/cbt-backend/internal/response"
	"github.com/findit-id/cbt-backend/internal/service"
	"github.com/findit-id/cbt-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// PortalHandler handles team-facing endpoints: test entry, the exam paper,
// answers, flags, and submission.
type PortalHandler struct {
	examService    *service.ExamService
	sessionService *service.SessionService
	answerService  *service.AnswerService
	scoringService *service.ScoringService
}

// NewPortalHandler creates a new PortalHandler.
func NewPortalHandler(
	examService *service.ExamService,
	sessionService *service.SessionService,
	answerService *service.AnswerService,
	scoringService *service.ScoringService,
) *PortalHandler {
	return &PortalHandler{
		examService:    examService,
		sessionService: sessionService,
		answerService:  answerService,
		scoringService: scoringService,
	}
}

// GetTest godoc
// GET /api/v1/team/tests/:slug
// Returns the public metadata of a test, including whether entry is gated.
func (h *PortalHandler) GetTest(c *gin.Context) {
	test, ok := h.resolveTest(c)
	if !ok {
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"test": gin.H{
			"id":           test.ID,
			"slug":         test.Slug,
			"title":        test.Title,
			"description":  test.Description,
			"duration":     test.DurationMinutes,
			"start_time":   test.StartTime,
			"end_time":     test.EndTime,
			"has_password": test.PasswordHash != nil,
		},
	})
}

// VerifyTestPassword godoc
// POST /api/v1/team/tests/:slug/verify-password
func (h *PortalHandler) VerifyTestPassword(c *gin.Context) {
	test, ok := h.resolveTest(c)
	if !ok {
		return
	}

	var req model.VerifyTestPasswordRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.examService.VerifyPassword(test, req.Password); err != nil {
		switch {
		case errors.Is(err, service.ErrTestNoPassword):
			response.Fail(c, http.StatusBadRequest, response.ErrTestNoPassword)
		case errors.Is(err, service.ErrTestPasswordInvalid):
			response.Fail(c, http.StatusUnauthorized, response.ErrTestPasswordInvalid)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"verified": true})
}

// EnterTest godoc
// POST /api/v1/team/tests/:slug/session
// Starts (or rejoins) the team's session for the test. Idempotent: every
// member of the team converges on the same session.
func (h *PortalHandler) EnterTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	test, ok := h.resolveTest(c)
	if !ok {
		return
	}

	session, err := h.sessionService.GetOrCreate(c.Request.Context(), claims.TeamID, test.ID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// GetPaper godoc
// GET /api/v1/team/tests/:slug/paper
// Returns the shuffled exam paper. Requires the team's session to exist.
func (h *PortalHandler) GetPaper(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	test, ok := h.resolveTest(c)
	if !ok {
		return
	}

	session, err := h.sessionService.Get(c.Request.Context(), model.SessionID(claims.TeamID, test.ID))
	if err != nil {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	paper, err := h.examService.BuildPaper(c.Request.Context(), claims.TeamID, test, session)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"session":   session,
		"questions": paper,
	})
}

// CheckTime godoc
// GET /api/v1/team/tests/:slug/time
// Returns the server-authoritative remaining seconds of the test window.
func (h *PortalHandler) CheckTime(c *gin.Context) {
	test, ok := h.resolveTest(c)
	if !ok {
		return
	}

	remaining, err := h.sessionService.RemainingSeconds(c.Request.Context(), test.ID)
	if err != nil {
		if errors.Is(err, service.ErrTestNotFound) || errors.Is(err, service.ErrTestNoEndTime) {
			response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"remaining_seconds": remaining})
}

// SubmitSession godoc
// POST /api/v1/team/sessions/:session_id/submit
// Finishes the session. Idempotent: re-submission is a no-op success.
func (h *PortalHandler) SubmitSession(c *gin.Context) {
	session, ok := h.resolveOwnedSession(c)
	if !ok {
		return
	}

	// The answers snapshot is optional; submitting with no body is valid.
	var req model.SubmitSessionRequest
	if c.Request.ContentLength > 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	if err := h.sessionService.Submit(c.Request.Context(), session.ID, req.Answers); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session_id": session.ID, "status": model.SessionStatusFinished})
}

// ListAnswers godoc
// GET /api/v1/team/sessions/:session_id/answers
func (h *PortalHandler) ListAnswers(c *gin.Context) {
	session, ok := h.resolveOwnedSession(c)
	if !ok {
		return
	}

	answers, err := h.answerService.List(c.Request.Context(), session.ID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if answers == nil {
		answers = []model.Answer{}
	}

	response.Success(c, http.StatusOK, gin.H{"answers": answers})
}

// SaveAnswer godoc
// PUT /api/v1/team/sessions/:session_id/questions/:question_id/answer
func (h *PortalHandler) SaveAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	session, ok := h.resolveOwnedSession(c)
	if !ok {
		return
	}
	questionID, ok := h.questionID(c)
	if !ok {
		return
	}

	var req model.RecordAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	answer, err := h.answerService.Record(c.Request.Context(), session, claims.TeamID, questionID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionFinished):
			response.Fail(c, http.StatusConflict, response.ErrSessionFinished)
		case errors.Is(err, service.ErrQuestionNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrPatternMismatch):
			response.Fail(c, http.StatusBadRequest, response.ErrPatternMismatch)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrSaveFailed)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"answer": answer})
}

// ClearAnswer godoc
// DELETE /api/v1/team/sessions/:session_id/questions/:question_id/answer
func (h *PortalHandler) ClearAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	session, ok := h.resolveOwnedSession(c)
	if !ok {
		return
	}
	questionID, ok := h.questionID(c)
	if !ok {
		return
	}

	if err := h.answerService.Clear(c.Request.Context(), session, claims.TeamID, questionID); err != nil {
		if errors.Is(err, service.ErrSessionFinished) {
			response.Fail(c, http.StatusConflict, response.ErrSessionFinished)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ToggleFlag godoc
// POST /api/v1/team/sessions/:session_id/questions/:question_id/flag
func (h *PortalHandler) ToggleFlag(c *gin.Context) {
	claims := middleware.GetClaims(c)
	session, ok := h.resolveOwnedSession(c)
	if !ok {
		return
	}
	questionID, ok := h.questionID(c)
	if !ok {
		return
	}

	flagged, err := h.answerService.ToggleFlag(c.Request.Context(), session, claims.TeamID, questionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionFinished) {
			response.Fail(c, http.StatusConflict, response.ErrSessionFinished)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"flagged": flagged})
}

// ListFlags godoc
// GET /api/v1/team/sessions/:session_id/flags
func (h *PortalHandler) ListFlags(c *gin.Context) {
	claims := middleware.GetClaims(c)
	session, ok := h.resolveOwnedSession(c)
	if !ok {
		return
	}

	flags, err := h.answerService.ListFlags(c.Request.Context(), session.ID, claims.TeamID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if flags == nil {
		flags = []model.Flag{}
	}

	response.Success(c, http.StatusOK, gin.H{"flags": flags})
}

// GetResult godoc
// GET /api/v1/team/sessions/:session_id/result
// Returns the score of the team's finished session.
func (h *PortalHandler) GetResult(c *gin.Context) {
	session, ok := h.resolveOwnedSession(c)
	if !ok {
		return
	}

	if session.Status != model.SessionStatusFinished {
		response.Fail(c, http.StatusConflict, response.ErrActionForbidden)
		return
	}

	score, err := h.scoringService.Calculate(c.Request.Context(), session.ID, session.TestID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"session_id": session.ID,
		"score":      score,
	})
}

// resolveTest loads the test addressed by the :slug param, failing the
// request on miss.
func (h *PortalHandler) resolveTest(c *gin.Context) (*model.Test, bool) {
	test, err := h.examService.GetTestBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, service.ErrTestNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
		} else {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return nil, false
	}
	return test, true
}

// resolveOwnedSession loads the :session_id session and verifies it belongs
// to the caller's team. Prevents one team acting on another's session.
func (h *PortalHandler) resolveOwnedSession(c *gin.Context) (*model.TestSession, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}

	session, err := h.sessionService.Get(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		} else {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return nil, false
	}

	if session.TeamID != claims.TeamID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return nil, false
	}
	return session, true
}

func (h *PortalHandler) questionID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}
