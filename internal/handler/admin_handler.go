package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/findit-id/cbt-backend/internal/model"
	"github.com/findit-id/cbt-backend/internal/repository"
	"github.com/findit-id/cbt-backend/internal/response"
	"github.com/findit-id/cbt-backend/internal/service"
	"github.com/findit-id/cbt-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// AdminHandler handles the administrative surface: test and question
// authoring, session oversight, force submission, and results.
type AdminHandler struct {
	testService    *service.TestService
	sessionService *service.SessionService
	scores         *repository.ScoreRepository
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	testService *service.TestService,
	sessionService *service.SessionService,
	scores *repository.ScoreRepository,
) *AdminHandler {
	return &AdminHandler{
		testService:    testService,
		sessionService: sessionService,
		scores:         scores,
	}
}

// ─── Tests ──────────────────────────────────────────────────────────

// ListTests godoc
// GET /api/v1/admin/tests
func (h *AdminHandler) ListTests(c *gin.Context) {
	tests, err := h.testService.List(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if tests == nil {
		tests = []model.Test{}
	}
	response.Success(c, http.StatusOK, gin.H{"tests": tests})
}

// CreateTest godoc
// POST /api/v1/admin/tests
func (h *AdminHandler) CreateTest(c *gin.Context) {
	var req model.CreateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	test, err := h.testService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"test": test})
}

// UpdateTest godoc
// PUT /api/v1/admin/tests/:id
func (h *AdminHandler) UpdateTest(c *gin.Context) {
	id, ok := h.intParam(c, "id")
	if !ok {
		return
	}

	var req model.UpdateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	test, err := h.testService.Update(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, service.ErrTestNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": test})
}

// DeleteTest godoc
// DELETE /api/v1/admin/tests/:id
func (h *AdminHandler) DeleteTest(c *gin.Context) {
	id, ok := h.intParam(c, "id")
	if !ok {
		return
	}

	if err := h.testService.Delete(c.Request.Context(), id); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// SetTestPassword godoc
// PUT /api/v1/admin/tests/:id/password
func (h *AdminHandler) SetTestPassword(c *gin.Context) {
	id, ok := h.intParam(c, "id")
	if !ok {
		return
	}

	var req model.SetTestPasswordRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.testService.SetPassword(c.Request.Context(), id, req.Password); err != nil {
		if errors.Is(err, service.ErrTestNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// ─── Questions ──────────────────────────────────────────────────────

// ListQuestions godoc
// GET /api/v1/admin/tests/:id/questions
func (h *AdminHandler) ListQuestions(c *gin.Context) {
	id, ok := h.intParam(c, "id")
	if !ok {
		return
	}

	questions, err := h.testService.ListQuestions(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if questions == nil {
		questions = []model.Question{}
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// AddQuestion godoc
// POST /api/v1/admin/tests/:id/questions
func (h *AdminHandler) AddQuestion(c *gin.Context) {
	id, ok := h.intParam(c, "id")
	if !ok {
		return
	}

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.testService.AddQuestion(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, service.ErrTestNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// DeleteQuestion godoc
// DELETE /api/v1/admin/questions/:question_id
func (h *AdminHandler) DeleteQuestion(c *gin.Context) {
	id, ok := h.intParam(c, "question_id")
	if !ok {
		return
	}

	if err := h.testService.DeleteQuestion(c.Request.Context(), id); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// AddChoice godoc
// POST /api/v1/admin/questions/:question_id/choices
func (h *AdminHandler) AddChoice(c *gin.Context) {
	id, ok := h.intParam(c, "question_id")
	if !ok {
		return
	}

	var req model.AddChoiceRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	choice, err := h.testService.AddChoice(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, service.ErrQuestionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"choice": choice})
}

// SetCorrection godoc
// PUT /api/v1/admin/questions/:question_id/correction
// Replaces the answer key of a question.
func (h *AdminHandler) SetCorrection(c *gin.Context) {
	id, ok := h.intParam(c, "question_id")
	if !ok {
		return
	}

	var req model.SetCorrectionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.testService.SetCorrection(c.Request.Context(), id, &req); err != nil {
		if errors.Is(err, service.ErrQuestionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// ─── Sessions ───────────────────────────────────────────────────────

// ListOngoingSessions godoc
// GET /api/v1/admin/sessions
// Lists running sessions with overdue markers for the oversight view.
func (h *AdminHandler) ListOngoingSessions(c *gin.Context) {
	sessions, err := h.sessionService.ListOngoing(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if sessions == nil {
		sessions = []repository.SessionOverview{}
	}
	response.Success(c, http.StatusOK, gin.H{"sessions": sessions})
}

// ForceSubmit godoc
// POST /api/v1/admin/sessions/force-submit
// Force-finishes the listed sessions; outcomes are reported per session.
func (h *AdminHandler) ForceSubmit(c *gin.Context) {
	var req model.ForceSubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	results := h.sessionService.ForceSubmit(c.Request.Context(), req.SessionIDs)
	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// ListResults godoc
// GET /api/v1/admin/tests/:id/results
// Returns the scoreboard of a test.
func (h *AdminHandler) ListResults(c *gin.Context) {
	id, ok := h.intParam(c, "id")
	if !ok {
		return
	}

	results, err := h.scores.ListByTest(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if results == nil {
		results = []repository.ScoreResult{}
	}
	response.Success(c, http.StatusOK, gin.H{"results": results})
}

func (h *AdminHandler) intParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}
