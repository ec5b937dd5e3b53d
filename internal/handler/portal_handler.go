package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/opencbt/opencbt-backend/internal/middleware"
	"github.com/opencbt/opencbt-backend/internal/model"
	"github.com/opencbt/opencbt-backend/internal/repository"
	"github.com/opencbt/opencbt-backend/internal/response"
	"github.com/opencbt/opencbt-backend/internal/service"
	"github.com/opencbt/opencbt-backend/internal/validator"
)

// PortalHandler handles participant-facing exam endpoints: entry, paper,
// resumption state, submit, and the result view.
type PortalHandler struct {
	entryService   *service.EntryService
	attemptService *service.AttemptService
	attemptRepo    *repository.AttemptRepository
}

// NewPortalHandler creates a new PortalHandler.
func NewPortalHandler(
	entryService *service.EntryService,
	attemptService *service.AttemptService,
	attemptRepo *repository.AttemptRepository,
) *PortalHandler {
	return &PortalHandler{
		entryService:   entryService,
		attemptService: attemptService,
		attemptRepo:    attemptRepo,
	}
}

// EnterSession godoc
// POST /api/v1/participant/sessions/enter
// Resolves an access code into an attempt: resumes a live one, replays a
// terminal one, or starts a fresh one with its deadline fixed server-side.
func (h *PortalHandler) EnterSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.EnterSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.entryService.Enter(c.Request.Context(), claims.UserID, claims.SectionID, req.AccessCode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCode):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidCode)
		case errors.Is(err, service.ErrNotYetOpen):
			response.Fail(c, http.StatusBadRequest, response.ErrNotYetOpen)
		case errors.Is(err, service.ErrClosed):
			response.Fail(c, http.StatusBadRequest, response.ErrClosed)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetSessionPaper godoc
// GET /api/v1/participant/sessions/:session_id/paper
// Returns the cached question payload (no canonical answers). Requires a live
// attempt, so papers cannot be pulled before entering or after submitting.
func (h *PortalHandler) GetSessionPaper(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.entryService.ActiveAttempt(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	payload, err := h.attemptService.GetSessionPayload(c.Request.Context(), sessionID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"paper":          payload,
		"question_order": attempt.QuestionOrder,
	})
}

// GetSessionState godoc
// GET /api/v1/participant/sessions/:session_id/state
// Returns the resumption view: buffered answers, violation count, and the
// server-derived remaining time. Covers page reloads.
func (h *PortalHandler) GetSessionState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	state, err := h.entryService.State(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrNoActiveAttempt) {
			response.Fail(c, http.StatusNotFound, response.ErrNoActiveAttempt)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// SubmitSession godoc
// POST /api/v1/participant/sessions/:session_id/submit
// Performs the terminal transition synchronously. A non-2xx response means the
// submit was NOT confirmed and the client must retry.
func (h *PortalHandler) SubmitSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, err := h.attemptRepo.GetBySessionAndParticipant(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveAttempt)
		return
	}

	final, err := h.attemptService.Submit(c.Request.Context(), attempt.ID, req.Answers, false)
	if err != nil {
		if errors.Is(err, service.ErrAlreadySubmitted) {
			response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrSubmitNotConfirmed)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": final})
}

// GetSessionResult godoc
// GET /api/v1/participant/sessions/:session_id/result
// Returns the participant's attempt record: status, score (null while essays
// await grading), counts, and the pass flag.
func (h *PortalHandler) GetSessionResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptRepo.GetBySessionAndParticipant(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}
