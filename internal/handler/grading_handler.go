package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/opencbt/opencbt-backend/internal/model"
	"github.com/opencbt/opencbt-backend/internal/response"
	"github.com/opencbt/opencbt-backend/internal/service"
	"github.com/opencbt/opencbt-backend/internal/validator"
)

// GradingHandler handles the reviewer grading surface.
type GradingHandler struct {
	gradingService *service.GradingService
}

// NewGradingHandler creates a new GradingHandler.
func NewGradingHandler(gradingService *service.GradingService) *GradingHandler {
	return &GradingHandler{gradingService: gradingService}
}

// ListPendingGrading godoc
// GET /api/v1/reviewer/grading?page=1&per_page=10
// Returns the paginated queue of attempts awaiting essay grading.
func (h *GradingHandler) ListPendingGrading(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	items, pagination, err := h.gradingService.ListPending(c.Request.Context(), page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"attempts": items}, pagination)
}

// GetGradingDetail godoc
// GET /api/v1/reviewer/grading/:attempt_id
// Returns the grading view: the attempt, the question set with rubrics, and
// every captured answer with its essay sub-score.
func (h *GradingHandler) GetGradingDetail(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	detail, err := h.gradingService.GetAttemptDetail(c.Request.Context(), attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, detail)
}

// SaveEssayScore godoc
// PUT /api/v1/reviewer/grading/:attempt_id/questions/:question_id
// Stores a 0-100 sub-score for one essay item and recomputes the attempt's
// final score. Saving the last missing sub-score flips the attempt to GRADED.
func (h *GradingHandler) SaveEssayScore(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.EssayGradeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, err := h.gradingService.SaveEssayScore(c.Request.Context(), attemptID, questionID, req.Score)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrNotGradable):
			response.Fail(c, http.StatusConflict, response.ErrNotGradable)
		case errors.Is(err, service.ErrNotEssayItem):
			response.Fail(c, http.StatusBadRequest, response.ErrNotEssayItem)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}
