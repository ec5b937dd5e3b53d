package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opencbt/opencbt-backend/internal/middleware"
	"github.com/opencbt/opencbt-backend/internal/model"
	"github.com/opencbt/opencbt-backend/internal/repository"
	"github.com/opencbt/opencbt-backend/internal/response"
	"github.com/opencbt/opencbt-backend/internal/service"
	"github.com/opencbt/opencbt-backend/internal/validator"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService     *service.AuthService
	participantRepo *repository.ParticipantRepository
	reviewerRepo    *repository.ReviewerRepository
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	authService *service.AuthService,
	participantRepo *repository.ParticipantRepository,
	reviewerRepo *repository.ReviewerRepository,
) *AuthHandler {
	return &AuthHandler{
		authService:     authService,
		participantRepo: participantRepo,
		reviewerRepo:    reviewerRepo,
	}
}

// ParticipantLogin godoc
// POST /api/v1/auth/participant/login
// Validates username + password, checks for an existing device session
// (rejects if active), returns JWT.
func (h *AuthHandler) ParticipantLogin(c *gin.Context) {
	var req model.ParticipantLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	participant, err := h.participantRepo.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	if err := h.authService.CheckPassword(participant.PasswordHash, req.Password); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	token, err := h.authService.GenerateParticipantToken(c.Request.Context(), participant.ID, participant.SectionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionAlreadyActive) {
			response.Fail(c, http.StatusConflict, response.ErrSessionActive)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, model.ParticipantLoginResponse{
		Token:       token,
		Participant: *participant,
	})
}

// ParticipantLogout godoc
// POST /api/v1/auth/participant/logout
// Releases the participant's device session so a new login can succeed.
func (h *AuthHandler) ParticipantLogout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.ResetParticipantSession(c.Request.Context(), claims.UserID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// GetParticipantProfile godoc
// GET /api/v1/auth/participant/me
// Returns the profile of the currently authenticated participant.
func (h *AuthHandler) GetParticipantProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	participant, err := h.participantRepo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"participant": participant})
}

// ReviewerLogin godoc
// POST /api/v1/auth/reviewer/login
// Validates email + password, returns JWT.
func (h *AuthHandler) ReviewerLogin(c *gin.Context) {
	var req model.ReviewerLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	reviewer, err := h.reviewerRepo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	if err := h.authService.CheckPassword(reviewer.PasswordHash, req.Password); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	token, err := h.authService.GenerateReviewerToken(reviewer.ID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, model.ReviewerLoginResponse{
		Token:    token,
		Reviewer: *reviewer,
	})
}

// GetReviewerProfile godoc
// GET /api/v1/auth/reviewer/me
// Returns the profile of the currently authenticated reviewer.
func (h *AuthHandler) GetReviewerProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	reviewer, err := h.reviewerRepo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reviewer": reviewer})
}
