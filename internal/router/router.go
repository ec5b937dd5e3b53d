package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/opencbt/opencbt-backend/internal/config"
	"github.com/opencbt/opencbt-backend/internal/handler"
	"github.com/opencbt/opencbt-backend/internal/middleware"
	"github.com/opencbt/opencbt-backend/internal/response"
	"github.com/opencbt/opencbt-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Portal  *handler.PortalHandler
	Grading *handler.GradingHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for credential and access-code guessing surfaces
	// (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/participant/login", authLimiter.Middleware(), handlers.Auth.ParticipantLogin)
		auth.POST("/reviewer/login", authLimiter.Middleware(), handlers.Auth.ReviewerLogin)

		// Authenticated profile routes
		auth.POST("/participant/logout", middleware.RequireParticipantJWT(authService), handlers.Auth.ParticipantLogout)
		auth.GET("/participant/me", middleware.RequireParticipantJWT(authService), handlers.Auth.GetParticipantProfile)
		auth.GET("/reviewer/me", middleware.RequireReviewerJWT(authService), handlers.Auth.GetReviewerProfile)
	}

	// ─── 2. Participant Group (JWT + Single Device) ────────────────────
	participantAPI := router.Group("/api/v1/participant")
	participantAPI.Use(
		middleware.RequireParticipantJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		participantAPI.POST("/sessions/enter", authLimiter.Middleware(), handlers.Portal.EnterSession)
		participantAPI.GET("/sessions/:session_id/paper", handlers.Portal.GetSessionPaper)
		participantAPI.GET("/sessions/:session_id/state", handlers.Portal.GetSessionState)
		participantAPI.POST("/sessions/:session_id/submit", handlers.Portal.SubmitSession)
		participantAPI.GET("/sessions/:session_id/result", handlers.Portal.GetSessionResult)
	}

	// ─── 3. WebSocket Group (Participant WS Auth) ──────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireParticipantWSAuth(authService))
	{
		ws.GET("/participant/sessions/:session_id/stream", handlers.WS.SessionStream)
	}

	// ─── 4. Reviewer Group (JWT) ───────────────────────────────────────
	reviewerAPI := router.Group("/api/v1/reviewer")
	reviewerAPI.Use(middleware.RequireReviewerJWT(authService))
	{
		reviewerAPI.GET("/grading", handlers.Grading.ListPendingGrading)
		reviewerAPI.GET("/grading/:attempt_id", handlers.Grading.GetGradingDetail)
		reviewerAPI.PUT("/grading/:attempt_id/questions/:question_id", handlers.Grading.SaveEssayScore)
	}

	return router
}
