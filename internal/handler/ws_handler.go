package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/opencbt/opencbt-backend/internal/middleware"
	"github.com/opencbt/opencbt-backend/internal/model"
	"github.com/opencbt/opencbt-backend/internal/service"
	ws "github.com/opencbt/opencbt-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty origin list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles the live exam stream: autosaves, violation reports, and
// the in-stream submit.
type WSHandler struct {
	entryService   *service.EntryService
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(entryService *service.EntryService, attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		entryService:   entryService,
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/participant/sessions/:session_id/stream
// Upgrades to WebSocket for real-time autosave and violation reporting.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	// Only a live attempt may stream. Terminal attempts get the result view
	// over REST instead.
	attempt, err := h.entryService.ActiveAttempt(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		ws.WriteError(conn, "no active attempt for this session")
		return
	}

	wsLog := h.log.With().
		Int("participant_id", claims.UserID).
		Str("attempt_id", attempt.ID.String()).
		Logger()

	wsLog.Info().Msg("Participant connected")

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionAutosave:
			h.handleAutosave(conn, wsLog, attempt, &msg)
		case ws.ActionViolation:
			h.handleViolation(conn, wsLog, attempt, &msg)
		case ws.ActionSubmit:
			if h.handleSubmit(conn, wsLog, attempt, &msg) {
				return
			}
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

// handleAutosave buffers a single answer and queues it for persistence.
func (h *WSHandler) handleAutosave(conn *websocket.Conn, wsLog zerolog.Logger, attempt *model.Attempt, msg *ws.RequestPayload) {
	ctx := context.Background()

	if msg.QID == "" {
		ws.WriteError(conn, "q_id is required")
		return
	}

	// Well-formed UUIDs only, to keep junk out of the Redis hash fields.
	questionID, err := uuid.Parse(msg.QID)
	if err != nil {
		ws.WriteError(conn, "invalid q_id format")
		return
	}

	if err := h.attemptService.CaptureAnswer(ctx, attempt, questionID, msg.Answer); err != nil {
		wsLog.Error().Err(err).Msg("Autosave error")
		ws.WriteError(conn, "save failed")
		return
	}

	ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, Status: "saved"})
}

// handleViolation enqueues a violation event for the serialized worker.
func (h *WSHandler) handleViolation(conn *websocket.Conn, wsLog zerolog.Logger, attempt *model.Attempt, msg *ws.RequestPayload) {
	ctx := context.Background()

	if msg.Kind == "" {
		ws.WriteError(conn, "kind is required")
		return
	}

	if err := h.attemptService.ReportViolation(ctx, attempt, msg.Kind, msg.Payload); err != nil {
		wsLog.Error().Err(err).Msg("Violation enqueue error")
		ws.WriteError(conn, "report failed")
		return
	}

	ws.WriteTyped(conn, ws.ReportedResponse{Event: ws.EventReported, Status: "reported"})
}

// handleSubmit performs the synchronous terminal transition. Returns true when
// the stream should close.
func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, attempt *model.Attempt, msg *ws.RequestPayload) bool {
	ctx := context.Background()

	final, err := h.attemptService.Submit(ctx, attempt.ID, msg.Answers, false)
	if err != nil {
		if errors.Is(err, service.ErrAlreadySubmitted) {
			ws.WriteError(conn, "attempt already submitted")
			return true
		}
		wsLog.Error().Err(err).Msg("Submit error")
		// Not confirmed. The client must retry; the attempt is still live.
		ws.WriteError(conn, "submit not confirmed, retry")
		return false
	}

	ws.WriteTyped(conn, ws.SubmittedResponse{
		Event:         ws.EventSubmitted,
		Status:        string(final.Status),
		Score:         final.Score,
		Passed:        final.Passed,
		AutoSubmitted: final.AutoSubmitted,
	})
	return true
}
