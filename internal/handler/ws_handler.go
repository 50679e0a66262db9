package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/findit-id/cbt-backend/internal/config"
	"github.com/findit-id/cbt-backend/internal/middleware"
	"github.com/findit-id/cbt-backend/internal/model"
	"github.com/findit-id/cbt-backend/internal/service"
	"github.com/findit-id/cbt-backend/internal/timer"
	ws "github.com/findit-id/cbt-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
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

// WSHandler streams the exam session over WebSocket: countdown ticks, team
// answer/flag events, and the expiry-triggered submission.
type WSHandler struct {
	rdb            *redis.Client
	sessionService *service.SessionService
	events         service.EventPublisher
	cfg            *config.Config
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, sessionService *service.SessionService, events service.EventPublisher, cfg *config.Config, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		rdb:            rdb,
		sessionService: sessionService,
		events:         events,
		cfg:            cfg,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(cfg.AllowedOrigins),
	}
}

// streamConn serializes writes from the countdown, the pub/sub forwarder, and
// the read loop onto one connection.
type streamConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *streamConn) write(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ws.WriteTyped(s.conn, v)
}

// SessionStream godoc
// WS /ws/v1/team/sessions/:session_id/stream
// Upgrades to WebSocket. Pushes one countdown tick per second, forwards
// teammate answer/flag events, and force-finishes the session when the
// countdown expires.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID := c.Param("session_id")
	session, err := h.sessionService.Get(c.Request.Context(), sessionID)
	if err != nil || session.TeamID != claims.TeamID {
		c.JSON(http.StatusForbidden, gin.H{"error": "no session for this team"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	sc := &streamConn{conn: conn}
	wsLog := h.log.With().
		Str("session_id", sessionID).
		Int("member_id", claims.UserID).
		Logger()
	wsLog.Info().Msg("Member connected")

	if session.Status == model.SessionStatusFinished {
		sc.write(ws.SubmittedResponse{Event: ws.EventSubmitted, SessionID: sessionID})
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	countdown := h.startCountdown(ctx, sc, wsLog, session)
	go h.forwardSessionEvents(ctx, sc, wsLog, sessionID)

	// Read loop. Ends on disconnect; the deferred cancel stops everything.
	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionPing:
			sc.write(ws.PongResponse{Event: ws.EventPong})
		case ws.ActionSubmit:
			h.handleSubmit(ctx, sc, wsLog, sessionID, countdown)
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

// startCountdown runs the per-connection countdown. Expiry submits the
// session server-side; every client of the team does the same, and the
// monotonic finish transition makes the duplicates no-ops.
func (h *WSHandler) startCountdown(ctx context.Context, sc *streamConn, wsLog zerolog.Logger, session *model.TestSession) *timer.Countdown {
	source := func(ctx context.Context) (int64, error) {
		return h.sessionService.RemainingSeconds(ctx, session.TestID)
	}

	var countdown *timer.Countdown
	countdown = timer.New(source, timer.Options{
		SyncInterval: h.cfg.TimeSyncInterval,
		OnTick: func(remaining int64) {
			sc.write(ws.TickResponse{Event: ws.EventTick, Remaining: remaining})
		},
		OnExpire: func() {
			wsLog.Info().Msg("Countdown expired, submitting session")
			h.handleSubmit(ctx, sc, wsLog, session.ID, countdown)
		},
	})

	go func() {
		if err := countdown.Run(ctx); err != nil && ctx.Err() == nil {
			wsLog.Error().Err(err).Msg("Countdown stopped")
			sc.write(ws.ErrorResponse{Event: ws.EventError, Error: "countdown unavailable"})
		}
	}()
	return countdown
}

// handleSubmit finishes the session and announces it to the whole team.
func (h *WSHandler) handleSubmit(ctx context.Context, sc *streamConn, wsLog zerolog.Logger, sessionID string, countdown *timer.Countdown) {
	if err := h.sessionService.Submit(ctx, sessionID, nil); err != nil {
		wsLog.Error().Err(err).Msg("Submit failed")
		sc.write(ws.ErrorResponse{Event: ws.EventError, Error: "submit failed"})
		return
	}

	countdown.MarkSubmitted()
	sc.write(ws.SubmittedResponse{Event: ws.EventSubmitted, SessionID: sessionID})

	if err := h.events.Publish(ctx, sessionID, &service.SessionEvent{
		Type:      service.EventSubmitted,
		SessionID: sessionID,
	}); err != nil {
		wsLog.Warn().Err(err).Msg("Failed to announce submission")
	}
}

// forwardSessionEvents subscribes to the session's Redis channel and relays
// teammate events to this connection. Redis pub/sub fans the channel out
// across server instances, so teammates on different nodes stay in sync.
func (h *WSHandler) forwardSessionEvents(ctx context.Context, sc *streamConn, wsLog zerolog.Logger, sessionID string) {
	sub := h.rdb.Subscribe(ctx, config.CacheKey.SessionChannel(sessionID))
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event service.SessionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				wsLog.Warn().Err(err).Msg("Malformed session event")
				continue
			}

			if event.Type == service.EventSubmitted {
				sc.write(ws.SubmittedResponse{Event: ws.EventSubmitted, SessionID: sessionID})
				continue
			}
			sc.write(ws.SessionResponse{Event: ws.EventSession, Payload: json.RawMessage(msg.Payload)})
		}
	}
}
