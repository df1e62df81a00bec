package handler

import (
	"net/http"
	"strings"

	"mediator/internal/hub"
	"mediator/internal/mediation"
	"mediator/internal/repository"
	"mediator/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// historyReplayLimit is how many recent messages a joining session receives.
const historyReplayLimit = 50

type WSHandler interface {
	Serve(c *gin.Context)
}

type wsHandler struct {
	upgrader     websocket.Upgrader
	auth         service.AuthService
	rooms        repository.RoomRepository
	messages     repository.MessageRepository
	hub          *hub.Hub
	orchestrator *mediation.Orchestrator
	suggestions  *mediation.SuggestionCache
	log          *logrus.Logger
}

func NewWSHandler(
	auth service.AuthService,
	rooms repository.RoomRepository,
	messages repository.MessageRepository,
	h *hub.Hub,
	orchestrator *mediation.Orchestrator,
	suggestions *mediation.SuggestionCache,
	log *logrus.Logger,
) WSHandler {
	return &wsHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		auth:         auth,
		rooms:        rooms,
		messages:     messages,
		hub:          h,
		orchestrator: orchestrator,
		suggestions:  suggestions,
		log:          log,
	}
}

// clientFrame is what clients send over the socket.
type clientFrame struct {
	Type                 string  `json:"type"`
	Text                 string  `json:"text,omitempty"`
	ThreadID             *string `json:"threadId,omitempty"`
	IsPreApprovedRewrite bool    `json:"isPreApprovedRewrite,omitempty"`
	OriginalRewrite      string  `json:"originalRewrite,omitempty"`
	BypassMediation      bool    `json:"bypassMediation,omitempty"`
}

// Serve authenticates, upgrades and runs one websocket session. The token
// arrives as a query parameter because browsers cannot set headers on
// websocket requests.
func (h *wsHandler) Serve(c *gin.Context) {
	claims, err := h.auth.ParseToken(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	roomID := c.Query("room_id")
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room_id is required"})
		return
	}

	member, err := h.rooms.IsMember(claims.UserID, roomID)
	if err != nil {
		h.log.Errorf("Failed to check room membership: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join room"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this room"})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorf("Websocket upgrade failed: %v", err)
		return
	}

	conn := hub.NewConn(ws, claims.Username, claims.DisplayName, claims.UserID)
	h.hub.Register(roomID, conn)
	defer func() {
		h.hub.Unregister(roomID, conn)
		h.suggestions.Drop(conn.ID())
		conn.Close()
	}()

	h.replayHistory(roomID, conn)
	h.readLoop(c, roomID, conn)
}

func (h *wsHandler) replayHistory(roomID string, conn *hub.Conn) {
	history, err := h.messages.GetRecentMessages(roomID, historyReplayLimit)
	if err != nil {
		h.log.Warnf("History replay skipped for room %s: %v", roomID, err)
		return
	}
	for i := range history {
		if err := conn.Emit(mediation.EventNewMessage, &history[i]); err != nil {
			h.log.Warnf("History replay write failed: %v", err)
			return
		}
	}
}

func (h *wsHandler) readLoop(c *gin.Context, roomID string, conn *hub.Conn) {
	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warnf("Websocket read failed for %s: %v", conn.Username(), err)
			}
			return
		}

		switch frame.Type {
		case "send_message":
			if strings.TrimSpace(frame.Text) == "" {
				continue
			}
			h.orchestrator.HandleDraft(c.Request.Context(), conn, roomID, mediation.Draft{
				Text:                 frame.Text,
				ThreadID:             frame.ThreadID,
				IsPreApprovedRewrite: frame.IsPreApprovedRewrite,
				OriginalRewrite:      frame.OriginalRewrite,
				BypassMediation:      frame.BypassMediation,
			})
		case "fetch_suggestion":
			if suggestion, ok := h.suggestions.Take(conn.ID()); ok {
				if err := conn.Emit(mediation.EventContactSuggestion, suggestion); err != nil {
					h.log.Warnf("Failed to replay suggestion: %v", err)
				}
			}
		default:
			h.log.Debugf("Ignoring unknown frame type %q from %s", frame.Type, conn.Username())
		}
	}
}
