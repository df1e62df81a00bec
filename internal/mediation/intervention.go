package mediation

import (
	"sync"
	"time"

	"mediator/internal/models"
	"mediator/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// commentMinInterval is the minimum spacing between AI comments in one room.
const commentMinInterval = 60 * time.Second

// commentLimiter rate-limits ai_comment insertions per room so the mediator
// does not dominate the conversation.
type commentLimiter struct {
	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

func newCommentLimiter() *commentLimiter {
	return &commentLimiter{last: make(map[string]time.Time), now: time.Now}
}

// Allow reports whether a comment may be inserted in the room now, and if so
// records the insertion.
func (l *commentLimiter) Allow(roomID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if prev, ok := l.last[roomID]; ok && now.Sub(prev) < commentMinInterval {
		return false
	}
	l.last[roomID] = now
	return true
}

// InterventionProcessor delivers the analyzer's non-approval outcomes:
// private coaching back to the sender, or a neutral comment into the room.
type InterventionProcessor struct {
	messages repository.MessageRepository
	stats    repository.StatsRepository
	hub      Broadcaster
	limiter  *commentLimiter
	logger   *zap.Logger
}

func NewInterventionProcessor(
	messages repository.MessageRepository,
	stats repository.StatsRepository,
	hub Broadcaster,
	logger *zap.Logger,
) *InterventionProcessor {
	return &InterventionProcessor{
		messages: messages,
		stats:    stats,
		hub:      hub,
		limiter:  newCommentLimiter(),
		logger:   logger,
	}
}

// Coach sends coaching privately to the sender. The flagged draft is counted
// in the sender's stats but never persisted or broadcast; only the sender
// learns an intervention happened.
func (p *InterventionProcessor) Coach(conn Conn, msg *models.Message, iv *models.Intervention, userID int64) {
	if err := p.stats.RecordMessage(userID, msg.RoomID, true); err != nil {
		p.logger.Warn("Failed to record flagged message", zap.String("room_id", msg.RoomID), zap.Error(err))
	}

	if !conn.Alive() {
		p.logger.Info("Sender disconnected before coaching delivery",
			zap.String("room_id", msg.RoomID),
			zap.String("username", msg.Username))
		return
	}

	explanation := iv.Validation
	if iv.Insight != "" {
		explanation = explanation + " " + iv.Insight
	}
	payload := CoachingPayload{
		RiskLevel:    iv.Escalation.RiskLevel,
		OriginalText: msg.Text,
		ObserverData: &ObserverData{
			AxiomsFired:      iv.Escalation.Reasons,
			Explanation:      explanation,
			Tip:              iv.Tip,
			RefocusQuestions: iv.RefocusQuestions,
			Rewrite1:         iv.Rewrite1,
			Rewrite2:         iv.Rewrite2,
			Escalation:       iv.Escalation,
			Emotion:          iv.Emotion,
		},
	}
	if err := conn.Emit(EventDraftCoaching, payload); err != nil {
		p.logger.Warn("Failed to deliver coaching", zap.String("username", msg.Username), zap.Error(err))
	}
}

// CommentAllowed reports whether the room can take another AI comment, and
// reserves the slot when it can.
func (p *InterventionProcessor) CommentAllowed(roomID string) bool {
	return p.limiter.Allow(roomID)
}

// Comment persists and broadcasts the original message, then inserts the
// analyzer's neutral note as a visible ai_comment message. The original
// always lands before the comment.
func (p *InterventionProcessor) Comment(msg *models.Message, iv *models.Intervention) {
	if err := p.messages.SaveMessage(msg); err != nil {
		p.logger.Error("Failed to persist message before comment", zap.String("room_id", msg.RoomID), zap.Error(err))
	}
	p.hub.Broadcast(msg.RoomID, EventNewMessage, msg)

	comment := &models.Message{
		ID:        uuid.NewString(),
		RoomID:    msg.RoomID,
		Username:  "mediator",
		Text:      iv.Comment,
		Type:      models.MessageTypeAIComment,
		ThreadID:  msg.ThreadID,
		Timestamp: time.Now(),
	}
	if err := p.messages.SaveMessage(comment); err != nil {
		p.logger.Error("Failed to persist AI comment", zap.String("room_id", msg.RoomID), zap.Error(err))
	}
	p.hub.Broadcast(msg.RoomID, EventNewMessage, comment)
}
