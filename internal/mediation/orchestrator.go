package mediation

import (
	"context"
	"time"

	"mediator/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultAnalysisTimeout bounds one analyzer round trip, context gathering
// included.
const DefaultAnalysisTimeout = 30 * time.Second

// Orchestrator is the entry point of the mediation pipeline. Every draft a
// client submits goes through HandleDraft exactly once.
type Orchestrator struct {
	analyzer      Analyzer
	aggregator    *ContextAggregator
	approval      *ApprovalProcessor
	interventions *InterventionProcessor
	timeout       time.Duration
	logger        *zap.Logger

	// spawn runs the analysis stage. Tests replace it to run synchronously.
	spawn func(func())
}

func NewOrchestrator(
	analyzer Analyzer,
	aggregator *ContextAggregator,
	approval *ApprovalProcessor,
	interventions *InterventionProcessor,
	timeout time.Duration,
	logger *zap.Logger,
) *Orchestrator {
	if timeout <= 0 {
		timeout = DefaultAnalysisTimeout
	}
	return &Orchestrator{
		analyzer:      analyzer,
		aggregator:    aggregator,
		approval:      approval,
		interventions: interventions,
		timeout:       timeout,
		logger:        logger,
		spawn:         func(f func()) { go f() },
	}
}

// HandleDraft routes one submitted draft. Fast paths (bypass, accepted
// rewrites, pleasantries) resolve synchronously; everything else is
// acknowledged immediately and analyzed in the background.
func (o *Orchestrator) HandleDraft(ctx context.Context, conn Conn, roomID string, draft Draft) {
	msg := &models.Message{
		ID:          uuid.NewString(),
		RoomID:      roomID,
		Username:    conn.Username(),
		DisplayName: conn.DisplayName(),
		Text:        draft.Text,
		Type:        models.MessageTypeUser,
		ThreadID:    draft.ThreadID,
		Timestamp:   time.Now(),
	}
	userID := conn.UserID()

	if draft.BypassMediation {
		// The bypass exists for urgent logistics, not for skipping coaching
		// on an attack. Direct hostility closes it.
		if IsDirectlyHostile(draft.Text) {
			o.logger.Info("Bypass blocked: direct hostility",
				zap.String("room_id", roomID),
				zap.String("username", msg.Username))
			o.emitError(conn, CodeBypassBlockedDirectHostility,
				"This message can't skip mediation. Please revise it or send it normally.")
			return
		}
		msg.BypassedMediation = true
		o.approval.Process(ctx, conn, msg, userID)
		return
	}

	if draft.IsPreApprovedRewrite && IsAcceptedRewrite(draft.Text, draft.OriginalRewrite) {
		msg.IsRevision = true
		o.approval.Process(ctx, conn, msg, userID)
		return
	}

	if o.analyzer == nil || IsGreetingOrPolite(draft.Text) {
		o.approval.Process(ctx, conn, msg, userID)
		return
	}

	if err := conn.Emit(EventDraftCoaching, CoachingPayload{Analyzing: true, OriginalText: msg.Text}); err != nil {
		o.logger.Warn("Failed to acknowledge draft", zap.String("username", msg.Username), zap.Error(err))
	}

	// Analysis outlives the request; only the timeout cancels it.
	detached := context.WithoutCancel(ctx)
	o.spawn(func() { o.analyze(detached, conn, msg, userID) })
}

func (o *Orchestrator) analyze(ctx context.Context, conn Conn, msg *models.Message, userID int64) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	actx := o.aggregator.Gather(ctx, msg, userID)

	iv, err := o.analyzer.Analyze(ctx, msg, actx)
	if err != nil {
		// Fail open: an unreachable analyzer must not silence the room.
		o.logger.Warn("Analysis failed, delivering without mediation",
			zap.String("room_id", msg.RoomID),
			zap.String("username", msg.Username),
			zap.Error(err))
		o.resolveCoaching(conn, msg)
		o.approval.Process(ctx, conn, msg, userID)
		return
	}

	if iv == nil {
		o.resolveCoaching(conn, msg)
		o.approval.Process(ctx, conn, msg, userID)
		return
	}

	switch iv.Type {
	case models.InterventionTypeCoaching:
		o.interventions.Coach(conn, msg, iv, userID)
	case models.InterventionTypeComment:
		if !o.interventions.CommentAllowed(msg.RoomID) {
			o.resolveCoaching(conn, msg)
			o.approval.Process(ctx, conn, msg, userID)
			return
		}
		o.resolveCoaching(conn, msg)
		o.interventions.Comment(msg, iv)
	default:
		o.resolveCoaching(conn, msg)
		o.approval.Process(ctx, conn, msg, userID)
	}
}

// resolveCoaching clears the analyzing indicator once an analyzed draft is
// cleared for delivery. Coached drafts resolve through Coach instead.
func (o *Orchestrator) resolveCoaching(conn Conn, msg *models.Message) {
	if !conn.Alive() {
		return
	}
	payload := CoachingPayload{Analyzing: false, ShouldSend: true, OriginalText: msg.Text}
	if err := conn.Emit(EventDraftCoaching, payload); err != nil {
		o.logger.Warn("Failed to resolve draft acknowledgment",
			zap.String("username", msg.Username), zap.Error(err))
	}
}

func (o *Orchestrator) emitError(conn Conn, code, text string) {
	if !conn.Alive() {
		return
	}
	if err := conn.Emit(EventError, ErrorEvent{Code: code, Message: text}); err != nil {
		o.logger.Warn("Failed to deliver error event", zap.Error(err))
	}
}
