package mediation

import (
	"context"

	"mediator/internal/models"
	"mediator/internal/repository"

	"go.uber.org/zap"
)

// Pusher fans a delivered message out to offline members' push subscriptions.
type Pusher interface {
	NotifyNewMessage(ctx context.Context, msg *models.Message, recipients []models.RoomMember)
}

// ApprovalProcessor carries an approved draft through delivery: counters,
// persistence, broadcast, then detached enrichment (mention suggestions,
// push notifications, information extraction).
type ApprovalProcessor struct {
	messages repository.MessageRepository
	rooms    repository.RoomRepository
	stats    repository.StatsRepository
	hub      Broadcaster
	sessions SessionLister
	pusher   Pusher
	mentions *MentionDetector
	extract  *Extractor
	logger   *zap.Logger

	// spawn runs detached work. Tests replace it to run synchronously.
	spawn func(func())
}

func NewApprovalProcessor(
	messages repository.MessageRepository,
	rooms repository.RoomRepository,
	stats repository.StatsRepository,
	hub Broadcaster,
	sessions SessionLister,
	pusher Pusher,
	mentions *MentionDetector,
	extract *Extractor,
	logger *zap.Logger,
) *ApprovalProcessor {
	return &ApprovalProcessor{
		messages: messages,
		rooms:    rooms,
		stats:    stats,
		hub:      hub,
		sessions: sessions,
		pusher:   pusher,
		mentions: mentions,
		extract:  extract,
		logger:   logger,
		spawn:    func(f func()) { go f() },
	}
}

// Process delivers an approved message. Persistence failures are logged but
// do not block delivery: a message the sender was told would be sent is sent.
func (p *ApprovalProcessor) Process(ctx context.Context, conn Conn, msg *models.Message, userID int64) {
	if err := p.stats.RecordMessage(userID, msg.RoomID, false); err != nil {
		p.logger.Warn("Failed to record message stats", zap.String("room_id", msg.RoomID), zap.Error(err))
	}

	if err := p.messages.SaveMessage(msg); err != nil {
		p.logger.Error("Failed to persist message", zap.String("room_id", msg.RoomID), zap.Error(err))
	}

	p.hub.Broadcast(msg.RoomID, EventNewMessage, msg)

	// Enrichment is best-effort and must not delay the next draft.
	p.spawn(func() { p.enrich(context.WithoutCancel(ctx), conn, msg, userID) })
}

func (p *ApprovalProcessor) enrich(ctx context.Context, conn Conn, msg *models.Message, userID int64) {
	members, err := p.rooms.GetMembers(msg.RoomID)
	if err != nil {
		p.logger.Warn("Enrichment degraded: members unavailable", zap.String("room_id", msg.RoomID), zap.Error(err))
		members = nil
	}

	if p.mentions != nil {
		participants := make([]string, 0, len(members))
		for _, m := range members {
			participants = append(participants, m.Username)
		}
		p.mentions.Detect(ctx, conn, msg, userID, participants)
	}

	if p.pusher != nil && len(members) > 0 {
		p.pusher.NotifyNewMessage(ctx, msg, p.offlineRecipients(msg, members))
	}

	if p.extract != nil {
		p.extract.Run(ctx, conn, msg, userID)
	}
}

// offlineRecipients drops the sender and anyone with an open session; push
// only reaches people who would otherwise miss the message.
func (p *ApprovalProcessor) offlineRecipients(msg *models.Message, members []models.RoomMember) []models.RoomMember {
	online := make(map[string]struct{})
	if p.sessions != nil {
		for _, u := range p.sessions.ActiveUsernames(msg.RoomID) {
			online[u] = struct{}{}
		}
	}

	recipients := make([]models.RoomMember, 0, len(members))
	for _, m := range members {
		if m.Username == msg.Username {
			continue
		}
		if _, ok := online[m.Username]; ok {
			continue
		}
		recipients = append(recipients, m)
	}
	return recipients
}
