package mediation

import (
	"context"
	"fmt"
	"strings"

	"mediator/internal/models"
	"mediator/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// recentMessageWindow bounds how much conversation history the analyzer sees.
const recentMessageWindow = 20

// ContextAggregator gathers everything the analyzer needs around a draft.
// Each source is fetched concurrently and degrades independently: a failed
// query is logged and its field stays zero, it never fails the whole gather.
type ContextAggregator struct {
	messages repository.MessageRepository
	rooms    repository.RoomRepository
	contacts repository.ContactRepository
	stats    repository.StatsRepository
	sessions SessionLister
	logger   *zap.Logger
}

func NewContextAggregator(
	messages repository.MessageRepository,
	rooms repository.RoomRepository,
	contacts repository.ContactRepository,
	stats repository.StatsRepository,
	sessions SessionLister,
	logger *zap.Logger,
) *ContextAggregator {
	return &ContextAggregator{
		messages: messages,
		rooms:    rooms,
		contacts: contacts,
		stats:    stats,
		sessions: sessions,
		logger:   logger,
	}
}

// Gather assembles the analysis context for a draft. It always returns a
// usable context; the error group is used for structure, not for aborting.
func (a *ContextAggregator) Gather(ctx context.Context, msg *models.Message, userID int64) *models.AnalysisContext {
	actx := &models.AnalysisContext{}

	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		recent, err := a.messages.GetRecentMessages(msg.RoomID, recentMessageWindow)
		if err != nil {
			a.logger.Warn("Context: recent messages unavailable", zap.String("room_id", msg.RoomID), zap.Error(err))
			return nil
		}
		actx.RecentMessages = recent
		return nil
	})

	g.Go(func() error {
		members, err := a.rooms.GetMembers(msg.RoomID)
		if err != nil {
			a.logger.Warn("Context: room members unavailable", zap.String("room_id", msg.RoomID), zap.Error(err))
			return nil
		}
		names := make([]string, 0, len(members))
		for _, m := range members {
			names = append(names, m.Username)
		}
		actx.Participants = names
		return nil
	})

	g.Go(func() error {
		contacts, err := a.contacts.GetContactsByUser(userID)
		if err != nil {
			a.logger.Warn("Context: contacts unavailable", zap.Int64("user_id", userID), zap.Error(err))
			return nil
		}
		names := make([]string, 0, len(contacts))
		lines := make([]string, 0, len(contacts))
		for _, c := range contacts {
			names = append(names, c.ContactName)
			lines = append(lines, fmt.Sprintf("- %s (%s)", c.ContactName, c.Relationship))
		}
		actx.ExistingContacts = names
		actx.ContactSummary = strings.Join(lines, "\n")
		return nil
	})

	g.Go(func() error {
		tasks, err := a.rooms.GetOpenTasks(msg.RoomID)
		if err != nil {
			a.logger.Warn("Context: tasks unavailable", zap.String("room_id", msg.RoomID), zap.Error(err))
			return nil
		}
		lines := make([]string, 0, len(tasks))
		for _, t := range tasks {
			if t.DueDate != nil {
				lines = append(lines, fmt.Sprintf("- %s (due %s)", t.Title, t.DueDate.Format("2006-01-02")))
			} else {
				lines = append(lines, fmt.Sprintf("- %s", t.Title))
			}
		}
		actx.TaskSummary = strings.Join(lines, "\n")
		return nil
	})

	g.Go(func() error {
		// Coached drafts are never persisted, so the flagged history lives
		// in the per-room counters, not in the messages table.
		stats, err := a.stats.GetStats(userID, msg.RoomID)
		if err != nil {
			a.logger.Warn("Context: flag history unavailable", zap.String("username", msg.Username), zap.Error(err))
			return nil
		}
		if stats != nil && stats.TotalMessages > 0 {
			actx.FlagHistorySummary = fmt.Sprintf("%d of the sender's %d messages in this room needed coaching",
				stats.FlaggedCount, stats.TotalMessages)
		}
		return nil
	})

	if msg.ThreadID != nil {
		threadID := *msg.ThreadID
		g.Go(func() error {
			tc, err := a.messages.GetThreadContext(threadID)
			if err != nil {
				a.logger.Warn("Context: thread unavailable", zap.String("thread_id", threadID), zap.Error(err))
				return nil
			}
			actx.Thread = tc
			return nil
		})
	}

	_ = g.Wait()

	// Room membership may be empty for ad hoc rooms; fall back to whoever is
	// connected right now.
	if len(actx.Participants) == 0 && a.sessions != nil {
		actx.Participants = a.sessions.ActiveUsernames(msg.RoomID)
	}

	actx.Role = a.roles(msg.Username, actx.Participants)
	return actx
}

// roles derives sender/receiver from the participant list. In a two-person
// room the receiver is simply the other participant.
func (a *ContextAggregator) roles(sender string, participants []string) models.RoleContext {
	role := models.RoleContext{SenderID: sender}
	for _, p := range participants {
		if !strings.EqualFold(p, sender) {
			role.ReceiverID = p
			break
		}
	}
	return role
}
