package mediation

import (
	"context"
	"strings"

	"mediator/internal/models"
	"mediator/internal/repository"

	"go.uber.org/zap"
)

// MentionDetector watches delivered messages for people in the family's care
// network who are not contacts yet, and proposes adding them.
type MentionDetector struct {
	analyzer Analyzer
	contacts repository.ContactRepository
	cache    *SuggestionCache
	logger   *zap.Logger
}

func NewMentionDetector(analyzer Analyzer, contacts repository.ContactRepository, cache *SuggestionCache, logger *zap.Logger) *MentionDetector {
	return &MentionDetector{analyzer: analyzer, contacts: contacts, cache: cache, logger: logger}
}

// Detect runs mention detection for one delivered message and, when a viable
// candidate survives filtering, caches and emits a single suggestion to the
// sender. At most one suggestion per message. Room participants are excluded
// so the people already in the conversation are never proposed as contacts.
func (d *MentionDetector) Detect(ctx context.Context, conn Conn, msg *models.Message, userID int64, participants []string) {
	contacts, err := d.contacts.GetContactsByUser(userID)
	if err != nil {
		d.logger.Warn("Mention detection skipped: contacts unavailable", zap.Int64("user_id", userID), zap.Error(err))
		contacts = nil
	}

	participants = withSender(participants, msg.Username)
	candidates, err := d.analyzer.DetectMentions(ctx, msg.Text, contacts, participants)
	if err != nil {
		d.logger.Warn("Mention detection failed", zap.String("room_id", msg.RoomID), zap.Error(err))
		return
	}

	candidate, ok := d.pick(candidates, contacts, participants)
	if !ok {
		return
	}

	suggestion := models.ContactSuggestion{
		DetectedName:         candidate.Name,
		DetectedRelationship: models.NormalizeRelationship(candidate.Relationship),
		SuggestionText:       candidate.Suggestion,
		MessageContext:       msg.Text,
	}

	// Cache first: the sender can act on the suggestion from a later session
	// even if this one is gone by now.
	d.cache.Put(conn.ID(), suggestion)

	if !conn.Alive() {
		return
	}
	if err := conn.Emit(EventContactSuggestion, suggestion); err != nil {
		d.logger.Warn("Failed to deliver contact suggestion", zap.String("username", msg.Username), zap.Error(err))
	}
}

// withSender guarantees the sender is on the exclusion list even when the
// membership lookup came back empty.
func withSender(participants []string, sender string) []string {
	for _, p := range participants {
		if strings.EqualFold(p, sender) {
			return participants
		}
	}
	return append(append(make([]string, 0, len(participants)+1), participants...), sender)
}

// pick filters candidates down to the single best new person: confident,
// named, and not already known as a contact or participant.
func (d *MentionDetector) pick(candidates []models.MentionCandidate, contacts []models.Contact, participants []string) (models.MentionCandidate, bool) {
	for _, c := range candidates {
		if c.Confidence != "high" && c.Confidence != "medium" {
			continue
		}
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		if d.isKnown(name, contacts, participants) {
			continue
		}
		c.Name = name
		return c, true
	}
	return models.MentionCandidate{}, false
}

// isKnown matches exactly first, then case-insensitively on substrings so
// "Dr. Smith" is recognized as the existing contact "Smith".
func (d *MentionDetector) isKnown(name string, contacts []models.Contact, participants []string) bool {
	for _, c := range contacts {
		if name == c.ContactName {
			return true
		}
	}
	for _, p := range participants {
		if name == p {
			return true
		}
	}

	lower := strings.ToLower(name)
	for _, c := range contacts {
		known := strings.ToLower(c.ContactName)
		if strings.Contains(lower, known) || strings.Contains(known, lower) {
			return true
		}
	}
	for _, p := range participants {
		known := strings.ToLower(p)
		if strings.Contains(lower, known) || strings.Contains(known, lower) {
			return true
		}
	}
	return false
}
