package mediation

import (
	"context"
	"fmt"
	"strings"

	"mediator/internal/models"
	"mediator/internal/repository"

	"go.uber.org/zap"
)

// extractionFieldColumns maps analyzer field names onto contact columns.
// Appointments have no column of their own; they land in the free-text notes.
var extractionFieldColumns = map[string]string{
	"school":              "school",
	"doctor":              "health_doctor",
	"therapist":           "health_therapist",
	"allergies":           "health_allergies",
	"medications":         "health_medications",
	"appointments":        "additional_thoughts",
	"additional_thoughts": "additional_thoughts",
}

// additiveColumns are merged by appending rather than overwriting: a child
// can have several doctors or allergies, and losing one is worse than
// occasionally listing one twice.
var additiveColumns = map[string]struct{}{
	"health_doctor":       {},
	"health_therapist":    {},
	"health_allergies":    {},
	"additional_thoughts": {},
}

// Extractor mines approved messages for contact profile facts and merges
// them into the sender's contacts.
type Extractor struct {
	analyzer Analyzer
	contacts repository.ContactRepository
	logger   *zap.Logger
}

func NewExtractor(analyzer Analyzer, contacts repository.ContactRepository, logger *zap.Logger) *Extractor {
	return &Extractor{analyzer: analyzer, contacts: contacts, logger: logger}
}

// Run extracts facts from one delivered message. When any contact was
// updated, the sender gets a quiet system notice on their session.
func (e *Extractor) Run(ctx context.Context, conn Conn, msg *models.Message, userID int64) {
	contacts, err := e.contacts.GetContactsByUser(userID)
	if err != nil {
		e.logger.Warn("Extraction skipped: contacts unavailable", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	if len(contacts) == 0 {
		return
	}

	result, err := e.analyzer.ExtractInformation(ctx, msg.Text, contacts)
	if err != nil {
		e.logger.Warn("Extraction failed", zap.String("room_id", msg.RoomID), zap.Error(err))
		return
	}
	if result == nil || !result.ShouldUpdate {
		return
	}

	updatedNames := e.apply(result.Extractions, contacts)
	if len(updatedNames) == 0 {
		return
	}

	e.logger.Info("Contact profiles updated from message",
		zap.Int64("user_id", userID),
		zap.Strings("contacts", updatedNames))

	if conn.Alive() {
		notice := fmt.Sprintf("Updated profile notes for %s.", strings.Join(updatedNames, ", "))
		if err := conn.Emit(EventSystemNotice, map[string]string{"text": notice}); err != nil {
			e.logger.Warn("Failed to deliver extraction notice", zap.String("username", msg.Username), zap.Error(err))
		}
	}
}

// apply merges extractions into matching contacts and returns the names of
// contacts that changed.
func (e *Extractor) apply(extractions []models.Extraction, contacts []models.Contact) []string {
	var updated []string

	for i := range contacts {
		contact := &contacts[i]
		updates := make(map[string]string)

		for _, x := range extractions {
			if !matchesContact(x.PersonName, contact.ContactName) {
				continue
			}
			column, ok := extractionFieldColumns[x.Field]
			if !ok {
				continue
			}

			value := strings.TrimSpace(x.Value)
			if value == "" {
				continue
			}
			if x.Field == "appointments" && x.AdditionalContext != "" {
				value = fmt.Sprintf("%s (%s)", value, x.AdditionalContext)
			}

			current := contactColumnValue(contact, column)
			if prev, staged := updates[column]; staged {
				current = prev
			}
			updates[column] = mergeColumn(column, current, value)
		}

		if len(updates) == 0 {
			continue
		}
		if err := e.contacts.UpdateContactFields(contact.ID, updates); err != nil {
			e.logger.Warn("Failed to update contact",
				zap.Int64("contact_id", contact.ID),
				zap.Error(err))
			continue
		}
		updated = append(updated, contact.ContactName)
	}

	return updated
}

// mergeColumn appends to additive columns when the value is not already
// present, and overwrites everything else.
func mergeColumn(column, current, value string) string {
	if _, additive := additiveColumns[column]; !additive {
		return value
	}
	if current == "" {
		return value
	}
	if strings.Contains(strings.ToLower(current), strings.ToLower(value)) {
		return current
	}
	return current + ", " + value
}

// matchesContact matches exactly first, then case-insensitively on
// substrings, mirroring the mention detector's notion of "already known".
func matchesContact(name, contactName string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if name == contactName {
		return true
	}
	a := strings.ToLower(name)
	b := strings.ToLower(contactName)
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func contactColumnValue(c *models.Contact, column string) string {
	switch column {
	case "school":
		return c.School
	case "health_doctor":
		return c.HealthDoctor
	case "health_therapist":
		return c.HealthTherapist
	case "health_allergies":
		return c.HealthAllergies
	case "health_medications":
		return c.HealthMedications
	case "additional_thoughts":
		return c.AdditionalThoughts
	default:
		return ""
	}
}
