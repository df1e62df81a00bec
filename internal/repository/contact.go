package repository

import (
	"fmt"
	"strings"
	"time"

	"mediator/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type ContactRepository interface {
	GetContactsByUser(userID int64) ([]models.Contact, error)
	UpdateContactFields(contactID int64, updates map[string]string) error
}

// contactColumns is the allowlist of columns the information extractor may
// write through UpdateContactFields.
var contactColumns = map[string]struct{}{
	"school":              {},
	"health_doctor":       {},
	"health_therapist":    {},
	"health_allergies":    {},
	"health_medications":  {},
	"additional_thoughts": {},
	"relationship":        {},
}

type contactRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewContactRepository(db *sqlx.DB, logger *zap.Logger) ContactRepository {
	return &contactRepository{db: db, logger: logger}
}

func (r *contactRepository) GetContactsByUser(userID int64) ([]models.Contact, error) {
	var contacts []models.Contact
	query := `SELECT id, user_id, contact_name, relationship, school, health_doctor, health_therapist,
	                 health_allergies, health_medications, additional_thoughts, created_at, updated_at
	          FROM contacts WHERE user_id = $1 ORDER BY created_at DESC`
	if err := r.db.Select(&contacts, query, userID); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *contactRepository) UpdateContactFields(contactID int64, updates map[string]string) error {
	if len(updates) == 0 {
		return nil
	}

	setClauses := make([]string, 0, len(updates)+1)
	args := make([]interface{}, 0, len(updates)+2)
	i := 1
	for col, val := range updates {
		if _, ok := contactColumns[col]; !ok {
			return fmt.Errorf("contact column not updatable: %s", col)
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, i))
		args = append(args, val)
		i++
	}
	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", i))
	args = append(args, time.Now())
	i++
	args = append(args, contactID)

	query := fmt.Sprintf(`UPDATE contacts SET %s WHERE id = $%d`, strings.Join(setClauses, ", "), i)
	result, err := r.db.Exec(query, args...)
	if err != nil {
		r.logger.Error("Failed to update contact", zap.Int64("contact_id", contactID), zap.Error(err))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("contact not found: %d", contactID)
	}
	return nil
}
