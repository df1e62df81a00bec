package repository

import (
	"database/sql"
	"errors"

	"mediator/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type MessageRepository interface {
	SaveMessage(msg *models.Message) error
	GetRecentMessages(roomID string, limit int) ([]models.Message, error)
	GetThreadContext(threadID string) (*models.ThreadContext, error)
}

type messageRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewMessageRepository(db *sqlx.DB, logger *zap.Logger) MessageRepository {
	return &messageRepository{db: db, logger: logger}
}

func (r *messageRepository) SaveMessage(msg *models.Message) error {
	query := `INSERT INTO messages (id, room_id, username, display_name, text, type, thread_id, timestamp, is_revision, bypassed_mediation, flagged, private)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.Exec(query, msg.ID, msg.RoomID, msg.Username, msg.DisplayName, msg.Text,
		msg.Type, msg.ThreadID, msg.Timestamp, msg.IsRevision, msg.BypassedMediation, msg.Flagged, msg.Private)
	return err
}

// GetRecentMessages returns up to limit messages for the room, newest last.
func (r *messageRepository) GetRecentMessages(roomID string, limit int) ([]models.Message, error) {
	var messages []models.Message
	query := `SELECT id, room_id, username, display_name, text, type, thread_id, timestamp, is_revision, bypassed_mediation, flagged, private
	          FROM messages WHERE room_id = $1 AND private = FALSE ORDER BY timestamp DESC LIMIT $2`
	if err := r.db.Select(&messages, query, roomID, limit); err != nil {
		return nil, err
	}
	// Query is newest-first; callers expect newest last.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *messageRepository) GetThreadContext(threadID string) (*models.ThreadContext, error) {
	var tc models.ThreadContext
	query := `SELECT title, category, depth, parent_id FROM threads WHERE id = $1`
	if err := r.db.Get(&tc, query, threadID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &tc, nil
}
