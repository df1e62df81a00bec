package repository

import (
	"database/sql"
	"errors"

	"mediator/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type StatsRepository interface {
	RecordMessage(userID int64, roomID string, flagged bool) error
	GetStats(userID int64, roomID string) (*models.CommunicationStats, error)
}

// statsRepository keeps best-effort flagged/total counters. Read-then-write
// without cross-request locking is acceptable here: the counters feed
// analyzer context, they are not a ledger.
type statsRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewStatsRepository(db *sqlx.DB, logger *zap.Logger) StatsRepository {
	return &statsRepository{db: db, logger: logger}
}

func (r *statsRepository) RecordMessage(userID int64, roomID string, flagged bool) error {
	flaggedInc := 0
	if flagged {
		flaggedInc = 1
	}
	query := `INSERT INTO communication_stats (user_id, room_id, total_messages, flagged_count, updated_at)
	          VALUES ($1, $2, 1, $3, NOW())
	          ON CONFLICT (user_id, room_id) DO UPDATE
	          SET total_messages = communication_stats.total_messages + 1,
	              flagged_count = communication_stats.flagged_count + $3,
	              updated_at = NOW()`
	_, err := r.db.Exec(query, userID, roomID, flaggedInc)
	return err
}

func (r *statsRepository) GetStats(userID int64, roomID string) (*models.CommunicationStats, error) {
	var stats models.CommunicationStats
	query := `SELECT user_id, room_id, total_messages, flagged_count, updated_at
	          FROM communication_stats WHERE user_id = $1 AND room_id = $2`
	if err := r.db.Get(&stats, query, userID, roomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &stats, nil
}
