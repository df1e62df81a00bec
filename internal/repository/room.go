package repository

import (
	"mediator/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type RoomRepository interface {
	GetMembers(roomID string) ([]models.RoomMember, error)
	IsMember(userID int64, roomID string) (bool, error)
	GetOpenTasks(roomID string) ([]models.Task, error)
}

type roomRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewRoomRepository(db *sqlx.DB, logger *zap.Logger) RoomRepository {
	return &roomRepository{db: db, logger: logger}
}

func (r *roomRepository) GetMembers(roomID string) ([]models.RoomMember, error) {
	var members []models.RoomMember
	query := `SELECT rm.user_id, u.username FROM room_members rm
	          JOIN users u ON rm.user_id = u.id
	          WHERE rm.room_id = $1 ORDER BY rm.joined_at`
	if err := r.db.Select(&members, query, roomID); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *roomRepository) IsMember(userID int64, roomID string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM room_members WHERE user_id = $1 AND room_id = $2`
	if err := r.db.Get(&count, query, userID, roomID); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *roomRepository) GetOpenTasks(roomID string) ([]models.Task, error) {
	var tasks []models.Task
	query := `SELECT id, room_id, title, due_date, done FROM tasks
	          WHERE room_id = $1 AND done = FALSE ORDER BY due_date NULLS LAST`
	if err := r.db.Select(&tasks, query, roomID); err != nil {
		return nil, err
	}
	return tasks, nil
}
