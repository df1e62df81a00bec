package repository

import (
	"database/sql"
	"errors"
	"strings"

	"mediator/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type AuthRepository interface {
	CreateUser(user *models.User) error
	GetUserByUsername(username string) (*models.User, error)
}

type authRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewAuthRepository(db *sqlx.DB, logger *zap.Logger) AuthRepository {
	return &authRepository{db: db, logger: logger}
}

func (r *authRepository) CreateUser(user *models.User) error {
	user.Username = strings.ToLower(user.Username)
	query := `INSERT INTO users (username, display_name, password_hash, role)
	          VALUES ($1, $2, $3, $4) RETURNING id`
	return r.db.QueryRowx(query, user.Username, user.DisplayName, user.PasswordHash, user.Role).Scan(&user.ID)
}

func (r *authRepository) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	query := `SELECT id, username, display_name, password_hash, role FROM users WHERE username = $1`
	if err := r.db.Get(&user, query, strings.ToLower(username)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
