package repository

import (
	"mediator/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type SubscriptionRepository interface {
	SaveSubscription(sub *models.PushSubscription) error
	DeactivateSubscription(endpoint string) error
	GetActiveByUser(userID int64) ([]models.PushSubscription, error)
	GetByUser(userID int64) ([]models.PushSubscription, error)
	TouchLastUsed(endpoint string) error
}

type subscriptionRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewSubscriptionRepository(db *sqlx.DB, logger *zap.Logger) SubscriptionRepository {
	return &subscriptionRepository{db: db, logger: logger}
}

// SaveSubscription upserts by endpoint: a re-subscribe from the same browser
// reactivates and reassigns the existing row.
func (r *subscriptionRepository) SaveSubscription(sub *models.PushSubscription) error {
	query := `INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth, user_agent, is_active, last_used_at)
	          VALUES ($1, $2, $3, $4, $5, TRUE, NOW())
	          ON CONFLICT (endpoint) DO UPDATE
	          SET user_id = EXCLUDED.user_id, p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth,
	              user_agent = EXCLUDED.user_agent, is_active = TRUE, last_used_at = NOW()
	          RETURNING id, created_at, is_active`
	return r.db.QueryRowx(query, sub.UserID, sub.Endpoint, sub.P256dh, sub.Auth, sub.UserAgent).
		Scan(&sub.ID, &sub.CreatedAt, &sub.IsActive)
}

func (r *subscriptionRepository) DeactivateSubscription(endpoint string) error {
	query := `UPDATE push_subscriptions SET is_active = FALSE WHERE endpoint = $1`
	_, err := r.db.Exec(query, endpoint)
	return err
}

func (r *subscriptionRepository) GetActiveByUser(userID int64) ([]models.PushSubscription, error) {
	var subs []models.PushSubscription
	query := `SELECT id, user_id, endpoint, p256dh, auth, user_agent, is_active, last_used_at, created_at
	          FROM push_subscriptions WHERE user_id = $1 AND is_active = TRUE`
	if err := r.db.Select(&subs, query, userID); err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *subscriptionRepository) GetByUser(userID int64) ([]models.PushSubscription, error) {
	var subs []models.PushSubscription
	query := `SELECT id, user_id, endpoint, p256dh, auth, user_agent, is_active, last_used_at, created_at
	          FROM push_subscriptions WHERE user_id = $1 ORDER BY created_at DESC`
	if err := r.db.Select(&subs, query, userID); err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *subscriptionRepository) TouchLastUsed(endpoint string) error {
	query := `UPDATE push_subscriptions SET last_used_at = NOW() WHERE endpoint = $1`
	_, err := r.db.Exec(query, endpoint)
	return err
}
