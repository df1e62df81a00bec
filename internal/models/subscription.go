package models

import "time"

// PushSubscription represents a row of the 'push_subscriptions' table.
// Subscriptions are soft-deleted: IsActive flips to false on unsubscribe or
// on a permanent delivery failure, the row is never removed.
type PushSubscription struct {
	ID         int64      `db:"id" json:"id"`
	UserID     int64      `db:"user_id" json:"user_id"`
	Endpoint   string     `db:"endpoint" json:"endpoint"`
	P256dh     string     `db:"p256dh" json:"-"`
	Auth       string     `db:"auth" json:"-"`
	UserAgent  *string    `db:"user_agent" json:"user_agent,omitempty"`
	IsActive   bool       `db:"is_active" json:"is_active"`
	LastUsedAt *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// NotificationPayload is the JSON body handed to the push provider.
type NotificationPayload struct {
	Title string           `json:"title"`
	Body  string           `json:"body"`
	Icon  string           `json:"icon,omitempty"`
	Tag   string           `json:"tag,omitempty"`
	Data  NotificationData `json:"data"`
}

// NotificationData is the client-side routing payload of a notification.
type NotificationData struct {
	MessageID  string `json:"messageId"`
	SenderName string `json:"senderName"`
	URL        string `json:"url"`
}
