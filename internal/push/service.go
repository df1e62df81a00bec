package push

import (
	"context"
	"encoding/json"
	"net/http"

	"mediator/internal/models"
	"mediator/internal/repository"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
)

// bodyLimit caps notification body length; push payloads are previews, not
// transcripts.
const bodyLimit = 100

// Result summarizes one fan-out.
type Result struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Config carries the VAPID identity used to sign push requests.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
	TTL             int
}

// Service delivers web push notifications to stored subscriptions. A
// subscription that the push service reports gone (404/410) is deactivated;
// other failures are transient and leave it active.
type Service struct {
	subs   repository.SubscriptionRepository
	cfg    Config
	logger *zap.Logger

	// send performs one push request. Tests replace it.
	send func(ctx context.Context, payload []byte, sub *models.PushSubscription) (int, error)
}

func NewService(subs repository.SubscriptionRepository, cfg Config, logger *zap.Logger) *Service {
	if cfg.TTL == 0 {
		cfg.TTL = 60 * 60 * 24
	}
	s := &Service{subs: subs, cfg: cfg, logger: logger}
	s.send = s.sendWebPush
	return s
}

// PublicKey exposes the VAPID public key for client subscription.
func (s *Service) PublicKey() string {
	return s.cfg.VAPIDPublicKey
}

// SendToUser delivers one payload to every active subscription of a user.
func (s *Service) SendToUser(ctx context.Context, userID int64, payload *models.NotificationPayload) Result {
	subs, err := s.subs.GetActiveByUser(userID)
	if err != nil {
		s.logger.Warn("Push skipped: subscriptions unavailable", zap.Int64("user_id", userID), zap.Error(err))
		return Result{}
	}
	if len(subs) == 0 {
		return Result{}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("Failed to encode push payload", zap.Error(err))
		return Result{Failed: len(subs)}
	}

	var result Result
	for i := range subs {
		sub := &subs[i]
		status, err := s.send(ctx, body, sub)
		if err == nil && status < http.StatusBadRequest {
			result.Sent++
			if err := s.subs.TouchLastUsed(sub.Endpoint); err != nil {
				s.logger.Warn("Failed to touch subscription", zap.Error(err))
			}
			continue
		}

		result.Failed++
		if status == http.StatusNotFound || status == http.StatusGone {
			s.logger.Info("Deactivating expired push subscription",
				zap.Int64("user_id", userID),
				zap.Int("status", status))
			if err := s.subs.DeactivateSubscription(sub.Endpoint); err != nil {
				s.logger.Warn("Failed to deactivate subscription", zap.Error(err))
			}
			continue
		}
		s.logger.Warn("Push delivery failed",
			zap.Int64("user_id", userID),
			zap.Int("status", status),
			zap.Error(err))
	}
	return result
}

// NotifyNewMessage fans a delivered chat message out to the given recipients.
func (s *Service) NotifyNewMessage(ctx context.Context, msg *models.Message, recipients []models.RoomMember) {
	if len(recipients) == 0 {
		return
	}

	sender := msg.DisplayName
	if sender == "" {
		sender = msg.Username
	}
	payload := &models.NotificationPayload{
		Title: "New message from " + sender,
		Body:  truncate(msg.Text, bodyLimit),
		Icon:  "/icons/icon-192.png",
		Tag:   "room-" + msg.RoomID,
		Data: models.NotificationData{
			MessageID:  msg.ID,
			SenderName: sender,
			URL:        "/chat/" + msg.RoomID,
		},
	}

	for _, r := range recipients {
		result := s.SendToUser(ctx, r.UserID, payload)
		if result.Sent > 0 || result.Failed > 0 {
			s.logger.Debug("Push fan-out",
				zap.Int64("user_id", r.UserID),
				zap.Int("sent", result.Sent),
				zap.Int("failed", result.Failed))
		}
	}
}

func (s *Service) sendWebPush(ctx context.Context, payload []byte, sub *models.PushSubscription) (int, error) {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      s.cfg.Subscriber,
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		TTL:             s.cfg.TTL,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
