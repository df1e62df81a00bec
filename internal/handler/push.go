package handler

import (
	"net/http"

	"mediator/internal/models"
	"mediator/internal/push"
	"mediator/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type PushHandler interface {
	Subscribe(c *gin.Context)
	Unsubscribe(c *gin.Context)
	VAPIDKey(c *gin.Context)
	Status(c *gin.Context)
	Test(c *gin.Context)
}

type pushHandler struct {
	subs    repository.SubscriptionRepository
	service *push.Service
	log     *logrus.Logger
}

func NewPushHandler(subs repository.SubscriptionRepository, service *push.Service, log *logrus.Logger) PushHandler {
	return &pushHandler{subs: subs, service: service, log: log}
}

type SubscribeRequest struct {
	Subscription struct {
		Endpoint string `json:"endpoint" binding:"required"`
		Keys     struct {
			P256dh string `json:"p256dh" binding:"required"`
			Auth   string `json:"auth" binding:"required"`
		} `json:"keys" binding:"required"`
	} `json:"subscription" binding:"required"`
	UserAgent string `json:"userAgent"`
}

type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

func (h *pushHandler) Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Subscription must include endpoint and keys"})
		return
	}

	sub := &models.PushSubscription{
		UserID:   c.MustGet("user_id").(int64),
		Endpoint: req.Subscription.Endpoint,
		P256dh:   req.Subscription.Keys.P256dh,
		Auth:     req.Subscription.Keys.Auth,
	}
	ua := req.UserAgent
	if ua == "" {
		ua = c.GetHeader("User-Agent")
	}
	if ua != "" {
		sub.UserAgent = &ua
	}

	if err := h.subs.SaveSubscription(sub); err != nil {
		h.log.Errorf("Failed to save push subscription: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "subscription": sub})
}

func (h *pushHandler) Unsubscribe(c *gin.Context) {
	var req UnsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Endpoint is required"})
		return
	}

	if err := h.subs.DeactivateSubscription(req.Endpoint); err != nil {
		h.log.Errorf("Failed to deactivate push subscription: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unsubscribe"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *pushHandler) VAPIDKey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"publicKey": h.service.PublicKey()})
}

// Status lists the caller's subscriptions with endpoints redacted; full push
// endpoints are capability URLs and never leave the server.
func (h *pushHandler) Status(c *gin.Context) {
	userID := c.MustGet("user_id").(int64)

	subs, err := h.subs.GetByUser(userID)
	if err != nil {
		h.log.Errorf("Failed to load push subscriptions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscriptions"})
		return
	}

	type subStatus struct {
		ID       int64  `json:"id"`
		Endpoint string `json:"endpoint"`
		Active   bool   `json:"active"`
		LastUsed string `json:"lastUsedAt,omitempty"`
	}
	out := make([]subStatus, 0, len(subs))
	for _, s := range subs {
		status := subStatus{ID: s.ID, Endpoint: redactEndpoint(s.Endpoint), Active: s.IsActive}
		if s.LastUsedAt != nil {
			status.LastUsed = s.LastUsedAt.Format("2006-01-02T15:04:05Z07:00")
		}
		out = append(out, status)
	}

	c.JSON(http.StatusOK, gin.H{"count": len(out), "subscriptions": out})
}

// Test sends a notification to the caller's own devices.
func (h *pushHandler) Test(c *gin.Context) {
	userID := c.MustGet("user_id").(int64)

	result := h.service.SendToUser(c.Request.Context(), userID, &models.NotificationPayload{
		Title: "Test notification",
		Body:  "Push notifications are working.",
		Tag:   "test",
	})

	c.JSON(http.StatusOK, gin.H{"sent": result.Sent, "failed": result.Failed})
}

func redactEndpoint(endpoint string) string {
	const visible = 40
	if len(endpoint) <= visible {
		return endpoint
	}
	return endpoint[:visible] + "..."
}
