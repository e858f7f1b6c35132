package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"payment-sync-service/models"
	"payment-sync-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Rail webhook signature headers.
const (
	headerTimestamp = "X-Rail-Timestamp"
	headerSignature = "X-Rail-Signature"
)

type WebhookController struct {
	Sync          *services.SyncService
	Logger        *zap.Logger
	WebhookSecret string // empty disables signature verification

	// now is swappable for signature-window tests.
	now func() time.Time
}

func NewWebhookController(sync *services.SyncService, secret string, logger *zap.Logger) *WebhookController {
	return &WebhookController{
		Sync:          sync,
		Logger:        logger,
		WebhookSecret: secret,
		now:           time.Now,
	}
}

// ReceiveWebhook handles rail push notifications. Unknown types and codes
// are logged and acknowledged with 200 so the rail does not retry them
// forever; only a signature failure or an internal fault returns non-2xx.
func (wc *WebhookController) ReceiveWebhook(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			wc.Logger.Error("Webhook handler panicked", zap.Any("panic", r))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error_code":    "OTHER_ERROR",
				"error_message": "internal error handling webhook",
			})
		}
	}()

	body, err := c.GetRawData()
	if err != nil {
		wc.Logger.Warn("Failed to read webhook body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	if wc.WebhookSecret != "" {
		err := verifyWebhookSignature(
			wc.WebhookSecret,
			c.GetHeader(headerTimestamp),
			c.GetHeader(headerSignature),
			body,
			wc.now(),
		)
		if err != nil {
			wc.Logger.Warn("Webhook signature verification failed", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
			return
		}
	}

	var payload models.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		wc.Logger.Warn("Failed to parse webhook body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	wc.Logger.Info("Incoming webhook",
		zap.String("webhook_type", payload.WebhookType),
		zap.String("webhook_code", payload.WebhookCode),
	)

	switch payload.WebhookType {
	case "TRANSFER":
		wc.handleTransferWebhook(payload)
	case "ITEM":
		wc.handleItemWebhook(payload)
	default:
		wc.Logger.Info("Can't handle webhook type", zap.String("webhook_type", payload.WebhookType))
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// handleTransferWebhook routes transfer-product codes. The events-update
// code only tells us that something changed, not which transfer, so it
// kicks off a full event sync in the background; the HTTP response must
// not wait on it.
func (wc *WebhookController) handleTransferWebhook(payload models.WebhookPayload) {
	switch payload.WebhookCode {
	case "TRANSFER_EVENTS_UPDATE":
		wc.Logger.Info("New transfer events available, triggering sync")
		go wc.runBackgroundSync()
	case "RECURRING_NEW_TRANSFER", "RECURRING_TRANSFER_SKIPPED", "RECURRING_CANCELLED":
		// This service does not originate recurring transfers.
		wc.Logger.Warn("Received a recurring-transfer webhook for an app without recurring transfers",
			zap.String("webhook_code", payload.WebhookCode),
		)
	default:
		wc.Logger.Info("Can't handle webhook code", zap.String("webhook_code", payload.WebhookCode))
	}
}

// handleItemWebhook routes item/account-product codes. These are
// informational for this service; acting on them (re-link prompts,
// record cleanup) belongs to the bank-connection flow.
func (wc *WebhookController) handleItemWebhook(payload models.WebhookPayload) {
	switch payload.WebhookCode {
	case "ERROR":
		msg := ""
		if payload.Error != nil {
			msg = payload.Error.ErrorMessage
		}
		wc.Logger.Warn("Item is in an error state, the user probably needs to reconnect their bank",
			zap.String("item_id", payload.ItemID),
			zap.String("error_message", msg),
		)
	case "NEW_ACCOUNTS_AVAILABLE":
		wc.Logger.Info("New accounts available at this institution",
			zap.String("item_id", payload.ItemID),
		)
	case "PENDING_EXPIRATION", "PENDING_DISCONNECT":
		wc.Logger.Warn("Item connection expiring soon, user should reconnect their bank",
			zap.String("item_id", payload.ItemID),
			zap.String("webhook_code", payload.WebhookCode),
		)
	case "USER_PERMISSION_REVOKED":
		wc.Logger.Warn("User revoked access to this item, it should be removed from our records",
			zap.String("item_id", payload.ItemID),
		)
	case "WEBHOOK_UPDATE_ACKNOWLEDGED":
		wc.Logger.Info("Webhook endpoint update acknowledged")
	default:
		wc.Logger.Info("Can't handle webhook code", zap.String("webhook_code", payload.WebhookCode))
	}
}

func (wc *WebhookController) runBackgroundSync() {
	if _, err := wc.Sync.SyncPaymentData(context.Background()); err != nil {
		if errors.Is(err, services.ErrSyncInProgress) {
			// The running pass will pick up the new events.
			wc.Logger.Info("Sync already in progress, webhook trigger ignored")
			return
		}
		wc.Logger.Error("Webhook-triggered sync failed", zap.Error(err))
	}
}
