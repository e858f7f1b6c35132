package controllers

import (
	"errors"
	"net/http"

	"payment-sync-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TriggerSync is the operator-facing manual sync, used for testing and
// recovery. Unlike the webhook path it runs synchronously and reports the
// cursor it ended on.
func (wc *WebhookController) TriggerSync(c *gin.Context) {
	lastSyncNum, err := wc.Sync.SyncPaymentData(c.Request.Context())
	if err != nil {
		if errors.Is(err, services.ErrSyncInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "sync already in progress"})
			return
		}
		wc.Logger.Error("Manual sync failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error_code":    "OTHER_ERROR",
			"error_message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"last_sync_num": lastSyncNum,
	})
}
