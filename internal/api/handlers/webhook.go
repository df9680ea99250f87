package handlers

import (
	"errors"
	"net/http"

	"shopcsv/internal/database"

	"github.com/gin-gonic/gin"
)

const topicAppUninstalled = "app/uninstalled"

// Webhook receives Shopify webhooks. Uninstalling the app revokes the stored token.
func (h *StoreHandler) Webhook(c *gin.Context) {
	topic := c.GetHeader("X-Shopify-Topic")
	shopDomain := c.GetHeader("X-Shopify-Shop-Domain")
	signature := c.GetHeader("X-Shopify-Hmac-Sha256")

	if topic == "" || shopDomain == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required headers"})
		return
	}

	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read payload"})
		return
	}

	if !h.oauth.ValidateWebhook(payload, signature) {
		h.logger.Warn("Rejected webhook %s from %s: bad signature", topic, shopDomain)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook signature"})
		return
	}

	switch topic {
	case topicAppUninstalled:
		err = h.revokeStore(shopDomain)
	default:
		h.logger.Debug("Unhandled webhook topic: %s", topic)
		c.JSON(http.StatusOK, gin.H{"message": "Webhook received but not processed"})
		return
	}

	if err != nil {
		h.logger.Error("Failed to process webhook: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process webhook"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Webhook processed successfully"})
}

func (h *StoreHandler) revokeStore(shopDomain string) error {
	store, err := h.db.FindStoreByDomain(shopDomain)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	h.logger.Info("Store uninstalled: %s", shopDomain)
	return h.db.RevokeStore(store.ID)
}
