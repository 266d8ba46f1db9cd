package api

import (
	"errors"
	"net/http"
	"strings"

	"storefront-service/internal/models"
	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type checkoutCallbackRequest struct {
	Reference string `json:"reference" binding:"required"`
	ProductID string `json:"product_id"`
	Email     string `json:"email"`
}

type checkoutAbortRequest struct {
	Reference string `json:"reference"`
	ProductID string `json:"product_id"`
}

type checkoutResponse struct {
	Status      string          `json:"status"`
	Reference   string          `json:"reference"`
	OrderID     string          `json:"order_id"`
	Duplicate   bool            `json:"duplicate"`
	Receipt     *models.Receipt `json:"receipt"`
	WhatsAppURL string          `json:"whatsapp_url,omitempty"`
}

// checkoutCallback handles the buyer's browser returning from the payment
// popup. The payment is re-verified with the gateway before anything is
// recorded.
func (h *Handler) checkoutCallback(c *gin.Context) {
	var req checkoutCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	verified, err := h.gateway.VerifyTransaction(ctx, req.Reference)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotSettled):
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":   "Payment not completed",
				"details": err.Error(),
			})
		case errors.Is(err, service.ErrInvalidPayment):
			h.respondError(c, err)
		default:
			h.logger.Error("Payment verification failed",
				zap.String("reference", req.Reference),
				zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "Could not verify payment"})
		}
		return
	}

	resolution, err := h.resolver.ResolvePayment(ctx, verified.Confirmation(req.ProductID, req.Email))
	if err != nil {
		if errors.Is(err, service.ErrDeliveryUnrecorded) {
			c.JSON(http.StatusAccepted, gin.H{
				"status":    "paid",
				"reference": req.Reference,
				"message":   "Payment received. Your delivery is being processed and the seller has been notified.",
			})
			return
		}
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.checkoutResult(c, resolution, req.Email))
}

// checkoutResult shapes a resolution for the buyer. A repeated callback only
// reveals delivery artifacts to the buyer the order was recorded for.
func (h *Handler) checkoutResult(c *gin.Context, resolution *service.Resolution, email string) checkoutResponse {
	receipt := *resolution.Receipt
	if resolution.Duplicate && !sameBuyer(resolution.Order.BuyerEmail, email) {
		receipt.Email = ""
		receipt.AccessInfo = models.AccessInfo{Reference: resolution.Order.Reference}
	}

	resp := checkoutResponse{
		Status:    "paid",
		Reference: resolution.Order.Reference,
		OrderID:   resolution.Order.ID,
		Duplicate: resolution.Duplicate,
		Receipt:   &receipt,
	}

	if seller, err := h.catalog.SellerProfile(c.Request.Context(), resolution.Order.SellerID); err == nil && seller.Phone != "" {
		resp.WhatsAppURL = service.WhatsAppLink(seller.Phone, service.OrderMessage(receipt.ProductName, resolution.Order.Reference))
	}
	return resp
}

func sameBuyer(recorded, claimed string) bool {
	claimed = strings.TrimSpace(claimed)
	return claimed != "" && strings.EqualFold(strings.TrimSpace(recorded), claimed)
}

// checkoutAbort records that the buyer closed the payment popup
func (h *Handler) checkoutAbort(c *gin.Context) {
	var req checkoutAbortRequest
	_ = c.ShouldBindJSON(&req)

	h.logger.Info("Checkout abandoned",
		zap.String("reference", req.Reference),
		zap.String("product_id", req.ProductID))

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// paystackWebhook handles server-to-server payment notifications. It returns
// 500 when a captured payment could not be recorded so the gateway retries.
func (h *Handler) paystackWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	event, err := h.gateway.ParseWebhook(c.GetHeader(service.PaystackSignatureHeader), payload)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			h.logger.Warn("Rejected webhook with invalid signature")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid webhook payload",
			"details": err.Error(),
		})
		return
	}

	if !event.IsChargeSuccess() {
		h.logger.Info("Ignoring webhook event", zap.String("event", event.Event))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	resolution, err := h.resolver.ResolvePayment(c.Request.Context(), event.Payment.Confirmation("", ""))
	if err != nil {
		if errors.Is(err, service.ErrDeliveryUnrecorded) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Delivery not recorded"})
			return
		}
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "processed",
		"reference": resolution.Order.Reference,
		"duplicate": resolution.Duplicate,
	})
}
