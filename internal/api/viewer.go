package api

import (
	"errors"
	"fmt"
	"net/http"

	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type unlockRequest struct {
	Key string `json:"key"`
}

// viewLocked returns the locked state of a view-only purchase
func (h *Handler) viewLocked(c *gin.Context) {
	view, err := h.gate.Describe(c.Request.Context(), c.Param("reference"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"state":         "locked",
		"reference":     view.Reference,
		"product_name":  view.ProductName,
		"delivery_mode": view.DeliveryMode,
		"requires_key":  view.RequiresKey,
	})
}

// viewUnlock checks a submitted access key
func (h *Handler) viewUnlock(c *gin.Context) {
	var req unlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	grant, err := h.gate.Redeem(c.Request.Context(), c.Param("reference"), req.Key)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTooManyAttempts):
			c.JSON(http.StatusTooManyRequests, gin.H{
				"unlocked": false,
				"error":    "Too many attempts, try again later",
			})
		case errors.Is(err, service.ErrDenied):
			c.JSON(http.StatusForbidden, gin.H{
				"unlocked": false,
				"error":    "Invalid access key",
			})
		case errors.Is(err, service.ErrOrderNotFound):
			h.respondError(c, err)
		case errors.Is(err, service.ErrContentUnavailable):
			c.JSON(http.StatusGone, gin.H{
				"unlocked": false,
				"error":    "This content is no longer available",
			})
		default:
			h.respondError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"unlocked": true,
		"viewer":   grant,
	})
}

// viewContent streams the shared file to a holder of a viewer token.
// Content is served inline only; the viewer page blocks save shortcuts.
func (h *Handler) viewContent(c *gin.Context) {
	reference := c.Param("reference")
	content, err := h.gate.OpenViewer(c.Request.Context(), reference, c.Query("token"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidViewerToken):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Viewer session expired, unlock again"})
		case errors.Is(err, service.ErrContentUnavailable):
			c.JSON(http.StatusGone, gin.H{"error": "This content is no longer available"})
		default:
			h.respondError(c, err)
		}
		return
	}

	body, contentType, err := h.blobs.Open(c.Request.Context(), content.FileURL)
	if err != nil {
		h.logger.Error("Failed to open shared file",
			zap.String("reference", reference),
			zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not load content"})
		return
	}
	defer body.Close()

	c.DataFromReader(http.StatusOK, -1, contentType, body, map[string]string{
		"Content-Disposition":    fmt.Sprintf("inline; filename=%q", content.ProductName),
		"Cache-Control":          "no-store",
		"X-Content-Type-Options": "nosniff",
	})
}
