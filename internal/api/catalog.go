package api

import (
	"net/http"
	"strconv"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type productResponse struct {
	ID           string              `json:"id"`
	SellerID     string              `json:"seller_id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Price        decimal.Decimal     `json:"price"`
	Currency     string              `json:"currency"`
	ImageURL     string              `json:"image_url,omitempty"`
	DeliveryMode models.DeliveryMode `json:"delivery_mode"`
	FileURL      string              `json:"file_url,omitempty"`
	DeliveryKey  string              `json:"delivery_key,omitempty"`
	IsActive     bool                `json:"is_active"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// publicProduct never carries the delivery payload; buyers receive it only
// after payment.
func publicProduct(p *models.Product) productResponse {
	return productResponse{
		ID:           p.ID,
		SellerID:     p.SellerID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		Currency:     p.Currency,
		ImageURL:     p.ImageURL,
		DeliveryMode: p.DeliveryMode(),
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// ownerProduct includes the payload for the seller's own dashboard
func ownerProduct(p *models.Product) productResponse {
	resp := publicProduct(p)
	switch d := p.Delivery.(type) {
	case models.DownloadDelivery:
		resp.FileURL = d.FileURL
	case models.ViewOnlyDelivery:
		resp.FileURL = d.FileURL
	case models.KeyAccessDelivery:
		resp.DeliveryKey = d.Secret
	}
	return resp
}

type sellerResponse struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

func publicSeller(p *models.Profile) *sellerResponse {
	if p == nil {
		return nil
	}
	return &sellerResponse{Username: p.Username, FullName: p.FullName}
}

type exploreItemResponse struct {
	Product productResponse `json:"product"`
	Seller  *sellerResponse `json:"seller"`
}

// exploreProducts handles the marketplace listing across all stores
func (h *Handler) exploreProducts(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid limit",
				"details": "limit must be a positive integer",
			})
			return
		}
		limit = n
	}

	items, err := h.catalog.Explore(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	products := make([]exploreItemResponse, 0, len(items))
	for i := range items {
		products = append(products, exploreItemResponse{
			Product: publicProduct(&items[i].Product),
			Seller:  publicSeller(items[i].Seller),
		})
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// getStorefront handles a seller's public store page
func (h *Handler) getStorefront(c *gin.Context) {
	front, err := h.catalog.Storefront(c.Request.Context(), c.Param("username"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	products := make([]productResponse, 0, len(front.Products))
	for i := range front.Products {
		products = append(products, publicProduct(&front.Products[i]))
	}

	resp := gin.H{
		"store":    publicSeller(front.Profile),
		"products": products,
	}
	if front.Profile.Phone != "" {
		resp["whatsapp_url"] = service.WhatsAppLink(front.Profile.Phone, "Hi, I found your store on Vantage.")
	}
	c.JSON(http.StatusOK, resp)
}

// getProduct handles a public product page
func (h *Handler) getProduct(c *gin.Context) {
	product, seller, err := h.catalog.GetPublicProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := gin.H{
		"product": publicProduct(product),
		"seller":  publicSeller(seller),
	}
	if seller != nil && seller.Phone != "" {
		productURL := h.baseURL + "/product/" + product.ID
		resp["whatsapp_url"] = service.WhatsAppLink(seller.Phone, service.BuyMessage(product.Name, productURL))
	}
	c.JSON(http.StatusOK, resp)
}

// listSellerProducts handles the dashboard product list
func (h *Handler) listSellerProducts(c *gin.Context) {
	products, err := h.catalog.ListSellerProducts(c.Request.Context(), identityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for i := range products {
		resp = append(resp, ownerProduct(&products[i]))
	}
	c.JSON(http.StatusOK, gin.H{"products": resp})
}

// createProduct handles product creation
func (h *Handler) createProduct(c *gin.Context) {
	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), identityFrom(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ownerProduct(product))
}

// updateProduct handles product edits
func (h *Handler) updateProduct(c *gin.Context) {
	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	product, err := h.catalog.UpdateProduct(c.Request.Context(), identityFrom(c), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ownerProduct(product))
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// setProductActive handles catalog visibility toggles
func (h *Handler) setProductActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.catalog.SetActive(c.Request.Context(), identityFrom(c), c.Param("id"), *req.Active); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "active": *req.Active})
}

// listSellerOrders handles the dashboard order list
func (h *Handler) listSellerOrders(c *gin.Context) {
	orders, err := h.orders.ListSellerOrders(c.Request.Context(), identityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// sellerSummary handles the dashboard overview
func (h *Handler) sellerSummary(c *gin.Context) {
	summary, err := h.orders.Summary(c.Request.Context(), identityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
