package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockroom/internal/domain/models"
	"github.com/mamadbah2/stockroom/internal/service/inventory"
	"github.com/mamadbah2/stockroom/internal/service/scan"
)

// InventoryHandler exposes products, categories and activities.
type InventoryHandler struct {
	svc     *inventory.Service
	scanner *scan.Manager
	logger  *zap.Logger
}

// NewInventoryHandler constructs the HTTP handler adapter.
func NewInventoryHandler(svc *inventory.Service, scanner *scan.Manager, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{svc: svc, scanner: scanner, logger: logger}
}

type productRequest struct {
	Name     string          `json:"name" binding:"required"`
	SKU      string          `json:"sku"`
	Cost     decimal.Decimal `json:"cost"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock" binding:"gte=0"`
	Category string          `json:"category"`
	Image    string          `json:"image"`
	Spec     string          `json:"spec"`
}

var errNegativeAmount = errors.New("cost and price must not be negative")

func (r productRequest) product(id string) (models.Product, error) {
	if r.Cost.IsNegative() || r.Price.IsNegative() {
		return models.Product{}, errNegativeAmount
	}
	return models.Product{
		ID:       id,
		Name:     r.Name,
		SKU:      r.SKU,
		Cost:     r.Cost,
		Price:    r.Price,
		Stock:    r.Stock,
		Category: r.Category,
		Image:    r.Image,
		Spec:     r.Spec,
	}, nil
}

type quantityRequest struct {
	Quantity int `json:"quantity" binding:"required,gte=1"`
}

type countRequest struct {
	Observed *int `json:"observed" binding:"required,gte=0"`
}

type categoryRequest struct {
	Name string `json:"name" binding:"required"`
}

// ListProducts returns products filtered by category, query and sort.
func (h *InventoryHandler) ListProducts(c *gin.Context) {
	filter := models.ProductFilter{
		Category: c.Query("category"),
		Query:    c.Query("q"),
		Sort:     models.SortOrder(c.Query("sort")),
	}
	switch filter.Sort {
	case models.SortNone, models.SortAsc, models.SortDesc:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "sort must be asc or desc"})
		return
	}
	c.JSON(http.StatusOK, h.svc.Products(filter))
}

// GetProduct returns one product.
func (h *InventoryHandler) GetProduct(c *gin.Context) {
	p, err := h.svc.Product(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// CreateProduct adds a product.
func (h *InventoryHandler) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	p, err := req.product("")
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}

	res, err := h.svc.SaveProduct(c.Request.Context(), p)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// UpdateProduct replaces the editable fields of a product.
func (h *InventoryHandler) UpdateProduct(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.svc.Product(id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	p, err := req.product(id)
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}

	res, err := h.svc.SaveProduct(c.Request.Context(), p)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteProduct removes a product.
func (h *InventoryHandler) DeleteProduct(c *gin.Context) {
	if err := h.svc.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Outbound ships units of a product.
func (h *InventoryHandler) Outbound(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	res, err := h.svc.Outbound(c.Request.Context(), c.Param("id"), req.Quantity)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Reconcile compares a scanned count with the recorded stock. The scan view
// must be open. Nothing is written.
func (h *InventoryHandler) Reconcile(c *gin.Context) {
	var req countRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	var result models.Reconciliation
	err := h.scanner.Scan(c.Request.Context(), func(context.Context, scan.Stream) error {
		var err error
		result, err = h.svc.Reconcile(c.Param("id"), *req.Observed)
		return err
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CommitCount stores a confirmed count as the product's stock.
func (h *InventoryHandler) CommitCount(c *gin.Context) {
	var req countRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	res, err := h.svc.CommitCount(c.Request.Context(), c.Param("id"), *req.Observed)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// EnterScan acquires the capture device for the scan view.
func (h *InventoryHandler) EnterScan(c *gin.Context) {
	if err := h.scanner.Enter(c.Request.Context()); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scanning": true})
}

// ExitScan releases the capture device.
func (h *InventoryHandler) ExitScan(c *gin.Context) {
	if err := h.scanner.Exit(); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scanning": false})
}

// ListCategories returns categories with product counts.
func (h *InventoryHandler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Categories())
}

// CreateCategory adds a category.
func (h *InventoryHandler) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	created, err := h.svc.AddCategory(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// RenameCategory changes a category's name.
func (h *InventoryHandler) RenameCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	renamed, err := h.svc.RenameCategory(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, renamed)
}

// DeleteCategory removes a category.
func (h *InventoryHandler) DeleteCategory(c *gin.Context) {
	if err := h.svc.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListActivities returns the activity history.
func (h *InventoryHandler) ListActivities(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Activities())
}

// Refresh reloads every collection from the backend.
func (h *InventoryHandler) Refresh(c *gin.Context) {
	if err := h.svc.LoadAll(c.Request.Context()); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
