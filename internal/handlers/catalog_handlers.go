package handlers

import (
	"net/http"
	"time"

	"packloop/internal/caching"
	"packloop/internal/common"
	"packloop/internal/models"
	"packloop/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
)

const catalogCacheTTL = 10 * time.Minute

// CatalogHandlers serves packaging types. Entries are immutable once
// referenced by instances, so there is no update endpoint.
type CatalogHandlers struct {
	catalogRepo repositories.CatalogRepository
	cacheSvc    caching.CacheService
	clock       clockwork.Clock
}

func NewCatalogHandlers(catalogRepo repositories.CatalogRepository, cacheSvc caching.CacheService, clock clockwork.Clock) *CatalogHandlers {
	return &CatalogHandlers{
		catalogRepo: catalogRepo,
		cacheSvc:    cacheSvc,
		clock:       clock,
	}
}

type CreateCatalogEntryRequest struct {
	SKU                string `json:"sku"`
	Kind               string `json:"kind"`
	Material           string `json:"material"`
	CapacityML         *int   `json:"capacity_ml"`
	DepositAmountCents int64  `json:"deposit_amount_cents"`
}

func (h *CatalogHandlers) CreateEntry(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateCatalogEntryRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.SKU, "sku"); err != nil {
		return common.SendValidationError(c, "sku", "is required")
	}
	if err := common.ValidateRequiredString(req.Material, "material"); err != nil {
		return common.SendValidationError(c, "material", "is required")
	}
	kind := models.PackagingKind(req.Kind)
	if !kind.Valid() {
		return common.SendValidationError(c, "kind", "must be cup, box or jar")
	}
	if req.DepositAmountCents < 0 {
		return common.SendValidationError(c, "deposit_amount_cents", "cannot be negative")
	}
	if req.CapacityML != nil && *req.CapacityML <= 0 {
		return common.SendValidationError(c, "capacity_ml", "must be positive")
	}

	entry := &models.CatalogEntry{
		ID:                 uuid.New(),
		SKU:                req.SKU,
		Kind:               kind,
		Material:           req.Material,
		CapacityML:         req.CapacityML,
		DepositAmountCents: req.DepositAmountCents,
		CreatedAt:          h.clock.Now().UTC(),
	}
	if err := h.catalogRepo.Create(ctx, entry); err != nil {
		return common.SendDomainError(c, err)
	}
	if h.cacheSvc != nil {
		_ = h.cacheSvc.SetCatalogEntry(ctx, entry, catalogCacheTTL)
	}
	return c.JSON(http.StatusCreated, entry)
}

func (h *CatalogHandlers) GetEntry(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "catalog ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	if h.cacheSvc != nil {
		if entry, err := h.cacheSvc.GetCatalogEntry(ctx, id); err == nil && entry != nil {
			return c.JSON(http.StatusOK, entry)
		}
	}

	entry, err := h.catalogRepo.GetByID(ctx, id)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	if h.cacheSvc != nil {
		_ = h.cacheSvc.SetCatalogEntry(ctx, entry, catalogCacheTTL)
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *CatalogHandlers) GetEntryBySKU(c echo.Context) error {
	ctx := c.Request().Context()

	sku := c.Param("sku")
	if sku == "" {
		return common.SendValidationError(c, "sku", "is required")
	}

	entry, err := h.catalogRepo.GetBySKU(ctx, sku)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *CatalogHandlers) ListEntries(c echo.Context) error {
	ctx := c.Request().Context()

	limit, offset := listBounds(c)
	entries, err := h.catalogRepo.List(ctx, limit, offset)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"entries": entries,
		"limit":   limit,
		"offset":  offset,
	})
}
