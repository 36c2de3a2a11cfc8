package handlers

import (
	"net/http"

	"packloop/internal/common"
	"packloop/internal/models"
	"packloop/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
)

// LocationHandlers serves the site registry: locations plus the retailer and
// hub records that wrap them.
type LocationHandlers struct {
	locationRepo repositories.LocationRepository
	retailerRepo repositories.RetailerRepository
	hubRepo      repositories.HubRepository
	clock        clockwork.Clock
}

func NewLocationHandlers(locationRepo repositories.LocationRepository, retailerRepo repositories.RetailerRepository, hubRepo repositories.HubRepository, clock clockwork.Clock) *LocationHandlers {
	return &LocationHandlers{
		locationRepo: locationRepo,
		retailerRepo: retailerRepo,
		hubRepo:      hubRepo,
		clock:        clock,
	}
}

type CreateLocationRequest struct {
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	Address   *string  `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (h *LocationHandlers) CreateLocation(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateLocationRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.Name, "name"); err != nil {
		return common.SendValidationError(c, "name", "is required")
	}
	kind := models.LocationKind(req.Kind)
	if !kind.Valid() {
		return common.SendValidationError(c, "kind", "must be retailer, hub or dropbox")
	}

	location := &models.Location{
		ID:        uuid.New(),
		Name:      req.Name,
		Kind:      kind,
		Address:   req.Address,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		CreatedAt: h.clock.Now().UTC(),
	}
	if err := h.locationRepo.Create(ctx, location); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, location)
}

func (h *LocationHandlers) GetLocation(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "location ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	location, err := h.locationRepo.GetByID(ctx, id)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, location)
}

type ListLocationsRequest struct {
	Kind   string `query:"kind"`
	Limit  int    `query:"limit"`
	Offset int    `query:"offset"`
}

func (h *LocationHandlers) ListLocations(c echo.Context) error {
	ctx := c.Request().Context()

	var req ListLocationsRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid query parameters")
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 50
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	var kind *models.LocationKind
	if req.Kind != "" {
		k := models.LocationKind(req.Kind)
		if !k.Valid() {
			return common.SendValidationError(c, "kind", "must be retailer, hub or dropbox")
		}
		kind = &k
	}

	locations, err := h.locationRepo.List(ctx, kind, req.Limit, req.Offset)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"locations": locations,
		"limit":     req.Limit,
		"offset":    req.Offset,
	})
}

type UpdateLocationRequest struct {
	Name      *string  `json:"name"`
	Address   *string  `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (h *LocationHandlers) UpdateLocation(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "location ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req UpdateLocationRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	location, err := h.locationRepo.GetByID(ctx, id)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	if req.Name != nil {
		location.Name = *req.Name
	}
	if req.Address != nil {
		location.Address = req.Address
	}
	if req.Latitude != nil {
		location.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		location.Longitude = req.Longitude
	}

	if err := h.locationRepo.Update(ctx, location); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, location)
}

type CreateRetailerRequest struct {
	LocationID string  `json:"location_id"`
	Name       string  `json:"name"`
	Contact    *string `json:"contact"`
}

func (h *LocationHandlers) CreateRetailer(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateRetailerRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.Name, "name"); err != nil {
		return common.SendValidationError(c, "name", "is required")
	}
	locationID, err := common.ValidateUUID(req.LocationID, "location_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	location, err := h.locationRepo.GetByID(ctx, locationID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	if location.Kind != models.LocationRetailer {
		return common.SendValidationError(c, "location_id", "must reference a retailer-kind location")
	}

	retailer := &models.Retailer{
		ID:         uuid.New(),
		LocationID: locationID,
		Name:       req.Name,
		Contact:    req.Contact,
		CreatedAt:  h.clock.Now().UTC(),
	}
	if err := h.retailerRepo.Create(ctx, retailer); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, retailer)
}

func (h *LocationHandlers) GetRetailer(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "retailer ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	retailer, err := h.retailerRepo.GetByID(ctx, id)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, retailer)
}

func (h *LocationHandlers) ListRetailers(c echo.Context) error {
	ctx := c.Request().Context()

	limit, offset := listBounds(c)
	retailers, err := h.retailerRepo.List(ctx, limit, offset)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"retailers": retailers,
		"limit":     limit,
		"offset":    offset,
	})
}

type CreateHubRequest struct {
	LocationID string `json:"location_id"`
	Name       string `json:"name"`
	Capacity   *int   `json:"capacity"`
}

func (h *LocationHandlers) CreateHub(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateHubRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.Name, "name"); err != nil {
		return common.SendValidationError(c, "name", "is required")
	}
	locationID, err := common.ValidateUUID(req.LocationID, "location_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	if req.Capacity != nil && *req.Capacity <= 0 {
		return common.SendValidationError(c, "capacity", "must be positive")
	}

	location, err := h.locationRepo.GetByID(ctx, locationID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	if location.Kind != models.LocationHub {
		return common.SendValidationError(c, "location_id", "must reference a hub-kind location")
	}

	hub := &models.Hub{
		ID:         uuid.New(),
		LocationID: locationID,
		Name:       req.Name,
		Capacity:   req.Capacity,
		CreatedAt:  h.clock.Now().UTC(),
	}
	if err := h.hubRepo.Create(ctx, hub); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, hub)
}

func (h *LocationHandlers) GetHub(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "hub ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	hub, err := h.hubRepo.GetByID(ctx, id)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, hub)
}

func (h *LocationHandlers) ListHubs(c echo.Context) error {
	ctx := c.Request().Context()

	limit, offset := listBounds(c)
	hubs, err := h.hubRepo.List(ctx, limit, offset)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"hubs":   hubs,
		"limit":  limit,
		"offset": offset,
	})
}
