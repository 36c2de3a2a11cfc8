package handlers

import (
	"net/http"

	"packloop/internal/common"
	"packloop/internal/models"
	"packloop/internal/services"

	"github.com/labstack/echo/v4"
)

// InstanceHandlers serves the physical asset registry and its lifecycle.
type InstanceHandlers struct {
	instanceSvc services.InstanceService
}

func NewInstanceHandlers(instanceSvc services.InstanceService) *InstanceHandlers {
	return &InstanceHandlers{instanceSvc: instanceSvc}
}

type RegisterInstanceRequest struct {
	CatalogID string `json:"catalog_id"`
	UIDCode   string `json:"uid_code"`
}

func (h *InstanceHandlers) RegisterInstance(c echo.Context) error {
	ctx := c.Request().Context()

	var req RegisterInstanceRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	catalogID, err := common.ValidateUUID(req.CatalogID, "catalog_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	instance, err := h.instanceSvc.Register(ctx, catalogID, req.UIDCode)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, instance)
}

func (h *InstanceHandlers) GetInstance(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "instance ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	instance, err := h.instanceSvc.GetByID(ctx, id)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, instance)
}

// GetInstanceByUID resolves the printed QR/RFID code.
func (h *InstanceHandlers) GetInstanceByUID(c echo.Context) error {
	ctx := c.Request().Context()

	uidCode := c.Param("uid")
	if uidCode == "" {
		return common.SendValidationError(c, "uid", "is required")
	}

	instance, err := h.instanceSvc.GetByUIDCode(ctx, uidCode)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, instance)
}

type ListInstancesRequest struct {
	State     string `query:"state"`
	CatalogID string `query:"catalog_id"`
	Limit     int    `query:"limit"`
	Offset    int    `query:"offset"`
}

func (h *InstanceHandlers) ListInstances(c echo.Context) error {
	ctx := c.Request().Context()

	var req ListInstancesRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid query parameters")
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 50
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	filter := &models.InstanceFilter{Limit: req.Limit, Offset: req.Offset}
	if req.State != "" {
		state := models.InstanceState(req.State)
		if !state.Valid() {
			return common.SendValidationError(c, "state", "unknown instance state")
		}
		filter.State = &state
	}
	if req.CatalogID != "" {
		catalogID, err := common.ValidateUUID(req.CatalogID, "catalog_id")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		filter.CatalogID = &catalogID
	}

	instances, err := h.instanceSvc.List(ctx, filter)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"instances": instances,
		"limit":     req.Limit,
		"offset":    req.Offset,
	})
}

type TransitionRequest struct {
	Target string `json:"target"`
	Event  string `json:"event"`
}

// TransitionInstance is the administrative state override. It still runs
// through the lifecycle table; forbidden moves are rejected.
func (h *InstanceHandlers) TransitionInstance(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "instance ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req TransitionRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	target := models.InstanceState(req.Target)
	if !target.Valid() {
		return common.SendValidationError(c, "target", "unknown instance state")
	}
	event := req.Event
	if event == "" {
		event = "admin_transition"
	}

	instance, err := h.instanceSvc.Transition(ctx, id, target, event)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, instance)
}

func (h *InstanceHandlers) MarkDamaged(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "instance ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	instance, err := h.instanceSvc.MarkDamaged(ctx, id, "manual_report")
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, instance)
}

func (h *InstanceHandlers) MarkLost(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "instance ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	instance, err := h.instanceSvc.MarkLost(ctx, id)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, instance)
}

func (h *InstanceHandlers) RetireInstance(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "instance ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	instance, err := h.instanceSvc.Retire(ctx, id)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, instance)
}

// StateCounts reports fleet size per lifecycle state.
func (h *InstanceHandlers) StateCounts(c echo.Context) error {
	ctx := c.Request().Context()

	counts, err := h.instanceSvc.CountByState(ctx)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"counts": counts,
	})
}
