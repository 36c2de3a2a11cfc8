package handlers

import (
	"net/http"
	"time"

	"packloop/internal/common"
	"packloop/internal/models"
	"packloop/internal/services"

	"github.com/labstack/echo/v4"
)

// AuditLogsHandlers serves the read side of the event log.
type AuditLogsHandlers struct {
	auditSvc services.AuditLogsService
}

func NewAuditLogsHandlers(auditSvc services.AuditLogsService) *AuditLogsHandlers {
	return &AuditLogsHandlers{auditSvc: auditSvc}
}

func (h *AuditLogsHandlers) GetAuditLog(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "audit log ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	entry, err := h.auditSvc.GetAuditLog(ctx, id)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

type ListAuditLogsRequest struct {
	EntityType string `query:"entity_type"`
	EntityID   string `query:"entity_id"`
	EventType  string `query:"event_type"`
	StartDate  string `query:"start_date"`
	EndDate    string `query:"end_date"`
	Limit      int    `query:"limit"`
	Offset     int    `query:"offset"`
}

func (h *AuditLogsHandlers) ListAuditLogs(c echo.Context) error {
	ctx := c.Request().Context()

	var req ListAuditLogsRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid query parameters")
	}

	filters := &models.AuditLogFilters{Limit: req.Limit, Offset: req.Offset}
	if req.EntityType != "" {
		filters.EntityType = &req.EntityType
	}
	if req.EntityID != "" {
		filters.EntityID = &req.EntityID
	}
	if req.EventType != "" {
		filters.EventType = &req.EventType
	}
	if req.StartDate != "" {
		start, err := time.Parse(time.RFC3339, req.StartDate)
		if err != nil {
			return common.SendValidationError(c, "start_date", "must be RFC 3339")
		}
		filters.StartDate = &start
	}
	if req.EndDate != "" {
		end, err := time.Parse(time.RFC3339, req.EndDate)
		if err != nil {
			return common.SendValidationError(c, "end_date", "must be RFC 3339")
		}
		filters.EndDate = &end
	}

	logs, err := h.auditSvc.ListAuditLogs(ctx, filters)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"audit_logs": logs,
		"count":      len(logs),
	})
}

// GetEntityHistory returns the event trail for one entity, newest first.
func (h *AuditLogsHandlers) GetEntityHistory(c echo.Context) error {
	ctx := c.Request().Context()

	entityType := c.Param("entity_type")
	entityID := c.Param("entity_id")
	if entityType == "" || entityID == "" {
		return common.SendClientError(c, "entity_type and entity_id are required")
	}

	limit, offset := listBounds(c)
	logs, err := h.auditSvc.GetEntityHistory(ctx, entityType, entityID, limit, offset)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"entity_type": entityType,
		"entity_id":   entityID,
		"events":      logs,
	})
}
