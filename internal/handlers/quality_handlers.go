package handlers

import (
	"net/http"
	"time"

	"packloop/internal/common"
	"packloop/internal/models"
	"packloop/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const photoURLExpiry = 15 * time.Minute

// QualityHandlers serves wash cycles, inspections and contamination
// incidents, plus inspection photo upload and retrieval.
type QualityHandlers struct {
	qualitySvc services.QualityService
	mediaSvc   services.MediaService
}

func NewQualityHandlers(qualitySvc services.QualityService, mediaSvc services.MediaService) *QualityHandlers {
	return &QualityHandlers{
		qualitySvc: qualitySvc,
		mediaSvc:   mediaSvc,
	}
}

type StartCycleRequest struct {
	HubID        string   `json:"hub_id"`
	BatchCode    string   `json:"batch_code"`
	TemperatureC *float64 `json:"temperature_c"`
	Detergent    *string  `json:"detergent"`
	InstanceIDs  []string `json:"instance_ids"`
}

func (h *QualityHandlers) StartCycle(c echo.Context) error {
	ctx := c.Request().Context()

	var req StartCycleRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	hubID, err := common.ValidateUUID(req.HubID, "hub_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	instanceIDs := make([]uuid.UUID, 0, len(req.InstanceIDs))
	for _, raw := range req.InstanceIDs {
		id, err := common.ValidateUUID(raw, "instance_ids")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		instanceIDs = append(instanceIDs, id)
	}

	cycle, skipped, err := h.qualitySvc.StartCycle(ctx, hubID, req.BatchCode, req.TemperatureC, req.Detergent, instanceIDs)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	skippedMsgs := make([]string, 0, len(skipped))
	for _, skipErr := range skipped {
		skippedMsgs = append(skippedMsgs, skipErr.Error())
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"cycle":   cycle,
		"skipped": skippedMsgs,
	})
}

func (h *QualityHandlers) CompleteCycle(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "cycle ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	cycle, err := h.qualitySvc.CompleteCycle(ctx, id)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, cycle)
}

func (h *QualityHandlers) GetCycle(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "cycle ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	cycle, err := h.qualitySvc.GetCycle(ctx, id)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	members, err := h.qualitySvc.ListCycleInstances(ctx, id)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"cycle":        cycle,
		"instance_ids": members,
	})
}

func (h *QualityHandlers) ListHubCycles(c echo.Context) error {
	ctx := c.Request().Context()

	hubID, err := common.ValidateUUID(c.Param("id"), "hub ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	limit, offset := listBounds(c)
	cycles, err := h.qualitySvc.ListCyclesByHub(ctx, hubID, limit, offset)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"cycles": cycles,
		"limit":  limit,
		"offset": offset,
	})
}

type RecordInspectionRequest struct {
	InstanceID string  `json:"instance_id"`
	CycleID    *string `json:"cycle_id"`
	Inspector  string  `json:"inspector"`
	Result     string  `json:"result"`
	Notes      *string `json:"notes"`
}

func (h *QualityHandlers) RecordInspection(c echo.Context) error {
	ctx := c.Request().Context()

	var req RecordInspectionRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	instanceID, err := common.ValidateUUID(req.InstanceID, "instance_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	var cycleID *uuid.UUID
	if req.CycleID != nil {
		id, err := common.ValidateUUID(*req.CycleID, "cycle_id")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		cycleID = &id
	}

	inspection, err := h.qualitySvc.RecordInspection(ctx, instanceID, cycleID, req.Inspector, models.InspectionResult(req.Result), req.Notes)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, inspection)
}

func (h *QualityHandlers) GetInspection(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "inspection ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	inspection, err := h.qualitySvc.GetInspection(ctx, id)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, inspection)
}

func (h *QualityHandlers) ListInstanceInspections(c echo.Context) error {
	ctx := c.Request().Context()

	instanceID, err := common.ValidateUUID(c.Param("id"), "instance ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	limit, offset := listBounds(c)
	inspections, err := h.qualitySvc.ListInspectionsByInstance(ctx, instanceID, limit, offset)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"inspections": inspections,
		"limit":       limit,
		"offset":      offset,
	})
}

// UploadInspectionPhoto stores a multipart photo and records its object key
// on the inspection.
func (h *QualityHandlers) UploadInspectionPhoto(c echo.Context) error {
	ctx := c.Request().Context()

	if h.mediaSvc == nil {
		return common.SendServerError(c, "object storage not configured")
	}

	inspectionID, err := common.ValidateUUID(c.Param("id"), "inspection ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	if _, err := h.qualitySvc.GetInspection(ctx, inspectionID); err != nil {
		return common.SendDomainError(c, err)
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		return common.SendClientError(c, "photo file is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return common.SendServerError(c, "failed to read upload")
	}
	defer file.Close()

	objectKey, err := h.mediaSvc.UploadInspectionPhoto(ctx, inspectionID, file, fileHeader.Size, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		return common.SendServerError(c, "failed to store photo")
	}
	if err := h.qualitySvc.AttachInspectionPhoto(ctx, inspectionID, objectKey); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{
		"photo_key": objectKey,
	})
}

// GetInspectionPhotoURL returns a short-lived presigned URL for the photo.
func (h *QualityHandlers) GetInspectionPhotoURL(c echo.Context) error {
	ctx := c.Request().Context()

	if h.mediaSvc == nil {
		return common.SendServerError(c, "object storage not configured")
	}

	inspectionID, err := common.ValidateUUID(c.Param("id"), "inspection ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	inspection, err := h.qualitySvc.GetInspection(ctx, inspectionID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	if inspection.PhotoKey == nil {
		return common.SendNotFoundError(c, "inspection photo")
	}

	url, err := h.mediaSvc.PhotoURL(ctx, *inspection.PhotoKey, photoURLExpiry)
	if err != nil {
		return common.SendServerError(c, "failed to sign photo URL")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"url": url,
	})
}

type RecordContaminationRequest struct {
	InstanceID  string  `json:"instance_id"`
	Kind        string  `json:"kind"`
	Severity    int     `json:"severity"`
	Description *string `json:"description"`
}

func (h *QualityHandlers) RecordContamination(c echo.Context) error {
	ctx := c.Request().Context()

	var req RecordContaminationRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	instanceID, err := common.ValidateUUID(req.InstanceID, "instance_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	incident, err := h.qualitySvc.RecordContamination(ctx, instanceID, models.ContaminationKind(req.Kind), req.Severity, req.Description)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, incident)
}

func (h *QualityHandlers) ListInstanceContamination(c echo.Context) error {
	ctx := c.Request().Context()

	instanceID, err := common.ValidateUUID(c.Param("id"), "instance ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	limit, offset := listBounds(c)
	incidents, err := h.qualitySvc.ListContaminationByInstance(ctx, instanceID, limit, offset)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"incidents": incidents,
		"limit":     limit,
		"offset":    offset,
	})
}
