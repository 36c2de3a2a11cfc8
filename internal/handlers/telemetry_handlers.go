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

// TelemetryHandlers serves movement and sensor ingestion plus the derived
// location queries.
type TelemetryHandlers struct {
	telemetrySvc services.TelemetryService
}

func NewTelemetryHandlers(telemetrySvc services.TelemetryService) *TelemetryHandlers {
	return &TelemetryHandlers{telemetrySvc: telemetrySvc}
}

type RecordMovementRequest struct {
	InstanceID string  `json:"instance_id"`
	FromLocID  *string `json:"from_loc_id"`
	ToLocID    *string `json:"to_loc_id"`
	MovedAt    *string `json:"moved_at"`
	Note       *string `json:"note"`
}

func (h *TelemetryHandlers) RecordMovement(c echo.Context) error {
	ctx := c.Request().Context()

	var req RecordMovementRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	instanceID, err := common.ValidateUUID(req.InstanceID, "instance_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var fromLocID, toLocID *uuid.UUID
	if req.FromLocID != nil {
		id, err := common.ValidateUUID(*req.FromLocID, "from_loc_id")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		fromLocID = &id
	}
	if req.ToLocID != nil {
		id, err := common.ValidateUUID(*req.ToLocID, "to_loc_id")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		toLocID = &id
	}

	var movedAt time.Time
	if req.MovedAt != nil {
		parsed, err := time.Parse(time.RFC3339, *req.MovedAt)
		if err != nil {
			return common.SendValidationError(c, "moved_at", "must be RFC 3339")
		}
		movedAt = parsed
	}

	movement, err := h.telemetrySvc.RecordMovement(ctx, instanceID, fromLocID, toLocID, movedAt, req.Note)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, movement)
}

func (h *TelemetryHandlers) MovementHistory(c echo.Context) error {
	ctx := c.Request().Context()

	instanceID, err := common.ValidateUUID(c.Param("id"), "instance ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	limit, offset := listBounds(c)
	movements, err := h.telemetrySvc.MovementHistory(ctx, instanceID, limit, offset)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"movements": movements,
		"limit":     limit,
		"offset":    offset,
	})
}

// LastLocation reports where the instance was last seen. An instance with no
// movement history gets a null location, not an error.
func (h *TelemetryHandlers) LastLocation(c echo.Context) error {
	ctx := c.Request().Context()

	instanceID, err := common.ValidateUUID(c.Param("id"), "instance ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	last, err := h.telemetrySvc.LastKnownLocation(ctx, instanceID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	if last == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"instance_id":   instanceID,
			"last_location": nil,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"instance_id":   instanceID,
		"last_location": last,
	})
}

// DwellTime reports how long the instance has sat at its current location.
func (h *TelemetryHandlers) DwellTime(c echo.Context) error {
	ctx := c.Request().Context()

	instanceID, err := common.ValidateUUID(c.Param("id"), "instance ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	dwell, ok, err := h.telemetrySvc.DwellTime(ctx, instanceID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"instance_id":   instanceID,
		"known":         ok,
		"dwell_seconds": dwell.Seconds(),
	})
}

type RecordReadingRequest struct {
	InstanceID *string `json:"instance_id"`
	LocationID *string `json:"location_id"`
	SensorType string  `json:"sensor_type"`
	Value      float64 `json:"value"`
	RecordedAt *string `json:"recorded_at"`
}

func (h *TelemetryHandlers) RecordReading(c echo.Context) error {
	ctx := c.Request().Context()

	var req RecordReadingRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	var instanceID, locationID *uuid.UUID
	if req.InstanceID != nil {
		id, err := common.ValidateUUID(*req.InstanceID, "instance_id")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		instanceID = &id
	}
	if req.LocationID != nil {
		id, err := common.ValidateUUID(*req.LocationID, "location_id")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		locationID = &id
	}

	var recordedAt time.Time
	if req.RecordedAt != nil {
		parsed, err := time.Parse(time.RFC3339, *req.RecordedAt)
		if err != nil {
			return common.SendValidationError(c, "recorded_at", "must be RFC 3339")
		}
		recordedAt = parsed
	}

	reading, err := h.telemetrySvc.RecordSensorReading(ctx, instanceID, locationID, models.SensorType(req.SensorType), req.Value, recordedAt, "http")
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, reading)
}

type SearchReadingsRequest struct {
	InstanceID string `query:"instance_id"`
	LocationID string `query:"location_id"`
	SensorType string `query:"sensor_type"`
	From       string `query:"from"`
	To         string `query:"to"`
	Limit      int    `query:"limit"`
	Offset     int    `query:"offset"`
}

func (h *TelemetryHandlers) SearchReadings(c echo.Context) error {
	ctx := c.Request().Context()

	var req SearchReadingsRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid query parameters")
	}

	filter := &models.SensorFilter{Limit: req.Limit, Offset: req.Offset}
	if req.InstanceID != "" {
		id, err := common.ValidateUUID(req.InstanceID, "instance_id")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		filter.InstanceID = &id
	}
	if req.LocationID != "" {
		id, err := common.ValidateUUID(req.LocationID, "location_id")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		filter.LocationID = &id
	}
	if req.SensorType != "" {
		st := models.SensorType(req.SensorType)
		if !st.Valid() {
			return common.SendValidationError(c, "sensor_type", "unknown sensor type")
		}
		filter.SensorType = &st
	}
	if req.From != "" {
		from, err := time.Parse(time.RFC3339, req.From)
		if err != nil {
			return common.SendValidationError(c, "from", "must be RFC 3339")
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := time.Parse(time.RFC3339, req.To)
		if err != nil {
			return common.SendValidationError(c, "to", "must be RFC 3339")
		}
		filter.To = &to
	}

	readings, err := h.telemetrySvc.SearchReadings(ctx, filter)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"readings": readings,
		"count":    len(readings),
	})
}
