package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

// SendValidationError sends a validation error response
func SendValidationError(c echo.Context, field, message string) error {
	details := map[string]string{
		field: message,
	}
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("VALIDATION_ERROR", "Validation failed", details))
}

// SendClientError sends a client error response
func SendClientError(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("CLIENT_ERROR", message, nil))
}

// SendServerError sends a server error response
func SendServerError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, CreateErrorResponse("SERVER_ERROR", message, nil))
}

// SendNotFoundError sends a not found error response
func SendNotFoundError(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, CreateErrorResponse("NOT_FOUND", fmt.Sprintf("%s not found", resource), nil))
}

// SendDomainError maps a domain error onto the HTTP error envelope.
// Unrecognized errors become a 500 without leaking internals.
func SendDomainError(c echo.Context, err error) error {
	var ve *ValidationError
	var ist *InvalidStateTransition
	var insuf *InsufficientFunds
	var corrupt *LedgerCorruption

	switch {
	case errors.As(err, &ve):
		return SendValidationError(c, ve.Field, ve.Message)
	case errors.As(err, &ist):
		return c.JSON(http.StatusConflict, CreateErrorResponse("INVALID_STATE_TRANSITION", ist.Error(), map[string]string{
			"current": ist.Current,
			"target":  ist.Target,
			"event":   ist.Event,
		}))
	case errors.As(err, &insuf):
		return c.JSON(http.StatusConflict, CreateErrorResponse("INSUFFICIENT_FUNDS", insuf.Error(), nil))
	case errors.As(err, &corrupt):
		return c.JSON(http.StatusInternalServerError, CreateErrorResponse("LEDGER_CORRUPTION", corrupt.Error(), nil))
	case errors.Is(err, ErrDuplicateOpenCheckout):
		return c.JSON(http.StatusConflict, CreateErrorResponse("DUPLICATE_OPEN_CHECKOUT", err.Error(), nil))
	case errors.Is(err, ErrDuplicateReturn):
		return c.JSON(http.StatusConflict, CreateErrorResponse("DUPLICATE_RETURN", err.Error(), nil))
	case errors.Is(err, ErrCycleAlreadyClosed):
		return c.JSON(http.StatusConflict, CreateErrorResponse("CYCLE_ALREADY_CLOSED", err.Error(), nil))
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, CreateErrorResponse("NOT_FOUND", err.Error(), nil))
	default:
		return SendServerError(c, "internal error")
	}
}

// ValidateUUID validates UUID path and query parameters
func ValidateUUID(idStr string, fieldName string) (uuid.UUID, error) {
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		return uuid.Nil, fmt.Errorf("%s is required", fieldName)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s is not a valid UUID: %v", fieldName, err)
	}

	return id, nil
}

// ValidatePositiveInteger validates positive integer values with upper bounds
func ValidatePositiveInteger(value int, fieldName string, maxValue int) error {
	if value <= 0 {
		return fmt.Errorf("%s must be positive", fieldName)
	}
	if value > maxValue {
		return fmt.Errorf("%s cannot exceed %d", fieldName, maxValue)
	}
	return nil
}

// ValidateRequiredString validates required string fields
func ValidateRequiredString(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateOptionalString trims and bounds optional string fields
func ValidateOptionalString(value *string, fieldName string, maxLength int) error {
	if value != nil {
		if len(*value) > maxLength {
			return fmt.Errorf("%s cannot exceed %d characters", fieldName, maxLength)
		}
		*value = strings.TrimSpace(*value)
	}
	return nil
}
