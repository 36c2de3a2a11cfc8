package handlers

import (
	"net/http"
	"time"

	"packloop/internal/common"
	"packloop/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// LoanHandlers serves checkout and return operations.
type LoanHandlers struct {
	loanSvc services.LoanService
}

func NewLoanHandlers(loanSvc services.LoanService) *LoanHandlers {
	return &LoanHandlers{loanSvc: loanSvc}
}

type OpenCheckoutRequest struct {
	InstanceID  string `json:"instance_id"`
	RetailerID  string `json:"retailer_id"`
	CustomerID  string `json:"customer_id"`
	DueBackDays int    `json:"due_back_days"`
}

func (h *LoanHandlers) OpenCheckout(c echo.Context) error {
	ctx := c.Request().Context()

	var req OpenCheckoutRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	instanceID, err := common.ValidateUUID(req.InstanceID, "instance_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	retailerID, err := common.ValidateUUID(req.RetailerID, "retailer_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	customerID, err := common.ValidateUUID(req.CustomerID, "customer_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	if req.DueBackDays == 0 {
		req.DueBackDays = 14
	}

	checkout, err := h.loanSvc.OpenCheckout(ctx, instanceID, retailerID, customerID, req.DueBackDays)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, checkout)
}

type RecordReturnRequest struct {
	InstanceID string  `json:"instance_id"`
	LocationID string  `json:"location_id"`
	CustomerID *string `json:"customer_id"`
	CheckoutID *string `json:"checkout_id"`
}

func (h *LoanHandlers) RecordReturn(c echo.Context) error {
	ctx := c.Request().Context()

	var req RecordReturnRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	instanceID, err := common.ValidateUUID(req.InstanceID, "instance_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	locationID, err := common.ValidateUUID(req.LocationID, "location_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var customerID, checkoutID *uuid.UUID
	if req.CustomerID != nil {
		id, err := common.ValidateUUID(*req.CustomerID, "customer_id")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		customerID = &id
	}
	if req.CheckoutID != nil {
		id, err := common.ValidateUUID(*req.CheckoutID, "checkout_id")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		checkoutID = &id
	}

	ret, err := h.loanSvc.CloseReturn(ctx, instanceID, locationID, customerID, checkoutID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, ret)
}

func (h *LoanHandlers) GetCheckout(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "checkout ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	checkout, err := h.loanSvc.GetCheckout(ctx, id)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, checkout)
}

// GetInstanceOpenCheckout returns the checkout an instance is currently out
// on; 404 when the instance is not on loan.
func (h *LoanHandlers) GetInstanceOpenCheckout(c echo.Context) error {
	ctx := c.Request().Context()

	instanceID, err := common.ValidateUUID(c.Param("id"), "instance ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	checkout, err := h.loanSvc.OpenCheckoutForInstance(ctx, instanceID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, checkout)
}

func (h *LoanHandlers) ListCustomerCheckouts(c echo.Context) error {
	ctx := c.Request().Context()

	customerID, err := common.ValidateUUID(c.Param("id"), "customer ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	limit, offset := listBounds(c)
	checkouts, err := h.loanSvc.ListCheckoutsByCustomer(ctx, customerID, limit, offset)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"checkouts": checkouts,
		"limit":     limit,
		"offset":    offset,
	})
}

func (h *LoanHandlers) GetReturn(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "return ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	ret, err := h.loanSvc.GetReturn(ctx, id)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, ret)
}

func (h *LoanHandlers) ListInstanceReturns(c echo.Context) error {
	ctx := c.Request().Context()

	instanceID, err := common.ValidateUUID(c.Param("id"), "instance ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	limit, offset := listBounds(c)
	returns, err := h.loanSvc.ListReturnsByInstance(ctx, instanceID, limit, offset)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"returns": returns,
		"limit":   limit,
		"offset":  offset,
	})
}

// ListOverdue recomputes the overdue set, optionally as of a caller-supplied
// RFC 3339 instant.
func (h *LoanHandlers) ListOverdue(c echo.Context) error {
	ctx := c.Request().Context()

	var asOf time.Time
	if raw := c.QueryParam("as_of"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return common.SendValidationError(c, "as_of", "must be RFC 3339")
		}
		asOf = parsed
	}

	overdue, err := h.loanSvc.OverdueCheckouts(ctx, asOf)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"overdue": overdue,
		"count":   len(overdue),
	})
}
