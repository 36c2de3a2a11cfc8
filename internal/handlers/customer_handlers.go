package handlers

import (
	"net/http"

	"packloop/internal/common"
	"packloop/internal/models"
	"packloop/internal/repositories"
	"packloop/internal/services"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
)

// CustomerHandlers serves customers and their deposit accounts. Creating a
// customer opens an empty account in the same transaction; account balances
// change only through the ledger endpoints.
type CustomerHandlers struct {
	customerRepo repositories.CustomerRepository
	ledgerSvc    services.LedgerService
	clock        clockwork.Clock
}

func NewCustomerHandlers(customerRepo repositories.CustomerRepository, ledgerSvc services.LedgerService, clock clockwork.Clock) *CustomerHandlers {
	return &CustomerHandlers{
		customerRepo: customerRepo,
		ledgerSvc:    ledgerSvc,
		clock:        clock,
	}
}

type CreateCustomerRequest struct {
	Name  string  `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

func (h *CustomerHandlers) CreateCustomer(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateCustomerRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.Name, "name"); err != nil {
		return common.SendValidationError(c, "name", "is required")
	}

	customer := &models.Customer{
		ID:        uuid.New(),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		CreatedAt: h.clock.Now().UTC(),
	}
	if err := h.customerRepo.Create(ctx, customer); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, customer)
}

func (h *CustomerHandlers) GetCustomer(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "customer ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	customer, err := h.customerRepo.GetByID(ctx, id)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, customer)
}

func (h *CustomerHandlers) ListCustomers(c echo.Context) error {
	ctx := c.Request().Context()

	if email := c.QueryParam("email"); email != "" {
		customer, err := h.customerRepo.GetByEmail(ctx, email)
		if err != nil {
			return common.SendDomainError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"customers": []*models.Customer{customer},
		})
	}

	limit, offset := listBounds(c)
	customers, err := h.customerRepo.List(ctx, limit, offset)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"customers": customers,
		"limit":     limit,
		"offset":    offset,
	})
}

type UpdateCustomerRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

func (h *CustomerHandlers) UpdateCustomer(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "customer ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req UpdateCustomerRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	customer, err := h.customerRepo.GetByID(ctx, id)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	if req.Name != nil {
		customer.Name = *req.Name
	}
	if req.Email != nil {
		customer.Email = req.Email
	}
	if req.Phone != nil {
		customer.Phone = req.Phone
	}

	if err := h.customerRepo.Update(ctx, customer); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, customer)
}

// GetAccount returns the customer's deposit account with its live balance.
func (h *CustomerHandlers) GetAccount(c echo.Context) error {
	ctx := c.Request().Context()

	customerID, err := common.ValidateUUID(c.Param("id"), "customer ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	account, err := h.ledgerSvc.GetAccountByCustomer(ctx, customerID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, account)
}

// GetStatement returns the account's transaction history, newest first.
func (h *CustomerHandlers) GetStatement(c echo.Context) error {
	ctx := c.Request().Context()

	customerID, err := common.ValidateUUID(c.Param("id"), "customer ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	account, err := h.ledgerSvc.GetAccountByCustomer(ctx, customerID)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	limit, offset := listBounds(c)
	transactions, err := h.ledgerSvc.Statement(ctx, account.ID, limit, offset)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"account_id":    account.ID,
		"balance_cents": account.BalanceCents,
		"transactions":  transactions,
		"limit":         limit,
		"offset":        offset,
	})
}

type LedgerAdjustmentRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Reason      string `json:"reason"`
}

// CreditAccount applies a manual credit, reason penalty reversal or top-up
// style adjustments.
func (h *CustomerHandlers) CreditAccount(c echo.Context) error {
	return h.adjust(c, false)
}

// DebitAccount applies a manual debit such as a penalty.
func (h *CustomerHandlers) DebitAccount(c echo.Context) error {
	return h.adjust(c, true)
}

func (h *CustomerHandlers) adjust(c echo.Context, debit bool) error {
	ctx := c.Request().Context()

	customerID, err := common.ValidateUUID(c.Param("id"), "customer ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req LedgerAdjustmentRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	reason := models.TransactionReason(req.Reason)
	if reason == "" {
		reason = models.ReasonAdjustment
	}
	if reason != models.ReasonAdjustment && reason != models.ReasonPenalty {
		return common.SendValidationError(c, "reason", "must be adjustment or penalty")
	}

	account, err := h.ledgerSvc.GetAccountByCustomer(ctx, customerID)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	var entry *models.DepositTransaction
	if debit {
		entry, err = h.ledgerSvc.Debit(ctx, account.ID, req.AmountCents, reason, nil, nil)
	} else {
		entry, err = h.ledgerSvc.Credit(ctx, account.ID, req.AmountCents, reason, nil, nil)
	}
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, entry)
}

// ReconcileAccount checks the stored balance against the summed ledger and
// reports drift without repairing it.
func (h *CustomerHandlers) ReconcileAccount(c echo.Context) error {
	ctx := c.Request().Context()

	customerID, err := common.ValidateUUID(c.Param("id"), "customer ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	account, err := h.ledgerSvc.GetAccountByCustomer(ctx, customerID)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	balance, ledger, err := h.ledgerSvc.Reconcile(ctx, account.ID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"account_id":    account.ID,
		"balance_cents": balance,
		"ledger_cents":  ledger,
		"consistent":    true,
	})
}

// GetBalance returns one customer's balance row, served through the cache.
func (h *CustomerHandlers) GetBalance(c echo.Context) error {
	ctx := c.Request().Context()

	customerID, err := common.ValidateUUID(c.Param("id"), "customer ID")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	row, err := h.ledgerSvc.CustomerBalance(ctx, customerID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, row)
}

// ListBalances returns every customer's stored balance next to the
// recomputed ledger sum.
func (h *CustomerHandlers) ListBalances(c echo.Context) error {
	ctx := c.Request().Context()

	limit, offset := listBounds(c)
	balances, err := h.ledgerSvc.Balances(ctx, limit, offset)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"balances": balances,
		"limit":    limit,
		"offset":   offset,
	})
}
