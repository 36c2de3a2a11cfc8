package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packloop/internal/common"
	"packloop/internal/models"
)

// stubCustomerRepo captures the customer passed to Create so tests can
// inspect what the handler would persist.
type stubCustomerRepo struct {
	created  *models.Customer
	customer *models.Customer
	email    string
	err      error
}

func (s *stubCustomerRepo) Create(ctx context.Context, customer *models.Customer) error {
	s.created = customer
	return s.err
}
func (s *stubCustomerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.customer, nil
}
func (s *stubCustomerRepo) GetByEmail(ctx context.Context, email string) (*models.Customer, error) {
	s.email = email
	if s.err != nil {
		return nil, s.err
	}
	return s.customer, nil
}
func (s *stubCustomerRepo) List(ctx context.Context, limit, offset int) ([]*models.Customer, error) {
	return nil, s.err
}
func (s *stubCustomerRepo) Update(ctx context.Context, customer *models.Customer) error {
	return s.err
}
func (s *stubCustomerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return s.err
}

// stubLedgerService satisfies services.LedgerService for handler tests that
// only touch the balance lookup.
type stubLedgerService struct {
	balance *models.BalanceRow
	err     error
}

func (s *stubLedgerService) Credit(ctx context.Context, accountID uuid.UUID, amountCents int64, reason models.TransactionReason, refType *string, refID *uuid.UUID) (*models.DepositTransaction, error) {
	return nil, s.err
}
func (s *stubLedgerService) Debit(ctx context.Context, accountID uuid.UUID, amountCents int64, reason models.TransactionReason, refType *string, refID *uuid.UUID) (*models.DepositTransaction, error) {
	return nil, s.err
}
func (s *stubLedgerService) Reconcile(ctx context.Context, accountID uuid.UUID) (int64, int64, error) {
	return 0, 0, s.err
}
func (s *stubLedgerService) GetAccountByCustomer(ctx context.Context, customerID uuid.UUID) (*models.DepositAccount, error) {
	return nil, s.err
}
func (s *stubLedgerService) Statement(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*models.DepositTransaction, error) {
	return nil, s.err
}
func (s *stubLedgerService) Balances(ctx context.Context, limit, offset int) ([]*models.BalanceRow, error) {
	return nil, s.err
}
func (s *stubLedgerService) CustomerBalance(ctx context.Context, customerID uuid.UUID) (*models.BalanceRow, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.balance, nil
}

func TestCreateCustomer_StampsCreationTime(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &stubCustomerRepo{}
	h := NewCustomerHandlers(repo, nil, clockwork.NewFakeClockAt(now))

	c, rec := postJSON(t, "/v1/customers", `{"name":"Ada"}`)

	require.NoError(t, h.CreateCustomer(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, repo.created)
	assert.False(t, repo.created.CreatedAt.IsZero())
	assert.Equal(t, now, repo.created.CreatedAt)
}

func TestCreateCustomer_RequiresName(t *testing.T) {
	repo := &stubCustomerRepo{}
	h := NewCustomerHandlers(repo, nil, clockwork.NewFakeClock())

	c, rec := postJSON(t, "/v1/customers", `{"email":"ada@example.com"}`)

	require.NoError(t, h.CreateCustomer(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, repo.created)
}

func TestListCustomers_EmailFilter(t *testing.T) {
	customerID := uuid.New()
	repo := &stubCustomerRepo{customer: &models.Customer{ID: customerID, Name: "Ada"}}
	h := NewCustomerHandlers(repo, nil, clockwork.NewFakeClock())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/customers?email=ada%40example.com", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.ListCustomers(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ada@example.com", repo.email)
	assert.Contains(t, rec.Body.String(), customerID.String())
}

func TestListCustomers_EmailFilterNotFound(t *testing.T) {
	repo := &stubCustomerRepo{err: common.NotFoundf("customer with email %s", "nobody@example.com")}
	h := NewCustomerHandlers(repo, nil, clockwork.NewFakeClock())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/customers?email=nobody%40example.com", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.ListCustomers(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetBalance_ReturnsRow(t *testing.T) {
	customerID := uuid.New()
	svc := &stubLedgerService{balance: &models.BalanceRow{
		CustomerID: customerID,
		Name:       "Ada",
		Balance:    500,
		LedgerSum:  500,
	}}
	h := NewCustomerHandlers(&stubCustomerRepo{}, svc, clockwork.NewFakeClock())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/customers/"+customerID.String()+"/balance", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(customerID.String())

	require.NoError(t, h.GetBalance(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"balance":500`)
}

func TestGetBalance_UnknownCustomer(t *testing.T) {
	customerID := uuid.New()
	svc := &stubLedgerService{err: common.NotFoundf("balance for customer %s", customerID)}
	h := NewCustomerHandlers(&stubCustomerRepo{}, svc, clockwork.NewFakeClock())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/customers/"+customerID.String()+"/balance", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(customerID.String())

	require.NoError(t, h.GetBalance(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
