package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packloop/internal/common"
	"packloop/internal/models"
)

// stubLoanService returns canned results so handler tests exercise only the
// HTTP layer: binding, validation, and error mapping.
type stubLoanService struct {
	checkout *models.Checkout
	ret      *models.Return
	overdue  []*models.OverdueCheckout
	err      error
}

func (s *stubLoanService) OpenCheckout(ctx context.Context, instanceID, retailerID, customerID uuid.UUID, dueBackDays int) (*models.Checkout, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := *s.checkout
	out.InstanceID = instanceID
	out.RetailerID = retailerID
	out.CustomerID = customerID
	out.DueBackDays = dueBackDays
	return &out, nil
}
func (s *stubLoanService) CloseReturn(ctx context.Context, instanceID, locationID uuid.UUID, customerID, checkoutID *uuid.UUID) (*models.Return, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.ret, nil
}
func (s *stubLoanService) OverdueCheckouts(ctx context.Context, asOf time.Time) ([]*models.OverdueCheckout, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.overdue, nil
}
func (s *stubLoanService) GetCheckout(ctx context.Context, id uuid.UUID) (*models.Checkout, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.checkout, nil
}
func (s *stubLoanService) OpenCheckoutForInstance(ctx context.Context, instanceID uuid.UUID) (*models.Checkout, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.checkout, nil
}
func (s *stubLoanService) ListCheckoutsByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*models.Checkout, error) {
	return nil, nil
}
func (s *stubLoanService) GetReturn(ctx context.Context, id uuid.UUID) (*models.Return, error) {
	return s.ret, s.err
}
func (s *stubLoanService) ListReturnsByInstance(ctx context.Context, instanceID uuid.UUID, limit, offset int) ([]*models.Return, error) {
	return nil, nil
}

func postJSON(t *testing.T, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestOpenCheckout_Created(t *testing.T) {
	svc := &stubLoanService{checkout: &models.Checkout{ID: uuid.New(), CheckoutTime: time.Now().UTC()}}
	h := NewLoanHandlers(svc)

	body := `{"instance_id":"` + uuid.New().String() + `","retailer_id":"` + uuid.New().String() + `","customer_id":"` + uuid.New().String() + `","due_back_days":7}`
	c, rec := postJSON(t, "/v1/checkouts", body)

	require.NoError(t, h.OpenCheckout(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"due_back_days":7`)
}

func TestOpenCheckout_DefaultsDueBackDays(t *testing.T) {
	svc := &stubLoanService{checkout: &models.Checkout{ID: uuid.New()}}
	h := NewLoanHandlers(svc)

	body := `{"instance_id":"` + uuid.New().String() + `","retailer_id":"` + uuid.New().String() + `","customer_id":"` + uuid.New().String() + `"}`
	c, rec := postJSON(t, "/v1/checkouts", body)

	require.NoError(t, h.OpenCheckout(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"due_back_days":14`)
}

func TestOpenCheckout_RejectsBadUUID(t *testing.T) {
	h := NewLoanHandlers(&stubLoanService{})

	body := `{"instance_id":"not-a-uuid","retailer_id":"` + uuid.New().String() + `","customer_id":"` + uuid.New().String() + `"}`
	c, rec := postJSON(t, "/v1/checkouts", body)

	require.NoError(t, h.OpenCheckout(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOpenCheckout_DuplicateMapsToConflict(t *testing.T) {
	h := NewLoanHandlers(&stubLoanService{err: common.ErrDuplicateOpenCheckout})

	body := `{"instance_id":"` + uuid.New().String() + `","retailer_id":"` + uuid.New().String() + `","customer_id":"` + uuid.New().String() + `"}`
	c, rec := postJSON(t, "/v1/checkouts", body)

	require.NoError(t, h.OpenCheckout(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "DUPLICATE_OPEN_CHECKOUT")
}

func TestOpenCheckout_InsufficientFundsMapsToConflict(t *testing.T) {
	h := NewLoanHandlers(&stubLoanService{err: &common.InsufficientFunds{
		AccountID:    uuid.New().String(),
		BalanceCents: 100,
		DebitCents:   500,
	}})

	body := `{"instance_id":"` + uuid.New().String() + `","retailer_id":"` + uuid.New().String() + `","customer_id":"` + uuid.New().String() + `"}`
	c, rec := postJSON(t, "/v1/checkouts", body)

	require.NoError(t, h.OpenCheckout(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "INSUFFICIENT_FUNDS")
}

func TestRecordReturn_Created(t *testing.T) {
	checkoutID := uuid.New()
	svc := &stubLoanService{ret: &models.Return{
		ID:         uuid.New(),
		InstanceID: uuid.New(),
		LocationID: uuid.New(),
		CheckoutID: &checkoutID,
		ReturnedAt: time.Now().UTC(),
	}}
	h := NewLoanHandlers(svc)

	body := `{"instance_id":"` + uuid.New().String() + `","location_id":"` + uuid.New().String() + `"}`
	c, rec := postJSON(t, "/v1/returns", body)

	require.NoError(t, h.RecordReturn(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), checkoutID.String())
}

func TestRecordReturn_DuplicateMapsToConflict(t *testing.T) {
	h := NewLoanHandlers(&stubLoanService{err: common.ErrDuplicateReturn})

	body := `{"instance_id":"` + uuid.New().String() + `","location_id":"` + uuid.New().String() + `","checkout_id":"` + uuid.New().String() + `"}`
	c, rec := postJSON(t, "/v1/returns", body)

	require.NoError(t, h.RecordReturn(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "DUPLICATE_RETURN")
}

func TestGetCheckout_NotFound(t *testing.T) {
	h := NewLoanHandlers(&stubLoanService{err: common.NotFoundf("checkout %s", uuid.New())})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/checkouts/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	require.NoError(t, h.GetCheckout(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOverdue_RejectsBadAsOf(t *testing.T) {
	h := NewLoanHandlers(&stubLoanService{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/checkouts/overdue?as_of=yesterday", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.ListOverdue(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListOverdue_ReturnsCount(t *testing.T) {
	h := NewLoanHandlers(&stubLoanService{overdue: []*models.OverdueCheckout{
		{Checkout: models.Checkout{ID: uuid.New()}, DaysOverdue: 3},
		{Checkout: models.Checkout{ID: uuid.New()}, DaysOverdue: 1},
	}})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/checkouts/overdue", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.ListOverdue(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":2`)
}

func TestGetInstanceOpenCheckout_Found(t *testing.T) {
	checkoutID := uuid.New()
	h := NewLoanHandlers(&stubLoanService{checkout: &models.Checkout{ID: checkoutID}})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/instances/"+uuid.New().String()+"/checkout", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	require.NoError(t, h.GetInstanceOpenCheckout(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), checkoutID.String())
}

func TestGetInstanceOpenCheckout_NotOnLoan(t *testing.T) {
	instanceID := uuid.New()
	h := NewLoanHandlers(&stubLoanService{err: common.NotFoundf("open checkout for instance %s", instanceID)})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/instances/"+instanceID.String()+"/checkout", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(instanceID.String())

	require.NoError(t, h.GetInstanceOpenCheckout(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
