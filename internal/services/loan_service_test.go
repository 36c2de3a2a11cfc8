package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"packloop/internal/common"
	"packloop/internal/models"
)

// stubLocationRepo serves a single canned location for loan tests.
type stubLocationRepo struct {
	loc *models.Location
}

func (s *stubLocationRepo) Create(ctx context.Context, loc *models.Location) error { return nil }
func (s *stubLocationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	if s.loc == nil || s.loc.ID != id {
		return nil, common.NotFoundf("location %s", id)
	}
	return s.loc, nil
}
func (s *stubLocationRepo) GetByName(ctx context.Context, name string) (*models.Location, error) {
	return nil, common.NotFoundf("location %s", name)
}
func (s *stubLocationRepo) List(ctx context.Context, kind *models.LocationKind, limit, offset int) ([]*models.Location, error) {
	return nil, nil
}
func (s *stubLocationRepo) Update(ctx context.Context, loc *models.Location) error { return nil }
func (s *stubLocationRepo) Delete(ctx context.Context, id uuid.UUID) error         { return nil }

type LoanServiceTestSuite struct {
	suite.Suite
	mock       pgxmock.PgxPoolIface
	locations  *stubLocationRepo
	svc        LoanService
	clock      *clockwork.FakeClock
	instanceID uuid.UUID
	retailerID uuid.UUID
	customerID uuid.UUID
	catalogID  uuid.UUID
	accountID  uuid.UUID
	ctx        context.Context
}

func (suite *LoanServiceTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.locations = &stubLocationRepo{}
	suite.clock = clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	suite.svc = NewLoanService(mock, nil, nil, suite.locations, nil, nil, suite.clock)
	suite.instanceID = uuid.New()
	suite.retailerID = uuid.New()
	suite.customerID = uuid.New()
	suite.catalogID = uuid.New()
	suite.accountID = uuid.New()
	suite.ctx = context.Background()
}

func (suite *LoanServiceTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestLoanServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LoanServiceTestSuite))
}

func (suite *LoanServiceTestSuite) expectInstanceLock(state models.InstanceState) {
	suite.mock.ExpectQuery(`SELECT state, catalog_id`).
		WithArgs(suite.instanceID).
		WillReturnRows(pgxmock.NewRows([]string{"state", "catalog_id"}).
			AddRow(state, suite.catalogID))
}

func (suite *LoanServiceTestSuite) expectTransition(from, to models.InstanceState) {
	now := suite.clock.Now().UTC()
	suite.mock.ExpectQuery(`SELECT id, catalog_id, uid_code, state, created_at, retired_at`).
		WithArgs(suite.instanceID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "catalog_id", "uid_code", "state", "created_at", "retired_at"}).
			AddRow(suite.instanceID, suite.catalogID, "PL-0001", from, now.Add(-24*time.Hour), nil))
	suite.mock.ExpectExec(`UPDATE packaging_instances`).
		WithArgs(to, (*time.Time)(nil), suite.instanceID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
}

func (suite *LoanServiceTestSuite) expectHoldRelease(deltaCents, balanceCents int64, reason models.TransactionReason) {
	now := suite.clock.Now().UTC()
	suite.mock.ExpectQuery(`SELECT balance_cents, customer_id`).
		WithArgs(suite.accountID).
		WillReturnRows(pgxmock.NewRows([]string{"balance_cents", "customer_id"}).
			AddRow(balanceCents, suite.customerID))
	suite.mock.ExpectQuery(`INSERT INTO deposit_transactions`).
		WithArgs(suite.accountID, deltaCents, reason, pgxmock.AnyArg(), pgxmock.AnyArg(), now).
		WillReturnRows(pgxmock.NewRows([]string{"tx_id"}).AddRow(int64(1)))
	suite.mock.ExpectExec(`UPDATE deposit_accounts`).
		WithArgs(deltaCents, suite.accountID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
}

func (suite *LoanServiceTestSuite) TestOpenCheckout_Success() {
	now := suite.clock.Now().UTC()

	suite.mock.ExpectBegin()
	suite.expectInstanceLock(models.StateAvailable)
	suite.mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM checkouts`).
		WithArgs(suite.instanceID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	suite.mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM retailers`).
		WithArgs(suite.retailerID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	suite.mock.ExpectQuery(`SELECT id FROM deposit_accounts`).
		WithArgs(suite.customerID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(suite.accountID))
	suite.mock.ExpectQuery(`SELECT deposit_amount_cents`).
		WithArgs(suite.catalogID).
		WillReturnRows(pgxmock.NewRows([]string{"deposit_amount_cents"}).AddRow(int64(500)))
	suite.mock.ExpectExec(`INSERT INTO checkouts`).
		WithArgs(pgxmock.AnyArg(), suite.instanceID, suite.retailerID, suite.customerID, now, 14).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.expectHoldRelease(-500, 1000, models.ReasonCheckoutHold)
	suite.expectTransition(models.StateAvailable, models.StateInUse)
	suite.mock.ExpectCommit()

	checkout, err := suite.svc.OpenCheckout(suite.ctx, suite.instanceID, suite.retailerID, suite.customerID, 14)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.instanceID, checkout.InstanceID)
	assert.Equal(suite.T(), 14, checkout.DueBackDays)
	assert.False(suite.T(), checkout.Closed)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *LoanServiceTestSuite) TestOpenCheckout_DuplicateOpenCheckout() {
	suite.mock.ExpectBegin()
	suite.expectInstanceLock(models.StateAvailable)
	suite.mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM checkouts`).
		WithArgs(suite.instanceID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	suite.mock.ExpectRollback()

	_, err := suite.svc.OpenCheckout(suite.ctx, suite.instanceID, suite.retailerID, suite.customerID, 14)
	assert.ErrorIs(suite.T(), err, common.ErrDuplicateOpenCheckout)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *LoanServiceTestSuite) TestOpenCheckout_RejectsInstanceNotOnShelf() {
	suite.mock.ExpectBegin()
	suite.expectInstanceLock(models.StateWashing)
	suite.mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM checkouts`).
		WithArgs(suite.instanceID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	suite.mock.ExpectRollback()

	_, err := suite.svc.OpenCheckout(suite.ctx, suite.instanceID, suite.retailerID, suite.customerID, 14)
	var invalid *common.InvalidStateTransition
	assert.ErrorAs(suite.T(), err, &invalid)
	assert.Equal(suite.T(), string(models.StateWashing), invalid.Current)
	assert.Equal(suite.T(), "checkout", invalid.Event)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *LoanServiceTestSuite) TestOpenCheckout_InsufficientDeposit() {
	now := suite.clock.Now().UTC()

	suite.mock.ExpectBegin()
	suite.expectInstanceLock(models.StateAvailable)
	suite.mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM checkouts`).
		WithArgs(suite.instanceID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	suite.mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM retailers`).
		WithArgs(suite.retailerID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	suite.mock.ExpectQuery(`SELECT id FROM deposit_accounts`).
		WithArgs(suite.customerID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(suite.accountID))
	suite.mock.ExpectQuery(`SELECT deposit_amount_cents`).
		WithArgs(suite.catalogID).
		WillReturnRows(pgxmock.NewRows([]string{"deposit_amount_cents"}).AddRow(int64(500)))
	suite.mock.ExpectExec(`INSERT INTO checkouts`).
		WithArgs(pgxmock.AnyArg(), suite.instanceID, suite.retailerID, suite.customerID, now, 14).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectQuery(`SELECT balance_cents, customer_id`).
		WithArgs(suite.accountID).
		WillReturnRows(pgxmock.NewRows([]string{"balance_cents", "customer_id"}).
			AddRow(int64(300), suite.customerID))
	suite.mock.ExpectRollback()

	_, err := suite.svc.OpenCheckout(suite.ctx, suite.instanceID, suite.retailerID, suite.customerID, 14)
	var insufficient *common.InsufficientFunds
	assert.ErrorAs(suite.T(), err, &insufficient)
	assert.Equal(suite.T(), int64(300), insufficient.BalanceCents)
	assert.Equal(suite.T(), int64(500), insufficient.DebitCents)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *LoanServiceTestSuite) TestOpenCheckout_RejectsNonPositiveDueBackDays() {
	_, err := suite.svc.OpenCheckout(suite.ctx, suite.instanceID, suite.retailerID, suite.customerID, 0)
	var validation *common.ValidationError
	assert.ErrorAs(suite.T(), err, &validation)
	assert.Equal(suite.T(), "due_back_days", validation.Field)
}

func (suite *LoanServiceTestSuite) retailerLocation() uuid.UUID {
	locID := uuid.New()
	suite.locations.loc = &models.Location{ID: locID, Name: "Corner Shop", Kind: models.LocationRetailer}
	return locID
}

func (suite *LoanServiceTestSuite) TestCloseReturn_MatchedReleasesOriginalHold() {
	locID := suite.retailerLocation()
	now := suite.clock.Now().UTC()
	checkoutID := uuid.New()

	suite.mock.ExpectBegin()
	suite.mock.ExpectQuery(`SELECT state FROM packaging_instances`).
		WithArgs(suite.instanceID).
		WillReturnRows(pgxmock.NewRows([]string{"state"}).AddRow(models.StateInUse))
	suite.mock.ExpectQuery(`WHERE instance_id = \$1 AND NOT closed`).
		WithArgs(suite.instanceID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "instance_id", "retailer_id", "customer_id", "checkout_time", "due_back_days", "closed"}).
			AddRow(checkoutID, suite.instanceID, suite.retailerID, suite.customerID, now.Add(-48*time.Hour), 14, false))
	suite.mock.ExpectExec(`INSERT INTO returns`).
		WithArgs(pgxmock.AnyArg(), suite.instanceID, locID, (*uuid.UUID)(nil), &checkoutID, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectExec(`UPDATE checkouts SET closed = TRUE`).
		WithArgs(checkoutID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	suite.mock.ExpectQuery(`SELECT COALESCE\(-SUM\(delta_cents\), 0\)`).
		WithArgs(refTypeCheckout, checkoutID, models.ReasonCheckoutHold).
		WillReturnRows(pgxmock.NewRows([]string{"held"}).AddRow(int64(500)))
	suite.mock.ExpectQuery(`SELECT id FROM deposit_accounts`).
		WithArgs(suite.customerID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(suite.accountID))
	suite.expectHoldRelease(500, 500, models.ReasonReturnRelease)
	suite.expectTransition(models.StateInUse, models.StateAtRetailer)
	suite.mock.ExpectCommit()

	ret, err := suite.svc.CloseReturn(suite.ctx, suite.instanceID, locID, nil, nil)
	assert.NoError(suite.T(), err)
	assert.NotNil(suite.T(), ret.CheckoutID)
	assert.Equal(suite.T(), checkoutID, *ret.CheckoutID)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *LoanServiceTestSuite) TestCloseReturn_UnmatchedStillRecorded() {
	locID := suite.retailerLocation()
	now := suite.clock.Now().UTC()

	suite.mock.ExpectBegin()
	suite.mock.ExpectQuery(`SELECT state FROM packaging_instances`).
		WithArgs(suite.instanceID).
		WillReturnRows(pgxmock.NewRows([]string{"state"}).AddRow(models.StateAvailable))
	suite.mock.ExpectQuery(`WHERE instance_id = \$1 AND NOT closed`).
		WithArgs(suite.instanceID).
		WillReturnError(pgx.ErrNoRows)
	suite.mock.ExpectExec(`INSERT INTO returns`).
		WithArgs(pgxmock.AnyArg(), suite.instanceID, locID, (*uuid.UUID)(nil), (*uuid.UUID)(nil), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.expectTransition(models.StateAvailable, models.StateAtRetailer)
	suite.mock.ExpectCommit()

	ret, err := suite.svc.CloseReturn(suite.ctx, suite.instanceID, locID, nil, nil)
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), ret.CheckoutID)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *LoanServiceTestSuite) TestCloseReturn_DuplicateReturnRejected() {
	locID := suite.retailerLocation()
	now := suite.clock.Now().UTC()
	checkoutID := uuid.New()

	suite.mock.ExpectBegin()
	suite.mock.ExpectQuery(`SELECT state FROM packaging_instances`).
		WithArgs(suite.instanceID).
		WillReturnRows(pgxmock.NewRows([]string{"state"}).AddRow(models.StateAtRetailer))
	suite.mock.ExpectQuery(`FROM checkouts`).
		WithArgs(checkoutID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "instance_id", "retailer_id", "customer_id", "checkout_time", "due_back_days", "closed"}).
			AddRow(checkoutID, suite.instanceID, suite.retailerID, suite.customerID, now.Add(-48*time.Hour), 14, true))
	suite.mock.ExpectRollback()

	_, err := suite.svc.CloseReturn(suite.ctx, suite.instanceID, locID, nil, &checkoutID)
	assert.ErrorIs(suite.T(), err, common.ErrDuplicateReturn)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *LoanServiceTestSuite) TestCloseReturn_RejectsHubLocation() {
	locID := uuid.New()
	suite.locations.loc = &models.Location{ID: locID, Name: "North Hub", Kind: models.LocationHub}

	_, err := suite.svc.CloseReturn(suite.ctx, suite.instanceID, locID, nil, nil)
	var validation *common.ValidationError
	assert.ErrorAs(suite.T(), err, &validation)
	assert.Equal(suite.T(), "location_id", validation.Field)
}
