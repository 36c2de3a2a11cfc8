package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"packloop/internal/common"
	"packloop/internal/models"
)

type LedgerServiceTestSuite struct {
	suite.Suite
	mock       pgxmock.PgxPoolIface
	svc        LedgerService
	clock      *clockwork.FakeClock
	accountID  uuid.UUID
	customerID uuid.UUID
	ctx        context.Context
}

func (suite *LedgerServiceTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.clock = clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	suite.svc = NewLedgerService(mock, nil, nil, suite.clock)
	suite.accountID = uuid.New()
	suite.customerID = uuid.New()
	suite.ctx = context.Background()
}

func (suite *LedgerServiceTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestLedgerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}

func (suite *LedgerServiceTestSuite) expectAccountLock(balanceCents int64) {
	suite.mock.ExpectQuery(`SELECT balance_cents, customer_id`).
		WithArgs(suite.accountID).
		WillReturnRows(pgxmock.NewRows([]string{"balance_cents", "customer_id"}).
			AddRow(balanceCents, suite.customerID))
}

func (suite *LedgerServiceTestSuite) TestCredit_Success() {
	now := suite.clock.Now().UTC()

	suite.mock.ExpectBegin()
	suite.expectAccountLock(1000)
	suite.mock.ExpectQuery(`INSERT INTO deposit_transactions`).
		WithArgs(suite.accountID, int64(500), models.ReasonAdjustment, (*string)(nil), (*uuid.UUID)(nil), now).
		WillReturnRows(pgxmock.NewRows([]string{"tx_id"}).AddRow(int64(42)))
	suite.mock.ExpectExec(`UPDATE deposit_accounts`).
		WithArgs(int64(500), suite.accountID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	suite.mock.ExpectCommit()

	entry, err := suite.svc.Credit(suite.ctx, suite.accountID, 500, models.ReasonAdjustment, nil, nil)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(42), entry.TxID)
	assert.Equal(suite.T(), int64(500), entry.DeltaCents)
	assert.Equal(suite.T(), models.ReasonAdjustment, entry.Reason)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *LedgerServiceTestSuite) TestDebit_CheckoutHoldExceedingBalance() {
	suite.mock.ExpectBegin()
	suite.expectAccountLock(300)
	suite.mock.ExpectRollback()

	_, err := suite.svc.Debit(suite.ctx, suite.accountID, 500, models.ReasonCheckoutHold, nil, nil)
	var insufficient *common.InsufficientFunds
	assert.ErrorAs(suite.T(), err, &insufficient)
	assert.Equal(suite.T(), int64(300), insufficient.BalanceCents)
	assert.Equal(suite.T(), int64(500), insufficient.DebitCents)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *LedgerServiceTestSuite) TestDebit_PenaltyMayGoNegative() {
	now := suite.clock.Now().UTC()

	suite.mock.ExpectBegin()
	suite.expectAccountLock(300)
	suite.mock.ExpectQuery(`INSERT INTO deposit_transactions`).
		WithArgs(suite.accountID, int64(-500), models.ReasonPenalty, (*string)(nil), (*uuid.UUID)(nil), now).
		WillReturnRows(pgxmock.NewRows([]string{"tx_id"}).AddRow(int64(7)))
	suite.mock.ExpectExec(`UPDATE deposit_accounts`).
		WithArgs(int64(-500), suite.accountID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	suite.mock.ExpectCommit()

	entry, err := suite.svc.Debit(suite.ctx, suite.accountID, 500, models.ReasonPenalty, nil, nil)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(-500), entry.DeltaCents)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *LedgerServiceTestSuite) TestCredit_RejectsNonPositiveAmount() {
	_, err := suite.svc.Credit(suite.ctx, suite.accountID, 0, models.ReasonAdjustment, nil, nil)
	var validation *common.ValidationError
	assert.ErrorAs(suite.T(), err, &validation)
	assert.Equal(suite.T(), "amount_cents", validation.Field)
}

func (suite *LedgerServiceTestSuite) TestDebit_RejectsUnknownReason() {
	_, err := suite.svc.Debit(suite.ctx, suite.accountID, 100, models.TransactionReason("refund"), nil, nil)
	var validation *common.ValidationError
	assert.ErrorAs(suite.T(), err, &validation)
	assert.Equal(suite.T(), "reason", validation.Field)
}

func (suite *LedgerServiceTestSuite) TestReconcile_Consistent() {
	suite.mock.ExpectQuery(`SELECT a.balance_cents`).
		WithArgs(suite.accountID).
		WillReturnRows(pgxmock.NewRows([]string{"balance_cents", "ledger_sum"}).
			AddRow(int64(900), int64(900)))

	balance, ledger, err := suite.svc.Reconcile(suite.ctx, suite.accountID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(900), balance)
	assert.Equal(suite.T(), int64(900), ledger)
}

func (suite *LedgerServiceTestSuite) TestReconcile_DriftReportedNotRepaired() {
	suite.mock.ExpectQuery(`SELECT a.balance_cents`).
		WithArgs(suite.accountID).
		WillReturnRows(pgxmock.NewRows([]string{"balance_cents", "ledger_sum"}).
			AddRow(int64(900), int64(700)))

	balance, ledger, err := suite.svc.Reconcile(suite.ctx, suite.accountID)
	var corruption *common.LedgerCorruption
	assert.ErrorAs(suite.T(), err, &corruption)
	assert.Equal(suite.T(), int64(900), balance)
	assert.Equal(suite.T(), int64(700), ledger)
	assert.Equal(suite.T(), suite.accountID.String(), corruption.AccountID)
	// No repair writes are ever issued.
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

// stubAccountRepo serves a canned balance row and counts lookups so cache
// behavior is observable.
type stubAccountRepo struct {
	row   *models.BalanceRow
	err   error
	calls int
}

func (s *stubAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.DepositAccount, error) {
	return nil, s.err
}
func (s *stubAccountRepo) GetByCustomer(ctx context.Context, customerID uuid.UUID) (*models.DepositAccount, error) {
	return nil, s.err
}
func (s *stubAccountRepo) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*models.DepositTransaction, error) {
	return nil, s.err
}
func (s *stubAccountRepo) ListAccountIDs(ctx context.Context) ([]uuid.UUID, error) {
	return nil, s.err
}
func (s *stubAccountRepo) Balances(ctx context.Context, limit, offset int) ([]*models.BalanceRow, error) {
	return nil, s.err
}
func (s *stubAccountRepo) BalanceByCustomer(ctx context.Context, customerID uuid.UUID) (*models.BalanceRow, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.row, nil
}

// stubBalanceCache keeps at most one balance row in memory.
type stubBalanceCache struct {
	row     *models.BalanceRow
	sets    int
	deletes int
}

func (s *stubBalanceCache) GetCatalogEntry(ctx context.Context, catalogID uuid.UUID) (*models.CatalogEntry, error) {
	return nil, nil
}
func (s *stubBalanceCache) SetCatalogEntry(ctx context.Context, entry *models.CatalogEntry, ttl time.Duration) error {
	return nil
}
func (s *stubBalanceCache) DeleteCatalogEntry(ctx context.Context, catalogID uuid.UUID) error {
	return nil
}
func (s *stubBalanceCache) GetLastLocation(ctx context.Context, instanceID uuid.UUID) (*models.LastLocation, error) {
	return nil, nil
}
func (s *stubBalanceCache) SetLastLocation(ctx context.Context, last *models.LastLocation, ttl time.Duration) error {
	return nil
}
func (s *stubBalanceCache) DeleteLastLocation(ctx context.Context, instanceID uuid.UUID) error {
	return nil
}
func (s *stubBalanceCache) GetBalance(ctx context.Context, customerID uuid.UUID) (*models.BalanceRow, error) {
	return s.row, nil
}
func (s *stubBalanceCache) SetBalance(ctx context.Context, row *models.BalanceRow, ttl time.Duration) error {
	s.row = row
	s.sets++
	return nil
}
func (s *stubBalanceCache) DeleteBalance(ctx context.Context, customerID uuid.UUID) error {
	s.row = nil
	s.deletes++
	return nil
}
func (s *stubBalanceCache) InvalidateAll(ctx context.Context) error {
	s.row = nil
	return nil
}

func TestCustomerBalance_CacheMissFillsCache(t *testing.T) {
	customerID := uuid.New()
	repo := &stubAccountRepo{row: &models.BalanceRow{CustomerID: customerID, Name: "Ada", Balance: 500, LedgerSum: 500}}
	cache := &stubBalanceCache{}
	svc := NewLedgerService(nil, repo, cache, clockwork.NewFakeClock())

	row, err := svc.CustomerBalance(context.Background(), customerID)
	assert.NoError(t, err)
	assert.Equal(t, int64(500), row.Balance)
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, 1, cache.sets)
}

func TestCustomerBalance_CacheHitSkipsRepo(t *testing.T) {
	customerID := uuid.New()
	repo := &stubAccountRepo{row: &models.BalanceRow{CustomerID: customerID, Name: "Ada", Balance: 500, LedgerSum: 500}}
	cache := &stubBalanceCache{}
	svc := NewLedgerService(nil, repo, cache, clockwork.NewFakeClock())

	ctx := context.Background()
	_, err := svc.CustomerBalance(ctx, customerID)
	assert.NoError(t, err)

	row, err := svc.CustomerBalance(ctx, customerID)
	assert.NoError(t, err)
	assert.Equal(t, customerID, row.CustomerID)
	assert.Equal(t, 1, repo.calls)
}

func TestCustomerBalance_UnknownCustomer(t *testing.T) {
	customerID := uuid.New()
	repo := &stubAccountRepo{err: common.NotFoundf("balance for customer %s", customerID)}
	svc := NewLedgerService(nil, repo, &stubBalanceCache{}, clockwork.NewFakeClock())

	_, err := svc.CustomerBalance(context.Background(), customerID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
