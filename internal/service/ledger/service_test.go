package ledger

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/paycrow/paycrow-backend-go/internal/domain/account"
	"github.com/paycrow/paycrow-backend-go/internal/domain/offer"
	"github.com/paycrow/paycrow-backend-go/internal/domain/payment"
	"github.com/paycrow/paycrow-backend-go/internal/pkg/database"
	"github.com/paycrow/paycrow-backend-go/internal/pkg/jwt"
	"github.com/paycrow/paycrow-backend-go/internal/pkg/pricefeed"
	"github.com/paycrow/paycrow-backend-go/internal/pkg/sse"
	"github.com/paycrow/paycrow-backend-go/internal/repository/postgresql"
	"github.com/paycrow/paycrow-backend-go/internal/service/converter"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLedgerDB *database.DB

const testSecret = "test-secret-key-for-jwt"

var testOperatorFee = decimal.RequireFromString("5000000000000000")

func ledgerTestInit(t *testing.T) {
	if testLedgerDB != nil {
		return
	}
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	var err error
	testLedgerDB, err = database.NewPostgreSQLDB(dsn)
	if err != nil {
		t.Fatal("Failed to connect to test database: " + err.Error())
	}
}

func truncateLedgerTables(t *testing.T, ctx context.Context) {
	for _, table := range []string{"notifications", "payments", "offers", "accounts"} {
		_, err := testLedgerDB.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		require.NoError(t, err)
	}
}

func createLedgerTestAccount(t *testing.T, ctx context.Context, balance decimal.Decimal) string {
	var id string
	email := fmt.Sprintf("ledger-%d@example.com", time.Now().UnixNano())
	err := testLedgerDB.QueryRow(ctx, `
		INSERT INTO accounts (email, password_hash, balance)
		VALUES ($1, '*', $2)
		RETURNING id
	`, email, balance).Scan(&id)
	require.NoError(t, err)
	return id
}

func ledgerAuthedCtx(t *testing.T, ctx context.Context, js jwt.Service, accountID string) context.Context {
	token, _, err := js.JWTAuth().Encode(map[string]interface{}{
		"account_id": accountID,
		"type":       "access",
	})
	require.NoError(t, err)
	return jwtauth.NewContext(ctx, token, nil)
}

func newTestLedgerService(operatorID string) (account.LedgerService, jwt.Service) {
	accountRepo := postgresql.NewAccountRepository(testLedgerDB)
	offerRepo := postgresql.NewOfferRepository(testLedgerDB)
	paymentRepo := postgresql.NewPaymentRepository(testLedgerDB)
	notificationRepo := postgresql.NewNotificationRepository(testLedgerDB)
	conv := converter.NewConverter(pricefeed.NewStaticDefaults(), testOperatorFee, 0)
	jwtService := jwt.NewJWTService(testSecret, "1h")
	svc := NewLedgerService(testLedgerDB, conv, sse.NewHub(), operatorID, accountRepo, offerRepo, paymentRepo, notificationRepo)
	return svc, jwtService
}

func TestLedgerService_DepositAndBalance(t *testing.T) {
	ctx := context.Background()
	ledgerTestInit(t)
	truncateLedgerTables(t, ctx)

	accID := createLedgerTestAccount(t, ctx, decimal.Zero)
	svc, jwtService := newTestLedgerService(createLedgerTestAccount(t, ctx, decimal.Zero))
	authed := ledgerAuthedCtx(t, ctx, jwtService, accID)

	amount := decimal.RequireFromString("1000000000000000000")
	balance, err := svc.Deposit(authed, account.DepositRequest{Amount: amount})
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(amount))

	balance, err = svc.Deposit(authed, account.DepositRequest{Amount: amount})
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(amount.Mul(decimal.NewFromInt(2))))

	got, err := svc.Balance(authed)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(balance.Balance))
}

func TestLedgerService_CountRequiredFund(t *testing.T) {
	ctx := context.Background()
	ledgerTestInit(t)
	truncateLedgerTables(t, ctx)

	svc, jwtService := newTestLedgerService(createLedgerTestAccount(t, ctx, decimal.Zero))
	accID := createLedgerTestAccount(t, ctx, decimal.Zero)
	authed := ledgerAuthedCtx(t, ctx, jwtService, accID)

	// 2 ETH salary: three periods of 2e18, plus one fee when auto funded.
	quote, err := svc.CountRequiredFund(authed, offer.RequiredFundRequest{
		Type: "salary", Amount: decimal.NewFromInt(2), Currency: "ETH", AutoFundEnabled: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "2000000000000000000", quote.PerPeriod.String())
	assert.Equal(t, "6005000000000000000", quote.RequiredFund.String())

	quote, err = svc.CountRequiredFund(authed, offer.RequiredFundRequest{
		Type: "salary", Amount: decimal.NewFromInt(2), Currency: "ETH",
	})
	require.NoError(t, err)
	assert.Equal(t, "6000000000000000000", quote.RequiredFund.String())
}

func TestLedgerService_CreateJobOffer_Success(t *testing.T) {
	ctx := context.Background()
	ledgerTestInit(t)
	truncateLedgerTables(t, ctx)

	operatorID := createLedgerTestAccount(t, ctx, decimal.Zero)
	svc, jwtService := newTestLedgerService(operatorID)

	// Exactly the auto-funded requirement for a 2 ETH salary.
	funding := decimal.RequireFromString("6005000000000000000")
	employerID := createLedgerTestAccount(t, ctx, funding)
	employeeID := createLedgerTestAccount(t, ctx, decimal.Zero)
	authed := ledgerAuthedCtx(t, ctx, jwtService, employerID)

	created, err := svc.CreateJobOffer(authed, offer.CreateOfferRequest{
		Type:            "salary",
		Amount:          decimal.NewFromInt(2),
		Currency:        "ETH",
		EmployeeID:      employeeID,
		DurationSeconds: 365 * 24 * 3600,
		AutoFundEnabled: true,
	})
	require.NoError(t, err)
	assert.Equal(t, string(offer.StateUnsigned), created.State)
	assert.Equal(t, "2000000000000000000", created.EthAmount.String())
	assert.Equal(t, "6000000000000000000", created.EscrowedBalance.String())

	// The employer paid everything, the operator collected the creation fee.
	accountRepo := postgresql.NewAccountRepository(testLedgerDB)
	employer, err := accountRepo.GetByID(ctx, employerID)
	require.NoError(t, err)
	assert.True(t, employer.Balance.IsZero())

	operator, err := accountRepo.GetByID(ctx, operatorID)
	require.NoError(t, err)
	assert.True(t, operator.Balance.Equal(testOperatorFee))
}

func TestLedgerService_CreateJobOffer_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	ledgerTestInit(t)
	truncateLedgerTables(t, ctx)

	svc, jwtService := newTestLedgerService(createLedgerTestAccount(t, ctx, decimal.Zero))
	employerID := createLedgerTestAccount(t, ctx, decimal.NewFromInt(1))
	employeeID := createLedgerTestAccount(t, ctx, decimal.Zero)
	authed := ledgerAuthedCtx(t, ctx, jwtService, employerID)

	_, err := svc.CreateJobOffer(authed, offer.CreateOfferRequest{
		Type:            "salary",
		Amount:          decimal.NewFromInt(2),
		Currency:        "ETH",
		EmployeeID:      employeeID,
		DurationSeconds: 3600,
	})
	assert.ErrorIs(t, err, account.ErrInsufficientFunds)

	// Nothing moved.
	accountRepo := postgresql.NewAccountRepository(testLedgerDB)
	employer, err := accountRepo.GetByID(ctx, employerID)
	require.NoError(t, err)
	assert.Equal(t, "1", employer.Balance.String())
}

func TestLedgerService_FundJobOffer(t *testing.T) {
	ctx := context.Background()
	ledgerTestInit(t)
	truncateLedgerTables(t, ctx)

	svc, jwtService := newTestLedgerService(createLedgerTestAccount(t, ctx, decimal.Zero))
	funding := decimal.RequireFromString("6000000000000000000")
	topUp := decimal.RequireFromString("1000000000000000000")
	employerID := createLedgerTestAccount(t, ctx, funding.Add(topUp))
	employeeID := createLedgerTestAccount(t, ctx, decimal.Zero)
	authed := ledgerAuthedCtx(t, ctx, jwtService, employerID)

	created, err := svc.CreateJobOffer(authed, offer.CreateOfferRequest{
		Type:            "salary",
		Amount:          decimal.NewFromInt(2),
		Currency:        "ETH",
		EmployeeID:      employeeID,
		DurationSeconds: 3600,
	})
	require.NoError(t, err)

	funded, err := svc.FundJobOffer(authed, created.ID, offer.FundOfferRequest{Amount: topUp})
	require.NoError(t, err)
	assert.Equal(t, "7000000000000000000", funded.EscrowedBalance.String())

	// A third party cannot fund the offer.
	strangerID := createLedgerTestAccount(t, ctx, topUp)
	strangerCtx := ledgerAuthedCtx(t, ctx, jwtService, strangerID)
	_, err = svc.FundJobOffer(strangerCtx, created.ID, offer.FundOfferRequest{Amount: topUp})
	assert.ErrorIs(t, err, offer.ErrInvalidOffer)
}

func TestLedgerService_Withdraw_BlockedByOpenOffer(t *testing.T) {
	ctx := context.Background()
	ledgerTestInit(t)
	truncateLedgerTables(t, ctx)

	svc, jwtService := newTestLedgerService(createLedgerTestAccount(t, ctx, decimal.Zero))
	funding := decimal.RequireFromString("7000000000000000000")
	employerID := createLedgerTestAccount(t, ctx, funding)
	employeeID := createLedgerTestAccount(t, ctx, decimal.Zero)
	authed := ledgerAuthedCtx(t, ctx, jwtService, employerID)

	created, err := svc.CreateJobOffer(authed, offer.CreateOfferRequest{
		Type:            "salary",
		Amount:          decimal.NewFromInt(2),
		Currency:        "ETH",
		EmployeeID:      employeeID,
		DurationSeconds: 3600,
	})
	require.NoError(t, err)

	_, err = svc.Withdraw(authed)
	assert.ErrorIs(t, err, account.ErrWithdrawalBlocked)

	// Closing the offer unblocks the remaining balance.
	_, err = testLedgerDB.Exec(ctx, `UPDATE offers SET state = 'closed' WHERE id = $1`, created.ID)
	require.NoError(t, err)

	withdrawal, err := svc.Withdraw(authed)
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", withdrawal.Amount.String())

	_, err = svc.Withdraw(authed)
	assert.ErrorIs(t, err, account.ErrNothingToWithdraw)
}

func TestLedgerService_FundJobOffer_ClosedOffer(t *testing.T) {
	ctx := context.Background()
	ledgerTestInit(t)
	truncateLedgerTables(t, ctx)

	svc, jwtService := newTestLedgerService(createLedgerTestAccount(t, ctx, decimal.Zero))
	funding := decimal.RequireFromString("6000000000000000000")
	topUp := decimal.RequireFromString("1000000000000000000")
	employerID := createLedgerTestAccount(t, ctx, funding.Add(topUp))
	employeeID := createLedgerTestAccount(t, ctx, decimal.Zero)
	authed := ledgerAuthedCtx(t, ctx, jwtService, employerID)

	created, err := svc.CreateJobOffer(authed, offer.CreateOfferRequest{
		Type:            "salary",
		Amount:          decimal.NewFromInt(2),
		Currency:        "ETH",
		EmployeeID:      employeeID,
		DurationSeconds: 3600,
	})
	require.NoError(t, err)

	_, err = testLedgerDB.Exec(ctx, `UPDATE offers SET state = 'closed' WHERE id = $1`, created.ID)
	require.NoError(t, err)

	// A closed offer's escrow can only flow out, never in.
	_, err = svc.FundJobOffer(authed, created.ID, offer.FundOfferRequest{Amount: topUp})
	assert.ErrorIs(t, err, offer.ErrInvalidState)

	balance, err := svc.Balance(authed)
	require.NoError(t, err)
	assert.Equal(t, topUp.String(), balance.Balance.String())

	var escrow decimal.Decimal
	err = testLedgerDB.QueryRow(ctx, `SELECT escrowed_balance FROM offers WHERE id = $1`, created.ID).Scan(&escrow)
	require.NoError(t, err)
	assert.Equal(t, funding.String(), escrow.String())
}

func TestLedgerService_History(t *testing.T) {
	ctx := context.Background()
	ledgerTestInit(t)
	truncateLedgerTables(t, ctx)

	svc, jwtService := newTestLedgerService(createLedgerTestAccount(t, ctx, decimal.Zero))
	employerID := createLedgerTestAccount(t, ctx, decimal.Zero)
	employeeID := createLedgerTestAccount(t, ctx, decimal.Zero)
	authed := ledgerAuthedCtx(t, ctx, jwtService, employerID)

	deposit := decimal.RequireFromString("6000000000000000000")
	_, err := svc.Deposit(authed, account.DepositRequest{Amount: deposit})
	require.NoError(t, err)

	_, err = svc.CreateJobOffer(authed, offer.CreateOfferRequest{
		Type:            "salary",
		Amount:          decimal.NewFromInt(2),
		Currency:        "ETH",
		EmployeeID:      employeeID,
		DurationSeconds: 3600,
	})
	require.NoError(t, err)

	entries, err := svc.History(authed, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, payment.KindEscrowReserve, entries[0].Kind)
	assert.Equal(t, payment.KindDeposit, entries[1].Kind)
	assert.Equal(t, deposit.String(), entries[1].Amount.String())

	// The employee took no part in either entry.
	employeeCtx := ledgerAuthedCtx(t, ctx, jwtService, employeeID)
	entries, err = svc.History(employeeCtx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
