package offer

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
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

var testOfferDB *database.DB

const testSecret = "test-secret-key-for-jwt"

var testOperatorFee = decimal.RequireFromString("5000000000000000")

type offerTestEnv struct {
	offers     offer.OfferService
	jwtService jwt.Service
	operatorID string
}

func offerTestInit(t *testing.T) {
	if testOfferDB != nil {
		return
	}
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	var err error
	testOfferDB, err = database.NewPostgreSQLDB(dsn)
	if err != nil {
		t.Fatal("Failed to connect to test database: " + err.Error())
	}
}

func truncateOfferTables(t *testing.T, ctx context.Context) {
	for _, table := range []string{"notifications", "payments", "offers", "accounts"} {
		_, err := testOfferDB.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		require.NoError(t, err)
	}
}

func createOfferTestAccount(t *testing.T, ctx context.Context, balance decimal.Decimal) string {
	var id string
	email := fmt.Sprintf("offer-%d@example.com", time.Now().UnixNano())
	err := testOfferDB.QueryRow(ctx, `
		INSERT INTO accounts (email, password_hash, balance)
		VALUES ($1, '*', $2)
		RETURNING id
	`, email, balance).Scan(&id)
	require.NoError(t, err)
	return id
}

func createTestOffer(t *testing.T, ctx context.Context, employerID, employeeID string, typ offer.OfferType, perPeriod, escrow decimal.Decimal, autoFund bool) string {
	var id string
	err := testOfferDB.QueryRow(ctx, `
		INSERT INTO offers (employer_id, employee_id, type, state, amount, currency,
			eth_amount, duration_seconds, auto_fund_enabled, escrowed_balance)
		VALUES ($1, $2, $3, 'unsigned', 1, 'ETH', $4, 3600, $5, $6)
		RETURNING id
	`, employerID, employeeID, typ, perPeriod, autoFund, escrow).Scan(&id)
	require.NoError(t, err)
	return id
}

func offerAuthedCtx(t *testing.T, ctx context.Context, js jwt.Service, accountID string) context.Context {
	token, _, err := js.JWTAuth().Encode(map[string]interface{}{
		"account_id": accountID,
		"type":       "access",
	})
	require.NoError(t, err)
	return jwtauth.NewContext(ctx, token, nil)
}

func newOfferTestEnv(t *testing.T, ctx context.Context) offerTestEnv {
	accountRepo := postgresql.NewAccountRepository(testOfferDB)
	offerRepo := postgresql.NewOfferRepository(testOfferDB)
	paymentRepo := postgresql.NewPaymentRepository(testOfferDB)
	notificationRepo := postgresql.NewNotificationRepository(testOfferDB)
	conv := converter.NewConverter(pricefeed.NewStaticDefaults(), testOperatorFee, 0)
	return offerTestEnv{
		offers:     NewOfferService(testOfferDB, conv, sse.NewHub(), accountRepo, offerRepo, paymentRepo, notificationRepo),
		jwtService: jwt.NewJWTService(testSecret, "1h"),
		operatorID: createOfferTestAccount(t, ctx, decimal.Zero),
	}
}

func accountBalance(t *testing.T, ctx context.Context, id string) decimal.Decimal {
	acc, err := postgresql.NewAccountRepository(testOfferDB).GetByID(ctx, id)
	require.NoError(t, err)
	return acc.Balance
}

func TestOfferService_SignAndClose(t *testing.T) {
	ctx := context.Background()
	offerTestInit(t)
	truncateOfferTables(t, ctx)

	env := newOfferTestEnv(t, ctx)
	employerID := createOfferTestAccount(t, ctx, decimal.Zero)
	employeeID := createOfferTestAccount(t, ctx, decimal.Zero)
	perPeriod := decimal.RequireFromString("2000000000000000000")
	offerID := createTestOffer(t, ctx, employerID, employeeID, offer.TypeSalary, perPeriod, perPeriod.Mul(decimal.NewFromInt(3)), false)

	employerCtx := offerAuthedCtx(t, ctx, env.jwtService, employerID)
	employeeCtx := offerAuthedCtx(t, ctx, env.jwtService, employeeID)

	// Only the employee may sign.
	_, err := env.offers.Sign(employerCtx, offerID)
	assert.ErrorIs(t, err, offer.ErrUnauthorized)

	signed, err := env.offers.Sign(employeeCtx, offerID)
	require.NoError(t, err)
	assert.Equal(t, string(offer.StateActive), signed.State)
	require.NotNil(t, signed.LastPaymentAt)

	// Signing twice is rejected.
	_, err = env.offers.Sign(employeeCtx, offerID)
	assert.ErrorIs(t, err, offer.ErrInvalidState)

	closed, err := env.offers.Close(employerCtx, offerID)
	require.NoError(t, err)
	assert.Equal(t, string(offer.StateClosed), closed.State)

	// Closed is terminal.
	_, err = env.offers.Close(employeeCtx, offerID)
	assert.ErrorIs(t, err, offer.ErrInvalidState)
	_, err = env.offers.PayMonthly(employerCtx, offerID)
	assert.ErrorIs(t, err, offer.ErrInvalidState)
}

func TestOfferService_Get_HiddenFromStrangers(t *testing.T) {
	ctx := context.Background()
	offerTestInit(t)
	truncateOfferTables(t, ctx)

	env := newOfferTestEnv(t, ctx)
	employerID := createOfferTestAccount(t, ctx, decimal.Zero)
	employeeID := createOfferTestAccount(t, ctx, decimal.Zero)
	strangerID := createOfferTestAccount(t, ctx, decimal.Zero)
	offerID := createTestOffer(t, ctx, employerID, employeeID, offer.TypeSalary, decimal.NewFromInt(1), decimal.NewFromInt(3), false)

	_, err := env.offers.Get(offerAuthedCtx(t, ctx, env.jwtService, employeeID), offerID)
	require.NoError(t, err)

	_, err = env.offers.Get(offerAuthedCtx(t, ctx, env.jwtService, strangerID), offerID)
	assert.ErrorIs(t, err, offer.ErrInvalidOffer)
}

func TestOfferService_PayMonthly_Direct(t *testing.T) {
	ctx := context.Background()
	offerTestInit(t)
	truncateOfferTables(t, ctx)

	env := newOfferTestEnv(t, ctx)
	employerID := createOfferTestAccount(t, ctx, decimal.Zero)
	employeeID := createOfferTestAccount(t, ctx, decimal.Zero)
	perPeriod := decimal.RequireFromString("2000000000000000000")
	offerID := createTestOffer(t, ctx, employerID, employeeID, offer.TypeSalary, perPeriod, perPeriod.Mul(decimal.NewFromInt(3)), false)

	employerCtx := offerAuthedCtx(t, ctx, env.jwtService, employerID)
	employeeCtx := offerAuthedCtx(t, ctx, env.jwtService, employeeID)

	// Unsigned offers cannot pay.
	_, err := env.offers.PayMonthly(employerCtx, offerID)
	assert.ErrorIs(t, err, offer.ErrInvalidState)

	_, err = env.offers.Sign(employeeCtx, offerID)
	require.NoError(t, err)

	// A direct employer payment is not gated on the due window and
	// carries no fee.
	paid, err := env.offers.PayMonthly(employerCtx, offerID)
	require.NoError(t, err)
	assert.True(t, paid.Amount.Equal(perPeriod))
	assert.True(t, paid.Fee.IsZero())
	assert.True(t, accountBalance(t, ctx, employeeID).Equal(perPeriod))

	// The employee cannot disburse.
	_, err = env.offers.PayMonthly(employeeCtx, offerID)
	assert.ErrorIs(t, err, offer.ErrUnauthorized)
}

func TestOfferService_PayMonthlyAsOperator_DueWindow(t *testing.T) {
	ctx := context.Background()
	offerTestInit(t)
	truncateOfferTables(t, ctx)

	env := newOfferTestEnv(t, ctx)
	employerID := createOfferTestAccount(t, ctx, testOperatorFee.Mul(decimal.NewFromInt(10)))
	employeeID := createOfferTestAccount(t, ctx, decimal.Zero)
	perPeriod := decimal.RequireFromString("2000000000000000000")
	offerID := createTestOffer(t, ctx, employerID, employeeID, offer.TypeSalary, perPeriod, perPeriod.Mul(decimal.NewFromInt(3)), false)

	_, err := env.offers.Sign(offerAuthedCtx(t, ctx, env.jwtService, employeeID), offerID)
	require.NoError(t, err)

	// Freshly signed: nothing is due yet.
	_, err = env.offers.PayMonthlyAsOperator(ctx, offerID, env.operatorID)
	assert.ErrorIs(t, err, offer.ErrNotDue)

	// One elapsed period later the trigger pays and collects the fee from
	// the employer's ledger balance.
	_, err = testOfferDB.Exec(ctx, `UPDATE offers SET last_payment_at = NOW() - INTERVAL '31 days' WHERE id = $1`, offerID)
	require.NoError(t, err)

	paid, err := env.offers.PayMonthlyAsOperator(ctx, offerID, env.operatorID)
	require.NoError(t, err)
	assert.True(t, paid.Amount.Equal(perPeriod))
	assert.True(t, paid.Fee.Equal(testOperatorFee))
	assert.True(t, accountBalance(t, ctx, employeeID).Equal(perPeriod))
	assert.True(t, accountBalance(t, ctx, env.operatorID).Equal(testOperatorFee))
	assert.True(t, accountBalance(t, ctx, employerID).Equal(testOperatorFee.Mul(decimal.NewFromInt(9))))

	// The payment clock advanced, so a second trigger skips.
	_, err = env.offers.PayMonthlyAsOperator(ctx, offerID, env.operatorID)
	assert.ErrorIs(t, err, offer.ErrNotDue)
}

func TestOfferService_HourlyFlow(t *testing.T) {
	ctx := context.Background()
	offerTestInit(t)
	truncateOfferTables(t, ctx)

	env := newOfferTestEnv(t, ctx)
	employerID := createOfferTestAccount(t, ctx, decimal.Zero)
	employeeID := createOfferTestAccount(t, ctx, decimal.Zero)
	perHour := decimal.RequireFromString("625000000000000")
	escrow := perHour.Mul(decimal.NewFromInt(offer.HourlyCoverageHours))
	offerID := createTestOffer(t, ctx, employerID, employeeID, offer.TypeHourly, perHour, escrow, false)

	employerCtx := offerAuthedCtx(t, ctx, env.jwtService, employerID)
	employeeCtx := offerAuthedCtx(t, ctx, env.jwtService, employeeID)

	_, err := env.offers.Sign(employeeCtx, offerID)
	require.NoError(t, err)

	// Only the employee accrues hours.
	_, err = env.offers.AddWorkedHours(employerCtx, offerID, offer.AddHoursRequest{Hours: 5})
	assert.ErrorIs(t, err, offer.ErrUnauthorized)

	updated, err := env.offers.AddWorkedHours(employeeCtx, offerID, offer.AddHoursRequest{Hours: 6})
	require.NoError(t, err)
	updated, err = env.offers.AddWorkedHours(employeeCtx, offerID, offer.AddHoursRequest{Hours: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(10), updated.WorkedHours)

	paid, err := env.offers.PayWorkedHours(employerCtx, offerID)
	require.NoError(t, err)
	expected := perHour.Mul(decimal.NewFromInt(10))
	assert.True(t, paid.Amount.Equal(expected))
	assert.Equal(t, int64(10), paid.PaidHours)
	assert.True(t, accountBalance(t, ctx, employeeID).Equal(expected))

	// With all hours settled a second payment is a no-op.
	paid, err = env.offers.PayWorkedHours(employerCtx, offerID)
	require.NoError(t, err)
	assert.True(t, paid.Amount.IsZero())
	assert.Equal(t, int64(0), paid.PaidHours)
	assert.True(t, accountBalance(t, ctx, employeeID).Equal(expected))

	// Hourly operations are rejected on salary offers.
	salaryID := createTestOffer(t, ctx, employerID, employeeID, offer.TypeSalary, perHour, escrow, false)
	_, err = env.offers.Sign(employeeCtx, salaryID)
	require.NoError(t, err)
	_, err = env.offers.AddWorkedHours(employeeCtx, salaryID, offer.AddHoursRequest{Hours: 1})
	assert.ErrorIs(t, err, offer.ErrInvalidOfferType)
	_, err = env.offers.PayWorkedHours(employerCtx, salaryID)
	assert.ErrorIs(t, err, offer.ErrInvalidOfferType)
}

func TestOfferService_PayWorkedHours_AfterClose(t *testing.T) {
	ctx := context.Background()
	offerTestInit(t)
	truncateOfferTables(t, ctx)

	env := newOfferTestEnv(t, ctx)
	employerID := createOfferTestAccount(t, ctx, decimal.Zero)
	employeeID := createOfferTestAccount(t, ctx, decimal.Zero)
	perHour := decimal.RequireFromString("625000000000000")
	escrow := perHour.Mul(decimal.NewFromInt(100))
	offerID := createTestOffer(t, ctx, employerID, employeeID, offer.TypeHourly, perHour, escrow, false)

	employerCtx := offerAuthedCtx(t, ctx, env.jwtService, employerID)
	employeeCtx := offerAuthedCtx(t, ctx, env.jwtService, employeeID)

	_, err := env.offers.Sign(employeeCtx, offerID)
	require.NoError(t, err)
	_, err = env.offers.AddWorkedHours(employeeCtx, offerID, offer.AddHoursRequest{Hours: 8})
	require.NoError(t, err)
	_, err = env.offers.Close(employerCtx, offerID)
	require.NoError(t, err)

	// Residual escrow cannot leave while hours are outstanding.
	_, err = env.offers.Withdraw(employerCtx, offerID)
	assert.ErrorIs(t, err, offer.ErrOutstandingHours)

	// Residual hours settle even though the contract is closed.
	paid, err := env.offers.PayWorkedHours(employerCtx, offerID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), paid.PaidHours)

	drained, err := env.offers.Withdraw(employerCtx, offerID)
	require.NoError(t, err)
	assert.True(t, drained.EscrowedBalance.IsZero())
	expectedRefund := escrow.Sub(perHour.Mul(decimal.NewFromInt(8)))
	assert.True(t, accountBalance(t, ctx, employerID).Equal(expectedRefund))
}

func TestOfferService_AutoFundTopUp(t *testing.T) {
	ctx := context.Background()
	offerTestInit(t)
	truncateOfferTables(t, ctx)

	env := newOfferTestEnv(t, ctx)
	perPeriod := decimal.RequireFromString("2000000000000000000")
	// Escrow covers half a period; the gap must come from the employer.
	escrow := perPeriod.Div(decimal.NewFromInt(2))
	employerID := createOfferTestAccount(t, ctx, perPeriod)
	employeeID := createOfferTestAccount(t, ctx, decimal.Zero)
	offerID := createTestOffer(t, ctx, employerID, employeeID, offer.TypeSalary, perPeriod, escrow, true)

	employerCtx := offerAuthedCtx(t, ctx, env.jwtService, employerID)
	_, err := env.offers.Sign(offerAuthedCtx(t, ctx, env.jwtService, employeeID), offerID)
	require.NoError(t, err)

	paid, err := env.offers.PayMonthly(employerCtx, offerID)
	require.NoError(t, err)
	assert.True(t, paid.Amount.Equal(perPeriod))
	assert.True(t, accountBalance(t, ctx, employeeID).Equal(perPeriod))
	// The employer covered the 1e18 gap out of a 2e18 balance.
	assert.True(t, accountBalance(t, ctx, employerID).Equal(escrow))
}

func TestOfferService_InsufficientEscrow_NotifiesEmployer(t *testing.T) {
	ctx := context.Background()
	offerTestInit(t)
	truncateOfferTables(t, ctx)

	env := newOfferTestEnv(t, ctx)
	perPeriod := decimal.RequireFromString("2000000000000000000")
	escrow := perPeriod.Div(decimal.NewFromInt(2))
	// No auto funding and the escrow covers only half a period.
	employerID := createOfferTestAccount(t, ctx, decimal.Zero)
	employeeID := createOfferTestAccount(t, ctx, decimal.Zero)
	offerID := createTestOffer(t, ctx, employerID, employeeID, offer.TypeSalary, perPeriod, escrow, false)

	employerCtx := offerAuthedCtx(t, ctx, env.jwtService, employerID)
	_, err := env.offers.Sign(offerAuthedCtx(t, ctx, env.jwtService, employeeID), offerID)
	require.NoError(t, err)

	_, err = env.offers.PayMonthly(employerCtx, offerID)
	assert.ErrorIs(t, err, offer.ErrInsufficientEscrow)

	// Nothing moved and the employer got a funding alert that survived the
	// rolled back payment.
	assert.True(t, accountBalance(t, ctx, employeeID).IsZero())

	var count int
	err = testOfferDB.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE recipient_id = $1 AND type = 'contract_needs_funding'
	`, employerID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestOfferService_Withdraw_RequiresClosed(t *testing.T) {
	ctx := context.Background()
	offerTestInit(t)
	truncateOfferTables(t, ctx)

	env := newOfferTestEnv(t, ctx)
	employerID := createOfferTestAccount(t, ctx, decimal.Zero)
	employeeID := createOfferTestAccount(t, ctx, decimal.Zero)
	perPeriod := decimal.RequireFromString("2000000000000000000")
	offerID := createTestOffer(t, ctx, employerID, employeeID, offer.TypeSalary, perPeriod, perPeriod.Mul(decimal.NewFromInt(3)), false)

	employerCtx := offerAuthedCtx(t, ctx, env.jwtService, employerID)
	employeeCtx := offerAuthedCtx(t, ctx, env.jwtService, employeeID)

	_, err := env.offers.Sign(employeeCtx, offerID)
	require.NoError(t, err)

	_, err = env.offers.Withdraw(employerCtx, offerID)
	assert.ErrorIs(t, err, offer.ErrInvalidState)

	// Only the employer recovers escrow.
	_, err = env.offers.Close(employerCtx, offerID)
	require.NoError(t, err)
	_, err = env.offers.Withdraw(employeeCtx, offerID)
	assert.ErrorIs(t, err, offer.ErrUnauthorized)

	drained, err := env.offers.Withdraw(employerCtx, offerID)
	require.NoError(t, err)
	assert.True(t, drained.EscrowedBalance.IsZero())
	assert.True(t, accountBalance(t, ctx, employerID).Equal(perPeriod.Mul(decimal.NewFromInt(3))))
}

func TestOfferService_Payments_AuditTrail(t *testing.T) {
	ctx := context.Background()
	offerTestInit(t)
	truncateOfferTables(t, ctx)

	env := newOfferTestEnv(t, ctx)
	employerID := createOfferTestAccount(t, ctx, decimal.Zero)
	employeeID := createOfferTestAccount(t, ctx, decimal.Zero)
	perPeriod := decimal.RequireFromString("2000000000000000000")
	offerID := createTestOffer(t, ctx, employerID, employeeID, offer.TypeSalary, perPeriod, perPeriod.Mul(decimal.NewFromInt(3)), false)

	employerCtx := offerAuthedCtx(t, ctx, env.jwtService, employerID)
	employeeCtx := offerAuthedCtx(t, ctx, env.jwtService, employeeID)

	_, err := env.offers.Sign(employeeCtx, offerID)
	require.NoError(t, err)
	_, err = env.offers.PayMonthly(employerCtx, offerID)
	require.NoError(t, err)

	entries, err := env.offers.Payments(employeeCtx, offerID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, payment.KindSalary, entries[0].Kind)
	assert.True(t, entries[0].Amount.Equal(perPeriod))
	require.NotNil(t, entries[0].ToAccount)
	assert.Equal(t, employeeID, *entries[0].ToAccount)

	// Non-parties see no trail, or the offer at all.
	strangerCtx := offerAuthedCtx(t, ctx, env.jwtService, createOfferTestAccount(t, ctx, decimal.Zero))
	_, err = env.offers.Payments(strangerCtx, offerID)
	assert.ErrorIs(t, err, offer.ErrInvalidOffer)
}

func TestOfferService_PayMonthly_MirroredOffers(t *testing.T) {
	ctx := context.Background()
	offerTestInit(t)
	truncateOfferTables(t, ctx)

	env := newOfferTestEnv(t, ctx)
	aliceID := createOfferTestAccount(t, ctx, decimal.Zero)
	bobID := createOfferTestAccount(t, ctx, decimal.Zero)
	perPeriod := decimal.RequireFromString("2000000000000000000")

	// Each employs the other; payments lock both accounts.
	aliceOffer := createTestOffer(t, ctx, aliceID, bobID, offer.TypeSalary, perPeriod, perPeriod.Mul(decimal.NewFromInt(3)), false)
	bobOffer := createTestOffer(t, ctx, bobID, aliceID, offer.TypeSalary, perPeriod, perPeriod.Mul(decimal.NewFromInt(3)), false)

	aliceCtx := offerAuthedCtx(t, ctx, env.jwtService, aliceID)
	bobCtx := offerAuthedCtx(t, ctx, env.jwtService, bobID)

	_, err := env.offers.Sign(bobCtx, aliceOffer)
	require.NoError(t, err)
	_, err = env.offers.Sign(aliceCtx, bobOffer)
	require.NoError(t, err)

	_, err = env.offers.PayMonthly(aliceCtx, aliceOffer)
	require.NoError(t, err)
	_, err = env.offers.PayMonthly(bobCtx, bobOffer)
	require.NoError(t, err)

	assert.True(t, accountBalance(t, ctx, aliceID).Equal(perPeriod))
	assert.True(t, accountBalance(t, ctx, bobID).Equal(perPeriod))
}
