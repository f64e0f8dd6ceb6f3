package upkeep

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/paycrow/paycrow-backend-go/internal/domain/offer"
	"github.com/paycrow/paycrow-backend-go/internal/domain/upkeep"
	"github.com/paycrow/paycrow-backend-go/internal/pkg/database"
	"github.com/paycrow/paycrow-backend-go/internal/pkg/pricefeed"
	"github.com/paycrow/paycrow-backend-go/internal/pkg/sse"
	"github.com/paycrow/paycrow-backend-go/internal/repository/postgresql"
	"github.com/paycrow/paycrow-backend-go/internal/service/converter"
	offerService "github.com/paycrow/paycrow-backend-go/internal/service/offer"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpkeepDB *database.DB

var testOperatorFee = decimal.RequireFromString("5000000000000000")

func upkeepTestInit(t *testing.T) {
	if testUpkeepDB != nil {
		return
	}
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	var err error
	testUpkeepDB, err = database.NewPostgreSQLDB(dsn)
	if err != nil {
		t.Fatal("Failed to connect to test database: " + err.Error())
	}
}

func truncateUpkeepTables(t *testing.T, ctx context.Context) {
	for _, table := range []string{"notifications", "payments", "offers", "accounts"} {
		_, err := testUpkeepDB.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		require.NoError(t, err)
	}
}

func createUpkeepTestAccount(t *testing.T, ctx context.Context, balance decimal.Decimal) string {
	var id string
	email := fmt.Sprintf("upkeep-%d@example.com", time.Now().UnixNano())
	err := testUpkeepDB.QueryRow(ctx, `
		INSERT INTO accounts (email, password_hash, balance)
		VALUES ($1, '*', $2)
		RETURNING id
	`, email, balance).Scan(&id)
	require.NoError(t, err)
	return id
}

// createActiveOffer inserts an already signed offer with its payment clock
// set lastPaid in the past.
func createActiveOffer(t *testing.T, ctx context.Context, employerID, employeeID string, typ offer.OfferType, perPeriod, escrow decimal.Decimal, hours int64, lastPaid time.Time) string {
	var id string
	err := testUpkeepDB.QueryRow(ctx, `
		INSERT INTO offers (employer_id, employee_id, type, state, amount, currency,
			eth_amount, duration_seconds, auto_fund_enabled, worked_hours,
			escrowed_balance, last_payment_at)
		VALUES ($1, $2, $3, 'active', 1, 'ETH', $4, 3600, false, $5, $6, $7)
		RETURNING id
	`, employerID, employeeID, typ, perPeriod, hours, escrow, lastPaid).Scan(&id)
	require.NoError(t, err)
	return id
}

func newUpkeepTestService(t *testing.T) upkeep.UpkeepService {
	accountRepo := postgresql.NewAccountRepository(testUpkeepDB)
	offerRepo := postgresql.NewOfferRepository(testUpkeepDB)
	paymentRepo := postgresql.NewPaymentRepository(testUpkeepDB)
	notificationRepo := postgresql.NewNotificationRepository(testUpkeepDB)
	conv := converter.NewConverter(pricefeed.NewStaticDefaults(), testOperatorFee, 0)
	offers := offerService.NewOfferService(testUpkeepDB, conv, sse.NewHub(), accountRepo, offerRepo, paymentRepo, notificationRepo)
	return NewUpkeepService(offerRepo, offers)
}

func TestUpkeepService_Sweep(t *testing.T) {
	ctx := context.Background()
	upkeepTestInit(t)
	truncateUpkeepTables(t, ctx)

	svc := newUpkeepTestService(t)
	operatorID := createUpkeepTestAccount(t, ctx, decimal.Zero)
	employerID := createUpkeepTestAccount(t, ctx, testOperatorFee.Mul(decimal.NewFromInt(10)))
	employeeID := createUpkeepTestAccount(t, ctx, decimal.Zero)

	perPeriod := decimal.RequireFromString("2000000000000000000")
	perHour := decimal.RequireFromString("625000000000000")

	// One overdue salary, one hourly with accrued hours, one salary paid
	// this period.
	dueSalary := createActiveOffer(t, ctx, employerID, employeeID, offer.TypeSalary,
		perPeriod, perPeriod.Mul(decimal.NewFromInt(3)), 0, time.Now().Add(-31*24*time.Hour))
	dueHourly := createActiveOffer(t, ctx, employerID, employeeID, offer.TypeHourly,
		perHour, perHour.Mul(decimal.NewFromInt(100)), 12, time.Now())
	createActiveOffer(t, ctx, employerID, employeeID, offer.TypeSalary,
		perPeriod, perPeriod.Mul(decimal.NewFromInt(3)), 0, time.Now())

	due, err := svc.CheckDue(ctx)
	require.NoError(t, err)
	assert.True(t, due)

	report, err := svc.TriggerDue(ctx, operatorID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Paid)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 0, report.Failed)

	outcomes := map[string]upkeep.SweepOutcome{}
	for _, r := range report.Results {
		outcomes[r.OfferID] = r.Outcome
	}
	assert.Equal(t, upkeep.OutcomePaid, outcomes[dueSalary])
	assert.Equal(t, upkeep.OutcomePaid, outcomes[dueHourly])

	// The operator collected one fee per payment.
	acc, err := postgresql.NewAccountRepository(testUpkeepDB).GetByID(ctx, operatorID)
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(testOperatorFee.Mul(decimal.NewFromInt(2))))

	// Everything settled: the next sweep finds nothing.
	due, err = svc.CheckDue(ctx)
	require.NoError(t, err)
	assert.False(t, due)

	report, err = svc.TriggerDue(ctx, operatorID)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Paid)
	assert.Empty(t, report.Results)
}

func TestUpkeepService_FailureIsolation(t *testing.T) {
	ctx := context.Background()
	upkeepTestInit(t)
	truncateUpkeepTables(t, ctx)

	svc := newUpkeepTestService(t)
	operatorID := createUpkeepTestAccount(t, ctx, decimal.Zero)
	employerID := createUpkeepTestAccount(t, ctx, testOperatorFee.Mul(decimal.NewFromInt(10)))
	employeeID := createUpkeepTestAccount(t, ctx, decimal.Zero)

	perPeriod := decimal.RequireFromString("2000000000000000000")

	// An overdue salary with an empty escrow fails; a funded one still pays.
	broke := createActiveOffer(t, ctx, employerID, employeeID, offer.TypeSalary,
		perPeriod, decimal.Zero, 0, time.Now().Add(-31*24*time.Hour))
	funded := createActiveOffer(t, ctx, employerID, employeeID, offer.TypeSalary,
		perPeriod, perPeriod.Mul(decimal.NewFromInt(3)), 0, time.Now().Add(-31*24*time.Hour))

	report, err := svc.TriggerDue(ctx, operatorID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Paid)
	assert.Equal(t, 1, report.Failed)

	for _, r := range report.Results {
		switch r.OfferID {
		case broke:
			assert.Equal(t, upkeep.OutcomeFailed, r.Outcome)
			assert.NotEmpty(t, r.Error)
		case funded:
			assert.Equal(t, upkeep.OutcomePaid, r.Outcome)
		}
	}

	// The failed offer left a funding alert behind.
	var count int
	err = testUpkeepDB.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE recipient_id = $1 AND type = 'contract_needs_funding' AND offer_id = $2
	`, employerID, broke).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
