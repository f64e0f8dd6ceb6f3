package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/paycrow/paycrow-backend-go/internal/domain/offer"
	"github.com/paycrow/paycrow-backend-go/internal/pkg/database"
	"github.com/shopspring/decimal"
)

type offerRepository struct {
	db *database.DB
}

func NewOfferRepository(db *database.DB) offer.OfferRepository {
	return &offerRepository{db: db}
}

const offerColumns = `
	id, employer_id, employee_id, type, state, amount, currency, eth_amount,
	duration_seconds, auto_fund_enabled, last_payment_at, worked_hours,
	escrowed_balance, created_at, updated_at`

func scanOffer(row pgx.Row) (offer.Offer, error) {
	var o offer.Offer
	err := row.Scan(
		&o.ID, &o.EmployerID, &o.EmployeeID, &o.Type, &o.State, &o.Amount,
		&o.Currency, &o.EthAmount, &o.DurationSeconds, &o.AutoFundEnabled,
		&o.LastPaymentAt, &o.WorkedHours, &o.EscrowedBalance, &o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

func (r *offerRepository) Create(ctx context.Context, o offer.Offer) (offer.Offer, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO offers (
			employer_id, employee_id, type, state, amount, currency,
			eth_amount, duration_seconds, auto_fund_enabled, worked_hours,
			escrowed_balance
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10)
		RETURNING ` + offerColumns

	created, err := scanOffer(q.QueryRow(ctx, query,
		o.EmployerID, o.EmployeeID, o.Type, o.State, o.Amount, o.Currency,
		o.EthAmount, o.DurationSeconds, o.AutoFundEnabled, o.EscrowedBalance,
	))
	if err != nil {
		return offer.Offer{}, fmt.Errorf("failed to create offer: %w", err)
	}

	return created, nil
}

func (r *offerRepository) GetByID(ctx context.Context, id string) (offer.Offer, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1`

	o, err := scanOffer(q.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return offer.Offer{}, offer.ErrOfferNotFound
		}
		return offer.Offer{}, fmt.Errorf("failed to get offer: %w", err)
	}

	return o, nil
}

func (r *offerRepository) GetForUpdate(ctx context.Context, id string) (offer.Offer, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1 FOR UPDATE`

	o, err := scanOffer(q.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return offer.Offer{}, offer.ErrOfferNotFound
		}
		return offer.Offer{}, fmt.Errorf("failed to lock offer: %w", err)
	}

	return o, nil
}

func (r *offerRepository) list(ctx context.Context, query string, arg interface{}) ([]offer.Offer, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	defer rows.Close()

	var offers []offer.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate offers: %w", err)
	}

	return offers, nil
}

func (r *offerRepository) ListByEmployer(ctx context.Context, employerID string) ([]offer.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE employer_id = $1 ORDER BY created_at`
	return r.list(ctx, query, employerID)
}

func (r *offerRepository) ListByEmployee(ctx context.Context, employeeID string) ([]offer.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE employee_id = $1 ORDER BY created_at`
	return r.list(ctx, query, employeeID)
}

func (r *offerRepository) CountNonClosedByEmployer(ctx context.Context, employerID string) (int64, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT COUNT(*) FROM offers WHERE employer_id = $1 AND state <> $2`

	var count int64
	if err := q.QueryRow(ctx, query, employerID, offer.StateClosed).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count non-closed offers: %w", err)
	}

	return count, nil
}

// ListDue enumerates the sweep candidates: active salary offers whose period
// has elapsed and hourly offers carrying accrued hours. The final due check
// runs again under a row lock before any payment.
func (r *offerRepository) ListDue(ctx context.Context, now time.Time) ([]offer.Offer, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + offerColumns + `
		FROM offers
		WHERE (type = $1 AND state = $2 AND last_payment_at IS NOT NULL AND last_payment_at <= $3)
		   OR (type = $4 AND state <> $5 AND worked_hours > 0)
		ORDER BY created_at
	`

	cutoff := now.Add(-offer.SalaryPeriod)
	rows, err := q.Query(ctx, query,
		offer.TypeSalary, offer.StateActive, cutoff,
		offer.TypeHourly, offer.StateUnsigned,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list due offers: %w", err)
	}
	defer rows.Close()

	var offers []offer.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan due offer: %w", err)
		}
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate due offers: %w", err)
	}

	return offers, nil
}

func (r *offerRepository) UpdateState(ctx context.Context, id string, state offer.OfferState) error {
	q := GetQuerier(ctx, r.db)

	query := `UPDATE offers SET state = $2, updated_at = NOW() WHERE id = $1`

	tag, err := q.Exec(ctx, query, id, state)
	if err != nil {
		return fmt.Errorf("failed to update offer state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return offer.ErrOfferNotFound
	}

	return nil
}

func (r *offerRepository) Activate(ctx context.Context, id string, signedAt time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE offers
		SET state = $2, last_payment_at = $3, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query, id, offer.StateActive, signedAt)
	if err != nil {
		return fmt.Errorf("failed to activate offer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return offer.ErrOfferNotFound
	}

	return nil
}

func (r *offerRepository) UpdateEscrow(ctx context.Context, id string, escrow decimal.Decimal) error {
	q := GetQuerier(ctx, r.db)

	query := `UPDATE offers SET escrowed_balance = $2, updated_at = NOW() WHERE id = $1`

	tag, err := q.Exec(ctx, query, id, escrow)
	if err != nil {
		return fmt.Errorf("failed to update offer escrow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return offer.ErrOfferNotFound
	}

	return nil
}

func (r *offerRepository) UpdateWorkedHours(ctx context.Context, id string, hours int64) error {
	q := GetQuerier(ctx, r.db)

	query := `UPDATE offers SET worked_hours = $2, updated_at = NOW() WHERE id = $1`

	tag, err := q.Exec(ctx, query, id, hours)
	if err != nil {
		return fmt.Errorf("failed to update worked hours: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return offer.ErrOfferNotFound
	}

	return nil
}

func (r *offerRepository) RecordPayment(ctx context.Context, id string, escrow decimal.Decimal, hours int64, paidAt time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE offers
		SET escrowed_balance = $2, worked_hours = $3, last_payment_at = $4, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query, id, escrow, hours, paidAt)
	if err != nil {
		return fmt.Errorf("failed to record offer payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return offer.ErrOfferNotFound
	}

	return nil
}
