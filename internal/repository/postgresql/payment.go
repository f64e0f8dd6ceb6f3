package postgresql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/paycrow/paycrow-backend-go/internal/domain/payment"
	"github.com/paycrow/paycrow-backend-go/internal/pkg/database"
)

type paymentRepository struct {
	db *database.DB
}

func NewPaymentRepository(db *database.DB) payment.PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `id, offer_id, from_account, to_account, kind, amount, created_at`

func scanEntry(row pgx.Row) (payment.Entry, error) {
	var e payment.Entry
	err := row.Scan(&e.ID, &e.OfferID, &e.FromAccount, &e.ToAccount, &e.Kind, &e.Amount, &e.CreatedAt)
	return e, err
}

func (r *paymentRepository) Record(ctx context.Context, e payment.Entry) (payment.Entry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payments (offer_id, from_account, to_account, kind, amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + paymentColumns

	created, err := scanEntry(q.QueryRow(ctx, query, e.OfferID, e.FromAccount, e.ToAccount, e.Kind, e.Amount))
	if err != nil {
		return payment.Entry{}, fmt.Errorf("failed to record payment entry: %w", err)
	}

	return created, nil
}

func (r *paymentRepository) listEntries(ctx context.Context, query string, args ...interface{}) ([]payment.Entry, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment entries: %w", err)
	}
	defer rows.Close()

	var entries []payment.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payment entries: %w", err)
	}

	return entries, nil
}

func (r *paymentRepository) ListByOffer(ctx context.Context, offerID string) ([]payment.Entry, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE offer_id = $1 ORDER BY created_at`
	return r.listEntries(ctx, query, offerID)
}

func (r *paymentRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]payment.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE from_account = $1 OR to_account = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.listEntries(ctx, query, accountID, limit)
}
