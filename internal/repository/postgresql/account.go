package postgresql

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/paycrow/paycrow-backend-go/internal/domain/account"
	"github.com/paycrow/paycrow-backend-go/internal/pkg/database"
	"github.com/shopspring/decimal"
)

type accountRepository struct {
	db *database.DB
}

func NewAccountRepository(db *database.DB) account.AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, email, password_hash, balance, created_at, updated_at`

func scanAccount(row pgx.Row) (account.Account, error) {
	var a account.Account
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Balance, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *accountRepository) Create(ctx context.Context, acc account.Account) (account.Account, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO accounts (email, password_hash)
		VALUES ($1, $2)
		RETURNING ` + accountColumns

	created, err := scanAccount(q.QueryRow(ctx, query, acc.Email, acc.PasswordHash))
	if err != nil {
		if strings.Contains(err.Error(), "accounts_email_key") {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, fmt.Errorf("failed to create account: %w", err)
	}

	return created, nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (account.Account, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	a, err := scanAccount(q.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return account.Account{}, account.ErrAccountNotFound
		}
		return account.Account{}, fmt.Errorf("failed to get account: %w", err)
	}

	return a, nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (account.Account, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	a, err := scanAccount(q.QueryRow(ctx, query, email))
	if err != nil {
		if err == pgx.ErrNoRows {
			return account.Account{}, account.ErrAccountNotFound
		}
		return account.Account{}, fmt.Errorf("failed to get account by email: %w", err)
	}

	return a, nil
}

func (r *accountRepository) GetForUpdate(ctx context.Context, id string) (account.Account, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	a, err := scanAccount(q.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return account.Account{}, account.ErrAccountNotFound
		}
		return account.Account{}, fmt.Errorf("failed to lock account: %w", err)
	}

	return a, nil
}

func (r *accountRepository) UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE accounts
		SET balance = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query, id, balance)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return account.ErrAccountNotFound
	}

	return nil
}
