package payments

import (
	"context"
	"errors"
	"time"

	"github.com/DianaV2002/nft-evo-tickets/internal/addressing"
	apperrors "github.com/DianaV2002/nft-evo-tickets/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ledger is the payment capability the core invokes but does not own: it
// moves native currency units between accounts. The core only ever decides
// amounts and parties. Transfer takes the caller's transaction so payment
// effects commit or abort with the rest of the operation.
type Ledger interface {
	Balance(ctx context.Context, account addressing.Address) (int64, error)
	Deposit(ctx context.Context, account addressing.Address, amount int64) (int64, error)
	Transfer(ctx context.Context, tx pgx.Tx, from, to addressing.Address, amount int64) error
}

type PostgresLedger struct {
	pool *pgxpool.Pool
}

func NewPostgresLedger(pool *pgxpool.Pool) Ledger {
	return &PostgresLedger{pool: pool}
}

func (l *PostgresLedger) Balance(ctx context.Context, account addressing.Address) (int64, error) {
	var balance int64
	err := l.pool.QueryRow(ctx, `SELECT balance FROM wallets WHERE address = $1`, account).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, apperrors.ErrWalletNotFound
		}
		return 0, err
	}
	return balance, nil
}

func (l *PostgresLedger) Deposit(ctx context.Context, account addressing.Address, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, apperrors.ErrInvalidInput
	}

	query := `
		INSERT INTO wallets (address, balance)
		VALUES ($1, $2)
		ON CONFLICT (address)
		DO UPDATE SET balance = wallets.balance + $2, updated_at = $3
		RETURNING balance
	`

	var balance int64
	if err := l.pool.QueryRow(ctx, query, account, amount, time.Now().UTC()).Scan(&balance); err != nil {
		return 0, err
	}
	return balance, nil
}

// Transfer debits from and credits to. The balance predicate on the debit
// makes overdrafts impossible without a separate read; zero rows means the
// payer either does not exist or cannot cover the amount. The credit side
// is checked against overflow before it is written.
func (l *PostgresLedger) Transfer(ctx context.Context, tx pgx.Tx, from, to addressing.Address, amount int64) error {
	if amount < 0 {
		return apperrors.ErrInvalidInput
	}
	if amount == 0 {
		return nil
	}

	now := time.Now().UTC()

	result, err := tx.Exec(ctx, `
		UPDATE wallets
		SET balance = balance - $1, updated_at = $2
		WHERE address = $3 AND balance >= $1
	`, amount, now, from)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrInsufficientPayment
	}

	var current int64
	err = tx.QueryRow(ctx, `SELECT balance FROM wallets WHERE address = $1 FOR UPDATE`, to).Scan(&current)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if _, err := CheckedAdd(current, amount); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO wallets (address, balance)
		VALUES ($1, $2)
		ON CONFLICT (address)
		DO UPDATE SET balance = wallets.balance + $2, updated_at = $3
	`, to, amount, now)
	return err
}
