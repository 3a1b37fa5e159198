package assets

import (
	"context"
	"fmt"
	"time"

	"github.com/DianaV2002/nft-evo-tickets/internal/addressing"
	apperrors "github.com/DianaV2002/nft-evo-tickets/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Metadata is the descriptive content attached to an asset unit.
type Metadata struct {
	Name       string
	Symbol     string
	URI        string
	RoyaltyBps int
}

// Registry is the unique-asset capability the core invokes but does not
// own: mint a single indivisible unit, move it between custody addresses,
// and attach or refresh descriptive metadata. Methods take the caller's
// transaction so registry effects commit or abort with the rest of the
// operation.
type Registry interface {
	MintUnit(ctx context.Context, tx pgx.Tx, unit, holder addressing.Address, meta Metadata) error
	TransferUnit(ctx context.Context, tx pgx.Tx, unit, from, to addressing.Address) error
	UpdateMetadata(ctx context.Context, tx pgx.Tx, unit addressing.Address, name, uri string) error
	Holder(ctx context.Context, unit addressing.Address) (addressing.Address, error)
}

type PostgresRegistry struct {
	pool *pgxpool.Pool
}

func NewPostgresRegistry(pool *pgxpool.Pool) Registry {
	return &PostgresRegistry{pool: pool}
}

func (r *PostgresRegistry) MintUnit(ctx context.Context, tx pgx.Tx, unit, holder addressing.Address, meta Metadata) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO asset_units (address, holder)
		VALUES ($1, $2)
	`, unit, holder)
	if err != nil {
		return fmt.Errorf("%w: mint unit: %v", apperrors.ErrAssetRegistry, err)
	}

	metaAddr := addressing.ForMetadata(unit)
	_, err = tx.Exec(ctx, `
		INSERT INTO asset_metadata (address, asset_unit, name, symbol, uri, royalty_bps)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, metaAddr, unit, meta.Name, meta.Symbol, meta.URI, meta.RoyaltyBps)
	if err != nil {
		return fmt.Errorf("%w: create metadata: %v", apperrors.ErrAssetRegistry, err)
	}
	return nil
}

// TransferUnit moves the unit from one holder to another. The holder
// predicate in the UPDATE makes the move conditional on custody actually
// being where the caller claims it is.
func (r *PostgresRegistry) TransferUnit(ctx context.Context, tx pgx.Tx, unit, from, to addressing.Address) error {
	result, err := tx.Exec(ctx, `
		UPDATE asset_units
		SET holder = $1, updated_at = $2
		WHERE address = $3 AND holder = $4
	`, to, time.Now().UTC(), unit, from)
	if err != nil {
		return fmt.Errorf("%w: transfer unit: %v", apperrors.ErrAssetRegistry, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: unit %s not held by %s", apperrors.ErrAssetRegistry, unit, from)
	}
	return nil
}

func (r *PostgresRegistry) UpdateMetadata(ctx context.Context, tx pgx.Tx, unit addressing.Address, name, uri string) error {
	result, err := tx.Exec(ctx, `
		UPDATE asset_metadata
		SET name = $1, uri = $2, updated_at = $3
		WHERE asset_unit = $4
	`, name, uri, time.Now().UTC(), unit)
	if err != nil {
		return fmt.Errorf("%w: update metadata: %v", apperrors.ErrAssetRegistry, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: no metadata for unit %s", apperrors.ErrAssetRegistry, unit)
	}
	return nil
}

func (r *PostgresRegistry) Holder(ctx context.Context, unit addressing.Address) (addressing.Address, error) {
	var holder addressing.Address
	err := r.pool.QueryRow(ctx, `SELECT holder FROM asset_units WHERE address = $1`, unit).Scan(&holder)
	if err != nil {
		if err == pgx.ErrNoRows {
			return addressing.Address{}, fmt.Errorf("%w: unknown unit %s", apperrors.ErrAssetRegistry, unit)
		}
		return addressing.Address{}, err
	}
	return holder, nil
}
