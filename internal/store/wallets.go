package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"github.com/tbaschet/user-wallet-service/internal/entity"
)

const uniqueViolationCode = "23505"

func (d *DataStore) CreateWallet(ctx context.Context, userID entity.UserID) (entity.Wallet, error) {
	query := `
INSERT INTO wallets (wallet_id, user_id)
VALUES ($1, $2)
RETURNING wallet_id, user_id, hard_currency, soft_currency`

	row := d.getTXFromCtx(ctx).QueryRow(ctx, query, uuid.New(), userID)

	var wallet entity.Wallet

	err := row.Scan(
		&wallet.WalletID,
		&wallet.UserID,
		&wallet.HardCurrency,
		&wallet.SoftCurrency,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return entity.Wallet{}, entity.ErrUserExists
		}

		return entity.Wallet{}, fmt.Errorf("failed to create wallet: %w", err)
	}

	return wallet, nil
}

func (d *DataStore) DeleteWallet(ctx context.Context, walletID entity.WalletID) error {
	query := `DELETE FROM wallets WHERE wallet_id = $1`

	tag, err := d.getTXFromCtx(ctx).Exec(ctx, query, uuid.UUID(walletID))
	if err != nil {
		return fmt.Errorf("error deleting wallet %s: %w", walletID, err)
	}

	if tag.RowsAffected() == 0 {
		return entity.ErrWalletNotFound
	}

	return nil
}

// AcquireLockOnWallet reads the wallet row as a serialization gate:
// callers proceed only on true. Inside a transaction the read carries
// FOR UPDATE, so concurrent mutators block until the transaction ends.
// Query failure degrades to false, it never propagates.
func (d *DataStore) AcquireLockOnWallet(ctx context.Context, walletID entity.WalletID) bool {
	query := `SELECT wallet_id FROM wallets WHERE wallet_id = $1`

	if d.inTx(ctx) {
		query += ` FOR UPDATE`
	}

	var lockedID entity.WalletID

	err := d.getTXFromCtx(ctx).QueryRow(ctx, query, uuid.UUID(walletID)).Scan(&lockedID)
	if err != nil {
		log.Warn().Err(err).Str("walletId", walletID.String()).Msg("failed to acquire lock on wallet")

		return false
	}

	return true
}
