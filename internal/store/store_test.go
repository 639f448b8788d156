//nolint:testpackage
package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/stretchr/testify/require"
	"github.com/tbaschet/user-wallet-service/internal/entity"
)

// These tests need a reachable database; set TEST_POSTGRES_DSN to run them.
func testStore(t *testing.T) *DataStore {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN is not set")
	}

	ctx := context.Background()

	d, err := New(ctx, Config{Dsn: dsn})
	require.NoError(t, err)

	require.NoError(t, d.Migrate(migrate.Up))

	t.Cleanup(func() {
		require.NoError(t, d.Truncate(ctx, "wallets", "users"))
		d.Close()
	})

	return d
}

func createUserWithWallet(t *testing.T, d *DataStore, userID entity.UserID) entity.Wallet {
	t.Helper()

	ctx := context.Background()

	require.NoError(t, d.InsertUser(ctx, entity.User{UserID: userID, Firstname: "Ada", Lastname: "Lovelace"}))

	wallet, err := d.CreateWallet(ctx, userID)
	require.NoError(t, err)

	return wallet
}

func TestCreateWalletDefaults(t *testing.T) {
	d := testStore(t)
	ctx := context.Background()

	wallet := createUserWithWallet(t, d, "u1")

	require.Equal(t, entity.UserID("u1"), wallet.UserID)
	require.Equal(t, int64(0), wallet.HardCurrency)
	require.Equal(t, int64(0), wallet.SoftCurrency)

	info, err := d.GetUserInfo(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, wallet.WalletID, info.Wallet.WalletID)

	_, err = d.CreateWallet(ctx, "u1")
	require.ErrorIs(t, err, entity.ErrUserExists)
}

func TestDeleteWallet(t *testing.T) {
	d := testStore(t)
	ctx := context.Background()

	wallet := createUserWithWallet(t, d, "u1")

	require.NoError(t, d.DeleteWallet(ctx, wallet.WalletID))
	require.ErrorIs(t, d.DeleteWallet(ctx, wallet.WalletID), entity.ErrWalletNotFound)
}

func TestAcquireLockOnWallet(t *testing.T) {
	d := testStore(t)
	ctx := context.Background()

	wallet := createUserWithWallet(t, d, "u1")

	require.True(t, d.AcquireLockOnWallet(ctx, wallet.WalletID))
	require.False(t, d.AcquireLockOnWallet(ctx, entity.WalletID(uuid.New())))

	err := d.DoWithTx(ctx, "lock_test", func(ctx context.Context) error {
		require.True(t, d.AcquireLockOnWallet(ctx, wallet.WalletID))

		return nil
	})
	require.NoError(t, err)
}

func TestDoWithTxRollsBackOnError(t *testing.T) {
	d := testStore(t)
	ctx := context.Background()

	err := d.DoWithTx(ctx, "rollback_test", func(ctx context.Context) error {
		if err := d.InsertUser(ctx, entity.User{UserID: "u1", Firstname: "Ada", Lastname: "Lovelace"}); err != nil {
			return err
		}

		return entity.ErrIncompleteCreation
	})
	require.ErrorIs(t, err, entity.ErrIncompleteCreation)

	_, err = d.GetUserInfo(ctx, "u1")
	require.ErrorIs(t, err, entity.ErrUserNotFound)
}

func TestSessionMisuse(t *testing.T) {
	d := testStore(t)
	ctx := context.Background()

	session, err := d.BeginSession(ctx)
	require.NoError(t, err)

	require.NoError(t, session.Rollback(ctx))
	require.ErrorIs(t, session.Commit(ctx), entity.ErrSessionClosed)
	require.ErrorIs(t, session.Rollback(ctx), entity.ErrSessionClosed)
}

func TestStreamUsersInfo(t *testing.T) {
	d := testStore(t)
	ctx := context.Background()

	createUserWithWallet(t, d, "u1")
	createUserWithWallet(t, d, "u2")

	stream, err := d.StreamUsersInfo(ctx)
	require.NoError(t, err)

	var count int

	for {
		_, ok, err := stream.Next()
		require.NoError(t, err)

		if !ok {
			break
		}

		count++
	}

	stream.Close()
	// closing twice must not leak or panic
	stream.Close()

	require.Equal(t, 2, count)

	infos, err := d.GetUsersInfo(ctx)
	require.NoError(t, err)
	require.Len(t, infos, count)
}
