package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"github.com/rs/zerolog/log"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/tbaschet/user-wallet-service/internal/entity"
)

//go:embed migrations
var migrations embed.FS

type DataStore struct {
	pool    *pgxpool.Pool
	dsn     string
	metrics *metrics
}

type Config struct {
	Dsn string
}

func New(ctx context.Context, conf Config) (*DataStore, error) {
	pool, err := pgxpool.New(ctx, conf.Dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("connected to database")

	return &DataStore{
		pool:    pool,
		dsn:     conf.Dsn,
		metrics: newMetrics(),
	}, nil
}

func (d *DataStore) Close() {
	d.pool.Close()
}

func (d *DataStore) Migrate(direction migrate.MigrationDirection) error {
	conn, err := sql.Open("pgx", d.dsn)
	if err != nil {
		return fmt.Errorf("failed to open sql: %w", err)
	}

	defer func() {
		err := conn.Close()
		if err != nil {
			log.Error().Msg("failed to close database")
		}
	}()

	assetDir := func() func(string) ([]string, error) {
		return func(path string) ([]string, error) {
			dirEntry, err := migrations.ReadDir(path)
			if err != nil {
				return nil, fmt.Errorf("migrations reading failed: %w", err)
			}

			entries := make([]string, 0)
			for _, e := range dirEntry {
				entries = append(entries, e.Name())
			}

			return entries, nil
		}
	}()

	asset := migrate.AssetMigrationSource{
		Asset:    migrations.ReadFile,
		AssetDir: assetDir,
		Dir:      "migrations",
	}

	if _, err = migrate.Exec(conn, "postgres", asset, direction); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

func (d *DataStore) Truncate(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if _, err := d.pool.Exec(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("error truncating table %s: %w", table, err)
		}
	}

	return nil
}

type txCtxKey string

//nolint:gochecknoglobals
var ctxKey txCtxKey = "tx"

func (d *DataStore) storeTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, ctxKey, tx)
}

type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error)
	Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row
}

func (d *DataStore) getTXFromCtx(ctx context.Context) querier {
	tx, ok := ctx.Value(ctxKey).(pgx.Tx)
	if !ok {
		return d.pool
	}

	return tx
}

func (d *DataStore) inTx(ctx context.Context) bool {
	_, ok := ctx.Value(ctxKey).(pgx.Tx)

	return ok
}

// DoWithTx runs fn inside a single transaction on a dedicated session.
// Store methods called through the returned context see the transaction;
// the session is torn down exactly once whether fn succeeds or not.
func (d *DataStore) DoWithTx(ctx context.Context, txName string, fn func(ctx context.Context) error) error {
	started := time.Now()
	defer func() {
		d.metrics.txDuration.WithLabelValues(txName).Observe(time.Since(started).Seconds())
	}()

	session, err := d.BeginSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	ctx = d.storeTx(ctx, session.tx)

	defer func() {
		if err := session.Rollback(ctx); err != nil && !errors.Is(err, entity.ErrSessionClosed) {
			log.Warn().Err(err).Msg("failed to rollback transaction")
		}
	}()

	if err := fn(ctx); err != nil {
		return fmt.Errorf("error in fn(ctx): %w", err)
	}

	if err := session.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
