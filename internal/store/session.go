package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tbaschet/user-wallet-service/internal/entity"
)

// Session is a database connection checked out for a single logical
// operation, optionally with an open transaction. It has exactly one
// owner and must reach exactly one of Commit, Rollback or Close on
// every code path; any call after that returns ErrSessionClosed.
type Session struct {
	conn   *pgxpool.Conn
	tx     pgx.Tx
	closed bool
}

func (d *DataStore) NewSession(ctx context.Context) (*Session, error) {
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	return &Session{conn: conn}, nil
}

func (d *DataStore) BeginSession(ctx context.Context) (*Session, error) {
	session, err := d.NewSession(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := session.conn.Begin(ctx)
	if err != nil {
		session.release()

		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	session.tx = tx

	return session, nil
}

func (s *Session) Commit(ctx context.Context) error {
	if s.closed {
		return entity.ErrSessionClosed
	}

	defer s.release()

	if s.tx == nil {
		return nil
	}

	if err := s.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *Session) Rollback(ctx context.Context) error {
	if s.closed {
		return entity.ErrSessionClosed
	}

	defer s.release()

	if s.tx == nil {
		return nil
	}

	if err := s.tx.Rollback(ctx); err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return nil
}

// Close releases a session without a transaction. Unlike Commit and
// Rollback it is safe to call twice, so consumers of streamed reads can
// defer it unconditionally.
func (s *Session) Close() {
	if s.closed {
		return
	}

	s.release()
}

func (s *Session) release() {
	s.closed = true
	s.conn.Release()
}
