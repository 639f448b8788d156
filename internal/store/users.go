package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tbaschet/user-wallet-service/internal/entity"
)

const userInfoColumns = `u.user_id, u.firstname, u.lastname, w.wallet_id, w.hard_currency, w.soft_currency`

func (d *DataStore) InsertUser(ctx context.Context, user entity.User) error {
	query := `INSERT INTO users (user_id, firstname, lastname) VALUES ($1, $2, $3)`

	_, err := d.getTXFromCtx(ctx).Exec(ctx, query, user.UserID, user.Firstname, user.Lastname)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return entity.ErrUserExists
		}

		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

func (d *DataStore) DeleteUser(ctx context.Context, userID entity.UserID) error {
	query := `DELETE FROM users WHERE user_id = $1`

	tag, err := d.getTXFromCtx(ctx).Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("error deleting user %s: %w", userID, err)
	}

	if tag.RowsAffected() == 0 {
		return entity.ErrNothingDeleted
	}

	return nil
}

func (d *DataStore) GetUserInfo(ctx context.Context, userID entity.UserID) (entity.UserInfo, error) {
	query := `
SELECT ` + userInfoColumns + `
FROM users u
JOIN wallets w ON w.user_id = u.user_id
WHERE u.user_id = $1`

	var info entity.UserInfo

	err := d.getTXFromCtx(ctx).QueryRow(ctx, query, userID).Scan(
		&info.UserID,
		&info.Firstname,
		&info.Lastname,
		&info.Wallet.WalletID,
		&info.Wallet.HardCurrency,
		&info.Wallet.SoftCurrency,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.UserInfo{}, entity.ErrUserNotFound
		}

		return entity.UserInfo{}, fmt.Errorf("failed to get user info: %w", err)
	}

	return info, nil
}

func (d *DataStore) GetUsersInfo(ctx context.Context) ([]entity.UserInfo, error) {
	query := `
SELECT ` + userInfoColumns + `
FROM users u
JOIN wallets w ON w.user_id = u.user_id
ORDER BY u.user_id`

	rows, err := d.getTXFromCtx(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error getting all users info: %w", err)
	}

	defer rows.Close()

	usersInfo := make([]entity.UserInfo, 0)

	for rows.Next() {
		var info entity.UserInfo

		err = rows.Scan(
			&info.UserID,
			&info.Firstname,
			&info.Lastname,
			&info.Wallet.WalletID,
			&info.Wallet.HardCurrency,
			&info.Wallet.SoftCurrency,
		)
		if err != nil {
			return nil, fmt.Errorf("error when scanning user info: %w", err)
		}

		usersInfo = append(usersInfo, info)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err(): %w", err)
	}

	return usersInfo, nil
}

// UserInfoStream is a forward-only, non-restartable cursor over the
// joined users read. It holds a dedicated session until Close, which is
// safe to call more than once so abandoning the stream early does not
// leak the connection.
type UserInfoStream struct {
	rows    pgx.Rows
	session *Session
}

func (d *DataStore) StreamUsersInfo(ctx context.Context) (entity.UserStream, error) {
	query := `
SELECT ` + userInfoColumns + `
FROM users u
JOIN wallets w ON w.user_id = u.user_id
ORDER BY u.user_id`

	session, err := d.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open session for streamed read: %w", err)
	}

	rows, err := session.conn.Query(ctx, query)
	if err != nil {
		session.Close()

		return nil, fmt.Errorf("error streaming users info: %w", err)
	}

	return &UserInfoStream{rows: rows, session: session}, nil
}

// Next returns the following record, or ok=false once the stream is
// exhausted. After exhaustion or error the stream still must be Closed.
func (s *UserInfoStream) Next() (entity.UserInfo, bool, error) {
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return entity.UserInfo{}, false, fmt.Errorf("rows.Err(): %w", err)
		}

		return entity.UserInfo{}, false, nil
	}

	var info entity.UserInfo

	err := s.rows.Scan(
		&info.UserID,
		&info.Firstname,
		&info.Lastname,
		&info.Wallet.WalletID,
		&info.Wallet.HardCurrency,
		&info.Wallet.SoftCurrency,
	)
	if err != nil {
		return entity.UserInfo{}, false, fmt.Errorf("error when scanning streamed user info: %w", err)
	}

	return info, true, nil
}

func (s *UserInfoStream) Close() {
	s.rows.Close()
	s.session.Close()
}
