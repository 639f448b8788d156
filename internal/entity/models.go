package entity

import (
	"errors"

	"github.com/google/uuid"
)

type WalletID uuid.UUID

// UserID is assigned by the caller and treated as opaque.
type UserID string

type User struct {
	UserID    UserID `json:"userId"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

type Wallet struct {
	WalletID     WalletID `json:"walletId"`
	UserID       UserID   `json:"userId"`
	HardCurrency int64    `json:"hardCurrency"`
	SoftCurrency int64    `json:"softCurrency"`
}

// UserInfo is the joined user-plus-wallet record returned by the read
// operations. Its JSON shape is also the wire format of the streamed
// endpoint, one record per line.
type UserInfo struct {
	UserID    UserID         `json:"userId"`
	Firstname string         `json:"firstname"`
	Lastname  string         `json:"lastname"`
	Wallet    UserInfoWallet `json:"Wallet"`
}

type UserInfoWallet struct {
	WalletID     WalletID `json:"walletId"`
	HardCurrency int64    `json:"hardCurrency"`
	SoftCurrency int64    `json:"softCurrency"`
}

// UserStream is a finite, forward-only, non-restartable cursor over
// joined user records. Close releases the underlying session and is
// safe to call after exhaustion or an early stop.
type UserStream interface {
	Next() (UserInfo, bool, error)
	Close()
}

type UserEvent struct {
	Type     string   `json:"type"`
	UserID   UserID   `json:"userId"`
	WalletID WalletID `json:"walletId"`
}

const (
	UserCreatedEvent = "user_created"
	UserDeletedEvent = "user_deleted"
)

var (
	ErrUserEmptyID            = errors.New("user id cannot be empty")
	ErrUserNotFound           = errors.New("no user information available")
	ErrUserExists             = errors.New("user already exists")
	ErrWalletNotFound         = errors.New("error wallet not found")
	ErrWalletLockNotAcquired  = errors.New("wallet lock not acquired")
	ErrNothingDeleted         = errors.New("delete affected no rows")
	ErrIncompleteCreation     = errors.New("user and wallet were not both created")
	ErrSessionClosed          = errors.New("session already closed")
	ErrInvalidUUIDFormat      = errors.New("invalid UUID format")
	ErrProducerNotInitialized = errors.New("producer is not initialized")
)

func (u *User) Validate() error {
	if u.UserID == "" {
		return ErrUserEmptyID
	}

	return nil
}

func NewUserInfo(user User, wallet Wallet) UserInfo {
	return UserInfo{
		UserID:    user.UserID,
		Firstname: user.Firstname,
		Lastname:  user.Lastname,
		Wallet: UserInfoWallet{
			WalletID:     wallet.WalletID,
			HardCurrency: wallet.HardCurrency,
			SoftCurrency: wallet.SoftCurrency,
		},
	}
}

func (w *WalletID) UnmarshalText(data []byte) error {
	parsed, err := uuid.Parse(string(data))
	if err != nil {
		return ErrInvalidUUIDFormat
	}

	*w = WalletID(parsed)

	return nil
}

func (w WalletID) MarshalText() ([]byte, error) {
	return []byte(uuid.UUID(w).String()), nil
}

func (w WalletID) String() string {
	return uuid.UUID(w).String()
}
