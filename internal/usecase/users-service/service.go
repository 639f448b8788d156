package usersservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tbaschet/user-wallet-service/internal/entity"
)

type usersStore interface {
	InsertUser(ctx context.Context, user entity.User) error
	DeleteUser(ctx context.Context, userID entity.UserID) error
	GetUserInfo(ctx context.Context, userID entity.UserID) (entity.UserInfo, error)
	GetUsersInfo(ctx context.Context) ([]entity.UserInfo, error)
	StreamUsersInfo(ctx context.Context) (entity.UserStream, error)
}

type walletsStore interface {
	CreateWallet(ctx context.Context, userID entity.UserID) (entity.Wallet, error)
	DeleteWallet(ctx context.Context, walletID entity.WalletID) error
	AcquireLockOnWallet(ctx context.Context, walletID entity.WalletID) bool
}

type tx interface {
	DoWithTx(ctx context.Context, txName string, fn func(ctx context.Context) error) error
}

type eventProducer interface {
	SendUserEvent(event entity.UserEvent) error
}

type Config struct {
	// SettleDelay is kept from the original deployment where the backing
	// store needed time to surface the wallet delete before the user
	// delete. The surrounding transaction now provides the real
	// guarantee; set it to zero to skip the pause.
	SettleDelay time.Duration
}

type Service struct {
	cfg          Config
	usersStore   usersStore
	walletsStore walletsStore
	tx           tx
	producer     eventProducer
	metrics      *metrics
}

func New(cfg Config, usersStore usersStore, walletsStore walletsStore, tx tx, producer eventProducer) *Service {
	return &Service{
		cfg:          cfg,
		usersStore:   usersStore,
		walletsStore: walletsStore,
		tx:           tx,
		producer:     producer,
		metrics:      newMetrics(),
	}
}

// CreateUser persists the user together with its wallet. The wallet is
// created in the same transaction, so no user row is ever observable
// without a wallet.
func (s *Service) CreateUser(ctx context.Context, user entity.User) (entity.UserInfo, error) {
	if err := user.Validate(); err != nil {
		return entity.UserInfo{}, err
	}

	var info entity.UserInfo

	err := s.tx.DoWithTx(ctx, "create_user", func(ctx context.Context) error {
		if err := s.usersStore.InsertUser(ctx, user); err != nil {
			return fmt.Errorf("failed to insert user row: %w", err)
		}

		wallet, err := s.walletsStore.CreateWallet(ctx, user.UserID)
		if err != nil {
			return fmt.Errorf("failed to create wallet for user: %w", err)
		}

		info = entity.NewUserInfo(user, wallet)

		return nil
	})
	if err != nil {
		s.metrics.createFailed.Inc()

		if errors.Is(err, entity.ErrUserExists) {
			return entity.UserInfo{}, entity.ErrUserExists
		}

		return entity.UserInfo{}, fmt.Errorf("%w: %w", entity.ErrIncompleteCreation, err)
	}

	s.metrics.createCompleted.Inc()
	s.sendEvent(entity.UserCreatedEvent, info.UserID, info.Wallet.WalletID)

	return info, nil
}

func (s *Service) GetUsers(ctx context.Context) ([]entity.UserInfo, error) {
	usersInfo, err := s.usersStore.GetUsersInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}

	return usersInfo, nil
}

// StreamUsers hands out a lazy cursor over the joined read. The caller
// owns the stream and must Close it, early stop included.
func (s *Service) StreamUsers(ctx context.Context) (entity.UserStream, error) {
	stream, err := s.usersStore.StreamUsersInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to stream users: %w", err)
	}

	return stream, nil
}

func (s *Service) GetUser(ctx context.Context, userID entity.UserID) (entity.UserInfo, error) {
	info, err := s.usersStore.GetUserInfo(ctx, userID)
	if err != nil {
		if errors.Is(err, entity.ErrUserNotFound) {
			return entity.UserInfo{}, entity.ErrUserNotFound
		}

		return entity.UserInfo{}, fmt.Errorf("failed to get user: %w", err)
	}

	return info, nil
}

// DeleteUser removes the user and its wallet, wallet first so the
// wallet never outlives its owner. The whole workflow runs on one
// transactional session that is torn down exactly once on every path.
// Failures always surface as errors, never as a false result.
func (s *Service) DeleteUser(ctx context.Context, userID entity.UserID) error {
	started := time.Now()

	var walletID entity.WalletID

	err := s.tx.DoWithTx(ctx, "delete_user", func(ctx context.Context) error {
		info, err := s.usersStore.GetUserInfo(ctx, userID)
		if err != nil {
			if errors.Is(err, entity.ErrUserNotFound) {
				return entity.ErrUserNotFound
			}

			return fmt.Errorf("failed to fetch user for deletion: %w", err)
		}

		walletID = info.Wallet.WalletID

		if !s.walletsStore.AcquireLockOnWallet(ctx, walletID) {
			return entity.ErrWalletLockNotAcquired
		}

		if err := s.walletsStore.DeleteWallet(ctx, walletID); err != nil {
			return fmt.Errorf("impossible to delete the user (step 1): %w", err)
		}

		if err := s.settle(ctx); err != nil {
			return err
		}

		if err := s.usersStore.DeleteUser(ctx, userID); err != nil {
			return fmt.Errorf("impossible to delete the user (step 2): %w", err)
		}

		return nil
	})
	if err != nil {
		s.metrics.deleteFailed.Inc()

		return err
	}

	s.metrics.deleteCompleted.Inc()
	s.metrics.deleteDuration.Observe(time.Since(started).Seconds())
	s.sendEvent(entity.UserDeletedEvent, userID, walletID)

	return nil
}

func (s *Service) settle(ctx context.Context) error {
	if s.cfg.SettleDelay <= 0 {
		return nil
	}

	timer := time.NewTimer(s.cfg.SettleDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("settling interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (s *Service) sendEvent(eventType string, userID entity.UserID, walletID entity.WalletID) {
	event := entity.UserEvent{
		Type:     eventType,
		UserID:   userID,
		WalletID: walletID,
	}

	if err := s.producer.SendUserEvent(event); err != nil {
		log.Warn().Err(err).Str("type", eventType).Msg("failed to send user event")
	}
}
