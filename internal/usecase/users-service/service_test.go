//nolint:testpackage
package usersservice

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tbaschet/user-wallet-service/internal/entity"
)

type fakeStore struct {
	infos map[entity.UserID]entity.UserInfo

	insertUserErr   error
	createWalletErr error
	deleteWalletErr error
	deleteUserErr   error
	lockRefused     bool

	calls []string
}

func newFakeStore(infos ...entity.UserInfo) *fakeStore {
	f := &fakeStore{infos: make(map[entity.UserID]entity.UserInfo)}
	for _, info := range infos {
		f.infos[info.UserID] = info
	}

	return f
}

func (f *fakeStore) InsertUser(_ context.Context, user entity.User) error {
	f.calls = append(f.calls, "InsertUser")

	if f.insertUserErr != nil {
		return f.insertUserErr
	}

	if _, ok := f.infos[user.UserID]; ok {
		return entity.ErrUserExists
	}

	f.infos[user.UserID] = entity.UserInfo{UserID: user.UserID, Firstname: user.Firstname, Lastname: user.Lastname}

	return nil
}

func (f *fakeStore) DeleteUser(_ context.Context, userID entity.UserID) error {
	f.calls = append(f.calls, "DeleteUser")

	if f.deleteUserErr != nil {
		return f.deleteUserErr
	}

	if _, ok := f.infos[userID]; !ok {
		return entity.ErrNothingDeleted
	}

	delete(f.infos, userID)

	return nil
}

func (f *fakeStore) GetUserInfo(_ context.Context, userID entity.UserID) (entity.UserInfo, error) {
	f.calls = append(f.calls, "GetUserInfo")

	info, ok := f.infos[userID]
	if !ok {
		return entity.UserInfo{}, entity.ErrUserNotFound
	}

	return info, nil
}

func (f *fakeStore) GetUsersInfo(_ context.Context) ([]entity.UserInfo, error) {
	infos := make([]entity.UserInfo, 0, len(f.infos))
	for _, info := range f.infos {
		infos = append(infos, info)
	}

	return infos, nil
}

type fakeStream struct {
	infos  []entity.UserInfo
	pos    int
	closed bool
}

func (f *fakeStream) Next() (entity.UserInfo, bool, error) {
	if f.pos >= len(f.infos) {
		return entity.UserInfo{}, false, nil
	}

	info := f.infos[f.pos]
	f.pos++

	return info, true, nil
}

func (f *fakeStream) Close() { f.closed = true }

func (f *fakeStore) StreamUsersInfo(ctx context.Context) (entity.UserStream, error) {
	infos, err := f.GetUsersInfo(ctx)
	if err != nil {
		return nil, err
	}

	return &fakeStream{infos: infos}, nil
}

func (f *fakeStore) CreateWallet(_ context.Context, userID entity.UserID) (entity.Wallet, error) {
	f.calls = append(f.calls, "CreateWallet")

	if f.createWalletErr != nil {
		return entity.Wallet{}, f.createWalletErr
	}

	wallet := entity.Wallet{
		WalletID: entity.WalletID(uuid.New()),
		UserID:   userID,
	}

	info := f.infos[userID]
	info.Wallet = entity.UserInfoWallet{WalletID: wallet.WalletID}
	f.infos[userID] = info

	return wallet, nil
}

func (f *fakeStore) DeleteWallet(_ context.Context, walletID entity.WalletID) error {
	f.calls = append(f.calls, "DeleteWallet")

	if f.deleteWalletErr != nil {
		return f.deleteWalletErr
	}

	return nil
}

func (f *fakeStore) AcquireLockOnWallet(_ context.Context, walletID entity.WalletID) bool {
	f.calls = append(f.calls, "AcquireLockOnWallet")

	return !f.lockRefused
}

func (f *fakeStore) DoWithTx(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	f.calls = append(f.calls, "Begin")

	if err := fn(ctx); err != nil {
		f.calls = append(f.calls, "Rollback")

		return err
	}

	f.calls = append(f.calls, "Commit")

	return nil
}

type fakeProducer struct {
	events []entity.UserEvent
	err    error
}

func (f *fakeProducer) SendUserEvent(event entity.UserEvent) error {
	if f.err != nil {
		return f.err
	}

	f.events = append(f.events, event)

	return nil
}

func newService(store *fakeStore, producer *fakeProducer, settleDelay time.Duration) *Service {
	return New(Config{SettleDelay: settleDelay}, store, store, store, producer)
}

func someUserInfo(userID entity.UserID) entity.UserInfo {
	return entity.UserInfo{
		UserID:    userID,
		Firstname: "Ada",
		Lastname:  "Lovelace",
		Wallet:    entity.UserInfoWallet{WalletID: entity.WalletID(uuid.New())},
	}
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("user and wallet created together", func(t *testing.T) {
		store := newFakeStore()
		producer := &fakeProducer{}
		svc := newService(store, producer, 0)

		info, err := svc.CreateUser(ctx, entity.User{UserID: "u1", Firstname: "Ada", Lastname: "Lovelace"})
		require.NoError(t, err)

		require.Equal(t, entity.UserID("u1"), info.UserID)
		require.Equal(t, "Ada", info.Firstname)
		require.NotEqual(t, entity.WalletID(uuid.Nil), info.Wallet.WalletID)
		require.Equal(t, int64(0), info.Wallet.HardCurrency)
		require.Equal(t, int64(0), info.Wallet.SoftCurrency)

		require.Equal(t, []string{"Begin", "InsertUser", "CreateWallet", "Commit"}, store.calls)

		require.Len(t, producer.events, 1)
		require.Equal(t, entity.UserCreatedEvent, producer.events[0].Type)
		require.Equal(t, entity.UserID("u1"), producer.events[0].UserID)
	})

	t.Run("empty user id rejected before any store call", func(t *testing.T) {
		store := newFakeStore()
		svc := newService(store, &fakeProducer{}, 0)

		_, err := svc.CreateUser(ctx, entity.User{Firstname: "Ada"})
		require.ErrorIs(t, err, entity.ErrUserEmptyID)
		require.Empty(t, store.calls)
	})

	t.Run("duplicate user surfaces as ErrUserExists", func(t *testing.T) {
		store := newFakeStore(someUserInfo("u1"))
		producer := &fakeProducer{}
		svc := newService(store, producer, 0)

		_, err := svc.CreateUser(ctx, entity.User{UserID: "u1"})
		require.ErrorIs(t, err, entity.ErrUserExists)
		require.Contains(t, store.calls, "Rollback")
		require.Empty(t, producer.events)
	})

	t.Run("wallet failure rolls the whole creation back", func(t *testing.T) {
		store := newFakeStore()
		store.createWalletErr = entity.ErrIncompleteCreation
		producer := &fakeProducer{}
		svc := newService(store, producer, 0)

		_, err := svc.CreateUser(ctx, entity.User{UserID: "u2"})
		require.ErrorIs(t, err, entity.ErrIncompleteCreation)
		require.Equal(t, []string{"Begin", "InsertUser", "CreateWallet", "Rollback"}, store.calls)
		require.Empty(t, producer.events)
	})
}

func TestGetUser(t *testing.T) {
	ctx := context.Background()

	t.Run("joined record returned", func(t *testing.T) {
		info := someUserInfo("u1")
		svc := newService(newFakeStore(info), &fakeProducer{}, 0)

		got, err := svc.GetUser(ctx, "u1")
		require.NoError(t, err)
		require.Equal(t, info, got)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc := newService(newFakeStore(), &fakeProducer{}, 0)

		_, err := svc.GetUser(ctx, "ghost")
		require.ErrorIs(t, err, entity.ErrUserNotFound)
	})
}

//nolint:funlen
func TestDeleteUser(t *testing.T) {
	ctx := context.Background()

	t.Run("wallet deleted before user, then event sent", func(t *testing.T) {
		info := someUserInfo("u1")
		store := newFakeStore(info)
		producer := &fakeProducer{}
		svc := newService(store, producer, 0)

		err := svc.DeleteUser(ctx, "u1")
		require.NoError(t, err)

		require.Equal(t, []string{"Begin", "GetUserInfo", "AcquireLockOnWallet", "DeleteWallet", "DeleteUser", "Commit"}, store.calls)

		_, err = svc.GetUser(ctx, "u1")
		require.ErrorIs(t, err, entity.ErrUserNotFound)

		require.Len(t, producer.events, 1)
		require.Equal(t, entity.UserDeletedEvent, producer.events[0].Type)
		require.Equal(t, info.Wallet.WalletID, producer.events[0].WalletID)
	})

	t.Run("settling period elapses between the two deletes", func(t *testing.T) {
		store := newFakeStore(someUserInfo("u1"))
		settleDelay := 30 * time.Millisecond
		svc := newService(store, &fakeProducer{}, settleDelay)

		started := time.Now()
		err := svc.DeleteUser(ctx, "u1")
		require.NoError(t, err)
		require.GreaterOrEqual(t, time.Since(started), settleDelay)
	})

	t.Run("unknown user aborts with no store mutation", func(t *testing.T) {
		store := newFakeStore()
		producer := &fakeProducer{}
		svc := newService(store, producer, 0)

		err := svc.DeleteUser(ctx, "ghost")
		require.ErrorIs(t, err, entity.ErrUserNotFound)
		require.Equal(t, []string{"Begin", "GetUserInfo", "Rollback"}, store.calls)
		require.Empty(t, producer.events)
	})

	t.Run("refused lock aborts before any delete", func(t *testing.T) {
		store := newFakeStore(someUserInfo("u1"))
		store.lockRefused = true
		svc := newService(store, &fakeProducer{}, 0)

		err := svc.DeleteUser(ctx, "u1")
		require.ErrorIs(t, err, entity.ErrWalletLockNotAcquired)
		require.NotContains(t, store.calls, "DeleteWallet")
		require.NotContains(t, store.calls, "DeleteUser")
	})

	t.Run("failed wallet delete aborts at step 1", func(t *testing.T) {
		store := newFakeStore(someUserInfo("u1"))
		store.deleteWalletErr = entity.ErrWalletNotFound
		svc := newService(store, &fakeProducer{}, 0)

		err := svc.DeleteUser(ctx, "u1")
		require.ErrorIs(t, err, entity.ErrWalletNotFound)
		require.ErrorContains(t, err, "step 1")
		require.NotContains(t, store.calls, "DeleteUser")
	})

	t.Run("zero rows on user delete aborts at step 2", func(t *testing.T) {
		store := newFakeStore(someUserInfo("u1"))
		store.deleteUserErr = entity.ErrNothingDeleted
		svc := newService(store, &fakeProducer{}, 0)

		err := svc.DeleteUser(ctx, "u1")
		require.ErrorIs(t, err, entity.ErrNothingDeleted)
		require.ErrorContains(t, err, "step 2")
		require.Contains(t, store.calls, "Rollback")
	})

	t.Run("canceled context interrupts settling", func(t *testing.T) {
		store := newFakeStore(someUserInfo("u1"))
		svc := newService(store, &fakeProducer{}, time.Minute)

		canceledCtx, cancel := context.WithCancel(ctx)
		cancel()

		err := svc.DeleteUser(canceledCtx, "u1")
		require.ErrorIs(t, err, context.Canceled)
		require.NotContains(t, store.calls, "DeleteUser")
	})

	t.Run("producer failure does not fail the deletion", func(t *testing.T) {
		store := newFakeStore(someUserInfo("u1"))
		producer := &fakeProducer{err: entity.ErrProducerNotInitialized}
		svc := newService(store, producer, 0)

		err := svc.DeleteUser(ctx, "u1")
		require.NoError(t, err)
	})
}

func TestStreamUsers(t *testing.T) {
	ctx := context.Background()

	store := newFakeStore(someUserInfo("u1"), someUserInfo("u2"))
	svc := newService(store, &fakeProducer{}, 0)

	stream, err := svc.StreamUsers(ctx)
	require.NoError(t, err)

	defer stream.Close()

	var count int

	for {
		_, ok, err := stream.Next()
		require.NoError(t, err)

		if !ok {
			break
		}

		count++
	}

	require.Equal(t, 2, count)
}
