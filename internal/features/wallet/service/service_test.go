package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "pixellar-backend/internal/common/errors"
	"pixellar-backend/internal/features/wallet/models"
	"pixellar-backend/internal/platform/flowaccess"
	"pixellar-backend/internal/platform/pixellarapi"
)

type fakeOracle struct {
	mu          sync.Mutex
	authFunc    func(ctx context.Context) error
	ids         chan *flowaccess.Identity
	balances    []uint64
	unauthCalls int
	unauthErr   error
}

func newFakeOracle(balances ...uint64) *fakeOracle {
	return &fakeOracle{
		ids:      make(chan *flowaccess.Identity, 4),
		balances: balances,
	}
}

func (f *fakeOracle) Authenticate(ctx context.Context) error {
	if f.authFunc != nil {
		return f.authFunc(ctx)
	}
	return nil
}

func (f *fakeOracle) Unauthenticate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unauthCalls++
	return f.unauthErr
}

func (f *fakeOracle) Identity() <-chan *flowaccess.Identity {
	return f.ids
}

// AccountInfo pops one queued balance per call; an exhausted queue behaves
// like an unavailable oracle.
func (f *fakeOracle) AccountInfo(ctx context.Context, address string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.balances) == 0 {
		return 0, errors.New("oracle unavailable")
	}
	raw := f.balances[0]
	f.balances = f.balances[1:]
	return raw, nil
}

func (f *fakeOracle) unauthenticated() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unauthCalls
}

type fakeIdentityClient struct {
	mu    sync.Mutex
	user  *pixellarapi.User
	err   error
	calls int
}

func (f *fakeIdentityClient) GetOrCreateUser(ctx context.Context, address string) (*pixellarapi.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

type memStore struct {
	mu              sync.Mutex
	session         *models.Session
	transactions    []models.Transaction
	fallbackCount   int
	fallbackAllowed bool
	fallbackSet     bool
}

func newMemStore() *memStore {
	return &memStore{}
}

func (m *memStore) SaveSession(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *session
	m.session = &cp
	return nil
}

func (m *memStore) LoadSession(ctx context.Context) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, nil
	}
	cp := *m.session
	return &cp, nil
}

func (m *memStore) DeleteSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

func (m *memStore) SaveTransactions(ctx context.Context, transactions []models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = append([]models.Transaction(nil), transactions...)
	return nil
}

func (m *memStore) LoadTransactions(ctx context.Context) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Transaction(nil), m.transactions...), nil
}

func (m *memStore) ClearTransactions(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = nil
	return nil
}

func (m *memStore) FallbackState(ctx context.Context) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.fallbackSet {
		return 0, true, nil
	}
	return m.fallbackCount, m.fallbackAllowed, nil
}

func (m *memStore) SetFallbackState(ctx context.Context, count int, allowed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbackCount = count
	m.fallbackAllowed = allowed
	m.fallbackSet = true
	return nil
}

func (m *memStore) persistedSession() *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

func (m *memStore) fallbackState() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.fallbackSet {
		return 0, true
	}
	return m.fallbackCount, m.fallbackAllowed
}

func testOptions() Options {
	return Options{
		ConnectTimeout:   50 * time.Millisecond,
		FallbackAddress:  "0xf8d6e0586b0a20c7",
		FallbackLimit:    2,
		KeepStaleSession: true,
	}
}

// blockingAuth never resolves before the connect timeout.
func blockingAuth(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestConnectNativeScenario(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	oracle := newFakeOracle(250000000)
	oracle.authFunc = func(ctx context.Context) error {
		oracle.ids <- &flowaccess.Identity{Address: "0xABC123", DisplayName: "alice"}
		return nil
	}
	identity := &fakeIdentityClient{user: &pixellarapi.User{ID: 7, WalletAddress: "0xABC123", ProfileURL: "aBcDeFgHi"}}
	store := newMemStore()
	svc := NewWalletService(oracle, identity, store, testOptions())
	go svc.Run(ctx)

	require.NoError(t, svc.Connect(ctx))

	require.Eventually(t, func() bool {
		snap := svc.Snapshot()
		return snap.Connected && snap.Balance == 2.5 && snap.Session.BackendUser != nil
	}, time.Second, 5*time.Millisecond)

	snap := svc.Snapshot()
	assert.Equal(t, "0xABC123", snap.Session.Address)
	assert.Equal(t, "alice", snap.Session.DisplayName)
	assert.True(t, snap.Session.NativeAuth)
	assert.Equal(t, StateConnectedNative, svc.State())
	assert.Equal(t, int64(7), snap.Session.BackendUser.ID)

	// Purchase within balance: optimistic apply, reconcile unavailable.
	tx, err := svc.ExecuteTransaction(ctx, models.KindPurchase, 1.0, "42", "Neon Dreams")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, tx.Status)
	assert.Equal(t, models.KindPurchase, tx.Kind)
	assert.Equal(t, 1.0, tx.Amount)

	snap = svc.Snapshot()
	assert.Equal(t, 1.5, snap.Balance)
	require.Len(t, snap.Transactions, 1)
	assert.Equal(t, tx.ID, snap.Transactions[0].ID)

	// Purchase beyond balance: rejected, nothing mutates.
	_, err = svc.ExecuteTransaction(ctx, models.KindPurchase, 5.0, "", "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInsufficientBalance))

	snap = svc.Snapshot()
	assert.Equal(t, 1.5, snap.Balance)
	assert.Len(t, snap.Transactions, 1)

	// Session was persisted with the backend user attached.
	persisted := store.persistedSession()
	require.NotNil(t, persisted)
	assert.Equal(t, "0xABC123", persisted.Address)
	require.NotNil(t, persisted.BackendUser)
	assert.Equal(t, int64(7), persisted.BackendUser.ID)
}

func TestConnectAuthFailure(t *testing.T) {
	oracle := newFakeOracle()
	oracle.authFunc = func(ctx context.Context) error {
		return errors.New("user rejected")
	}
	svc := NewWalletService(oracle, &fakeIdentityClient{}, newMemStore(), testOptions())

	err := svc.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAuthentication))
	assert.False(t, svc.Connected())
	assert.Equal(t, StateDisconnected, svc.State())
}

func TestConnectTimeoutFallback(t *testing.T) {
	ctx := context.Background()
	oracle := newFakeOracle()
	oracle.authFunc = blockingAuth
	identity := &fakeIdentityClient{err: errors.New("backend down")}
	store := newMemStore()
	svc := NewWalletService(oracle, identity, store, testOptions())

	require.NoError(t, svc.Connect(ctx))
	snap := svc.Snapshot()
	require.True(t, snap.Connected)
	assert.Equal(t, "0xf8d6e0586b0a20c7", snap.Session.Address)
	assert.False(t, snap.Session.NativeAuth)
	assert.Equal(t, StateConnectedFallback, svc.State())

	count, allowed := store.fallbackState()
	assert.Equal(t, 1, count)
	assert.True(t, allowed)
}

func TestFallbackExhaustion(t *testing.T) {
	ctx := context.Background()
	oracle := newFakeOracle()
	oracle.authFunc = blockingAuth
	store := newMemStore()
	svc := NewWalletService(oracle, &fakeIdentityClient{err: errors.New("backend down")}, store, testOptions())

	// First timed-out connect uses fallback.
	require.NoError(t, svc.Connect(ctx))
	require.True(t, svc.Connected())
	count, allowed := store.fallbackState()
	assert.Equal(t, 1, count)
	assert.True(t, allowed)

	require.NoError(t, svc.Disconnect(ctx))

	// Second use exhausts the policy.
	require.NoError(t, svc.Connect(ctx))
	require.True(t, svc.Connected())
	count, allowed = store.fallbackState()
	assert.Equal(t, 2, count)
	assert.False(t, allowed)

	require.NoError(t, svc.Disconnect(ctx))

	// Third call may not establish a fallback session.
	require.NoError(t, svc.Connect(ctx))
	assert.False(t, svc.Connected())
	assert.Equal(t, StateDisconnected, svc.State())
	count, allowed = store.fallbackState()
	assert.Equal(t, 2, count)
	assert.False(t, allowed)
}

func TestExecuteTransactionNotConnected(t *testing.T) {
	svc := NewWalletService(newFakeOracle(), &fakeIdentityClient{}, newMemStore(), testOptions())

	_, err := svc.ExecuteTransaction(context.Background(), models.KindPurchase, 1.0, "", "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotConnected))
}

func TestExecuteTransactionValidation(t *testing.T) {
	svc := NewWalletService(newFakeOracle(), &fakeIdentityClient{}, newMemStore(), testOptions())

	_, err := svc.ExecuteTransaction(context.Background(), "mint", 1.0, "", "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	_, err = svc.ExecuteTransaction(context.Background(), models.KindSale, -1.0, "", "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
}

func TestSaleIncreasesBalance(t *testing.T) {
	ctx := context.Background()
	oracle := newFakeOracle()
	oracle.authFunc = blockingAuth
	store := newMemStore()
	svc := NewWalletService(oracle, &fakeIdentityClient{err: errors.New("backend down")}, store, testOptions())

	require.NoError(t, svc.Connect(ctx))
	require.True(t, svc.Connected())
	assert.Equal(t, 0.0, svc.Snapshot().Balance)

	tx, err := svc.ExecuteTransaction(ctx, models.KindSale, 3.25, "9", "Retro Sunset")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, tx.Status)
	assert.Equal(t, models.KindSale, tx.Kind)

	snap := svc.Snapshot()
	assert.Equal(t, 3.25, snap.Balance)
	require.Len(t, snap.Transactions, 1)

	// Ledger snapshot was persisted.
	persisted, err := store.LoadTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, tx.ID, persisted[0].ID)
}

func TestLedgerOrderingNewestFirst(t *testing.T) {
	ctx := context.Background()
	oracle := newFakeOracle()
	oracle.authFunc = blockingAuth
	svc := NewWalletService(oracle, &fakeIdentityClient{err: errors.New("backend down")}, newMemStore(), testOptions())

	require.NoError(t, svc.Connect(ctx))
	for _, amount := range []float64{1, 2, 3} {
		_, err := svc.ExecuteTransaction(ctx, models.KindSale, amount, "", "")
		require.NoError(t, err)
	}

	snap := svc.Snapshot()
	require.Len(t, snap.Transactions, 3)
	assert.Equal(t, 3.0, snap.Transactions[0].Amount)
	assert.Equal(t, 2.0, snap.Transactions[1].Amount)
	assert.Equal(t, 1.0, snap.Transactions[2].Amount)
}

func TestDisconnect(t *testing.T) {
	ctx := context.Background()
	oracle := newFakeOracle()
	oracle.authFunc = blockingAuth
	oracle.unauthErr = errors.New("oracle offline")
	store := newMemStore()
	svc := NewWalletService(oracle, &fakeIdentityClient{err: errors.New("backend down")}, store, testOptions())

	require.NoError(t, svc.Connect(ctx))
	_, err := svc.ExecuteTransaction(ctx, models.KindSale, 2.0, "", "")
	require.NoError(t, err)

	// Unauthenticate failure is best-effort, not surfaced.
	require.NoError(t, svc.Disconnect(ctx))
	assert.False(t, svc.Connected())
	assert.Equal(t, StateDisconnected, svc.State())
	assert.Equal(t, 1, oracle.unauthenticated())

	snap := svc.Snapshot()
	assert.Equal(t, 0.0, snap.Balance)
	assert.Nil(t, snap.Session)
	// Disconnect does not clear the ledger.
	assert.Len(t, snap.Transactions, 1)
	assert.Nil(t, store.persistedSession())

	// Idempotent.
	require.NoError(t, svc.Disconnect(ctx))
	assert.False(t, svc.Connected())
}

func TestStaleSessionWins(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := newMemStore()
	require.NoError(t, store.SaveSession(ctx, &models.Session{
		Address:     "0xDEAD",
		DisplayName: "0xDEAD",
		NativeAuth:  true,
		ConnectedAt: time.Now().UTC(),
	}))

	oracle := newFakeOracle()
	svc := NewWalletService(oracle, &fakeIdentityClient{err: errors.New("backend down")}, store, testOptions())
	go svc.Run(ctx)

	require.Eventually(t, svc.Connected, time.Second, 5*time.Millisecond)

	// Oracle reports no identity; the persisted session suppresses the
	// disconnect transition.
	oracle.ids <- nil
	time.Sleep(100 * time.Millisecond)
	assert.True(t, svc.Connected())
	assert.Equal(t, "0xDEAD", svc.Snapshot().Session.Address)
}

func TestNoIdentityClearsWhenPolicyDisabled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := newMemStore()
	require.NoError(t, store.SaveSession(ctx, &models.Session{
		Address:     "0xDEAD",
		DisplayName: "0xDEAD",
		NativeAuth:  true,
		ConnectedAt: time.Now().UTC(),
	}))

	opts := testOptions()
	opts.KeepStaleSession = false
	oracle := newFakeOracle()
	svc := NewWalletService(oracle, &fakeIdentityClient{err: errors.New("backend down")}, store, opts)
	go svc.Run(ctx)

	require.Eventually(t, svc.Connected, time.Second, 5*time.Millisecond)

	oracle.ids <- nil
	require.Eventually(t, func() bool { return !svc.Connected() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0.0, svc.Snapshot().Balance)
}

func TestSingleActiveSession(t *testing.T) {
	ctx := context.Background()
	oracle := newFakeOracle()
	oracle.authFunc = blockingAuth
	store := newMemStore()
	opts := testOptions()
	opts.FallbackLimit = 10
	svc := NewWalletService(oracle, &fakeIdentityClient{err: errors.New("backend down")}, store, opts)

	// Repeated connects without disconnect never yield more than one
	// active session.
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Connect(ctx))
		snap := svc.Snapshot()
		require.True(t, snap.Connected)
		require.NotNil(t, snap.Session)
		assert.Equal(t, "0xf8d6e0586b0a20c7", snap.Session.Address)
	}
}

func TestSubscribePublishesSnapshots(t *testing.T) {
	ctx := context.Background()
	oracle := newFakeOracle()
	oracle.authFunc = blockingAuth
	svc := NewWalletService(oracle, &fakeIdentityClient{err: errors.New("backend down")}, newMemStore(), testOptions())

	ch, cancel := svc.Subscribe()
	defer cancel()

	require.NoError(t, svc.Connect(ctx))

	var connected bool
	deadline := time.After(time.Second)
	for !connected {
		select {
		case snap := <-ch:
			connected = snap.Connected
		case <-deadline:
			t.Fatal("no connected snapshot received")
		}
	}
}

func TestRestorePersistedState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := newMemStore()
	require.NoError(t, store.SaveSession(ctx, &models.Session{
		Address:     "0xABC",
		DisplayName: "alice",
		NativeAuth:  false,
		ConnectedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.SaveTransactions(ctx, []models.Transaction{{
		ID:     "tx_1",
		Kind:   models.KindSale,
		Amount: 1.0,
		Status: models.StatusCompleted,
	}}))

	svc := NewWalletService(newFakeOracle(), &fakeIdentityClient{}, store, testOptions())
	go svc.Run(ctx)

	require.Eventually(t, svc.Connected, time.Second, 5*time.Millisecond)
	snap := svc.Snapshot()
	assert.Equal(t, "0xABC", snap.Session.Address)
	assert.Equal(t, StateConnectedFallback, svc.State())
	require.Len(t, snap.Transactions, 1)
	assert.Equal(t, "tx_1", snap.Transactions[0].ID)
}
