package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	apperrors "pixellar-backend/internal/common/errors"
	"pixellar-backend/internal/common/logger"
	"pixellar-backend/internal/features/wallet/models"
	"pixellar-backend/internal/features/wallet/repository"
	"pixellar-backend/internal/platform/flowaccess"
	"pixellar-backend/internal/platform/pixellarapi"
)

// balanceScale converts the oracle's raw fixed-point units to a decimal
// currency amount.
const balanceScale = 1e8

// ConnState is the connection state machine state.
type ConnState string

const (
	StateDisconnected      ConnState = "disconnected"
	StateConnecting        ConnState = "connecting"
	StateConnectedNative   ConnState = "connected_native"
	StateConnectedFallback ConnState = "connected_fallback"
)

// Options configure the wallet manager policies.
type Options struct {
	// ConnectTimeout bounds the authentication handshake before the
	// fallback policy is consulted.
	ConnectTimeout time.Duration
	// FallbackAddress is the fixed address used for fallback sessions.
	FallbackAddress string
	// FallbackLimit is the number of fallback uses before the policy
	// disallows further fallback sessions. There is no automatic reset.
	FallbackLimit int
	// KeepStaleSession retains a persisted session even when the oracle
	// reports no current identity.
	KeepStaleSession bool
	// BalanceRefresh re-queries the oracle balance periodically when
	// positive.
	BalanceRefresh time.Duration
}

type walletService struct {
	oracle   Oracle
	identity IdentityClient
	store    repository.SessionStore
	opts     Options

	// opMu serializes Connect/Disconnect/ExecuteTransaction and identity
	// notifications: a single-writer queue over the session state.
	opMu sync.Mutex

	mu      sync.RWMutex
	state   ConnState
	session *models.Session
	balance float64
	ledger  []models.Transaction

	subMu     sync.Mutex
	subs      map[int]chan models.Snapshot
	nextSubID int
}

// NewWalletService creates a wallet manager. Run must be started for
// identity notifications to be consumed.
func NewWalletService(oracle Oracle, identity IdentityClient, store repository.SessionStore, opts Options) WalletService {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 2 * time.Second
	}
	if opts.FallbackLimit <= 0 {
		opts.FallbackLimit = 2
	}
	return &walletService{
		oracle:   oracle,
		identity: identity,
		store:    store,
		opts:     opts,
		state:    StateDisconnected,
		subs:     make(map[int]chan models.Snapshot),
	}
}

// Run restores persisted state and consumes oracle identity notifications
// until ctx is cancelled.
func (s *walletService) Run(ctx context.Context) {
	s.restore(ctx)

	var refresh <-chan time.Time
	if s.opts.BalanceRefresh > 0 {
		ticker := time.NewTicker(s.opts.BalanceRefresh)
		defer ticker.Stop()
		refresh = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-s.oracle.Identity():
			if !ok {
				return
			}
			s.handleIdentity(ctx, id)
		case <-refresh:
			s.refreshBalance(ctx)
		}
	}
}

// Connect races the authentication handshake against the configured
// timeout. When authentication wins, the identity notification channel
// populates the session; when the timeout wins, the fallback policy
// decides. Safe to call while already connected.
func (s *walletService) Connect(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.state = StateConnecting
	s.mu.Unlock()
	s.publish()

	// Cancelling authCtx discards the losing branch of the race instead
	// of letting it complete and overwrite state later.
	authCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.oracle.Authenticate(authCtx) }()

	timer := time.NewTimer(s.opts.ConnectTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			s.rollbackConnecting()
			return apperrors.NewAuthenticationError(err)
		}
		// The oracle publishes the identity asynchronously; Run picks it
		// up and establishes the session.
		return nil
	case <-timer.C:
		return s.connectFallback(ctx)
	case <-ctx.Done():
		s.rollbackConnecting()
		return ctx.Err()
	}
}

// Disconnect clears the session and balance, removes the persisted session
// and asks the oracle to drop native credentials. Idempotent.
func (s *walletService) Disconnect(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.oracle.Unauthenticate(ctx); err != nil {
		logger.Warn().Err(err).Msg("Unauthenticate failed")
	}

	s.mu.Lock()
	s.session = nil
	s.balance = 0
	s.state = StateDisconnected
	s.mu.Unlock()

	if err := s.store.DeleteSession(ctx); err != nil {
		logger.Warn().Err(err).Msg("Session delete failed")
	}

	s.publish()
	return nil
}

// ExecuteTransaction applies a simulated transaction: the balance mutates
// optimistically, the completed entry is prepended to the ledger, the
// ledger is persisted best-effort and the balance is reconciled against
// the oracle best-effort.
func (s *walletService) ExecuteTransaction(ctx context.Context, kind models.TransactionKind, amount float64, subjectID, subjectLabel string) (*models.Transaction, error) {
	if !kind.Valid() {
		return nil, apperrors.NewValidationError("kind", "must be purchase, sale or transfer")
	}
	if amount <= 0 {
		return nil, apperrors.NewValidationError("amount", "must be positive")
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.RLock()
	session := s.session
	balance := s.balance
	s.mu.RUnlock()

	if session == nil {
		return nil, apperrors.NewNotConnectedError()
	}

	tx := models.Transaction{
		ID:           newTransactionID(),
		Kind:         kind,
		Amount:       amount,
		SubjectID:    subjectID,
		SubjectLabel: subjectLabel,
		Timestamp:    time.Now().UTC(),
		Status:       models.StatusCompleted,
	}

	newBalance := balance + amount
	if kind == models.KindPurchase {
		newBalance = balance - amount
	}
	if newBalance < 0 {
		// The failed record is constructed but never enters the ledger;
		// the only visible effect is the error.
		tx.Status = models.StatusFailed
		return nil, apperrors.NewInsufficientBalanceError(balance, amount)
	}

	s.mu.Lock()
	s.balance = newBalance
	s.ledger = append([]models.Transaction{tx}, s.ledger...)
	ledger := s.ledger
	s.mu.Unlock()
	s.publish()

	if err := s.store.SaveTransactions(ctx, ledger); err != nil {
		logger.Warn().Err(err).Msg("Ledger persist failed")
	}

	if raw, err := s.oracle.AccountInfo(ctx, session.Address); err != nil {
		logger.Debug().Err(err).Msg("Balance reconcile failed, keeping optimistic balance")
	} else {
		s.mu.Lock()
		s.balance = float64(raw) / balanceScale
		s.mu.Unlock()
		s.publish()
	}

	return &tx, nil
}

// Snapshot returns a copy of the current wallet state.
func (s *walletService) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	transactions := make([]models.Transaction, len(s.ledger))
	copy(transactions, s.ledger)

	var session *models.Session
	if s.session != nil {
		cp := *s.session
		session = &cp
	}

	return models.Snapshot{
		Session:      session,
		Balance:      s.balance,
		Transactions: transactions,
		Connected:    s.session != nil,
	}
}

func (s *walletService) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session != nil
}

func (s *walletService) State() ConnState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers a snapshot channel. The cancel function must be
// called to release the subscription.
func (s *walletService) Subscribe() (<-chan models.Snapshot, func()) {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	ch := make(chan models.Snapshot, 8)
	s.subs[id] = ch
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (s *walletService) publish() {
	snapshot := s.Snapshot()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snapshot:
		default:
			// Slow subscribers miss intermediate snapshots.
		}
	}
}

func (s *walletService) restore(ctx context.Context) {
	if transactions, err := s.store.LoadTransactions(ctx); err != nil {
		logger.Warn().Err(err).Msg("Ledger restore failed")
	} else if len(transactions) > 0 {
		s.mu.Lock()
		s.ledger = transactions
		s.mu.Unlock()
	}

	session, err := s.store.LoadSession(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Session restore failed")
		return
	}
	if session == nil {
		return
	}

	state := StateConnectedFallback
	if session.NativeAuth {
		state = StateConnectedNative
	}
	s.mu.Lock()
	s.session = session
	s.state = state
	s.mu.Unlock()
	s.publish()

	logger.Info().Str("address", session.Address).Msg("Persisted session restored")
}

func (s *walletService) handleIdentity(ctx context.Context, id *flowaccess.Identity) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if id == nil || id.Address == "" {
		persisted, err := s.store.LoadSession(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("Session load failed")
		}
		if persisted != nil && s.opts.KeepStaleSession {
			// Stale-session-wins: a persisted session suppresses the
			// no-identity transition.
			logger.Debug().Str("address", persisted.Address).Msg("Oracle reports no identity, keeping persisted session")
			return
		}

		s.mu.Lock()
		s.session = nil
		s.balance = 0
		s.state = StateDisconnected
		s.mu.Unlock()
		s.publish()
		return
	}

	displayName := id.DisplayName
	if displayName == "" {
		displayName = id.Address
	}
	session := &models.Session{
		Address:     id.Address,
		DisplayName: displayName,
		NativeAuth:  true,
		ConnectedAt: time.Now().UTC(),
	}
	logger.Info().Str("address", id.Address).Msg("Wallet identity received")
	s.establish(ctx, session, StateConnectedNative)
}

// connectFallback runs the timeout branch of Connect. Caller holds opMu.
func (s *walletService) connectFallback(ctx context.Context) error {
	count, allowed, err := s.store.FallbackState(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Fallback state read failed, assuming defaults")
		count, allowed = 0, true
	}

	if !allowed {
		// The caller decides what to do next, e.g. a manual connect UI.
		logger.Info().Msg("Authentication timed out and fallback is exhausted")
		s.rollbackConnecting()
		return nil
	}

	count++
	if count >= s.opts.FallbackLimit {
		allowed = false
	}
	if err := s.store.SetFallbackState(ctx, count, allowed); err != nil {
		logger.Warn().Err(err).Msg("Fallback state write failed")
	}

	session := &models.Session{
		Address:     s.opts.FallbackAddress,
		DisplayName: s.opts.FallbackAddress,
		NativeAuth:  false,
		ConnectedAt: time.Now().UTC(),
	}
	logger.Info().
		Str("address", session.Address).
		Int("fallback_use_count", count).
		Bool("fallback_allowed", allowed).
		Msg("Authentication timed out, using fallback session")

	s.establish(ctx, session, StateConnectedFallback)
	return nil
}

// establish installs a session, then fetches balance, persists the session
// and attaches the backend user. Balance and identity-service failures are
// non-fatal: the session stays usable, degraded. Caller holds opMu.
func (s *walletService) establish(ctx context.Context, session *models.Session, state ConnState) {
	s.mu.Lock()
	s.session = session
	s.state = state
	s.mu.Unlock()
	s.publish()

	if raw, err := s.oracle.AccountInfo(ctx, session.Address); err != nil {
		logger.Warn().Err(err).Str("address", session.Address).Msg("Balance fetch failed")
	} else {
		s.mu.Lock()
		s.balance = float64(raw) / balanceScale
		s.mu.Unlock()
		s.publish()
	}

	if err := s.store.SaveSession(ctx, session); err != nil {
		logger.Warn().Err(err).Msg("Session persist failed")
	}

	user, err := s.identity.GetOrCreateUser(ctx, session.Address)
	if err != nil {
		logger.Warn().Err(err).Str("address", session.Address).Msg("Backend user attach failed")
		return
	}

	s.mu.Lock()
	session.BackendUser = toBackendUser(user)
	s.mu.Unlock()
	s.publish()

	if err := s.store.SaveSession(ctx, session); err != nil {
		logger.Warn().Err(err).Msg("Session persist failed")
	}
}

func (s *walletService) rollbackConnecting() {
	s.mu.Lock()
	switch {
	case s.session == nil:
		s.state = StateDisconnected
	case s.session.NativeAuth:
		s.state = StateConnectedNative
	default:
		s.state = StateConnectedFallback
	}
	s.mu.Unlock()
	s.publish()
}

func (s *walletService) refreshBalance(ctx context.Context) {
	s.mu.RLock()
	session := s.session
	s.mu.RUnlock()
	if session == nil {
		return
	}

	raw, err := s.oracle.AccountInfo(ctx, session.Address)
	if err != nil {
		logger.Debug().Err(err).Msg("Balance refresh failed")
		return
	}

	s.mu.Lock()
	s.balance = float64(raw) / balanceScale
	s.mu.Unlock()
	s.publish()
}

func toBackendUser(user *pixellarapi.User) *models.BackendUser {
	if user == nil {
		return nil
	}
	return &models.BackendUser{
		ID:            user.ID,
		WalletAddress: user.WalletAddress,
		ProfileURL:    user.ProfileURL,
		Username:      user.Username,
		AvatarURL:     user.AvatarURL,
	}
}

func newTransactionID() string {
	return "tx_" + strconv.FormatInt(time.Now().UnixNano(), 10)
}
