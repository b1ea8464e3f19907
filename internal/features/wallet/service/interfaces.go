package service

import (
	"context"

	"pixellar-backend/internal/features/wallet/models"
	"pixellar-backend/internal/platform/flowaccess"
	"pixellar-backend/internal/platform/pixellarapi"
)

// Oracle is the external authority queried for identity and balance. It is
// trusted for correctness but not for availability.
type Oracle interface {
	// Authenticate starts the wallet handshake. The resolved identity
	// arrives on the Identity channel, not in the return value.
	Authenticate(ctx context.Context) error
	// Unauthenticate drops native credentials, best effort.
	Unauthenticate(ctx context.Context) error
	// Identity is the asynchronous current-identity notification channel.
	// A nil value means the oracle reports no current identity.
	Identity() <-chan *flowaccess.Identity
	// AccountInfo returns the raw fixed-point balance (1e8 scale).
	AccountInfo(ctx context.Context, address string) (uint64, error)
}

// IdentityClient resolves or creates the backend user for an address.
type IdentityClient interface {
	GetOrCreateUser(ctx context.Context, address string) (*pixellarapi.User, error)
}

// WalletService owns the connection state machine, the balance and the
// simulated transaction ledger.
type WalletService interface {
	// Run consumes oracle identity notifications until ctx is cancelled.
	Run(ctx context.Context)
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	ExecuteTransaction(ctx context.Context, kind models.TransactionKind, amount float64, subjectID, subjectLabel string) (*models.Transaction, error)
	Snapshot() models.Snapshot
	Connected() bool
	State() ConnState
	// Subscribe returns a snapshot channel and a cancel function. Every
	// state mutation publishes a fresh snapshot; slow subscribers miss
	// intermediate snapshots rather than blocking the manager.
	Subscribe() (<-chan models.Snapshot, func())
}
