package repository

import (
	"context"

	"pixellar-backend/internal/features/wallet/models"
)

// SessionStore is the durable key-value persistence behind the wallet
// manager: a session blob, a transactions blob and the fallback policy
// counters, each independently readable and writable. There is no
// transactional guarantee across keys.
type SessionStore interface {
	SaveSession(ctx context.Context, session *models.Session) error
	// LoadSession returns (nil, nil) when no session is persisted.
	LoadSession(ctx context.Context) (*models.Session, error)
	DeleteSession(ctx context.Context) error

	SaveTransactions(ctx context.Context, transactions []models.Transaction) error
	LoadTransactions(ctx context.Context) ([]models.Transaction, error)
	ClearTransactions(ctx context.Context) error

	// FallbackState returns (0, true) when the counters were never written.
	FallbackState(ctx context.Context) (count int, allowed bool, err error)
	SetFallbackState(ctx context.Context, count int, allowed bool) error
}
