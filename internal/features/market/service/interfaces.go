package service

import (
	"context"

	"pixellar-backend/internal/features/market/models"
	"pixellar-backend/internal/platform/pixellarapi"
)

// BackendClient mirrors published artworks to the persistence API.
type BackendClient interface {
	CreateArtwork(ctx context.Context, payload pixellarapi.ArtworkPayload) (*pixellarapi.CreatedArtwork, error)
}

// MarketService owns the local marketplace: drafts, publishing with tiered
// fees and the unlock/purchase flow. Paid operations charge the wallet
// manager's simulated ledger.
type MarketService interface {
	CreateArtwork(ctx context.Context, req models.CreateArtworkRequest) (*models.Artwork, error)
	GetArtwork(ctx context.Context, id string) (*models.Artwork, error)
	ListArtworks(ctx context.Context, publishedOnly bool, creator string) ([]*models.Artwork, error)
	Publish(ctx context.Context, id string, req models.PublishRequest) (*models.Artwork, error)
	Unlock(ctx context.Context, id string, tierName string) (*models.UnlockedItem, error)
	ListUnlocked(ctx context.Context) ([]models.UnlockedItem, error)
	Like(ctx context.Context, id string) (int64, error)
}
