package repository

import (
	"context"

	"pixellar-backend/internal/features/market/models"
)

// ArtworkRepository persists artworks, the published index and per-address
// unlocked lists.
type ArtworkRepository interface {
	Create(ctx context.Context, artwork *models.Artwork) error
	// GetByID returns (nil, nil) when the artwork does not exist.
	GetByID(ctx context.Context, id string) (*models.Artwork, error)
	Update(ctx context.Context, artwork *models.Artwork) error
	List(ctx context.Context) ([]*models.Artwork, error)
	ListByCreator(ctx context.Context, address string) ([]*models.Artwork, error)
	ListPublished(ctx context.Context) ([]*models.Artwork, error)

	AddUnlocked(ctx context.Context, address string, item models.UnlockedItem) error
	ListUnlocked(ctx context.Context, address string) ([]models.UnlockedItem, error)
}
