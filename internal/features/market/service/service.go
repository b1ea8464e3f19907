package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	apperrors "pixellar-backend/internal/common/errors"
	"pixellar-backend/internal/common/logger"
	"pixellar-backend/internal/features/market/models"
	"pixellar-backend/internal/features/market/repository"
	walletmodels "pixellar-backend/internal/features/wallet/models"
	walletservice "pixellar-backend/internal/features/wallet/service"
	"pixellar-backend/internal/platform/pixellarapi"
	"pixellar-backend/internal/utils/random"
)

type marketService struct {
	repo    repository.ArtworkRepository
	wallet  walletservice.WalletService
	backend BackendClient
}

// NewMarketService creates the marketplace service.
func NewMarketService(repo repository.ArtworkRepository, wallet walletservice.WalletService, backend BackendClient) MarketService {
	return &marketService{
		repo:    repo,
		wallet:  wallet,
		backend: backend,
	}
}

func (s *marketService) CreateArtwork(ctx context.Context, req models.CreateArtworkRequest) (*models.Artwork, error) {
	snapshot := s.wallet.Snapshot()
	if snapshot.Session == nil {
		return nil, apperrors.NewNotConnectedError()
	}

	now := time.Now().UTC()
	artwork := &models.Artwork{
		ID:             uuid.New().String(),
		Code:           random.MustCode(artworkCodeLength),
		CreatorAddress: snapshot.Session.Address,
		Title:          req.Title,
		Description:    req.Description,
		PixelData:      req.PixelData,
		Width:          req.Width,
		Height:         req.Height,
		UnlockPassword: random.MustCode(unlockPasswordLength),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, artwork); err != nil {
		return nil, apperrors.NewCacheError("create artwork", err)
	}
	return artwork, nil
}

func (s *marketService) GetArtwork(ctx context.Context, id string) (*models.Artwork, error) {
	artwork, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewCacheError("get artwork", err)
	}
	if artwork == nil {
		return nil, apperrors.NewNotFoundError("artwork", id)
	}
	return artwork, nil
}

func (s *marketService) ListArtworks(ctx context.Context, publishedOnly bool, creator string) ([]*models.Artwork, error) {
	var (
		artworks []*models.Artwork
		err      error
	)
	switch {
	case creator != "":
		artworks, err = s.repo.ListByCreator(ctx, creator)
	case publishedOnly:
		artworks, err = s.repo.ListPublished(ctx)
	default:
		artworks, err = s.repo.List(ctx)
	}
	if err != nil {
		return nil, apperrors.NewCacheError("list artworks", err)
	}
	return artworks, nil
}

// Publish charges the tier fee through the wallet ledger, marks the
// artwork published and mirrors it to the backend best-effort.
func (s *marketService) Publish(ctx context.Context, id string, req models.PublishRequest) (*models.Artwork, error) {
	fee, ok := publishFees[req.Tier]
	if !ok {
		return nil, apperrors.NewValidationError("tier", "unknown publish tier")
	}

	artwork, err := s.GetArtwork(ctx, id)
	if err != nil {
		return nil, err
	}
	if artwork.IsPublished {
		return nil, apperrors.New(apperrors.ErrCodeConflict, "Artwork is already published")
	}

	snapshot := s.wallet.Snapshot()
	if snapshot.Session == nil {
		return nil, apperrors.NewNotConnectedError()
	}
	if snapshot.Session.Address != artwork.CreatorAddress {
		return nil, apperrors.NewForbiddenError("only the creator can publish an artwork")
	}

	// Insufficient balance aborts the publish before any state changes.
	if _, err := s.wallet.ExecuteTransaction(ctx, walletmodels.KindPurchase, fee, artwork.ID, "Publish: "+artwork.Title); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	artwork.PriceFlow = req.Price
	artwork.PublishFee = fee
	artwork.Tiers = req.Tiers
	artwork.IsPublished = true
	artwork.PublishedAt = &now

	if err := s.repo.Update(ctx, artwork); err != nil {
		return nil, apperrors.NewCacheError("publish artwork", err)
	}

	s.mirrorToBackend(ctx, artwork, snapshot.Session)
	return artwork, nil
}

// mirrorToBackend pushes a published artwork to the persistence API.
// Failures are logged; the local publish stands.
func (s *marketService) mirrorToBackend(ctx context.Context, artwork *models.Artwork, session *walletmodels.Session) {
	var ownerID int64
	if session.BackendUser != nil {
		ownerID = session.BackendUser.ID
	}

	created, err := s.backend.CreateArtwork(ctx, pixellarapi.ArtworkPayload{
		Title:       artwork.Title,
		Description: artwork.Description,
		ImageURL:    "",
		PriceCents:  int64(math.Round(artwork.PriceFlow * 100)),
		IsPublished: true,
		OwnerID:     ownerID,
	})
	if err != nil {
		logger.Warn().Err(err).Str("artwork_id", artwork.ID).Msg("Backend artwork mirror failed")
		return
	}

	artwork.BackendID = created.ID
	if err := s.repo.Update(ctx, artwork); err != nil {
		logger.Warn().Err(err).Str("artwork_id", artwork.ID).Msg("Backend ID persist failed")
	}
}

// Unlock charges the tier price through the wallet ledger and records the
// unlocked access level for the caller's address.
func (s *marketService) Unlock(ctx context.Context, id string, tierName string) (*models.UnlockedItem, error) {
	artwork, err := s.GetArtwork(ctx, id)
	if err != nil {
		return nil, err
	}
	if !artwork.IsPublished {
		return nil, apperrors.NewValidationError("artwork", "not published")
	}

	var tier *models.UnlockTier
	for i := range artwork.Tiers {
		if artwork.Tiers[i].Name == tierName {
			tier = &artwork.Tiers[i]
			break
		}
	}
	if tier == nil {
		return nil, apperrors.NewValidationError("tier", "unknown access tier")
	}

	snapshot := s.wallet.Snapshot()
	if snapshot.Session == nil {
		return nil, apperrors.NewNotConnectedError()
	}

	if _, err := s.wallet.ExecuteTransaction(ctx, walletmodels.KindPurchase, tier.Price, artwork.ID, artwork.Title+" - "+tier.Name); err != nil {
		return nil, err
	}

	item := models.UnlockedItem{
		ArtworkID:   artwork.ID,
		Title:       artwork.Title,
		Creator:     artwork.CreatorAddress,
		AccessLevel: tier.AccessLevel,
		UnlockedAt:  time.Now().UTC(),
	}
	if err := s.repo.AddUnlocked(ctx, snapshot.Session.Address, item); err != nil {
		// The charge already went through; losing the unlock record is a
		// store failure worth surfacing.
		return nil, apperrors.NewCacheError("record unlock", err)
	}
	return &item, nil
}

func (s *marketService) ListUnlocked(ctx context.Context) ([]models.UnlockedItem, error) {
	snapshot := s.wallet.Snapshot()
	if snapshot.Session == nil {
		return nil, apperrors.NewNotConnectedError()
	}

	items, err := s.repo.ListUnlocked(ctx, snapshot.Session.Address)
	if err != nil {
		return nil, apperrors.NewCacheError("list unlocked", err)
	}
	return items, nil
}

func (s *marketService) Like(ctx context.Context, id string) (int64, error) {
	artwork, err := s.GetArtwork(ctx, id)
	if err != nil {
		return 0, err
	}

	artwork.Likes++
	if err := s.repo.Update(ctx, artwork); err != nil {
		return 0, apperrors.NewCacheError("like artwork", err)
	}
	return artwork.Likes, nil
}
