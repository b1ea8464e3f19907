package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"pixellar-backend/internal/features/market/models"
	"pixellar-backend/internal/features/market/repository"
)

const (
	artworkKeyPrefix = "artwork:"
	publishedSetKey  = "artworks:published"
	unlockedPrefix   = "unlocked:"
)

type artworkRepository struct {
	client *redis.Client
}

// NewArtworkRepository creates a redis-backed artwork repository.
func NewArtworkRepository(client *redis.Client) repository.ArtworkRepository {
	return &artworkRepository{client: client}
}

func artworkKey(id string) string {
	return artworkKeyPrefix + id
}

func unlockedKey(address string) string {
	return unlockedPrefix + strings.ToLower(address)
}

func (r *artworkRepository) Create(ctx context.Context, artwork *models.Artwork) error {
	return r.save(ctx, artwork)
}

func (r *artworkRepository) save(ctx context.Context, artwork *models.Artwork) error {
	data, err := json.Marshal(artwork)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, artworkKey(artwork.ID), data, 0).Err()
}

func (r *artworkRepository) GetByID(ctx context.Context, id string) (*models.Artwork, error) {
	data, err := r.client.Get(ctx, artworkKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var artwork models.Artwork
	if err := json.Unmarshal(data, &artwork); err != nil {
		return nil, err
	}
	return &artwork, nil
}

func (r *artworkRepository) Update(ctx context.Context, artwork *models.Artwork) error {
	artwork.UpdatedAt = time.Now().UTC()
	if err := r.save(ctx, artwork); err != nil {
		return err
	}
	if artwork.IsPublished {
		return r.client.SAdd(ctx, publishedSetKey, artwork.ID).Err()
	}
	return nil
}

func (r *artworkRepository) List(ctx context.Context) ([]*models.Artwork, error) {
	var artworks []*models.Artwork
	iter := r.client.Scan(ctx, 0, artworkKeyPrefix+"*", 0).Iterator()

	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}

		var artwork models.Artwork
		if err := json.Unmarshal(data, &artwork); err != nil {
			continue
		}
		artworks = append(artworks, &artwork)
	}

	return artworks, iter.Err()
}

func (r *artworkRepository) ListByCreator(ctx context.Context, address string) ([]*models.Artwork, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	var artworks []*models.Artwork
	for _, artwork := range all {
		if strings.EqualFold(artwork.CreatorAddress, address) {
			artworks = append(artworks, artwork)
		}
	}
	return artworks, nil
}

func (r *artworkRepository) ListPublished(ctx context.Context) ([]*models.Artwork, error) {
	ids, err := r.client.SMembers(ctx, publishedSetKey).Result()
	if err != nil {
		return nil, err
	}

	var artworks []*models.Artwork
	for _, id := range ids {
		artwork, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load published artwork %s: %w", id, err)
		}
		if artwork != nil {
			artworks = append(artworks, artwork)
		}
	}
	return artworks, nil
}

func (r *artworkRepository) AddUnlocked(ctx context.Context, address string, item models.UnlockedItem) error {
	items, err := r.ListUnlocked(ctx, address)
	if err != nil {
		return err
	}
	items = append(items, item)

	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, unlockedKey(address), data, 0).Err()
}

func (r *artworkRepository) ListUnlocked(ctx context.Context, address string) ([]models.UnlockedItem, error) {
	data, err := r.client.Get(ctx, unlockedKey(address)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var items []models.UnlockedItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}
