package models

import "time"

// Artwork is a pixel-art piece stored locally; published pieces are also
// mirrored to the backend persistence API.
type Artwork struct {
	ID             string       `json:"id"`
	Code           string       `json:"code"`
	CreatorAddress string       `json:"creator_address"`
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	PixelData      string       `json:"pixel_data"`
	Width          int          `json:"width"`
	Height         int          `json:"height"`
	UnlockPassword string       `json:"unlock_password,omitempty"`
	PriceFlow      float64      `json:"price_flow,omitempty"`
	PublishFee     float64      `json:"publish_fee,omitempty"`
	IsPublished    bool         `json:"is_published"`
	BackendID      int64        `json:"backend_id,omitempty"`
	Views          int64        `json:"views"`
	Likes          int64        `json:"likes"`
	Tiers          []UnlockTier `json:"tiers,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	PublishedAt    *time.Time   `json:"published_at,omitempty"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// UnlockTier is a paid access level offered by a published artwork.
type UnlockTier struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	AccessLevel string  `json:"access_level"`
}

// UnlockedItem records a tier a wallet address has paid to unlock.
type UnlockedItem struct {
	ArtworkID   string    `json:"artwork_id"`
	Title       string    `json:"title"`
	Creator     string    `json:"creator"`
	AccessLevel string    `json:"access_level"`
	UnlockedAt  time.Time `json:"unlocked_at"`
}

// CreateArtworkRequest is the delivery-layer payload for saving a draft.
type CreateArtworkRequest struct {
	Title       string `json:"title" binding:"required" example:"Neon Dreams"`
	Description string `json:"description" example:"A neon cityscape"`
	PixelData   string `json:"pixel_data" binding:"required"`
	Width       int    `json:"width" binding:"required,gt=0" example:"32"`
	Height      int    `json:"height" binding:"required,gt=0" example:"32"`
}

// PublishRequest is the delivery-layer payload for publishing an artwork.
type PublishRequest struct {
	Tier  string       `json:"tier" binding:"required,oneof=basic featured premium" example:"featured"`
	Price float64      `json:"price" binding:"required,gt=0" example:"2.5"`
	Tiers []UnlockTier `json:"tiers"`
}

// UnlockRequest is the delivery-layer payload for unlocking a tier.
type UnlockRequest struct {
	Tier string `json:"tier" binding:"required" example:"Premium"`
}
