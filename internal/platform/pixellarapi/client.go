package pixellarapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "pixellar-backend/internal/common/errors"
	"pixellar-backend/internal/common/logger"
	"pixellar-backend/internal/utils/random"
)

const listLimit = 1000

// Client talks to the backend identity/artwork persistence API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient initializes a backend API client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8000"
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: &http.Client{Timeout: 8 * time.Second}}
}

// User is the backend user record.
type User struct {
	ID            int64  `json:"id"`
	WalletAddress string `json:"wallet_address"`
	ProfileURL    string `json:"profile_url"`
	Username      string `json:"username,omitempty"`
	Bio           string `json:"bio,omitempty"`
	AvatarURL     string `json:"avatar_url,omitempty"`
}

type createUserRequest struct {
	WalletAddress string `json:"wallet_address"`
	Username      string `json:"username"`
	ProfileURL    string `json:"profile_url"`
}

// GetOrCreateUser resolves the backend user for a wallet address. The API
// has no lookup-by-address endpoint, so it lists up to 1000 users and
// filters client-side (case-insensitive on wallet address or the derived
// username); when no match is found it creates the user.
func (c *Client) GetOrCreateUser(ctx context.Context, address string) (*User, error) {
	username := deriveUsername(address)

	users, err := c.listUsers(ctx)
	if err != nil {
		// Lookup failures fall through to create, matching the
		// list-then-create contract.
		logger.Warn().Err(err).Msg("User list lookup failed, trying create")
	} else {
		for i := range users {
			if strings.EqualFold(users[i].WalletAddress, address) || strings.EqualFold(users[i].Username, username) {
				return &users[i], nil
			}
		}
	}

	return c.createUser(ctx, address, username)
}

func (c *Client) listUsers(ctx context.Context) ([]User, error) {
	url := fmt.Sprintf("%s/users/?limit=%d", c.baseURL, listLimit)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewRemoteLookupError("list users", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewRemoteLookupError("list users", fmt.Errorf("backend http %d", resp.StatusCode))
	}

	var users []User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, apperrors.NewRemoteLookupError("list users", err)
	}
	return users, nil
}

func (c *Client) createUser(ctx context.Context, address, username string) (*User, error) {
	payload := createUserRequest{
		WalletAddress: address,
		Username:      username,
		ProfileURL:    random.MustCode(9),
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/users/", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewRemoteLookupError("create user", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewRemoteLookupError("create user", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewRemoteLookupError("create user", fmt.Errorf("backend http %d", resp.StatusCode))
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, apperrors.NewRemoteLookupError("create user", err)
	}
	return &user, nil
}

// ArtworkPayload mirrors the backend artwork creation contract.
type ArtworkPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	PriceCents  int64  `json:"price_cents"`
	IsPublished bool   `json:"is_published"`
	OwnerID     int64  `json:"owner_id"`
}

// CreatedArtwork is the backend response for artwork creation.
type CreatedArtwork struct {
	ID int64 `json:"id"`
}

// CreateArtwork mirrors a published artwork to the backend.
func (c *Client) CreateArtwork(ctx context.Context, payload ArtworkPayload) (*CreatedArtwork, error) {
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/artworks/", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewRemoteLookupError("create artwork", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewRemoteLookupError("create artwork", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewRemoteLookupError("create artwork", fmt.Errorf("backend http %d", resp.StatusCode))
	}

	var created CreatedArtwork
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, apperrors.NewRemoteLookupError("create artwork", err)
	}
	return &created, nil
}

func deriveUsername(address string) string {
	u := address
	if len(u) >= 2 && (u[:2] == "0x" || u[:2] == "0X") {
		u = u[2:]
	}
	return strings.ToLower(u)
}
