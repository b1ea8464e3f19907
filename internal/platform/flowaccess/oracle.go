package flowaccess

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"pixellar-backend/internal/common/logger"
)

// Identity is the account identity reported by the wallet handshake.
type Identity struct {
	Address     string `json:"address"`
	DisplayName string `json:"nickname"`
}

// Oracle drives the wallet authentication handshake against a discovery
// endpoint and publishes identity changes on a notification channel. A nil
// identity on the channel means "no current identity".
type Oracle struct {
	client       *Client
	discoveryURL string
	httpClient   *http.Client
	ids          chan *Identity
}

// NewOracle creates an authentication oracle backed by the given access
// node client and wallet discovery endpoint.
func NewOracle(client *Client, discoveryURL string) *Oracle {
	return &Oracle{
		client:       client,
		discoveryURL: discoveryURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		ids:          make(chan *Identity, 4),
	}
}

type authnRequest struct {
	AppTitle string `json:"app_title"`
}

// Authenticate performs the discovery handshake. On success the resolved
// identity is published on the notification channel; Authenticate itself
// does not hand the identity back to the caller.
func (o *Oracle) Authenticate(ctx context.Context) error {
	body, _ := json.Marshal(authnRequest{AppTitle: "Pixellar"})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.discoveryURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("discovery http %d", resp.StatusCode)
	}

	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return err
	}
	if id.Address == "" {
		return fmt.Errorf("discovery returned no address")
	}

	o.emit(&id)
	return nil
}

// Unauthenticate drops the native credentials and publishes a nil identity.
func (o *Oracle) Unauthenticate(ctx context.Context) error {
	o.emit(nil)
	return nil
}

// Identity returns the identity notification channel.
func (o *Oracle) Identity() <-chan *Identity {
	return o.ids
}

// AccountInfo returns the raw fixed-point balance for the address.
func (o *Oracle) AccountInfo(ctx context.Context, address string) (uint64, error) {
	return o.client.RawBalance(ctx, address)
}

func (o *Oracle) emit(id *Identity) {
	select {
	case o.ids <- id:
	default:
		logger.Warn().Msg("Identity notification dropped, channel full")
	}
}
