package flowaccess

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client implements account queries via the Flow REST access node.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient initializes a REST access node client.
func NewClient(baseURL, apiToken string) *Client {
	if baseURL == "" {
		baseURL = "https://rest-testnet.onflow.org"
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: apiToken, httpClient: &http.Client{Timeout: 8 * time.Second}}
}

// Account is the subset of the access node account payload we consume.
// Balance is an integer-like string in raw units scaled by 1e8.
type Account struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

// Account fetches the on-chain account record for the address.
func (c *Client) Account(ctx context.Context, address string) (*Account, error) {
	var out Account
	url := c.baseURL + "/v1/accounts/" + address
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("access node http %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RawBalance returns the account balance in raw fixed-point units (1e8 scale).
func (c *Client) RawBalance(ctx context.Context, address string) (uint64, error) {
	account, err := c.Account(ctx, address)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(account.Balance, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid balance format %q", account.Balance)
	}
	return n, nil
}
