package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	original := Session{
		Address:     "0xABC123",
		DisplayName: "alice",
		BackendUser: &BackendUser{
			ID:            7,
			WalletAddress: "0xABC123",
			ProfileURL:    "aBcDeFgHi",
		},
		NativeAuth:  true,
		ConnectedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Session
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestTransactionKindValid(t *testing.T) {
	assert.True(t, KindPurchase.Valid())
	assert.True(t, KindSale.Valid())
	assert.True(t, KindTransfer.Valid())
	assert.False(t, TransactionKind("mint").Valid())
	assert.False(t, TransactionKind("").Valid())
}
