package models

import "time"

// TransactionKind classifies a ledger entry.
type TransactionKind string

const (
	KindPurchase TransactionKind = "purchase"
	KindSale     TransactionKind = "sale"
	KindTransfer TransactionKind = "transfer"
)

// Valid reports whether the kind is one of the known values.
func (k TransactionKind) Valid() bool {
	switch k {
	case KindPurchase, KindSale, KindTransfer:
		return true
	}
	return false
}

// TransactionStatus is decided synchronously at creation time; entries
// never transition between statuses afterwards.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// BackendUser is the remote identity record attached to a session once the
// identity service call succeeds.
type BackendUser struct {
	ID            int64  `json:"id"`
	WalletAddress string `json:"wallet_address"`
	ProfileURL    string `json:"profile_url"`
	Username      string `json:"username,omitempty"`
	AvatarURL     string `json:"avatar_url,omitempty"`
}

// Session is the active connected-identity record. It exists if and only
// if the wallet manager reports connected.
type Session struct {
	Address     string       `json:"address"`
	DisplayName string       `json:"display_name"`
	BackendUser *BackendUser `json:"backend_user,omitempty"`
	NativeAuth  bool         `json:"native_auth"`
	ConnectedAt time.Time    `json:"connected_at"`
}

// Transaction is an immutable ledger entry. The ledger is kept newest
// first and entries are never mutated or individually deleted.
type Transaction struct {
	ID           string            `json:"id"`
	Kind         TransactionKind   `json:"kind"`
	Amount       float64           `json:"amount"`
	SubjectID    string            `json:"subject_id,omitempty"`
	SubjectLabel string            `json:"subject_label,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
	Status       TransactionStatus `json:"status"`
}

// Snapshot is the reactive view of wallet state handed to subscribers and
// the delivery layer.
type Snapshot struct {
	Session      *Session      `json:"session,omitempty"`
	Balance      float64       `json:"balance"`
	Transactions []Transaction `json:"transactions"`
	Connected    bool          `json:"connected"`
}

// ExecuteTransactionRequest is the delivery-layer payload for ledger
// execution.
type ExecuteTransactionRequest struct {
	Kind         string  `json:"kind" binding:"required,oneof=purchase sale transfer" example:"purchase"`
	Amount       float64 `json:"amount" binding:"required,gt=0" example:"1.5"`
	SubjectID    string  `json:"subject_id" example:"a1b2c3"`
	SubjectLabel string  `json:"subject_label" example:"Neon Dreams - Premium"`
}

// ErrorResponse documents the error envelope for swagger.
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Error   string `json:"error"`
}
