package domain

import "time"

// NotificationEvent is one balance-affecting event delivered either by the
// initial fetch or by the push channel. Events are immutable once received;
// Read is the only mutable field and flips false→true exactly once per ID.
type NotificationEvent struct {
	ID                   string    `json:"id"`
	Description          string    `json:"description"`
	Amount               int64     `json:"amount"`
	OccurredAt           time.Time `json:"transactionDate"`
	RelatedAccountNumber string    `json:"accountNumber,omitempty"`
	TransactionReference string    `json:"transactionReference,omitempty"`
	Read                 bool      `json:"isRead"`

	// BalanceAfter is the post-transaction balance, present only on pushed
	// events. It is the sole sanctioned path for live balance mutation
	// outside a full account re-fetch.
	BalanceAfter *int64 `json:"balance,omitempty"`
}
