package domain

// TransferDraft is the in-progress, not-yet-submitted transfer request.
// SourceAccountNumber is fixed at creation; the draft is destroyed on
// successful submission or on navigation away from the transfer screen.
type TransferDraft struct {
	SourceAccountNumber      string `json:"sourceAccountNumber"`
	DestinationAccountNumber string `json:"destinationAccountNumber"`
	Amount                   int64  `json:"amount"`
	Currency                 string `json:"currency"`
	Memo                     string `json:"description"`

	// ClientReference deduplicates resubmissions of the same logical
	// transfer on the backend side. Stable across retries, fresh per
	// transfer.
	ClientReference string `json:"clientReference"`
}

// TransferReceipt is the backend's confirmation of a completed transfer.
type TransferReceipt struct {
	TransactionReference     string `json:"transactionReference"`
	Amount                   int64  `json:"amount"`
	SourceAccountNumber      string `json:"sourceAccountNumber"`
	DestinationAccountNumber string `json:"destinationAccountNumber"`
	DestinationAccountName   string `json:"destinationAccountName"`
	Memo                     string `json:"description"`
}
