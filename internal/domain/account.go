package domain

// Account is the payment account shown on the dashboard. Amounts are in
// minor units of Currency. QRPayload is the base64 PNG the backend renders
// for receiving transfers; the client never inspects it.
type Account struct {
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
	AccountType   string `json:"accountType"`
	Balance       int64  `json:"balance"`
	Currency      string `json:"currency"`
	QRPayload     string `json:"qrCode,omitempty"`
}

// AccountPatch carries the fields a profile update may change. The backend
// requires the unchanged attributes to be resent alongside the new name.
type AccountPatch struct {
	AccountName string `json:"accountName"`
	AccountType string `json:"accountType"`
	Currency    string `json:"currency"`
	Balance     int64  `json:"initialDeposit"`
}
