package qr

import (
	"context"
	"encoding/json"
	"image"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	apperrors "github.com/huybank/bankapp/internal/errors"
	"github.com/huybank/bankapp/internal/metrics"
)

// expectedIssuer is the bank code stamped into every QR this client accepts.
const expectedIssuer = "HUY_BANK_CORE"

// Candidate is a decoded, issuer-verified transfer destination. It still
// needs backend verification before any money moves.
type Candidate struct {
	BankIdentifier string
	AccountNumber  string
}

// payload is the wire shape embedded in the QR image.
type payload struct {
	BankCode      string `json:"bankCode"`
	AccountNumber string `json:"accountNumber"`
}

// Initiator decodes and validates scanned QR images under a deadline.
type Initiator struct {
	decoder Decoder
	clock   clockwork.Clock
	timeout time.Duration
}

func NewInitiator(decoder Decoder, clock clockwork.Clock, timeout time.Duration) *Initiator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Initiator{decoder: decoder, clock: clock, timeout: timeout}
}

type scanResult struct {
	candidate Candidate
	outcome   string
	err       error
}

// Scan races decode-and-validate against the deadline. A result arriving
// after the deadline is discarded; the scan has already failed.
func (i *Initiator) Scan(ctx context.Context, img image.Image) (Candidate, error) {
	resultCh := make(chan scanResult, 1)
	go func() {
		resultCh <- i.decodeAndValidate(img)
	}()

	timer := i.clock.NewTimer(i.timeout)
	defer timer.Stop()

	select {
	case result := <-resultCh:
		metrics.QRDecodesTotal.WithLabelValues(result.outcome).Inc()
		return result.candidate, result.err
	case <-timer.Chan():
		metrics.QRDecodesTotal.WithLabelValues("timeout").Inc()
		slog.Warn("QR decode exceeded deadline", "timeout", i.timeout)
		return Candidate{}, apperrors.Timeout("could not read the QR code in time")
	case <-ctx.Done():
		metrics.QRDecodesTotal.WithLabelValues("cancelled").Inc()
		return Candidate{}, apperrors.Timeout("qr scan cancelled")
	}
}

func (i *Initiator) decodeAndValidate(img image.Image) scanResult {
	text, err := i.decoder.Decode(img)
	if err != nil {
		return scanResult{outcome: "error", err: apperrors.Validation("image does not contain a readable QR code")}
	}

	var p payload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return scanResult{outcome: "malformed", err: apperrors.Validation("QR payload is not a transfer code")}
	}
	if p.BankCode != expectedIssuer {
		return scanResult{outcome: "wrong_issuer", err: apperrors.Validation("QR code was not issued by this bank")}
	}
	if p.AccountNumber == "" {
		return scanResult{outcome: "missing_field", err: apperrors.Validation("QR code carries no account number")}
	}

	return scanResult{
		candidate: Candidate{BankIdentifier: p.BankCode, AccountNumber: p.AccountNumber},
		outcome:   "ok",
	}
}
