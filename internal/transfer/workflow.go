package transfer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/huybank/bankapp/internal/domain"
	apperrors "github.com/huybank/bankapp/internal/errors"
	"github.com/huybank/bankapp/internal/metrics"
	"github.com/huybank/bankapp/internal/qr"
)

// Stage is the phase of the transfer workflow.
type Stage int

const (
	StageEnteringDestination Stage = iota
	StageDestinationVerified
	StageSubmitting
	StageCompleted
)

func (s Stage) String() string {
	switch s {
	case StageDestinationVerified:
		return "destination_verified"
	case StageSubmitting:
		return "submitting"
	case StageCompleted:
		return "completed"
	default:
		return "entering_destination"
	}
}

// backendOps is the slice of the backend the workflow needs.
type backendOps interface {
	VerifyDestination(ctx context.Context, subjectID, accountNumber string) (string, error)
	SubmitTransfer(ctx context.Context, subjectID string, draft domain.TransferDraft) (*domain.TransferReceipt, error)
}

// Workflow is one transfer in progress. It is destroyed after completion
// or when the user navigates away; a new transfer gets a new workflow.
type Workflow struct {
	mu      sync.Mutex
	backend backendOps

	subjectID     string
	sourceAccount string
	currency      string
	balance       func() int64

	// generate is swappable so tests can pin the challenge text.
	generate func() string

	stage           Stage
	destinationNum  string
	destinationName string
	amount          int64
	memo            string
	challenge       string
	clientRef       string
	receipt         *domain.TransferReceipt
}

func NewWorkflow(backend backendOps, subjectID string, source domain.Account, balance func() int64) *Workflow {
	return &Workflow{
		backend:       backend,
		subjectID:     subjectID,
		sourceAccount: source.AccountNumber,
		currency:      source.Currency,
		balance:       balance,
		generate:      newChallenge,
		stage:         StageEnteringDestination,
	}
}

func (w *Workflow) Stage() Stage {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stage
}

// Challenge returns the confirmation code the user must retype.
func (w *Workflow) Challenge() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.challenge
}

// DestinationName returns the verified recipient display name.
func (w *Workflow) DestinationName() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destinationName
}

// Receipt returns the confirmation of a completed transfer.
func (w *Workflow) Receipt() (*domain.TransferReceipt, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.receipt == nil {
		return nil, false
	}
	return w.receipt, true
}

// VerifyDestination resolves the typed account number. Transfers to the
// source account are refused before anything goes over the wire.
func (w *Workflow) VerifyDestination(ctx context.Context, accountNumber string) error {
	w.mu.Lock()
	if w.stage != StageEnteringDestination {
		w.mu.Unlock()
		return apperrors.Validation("destination is already verified")
	}
	if accountNumber == "" {
		w.mu.Unlock()
		return apperrors.Validation("enter a destination account number")
	}
	if accountNumber == w.sourceAccount {
		w.mu.Unlock()
		return apperrors.Validation("cannot transfer to your own account")
	}
	subjectID := w.subjectID
	w.mu.Unlock()

	name, err := w.backend.VerifyDestination(ctx, subjectID, accountNumber)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stage != StageEnteringDestination {
		return apperrors.Validation("destination is already verified")
	}
	w.destinationNum = accountNumber
	w.destinationName = name
	w.stage = StageDestinationVerified
	w.challenge = w.generate()
	return nil
}

// UseCandidate feeds a scanned QR destination into the workflow. The self
// transfer check runs before the verification call, same as typed entry.
func (w *Workflow) UseCandidate(ctx context.Context, candidate qr.Candidate) error {
	return w.VerifyDestination(ctx, candidate.AccountNumber)
}

// SetAmount captures the amount and memo for a verified destination.
func (w *Workflow) SetAmount(amount int64, memo string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stage != StageDestinationVerified {
		return apperrors.Validation("verify a destination first")
	}
	if amount <= 0 {
		return apperrors.Validation("amount must be positive")
	}
	w.amount = amount
	w.memo = memo
	return nil
}

// Submit sends the transfer after the confirmation passes. The checks run
// in a fixed order: challenge first, then balance. Only a challenge
// mismatch replaces the challenge; a balance failure keeps it so the user
// does not retype for a problem the code had nothing to do with.
func (w *Workflow) Submit(ctx context.Context, confirmation string) (*domain.TransferReceipt, error) {
	w.mu.Lock()
	switch w.stage {
	case StageSubmitting:
		w.mu.Unlock()
		return nil, apperrors.Validation("a submission is already in flight")
	case StageCompleted:
		w.mu.Unlock()
		return nil, apperrors.Validation("this transfer is already completed")
	case StageEnteringDestination:
		w.mu.Unlock()
		return nil, apperrors.Validation("verify a destination first")
	}

	if w.amount <= 0 {
		w.mu.Unlock()
		return nil, apperrors.Validation("enter an amount first")
	}

	if !challengeMatches(w.challenge, confirmation) {
		w.challenge = w.generate()
		w.mu.Unlock()
		metrics.ChallengeMismatchesTotal.Inc()
		return nil, apperrors.Validation("confirmation code does not match")
	}

	if w.amount > w.balance() {
		w.mu.Unlock()
		return nil, apperrors.Validation("insufficient balance")
	}

	// The reference survives failed attempts so the backend can spot a
	// duplicate of the same logical transfer.
	if w.clientRef == "" {
		w.clientRef = uuid.NewString()
	}
	draft := domain.TransferDraft{
		SourceAccountNumber:      w.sourceAccount,
		DestinationAccountNumber: w.destinationNum,
		Amount:                   w.amount,
		Currency:                 w.currency,
		Memo:                     w.memo,
		ClientReference:          w.clientRef,
	}
	subjectID := w.subjectID
	w.stage = StageSubmitting
	w.mu.Unlock()

	receipt, err := w.backend.SubmitTransfer(ctx, subjectID, draft)

	w.mu.Lock()
	defer w.mu.Unlock()

	// The same post-call guard as VerifyDestination: if the workflow left
	// the submitting stage while the call was in flight, the result has no
	// home and must not resurrect discarded state.
	if w.stage != StageSubmitting {
		slog.Warn("Discarding submission result for an abandoned transfer", "destination", draft.DestinationAccountNumber)
		return nil, apperrors.Validation("this transfer was abandoned")
	}

	if err != nil {
		// Back to the verified stage with amount and memo intact. A fresh
		// challenge guards the retry.
		w.stage = StageDestinationVerified
		w.challenge = w.generate()
		outcome := "error"
		if apperrors.IsKind(err, apperrors.KindRejected) {
			outcome = "rejected"
		}
		metrics.TransfersTotal.WithLabelValues(outcome).Inc()
		slog.Warn("Transfer submission failed", "destination", draft.DestinationAccountNumber, "error", err)
		return nil, err
	}

	w.stage = StageCompleted
	w.receipt = receipt
	metrics.TransfersTotal.WithLabelValues("completed").Inc()
	slog.Info("Transfer completed", "reference", receipt.TransactionReference, "amount", receipt.Amount)
	return receipt, nil
}

// RefreshChallenge hands out a new confirmation code on request, for when
// the current one is hard to read.
func (w *Workflow) RefreshChallenge() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stage != StageDestinationVerified {
		return apperrors.Validation("no confirmation pending")
	}
	w.challenge = w.generate()
	return nil
}

// Reset abandons the transfer and returns to destination entry. It is the
// only transition that moves the workflow backwards. An in-flight
// submission cannot be abandoned, and a completed transfer is terminal.
func (w *Workflow) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.stage {
	case StageSubmitting:
		return apperrors.Validation("a submission is in flight")
	case StageCompleted:
		return apperrors.Validation("this transfer is already completed")
	}

	w.stage = StageEnteringDestination
	w.destinationNum = ""
	w.destinationName = ""
	w.amount = 0
	w.memo = ""
	w.challenge = ""
	w.clientRef = ""
	w.receipt = nil
	return nil
}
