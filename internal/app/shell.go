package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/huybank/bankapp/internal/domain"
	apperrors "github.com/huybank/bankapp/internal/errors"
	"github.com/huybank/bankapp/internal/metrics"
	"github.com/huybank/bankapp/internal/notify"
	"github.com/huybank/bankapp/internal/session"
	"github.com/huybank/bankapp/internal/transfer"
)

// RootState is the top-level navigation state.
type RootState int

const (
	// RootUnauthenticated shows login and registration.
	RootUnauthenticated RootState = iota
	// RootAccountSetup means the user is signed in but has no payment
	// account yet.
	RootAccountSetup
	// RootDashboard is the signed-in workspace.
	RootDashboard
)

func (s RootState) String() string {
	switch s {
	case RootAccountSetup:
		return "account_setup"
	case RootDashboard:
		return "dashboard"
	default:
		return "unauthenticated"
	}
}

// PushChannel is the slice of the realtime channel the shell drives.
type PushChannel interface {
	Connect(accountNumber, token string)
	Disconnect()
}

// Shell coordinates sessions, the account, the inbox and the push channel
// behind the root navigation state.
type Shell struct {
	mu       sync.Mutex
	backend  domain.Backend
	sessions *session.Manager
	inbox    *notify.Inbox
	channel  PushChannel

	root         RootState
	account      *domain.Account
	onRootChange func(RootState)
}

func NewShell(backend domain.Backend, sessions *session.Manager, inbox *notify.Inbox, channel PushChannel) *Shell {
	sh := &Shell{
		backend:  backend,
		sessions: sessions,
		inbox:    inbox,
		channel:  channel,
		root:     RootUnauthenticated,
	}
	sessions.OnExpired(sh.handleExpiry)
	inbox.OnBalance(sh.applyBalance)
	return sh
}

// OnRootChange registers the hook the UI uses to re-render the root.
func (sh *Shell) OnRootChange(fn func(RootState)) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.onRootChange = fn
}

func (sh *Shell) Root() RootState {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.root
}

// Account returns a copy of the loaded account.
func (sh *Shell) Account() (domain.Account, bool) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.account == nil {
		return domain.Account{}, false
	}
	return *sh.account, true
}

// Login authenticates, establishes the session and loads the workspace. A
// missing payment account lands on account setup instead of the dashboard.
func (sh *Shell) Login(ctx context.Context, username, password string) error {
	sess, err := sh.backend.Authenticate(ctx, username, password)
	if err != nil {
		outcome := "error"
		if apperrors.IsKind(err, apperrors.KindAuthRejected) {
			outcome = "rejected"
		}
		metrics.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
		return err
	}
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()

	if err := sh.sessions.Establish(*sess); err != nil {
		slog.Warn("Failed to persist session", "error", err)
	}
	slog.Info("User signed in", "username", sess.Username)

	return sh.loadWorkspace(ctx)
}

// Resume restores a persisted session and loads the workspace without a
// fresh login.
func (sh *Shell) Resume(ctx context.Context) (bool, error) {
	if _, ok := sh.sessions.Restore(); !ok {
		return false, nil
	}
	if err := sh.loadWorkspace(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Register creates a user on the public sign-up endpoint. The user signs
// in afterwards; registration never establishes a session.
func (sh *Shell) Register(ctx context.Context, username, password, email string) error {
	if err := sh.backend.Register(ctx, username, password, email); err != nil {
		return err
	}
	slog.Info("User registered", "username", username)
	return nil
}

// CreateAccount opens the payment account during setup and proceeds to the
// dashboard.
func (sh *Shell) CreateAccount(ctx context.Context, patch domain.AccountPatch) error {
	sh.mu.Lock()
	if sh.root != RootAccountSetup {
		sh.mu.Unlock()
		return apperrors.Validation("no account setup in progress")
	}
	sh.mu.Unlock()

	sess, ok := sh.sessions.Current()
	if !ok {
		return apperrors.AuthExpired("no active session")
	}

	account, err := sh.backend.UpdateAccountProfile(ctx, sess.SubjectID, patch)
	if err != nil {
		return err
	}

	sh.mu.Lock()
	sh.account = account
	sh.mu.Unlock()
	sh.enterDashboard(ctx, sess, account)
	return nil
}

// UpdateProfile renames the account. The backend insists on receiving the
// unchanged attributes alongside the new name.
func (sh *Shell) UpdateProfile(ctx context.Context, accountName string) error {
	sess, ok := sh.sessions.Current()
	if !ok {
		return apperrors.AuthExpired("no active session")
	}

	sh.mu.Lock()
	if sh.account == nil {
		sh.mu.Unlock()
		return apperrors.Validation("no account loaded")
	}
	patch := domain.AccountPatch{
		AccountName: accountName,
		AccountType: sh.account.AccountType,
		Currency:    sh.account.Currency,
		Balance:     sh.account.Balance,
	}
	sh.mu.Unlock()

	account, err := sh.backend.UpdateAccountProfile(ctx, sess.SubjectID, patch)
	if err != nil {
		return err
	}

	sh.mu.Lock()
	sh.account = account
	sh.mu.Unlock()
	slog.Info("Account profile updated", "account_number", account.AccountNumber)
	return nil
}

// NewTransfer starts a transfer workflow bound to the loaded account. The
// balance check reads live state, so a pushed balance update between entry
// and submission counts.
func (sh *Shell) NewTransfer() (*transfer.Workflow, error) {
	sess, ok := sh.sessions.Current()
	if !ok {
		return nil, apperrors.AuthExpired("no active session")
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.account == nil {
		return nil, apperrors.Validation("no account loaded")
	}

	return transfer.NewWorkflow(sh.backend, sess.SubjectID, *sh.account, func() int64 {
		sh.mu.Lock()
		defer sh.mu.Unlock()
		if sh.account == nil {
			return 0
		}
		return sh.account.Balance
	}), nil
}

// RefreshAccount re-fetches the account, the only full balance refresh.
func (sh *Shell) RefreshAccount(ctx context.Context) error {
	sess, ok := sh.sessions.Current()
	if !ok {
		return apperrors.AuthExpired("no active session")
	}

	account, err := sh.backend.FetchAccount(ctx, sess.SubjectID)
	if err != nil {
		return err
	}

	sh.mu.Lock()
	sh.account = account
	sh.mu.Unlock()
	return nil
}

// Logout tears the workspace down deliberately.
func (sh *Shell) Logout() {
	sh.channel.Disconnect()
	sh.sessions.Logout()
	sh.clearWorkspace()
	sh.setRoot(RootUnauthenticated)
	slog.Info("User signed out")
}

// loadWorkspace fetches the account and notification history, then brings
// the dashboard up. A user without an account is routed to setup.
func (sh *Shell) loadWorkspace(ctx context.Context) error {
	sess, ok := sh.sessions.Current()
	if !ok {
		return apperrors.AuthExpired("no active session")
	}

	account, err := sh.backend.FetchAccount(ctx, sess.SubjectID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			slog.Info("No payment account yet, entering setup", "subject_id", sess.SubjectID)
			sh.setRoot(RootAccountSetup)
			return nil
		}
		return err
	}

	sh.mu.Lock()
	sh.account = account
	sh.mu.Unlock()

	sh.enterDashboard(ctx, sess, account)
	return nil
}

func (sh *Shell) enterDashboard(ctx context.Context, sess domain.Session, account *domain.Account) {
	events, err := sh.backend.FetchNotifications(ctx, sess.SubjectID)
	if err != nil {
		// The dashboard is still usable without history; pushed events
		// will fill the inbox.
		slog.Warn("Failed to load notification history", "error", err)
		events = nil
	}
	sh.inbox.Load(events)

	sh.channel.Connect(account.AccountNumber, sess.BearerToken)
	sh.setRoot(RootDashboard)
}

// handleExpiry is the session manager's expiry hook: any 401 outside login
// collapses the whole workspace back to the unauthenticated root.
func (sh *Shell) handleExpiry() {
	sh.channel.Disconnect()
	sh.clearWorkspace()
	sh.setRoot(RootUnauthenticated)
}

// applyBalance is the single setter for pushed balance updates. The last
// write wins; the next full account fetch reconciles.
func (sh *Shell) applyBalance(balance int64) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.account == nil {
		return
	}
	sh.account.Balance = balance
}

func (sh *Shell) clearWorkspace() {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.account = nil
	sh.inbox.Load(nil)
}

func (sh *Shell) setRoot(root RootState) {
	sh.mu.Lock()
	if sh.root == root {
		sh.mu.Unlock()
		return
	}
	sh.root = root
	hook := sh.onRootChange
	sh.mu.Unlock()

	if hook != nil {
		hook(root)
	}
}
