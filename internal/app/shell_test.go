package app

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huybank/bankapp/internal/domain"
	apperrors "github.com/huybank/bankapp/internal/errors"
	"github.com/huybank/bankapp/internal/notify"
	"github.com/huybank/bankapp/internal/session"
	"github.com/huybank/bankapp/internal/transfer"
)

type mockBackend struct {
	AuthenticateFn       func(ctx context.Context, username, password string) (*domain.Session, error)
	RegisterFn           func(ctx context.Context, username, password, email string) error
	FetchAccountFn       func(ctx context.Context, subjectID string) (*domain.Account, error)
	FetchNotificationsFn func(ctx context.Context, subjectID string) ([]domain.NotificationEvent, error)
	MarkReadFn           func(ctx context.Context, id string) error
	VerifyFn             func(ctx context.Context, subjectID, accountNumber string) (string, error)
	SubmitFn             func(ctx context.Context, subjectID string, draft domain.TransferDraft) (*domain.TransferReceipt, error)
	UpdateFn             func(ctx context.Context, subjectID string, patch domain.AccountPatch) (*domain.Account, error)
}

func (m *mockBackend) Authenticate(ctx context.Context, username, password string) (*domain.Session, error) {
	return m.AuthenticateFn(ctx, username, password)
}

func (m *mockBackend) Register(ctx context.Context, username, password, email string) error {
	return m.RegisterFn(ctx, username, password, email)
}

func (m *mockBackend) FetchAccount(ctx context.Context, subjectID string) (*domain.Account, error) {
	return m.FetchAccountFn(ctx, subjectID)
}

func (m *mockBackend) FetchNotifications(ctx context.Context, subjectID string) ([]domain.NotificationEvent, error) {
	if m.FetchNotificationsFn == nil {
		return nil, nil
	}
	return m.FetchNotificationsFn(ctx, subjectID)
}

func (m *mockBackend) MarkNotificationRead(ctx context.Context, id string) error {
	if m.MarkReadFn == nil {
		return nil
	}
	return m.MarkReadFn(ctx, id)
}

func (m *mockBackend) VerifyDestination(ctx context.Context, subjectID, accountNumber string) (string, error) {
	return m.VerifyFn(ctx, subjectID, accountNumber)
}

func (m *mockBackend) SubmitTransfer(ctx context.Context, subjectID string, draft domain.TransferDraft) (*domain.TransferReceipt, error) {
	return m.SubmitFn(ctx, subjectID, draft)
}

func (m *mockBackend) UpdateAccountProfile(ctx context.Context, subjectID string, patch domain.AccountPatch) (*domain.Account, error) {
	return m.UpdateFn(ctx, subjectID, patch)
}

type fakeChannel struct {
	mu          sync.Mutex
	connects    []string
	tokens      []string
	disconnects int
}

func (f *fakeChannel) Connect(accountNumber, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects = append(f.connects, accountNumber)
	f.tokens = append(f.tokens, token)
}

func (f *fakeChannel) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
}

func (f *fakeChannel) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.connects)
}

func happyBackend() *mockBackend {
	return &mockBackend{
		AuthenticateFn: func(context.Context, string, string) (*domain.Session, error) {
			return &domain.Session{SubjectID: "7", BearerToken: "tok", Username: "huy"}, nil
		},
		FetchAccountFn: func(context.Context, string) (*domain.Account, error) {
			return &domain.Account{AccountNumber: "0071", AccountName: "Huy", Balance: 100_000, Currency: "VND"}, nil
		},
	}
}

func newTestShell(t *testing.T, backend *mockBackend) (*Shell, *fakeChannel, *session.Manager) {
	t.Helper()
	manager := session.NewManager(session.NewStore(filepath.Join(t.TempDir(), "session.json")), clockwork.NewRealClock())
	inbox := notify.NewInbox(backend, nil)
	channel := &fakeChannel{}
	return NewShell(backend, manager, inbox, channel), channel, manager
}

func TestLoginLoadsDashboard(t *testing.T) {
	backend := happyBackend()
	backend.FetchNotificationsFn = func(context.Context, string) ([]domain.NotificationEvent, error) {
		return []domain.NotificationEvent{{ID: "n1", OccurredAt: time.Now()}}, nil
	}
	sh, channel, manager := newTestShell(t, backend)

	require.NoError(t, sh.Login(context.Background(), "huy", "secret"))

	assert.Equal(t, RootDashboard, sh.Root())
	assert.Equal(t, []string{"0071"}, channel.connects)
	assert.Equal(t, []string{"tok"}, channel.tokens)

	account, ok := sh.Account()
	require.True(t, ok)
	assert.Equal(t, int64(100_000), account.Balance)

	_, ok = manager.Current()
	assert.True(t, ok)
}

func TestLoginRejected(t *testing.T) {
	backend := happyBackend()
	backend.AuthenticateFn = func(context.Context, string, string) (*domain.Session, error) {
		return nil, apperrors.AuthRejected("Bad credentials")
	}
	sh, channel, manager := newTestShell(t, backend)

	err := sh.Login(context.Background(), "huy", "wrong")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthRejected))
	assert.Equal(t, RootUnauthenticated, sh.Root())
	assert.Zero(t, channel.connectCount())

	_, ok := manager.Current()
	assert.False(t, ok, "a failed login must not leave a session behind")
}

func TestLoginWithoutAccountEntersSetup(t *testing.T) {
	backend := happyBackend()
	backend.FetchAccountFn = func(context.Context, string) (*domain.Account, error) {
		return nil, &apperrors.Error{Kind: apperrors.KindNotFound, Message: "account not found", Cause: domain.ErrAccountNotFound}
	}
	sh, channel, _ := newTestShell(t, backend)

	require.NoError(t, sh.Login(context.Background(), "huy", "secret"))

	assert.Equal(t, RootAccountSetup, sh.Root())
	assert.Zero(t, channel.connectCount(), "no account means nothing to subscribe to")
}

func TestCreateAccountProceedsToDashboard(t *testing.T) {
	backend := happyBackend()
	backend.FetchAccountFn = func(context.Context, string) (*domain.Account, error) {
		return nil, &apperrors.Error{Kind: apperrors.KindNotFound, Cause: domain.ErrAccountNotFound}
	}
	var gotPatch domain.AccountPatch
	backend.UpdateFn = func(_ context.Context, _ string, patch domain.AccountPatch) (*domain.Account, error) {
		gotPatch = patch
		return &domain.Account{AccountNumber: "0072", AccountName: patch.AccountName, Balance: patch.Balance, Currency: patch.Currency}, nil
	}
	sh, channel, _ := newTestShell(t, backend)
	require.NoError(t, sh.Login(context.Background(), "huy", "secret"))
	require.Equal(t, RootAccountSetup, sh.Root())

	err := sh.CreateAccount(context.Background(), domain.AccountPatch{
		AccountName: "Huy",
		AccountType: "CHECKING",
		Currency:    "VND",
		Balance:     50_000,
	})
	require.NoError(t, err)

	assert.Equal(t, RootDashboard, sh.Root())
	assert.Equal(t, "CHECKING", gotPatch.AccountType)
	assert.Equal(t, []string{"0072"}, channel.connects)
}

func TestCreateAccountOutsideSetupFails(t *testing.T) {
	sh, _, _ := newTestShell(t, happyBackend())

	err := sh.CreateAccount(context.Background(), domain.AccountPatch{})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestRegisterDoesNotEstablishSession(t *testing.T) {
	backend := happyBackend()
	registered := false
	backend.RegisterFn = func(_ context.Context, username, password, email string) error {
		registered = true
		assert.Equal(t, "huy", username)
		assert.Equal(t, "huy@example.com", email)
		return nil
	}
	sh, _, manager := newTestShell(t, backend)

	require.NoError(t, sh.Register(context.Background(), "huy", "secret", "huy@example.com"))
	assert.True(t, registered)
	assert.Equal(t, RootUnauthenticated, sh.Root())

	_, ok := manager.Current()
	assert.False(t, ok)
}

func TestLogoutTearsDown(t *testing.T) {
	sh, channel, manager := newTestShell(t, happyBackend())
	require.NoError(t, sh.Login(context.Background(), "huy", "secret"))

	sh.Logout()

	assert.Equal(t, RootUnauthenticated, sh.Root())
	assert.Equal(t, 1, channel.disconnects)

	_, ok := manager.Current()
	assert.False(t, ok)
	_, ok = sh.Account()
	assert.False(t, ok)
}

func TestSessionExpiryResetsRoot(t *testing.T) {
	sh, channel, manager := newTestShell(t, happyBackend())
	require.NoError(t, sh.Login(context.Background(), "huy", "secret"))
	require.Equal(t, RootDashboard, sh.Root())

	// A 401 on any protected call fires the manager's expiry hook.
	manager.Expire()

	assert.Equal(t, RootUnauthenticated, sh.Root())
	assert.Equal(t, 1, channel.disconnects)
	_, ok := sh.Account()
	assert.False(t, ok)
}

func TestPushedBalanceUpdatesAccount(t *testing.T) {
	backend := happyBackend()
	inbox := notify.NewInbox(backend, nil)
	manager := session.NewManager(session.NewStore(filepath.Join(t.TempDir(), "session.json")), clockwork.NewRealClock())
	sh := NewShell(backend, manager, inbox, &fakeChannel{})
	require.NoError(t, sh.Login(context.Background(), "huy", "secret"))

	balance := int64(77_000)
	inbox.Push(domain.NotificationEvent{ID: "n1", BalanceAfter: &balance})

	account, ok := sh.Account()
	require.True(t, ok)
	assert.Equal(t, int64(77_000), account.Balance)
	assert.Equal(t, "0071", account.AccountNumber, "a pushed event may only touch the balance")
	assert.Equal(t, "VND", account.Currency)
}

func TestUpdateProfileResendsUnchangedAttributes(t *testing.T) {
	backend := happyBackend()
	backend.FetchAccountFn = func(context.Context, string) (*domain.Account, error) {
		return &domain.Account{AccountNumber: "0071", AccountName: "Huy", AccountType: "SAVINGS", Balance: 42_000, Currency: "VND"}, nil
	}
	var gotPatch domain.AccountPatch
	backend.UpdateFn = func(_ context.Context, _ string, patch domain.AccountPatch) (*domain.Account, error) {
		gotPatch = patch
		return &domain.Account{AccountNumber: "0071", AccountName: patch.AccountName, AccountType: patch.AccountType, Balance: patch.Balance, Currency: patch.Currency}, nil
	}
	sh, _, _ := newTestShell(t, backend)
	require.NoError(t, sh.Login(context.Background(), "huy", "secret"))

	require.NoError(t, sh.UpdateProfile(context.Background(), "Huy Nguyen"))

	assert.Equal(t, "Huy Nguyen", gotPatch.AccountName)
	assert.Equal(t, "SAVINGS", gotPatch.AccountType)
	assert.Equal(t, "VND", gotPatch.Currency)
	assert.Equal(t, int64(42_000), gotPatch.Balance)

	account, _ := sh.Account()
	assert.Equal(t, "Huy Nguyen", account.AccountName)
}

func TestNewTransferSeesLiveBalance(t *testing.T) {
	backend := happyBackend()
	inbox := notify.NewInbox(backend, nil)
	manager := session.NewManager(session.NewStore(filepath.Join(t.TempDir(), "session.json")), clockwork.NewRealClock())
	sh := NewShell(backend, manager, inbox, &fakeChannel{})
	require.NoError(t, sh.Login(context.Background(), "huy", "secret"))

	backend.VerifyFn = func(context.Context, string, string) (string, error) { return "Nguyen Van A", nil }
	backend.SubmitFn = func(_ context.Context, _ string, draft domain.TransferDraft) (*domain.TransferReceipt, error) {
		return &domain.TransferReceipt{TransactionReference: "TXN-1", Amount: draft.Amount}, nil
	}

	w, err := sh.NewTransfer()
	require.NoError(t, err)
	require.NoError(t, w.VerifyDestination(context.Background(), "0099"))
	require.NoError(t, w.SetAmount(90_000, ""))

	// A pushed debit lands before the user confirms.
	balance := int64(10_000)
	inbox.Push(domain.NotificationEvent{ID: "n1", BalanceAfter: &balance})

	_, err = w.Submit(context.Background(), w.Challenge())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient balance")
}

func TestLoginToCompletedTransfer(t *testing.T) {
	backend := happyBackend()
	backend.FetchNotificationsFn = func(context.Context, string) ([]domain.NotificationEvent, error) {
		return []domain.NotificationEvent{
			{ID: "old", Description: "opening deposit", OccurredAt: time.Now().Add(-time.Hour)},
			{ID: "new", Description: "coffee", OccurredAt: time.Now()},
		}, nil
	}
	backend.VerifyFn = func(_ context.Context, _, accountNumber string) (string, error) {
		require.Equal(t, "0099", accountNumber)
		return "Nguyen Van A", nil
	}
	backend.SubmitFn = func(_ context.Context, _ string, draft domain.TransferDraft) (*domain.TransferReceipt, error) {
		return &domain.TransferReceipt{
			TransactionReference:     "TXN-42",
			Amount:                   draft.Amount,
			DestinationAccountNumber: draft.DestinationAccountNumber,
			DestinationAccountName:   "Nguyen Van A",
		}, nil
	}

	inbox := notify.NewInbox(backend, nil)
	manager := session.NewManager(session.NewStore(filepath.Join(t.TempDir(), "session.json")), clockwork.NewRealClock())
	channel := &fakeChannel{}
	sh := NewShell(backend, manager, inbox, channel)

	require.NoError(t, sh.Login(context.Background(), "huy", "secret"))
	require.Equal(t, RootDashboard, sh.Root())
	require.Equal(t, []string{"0071"}, channel.connects)

	events := inbox.All()
	require.Len(t, events, 2)
	assert.Equal(t, "new", events[0].ID, "history is shown newest first")

	w, err := sh.NewTransfer()
	require.NoError(t, err)
	require.NoError(t, w.VerifyDestination(context.Background(), "0099"))
	assert.Equal(t, "Nguyen Van A", w.DestinationName())
	require.NoError(t, w.SetAmount(50_000, "rent"))

	receipt, err := w.Submit(context.Background(), w.Challenge())
	require.NoError(t, err)
	assert.Equal(t, "TXN-42", receipt.TransactionReference)
	assert.Equal(t, transfer.StageCompleted, w.Stage())
}

func TestResumeRestoresWorkspace(t *testing.T) {
	backend := happyBackend()
	path := filepath.Join(t.TempDir(), "session.json")
	store := session.NewStore(path)
	require.NoError(t, store.Save(domain.Session{SubjectID: "7", BearerToken: "persisted-tok", Username: "huy"}))

	manager := session.NewManager(store, clockwork.NewRealClock())
	inbox := notify.NewInbox(backend, nil)
	channel := &fakeChannel{}
	sh := NewShell(backend, manager, inbox, channel)

	resumed, err := sh.Resume(context.Background())
	require.NoError(t, err)
	assert.True(t, resumed)
	assert.Equal(t, RootDashboard, sh.Root())
	assert.Equal(t, []string{"persisted-tok"}, channel.tokens)
}

func TestResumeWithoutPersistedSession(t *testing.T) {
	sh, channel, _ := newTestShell(t, happyBackend())

	resumed, err := sh.Resume(context.Background())
	require.NoError(t, err)
	assert.False(t, resumed)
	assert.Equal(t, RootUnauthenticated, sh.Root())
	assert.Zero(t, channel.connectCount())
}
