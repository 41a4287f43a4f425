package domain

import "context"

// Backend is the contract of the banking REST API as consumed by this
// client. Implementations classify failures into the kinds defined by
// internal/errors before returning them; callers never see raw transport
// errors.
type Backend interface {
	// Authenticate exchanges credentials for a session. A wrong password
	// surfaces as an auth-rejected error, never as session expiry.
	Authenticate(ctx context.Context, username, password string) (*Session, error)

	// Register creates a new user on the public sign-up endpoint.
	Register(ctx context.Context, username, password, email string) error

	// FetchAccount loads the subject's payment account. A not-found error
	// means the user has no account yet and must create one.
	FetchAccount(ctx context.Context, subjectID string) (*Account, error)

	FetchNotifications(ctx context.Context, subjectID string) ([]NotificationEvent, error)
	MarkNotificationRead(ctx context.Context, id string) error

	// VerifyDestination resolves an account number to the recipient's
	// display name.
	VerifyDestination(ctx context.Context, subjectID, accountNumber string) (string, error)

	SubmitTransfer(ctx context.Context, subjectID string, draft TransferDraft) (*TransferReceipt, error)
	UpdateAccountProfile(ctx context.Context, subjectID string, patch AccountPatch) (*Account, error)
}
