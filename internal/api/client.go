package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	"github.com/huybank/bankapp/internal/domain"
	apperrors "github.com/huybank/bankapp/internal/errors"
	"github.com/huybank/bankapp/internal/metrics"
	"github.com/huybank/bankapp/internal/platform/retry"
	"github.com/huybank/bankapp/internal/session"
)

// Client talks to the banking REST API and implements domain.Backend.
type Client struct {
	baseURL string
	gateway *session.Gateway
	breaker *gobreaker.CircuitBreaker
	reads   retry.Policy
}

func NewClient(baseURL string, gateway *session.Gateway, clock clockwork.Clock) *Client {
	settings := gobreaker.Settings{
		Name:        "banking-backend",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Only transport-level failures count against the breaker. A 404 or
		// a business rejection is a healthy backend saying no.
		IsSuccessful: func(err error) bool {
			return err == nil || !apperrors.IsKind(err, apperrors.KindUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Backend circuit breaker state changed", "from", from.String(), "to", to.String())
			switch to {
			case gobreaker.StateClosed:
				metrics.BackendCircuitState.Set(0)
			case gobreaker.StateHalfOpen:
				metrics.BackendCircuitState.Set(1)
			case gobreaker.StateOpen:
				metrics.BackendCircuitState.Set(2)
			}
		},
	}

	return &Client{
		baseURL: baseURL,
		gateway: gateway,
		breaker: gobreaker.NewCircuitBreaker(settings),
		reads: retry.Policy{
			MaxAttempts:    3,
			InitialBackoff: 500 * time.Millisecond,
			Clock:          clock,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				slog.Warn("Retrying backend read", "attempt", attempt, "backoff", backoff, "error", err)
			},
		},
	}
}

// retryReads stops on anything but an unreachable backend. Writes are never
// routed through this; a transfer submission sends exactly one request.
func retryReads(err error) retry.Action {
	if apperrors.IsKind(err, apperrors.KindUnavailable) {
		return retry.Retry
	}
	return retry.Stop
}

// call performs one HTTP exchange through the breaker and decodes a 2xx
// body into out (when non-nil). Non-2xx statuses come back as classified
// errors.
func (c *Client) call(ctx context.Context, operation, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", operation, err)
		}
	}

	err := c.exchange(ctx, operation, method, path, payload, out)
	status := "ok"
	if err != nil {
		status = string(apperrors.KindOf(err))
	}
	metrics.BackendCallsTotal.WithLabelValues(operation, status).Inc()
	return err
}

func (c *Client) exchange(ctx context.Context, operation, method, path string, payload []byte, out any) error {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.gateway.Do(req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return apperrors.Unavailable("backend temporarily unavailable", err)
		}
		return err
	}

	resp := result.(*http.Response)
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", operation, err)
	}
	return nil
}

// errorBody is the backend's uniform failure envelope.
type errorBody struct {
	Message string `json:"message"`
}

func decodeError(resp *http.Response) error {
	var body errorBody
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	_ = json.Unmarshal(data, &body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		// Only reachable for sign-in; the gateway intercepts every other 401.
		if body.Message == "" {
			body.Message = "invalid username or password"
		}
		return apperrors.AuthRejected(body.Message)
	case resp.StatusCode == http.StatusNotFound:
		if body.Message == "" {
			body.Message = "resource not found"
		}
		return apperrors.NotFound(body.Message)
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusConflict,
		resp.StatusCode == http.StatusUnprocessableEntity:
		// Business rejections carry the backend's own wording verbatim.
		if body.Message == "" {
			body.Message = "request rejected"
		}
		return apperrors.Rejected(body.Message)
	default:
		return apperrors.Unavailable(fmt.Sprintf("backend answered %d", resp.StatusCode), nil)
	}
}

// signinResponse is the sign-in payload. The token sometimes arrives as a
// full cookie string depending on the backend build; the session manager
// normalizes it.
type signinResponse struct {
	ID          json.Number `json:"id"`
	AccessToken string      `json:"accessToken"`
	Username    string      `json:"username"`
	Roles       []string    `json:"roles"`
}

func (c *Client) Authenticate(ctx context.Context, username, password string) (*domain.Session, error) {
	body := map[string]string{"username": username, "password": password}

	var resp signinResponse
	if err := c.call(ctx, "authenticate", http.MethodPost, "/api/auth/signin", body, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, apperrors.Unavailable("sign-in response carried no token", nil)
	}

	return &domain.Session{
		SubjectID:   resp.ID.String(),
		BearerToken: resp.AccessToken,
		Username:    resp.Username,
		Roles:       resp.Roles,
	}, nil
}

func (c *Client) Register(ctx context.Context, username, password, email string) error {
	body := map[string]string{"username": username, "password": password, "email": email}
	return c.call(ctx, "register", http.MethodPost, "/api/auth/signup", body, nil)
}

func (c *Client) FetchAccount(ctx context.Context, subjectID string) (*domain.Account, error) {
	account, err := retry.Do(ctx, c.reads, retryReads, func() (*domain.Account, error) {
		var acc domain.Account
		path := "/api/accounts/" + url.PathEscape(subjectID)
		if err := c.call(ctx, "fetch_account", http.MethodGet, path, nil, &acc); err != nil {
			return nil, err
		}
		return &acc, nil
	})
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, &apperrors.Error{Kind: apperrors.KindNotFound, Message: "account not found", Cause: domain.ErrAccountNotFound}
		}
		return nil, err
	}
	return account, nil
}

func (c *Client) FetchNotifications(ctx context.Context, subjectID string) ([]domain.NotificationEvent, error) {
	return retry.Do(ctx, c.reads, retryReads, func() ([]domain.NotificationEvent, error) {
		var events []domain.NotificationEvent
		path := "/api/accounts/" + url.PathEscape(subjectID) + "/notifications"
		if err := c.call(ctx, "fetch_notifications", http.MethodGet, path, nil, &events); err != nil {
			return nil, err
		}
		return events, nil
	})
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	path := "/api/notifications/" + url.PathEscape(id) + "/read"
	return c.call(ctx, "mark_notification_read", http.MethodPut, path, nil, nil)
}

// destinationResponse is the recipient lookup payload.
type destinationResponse struct {
	AccountName string `json:"accountName"`
}

func (c *Client) VerifyDestination(ctx context.Context, subjectID, accountNumber string) (string, error) {
	name, err := retry.Do(ctx, c.reads, retryReads, func() (string, error) {
		var resp destinationResponse
		path := "/api/accounts/" + url.PathEscape(subjectID) + "/destinations/" + url.PathEscape(accountNumber)
		if err := c.call(ctx, "verify_destination", http.MethodGet, path, nil, &resp); err != nil {
			return "", err
		}
		return resp.AccountName, nil
	})
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return "", &apperrors.Error{Kind: apperrors.KindNotFound, Message: "destination account not found", Cause: domain.ErrDestinationNotFound}
		}
		return "", err
	}
	return name, nil
}

func (c *Client) SubmitTransfer(ctx context.Context, subjectID string, draft domain.TransferDraft) (*domain.TransferReceipt, error) {
	// Deliberately no retry: the client cannot tell a lost response from a
	// lost request, and a duplicate transfer is worse than a failed one.
	var receipt domain.TransferReceipt
	path := "/api/accounts/" + url.PathEscape(subjectID) + "/transactions"
	if err := c.call(ctx, "submit_transfer", http.MethodPost, path, draft, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) UpdateAccountProfile(ctx context.Context, subjectID string, patch domain.AccountPatch) (*domain.Account, error) {
	var acc domain.Account
	path := "/api/accounts/" + url.PathEscape(subjectID)
	if err := c.call(ctx, "update_account", http.MethodPut, path, patch, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}
