package session

import (
	"net/http"
	"strings"

	"github.com/huybank/bankapp/internal/domain"
	apperrors "github.com/huybank/bankapp/internal/errors"
)

// Gateway wraps every outbound HTTP call with credential injection and
// uniform failure interpretation. Classification happens here, once; the
// API client above it only maps endpoint-specific statuses.
type Gateway struct {
	client  *http.Client
	manager *Manager
}

func NewGateway(client *http.Client, manager *Manager) *Gateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &Gateway{client: client, manager: manager}
}

// publicPathFragments mark the endpoints that never receive the bearer
// token: the sign-in and sign-up families.
var publicPathFragments = []string{
	"/auth/signin",
	"/auth/login",
	"/auth/signup",
	"/auth/register",
}

func isPublicPath(path string) bool {
	for _, fragment := range publicPathFragments {
		if strings.Contains(path, fragment) {
			return true
		}
	}
	return false
}

func isLoginPath(path string) bool {
	return strings.Contains(path, "/auth/signin") || strings.Contains(path, "/auth/login")
}

// Do executes the request. Protected calls without a live session fail
// before being sent; a token is never fabricated.
//
// A 401 on a login call passes through untouched, because a wrong password
// is a user error, not session expiry. A 401 anywhere else destroys the
// session (idempotently) and classifies as auth-expired. A 403 is
// surfaced as forbidden without touching the session.
func (g *Gateway) Do(req *http.Request) (*http.Response, error) {
	path := req.URL.Path

	if !isPublicPath(path) {
		token, ok := g.manager.Token()
		if !ok {
			return nil, &apperrors.Error{Kind: apperrors.KindAuthExpired, Message: "no active session", Cause: domain.ErrNoSession}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, apperrors.Unavailable("backend unreachable", err)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if isLoginPath(path) {
			return resp, nil
		}
		resp.Body.Close()
		g.manager.Expire()
		return nil, apperrors.AuthExpired("session expired")
	case http.StatusForbidden:
		resp.Body.Close()
		return nil, apperrors.Forbidden("not allowed to perform this action")
	}

	return resp, nil
}
