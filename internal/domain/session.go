package domain

// Session is the authenticated identity held by the client for the current
// login. It is owned exclusively by the session manager; every other
// component treats the token as a read-only capability.
type Session struct {
	SubjectID   string   `json:"subject_id"`
	BearerToken string   `json:"bearer_token"`
	Username    string   `json:"username"`
	Roles       []string `json:"roles"`
}
