// Package api implements the REST client for the banking backend. Every
// call goes through the session gateway for credential handling, a circuit
// breaker guarding against a struggling backend, and, for read operations,
// a bounded retry loop. Endpoint-specific status codes are mapped to the
// client failure taxonomy here.
package api
