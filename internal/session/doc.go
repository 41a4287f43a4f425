// Package session owns the authenticated session: its persistence across
// restarts, its single point of destruction, and the gateway that injects
// the bearer token into outbound calls and interprets authentication
// failures uniformly.
package session
