// Package app is the client shell. It owns the root navigation state, the
// login and registration flows, the dashboard workspace with its account
// and inbox, and the teardown paths for deliberate logout and forced
// session expiry.
package app
