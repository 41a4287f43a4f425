// Package transfer drives the money transfer workflow: destination entry
// and verification, amount capture, the confirmation challenge, and the
// single-shot submission. The workflow only ever moves forward; Reset is
// the one way back.
package transfer
