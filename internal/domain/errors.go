package domain

import "errors"

var (
	ErrNoSession           = errors.New("no active session")
	ErrAccountNotFound     = errors.New("account not found")
	ErrDestinationNotFound = errors.New("destination account not found")
)
