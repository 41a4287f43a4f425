package transfer

import (
	"math/rand/v2"
	"strings"
)

const (
	challengeLength  = 6
	challengeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// newChallenge produces the confirmation code the user has to retype
// before a transfer is sent.
func newChallenge() string {
	var b strings.Builder
	b.Grow(challengeLength)
	for range challengeLength {
		b.WriteByte(challengeCharset[rand.IntN(len(challengeCharset))])
	}
	return b.String()
}

// challengeMatches compares case-insensitively; retyping in lowercase is
// not a mistake.
func challengeMatches(challenge, confirmation string) bool {
	return strings.EqualFold(challenge, confirmation)
}
