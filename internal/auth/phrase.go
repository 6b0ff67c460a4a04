package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// maxPhraseBytes is bcrypt's input limit; longer input would be silently truncated.
const maxPhraseBytes = 72

var ErrPhraseTooLong = errors.New("secret phrase exceeds 72 bytes")

// PhraseVerifier compares submitted phrases against the configured one in
// constant time. The phrase itself is not secret from the process: the
// welcome mail quotes it.
type PhraseVerifier struct {
	hash []byte
}

func NewPhraseVerifier(phrase string) (*PhraseVerifier, error) {
	normalized := NormalizePhrase(phrase)
	if normalized == "" {
		return nil, errors.New("secret phrase must not be empty")
	}
	if len(normalized) > maxPhraseBytes {
		return nil, ErrPhraseTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(normalized), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash secret phrase: %w", err)
	}
	return &PhraseVerifier{hash: hash}, nil
}

// Match reports whether input equals the configured phrase, ignoring case
// and surrounding whitespace.
func (v *PhraseVerifier) Match(input string) bool {
	normalized := NormalizePhrase(input)
	if normalized == "" || len(normalized) > maxPhraseBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword(v.hash, []byte(normalized)) == nil
}

func NormalizePhrase(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
