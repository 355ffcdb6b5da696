// internal/accounts/store.go
package accounts

import (
	"errors"
	"fmt"
)

// ErrNoAccessToken is returned when an account id has no configured token.
// Callers branch on it with errors.Is.
var ErrNoAccessToken = errors.New("no access token for account")

// Store is a static account id → access token mapping, loaded once at
// startup and read-only for the lifetime of the process.
type Store struct {
	tokens map[string]string
}

// NewStore copies the credential map so later mutation of the source cannot
// leak into the store.
func NewStore(tokens map[string]string) *Store {
	copied := make(map[string]string, len(tokens))
	for id, token := range tokens {
		copied[id] = token
	}
	return &Store{tokens: copied}
}

// ResolveAccessToken returns the token for the account id.
func (s *Store) ResolveAccessToken(accountID string) (string, error) {
	token, ok := s.tokens[accountID]
	if !ok || token == "" {
		return "", fmt.Errorf("%w: %s", ErrNoAccessToken, accountID)
	}
	return token, nil
}

// Has reports whether the account id is configured.
func (s *Store) Has(accountID string) bool {
	token, ok := s.tokens[accountID]
	return ok && token != ""
}

// IDs returns the configured account ids.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.tokens))
	for id := range s.tokens {
		ids = append(ids, id)
	}
	return ids
}
