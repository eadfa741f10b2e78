package keys

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/voicebridge/data-connector/internal/logger"
)

const (
	// tokenPrefix marks issued tokens so they are recognizable in logs and
	// support requests.
	tokenPrefix = "uk_"
	// tokenBytes is the entropy of the random token body.
	tokenBytes = 32
)

// Service issues, validates, and revokes credentials.
type Service struct {
	store Store
	log   *logger.Logger
}

func NewService(store Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// IssueKey creates a new credential with a freshly generated token.
// rateLimit overrides the global per-window quota when non-nil.
func (s *Service) IssueKey(ctx context.Context, name string, rateLimit *int) (*Credential, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	cred := &Credential{
		Token:     token,
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Active:    true,
		RateLimit: rateLimit,
	}

	if err := s.store.Add(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to persist credential: %w", err)
	}

	s.log.Info("Issued new API key", "name", name, "key", cred.Preview())
	return cred, nil
}

// Validate authenticates a presented token and touches its last_used
// timestamp. The returned error never distinguishes unknown from revoked;
// callers get the sentinel for logging but must answer generically.
func (s *Service) Validate(ctx context.Context, token string) (*Credential, error) {
	cred, err := s.store.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// ListActive returns metadata for all active credentials.
func (s *Service) ListActive(ctx context.Context) ([]Metadata, error) {
	return s.store.ListActive(ctx)
}

// Revoke permanently deactivates a credential. Revocation cannot be undone.
func (s *Service) Revoke(ctx context.Context, token string) (bool, error) {
	revoked, err := s.store.Revoke(ctx, token)
	if err != nil {
		return false, err
	}
	if revoked {
		s.log.Info("Revoked API key", "key", Preview(token))
	}
	return revoked, nil
}

func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return tokenPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}
