package keys

import (
	"context"
	"errors"
)

var (
	// ErrKeyNotFound is returned when a token is not present in the store.
	ErrKeyNotFound = errors.New("api key not found")
	// ErrKeyRevoked is returned when a token exists but has been
	// deactivated. Handlers must not surface the distinction to callers;
	// it exists for internal logging only.
	ErrKeyRevoked = errors.New("api key revoked")
	// ErrEmptyToken is returned when a credential is stored without a token.
	ErrEmptyToken = errors.New("credential token is required and cannot be empty")
	// ErrEmptyName is returned when a credential is stored without a name.
	ErrEmptyName = errors.New("credential name is required and cannot be empty")
)

// Store is the durable credential collection. Implementations must make
// mutations of a single credential atomic with respect to each other.
type Store interface {
	Add(ctx context.Context, cred *Credential) error

	// Authenticate looks up an active credential by token and updates its
	// last_used timestamp in a single statement. Returns ErrKeyNotFound or
	// ErrKeyRevoked on rejection.
	Authenticate(ctx context.Context, token string) (*Credential, error)

	// Get returns a credential by token regardless of its active flag.
	Get(ctx context.Context, token string) (*Credential, error)

	// ListActive returns metadata for all active credentials.
	ListActive(ctx context.Context) ([]Metadata, error)

	// Revoke permanently deactivates a credential. Returns false when the
	// token is unknown. Revoked credentials are never deleted.
	Revoke(ctx context.Context, token string) (bool, error)

	Close() error
}
