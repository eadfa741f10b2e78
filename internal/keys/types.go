package keys

import "time"

// Credential represents one issued API key. The token itself is the unique
// identifier and is immutable after creation.
type Credential struct {
	Token     string     `json:"token"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
	Active    bool       `json:"active"`
	// RateLimit is the per-key request quota per window. Nil means the
	// global default applies.
	RateLimit *int `json:"rate_limit,omitempty"`
}

// Preview returns a truncated token safe for listings and logs.
func (c *Credential) Preview() string {
	return Preview(c.Token)
}

// Preview truncates a token for display so listings never expose full
// secrets.
func Preview(token string) string {
	if len(token) <= 10 {
		return token
	}
	return token[:10] + "..."
}

// Metadata describes a credential without exposing the full token.
// Used for listing issued keys.
type Metadata struct {
	KeyPreview string     `json:"key_preview"`
	Name       string     `json:"name"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used,omitempty"`
	Active     bool       `json:"active"`
	RateLimit  *int       `json:"rate_limit,omitempty"`
}
