// Package entity defines the core business entities for the domain layer.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// TokenRefreshWindow is how close to expiry a token bundle is considered stale
// and should be refreshed before use.
const TokenRefreshWindow = 5 * time.Minute

// ConnectionConfig holds the immutable configuration for one bank integration.
// It is loaded once at adapter registration time and never mutated.
type ConnectionConfig struct {
	BankCode     string
	DisplayName  string
	BaseURL      string
	AuthorizeURL string
	TokenURL     string
	RevokeURL    string // optional; derived from TokenURL when empty
	ClientID     string
	ClientSecret string
	Scopes       []string
	RedirectURI  string
	Production   bool
}

// AuthTokenBundle is the OAuth2 token set obtained from a bank, together with
// the instant it was obtained so absolute expiry can be computed.
type AuthTokenBundle struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token,omitempty"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    time.Duration `json:"expires_in"`
	Scope        string        `json:"scope,omitempty"`
	ObtainedAt   time.Time     `json:"obtained_at"`
}

// ExpiresAt returns the absolute instant the access token expires.
func (b AuthTokenBundle) ExpiresAt() time.Time {
	return b.ObtainedAt.Add(b.ExpiresIn)
}

// IsStale reports whether now is within the refresh window of expiry.
// A stale bundle should be refreshed before use if a refresh token exists.
func (b AuthTokenBundle) IsStale(now time.Time) bool {
	return now.After(b.ExpiresAt().Add(-TokenRefreshWindow))
}

// IsExpired reports whether the access token is past its absolute expiry.
func (b AuthTokenBundle) IsExpired(now time.Time) bool {
	return now.After(b.ExpiresAt())
}

// ConnectionStatus represents the lifecycle state of a stored bank connection.
type ConnectionStatus string

const (
	ConnectionStatusActive  ConnectionStatus = "active"
	ConnectionStatusError   ConnectionStatus = "error"
	ConnectionStatusExpired ConnectionStatus = "expired"
	ConnectionStatusRevoked ConnectionStatus = "revoked"
)

// legal status transitions; a missing entry means the transition is rejected.
var statusTransitions = map[ConnectionStatus][]ConnectionStatus{
	ConnectionStatusActive:  {ConnectionStatusActive, ConnectionStatusError, ConnectionStatusExpired, ConnectionStatusRevoked},
	ConnectionStatusError:   {ConnectionStatusActive, ConnectionStatusError, ConnectionStatusExpired, ConnectionStatusRevoked},
	ConnectionStatusExpired: {ConnectionStatusActive, ConnectionStatusExpired, ConnectionStatusRevoked},
	ConnectionStatusRevoked: {ConnectionStatusActive},
}

// CanTransitionTo reports whether moving from s to target is a legal
// lifecycle transition. An expired connection can only become active again
// through a fresh authorization, never through a plain sync.
func (s ConnectionStatus) CanTransitionTo(target ConnectionStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// SyncMetadata carries the per-connection counters refreshed on every sync.
type SyncMetadata struct {
	AccountCount     int
	TransactionCount int
	LastBalance      string
}

// CredentialRecord is the decrypted view of one user's connection to one bank.
// Token material only ever leaves the vault inside this struct.
type CredentialRecord struct {
	UserID            uuid.UUID
	BankCode          string
	BankName          string
	Tokens            AuthTokenBundle
	AccountIdentifier string
	Status            ConnectionStatus
	LastSyncAt        *time.Time
	LastError         string
	Metadata          SyncMetadata
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// BankInfo is the secret-free projection of a registered bank adapter.
type BankInfo struct {
	Code       string
	Name       string
	Production bool
}
