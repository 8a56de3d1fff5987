// Package auth is the credential and session authority of the relay: it
// owns API-key and session state, answers admission and authorization
// queries, and guarantees that revoking a key and removing its sessions
// is one atomic operation.
package auth

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/saba-futai/passage/pkg/token"
)

// Default grants and rate limit applied when key options leave them unset.
var defaultPermissions = []string{"tunnel:create", "tunnel:read"}

const defaultRateLimit = 60

// devPermissions is the broad grant of the bootstrap development key.
var devPermissions = []string{"tunnel:create", "tunnel:read", "replay:*"}

// APIKey is a long-lived credential identifying a user or integration.
// RateLimit is recorded per key but not enforced here.
type APIKey struct {
	Key         string
	UserID      string
	Name        string
	Permissions []string
	CreatedAt   time.Time
	LastUsed    *time.Time
	RateLimit   int
}

// Session binds an API key to one active tunnel. Its lifecycle is
// nonexistent -> active -> removed; removed is terminal.
type Session struct {
	Token     string
	APIKey    string
	TunnelID  string
	CreatedAt time.Time
}

// KeyValidation is the structured result of ValidateKey. Lookups never
// return Go errors; a miss is data, not a fault.
type KeyValidation struct {
	Valid       bool
	Error       string
	UserID      string
	Permissions []string
	RateLimit   int
}

// SessionValidation is the structured result of ValidateSession.
type SessionValidation struct {
	Valid     bool
	APIKey    string
	TunnelID  string
	CreatedAt time.Time
}

// KeyOptions configures CreateKey. Zero-value fields take the authority
// defaults.
type KeyOptions struct {
	UserID      string
	Name        string
	Permissions []string
	RateLimit   int
}

// Options configures a new Authority.
type Options struct {
	// DefaultPermissions overrides the grant applied to keys created
	// without an explicit permission list.
	DefaultPermissions []string
	// DefaultRateLimit overrides the per-key rate limit recorded on keys
	// created without one.
	DefaultRateLimit int
	// Logger receives structured events; nil disables logging.
	Logger *slog.Logger
}

// Authority owns the key and session stores. All state lives behind the
// Store abstraction; one mutex serializes every operation so that
// read-then-mutate sequences are atomic.
type Authority struct {
	mu       sync.Mutex
	keys     Store[*APIKey]
	sessions Store[*Session]

	defaultPerms []string
	defaultRate  int
	logger       *slog.Logger

	devKey string
}

// NewAuthority builds an authority and mints its single bootstrap
// "development" key. That key carries a broad grant and is explicitly not
// production-safe; real deployments issue their own keys or seed them
// from a provisioning file.
func NewAuthority(opts Options) (*Authority, error) {
	a := &Authority{
		keys:         NewMemoryStore[*APIKey](),
		sessions:     NewMemoryStore[*Session](),
		defaultPerms: opts.DefaultPermissions,
		defaultRate:  opts.DefaultRateLimit,
		logger:       opts.Logger,
	}
	if a.defaultPerms == nil {
		a.defaultPerms = defaultPermissions
	}
	if a.defaultRate <= 0 {
		a.defaultRate = defaultRateLimit
	}

	dev, err := a.CreateKey(KeyOptions{
		UserID:      "dev",
		Name:        "development",
		Permissions: devPermissions,
	})
	if err != nil {
		return nil, err
	}
	a.devKey = dev.Key
	if a.logger != nil {
		a.logger.Warn("development key minted; do not use in production",
			slog.String("key_fp", token.Fingerprint(dev.Key)))
	}
	return a, nil
}

// DevKey returns the bootstrap development key.
func (a *Authority) DevKey() string {
	return a.devKey
}

// CreateKey issues a new randomized opaque key. The only error path is
// the entropy source failing, which is a fatal internal fault.
func (a *Authority) CreateKey(opts KeyOptions) (*APIKey, error) {
	raw, err := token.NewAPIKey()
	if err != nil {
		return nil, err
	}

	perms := opts.Permissions
	if perms == nil {
		perms = a.defaultPerms
	}
	rate := opts.RateLimit
	if rate <= 0 {
		rate = a.defaultRate
	}

	k := &APIKey{
		Key:         raw,
		UserID:      opts.UserID,
		Name:        opts.Name,
		Permissions: append([]string(nil), perms...),
		CreatedAt:   time.Now(),
		RateLimit:   rate,
	}

	a.mu.Lock()
	a.keys.Set(raw, k)
	a.mu.Unlock()

	if a.logger != nil {
		a.logger.Info("api key created",
			slog.String("key_fp", token.Fingerprint(raw)),
			slog.String("user_id", k.UserID),
			slog.String("name", k.Name))
	}
	return cloneKey(k), nil
}

// ValidateKey resolves a key. On success it stamps the stored record's
// LastUsed as an observable side effect.
func (a *Authority) ValidateKey(key string) KeyValidation {
	if key == "" {
		return KeyValidation{Error: "api key is required"}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	k, ok := a.keys.Get(key)
	if !ok {
		if a.logger != nil {
			a.logger.Debug("api key rejected", slog.String("key_fp", token.Fingerprint(key)))
		}
		return KeyValidation{Error: "invalid api key"}
	}
	now := time.Now()
	k.LastUsed = &now
	return KeyValidation{
		Valid:       true,
		UserID:      k.UserID,
		Permissions: append([]string(nil), k.Permissions...),
		RateLimit:   k.RateLimit,
	}
}

// HasPermission reports whether key may perform permission. An invalid
// key never has any permission; a denied permission is a plain false, the
// caller decides the response.
func (a *Authority) HasPermission(key, permission string) bool {
	v := a.ValidateKey(key)
	if !v.Valid {
		return false
	}
	return permissionMatch(v.Permissions, permission)
}

// permissionMatch resolves "resource:action" grants: an exact match, the
// global "*", or "resource:*" where the resource segment matches. A
// permission without a colon has no resource segment, so only exact match
// or "*" can satisfy it.
func permissionMatch(granted []string, permission string) bool {
	resource, _, scoped := strings.Cut(permission, ":")
	for _, g := range granted {
		if g == permission || g == "*" {
			return true
		}
		if scoped && g == resource+":*" {
			return true
		}
	}
	return false
}

// CreateSession mints a session binding key to tunnelID. It does not
// re-validate the key; admission already did that.
func (a *Authority) CreateSession(key, tunnelID string) (*Session, error) {
	tok, err := token.NewSessionToken()
	if err != nil {
		return nil, err
	}
	s := &Session{
		Token:     tok,
		APIKey:    key,
		TunnelID:  tunnelID,
		CreatedAt: time.Now(),
	}

	a.mu.Lock()
	a.sessions.Set(tok, s)
	a.mu.Unlock()

	if a.logger != nil {
		a.logger.Info("session created",
			slog.String("session_fp", token.Fingerprint(tok)),
			slog.String("key_fp", token.Fingerprint(key)),
			slog.String("tunnel_id", tunnelID))
	}
	return s, nil
}

// ValidateSession resolves a session token.
func (a *Authority) ValidateSession(tok string) SessionValidation {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.sessions.Get(tok)
	if !ok {
		return SessionValidation{}
	}
	return SessionValidation{
		Valid:     true,
		APIKey:    s.APIKey,
		TunnelID:  s.TunnelID,
		CreatedAt: s.CreatedAt,
	}
}

// RemoveSession deletes a session. Removing an absent token is a no-op.
func (a *Authority) RemoveSession(tok string) {
	a.mu.Lock()
	removed := a.sessions.Delete(tok)
	a.mu.Unlock()

	if removed && a.logger != nil {
		a.logger.Info("session removed", slog.String("session_fp", token.Fingerprint(tok)))
	}
}

// RevokeKey deletes a key and every session it owns in one atomic
// operation: no caller can observe the key gone while a dependent session
// still validates. It reports whether the key existed.
func (a *Authority) RevokeKey(key string) bool {
	a.mu.Lock()
	existed := a.keys.Delete(key)
	var cascade []string
	if existed {
		a.sessions.Range(func(tok string, s *Session) bool {
			if s.APIKey == key {
				cascade = append(cascade, tok)
			}
			return true
		})
		for _, tok := range cascade {
			a.sessions.Delete(tok)
		}
	}
	a.mu.Unlock()

	if existed && a.logger != nil {
		a.logger.Info("api key revoked",
			slog.String("key_fp", token.Fingerprint(key)),
			slog.Int("sessions_removed", len(cascade)))
	}
	return existed
}

func cloneKey(k *APIKey) *APIKey {
	out := *k
	out.Permissions = append([]string(nil), k.Permissions...)
	return &out
}
