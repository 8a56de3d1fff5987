// internal/config/config.go
package config

// Config is the relay process configuration.
type Config struct {
	// Domain is the public base domain tunnels are exposed under,
	// e.g. "tunnel.example.com" => subdomain "demo" serves
	// https://demo.tunnel.example.com.
	Domain string `json:"domain"`
	// ChunkSize bounds streamed response chunks. 0 means the protocol
	// default; values above the protocol maximum are rejected.
	ChunkSize int `json:"chunk_size"`
	// HeartbeatSeconds is the ping interval on idle tunnel connections.
	HeartbeatSeconds int `json:"heartbeat_seconds"`

	Auth AuthConfig `json:"auth"`
}

// AuthConfig configures the session authority.
type AuthConfig struct {
	// DefaultPermissions replaces the built-in default grant for newly
	// issued keys.
	DefaultPermissions []string `json:"default_permissions"`
	// DefaultRateLimit replaces the built-in per-key rate limit. The
	// limit is recorded per key, not enforced by the core.
	DefaultRateLimit int `json:"default_rate_limit"`
	// SeedKeysPath optionally points at a YAML file of pre-provisioned
	// keys to install at startup.
	SeedKeysPath string `json:"seed_keys_path"`
}
