package config

import (
	"fmt"
	"strings"

	"github.com/saba-futai/passage/internal/protocol"
)

func normalizeLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Finalize normalizes and validates a decoded config in place.
func (c *Config) Finalize() error {
	c.Domain = normalizeLower(c.Domain)
	if c.Domain == "" {
		return fmt.Errorf("domain is required")
	}
	if strings.Contains(c.Domain, "://") || strings.Contains(c.Domain, "/") {
		return fmt.Errorf("domain must be a bare host, got %q", c.Domain)
	}

	if c.ChunkSize == 0 {
		c.ChunkSize = protocol.MaxChunkSize
	}
	if c.ChunkSize < 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkSize > protocol.MaxChunkSize {
		return fmt.Errorf("chunk_size %d exceeds protocol maximum %d", c.ChunkSize, protocol.MaxChunkSize)
	}

	if c.HeartbeatSeconds <= 0 {
		c.HeartbeatSeconds = 30
	}

	if c.Auth.DefaultRateLimit < 0 {
		return fmt.Errorf("auth.default_rate_limit must not be negative, got %d", c.Auth.DefaultRateLimit)
	}
	for i, p := range c.Auth.DefaultPermissions {
		c.Auth.DefaultPermissions[i] = strings.TrimSpace(p)
		if c.Auth.DefaultPermissions[i] == "" {
			return fmt.Errorf("auth.default_permissions[%d] is empty", i)
		}
	}
	return nil
}

// PublicURL builds the public URL a registered subdomain is served at.
func (c *Config) PublicURL(subdomain string) string {
	return "https://" + normalizeLower(subdomain) + "." + c.Domain
}
