package auth

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/saba-futai/passage/pkg/token"
)

// SeedKey is one pre-provisioned credential from a seed file. Operators
// use seed files to ship static keys (CI systems, long-lived
// integrations) without calling the issuance API.
type SeedKey struct {
	Key         string   `yaml:"key"`
	UserID      string   `yaml:"userId"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
	RateLimit   int      `yaml:"rateLimit"`
}

type seedFile struct {
	Keys []SeedKey `yaml:"keys"`
}

// SeedFromFile loads a YAML seed file and installs every key in it,
// returning how many were added. The whole file is validated before any
// key is installed, so a bad file leaves the authority untouched.
func (a *Authority) SeedFromFile(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return a.Seed(f.Keys)
}

// Seed installs pre-provisioned keys. Unset permissions and rate limits
// take the authority defaults. Duplicate keys, within the batch or
// against existing state, fail the whole batch.
func (a *Authority) Seed(keys []SeedKey) (int, error) {
	for i, k := range keys {
		if k.Key == "" {
			return 0, fmt.Errorf("seed key %d: key is required", i)
		}
		if k.UserID == "" {
			return 0, fmt.Errorf("seed key %d: userId is required", i)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	seen := make(map[string]struct{}, len(keys))
	for i, k := range keys {
		if _, dup := seen[k.Key]; dup {
			return 0, fmt.Errorf("seed key %d: duplicate key %s", i, token.Fingerprint(k.Key))
		}
		if _, exists := a.keys.Get(k.Key); exists {
			return 0, fmt.Errorf("seed key %d: key %s already exists", i, token.Fingerprint(k.Key))
		}
		seen[k.Key] = struct{}{}
	}

	for _, k := range keys {
		perms := k.Permissions
		if perms == nil {
			perms = a.defaultPerms
		}
		rate := k.RateLimit
		if rate <= 0 {
			rate = a.defaultRate
		}
		a.keys.Set(k.Key, &APIKey{
			Key:         k.Key,
			UserID:      k.UserID,
			Name:        k.Name,
			Permissions: append([]string(nil), perms...),
			CreatedAt:   time.Now(),
			RateLimit:   rate,
		})
	}

	if a.logger != nil {
		a.logger.Info("seed keys installed", slog.Int("count", len(keys)))
	}
	return len(keys), nil
}
