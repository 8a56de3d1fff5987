package auth

import (
	"strings"
	"testing"
)

func newTestAuthority(t *testing.T) *Authority {
	t.Helper()
	a, err := NewAuthority(Options{})
	if err != nil {
		t.Fatalf("NewAuthority: %v", err)
	}
	return a
}

func TestBootstrap_SingleDevelopmentKey(t *testing.T) {
	a := newTestAuthority(t)

	dev := a.DevKey()
	if dev == "" {
		t.Fatalf("no development key")
	}
	v := a.ValidateKey(dev)
	if !v.Valid {
		t.Fatalf("development key invalid: %s", v.Error)
	}
	if !a.HasPermission(dev, "tunnel:create") {
		t.Fatalf("development key missing tunnel:create")
	}
	if !a.HasPermission(dev, "replay:request") {
		t.Fatalf("development key missing replay wildcard grant")
	}
	if a.keys.Len() != 1 {
		t.Fatalf("fresh authority has %d keys, want 1", a.keys.Len())
	}
}

func TestCreateKey_DefaultsAndRandomness(t *testing.T) {
	a := newTestAuthority(t)

	k1, err := a.CreateKey(KeyOptions{UserID: "u1", Name: "ci"})
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	k2, err := a.CreateKey(KeyOptions{UserID: "u1", Name: "ci"})
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	if k1.Key == k2.Key {
		t.Fatalf("two issued keys collide")
	}
	if !strings.HasPrefix(k1.Key, "pk_") {
		t.Fatalf("key %q lacks prefix", k1.Key)
	}

	v := a.ValidateKey(k1.Key)
	if !v.Valid || v.UserID != "u1" {
		t.Fatalf("validation: %+v", v)
	}
	if v.RateLimit != 60 {
		t.Fatalf("default rate limit %d, want 60", v.RateLimit)
	}
	want := []string{"tunnel:create", "tunnel:read"}
	if len(v.Permissions) != len(want) || v.Permissions[0] != want[0] || v.Permissions[1] != want[1] {
		t.Fatalf("default permissions %v, want %v", v.Permissions, want)
	}
}

func TestCreateKey_OptionDefaultsOverridable(t *testing.T) {
	a, err := NewAuthority(Options{
		DefaultPermissions: []string{"tunnel:read"},
		DefaultRateLimit:   10,
	})
	if err != nil {
		t.Fatalf("NewAuthority: %v", err)
	}

	k, err := a.CreateKey(KeyOptions{UserID: "u1"})
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	v := a.ValidateKey(k.Key)
	if v.RateLimit != 10 {
		t.Fatalf("rate limit %d, want 10", v.RateLimit)
	}
	if len(v.Permissions) != 1 || v.Permissions[0] != "tunnel:read" {
		t.Fatalf("permissions %v", v.Permissions)
	}

	// Explicit options still beat authority defaults.
	k, err = a.CreateKey(KeyOptions{UserID: "u2", Permissions: []string{"*"}, RateLimit: 500})
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	v = a.ValidateKey(k.Key)
	if v.RateLimit != 500 || len(v.Permissions) != 1 || v.Permissions[0] != "*" {
		t.Fatalf("explicit options lost: %+v", v)
	}
}

func TestValidateKey_FailuresAreResults(t *testing.T) {
	a := newTestAuthority(t)

	v := a.ValidateKey("")
	if v.Valid || v.Error == "" {
		t.Fatalf("missing key: %+v", v)
	}
	v = a.ValidateKey("pk_does_not_exist")
	if v.Valid || v.Error == "" {
		t.Fatalf("unknown key: %+v", v)
	}
}

func TestValidateKey_StampsLastUsed(t *testing.T) {
	a := newTestAuthority(t)
	k, err := a.CreateKey(KeyOptions{UserID: "u1"})
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}

	stored, _ := a.keys.Get(k.Key)
	if stored.LastUsed != nil {
		t.Fatalf("LastUsed set before any validation")
	}
	a.ValidateKey(k.Key)
	stored, _ = a.keys.Get(k.Key)
	if stored.LastUsed == nil {
		t.Fatalf("LastUsed not stamped by validation")
	}
}

func TestHasPermission_WildcardRules(t *testing.T) {
	a := newTestAuthority(t)

	cases := []struct {
		name    string
		granted []string
		ask     string
		want    bool
	}{
		{"exact match", []string{"tunnel:create"}, "tunnel:create", true},
		{"resource wildcard hits", []string{"tunnel:*"}, "tunnel:create", true},
		{"resource wildcard misses other resource", []string{"http:*"}, "tunnel:create", false},
		{"global wildcard", []string{"*"}, "anything:at:all", true},
		{"no grant", []string{"tunnel:read"}, "tunnel:create", false},
		{"colonless exact", []string{"admin"}, "admin", true},
		{"colonless never wildcarded", []string{"admin:*"}, "admin", false},
		{"global matches colonless", []string{"*"}, "admin", true},
		{"wildcard grant matched exactly", []string{"replay:*"}, "replay:*", true},
	}

	for _, tc := range cases {
		k, err := a.CreateKey(KeyOptions{UserID: "u", Permissions: tc.granted})
		if err != nil {
			t.Fatalf("%s: CreateKey: %v", tc.name, err)
		}
		if got := a.HasPermission(k.Key, tc.ask); got != tc.want {
			t.Fatalf("%s: HasPermission(%v, %q) = %v, want %v", tc.name, tc.granted, tc.ask, got, tc.want)
		}
	}
}

func TestHasPermission_InvalidKey(t *testing.T) {
	a := newTestAuthority(t)
	if a.HasPermission("", "tunnel:create") {
		t.Fatalf("empty key granted")
	}
	if a.HasPermission("pk_unknown", "tunnel:create") {
		t.Fatalf("unknown key granted")
	}
}

func TestSessions_Lifecycle(t *testing.T) {
	a := newTestAuthority(t)
	k, err := a.CreateKey(KeyOptions{UserID: "u1"})
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}

	s, err := a.CreateSession(k.Key, "t-1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if !strings.HasPrefix(s.Token, "st_") {
		t.Fatalf("session token %q lacks prefix", s.Token)
	}

	v := a.ValidateSession(s.Token)
	if !v.Valid || v.APIKey != k.Key || v.TunnelID != "t-1" {
		t.Fatalf("session validation: %+v", v)
	}
	if v.CreatedAt.IsZero() {
		t.Fatalf("session CreatedAt not set")
	}

	a.RemoveSession(s.Token)
	if a.ValidateSession(s.Token).Valid {
		t.Fatalf("removed session still valid")
	}

	// Removed is terminal; removing again is a no-op, not an error.
	a.RemoveSession(s.Token)
	a.RemoveSession("st_never_existed")
}

func TestValidateSession_Absent(t *testing.T) {
	a := newTestAuthority(t)
	if v := a.ValidateSession("st_missing"); v.Valid {
		t.Fatalf("absent session validated: %+v", v)
	}
}

func TestRevokeKey_CascadesSessions(t *testing.T) {
	a := newTestAuthority(t)
	k, err := a.CreateKey(KeyOptions{UserID: "u1"})
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	other, err := a.CreateKey(KeyOptions{UserID: "u2"})
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}

	s1, err := a.CreateSession(k.Key, "t1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	s2, err := a.CreateSession(k.Key, "t2")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	keep, err := a.CreateSession(other.Key, "t3")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if !a.RevokeKey(k.Key) {
		t.Fatalf("revoke reported key absent")
	}
	if a.ValidateKey(k.Key).Valid {
		t.Fatalf("revoked key still valid")
	}
	if a.ValidateSession(s1.Token).Valid || a.ValidateSession(s2.Token).Valid {
		t.Fatalf("cascade left a dependent session valid")
	}
	if !a.ValidateSession(keep.Token).Valid {
		t.Fatalf("cascade removed an unrelated session")
	}

	if a.RevokeKey(k.Key) {
		t.Fatalf("second revoke reported key present")
	}
}
