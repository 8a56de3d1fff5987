package auth

import "testing"

func TestMemoryStore_Contract(t *testing.T) {
	s := NewMemoryStore[int]()

	if _, ok := s.Get("a"); ok {
		t.Fatalf("empty store resolved a key")
	}
	if s.Delete("a") {
		t.Fatalf("delete on empty store reported success")
	}

	s.Set("a", 1)
	s.Set("b", 2)
	s.Set("a", 3) // overwrite
	if s.Len() != 2 {
		t.Fatalf("len %d, want 2", s.Len())
	}
	if v, ok := s.Get("a"); !ok || v != 3 {
		t.Fatalf("get a: %d/%v", v, ok)
	}

	seen := map[string]int{}
	s.Range(func(k string, v int) bool {
		seen[k] = v
		return true
	})
	if len(seen) != 2 || seen["a"] != 3 || seen["b"] != 2 {
		t.Fatalf("range saw %v", seen)
	}

	// Range stops when fn returns false.
	calls := 0
	s.Range(func(string, int) bool {
		calls++
		return false
	})
	if calls != 1 {
		t.Fatalf("range continued after false: %d calls", calls)
	}

	if !s.Delete("a") {
		t.Fatalf("delete existing key failed")
	}
	if s.Len() != 1 {
		t.Fatalf("len after delete %d, want 1", s.Len())
	}
}
