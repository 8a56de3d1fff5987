package auth

// Store is the associative contract the authority keeps its state behind:
// get/set/delete/iterate, nothing more. Swapping the backing store does
// not touch authority call sites.
//
// Implementations need not be safe for concurrent use; the authority
// serializes access with its own lock so that multi-store operations
// (revoke + session cascade) stay atomic.
type Store[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V)
	Delete(key string) bool
	Len() int
	// Range calls fn for each entry until fn returns false. Mutating the
	// store from fn is not allowed.
	Range(fn func(key string, value V) bool)
}

type memoryStore[V any] struct {
	m map[string]V
}

// NewMemoryStore returns the in-process map-backed store the relay ships
// with. State does not survive a restart.
func NewMemoryStore[V any]() Store[V] {
	return &memoryStore[V]{m: make(map[string]V)}
}

func (s *memoryStore[V]) Get(key string) (V, bool) {
	v, ok := s.m[key]
	return v, ok
}

func (s *memoryStore[V]) Set(key string, value V) {
	s.m[key] = value
}

func (s *memoryStore[V]) Delete(key string) bool {
	if _, ok := s.m[key]; !ok {
		return false
	}
	delete(s.m, key)
	return true
}

func (s *memoryStore[V]) Len() int {
	return len(s.m)
}

func (s *memoryStore[V]) Range(fn func(key string, value V) bool) {
	for k, v := range s.m {
		if !fn(k, v) {
			return
		}
	}
}
