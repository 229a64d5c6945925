package geocode

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
)

// cacheKey returns SHA-256 hex of the normalized address for cache lookup.
func cacheKey(addr AddressInput) string {
	normalized := fmt.Sprintf("%s|%s|%s|%s",
		strings.ToLower(strings.TrimSpace(addr.Street)),
		strings.ToLower(strings.TrimSpace(addr.City)),
		strings.ToLower(strings.TrimSpace(addr.State)),
		strings.TrimSpace(addr.ZipCode),
	)
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

// memo remembers single-address results, matches and non-matches alike, for
// the life of a client. Sales files repeat addresses across resales.
type memo struct {
	mu      sync.RWMutex
	results map[string]Result
}

func newMemo() *memo {
	return &memo{results: make(map[string]Result)}
}

func (m *memo) get(key string) (Result, bool) {
	if m == nil {
		return Result{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.results[key]
	return r, ok
}

func (m *memo) put(key string, r Result) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.results[key] = r
	m.mu.Unlock()
}
