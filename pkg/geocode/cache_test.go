package geocode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheKey_Deterministic(t *testing.T) {
	addr := AddressInput{
		Street:  "1315 10th St",
		City:    "Sacramento",
		State:   "CA",
		ZipCode: "95814",
	}

	key1 := cacheKey(addr)
	key2 := cacheKey(addr)
	assert.Equal(t, key1, key2)
	assert.Len(t, key1, 64) // SHA-256 hex is 64 chars
}

func TestCacheKey_CaseInsensitive(t *testing.T) {
	addr1 := AddressInput{Street: "100 Main St", City: "Davis", State: "CA", ZipCode: "95616"}
	addr2 := AddressInput{Street: "100 MAIN ST", City: "DAVIS", State: "ca", ZipCode: "95616"}

	assert.Equal(t, cacheKey(addr1), cacheKey(addr2))
}

func TestCacheKey_DifferentAddresses(t *testing.T) {
	addr1 := AddressInput{Street: "100 Main St", City: "Davis", State: "CA", ZipCode: "95616"}
	addr2 := AddressInput{Street: "200 Main St", City: "Davis", State: "CA", ZipCode: "95616"}

	assert.NotEqual(t, cacheKey(addr1), cacheKey(addr2))
}

func TestMemo(t *testing.T) {
	m := newMemo()
	_, ok := m.get("k")
	assert.False(t, ok)

	m.put("k", Result{Matched: true, Latitude: 1})
	r, ok := m.get("k")
	assert.True(t, ok)
	assert.Equal(t, 1.0, r.Latitude)

	var nilMemo *memo
	nilMemo.put("k", Result{})
	_, ok = nilMemo.get("k")
	assert.False(t, ok)
}
