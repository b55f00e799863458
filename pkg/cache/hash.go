package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// hashKey returns prefix joined with the hex SHA-256 of the JSON-encoded
// arguments. Provider calls with equal arguments share a key.
func hashKey(prefix string, args ...any) string {
	data, _ := json.Marshal(args)
	return prefix + ":" + Hash(data)
}

// Hash returns the hex SHA-256 of data. The render pipeline keys scenes
// with it.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
