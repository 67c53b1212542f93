package relay

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// KeyPrefix tags relay records in the keyed store so they can share a
// namespace with other record types.
const KeyPrefix = "Relay@"

// Canonical normalizes a relay URL so that trivially different spellings of
// the same endpoint hash to the same key: trimmed, lowercased scheme and
// host, no trailing slash. The path and query are preserved as given.
func Canonical(rawURL string) string {
	u := strings.TrimSpace(rawURL)
	u = strings.TrimRight(u, "/")

	scheme, rest, ok := strings.Cut(u, "://")
	if !ok {
		return strings.ToLower(u)
	}
	host, path, hasPath := strings.Cut(rest, "/")
	out := strings.ToLower(scheme) + "://" + strings.ToLower(host)
	if hasPath {
		out += "/" + path
	}
	return out
}

// Key derives the store key for a relay URL. It is a pure function: the same
// url always yields the same key, and distinct urls collide only if sha256
// does.
func Key(rawURL string) string {
	sum := sha256.Sum256([]byte(Canonical(rawURL)))
	return KeyPrefix + hex.EncodeToString(sum[:])
}
