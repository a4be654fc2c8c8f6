// Package idgen generates the identifiers profilewatch hands out: request IDs
// for scrapes and short random names for page bindings.
package idgen

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 produces time-sortable RFC 9562 UUID v7 strings.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// NanoID produces base-36 IDs of the given length. Used where a UUID is too
// long, such as JavaScript binding names.
func NanoID(length int) Generator {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	return func() string {
		buf := make([]byte, length)
		if _, err := rand.Read(buf); err != nil {
			panic("idgen: crypto/rand failed: " + err.Error())
		}
		for i := range buf {
			buf[i] = alphabet[int(buf[i])%len(alphabet)]
		}
		return string(buf)
	}
}

// Prefixed prepends prefix to every ID of gen.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// RequestPrefix marks scrape request IDs.
const RequestPrefix = "req_"

// RequestIDs is the generator the broker uses.
func RequestIDs() Generator { return Prefixed(RequestPrefix, UUIDv7()) }

// ParseRequestID validates a request ID produced by RequestIDs.
func ParseRequestID(s string) (string, error) {
	raw, ok := strings.CutPrefix(s, RequestPrefix)
	if !ok {
		return "", fmt.Errorf("idgen: request id %q: missing %s prefix", s, RequestPrefix)
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("idgen: request id %q: %w", s, err)
	}
	return RequestPrefix + u.String(), nil
}
