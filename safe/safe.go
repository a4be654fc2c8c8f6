// Package safe holds the input guards shared by the transports and the
// session fetcher: bounded reads and identifier checks.
package safe

import (
	"errors"
	"fmt"
	"io"
)

// MaxPageBody caps pages fetched outside the browser (8 MiB).
const MaxPageBody int64 = 8 << 20

// ErrTooLarge is returned when a read exceeds its cap.
var ErrTooLarge = errors.New("safe: body too large")

// ErrInvalidIdentifier is returned for identifiers unfit for URL path
// segments and database keys.
var ErrInvalidIdentifier = errors.New("safe: invalid identifier")

// ValidateIdentifier accepts 1 to 128 characters among letters, digits,
// underscore, hyphen and dot.
func ValidateIdentifier(s string) error {
	if s == "" || len(s) > 128 {
		return fmt.Errorf("%w: length %d", ErrInvalidIdentifier, len(s))
	}
	for _, r := range s {
		if !isIdentChar(r) {
			return fmt.Errorf("%w: character %q", ErrInvalidIdentifier, r)
		}
	}
	return nil
}

func isIdentChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.'
}

// LimitedReadAll reads at most maxBytes from r.
func LimitedReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: over %d bytes", ErrTooLarge, maxBytes)
	}
	return data, nil
}
