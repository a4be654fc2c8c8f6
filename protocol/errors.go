package protocol

import (
	"errors"

	"github.com/hazyhaar/profilewatch/profile"
)

// Error taxonomy. Section-level absence is not represented: extractors return
// empty results instead.
var (
	ErrInvalidURL         = profile.ErrInvalidURL
	ErrContextOpenFailed  = errors.New("could not open tab")
	ErrTimeout            = errors.New("timed out")
	ErrContextDestroyed   = errors.New("tab closed before scraping completed")
	ErrMissingState       = errors.New("no pending profile state for skills page")
	ErrExtractionNotReady = errors.New("profile DOM not ready")
)

// Wire codes for the taxonomy.
const (
	CodeInvalidURL         = "invalid_url"
	CodeContextOpenFailed  = "context_open_failed"
	CodeTimeout            = "timeout"
	CodeContextDestroyed   = "context_destroyed"
	CodeMissingState       = "missing_state"
	CodeExtractionNotReady = "extraction_not_ready"
	CodeScrapeFailed       = "scrape_failed"
)

// CodeOf maps err to its wire code. Unknown errors map to CodeScrapeFailed.
func CodeOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidURL):
		return CodeInvalidURL
	case errors.Is(err, ErrContextOpenFailed):
		return CodeContextOpenFailed
	case errors.Is(err, ErrTimeout):
		return CodeTimeout
	case errors.Is(err, ErrContextDestroyed):
		return CodeContextDestroyed
	case errors.Is(err, ErrMissingState):
		return CodeMissingState
	case errors.Is(err, ErrExtractionNotReady):
		return CodeExtractionNotReady
	default:
		return CodeScrapeFailed
	}
}
