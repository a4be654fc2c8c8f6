package profile

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURL is returned by ValidateURL.
var ErrInvalidURL = errors.New("invalid profile url")

// Rules describe where profiles live.
type Rules struct {
	Host   string // e.g. www.linkedin.com
	Prefix string // e.g. /in/
}

// ValidateURL checks scheme, host and path prefix. Every violation wraps
// ErrInvalidURL.
func (r Rules) ValidateURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q is not https", ErrInvalidURL, u.Scheme)
	}
	if !strings.EqualFold(u.Hostname(), r.Host) {
		return nil, fmt.Errorf("%w: host %q, want %q", ErrInvalidURL, u.Hostname(), r.Host)
	}
	if !strings.HasPrefix(u.Path, r.Prefix) || len(u.Path) == len(r.Prefix) {
		return nil, fmt.Errorf("%w: path %q does not start with %q", ErrInvalidURL, u.Path, r.Prefix)
	}
	return u, nil
}

// Kind is the page type a URL points at.
type Kind int

const (
	KindUnknown Kind = iota
	KindMain
	KindSkills
)

func (k Kind) String() string {
	switch k {
	case KindMain:
		return "main"
	case KindSkills:
		return "skills"
	default:
		return "unknown"
	}
}

// KindOf classifies a page path.
func (r Rules) KindOf(path string) Kind {
	switch {
	case strings.Contains(path, "/details/skills"):
		return KindSkills
	case strings.HasPrefix(path, r.Prefix) && !strings.Contains(path, "/details/"):
		return KindMain
	default:
		return KindUnknown
	}
}

// BasePath strips any /details/ suffix and the trailing slash.
func BasePath(path string) string {
	base, _, _ := strings.Cut(path, "/details/")
	return strings.TrimRight(base, "/")
}

// SkillsURL builds {origin}{basePath}/details/skills/.
func SkillsURL(origin, basePath string) string {
	return strings.TrimRight(origin, "/") + BasePath(basePath) + "/details/skills/"
}

// Origin returns scheme://host of u.
func Origin(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}
