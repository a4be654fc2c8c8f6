// Package protocol defines the messages exchanged between callers, the broker
// and the per-tab orchestrator, plus the error taxonomy they share.
package protocol

import (
	"time"

	"github.com/hazyhaar/profilewatch/debuglog"
	"github.com/hazyhaar/profilewatch/profile"
)

// ContextID identifies one isolated execution context (a browser tab).
type ContextID string

// Inbound and completion actions.
const (
	ActionScrapeProfile  = "scrapeProfile"
	ActionProfileScraped = "profileScraped"
	ActionProfileError   = "profileError"
)

// Response statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ScrapeRequest is what a caller submits.
type ScrapeRequest struct {
	Action string `json:"action"`
	URL    string `json:"url"`
}

// Completion is sent by an orchestrator when a scrape reaches a terminal state.
type Completion struct {
	Action    string           `json:"action"`
	Profile   *profile.Profile `json:"profile,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	Code      string           `json:"code,omitempty"`
	DebugLogs []debuglog.Entry `json:"debugLogs"`
}

// Scraped builds a success completion.
func Scraped(p *profile.Profile, logs []debuglog.Entry) Completion {
	return Completion{Action: ActionProfileScraped, Profile: p, DebugLogs: logs}
}

// Failed builds an error completion from err.
func Failed(err error, logs []debuglog.Entry) Completion {
	return Completion{
		Action:    ActionProfileError,
		Reason:    err.Error(),
		Code:      CodeOf(err),
		DebugLogs: logs,
	}
}

// Response is the single terminal answer to a ScrapeRequest.
type Response struct {
	RequestID string           `json:"requestId,omitempty"`
	URL       string           `json:"url,omitempty"`
	Status    string           `json:"status"`
	Profile   *profile.Profile `json:"profile,omitempty"`
	ScrapedAt string           `json:"scrapedAt,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	Code      string           `json:"code,omitempty"`
	Debug     []debuglog.Entry `json:"debug"`
}

// OK reports whether the response carries a profile.
func (r Response) OK() bool { return r.Status == StatusSuccess }

// SuccessResponse builds a success response stamped with at.
func SuccessResponse(p *profile.Profile, at time.Time, debug []debuglog.Entry) Response {
	return Response{
		Status:    StatusSuccess,
		Profile:   p,
		ScrapedAt: at.UTC().Format(time.RFC3339),
		Debug:     nonNil(debug),
	}
}

// ErrorResponse builds an error response from err.
func ErrorResponse(err error, debug []debuglog.Entry) Response {
	return Response{
		Status: StatusError,
		Reason: err.Error(),
		Code:   CodeOf(err),
		Debug:  nonNil(debug),
	}
}

func nonNil(e []debuglog.Entry) []debuglog.Entry {
	if e == nil {
		return []debuglog.Entry{}
	}
	return e
}
