package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/profilewatch/profile"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("broker: submit: %w", ErrInvalidURL), CodeInvalidURL},
		{fmt.Errorf("%w: boom", ErrContextOpenFailed), CodeContextOpenFailed},
		{ErrTimeout, CodeTimeout},
		{ErrContextDestroyed, CodeContextDestroyed},
		{ErrMissingState, CodeMissingState},
		{fmt.Errorf("orchestrator: main: %w", ErrExtractionNotReady), CodeExtractionNotReady},
		{errors.New("something else"), CodeScrapeFailed},
	}
	for _, tt := range tests {
		if got := CodeOf(tt.err); got != tt.want {
			t.Errorf("CodeOf(%v): got %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestInvalidURLSharedWithProfile(t *testing.T) {
	_, err := profile.Rules{Host: "www.linkedin.com", Prefix: "/in/"}.ValidateURL("http://x")
	if CodeOf(err) != CodeInvalidURL {
		t.Errorf("CodeOf: got %q, want %q", CodeOf(err), CodeInvalidURL)
	}
}

func TestResponses(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	ok := SuccessResponse(profile.New(), at, nil)
	if !ok.OK() || ok.ScrapedAt != "2024-05-01T09:00:00Z" {
		t.Errorf("success: got %+v", ok)
	}

	bad := ErrorResponse(ErrTimeout, nil)
	if bad.OK() || bad.Code != CodeTimeout || bad.Reason != "timed out" {
		t.Errorf("error: got %+v", bad)
	}
	data, _ := json.Marshal(bad)
	if !strings.Contains(string(data), `"debug":[]`) {
		t.Errorf("debug should encode as []: %s", data)
	}
	if strings.Contains(string(data), `"profile"`) {
		t.Errorf("error response carries a profile: %s", data)
	}
}

func TestFailedCompletion(t *testing.T) {
	c := Failed(fmt.Errorf("orchestrator: skills: %w", ErrMissingState), nil)
	if c.Action != ActionProfileError || c.Code != CodeMissingState {
		t.Errorf("completion: got %+v", c)
	}
}
