package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/profilewatch/debuglog"
	"github.com/hazyhaar/profilewatch/kit"
	"github.com/hazyhaar/profilewatch/protocol"
	"github.com/hazyhaar/profilewatch/safe"
	"github.com/hazyhaar/profilewatch/shield"
)

// ErrNotFound is returned by a History without the requested record.
var ErrNotFound = errors.New("broker: not found")

// History looks up finished scrapes by request ID.
type History interface {
	Get(ctx context.Context, requestID string) (protocol.Response, error)
}

// HandlerConfig configures the HTTP transport.
type HandlerConfig struct {
	History   History // optional; GET /api/scrapes/{requestID} answers 404 without it
	TokenHash string  // bcrypt hash of the API bearer token; empty disables auth
	Middle    []func(http.Handler) http.Handler
}

// Handler returns the chi router serving the scrape API:
//
//	POST /api/scrape               {"action":"scrapeProfile","url":...}
//	GET  /api/scrapes/{requestID}
//	GET  /health
func (b *Broker) Handler(cfg HandlerConfig) http.Handler {
	r := chi.NewRouter()
	for _, mw := range cfg.Middle {
		r.Use(mw)
	}
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "pending": b.Len()})
	})
	r.Group(func(r chi.Router) {
		r.Use(shield.RequireToken(cfg.TokenHash))
		r.Post("/api/scrape", b.handleScrape)
		r.Get("/api/scrapes/{requestID}", b.handleLookup(cfg.History))
	})
	return r
}

func (b *Broker) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req protocol.ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, badRequest("invalid JSON body"))
		return
	}
	if req.Action != "" && req.Action != protocol.ActionScrapeProfile {
		writeJSON(w, http.StatusBadRequest, badRequest("unsupported action "+req.Action))
		return
	}

	ctx := kit.WithTransport(r.Context(), "http")
	if id := r.Header.Get("X-Request-ID"); id != "" {
		if err := safe.ValidateIdentifier(id); err != nil {
			writeJSON(w, http.StatusBadRequest, badRequest("malformed X-Request-ID"))
			return
		}
		ctx = kit.WithRequestID(ctx, id)
	}

	ep := kit.Chain(kit.Logging(shield.GetLogger(ctx), "scrape"))(b.ScrapeEndpoint())
	out, err := ep(ctx, &req)
	writeResult(w, out, err)
}

// writeResult writes an endpoint's result. An endpoint error or a result
// that is not a Response is a 500.
func writeResult(w http.ResponseWriter, out any, err error) {
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, protocol.ErrorResponse(err, nil))
		return
	}
	resp, ok := out.(protocol.Response)
	if !ok {
		err := fmt.Errorf("broker: unexpected endpoint result %T", out)
		writeJSON(w, http.StatusInternalServerError, protocol.ErrorResponse(err, nil))
		return
	}
	writeJSON(w, statusFor(resp), resp)
}

func (b *Broker) handleLookup(h History) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "requestID")
		if err := safe.ValidateIdentifier(id); err != nil {
			writeJSON(w, http.StatusBadRequest, badRequest("malformed request id"))
			return
		}
		if b.InFlight(id) {
			writeJSON(w, http.StatusAccepted, map[string]string{"requestId": id, "status": "pending"})
			return
		}
		if h == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "reason": "not found"})
			return
		}
		resp, err := h.Get(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "reason": "not found"})
			return
		}
		if err != nil {
			shield.GetLogger(r.Context()).Error("broker: history lookup", "request_id", id, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "reason": "internal error"})
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ScrapeEndpoint adapts Scrape to a kit.Endpoint taking a
// *protocol.ScrapeRequest. It never returns an error: failures are error
// responses.
func (b *Broker) ScrapeEndpoint() kit.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		r := req.(*protocol.ScrapeRequest)
		return b.Scrape(ctx, r.URL), nil
	}
}

// CodeBadRequest marks requests rejected before submission.
const CodeBadRequest = "bad_request"

func badRequest(reason string) protocol.Response {
	return protocol.Response{
		Status: protocol.StatusError,
		Reason: reason,
		Code:   CodeBadRequest,
		Debug:  []debuglog.Entry{},
	}
}

// statusFor maps a response to its HTTP status.
func statusFor(r protocol.Response) int {
	switch {
	case r.OK():
		return http.StatusOK
	case r.Code == protocol.CodeInvalidURL:
		return http.StatusBadRequest
	case r.Code == protocol.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
