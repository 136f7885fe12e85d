// Package testutil holds shared fakes for tests: a canned oracle endpoint
// and a recording helpdesk server.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// MockHelpdesk is a recording stand-in for the Freshdesk API. It serves the
// configured ticket JSON on GET and records every private note and tag
// update the pipeline writes back.
type MockHelpdesk struct {
	Server *httptest.Server

	mu         sync.Mutex
	ticketJSON string
	notes      []string
	tagUpdates [][]string
}

// NewMockHelpdesk starts the server. ticketJSON is returned verbatim for any
// GET /tickets/{id}. Caller must register t.Cleanup(h.Close).
func NewMockHelpdesk(ticketJSON string) *MockHelpdesk {
	h := &MockHelpdesk{ticketJSON: ticketJSON}
	h.Server = httptest.NewServer(http.HandlerFunc(h.handle))
	return h
}

func (h *MockHelpdesk) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/tickets/"):
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(h.ticketJSON))

	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/notes"):
		var payload struct {
			Body    string `json:"body"`
			Private bool   `json:"private"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		h.mu.Lock()
		h.notes = append(h.notes, payload.Body)
		h.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))

	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/tickets/"):
		var payload struct {
			Tags []string `json:"tags"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		h.mu.Lock()
		h.tagUpdates = append(h.tagUpdates, payload.Tags)
		h.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))

	case r.Method == http.MethodGet && strings.TrimRight(r.URL.Path, "/") == "/tickets":
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// URL is the base URL clients should use.
func (h *MockHelpdesk) URL() string { return h.Server.URL }

// Close shuts the server down.
func (h *MockHelpdesk) Close() { h.Server.Close() }

// Notes returns a copy of the private note bodies received so far.
func (h *MockHelpdesk) Notes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.notes...)
}

// TagUpdates returns a copy of the tag lists received so far.
func (h *MockHelpdesk) TagUpdates() [][]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([][]string, len(h.tagUpdates))
	for i, tags := range h.tagUpdates {
		out[i] = append([]string(nil), tags...)
	}
	return out
}
