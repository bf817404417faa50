package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func collectUpdates(t *testing.T, p *Poller, n int) map[string]Entry {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	updates := make(chan Update, 64)
	p.pollOnce(ctx, updates)

	got := make(map[string]Entry)
	for len(got) < n {
		select {
		case u := <-updates:
			got[u.ICAO] = u.Entry
		case <-ctx.Done():
			t.Fatalf("Timed out after %d/%d updates", len(got), n)
		}
	}
	return got
}

// TestPollOnce tests payload decoding and cache merging.
func TestPollOnce(t *testing.T) {
	t.Run("Wrapper payload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"aircraft": [
				{"hex": "a1b2c3", "category": "A3", "t": "B738", "flight": "JBU123 "},
				{"hex": "DDEEFF", "category": "A7", "type": "R44"}
			]}`))
		}))
		defer server.Close()

		p := NewPoller(server.URL, time.Second, time.Second)
		got := collectUpdates(t, p, 2)

		if e := got["A1B2C3"]; e.Category != "A3" || e.Type != "B738" || e.Flight != "JBU123 " {
			t.Errorf("Unexpected entry for A1B2C3: %+v", e)
		}
		if e := got["DDEEFF"]; e.Category != "A7" || e.Type != "R44" || e.Flight != "" {
			t.Errorf("Unexpected entry for DDEEFF: %+v", e)
		}

		h := p.Health()
		if !h.OK || h.Aircraft != 2 {
			t.Errorf("Expected healthy source with 2 aircraft, got %+v", h)
		}
	})

	t.Run("Bare list payload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"hex": "a1b2c3", "call": "DAL88"}]`))
		}))
		defer server.Close()

		p := NewPoller(server.URL, time.Second, time.Second)
		got := collectUpdates(t, p, 1)

		if e := got["A1B2C3"]; e.Flight != "DAL88" {
			t.Errorf("Expected flight DAL88, got %+v", e)
		}
	})

	t.Run("Fields are sticky across polls", func(t *testing.T) {
		first := true
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if first {
				first = false
				w.Write([]byte(`[{"hex": "A1B2C3", "category": "A7", "flight": "LIFE1"}]`))
				return
			}
			w.Write([]byte(`[{"hex": "A1B2C3"}]`))
		}))
		defer server.Close()

		p := NewPoller(server.URL, time.Second, time.Second)
		collectUpdates(t, p, 1)
		got := collectUpdates(t, p, 1)

		if e := got["A1B2C3"]; e.Category != "A7" || e.Flight != "LIFE1" {
			t.Errorf("Expected retained metadata, got %+v", e)
		}
	})

	t.Run("HTTP error marks source unhealthy", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		p := NewPoller(server.URL, time.Second, time.Second)
		updates := make(chan Update, 1)
		p.pollOnce(context.Background(), updates)

		h := p.Health()
		if h.OK {
			t.Error("Expected unhealthy source")
		}
		if h.LastErr == "" {
			t.Error("Expected error message to be recorded")
		}
		if len(updates) != 0 {
			t.Error("Expected no updates on failure")
		}
	})

	t.Run("Bad JSON marks source unhealthy", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{not json`))
		}))
		defer server.Close()

		p := NewPoller(server.URL, time.Second, time.Second)
		updates := make(chan Update, 1)
		p.pollOnce(context.Background(), updates)

		if p.Health().OK {
			t.Error("Expected unhealthy source for bad JSON")
		}
	})

	t.Run("Records without hex are skipped", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"flight": "NOHEX1"}, {"hex": "A1B2C3"}]`))
		}))
		defer server.Close()

		p := NewPoller(server.URL, time.Second, time.Second)
		got := collectUpdates(t, p, 1)

		if _, ok := got[""]; ok {
			t.Error("Expected hexless record to be skipped")
		}
		if _, ok := got["A1B2C3"]; !ok {
			t.Error("Expected A1B2C3 to be present")
		}
	})
}
