// Package metadata polls dump1090's aircraft JSON endpoint to resolve
// ICAO addresses into emitter categories, type designators and flight
// numbers. The SBS feed itself rarely carries these, so the bridge
// merges them in from the JSON side channel.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Entry is the resolved metadata for one aircraft. Fields stay empty
// until the source reports them; once seen they are retained across
// polls even if a later poll omits them.
type Entry struct {
	// Category is the ADS-B emitter category code (e.g. "A1", "A7")
	Category string

	// Type is the aircraft type designator (e.g. "B738", "R44")
	Type string

	// Flight is the flight number / callsign
	Flight string
}

// Update pairs an ICAO address with its current metadata.
type Update struct {
	ICAO string
	Entry
}

// dump1090 aircraft record. Different dump1090 builds use different
// field names for the same data, so all known aliases are decoded.
type jsonAircraft struct {
	Hex          string `json:"hex"`
	Category     string `json:"category"`
	Type         string `json:"type"`
	T            string `json:"t"`
	Flight       string `json:"flight"`
	Call         string `json:"call"`
	FlightNumber string `json:"flightnumber"`
}

// Health is the poller's view of the JSON source.
type Health struct {
	OK       bool
	LastOK   time.Time
	LastErr  string
	Aircraft int
}

// Poller fetches aircraft metadata on a fixed interval and publishes
// one Update per known aircraft after every poll.
type Poller struct {
	url      string
	interval time.Duration
	client   *http.Client

	mu     sync.Mutex
	cache  map[string]Entry
	health Health

	lastLogged   time.Time
	lastLoggedOK bool
	everLogged   bool
}

// NewPoller creates a poller for the given endpoint.
func NewPoller(url string, interval, timeout time.Duration) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Poller{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: timeout},
		cache:    make(map[string]Entry),
	}
}

// Run polls until the context ends, sending the merged cache as
// individual updates after each successful poll. The first poll runs
// immediately.
func (p *Poller) Run(ctx context.Context, updates chan<- Update) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.pollOnce(ctx, updates)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Health returns the current source health.
func (p *Poller) Health() Health {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.health
}

func (p *Poller) pollOnce(ctx context.Context, updates chan<- Update) {
	list, err := p.fetch(ctx)
	if err != nil {
		p.recordFailure(err)
		return
	}

	p.mu.Lock()
	count := 0
	for _, ac := range list {
		icao := normalizeHex(ac.Hex)
		if icao == "" {
			continue
		}
		entry := p.cache[icao]
		if ac.Category != "" {
			entry.Category = ac.Category
		}
		if t := firstNonEmpty(ac.Type, ac.T); t != "" {
			entry.Type = t
		}
		if flt := firstNonEmpty(ac.Flight, ac.Call, ac.FlightNumber); flt != "" {
			entry.Flight = flt
		}
		p.cache[icao] = entry
		count++
	}
	p.health = Health{OK: true, LastOK: time.Now(), Aircraft: count}
	p.maybeLogHealth()

	// Publish the whole cache, not just this poll's aircraft, so a
	// late-started registry still hears about everything.
	snapshot := make([]Update, 0, len(p.cache))
	for icao, entry := range p.cache {
		snapshot = append(snapshot, Update{ICAO: icao, Entry: entry})
	}
	p.mu.Unlock()

	for _, u := range snapshot {
		select {
		case updates <- u:
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) fetch(ctx context.Context) ([]jsonAircraft, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	// dump1090 serves either a bare list (data.json) or a wrapper
	// object (aircraft.json); accept both.
	var wrapper struct {
		Aircraft []jsonAircraft `json:"aircraft"`
	}
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Aircraft != nil {
		return wrapper.Aircraft, nil
	}

	var list []jsonAircraft
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("bad format: %w", err)
	}
	return list, nil
}

func (p *Poller) recordFailure(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.health.OK = false
	p.health.LastErr = err.Error()
	p.maybeLogHealth()
}

// maybeLogHealth logs the source state on every ok/fail transition and
// otherwise at most once a minute. Caller holds p.mu.
func (p *Poller) maybeLogHealth() {
	now := time.Now()
	changed := !p.everLogged || p.health.OK != p.lastLoggedOK
	if !changed && now.Sub(p.lastLogged) < time.Minute {
		return
	}

	if p.health.OK {
		log.Printf("[JSON] OK  source=%s count=%d", p.url, p.health.Aircraft)
	} else {
		log.Printf("[JSON] FAIL (%s)  url=%s", p.health.LastErr, p.url)
	}
	p.lastLogged = now
	p.lastLoggedOK = p.health.OK
	p.everLogged = true
}

func normalizeHex(hex string) string {
	return strings.ToUpper(strings.TrimSpace(hex))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
