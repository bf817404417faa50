// Package tracker owns the bridge's core state machine: one announced
// APRS object per physically tracked aircraft, kept accurate and
// uncluttered under geographic hysteresis, an emission gate, dwell and
// silence expiry, and a global packet budget.
package tracker

import (
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/einsteine77/ADSBtoAPRS/pkg/aprs"
	"github.com/einsteine77/ADSBtoAPRS/pkg/geo"
)

// Config holds the registry thresholds. See config.BridgeConfig for
// the knob-by-knob description.
type Config struct {
	Center          geo.Point
	AddDistanceMi   float64
	ClearDistanceMi float64
	MinUpdate       time.Duration
	MinMoveMi       float64
	LandedAltFt     float64
	LandedWait      time.Duration
	LandClearAltFt  float64
	SilenceTTL      time.Duration
}

// Tracker is the aircraft registry. All mutation funnels through its
// three entry points (OnPosition, OnMetadata, Sweep) under one mutex;
// decided actions leave through the emit sink in decision order.
type Tracker struct {
	cfg  Config
	emit func(Action)

	mu       sync.Mutex
	aircraft map[string]*Aircraft

	// landedBlock suppresses re-announcing aircraft deleted by landed
	// dwell until they climb above LandClearAltFt. Values are the last
	// time the blocked aircraft was heard, so stale blocks can expire.
	landedBlock map[string]time.Time

	created, updated, deleted, renamed uint64
}

// New creates a registry delivering decided actions to emit.
// The sink is called with the mutex held, so it must not call back
// into the tracker; the throttler's non-blocking enqueue satisfies this.
func New(cfg Config, emit func(Action)) *Tracker {
	return &Tracker{
		cfg:         cfg,
		emit:        emit,
		aircraft:    make(map[string]*Aircraft),
		landedBlock: make(map[string]time.Time),
	}
}

// OnPosition applies one position report.
//
// Unknown aircraft are created only inside the add radius (the inner
// edge of the hysteresis band) and announced immediately. Known
// aircraft always have their tracking state refreshed; beyond the
// clear radius they are deleted outright, otherwise an update is
// emitted only when both the time and the movement gate pass.
func (t *Tracker) OnPosition(u PositionUpdate) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos := geo.Point{Latitude: u.Latitude, Longitude: u.Longitude}
	dist := geo.DistanceMiles(t.cfg.Center, pos)

	ac, ok := t.aircraft[u.ID]
	if !ok {
		if dist > t.cfg.AddDistanceMi {
			return
		}
		if t.landedBlocked(u) {
			return
		}
		t.createAircraft(u)
		return
	}

	// Tracking state is kept current even when nothing is emitted.
	ac.Latitude = u.Latitude
	ac.Longitude = u.Longitude
	ac.Altitude = u.Altitude
	ac.GroundSpeed = u.GroundSpeed
	ac.Track = u.Track
	ac.LastUpdate = u.Time

	// Outer-radius expiry trumps every other rule.
	if dist > t.cfg.ClearDistanceMi {
		t.deleteAircraft(ac, "out of range >%.0fmi", t.cfg.ClearDistanceMi)
		return
	}

	// Emission gate: both thresholds must hold. Either alone is not
	// enough; a stationary aircraft still refreshes once it has both
	// aged and drifted past the bounds.
	moved := geo.DistanceMiles(geo.Point{Latitude: ac.LastEmittedLat, Longitude: ac.LastEmittedLon}, pos)
	if u.Time.Sub(ac.LastEmitted) >= t.cfg.MinUpdate && moved >= t.cfg.MinMoveMi {
		t.emitUpdate(ac)
	}

	// Landed dwell: runs while the aircraft stays at or below the
	// threshold, resets the moment it climbs above it.
	if u.Altitude <= t.cfg.LandedAltFt {
		if ac.LandedSince.IsZero() {
			ac.LandedSince = u.Time
		}
	} else {
		ac.LandedSince = time.Time{}
	}
}

// OnMetadata applies one resolver update: symbol classification and the
// one-shot hex-to-flight rename.
//
// The rename is announced as a delete of the hex object immediately
// followed by a create under the flight number, decided atomically so
// no other action for the same aircraft can land between the two.
func (t *Tracker) OnMetadata(id, category, typeHint, flight string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ac, ok := t.aircraft[id]
	if !ok {
		return
	}

	// Sticky classification: never downgrade a specific symbol back to
	// the PLANE default on a later, less informative poll.
	if category != "" || typeHint != "" {
		sym := aprs.SymbolForCategory(category, typeHint)
		if sym != aprs.SymbolPlane || ac.Symbol == aprs.SymbolPlane {
			ac.Symbol = sym
		}
	}

	name := aprs.NormalizeCallsign(flight)
	if name == "" || ac.state != stateActiveHex || name == ac.DisplayName {
		return
	}

	oldName := ac.DisplayName
	ac.DisplayName = name
	ac.Callsign = flight
	ac.state = stateActiveFlight
	t.renamed++

	t.emit(Action{
		Type:      ActionDelete,
		ICAO:      ac.ICAO,
		Name:      oldName,
		Latitude:  ac.LastEmittedLat,
		Longitude: ac.LastEmittedLon,
		Symbol:    ac.Symbol,
		Decided:   ac.LastUpdate,
	})
	t.emitCreate(ac)

	log.Printf("[RENAME] %s -> %s", oldName, name)
}

// Sweep runs the time-driven expiry checks. Silence expiry is checked
// before landed expiry and at most one deletion fires per aircraft per
// sweep.
func (t *Tracker) Sweep(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, ac := range t.aircraft {
		if now.Sub(ac.LastUpdate) >= t.cfg.SilenceTTL {
			t.deleteAircraft(ac, "silent >=%s", t.cfg.SilenceTTL)
			continue
		}
		if !ac.LandedSince.IsZero() && now.Sub(ac.LandedSince) >= t.cfg.LandedWait {
			if t.cfg.LandClearAltFt > 0 {
				t.landedBlock[ac.ICAO] = now
			}
			t.deleteAircraft(ac, "landed dwell (<=%.0fft for %s)", t.cfg.LandedAltFt, t.cfg.LandedWait)
		}
	}

	// Blocked aircraft that went silent are forgotten entirely.
	for id, seen := range t.landedBlock {
		if now.Sub(seen) >= t.cfg.SilenceTTL {
			delete(t.landedBlock, id)
		}
	}
}

// Count returns the number of tracked aircraft.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.aircraft)
}

// Stats returns lifetime action counters: created, updated, deleted,
// renamed.
func (t *Tracker) Stats() (created, updated, deleted, renamed uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.created, t.updated, t.deleted, t.renamed
}

// Snapshot returns a copy of all tracked aircraft, sorted by distance
// from the center.
func (t *Tracker) Snapshot() []Info {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Info, 0, len(t.aircraft))
	for _, ac := range t.aircraft {
		out = append(out, Info{
			ICAO:        ac.ICAO,
			Name:        strings.TrimSpace(ac.DisplayName),
			Callsign:    ac.Callsign,
			Latitude:    ac.Latitude,
			Longitude:   ac.Longitude,
			Altitude:    ac.Altitude,
			GroundSpeed: ac.GroundSpeed,
			Track:       ac.Track,
			Symbol:      ac.Symbol.Tag,
			DistanceMi:  geo.DistanceMiles(t.cfg.Center, geo.Point{Latitude: ac.Latitude, Longitude: ac.Longitude}),
			LastUpdate:  ac.LastUpdate,
			LastEmitted: ac.LastEmitted,
			Landed:      !ac.LandedSince.IsZero(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceMi < out[j].DistanceMi })
	return out
}

// landedBlocked reports whether a new sighting is suppressed by a prior
// landed-dwell deletion. A report above the clear altitude lifts the
// suppression. Caller holds t.mu.
func (t *Tracker) landedBlocked(u PositionUpdate) bool {
	if t.cfg.LandClearAltFt <= 0 {
		return false
	}
	if _, blocked := t.landedBlock[u.ID]; !blocked {
		return false
	}
	if u.Altitude > t.cfg.LandClearAltFt {
		delete(t.landedBlock, u.ID)
		log.Printf("[LAND] %s climbed >%.0fft; re-enable", u.ID, t.cfg.LandClearAltFt)
		return false
	}
	t.landedBlock[u.ID] = u.Time
	return true
}

// createAircraft registers a first sighting and announces it. First
// sightings are always announced, bypassing the emission gate.
// Caller holds t.mu.
func (t *Tracker) createAircraft(u PositionUpdate) {
	ac := &Aircraft{
		ICAO:        u.ID,
		DisplayName: u.ID,
		Latitude:    u.Latitude,
		Longitude:   u.Longitude,
		Altitude:    u.Altitude,
		GroundSpeed: u.GroundSpeed,
		Track:       u.Track,
		LastUpdate:  u.Time,
		Symbol:      aprs.SymbolPlane,
		state:       stateActiveHex,
	}
	if u.Altitude <= t.cfg.LandedAltFt {
		ac.LandedSince = u.Time
	}
	t.aircraft[u.ID] = ac
	t.emitCreate(ac)
}

// emitCreate announces an aircraft under its current display name and
// marks the emission for gating. Caller holds t.mu.
func (t *Tracker) emitCreate(ac *Aircraft) {
	ac.LastEmitted = ac.LastUpdate
	ac.LastEmittedLat = ac.Latitude
	ac.LastEmittedLon = ac.Longitude
	t.created++

	alt, gs, trk := ac.Altitude, ac.GroundSpeed, ac.Track
	t.emit(Action{
		Type:        ActionCreate,
		ICAO:        ac.ICAO,
		Name:        ac.DisplayName,
		Latitude:    ac.Latitude,
		Longitude:   ac.Longitude,
		Altitude:    &alt,
		GroundSpeed: &gs,
		Track:       &trk,
		Symbol:      ac.Symbol,
		Callsign:    ac.Callsign,
		Decided:     ac.LastUpdate,
	})
}

// emitUpdate refreshes the announced object. Caller holds t.mu.
func (t *Tracker) emitUpdate(ac *Aircraft) {
	ac.LastEmitted = ac.LastUpdate
	ac.LastEmittedLat = ac.Latitude
	ac.LastEmittedLon = ac.Longitude
	t.updated++

	alt, gs, trk := ac.Altitude, ac.GroundSpeed, ac.Track
	t.emit(Action{
		Type:        ActionUpdate,
		ICAO:        ac.ICAO,
		Name:        ac.DisplayName,
		Latitude:    ac.Latitude,
		Longitude:   ac.Longitude,
		Altitude:    &alt,
		GroundSpeed: &gs,
		Track:       &trk,
		Symbol:      ac.Symbol,
		Callsign:    ac.Callsign,
		Decided:     ac.LastUpdate,
	})
}

// deleteAircraft removes the record and announces the deletion at the
// last emitted position. Caller holds t.mu.
func (t *Tracker) deleteAircraft(ac *Aircraft, reason string, args ...any) {
	delete(t.aircraft, ac.ICAO)
	t.deleted++

	lat, lon := ac.LastEmittedLat, ac.LastEmittedLon
	if ac.LastEmitted.IsZero() {
		lat, lon = ac.Latitude, ac.Longitude
	}
	t.emit(Action{
		Type:      ActionDelete,
		ICAO:      ac.ICAO,
		Name:      ac.DisplayName,
		Latitude:  lat,
		Longitude: lon,
		Symbol:    ac.Symbol,
		Decided:   ac.LastUpdate,
	})

	log.Printf("[EXPIRE] Deleted %s: "+reason, append([]any{strings.TrimSpace(ac.DisplayName)}, args...)...)
}
