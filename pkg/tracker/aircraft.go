package tracker

import (
	"time"

	"github.com/einsteine77/ADSBtoAPRS/pkg/aprs"
)

// lifecycleState tracks how an aircraft is currently announced.
type lifecycleState int

const (
	// stateActiveHex: announced under the ICAO hex, no flight number yet
	stateActiveHex lifecycleState = iota

	// stateActiveFlight: renamed once to the resolved flight number
	stateActiveFlight
)

// PositionUpdate is one normalized position report entering the registry.
// ID, Latitude and Longitude are required; the ingestion boundary has
// already rejected reports without them. The remaining fields are zero
// when the report carried none.
type PositionUpdate struct {
	ID          string
	Latitude    float64
	Longitude   float64
	Altitude    float64
	GroundSpeed float64
	Track       float64
	Time        time.Time
}

// Aircraft is one tracked aircraft's registry record.
type Aircraft struct {
	// ICAO is the stable identifier; immutable for the record's lifetime
	ICAO string

	// DisplayName is the announced object name: the hex address until a
	// flight number resolves, then the flight number. The transition
	// happens at most once and never reverses.
	DisplayName string

	// Callsign is the resolved flight number, empty until known
	Callsign string

	Latitude    float64
	Longitude   float64
	Altitude    float64
	GroundSpeed float64
	Track       float64

	// LastUpdate is when the last report arrived, emitted or not
	LastUpdate time.Time

	// LastEmitted and LastEmittedLat/Lon gate redundant updates
	LastEmitted    time.Time
	LastEmittedLat float64
	LastEmittedLon float64

	// Symbol sticks once a more specific classification than PLANE is seen
	Symbol aprs.Symbol

	// LandedSince marks the start of a continuous low-altitude dwell;
	// zero when the aircraft was last seen above the landed threshold
	LandedSince time.Time

	state lifecycleState
}

// Info is a read-only view of a tracked aircraft for the status API.
type Info struct {
	ICAO        string    `json:"icao"`
	Name        string    `json:"name"`
	Callsign    string    `json:"callsign,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Altitude    float64   `json:"altitude"`
	GroundSpeed float64   `json:"ground_speed"`
	Track       float64   `json:"track"`
	Symbol      string    `json:"symbol"`
	DistanceMi  float64   `json:"distance_mi"`
	LastUpdate  time.Time `json:"last_update"`
	LastEmitted time.Time `json:"last_emitted"`
	Landed      bool      `json:"landed,omitempty"`
}
