package tracker

import (
	"time"

	"github.com/einsteine77/ADSBtoAPRS/pkg/aprs"
)

// ActionType is the kind of announcement a registry decision produced.
type ActionType int

const (
	// ActionCreate announces a new object downstream
	ActionCreate ActionType = iota

	// ActionUpdate refreshes an existing object's position and velocity
	ActionUpdate

	// ActionDelete removes an object downstream
	ActionDelete
)

// String returns the action type name for logging.
func (t ActionType) String() string {
	switch t {
	case ActionCreate:
		return "CREATE"
	case ActionUpdate:
		return "UPDATE"
	case ActionDelete:
		return "DELETE"
	}
	return "UNKNOWN"
}

// Action is one decided announcement. Actions flow from the registry
// through the throttler to the APRS uplink in decision order.
type Action struct {
	Type ActionType

	// ICAO is the aircraft address the action belongs to. The throttler
	// uses it to recognize superseded updates.
	ICAO string

	// Name is the object name the action applies to (unpadded)
	Name string

	// Latitude/Longitude of the announcement. Deletes carry the last
	// announced position so the kill lands on the object's last spot.
	Latitude  float64
	Longitude float64

	// Altitude (ft), GroundSpeed (kts) and Track (deg); nil on deletes
	Altitude    *float64
	GroundSpeed *float64
	Track       *float64

	Symbol aprs.Symbol

	// Callsign is the resolved flight number, when known
	Callsign string

	// Decided is when the registry produced the action
	Decided time.Time
}

// lifecycle returns true for actions that must never be dropped:
// losing a create or delete desynchronizes the downstream display
// permanently, while a stale update is harmless to skip.
func (a Action) lifecycle() bool {
	return a.Type != ActionUpdate
}
