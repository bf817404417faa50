// Package sbs reads dump1090's SBS-1 (BaseStation) output: a line-oriented
// CSV feed of decoded ADS-B messages on TCP port 30003.
package sbs

import (
	"strconv"
	"strings"
	"time"
)

// PositionReport is one decoded aircraft position from the SBS feed.
type PositionReport struct {
	// ICAO is the 24-bit aircraft address in upper-case hex (e.g. "A1B2C3")
	ICAO string

	// Callsign as broadcast by the aircraft, if present on this message
	Callsign string

	// Latitude/Longitude in decimal degrees
	Latitude  float64
	Longitude float64

	// Altitude in feet MSL; zero when the message carried none
	Altitude float64

	// GroundSpeed in knots; zero when absent
	GroundSpeed float64

	// Track in degrees (0-359); zero when absent
	Track float64

	// Seen is when the report was received locally
	Seen time.Time
}

// BaseStation field indexes (0-based). The format is a fixed 22-column CSV.
//
//	0: "MSG"    1: transmission type   4: ICAO hex
//	10: callsign  11: altitude  12: ground speed  13: track
//	14: latitude  15: longitude
const minFields = 22

// Parse decodes one BaseStation line into a PositionReport.
//
// Only MSG transmission types 3 (airborne position) and 4 (airborne
// velocity) are accepted, and a report requires both latitude and
// longitude. Everything else returns ok=false: the registry never sees
// malformed or positionless messages.
func Parse(line string) (PositionReport, bool) {
	f := strings.Split(strings.TrimSpace(line), ",")
	if len(f) < minFields || f[0] != "MSG" {
		return PositionReport{}, false
	}

	subtype, err := strconv.Atoi(f[1])
	if err != nil || (subtype != 3 && subtype != 4) {
		return PositionReport{}, false
	}

	icao := strings.ToUpper(strings.TrimSpace(f[4]))
	if icao == "" {
		return PositionReport{}, false
	}

	lat, latErr := strconv.ParseFloat(f[14], 64)
	lon, lonErr := strconv.ParseFloat(f[15], 64)
	if latErr != nil || lonErr != nil {
		return PositionReport{}, false
	}

	r := PositionReport{
		ICAO:      icao,
		Callsign:  strings.TrimSpace(f[10]),
		Latitude:  lat,
		Longitude: lon,
		Seen:      time.Now().UTC(),
	}

	// Optional numeric fields default to zero when empty or garbled.
	if alt, err := strconv.ParseFloat(f[11], 64); err == nil {
		r.Altitude = alt
	}
	if gs, err := strconv.ParseFloat(f[12], 64); err == nil {
		r.GroundSpeed = gs
	}
	if trk, err := strconv.ParseFloat(f[13], 64); err == nil {
		r.Track = trk
	}

	return r, true
}
