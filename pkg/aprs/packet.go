// Package aprs builds APRS object packets and delivers them to an
// APRS-IS server.
//
// Only the object report subset of the protocol is implemented: the
// bridge announces, refreshes, and kills objects, it never parses
// inbound APRS traffic.
package aprs

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// ObjectNameLen is the fixed width of an APRS object name.
const ObjectNameLen = 9

var nameCleaner = regexp.MustCompile(`[^A-Z0-9]`)

// NormalizeCallsign upper-cases a callsign and strips everything that is
// not a letter or digit. Returns "" if nothing survives.
func NormalizeCallsign(cs string) string {
	return nameCleaner.ReplaceAllString(strings.ToUpper(cs), "")
}

// ObjectName builds the fixed-width object name for an aircraft: the
// normalized callsign when one exists, otherwise the ICAO hex.
func ObjectName(callsign, icaoHex string) string {
	n := NormalizeCallsign(callsign)
	if n == "" {
		n = icaoHex
		if n == "" {
			n = "AIRCRAFT"
		}
	}
	return padName(n)
}

func padName(n string) string {
	if len(n) > ObjectNameLen {
		n = n[:ObjectNameLen]
	}
	return n + strings.Repeat(" ", ObjectNameLen-len(n))
}

// Object describes one APRS object report. The pointer fields are
// omitted from the comment when nil, matching how a kill report carries
// no velocity or altitude.
type Object struct {
	// Name is the object name; padded/truncated to 9 characters on encode
	Name string

	// Latitude/Longitude in decimal degrees
	Latitude  float64
	Longitude float64

	Symbol Symbol

	// Track in degrees (optional)
	Track *float64

	// GroundSpeed in knots (optional)
	GroundSpeed *float64

	// Altitude in feet (optional)
	Altitude *float64

	// Callsign is added as a FLT comment field when set
	Callsign string

	// ICAO hex is added as an ICAO comment field when set
	ICAO string

	// AppendSymbolTag adds "SYM <tag>" to the comment
	AppendSymbolTag bool

	// Kill marks the object deleted downstream
	Kill bool
}

// Encode renders the object report body:
//
//	;NAME     *HHMMSSzDDMM.mmN/DDDMM.mmW^TRK 270 GS 420kt ALT 30000ft ...
//
// The timestamp is taken from now so emission time, not decision time,
// lands in the packet.
func (o Object) Encode(now time.Time) string {
	ts := now.UTC().Format("150405") + "z"

	var parts []string
	if o.Track != nil {
		// Go's % keeps the sign; fold negative headings into 0..359.
		parts = append(parts, fmt.Sprintf("TRK %03d", ((int(*o.Track)%360)+360)%360))
	}
	if o.GroundSpeed != nil {
		parts = append(parts, fmt.Sprintf("GS %dkt", int(*o.GroundSpeed)))
	}
	if o.Altitude != nil {
		parts = append(parts, fmt.Sprintf("ALT %dft", int(*o.Altitude)))
	}
	if cs := NormalizeCallsign(o.Callsign); cs != "" {
		parts = append(parts, "FLT "+cs)
	}
	if o.ICAO != "" {
		parts = append(parts, "ICAO "+o.ICAO)
	}
	if o.AppendSymbolTag && o.Symbol.Tag != "" {
		parts = append(parts, "SYM "+o.Symbol.Tag)
	}
	if o.Kill {
		parts = append(parts, "DEL")
	}

	comment := "ADS-B"
	if len(parts) > 0 {
		comment = strings.Join(parts, " ")
	}

	return fmt.Sprintf(";%s*%s%s%s%s%s%s",
		padName(o.Name), ts, dmLat(o.Latitude), o.Symbol.Table, dmLon(o.Longitude), o.Symbol.Code, comment)
}

// dmLat formats latitude as APRS degrees + decimal minutes: DDMM.mmN.
func dmLat(lat float64) string {
	hemi := "N"
	if lat < 0 {
		hemi = "S"
	}
	a := math.Abs(lat)
	d := int(a)
	m := (a - float64(d)) * 60
	return fmt.Sprintf("%02d%05.2f%s", d, m, hemi)
}

// dmLon formats longitude as DDDMM.mmE/W.
func dmLon(lon float64) string {
	hemi := "E"
	if lon < 0 {
		hemi = "W"
	}
	a := math.Abs(lon)
	d := int(a)
	m := (a - float64(d)) * 60
	return fmt.Sprintf("%03d%05.2f%s", d, m, hemi)
}
