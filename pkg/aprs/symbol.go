package aprs

import "strings"

// Symbol is an APRS display symbol (table + code) plus the short tag the
// bridge appends to object comments.
type Symbol struct {
	// Table is the symbol table identifier ("/" = primary)
	Table string

	// Code is the symbol code within the table
	Code string

	// Tag is the human-readable classification (PLANE, HELI, BALLOON, GLIDER)
	Tag string
}

// The four symbols the bridge emits.
var (
	SymbolPlane   = Symbol{Table: "/", Code: "^", Tag: "PLANE"}
	SymbolHeli    = Symbol{Table: "/", Code: "X", Tag: "HELI"}
	SymbolBalloon = Symbol{Table: "/", Code: "O", Tag: "BALLOON"}
	SymbolGlider  = Symbol{Table: "/", Code: "g", Tag: "GLIDER"}
)

// heliTypePrefixes are aircraft type designators that indicate rotorcraft.
var heliTypePrefixes = []string{"EC", "UH", "AH", "CH", "MH", "R22", "R44", "BELL", "BK"}

// gliderTypePrefixes are designators for gliders and motor gliders.
var gliderTypePrefixes = []string{"DG", "ASW", "ASK", "LS", "G1", "G2", "G3"}

// SymbolForCategory maps an ADS-B emitter category to an APRS symbol.
//
// Known categories take priority: A7 is rotorcraft, B2 lighter-than-air,
// B1/B4 glider or ultralight. Any other non-empty category is a plane.
// With no category at all, the type designator string is examined for
// rotorcraft, glider and balloon hints before defaulting to a plane.
// Deterministic and side-effect free.
func SymbolForCategory(category, typeHint string) Symbol {
	if cat := strings.ToUpper(strings.TrimSpace(category)); cat != "" {
		switch cat {
		case "A7":
			return SymbolHeli
		case "B2":
			return SymbolBalloon
		case "B1", "B4":
			return SymbolGlider
		}
		return SymbolPlane
	}

	t := strings.ToUpper(strings.TrimSpace(typeHint))
	if t == "" {
		return SymbolPlane
	}

	if strings.HasPrefix(t, "H") || strings.Contains(t, "HELI") || hasAnyPrefix(t, heliTypePrefixes) {
		return SymbolHeli
	}
	if strings.Contains(t, "GLID") || hasAnyPrefix(t, gliderTypePrefixes) {
		return SymbolGlider
	}
	if strings.Contains(t, "BAL") || strings.Contains(t, "BLN") || strings.Contains(t, "HAB") {
		return SymbolBalloon
	}

	return SymbolPlane
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
