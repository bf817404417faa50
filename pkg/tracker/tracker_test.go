package tracker

import (
	"testing"
	"time"

	"github.com/einsteine77/ADSBtoAPRS/pkg/aprs"
	"github.com/einsteine77/ADSBtoAPRS/pkg/geo"
)

var testCenter = geo.Point{Latitude: 42.9405, Longitude: -78.7322}

// milesPerDegreeLat is close enough for building test positions.
const milesPerDegreeLat = 69.09

func testConfig() Config {
	return Config{
		Center:          testCenter,
		AddDistanceMi:   35,
		ClearDistanceMi: 40,
		MinUpdate:       5 * time.Second,
		MinMoveMi:       0.5,
		LandedAltFt:     1000,
		LandedWait:      180 * time.Second,
		LandClearAltFt:  1500,
		SilenceTTL:      300 * time.Second,
	}
}

// capture collects emitted actions for assertions.
type capture struct {
	actions []Action
}

func (c *capture) sink(a Action) { c.actions = append(c.actions, a) }

func (c *capture) ofType(t ActionType) []Action {
	var out []Action
	for _, a := range c.actions {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

func (c *capture) reset() { c.actions = nil }

// atMiles returns a latitude north of the test center at the given
// distance from it.
func atMiles(mi float64) (lat, lon float64) {
	return testCenter.Latitude + mi/milesPerDegreeLat, testCenter.Longitude
}

func update(id string, lat, lon, alt float64, ts time.Time) PositionUpdate {
	return PositionUpdate{
		ID: id, Latitude: lat, Longitude: lon, Altitude: alt,
		GroundSpeed: 250, Track: 90, Time: ts,
	}
}

// TestHysteresis tests the add/clear radius band.
func TestHysteresis(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("First sighting outside add radius is ignored", func(t *testing.T) {
		var c capture
		tr := New(testConfig(), c.sink)

		lat, lon := atMiles(37)
		tr.OnPosition(update("A1B2C3", lat, lon, 20000, t0))

		if len(c.actions) != 0 || tr.Count() != 0 {
			t.Errorf("Expected no entity for sighting in the hysteresis band, got %d actions", len(c.actions))
		}
	})

	t.Run("First sighting inside add radius creates immediately", func(t *testing.T) {
		var c capture
		tr := New(testConfig(), c.sink)

		lat, lon := atMiles(30)
		tr.OnPosition(update("A1B2C3", lat, lon, 20000, t0))

		if len(c.actions) != 1 || c.actions[0].Type != ActionCreate {
			t.Fatalf("Expected exactly one CREATE, got %v", c.actions)
		}
		if c.actions[0].Name != "A1B2C3" {
			t.Errorf("Expected hex name, got %q", c.actions[0].Name)
		}
	})

	t.Run("Crossing the band does not delete or recreate", func(t *testing.T) {
		var c capture
		tr := New(testConfig(), c.sink)

		lat, lon := atMiles(30)
		tr.OnPosition(update("A1B2C3", lat, lon, 20000, t0))
		c.reset()

		// Drift out to 38 mi: past add, short of clear
		lat, lon = atMiles(38)
		tr.OnPosition(update("A1B2C3", lat, lon, 20000, t0.Add(10*time.Second)))

		if got := c.ofType(ActionDelete); len(got) != 0 {
			t.Errorf("Expected no DELETE inside the band, got %d", len(got))
		}
		if got := c.ofType(ActionCreate); len(got) != 0 {
			t.Errorf("Expected no CREATE inside the band, got %d", len(got))
		}
		if got := c.ofType(ActionUpdate); len(got) != 1 {
			t.Errorf("Expected the band crossing to emit an UPDATE, got %d", len(got))
		}
	})

	t.Run("Beyond clear radius deletes and removes", func(t *testing.T) {
		var c capture
		tr := New(testConfig(), c.sink)

		lat, lon := atMiles(30)
		tr.OnPosition(update("A1B2C3", lat, lon, 20000, t0))
		c.reset()

		lat, lon = atMiles(42)
		tr.OnPosition(update("A1B2C3", lat, lon, 20000, t0.Add(10*time.Second)))

		if len(c.actions) != 1 || c.actions[0].Type != ActionDelete {
			t.Fatalf("Expected exactly one DELETE, got %v", c.actions)
		}
		if tr.Count() != 0 {
			t.Error("Expected entity removed from registry")
		}
	})

	t.Run("Reappearing after out-of-range delete is a fresh entity", func(t *testing.T) {
		var c capture
		tr := New(testConfig(), c.sink)

		lat30, lon30 := atMiles(30)
		lat42, lon42 := atMiles(42)
		tr.OnPosition(update("A1B2C3", lat30, lon30, 20000, t0))
		tr.OnPosition(update("A1B2C3", lat42, lon42, 20000, t0.Add(10*time.Second)))
		c.reset()

		tr.OnPosition(update("A1B2C3", lat30, lon30, 20000, t0.Add(20*time.Second)))

		if len(c.actions) != 1 || c.actions[0].Type != ActionCreate {
			t.Fatalf("Expected CREATE for returning aircraft, got %v", c.actions)
		}
	})
}

// TestEmissionGate tests the combined time+movement gate.
func TestEmissionGate(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	lat, lon := atMiles(20)

	setup := func() (*Tracker, *capture) {
		var c capture
		tr := New(testConfig(), c.sink)
		tr.OnPosition(update("A1B2C3", lat, lon, 20000, t0))
		c.reset()
		return tr, &c
	}

	t.Run("Neither threshold met suppresses update", func(t *testing.T) {
		tr, c := setup()
		tr.OnPosition(update("A1B2C3", lat+0.004, lon, 20000, t0.Add(2*time.Second)))
		if len(c.actions) != 0 {
			t.Errorf("Expected no actions, got %v", c.actions)
		}
	})

	t.Run("Time alone is insufficient", func(t *testing.T) {
		tr, c := setup()
		tr.OnPosition(update("A1B2C3", lat+0.004, lon, 20000, t0.Add(30*time.Second)))
		if len(c.actions) != 0 {
			t.Errorf("Expected no actions for a near-stationary aircraft, got %v", c.actions)
		}
	})

	t.Run("Movement alone is insufficient", func(t *testing.T) {
		tr, c := setup()
		tr.OnPosition(update("A1B2C3", lat+0.02, lon, 20000, t0.Add(2*time.Second)))
		if len(c.actions) != 0 {
			t.Errorf("Expected no actions within the time bound, got %v", c.actions)
		}
	})

	t.Run("Both thresholds met emits exactly one update", func(t *testing.T) {
		tr, c := setup()
		tr.OnPosition(update("A1B2C3", lat+0.02, lon, 20000, t0.Add(6*time.Second)))
		if len(c.actions) != 1 || c.actions[0].Type != ActionUpdate {
			t.Fatalf("Expected exactly one UPDATE, got %v", c.actions)
		}
	})

	t.Run("Gate measures from last emission, not last report", func(t *testing.T) {
		tr, c := setup()
		// A stream of suppressed jitter reports...
		for i := 1; i <= 4; i++ {
			tr.OnPosition(update("A1B2C3", lat+0.001*float64(i), lon, 20000, t0.Add(time.Duration(i)*time.Second)))
		}
		if len(c.actions) != 0 {
			t.Fatalf("Expected jitter to be suppressed, got %v", c.actions)
		}
		// ...then one that clears both bounds relative to the CREATE
		tr.OnPosition(update("A1B2C3", lat+0.02, lon, 20000, t0.Add(6*time.Second)))
		if len(c.actions) != 1 || c.actions[0].Type != ActionUpdate {
			t.Fatalf("Expected one UPDATE after clearing both bounds, got %v", c.actions)
		}
	})

	t.Run("Tracking state stays current while suppressed", func(t *testing.T) {
		tr, _ := setup()
		tr.OnPosition(update("A1B2C3", lat+0.004, lon, 15000, t0.Add(2*time.Second)))

		snap := tr.Snapshot()
		if len(snap) != 1 {
			t.Fatal("Expected one tracked aircraft")
		}
		if snap[0].Altitude != 15000 {
			t.Errorf("Expected altitude 15000 despite suppressed emission, got %f", snap[0].Altitude)
		}
	})
}

// TestRename tests the one-shot hex-to-flight transition.
func TestRename(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	lat, lon := atMiles(20)

	t.Run("Rename emits delete then create in order", func(t *testing.T) {
		var c capture
		tr := New(testConfig(), c.sink)
		tr.OnPosition(update("A1B2C3", lat, lon, 20000, t0))
		c.reset()

		tr.OnMetadata("A1B2C3", "A3", "B738", "JBU123")

		if len(c.actions) != 2 {
			t.Fatalf("Expected DELETE+CREATE pair, got %v", c.actions)
		}
		if c.actions[0].Type != ActionDelete || c.actions[0].Name != "A1B2C3" {
			t.Errorf("Expected DELETE of hex name first, got %v", c.actions[0])
		}
		if c.actions[1].Type != ActionCreate || c.actions[1].Name != "JBU123" {
			t.Errorf("Expected CREATE under flight number second, got %v", c.actions[1])
		}
	})

	t.Run("Rename happens at most once", func(t *testing.T) {
		var c capture
		tr := New(testConfig(), c.sink)
		tr.OnPosition(update("A1B2C3", lat, lon, 20000, t0))
		tr.OnMetadata("A1B2C3", "A3", "B738", "JBU123")
		c.reset()

		tr.OnMetadata("A1B2C3", "A3", "B738", "JBU123")
		tr.OnMetadata("A1B2C3", "A3", "B738", "JBU999")

		if len(c.actions) != 0 {
			t.Errorf("Expected no further rename, got %v", c.actions)
		}
	})

	t.Run("Metadata without flight number does not rename", func(t *testing.T) {
		var c capture
		tr := New(testConfig(), c.sink)
		tr.OnPosition(update("A1B2C3", lat, lon, 20000, t0))
		c.reset()

		tr.OnMetadata("A1B2C3", "A3", "B738", "")

		if len(c.actions) != 0 {
			t.Errorf("Expected no actions, got %v", c.actions)
		}
	})

	t.Run("Metadata for unknown aircraft is ignored", func(t *testing.T) {
		var c capture
		tr := New(testConfig(), c.sink)

		tr.OnMetadata("FFFFFF", "A3", "B738", "JBU123")

		if len(c.actions) != 0 || tr.Count() != 0 {
			t.Error("Expected unknown aircraft metadata to be a no-op")
		}
	})

	t.Run("Updates after rename use the flight name", func(t *testing.T) {
		var c capture
		tr := New(testConfig(), c.sink)
		tr.OnPosition(update("A1B2C3", lat, lon, 20000, t0))
		tr.OnMetadata("A1B2C3", "A3", "B738", "JBU123")
		c.reset()

		tr.OnPosition(update("A1B2C3", lat+0.02, lon, 20000, t0.Add(6*time.Second)))

		if len(c.actions) != 1 || c.actions[0].Name != "JBU123" {
			t.Fatalf("Expected UPDATE under flight name, got %v", c.actions)
		}
	})
}

// TestSilenceExpiry tests deletion of silent aircraft by the sweep.
func TestSilenceExpiry(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	lat, lon := atMiles(20)

	var c capture
	tr := New(testConfig(), c.sink)
	tr.OnPosition(update("A1B2C3", lat, lon, 20000, t0))
	c.reset()

	t.Run("Sweep before TTL is a no-op", func(t *testing.T) {
		tr.Sweep(t0.Add(299 * time.Second))
		if len(c.actions) != 0 {
			t.Errorf("Expected no expiry before TTL, got %v", c.actions)
		}
	})

	t.Run("Sweep at TTL deletes and removes", func(t *testing.T) {
		tr.Sweep(t0.Add(300 * time.Second))
		if len(c.actions) != 1 || c.actions[0].Type != ActionDelete {
			t.Fatalf("Expected one DELETE, got %v", c.actions)
		}
		if tr.Count() != 0 {
			t.Error("Expected registry entry removed")
		}
	})

	t.Run("Subsequent sweeps are no-ops", func(t *testing.T) {
		c.reset()
		tr.Sweep(t0.Add(400 * time.Second))
		if len(c.actions) != 0 {
			t.Errorf("Expected nothing on later sweeps, got %v", c.actions)
		}
	})
}

// TestLandedExpiry tests the low-altitude dwell deletion.
func TestLandedExpiry(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	lat, lon := atMiles(10)

	t.Run("Continuous low altitude deletes after the dwell", func(t *testing.T) {
		var c capture
		tr := New(testConfig(), c.sink)

		// 900 ft continuously; dwell starts at first sighting
		tr.OnPosition(update("A1B2C3", lat, lon, 900, t0))
		tr.OnPosition(update("A1B2C3", lat, lon, 900, t0.Add(90*time.Second)))
		c.reset()

		tr.Sweep(t0.Add(181 * time.Second))

		if got := c.ofType(ActionDelete); len(got) != 1 {
			t.Fatalf("Expected landed DELETE, got %v", c.actions)
		}
		if tr.Count() != 0 {
			t.Error("Expected registry entry removed")
		}
	})

	t.Run("Climbing above threshold resets the dwell", func(t *testing.T) {
		var c capture
		tr := New(testConfig(), c.sink)

		tr.OnPosition(update("A1B2C3", lat, lon, 900, t0))
		// Climb out at 90 s
		tr.OnPosition(update("A1B2C3", lat, lon, 2000, t0.Add(90*time.Second)))
		c.reset()

		tr.Sweep(t0.Add(181 * time.Second))

		if got := c.ofType(ActionDelete); len(got) != 0 {
			t.Errorf("Expected no delete after climb, got %v", got)
		}
		if tr.Count() != 1 {
			t.Error("Expected aircraft still tracked")
		}
	})

	t.Run("Dwell restarts after a reset", func(t *testing.T) {
		var c capture
		tr := New(testConfig(), c.sink)

		tr.OnPosition(update("A1B2C3", lat, lon, 900, t0))
		tr.OnPosition(update("A1B2C3", lat, lon, 2000, t0.Add(90*time.Second)))
		tr.OnPosition(update("A1B2C3", lat, lon, 900, t0.Add(100*time.Second)))
		c.reset()

		// 180 s from the first dwell but only 170 s from the restart
		tr.Sweep(t0.Add(270 * time.Second))
		if got := c.ofType(ActionDelete); len(got) != 0 {
			t.Errorf("Expected dwell to restart, got %v", got)
		}

		tr.Sweep(t0.Add(281 * time.Second))
		if got := c.ofType(ActionDelete); len(got) != 1 {
			t.Errorf("Expected delete after full dwell from restart, got %v", got)
		}
	})

	t.Run("Silence expiry wins over landed expiry", func(t *testing.T) {
		var c capture
		tr := New(testConfig(), c.sink)

		tr.OnPosition(update("A1B2C3", lat, lon, 900, t0))
		c.reset()

		// Both conditions hold; only one delete may fire.
		tr.Sweep(t0.Add(400 * time.Second))
		if got := c.ofType(ActionDelete); len(got) != 1 {
			t.Errorf("Expected exactly one DELETE, got %v", c.actions)
		}
	})
}

// TestLandedSuppression tests re-announce blocking after a landed delete.
func TestLandedSuppression(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	lat, lon := atMiles(10)

	landed := func() (*Tracker, *capture) {
		var c capture
		tr := New(testConfig(), c.sink)
		tr.OnPosition(update("A1B2C3", lat, lon, 900, t0))
		tr.Sweep(t0.Add(181 * time.Second))
		c.reset()
		return tr, &c
	}

	t.Run("Low-altitude reports after landed delete are suppressed", func(t *testing.T) {
		tr, c := landed()
		tr.OnPosition(update("A1B2C3", lat, lon, 900, t0.Add(200*time.Second)))
		if len(c.actions) != 0 || tr.Count() != 0 {
			t.Errorf("Expected suppression, got %v", c.actions)
		}
	})

	t.Run("Climbing above the clear altitude re-enables", func(t *testing.T) {
		tr, c := landed()
		tr.OnPosition(update("A1B2C3", lat, lon, 2000, t0.Add(200*time.Second)))
		if len(c.actions) != 1 || c.actions[0].Type != ActionCreate {
			t.Fatalf("Expected CREATE after climb, got %v", c.actions)
		}
	})

	t.Run("Climb must exceed the clear altitude, not just the landed one", func(t *testing.T) {
		tr, c := landed()
		// 1200 ft: above landed (1000) but below clear (1500)
		tr.OnPosition(update("A1B2C3", lat, lon, 1200, t0.Add(200*time.Second)))
		if len(c.actions) != 0 {
			t.Errorf("Expected continued suppression at 1200 ft, got %v", c.actions)
		}
	})

	t.Run("Suppression disabled when clear altitude is zero", func(t *testing.T) {
		var c capture
		cfg := testConfig()
		cfg.LandClearAltFt = 0
		tr := New(cfg, c.sink)
		tr.OnPosition(update("A1B2C3", lat, lon, 900, t0))
		tr.Sweep(t0.Add(181 * time.Second))
		c.reset()

		tr.OnPosition(update("A1B2C3", lat, lon, 900, t0.Add(200*time.Second)))
		if got := c.ofType(ActionCreate); len(got) != 1 {
			t.Errorf("Expected immediate re-create with suppression off, got %v", c.actions)
		}
	})
}

// TestSymbols tests classification stickiness on the registry record.
func TestSymbols(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	lat, lon := atMiles(10)

	t.Run("Specific symbol does not flap back to plane", func(t *testing.T) {
		var c capture
		tr := New(testConfig(), c.sink)
		tr.OnPosition(update("A1B2C3", lat, lon, 2000, t0))

		tr.OnMetadata("A1B2C3", "A7", "", "")
		tr.OnMetadata("A1B2C3", "", "UNKNOWN-TYPE", "")

		snap := tr.Snapshot()
		if snap[0].Symbol != aprs.SymbolHeli.Tag {
			t.Errorf("Expected symbol to stay HELI, got %s", snap[0].Symbol)
		}
	})

	t.Run("Default symbol is plane", func(t *testing.T) {
		var c capture
		tr := New(testConfig(), c.sink)
		tr.OnPosition(update("A1B2C3", lat, lon, 2000, t0))

		if c.actions[0].Symbol != aprs.SymbolPlane {
			t.Errorf("Expected PLANE default, got %s", c.actions[0].Symbol.Tag)
		}
	})
}

// TestDeletePosition tests that deletes land on the last announced spot.
func TestDeletePosition(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	lat, lon := atMiles(20)

	var c capture
	tr := New(testConfig(), c.sink)
	tr.OnPosition(update("A1B2C3", lat, lon, 20000, t0))
	// Suppressed drift, then silence
	tr.OnPosition(update("A1B2C3", lat+0.004, lon, 20000, t0.Add(2*time.Second)))
	c.reset()

	tr.Sweep(t0.Add(400 * time.Second))

	if len(c.actions) != 1 {
		t.Fatalf("Expected one DELETE, got %v", c.actions)
	}
	if c.actions[0].Latitude != lat {
		t.Errorf("Expected delete at last emitted latitude %f, got %f", lat, c.actions[0].Latitude)
	}
}
