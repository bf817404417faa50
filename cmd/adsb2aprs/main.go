// ADS-B to APRS bridge daemon.
//
// Reads a dump1090 SBS feed, tracks aircraft around a configured
// center point, and announces them as APRS objects on an APRS-IS
// server. A JSON side channel from dump1090 resolves flight numbers
// and emitter categories.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/einsteine77/ADSBtoAPRS/internal/db"
	"github.com/einsteine77/ADSBtoAPRS/pkg/aprs"
	"github.com/einsteine77/ADSBtoAPRS/pkg/config"
	"github.com/einsteine77/ADSBtoAPRS/pkg/geo"
	"github.com/einsteine77/ADSBtoAPRS/pkg/metadata"
	"github.com/einsteine77/ADSBtoAPRS/pkg/sbs"
	"github.com/einsteine77/ADSBtoAPRS/pkg/tracker"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	b := cfg.Bridge
	log.Printf("ADSB->APRS bridge v%s | Add=%.0fmi / Clear>%.0fmi | pacing %ds / %.2fmi | "+
		"Landed dwell %ds <=%.0fft | JSON %s",
		aprs.Version, b.AddDistanceMi, b.ClearDistanceMi, b.MinUpdateSeconds, b.MinMoveMi,
		b.LandedWaitSeconds, b.LandedAltFt, cfg.Metadata.URL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional event archive.
	var recorder *db.Recorder
	if cfg.Database.Enabled {
		database, err := db.Connect(cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		if err := database.InitSchema(ctx); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		log.Println("[DB] Event archive enabled")

		recorder = db.NewRecorder(db.NewEventRepository(database))
		go recorder.Run(ctx)
	}

	throttler := tracker.NewThrottler(b.MaxPacketsPerSec, b.QueueDepth)

	// The archive records decisions, not deliveries, so updates the
	// throttler later drops still land in the event log.
	emit := func(a tracker.Action) {
		throttler.Enqueue(a)
		if recorder != nil {
			recorder.Record(a)
		}
	}

	reg := tracker.New(tracker.Config{
		Center:          geo.Point{Latitude: b.CenterLatitude, Longitude: b.CenterLongitude},
		AddDistanceMi:   b.AddDistanceMi,
		ClearDistanceMi: b.ClearDistanceMi,
		MinUpdate:       time.Duration(b.MinUpdateSeconds) * time.Second,
		MinMoveMi:       b.MinMoveMi,
		LandedAltFt:     b.LandedAltFt,
		LandedWait:      time.Duration(b.LandedWaitSeconds) * time.Second,
		LandClearAltFt:  b.LandClearAltFt,
		SilenceTTL:      time.Duration(b.SilenceTTLSeconds) * time.Second,
	}, emit)

	// APRS uplink.
	uplink := aprs.NewClient(aprs.ClientConfig{
		Addr:     cfg.APRS.Addr(),
		Callsign: cfg.APRS.Callsign,
		Passcode: cfg.APRS.Passcode,
		Filter:   cfg.APRS.Filter,
	})
	defer uplink.Close()

	status := newStatusState()
	uplink.OnConnectionChange(status.setAPRS)

	go throttler.Run(ctx, func(a tracker.Action) error {
		return uplink.SendObject(ctx, objectFromAction(a, b.AppendSymbolTag))
	})

	// SBS ingestion.
	sbsClient := sbs.NewClient(cfg.SBS.Addr())
	sbsClient.OnConnectionChange(status.setSBS)
	reports := make(chan sbs.PositionReport, 256)
	go sbsClient.Run(ctx, reports)

	// Metadata resolution.
	poller := metadata.NewPoller(
		cfg.Metadata.URL,
		time.Duration(cfg.Metadata.PollIntervalSeconds)*time.Second,
		time.Duration(cfg.Metadata.TimeoutSeconds*float64(time.Second)),
	)
	metaUpdates := make(chan metadata.Update, 256)
	go poller.Run(ctx, metaUpdates)

	// Status API.
	if cfg.Status.Enabled {
		srv := newStatusServer(cfg, reg, throttler, poller, status)
		go srv.run(ctx)
	}

	// Expiry sweep.
	sweep := time.NewTicker(time.Duration(b.SweepIntervalSeconds) * time.Second)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Shutting down")
			return

		case r := <-reports:
			reg.OnPosition(tracker.PositionUpdate{
				ID:          r.ICAO,
				Latitude:    r.Latitude,
				Longitude:   r.Longitude,
				Altitude:    r.Altitude,
				GroundSpeed: r.GroundSpeed,
				Track:       r.Track,
				Time:        r.Seen,
			})
			// The SBS feed occasionally carries the callsign itself;
			// treat it as a metadata sighting so the rename can fire
			// without waiting for the JSON poller.
			if r.Callsign != "" {
				reg.OnMetadata(r.ICAO, "", "", r.Callsign)
			}

		case u := <-metaUpdates:
			reg.OnMetadata(u.ICAO, u.Category, u.Type, u.Flight)

		case now := <-sweep.C:
			reg.Sweep(now)
		}
	}
}

// objectFromAction renders a registry decision as an APRS object.
func objectFromAction(a tracker.Action, appendTag bool) aprs.Object {
	o := aprs.Object{
		Name:            a.Name,
		Latitude:        a.Latitude,
		Longitude:       a.Longitude,
		Symbol:          a.Symbol,
		AppendSymbolTag: appendTag,
		Kill:            a.Type == tracker.ActionDelete,
	}
	if !o.Kill {
		o.Track = a.Track
		o.GroundSpeed = a.GroundSpeed
		o.Altitude = a.Altitude
		o.Callsign = a.Callsign
		o.ICAO = a.ICAO
	}
	return o
}
