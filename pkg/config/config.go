package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the complete bridge configuration.
// Configuration is loaded from a JSON file with environment overrides
// for sensitive values.
type Config struct {
	SBS      SBSConfig      `json:"sbs"`
	APRS     APRSConfig     `json:"aprs"`
	Metadata MetadataConfig `json:"metadata"`
	Bridge   BridgeConfig   `json:"bridge"`
	Status   StatusConfig   `json:"status"`
	Database DatabaseConfig `json:"database"`
}

// SBSConfig contains the dump1090 BaseStation feed settings.
type SBSConfig struct {
	// Host is the dump1090 hostname or IP
	Host string `json:"host"`

	// Port is the SBS/BaseStation output port (dump1090 default: 30003)
	Port int `json:"port"`
}

// Addr returns the host:port dial string for the SBS feed.
func (c SBSConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// APRSConfig contains the APRS-IS server and login settings.
type APRSConfig struct {
	// Host is the APRS-IS server hostname
	Host string `json:"host"`

	// Port is the APRS-IS port (typically 14580)
	Port int `json:"port"`

	// Callsign is the station callsign with SSID (e.g. "N0CALL-10")
	Callsign string `json:"callsign"`

	// Passcode is the APRS-IS passcode for the callsign
	Passcode int `json:"passcode"`

	// Filter is the APRS-IS server-side filter sent at login (e.g. "m/500")
	Filter string `json:"filter"`
}

// Addr returns the host:port dial string for the APRS-IS server.
func (c APRSConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MetadataConfig contains the dump1090 JSON metadata poller settings.
type MetadataConfig struct {
	// URL is the dump1090 aircraft JSON endpoint (data.json or aircraft.json)
	URL string `json:"url"`

	// PollIntervalSeconds is how often to refresh metadata (default: 5)
	PollIntervalSeconds int `json:"poll_interval_seconds"`

	// TimeoutSeconds is the HTTP request timeout (default: 2)
	TimeoutSeconds float64 `json:"timeout_seconds"`
}

// BridgeConfig contains the tracking state machine thresholds.
// These map directly onto the registry's geographic hysteresis,
// emission gate, expiry and throttle rules.
type BridgeConfig struct {
	// CenterLatitude/CenterLongitude is the origin for all distance checks
	CenterLatitude  float64 `json:"center_latitude"`
	CenterLongitude float64 `json:"center_longitude"`

	// AddDistanceMi is the inner radius: objects are only created inside it
	AddDistanceMi float64 `json:"add_distance_mi"`

	// ClearDistanceMi is the outer radius: objects are deleted beyond it.
	// The band between the two radii is the hysteresis zone.
	ClearDistanceMi float64 `json:"clear_distance_mi"`

	// MinUpdateSeconds is the minimum time between emitted updates per aircraft
	MinUpdateSeconds int `json:"min_update_seconds"`

	// MinMoveMi is the minimum movement between emitted updates per aircraft
	MinMoveMi float64 `json:"min_move_mi"`

	// MaxPacketsPerSec is the global emission budget across all aircraft
	MaxPacketsPerSec int `json:"max_packets_per_sec"`

	// QueueDepth bounds the pending-action queue feeding the APRS uplink
	QueueDepth int `json:"queue_depth"`

	// LandedAltFt is the altitude at or below which the landed dwell runs
	LandedAltFt float64 `json:"landed_alt_ft"`

	// LandedWaitSeconds is the continuous low-altitude dwell before deletion
	LandedWaitSeconds int `json:"landed_wait_seconds"`

	// LandClearAltFt re-enables announcements for a landed-deleted aircraft
	// once it climbs above this altitude. Zero disables the suppression.
	LandClearAltFt float64 `json:"land_clear_alt_ft"`

	// SilenceTTLSeconds deletes an object not heard from for this long
	SilenceTTLSeconds int `json:"silence_ttl_seconds"`

	// SweepIntervalSeconds is the expiry sweep cadence (default: 3)
	SweepIntervalSeconds int `json:"sweep_interval_seconds"`

	// AppendSymbolTag appends a "SYM PLANE/HELI/..." field to object comments
	AppendSymbolTag bool `json:"append_symbol_tag"`
}

// StatusConfig contains the read-only status HTTP API settings.
type StatusConfig struct {
	// Enabled turns the status API on
	Enabled bool `json:"enabled"`

	// Listen is the bind address (e.g. "127.0.0.1:8042")
	Listen string `json:"listen"`
}

// DatabaseConfig contains the optional PostgreSQL event archive settings.
// When Enabled is false the bridge runs purely in memory.
type DatabaseConfig struct {
	// Enabled turns the event archive on
	Enabled bool `json:"enabled"`

	// Host is the database server hostname
	Host string `json:"host"`

	// Port is the database server port
	Port int `json:"port"`

	// Database is the database name
	Database string `json:"database"`

	// Username for database authentication
	Username string `json:"username"`

	// Password for database authentication (prefer the environment override)
	Password string `json:"password"`

	// SSLMode for PostgreSQL connections (disable, require, verify-ca, verify-full)
	SSLMode string `json:"ssl_mode"`

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int `json:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int `json:"max_idle_conns"`
}

// Load reads the configuration from a JSON file.
// If the file doesn't exist, returns a default configuration.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvironmentOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to a JSON file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
// The bridge thresholds default to the values the system was tuned
// with around KBUF.
func DefaultConfig() *Config {
	return &Config{
		SBS: SBSConfig{
			Host: "127.0.0.1",
			Port: 30003,
		},
		APRS: APRSConfig{
			Host:     "127.0.0.1",
			Port:     14580,
			Callsign: "N0CALL-10",
			Passcode: -1,
			Filter:   "m/500",
		},
		Metadata: MetadataConfig{
			URL:                 "http://127.0.0.1:8080/data.json",
			PollIntervalSeconds: 5,
			TimeoutSeconds:      2.0,
		},
		Bridge: BridgeConfig{
			CenterLatitude:       42.9405,
			CenterLongitude:      -78.7322,
			AddDistanceMi:        35,
			ClearDistanceMi:      40,
			MinUpdateSeconds:     5,
			MinMoveMi:            0.5,
			MaxPacketsPerSec:     5,
			QueueDepth:           256,
			LandedAltFt:          1000,
			LandedWaitSeconds:    180,
			LandClearAltFt:       1500,
			SilenceTTLSeconds:    300,
			SweepIntervalSeconds: 3,
			AppendSymbolTag:      true,
		},
		Status: StatusConfig{
			Enabled: true,
			Listen:  "127.0.0.1:8042",
		},
		Database: DatabaseConfig{
			Enabled:      false,
			Host:         "localhost",
			Port:         5432,
			Database:     "adsb2aprs",
			Username:     "adsb2aprs",
			SSLMode:      "disable",
			MaxOpenConns: 10,
			MaxIdleConns: 2,
		},
	}
}

// Validate checks the configuration for inconsistent or unusable values.
func (c *Config) Validate() error {
	b := c.Bridge

	if b.CenterLatitude < -90 || b.CenterLatitude > 90 {
		return fmt.Errorf("invalid center_latitude %.4f: must be -90..90", b.CenterLatitude)
	}
	if b.CenterLongitude < -180 || b.CenterLongitude > 180 {
		return fmt.Errorf("invalid center_longitude %.4f: must be -180..180", b.CenterLongitude)
	}
	if b.AddDistanceMi <= 0 {
		return fmt.Errorf("add_distance_mi must be positive, got %.1f", b.AddDistanceMi)
	}
	if b.ClearDistanceMi < b.AddDistanceMi {
		return fmt.Errorf("clear_distance_mi (%.1f) must be >= add_distance_mi (%.1f)",
			b.ClearDistanceMi, b.AddDistanceMi)
	}
	if b.MinUpdateSeconds < 0 || b.MinMoveMi < 0 {
		return fmt.Errorf("emission gate thresholds must be non-negative")
	}
	if b.MaxPacketsPerSec <= 0 {
		return fmt.Errorf("max_packets_per_sec must be positive, got %d", b.MaxPacketsPerSec)
	}
	if b.QueueDepth <= 0 {
		return fmt.Errorf("queue_depth must be positive, got %d", b.QueueDepth)
	}
	if b.LandClearAltFt != 0 && b.LandClearAltFt < b.LandedAltFt {
		return fmt.Errorf("land_clear_alt_ft (%.0f) must be >= landed_alt_ft (%.0f)",
			b.LandClearAltFt, b.LandedAltFt)
	}
	if b.SilenceTTLSeconds <= 0 {
		return fmt.Errorf("silence_ttl_seconds must be positive, got %d", b.SilenceTTLSeconds)
	}
	if b.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("sweep_interval_seconds must be positive, got %d", b.SweepIntervalSeconds)
	}

	if c.APRS.Callsign == "" {
		return fmt.Errorf("aprs callsign must be set")
	}
	if c.SBS.Host == "" || c.SBS.Port <= 0 {
		return fmt.Errorf("sbs host/port must be set")
	}

	return nil
}

// applyEnvironmentOverrides applies environment variable overrides.
// This keeps passcodes and passwords out of config files.
func (c *Config) applyEnvironmentOverrides() {
	if call := os.Getenv("ADSB2APRS_CALLSIGN"); call != "" {
		c.APRS.Callsign = call
	}
	if pass := os.Getenv("ADSB2APRS_PASSCODE"); pass != "" {
		var p int
		if _, err := fmt.Sscanf(pass, "%d", &p); err == nil {
			c.APRS.Passcode = p
		}
	}
	if dbPassword := os.Getenv("ADSB2APRS_DB_PASSWORD"); dbPassword != "" {
		c.Database.Password = dbPassword
	}
}
