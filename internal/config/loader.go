package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration for the bell daemon.
// Every recognized setting is an explicit typed field with a default;
// values are validated here, once, rather than coerced at read time.
type Config struct {
	HTTPPort     int
	SQLitePath   string
	PollInterval time.Duration
	Timezone     *time.Location

	// Bell behavior.
	SoundEnabled bool
	Volume       int // 0-100
	ManualMode   bool

	// Geofence behavior. With LocationEnabled false the daemon behaves as
	// if it were always inside the school region.
	LocationEnabled bool
	GeofenceRadiusM float64
}

// Load parses configuration from the process environment, applying
// defaults for unset values and reporting every invalid entry at once.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		SQLitePath:      "tebell.db",
		PollInterval:    30 * time.Second,
		Timezone:        time.Local,
		SoundEnabled:    true,
		Volume:          80,
		ManualMode:      false,
		LocationEnabled: true,
		GeofenceRadiusM: 50,
	}

	invalid := make([]string, 0, 2)

	if v := strings.TrimSpace(os.Getenv("TEBELL_HTTP_PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "TEBELL_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if v := strings.TrimSpace(os.Getenv("TEBELL_SQLITE_PATH")); v != "" {
		cfg.SQLitePath = v
	}

	if v := strings.TrimSpace(os.Getenv("TEBELL_POLL_INTERVAL")); v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil || interval < time.Second {
			invalid = append(invalid, "TEBELL_POLL_INTERVAL")
		} else {
			cfg.PollInterval = interval
		}
	}

	if v := strings.TrimSpace(os.Getenv("TEBELL_TIMEZONE")); v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			invalid = append(invalid, "TEBELL_TIMEZONE")
		} else {
			cfg.Timezone = loc
		}
	}

	if v, ok, err := loadBool("TEBELL_SOUND_ENABLED"); err != nil {
		invalid = append(invalid, "TEBELL_SOUND_ENABLED")
	} else if ok {
		cfg.SoundEnabled = v
	}

	if v := strings.TrimSpace(os.Getenv("TEBELL_VOLUME")); v != "" {
		volume, err := strconv.Atoi(v)
		if err != nil || volume < 0 || volume > 100 {
			invalid = append(invalid, "TEBELL_VOLUME")
		} else {
			cfg.Volume = volume
		}
	}

	if v, ok, err := loadBool("TEBELL_MANUAL_MODE"); err != nil {
		invalid = append(invalid, "TEBELL_MANUAL_MODE")
	} else if ok {
		cfg.ManualMode = v
	}

	if v, ok, err := loadBool("TEBELL_LOCATION_ENABLED"); err != nil {
		invalid = append(invalid, "TEBELL_LOCATION_ENABLED")
	} else if ok {
		cfg.LocationEnabled = v
	}

	if v := strings.TrimSpace(os.Getenv("TEBELL_GEOFENCE_RADIUS_M")); v != "" {
		radius, err := strconv.ParseFloat(v, 64)
		if err != nil || radius <= 0 {
			invalid = append(invalid, "TEBELL_GEOFENCE_RADIUS_M")
		} else {
			cfg.GeofenceRadiusM = radius
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func loadBool(key string) (value, set bool, err error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return false, false, nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, err
	}
	return parsed, true, nil
}
