package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	// Asia/Jakarta must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/example/masjid-scheduler/internal/availability"
)

// Config captures environment driven configuration values for the facility service.
type Config struct {
	HTTPPort   int
	SQLitePath string
	// GatewaySecret must accompany requests whose principal headers are trusted.
	GatewaySecret string
	Location      *time.Location
	LogLevel      slog.Level

	LadderStart     availability.TimeOfDay
	LadderEnd       availability.TimeOfDay
	LadderStep      time.Duration
	DefaultDuration time.Duration
	EndTimePolicy   availability.EndTimePolicy

	FailOpen          bool
	SnapshotCacheTTL  time.Duration
	SnapshotCacheSize int

	BookingRatePerMinute int
	BookingRateBurst     int
}

// Ladder builds the time ladder described by the configuration.
func (c Config) Ladder() (availability.Ladder, error) {
	return availability.NewLadder(c.LadderStart, c.LadderEnd, c.LadderStep)
}

// LoadFile reads a dotenv file into the process environment without
// overriding variables that are already set, then calls Load. A missing file
// is not an error.
func LoadFile(path string) (Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	return Load()
}

// Load parses configuration values from the current process environment.
//
// Optional values fall back to defaults. Every missing or malformed variable
// is reported in a single error.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:             8080,
		SQLitePath:           "masjid.db",
		LogLevel:             slog.LevelInfo,
		LadderStart:          availability.MustTime("05:00"),
		LadderEnd:            availability.MustTime("23:00"),
		LadderStep:           30 * time.Minute,
		DefaultDuration:      availability.DefaultDuration,
		EndTimePolicy:        availability.EndTimeMarkers,
		SnapshotCacheTTL:     30 * time.Second,
		SnapshotCacheSize:    128,
		BookingRatePerMinute: 6,
		BookingRateBurst:     3,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := lookup("MASJID_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "MASJID_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if path := lookup("MASJID_SQLITE_PATH"); path != "" {
		cfg.SQLitePath = path
	}

	if secret := lookup("MASJID_GATEWAY_SECRET"); secret == "" {
		missing = append(missing, "MASJID_GATEWAY_SECRET")
	} else {
		cfg.GatewaySecret = secret
	}

	tz := lookup("MASJID_TIMEZONE")
	if tz == "" {
		tz = "Asia/Jakarta"
	}
	if loc, err := time.LoadLocation(tz); err != nil {
		invalid = append(invalid, "MASJID_TIMEZONE")
	} else {
		cfg.Location = loc
	}

	if level := lookup("MASJID_LOG_LEVEL"); level != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
			invalid = append(invalid, "MASJID_LOG_LEVEL")
		}
	}

	parseTime("MASJID_LADDER_START", &cfg.LadderStart, &invalid)
	parseTime("MASJID_LADDER_END", &cfg.LadderEnd, &invalid)
	parseDuration("MASJID_LADDER_STEP", &cfg.LadderStep, &invalid)
	if cfg.LadderEnd < cfg.LadderStart {
		invalid = append(invalid, "MASJID_LADDER_END")
	} else if _, err := cfg.Ladder(); err != nil {
		invalid = append(invalid, "MASJID_LADDER_STEP")
	}
	parseDuration("MASJID_DEFAULT_DURATION", &cfg.DefaultDuration, &invalid)

	switch policy := strings.ToLower(lookup("MASJID_END_TIME_POLICY")); policy {
	case "", "markers":
	case "overlap":
		cfg.EndTimePolicy = availability.EndTimeOverlap
	default:
		invalid = append(invalid, "MASJID_END_TIME_POLICY")
	}

	if value := lookup("MASJID_FAIL_OPEN"); value != "" {
		failOpen, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, "MASJID_FAIL_OPEN")
		} else {
			cfg.FailOpen = failOpen
		}
	}

	parseDuration("MASJID_SNAPSHOT_CACHE_TTL", &cfg.SnapshotCacheTTL, &invalid)
	parseInt("MASJID_SNAPSHOT_CACHE_SIZE", -1, &cfg.SnapshotCacheSize, &invalid)
	parseInt("MASJID_BOOKING_RATE_PER_MINUTE", 0, &cfg.BookingRatePerMinute, &invalid)
	parseInt("MASJID_BOOKING_RATE_BURST", 1, &cfg.BookingRateBurst, &invalid)

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(dedupe(invalid), ", "))
	}

	return cfg, nil
}

func lookup(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func parseTime(key string, dst *availability.TimeOfDay, invalid *[]string) {
	value := lookup(key)
	if value == "" {
		return
	}
	t, err := availability.ParseTimeOfDay(value)
	if err != nil {
		*invalid = append(*invalid, key)
		return
	}
	*dst = t
}

func parseDuration(key string, dst *time.Duration, invalid *[]string) {
	value := lookup(key)
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		*invalid = append(*invalid, key)
		return
	}
	*dst = d
}

func parseInt(key string, minimum int, dst *int, invalid *[]string) {
	value := lookup(key)
	if value == "" {
		return
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < minimum {
		*invalid = append(*invalid, key)
		return
	}
	*dst = n
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
