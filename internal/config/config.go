// Package config loads application configuration from environment
// variables.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/iliyamo/library-reading-room/internal/schedule"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. The facility fields drive the scheduling
// policy: working hours, the planning lead window and the occupancy
// report's trailing window.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	FacilityOpen        schedule.TimeOfDay // reading room opening time
	FacilityClose       schedule.TimeOfDay // reading room closing time
	MinLeadDays         int                // earliest session start, days from now
	MaxLeadDays         int                // latest session start, days from now
	OccupancyWindowDays int                // trailing window of the occupancy report
}

// Load reads configuration values from environment variables. Required
// variables are enforced by must() and missing values cause the program
// to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		FacilityOpen:        mustTimeOfDay("FACILITY_OPEN_TIME"),
		FacilityClose:       mustTimeOfDay("FACILITY_CLOSE_TIME"),
		MinLeadDays:         mustInt("MIN_LEAD_DAYS"),
		MaxLeadDays:         mustInt("MAX_LEAD_DAYS"),
		OccupancyWindowDays: intOr("OCCUPANCY_WINDOW_DAYS", 30),
	}
}

// Policy assembles the scheduling policy value from the facility fields.
func (c Config) Policy() schedule.Policy {
	return schedule.Policy{
		Open:        c.FacilityOpen,
		Close:       c.FacilityClose,
		MinLeadDays: c.MinLeadDays,
		MaxLeadDays: c.MaxLeadDays,
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application exits with a fatal error.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the value into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// mustTimeOfDay is like must() but parses an "HH:MM" clock time.
func mustTimeOfDay(key string) schedule.TimeOfDay {
	s := must(key)
	t, err := schedule.ParseTimeOfDay(s)
	if err != nil {
		log.Fatalf("invalid time of day for %s: %q", key, s)
	}
	return t
}

// intOr reads an optional integer variable with a default.
func intOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}
