// Package config loads application configuration from environment
// variables.  main loads a .env file (if any) before calling Load.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendMySQL  = "mysql"
)

// Config holds the runtime configuration of the server and the loader.
type Config struct {
	Env          string // application environment (dev, test, prod)
	Port         string // HTTP port to listen on
	StoreBackend string // memory or mysql

	// MySQL, required only when StoreBackend is mysql
	DBUser string
	DBPass string
	DBHost string
	DBPort string
	DBName string

	JWTSecret    string
	AccessTTLMin int // access token lifetime in minutes

	// operator account allowed to mutate the catalogue
	AdminUser         string
	AdminPasswordHash string // bcrypt

	SeedCSV   string // optional seed file used on start-up and by reset
	LogLevel  string
	LogFormat string
}

// Load reads the configuration.  Every missing or malformed required
// variable is reported in the returned error.
func Load() (Config, error) {
	l := &loader{}
	cfg := Config{
		Env:               l.must("APP_ENV"),
		Port:              envStr("APP_PORT", "8080"),
		StoreBackend:      strings.ToLower(envStr("STORE_BACKEND", BackendMemory)),
		JWTSecret:         l.must("JWT_SECRET"),
		AccessTTLMin:      l.mustInt("ACCESS_TOKEN_TTL_MIN"),
		AdminUser:         envStr("ADMIN_USER", "admin"),
		AdminPasswordHash: l.must("ADMIN_PASSWORD_HASH"),
		SeedCSV:           os.Getenv("SEED_CSV"),
		LogLevel:          envStr("LOG_LEVEL", "info"),
		LogFormat:         envStr("LOG_FORMAT", "json"),
	}
	switch cfg.StoreBackend {
	case BackendMemory:
	case BackendMySQL:
		cfg.DBUser = l.must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = l.must("DB_HOST")
		cfg.DBPort = l.must("DB_PORT")
		cfg.DBName = l.must("DB_NAME")
	default:
		l.errs = append(l.errs, fmt.Errorf("STORE_BACKEND must be %s or %s, got %q", BackendMemory, BackendMySQL, cfg.StoreBackend))
	}
	return cfg, errors.Join(l.errs...)
}

// LoadDB reads only the MySQL settings, for tools that need nothing
// else.
func LoadDB() (Config, error) {
	l := &loader{}
	cfg := Config{
		StoreBackend: BackendMySQL,
		DBUser:       l.must("DB_USER"),
		DBPass:       os.Getenv("DB_PASS"),
		DBHost:       l.must("DB_HOST"),
		DBPort:       l.must("DB_PORT"),
		DBName:       l.must("DB_NAME"),
		SeedCSV:      os.Getenv("SEED_CSV"),
		LogLevel:     envStr("LOG_LEVEL", "info"),
		LogFormat:    envStr("LOG_FORMAT", "json"),
	}
	return cfg, errors.Join(l.errs...)
}

type loader struct{ errs []error }

// must retrieves a required variable, recording an error when it is
// unset or empty.
func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		l.errs = append(l.errs, fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

// mustInt is like must but converts the value to an integer.
func (l *loader) mustInt(key string) int {
	s := l.must(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid int for %s: %q", key, s))
	}
	return n
}
