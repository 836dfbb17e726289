package config

import (
	"os"
	"strconv"
	"strings"
)

// Store backends.
const (
	StoreCSV    = "csv"
	StoreSQLite = "sqlite"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	Store          string
	DataDir        string
	DBPath         string
	AutoSave       bool
	ReconcileLoans bool
	Seed           bool
	LogLevel       string
}

// Load builds Config from environment with sensible defaults.
func Load() *Config {
	return &Config{
		Store:          strings.ToLower(getEnv("LIBRARY_STORE", StoreCSV)),
		DataDir:        getEnv("LIBRARY_DATA_DIR", "."),
		DBPath:         getEnv("LIBRARY_DB_PATH", "library.db"),
		AutoSave:       getEnvBool("LIBRARY_AUTOSAVE", true),
		ReconcileLoans: getEnvBool("LIBRARY_RECONCILE_LOANS", false),
		Seed:           getEnvBool("LIBRARY_SEED", true),
		LogLevel:       getEnv("LIBRARY_LOG_LEVEL", "warn"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}
