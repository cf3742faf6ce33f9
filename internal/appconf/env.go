package appconf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv.
const (
	EnvPort        = "SIGNAL_PORT"
	EnvEnvironment = "SIGNAL_ENV"
	EnvAPIKeys     = "SIGNAL_API_KEYS"
	EnvRateLimit   = "SIGNAL_RATE_LIMIT"
	EnvVerbose     = "SIGNAL_VERBOSE"
	EnvDataPath    = "SIGNAL_DATA_PATH"
	EnvVolumesPath = "SIGNAL_VOLUMES_PATH"
	EnvReportsDir  = "SIGNAL_REPORTS_DIR"
)

// LoadEnvFiles loads each existing dotenv file into the process environment.
// Later files override earlier ones; variables already set by the shell are
// kept only for the first file. Missing files are skipped.
func LoadEnvFiles(paths ...string) error {
	for i, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		var err error
		if i == 0 {
			err = godotenv.Load(path)
		} else {
			err = godotenv.Overload(path)
		}
		if err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overlays the SIGNAL_* variables onto c. Unset variables leave the
// field alone; malformed numbers are errors.
func (c *JSONConfig) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.Port = port
	}
	if v, ok := os.LookupEnv(EnvEnvironment); ok {
		c.Env = v
	}
	if v, ok := os.LookupEnv(EnvAPIKeys); ok {
		c.ApiKeys = splitKeys(v)
	}
	if v, ok := os.LookupEnv(EnvRateLimit); ok {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRateLimit, err)
		}
		c.RateLimit = limit
	}
	if v, ok := os.LookupEnv(EnvVerbose); ok {
		verbose, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvVerbose, err)
		}
		c.Verbose = verbose
	}
	if v, ok := os.LookupEnv(EnvDataPath); ok {
		c.DataPath = v
	}
	if v, ok := os.LookupEnv(EnvVolumesPath); ok {
		c.VolumesPath = v
	}
	if v, ok := os.LookupEnv(EnvReportsDir); ok {
		c.ReportsDir = v
	}
	return nil
}

func splitKeys(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
