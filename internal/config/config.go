// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const secretKeyBytes = 32

// Config holds the application configuration loaded from environment variables.
type Config struct {
	SecretKey     []byte
	ListenAddr    string
	DBPath        string
	WinRMPort     int
	WinRMHTTPS    bool
	WinRMInsecure bool
	RemoteTimeout time.Duration
	TokenTTL      time.Duration
	CORSOrigins   []string
}

// LoadEnvFile populates the process environment from a dotenv file.
// Variables already set in the environment take precedence. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables and returns a validated Config.
// WINSVCPANEL_SECRET_KEY is required: 64 hex characters (32 bytes) used to seal
// host passwords. Optional variables with defaults: WINSVCPANEL_LISTEN_ADDR
// (127.0.0.1:8080), WINSVCPANEL_DB_PATH (winsvcpanel.db), WINSVCPANEL_WINRM_PORT
// (5985, or 5986 with HTTPS), WINSVCPANEL_WINRM_HTTPS (false),
// WINSVCPANEL_WINRM_INSECURE (false), WINSVCPANEL_REMOTE_TIMEOUT (30s),
// WINSVCPANEL_TOKEN_TTL (30m), WINSVCPANEL_CORS_ORIGINS (comma-separated
// origins or "*"; empty disables CORS).
func Load() (*Config, error) {
	secretKey, err := parseSecretKey(os.Getenv("WINSVCPANEL_SECRET_KEY"))
	if err != nil {
		return nil, err
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("WINSVCPANEL_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "winsvcpanel.db"
	if v, ok := os.LookupEnv("WINSVCPANEL_DB_PATH"); ok {
		dbPath = v
	}

	winrmHTTPS, err := lookupBool("WINSVCPANEL_WINRM_HTTPS")
	if err != nil {
		return nil, err
	}
	winrmInsecure, err := lookupBool("WINSVCPANEL_WINRM_INSECURE")
	if err != nil {
		return nil, err
	}

	winrmPort := 5985
	if winrmHTTPS {
		winrmPort = 5986
	}
	if v, ok := os.LookupEnv("WINSVCPANEL_WINRM_PORT"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 65535 {
			return nil, fmt.Errorf("WINSVCPANEL_WINRM_PORT has invalid port %q", v)
		}
		winrmPort = parsed
	}

	remoteTimeout, err := lookupDuration("WINSVCPANEL_REMOTE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	tokenTTL, err := lookupDuration("WINSVCPANEL_TOKEN_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	return &Config{
		SecretKey:     secretKey,
		ListenAddr:    listenAddr,
		DBPath:        dbPath,
		WinRMPort:     winrmPort,
		WinRMHTTPS:    winrmHTTPS,
		WinRMInsecure: winrmInsecure,
		RemoteTimeout: remoteTimeout,
		TokenTTL:      tokenTTL,
		CORSOrigins:   splitList(os.Getenv("WINSVCPANEL_CORS_ORIGINS")),
	}, nil
}

func parseSecretKey(v string) ([]byte, error) {
	if v == "" {
		return nil, errors.New("WINSVCPANEL_SECRET_KEY is required (64 hex characters)")
	}
	key, err := hex.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("WINSVCPANEL_SECRET_KEY is not valid hex: %w", err)
	}
	if len(key) != secretKeyBytes {
		return nil, fmt.Errorf("WINSVCPANEL_SECRET_KEY must decode to %d bytes, got %d", secretKeyBytes, len(key))
	}
	return key, nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func lookupBool(key string) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return false, nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s has invalid boolean %q: %w", key, v, err)
	}
	return parsed, nil
}

// lookupDuration rejects non-positive values; a zero timeout would make
// every remote call fail immediately.
func lookupDuration(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return parsed, nil
}
