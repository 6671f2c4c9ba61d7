package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/keystore"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// DeviceSecretEnv overrides the device-binding secret.
const DeviceSecretEnv = "TOKENKEEPER_DEVICE_SECRET"

// Config holds runtime settings for the tokenkeeper CLI.
//
// Fields:
//   - ServerURL: base URL of the auth server and protected API.
//   - DataDir: directory holding the token blob, key file and database.
//   - StoreBackend: "file" or "sqlite".
//   - RefreshTimeout: upper bound for one refresh-token exchange.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - KeyAlias: name the token encryption key is registered under.
//   - DeviceSecret: input for wrapping the key file. Never logged.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	ServerURL           string
	DataDir             string
	StoreBackend        string
	RefreshTimeout      time.Duration
	OnlineCheckInterval time.Duration
	KeyAlias            string
	DeviceSecret        string
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DataDir = ".tokenkeeper"
	c.StoreBackend = BackendFile
	c.RefreshTimeout = 10 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
	c.KeyAlias = keystore.DefaultAlias
	c.DeviceSecret = defaultDeviceSecret()
	c.LogLevel = "info"
}

// Validate reports settings the client cannot run with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if c.ServerURL == "" {
		return fmt.Errorf("server url is empty")
	}
	if c.RefreshTimeout <= 0 {
		return fmt.Errorf("refresh timeout must be positive")
	}
	if c.OnlineCheckInterval <= 0 {
		return fmt.Errorf("online check interval must be positive")
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags (if present).
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

func parseEnv(cfg *Config) {
	if v, ok := os.LookupEnv(DeviceSecretEnv); ok && v != "" {
		cfg.DeviceSecret = v
	}
}

// defaultDeviceSecret ties the key file to this host and user.
func defaultDeviceSecret() string {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return host + ":" + strconv.Itoa(os.Getuid())
}
