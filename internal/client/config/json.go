package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/tokenkeeper/internal/flagx"
	"github.com/dmitrijs2005/tokenkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations use
// timex.Duration, so they can be strings like "3s" or integer nanoseconds.
type JsonConfig struct {
	ServerURL           string         `json:"server_url"`
	DataDir             string         `json:"data_dir"`
	StoreBackend        string         `json:"store_backend"`
	RefreshTimeout      timex.Duration `json:"refresh_timeout"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	KeyAlias            string         `json:"key_alias"`
	DeviceSecret        string         `json:"device_secret"`
	LogLevel            string         `json:"log_level"`
}

// parseJson overlays cfg with the non-empty values of the JSON file named by
// -c/-config. Without the flag nothing happens. Read and unmarshal errors
// panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFileFlag()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.StoreBackend, jc.StoreBackend)
	setString(&cfg.KeyAlias, jc.KeyAlias)
	setString(&cfg.DeviceSecret, jc.DeviceSecret)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.RefreshTimeout.Duration > 0 {
		cfg.RefreshTimeout = jc.RefreshTimeout.Duration
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
