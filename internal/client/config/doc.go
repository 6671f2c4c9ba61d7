// Package config loads runtime configuration for the tokenkeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. TOKENKEEPER_DEVICE_SECRET from the environment.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   auth server base URL
//	-d string   data directory
//	-s string   token store backend: file or sqlite
//	-t int      refresh timeout (seconds)
//	-i int      online status check interval (seconds)
//	-l string   log level
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "data_dir": ".tokenkeeper",
//	  "store_backend": "file",
//	  "refresh_timeout": "10s",
//	  "online_check_interval": "3s",
//	  "key_alias": "tokenkeeper.tokens.v1",
//	  "device_secret": "...",
//	  "log_level": "info"
//	}
//
// Empty JSON values leave the earlier value in place.
package config
