package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   auth server base URL
//	-d string   data directory
//	-s string   token store backend (file|sqlite)
//	-t int      refresh timeout (seconds)
//	-i int      online check interval (seconds)
//	-l string   log level
//
// os.Args is filtered with flagx.FilterArgs so flags meant for other parsers
// (such as -c) do not interfere.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-i", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "auth server base URL")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.StoreBackend, "s", cfg.StoreBackend, "token store backend (file|sqlite)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug|info|warn|error)")
	refreshTimeout := fs.Int("t", int(cfg.RefreshTimeout.Seconds()), "refresh timeout (in seconds)")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RefreshTimeout = time.Duration(*refreshTimeout) * time.Second
	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
