package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dmitrijs2005/tokenkeeper/internal/devserver"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
)

func main() {

	var cfg devserver.Config
	cfg.LoadDefaults()

	addr := flag.String("a", "127.0.0.1:8080", "listen address")
	users := flag.String("u", "alice:password", "comma separated user:password pairs")
	logLevel := flag.String("l", "info", "log level")
	flag.StringVar(&cfg.SecretKey, "k", cfg.SecretKey, "HMAC secret for access tokens")
	flag.DurationVar(&cfg.AccessTTL, "access-ttl", cfg.AccessTTL, "access token lifetime")
	flag.DurationVar(&cfg.RefreshTTL, "refresh-ttl", cfg.RefreshTTL, "refresh token lifetime")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(os.Stderr, *logLevel)
	srv := devserver.New(cfg, logger)
	for _, entry := range strings.Split(*users, ",") {
		name, password, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok || name == "" {
			log.Fatalf("invalid user entry %q", entry)
		}
		srv.AddUser(name, password, name+"@example.com", name)
	}

	if err := srv.Run(ctx, *addr); err != nil {
		log.Fatalf("%v", err)
	}

}
