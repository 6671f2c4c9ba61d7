package cli

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/claims"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/client"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/config"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/connectivity"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/keystore"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/refresh"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/services"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/session"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/storage"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/tokens"
	"github.com/dmitrijs2005/tokenkeeper/internal/filex"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
)

// DatabaseFileName is the SQLite file used by the sqlite store backend.
const DatabaseFileName = "tokenkeeper.db"

// authRequestTimeout bounds login and ping requests. Refresh has its own
// timeout in the coordinator.
const authRequestTimeout = 15 * time.Second

// Build wires the client from cfg and loads the stored session. The returned
// close function releases the database, if one was opened.
func Build(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, func() error, error) {
	dir, err := filex.EnsureDir(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("data dir: %w", err)
	}

	keys := keystore.NewFileProvider(dir, cfg.KeyAlias, []byte(cfg.DeviceSecret), log)

	closeFn := func() error { return nil }
	var backend tokens.Backend
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		var db *sql.DB
		db, err = storage.InitDatabase(ctx, filepath.Join(dir, DatabaseFileName))
		if err != nil {
			return nil, nil, fmt.Errorf("error initializing database: %w", err)
		}
		backend = tokens.NewSQLiteBackend(db)
		closeFn = db.Close
	default:
		backend = tokens.NewFileBackend(dir)
	}

	store := tokens.NewStore(backend, tokens.NewCodec(tokens.NewCipher(keys), log), log)
	mgr := session.New(store, claims.NewDecoder(), log)
	mgr.LoadInitialAuthStatus(ctx)

	authClient := client.NewHTTPClient(cfg.ServerURL, &http.Client{Timeout: authRequestTimeout}, log)
	coordinator := refresh.NewCoordinator(mgr, authClient, cfg.RefreshTimeout, log)
	apiHTTP := &http.Client{Transport: refresh.NewTransport(nil, mgr, coordinator)}

	app := NewApp(
		services.NewAuthService(authClient, mgr),
		services.NewAPIService(cfg.ServerURL, apiHTTP),
		mgr,
		log,
	)
	app.watcher = connectivity.NewWatcher(authClient, mgr, cfg.OnlineCheckInterval, log)
	return app, closeFn, nil
}
