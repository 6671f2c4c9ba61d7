// Package connectivity polls the auth server and reports reachability to the
// session, so an idle client still notices going offline and coming back.
package connectivity

import (
	"context"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
)

// DefaultPingTimeout bounds a single reachability probe.
const DefaultPingTimeout = 3 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

// StateSink receives reachability reports. session.Manager implements it and
// ignores reports that do not apply to its current state.
type StateSink interface {
	SetOfflineState()
	SetOnlineState()
}

type Watcher struct {
	pinger   Pinger
	sink     StateSink
	interval time.Duration
	timeout  time.Duration
	log      logging.Logger
}

func NewWatcher(pinger Pinger, sink StateSink, interval time.Duration, log logging.Logger) *Watcher {
	return &Watcher{
		pinger:   pinger,
		sink:     sink,
		interval: interval,
		timeout:  DefaultPingTimeout,
		log:      log.With("component", "connectivity"),
	}
}

// Run probes every interval until ctx ends.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Check performs one probe and reports the outcome.
func (w *Watcher) Check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, w.timeout)
	err := w.pinger.Ping(pingCtx)
	cancel()

	if err != nil {
		w.log.Debug(ctx, "server unreachable", "error", err)
		w.sink.SetOfflineState()
		return
	}
	w.sink.SetOnlineState()
}
