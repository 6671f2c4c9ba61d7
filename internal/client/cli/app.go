package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/claims"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/connectivity"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/services"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/session"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
)

// Session is the part of session.Manager the CLI reads and pokes.
type Session interface {
	State() session.State
	CurrentUserClaims() *claims.UserClaims
	States(ctx context.Context) <-chan session.State
	Events(ctx context.Context) <-chan session.Event
	ClearAccessToken(ctx context.Context) error
	ClearRefreshToken(ctx context.Context) error
}

type App struct {
	authService services.AuthService
	apiService  services.APIService
	session     Session
	watcher     *connectivity.Watcher
	log         logging.Logger

	reader *bufio.Reader
	out    io.Writer
}

func NewApp(auth services.AuthService, api services.APIService, s Session, log logging.Logger) *App {
	return &App{
		authService: auth,
		apiService:  api,
		session:     s,
		log:         log,
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
	}
}

// Run prints session notifications and polls connectivity in the
// background, and serves the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintln(a.out, "Welcome to tokenkeeper CLI (type 'help' for commands)")
	go a.watchSession(ctx)
	if a.watcher != nil {
		go a.watcher.Run(ctx)
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) isLoggedIn() bool {
	return a.session.State() != session.Unauthenticated
}

func (a *App) getStatus() string {
	parts := make([]string, 0, 2)
	if c := a.session.CurrentUserClaims(); c != nil && c.Email != "" {
		parts = append(parts, c.Email)
	}
	parts = append(parts, a.session.State().String())
	return "(" + strings.Join(parts, " ") + ")"
}

// watchSession prints events and state transitions until ctx ends. The
// first state value is the replayed current one and is skipped.
func (a *App) watchSession(ctx context.Context) {
	events := a.session.Events(ctx)
	states := a.session.States(ctx)

	first := true
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintln(a.out, describeEvent(e))
		case s, ok := <-states:
			if !ok {
				return
			}
			if first {
				first = false
				continue
			}
			fmt.Fprintf(a.out, "[session is now %s]\n", s)
		}
	}
}

func describeEvent(e session.Event) string {
	switch e {
	case session.RefreshTokenMissing:
		return "[no refresh token stored, please log in again]"
	case session.SessionExpired:
		return "[session ended]"
	default:
		return fmt.Sprintf("[session event %s]", e)
	}
}
