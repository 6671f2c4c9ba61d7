package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
)

// getSimpleText and getPassword point to the interactive input helpers and
// can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// ErrNotLoggedIn is returned by commands that need a session.
var ErrNotLoggedIn = errors.New("not logged in")

// Login prompts for credentials and authenticates. The password is wiped
// before returning.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Login(ctx, userName, password); err != nil {
		a.log.Warn(ctx, "login failed", "error", err)
		return err
	}
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	return a.authService.Logout(ctx)
}

func (a *App) Status(ctx context.Context) error {
	fmt.Fprintf(a.out, "state: %s\n", a.session.State())
	if c := a.session.CurrentUserClaims(); c != nil {
		fmt.Fprintf(a.out, "access token expires in %s\n", time.Until(c.ExpiresAt).Round(time.Second))
	}
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	if !a.isLoggedIn() {
		return ErrNotLoggedIn
	}
	c := a.session.CurrentUserClaims()
	if c == nil {
		fmt.Fprintln(a.out, "access token is expired or unreadable; it will be refreshed on the next request")
		return nil
	}
	fmt.Fprintf(a.out, "user id: %s\n", c.UserID)
	fmt.Fprintf(a.out, "email:   %s\n", c.Email)
	if c.DisplayName != "" {
		fmt.Fprintf(a.out, "name:    %s\n", c.DisplayName)
	}
	fmt.Fprintf(a.out, "roles:   %s\n", strings.Join(c.Roles, ", "))
	fmt.Fprintf(a.out, "expires: %s\n", c.ExpiresAt.Format(time.RFC3339))
	return nil
}

// Get calls the protected API. A rejected token is refreshed transparently;
// if that is impossible the session ends and the error says so.
func (a *App) Get(ctx context.Context, path string) error {
	resp, err := a.apiService.Get(ctx, path)
	if err != nil {
		if errors.Is(err, common.ErrNotAuthenticated) {
			return fmt.Errorf("%w, please log in again", common.ErrNotAuthenticated)
		}
		return err
	}
	fmt.Fprintf(a.out, "%d\n%s\n", resp.Status, resp.Body)
	return nil
}

// DropAccess forgets the access token so the next request exercises refresh.
func (a *App) DropAccess(ctx context.Context) error {
	if !a.isLoggedIn() {
		return ErrNotLoggedIn
	}
	if err := a.session.ClearAccessToken(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "access token dropped")
	return nil
}

// DropRefresh forgets the refresh token so the next refresh fails.
func (a *App) DropRefresh(ctx context.Context) error {
	if !a.isLoggedIn() {
		return ErrNotLoggedIn
	}
	if err := a.session.ClearRefreshToken(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "refresh token dropped")
	return nil
}
