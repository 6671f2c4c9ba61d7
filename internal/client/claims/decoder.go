// Package claims extracts the user identity carried in an access token.
//
// Signatures are not verified here: the client only reads its own token to
// display who is logged in and when the token runs out. The server remains
// the authority on validity.
package claims

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserClaims is the typed view of an access token's claim set.
type UserClaims struct {
	UserID      string
	Email       string
	DisplayName string // empty when the token carries no name
	Roles       []string
	ExpiresAt   time.Time
}

// ExpiresAtEpochMillis returns ExpiresAt as milliseconds since the Unix epoch.
func (c *UserClaims) ExpiresAtEpochMillis() int64 {
	return c.ExpiresAt.UnixMilli()
}

// Decoder parses access tokens without verifying them.
type Decoder struct {
	parser *jwt.Parser
	now    func() time.Time
}

type Option func(*Decoder)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(d *Decoder) { d.now = now }
}

func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		parser: jwt.NewParser(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Decode returns the claims of token, or nil if the token is blank,
// unparsable, has no expiry, or has already expired.
func (d *Decoder) Decode(token string) *UserClaims {
	mc, ok := d.parse(token)
	if !ok {
		return nil
	}
	exp, ok := expiration(mc)
	if !ok || !exp.After(d.now()) {
		return nil
	}

	sub, _ := mc.GetSubject()
	return &UserClaims{
		UserID:      sub,
		Email:       firstString(mc, "email", "username", "preferred_username"),
		DisplayName: firstString(mc, "name"),
		Roles:       stringList(mc["roles"]),
		ExpiresAt:   exp,
	}
}

// IsExpired reports whether token is unusable: blank, unparsable, without
// expiry, or expired.
func (d *Decoder) IsExpired(token string) bool {
	exp, ok := d.ExpirationOf(token)
	return !ok || !exp.After(d.now())
}

// ExpirationOf returns the token's exp claim.
func (d *Decoder) ExpirationOf(token string) (time.Time, bool) {
	mc, ok := d.parse(token)
	if !ok {
		return time.Time{}, false
	}
	return expiration(mc)
}

func (d *Decoder) parse(token string) (jwt.MapClaims, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, false
	}
	t, _, err := d.parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, false
	}
	mc, ok := t.Claims.(jwt.MapClaims)
	return mc, ok
}

func expiration(mc jwt.MapClaims) (time.Time, bool) {
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func firstString(mc jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if s, ok := mc[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// stringList accepts a JSON array of strings or a single string.
func stringList(v any) []string {
	switch vv := v.(type) {
	case string:
		if vv == "" {
			return []string{}
		}
		return []string{vv}
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}
