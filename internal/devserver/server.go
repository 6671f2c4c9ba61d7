// Package devserver is a small in-memory auth server for local runs and
// end-to-end tests. It issues HS256 access tokens and rotating opaque
// refresh tokens, and guards everything under /api/ with a bearer check.
package devserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/cryptox"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/google/uuid"
)

const maxRequestSize = 1 << 16

type Config struct {
	SecretKey  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// LoadDefaults fills in development values. They are not safe outside a
// local machine.
func (c *Config) LoadDefaults() {
	c.SecretKey = "secretKey"
	c.AccessTTL = time.Minute
	c.RefreshTTL = 3 * time.Minute
}

type user struct {
	id       string
	username string
	salt     []byte
	verifier []byte
	email    string
	name     string
	roles    []string
}

type refreshToken struct {
	userID  string
	expires time.Time
}

type Server struct {
	cfg Config
	log logging.Logger
	now func() time.Time

	mu         sync.Mutex
	users      map[string]*user
	refresh    map[string]refreshToken
	generation int64
}

func New(cfg Config, log logging.Logger) *Server {
	return &Server{
		cfg:     cfg,
		log:     log.With("component", "devserver"),
		now:     time.Now,
		users:   make(map[string]*user),
		refresh: make(map[string]refreshToken),
	}
}

// AddUser registers a user. Roles may be empty.
func (s *Server) AddUser(username, password, email, name string, roles ...string) {
	salt := common.GenerateRandByteArray(cryptox.SaltSize)
	if roles == nil {
		roles = []string{}
	}
	u := &user{
		id:       uuid.NewString(),
		username: username,
		salt:     salt,
		verifier: cryptox.DeriveKey([]byte(password), salt),
		email:    email,
		name:     name,
		roles:    roles,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = u
}

// RevokeAccessTokens invalidates every access token issued so far.
// Refresh tokens stay valid.
func (s *Server) RevokeAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

// RevokeRefreshTokens forgets every outstanding refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.refresh)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /token/refresh", s.handleRefresh)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/api/", s.requireAccessToken(http.HandlerFunc(s.handleAPI)))
	return mux
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	u, ok := s.users[req.Username]
	s.mu.Unlock()
	if !ok || !checkVerifier(u, []byte(req.Password)) {
		s.log.Info(r.Context(), "login rejected", "username", req.Username)
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	s.issue(w, r, u)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	rt, ok := s.refresh[req.RefreshToken]
	delete(s.refresh, req.RefreshToken)
	var u *user
	if ok {
		u = s.userByID(rt.userID)
	}
	s.mu.Unlock()

	if !ok || u == nil || rt.expires.Before(s.now()) {
		http.Error(w, "invalid refresh token", http.StatusUnauthorized)
		return
	}

	s.issue(w, r, u)
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(claimsKey).(*Claims)
	writeJSON(w, http.StatusOK, map[string]any{
		"path":    r.URL.Path,
		"subject": claims.Subject,
		"email":   claims.Email,
	})
}

type ctxKey string

const claimsKey ctxKey = "claims"

func (s *Server) requireAccessToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		claims, err := parseToken(raw, []byte(s.cfg.SecretKey))
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		s.mu.Lock()
		current := s.generation
		s.mu.Unlock()
		if claims.Generation != current {
			http.Error(w, "token revoked", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

func (s *Server) issue(w http.ResponseWriter, r *http.Request, u *user) {
	now := s.now()

	s.mu.Lock()
	generation := s.generation
	s.mu.Unlock()

	access, err := generateToken(u, generation, []byte(s.cfg.SecretKey), s.cfg.AccessTTL, now)
	if err != nil {
		s.log.Error(r.Context(), "sign access token", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		s.log.Error(r.Context(), "generate refresh token", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	s.refresh[refresh] = refreshToken{userID: u.id, expires: now.Add(s.cfg.RefreshTTL)}
	s.mu.Unlock()

	s.log.Debug(r.Context(), "tokens issued", "user_id", u.id, "path", r.URL.Path)
	writeJSON(w, http.StatusOK, tokenResponse{Token: access, RefreshToken: refresh})
}

// userByID must be called with s.mu held.
func (s *Server) userByID(id string) *user {
	for _, u := range s.users {
		if u.id == id {
			return u
		}
	}
	return nil
}

func checkVerifier(u *user, password []byte) bool {
	candidate := cryptox.DeriveKey(password, u.salt)
	defer common.WipeByteArray(candidate)
	return subtle.ConstantTimeCompare(u.verifier, candidate) == 1
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestSize))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
			return false
		}
		http.Error(w, "malformed request", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	s.log.Info(ctx, "shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
