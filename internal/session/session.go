// Package session holds the client's authenticated identity.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/omelentjeff/product-management-app/internal/errs"
	"github.com/omelentjeff/product-management-app/internal/model"
	"github.com/omelentjeff/product-management-app/internal/tokenstore"
)

const (
	msgAuthFailed     = "authentication failed"
	msgRegisterFailed = "registration failed"
)

// AuthAPI is the server side of login and signup.
type AuthAPI interface {
	Authenticate(ctx context.Context, in model.AuthRequest) (model.AuthResponse, error)
	Register(ctx context.Context, in model.RegisterRequest) (model.AuthResponse, error)
}

// Session is the single source of the current identity. Username and role
// are always derived from the held token. Subscribers are notified after
// every change.
type Session struct {
	api   AuthAPI
	store tokenstore.Store
	log   *zap.Logger

	mu      sync.RWMutex
	cur     model.Identity
	subs    map[int]func(model.Identity)
	nextSub int
}

// New constructs an anonymous session. Call Restore to load a stored token.
func New(api AuthAPI, store tokenstore.Store, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{api: api, store: store, log: log, subs: map[int]func(model.Identity){}}
}

// Restore loads a stored token without any network call. A malformed token
// is removed and the session stays anonymous.
func (s *Session) Restore() {
	tok, err := s.store.Load()
	if err != nil {
		if !errors.Is(err, errs.ErrNoToken) {
			s.log.Warn("token store read failed", zap.Error(err))
		}
		return
	}
	claims, err := DecodeClaims(tok)
	if err != nil {
		s.log.Warn("discarding malformed stored token", zap.Error(err))
		if cerr := s.store.Clear(); cerr != nil {
			s.log.Warn("token store clear failed", zap.Error(cerr))
		}
		s.set(model.Identity{})
		return
	}
	s.set(identity(claims, tok))
	s.log.Debug("session restored", zap.String("user", claims.Subject))
}

// Authenticate logs in and, on success, persists the token and returns the
// server payload. Failures are *errs.AuthenticationError and leave the
// session unchanged.
func (s *Session) Authenticate(ctx context.Context, username, password string) (model.AuthResponse, error) {
	return s.login(msgAuthFailed, func() (model.AuthResponse, error) {
		return s.api.Authenticate(ctx, model.AuthRequest{Username: username, Password: password})
	})
}

// Register signs up with role "user" or "admin"; same contract as Authenticate.
func (s *Session) Register(ctx context.Context, username, password, role string) (model.AuthResponse, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role != model.RoleUser && role != model.RoleAdmin {
		return model.AuthResponse{}, &errs.AuthenticationError{Message: fmt.Sprintf("invalid role %q", role)}
	}
	return s.login(msgRegisterFailed, func() (model.AuthResponse, error) {
		return s.api.Register(ctx, model.RegisterRequest{Username: username, Password: password, Role: role})
	})
}

func (s *Session) login(generic string, call func() (model.AuthResponse, error)) (model.AuthResponse, error) {
	resp, err := call()
	if err != nil {
		msg := errs.ServerMessage(err)
		if msg == "" {
			msg = generic
		}
		return model.AuthResponse{}, &errs.AuthenticationError{Message: msg, Err: err}
	}
	if resp.Token == "" {
		return model.AuthResponse{}, &errs.AuthenticationError{Message: generic}
	}
	claims, err := DecodeClaims(resp.Token)
	if err != nil {
		return model.AuthResponse{}, &errs.AuthenticationError{Message: generic, Err: err}
	}
	if err := s.store.Save(resp.Token); err != nil {
		return model.AuthResponse{}, fmt.Errorf("persist token: %w", err)
	}
	s.set(identity(claims, resp.Token))
	s.log.Info("signed in", zap.String("user", claims.Subject), zap.String("role", string(claims.Role)))
	return resp, nil
}

// Logout clears the session and the stored token. There is no server call.
func (s *Session) Logout() error {
	s.set(model.Identity{})
	return s.store.Clear()
}

// Current returns a snapshot of the identity.
func (s *Session) Current() model.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Token returns the bearer token, "" when anonymous. It satisfies
// apiclient.TokenSource.
func (s *Session) Token() string { return s.Current().Token }

// Role returns the current role, "" when anonymous.
func (s *Session) Role() string { return s.Current().Role }

// IsAdmin reports whether the current role is the admin role.
func (s *Session) IsAdmin() bool { return model.IsAdmin(s.Role()) }

// Subscribe registers fn for identity changes and returns its cancel func.
func (s *Session) Subscribe(fn func(model.Identity)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Session) set(id model.Identity) {
	s.mu.Lock()
	s.cur = id
	fns := make([]func(model.Identity), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(id)
	}
}

func identity(c Claims, token string) model.Identity {
	return model.Identity{Username: c.Subject, Role: string(c.Role), Token: token}
}
