// Package auth holds the signed-in credential and account shadow.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"interviewcoach/internal/domain"
)

// ErrNotSignedIn is returned by operations that need a credential.
var ErrNotSignedIn = errors.New("not signed in")

// storedUser is the on-disk user. FreeInterviewsRemaining is the legacy
// spelling and is migrated to FreeInterviews on load.
type storedUser struct {
	Email                   string `yaml:"email"`
	Name                    string `yaml:"name"`
	TargetRole              string `yaml:"target_role"`
	ExperienceLevel         string `yaml:"experience_level"`
	FreeInterviews          *int   `yaml:"free_interviews,omitempty"`
	FreeInterviewsRemaining *int   `yaml:"free_interviews_remaining,omitempty"`
	PaidInterviews          int    `yaml:"paid_interviews"`
}

type storedCredentials struct {
	Token string      `yaml:"token"`
	User  *storedUser `yaml:"user,omitempty"`
}

// Context is the explicit credential context shared by the CLI, the TUI and
// the API client. It is safe for concurrent use.
type Context struct {
	path   string
	logger *zap.Logger
	now    func() time.Time

	mu    sync.RWMutex
	token string
	user  *domain.User
}

type Option func(*Context)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Context) {
		if now != nil {
			c.now = now
		}
	}
}

func NewContext(path string, opts ...Option) *Context {
	c := &Context{
		path:   path,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load re-hydrates the credential from disk. A missing file leaves the
// context signed out. An expired or unreadable token is discarded together
// with its user, and the file is removed.
func (c *Context) Load() error {
	raw, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read credentials: %w", err)
	}

	var stored storedCredentials
	if err := yaml.Unmarshal(raw, &stored); err != nil {
		return fmt.Errorf("decode credentials: %w", err)
	}

	if stored.Token == "" || c.expired(stored.Token) {
		c.logger.Info("discarding stored credential", zap.String("path", c.path))
		return c.Logout()
	}

	var user *domain.User
	migrated := false
	if stored.User != nil {
		u, legacy := stored.User.domain()
		user = &u
		migrated = legacy
	}

	c.mu.Lock()
	c.token = stored.Token
	c.user = user
	c.mu.Unlock()

	if migrated {
		c.logger.Info("migrating legacy credit field", zap.String("path", c.path))
		return c.persist()
	}
	return nil
}

// Token implements apiclient.TokenSource.
func (c *Context) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// User returns the account shadow, if one is held.
func (c *Context) User() (domain.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return domain.User{}, false
	}
	return *c.user, true
}

func (c *Context) SignedIn() bool {
	return c.Token() != ""
}

// Login stores a fresh credential and user.
func (c *Context) Login(token string, user domain.User) error {
	if token == "" {
		return errors.New("empty token")
	}
	c.mu.Lock()
	c.token = token
	c.user = &user
	c.mu.Unlock()
	return c.persist()
}

// SetUser replaces the account shadow after a profile or credit change.
func (c *Context) SetUser(user domain.User) error {
	c.mu.Lock()
	if c.token == "" {
		c.mu.Unlock()
		return ErrNotSignedIn
	}
	c.user = &user
	c.mu.Unlock()
	return c.persist()
}

// Logout clears memory and removes the credentials file.
func (c *Context) Logout() error {
	c.mu.Lock()
	c.token = ""
	c.user = nil
	c.mu.Unlock()

	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}

// ExpiresAt reports the exp claim of the held token.
func (c *Context) ExpiresAt() (time.Time, bool) {
	exp, err := expiry(c.Token())
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (c *Context) expired(token string) bool {
	exp, err := expiry(token)
	if err != nil {
		c.logger.Warn("stored token is unreadable", zap.Error(err))
		return true
	}
	return exp != nil && !c.now().Before(exp.Time)
}

// expiry reads the exp claim without verifying the signature; the server
// is the only party holding the key.
func expiry(token string) (*jwt.NumericDate, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, err
	}
	return claims.ExpiresAt, nil
}

func (c *Context) persist() error {
	c.mu.RLock()
	stored := storedCredentials{Token: c.token}
	if c.user != nil {
		free := c.user.FreeInterviews
		stored.User = &storedUser{
			Email:           c.user.Email,
			Name:            c.user.Name,
			TargetRole:      c.user.TargetRole,
			ExperienceLevel: c.user.ExperienceLevel,
			FreeInterviews:  &free,
			PaidInterviews:  c.user.PaidInterviews,
		}
	}
	c.mu.RUnlock()

	encoded, err := yaml.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, encoded, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace credentials: %w", err)
	}
	return nil
}

func (u storedUser) domain() (domain.User, bool) {
	user := domain.User{
		Email:           u.Email,
		Name:            u.Name,
		TargetRole:      u.TargetRole,
		ExperienceLevel: u.ExperienceLevel,
		PaidInterviews:  u.PaidInterviews,
	}
	switch {
	case u.FreeInterviews != nil:
		user.FreeInterviews = *u.FreeInterviews
	case u.FreeInterviewsRemaining != nil:
		user.FreeInterviews = *u.FreeInterviewsRemaining
	}
	return user, u.FreeInterviewsRemaining != nil
}
