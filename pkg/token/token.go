// Package token issues and verifies opaque bearer tokens bound to a subject
// (a user's phone number) with a fixed liveness window.
package token

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aretw0/hearth/pkg/core"
	"github.com/aretw0/hearth/pkg/typed"
)

const (
	// Collection is where tokens are persisted.
	Collection = "tokens"
	// IDLength is the length of a token id.
	IDLength = 20
	// DefaultTTL is the liveness window granted on issue and on extend.
	DefaultTTL = time.Hour

	alphabet     = "abcdefghijklmnopqrstuvwxyz0123456789"
	issueRetries = 3
)

// Token is the persisted form of a bearer token. Expires is in unix milliseconds.
type Token struct {
	Subject string `json:"phone"`
	ID      string `json:"id"`
	Expires int64  `json:"expires"`
}

// ExpiresAt returns the expiry instant.
func (t Token) ExpiresAt() time.Time {
	return time.UnixMilli(t.Expires)
}

// Authority owns the tokens collection.
type Authority struct {
	tokens *typed.Collection[Token]
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	issued   atomic.Int64
	verified atomic.Int64
	rejected atomic.Int64
}

// Option configures an Authority.
type Option func(*Authority)

// WithTTL overrides the default one hour liveness window.
func WithTTL(ttl time.Duration) Option {
	return func(a *Authority) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Authority) {
		a.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Authority) {
		a.logger = logger
	}
}

// NewAuthority creates an Authority persisting into store.
func NewAuthority(store typed.Store, opts ...Option) *Authority {
	a := &Authority{
		tokens: typed.NewCollection[Token](store, Collection),
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "token")
	return a
}

// TTL returns the configured liveness window.
func (a *Authority) TTL() time.Duration {
	return a.ttl
}

// Issue creates a token for subject. The caller is expected to have checked
// the subject's credentials already.
func (a *Authority) Issue(ctx context.Context, subject string) (Token, error) {
	var lastErr error
	for range issueRetries {
		id, err := newID()
		if err != nil {
			return Token{}, err
		}

		tok := Token{
			Subject: subject,
			ID:      id,
			Expires: a.now().Add(a.ttl).UnixMilli(),
		}
		err = a.tokens.Create(ctx, id, tok)
		if err == nil {
			a.issued.Add(1)
			a.logger.Debug("token issued", "subject", subject, "expires", tok.ExpiresAt())
			return tok, nil
		}
		if !errors.Is(err, core.ErrAlreadyExists) {
			return Token{}, err
		}
		lastErr = err
	}
	return Token{}, fmt.Errorf("failed to allocate a token id: %w", lastErr)
}

// Verify reports whether id names a live token belonging to subject.
// Absence, mismatch, expiry and storage failures all yield false.
func (a *Authority) Verify(ctx context.Context, id, subject string) bool {
	ok := a.verify(ctx, id, subject)
	if ok {
		a.verified.Add(1)
	} else {
		a.rejected.Add(1)
	}
	return ok
}

func (a *Authority) verify(ctx context.Context, id, subject string) bool {
	if id == "" || subject == "" {
		return false
	}
	tok, err := a.tokens.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) && !errors.Is(err, core.ErrInvalidKey) {
			a.logger.Warn("token lookup failed", "error", err)
		}
		return false
	}
	return tok.Subject == subject && tok.Expires > a.now().UnixMilli()
}

// Lookup returns the stored token, live or not.
func (a *Authority) Lookup(ctx context.Context, id string) (Token, error) {
	return a.tokens.Get(ctx, id)
}

// Extend pushes the expiry of a live token to now + TTL.
// It fails with core.ErrNotFound or core.ErrExpired.
func (a *Authority) Extend(ctx context.Context, id string) (Token, error) {
	var out Token
	err := a.tokens.Mutate(ctx, id, func(tok *Token) error {
		now := a.now()
		if tok.Expires <= now.UnixMilli() {
			return fmt.Errorf("%w: token %s", core.ErrExpired, id)
		}
		tok.Expires = now.Add(a.ttl).UnixMilli()
		out = *tok
		return nil
	})
	if err != nil {
		return Token{}, err
	}
	a.logger.Debug("token extended", "subject", out.Subject, "expires", out.ExpiresAt())
	return out, nil
}

// Revoke deletes a token. It fails with core.ErrNotFound if absent.
func (a *Authority) Revoke(ctx context.Context, id string) error {
	if err := a.tokens.Delete(ctx, id); err != nil {
		return err
	}
	a.logger.Debug("token revoked")
	return nil
}

func newID() (string, error) {
	// 252 is the largest multiple of 36 below 256; larger bytes are rejected
	// to keep the distribution uniform.
	const limit = 252

	out := make([]byte, 0, IDLength)
	buf := make([]byte, IDLength*2)
	for len(out) < IDLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == IDLength {
				break
			}
		}
	}
	return string(out), nil
}
