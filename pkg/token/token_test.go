package token_test

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/hearth/pkg/adapters/fs"
	"github.com/aretw0/hearth/pkg/core"
	"github.com/aretw0/hearth/pkg/token"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupAuthority(t *testing.T) (*token.Authority, *fakeClock, *core.Service) {
	t.Helper()
	repo := fs.NewRepository(fs.Config{Path: t.TempDir(), KeyLocks: true})
	require.NoError(t, repo.Initialize(context.Background()))
	svc := core.NewService(repo)

	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	return token.NewAuthority(svc, token.WithClock(clock.Now)), clock, svc
}

var idPattern = regexp.MustCompile(`^[a-z0-9]{20}$`)

func TestIssue(t *testing.T) {
	auth, clock, svc := setupAuthority(t)
	ctx := context.Background()

	tok, err := auth.Issue(ctx, "1234567890")
	require.NoError(t, err)

	assert.Regexp(t, idPattern, tok.ID)
	assert.Equal(t, "1234567890", tok.Subject)
	assert.Equal(t, clock.Now().Add(time.Hour).UnixMilli(), tok.Expires)

	// Wire format of the stored record
	rec, err := svc.Read(ctx, token.Collection, tok.ID)
	require.NoError(t, err)
	assert.Equal(t, "1234567890", rec["phone"])
	assert.Equal(t, tok.ID, rec["id"])
	assert.Equal(t, float64(tok.Expires), rec["expires"])

	other, err := auth.Issue(ctx, "1234567890")
	require.NoError(t, err)
	assert.NotEqual(t, tok.ID, other.ID)
}

func TestVerify(t *testing.T) {
	auth, clock, _ := setupAuthority(t)
	ctx := context.Background()

	tok, err := auth.Issue(ctx, "1234567890")
	require.NoError(t, err)

	assert.True(t, auth.Verify(ctx, tok.ID, "1234567890"))
	assert.False(t, auth.Verify(ctx, tok.ID, "0987654321"), "subject mismatch")
	assert.False(t, auth.Verify(ctx, "aaaaaaaaaaaaaaaaaaaa", "1234567890"), "unknown id")
	assert.False(t, auth.Verify(ctx, "", "1234567890"), "empty id")
	assert.False(t, auth.Verify(ctx, "../users/x", "1234567890"), "invalid id")

	clock.Advance(time.Hour)
	assert.False(t, auth.Verify(ctx, tok.ID, "1234567890"), "expiry is exclusive")
}

func TestExtend(t *testing.T) {
	auth, clock, _ := setupAuthority(t)
	ctx := context.Background()

	tok, err := auth.Issue(ctx, "1234567890")
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)
	extended, err := auth.Extend(ctx, tok.ID)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(time.Hour).UnixMilli(), extended.Expires)

	clock.Advance(59 * time.Minute)
	assert.True(t, auth.Verify(ctx, tok.ID, "1234567890"))

	clock.Advance(2 * time.Minute)
	_, err = auth.Extend(ctx, tok.ID)
	assert.ErrorIs(t, err, core.ErrExpired)

	_, err = auth.Extend(ctx, "aaaaaaaaaaaaaaaaaaaa")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRevokeAndLookup(t *testing.T) {
	auth, _, _ := setupAuthority(t)
	ctx := context.Background()

	tok, err := auth.Issue(ctx, "1234567890")
	require.NoError(t, err)

	got, err := auth.Lookup(ctx, tok.ID)
	require.NoError(t, err)
	assert.Equal(t, tok, got)

	require.NoError(t, auth.Revoke(ctx, tok.ID))
	assert.False(t, auth.Verify(ctx, tok.ID, "1234567890"))
	assert.ErrorIs(t, auth.Revoke(ctx, tok.ID), core.ErrNotFound)

	_, err = auth.Lookup(ctx, tok.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestState(t *testing.T) {
	auth, _, _ := setupAuthority(t)
	ctx := context.Background()

	tok, _ := auth.Issue(ctx, "1234567890")
	auth.Verify(ctx, tok.ID, "1234567890")
	auth.Verify(ctx, tok.ID, "nope")

	state := auth.State().(token.State)
	assert.Equal(t, int64(1), state.Issued)
	assert.Equal(t, int64(1), state.Verified)
	assert.Equal(t, int64(1), state.Rejected)
	assert.Equal(t, "1h0m0s", state.TTL)
}
