package identity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/luminacare/lumina/internal/identity"
	"github.com/luminacare/lumina/internal/shared"
	_ "github.com/luminacare/lumina/testing"
)

func newTokenStore(t *testing.T) (*identity.TokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return identity.NewTokenStore(client, time.Hour), mr
}

func TestTokenIssueVerifyRoundTrip(t *testing.T) {
	store, _ := newTokenStore(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, 42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	id, err := store.Verify(ctx, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UserID != 42 || id.Token != token || id.MasqueradeToken != "" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestTokenIssueBoundCarriesGrant(t *testing.T) {
	store, _ := newTokenStore(t)
	ctx := context.Background()

	token, err := store.IssueBound(ctx, 7, "grant-xyz")
	if err != nil {
		t.Fatalf("issue bound: %v", err)
	}
	id, err := store.Verify(ctx, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UserID != 7 || id.MasqueradeToken != "grant-xyz" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestTokenVerifyUnknownToken(t *testing.T) {
	store, _ := newTokenStore(t)
	if _, err := store.Verify(context.Background(), "no-such-token"); !errors.Is(err, shared.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := store.Verify(context.Background(), ""); !errors.Is(err, shared.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for empty token, got %v", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	store, mr := newTokenStore(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, 42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	mr.FastForward(2 * time.Hour)
	if _, err := store.Verify(ctx, token); !errors.Is(err, shared.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated after expiry, got %v", err)
	}
}

func TestTokenRevoke(t *testing.T) {
	store, _ := newTokenStore(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, 42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := store.Revoke(ctx, token); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := store.Verify(ctx, token); !errors.Is(err, shared.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated after revoke, got %v", err)
	}
	if err := store.Revoke(ctx, token); err != nil {
		t.Fatalf("revoking twice must be a no-op, got %v", err)
	}
}
