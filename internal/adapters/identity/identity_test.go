package identity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/whitman-labs/parley/internal/adapters/identity"
)

func TestFromProviderCode(t *testing.T) {
	cases := []struct {
		code string
		want error
	}{
		{"auth/invalid-credential", identity.ErrInvalidCredentials},
		{"auth/wrong-password", identity.ErrInvalidCredentials},
		{"auth/user-not-found", identity.ErrInvalidCredentials},
		{"auth/id-token-expired", identity.ErrExpiredToken},
		{"auth/user-disabled", identity.ErrUserDisabled},
		{"auth/network-request-failed", identity.ErrProviderUnavailable},
		{"auth/some-future-code", identity.ErrProviderUnavailable},
	}

	for _, tc := range cases {
		if got := identity.FromProviderCode(tc.code); !errors.Is(got, tc.want) {
			t.Fatalf("FromProviderCode(%q) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestNotifierSignInSignOut(t *testing.T) {
	n := identity.NewNotifier()
	ctx := context.Background()

	if _, ok := n.CurrentUser(ctx); ok {
		t.Fatal("expected no identity before sign-in")
	}

	events := n.Watch()

	n.SignIn("user-1")
	if user, ok := n.CurrentUser(ctx); !ok || user != "user-1" {
		t.Fatalf("expected user-1 after sign-in, got %q (%v)", user, ok)
	}
	ev := <-events
	if !ev.SignedIn || ev.User != "user-1" {
		t.Fatalf("unexpected event %+v", ev)
	}

	n.SignOut()
	if _, ok := n.CurrentUser(ctx); ok {
		t.Fatal("expected no identity after sign-out")
	}
	ev = <-events
	if ev.SignedIn || ev.User != "user-1" {
		t.Fatalf("sign-out event must carry the previous user, got %+v", ev)
	}
}
