// Package identity adapts external auth providers to the domain's identity
// port. Providers report failures as opaque tagged strings ("auth/..."); the
// mapping here collapses them into a closed set of error kinds at the
// boundary instead of letting the strings leak through.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/whitman-labs/parley/internal/domain"
)

var (
	ErrInvalidCredentials  = errors.New("identity: invalid credentials")
	ErrExpiredToken        = errors.New("identity: token expired")
	ErrUserDisabled        = errors.New("identity: user disabled")
	ErrProviderUnavailable = errors.New("identity: provider unavailable")
)

// FromProviderCode maps a provider's error.code string to one of the
// closed error values above. Unrecognized codes are treated as provider
// failures, never propagated as raw strings.
func FromProviderCode(code string) error {
	switch code {
	case "auth/invalid-credential", "auth/wrong-password", "auth/user-not-found", "auth/invalid-email":
		return ErrInvalidCredentials
	case "auth/id-token-expired", "auth/session-cookie-expired":
		return ErrExpiredToken
	case "auth/user-disabled":
		return ErrUserDisabled
	case "auth/network-request-failed", "auth/too-many-requests", "auth/internal-error":
		return ErrProviderUnavailable
	default:
		return fmt.Errorf("%w: code %q", ErrProviderUnavailable, code)
	}
}

// Static is a fixed identity, useful for tests and single-user wiring.
type Static domain.UserID

func (s Static) CurrentUser(context.Context) (domain.UserID, bool) {
	return domain.UserID(s), s != ""
}

// Notifier tracks the signed-in user and fans out change events. It
// implements domain.IdentityWatcher.
type Notifier struct {
	mu   sync.Mutex
	user domain.UserID
	subs []chan domain.IdentityEvent
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

func (n *Notifier) CurrentUser(context.Context) (domain.UserID, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.user, n.user != ""
}

// SignIn records the user and notifies watchers.
func (n *Notifier) SignIn(user domain.UserID) {
	n.broadcast(domain.IdentityEvent{User: user, SignedIn: true}, user)
}

// SignOut clears the identity and notifies watchers.
func (n *Notifier) SignOut() {
	n.mu.Lock()
	prev := n.user
	n.mu.Unlock()

	n.broadcast(domain.IdentityEvent{User: prev, SignedIn: false}, "")
}

// Watch returns a channel of identity changes. Slow consumers drop events
// rather than block sign-in and sign-out.
func (n *Notifier) Watch() <-chan domain.IdentityEvent {
	ch := make(chan domain.IdentityEvent, 8)
	n.mu.Lock()
	n.subs = append(n.subs, ch)
	n.mu.Unlock()
	return ch
}

func (n *Notifier) broadcast(ev domain.IdentityEvent, user domain.UserID) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.user = user
	for _, ch := range n.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
