package chat

import (
	"context"
	"sync"

	"github.com/whitman-labs/parley/internal/domain"
)

// Registry hands out one Controller per user so independent chat widgets
// (and tests) run concurrently without shared ambient state.
type Registry struct {
	store      domain.ChatStore
	completion domain.CompletionClient
	opts       []Option

	mu          sync.Mutex
	controllers map[domain.UserID]*Controller
}

func NewRegistry(store domain.ChatStore, completion domain.CompletionClient, opts ...Option) *Registry {
	return &Registry{
		store:       store,
		completion:  completion,
		opts:        opts,
		controllers: make(map[domain.UserID]*Controller),
	}
}

// For returns the controller for a user, creating it on first use.
func (r *Registry) For(user domain.UserID) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.controllers[user]; ok {
		return c
	}
	c := NewController(r.store, r.completion, fixedIdentity(user), r.opts...)
	r.controllers[user] = c
	return c
}

// Evict drops a user's controller, e.g. after sign-out. Any in-flight
// completion is abandoned through the controller's own fencing.
func (r *Registry) Evict(user domain.UserID) {
	r.mu.Lock()
	c, ok := r.controllers[user]
	delete(r.controllers, user)
	r.mu.Unlock()

	if ok {
		_ = c.SelectSession(context.Background(), domain.SentinelNewSession)
	}
}

// fixedIdentity pins a controller to the user it was created for.
type fixedIdentity domain.UserID

func (f fixedIdentity) CurrentUser(context.Context) (domain.UserID, bool) {
	return domain.UserID(f), f != ""
}
