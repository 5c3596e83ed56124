package domain

import "context"

// CompletionClient defines how the core application talks to the remote
// model endpoint. The full ordered transcript is sent so the model has
// context; exactly one assistant message comes back. Cancellation and
// timeouts arrive through ctx.
type CompletionClient interface {
	Complete(ctx context.Context, transcript []Message) (Message, error)
}

// ChatStore defines session persistence against the remote document store.
// Implementations own title/preview derivation and timestamps, and must
// scope List to the given owner.
type ChatStore interface {
	// Create writes a new session and returns its generated id.
	Create(ctx context.Context, ownerID UserID, messages []Message) (SessionID, error)
	// Get returns the full record, or ErrNotFound for a simple miss.
	Get(ctx context.Context, id SessionID) (*Session, error)
	// Update rewrites messages, preview and updatedAt. Title and createdAt
	// are immutable after creation.
	Update(ctx context.Context, id SessionID, messages []Message) error
	// List returns the owner's sessions, most recently updated first.
	List(ctx context.Context, ownerID UserID) ([]Summary, error)
	// Delete is idempotent; removing a missing id is not an error.
	Delete(ctx context.Context, id SessionID) error
}

// Identity yields the current user, or absence.
type Identity interface {
	CurrentUser(ctx context.Context) (UserID, bool)
}

// IdentityEvent signals a sign-in or sign-out.
type IdentityEvent struct {
	User     UserID
	SignedIn bool
}

// IdentityWatcher extends Identity with a stream of identity changes.
type IdentityWatcher interface {
	Identity
	Watch() <-chan IdentityEvent
}
