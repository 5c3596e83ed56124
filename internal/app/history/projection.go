package history

import (
	"context"
	"sync"

	"github.com/whitman-labs/parley/internal/domain"
	"github.com/whitman-labs/parley/internal/observability"
)

// Projection is a read-only view over the store's list operation for one
// owner, independent of the controller's in-memory transcript. It keeps a
// local copy of the entries so a delete can drop one row without a full
// re-fetch.
type Projection struct {
	store domain.ChatStore
	owner domain.UserID

	mu      sync.RWMutex
	entries []domain.Summary
}

func NewProjection(store domain.ChatStore, owner domain.UserID) *Projection {
	return &Projection{store: store, owner: owner}
}

// Refresh reloads the owner's sessions, most recently updated first.
func (p *Projection) Refresh(ctx context.Context) error {
	entries, err := p.store.List(ctx, p.owner)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("failed to load chat history", "error", err)
		return err
	}

	p.mu.Lock()
	p.entries = entries
	p.mu.Unlock()
	return nil
}

// Entries returns a copy of the cached list.
func (p *Projection) Entries() []domain.Summary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]domain.Summary(nil), p.entries...)
}

// Delete removes a session from the store, then drops it from the cached
// list without re-fetching.
func (p *Projection) Delete(ctx context.Context, id domain.SessionID) error {
	if err := p.store.Delete(ctx, id); err != nil {
		return err
	}

	p.Forget(id)
	return nil
}

// Forget drops an entry from the cached list only, for callers that have
// already deleted the record elsewhere.
func (p *Projection) Forget(id domain.SessionID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, e := range p.entries {
		if e.ID == id {
			p.entries = append(p.entries[:i], p.entries[i+1:]...)
			break
		}
	}
}
