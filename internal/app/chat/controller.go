package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/whitman-labs/parley/internal/domain"
	"github.com/whitman-labs/parley/internal/observability"
)

// Controller is the state machine for one user's active conversation. It
// holds the authoritative in-memory transcript, decides when a session is
// new vs persisted, and reconciles optimistic local appends with store
// results. All methods are safe for concurrent use; one submission is in
// flight at a time.
type Controller struct {
	store      domain.ChatStore
	completion domain.CompletionClient
	identity   domain.Identity
	timeout    time.Duration

	mu             sync.Mutex
	activeID       domain.SessionID // "" while the session is unsaved
	transcript     []domain.Message
	pending        bool
	generation     uint64
	cancelInflight context.CancelFunc
}

// Option configures a Controller.
type Option func(*Controller)

// WithTimeout bounds each completion call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.timeout = d
	}
}

// NewController builds a controller over the given collaborators.
func NewController(store domain.ChatStore, completion domain.CompletionClient, identity domain.Identity, opts ...Option) *Controller {
	c := &Controller{
		store:      store,
		completion: completion,
		identity:   identity,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State is a point-in-time snapshot of the controller for the UI layer.
type State struct {
	ActiveID   domain.SessionID
	Transcript []domain.Message
	Pending    bool
}

// State returns a copy of the current transcript and flags.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return State{
		ActiveID:   c.activeID,
		Transcript: append([]domain.Message(nil), c.transcript...),
		Pending:    c.pending,
	}
}

// Submit runs one full exchange: optimistic user append, completion call,
// assistant append, then create-or-update persistence. On completion
// failure the optimistic append is rolled back and the transcript is
// exactly as it was before the call. On persistence failure the exchange
// is kept locally and the store error is returned alongside the reply, so
// callers can show a non-blocking "not saved" notice.
func (c *Controller) Submit(ctx context.Context, text string) (domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, domain.ErrEmptyMessage
	}

	owner, ok := c.identity.CurrentUser(ctx)
	if !ok {
		return domain.Message{}, domain.ErrNoIdentity
	}

	log := observability.LoggerFromContext(ctx)

	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return domain.Message{}, domain.ErrBusy
	}
	c.pending = true
	c.generation++
	gen := c.generation

	c.transcript = append(c.transcript, domain.Message{Role: domain.RoleUser, Content: text})
	snapshot := append([]domain.Message(nil), c.transcript...)

	callCtx, cancel := c.inflightContext(ctx)
	c.cancelInflight = cancel
	c.mu.Unlock()

	reply, err := c.completion.Complete(callCtx, snapshot)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != gen {
		// The active session changed while we were waiting. The reset
		// already cleared pending and the transcript; this late result
		// must not touch either.
		return domain.Message{}, domain.ErrStale
	}

	c.pending = false
	c.cancelInflight = nil

	if err != nil {
		c.transcript = c.transcript[:len(c.transcript)-1]
		log.Warn("completion failed, optimistic message rolled back", "error", err)
		if errors.Is(err, domain.ErrUpstream) {
			return domain.Message{}, err
		}
		return domain.Message{}, fmt.Errorf("%w: %s", domain.ErrUpstream, err)
	}

	c.transcript = append(c.transcript, reply)

	if saveErr := c.persistLocked(ctx, owner); saveErr != nil {
		log.Warn("exchange kept locally but not saved", "error", saveErr)
		return reply, saveErr
	}

	return reply, nil
}

// persistLocked writes the transcript behind the active session id,
// creating the record on the first completed exchange. Callers hold c.mu.
func (c *Controller) persistLocked(ctx context.Context, owner domain.UserID) error {
	snapshot := append([]domain.Message(nil), c.transcript...)

	if c.activeID == "" {
		id, err := c.store.Create(ctx, owner, snapshot)
		if err != nil {
			return classifyStoreErr(err)
		}
		c.activeID = id
		return nil
	}

	err := c.store.Update(ctx, c.activeID, snapshot)
	if errors.Is(err, domain.ErrNotFound) {
		// The record was deleted underneath us. Keep the transcript and
		// let the next successful exchange re-create the session.
		c.activeID = ""
		return err
	}
	if err != nil {
		return classifyStoreErr(err)
	}
	return nil
}

// SelectSession switches the active conversation. The sentinel "new" (or an
// empty id) resets to a fresh unsaved session. Selection interrupts an
// in-flight completion: the stale call is cancelled and its eventual result
// discarded by the generation fence.
func (c *Controller) SelectSession(ctx context.Context, id domain.SessionID) error {
	gen := c.resetInflight()

	if id == "" || id == domain.SentinelNewSession {
		c.applyIfCurrent(gen, "", nil)
		return nil
	}

	sess, err := c.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return classifyStoreErr(err)
	}

	if !c.applyIfCurrent(gen, sess.ID, sess.Messages) {
		return domain.ErrStale
	}
	return nil
}

// DeleteSession removes a stored session. Deleting a missing id is a no-op.
// If the deleted session is the active one, the controller resets to a
// fresh unsaved session.
func (c *Controller) DeleteSession(ctx context.Context, id domain.SessionID) error {
	if id == "" || id == domain.SentinelNewSession {
		return nil
	}

	if err := c.store.Delete(ctx, id); err != nil {
		return classifyStoreErr(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeID == id {
		c.generation++
		if c.cancelInflight != nil {
			c.cancelInflight()
			c.cancelInflight = nil
		}
		c.pending = false
		c.activeID = ""
		c.transcript = nil
	}
	return nil
}

// resetInflight bumps the generation, abandoning any in-flight completion,
// and returns the new generation for a fenced apply.
func (c *Controller) resetInflight() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	if c.cancelInflight != nil {
		c.cancelInflight()
		c.cancelInflight = nil
	}
	c.pending = false
	return c.generation
}

// applyIfCurrent installs a transcript only when no newer select or submit
// has happened since gen was taken.
func (c *Controller) applyIfCurrent(gen uint64, id domain.SessionID, messages []domain.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != gen {
		return false
	}
	c.activeID = id
	c.transcript = append([]domain.Message(nil), messages...)
	return true
}

func (c *Controller) inflightContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

func classifyStoreErr(err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) || errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %s", domain.ErrStoreUnavailable, err)
}
