package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/whitman-labs/parley/internal/domain"
)

// Store is an in-memory implementation of domain.ChatStore. It is NOT
// persistent and is only suitable for development / local mode and tests.
type Store struct {
	mu    sync.RWMutex
	chats map[domain.SessionID]*record
	now   func() time.Time
}

type record struct {
	owner     domain.UserID
	title     string
	preview   string
	messages  []domain.Message
	createdAt time.Time
	updatedAt time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty in-memory ChatStore.
func NewStore(opts ...Option) *Store {
	s := &Store{
		chats: make(map[domain.SessionID]*record),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Create(_ context.Context, ownerID domain.UserID, messages []domain.Message) (domain.SessionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id := domain.SessionID(uuid.NewString())
	s.chats[id] = &record{
		owner:     ownerID,
		title:     domain.DeriveTitle(messages),
		preview:   domain.DerivePreview(messages),
		messages:  append([]domain.Message(nil), messages...),
		createdAt: now,
		updatedAt: now,
	}
	return id, nil
}

func (s *Store) Get(_ context.Context, id domain.SessionID) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.chats[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	return &domain.Session{
		ID:                 id,
		OwnerID:            rec.owner,
		Title:              rec.title,
		Messages:           append([]domain.Message(nil), rec.messages...),
		LastMessagePreview: rec.preview,
		CreatedAt:          rec.createdAt,
		UpdatedAt:          rec.updatedAt,
	}, nil
}

func (s *Store) Update(_ context.Context, id domain.SessionID, messages []domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.chats[id]
	if !ok {
		return domain.ErrNotFound
	}

	// Title and createdAt stay as written at creation.
	rec.messages = append([]domain.Message(nil), messages...)
	rec.preview = domain.DerivePreview(messages)
	rec.updatedAt = s.now()
	return nil
}

func (s *Store) List(_ context.Context, ownerID domain.UserID) ([]domain.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Summary
	for id, rec := range s.chats {
		if rec.owner != ownerID {
			continue
		}
		out = append(out, domain.Summary{
			ID:        id,
			Title:     rec.title,
			Preview:   rec.preview,
			UpdatedAt: rec.updatedAt,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *Store) Delete(_ context.Context, id domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.chats, id)
	return nil
}
