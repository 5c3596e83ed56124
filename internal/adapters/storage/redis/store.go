package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/whitman-labs/parley/internal/domain"
)

// Store implements domain.ChatStore on Redis. Each session is one JSON
// value under "chat:<id>", with a per-owner set "chats:<owner>" as the
// list index. Updates are last-writer-wins: sessions are single-owner and
// single-widget by construction, so there is no optimistic versioning.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTTL expires sessions after the given idle time. Zero keeps them
// forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithClock overrides the timestamp source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a Redis chat store over an existing client.
func NewStore(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

type chatRecord struct {
	OwnerID     string           `json:"owner_id"`
	Title       string           `json:"title"`
	Messages    []domain.Message `json:"messages"`
	LastMessage string           `json:"last_message"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func chatKey(id domain.SessionID) string {
	return "chat:" + string(id)
}

func ownerKey(owner domain.UserID) string {
	return "chats:" + string(owner)
}

func (s *Store) Create(ctx context.Context, ownerID domain.UserID, messages []domain.Message) (domain.SessionID, error) {
	now := s.now()
	id := domain.SessionID(uuid.NewString())

	rec := chatRecord{
		OwnerID:     string(ownerID),
		Title:       domain.DeriveTitle(messages),
		Messages:    append([]domain.Message(nil), messages...),
		LastMessage: domain.DerivePreview(messages),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	val, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("redis Create encode: %w: %s", domain.ErrStoreUnavailable, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, chatKey(id), val, s.ttl)
		pipe.SAdd(ctx, ownerKey(ownerID), string(id))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("redis Create: %w: %s", domain.ErrStoreUnavailable, err)
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	rec, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	return &domain.Session{
		ID:                 id,
		OwnerID:            domain.UserID(rec.OwnerID),
		Title:              rec.Title,
		Messages:           rec.Messages,
		LastMessagePreview: rec.LastMessage,
		CreatedAt:          rec.CreatedAt,
		UpdatedAt:          rec.UpdatedAt,
	}, nil
}

func (s *Store) Update(ctx context.Context, id domain.SessionID, messages []domain.Message) error {
	rec, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}

	// Title and CreatedAt stay as written at creation.
	rec.Messages = append([]domain.Message(nil), messages...)
	rec.LastMessage = domain.DerivePreview(messages)
	rec.UpdatedAt = s.now()

	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis Update encode: %w: %s", domain.ErrStoreUnavailable, err)
	}

	if err := s.client.Set(ctx, chatKey(id), val, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis Update: %w: %s", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, ownerID domain.UserID) ([]domain.Summary, error) {
	ids, err := s.client.SMembers(ctx, ownerKey(ownerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis List: %w: %s", domain.ErrStoreUnavailable, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, chatKey(domain.SessionID(id)))
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis List: %w: %s", domain.ErrStoreUnavailable, err)
	}

	var out []domain.Summary
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// Value expired; drop the dangling index entry.
			s.client.SRem(ctx, ownerKey(ownerID), ids[i])
			continue
		}

		var rec chatRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("redis List decode: %w: %s", domain.ErrStoreUnavailable, err)
		}

		out = append(out, domain.Summary{
			ID:        domain.SessionID(ids[i]),
			Title:     rec.Title,
			Preview:   rec.LastMessage,
			UpdatedAt: rec.UpdatedAt,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id domain.SessionID) error {
	rec, err := s.fetch(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, chatKey(id))
		pipe.SRem(ctx, ownerKey(domain.UserID(rec.OwnerID)), string(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis Delete: %w: %s", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) fetch(ctx context.Context, id domain.SessionID) (*chatRecord, error) {
	val, err := s.client.Get(ctx, chatKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis Get: %w: %s", domain.ErrStoreUnavailable, err)
	}

	var rec chatRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, fmt.Errorf("redis Get decode: %w: %s", domain.ErrStoreUnavailable, err)
	}
	return &rec, nil
}
