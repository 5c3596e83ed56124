package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/whitman-labs/parley/internal/domain"
)

const chatsCollection = "chats"

// Store implements domain.ChatStore on Firestore. Sessions live as single
// documents under the "chats" collection, messages embedded in order.
// Owner filtering relies on the user_id field plus store-side security
// rules; List never queries outside the owner.
type Store struct {
	client *firestore.Client
	now    func() time.Time
}

// NewStore creates a Firestore chat store for the given project.
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client, now: time.Now}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) chats() *firestore.CollectionRef {
	return s.client.Collection(chatsCollection)
}

func (s *Store) chatDoc(id domain.SessionID) *firestore.DocumentRef {
	return s.chats().Doc(string(id))
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type chatDoc struct {
	UserID      string       `firestore:"user_id"`
	Title       string       `firestore:"title"`
	Messages    []messageDoc `firestore:"messages"`
	LastMessage string       `firestore:"last_message"`
	CreatedAt   time.Time    `firestore:"created_at"`
	UpdatedAt   time.Time    `firestore:"updated_at"`
}

type messageDoc struct {
	Role    string `firestore:"role"`
	Content string `firestore:"content"`
}

func encodeMessages(messages []domain.Message) []messageDoc {
	out := make([]messageDoc, 0, len(messages))
	for _, m := range messages {
		out = append(out, messageDoc{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func decodeMessages(docs []messageDoc) []domain.Message {
	out := make([]domain.Message, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.Message{Role: domain.Role(d.Role), Content: d.Content})
	}
	return out
}

// ─────────────────────────────────────────
// ChatStore implementation
// ─────────────────────────────────────────

func (s *Store) Create(ctx context.Context, ownerID domain.UserID, messages []domain.Message) (domain.SessionID, error) {
	now := s.now()

	doc := chatDoc{
		UserID:      string(ownerID),
		Title:       domain.DeriveTitle(messages),
		Messages:    encodeMessages(messages),
		LastMessage: domain.DerivePreview(messages),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ref := s.chats().NewDoc()
	if _, err := ref.Create(ctx, doc); err != nil {
		return "", classify("Create", err)
	}
	return domain.SessionID(ref.ID), nil
}

func (s *Store) Get(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	snap, err := s.chatDoc(id).Get(ctx)
	if err != nil {
		return nil, classify("Get", err)
	}

	var doc chatDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore Get decode: %w: %s", domain.ErrStoreUnavailable, err)
	}

	return &domain.Session{
		ID:                 id,
		OwnerID:            domain.UserID(doc.UserID),
		Title:              doc.Title,
		Messages:           decodeMessages(doc.Messages),
		LastMessagePreview: doc.LastMessage,
		CreatedAt:          doc.CreatedAt,
		UpdatedAt:          doc.UpdatedAt,
	}, nil
}

// Update rewrites only the mutable fields; title and created_at keep the
// values written at creation.
func (s *Store) Update(ctx context.Context, id domain.SessionID, messages []domain.Message) error {
	_, err := s.chatDoc(id).Update(ctx, []firestore.Update{
		{Path: "messages", Value: encodeMessages(messages)},
		{Path: "last_message", Value: domain.DerivePreview(messages)},
		{Path: "updated_at", Value: s.now()},
	})
	if err != nil {
		return classify("Update", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, ownerID domain.UserID) ([]domain.Summary, error) {
	q := s.chats().
		Where("user_id", "==", string(ownerID)).
		OrderBy("updated_at", firestore.Desc)

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []domain.Summary
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, classify("List", err)
		}

		var doc chatDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("firestore List decode: %w: %s", domain.ErrStoreUnavailable, err)
		}

		out = append(out, domain.Summary{
			ID:        domain.SessionID(snap.Ref.ID),
			Title:     doc.Title,
			Preview:   doc.LastMessage,
			UpdatedAt: doc.UpdatedAt,
		})
	}
	return out, nil
}

// Delete removes the document. Firestore deletes are idempotent, so a
// missing id is not an error.
func (s *Store) Delete(ctx context.Context, id domain.SessionID) error {
	if _, err := s.chatDoc(id).Delete(ctx); err != nil {
		return classify("Delete", err)
	}
	return nil
}

func classify(op string, err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("firestore %s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("firestore %s: %w: %s", op, domain.ErrStoreUnavailable, err)
}
