package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/whitman-labs/parley/internal/adapters/storage/memory"
	"github.com/whitman-labs/parley/internal/domain"
)

func testClock() func() time.Time {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func exchange(q, a string) []domain.Message {
	return []domain.Message{
		{Role: domain.RoleUser, Content: q},
		{Role: domain.RoleAssistant, Content: a},
	}
}

func TestCreateGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	msgs := exchange("what is Go?", "a programming language")
	id, err := store.Create(ctx, "owner-1", msgs)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated id")
	}

	sess, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(sess.Messages) != len(msgs) {
		t.Fatalf("message count mismatch: %d", len(sess.Messages))
	}
	for i := range msgs {
		if sess.Messages[i] != msgs[i] {
			t.Fatalf("message %d mismatch: %+v != %+v", i, sess.Messages[i], msgs[i])
		}
	}
	if sess.Title != "what is Go?" {
		t.Fatalf("unexpected title %q", sess.Title)
	}
	if sess.LastMessagePreview != "a programming language" {
		t.Fatalf("unexpected preview %q", sess.LastMessagePreview)
	}
}

func TestUpdatePreservesTitleAndCreatedAt(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(memory.WithClock(testClock()))

	id, err := store.Create(ctx, "owner-1", exchange("first", "reply"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	created, _ := store.Get(ctx, id)

	longer := append(exchange("first", "reply"), exchange("second", "another reply")...)
	if err := store.Update(ctx, id, longer); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	sess, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if sess.Title != "first" {
		t.Fatalf("title changed on update: %q", sess.Title)
	}
	if !sess.CreatedAt.Equal(created.CreatedAt) {
		t.Fatal("createdAt changed on update")
	}
	if !sess.UpdatedAt.After(created.UpdatedAt) {
		t.Fatal("updatedAt must advance on update")
	}
	if sess.LastMessagePreview != "another reply" {
		t.Fatalf("preview not recomputed: %q", sess.LastMessagePreview)
	}
}

func TestUpdateMissingReturnsNotFound(t *testing.T) {
	store := memory.NewStore()
	err := store.Update(context.Background(), "missing", exchange("q", "a"))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListFiltersOwnerAndOrders(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(memory.WithClock(testClock()))

	first, _ := store.Create(ctx, "owner-1", exchange("oldest", "r1"))
	second, _ := store.Create(ctx, "owner-1", exchange("newest", "r2"))
	if _, err := store.Create(ctx, "owner-2", exchange("theirs", "r3")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	out, err := store.List(ctx, "owner-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(out))
	}
	if out[0].ID != second || out[1].ID != first {
		t.Fatalf("expected most recently updated first, got %v then %v", out[0].ID, out[1].ID)
	}
	for _, s := range out {
		if s.Title == "theirs" {
			t.Fatal("list leaked another owner's session")
		}
	}

	// Touching the oldest bumps it to the front.
	if err := store.Update(ctx, first, exchange("oldest", "updated")); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	out, _ = store.List(ctx, "owner-1")
	if out[0].ID != first {
		t.Fatalf("expected updated session first, got %v", out[0].ID)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	id, _ := store.Create(ctx, "owner-1", exchange("q", "a"))
	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("second Delete must be a no-op, got %v", err)
	}
	if _, err := store.Get(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
