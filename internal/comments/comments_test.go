package comments

import (
	"context"
	"testing"
)

func TestMemoryStore_CreateAndList(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.Create(ctx, Comment{ContentID: "content-1", UserID: "user-a", Body: "first"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected non-empty id")
	}
	_, _ = s.Create(ctx, Comment{ContentID: "content-1", UserID: "user-b", Body: "second"})
	_, _ = s.Create(ctx, Comment{ContentID: "content-2", UserID: "user-b", Body: "other content"})

	got, err := s.ListByContent(ctx, "content-1", 50)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(got))
	}
}

func TestMemoryStore_SoftDelete_AuthorOnly(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	c, _ := s.Create(ctx, Comment{ContentID: "content-1", UserID: "user-a", Body: "will delete"})

	if err := s.SoftDelete(ctx, c.ID, "user-b"); err != ErrNotFoundOrForbidden {
		t.Fatalf("expected ErrNotFoundOrForbidden for non-author, got %v", err)
	}
	if err := s.SoftDelete(ctx, c.ID, "user-a"); err != nil {
		t.Fatalf("author delete: %v", err)
	}

	got, _ := s.ListByContent(ctx, "content-1", 50)
	if len(got) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(got))
	}
	if got[0].Body != "[deleted]" || got[0].DeletedAt == nil {
		t.Fatalf("expected redacted comment, got %+v", got[0])
	}

	// Cannot delete twice.
	if err := s.SoftDelete(ctx, c.ID, "user-a"); err != ErrNotFoundOrForbidden {
		t.Fatalf("expected ErrNotFoundOrForbidden for double delete, got %v", err)
	}
}
