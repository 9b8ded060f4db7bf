package player

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/example/edu-platform/internal/platform/eventbus"
	"github.com/example/edu-platform/internal/progress"
)

func commentOfLen(n int) string { return strings.Repeat("a", n) }

func eligibleGate(st *fakeStore) *Gate {
	g := NewGate(st, nil, nil, "user-1", "content-1", "safety", false)
	g.MarkEligible()
	return g
}

func TestGate_StartsNotEligible(t *testing.T) {
	g := NewGate(&fakeStore{}, nil, nil, "user-1", "content-1", "", false)
	if g.State() != StateNotEligible {
		t.Fatalf("expected NotEligible, got %v", g.State())
	}
	if g.SeekAllowed() {
		t.Fatal("seeking must stay locked before completion")
	}
}

func TestGate_AlreadyCompletedSessionStartsCompleted(t *testing.T) {
	g := NewGate(&fakeStore{}, nil, nil, "user-1", "content-1", "", true)
	if g.State() != StateCompleted {
		t.Fatalf("expected Completed, got %v", g.State())
	}
	if !g.SeekAllowed() {
		t.Fatal("completed session must allow seeking")
	}
	// MarkEligible must not regress a completed gate.
	g.MarkEligible()
	if g.State() != StateCompleted {
		t.Fatalf("Completed is terminal, got %v", g.State())
	}
}

func TestGate_SubmitRejectsWhenNotEligible(t *testing.T) {
	st := &fakeStore{}
	g := NewGate(st, nil, nil, "user-1", "content-1", "", false)

	_, err := g.Submit(context.Background(), commentOfLen(150))
	if !errors.Is(err, ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible, got %v", err)
	}
	if st.completions() != 0 {
		t.Fatal("no transaction may run while not eligible")
	}
}

func TestGate_CommentLengthBounds(t *testing.T) {
	st := &fakeStore{}
	g := eligibleGate(st)
	ctx := context.Background()

	if _, err := g.Submit(ctx, commentOfLen(99)); !errors.Is(err, ErrCommentTooShort) {
		t.Fatalf("expected ErrCommentTooShort for 99 chars, got %v", err)
	}
	if g.State() != StateEligible {
		t.Fatalf("rejected submission must not change state, got %v", g.State())
	}
	if _, err := g.Submit(ctx, commentOfLen(501)); !errors.Is(err, ErrCommentTooLong) {
		t.Fatalf("expected ErrCommentTooLong for 501 chars, got %v", err)
	}
	// Whitespace does not count toward the minimum.
	padded := "   " + commentOfLen(99) + "   "
	if _, err := g.Submit(ctx, padded); !errors.Is(err, ErrCommentTooShort) {
		t.Fatalf("expected trimmed length to be validated, got %v", err)
	}

	if _, err := g.Submit(ctx, commentOfLen(100)); err != nil {
		t.Fatalf("100 chars must pass: %v", err)
	}
	if g.State() != StateCompleted {
		t.Fatalf("expected Completed, got %v", g.State())
	}
	if st.completions() != 1 {
		t.Fatalf("expected exactly one completion transaction, got %d", st.completions())
	}
}

func TestGate_ReentrancyGuard(t *testing.T) {
	gate := make(chan struct{})
	st := &fakeStore{completeGate: gate}
	g := eligibleGate(st)

	var wg sync.WaitGroup
	wg.Add(1)
	firstErr := make(chan error, 1)
	go func() {
		defer wg.Done()
		_, err := g.Submit(context.Background(), commentOfLen(150))
		firstErr <- err
	}()

	// Wait until the first submission is inside the store call.
	for g.State() != StateSubmitting {
		runtime.Gosched()
	}

	_, err := g.Submit(context.Background(), commentOfLen(150))
	if !errors.Is(err, ErrSubmissionInFlight) {
		t.Fatalf("expected ErrSubmissionInFlight, got %v", err)
	}

	close(gate)
	wg.Wait()
	if err := <-firstErr; err != nil {
		t.Fatalf("first submission should succeed: %v", err)
	}
	// The concurrent duplicate was rejected before it reached the store.
	if st.completions() != 1 {
		t.Fatalf("expected exactly one completion transaction, got %d", st.completions())
	}
}

func TestGate_DoubleSubmitAfterCompletionRejected(t *testing.T) {
	st := &fakeStore{}
	g := eligibleGate(st)
	ctx := context.Background()

	if _, err := g.Submit(ctx, commentOfLen(150)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, err := g.Submit(ctx, commentOfLen(150))
	if !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
	if st.completions() != 1 {
		t.Fatalf("expected one completion transaction, got %d", st.completions())
	}
}

func TestGate_AdoptsCompletionWonElsewhere(t *testing.T) {
	// The store reports the record already completed, e.g. the same account
	// finished the content on another device while this gate was eligible.
	st := &fakeStore{completeErr: progress.ErrAlreadyCompleted}
	g := eligibleGate(st)

	_, err := g.Submit(context.Background(), commentOfLen(150))
	if !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
	if g.State() != StateCompleted {
		t.Fatalf("gate must adopt the terminal state, got %v", g.State())
	}
	if !g.SeekAllowed() {
		t.Fatal("completed content must allow seeking")
	}
}

func TestGate_FailureRevertsToEligibleAndRetryWorks(t *testing.T) {
	st := &fakeStore{completeErr: errors.New("store down")}
	g := eligibleGate(st)
	ctx := context.Background()

	if _, err := g.Submit(ctx, commentOfLen(150)); err == nil {
		t.Fatal("expected submission failure")
	}
	if g.State() != StateEligible {
		t.Fatalf("failed submission must revert to Eligible, got %v", g.State())
	}

	st.mu.Lock()
	st.completeErr = nil
	st.mu.Unlock()

	if _, err := g.Submit(ctx, commentOfLen(150)); err != nil {
		t.Fatalf("retry should succeed: %v", err)
	}
	if g.State() != StateCompleted {
		t.Fatalf("expected Completed after retry, got %v", g.State())
	}
}

func TestGate_EmitsRefreshEventsOnCompletion(t *testing.T) {
	bus := eventbus.New(nil)
	commentsRefreshed := false
	bus.On(eventbus.EventCommentsChanged, func(p any) {
		if p.(string) == "content-1" {
			commentsRefreshed = true
		}
	})

	st := &fakeStore{}
	g := NewGate(st, bus, nil, "user-1", "content-1", "safety", false)
	g.MarkEligible()

	if _, err := g.Submit(context.Background(), commentOfLen(150)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !commentsRefreshed {
		t.Fatal("expected comments-changed event on completion")
	}
}
