package player

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/example/edu-platform/internal/platform/eventbus"
	"github.com/example/edu-platform/internal/progress"
)

// Comment length bounds, counted in runes over trimmed text.
const (
	minCommentLen = 100
	maxCommentLen = 500
)

var (
	ErrNotEligible        = errors.New("watch threshold not reached")
	ErrAlreadyCompleted   = errors.New("content already completed")
	ErrSubmissionInFlight = errors.New("completion submission already in flight")
	ErrCommentTooShort    = errors.New("completion comment below minimum length")
	ErrCommentTooLong     = errors.New("completion comment above maximum length")
)

// GateState is the completion gate's position in its state machine.
type GateState int

const (
	StateNotEligible GateState = iota
	StateEligible
	StateSubmitting
	StateCompleted
)

func (s GateState) String() string {
	switch s {
	case StateEligible:
		return "eligible"
	case StateSubmitting:
		return "submitting"
	case StateCompleted:
		return "completed"
	default:
		return "not_eligible"
	}
}

// Gate governs when a completion comment may be submitted and performs the
// completion transaction. States move strictly forward:
// NotEligible -> Eligible -> Submitting -> Completed, except that a failed
// submission falls back from Submitting to Eligible for retry.
//
// Seeking stays locked until Completed: before that, only monotonic forward
// playback can advance watched time.
type Gate struct {
	store progress.Store
	bus   *eventbus.Bus
	log   *zap.Logger

	userID    string
	contentID string
	category  string

	mu    sync.Mutex
	state GateState
}

// NewGate builds the gate for one player session. A session opening content
// the user already completed starts (and stays) in Completed.
func NewGate(store progress.Store, bus *eventbus.Bus, log *zap.Logger, userID, contentID, category string, alreadyCompleted bool) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	state := StateNotEligible
	if alreadyCompleted {
		state = StateCompleted
	}
	return &Gate{
		store:     store,
		bus:       bus,
		log:       log,
		userID:    userID,
		contentID: contentID,
		category:  category,
		state:     state,
	}
}

func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// SeekAllowed reports whether scrubbing and skip controls are unlocked.
func (g *Gate) SeekAllowed() bool {
	return g.State() == StateCompleted
}

// MarkEligible moves NotEligible to Eligible. Any other state is untouched;
// the transition never goes backwards.
func (g *Gate) MarkEligible() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateNotEligible {
		g.state = StateEligible
	}
}

// ValidateComment applies the length rules without touching gate state.
func ValidateComment(comment string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(comment))
	if n < minCommentLen {
		return ErrCommentTooShort
	}
	if n > maxCommentLen {
		return ErrCommentTooLong
	}
	return nil
}

// Submit runs the completion transaction for a validated comment. Rejected
// without any state change when the gate is not Eligible, when a submission
// is already in flight, or when the comment fails validation. On store
// failure the gate reverts to Eligible and the user may retry.
func (g *Gate) Submit(ctx context.Context, comment string) (time.Time, error) {
	comment = strings.TrimSpace(comment)
	if err := ValidateComment(comment); err != nil {
		return time.Time{}, err
	}

	g.mu.Lock()
	switch g.state {
	case StateCompleted:
		g.mu.Unlock()
		return time.Time{}, ErrAlreadyCompleted
	case StateSubmitting:
		g.mu.Unlock()
		return time.Time{}, ErrSubmissionInFlight
	case StateNotEligible:
		g.mu.Unlock()
		return time.Time{}, ErrNotEligible
	}
	g.state = StateSubmitting
	g.mu.Unlock()

	completedAt, err := g.store.CompleteContent(ctx, progress.CompleteParams{
		UserID:    g.userID,
		ContentID: g.contentID,
		Comment:   comment,
		Category:  g.category,
	})

	g.mu.Lock()
	if err != nil {
		if errors.Is(err, progress.ErrAlreadyCompleted) {
			// Another session for the same account won the race; adopt the
			// terminal state instead of inviting a retry.
			g.state = StateCompleted
			g.mu.Unlock()
			return time.Time{}, ErrAlreadyCompleted
		}
		g.state = StateEligible
		g.mu.Unlock()
		g.log.Warn("completion transaction failed",
			zap.String("content_id", g.contentID), zap.Error(err))
		return time.Time{}, err
	}
	g.state = StateCompleted
	g.mu.Unlock()

	if g.bus != nil {
		g.bus.Emit(eventbus.EventCommentsChanged, g.contentID)
		g.bus.Emit(eventbus.EventContentUpdated, g.contentID)
	}
	g.log.Info("content completed",
		zap.String("user_id", g.userID), zap.String("content_id", g.contentID))
	return completedAt, nil
}
