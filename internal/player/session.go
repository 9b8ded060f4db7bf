package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/edu-platform/internal/content"
	"github.com/example/edu-platform/internal/platform/analytics"
	"github.com/example/edu-platform/internal/platform/eventbus"
	"github.com/example/edu-platform/internal/progress"
)

// Seeker is the slice of the media element a session drives directly.
type Seeker interface {
	Seek(toSeconds float64)
}

// ViewCounter bumps the denormalized view counter at content open.
type ViewCounter interface {
	IncrementViewCount(ctx context.Context, id string) (int, error)
}

// backgroundSampleInterval is the audio-mode polling cadence while the app
// is not foregrounded.
const backgroundSampleInterval = time.Second

// PositionFunc reports the media element's current position and duration.
type PositionFunc func() (currentSeconds, durationSeconds float64)

// SessionParams wires one player session.
type SessionParams struct {
	Store     progress.Store
	Views     ViewCounter // optional
	Bus       *eventbus.Bus
	Analytics *analytics.Publisher
	Log       *zap.Logger
	Policy    RetryPolicy // zero value takes DefaultPersistPolicy

	// BackgroundInterval overrides the audio-mode sampling cadence.
	// Zero means backgroundSampleInterval.
	BackgroundInterval time.Duration

	UserID  string
	Content content.Content
}

// Session owns everything tied to one content-open: the tracker, the
// completion gate, the one-shot resume decision and the background audio
// ticker. Close tears all of it down; a closed session never mutates
// state again.
type Session struct {
	store     progress.Store
	views     ViewCounter
	bus       *eventbus.Bus
	analytics *analytics.Publisher
	log       *zap.Logger

	userID     string
	content    content.Content
	bgInterval time.Duration

	tracker *Tracker
	gate    *Gate
	resume  ResumeDecision

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	resumeChosen bool
	closed       bool
	bgCancel     context.CancelFunc
}

// Open seeds a session from the persisted watch record, evaluates resume
// negotiation exactly once, and records the view.
func Open(ctx context.Context, p SessionParams) (*Session, error) {
	if p.Store == nil {
		return nil, errors.New("player: progress store is required")
	}
	if p.Log == nil {
		p.Log = zap.NewNop()
	}
	if p.Policy.MaxAttempts == 0 {
		p.Policy = DefaultPersistPolicy()
	}
	if p.BackgroundInterval <= 0 {
		p.BackgroundInterval = backgroundSampleInterval
	}

	rec, err := p.Store.GetRecord(ctx, p.UserID, p.Content.ID)
	if err != nil && !errors.Is(err, progress.ErrNotFound) {
		return nil, err
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		store:      p.Store,
		views:      p.Views,
		bus:        p.Bus,
		analytics:  p.Analytics,
		log:        p.Log,
		userID:     p.UserID,
		content:    p.Content,
		bgInterval: p.BackgroundInterval,
		ctx:        sctx,
		cancel:     cancel,
	}

	s.gate = NewGate(p.Store, p.Bus, p.Log, p.UserID, p.Content.ID, p.Content.Category, rec.Completed)
	s.tracker = NewTracker(p.Store, p.Log, p.Policy, p.UserID, p.Content.ID, s.gate.MarkEligible)
	s.tracker.Seed(rec.WatchedTime)
	s.resume = EvaluateResume(rec.WatchedTime, p.Content.Duration)

	s.recordView(ctx)
	s.analytics.Publish(analytics.SubjectPlaybackStarted, "playback_started", p.UserID, map[string]any{
		"content_id": p.Content.ID,
		"category":   p.Content.Category,
	})
	return s, nil
}

// recordView bumps the view counter and fans the new value out. Best
// effort; a failure never blocks opening the player.
func (s *Session) recordView(ctx context.Context) {
	if s.views == nil {
		return
	}
	n, err := s.views.IncrementViewCount(ctx, s.content.ID)
	if err != nil {
		s.log.Warn("view count increment failed",
			zap.String("content_id", s.content.ID), zap.Error(err))
		return
	}
	if s.bus != nil {
		s.bus.Emit(eventbus.EventViewCountChanged, eventbus.CounterChange{
			ContentID: s.content.ID,
			NewState:  true,
			Delta:     1,
		})
	}
	s.analytics.Publish(analytics.SubjectContentViewed, "content_viewed", s.userID, map[string]any{
		"content_id": s.content.ID,
		"view_count": n,
	})
}

// ResumeDecision returns the one-shot resume negotiation result.
func (s *Session) ResumeDecision() ResumeDecision {
	return s.resume
}

// ChooseResume applies the "resume" answer: seek to the persisted position,
// max watched time untouched. The choice is binary and final per open.
func (s *Session) ChooseResume(media Seeker) {
	s.mu.Lock()
	if s.resumeChosen || !s.resume.Prompt {
		s.mu.Unlock()
		return
	}
	s.resumeChosen = true
	s.mu.Unlock()

	if media != nil {
		media.Seek(s.resume.AtSeconds)
	}
}

// ChooseStartOver applies the "start from beginning" answer: seek to zero
// and reset the watched time, in memory and in the store.
func (s *Session) ChooseStartOver(ctx context.Context, media Seeker) error {
	s.mu.Lock()
	if s.resumeChosen || !s.resume.Prompt {
		s.mu.Unlock()
		return nil
	}
	s.resumeChosen = true
	s.mu.Unlock()

	if media != nil {
		media.Seek(0)
	}
	s.tracker.Reset()
	if err := s.store.ResetProgress(ctx, s.userID, s.content.ID); err != nil {
		s.log.Warn("progress reset failed",
			zap.String("content_id", s.content.ID), zap.Error(err))
		return err
	}
	return nil
}

// OnPositionSample forwards one media progress tick to the tracker.
func (s *Session) OnPositionSample(currentSeconds, durationSeconds float64) {
	if s.isClosed() {
		return
	}
	s.tracker.OnPositionSample(s.ctx, currentSeconds, durationSeconds)
}

// OnEnd forwards end-of-stream.
func (s *Session) OnEnd() {
	if s.isClosed() {
		return
	}
	s.tracker.OnEnd(s.ctx, s.content.Duration)
}

// SubmitCompletion runs the completion gate for the given comment text.
func (s *Session) SubmitCompletion(ctx context.Context, comment string) (time.Time, error) {
	if s.isClosed() {
		return time.Time{}, errors.New("player: session closed")
	}
	completedAt, err := s.gate.Submit(ctx, comment)
	if err != nil {
		return time.Time{}, err
	}
	s.analytics.Publish(analytics.SubjectContentCompleted, "content_completed", s.userID, map[string]any{
		"content_id": s.content.ID,
		"category":   s.content.Category,
	})
	return completedAt, nil
}

// GateState exposes the completion gate's current state.
func (s *Session) GateState() GateState { return s.gate.State() }

// SeekAllowed reports whether scrubbing is unlocked for this session.
func (s *Session) SeekAllowed() bool { return s.gate.SeekAllowed() }

// MaxWatchedTime exposes the tracker's monotonic high-water mark.
func (s *Session) MaxWatchedTime() float64 { return s.tracker.MaxWatchedTime() }

// ThresholdMet reports whether the watch threshold fired this session.
func (s *Session) ThresholdMet() bool { return s.tracker.ThresholdMet() }

// EnterBackground starts the coarse audio-mode ticker: while backgrounded
// the position source keeps being sampled and persisted. Acquiring twice is
// a no-op; the ticker is bound to the session context so teardown always
// releases it.
func (s *Session) EnterBackground(pos PositionFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.bgCancel != nil {
		return
	}
	bgCtx, cancel := context.WithCancel(s.ctx)
	s.bgCancel = cancel

	go func() {
		ticker := time.NewTicker(s.bgInterval)
		defer ticker.Stop()
		for {
			select {
			case <-bgCtx.Done():
				return
			case <-ticker.C:
				cur, dur := pos()
				s.tracker.OnPositionSample(bgCtx, cur, dur)
			}
		}
	}()
}

// ExitBackground stops the audio-mode ticker on foreground return.
func (s *Session) ExitBackground() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bgCancel != nil {
		s.bgCancel()
		s.bgCancel = nil
	}
}

// Close tears the session down: cancels the background ticker and any
// pending persistence retries, then waits for them to stop. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.bgCancel != nil {
		s.bgCancel()
		s.bgCancel = nil
	}
	s.mu.Unlock()

	s.cancel()
	s.tracker.Wait()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
