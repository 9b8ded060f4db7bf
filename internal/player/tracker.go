package player

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/edu-platform/internal/progress"
)

// watchThreshold is the watched ratio at which completion becomes available.
const watchThreshold = 0.90

// Tracker turns raw media position samples into a monotonic max watched
// time, persistence writes and a one-time threshold notification.
//
// Every advancing sample is persisted as-is, no debouncing; the store's
// monotonic guard makes redundant or re-ordered writes harmless.
type Tracker struct {
	store  progress.Store
	log    *zap.Logger
	policy RetryPolicy

	userID    string
	contentID string

	// onThreshold fires exactly once per session, when the watched ratio
	// first reaches the threshold or playback ends.
	onThreshold func()

	mu           sync.Mutex
	maxWatched   float64
	thresholdMet bool

	retryWG sync.WaitGroup
}

func NewTracker(store progress.Store, log *zap.Logger, policy RetryPolicy, userID, contentID string, onThreshold func()) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{
		store:       store,
		log:         log,
		policy:      policy,
		userID:      userID,
		contentID:   contentID,
		onThreshold: onThreshold,
	}
}

// Seed primes the max watched time from the persisted record at content
// open. Not a user action, so it does not trigger a persistence write.
func (t *Tracker) Seed(watchedTime float64) {
	t.mu.Lock()
	t.maxWatched = watchedTime
	t.mu.Unlock()
}

// Reset drops the max watched time to zero. Only the explicit
// start-from-beginning flow calls this; it is the one sanctioned decrease.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.maxWatched = 0
	t.mu.Unlock()
}

func (t *Tracker) MaxWatchedTime() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maxWatched
}

func (t *Tracker) ThresholdMet() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.thresholdMet
}

// OnPositionSample consumes one media progress tick.
func (t *Tracker) OnPositionSample(ctx context.Context, currentSeconds, durationSeconds float64) {
	var persistAt float64
	var fireThreshold bool

	t.mu.Lock()
	if currentSeconds > t.maxWatched {
		t.maxWatched = currentSeconds
		persistAt = currentSeconds
	}
	ratio := progressRatio(currentSeconds, durationSeconds)
	if ratio >= watchThreshold && !t.thresholdMet {
		t.thresholdMet = true
		fireThreshold = true
	}
	t.mu.Unlock()

	if persistAt > 0 {
		t.persist(ctx, persistAt, durationSeconds)
	}
	if fireThreshold && t.onThreshold != nil {
		t.onThreshold()
	}
}

// OnEnd handles end-of-stream: watched time becomes the full duration and
// the threshold is forced regardless of ratio.
func (t *Tracker) OnEnd(ctx context.Context, durationSeconds float64) {
	var fireThreshold bool

	t.mu.Lock()
	if durationSeconds > t.maxWatched {
		t.maxWatched = durationSeconds
	}
	if !t.thresholdMet {
		t.thresholdMet = true
		fireThreshold = true
	}
	t.mu.Unlock()

	t.persist(ctx, durationSeconds, durationSeconds)
	if fireThreshold && t.onThreshold != nil {
		t.onThreshold()
	}
}

// Wait blocks until in-flight persistence retries finish. Session teardown
// cancels their context first, so this returns promptly.
func (t *Tracker) Wait() {
	t.retryWG.Wait()
}

// persist writes watchedTime synchronously once; a failure moves the
// remaining attempts onto a goroutine so playback is never held up.
// Exhausted retries are logged and swallowed.
func (t *Tracker) persist(ctx context.Context, watchedTime, duration float64) {
	percent := progressPercent(watchedTime, duration)

	if err := t.saveOnce(ctx, watchedTime, percent); err == nil {
		return
	} else if ctx.Err() != nil {
		return
	} else {
		t.log.Warn("progress save failed, scheduling retries",
			zap.String("content_id", t.contentID), zap.Float64("watched", watchedTime), zap.Error(err))
	}

	t.retryWG.Add(1)
	go func() {
		defer t.retryWG.Done()
		for attempt := 1; attempt < t.policy.MaxAttempts; attempt++ {
			select {
			case <-ctx.Done():
				return
			case <-time.After(t.policy.Delay(attempt)):
			}

			err := t.saveOnce(ctx, watchedTime, percent)
			if err == nil {
				return
			}
			if ctx.Err() != nil {
				return
			}
			t.log.Warn("progress save retry failed",
				zap.String("content_id", t.contentID), zap.Int("attempt", attempt), zap.Error(err))
		}
		t.log.Error("progress save abandoned after retries",
			zap.String("content_id", t.contentID), zap.Float64("watched", watchedTime))
	}()
}

func (t *Tracker) saveOnce(ctx context.Context, watchedTime float64, percent int) error {
	c, cancel := context.WithTimeout(ctx, t.policy.AttemptTimeout)
	defer cancel()
	return t.store.SaveProgress(c, t.userID, t.contentID, watchedTime, percent)
}

// MeetsThreshold reports whether a watched time qualifies for completion.
func MeetsThreshold(watchedTime, duration float64) bool {
	return progressRatio(watchedTime, duration) >= watchThreshold
}

// Percent is the duration-relative progress percentage, clamped to [0,100].
func Percent(watchedTime, duration float64) int {
	return progressPercent(watchedTime, duration)
}

func progressRatio(current, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return current / duration
}

// progressPercent is duration-relative. The legacy client persisted
// watchedTime/100*100 here, which only ever worked for 100-second media.
func progressPercent(watchedTime, duration float64) int {
	if duration <= 0 {
		return 0
	}
	p := math.Round(100 * watchedTime / duration)
	if p > 100 {
		p = 100
	}
	if p < 0 {
		p = 0
	}
	return int(p)
}
