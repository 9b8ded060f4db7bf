package player

import (
	"context"
	"sync"
	"time"

	"github.com/example/edu-platform/internal/progress"
)

// fakeStore is a controllable progress.Store for driving failure and
// concurrency scenarios the in-memory store cannot.
type fakeStore struct {
	mu        sync.Mutex
	saves     []float64
	percents  []int
	failSaves int // fail this many saves before succeeding

	record    progress.WatchRecord
	hasRecord bool

	resets int

	completeCalls int
	completeErr   error
	completeGate  chan struct{} // when set, CompleteContent blocks until closed
}

var _ progress.Store = (*fakeStore)(nil)

func (f *fakeStore) GetProgress(_ context.Context, _, _ string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record.WatchedTime, nil
}

func (f *fakeStore) GetRecord(_ context.Context, _, _ string) (progress.WatchRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.hasRecord {
		return progress.WatchRecord{}, progress.ErrNotFound
	}
	return f.record, nil
}

func (f *fakeStore) SaveProgress(_ context.Context, _, _ string, watchedTime float64, percent int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSaves > 0 {
		f.failSaves--
		return context.DeadlineExceeded
	}
	f.saves = append(f.saves, watchedTime)
	f.percents = append(f.percents, percent)
	if watchedTime > f.record.WatchedTime {
		f.record.WatchedTime = watchedTime
		f.hasRecord = true
	}
	return nil
}

func (f *fakeStore) ResetProgress(_ context.Context, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	f.record.WatchedTime = 0
	return nil
}

func (f *fakeStore) CompleteContent(_ context.Context, p progress.CompleteParams) (time.Time, error) {
	f.mu.Lock()
	f.completeCalls++
	gate := f.completeGate
	errOut := f.completeErr
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if errOut != nil {
		return time.Time{}, errOut
	}

	f.mu.Lock()
	f.record.Completed = true
	f.record.CompletionComment = p.Comment
	f.record.Category = p.Category
	f.hasRecord = true
	f.mu.Unlock()
	return time.Now().UTC(), nil
}

func (f *fakeStore) ListInProgress(_ context.Context, _ string) ([]progress.ListItem, error) {
	return nil, nil
}

func (f *fakeStore) ListCompleted(_ context.Context, _ string) ([]progress.ListItem, error) {
	return nil, nil
}

func (f *fakeStore) savedValues() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]float64, len(f.saves))
	copy(out, f.saves)
	return out
}

func (f *fakeStore) completions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completeCalls
}

// fastPolicy keeps retry tests quick.
func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, AttemptTimeout: time.Second, BackoffUnit: time.Millisecond}
}
