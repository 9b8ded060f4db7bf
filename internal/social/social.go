package social

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/example/edu-platform/internal/platform/analytics"
	"github.com/example/edu-platform/internal/platform/eventbus"
)

// ErrToggleInFlight is returned when a toggle for the same user, content
// and kind is still running. The caller drops the tap instead of queueing
// it, so a double-tap can never flip the state twice.
var ErrToggleInFlight = errors.New("social: toggle already in flight")

// ToggleResult is the outcome of one like or favorite flip.
type ToggleResult struct {
	Active bool `json:"active"`
	Count  int  `json:"count"`
}

// Service flips likes and favorites, guards against concurrent duplicate
// toggles, and fans the new counter state out over the event bus.
type Service struct {
	store     Store
	bus       *eventbus.Bus
	analytics *analytics.Publisher
	log       *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewService(store Store, bus *eventbus.Bus, pub *analytics.Publisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:     store,
		bus:       bus,
		analytics: pub,
		log:       log,
		inFlight:  make(map[string]struct{}),
	}
}

// ToggleLike flips the user's like for the content.
func (s *Service) ToggleLike(ctx context.Context, userID, contentID string) (ToggleResult, error) {
	return s.toggle(ctx, userID, contentID, KindLike, eventbus.EventLikeChanged, analytics.SubjectLikeToggled, "like_toggled")
}

// ToggleFavorite flips the user's favorite for the content.
func (s *Service) ToggleFavorite(ctx context.Context, userID, contentID string) (ToggleResult, error) {
	return s.toggle(ctx, userID, contentID, KindFavorite, eventbus.EventFavoriteChanged, analytics.SubjectFavoriteToggled, "favorite_toggled")
}

// IsLiked reports whether the user currently likes the content.
func (s *Service) IsLiked(ctx context.Context, userID, contentID string) (bool, error) {
	return s.store.Has(ctx, userID, contentID, KindLike)
}

// IsFavorited reports whether the user currently has the content favorited.
func (s *Service) IsFavorited(ctx context.Context, userID, contentID string) (bool, error) {
	return s.store.Has(ctx, userID, contentID, KindFavorite)
}

// Favorites returns the content ids the user has favorited, most recent
// first.
func (s *Service) Favorites(ctx context.Context, userID string) ([]string, error) {
	return s.store.ListByUser(ctx, userID, KindFavorite)
}

func (s *Service) toggle(ctx context.Context, userID, contentID, kind, event, subject, eventName string) (ToggleResult, error) {
	key := userID + "/" + contentID + "/" + kind

	s.mu.Lock()
	if _, busy := s.inFlight[key]; busy {
		s.mu.Unlock()
		return ToggleResult{}, ErrToggleInFlight
	}
	s.inFlight[key] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inFlight, key)
		s.mu.Unlock()
	}()

	active, count, err := s.store.Toggle(ctx, userID, contentID, kind)
	if err != nil {
		return ToggleResult{}, err
	}

	delta := 1
	if !active {
		delta = -1
	}
	if s.bus != nil {
		s.bus.Emit(event, eventbus.CounterChange{
			ContentID: contentID,
			NewState:  active,
			Delta:     delta,
		})
	}
	s.analytics.Publish(subject, eventName, userID, map[string]any{
		"content_id": contentID,
		"active":     active,
		"count":      count,
	})
	return ToggleResult{Active: active, Count: count}, nil
}
