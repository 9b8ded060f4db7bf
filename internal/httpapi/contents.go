package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/edu-platform/internal/content"
	"github.com/example/edu-platform/internal/media"
	"github.com/example/edu-platform/internal/platform/analytics"
	"github.com/example/edu-platform/internal/platform/api"
	"github.com/example/edu-platform/internal/platform/auth"
	"github.com/example/edu-platform/internal/platform/eventbus"
	"github.com/example/edu-platform/internal/platform/httpserver"
)

func ListContents(store content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		category := strings.TrimSpace(r.URL.Query().Get("category"))
		items, err := store.List(r.Context(), category)
		if err != nil {
			api.Internal(w, rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"contents": items})
	}
}

// SearchContents backs the search bar: case-insensitive substring match
// over title and description.
func SearchContents(store content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			api.BadRequest(w, "MISSING_QUERY", "q is required", rid, nil)
			return
		}
		items, err := store.Search(r.Context(), query)
		if err != nil {
			api.Internal(w, rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"contents": items})
	}
}

type contentResponse struct {
	content.Content
	VideoURL string `json:"video_url,omitempty"`
	AudioURL string `json:"audio_url,omitempty"`
}

// GetContent returns one content with its media paths resolved to
// playable URLs. Resolution failures degrade to the raw paths.
func GetContent(store content.Store, resolver *media.Resolver, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		contentID := strings.TrimSpace(chi.URLParam(r, "content_id"))
		if contentID == "" {
			api.BadRequest(w, "MISSING_ID", "content_id is required", rid, nil)
			return
		}

		c, err := store.Get(r.Context(), contentID)
		if err != nil {
			if errors.Is(err, content.ErrNotFound) {
				api.NotFound(w, "CONTENT_NOT_FOUND", "Content not found", rid)
				return
			}
			api.Internal(w, rid)
			return
		}

		resp := contentResponse{Content: c}
		if resolver != nil {
			if c.VideoPath != "" {
				if url, err := resolver.ResolveURL(r.Context(), c.VideoPath); err == nil {
					resp.VideoURL = url
				} else {
					log.Warn("video url resolution failed", zap.String("content_id", c.ID), zap.Error(err))
				}
			}
			if c.AudioPath != "" {
				if url, err := resolver.ResolveURL(r.Context(), c.AudioPath); err == nil {
					resp.AudioURL = url
				} else {
					log.Warn("audio url resolution failed", zap.String("content_id", c.ID), zap.Error(err))
				}
			}
		}
		api.WriteJSON(w, http.StatusOK, resp)
	}
}

// RecordView bumps the view counter once per content open and fans the
// new value out to subscribed screens.
func RecordView(store content.Store, bus *eventbus.Bus, ap *analytics.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, _ := auth.UserIDFromContext(r.Context())

		contentID := strings.TrimSpace(chi.URLParam(r, "content_id"))
		if contentID == "" {
			api.BadRequest(w, "MISSING_ID", "content_id is required", rid, nil)
			return
		}

		n, err := store.IncrementViewCount(r.Context(), contentID)
		if err != nil {
			if errors.Is(err, content.ErrNotFound) {
				api.NotFound(w, "CONTENT_NOT_FOUND", "Content not found", rid)
				return
			}
			api.Internal(w, rid)
			return
		}

		if bus != nil {
			bus.Emit(eventbus.EventViewCountChanged, eventbus.CounterChange{
				ContentID: contentID,
				NewState:  true,
				Delta:     1,
			})
		}
		ap.Publish(analytics.SubjectContentViewed, "content_viewed", uid, map[string]any{
			"content_id": contentID,
			"view_count": n,
		})
		api.WriteJSON(w, http.StatusOK, map[string]any{"view_count": n})
	}
}
