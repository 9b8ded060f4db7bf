package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/edu-platform/internal/content"
	"github.com/example/edu-platform/internal/platform/api"
	"github.com/example/edu-platform/internal/platform/httpserver"
	"github.com/example/edu-platform/internal/social"
)

func toggleReaction(flip func(r *http.Request, userID, contentID string) (social.ToggleResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := requireUser(w, r, rid)
		if !ok {
			return
		}

		contentID := strings.TrimSpace(chi.URLParam(r, "content_id"))
		if contentID == "" {
			api.BadRequest(w, "MISSING_ID", "content_id is required", rid, nil)
			return
		}

		res, err := flip(r, uid, contentID)
		if err != nil {
			if errors.Is(err, social.ErrToggleInFlight) {
				api.Conflict(w, "TOGGLE_IN_FLIGHT", "Toggle already in progress", rid, nil)
				return
			}
			api.Internal(w, rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, res)
	}
}

func ToggleLike(svc *social.Service) http.HandlerFunc {
	return toggleReaction(func(r *http.Request, uid, contentID string) (social.ToggleResult, error) {
		return svc.ToggleLike(r.Context(), uid, contentID)
	})
}

func ToggleFavorite(svc *social.Service) http.HandlerFunc {
	return toggleReaction(func(r *http.Request, uid, contentID string) (social.ToggleResult, error) {
		return svc.ToggleFavorite(r.Context(), uid, contentID)
	})
}

// ListFavorites returns the caller's favorited contents, most recently
// favorited first. Contents that disappeared since are skipped.
func ListFavorites(svc *social.Service, contents content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := requireUser(w, r, rid)
		if !ok {
			return
		}

		ids, err := svc.Favorites(r.Context(), uid)
		if err != nil {
			api.Internal(w, rid)
			return
		}

		items := make([]content.Content, 0, len(ids))
		for _, id := range ids {
			c, err := contents.Get(r.Context(), id)
			if err != nil {
				if errors.Is(err, content.ErrNotFound) {
					continue
				}
				api.Internal(w, rid)
				return
			}
			items = append(items, c)
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"contents": items})
	}
}

// ReactionStatus reports the caller's current like and favorite state for
// a content, used to render the buttons at screen open.
func ReactionStatus(svc *social.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := requireUser(w, r, rid)
		if !ok {
			return
		}

		contentID := strings.TrimSpace(chi.URLParam(r, "content_id"))
		if contentID == "" {
			api.BadRequest(w, "MISSING_ID", "content_id is required", rid, nil)
			return
		}

		liked, err := svc.IsLiked(r.Context(), uid, contentID)
		if err != nil {
			api.Internal(w, rid)
			return
		}
		favorited, err := svc.IsFavorited(r.Context(), uid, contentID)
		if err != nil {
			api.Internal(w, rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]bool{"liked": liked, "favorited": favorited})
	}
}
