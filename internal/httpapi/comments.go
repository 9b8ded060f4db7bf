package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/edu-platform/internal/comments"
	"github.com/example/edu-platform/internal/platform/api"
	"github.com/example/edu-platform/internal/platform/eventbus"
	"github.com/example/edu-platform/internal/platform/httpserver"
)

func ListComments(store comments.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		contentID := strings.TrimSpace(chi.URLParam(r, "content_id"))
		if contentID == "" {
			api.BadRequest(w, "MISSING_ID", "content_id is required", rid, nil)
			return
		}

		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}

		items, err := store.ListByContent(r.Context(), contentID, limit)
		if err != nil {
			api.Internal(w, rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"comments": items})
	}
}

// DeleteComment redacts a comment the caller authored. The row stays so
// completion history keeps its shape.
func DeleteComment(store comments.Store, bus *eventbus.Bus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := requireUser(w, r, rid)
		if !ok {
			return
		}

		contentID := strings.TrimSpace(chi.URLParam(r, "content_id"))
		commentID := strings.TrimSpace(chi.URLParam(r, "comment_id"))
		if contentID == "" || commentID == "" {
			api.BadRequest(w, "MISSING_ID", "content_id and comment_id are required", rid, nil)
			return
		}

		if err := store.SoftDelete(r.Context(), commentID, uid); err != nil {
			if errors.Is(err, comments.ErrNotFoundOrForbidden) {
				api.NotFound(w, "COMMENT_NOT_FOUND", "Comment not found", rid)
				return
			}
			api.Internal(w, rid)
			return
		}

		if bus != nil {
			bus.Emit(eventbus.EventCommentsChanged, contentID)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
