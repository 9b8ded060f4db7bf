package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/edu-platform/internal/content"
	"github.com/example/edu-platform/internal/platform/analytics"
	"github.com/example/edu-platform/internal/platform/api"
	"github.com/example/edu-platform/internal/platform/auth"
	"github.com/example/edu-platform/internal/platform/eventbus"
	"github.com/example/edu-platform/internal/platform/httpserver"
	"github.com/example/edu-platform/internal/player"
	"github.com/example/edu-platform/internal/progress"
)

func requireUser(w http.ResponseWriter, r *http.Request, rid string) (string, bool) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok || strings.TrimSpace(uid) == "" {
		api.Unauthorized(w, "AUTH_MISSING", "Missing auth", rid)
		return "", false
	}
	return uid, true
}

type saveProgressReq struct {
	WatchedTime float64 `json:"watched_time"`
	Duration    float64 `json:"duration"`
}

// SaveProgress upserts the caller's watched time for a content. The store
// discards writes below the persisted high-water mark, so stale samples
// from slow clients can never regress a record.
func SaveProgress(store progress.Store, ap *analytics.Publisher) http.HandlerFunc {
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

		var req saveProgressReq
		if err := api.DecodeJSON(r, &req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", rid, nil)
			return
		}
		if req.WatchedTime < 0 {
			api.BadRequest(w, "INVALID_PROGRESS", "watched_time must be non-negative", rid, nil)
			return
		}

		percent := player.Percent(req.WatchedTime, req.Duration)
		if err := store.SaveProgress(r.Context(), uid, contentID, req.WatchedTime, percent); err != nil {
			api.Internal(w, rid)
			return
		}

		ap.Publish(analytics.SubjectProgressSaved, "progress_saved", uid, map[string]any{
			"content_id":       contentID,
			"watched_time":     req.WatchedTime,
			"progress_percent": percent,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

type progressResponse struct {
	WatchedTime     float64               `json:"watched_time"`
	ProgressPercent int                   `json:"progress_percent"`
	Completed       bool                  `json:"completed"`
	SeekAllowed     bool                  `json:"seek_allowed"`
	Eligible        bool                  `json:"eligible"`
	Resume          player.ResumeDecision `json:"resume"`
}

// GetProgress returns the caller's watch record plus the derived resume
// and completion-eligibility state the player needs at open.
func GetProgress(store progress.Store, contents content.Store) http.HandlerFunc {
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

		c, err := contents.Get(r.Context(), contentID)
		if err != nil {
			if errors.Is(err, content.ErrNotFound) {
				api.NotFound(w, "CONTENT_NOT_FOUND", "Content not found", rid)
				return
			}
			api.Internal(w, rid)
			return
		}

		rec, err := store.GetRecord(r.Context(), uid, contentID)
		if err != nil && !errors.Is(err, progress.ErrNotFound) {
			api.Internal(w, rid)
			return
		}

		api.WriteJSON(w, http.StatusOK, progressResponse{
			WatchedTime:     rec.WatchedTime,
			ProgressPercent: rec.ProgressPercent,
			Completed:       rec.Completed,
			SeekAllowed:     rec.Completed,
			Eligible:        !rec.Completed && player.MeetsThreshold(rec.WatchedTime, c.Duration),
			Resume:          player.EvaluateResume(rec.WatchedTime, c.Duration),
		})
	}
}

// ResetProgress is the explicit start-from-beginning flow, the one write
// allowed to decrease a watched time.
func ResetProgress(store progress.Store) http.HandlerFunc {
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

		if err := store.ResetProgress(r.Context(), uid, contentID); err != nil {
			api.Internal(w, rid)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type completeReq struct {
	Comment string `json:"comment"`
}

// CompleteContent runs the server side of the completion gate: the comment
// must pass length validation, the persisted watch record must clear the
// threshold, and a record can complete only once. The record update and
// the comment land in one transaction.
func CompleteContent(store progress.Store, contents content.Store, bus *eventbus.Bus, ap *analytics.Publisher) http.HandlerFunc {
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

		var req completeReq
		if err := api.DecodeJSON(r, &req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", rid, nil)
			return
		}
		if err := player.ValidateComment(req.Comment); err != nil {
			api.BadRequest(w, "INVALID_COMMENT", err.Error(), rid, nil)
			return
		}

		c, err := contents.Get(r.Context(), contentID)
		if err != nil {
			if errors.Is(err, content.ErrNotFound) {
				api.NotFound(w, "CONTENT_NOT_FOUND", "Content not found", rid)
				return
			}
			api.Internal(w, rid)
			return
		}

		rec, err := store.GetRecord(r.Context(), uid, contentID)
		if err != nil && !errors.Is(err, progress.ErrNotFound) {
			api.Internal(w, rid)
			return
		}
		if rec.Completed {
			api.Conflict(w, "ALREADY_COMPLETED", "Content already completed", rid, nil)
			return
		}
		if !player.MeetsThreshold(rec.WatchedTime, c.Duration) {
			api.Conflict(w, "NOT_ELIGIBLE", "Watch threshold not reached", rid, nil)
			return
		}

		completedAt, err := store.CompleteContent(r.Context(), progress.CompleteParams{
			UserID:    uid,
			ContentID: contentID,
			Comment:   strings.TrimSpace(req.Comment),
			Category:  c.Category,
		})
		if err != nil {
			// The early Completed read above is advisory; the store is the
			// arbiter when two completions race.
			if errors.Is(err, progress.ErrAlreadyCompleted) {
				api.Conflict(w, "ALREADY_COMPLETED", "Content already completed", rid, nil)
				return
			}
			api.Internal(w, rid)
			return
		}

		if bus != nil {
			bus.Emit(eventbus.EventCommentsChanged, contentID)
			bus.Emit(eventbus.EventContentUpdated, contentID)
		}
		ap.Publish(analytics.SubjectContentCompleted, "content_completed", uid, map[string]any{
			"content_id": contentID,
			"category":   c.Category,
		})
		api.WriteJSON(w, http.StatusOK, map[string]any{"completed_at": completedAt})
	}
}

func ListInProgress(store progress.Store) http.HandlerFunc {
	return listLearning(store.ListInProgress)
}

func ListCompleted(store progress.Store) http.HandlerFunc {
	return listLearning(store.ListCompleted)
}

func listLearning(list func(ctx context.Context, userID string) ([]progress.ListItem, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := requireUser(w, r, rid)
		if !ok {
			return
		}

		items, err := list(r.Context(), uid)
		if err != nil {
			api.Internal(w, rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}
