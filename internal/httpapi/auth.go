package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/edu-platform/internal/identity"
	"github.com/example/edu-platform/internal/platform/api"
	"github.com/example/edu-platform/internal/platform/auth"
	"github.com/example/edu-platform/internal/platform/httpserver"
)

func Register(svc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		var req identity.RegisterParams
		if err := api.DecodeJSON(r, &req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", rid, nil)
			return
		}

		u, err := svc.Register(r.Context(), req)
		if err != nil {
			var ve *identity.ValidationError
			switch {
			case errors.As(err, &ve):
				api.BadRequest(w, "VALIDATION", ve.Error(), rid, map[string]any{ve.Field: ve.Reason})
			case errors.Is(err, identity.ErrConflict):
				api.Conflict(w, "USER_ALREADY_EXISTS", "User already exists", rid, nil)
			default:
				api.Internal(w, rid)
			}
			return
		}
		api.WriteJSON(w, http.StatusCreated, u)
	}
}

type loginReq struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func Login(svc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		var req loginReq
		if err := api.DecodeJSON(r, &req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", rid, nil)
			return
		}

		sess, err := svc.Login(r.Context(), req.Login, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, identity.ErrAccountPending):
				api.Forbidden(w, "ACCOUNT_PENDING", "Account awaiting approval", rid)
			case errors.Is(err, identity.ErrAccountInactive):
				api.Forbidden(w, "ACCOUNT_INACTIVE", "Account deactivated", rid)
			case errors.Is(err, identity.ErrInvalidCredentials):
				api.Unauthorized(w, "AUTH_INVALID_CREDENTIALS", "Invalid credentials", rid)
			default:
				api.Internal(w, rid)
			}
			return
		}
		api.WriteJSON(w, http.StatusOK, sess)
	}
}

func Me(svc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok || strings.TrimSpace(uid) == "" {
			api.Unauthorized(w, "AUTH_MISSING", "Missing auth", rid)
			return
		}

		u, err := svc.Me(r.Context(), uid)
		if err != nil {
			api.NotFound(w, "USER_NOT_FOUND", "User not found", rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, u)
	}
}

func ApproveUser(svc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		role, _ := auth.RoleFromContext(r.Context())

		userID := strings.TrimSpace(chi.URLParam(r, "user_id"))
		if userID == "" {
			api.BadRequest(w, "MISSING_ID", "user_id is required", rid, nil)
			return
		}

		if err := svc.Approve(r.Context(), role, userID); err != nil {
			switch {
			case errors.Is(err, identity.ErrForbidden):
				api.Forbidden(w, "FORBIDDEN", "Approver role required", rid)
			case errors.Is(err, identity.ErrNotFound):
				api.NotFound(w, "USER_NOT_FOUND", "User not found", rid)
			default:
				api.Internal(w, rid)
			}
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
