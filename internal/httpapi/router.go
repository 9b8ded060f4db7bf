package httpapi

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/edu-platform/internal/comments"
	"github.com/example/edu-platform/internal/content"
	"github.com/example/edu-platform/internal/identity"
	"github.com/example/edu-platform/internal/media"
	"github.com/example/edu-platform/internal/platform/analytics"
	"github.com/example/edu-platform/internal/platform/auth"
	"github.com/example/edu-platform/internal/platform/eventbus"
	"github.com/example/edu-platform/internal/platform/httpserver"
	"github.com/example/edu-platform/internal/progress"
	"github.com/example/edu-platform/internal/social"
)

// Deps is everything the HTTP surface needs. Bus, Analytics and Media are
// optional; handlers degrade gracefully when they are nil.
type Deps struct {
	Identity  *identity.Service
	Contents  content.Store
	Progress  progress.Store
	Comments  comments.Store
	Social    *social.Service
	Media     *media.Resolver
	Bus       *eventbus.Bus
	Analytics *analytics.Publisher
	Verifier  auth.JWTVerifier
	Log       *zap.Logger

	// AllowedOrigins is the CORS allowlist; empty allows any origin.
	AllowedOrigins []string
}

// NewRouter assembles the full API surface.
func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	httpserver.SetupRouter(r, d.AllowedOrigins...)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/register", Register(d.Identity))
		r.Post("/auth/login", Login(d.Identity))

		r.Get("/contents", ListContents(d.Contents))
		r.Get("/contents/search", SearchContents(d.Contents))
		r.Get("/contents/{content_id}", GetContent(d.Contents, d.Media, d.Log))
		r.Get("/contents/{content_id}/comments", ListComments(d.Comments))

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser(d.Verifier))

			r.Get("/me", Me(d.Identity))
			r.Post("/users/{user_id}/approve", ApproveUser(d.Identity))

			r.Post("/contents/{content_id}/view", RecordView(d.Contents, d.Bus, d.Analytics))
			r.Get("/contents/{content_id}/progress", GetProgress(d.Progress, d.Contents))
			r.Put("/contents/{content_id}/progress", SaveProgress(d.Progress, d.Analytics))
			r.Delete("/contents/{content_id}/progress", ResetProgress(d.Progress))
			r.Post("/contents/{content_id}/complete", CompleteContent(d.Progress, d.Contents, d.Bus, d.Analytics))

			r.Post("/contents/{content_id}/like", ToggleLike(d.Social))
			r.Post("/contents/{content_id}/favorite", ToggleFavorite(d.Social))
			r.Get("/contents/{content_id}/reactions", ReactionStatus(d.Social))
			r.Delete("/contents/{content_id}/comments/{comment_id}", DeleteComment(d.Comments, d.Bus))

			r.Get("/me/learning/in-progress", ListInProgress(d.Progress))
			r.Get("/me/learning/completed", ListCompleted(d.Progress))
			r.Get("/me/favorites", ListFavorites(d.Social, d.Contents))
		})
	})
	return r
}
