package main

import (
	"context"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/edu-platform/internal/comments"
	"github.com/example/edu-platform/internal/content"
	"github.com/example/edu-platform/internal/httpapi"
	"github.com/example/edu-platform/internal/identity"
	"github.com/example/edu-platform/internal/media"
	"github.com/example/edu-platform/internal/platform/analytics"
	"github.com/example/edu-platform/internal/platform/auth"
	"github.com/example/edu-platform/internal/platform/config"
	"github.com/example/edu-platform/internal/platform/db"
	"github.com/example/edu-platform/internal/platform/eventbus"
	"github.com/example/edu-platform/internal/platform/httpserver"
	"github.com/example/edu-platform/internal/platform/logging"
	"github.com/example/edu-platform/internal/platform/natsconn"
	"github.com/example/edu-platform/internal/platform/run"
	"github.com/example/edu-platform/internal/progress"
	"github.com/example/edu-platform/internal/social"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	pool, err := db.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Error("db open", zap.Error(err))
		run.Exit(1)
	}
	defer pool.Close()

	// Analytics is best effort; the service runs without NATS.
	var pub *analytics.Publisher
	nc, err := natsconn.Connect(natsconn.Options{URL: cfg.NATSURL})
	if err != nil {
		log.Warn("nats connect failed, analytics disabled", zap.Error(err))
	} else {
		defer nc.Close()
		js, err := nc.JetStream(nats.PublishAsyncMaxPending(256))
		if err != nil {
			log.Warn("jetstream unavailable, analytics disabled", zap.Error(err))
		} else {
			pub = analytics.New(js, log)
		}
	}

	var resolver *media.Resolver
	if cfg.Media.BaseURL != "" {
		var cache media.Cache
		if cfg.Media.RedisURL != "" {
			c, err := media.NewRedisCache(cfg.Media.RedisURL, cfg.Media.CacheTTL)
			if err != nil {
				log.Warn("redis unavailable, media cache disabled", zap.Error(err))
			} else {
				cache = c
			}
		}
		resolver = media.NewResolver(media.StaticBackend{BaseURL: cfg.Media.BaseURL}, cache, log)
	}

	bus := eventbus.New(log)
	verifier := auth.JWTVerifier{Secret: []byte(cfg.Auth.JWTSecret)}

	contentStore := content.NewPostgresStore(pool)
	progressStore := progress.NewPostgresStore(pool)
	commentStore := comments.NewPostgresStore(pool)
	socialSvc := social.NewService(social.NewPostgresStore(pool), bus, pub, log)
	identitySvc := identity.NewService(identity.NewPostgresStore(pool), verifier, cfg.Auth.AccessTokenTTL, pub, log)

	router := httpapi.NewRouter(httpapi.Deps{
		Identity:  identitySvc,
		Contents:  contentStore,
		Progress:  progressStore,
		Comments:  commentStore,
		Social:    socialSvc,
		Media:     resolver,
		Bus:       bus,
		Analytics: pub,
		Verifier:  verifier,
		Log:       log,

		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})

	srv := httpserver.New(httpserver.Options{
		Addr:        cfg.HTTP.Addr,
		ServiceName: cfg.ServiceName,
		Logger:      log,
		Router:      router,
	})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			runner.Graceful(srv.Shutdown)
		}()
		return srv.Start(log)
	})
	run.Exit(code)
}
