package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/pairmesh/backend/internal/auth"
	"github.com/pairmesh/backend/internal/config"
	"github.com/pairmesh/backend/internal/db"
	"github.com/pairmesh/backend/internal/handlers"
	"github.com/pairmesh/backend/internal/media"
	"github.com/pairmesh/backend/internal/middleware"
	"github.com/pairmesh/backend/internal/relationships"
	"github.com/pairmesh/backend/internal/repositories"
	"github.com/pairmesh/backend/internal/storage"
)

// buildDependencies wires the concrete implementations used by the HTTP
// handlers. The returned cleanup drains the media uploader and closes any
// auxiliary connections; callers must invoke it on shutdown.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, func(context.Context) error, error) {
	users := repositories.NewPostgresUserRepository(pool)
	rels := repositories.NewPostgresRelationshipRepository(pool)
	conversations := repositories.NewPostgresConversationRepository(pool)
	memberships := repositories.NewPostgresMembershipRepository(pool)
	mediaStore := repositories.NewPostgresMediaRepository(pool)

	var redisClient *redis.Client
	var sessionStore auth.SessionStore
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		sessionStore = repositories.NewRedisSessionStore(redisClient)
	} else {
		sessionStore = repositories.NewPostgresSessionStore(pool)
	}

	sessions := auth.NewManager([]byte(cfg.JWTSecret), cfg.AccessTTL, cfg.RefreshTTL, sessionStore)

	blobStorage, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return handlers.Dependencies{}, nil, fmt.Errorf("configure object storage: %w", err)
	}

	uploader := media.NewUploader(blobStorage, mediaStore, media.UploaderConfig{
		QueueSize:       cfg.Media.QueueSize,
		Workers:         cfg.Media.Workers,
		TransferTimeout: cfg.Media.TransferTimeout,
	}, slog.Default())

	deps := handlers.Dependencies{
		Users:         users,
		Sessions:      sessions,
		Relationships: relationships.NewService(rels, users, conversations, memberships),
		Media:         mediaStore,
		MediaIngestor: uploader,
		AuthLimiter:   middleware.NewIPRateLimiter(cfg.AuthRateLimit.Requests, cfg.AuthRateLimit.Window, cfg.AuthRateLimit.Burst, cfg.AuthRateLimit.TTL),
		MaxUploadSize: cfg.Media.MaxUploadBytes,
	}

	cleanup := func(shutdownCtx context.Context) error {
		err := uploader.Shutdown(shutdownCtx)
		if redisClient != nil {
			if closeErr := redisClient.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}
		return err
	}

	return deps, cleanup, nil
}
