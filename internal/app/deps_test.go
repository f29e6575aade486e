package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pairmesh/backend/internal/config"
)

type fakePool struct{}

func (fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (fakePool) Close() {}

func TestBuildDependencies(t *testing.T) {
	cfg := config.Config{
		JWTSecret:  "test-secret",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		ObjectStore: config.ObjectStoreConfig{
			Bucket:   "test-bucket",
			Endpoint: "http://localhost:9000",
			Region:   "us-east-1",
		},
		Media: config.MediaConfig{QueueSize: 4, Workers: 1, TransferTimeout: time.Second},
	}

	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	deps, cleanup, err := buildDependencies(context.Background(), fakePool{}, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cleanup == nil {
		t.Fatal("expected cleanup function")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := cleanup(ctx); err != nil {
			t.Fatalf("cleanup: %v", err)
		}
	}()

	if deps.Users == nil || deps.Sessions == nil || deps.Relationships == nil {
		t.Fatalf("expected core dependencies to be wired, got %+v", deps)
	}
	if deps.Media == nil || deps.MediaIngestor == nil {
		t.Fatal("expected media dependencies to be wired")
	}
	if deps.AuthLimiter == nil {
		t.Fatal("expected auth rate limiter to be wired")
	}
}

func TestBuildDependenciesRequiresBucket(t *testing.T) {
	cfg := config.Config{
		JWTSecret:  "test-secret",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}

	if _, _, err := buildDependencies(context.Background(), fakePool{}, cfg); err == nil {
		t.Fatal("expected error when object store bucket is missing")
	}
}
