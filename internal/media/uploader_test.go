package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/pairmesh/backend/internal/models"
)

type blobStorageStub struct {
	mu    sync.Mutex
	saved map[string][]byte
	err   error
}

func (s *blobStorageStub) Save(_ context.Context, name string, r io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	if s.saved == nil {
		s.saved = make(map[string][]byte)
	}
	s.saved[name] = data
	s.mu.Unlock()
	return fmt.Sprintf("https://cdn.example.com/%s", name), nil
}

func (s *blobStorageStub) get(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.saved[name]
	return data, ok
}

type uploadUpdaterStub struct {
	mu          sync.Mutex
	readyCalls  []string
	readyLoc    string
	readySize   int64
	failedCalls []string
}

func (s *uploadUpdaterStub) MarkReady(_ context.Context, id, location string, size int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readyCalls = append(s.readyCalls, id)
	s.readyLoc = location
	s.readySize = size
	return nil
}

func (s *uploadUpdaterStub) MarkFailed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedCalls = append(s.failedCalls, id)
	return nil
}

func (s *uploadUpdaterStub) readyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.readyCalls)
}

func (s *uploadUpdaterStub) failedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.failedCalls)
}

func waitForCondition(t *testing.T, cond func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestUploaderSuccess(t *testing.T) {
	storage := &blobStorageStub{}
	updater := &uploadUpdaterStub{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	uploader := NewUploader(storage, updater, UploaderConfig{QueueSize: 1, Workers: 1}, logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = uploader.Shutdown(ctx)
	}()

	payload := []byte("image-bytes")
	upload := models.MediaUpload{ID: "up-1", OwnerID: "user-1", FileName: "avatar.png"}
	if err := uploader.Enqueue(context.Background(), upload, payload); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitForCondition(t, func() bool { return updater.readyCount() > 0 }, time.Second)

	key := path.Join("user-1", "up-1", "avatar.png")
	if data, ok := storage.get(key); !ok || string(data) != "image-bytes" {
		t.Fatalf("expected payload stored under owner-scoped key %q", key)
	}
	if updater.readyLoc == "" {
		t.Fatal("expected ready location to be populated")
	}
	if updater.readySize != int64(len(payload)) {
		t.Fatalf("unexpected stored size: %d", updater.readySize)
	}
}

func TestUploaderFailure(t *testing.T) {
	storage := &blobStorageStub{err: errors.New("bucket unreachable")}
	updater := &uploadUpdaterStub{}
	uploader := NewUploader(storage, updater, UploaderConfig{QueueSize: 1, Workers: 1}, nil)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = uploader.Shutdown(ctx)
	}()

	upload := models.MediaUpload{ID: "up-2", OwnerID: "user-1", FileName: "clip.mp4"}
	if err := uploader.Enqueue(context.Background(), upload, []byte("bytes")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitForCondition(t, func() bool { return updater.failedCount() > 0 }, time.Second)

	if updater.readyCount() != 0 {
		t.Fatal("expected no ready call on failed transfer")
	}
}

func TestUploaderEnqueueAfterShutdown(t *testing.T) {
	uploader := NewUploader(&blobStorageStub{}, &uploadUpdaterStub{}, UploaderConfig{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := uploader.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	err := uploader.Enqueue(context.Background(), models.MediaUpload{ID: "up-3"}, nil)
	if !errors.Is(err, errUploaderClosed) {
		t.Fatalf("expected uploader closed error, got %v", err)
	}
}

func TestObjectKey(t *testing.T) {
	key := objectKey(models.MediaUpload{ID: "id-1", OwnerID: "owner-1", FileName: "/nested/name.png"})
	if key != "owner-1/id-1/nested/name.png" {
		t.Fatalf("unexpected key %q", key)
	}

	key = objectKey(models.MediaUpload{ID: "id-2", OwnerID: "owner-2"})
	if key != "owner-2/id-2/upload" {
		t.Fatalf("expected fallback name, got %q", key)
	}
}
