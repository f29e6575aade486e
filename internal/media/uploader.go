package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/pairmesh/backend/internal/models"
)

// BlobStorage persists raw upload bytes to an object store.
type BlobStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// UploadUpdater persists transfer status updates for media uploads.
type UploadUpdater interface {
	MarkReady(ctx context.Context, id, location string, size int64) error
	MarkFailed(ctx context.Context, id string) error
}

// UploaderConfig controls the concurrency characteristics of the uploader.
type UploaderConfig struct {
	QueueSize int
	Workers   int
	// TransferTimeout bounds a single object-store transfer.
	TransferTimeout time.Duration
}

// Uploader asynchronously transfers accepted uploads to object storage and
// records the outcome on the upload row.
type Uploader struct {
	storage BlobStorage
	updater UploadUpdater
	logger  *slog.Logger
	timeout time.Duration

	jobs   chan uploadJob
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

type uploadJob struct {
	upload  models.MediaUpload
	payload []byte
}

var errUploaderClosed = errors.New("media uploader closed")

// NewUploader constructs a background worker pool that transfers uploads.
func NewUploader(storage BlobStorage, updater UploadUpdater, cfg UploaderConfig, logger *slog.Logger) *Uploader {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.TransferTimeout <= 0 {
		cfg.TransferTimeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	u := &Uploader{
		storage: storage,
		updater: updater,
		logger:  logger,
		timeout: cfg.TransferTimeout,
		jobs:    make(chan uploadJob, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	u.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go u.worker()
	}

	return u
}

// Enqueue schedules the transfer of an accepted upload.
func (u *Uploader) Enqueue(ctx context.Context, upload models.MediaUpload, payload []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-u.ctx.Done():
		return errUploaderClosed
	default:
	}

	job := uploadJob{upload: upload, payload: payload}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-u.ctx.Done():
		return errUploaderClosed
	case u.jobs <- job:
		return nil
	}
}

// Shutdown waits for the worker pool to drain outstanding jobs.
func (u *Uploader) Shutdown(ctx context.Context) error {
	u.once.Do(func() {
		u.cancel()
		close(u.jobs)
	})

	done := make(chan struct{})
	go func() {
		u.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (u *Uploader) worker() {
	defer u.wg.Done()

	for job := range u.jobs {
		u.handleJob(job)
	}
}

func (u *Uploader) handleJob(job uploadJob) {
	if u.storage == nil || u.updater == nil {
		u.logger.Error("media uploader missing dependencies",
			"hasStorage", u.storage != nil, "hasUpdater", u.updater != nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), u.timeout)
	defer cancel()

	key := objectKey(job.upload)
	location, err := u.storage.Save(ctx, key, bytes.NewReader(job.payload))
	if err != nil {
		u.logger.Error("media transfer failed", "uploadId", job.upload.ID, "key", key, "error", err)
		u.recordFailure(job.upload.ID)
		return
	}

	if err := u.recordSuccess(job.upload.ID, location, int64(len(job.payload))); err != nil {
		u.logger.Error("mark upload ready", "uploadId", job.upload.ID, "error", err)
		u.recordFailure(job.upload.ID)
	}
}

func (u *Uploader) recordFailure(uploadID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := u.updater.MarkFailed(ctx, uploadID); err != nil {
		u.logger.Error("record upload failure", "uploadId", uploadID, "error", err)
	}
}

func (u *Uploader) recordSuccess(uploadID, location string, size int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return u.updater.MarkReady(ctx, uploadID, location, size)
}

// objectKey namespaces stored objects by owner so keys never collide across
// users even for identical file names.
func objectKey(upload models.MediaUpload) string {
	name := strings.TrimLeft(upload.FileName, "/")
	if name == "" {
		name = "upload"
	}
	return path.Join(upload.OwnerID, upload.ID, name)
}
