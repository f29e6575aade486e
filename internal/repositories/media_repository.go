package repositories

import (
	"context"

	"github.com/pairmesh/backend/internal/models"
)

// MediaRepository defines data access for media upload records.
type MediaRepository interface {
	Create(ctx context.Context, upload models.MediaUpload) error
	FindByID(ctx context.Context, id string) (models.MediaUpload, error)
	ListForOwner(ctx context.Context, ownerID string) ([]models.MediaUpload, error)
	// MarkReady records a completed transfer to object storage.
	MarkReady(ctx context.Context, id, location string, size int64) error
	// MarkFailed records a transfer that could not be completed.
	MarkFailed(ctx context.Context, id string) error
}
