package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pairmesh/backend/internal/logging"
	"github.com/pairmesh/backend/internal/middleware"
	"github.com/pairmesh/backend/internal/models"
	"github.com/pairmesh/backend/internal/repositories"
)

const defaultMaxUploadSize = 32 << 20

// MediaHandler accepts file uploads and exposes upload records.
type MediaHandler struct {
	Media    MediaStore
	Ingestor MediaIngestor
	MaxSize  int64
	NowFunc  func() time.Time
}

// Upload handles POST /api/v1/media. The payload is accepted as multipart
// form data under the "file" field; the transfer to object storage happens
// asynchronously and the record starts out pending.
func (h MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	ownerID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	if h.Media == nil || h.Ingestor == nil {
		logger.Error("media dependencies unavailable", "hasStore", h.Media != nil, "hasIngestor", h.Ingestor != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "media services unavailable"})
		return
	}

	maxSize := h.MaxSize
	if maxSize <= 0 {
		maxSize = defaultMaxUploadSize
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		logger.Warn("invalid multipart payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid multipart payload"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		logger.Warn("missing file field", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "file field is required"})
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		logger.Error("read upload payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "unable to read upload"})
		return
	}

	upload := models.MediaUpload{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		FileName:    sanitizeFileName(header.Filename),
		ContentType: header.Header.Get("Content-Type"),
		Size:        int64(len(payload)),
		Status:      models.MediaStatusPending,
		CreatedAt:   h.now(),
	}

	if err := h.Media.Create(ctx, upload); err != nil {
		logger.Error("persist upload record", "error", err, "uploadId", upload.ID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to record upload"})
		return
	}

	if err := h.Ingestor.Enqueue(ctx, upload, payload); err != nil {
		logger.Error("enqueue upload", "error", err, "uploadId", upload.ID)
		respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"error": "upload queue is full"})
		return
	}

	respondJSON(ctx, w, http.StatusAccepted, mediaResponse{Data: upload})
}

// Get handles GET /api/v1/media/{id}. Records are visible to their owner only.
func (h MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	upload, err := h.Media.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "upload not found"})
			return
		}
		logging.FromContext(ctx).Error("fetch upload record", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if upload.OwnerID != ownerID {
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "upload not found"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, mediaResponse{Data: upload})
}

// List handles GET /api/v1/media for the authenticated owner.
func (h MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	uploads, err := h.Media.ListForOwner(ctx, ownerID)
	if err != nil {
		logging.FromContext(ctx).Error("list upload records", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, mediaListResponse{Data: uploads})
}

type mediaResponse struct {
	Data models.MediaUpload `json:"data"`
}

type mediaListResponse struct {
	Data []models.MediaUpload `json:"data"`
}

func sanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	return name
}

func (h MediaHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
