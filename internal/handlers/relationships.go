package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/pairmesh/backend/internal/logging"
	"github.com/pairmesh/backend/internal/middleware"
	"github.com/pairmesh/backend/internal/relationships"
	"github.com/pairmesh/backend/internal/repositories"
)

// RelationshipHandler implements the relationship lifecycle endpoints.
type RelationshipHandler struct {
	Relationships RelationshipService
}

// Create handles POST /api/v1/relationships.
func (h RelationshipHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	requesterID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	var req createRelationshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid relationship payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	view, err := h.Relationships.Create(ctx, requesterID, req.UserA, req.UserB, req.Status)
	if err != nil {
		respondRelationshipError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, relationshipResponse{Data: view})
}

// List handles GET /api/v1/relationships.
func (h RelationshipHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requesterID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	params := listParamsFromQuery(r)
	result, err := h.Relationships.ListForUser(ctx, requesterID, params)
	if err != nil {
		respondRelationshipError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, relationshipListResponse{
		Data: result.Data,
		Metadata: listMetadata{
			Pagination: paginationMetadata{Page: result.Page, Size: result.Size},
			Count:      result.Count,
		},
	})
}

// Get handles GET /api/v1/relationships/{id}.
func (h RelationshipHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requesterID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	view, err := h.Relationships.FindMyRelationship(ctx, requesterID, r.PathValue("id"))
	if err != nil {
		respondRelationshipError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, relationshipResponse{Data: view})
}

// Patch handles PATCH /api/v1/relationships/{id}.
func (h RelationshipHandler) Patch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	requesterID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	var req patchRelationshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid relationship patch payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	patch := repositories.RelationshipPatch{
		Status:         req.Status,
		ConversationID: req.ConversationID,
	}

	view, err := h.Relationships.Update(ctx, requesterID, r.PathValue("id"), patch)
	if err != nil {
		respondRelationshipError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, relationshipResponse{Data: view})
}

// Confirm handles POST /api/v1/relationships/{id}/confirm.
func (h RelationshipHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requesterID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	view, err := h.Relationships.ConfirmFriendship(ctx, requesterID, r.PathValue("id"))
	if err != nil {
		respondRelationshipError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, relationshipResponse{Data: view})
}

// Block handles POST /api/v1/relationships/block.
func (h RelationshipHandler) Block(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	requesterID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	var req blockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid block payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	view, err := h.Relationships.BlockUser(ctx, requesterID, req.BlockedBy, req.Target)
	if err != nil {
		respondRelationshipError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, relationshipResponse{Data: view})
}

func respondRelationshipError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, relationships.ErrValidation):
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, relationships.ErrNotFound):
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "relationship not found"})
	case errors.Is(err, relationships.ErrConflict):
		respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "relationship already exists"})
	case errors.Is(err, relationships.ErrUnauthorized):
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "not a participant of this relationship"})
	default:
		logging.FromContext(ctx).Error("relationship operation failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

type createRelationshipRequest struct {
	UserA  string `json:"userA"`
	UserB  string `json:"userB"`
	Status string `json:"status"`
}

type patchRelationshipRequest struct {
	Status         *string `json:"status"`
	ConversationID *string `json:"conversationId"`
}

type blockRequest struct {
	BlockedBy string `json:"blockedBy"`
	Target    string `json:"target"`
}

type relationshipResponse struct {
	Data relationships.View `json:"data"`
}

type relationshipListResponse struct {
	Data     []relationships.View `json:"data"`
	Metadata listMetadata         `json:"metadata"`
}

type listMetadata struct {
	Pagination paginationMetadata `json:"pagination"`
	Count      int                `json:"count"`
}

type paginationMetadata struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

func listParamsFromQuery(r *http.Request) repositories.RelationshipListParams {
	query := r.URL.Query()

	params := repositories.RelationshipListParams{
		Status:    strings.TrimSpace(query.Get("status")),
		SortField: strings.TrimSpace(query.Get("sort")),
		SortDir:   strings.TrimSpace(query.Get("dir")),
	}

	if page, err := strconv.Atoi(query.Get("page")); err == nil {
		params.Page = page
	}
	if size, err := strconv.Atoi(query.Get("size")); err == nil {
		params.Size = size
	}

	return params
}
