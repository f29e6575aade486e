package handlers

import (
	"net/http"

	"github.com/pairmesh/backend/internal/middleware"
)

// RegisterRoutes wires HTTP handlers into the provided ServeMux. Endpoints
// under /api/v1 other than the auth ones require a bearer token.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{Users: deps.Users, Sessions: deps.Sessions, Limiter: deps.AuthLimiter}
	rels := RelationshipHandler{Relationships: deps.Relationships}
	media := MediaHandler{Media: deps.Media, Ingestor: deps.MediaIngestor, MaxSize: deps.MaxUploadSize}

	mux.HandleFunc("GET /healthz", health.Handle)
	mux.HandleFunc("POST /api/v1/auth/signup", auth.SignUp)
	mux.HandleFunc("POST /api/v1/auth/login", auth.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", auth.Refresh)
	mux.HandleFunc("POST /api/v1/auth/password-reset", auth.RequestPasswordReset)

	guard := middleware.RequireAuth(deps.Sessions)

	mux.Handle("POST /api/v1/relationships", guard(http.HandlerFunc(rels.Create)))
	mux.Handle("GET /api/v1/relationships", guard(http.HandlerFunc(rels.List)))
	mux.Handle("GET /api/v1/relationships/{id}", guard(http.HandlerFunc(rels.Get)))
	mux.Handle("PATCH /api/v1/relationships/{id}", guard(http.HandlerFunc(rels.Patch)))
	mux.Handle("POST /api/v1/relationships/{id}/confirm", guard(http.HandlerFunc(rels.Confirm)))
	mux.Handle("POST /api/v1/relationships/block", guard(http.HandlerFunc(rels.Block)))
	mux.Handle("POST /api/v1/media", guard(http.HandlerFunc(media.Upload)))
	mux.Handle("GET /api/v1/media", guard(http.HandlerFunc(media.List)))
	mux.Handle("GET /api/v1/media/{id}", guard(http.HandlerFunc(media.Get)))
}
