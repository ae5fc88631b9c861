// Package server exposes the pipeline over HTTP: feed snapshot, account
// management, manual trigger, the websocket endpoint and an image proxy for
// upstream CDN media.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pauljones0/artist-push-bot/internal/gateway"
	"github.com/pauljones0/artist-push-bot/internal/models"
	"github.com/pauljones0/artist-push-bot/internal/monitor"
	"github.com/pauljones0/artist-push-bot/internal/registry"
	"github.com/pauljones0/artist-push-bot/internal/source"
	"github.com/pauljones0/artist-push-bot/internal/validator"
)

// Pipeline is the slice of the monitor the HTTP layer needs.
type Pipeline interface {
	TriggerNow(ctx context.Context) (models.CycleSummary, error)
	FeedSnapshot() []models.FeedEntry
	AddAccount(raw string) (string, error)
	RemoveAccount(accountID string) error
	Accounts() []string
}

type Server struct {
	pipeline Pipeline
	hub      *gateway.Hub
	validate *validator.Validator
	upgrader websocket.Upgrader
	proxy    *http.Client
}

func New(p Pipeline, hub *gateway.Hub) *Server {
	return &Server{
		pipeline: p,
		hub:      hub,
		validate: validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The browser client is served from arbitrary origins in dev.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		proxy: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/feed", s.handleFeed)
	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleAddAccounts)
	mux.HandleFunc("POST /api/accounts/remove", s.handleRemoveAccount)
	mux.HandleFunc("POST /api/trigger-fetch", s.handleTrigger)
	mux.HandleFunc("GET /api/proxy-image", s.handleProxyImage)
	mux.HandleFunc("GET /ws", s.handleWebsocket)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

func (s *Server) handleFeed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.FeedSnapshot())
}

type accountView struct {
	Username       string `json:"username"`
	FullName       string `json:"full_name"`
	ProfilePicture string `json:"profile_picture"`
}

func (s *Server) handleListAccounts(w http.ResponseWriter, _ *http.Request) {
	ids := s.pipeline.Accounts()
	views := make([]accountView, 0, len(ids))
	for _, id := range ids {
		views = append(views, accountView{
			Username:       id,
			FullName:       source.TitleCase(id),
			ProfilePicture: source.DefaultAvatarRef(id),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

type addAccountsRequest struct {
	Accounts []string `json:"accounts" validate:"required,min=1"`
}

func (s *Server) handleAddAccounts(w http.ResponseWriter, r *http.Request) {
	var req addAccountsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid accounts data")
		return
	}
	if err := s.validate.ValidateStruct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid accounts data")
		return
	}

	var added []string
	for _, raw := range req.Accounts {
		id, err := s.pipeline.AddAccount(raw)
		if err != nil {
			slog.Warn("Rejected account", "raw", raw, "error", err)
			continue
		}
		added = append(added, id)
		slog.Info("Added account to monitor", "account", id)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"accounts": s.pipeline.Accounts(),
		"added":    added,
	})
}

type removeAccountRequest struct {
	Username string `json:"username" validate:"required"`
}

func (s *Server) handleRemoveAccount(w http.ResponseWriter, r *http.Request) {
	var req removeAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	if err := s.validate.ValidateStruct(req); err != nil {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	if err := s.pipeline.RemoveAccount(req.Username); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	slog.Info("Removed account from monitoring", "account", req.Username)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Removed @%s", req.Username),
	})
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	summary, err := s.pipeline.TriggerNow(r.Context())
	if err != nil {
		if errors.Is(err, monitor.ErrCycleRunning) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"summary": summary,
	})
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		slog.Warn("Websocket upgrade failed", "error", err)
		return
	}
	s.hub.Register(conn, s.pipeline.FeedSnapshot())
}

// handleProxyImage streams an upstream media asset through this origin so
// browsers can render CDN images that forbid cross-origin embedding. On any
// failure it answers with a placeholder instead of an error.
func (s *Server) handleProxyImage(w http.ResponseWriter, r *http.Request) {
	imageURL := r.URL.Query().Get("url")
	if imageURL == "" {
		writeError(w, http.StatusBadRequest, "Image URL is required")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, imageURL, nil)
	if err != nil {
		s.writePlaceholder(w)
		return
	}
	req.Header.Set("Accept", "image/*,*/*;q=0.8")

	resp, err := s.proxy.Do(req)
	if err != nil {
		slog.Warn("Image proxy fetch failed", "url", imageURL, "error", err)
		s.writePlaceholder(w)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		s.writePlaceholder(w)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	io.Copy(w, resp.Body)
}

const placeholderSVG = `<svg width="400" height="300" xmlns="http://www.w3.org/2000/svg">
  <rect width="100%" height="100%" fill="#f8f9fa"/>
  <text x="50%" y="50%" font-family="system-ui, sans-serif" font-size="14" fill="#6c757d" text-anchor="middle">Image unavailable</text>
</svg>`

func (s *Server) writePlaceholder(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	fmt.Fprint(w, placeholderSVG)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
