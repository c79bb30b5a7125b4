// Package api exposes the gateway's HTTP surface.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hweng329/llamagate/chat"
	"github.com/hweng329/llamagate/ollama"
	"github.com/hweng329/llamagate/store"
)

// Handler handles the gateway's HTTP requests.
type Handler struct {
	store  store.Store
	ollama *ollama.Client
	orch   *chat.Orchestrator
}

// NewHandler creates a new API handler.
func NewHandler(st store.Store, client *ollama.Client, orch *chat.Orchestrator) *Handler {
	return &Handler{
		store:  st,
		ollama: client,
		orch:   orch,
	}
}

// RegisterRoutes registers all gateway routes.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	e.GET("/api/models", h.GetModels)
	e.GET("/api/server-status", h.ServerStatus)
	e.POST("/api/start-server", h.StartServer)

	e.POST("/api/sessions", h.CreateSession)
	e.GET("/api/sessions", h.ListSessions)
	e.GET("/api/sessions/:session_id", h.GetSession)
	e.PATCH("/api/sessions/:session_id", h.UpdateSession)
	e.GET("/api/sessions/:session_id/messages", h.GetSessionMessages)
	e.DELETE("/api/sessions/:session_id", h.DeleteSession)
	e.GET("/api/messages/search", h.SearchMessages)

	e.POST("/api/generate", h.Generate)
}

// Health reports gateway liveness.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
