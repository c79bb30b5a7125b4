package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hweng329/llamagate/domain"
)

// sseSink writes stream events as Server-Sent Events. Headers are written
// lazily on the first frame so pre-stream failures can still answer with a
// JSON status code.
type sseSink struct {
	response *echo.Response
	flusher  http.Flusher
	started  bool
}

func newSSESink(response *echo.Response, flusher http.Flusher) *sseSink {
	return &sseSink{response: response, flusher: flusher}
}

// Started reports whether any frame has been written.
func (s *sseSink) Started() bool {
	return s.started
}

// Send writes one event frame and flushes it.
func (s *sseSink) Send(event domain.StreamEvent) error {
	if !s.started {
		s.response.Header().Set("Content-Type", "text/event-stream")
		s.response.Header().Set("Cache-Control", "no-cache")
		s.response.Header().Set("Connection", "keep-alive")
		s.response.WriteHeader(http.StatusOK)
		s.started = true
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(s.response, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Generate runs one generation turn, streaming tokens back as SSE.
// POST /api/generate
func (h *Handler) Generate(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.GenerateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Prompt == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "prompt is required"})
	}
	if req.Model == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "model is required"})
	}

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
	}

	sink := newSSESink(c.Response(), flusher)
	err := h.orch.RunTurn(ctx, req, sink)
	if err == nil {
		return nil
	}

	if sink.Started() {
		// The stream already carried its terminal frame; nothing more to
		// write on a response that is underway.
		if ctx.Err() == nil {
			log.Printf("ERROR: generation turn failed mid-stream: %v", err)
		}
		return nil
	}

	switch {
	case errors.Is(err, domain.ErrServiceUnavailable):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	default:
		log.Printf("ERROR: generation turn failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "generation failed"})
	}
}

// GetModels lists the models available on the model server.
// GET /api/models
func (h *Handler) GetModels(c echo.Context) error {
	ctx := c.Request().Context()

	models, err := h.ollama.ListModels(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrServiceUnavailable) {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		}
		log.Printf("ERROR: failed to list models: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	if models == nil {
		models = []string{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"models": models})
}

// ServerStatus reports whether the model server answers its status endpoint.
// GET /api/server-status
func (h *Handler) ServerStatus(c echo.Context) error {
	running := h.ollama.IsRunning(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]bool{"running": running})
}

// StartServer starts the model server when it is not already live.
// POST /api/start-server
func (h *Handler) StartServer(c echo.Context) error {
	if !h.ollama.EnsureStarted(c.Request().Context()) {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to start model server"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "message": "model server is running"})
}
