// Package ollama implements the HTTP wire protocol to the local Ollama
// model server: liveness probe, model listing, server startup and
// streaming generation.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/hweng329/llamagate/domain"
)

// Options are the sampling options passed through to the model server
// unchanged on every generation request.
type Options struct {
	Temperature   float64 `json:"temperature"`
	NumCtx        int     `json:"num_ctx"`
	RepeatPenalty float64 `json:"repeat_penalty"`
}

// Client is the Ollama model server client.
type Client struct {
	baseURL     string
	binary      string
	options     Options
	settleDelay time.Duration
	maxRetries  int

	probeClient *http.Client
	httpClient  *http.Client
}

// NewClient creates a new Ollama client. probeTimeout caps the liveness
// probe; streaming requests carry no client-side deadline since turns may
// run long.
func NewClient(baseURL, binary string, options Options, probeTimeout, settleDelay time.Duration, maxRetries int) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		binary:      binary,
		options:     options,
		settleDelay: settleDelay,
		maxRetries:  maxRetries,
		probeClient: &http.Client{Timeout: probeTimeout},
		httpClient:  &http.Client{},
	}
}

// GenerateParams are the inputs for one streaming generation.
type GenerateParams struct {
	Model  string
	Prompt string
	Images []string
}

// Chunk is one increment of a token stream. Err, when set, is terminal and
// the channel is closed right after it.
type Chunk struct {
	Text string
	Err  error
}

type generatePayload struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Images  []string `json:"images,omitempty"`
	Options Options  `json:"options"`
}

type generateLine struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// IsRunning reports whether the model server answers the status endpoint.
// Any transport failure means "not running"; this never returns an error.
func (c *Client) IsRunning(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := c.probeClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// ListModels returns the names of the models available on the server.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	if !c.IsRunning(ctx) {
		return nil, domain.ErrServiceUnavailable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.UpstreamError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var result tagsResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	models := make([]string, 0, len(result.Models))
	for _, m := range result.Models {
		models = append(models, m.Name)
	}
	return models, nil
}

// EnsureStarted makes sure the model server is live, spawning it as a
// detached background process when needed. Returns false when the binary
// cannot be located or the server is still down after the retry budget;
// it never blocks indefinitely and never returns an error.
func (c *Client) EnsureStarted(ctx context.Context) bool {
	if c.IsRunning(ctx) {
		return true
	}

	cmd := exec.Command(c.binary, "serve")
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return false
	}
	// The serve process outlives the gateway; reap it if it dies early.
	go cmd.Wait()

	if !sleepCtx(ctx, c.settleDelay) {
		return false
	}

	for i := 0; i < c.maxRetries; i++ {
		if c.IsRunning(ctx) {
			return true
		}
		if !sleepCtx(ctx, time.Second) {
			return false
		}
	}
	return false
}

// Generate opens one streaming generation request. A non-success status is
// returned as an error before any token; after that the returned channel
// yields tokens in arrival order and is closed on the done marker or EOF,
// with a transport or read failure delivered as the final chunk's Err.
// The stream is finite and not restartable.
func (c *Client) Generate(ctx context.Context, params GenerateParams) (<-chan Chunk, error) {
	payload := generatePayload{
		Model:   params.Model,
		Prompt:  params.Prompt,
		Stream:  true,
		Images:  params.Images,
		Options: c.options,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &domain.UpstreamError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	chunks := make(chan Chunk)
	go c.readStream(ctx, resp.Body, chunks)
	return chunks, nil
}

// readStream decodes the newline-delimited JSON body into the chunk channel.
func (c *Client) readStream(ctx context.Context, body io.ReadCloser, chunks chan<- Chunk) {
	defer close(chunks)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var decoded generateLine
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			// Malformed lines are skipped, not fatal
			continue
		}

		if decoded.Response != "" {
			select {
			case chunks <- Chunk{Text: decoded.Response}:
			case <-ctx.Done():
				return
			}
		}
		if decoded.Done {
			return
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
		select {
		case chunks <- Chunk{Err: fmt.Errorf("failed to read stream: %w", err)}:
		case <-ctx.Done():
		}
	}
}

// sleepCtx sleeps for d, returning false when the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
