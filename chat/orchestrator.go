package chat

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/hweng329/llamagate/domain"
	"github.com/hweng329/llamagate/ollama"
	"github.com/hweng329/llamagate/store"
)

// Inference abstracts the model server client for the orchestrator.
type Inference interface {
	IsRunning(ctx context.Context) bool
	Generate(ctx context.Context, params ollama.GenerateParams) (<-chan ollama.Chunk, error)
}

// Searcher abstracts the web search provider. Implementations never fail:
// they degrade to an empty result list.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) []domain.SearchResult
}

// EventSink receives the stream events of one turn, in order. A Send error
// means the caller's transport is gone.
type EventSink interface {
	Send(event domain.StreamEvent) error
}

// Limits bound the orchestrator's per-turn parameters.
type Limits struct {
	DefaultContextMessages int
	MaxContextMessages     int
	SearchMaxResults       int
}

// Orchestrator drives one generation turn end to end: precondition checks,
// optional search enrichment, context assembly, token relay and persistence.
type Orchestrator struct {
	inference Inference
	store     store.Store
	searcher  Searcher
	assembler *Assembler
	limits    Limits
}

// NewOrchestrator creates a new generation orchestrator.
func NewOrchestrator(inference Inference, st store.Store, searcher Searcher, limits Limits) *Orchestrator {
	return &Orchestrator{
		inference: inference,
		store:     st,
		searcher:  searcher,
		assembler: NewAssembler(st),
		limits:    limits,
	}
}

// RunTurn executes one generation turn, relaying tokens to the sink as they
// arrive. Failures before the stream opens are returned without touching the
// sink so the transport can answer with a status code; once streaming has
// begun every failure surfaces as a terminal error frame instead. The
// returned error is nil only for a fully completed turn.
func (o *Orchestrator) RunTurn(ctx context.Context, req domain.GenerateRequest, sink EventSink) error {
	if !o.inference.IsRunning(ctx) {
		return domain.ErrServiceUnavailable
	}

	// Search enrichment is best-effort and never fails the turn. The raw
	// user text is what gets persisted; only the model sees the rewrite.
	effectivePrompt := req.Prompt
	if req.WebSearch && o.searcher != nil {
		results := o.searcher.Search(ctx, req.Prompt, o.limits.SearchMaxResults)
		if len(results) > 0 {
			effectivePrompt = renderSearchPrompt(results, req.Prompt)
		}
	}

	var contextMessages []domain.ContextMessage
	if req.SessionID != "" {
		session, err := o.store.GetSession(ctx, req.SessionID)
		if err != nil {
			return fmt.Errorf("failed to resolve session: %w", err)
		}
		if session == nil {
			return domain.ErrSessionNotFound
		}

		window := o.clampWindow(req.MaxContextMessages)
		contextMessages, err = o.assembler.BuildContext(ctx, req.SessionID, window)
		if err != nil {
			return fmt.Errorf("failed to load context: %w", err)
		}

		// Persisted before streaming begins; deliberately not rolled back
		// when the stream fails later.
		if _, err := o.store.AppendMessage(ctx, req.SessionID, domain.RoleUser, req.Prompt); err != nil {
			return fmt.Errorf("failed to save user message: %w", err)
		}
	}

	prompt := RenderPrompt(contextMessages, effectivePrompt)

	chunks, err := o.inference.Generate(ctx, ollama.GenerateParams{
		Model:  req.Model,
		Prompt: prompt,
		Images: req.Images,
	})
	if err != nil {
		o.sendError(sink, err)
		return err
	}

	var response strings.Builder
	for chunk := range chunks {
		if chunk.Err != nil {
			if ctx.Err() != nil {
				// Client disconnect: nothing left to tell anyone.
				return ctx.Err()
			}
			o.sendError(sink, chunk.Err)
			return chunk.Err
		}

		if err := sink.Send(domain.StreamEvent{Content: chunk.Text}); err != nil {
			return fmt.Errorf("failed to relay token: %w", err)
		}
		response.WriteString(chunk.Text)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if req.SessionID != "" && response.Len() > 0 {
		if _, err := o.store.AppendMessage(ctx, req.SessionID, domain.RoleAssistant, response.String()); err != nil {
			// The caller already holds the full content; record loss here is
			// a known, bounded inconsistency window.
			log.Printf("ERROR: failed to save assistant message for session %s: %v", req.SessionID, err)
		}
	}

	return sink.Send(domain.StreamEvent{Done: true})
}

// clampWindow bounds the requested context window size.
func (o *Orchestrator) clampWindow(requested int) int {
	if requested <= 0 {
		return o.limits.DefaultContextMessages
	}
	if requested > o.limits.MaxContextMessages {
		return o.limits.MaxContextMessages
	}
	return requested
}

func (o *Orchestrator) sendError(sink EventSink, err error) {
	if sendErr := sink.Send(domain.StreamEvent{Error: err.Error()}); sendErr != nil {
		log.Printf("WARN: failed to send error event: %v", sendErr)
	}
}
