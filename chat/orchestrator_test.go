package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hweng329/llamagate/domain"
	"github.com/hweng329/llamagate/ollama"
	"github.com/hweng329/llamagate/store"
	"github.com/hweng329/llamagate/tests/helpers"
)

type fakeInference struct {
	running   bool
	chunks    []ollama.Chunk
	openErr   error
	gotPrompt string
	gotModel  string
	gotImages []string
}

func (f *fakeInference) IsRunning(ctx context.Context) bool {
	return f.running
}

func (f *fakeInference) Generate(ctx context.Context, params ollama.GenerateParams) (<-chan ollama.Chunk, error) {
	f.gotPrompt = params.Prompt
	f.gotModel = params.Model
	f.gotImages = params.Images
	if f.openErr != nil {
		return nil, f.openErr
	}

	ch := make(chan ollama.Chunk, len(f.chunks))
	for _, chunk := range f.chunks {
		ch <- chunk
	}
	close(ch)
	return ch, nil
}

type fakeSearcher struct {
	results []domain.SearchResult
}

func (f *fakeSearcher) Search(ctx context.Context, query string, maxResults int) []domain.SearchResult {
	return f.results
}

type captureSink struct {
	events []domain.StreamEvent
}

func (s *captureSink) Send(event domain.StreamEvent) error {
	s.events = append(s.events, event)
	return nil
}

func testLimits() Limits {
	return Limits{
		DefaultContextMessages: 10,
		MaxContextMessages:     50,
		SearchMaxResults:       3,
	}
}

func newTestOrchestrator(t *testing.T, inference Inference, searcher Searcher) (*Orchestrator, store.Store) {
	t.Helper()
	s := helpers.NewTestSQLiteStore(t)
	return NewOrchestrator(inference, s, searcher, testLimits()), s
}

func TestRunTurnStreamsAndPersists(t *testing.T) {
	ctx := context.Background()
	inference := &fakeInference{
		running: true,
		chunks:  []ollama.Chunk{{Text: "Hel"}, {Text: "lo"}},
	}
	orch, s := newTestOrchestrator(t, inference, &fakeSearcher{})

	session, err := s.CreateSession(ctx, "llama3.1", "t")
	assert.NoError(t, err)

	sink := &captureSink{}
	err = orch.RunTurn(ctx, domain.GenerateRequest{
		Prompt:    "hello",
		Model:     "llama3.1",
		SessionID: session.ID,
	}, sink)
	assert.NoError(t, err)

	assert.Equal(t, []domain.StreamEvent{
		{Content: "Hel"},
		{Content: "lo"},
		{Done: true},
	}, sink.events)

	history, err := s.GetHistory(ctx, session.ID, 0)
	assert.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, domain.RoleAssistant, history[1].Role)
	assert.Equal(t, "Hello", history[1].Content)

	assert.Equal(t, "llama3.1", inference.gotModel)
	// First turn has no context, so the prompt is the raw text
	assert.Equal(t, "hello", inference.gotPrompt)
}

func TestRunTurnServerDown(t *testing.T) {
	ctx := context.Background()
	orch, s := newTestOrchestrator(t, &fakeInference{running: false}, &fakeSearcher{})

	session, err := s.CreateSession(ctx, "llama3.1", "t")
	assert.NoError(t, err)

	sink := &captureSink{}
	err = orch.RunTurn(ctx, domain.GenerateRequest{
		Prompt:    "hello",
		Model:     "llama3.1",
		SessionID: session.ID,
	}, sink)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)

	// Fails fast: no frames sent, no store writes
	assert.Empty(t, sink.events)
	history, err := s.GetHistory(ctx, session.ID, 0)
	assert.NoError(t, err)
	assert.Empty(t, history)
}

func TestRunTurnUnknownSession(t *testing.T) {
	ctx := context.Background()
	orch, _ := newTestOrchestrator(t, &fakeInference{running: true}, &fakeSearcher{})

	sink := &captureSink{}
	err := orch.RunTurn(ctx, domain.GenerateRequest{
		Prompt:    "hello",
		Model:     "llama3.1",
		SessionID: "nope",
	}, sink)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Empty(t, sink.events)
}

func TestRunTurnMidStreamError(t *testing.T) {
	ctx := context.Background()
	inference := &fakeInference{
		running: true,
		chunks: []ollama.Chunk{
			{Text: "Par"},
			{Err: errors.New("connection reset")},
		},
	}
	orch, s := newTestOrchestrator(t, inference, &fakeSearcher{})

	session, err := s.CreateSession(ctx, "llama3.1", "t")
	assert.NoError(t, err)

	sink := &captureSink{}
	err = orch.RunTurn(ctx, domain.GenerateRequest{
		Prompt:    "hello",
		Model:     "llama3.1",
		SessionID: session.ID,
	}, sink)
	assert.Error(t, err)

	// Partial content was delivered, then exactly one terminal error frame
	assert.Len(t, sink.events, 2)
	assert.Equal(t, "Par", sink.events[0].Content)
	assert.NotEmpty(t, sink.events[1].Error)

	// The user message persists; no assistant message is written
	history, err := s.GetHistory(ctx, session.ID, 0)
	assert.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, domain.RoleUser, history[0].Role)
}

func TestRunTurnOpenFailure(t *testing.T) {
	ctx := context.Background()
	inference := &fakeInference{
		running: true,
		openErr: &domain.UpstreamError{StatusCode: 500, Body: "boom"},
	}
	orch, s := newTestOrchestrator(t, inference, &fakeSearcher{})

	session, err := s.CreateSession(ctx, "llama3.1", "t")
	assert.NoError(t, err)

	sink := &captureSink{}
	err = orch.RunTurn(ctx, domain.GenerateRequest{
		Prompt:    "hello",
		Model:     "llama3.1",
		SessionID: session.ID,
	}, sink)
	assert.Error(t, err)

	assert.Len(t, sink.events, 1)
	assert.NotEmpty(t, sink.events[0].Error)

	history, err := s.GetHistory(ctx, session.ID, 0)
	assert.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, domain.RoleUser, history[0].Role)
}

func TestRunTurnEmptyStream(t *testing.T) {
	ctx := context.Background()
	inference := &fakeInference{running: true}
	orch, s := newTestOrchestrator(t, inference, &fakeSearcher{})

	session, err := s.CreateSession(ctx, "llama3.1", "t")
	assert.NoError(t, err)

	sink := &captureSink{}
	err = orch.RunTurn(ctx, domain.GenerateRequest{
		Prompt:    "hello",
		Model:     "llama3.1",
		SessionID: session.ID,
	}, sink)
	assert.NoError(t, err)

	assert.Equal(t, []domain.StreamEvent{{Done: true}}, sink.events)

	// No tokens means no assistant message, only the user turn
	history, err := s.GetHistory(ctx, session.ID, 0)
	assert.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRunTurnWithoutSession(t *testing.T) {
	ctx := context.Background()
	inference := &fakeInference{running: true, chunks: []ollama.Chunk{{Text: "hi"}}}
	orch, _ := newTestOrchestrator(t, inference, &fakeSearcher{})

	sink := &captureSink{}
	err := orch.RunTurn(ctx, domain.GenerateRequest{
		Prompt: "hello",
		Model:  "llama3.1",
	}, sink)
	assert.NoError(t, err)
	assert.Equal(t, []domain.StreamEvent{{Content: "hi"}, {Done: true}}, sink.events)
}

func TestRunTurnSearchEnrichment(t *testing.T) {
	ctx := context.Background()
	inference := &fakeInference{running: true, chunks: []ollama.Chunk{{Text: "hi"}}}
	searcher := &fakeSearcher{results: []domain.SearchResult{
		{Title: "Go", Snippet: "Go is a language", URL: "https://go.dev"},
	}}
	orch, s := newTestOrchestrator(t, inference, searcher)

	session, err := s.CreateSession(ctx, "llama3.1", "t")
	assert.NoError(t, err)

	sink := &captureSink{}
	err = orch.RunTurn(ctx, domain.GenerateRequest{
		Prompt:    "what is go?",
		Model:     "llama3.1",
		SessionID: session.ID,
		WebSearch: true,
	}, sink)
	assert.NoError(t, err)

	// The model sees the enriched prompt
	assert.True(t, strings.Contains(inference.gotPrompt, "Go is a language"))
	assert.True(t, strings.Contains(inference.gotPrompt, "what is go?"))

	// The store keeps the raw user text, not the rewrite
	history, err := s.GetHistory(ctx, session.ID, 0)
	assert.NoError(t, err)
	assert.Equal(t, "what is go?", history[0].Content)
}

func TestRunTurnSearchNoResults(t *testing.T) {
	ctx := context.Background()
	inference := &fakeInference{running: true, chunks: []ollama.Chunk{{Text: "hi"}}}
	orch, _ := newTestOrchestrator(t, inference, &fakeSearcher{})

	sink := &captureSink{}
	err := orch.RunTurn(ctx, domain.GenerateRequest{
		Prompt:    "what is go?",
		Model:     "llama3.1",
		WebSearch: true,
	}, sink)
	assert.NoError(t, err)

	// Zero results leave the prompt exactly as without enrichment
	assert.Equal(t, "what is go?", inference.gotPrompt)
}

func TestRunTurnUsesContextWindow(t *testing.T) {
	ctx := context.Background()
	inference := &fakeInference{running: true, chunks: []ollama.Chunk{{Text: "hi"}}}
	orch, s := newTestOrchestrator(t, inference, &fakeSearcher{})

	session, err := s.CreateSession(ctx, "llama3.1", "t")
	assert.NoError(t, err)
	_, err = s.AppendMessage(ctx, session.ID, domain.RoleUser, "earlier question")
	assert.NoError(t, err)
	_, err = s.AppendMessage(ctx, session.ID, domain.RoleAssistant, "earlier answer")
	assert.NoError(t, err)

	sink := &captureSink{}
	err = orch.RunTurn(ctx, domain.GenerateRequest{
		Prompt:    "follow-up",
		Model:     "llama3.1",
		SessionID: session.ID,
	}, sink)
	assert.NoError(t, err)

	assert.True(t, strings.Contains(inference.gotPrompt, "Conversation History:"))
	assert.True(t, strings.Contains(inference.gotPrompt, "Human: earlier question"))
	assert.True(t, strings.Contains(inference.gotPrompt, "Assistant: earlier answer"))
	assert.True(t, strings.Contains(inference.gotPrompt, "Human: follow-up"))
	assert.True(t, strings.HasSuffix(inference.gotPrompt, "Assistant:"))
}

func TestClampWindow(t *testing.T) {
	orch := NewOrchestrator(&fakeInference{}, nil, nil, testLimits())

	assert.Equal(t, 10, orch.clampWindow(0))
	assert.Equal(t, 10, orch.clampWindow(-1))
	assert.Equal(t, 1, orch.clampWindow(1))
	assert.Equal(t, 50, orch.clampWindow(120))
}
