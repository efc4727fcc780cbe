package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/kheld/ragdex/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeRetriever struct {
	queries []string
	topKs   []int
	nodes   []models.ScoredNode
}

func (f *fakeRetriever) Retrieve(_ context.Context, query string, topK int) ([]models.ScoredNode, error) {
	f.queries = append(f.queries, query)
	f.topKs = append(f.topKs, topK)
	return f.nodes, nil
}

// fakeModel returns canned responses in order and records every call.
type fakeModel struct {
	responses []string
	calls     [][]llms.MessageContent
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls = append(m.calls, messages)

	i := len(m.calls) - 1
	if i >= len(m.responses) {
		return nil, fmt.Errorf("no canned response for call %d", i)
	}
	response := m.responses[i]

	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.StreamingFunc != nil {
		for _, word := range strings.SplitAfter(response, " ") {
			if err := opts.StreamingFunc(ctx, []byte(word)); err != nil {
				return nil, err
			}
		}
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: response}},
	}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func testNodes() []models.ScoredNode {
	return []models.ScoredNode{
		{Node: models.Node{ID: "n1", Source: "a.txt", Text: "The design goals are speed and safety."}, Score: 0.9},
		{Node: models.Node{ID: "n2", Source: "b.txt", Text: "Safety comes from the type system."}, Score: 0.8},
		{Node: models.Node{ID: "n3", Source: "a.txt", Text: "Speed comes from compilation."}, Score: 0.7},
	}
}

func messageText(msg llms.MessageContent) string {
	var b strings.Builder
	for _, part := range msg.Parts {
		if text, ok := part.(llms.TextContent); ok {
			b.WriteString(text.Text)
		}
	}
	return b.String()
}

func TestQueryEngine(t *testing.T) {
	retriever := &fakeRetriever{nodes: testNodes()}
	model := &fakeModel{responses: []string{"The goals are speed and safety."}}

	qe, err := NewQueryEngine(retriever, model, WithTopK(3))
	require.NoError(t, err)

	resp, err := qe.Query(context.Background(), "What are the design goals?")
	require.NoError(t, err)

	assert.Equal(t, "The goals are speed and safety.", resp.Answer)
	assert.Len(t, resp.SourceNodes, 3)
	assert.Equal(t, []string{"What are the design goals?"}, retriever.queries)
	assert.Equal(t, []int{3}, retriever.topKs)

	require.Len(t, model.calls, 1)
	require.Len(t, model.calls[0], 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.calls[0][0].Role)
	prompt := messageText(model.calls[0][1])
	assert.Contains(t, prompt, "The design goals are speed and safety.")
	assert.Contains(t, prompt, "Source: a.txt")
	assert.Contains(t, prompt, "What are the design goals?")
}

func TestQueryEngineStream(t *testing.T) {
	retriever := &fakeRetriever{nodes: testNodes()}
	model := &fakeModel{responses: []string{"Streamed answer text."}}

	qe, err := NewQueryEngine(retriever, model)
	require.NoError(t, err)

	stream, err := qe.QueryStream(context.Background(), "What are the design goals?")
	require.NoError(t, err)

	var b strings.Builder
	for chunk := range stream {
		require.NoError(t, chunk.Err)
		b.WriteString(chunk.Content)
	}
	assert.Equal(t, "Streamed answer text.", b.String())
}

func TestQueryEngineStreamDeliversError(t *testing.T) {
	retriever := &fakeRetriever{nodes: testNodes()}
	model := &fakeModel{} // no canned responses, generation fails

	qe, err := NewQueryEngine(retriever, model)
	require.NoError(t, err)

	stream, err := qe.QueryStream(context.Background(), "What are the design goals?")
	require.NoError(t, err)

	var streamErr error
	for chunk := range stream {
		assert.Empty(t, chunk.Content)
		streamErr = chunk.Err
	}
	assert.Error(t, streamErr)
}

func TestQueryEngineStreamErrorLikeText(t *testing.T) {
	retriever := &fakeRetriever{nodes: testNodes()}
	model := &fakeModel{responses: []string{"Error: codes begin many log lines."}}

	qe, err := NewQueryEngine(retriever, model)
	require.NoError(t, err)

	stream, err := qe.QueryStream(context.Background(), "How do log lines start?")
	require.NoError(t, err)

	// An answer that happens to start with "Error:" is still content
	var b strings.Builder
	for chunk := range stream {
		require.NoError(t, chunk.Err)
		b.WriteString(chunk.Content)
	}
	assert.Equal(t, "Error: codes begin many log lines.", b.String())
}

func TestQueryEngineRequiresParts(t *testing.T) {
	_, err := NewQueryEngine(nil, &fakeModel{})
	assert.Error(t, err)

	_, err = NewQueryEngine(&fakeRetriever{}, nil)
	assert.Error(t, err)
}

func TestResponseSources(t *testing.T) {
	resp := &Response{SourceNodes: testNodes()}
	assert.Equal(t, []string{"a.txt", "b.txt"}, resp.Sources())
	assert.Equal(t, resp.Answer, resp.String())
}

func TestChatEngineContextMode(t *testing.T) {
	retriever := &fakeRetriever{nodes: testNodes()}
	model := &fakeModel{responses: []string{"First answer.", "Second answer."}}

	ce, err := NewChatEngine(retriever, model, WithChatMode(ChatModeContext))
	require.NoError(t, err)

	ctx := context.Background()

	resp, err := ce.Chat(ctx, "What are the design goals?")
	require.NoError(t, err)
	assert.Equal(t, "First answer.", resp.Answer)
	assert.Len(t, resp.SourceNodes, 3)

	resp, err = ce.Chat(ctx, "Tell me more about the first one.")
	require.NoError(t, err)
	assert.Equal(t, "Second answer.", resp.Answer)

	// Context mode retrieves on the raw message
	assert.Equal(t, []string{
		"What are the design goals?",
		"Tell me more about the first one.",
	}, retriever.queries)

	// The second call carries the first turn as history
	require.Len(t, model.calls, 2)
	assert.Len(t, model.calls[0], 2)
	require.Len(t, model.calls[1], 4)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.calls[1][1].Role)
	assert.Equal(t, "What are the design goals?", messageText(model.calls[1][1]))
	assert.Equal(t, llms.ChatMessageTypeAI, model.calls[1][2].Role)
	assert.Equal(t, "First answer.", messageText(model.calls[1][2]))
}

func TestChatEngineCondenseMode(t *testing.T) {
	retriever := &fakeRetriever{nodes: testNodes()}
	model := &fakeModel{responses: []string{
		"First answer.",
		"What details exist about the speed design goal?",
		"Second answer.",
	}}

	ce, err := NewChatEngine(retriever, model, WithChatMode(ChatModeCondenseQuestion))
	require.NoError(t, err)

	ctx := context.Background()

	// First turn: empty history, no condense call
	resp, err := ce.Chat(ctx, "What are the design goals?")
	require.NoError(t, err)
	assert.Equal(t, "First answer.", resp.Answer)
	require.Len(t, model.calls, 1)

	// Second turn: the follow-up is condensed before retrieval
	resp, err = ce.Chat(ctx, "Give details about the first one.")
	require.NoError(t, err)
	assert.Equal(t, "Second answer.", resp.Answer)
	require.Len(t, model.calls, 3)

	condensePromptText := messageText(model.calls[1][0])
	assert.Contains(t, condensePromptText, "Standalone Question:")
	assert.Contains(t, condensePromptText, "User: What are the design goals?")
	assert.Contains(t, condensePromptText, "Assistant: First answer.")
	assert.Contains(t, condensePromptText, "Give details about the first one.")

	assert.Equal(t, []string{
		"What are the design goals?",
		"What details exist about the speed design goal?",
	}, retriever.queries)
}

func TestChatEngineReset(t *testing.T) {
	retriever := &fakeRetriever{nodes: testNodes()}
	model := &fakeModel{responses: []string{"First answer.", "Second answer."}}

	ce, err := NewChatEngine(retriever, model, WithChatMode(ChatModeContext))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = ce.Chat(ctx, "What are the design goals?")
	require.NoError(t, err)

	require.NoError(t, ce.Reset(ctx))

	_, err = ce.Chat(ctx, "And again?")
	require.NoError(t, err)

	// After a reset the second call has no history
	require.Len(t, model.calls, 2)
	assert.Len(t, model.calls[1], 2)
}

func TestChatEngineStreamRecordsHistory(t *testing.T) {
	retriever := &fakeRetriever{nodes: testNodes()}
	model := &fakeModel{responses: []string{"Streamed first answer.", "Second answer."}}

	ce, err := NewChatEngine(retriever, model, WithChatMode(ChatModeContext))
	require.NoError(t, err)

	ctx := context.Background()
	stream, err := ce.ChatStream(ctx, "What are the design goals?")
	require.NoError(t, err)

	var b strings.Builder
	for chunk := range stream {
		require.NoError(t, chunk.Err)
		b.WriteString(chunk.Content)
	}
	assert.Equal(t, "Streamed first answer.", b.String())

	// The streamed turn is in the history for the next one
	_, err = ce.Chat(ctx, "Tell me more.")
	require.NoError(t, err)
	require.Len(t, model.calls, 2)
	require.Len(t, model.calls[1], 4)
	assert.Equal(t, "Streamed first answer.", messageText(model.calls[1][2]))
}

func TestChatEngineUnknownMode(t *testing.T) {
	_, err := NewChatEngine(&fakeRetriever{}, &fakeModel{}, WithChatMode("best"))
	assert.Error(t, err)
}
