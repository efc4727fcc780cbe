package engine

import (
	"context"
	"fmt"

	"github.com/kheld/ragdex/internal/types"
	"github.com/tmc/langchaingo/llms"
)

// QueryEngine answers one-shot questions: retrieve top-k nodes, stuff them
// into the prompt, synthesize. It keeps no state between calls.
type QueryEngine struct {
	retriever types.Retriever
	model     llms.Model
	opts      options
}

func NewQueryEngine(retriever types.Retriever, model llms.Model, opts ...Option) (*QueryEngine, error) {
	if retriever == nil {
		return nil, fmt.Errorf("a retriever is required")
	}
	if model == nil {
		return nil, fmt.Errorf("an LLM is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &QueryEngine{
		retriever: retriever,
		model:     model,
		opts:      o,
	}, nil
}

// Query retrieves context for the question and generates a grounded answer.
func (qe *QueryEngine) Query(ctx context.Context, query string) (*Response, error) {
	nodes, err := qe.retriever.Retrieve(ctx, query, qe.opts.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, qe.opts.systemTemplate),
		llms.TextParts(llms.ChatMessageTypeHuman,
			fmt.Sprintf(qe.opts.contextFormat, buildContext(nodes), query)),
	}

	resp, err := qe.model.GenerateContent(ctx, content, qe.opts.callOpts...)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	return &Response{
		Answer:      responseText(resp),
		SourceNodes: nodes,
	}, nil
}

// QueryStream is Query with the answer delivered incrementally. The returned
// channel is closed when generation finishes; a generation failure arrives as
// a final chunk with Err set.
func (qe *QueryEngine) QueryStream(ctx context.Context, query string) (<-chan StreamChunk, error) {
	nodes, err := qe.retriever.Retrieve(ctx, query, qe.opts.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, qe.opts.systemTemplate),
		llms.TextParts(llms.ChatMessageTypeHuman,
			fmt.Sprintf(qe.opts.contextFormat, buildContext(nodes), query)),
	}

	resultChan := make(chan StreamChunk)

	go func() {
		defer close(resultChan)

		callOpts := append([]llms.CallOption{}, qe.opts.callOpts...)
		callOpts = append(callOpts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			resultChan <- StreamChunk{Content: string(chunk)}
			return nil
		}))

		if _, err := qe.model.GenerateContent(ctx, content, callOpts...); err != nil {
			resultChan <- StreamChunk{Err: fmt.Errorf("generation failed: %w", err)}
		}
	}()

	return resultChan, nil
}
