package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/kheld/ragdex/internal/models"
	"github.com/kheld/ragdex/internal/types"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"
	"github.com/tmc/langchaingo/prompts"
)

var condensePrompt = prompts.NewPromptTemplate(
	`Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question that captures all relevant context from the conversation.

Chat History:
{{.chat_history}}

Follow Up Question: {{.question}}

Standalone Question:`,
	[]string{"chat_history", "question"},
)

// ChatEngine holds dialogue history across turns. Each turn retrieves fresh
// context; in condense mode the retrieval query is a standalone rewrite of
// the new message produced from the history.
type ChatEngine struct {
	retriever types.Retriever
	model     llms.Model
	history   *memory.ChatMessageHistory
	opts      options
}

func NewChatEngine(retriever types.Retriever, model llms.Model, opts ...Option) (*ChatEngine, error) {
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

	switch o.chatMode {
	case ChatModeContext, ChatModeCondenseQuestion:
	default:
		return nil, fmt.Errorf("unknown chat mode: %s", o.chatMode)
	}

	return &ChatEngine{
		retriever: retriever,
		model:     model,
		history:   memory.NewChatMessageHistory(),
		opts:      o,
	}, nil
}

// Chat runs one conversational turn and records it in the history.
func (ce *ChatEngine) Chat(ctx context.Context, message string) (*Response, error) {
	nodes, content, err := ce.prepareTurn(ctx, message)
	if err != nil {
		return nil, err
	}

	resp, err := ce.model.GenerateContent(ctx, content, ce.opts.callOpts...)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	answer := responseText(resp)
	if err := ce.recordTurn(ctx, message, answer); err != nil {
		return nil, err
	}

	return &Response{
		Answer:      answer,
		SourceNodes: nodes,
	}, nil
}

// ChatStream is Chat with the answer delivered incrementally. The turn is
// recorded in the history once the stream completes; a failure arrives as a
// final chunk with Err set.
func (ce *ChatEngine) ChatStream(ctx context.Context, message string) (<-chan StreamChunk, error) {
	_, content, err := ce.prepareTurn(ctx, message)
	if err != nil {
		return nil, err
	}

	resultChan := make(chan StreamChunk)

	go func() {
		defer close(resultChan)

		var answer strings.Builder
		callOpts := append([]llms.CallOption{}, ce.opts.callOpts...)
		callOpts = append(callOpts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			answer.Write(chunk)
			resultChan <- StreamChunk{Content: string(chunk)}
			return nil
		}))

		if _, err := ce.model.GenerateContent(ctx, content, callOpts...); err != nil {
			resultChan <- StreamChunk{Err: fmt.Errorf("generation failed: %w", err)}
			return
		}

		if err := ce.recordTurn(ctx, message, answer.String()); err != nil {
			resultChan <- StreamChunk{Err: err}
		}
	}()

	return resultChan, nil
}

// Reset clears the dialogue history.
func (ce *ChatEngine) Reset(ctx context.Context) error {
	return ce.history.Clear(ctx)
}

func (ce *ChatEngine) prepareTurn(ctx context.Context, message string) ([]models.ScoredNode, []llms.MessageContent, error) {
	past, err := ce.history.Messages(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read chat history: %w", err)
	}

	retrievalQuery := message
	if ce.opts.chatMode == ChatModeCondenseQuestion && len(past) > 0 {
		condensed, err := ce.condenseQuestion(ctx, past, message)
		if err != nil {
			return nil, nil, err
		}
		retrievalQuery = condensed
	}

	nodes, err := ce.retriever.Retrieve(ctx, retrievalQuery, ce.opts.topK)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieval failed: %w", err)
	}

	content := make([]llms.MessageContent, 0, len(past)+2)
	content = append(content, llms.TextParts(llms.ChatMessageTypeSystem,
		ce.opts.systemTemplate+"\n\n"+buildContext(nodes)))
	for _, msg := range past {
		content = append(content, llms.TextParts(msg.GetType(), msg.GetContent()))
	}
	content = append(content, llms.TextParts(llms.ChatMessageTypeHuman, message))

	return nodes, content, nil
}

// condenseQuestion rewrites a follow-up message into a standalone question.
func (ce *ChatEngine) condenseQuestion(ctx context.Context, past []llms.ChatMessage, message string) (string, error) {
	prompt, err := condensePrompt.Format(map[string]any{
		"chat_history": formatHistory(past),
		"question":     message,
	})
	if err != nil {
		return "", fmt.Errorf("failed to format condense prompt: %w", err)
	}

	condensed, err := llms.GenerateFromSinglePrompt(ctx, ce.model, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to condense question: %w", err)
	}

	condensed = strings.TrimSpace(condensed)
	if condensed == "" {
		return message, nil
	}
	return condensed, nil
}

func (ce *ChatEngine) recordTurn(ctx context.Context, message, answer string) error {
	if err := ce.history.AddUserMessage(ctx, message); err != nil {
		return fmt.Errorf("failed to record user message: %w", err)
	}
	if err := ce.history.AddAIMessage(ctx, answer); err != nil {
		return fmt.Errorf("failed to record assistant message: %w", err)
	}
	return nil
}

func formatHistory(messages []llms.ChatMessage) string {
	var b strings.Builder
	for _, msg := range messages {
		switch msg.GetType() {
		case llms.ChatMessageTypeHuman:
			b.WriteString("User: ")
		case llms.ChatMessageTypeAI:
			b.WriteString("Assistant: ")
		default:
			continue
		}
		b.WriteString(msg.GetContent())
		b.WriteString("\n")
	}
	return b.String()
}
