package engine

import (
	"fmt"
	"strings"

	"github.com/kheld/ragdex/internal/models"
	"github.com/tmc/langchaingo/llms"
)

// Chat modes, following the surface the CLI exposes. Context mode retrieves
// on the raw message and stuffs context each turn; condense mode first
// rewrites the message into a standalone question using the chat history.
const (
	ChatModeContext          = "context"
	ChatModeCondenseQuestion = "condense_question"
)

const (
	defaultSystemTemplate = "You are a helpful assistant with access to the following documentation. Answer questions based on this context."
	defaultContextFormat  = "\nRelevant documentation:\n%s\n\nQuestion: %s"
)

// StreamChunk is one increment of a streamed answer. A chunk with Err set is
// the last thing sent before the channel closes; Content and Err are never
// both set.
type StreamChunk struct {
	Content string
	Err     error
}

// Response is the result of a query or chat turn: the generated answer plus
// the retrieved nodes it was grounded on.
type Response struct {
	Answer      string
	SourceNodes []models.ScoredNode
}

func (r *Response) String() string {
	return r.Answer
}

// Sources returns the distinct source identifiers of the retrieved nodes, in
// retrieval order.
func (r *Response) Sources() []string {
	var sources []string
	seen := make(map[string]bool)

	for _, node := range r.SourceNodes {
		if !seen[node.Source] {
			sources = append(sources, node.Source)
			seen[node.Source] = true
		}
	}
	return sources
}

type options struct {
	topK           int
	chatMode       string
	systemTemplate string
	contextFormat  string
	callOpts       []llms.CallOption
}

type Option func(*options)

func WithTopK(k int) Option {
	return func(o *options) {
		if k > 0 {
			o.topK = k
		}
	}
}

func WithChatMode(mode string) Option {
	return func(o *options) { o.chatMode = mode }
}

func WithSystemTemplate(tmpl string) Option {
	return func(o *options) { o.systemTemplate = tmpl }
}

func WithCallOptions(opts ...llms.CallOption) Option {
	return func(o *options) { o.callOpts = append(o.callOpts, opts...) }
}

func defaultOptions() options {
	return options{
		topK:           5,
		chatMode:       ChatModeCondenseQuestion,
		systemTemplate: defaultSystemTemplate,
		contextFormat:  defaultContextFormat,
	}
}

// buildContext renders retrieved nodes into the source-attributed block fed
// to the model.
func buildContext(nodes []models.ScoredNode) string {
	var contextBuilder strings.Builder
	for _, node := range nodes {
		contextBuilder.WriteString(fmt.Sprintf("Source: %s\n%s\n\n", node.Source, node.Text))
	}
	return contextBuilder.String()
}

func responseText(resp *llms.ContentResponse) string {
	if resp == nil || len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Content
}
