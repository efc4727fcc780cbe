package agent

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/agents"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"
)

type AgentConfig struct {
	MaxIterations int
	Tools         []tools.Tool
}

// ReActAgent wraps a zero-shot ReAct executor over a toolset. The model
// reasons step by step, calling tools until it can answer.
type ReActAgent struct {
	executor chains.Chain
}

func NewWithConfig(model llms.Model, config AgentConfig) (*ReActAgent, error) {
	if model == nil {
		return nil, fmt.Errorf("an LLM is required")
	}
	if config.MaxIterations == 0 {
		config.MaxIterations = 10
	}
	if len(config.Tools) == 0 {
		config.Tools = NewCalculatorTools()
	}

	executor, err := agents.Initialize(
		model,
		config.Tools,
		agents.ZeroShotReactDescription,
		agents.WithMaxIterations(config.MaxIterations),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize agent: %w", err)
	}

	return &ReActAgent{executor: executor}, nil
}

func New(model llms.Model) (*ReActAgent, error) {
	return NewWithConfig(model, AgentConfig{})
}

// Run executes one agent task to completion and returns its final answer.
func (a *ReActAgent) Run(ctx context.Context, input string) (string, error) {
	answer, err := chains.Run(ctx, a.executor, input)
	if err != nil {
		return "", fmt.Errorf("agent run failed: %w", err)
	}
	return answer, nil
}
