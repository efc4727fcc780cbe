package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/tools"
)

func TestCalculatorTools(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		tool     tools.Tool
		input    string
		expected string
	}{
		{AddTool{}, "2, 3", "5"},
		{AddTool{}, "2.5 1.5", "4"},
		{SubtractTool{}, "20, 8", "12"},
		{MultiplyTool{}, "2, 4", "8"},
		{DivideTool{}, "8, 4", "2"},
		{DivideTool{}, "5, 2", "2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.tool.Name()+" "+tt.input, func(t *testing.T) {
			result, err := tt.tool.Call(ctx, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestDivideByZero(t *testing.T) {
	result, err := DivideTool{}.Call(context.Background(), "5, 0")
	require.NoError(t, err)
	assert.Contains(t, result, "division by zero")
}

func TestBadOperands(t *testing.T) {
	tests := []string{
		"",
		"one, two",
		"1",
		"1, 2, 3",
	}

	for _, input := range tests {
		t.Run("input "+input, func(t *testing.T) {
			result, err := AddTool{}.Call(context.Background(), input)
			require.NoError(t, err)
			assert.Contains(t, result, "error")
		})
	}
}

func TestNewCalculatorTools(t *testing.T) {
	toolset := NewCalculatorTools()
	require.Len(t, toolset, 4)

	names := make(map[string]bool)
	for _, tool := range toolset {
		assert.NotEmpty(t, tool.Description())
		names[tool.Name()] = true
	}
	assert.True(t, names["add"])
	assert.True(t, names["subtract"])
	assert.True(t, names["multiply"])
	assert.True(t, names["divide"])
}
