package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/tools"
)

// Arithmetic tools for the ReAct agent. Each takes two numbers, separated by
// whitespace or a comma, and returns the result as a string. Bad input and
// division by zero come back as tool observations so the agent can recover.

type AddTool struct{}

func (AddTool) Name() string { return "add" }

func (AddTool) Description() string {
	return "Adds two numbers and returns the sum. Input: two numbers separated by a comma, e.g. \"2, 3\"."
}

func (AddTool) Call(_ context.Context, input string) (string, error) {
	a, b, err := parseOperands(input)
	if err != nil {
		return err.Error(), nil
	}
	return formatNumber(a + b), nil
}

type SubtractTool struct{}

func (SubtractTool) Name() string { return "subtract" }

func (SubtractTool) Description() string {
	return "Subtracts the second number from the first and returns the difference. Input: two numbers separated by a comma."
}

func (SubtractTool) Call(_ context.Context, input string) (string, error) {
	a, b, err := parseOperands(input)
	if err != nil {
		return err.Error(), nil
	}
	return formatNumber(a - b), nil
}

type MultiplyTool struct{}

func (MultiplyTool) Name() string { return "multiply" }

func (MultiplyTool) Description() string {
	return "Multiplies two numbers and returns the product. Input: two numbers separated by a comma."
}

func (MultiplyTool) Call(_ context.Context, input string) (string, error) {
	a, b, err := parseOperands(input)
	if err != nil {
		return err.Error(), nil
	}
	return formatNumber(a * b), nil
}

type DivideTool struct{}

func (DivideTool) Name() string { return "divide" }

func (DivideTool) Description() string {
	return "Divides the first number by the second and returns the quotient. Input: two numbers separated by a comma."
}

func (DivideTool) Call(_ context.Context, input string) (string, error) {
	a, b, err := parseOperands(input)
	if err != nil {
		return err.Error(), nil
	}
	if b == 0 {
		return "error: division by zero", nil
	}
	return formatNumber(a / b), nil
}

// NewCalculatorTools returns the full arithmetic toolset.
func NewCalculatorTools() []tools.Tool {
	return []tools.Tool{
		AddTool{},
		SubtractTool{},
		MultiplyTool{},
		DivideTool{},
	}
}

func parseOperands(input string) (float64, float64, error) {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("error: expected two numbers, got %q", input)
	}

	a, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("error: %q is not a number", fields[0])
	}
	b, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("error: %q is not a number", fields[1])
	}
	return a, b, nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
