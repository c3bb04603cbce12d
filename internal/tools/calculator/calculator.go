// Package calculator provides the integer arithmetic tools used by the math
// agent.
//
// Two tools are exported via [Tools]:
//   - "plus_calculator": adds two integers.
//   - "multiply_calculator": multiplies two integers.
//
// Arithmetic is exact for integers of any size. Results are returned as
// decimal strings. Both handlers are pure and safe for concurrent use.
package calculator

import (
	"context"
	"math/big"

	"github.com/tiaan720/generic-agent-app/internal/tools"
	"github.com/tiaan720/generic-agent-app/pkg/provider/llm"
)

// Tool names.
const (
	PlusName     = "plus_calculator"
	MultiplyName = "multiply_calculator"
)

// operands extracts the integer arguments "a" and "b" at full precision.
func operands(args tools.Args) (a, b *big.Int, err error) {
	if a, err = args.BigInt("a"); err != nil {
		return nil, nil, err
	}
	if b, err = args.BigInt("b"); err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func plusHandler(_ context.Context, args tools.Args) (string, error) {
	a, b, err := operands(args)
	if err != nil {
		return "", err
	}
	return new(big.Int).Add(a, b).String(), nil
}

func multiplyHandler(_ context.Context, args tools.Args) (string, error) {
	a, b, err := operands(args)
	if err != nil {
		return "", err
	}
	return new(big.Int).Mul(a, b).String(), nil
}

// Plus returns the "plus_calculator" tool.
func Plus() tools.Tool {
	return tools.Tool{
		Definition: llm.ToolDefinition{
			Name:        PlusName,
			Description: "Add two numbers together",
		},
		Params: []tools.Param{
			{Name: "a", Type: tools.TypeInt, Description: "First number to add"},
			{Name: "b", Type: tools.TypeInt, Description: "Second number to add"},
		},
		Icon:    "Calculator",
		Handler: plusHandler,
	}
}

// Multiply returns the "multiply_calculator" tool.
func Multiply() tools.Tool {
	return tools.Tool{
		Definition: llm.ToolDefinition{
			Name:        MultiplyName,
			Description: "Multiply two numbers together",
		},
		Params: []tools.Param{
			{Name: "a", Type: tools.TypeInt, Description: "First number to multiply"},
			{Name: "b", Type: tools.TypeInt, Description: "Second number to multiply"},
		},
		Icon:    "Calculator",
		Handler: multiplyHandler,
	}
}

// Tools returns both calculator tools in catalog order.
func Tools() []tools.Tool {
	return []tools.Tool{Plus(), Multiply()}
}
