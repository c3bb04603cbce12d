// Package tools defines the [Tool] type and the [Set] registry used by the
// agent loop. Each built-in tool package exports a constructor returning a
// slice of Tool values ready for registration with a Set.
//
// A Tool declares its parameters as an ordered list of primitive-typed
// [Param] values. The Set derives a JSON Schema from them, offers it to the
// model, and validates every invocation against it before the handler runs,
// so handlers may assume their arguments are present and well-typed.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/tiaan720/generic-agent-app/pkg/provider/llm"
)

// ParamType is the primitive type tag of a tool parameter.
type ParamType string

const (
	TypeInt   ParamType = "int"
	TypeStr   ParamType = "str"
	TypeFloat ParamType = "float"
	TypeBool  ParamType = "bool"
)

// IsValid reports whether t is a recognised parameter type.
func (t ParamType) IsValid() bool {
	switch t {
	case TypeInt, TypeStr, TypeFloat, TypeBool:
		return true
	}
	return false
}

// jsonType maps t onto its JSON Schema type keyword.
func (t ParamType) jsonType() string {
	switch t {
	case TypeInt:
		return "integer"
	case TypeFloat:
		return "number"
	case TypeBool:
		return "boolean"
	default:
		return "string"
	}
}

// Param describes one required tool parameter.
type Param struct {
	Name        string
	Type        ParamType
	Description string
}

// Handler executes a tool with validated arguments and returns its result
// as text. Implementations must be safe for concurrent use.
type Handler func(ctx context.Context, args Args) (string, error)

// Tool is a named, schema-described function the model may call.
//
// Definition.Parameters may be left nil; [Set.Register] derives it from
// Params.
type Tool struct {
	// Definition is the tool's model-facing name, description, and JSON
	// Schema parameter specification.
	Definition llm.ToolDefinition

	// Params lists the tool's parameters in declaration order. Every
	// parameter is required and no others are accepted.
	Params []Param

	// Icon is a frontend icon name (e.g. "Calculator").
	Icon string

	// Handler is invoked by [Set.Invoke] after argument validation.
	Handler Handler
}

// Name returns the tool's registered name.
func (t Tool) Name() string { return t.Definition.Name }

// ParamSummary returns the parameters as an insertion-ordered
// {name: type} map, e.g. {"a": "int", "b": "int"}.
func (t Tool) ParamSummary() *orderedmap.OrderedMap[string, string] {
	om := orderedmap.New[string, string](orderedmap.WithCapacity[string, string](len(t.Params)))
	for _, p := range t.Params {
		om.Set(p.Name, string(p.Type))
	}
	return om
}

// ErrBadArgument is wrapped by the [Args] accessors when a value has the
// wrong type or does not fit. [Set.Invoke] reports handler errors wrapping it
// as [*InvalidArgumentsError].
var ErrBadArgument = errors.New("tools: bad argument")

// Args holds validated tool arguments. Numbers decoded by [Set.Invoke] are
// [json.Number] values so integers keep every digit.
type Args map[string]any

// BigInt returns the named argument as an exact integer. Integral values in
// decimal or exponent notation are accepted.
func (a Args) BigInt(name string) (*big.Int, error) {
	switch v := a[name].(type) {
	case json.Number:
		s := v.String()
		if !strings.ContainsAny(s, ".eE") {
			if z, ok := new(big.Int).SetString(s, 10); ok {
				return z, nil
			}
			return nil, fmt.Errorf("%w: %q is not an integer", ErrBadArgument, name)
		}
		// Bound the exponent before exact parsing.
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return nil, fmt.Errorf("%w: %q is out of range", ErrBadArgument, name)
		}
		r, ok := new(big.Rat).SetString(s)
		if !ok || !r.IsInt() {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrBadArgument, name)
		}
		return new(big.Int).Set(r.Num()), nil
	case float64:
		if math.IsInf(v, 0) || v != math.Trunc(v) {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrBadArgument, name)
		}
		z, _ := big.NewFloat(v).Int(nil)
		return z, nil
	case int:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("%w: %q is not an integer", ErrBadArgument, name)
	}
}

// Int returns the named argument as an int. Integers outside the int range
// are an error; use [Args.BigInt] for exact arithmetic.
func (a Args) Int(name string) (int, error) {
	z, err := a.BigInt(name)
	if err != nil {
		return 0, err
	}
	if !z.IsInt64() || z.Int64() < math.MinInt || z.Int64() > math.MaxInt {
		return 0, fmt.Errorf("%w: %q is out of range", ErrBadArgument, name)
	}
	return int(z.Int64()), nil
}

// Float returns the named argument as a float64.
func (a Args) Float(name string) (float64, error) {
	switch v := a[name].(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q is out of range", ErrBadArgument, name)
		}
		return f, nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%w: %q is not a number", ErrBadArgument, name)
	}
}

// String returns the named argument as a string.
func (a Args) String(name string) (string, error) {
	s, ok := a[name].(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is not a string", ErrBadArgument, name)
	}
	return s, nil
}

// Bool returns the named argument as a bool.
func (a Args) Bool(name string) (bool, error) {
	b, ok := a[name].(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q is not a boolean", ErrBadArgument, name)
	}
	return b, nil
}
