// Package fixture serves a schema from a static JSON document.
//
// The document maps each root operation type name to its root object:
//
//	{"Query": {"me": {"__typename": "User", "name": "alice"}}}
//
// Every field resolves by projecting its parent object, so the same runtime
// answers sync and async fields. Abstract values carry "__typename".
package fixture

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	executor "github.com/hanpama/permgraph/internal/executor"
)

// Runtime is an executor.Runtime over a decoded JSON document.
type Runtime struct {
	roots map[string]any
}

// New returns a runtime over roots.
func New(roots map[string]any) *Runtime {
	if roots == nil {
		roots = map[string]any{}
	}
	return &Runtime{roots: roots}
}

// Load reads the document at path.
func Load(path string) (*Runtime, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var roots map[string]any
	if err := json.Unmarshal(b, &roots); err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	return New(roots), nil
}

func (r *Runtime) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	if source == nil {
		source = r.roots[objectType]
	}
	obj, ok := source.(map[string]any)
	if !ok {
		if source == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("fixture: %s.%s: parent is %T, not an object", objectType, field, source)
	}
	return obj[field], nil
}

func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	out := make([]executor.AsyncResolveResult, len(tasks))
	for i, t := range tasks {
		v, err := r.ResolveSync(ctx, t.ObjectType, t.Field, t.Source, t.Args)
		out[i] = executor.AsyncResolveResult{Value: v, Error: err}
	}
	return out
}

func (r *Runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	if obj, ok := value.(map[string]any); ok {
		if name, ok := obj["__typename"].(string); ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("fixture: cannot resolve concrete type of %s value", abstractType)
}

// SerializeLeafValue coerces decoded JSON numbers for the builtin scalars.
// Custom scalars and enums pass through.
func (r *Runtime) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	switch typeName {
	case "Int":
		f, ok := value.(float64)
		if !ok || f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
			return nil, fmt.Errorf("fixture: Int cannot represent %v", value)
		}
		return int32(f), nil
	case "Float":
		if _, ok := value.(float64); !ok {
			return nil, fmt.Errorf("fixture: Float cannot represent %v", value)
		}
		return value, nil
	case "String":
		if _, ok := value.(string); !ok {
			return nil, fmt.Errorf("fixture: String cannot represent %v", value)
		}
		return value, nil
	case "Boolean":
		if _, ok := value.(bool); !ok {
			return nil, fmt.Errorf("fixture: Boolean cannot represent %v", value)
		}
		return value, nil
	case "ID":
		switch v := value.(type) {
		case string:
			return v, nil
		case float64:
			if v == math.Trunc(v) {
				return fmt.Sprintf("%d", int64(v)), nil
			}
		}
		return nil, fmt.Errorf("fixture: ID cannot represent %v", value)
	}
	return value, nil
}

var _ executor.Runtime = (*Runtime)(nil)
