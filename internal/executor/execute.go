package executor

import (
	"context"
	"fmt"

	language "github.com/hanpama/permgraph/internal/language"
	schema "github.com/hanpama/permgraph/internal/schema"
)

type Executor struct {
	runtime Runtime
	schema  *schema.Schema
}

func NewExecutor(runtime Runtime, schema *schema.Schema) *Executor {
	return &Executor{runtime: runtime, schema: schema}
}

// execution is the state of a single request.
type execution struct {
	ctx     context.Context
	runtime Runtime
	schema  *schema.Schema
	doc     *language.QueryDocument
	vars    map[string]any

	errors  []GraphQLError
	errorAt map[string]struct{}
	pending []*pendingField
}

// ExecuteRequest runs operationName (or the only operation) of document.
// Synchronous fields complete in place; asynchronous ones are resolved one
// depth at a time until none remain.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) *ExecutionResult {
	op, err := selectOperation(document, operationName)
	if err != nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: err.Error()}}}
	}
	vars, err := coerceVariableValues(e.schema, op, variableValues)
	if err != nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: err.Error()}}}
	}
	root, err := rootType(e.schema, op.Operation)
	if err != nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: err.Error()}}}
	}

	ex := &execution{
		ctx:     ctx,
		runtime: e.runtime,
		schema:  e.schema,
		doc:     document,
		vars:    vars,
		errors:  []GraphQLError{},
		errorAt: make(map[string]struct{}),
	}
	data := ex.executeFields(root, op.SelectionSet, initialValue, Path{}, nil)
	if data == nil {
		data = map[string]any{}
	}
	for len(ex.pending) > 0 {
		ex.flush(data)
	}
	return &ExecutionResult{Data: data, Errors: ex.errors}
}

func selectOperation(doc *language.QueryDocument, name string) (*language.OperationDefinition, error) {
	if name == "" {
		if len(doc.Operations) == 1 {
			return doc.Operations[0], nil
		}
		return nil, fmt.Errorf("operation name is required when the document has %d operations", len(doc.Operations))
	}
	if op := doc.Operations.ForName(name); op != nil {
		return op, nil
	}
	return nil, fmt.Errorf("operation %q not found", name)
}

func rootType(sch *schema.Schema, op language.Operation) (*schema.Type, error) {
	t := sch.Root(string(op))
	if t == nil {
		return nil, fmt.Errorf("schema has no root type for %s operations", op)
	}
	return t, nil
}

// executeFields resolves one selection set on objectType. boundary is the
// path nulled when a non-null descendant fails; nil at the root, where each
// field is its own boundary. A nil map means the object itself is null.
func (ex *execution) executeFields(objectType *schema.Type, sel language.SelectionSet, source any, path, boundary Path) map[string]any {
	out := make(map[string]any)
	for _, group := range ex.collectFields(objectType, sel) {
		fieldPath := path.With(group.responseName)
		first := group.fields[0]

		if first.Name == "__typename" {
			out[group.responseName] = objectType.Name
			continue
		}
		def := objectType.Field(first.Name)
		if def == nil {
			ex.addError(fmt.Sprintf("Cannot query field %q on type %q", first.Name, objectType.Name), fieldPath)
			continue
		}

		fieldBoundary := boundary
		if boundary == nil || !def.Type.IsNonNull() {
			fieldBoundary = fieldPath
		}
		args, argsOK := ex.coerceArguments(def, first.Arguments, fieldPath)
		if !argsOK {
			if def.Type.IsNonNull() && boundary != nil {
				return nil
			}
			out[group.responseName] = nil
			continue
		}

		if def.Async {
			ex.pending = append(ex.pending, &pendingField{
				task:     AsyncResolveTask{ObjectType: objectType.Name, Field: first.Name, Source: source, Args: args},
				path:     fieldPath,
				boundary: fieldBoundary,
				typ:      def.Type,
				fields:   group.fields,
			})
			out[group.responseName] = nil
			continue
		}

		value, err := ex.runtime.ResolveSync(ex.ctx, objectType.Name, first.Name, source, args)
		if err != nil {
			ex.addLocated(err, fieldPath)
			value = nil
		}
		completed := ex.completeValue(def.Type, group.fields, value, fieldPath, fieldBoundary)
		if completed == nil && def.Type.IsNonNull() && boundary != nil {
			return nil
		}
		out[group.responseName] = completed
	}
	return out
}

func (ex *execution) addError(message string, path Path) {
	ex.errors = append(ex.errors, GraphQLError{Message: message, Path: path})
	ex.errorAt[path.String()] = struct{}{}
}

func (ex *execution) addLocated(err error, path Path) {
	ex.errors = append(ex.errors, locatedError(err, path))
	ex.errorAt[path.String()] = struct{}{}
}

func (ex *execution) hasErrorAt(path Path) bool {
	_, ok := ex.errorAt[path.String()]
	return ok
}
