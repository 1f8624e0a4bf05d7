package executor

import (
	"context"
)

// Runtime is the host integration surface the Executor resolves fields
// through.
//
// Contract
//   - At each depth the Executor drains synchronous fields via ResolveSync, then
//     calls BatchResolveAsync once with every async task collected at that
//     depth. ResolveSync is never called for fields marked Async.
//   - BatchResolveAsync returns exactly one result per task, in task order.
//     Results are independent; one failure does not fail the batch.
//   - Returned errors become located GraphQL errors. An error that is (or
//     wraps) a GraphQLError keeps its Message and Extensions.
//   - Implementations must be safe for concurrent use across operations and
//     must not mutate source or args.
//
// Runtimes compose: a wrapper (such as a permission gate) implements Runtime
// and delegates to the Runtime it wraps.
type Runtime interface {
	// ResolveSync resolves a synchronous field value immediately.
	// Return (nil, nil) to produce a GraphQL null for nullable fields.
	ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error)

	// BatchResolveAsync resolves one execution depth of async field tasks.
	BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult

	// ResolveType returns the concrete object type name for a value of an
	// interface or union type.
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// SerializeLeafValue serializes a scalar or enum value to a JSON-safe Go
	// value. Enums serialize to their name.
	SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error)
}

type AsyncResolveTask struct {
	// ObjectType is the parent GraphQL object type name for the field.
	ObjectType string
	// Field is the GraphQL field name to resolve.
	Field string
	// Source is the parent object value (nil for root fields).
	Source any
	// Args are the field arguments, coerced to Go values per the schema.
	Args map[string]any
}

type AsyncResolveResult struct {
	// Value is the resolved raw value prior to completion, or nil on error.
	Value any
	// Error contains a failure specific to this element; other elements in the
	// same batch are unaffected.
	Error error
}
