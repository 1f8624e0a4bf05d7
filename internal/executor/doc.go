// Package executor implements a breadth-first, batch-friendly GraphQL executor.
//
// # Execution Model
//
// Fields are classified by schema.Field.Async:
//
//   - Synchronous fields are resolved immediately through Runtime.ResolveSync
//     and completed in place. Descending through them does not add depth.
//   - Asynchronous fields are queued and resolved once per depth through a
//     single Runtime.BatchResolveAsync call.
//
// For a query with asynchronous depth d, BatchResolveAsync is invoked exactly d
// times.
//
// A field whose permission checks may suspend is marked Async at schema-build
// time, so the synchronous path never has to wait on a pending check.
//
// # Errors and Partial Success
//
// Errors are accumulated as located GraphQLErrors (message, path,
// extensions). A failed nullable field becomes null and execution continues;
// a failed Non-Null field propagates null to the nearest nullable ancestor and
// queued tasks under that path are dropped.
package executor
