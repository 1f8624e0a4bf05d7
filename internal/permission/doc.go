// Package permission gates GraphQL field resolution behind ordered
// permission checks.
//
// # Permissions
//
// A Permission is one authorization check plus its denial behaviour. Its
// check mode is declared when it is constructed:
//
//   - New builds a synchronous permission; the check runs inline.
//   - NewAsync builds an asynchronous permission; the check returns a
//     future.Future that the gate awaits.
//
// On denial the default behaviour builds an error with the configured
// ErrorFactory (NewAuthorizationError unless overridden), merges the
// permission's error extensions into it, and returns it. WithOnUnauthorized
// replaces that behaviour entirely.
//
// Each Permission advertises itself on the schema through a directive named
// after the permission. The directive is created lazily and memoized per
// Permission instance: two instances with the same name produce two distinct
// directive objects. Apply attaches both, which prints the directive twice;
// Guard.Protect refuses such a field while directives are in use.
//
// # Extensions
//
// An Extension orchestrates the permissions of one field:
//
//	ext := permission.NewExtension([]*permission.Permission{isAuthenticated, isOwner},
//		permission.FailSilently())
//
// Apply runs once at schema-build time. It rejects FailSilently on a
// Non-Null, non-list field with a ConfigurationError before touching the
// field. Otherwise it fixes the empty value returned on a silent denial (nil
// for a nullable field, an empty list for a list field) and attaches
// directives, deduplicated by identity in first-seen order.
//
// At request time ResolveSync and ResolveAsync evaluate permissions strictly
// in declared order and stop at the first denial; the wrapped resolver runs
// only when every check passes. An error returned by a check itself
// propagates unchanged.
//
// SupportsSync reports whether every permission is synchronous. Apply marks
// the field Async when it is not, so the executor never drives a suspending
// check through its synchronous path.
//
// # Guard
//
// Guard wraps an executor.Runtime and applies the Extension registered for a
// field around the wrapped runtime's resolution. Gated async fields of one
// depth are checked concurrently; the fields that pass are forwarded to the
// wrapped runtime in a single batch.
package permission
