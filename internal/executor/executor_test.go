package executor_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	executor "github.com/hanpama/permgraph/internal/executor"
	language "github.com/hanpama/permgraph/internal/language"
	schema "github.com/hanpama/permgraph/internal/schema"
)

func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

func newQuerySchema(fields ...*schema.Field) *schema.Schema {
	query := schema.NewType("Query", schema.TypeKindObject, "")
	for _, f := range fields {
		query.AddField(f)
	}
	return schema.NewSchema("").
		SetQueryType("Query").
		AddType(query).
		AddType(schema.NewType("String", schema.TypeKindScalar, ""))
}

func TestRouting_SyncVsAsync(t *testing.T) {
	sch := newQuerySchema(
		schema.NewField("a", "", schema.NamedType("String")),
		schema.NewField("b", "", schema.NamedType("String")).SetAsync(true),
		schema.NewField("c", "", schema.NamedType("String")).SetAsync(true),
	)
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.a": executor.NewMockValueResolver("A"),
		"Query.b": executor.NewMockValueResolver("B"),
		"Query.c": executor.NewMockValueResolver("C"),
	})

	got := executor.NewExecutor(rt, sch).ExecuteRequest(context.Background(), mustParseQuery(t, "{ a b c }"), "", nil, nil)

	want := &executor.ExecutionResult{
		Data:   map[string]any{"a": "A", "b": "B", "c": "C"},
		Errors: []executor.GraphQLError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
	wantCalls := []executor.Call{
		{Kind: "sync", ObjectType: "Query", Field: "a", Args: map[string]any{}},
		{Kind: "async", ObjectType: "Query", Field: "b", Args: map[string]any{}, BatchID: 1},
		{Kind: "async", ObjectType: "Query", Field: "c", Args: map[string]any{}, BatchID: 1},
	}
	if diff := cmp.Diff(wantCalls, rt.GetCalls()); diff != "" {
		t.Fatalf("Runtime calls mismatch (-want +got):\n%s", diff)
	}
}

func TestErrors_KeepExtensions(t *testing.T) {
	denied := executor.GraphQLError{Message: "no", Extensions: map[string]any{"code": "FORBIDDEN"}}
	sch := newQuerySchema(
		schema.NewField("sync", "", schema.NamedType("String")),
		schema.NewField("async", "", schema.NamedType("String")).SetAsync(true),
		schema.NewField("wrapped", "", schema.NamedType("String")),
		schema.NewField("plain", "", schema.NamedType("String")),
	)
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.sync":    executor.NewMockErrorResolver(denied),
		"Query.async":   executor.NewMockErrorResolver(&denied),
		"Query.wrapped": executor.NewMockErrorResolver(fmt.Errorf("gate: %w", denied)),
		"Query.plain":   executor.NewMockErrorResolver(fmt.Errorf("boom")),
	})

	got := executor.NewExecutor(rt, sch).ExecuteRequest(context.Background(), mustParseQuery(t, "{ sync async wrapped plain }"), "", nil, nil)

	want := &executor.ExecutionResult{
		Data: map[string]any{"sync": nil, "async": nil, "wrapped": nil, "plain": nil},
		Errors: []executor.GraphQLError{
			{Message: "no", Path: executor.Path{"sync"}, Extensions: map[string]any{"code": "FORBIDDEN"}},
			{Message: "gate: no", Path: executor.Path{"wrapped"}, Extensions: map[string]any{"code": "FORBIDDEN"}},
			{Message: "boom", Path: executor.Path{"plain"}},
			{Message: "no", Path: executor.Path{"async"}, Extensions: map[string]any{"code": "FORBIDDEN"}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestErrors_NonNullPropagatesToRoot(t *testing.T) {
	obj := schema.NewType("Obj", schema.TypeKindObject, "").
		AddField(schema.NewField("a", "", schema.NonNullType(schema.NamedType("String"))))
	sch := newQuerySchema(
		schema.NewField("obj", "", schema.NamedType("Obj")).SetAsync(true),
		schema.NewField("other", "", schema.NamedType("String")),
	).AddType(obj)
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.obj":   executor.NewMockValueResolver(map[string]any{}),
		"Obj.a":       executor.NewMockErrorResolver(fmt.Errorf("boom")),
		"Query.other": executor.NewMockValueResolver("ok"),
	})

	got := executor.NewExecutor(rt, sch).ExecuteRequest(context.Background(), mustParseQuery(t, "{ obj { a } other }"), "", nil, nil)

	want := &executor.ExecutionResult{
		Data:   map[string]any{"obj": nil, "other": "ok"},
		Errors: []executor.GraphQLError{{Message: "boom", Path: executor.Path{"obj", "a"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestAsGraphQLError(t *testing.T) {
	ge := executor.GraphQLError{Message: "x"}
	for _, err := range []error{ge, &ge, fmt.Errorf("wrap: %w", ge), fmt.Errorf("wrap: %w", &ge)} {
		got, ok := executor.AsGraphQLError(err)
		if !ok || got.Message != "x" {
			t.Fatalf("AsGraphQLError(%v) = %v, %v", err, got, ok)
		}
	}
	if _, ok := executor.AsGraphQLError(fmt.Errorf("plain")); ok {
		t.Fatalf("plain error should not match")
	}
}

func TestFragments_AbstractTypeConditions(t *testing.T) {
	sch, err := schema.BuildFromSDL(`
interface Node { id: ID! }
type User implements Node { id: ID! name: String }
type Team { title: String }
union Member = User | Team
type Query { node: Node members: [Member!]! }
`)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.node": executor.NewMockValueResolver(map[string]any{"__typename": "User"}),
		"Query.members": executor.NewMockValueResolver([]any{
			map[string]any{"__typename": "User"},
			map[string]any{"__typename": "Team"},
		}),
		"User.id":    executor.NewMockValueResolver("u-1"),
		"User.name":  executor.NewMockValueResolver("alice"),
		"Team.title": executor.NewMockValueResolver("core"),
	})
	query := `
{
  node { ...NodeID ... on User { name } }
  members { ... on Node { id } ... on Team { title } }
}
fragment NodeID on Node { id }
`
	got := executor.NewExecutor(rt, sch).ExecuteRequest(context.Background(), mustParseQuery(t, query), "", nil, nil)

	want := &executor.ExecutionResult{
		Data: map[string]any{
			"node":    map[string]any{"id": "u-1", "name": "alice"},
			"members": []any{map[string]any{"id": "u-1"}, map[string]any{"title": "core"}},
		},
		Errors: []executor.GraphQLError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}
