package executor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	executor "github.com/hanpama/permgraph/internal/executor"
	schema "github.com/hanpama/permgraph/internal/schema"
)

func str() *schema.TypeRef { return schema.NamedType("String") }

func TestNonNull_AsyncNullsNearestNullableAncestor(t *testing.T) {
	user := schema.NewType("User", schema.TypeKindObject, "").
		AddField(schema.NewField("name", "", schema.NonNullType(str())).SetAsync(true)).
		AddField(schema.NewField("email", "", str()).SetAsync(true))
	sch := newQuerySchema(
		schema.NewField("user", "", schema.NamedType("User")),
		schema.NewField("ok", "", str()),
	).AddType(user)
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.user": executor.NewMockValueResolver(map[string]any{"id": 1}),
		"Query.ok":   executor.NewMockValueResolver("yes"),
		"User.name":  executor.NewMockErrorResolver(errors.New("denied")),
		"User.email": executor.NewMockValueResolver("a@example.com"),
	})

	got := executor.NewExecutor(rt, sch).ExecuteRequest(context.Background(),
		mustParseQuery(t, "{ user { name email } ok }"), "", nil, nil)

	want := &executor.ExecutionResult{
		Data:   map[string]any{"user": nil, "ok": "yes"},
		Errors: []executor.GraphQLError{{Message: "denied", Path: executor.Path{"user", "name"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestNonNull_DropsTasksUnderNulledParent(t *testing.T) {
	a := schema.NewType("A", schema.TypeKindObject, "").
		AddField(schema.NewField("slow", "", schema.NamedType("B")).SetAsync(true)).
		AddField(schema.NewField("bad", "", schema.NonNullType(str())).SetAsync(true))
	b := schema.NewType("B", schema.TypeKindObject, "").
		AddField(schema.NewField("x", "", str()).SetAsync(true))
	sch := newQuerySchema(schema.NewField("a", "", schema.NamedType("A"))).AddType(a).AddType(b)
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.a": executor.NewMockValueResolver(map[string]any{}),
		"A.slow":  executor.NewMockValueResolver(map[string]any{}),
		"A.bad":   executor.NewMockValueResolver(nil),
		"B.x":     executor.NewMockValueResolver("never"),
	})

	got := executor.NewExecutor(rt, sch).ExecuteRequest(context.Background(),
		mustParseQuery(t, "{ a { slow { x } bad } }"), "", nil, nil)

	assert.Equal(t, map[string]any{"a": nil}, got.Data)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "Cannot return null for non-nullable field a.bad", got.Errors[0].Message)

	for _, c := range rt.GetCalls() {
		assert.NotEqual(t, "x", c.Field, "task under a nulled parent must not be resolved")
	}
}

func TestNonNull_ListItemNullsList(t *testing.T) {
	sch := newQuerySchema(
		schema.NewField("tags", "", schema.ListType(schema.NonNullType(str()))).SetAsync(true),
		schema.NewField("loose", "", schema.ListType(str())),
	)
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.tags":  executor.NewMockValueResolver([]any{"a", nil}),
		"Query.loose": executor.NewMockValueResolver([]string{"a", "b"}),
	})

	got := executor.NewExecutor(rt, sch).ExecuteRequest(context.Background(),
		mustParseQuery(t, "{ tags loose }"), "", nil, nil)

	assert.Equal(t, map[string]any{"tags": nil, "loose": []any{"a", "b"}}, got.Data)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, executor.Path{"tags", 1}, got.Errors[0].Path)
}

func inputSchema() *schema.Schema {
	order := schema.NewType("Order", schema.TypeKindEnum, "").
		AddEnumValue(schema.NewEnumValue("ASC", "")).
		AddEnumValue(schema.NewEnumValue("DESC", ""))
	filter := schema.NewType("Filter", schema.TypeKindInputObject, "").
		AddInputField(schema.NewInputValue("limit", "", schema.NamedType("Int"))).
		AddInputField(schema.NewInputValue("order", "", schema.NamedType("Order")).SetDefault("ASC"))
	echo := schema.NewField("echo", "", str()).
		AddArgument(schema.NewInputValue("n", "", schema.NonNullType(schema.NamedType("Int")))).
		AddArgument(schema.NewInputValue("tags", "", schema.ListType(schema.NonNullType(str())))).
		AddArgument(schema.NewInputValue("filter", "", schema.NamedType("Filter")))
	return newQuerySchema(echo).
		AddType(schema.NewType("Int", schema.TypeKindScalar, "")).
		AddType(order).
		AddType(filter)
}

func TestArguments_VariablesAndDefaults(t *testing.T) {
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.echo": executor.NewMockValueResolver("ok"),
	})
	doc := mustParseQuery(t, `query Q($n: Int!, $tag: String = "x") { echo(n: $n, tags: $tag, filter: {limit: 3}) }`)

	got := executor.NewExecutor(rt, inputSchema()).ExecuteRequest(context.Background(), doc, "Q",
		map[string]any{"n": float64(2)}, nil)

	assert.Empty(t, got.Errors)
	calls := rt.GetCalls()
	require.Len(t, calls, 1)
	want := map[string]any{
		"n":      2,
		"tags":   []any{"x"},
		"filter": map[string]any{"limit": 3, "order": "ASC"},
	}
	if diff := cmp.Diff(want, calls[0].Args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestArguments_MissingRequiredVariable(t *testing.T) {
	rt := executor.NewMockRuntime(nil)
	doc := mustParseQuery(t, `query Q($n: Int!) { echo(n: $n) }`)

	got := executor.NewExecutor(rt, inputSchema()).ExecuteRequest(context.Background(), doc, "", nil, nil)

	assert.Nil(t, got.Data)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "variable $n of required type Int! was not provided", got.Errors[0].Message)
	assert.Empty(t, rt.GetCalls())
}

func TestOperationSelection(t *testing.T) {
	rt := executor.NewMockRuntime(nil)
	doc := mustParseQuery(t, `query A { echo(n: 1) } query B { echo(n: 2) }`)
	ex := executor.NewExecutor(rt, inputSchema())

	got := ex.ExecuteRequest(context.Background(), doc, "", nil, nil)
	require.Len(t, got.Errors, 1)
	assert.Contains(t, got.Errors[0].Message, "operation name is required")

	got = ex.ExecuteRequest(context.Background(), doc, "C", nil, nil)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, `operation "C" not found`, got.Errors[0].Message)

	got = ex.ExecuteRequest(context.Background(), doc, "B", nil, nil)
	assert.Empty(t, got.Errors)
	assert.Equal(t, 2, rt.GetCalls()[0].Args["n"])
}

func TestDirectives_SkipAndInclude(t *testing.T) {
	sch := newQuerySchema(
		schema.NewField("a", "", str()),
		schema.NewField("b", "", str()),
		schema.NewField("c", "", str()).SetAsync(true),
	).AddType(schema.NewType("Boolean", schema.TypeKindScalar, ""))
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.a": executor.NewMockValueResolver("A"),
		"Query.b": executor.NewMockValueResolver("B"),
		"Query.c": executor.NewMockValueResolver("C"),
	})
	doc := mustParseQuery(t, `query($show: Boolean!) { a @include(if: $show) b @skip(if: true) c }`)

	got := executor.NewExecutor(rt, sch).ExecuteRequest(context.Background(), doc, "",
		map[string]any{"show": false}, nil)

	assert.Equal(t, map[string]any{"c": "C"}, got.Data)
	calls := rt.GetCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "c", calls[0].Field)
}

func TestUnknownField(t *testing.T) {
	sch := newQuerySchema(schema.NewField("a", "", str()))
	got := executor.NewExecutor(executor.NewMockRuntime(nil), sch).ExecuteRequest(context.Background(),
		mustParseQuery(t, "{ a nope }"), "", nil, nil)

	assert.Equal(t, map[string]any{"a": nil}, got.Data)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, `Cannot query field "nope" on type "Query"`, got.Errors[0].Message)
}

func TestPath_String(t *testing.T) {
	assert.Equal(t, "user.friends[0].name", executor.Path{"user", "friends", 0, "name"}.String())
	assert.Equal(t, "", executor.Path{}.String())
	assert.Equal(t, executor.Path{"a"}, executor.Path{"a", 1}.Parent())
}

func TestArguments_InvalidValueSkipsResolver(t *testing.T) {
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.echo": executor.NewMockValueResolver("ok"),
	})

	got := executor.NewExecutor(rt, inputSchema()).ExecuteRequest(context.Background(),
		mustParseQuery(t, `{ echo(n: "x") }`), "", nil, nil)

	assert.Equal(t, map[string]any{"echo": nil}, got.Data)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, executor.Path{"echo"}, got.Errors[0].Path)
	assert.Contains(t, got.Errors[0].Message, `argument "n"`)
	assert.Empty(t, rt.GetCalls())
}
