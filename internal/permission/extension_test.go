package permission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	executor "github.com/hanpama/permgraph/internal/executor"
	future "github.com/hanpama/permgraph/internal/future"
	schema "github.com/hanpama/permgraph/internal/schema"
)

// recorder logs the order of checks and resolver calls.
type recorder struct{ calls []string }

func (r *recorder) perm(name string, result bool, opts ...Option) *Permission {
	return New(name, func(context.Context, any, map[string]any) (bool, error) {
		r.calls = append(r.calls, name)
		return result, nil
	}, opts...)
}

func (r *recorder) asyncPerm(name string, result bool) *Permission {
	return NewAsync(name, func(ctx context.Context, _ any, _ map[string]any) *future.Future[bool] {
		r.calls = append(r.calls, name)
		return future.Go(ctx, func(context.Context) (bool, error) {
			time.Sleep(time.Millisecond)
			return result, nil
		})
	})
}

func (r *recorder) next(v any) SyncResolver {
	return func(context.Context, any, map[string]any) (any, error) {
		r.calls = append(r.calls, "next")
		return v, nil
	}
}

func (r *recorder) nextAsync(v any) AsyncResolver {
	return func(ctx context.Context, _ any, _ map[string]any) future.Maybe[any] {
		r.calls = append(r.calls, "next")
		return future.Pending(future.Resolved(v, nil))
	}
}

func scalarField() *schema.Field {
	return schema.NewField("secret", "", schema.NamedType("String"))
}

func applied(t *testing.T, ext *Extension, f *schema.Field) *Extension {
	t.Helper()
	require.NoError(t, ext.Apply(f))
	return ext
}

func TestResolveSync_StopsAtFirstDenial(t *testing.T) {
	for k := 0; k < 4; k++ {
		t.Run(fmt.Sprintf("deny_at_%d", k), func(t *testing.T) {
			r := &recorder{}
			var perms []*Permission
			var want []string
			for i := 0; i < 4; i++ {
				name := fmt.Sprintf("P%d", i)
				perms = append(perms, r.perm(name, i != k))
				if i <= k {
					want = append(want, name)
				}
			}
			ext := applied(t, NewExtension(perms), scalarField())

			_, err := ext.ResolveSync(context.Background(), r.next("v"), nil, nil)
			require.Error(t, err)
			assert.Equal(t, want, r.calls)
		})
	}
}

func TestResolveSync_DeniedRaisesMessage(t *testing.T) {
	r := &recorder{}
	ext := applied(t, NewExtension([]*Permission{
		r.perm("A", true),
		r.perm("B", false, WithMessage("no")),
	}), scalarField())

	v, err := ext.ResolveSync(context.Background(), r.next("v"), nil, nil)
	assert.Nil(t, v)
	assert.Equal(t, executor.GraphQLError{Message: "no"}, err)
	assert.Equal(t, []string{"A", "B"}, r.calls)
}

func TestResolveSync_AllPass(t *testing.T) {
	r := &recorder{}
	ext := applied(t, NewExtension([]*Permission{r.perm("A", true), r.perm("B", true)}), scalarField())

	v, err := ext.ResolveSync(context.Background(), r.next("v"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "v", v)
	assert.Equal(t, []string{"A", "B", "next"}, r.calls)
}

func TestResolveSync_FailSilentlyOptionalScalar(t *testing.T) {
	r := &recorder{}
	ext := applied(t, NewExtension([]*Permission{
		r.perm("A", true),
		r.perm("B", false, WithMessage("no")),
	}, FailSilently()), scalarField())

	v, err := ext.ResolveSync(context.Background(), r.next("v"), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, EmptyNone, ext.EmptyValue())
	assert.Equal(t, []string{"A", "B"}, r.calls)
}

func TestFailSilently_ListShapes(t *testing.T) {
	shapes := map[string]*schema.TypeRef{
		"[String]":   schema.ListType(schema.NamedType("String")),
		"[String]!":  schema.NonNullType(schema.ListType(schema.NamedType("String"))),
		"[String!]!": schema.NonNullType(schema.ListType(schema.NonNullType(schema.NamedType("String")))),
	}
	for name, typ := range shapes {
		t.Run(name, func(t *testing.T) {
			r := &recorder{}
			ext := applied(t, NewExtension([]*Permission{r.perm("A", false)}, FailSilently()),
				schema.NewField("items", "", typ))

			v, err := ext.ResolveSync(context.Background(), r.next([]any{"x"}), nil, nil)
			require.NoError(t, err)
			assert.Equal(t, []any{}, v)
			assert.Equal(t, EmptyList, ext.EmptyValue())

			v, err = ext.ResolveAsync(context.Background(), r.nextAsync([]any{"x"}), nil, nil)
			require.NoError(t, err)
			assert.Equal(t, []any{}, v)
		})
	}
}

func TestFailSilently_NonNullScalarRejected(t *testing.T) {
	r := &recorder{}
	f := schema.NewField("secret", "", schema.NonNullType(schema.NamedType("String")))
	err := NewExtension([]*Permission{r.perm("C", false)}, FailSilently()).Apply(f)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "secret", cfgErr.Field)
	assert.Equal(t, "String!", cfgErr.TypeRef)
	assert.Empty(t, r.calls)
	assert.Empty(t, f.Directives)
}

func TestApply_DedupesDirectivesByIdentity(t *testing.T) {
	a := New("A", allow)
	b := New("B", allow)
	f := scalarField().AddDirective(a.Directive())

	applied(t, NewExtension([]*Permission{a, b, a, b}), f)

	require.Len(t, f.Directives, 2)
	assert.Same(t, a.Directive(), f.Directives[0])
	assert.Same(t, b.Directive(), f.Directives[1])
}

func TestApply_SameKindDifferentInstances(t *testing.T) {
	f := scalarField()
	applied(t, NewExtension([]*Permission{New("IsAdmin", allow), New("IsAdmin", allow)}), f)
	assert.Len(t, f.Directives, 2)
}

func TestApply_WithoutDirectives(t *testing.T) {
	f := scalarField()
	applied(t, NewExtension([]*Permission{New("A", allow)}, UseDirectives(false)), f)
	assert.Empty(t, f.Directives)
}

func TestApply_MarksAsyncWhenAnyCheckIsAsync(t *testing.T) {
	r := &recorder{}
	syncOnly := scalarField()
	applied(t, NewExtension([]*Permission{r.perm("A", true)}), syncOnly)
	assert.False(t, syncOnly.Async)

	mixed := scalarField()
	applied(t, NewExtension([]*Permission{r.perm("A", true), r.asyncPerm("D", true)}), mixed)
	assert.True(t, mixed.Async)
}

func TestSupportsSync(t *testing.T) {
	r := &recorder{}
	cases := []struct {
		name  string
		perms []*Permission
		want  bool
	}{
		{"empty", nil, true},
		{"sync", []*Permission{r.perm("A", true), r.perm("B", true)}, true},
		{"async", []*Permission{r.asyncPerm("D", true)}, false},
		{"mixed", []*Permission{r.perm("A", true), r.asyncPerm("D", true)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ext := NewExtension(tc.perms)
			for i := 0; i < 3; i++ {
				assert.Equal(t, tc.want, ext.SupportsSync())
			}
		})
	}
}

func TestEmptyPermissions_DelegateStraightToNext(t *testing.T) {
	r := &recorder{}
	ext := applied(t, NewExtension(nil, FailSilently()), scalarField())
	assert.True(t, ext.SupportsSync())

	v, err := ext.ResolveSync(context.Background(), r.next("v"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	v, err = ext.ResolveAsync(context.Background(), r.nextAsync("w"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "w", v)
	assert.Equal(t, []string{"next", "next"}, r.calls)
}

func TestResolveAsync_AwaitsCheckThenNext(t *testing.T) {
	r := &recorder{}
	f := scalarField()
	ext := applied(t, NewExtension([]*Permission{r.asyncPerm("D", true)}), f)
	assert.False(t, ext.SupportsSync())
	assert.True(t, f.Async)

	v, err := ext.ResolveAsync(context.Background(), r.nextAsync("v"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "v", v)
	assert.Equal(t, []string{"D", "next"}, r.calls)
}

func TestResolveAsync_StopsAtFirstDenial(t *testing.T) {
	r := &recorder{}
	ext := applied(t, NewExtension([]*Permission{
		r.perm("A", true),
		r.asyncPerm("D", false),
		r.perm("B", true),
	}), scalarField())

	_, err := ext.ResolveAsync(context.Background(), r.nextAsync("v"), nil, nil)
	require.Error(t, err)
	assert.Equal(t, []string{"A", "D"}, r.calls)
}

type countingStream struct{ received int }

func (s *countingStream) Recv(context.Context) (any, error) {
	s.received++
	return nil, io.EOF
}

func TestResolveAsync_StreamReturnedUnconsumed(t *testing.T) {
	r := &recorder{}
	ext := applied(t, NewExtension([]*Permission{r.asyncPerm("D", true)}), scalarField())
	stream := &countingStream{}

	v, err := ext.ResolveAsync(context.Background(), func(context.Context, any, map[string]any) future.Maybe[any] {
		return future.Ready[any](stream, nil)
	}, nil, nil)
	require.NoError(t, err)
	assert.Same(t, stream, v)
	assert.Zero(t, stream.received)
}

func TestResolveSync_AwaitsPendingCheck(t *testing.T) {
	r := &recorder{}
	ext := applied(t, NewExtension([]*Permission{r.asyncPerm("D", true)}), scalarField())

	v, err := ext.ResolveSync(context.Background(), r.next("v"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestCheckError_Propagates(t *testing.T) {
	boom := errors.New("store unavailable")
	p := New("P", func(context.Context, any, map[string]any) (bool, error) { return false, boom })
	r := &recorder{}
	ext := applied(t, NewExtension([]*Permission{p}, FailSilently()), scalarField())

	_, err := ext.ResolveSync(context.Background(), r.next("v"), nil, nil)
	assert.Same(t, boom, err)
	assert.Empty(t, r.calls)
}

func TestResolveAsync_ContextCancelled(t *testing.T) {
	p := NewAsync("Slow", func(context.Context, any, map[string]any) *future.Future[bool] {
		f, _ := future.New[bool]()
		return f
	})
	r := &recorder{}
	ext := applied(t, NewExtension([]*Permission{p}), scalarField())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := ext.ResolveAsync(ctx, r.nextAsync("v"), nil, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, r.calls)
}
