package introspection

import (
	"context"
	"fmt"
	"sort"
	"strings"

	executor "github.com/hanpama/permgraph/internal/executor"
	schema "github.com/hanpama/permgraph/internal/schema"
)

// Wrapped pairs a Runtime answering __schema and __type with the schema
// extended by the introspection meta types.
type Wrapped struct {
	Runtime executor.Runtime
	Schema  *schema.Schema
}

// Wrap extends sch with introspection. sch is not modified; directives and
// field protection must be installed on it before wrapping.
func Wrap(base executor.Runtime, sch *schema.Schema) *Wrapped {
	view, exec := extend(sch)
	return &Wrapped{
		Runtime: &runtime{base: base, sch: view},
		Schema:  exec,
	}
}

type runtime struct {
	base executor.Runtime
	sch  *schema.Schema
}

func (r *runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	if source == nil && objectType == r.sch.QueryType {
		switch field {
		case "__schema":
			return r.sch, nil
		case "__type":
			name, _ := args["name"].(string)
			if t, ok := r.sch.Types[name]; ok {
				return t, nil
			}
			return nil, nil
		}
	}

	switch src := source.(type) {
	case *schema.Schema:
		return r.schemaField(src, field)
	case *schema.Type:
		return r.typeField(src, field, args)
	case *schema.TypeRef:
		return r.wrapperField(src, field)
	case *schema.Field:
		return r.fieldField(src, field, args)
	case *schema.InputValue:
		return r.inputValueField(src, field)
	case *schema.EnumValue:
		return enumValueField(src, field)
	case *schema.Directive:
		return r.directiveField(src, field, args)
	}
	return r.base.ResolveSync(ctx, objectType, field, source, args)
}

func (r *runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	return r.base.BatchResolveAsync(ctx, tasks)
}

func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return r.base.ResolveType(ctx, abstractType, value)
}

func (r *runtime) SerializeLeafValue(ctx context.Context, typ string, value any) (any, error) {
	if strings.HasPrefix(typ, "__") {
		return fmt.Sprint(value), nil
	}
	return r.base.SerializeLeafValue(ctx, typ, value)
}

func (r *runtime) schemaField(sch *schema.Schema, field string) (any, error) {
	switch field {
	case "description":
		return optional(sch.Description), nil
	case "types":
		out := make([]any, 0, len(sch.Types))
		for _, name := range sortedKeys(sch.Types) {
			out = append(out, sch.Types[name])
		}
		return out, nil
	case "queryType":
		return r.named(sch.QueryType), nil
	case "mutationType":
		return r.named(sch.MutationType), nil
	case "subscriptionType":
		return r.named(sch.SubscriptionType), nil
	case "directives":
		out := make([]any, 0, len(sch.Directives))
		for _, name := range sortedKeys(sch.Directives) {
			out = append(out, sch.Directives[name])
		}
		return out, nil
	}
	return nil, unknownField("__Schema", field)
}

func (r *runtime) typeField(t *schema.Type, field string, args map[string]any) (any, error) {
	switch field {
	case "kind":
		return t.Kind, nil
	case "name":
		return t.Name, nil
	case "description":
		return optional(t.Description), nil
	case "specifiedByURL":
		if t.SpecifiedByURL == nil {
			return nil, nil
		}
		return *t.SpecifiedByURL, nil
	case "fields":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil, nil
		}
		return visible(t.Fields, args, func(f *schema.Field) bool { return f.IsDeprecated }), nil
	case "interfaces":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil, nil
		}
		return r.namedList(t.Interfaces), nil
	case "possibleTypes":
		if t.Kind != schema.TypeKindInterface && t.Kind != schema.TypeKindUnion {
			return nil, nil
		}
		return r.namedList(t.PossibleTypes), nil
	case "enumValues":
		if t.Kind != schema.TypeKindEnum {
			return nil, nil
		}
		return visible(t.EnumValues, args, func(v *schema.EnumValue) bool { return v.IsDeprecated }), nil
	case "inputFields":
		if t.Kind != schema.TypeKindInputObject {
			return nil, nil
		}
		return visible(t.InputFields, args, func(v *schema.InputValue) bool { return v.IsDeprecated }), nil
	case "ofType":
		return nil, nil
	case "isOneOf":
		if t.Kind != schema.TypeKindInputObject {
			return nil, nil
		}
		return t.OneOf, nil
	}
	return nil, unknownField("__Type", field)
}

// wrapperField resolves __Type fields of a list or non-null wrapper.
func (r *runtime) wrapperField(ref *schema.TypeRef, field string) (any, error) {
	switch field {
	case "kind":
		return ref.Kind, nil
	case "ofType":
		return r.typeOf(ref.OfType), nil
	case "name", "description", "specifiedByURL", "fields", "interfaces",
		"possibleTypes", "enumValues", "inputFields", "isOneOf":
		return nil, nil
	}
	return nil, unknownField("__Type", field)
}

func (r *runtime) fieldField(f *schema.Field, field string, args map[string]any) (any, error) {
	switch field {
	case "name":
		return f.Name, nil
	case "description":
		return optional(f.Description), nil
	case "args":
		return visible(f.Arguments, args, func(v *schema.InputValue) bool { return v.IsDeprecated }), nil
	case "type":
		return r.typeOf(f.Type), nil
	case "isDeprecated":
		return f.IsDeprecated, nil
	case "deprecationReason":
		return deprecationReason(f.IsDeprecated, f.DeprecationReason), nil
	}
	return nil, unknownField("__Field", field)
}

func (r *runtime) inputValueField(v *schema.InputValue, field string) (any, error) {
	switch field {
	case "name":
		return v.Name, nil
	case "description":
		return optional(v.Description), nil
	case "type":
		return r.typeOf(v.Type), nil
	case "defaultValue":
		if v.DefaultValue == nil {
			return nil, nil
		}
		return r.sch.Literal(v.DefaultValue, v.Type), nil
	case "isDeprecated":
		return v.IsDeprecated, nil
	case "deprecationReason":
		return deprecationReason(v.IsDeprecated, v.DeprecationReason), nil
	}
	return nil, unknownField("__InputValue", field)
}

func enumValueField(v *schema.EnumValue, field string) (any, error) {
	switch field {
	case "name":
		return v.Name, nil
	case "description":
		return optional(v.Description), nil
	case "isDeprecated":
		return v.IsDeprecated, nil
	case "deprecationReason":
		return deprecationReason(v.IsDeprecated, v.DeprecationReason), nil
	}
	return nil, unknownField("__EnumValue", field)
}

func (r *runtime) directiveField(d *schema.Directive, field string, args map[string]any) (any, error) {
	switch field {
	case "name":
		return d.Name, nil
	case "description":
		return optional(d.Description), nil
	case "isRepeatable":
		return d.IsRepeatable, nil
	case "locations":
		out := make([]any, len(d.Locations))
		for i, loc := range d.Locations {
			out[i] = loc
		}
		return out, nil
	case "args":
		return visible(d.Arguments, args, func(v *schema.InputValue) bool { return v.IsDeprecated }), nil
	}
	return nil, unknownField("__Directive", field)
}

// typeOf maps a reference to the value resolved as __Type: the named
// definition itself, or the wrapper for lists and non-nulls.
func (r *runtime) typeOf(ref *schema.TypeRef) any {
	if ref == nil {
		return nil
	}
	if ref.Kind == schema.TypeRefKindNamed {
		return r.named(ref.Named)
	}
	return ref
}

func (r *runtime) named(name string) any {
	if t, ok := r.sch.Types[name]; ok {
		return t
	}
	return nil
}

func (r *runtime) namedList(names []string) []any {
	out := make([]any, 0, len(names))
	for _, name := range names {
		if t, ok := r.sch.Types[name]; ok {
			out = append(out, t)
		}
	}
	return out
}

// visible keeps declaration order and drops deprecated items unless
// includeDeprecated is true.
func visible[T any](items []T, args map[string]any, deprecated func(T) bool) []any {
	include, _ := args["includeDeprecated"].(bool)
	out := make([]any, 0, len(items))
	for _, item := range items {
		if !include && deprecated(item) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deprecationReason(deprecated bool, reason string) any {
	if !deprecated {
		return nil
	}
	return reason
}

func unknownField(typ, field string) error {
	return fmt.Errorf("introspection: unknown field %s.%s", typ, field)
}
