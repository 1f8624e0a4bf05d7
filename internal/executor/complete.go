package executor

import (
	"fmt"
	"reflect"

	language "github.com/hanpama/permgraph/internal/language"
	schema "github.com/hanpama/permgraph/internal/schema"
)

// completeValue shapes a resolved value after typ. It returns nil when the
// value is, or had to become, null; errors are recorded on the way.
func (ex *execution) completeValue(typ *schema.TypeRef, fields []*language.Field, value any, path, boundary Path) any {
	if typ.IsNonNull() {
		if isNullish(value) {
			if !ex.hasErrorAt(path) {
				ex.addError(fmt.Sprintf("Cannot return null for non-nullable field %s", path), path)
			}
			return nil
		}
		return ex.completeValue(typ.OfType, fields, value, path, boundary)
	}
	if isNullish(value) {
		return nil
	}
	if typ.Kind == schema.TypeRefKindList {
		return ex.completeList(typ, fields, value, path, boundary)
	}

	named := typ.Innermost()
	def := ex.schema.Types[named]
	if def == nil {
		ex.addError(fmt.Sprintf("Unknown type: %s", named), path)
		return nil
	}
	switch def.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		out, err := ex.runtime.SerializeLeafValue(ex.ctx, named, value)
		if err != nil {
			ex.addLocated(err, path)
			return nil
		}
		return out
	case schema.TypeKindObject:
		return ex.completeObject(def, fields, value, path, boundary)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		concrete, err := ex.runtime.ResolveType(ex.ctx, named, value)
		if err != nil {
			ex.addLocated(err, path)
			return nil
		}
		obj := ex.schema.Types[concrete]
		if obj == nil || obj.Kind != schema.TypeKindObject {
			ex.addError(fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime. Got: %s", named, concrete), path)
			return nil
		}
		return ex.completeObject(obj, fields, value, path, boundary)
	}
	ex.addError(fmt.Sprintf("Cannot complete value of unexpected type: %s", def.Kind), path)
	return nil
}

func (ex *execution) completeList(typ *schema.TypeRef, fields []*language.Field, value any, path, boundary Path) any {
	items, ok := value.([]any)
	if !ok {
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			ex.addError(fmt.Sprintf("Expected list value, got %T", value), path)
			return nil
		}
		items = make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
	}

	item := typ.OfType
	out := make([]any, len(items))
	for i, v := range items {
		itemPath := path.With(i)
		itemBoundary := boundary
		if !item.IsNonNull() {
			itemBoundary = itemPath
		}
		c := ex.completeValue(item, fields, v, itemPath, itemBoundary)
		if c == nil && item.IsNonNull() {
			return nil
		}
		out[i] = c
	}
	return out
}

func (ex *execution) completeObject(objectType *schema.Type, fields []*language.Field, value any, path, boundary Path) any {
	var sel language.SelectionSet
	for _, f := range fields {
		sel = append(sel, f.SelectionSet...)
	}
	if m := ex.executeFields(objectType, sel, value, path, boundary); m != nil {
		return m
	}
	return nil
}

// isNullish reports nil and typed nil pointers, maps, slices, funcs and
// channels.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
