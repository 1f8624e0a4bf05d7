package executor

import (
	"fmt"
	"math"
	"strconv"

	language "github.com/hanpama/permgraph/internal/language"
	schema "github.com/hanpama/permgraph/internal/schema"
)

// coerceVariableValues applies defaults and input coercion to the provided
// variables of op.
func coerceVariableValues(sch *schema.Schema, op *language.OperationDefinition, provided map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(op.VariableDefinitions))
	for _, def := range op.VariableDefinitions {
		typ := typeRefFromAST(def.Type)
		v, ok := provided[def.Variable]
		if !ok {
			switch {
			case def.DefaultValue != nil:
				dv, err := def.DefaultValue.Value(nil)
				if err != nil {
					return nil, fmt.Errorf("variable $%s has an invalid default: %v", def.Variable, err)
				}
				v = dv
			case typ.IsNonNull():
				return nil, fmt.Errorf("variable $%s of required type %s was not provided", def.Variable, typ)
			default:
				continue
			}
		}
		cv, err := coerceInput(sch, v, typ)
		if err != nil {
			return nil, fmt.Errorf("variable $%s of type %s: %v", def.Variable, typ, err)
		}
		out[def.Variable] = cv
	}
	return out, nil
}

// coerceArguments returns the argument values of a field, with defaults
// applied. Problems are recorded as errors at path and reported by ok.
func (ex *execution) coerceArguments(def *schema.Field, args language.ArgumentList, path Path) (out map[string]any, ok bool) {
	out = make(map[string]any, len(def.Arguments))
	ok = true
	for _, argDef := range def.Arguments {
		var (
			raw any
			set bool
		)
		if arg := args.ForName(argDef.Name); arg != nil {
			if arg.Value.Kind == language.Variable {
				raw, set = ex.vars[arg.Value.Raw]
			} else {
				v, err := arg.Value.Value(ex.vars)
				if err != nil {
					ex.addError(fmt.Sprintf("argument %q: %v", argDef.Name, err), path)
					ok = false
					continue
				}
				raw, set = v, true
			}
		}
		if !set && argDef.DefaultValue != nil {
			raw, set = argDef.DefaultValue, true
		}
		if !set {
			if argDef.Type.IsNonNull() {
				ex.addError(fmt.Sprintf("argument %q of required type %s was not provided", argDef.Name, argDef.Type), path)
				ok = false
			}
			continue
		}
		v, err := coerceInput(ex.schema, raw, argDef.Type)
		if err != nil {
			ex.addError(fmt.Sprintf("argument %q: %v", argDef.Name, err), path)
			ok = false
			continue
		}
		out[argDef.Name] = v
	}
	return out, ok
}

// coerceInput converts value to the Go representation of typ: int for Int,
// float64 for Float, string for String, ID and enums, bool for Boolean,
// []any for lists and map[string]any for input objects. Custom scalars pass
// through.
func coerceInput(sch *schema.Schema, value any, typ *schema.TypeRef) (any, error) {
	if typ.IsNonNull() {
		if value == nil {
			return nil, fmt.Errorf("null is not allowed for %s", typ)
		}
		return coerceInput(sch, value, typ.OfType)
	}
	if value == nil {
		return nil, nil
	}
	if typ.Kind == schema.TypeRefKindList {
		items, ok := value.([]any)
		if !ok {
			items = []any{value}
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := coerceInput(sch, item, typ.OfType)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %v", i, err)
			}
			out[i] = v
		}
		return out, nil
	}

	switch name := typ.Named; name {
	case "Int":
		return coerceInt(value)
	case "Float":
		return coerceFloat(value)
	case "String":
		if s, ok := value.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("cannot use %v (%T) as String", value, value)
	case "Boolean":
		if b, ok := value.(bool); ok {
			return b, nil
		}
		return nil, fmt.Errorf("cannot use %v (%T) as Boolean", value, value)
	case "ID":
		switch v := value.(type) {
		case string:
			return v, nil
		case int, int32, int64:
			return fmt.Sprint(v), nil
		case float64:
			if v == math.Trunc(v) {
				return strconv.FormatFloat(v, 'f', -1, 64), nil
			}
		}
		return nil, fmt.Errorf("cannot use %v (%T) as ID", value, value)
	default:
		def := sch.Types[name]
		if def == nil {
			return value, nil
		}
		switch def.Kind {
		case schema.TypeKindEnum:
			s, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("cannot use %v (%T) as %s", value, value, name)
			}
			for _, ev := range def.EnumValues {
				if ev.Name == s {
					return s, nil
				}
			}
			return nil, fmt.Errorf("%q is not a value of %s", s, name)
		case schema.TypeKindInputObject:
			return coerceInputObject(sch, def, value)
		}
		return value, nil
	}
}

func coerceInputObject(sch *schema.Schema, def *schema.Type, value any) (any, error) {
	in, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("cannot use %v (%T) as %s", value, value, def.Name)
	}
	known := make(map[string]bool, len(def.InputFields))
	out := make(map[string]any, len(def.InputFields))
	for _, f := range def.InputFields {
		known[f.Name] = true
		v, ok := in[f.Name]
		if !ok {
			if f.DefaultValue != nil {
				v, ok = f.DefaultValue, true
			} else if f.Type.IsNonNull() {
				return nil, fmt.Errorf("field %s.%s of required type %s was not provided", def.Name, f.Name, f.Type)
			}
		}
		if !ok {
			continue
		}
		cv, err := coerceInput(sch, v, f.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %v", def.Name, f.Name, err)
		}
		out[f.Name] = cv
	}
	for k := range in {
		if !known[k] {
			return nil, fmt.Errorf("%s has no field %q", def.Name, k)
		}
	}
	return out, nil
}

func coerceInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			return int(v), nil
		}
	case float64:
		if v == math.Trunc(v) && v >= math.MinInt32 && v <= math.MaxInt32 {
			return int(v), nil
		}
	}
	return nil, fmt.Errorf("cannot use %v (%T) as Int", value, value)
}

func coerceFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return nil, fmt.Errorf("cannot use %v (%T) as Float", value, value)
}

func typeRefFromAST(t *language.Type) *schema.TypeRef {
	var ref *schema.TypeRef
	if t.Elem != nil {
		ref = schema.ListType(typeRefFromAST(t.Elem))
	} else {
		ref = schema.NamedType(t.NamedType)
	}
	if t.NonNull {
		return schema.NonNullType(ref)
	}
	return ref
}
