package schema

var builtinScalars = []struct{ name, description string }{
	{"String", "The `String` scalar type represents textual data, represented as UTF-8 character sequences."},
	{"Int", "The `Int` scalar type represents non-fractional signed whole numeric values."},
	{"Float", "The `Float` scalar type represents signed double-precision fractional values."},
	{"Boolean", "The `Boolean` scalar type represents `true` or `false`."},
	{"ID", "The `ID` scalar type represents a unique identifier, often used to refetch an object or as a key for caching."},
}

// addBuiltins adds fresh copies of the specified scalars and the @include
// and @skip directives to s.
func addBuiltins(s *Schema) {
	for _, sc := range builtinScalars {
		s.AddType(NewType(sc.name, TypeKindScalar, sc.description))
	}
	s.AddDirective(conditionDirective("include", "Directs the executor to include this field or fragment only when the `if` argument is true.", "Included when true."))
	s.AddDirective(conditionDirective("skip", "Directs the executor to skip this field or fragment when the `if` argument is true.", "Skipped when true."))
}

func conditionDirective(name, description, ifDescription string) *Directive {
	return NewDirective(name, description).
		AddArgument(NewInputValue("if", ifDescription, NonNullType(NamedType("Boolean")))).
		AddLocation("FIELD").
		AddLocation("FRAGMENT_SPREAD").
		AddLocation("INLINE_FRAGMENT")
}

func isBuiltinType(t *Type) bool {
	if t.Kind != TypeKindScalar {
		return false
	}
	for _, sc := range builtinScalars {
		if sc.name == t.Name {
			return true
		}
	}
	return false
}

func isBuiltinDirective(d *Directive) bool {
	return d.Name == "include" || d.Name == "skip"
}
