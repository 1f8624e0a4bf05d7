// Package schema is the executable schema model: named types, fields with
// their resolution mode, and the directive definitions attached to fields.
package schema

// Schema is a set of named types and directive definitions with the names
// of its root operation types.
type Schema struct {
	Description      string
	QueryType        string
	MutationType     string
	SubscriptionType string
	Types            map[string]*Type
	Directives       map[string]*Directive
}

// Root returns the root type for operation ("query", "mutation" or
// "subscription"), or nil when the schema defines none.
func (s *Schema) Root(operation string) *Type {
	var name string
	switch operation {
	case "query":
		name = s.QueryType
	case "mutation":
		name = s.MutationType
	case "subscription":
		name = s.SubscriptionType
	}
	if name == "" {
		return nil
	}
	return s.Types[name]
}

// LookupField returns typeName.fieldName, or nil.
func (s *Schema) LookupField(typeName, fieldName string) *Field {
	if t := s.Types[typeName]; t != nil {
		return t.Field(fieldName)
	}
	return nil
}

type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

// Type is a named type. Which of the slices are used depends on Kind.
type Type struct {
	Name           string
	Kind           TypeKind
	Description    string
	Fields         []*Field
	Interfaces     []string
	PossibleTypes  []string
	EnumValues     []*EnumValue
	InputFields    []*InputValue
	SpecifiedByURL *string
	OneOf          bool
}

func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Field is a field of an object or interface type. Async fields are
// resolved in batches, one batch per depth.
type Field struct {
	Name              string
	Description       string
	Type              *TypeRef
	Arguments         []*InputValue
	Async             bool
	IsDeprecated      bool
	DeprecationReason string
	// Directives attached to the definition, in attachment order. Membership
	// is by identity.
	Directives []*Directive
}

// HasDirective reports whether d itself, not an equal copy, is attached.
func (f *Field) HasDirective(d *Directive) bool {
	for _, existing := range f.Directives {
		if existing == d {
			return true
		}
	}
	return false
}

// AddDirective attaches d unless it is already attached.
func (f *Field) AddDirective(d *Directive) *Field {
	if d == nil || f.HasDirective(d) {
		return f
	}
	f.Directives = append(f.Directives, d)
	return f
}

type EnumValue struct {
	Name              string
	Description       string
	IsDeprecated      bool
	DeprecationReason string
}

// InputValue is an argument or an input object field. DefaultValue holds the
// Go value of the default literal, nil when there is none.
type InputValue struct {
	Name              string
	Description       string
	Type              *TypeRef
	DefaultValue      any
	IsDeprecated      bool
	DeprecationReason string
}

type Directive struct {
	Name         string
	Description  string
	Locations    []string
	Arguments    []*InputValue
	IsRepeatable bool
}

const LocationFieldDefinition = "FIELD_DEFINITION"

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

// TypeRef is a possibly wrapped reference to a named type.
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef
	Named  string
}

func NonNullType(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindNonNull, OfType: t} }
func ListType(t *TypeRef) *TypeRef    { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func NamedType(name string) *TypeRef  { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }

func (t *TypeRef) IsNonNull() bool { return t != nil && t.Kind == TypeRefKindNonNull }

// IsList reports whether t is a list, possibly non-null.
func (t *TypeRef) IsList() bool {
	if t.IsNonNull() {
		t = t.OfType
	}
	return t != nil && t.Kind == TypeRefKindList
}

// Innermost returns the name of the named type under all wrappers.
func (t *TypeRef) Innermost() string {
	for t != nil && t.Kind != TypeRefKindNamed {
		t = t.OfType
	}
	if t == nil {
		return ""
	}
	return t.Named
}

// String renders the reference in SDL notation, e.g. "[User!]".
func (t *TypeRef) String() string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case TypeRefKindList:
		return "[" + t.OfType.String() + "]"
	case TypeRefKindNonNull:
		return t.OfType.String() + "!"
	}
	return t.Named
}
