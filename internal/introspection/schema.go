package introspection

import (
	schema "github.com/hanpama/permgraph/internal/schema"
)

var (
	str     = schema.NamedType("String")
	boolean = schema.NamedType("Boolean")
)

func nonNull(name string) *schema.TypeRef { return schema.NonNullType(schema.NamedType(name)) }
func listOf(name string) *schema.TypeRef {
	return schema.NonNullType(schema.ListType(nonNull(name)))
}

func includeDeprecated() *schema.InputValue {
	return schema.NewInputValue("includeDeprecated", "", boolean).SetDefault(false)
}

// extend copies original twice. view adds the meta types and is what
// __schema describes; exec also carries __schema and __type on a copy of
// the query type. Types and directives registered on original afterwards
// are not visible.
func extend(original *schema.Schema) (view, exec *schema.Schema) {
	view = shallowCopy(original)
	for _, t := range metaTypes() {
		view.AddType(t)
	}
	exec = shallowCopy(view)

	query := original.Root("query")
	if query == nil {
		return view, exec
	}
	root := *query
	root.Fields = append(append([]*schema.Field(nil), query.Fields...),
		schema.NewField("__schema", "Access the current type schema of this server.", nonNull("__Schema")),
		schema.NewField("__type", "Request the type information of a single type.", schema.NamedType("__Type")).
			AddArgument(schema.NewInputValue("name", "", nonNull("String"))),
	)
	exec.AddType(&root)
	return view, exec
}

func shallowCopy(s *schema.Schema) *schema.Schema {
	out := schema.NewSchema(s.Description).
		SetQueryType(s.QueryType).
		SetMutationType(s.MutationType).
		SetSubscriptionType(s.SubscriptionType)
	for _, t := range s.Types {
		out.AddType(t)
	}
	for _, d := range s.Directives {
		out.AddDirective(d)
	}
	return out
}

func metaTypes() []*schema.Type {
	return []*schema.Type{
		schema.NewType("__Schema", schema.TypeKindObject,
			"A GraphQL Schema defines the capabilities of a GraphQL server.").
			AddField(schema.NewField("description", "", str)).
			AddField(schema.NewField("types", "A list of all types supported by this server.", listOf("__Type"))).
			AddField(schema.NewField("queryType", "The type that query operations will be rooted at.", nonNull("__Type"))).
			AddField(schema.NewField("mutationType", "", schema.NamedType("__Type"))).
			AddField(schema.NewField("subscriptionType", "", schema.NamedType("__Type"))).
			AddField(schema.NewField("directives", "A list of all directives supported by this server.", listOf("__Directive"))),

		schema.NewType("__Type", schema.TypeKindObject,
			"The fundamental unit of any GraphQL Schema is the type.").
			AddField(schema.NewField("kind", "", nonNull("__TypeKind"))).
			AddField(schema.NewField("name", "", str)).
			AddField(schema.NewField("description", "", str)).
			AddField(schema.NewField("specifiedByURL", "", str)).
			AddField(schema.NewField("fields", "", schema.ListType(nonNull("__Field"))).AddArgument(includeDeprecated())).
			AddField(schema.NewField("interfaces", "", schema.ListType(nonNull("__Type")))).
			AddField(schema.NewField("possibleTypes", "", schema.ListType(nonNull("__Type")))).
			AddField(schema.NewField("enumValues", "", schema.ListType(nonNull("__EnumValue"))).AddArgument(includeDeprecated())).
			AddField(schema.NewField("inputFields", "", schema.ListType(nonNull("__InputValue"))).AddArgument(includeDeprecated())).
			AddField(schema.NewField("ofType", "", schema.NamedType("__Type"))).
			AddField(schema.NewField("isOneOf", "", boolean)),

		schema.NewType("__Field", schema.TypeKindObject, "").
			AddField(schema.NewField("name", "", nonNull("String"))).
			AddField(schema.NewField("description", "", str)).
			AddField(schema.NewField("args", "", listOf("__InputValue")).AddArgument(includeDeprecated())).
			AddField(schema.NewField("type", "", nonNull("__Type"))).
			AddField(schema.NewField("isDeprecated", "", nonNull("Boolean"))).
			AddField(schema.NewField("deprecationReason", "", str)),

		schema.NewType("__InputValue", schema.TypeKindObject, "").
			AddField(schema.NewField("name", "", nonNull("String"))).
			AddField(schema.NewField("description", "", str)).
			AddField(schema.NewField("type", "", nonNull("__Type"))).
			AddField(schema.NewField("defaultValue", "A GraphQL-formatted string representing the default value for this input value.", str)).
			AddField(schema.NewField("isDeprecated", "", nonNull("Boolean"))).
			AddField(schema.NewField("deprecationReason", "", str)),

		schema.NewType("__EnumValue", schema.TypeKindObject, "").
			AddField(schema.NewField("name", "", nonNull("String"))).
			AddField(schema.NewField("description", "", str)).
			AddField(schema.NewField("isDeprecated", "", nonNull("Boolean"))).
			AddField(schema.NewField("deprecationReason", "", str)),

		schema.NewType("__Directive", schema.TypeKindObject, "").
			AddField(schema.NewField("name", "", nonNull("String"))).
			AddField(schema.NewField("description", "", str)).
			AddField(schema.NewField("isRepeatable", "", nonNull("Boolean"))).
			AddField(schema.NewField("locations", "", listOf("__DirectiveLocation"))).
			AddField(schema.NewField("args", "", listOf("__InputValue")).AddArgument(includeDeprecated())),

		enum("__TypeKind",
			"SCALAR", "OBJECT", "INTERFACE", "UNION", "ENUM", "INPUT_OBJECT", "LIST", "NON_NULL"),
		enum("__DirectiveLocation",
			"QUERY", "MUTATION", "SUBSCRIPTION", "FIELD", "FRAGMENT_DEFINITION", "FRAGMENT_SPREAD",
			"INLINE_FRAGMENT", "VARIABLE_DEFINITION", "SCHEMA", "SCALAR", "OBJECT", "FIELD_DEFINITION",
			"ARGUMENT_DEFINITION", "INTERFACE", "UNION", "ENUM", "ENUM_VALUE", "INPUT_OBJECT",
			"INPUT_FIELD_DEFINITION"),
	}
}

func enum(name string, values ...string) *schema.Type {
	t := schema.NewType(name, schema.TypeKindEnum, "")
	for _, v := range values {
		t.AddEnumValue(schema.NewEnumValue(v, ""))
	}
	return t
}
