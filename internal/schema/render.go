package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Render prints s as SDL. Types and directives are sorted by name; fields,
// arguments and enum values keep declaration order. Built-in scalars and
// directives are omitted.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	p := &printer{sch: s}
	p.schemaDefinition()
	for _, name := range sortedNames(s.Types) {
		if t := s.Types[name]; !isBuiltinType(t) {
			p.typeDefinition(t)
		}
	}
	for _, name := range sortedNames(s.Directives) {
		if d := s.Directives[name]; !isBuiltinDirective(d) {
			p.directiveDefinition(d)
		}
	}
	return strings.TrimRight(p.b.String(), "\n") + "\n"
}

// Literal prints value as a GraphQL literal of type typ. Enum values print
// bare; other strings are quoted.
func (s *Schema) Literal(value any, typ *TypeRef) string {
	p := &printer{sch: s}
	p.literal(value, typ)
	return p.b.String()
}

type printer struct {
	sch *Schema
	b   strings.Builder
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *printer) printf(format string, args ...any) { fmt.Fprintf(&p.b, format, args...) }

// schemaDefinition prints a schema block only when it says something the
// conventional root type names do not.
func (p *printer) schemaDefinition() {
	s := p.sch
	conventional := (s.QueryType == "" || s.QueryType == "Query") &&
		(s.MutationType == "" || s.MutationType == "Mutation") &&
		(s.SubscriptionType == "" || s.SubscriptionType == "Subscription")
	if conventional && s.Description == "" {
		return
	}
	p.description("", s.Description)
	p.b.WriteString("schema {\n")
	for _, root := range [][2]string{{"query", s.QueryType}, {"mutation", s.MutationType}, {"subscription", s.SubscriptionType}} {
		if root[1] != "" {
			p.printf("  %s: %s\n", root[0], root[1])
		}
	}
	p.b.WriteString("}\n\n")
}

func (p *printer) typeDefinition(t *Type) {
	p.description("", t.Description)
	switch t.Kind {
	case TypeKindScalar:
		p.printf("scalar %s", t.Name)
		if t.SpecifiedByURL != nil {
			p.printf(" @specifiedBy(url: %s)", strconv.Quote(*t.SpecifiedByURL))
		}
		p.b.WriteString("\n\n")
	case TypeKindObject, TypeKindInterface:
		keyword := "type"
		if t.Kind == TypeKindInterface {
			keyword = "interface"
		}
		p.printf("%s %s", keyword, t.Name)
		if len(t.Interfaces) > 0 {
			p.printf(" implements %s", strings.Join(t.Interfaces, " & "))
		}
		p.b.WriteString(" {\n")
		for _, f := range t.Fields {
			p.field(f)
		}
		p.b.WriteString("}\n\n")
	case TypeKindUnion:
		p.printf("union %s = %s\n\n", t.Name, strings.Join(t.PossibleTypes, " | "))
	case TypeKindEnum:
		p.printf("enum %s {\n", t.Name)
		for _, v := range t.EnumValues {
			p.description("  ", v.Description)
			p.printf("  %s", v.Name)
			p.deprecated(v.IsDeprecated, v.DeprecationReason)
			p.b.WriteByte('\n')
		}
		p.b.WriteString("}\n\n")
	case TypeKindInputObject:
		p.printf("input %s", t.Name)
		if t.OneOf {
			p.b.WriteString(" @oneOf")
		}
		p.b.WriteString(" {\n")
		for _, v := range t.InputFields {
			p.description("  ", v.Description)
			p.b.WriteString("  ")
			p.inputValue(v)
			p.b.WriteByte('\n')
		}
		p.b.WriteString("}\n\n")
	}
}

func (p *printer) field(f *Field) {
	p.description("  ", f.Description)
	p.printf("  %s", f.Name)
	p.arguments(f.Arguments)
	p.printf(": %s", f.Type)
	for _, d := range f.Directives {
		p.printf(" @%s", d.Name)
	}
	p.deprecated(f.IsDeprecated, f.DeprecationReason)
	p.b.WriteByte('\n')
}

func (p *printer) directiveDefinition(d *Directive) {
	p.description("", d.Description)
	p.printf("directive @%s", d.Name)
	p.arguments(d.Arguments)
	if d.IsRepeatable {
		p.b.WriteString(" repeatable")
	}
	p.printf(" on %s\n\n", strings.Join(d.Locations, " | "))
}

func (p *printer) arguments(args []*InputValue) {
	if len(args) == 0 {
		return
	}
	p.b.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			p.b.WriteString(", ")
		}
		p.inputValue(a)
	}
	p.b.WriteByte(')')
}

func (p *printer) inputValue(v *InputValue) {
	p.printf("%s: %s", v.Name, v.Type)
	if v.DefaultValue != nil {
		p.b.WriteString(" = ")
		p.literal(v.DefaultValue, v.Type)
	}
	p.deprecated(v.IsDeprecated, v.DeprecationReason)
}

func (p *printer) deprecated(is bool, reason string) {
	if !is {
		return
	}
	p.b.WriteString(" @deprecated")
	if reason != "" {
		p.printf("(reason: %s)", strconv.Quote(reason))
	}
}

func (p *printer) description(indent, desc string) {
	if desc == "" {
		return
	}
	if !strings.Contains(desc, "\n") {
		p.printf("%s%s\n", indent, strconv.Quote(desc))
		return
	}
	p.printf("%s\"\"\"\n", indent)
	for _, line := range strings.Split(strings.ReplaceAll(desc, `"""`, `\"""`), "\n") {
		if line == "" {
			p.b.WriteByte('\n')
			continue
		}
		p.printf("%s%s\n", indent, line)
	}
	p.printf("%s\"\"\"\n", indent)
}

func (p *printer) literal(value any, typ *TypeRef) {
	if value == nil {
		p.b.WriteString("null")
		return
	}
	var inner *TypeRef
	if typ != nil {
		inner = typ
		if inner.IsNonNull() {
			inner = inner.OfType
		}
	}
	switch v := value.(type) {
	case string:
		if p.isEnum(inner) {
			p.b.WriteString(v)
		} else {
			p.b.WriteString(strconv.Quote(v))
		}
	case bool:
		p.b.WriteString(strconv.FormatBool(v))
	case int:
		p.b.WriteString(strconv.Itoa(v))
	case int32:
		p.b.WriteString(strconv.FormatInt(int64(v), 10))
	case int64:
		p.b.WriteString(strconv.FormatInt(v, 10))
	case float32:
		p.b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	case float64:
		p.b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	case []any:
		var item *TypeRef
		if inner != nil && inner.Kind == TypeRefKindList {
			item = inner.OfType
		}
		p.b.WriteByte('[')
		for i, elem := range v {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.literal(elem, item)
		}
		p.b.WriteByte(']')
	case map[string]any:
		p.b.WriteByte('{')
		for i, k := range sortedNames(v) {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.printf("%s: ", k)
			p.literal(v[k], p.inputFieldType(inner, k))
		}
		p.b.WriteByte('}')
	default:
		p.printf("%v", v)
	}
}

func (p *printer) isEnum(typ *TypeRef) bool {
	if typ == nil || typ.Kind != TypeRefKindNamed || p.sch == nil {
		return false
	}
	t := p.sch.Types[typ.Named]
	return t != nil && t.Kind == TypeKindEnum
}

func (p *printer) inputFieldType(typ *TypeRef, name string) *TypeRef {
	if typ == nil || typ.Kind != TypeRefKindNamed || p.sch == nil {
		return nil
	}
	t := p.sch.Types[typ.Named]
	if t == nil {
		return nil
	}
	for _, f := range t.InputFields {
		if f.Name == name {
			return f.Type
		}
	}
	return nil
}
