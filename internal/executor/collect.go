package executor

import (
	"slices"

	language "github.com/hanpama/permgraph/internal/language"
	schema "github.com/hanpama/permgraph/internal/schema"
)

// fieldGroup is every selection sharing a response name, in query order.
type fieldGroup struct {
	responseName string
	fields       []*language.Field
}

// collectFields groups the fields of sel that apply to objectType,
// expanding fragments and honoring @skip and @include.
func (ex *execution) collectFields(objectType *schema.Type, sel language.SelectionSet) []fieldGroup {
	var groups []fieldGroup
	index := make(map[string]int)
	visited := make(map[string]bool)

	var walk func(language.SelectionSet)
	walk = func(sel language.SelectionSet) {
		for _, s := range sel {
			switch s := s.(type) {
			case *language.Field:
				if !ex.included(s.Directives) {
					continue
				}
				name := s.Alias
				if name == "" {
					name = s.Name
				}
				if i, ok := index[name]; ok {
					groups[i].fields = append(groups[i].fields, s)
					continue
				}
				index[name] = len(groups)
				groups = append(groups, fieldGroup{responseName: name, fields: []*language.Field{s}})

			case *language.InlineFragment:
				if ex.included(s.Directives) && ex.fragmentApplies(objectType, s.TypeCondition) {
					walk(s.SelectionSet)
				}

			case *language.FragmentSpread:
				if visited[s.Name] || !ex.included(s.Directives) {
					continue
				}
				visited[s.Name] = true
				def := ex.doc.Fragments.ForName(s.Name)
				if def == nil || !ex.included(def.Directives) || !ex.fragmentApplies(objectType, def.TypeCondition) {
					continue
				}
				walk(def.SelectionSet)
			}
		}
	}
	walk(sel)
	return groups
}

// included evaluates @skip(if:) and @include(if:).
func (ex *execution) included(dirs language.DirectiveList) bool {
	if d := dirs.ForName("skip"); d != nil && ex.directiveFlag(d) {
		return false
	}
	if d := dirs.ForName("include"); d != nil && !ex.directiveFlag(d) {
		return false
	}
	return true
}

func (ex *execution) directiveFlag(d *language.Directive) bool {
	arg := d.Arguments.ForName("if")
	if arg == nil {
		return false
	}
	v, err := arg.Value.Value(ex.vars)
	if err != nil {
		return false
	}
	b, _ := v.(bool)
	return b
}

// fragmentApplies reports whether a fragment on condition applies to
// objectType: the same type, an interface it implements, or a union
// containing it.
func (ex *execution) fragmentApplies(objectType *schema.Type, condition string) bool {
	if condition == "" || condition == objectType.Name {
		return true
	}
	t := ex.schema.Types[condition]
	if t == nil {
		return false
	}
	switch t.Kind {
	case schema.TypeKindInterface:
		return slices.Contains(objectType.Interfaces, condition)
	case schema.TypeKindUnion:
		return slices.Contains(t.PossibleTypes, objectType.Name)
	}
	return false
}
