// Package language exposes the parts of the gqlparser AST the executor
// walks, under names local to this module.
package language

import (
	"errors"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
)

type (
	QueryDocument       = ast.QueryDocument
	OperationDefinition = ast.OperationDefinition
	Operation           = ast.Operation
	SelectionSet        = ast.SelectionSet
	Field               = ast.Field
	InlineFragment      = ast.InlineFragment
	FragmentSpread      = ast.FragmentSpread
	Directive           = ast.Directive
	DirectiveList       = ast.DirectiveList
	ArgumentList        = ast.ArgumentList
	Type                = ast.Type

	// Error is a GraphQL error with source locations.
	Error = gqlerror.Error
)

const (
	Query        = ast.Query
	Mutation     = ast.Mutation
	Subscription = ast.Subscription

	Variable = ast.Variable
)

// ParseQuery parses an executable document. Failures are returned as *Error.
func ParseQuery(query string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Name: "query", Input: query})
	if err != nil {
		var ge *Error
		if errors.As(err, &ge) {
			return nil, ge
		}
		return nil, &Error{Message: err.Error()}
	}
	if len(doc.Operations) == 0 {
		return nil, &Error{Message: "document contains no operations"}
	}
	return doc, nil
}
