package executor

import "errors"

// GraphQLError is one entry of a response's "errors" list. Path is empty for
// request errors raised before execution started.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

// ExecutionResult is the response body. Data is nil when the request failed
// before any field was resolved.
type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// AsGraphQLError finds the first GraphQLError in err's chain, by value or by
// pointer.
func AsGraphQLError(err error) (GraphQLError, bool) {
	var byValue GraphQLError
	if errors.As(err, &byValue) {
		return byValue, true
	}
	var byPointer *GraphQLError
	if errors.As(err, &byPointer) && byPointer != nil {
		return *byPointer, true
	}
	return GraphQLError{}, false
}

// locatedError converts a runtime error into a GraphQLError at path. The
// outer message wins so wrapping context is not lost; extensions of a wrapped
// GraphQLError are kept.
func locatedError(err error, path Path) GraphQLError {
	located := GraphQLError{Message: err.Error(), Path: path}
	if ge, ok := AsGraphQLError(err); ok && len(ge.Extensions) > 0 {
		located.Extensions = ge.Extensions
	}
	return located
}
