package permission

import (
	"fmt"

	executor "github.com/hanpama/permgraph/internal/executor"
)

// NewAuthorizationError is the default ErrorFactory. The error carries no
// extensions of its own.
func NewAuthorizationError(message string) executor.GraphQLError {
	return executor.GraphQLError{Message: message}
}

// ConfigurationError reports a permission setup that can never be served,
// such as failing silently on a field that cannot be null or empty.
type ConfigurationError struct {
	ObjectType string
	Field      string
	TypeRef    string
}

func (e *ConfigurationError) Error() string {
	name := e.Field
	if e.ObjectType != "" {
		name = e.ObjectType + "." + e.Field
	}
	return fmt.Sprintf("permission: field %s of type %s cannot fail silently: it must be nullable or a list", name, e.TypeRef)
}
