// AngelaMos | 2026
// errors.go

package converter

import (
	"fmt"

	"github.com/valera277/rag-converter-pro/internal/core"
)

// ValidationError is a user-correctable problem with an upload. The message
// is shown to the caller as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return core.ErrInvalidInput
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
