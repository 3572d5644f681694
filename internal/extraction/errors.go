package extraction

import (
	"fmt"
	"strings"
)

// ServiceError is a failed or unusable extraction call. Raw keeps the
// offending payload for manual diagnosis.
type ServiceError struct {
	Message string
	Raw     string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction service: %s: %v", e.Message, e.Cause)
	}
	return "extraction service: " + e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every problem found in a response. A response with
// any problem is rejected as a whole.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	return "invalid extraction: " + strings.Join(e.Messages(), "; ")
}

// Messages returns the problem descriptions in order.
func (e *ValidationError) Messages() []string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Message)
	}
	return msgs
}
