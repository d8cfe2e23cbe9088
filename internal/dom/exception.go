package dom

import (
	"errors"
	"fmt"
)

// DOM exception names.
const (
	HierarchyRequestError = "HierarchyRequestError"
	NotFoundError         = "NotFoundError"
	InvalidCharacterError = "InvalidCharacterError"
	NotSupportedError     = "NotSupportedError"
	InvalidStateError     = "InvalidStateError"
	WrongDocumentError    = "WrongDocumentError"
	SyntaxError           = "SyntaxError"
	InvalidNodeTypeError  = "InvalidNodeTypeError"
)

// Exception is a DOM exception raised synchronously by a mutation.
type Exception struct {
	Name    string
	Message string
}

func (e *Exception) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

func exception(name, format string, args ...any) *Exception {
	return &Exception{Name: name, Message: fmt.Sprintf(format, args...)}
}

// ExceptionName returns the DOM name of err, or "" when err is not an Exception.
func ExceptionName(err error) string {
	var e *Exception
	if errors.As(err, &e) {
		return e.Name
	}
	return ""
}
