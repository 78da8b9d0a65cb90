package status

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorInfo contains error information returned by the status API.
type ErrorInfo struct {
	// StatusCode contains the HTTP status code.
	StatusCode int `json:"-"`

	// Message contains the error message to return to the user.
	Message string `json:"error"`
}

func NewErrorInfo(statusCode int, err error) *ErrorInfo {
	return &ErrorInfo{
		StatusCode: statusCode,
		Message:    err.Error(),
	}
}

func (e *ErrorInfo) Error() string {
	return fmt.Sprintf(
		"%s (%d): %s",
		strings.ToLower(http.StatusText(e.StatusCode)),
		e.StatusCode,
		e.Message,
	)
}
