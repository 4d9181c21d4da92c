package api

import (
	"errors"
	"fmt"
)

// ErrStreamEnded is reported when the server closes the push channel
// without a terminal message
var ErrStreamEnded = errors.New("event stream ended")

// ServerError is an error reported by the server itself, either as a JSON
// {"error": ...} body or as a non-2xx status without one.
type ServerError struct {
	StatusCode int
	Message    string
}

// Error implements error
func (e *ServerError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// IsServerError reports whether err carries a server-reported message
func IsServerError(err error) (*ServerError, bool) {
	var se *ServerError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
