package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport wraps failures to reach the server (DNS, refused, timeout)
	ErrTransport = errors.New("backend: could not reach the server")

	// ErrNotJSON is returned when the server answers with something other than JSON,
	// typically a tunnel banner or a proxy error page
	ErrNotJSON = errors.New("backend: response is not JSON")
)

// APIError is a structured rejection from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: request rejected (HTTP %d)", e.Status)
	}
	return fmt.Sprintf("backend: %s (HTTP %d)", e.Message, e.Status)
}

// AsAPIError unwraps err into an *APIError
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
