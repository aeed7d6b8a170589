package llm

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse reports a completion payload missing the expected fields.
var ErrMalformedResponse = errors.New("malformed completion response")

// HTTPStatusError captures a non-success upstream response.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("api error: %d - %s", e.StatusCode, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}
