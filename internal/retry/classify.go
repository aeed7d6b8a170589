package retry

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
)

type statusCoder interface {
	HTTPStatusCode() int
}

// SDK errors that do not expose a status code usually embed it in the message.
var statusCodePattern = regexp.MustCompile(`status code: (\d{3})`)

// Retriable reports whether err looks transient. Cancellation and client
// errors other than 408, 409, 425 and 429 are fatal; everything else,
// including unclassified errors, is retried.
func Retriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if code, ok := statusCode(err); ok {
		return retriableStatus(code)
	}
	return true
}

func statusCode(err error) (int, bool) {
	var coder statusCoder
	if errors.As(err, &coder) {
		return coder.HTTPStatusCode(), true
	}
	match := statusCodePattern.FindStringSubmatch(err.Error())
	if match == nil {
		return 0, false
	}
	code, convErr := strconv.Atoi(match[1])
	if convErr != nil {
		return 0, false
	}
	return code, true
}

func retriableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return code >= http.StatusInternalServerError
}
