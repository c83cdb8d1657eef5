package transport

import (
	"errors"
	"net/http"

	"github.com/roach88/sift/internal/filter"
)

// RequestError reports request parameters that failed validation.
// It is caused by the client, never by the schema.
type RequestError struct {
	Report *filter.ValidationError
}

func (e *RequestError) Error() string {
	return "invalid request: " + e.Report.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Report
}

// StatusCode is the HTTP status a server should answer with.
func (e *RequestError) StatusCode() int {
	return http.StatusUnprocessableEntity
}

// IsRequestError reports whether err is (or wraps) a *RequestError.
func IsRequestError(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}

// AsRequestError extracts a *RequestError from err's chain.
func AsRequestError(err error) (*RequestError, bool) {
	var re *RequestError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
