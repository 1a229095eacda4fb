package pagacollect

import (
	"errors"
	"fmt"
)

var (
	ErrMissingConfig   = errors.New("pagacollect: client config is required")
	ErrMissingClientID = errors.New("pagacollect: client id is required")
	ErrMissingPassword = errors.New("pagacollect: password is required")
	ErrMissingAPIKey   = errors.New("pagacollect: api key is required")
)

// DecodeError is returned when the provider answers with a body that is not
// a JSON object. Body holds the raw response text.
type DecodeError struct {
	HTTPStatus int
	Body       string
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to parse response (http %d): %v", e.HTTPStatus, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// StatusError is a business failure reported by the provider
type StatusError struct {
	Endpoint      string
	StatusCode    string
	StatusMessage string
}

func (e *StatusError) Error() string {
	if e.StatusMessage == "" {
		return fmt.Sprintf("%s failed with status code %q", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s failed with status code %q: %s", e.Endpoint, e.StatusCode, e.StatusMessage)
}
