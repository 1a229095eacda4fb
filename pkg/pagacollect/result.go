package pagacollect

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// The provider reports success with status codes 0 through 2 inclusive.
// This band is the provider's own convention, unrelated to HTTP status.
const (
	StatusCodeSuccessMin = 0
	StatusCodeSuccessMax = 2
)

// Payload is a decoded provider response
type Payload map[string]any

// StatusCode reads and coerces the statusCode field. ok is false when the
// field is missing or does not start with an integer.
func (p Payload) StatusCode() (code int, ok bool) {
	v, found := p["statusCode"]
	if !found {
		return 0, false
	}
	return coerceStatusCode(v)
}

// StatusMessage returns the statusMessage field, or "" when absent
func (p Payload) StatusMessage() string {
	if s, ok := p["statusMessage"].(string); ok {
		return s
	}
	return ""
}

// ReferenceNumber returns the referenceNumber field, or "" when absent
func (p Payload) ReferenceNumber() string {
	switch v := p["referenceNumber"].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	}
	return ""
}

// Result is the normalized outcome of a provider call
type Result struct {
	Error bool `json:"error"`
	// Message carries the provider status message, on failure only
	Message  string  `json:"message,omitempty"`
	Response Payload `json:"response"`
}

// CheckError classifies a provider payload by its status code
func CheckError(p Payload) *Result {
	code, ok := p.StatusCode()
	if ok && code >= StatusCodeSuccessMin && code <= StatusCodeSuccessMax {
		return &Result{Error: false, Response: p}
	}
	return &Result{
		Error:    true,
		Message:  p.StatusMessage(),
		Response: p,
	}
}

// Decode converts the payload into a typed response such as *BanksResponse
func (r *Result) Decode(v any) error {
	raw, err := json.Marshal(r.Response)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}

// Err returns a *StatusError for a business failure and nil otherwise
func (r *Result) Err(endpoint string) error {
	if !r.Error {
		return nil
	}
	code := ""
	if v, ok := r.Response["statusCode"]; ok && v != nil {
		code = fmt.Sprint(v)
	}
	return &StatusError{
		Endpoint:      endpoint,
		StatusCode:    code,
		StatusMessage: r.Message,
	}
}

// StatusCode is a provider status code. The provider sends it either as a
// string or as a number.
type StatusCode string

// UnmarshalJSON accepts string, number and null forms
func (s *StatusCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = StatusCode(str)
	default:
		*s = StatusCode(data)
	}
	return nil
}

// Int coerces the code the same way CheckError does
func (s StatusCode) Int() (int, bool) {
	return parseLeadingInt(string(s))
}

// Success reports whether the code is in the success band
func (s StatusCode) Success() bool {
	code, ok := s.Int()
	return ok && code >= StatusCodeSuccessMin && code <= StatusCodeSuccessMax
}

func coerceStatusCode(v any) (int, bool) {
	switch val := v.(type) {
	case string:
		return parseLeadingInt(val)
	case json.Number:
		return parseLeadingInt(val.String())
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0, false
		}
		return int(math.Trunc(val)), true
	case int:
		return val, true
	case int64:
		return int(val), true
	}
	return 0, false
}

// parseLeadingInt reads an optionally signed run of leading digits after
// any leading whitespace, ignoring whatever follows: "2" and "2.5" and
// " 1abc" all parse, "abc" and "" do not.
func parseLeadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\n\r\f\v")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		// overflow: far outside the success band either way
		if s[0] == '-' {
			return math.MinInt, true
		}
		return math.MaxInt, true
	}
	return n, true
}
