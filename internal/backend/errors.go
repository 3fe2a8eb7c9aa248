package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend: %s (%s, HTTP %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("backend: %s (HTTP %d)", e.Message, e.Status)
}

// decodeError reads the backend's error body into an *APIError.
// The backend reports errors as {"message": ..., "code": ..., "hint": ...}.
func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: resp.Status}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return apiErr
	}

	var body struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if json.Unmarshal(data, &body) == nil && body.Message != "" {
		apiErr.Message = body.Message
		apiErr.Code = body.Code
	}

	return apiErr
}

// IsUnavailable reports whether err means the called remote procedure does not
// exist on the backend (as opposed to failing while running). Only these errors
// are eligible for the direct-table fallback; anything else is surfaced so real
// data errors are not masked.
//
// PGRST202: schema cache has no such function. 42883: undefined function.
func IsUnavailable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusNotFound ||
		apiErr.Code == "PGRST202" ||
		apiErr.Code == "42883"
}
