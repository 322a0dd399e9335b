package siteclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	ErrUnauthorized       = errors.New("siteclient: unauthorized")
	ErrInvalidCredentials = errors.New("siteclient: invalid email or password")
	ErrNotFound           = errors.New("siteclient: not found")
	ErrConflict           = errors.New("siteclient: content changed since it was loaded")
	ErrInvalidRequest     = errors.New("siteclient: invalid request")
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("siteclient: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("siteclient: %d %s", e.Status, e.Code)
}

// Is maps the response onto the package sentinels so callers can use
// errors.Is without looking at status codes.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrInvalidCredentials:
		return e.Status == http.StatusUnauthorized && e.Code == "invalid_credentials"
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrConflict:
		return e.Status == http.StatusConflict
	case ErrInvalidRequest:
		return e.Status == http.StatusBadRequest
	}
	return false
}

func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil && len(raw) > 0 {
		_ = json.Unmarshal(raw, apiErr)
	}
	if apiErr.Code == "" {
		apiErr.Code = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
