package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidPagination is returned before any request when page < 1 or limit <= 0.
var ErrInvalidPagination = errors.New("client: page must be >= 1 and limit > 0")

// APIError is a non-2xx response from the ledger, passed through uninterpreted.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("ledger api: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("ledger api: %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the ledger.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
