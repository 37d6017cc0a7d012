package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthenticated is matched by a missing token and by any 401 response.
var ErrUnauthenticated = errors.New("api: unauthenticated")

// RequestFailed is returned for every non-2xx response that is not absorbed
// by a compatibility shim.
type RequestFailed struct {
	Status  int
	Message string
}

func (e *RequestFailed) Error() string {
	return fmt.Sprintf("api: request failed: %d %s", e.Status, e.Message)
}

func (e *RequestFailed) Is(target error) bool {
	return target == ErrUnauthenticated && e.Status == http.StatusUnauthorized
}

// ValidationFailed is a client-side rejection; no request was sent.
type ValidationFailed struct {
	Field  string
	Reason string
}

func (e *ValidationFailed) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("api: validation failed: %s", e.Field)
	}
	return fmt.Sprintf("api: validation failed: %s: %s", e.Field, e.Reason)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var rf *RequestFailed
	if errors.As(err, &rf) {
		return rf.Status
	}
	return 0
}

// isUnsupported reports the statuses an older backend revision answers with
// for operations it does not implement.
func isUnsupported(status int) bool {
	return status == http.StatusNotFound || status == http.StatusUnprocessableEntity
}
