package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/docerrors"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/tablesource"
)

// APIError represents a structured API error response.
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render.
func (e *APIError) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// NewAPIError creates a new APIError.
func NewAPIError(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// Predefined errors.
var (
	ErrNotFound          = NewAPIError(http.StatusNotFound, "NOT_FOUND", "Run not found or expired")
	ErrRateLimitExceeded = NewAPIError(http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded")
	ErrInternal          = NewAPIError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
)

// errorFor maps a run or parsing error to an APIError.
//
//	| error                      | status |
//	|----------------------------|--------|
//	| InvalidInput               | 400    |
//	| unsupported file format    | 415    |
//	| MalformedDocument          | 422    |
//	| anything else              | 500    |
func errorFor(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return NewAPIError(http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE", err.Error())
	case errors.Is(err, tablesource.ErrUnsupportedFormat):
		return NewAPIError(http.StatusUnsupportedMediaType, "UNSUPPORTED_FORMAT", err.Error())
	case errors.Is(err, docerrors.ErrInvalidInput):
		return NewAPIError(http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, docerrors.ErrMalformedDocument):
		return NewAPIError(http.StatusUnprocessableEntity, "MALFORMED_DOCUMENT", err.Error())
	default:
		return ErrInternal
	}
}

// renderError writes err as a JSON APIError.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := errorFor(err)
	// Predefined errors are shared; copy before rendering.
	resp := *apiErr
	_ = render.Render(w, r, &resp)
}
