package cmd

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError is the JSON body of every failed API request.
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

func newAPIError(status int, code, message string, details any) *APIError {
	return &APIError{StatusCode: status, ErrorCode: code, Message: message, Details: details}
}

func errSectionNotFound(id string) *APIError {
	return newAPIError(http.StatusNotFound, "SECTION_NOT_FOUND", fmt.Sprintf("section %q not found", id), id)
}

func errSectionFailed(err error) *APIError {
	return newAPIError(http.StatusUnprocessableEntity, "SECTION_FAILED", err.Error(), nil)
}

func errUnsupportedFormat(format string) *APIError {
	return newAPIError(http.StatusBadRequest, "UNSUPPORTED_FORMAT", fmt.Sprintf("unsupported chart format %q", format), []string{"png", "svg"})
}

func errInternal(err error) *APIError {
	return newAPIError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", err.Error(), nil)
}
