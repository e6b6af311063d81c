package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/konstantinfoerster/doc-analyzer-go/internal/view"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// APIError is the error body of all failed requests.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewBadRequestError(message string, cause error) *APIError {
	return newAPIError(http.StatusBadRequest, "BAD_REQUEST", message, cause)
}

func NewTooLargeError(cause error) *APIError {
	return newAPIError(http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "the document is too large", cause)
}

func NewInternalError(message string, cause error) *APIError {
	return newAPIError(http.StatusInternalServerError, "INTERNAL_ERROR", message, cause)
}

func newAPIError(status int, code, message string, cause error) *APIError {
	err := &APIError{
		Status:  status,
		Code:    code,
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}

	return err
}

// toAPIError maps any handler error to an APIError.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
	}

	return &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "UNKNOWN_ERROR",
		Message: "an unexpected error occurred",
		Details: err.Error(),
	}
}

// errorHandler answers api requests with json and page requests with the
// rendered page showing the error.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	apiErr := toAPIError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("request failed")
	} else {
		log.Debug().Err(err).Str("path", c.Request().URL.Path).Msg("request rejected")
	}

	if wantsJSON(c.Request()) {
		if err := c.JSON(apiErr.Status, apiErr); err != nil {
			log.Error().Err(err).Msg("failed to write error response")
		}

		return
	}

	page := view.NewPage(s.client.State())
	page.Error = apiErr.Message
	if apiErr.Details != "" {
		page.Error += ". " + apiErr.Details
	}

	var buf bytes.Buffer
	if err := view.RenderHTML(&buf, page); err != nil {
		log.Error().Err(err).Msg("failed to render error page")
		_ = c.String(apiErr.Status, apiErr.Error())

		return
	}
	if err := c.HTMLBlob(apiErr.Status, buf.Bytes()); err != nil {
		log.Error().Err(err).Msg("failed to write error page")
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}
