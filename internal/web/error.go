package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const maxErrorMsgLengthBytes int64 = 2048

// htmlPolicy reduces html error pages, e.g. from a proxy in front of the service, to their text.
var htmlPolicy = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)

func NewErr(url string, code int, msg string) error {
	return &ExternalAPIError{URL: url, StatusCode: code, Message: msg}
}

// NewHTTPErr reads a bounded part of the response body as error message.
// JSON bodies with a detail, error or message field are reduced to that field,
// html bodies to their text.
func NewHTTPErr(url string, resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorMsgLengthBytes))
	if err != nil {
		msg := fmt.Errorf("failed to read response body due to %w", err)

		return &ExternalAPIError{URL: url, StatusCode: resp.StatusCode, Message: msg.Error()}
	}

	msg := string(body)
	mtype := NewMimeType(resp.Header.Get(HeaderContentType))
	switch {
	case mtype.IsJSON():
		if m, ok := messageFromJSON(body); ok {
			msg = m
		}
	case mtype.IsHTML():
		msg = textFromHTML(msg)
	}

	return &ExternalAPIError{URL: url, StatusCode: resp.StatusCode, Message: msg}
}

func messageFromJSON(body []byte) (string, bool) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}

	for _, key := range []string{"detail", "error", "message"} {
		raw, ok := payload[key]
		if !ok {
			continue
		}

		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, true
		}

		// e.g. validation details as list of objects
		return string(raw), true
	}

	return "", false
}

func textFromHTML(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(htmlPolicy.Sanitize(s))), " ")
}

type ExternalAPIError struct {
	URL        string
	Message    string
	StatusCode int
}

func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%d: %s (URL: %s)", e.StatusCode, strings.TrimSpace(e.Message), e.URL)
}

func (e *ExternalAPIError) Is(target error) bool {
	t, ok := target.(*ExternalAPIError)
	if !ok {
		return false
	}

	return e.StatusCode == t.StatusCode
}

func IsStatusCode(err error, statusCode ...int) bool {
	if len(statusCode) == 0 {
		return false
	}

	var apiErr *ExternalAPIError
	if errors.As(err, &apiErr) {
		return slices.Contains(statusCode, apiErr.StatusCode)
	}

	return false
}
