package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
)

// ErrInvalidPath is returned before any network call when a request path
// does not start with "/".
var ErrInvalidPath = errors.New("request path must start with /")

// ResponseError is returned for every response with a non-2xx status.
//
// Body holds the decoded JSON value when the response declared a JSON media
// type and the raw text otherwise. When the body could not be parsed, Body is
// nil and BodyErr holds the parse failure.
type ResponseError struct {
	Status     int
	StatusText string
	Path       string
	Body       any
	BodyErr    error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("HTTP %d %s for %s", e.Status, e.StatusText, e.Path)
}

func (e *ResponseError) IsNotFound() bool {
	return e.Status == http.StatusNotFound
}

func (e *ResponseError) IsUnauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// IsServerError reports a 5xx status.
func (e *ResponseError) IsServerError() bool {
	return e.Status >= 500 && e.Status <= 599
}

// AsResponseError unwraps err into a *ResponseError. Transport failures
// (connection refused, DNS, timeouts, cancellation) never match.
func AsResponseError(err error) (*ResponseError, bool) {
	var re *ResponseError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not a
// *ResponseError.
func StatusCode(err error) int {
	if re, ok := AsResponseError(err); ok {
		return re.Status
	}
	return 0
}

func newResponseError(resp *resty.Response, path string) *ResponseError {
	e := &ResponseError{
		Status:     resp.StatusCode(),
		StatusText: statusText(resp),
		Path:       path,
	}
	e.Body, e.BodyErr = parseErrorBody(resp.Header().Get(hdrContentType), resp.Body())
	return e
}

func statusText(resp *resty.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status(), strconv.Itoa(resp.StatusCode())))
	if text == "" {
		text = http.StatusText(resp.StatusCode())
	}
	return text
}

func parseErrorBody(contentType string, raw []byte) (any, error) {
	if !isJSONMediaType(contentType) {
		return string(raw), nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func isJSONMediaType(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
		mt = strings.ToLower(strings.TrimSpace(mt))
	}
	return mt == mimeJSON || strings.HasSuffix(mt, "+json")
}
