package apiclient

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	hdrAccept      = "Accept"
	hdrContentType = "Content-Type"
	mimeJSON       = "application/json"
)

// ParseMode selects how a successful response body is returned.
type ParseMode string

const (
	// ParseJSON decodes the body into a generic JSON value. It is the default.
	ParseJSON ParseMode = "json"
	// ParseText returns the body as a string.
	ParseText ParseMode = "text"
	// ParseBinary returns the raw body bytes.
	ParseBinary ParseMode = "binary"
)

func (m ParseMode) validate() error {
	switch m {
	case "", ParseJSON, ParseText, ParseBinary:
		return nil
	default:
		return fmt.Errorf("unsupported parse mode %q", string(m))
	}
}

// Request describes a single call against the client's base address.
//
// Body may be nil, a string (sent verbatim), []byte or io.Reader (opaque
// binary payloads), a *Form (multipart), or any other value, which is
// encoded as JSON.
type Request struct {
	Path    string
	Method  string
	Headers map[string]string
	Body    any
	ParseAs ParseMode
}

// Form is a multipart form body.
type Form struct {
	Fields map[string]string
	Files  []FormFile
}

// FormFile is a single file part of a Form.
type FormFile struct {
	Field       string
	FileName    string
	ContentType string
	Reader      io.Reader
}

func (r Request) method() string {
	m := strings.ToUpper(strings.TrimSpace(r.Method))
	if m == "" {
		return http.MethodGet
	}
	return m
}

// buildHeaders merges caller headers over the Accept default and adds a JSON
// content type for non-opaque bodies unless the caller set one.
func buildHeaders(req Request) map[string]string {
	headers := map[string]string{hdrAccept: mimeJSON}
	for k, v := range req.Headers {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		headers[http.CanonicalHeaderKey(key)] = v
	}
	if wantsJSONContentType(req.Body) {
		if _, ok := headers[hdrContentType]; !ok {
			headers[hdrContentType] = mimeJSON
		}
	}
	return headers
}

func wantsJSONContentType(body any) bool {
	switch body.(type) {
	case nil, *Form, []byte, io.Reader:
		return false
	default:
		return true
	}
}
