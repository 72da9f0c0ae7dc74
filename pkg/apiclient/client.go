package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 10 * time.Second

// Config holds the settings used to build a Client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client issues requests against a fixed base address. It holds no mutable
// state and is safe for concurrent use.
type Client struct {
	base string
	http *resty.Client
}

// New builds a Client. The base address is normalized once here.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	c := resty.New()
	c.SetTimeout(cfg.Timeout)
	if ua := strings.TrimSpace(cfg.UserAgent); ua != "" {
		c.SetHeader("User-Agent", ua)
	}

	return &Client{base: NormalizeBase(cfg.BaseURL), http: c}
}

// NormalizeBase strips every trailing "/" from a base address.
func NormalizeBase(raw string) string {
	return strings.TrimRight(raw, "/")
}

// BaseURL returns the normalized base address.
func (c *Client) BaseURL() string { return c.base }

// Send performs the request and returns the parsed body: nil for 204, a
// string for ParseText, []byte for ParseBinary, and a decoded JSON value
// otherwise. Non-2xx responses yield a *ResponseError; transport errors are
// returned as the transport produced them.
func (c *Client) Send(ctx context.Context, req Request) (any, error) {
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == http.StatusNoContent {
		return nil, nil
	}

	switch req.ParseAs {
	case ParseText:
		return string(resp.Body()), nil
	case ParseBinary:
		return resp.Body(), nil
	default:
		var v any
		if err := json.Unmarshal(resp.Body(), &v); err != nil {
			return nil, fmt.Errorf("decode response body: %w", err)
		}
		return v, nil
	}
}

// Get sends req as a GET to path.
func (c *Client) Get(ctx context.Context, path string, req Request) (any, error) {
	req.Path = path
	req.Method = http.MethodGet
	return c.Send(ctx, req)
}

// Post sends body, encoded as a JSON string, as a POST to path. A nil body
// sends no payload.
func (c *Client) Post(ctx context.Context, path string, body any, req Request) (any, error) {
	req.Path = path
	req.Method = http.MethodPost
	req.Body = nil
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		req.Body = string(raw)
	}
	return c.Send(ctx, req)
}

// Fetch sends req and decodes a JSON success body into T. A 204 yields the
// zero T. req.ParseAs is ignored.
func Fetch[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var out T
	req.ParseAs = ParseJSON

	resp, err := c.do(ctx, req)
	if err != nil {
		return out, err
	}
	if resp.StatusCode() == http.StatusNoContent {
		return out, nil
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return out, fmt.Errorf("decode response body: %w", err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, req Request) (*resty.Response, error) {
	if !strings.HasPrefix(req.Path, "/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, req.Path)
	}
	if err := req.ParseAs.validate(); err != nil {
		return nil, err
	}

	r := c.http.R().
		SetContext(ctx).
		SetHeaders(buildHeaders(req))
	if err := setBody(r, req.Body); err != nil {
		return nil, err
	}

	resp, err := r.Execute(req.method(), c.base+req.Path)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, newResponseError(resp, req.Path)
	}
	return resp, nil
}

func setBody(r *resty.Request, body any) error {
	switch b := body.(type) {
	case nil:
		return nil
	case *Form:
		if b == nil {
			return nil
		}
		r.SetMultipartFormData(b.Fields)
		for _, f := range b.Files {
			r.SetMultipartField(f.Field, f.FileName, f.ContentType, f.Reader)
		}
	case string, []byte, io.Reader:
		r.SetBody(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		r.SetBody(raw)
	}
	return nil
}
