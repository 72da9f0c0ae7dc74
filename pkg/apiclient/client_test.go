package apiclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"
)

type recordedRequest struct {
	method  string
	path    string
	headers http.Header
	body    string
}

func newRecordingServer(t *testing.T, h http.HandlerFunc) (*httptest.Server, *recordedRequest) {
	t.Helper()
	rec := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.headers = r.Header.Clone()
		rec.body = string(raw)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestNormalizeBaseStripsTrailingSlashes(t *testing.T) {
	cases := map[string]string{
		"http://x///":       "http://x",
		"http://x/":         "http://x",
		"http://x":          "http://x",
		"http://x/api/":     "http://x/api",
		"":                  "",
		"/":                 "",
		"https://h:8080//": "https://h:8080",
	}
	for in, want := range cases {
		if got := NormalizeBase(in); got != want {
			t.Fatalf("NormalizeBase(%q) = %q, want %q", in, got, want)
		}
	}

	c := New(Config{BaseURL: "http://x///"})
	if c.BaseURL() != "http://x" {
		t.Fatalf("client base = %q", c.BaseURL())
	}
}

func TestSendJoinsBaseWithoutDoubleSlash(t *testing.T) {
	srv, rec := newRecordingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":"ok"}`)
	})

	c := New(Config{BaseURL: srv.URL + "///"})
	if _, err := c.Send(context.Background(), Request{Path: "/api/v1/health"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if rec.path != "/api/v1/health" {
		t.Fatalf("server saw path %q", rec.path)
	}
	if rec.method != http.MethodGet {
		t.Fatalf("expected default GET, got %s", rec.method)
	}
}

func TestSendDecodesJSON(t *testing.T) {
	payload := `{"name":"Arcanalyse API","tags":["a","b"],"nested":{"n":1.5,"ok":true,"none":null}}`
	srv, _ := newRecordingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, payload)
	})

	got, err := New(Config{BaseURL: srv.URL}).Send(context.Background(), Request{Path: "/v"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	want := map[string]any{
		"name":   "Arcanalyse API",
		"tags":   []any{"a", "b"},
		"nested": map[string]any{"n": 1.5, "ok": true, "none": nil},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("decoded %#v, want %#v", got, want)
	}
}

func TestSendNoContentSkipsParsing(t *testing.T) {
	srv, _ := newRecordingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNoContent)
	})
	c := New(Config{BaseURL: srv.URL})

	for _, mode := range []ParseMode{"", ParseJSON, ParseText, ParseBinary} {
		got, err := c.Send(context.Background(), Request{Path: "/empty", ParseAs: mode})
		if err != nil {
			t.Fatalf("mode %q: Send: %v", mode, err)
		}
		if got != nil {
			t.Fatalf("mode %q: expected nil result, got %#v", mode, got)
		}
	}
}

func TestSendTextAndBinaryModes(t *testing.T) {
	srv, _ := newRecordingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "  <title>x</title>\n")
	})
	c := New(Config{BaseURL: srv.URL})

	text, err := c.Send(context.Background(), Request{Path: "/", ParseAs: ParseText})
	if err != nil {
		t.Fatalf("text Send: %v", err)
	}
	if text != "  <title>x</title>\n" {
		t.Fatalf("text body = %q", text)
	}

	raw, err := c.Send(context.Background(), Request{Path: "/", ParseAs: ParseBinary})
	if err != nil {
		t.Fatalf("binary Send: %v", err)
	}
	if b, ok := raw.([]byte); !ok || !bytes.Equal(b, []byte("  <title>x</title>\n")) {
		t.Fatalf("binary body = %#v", raw)
	}

	if _, err := c.Send(context.Background(), Request{Path: "/", ParseAs: "xml"}); err == nil {
		t.Fatalf("expected unsupported parse mode error")
	}
}

func TestSendJSONErrorBody(t *testing.T) {
	srv, _ := newRecordingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, `{"detail":"bad input"}`)
	})

	_, err := New(Config{BaseURL: srv.URL}).Send(context.Background(), Request{Path: "/items"})
	re, ok := AsResponseError(err)
	if !ok {
		t.Fatalf("expected *ResponseError, got %v", err)
	}
	if re.Status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", re.Status)
	}
	if !reflect.DeepEqual(re.Body, map[string]any{"detail": "bad input"}) {
		t.Fatalf("body = %#v", re.Body)
	}
	if re.BodyErr != nil {
		t.Fatalf("unexpected body error %v", re.BodyErr)
	}
	if want := "HTTP 422 Unprocessable Entity for /items"; re.Error() != want {
		t.Fatalf("message = %q, want %q", re.Error(), want)
	}
}

func TestSendTextErrorBody(t *testing.T) {
	srv, _ := newRecordingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "not found")
	})

	_, err := New(Config{BaseURL: srv.URL}).Send(context.Background(), Request{Path: "/missing"})
	re, ok := AsResponseError(err)
	if !ok {
		t.Fatalf("expected *ResponseError, got %v", err)
	}
	if re.Status != http.StatusNotFound || !re.IsNotFound() {
		t.Fatalf("status = %d", re.Status)
	}
	if re.Body != "not found" {
		t.Fatalf("body = %#v", re.Body)
	}
	if StatusCode(err) != http.StatusNotFound {
		t.Fatalf("StatusCode = %d", StatusCode(err))
	}
}

func TestSendMalformedJSONErrorBodyIsSwallowed(t *testing.T) {
	srv, _ := newRecordingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"detail":`)
	})

	_, err := New(Config{BaseURL: srv.URL}).Send(context.Background(), Request{Path: "/boom"})
	re, ok := AsResponseError(err)
	if !ok {
		t.Fatalf("expected *ResponseError, got %v", err)
	}
	if re.Status != http.StatusInternalServerError || !re.IsServerError() {
		t.Fatalf("status = %d", re.Status)
	}
	if re.Body != nil {
		t.Fatalf("expected nil body, got %#v", re.Body)
	}
	if re.BodyErr == nil {
		t.Fatalf("expected parse error to be recorded")
	}
}

func TestSendStatusIsPreservedForEveryFailure(t *testing.T) {
	for _, status := range []int{400, 401, 403, 409, 418, 429, 502, 503} {
		srv, _ := newRecordingServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		})
		_, err := New(Config{BaseURL: srv.URL}).Send(context.Background(), Request{Path: "/x"})
		if got := StatusCode(err); got != status {
			t.Fatalf("status %d: got %d (%v)", status, got, err)
		}
	}
}

func TestPostSendsJSONString(t *testing.T) {
	srv, rec := newRecordingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusCreated, `{"id":1}`)
	})
	c := New(Config{BaseURL: srv.URL})

	got, err := c.Post(context.Background(), "/x", map[string]int{"a": 1}, Request{})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if rec.method != http.MethodPost {
		t.Fatalf("method = %s", rec.method)
	}
	if rec.body != `{"a":1}` {
		t.Fatalf("body = %q", rec.body)
	}
	if ct := rec.headers.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	if !reflect.DeepEqual(got, map[string]any{"id": float64(1)}) {
		t.Fatalf("result = %#v", got)
	}

	_, err = c.Post(context.Background(), "/x", map[string]int{"a": 1}, Request{
		Method:  http.MethodPut,
		Headers: map[string]string{"content-type": "application/vnd.api+json"},
	})
	if err != nil {
		t.Fatalf("Post override: %v", err)
	}
	if ct := rec.headers.Get("Content-Type"); ct != "application/vnd.api+json" {
		t.Fatalf("override content type = %q", ct)
	}
	if rec.method != http.MethodPost {
		t.Fatalf("Post must force POST, got %s", rec.method)
	}
}

func TestPostWithoutBodySendsNoPayload(t *testing.T) {
	srv, rec := newRecordingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	got, err := New(Config{BaseURL: srv.URL}).Post(context.Background(), "/ping", nil, Request{Body: "ignored"})
	if err != nil || got != nil {
		t.Fatalf("Post: got %#v err %v", got, err)
	}
	if rec.body != "" {
		t.Fatalf("expected empty body, got %q", rec.body)
	}
	if ct := rec.headers.Get("Content-Type"); ct != "" {
		t.Fatalf("expected no content type, got %q", ct)
	}
}

func TestGetForcesMethod(t *testing.T) {
	srv, rec := newRecordingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `[]`)
	})

	if _, err := New(Config{BaseURL: srv.URL}).Get(context.Background(), "/list", Request{Method: http.MethodDelete}); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.method != http.MethodGet {
		t.Fatalf("method = %s", rec.method)
	}
}

func TestSendHeaders(t *testing.T) {
	srv, rec := newRecordingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})
	c := New(Config{BaseURL: srv.URL, UserAgent: "arcanalyse-test"})
	ctx := context.Background()

	if _, err := c.Send(ctx, Request{Path: "/h"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := rec.headers.Get("Accept"); got != "application/json" {
		t.Fatalf("default accept = %q", got)
	}
	if got := rec.headers.Get("User-Agent"); got != "arcanalyse-test" {
		t.Fatalf("user agent = %q", got)
	}
	if got := rec.headers.Get("Content-Type"); got != "" {
		t.Fatalf("no body should not set content type, got %q", got)
	}

	if _, err := c.Send(ctx, Request{Path: "/h", Headers: map[string]string{"accept": "text/plain", "X-Trace": "1"}}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := rec.headers.Get("Accept"); got != "text/plain" {
		t.Fatalf("overridden accept = %q", got)
	}
	if got := rec.headers.Get("X-Trace"); got != "1" {
		t.Fatalf("custom header = %q", got)
	}

	if _, err := c.Send(ctx, Request{Path: "/h", Method: http.MethodPut, Body: map[string]any{"b": []int{1, 2}}}); err != nil {
		t.Fatalf("Send struct body: %v", err)
	}
	if rec.body != `{"b":[1,2]}` {
		t.Fatalf("struct body = %q", rec.body)
	}
	if got := rec.headers.Get("Content-Type"); got != "application/json" {
		t.Fatalf("struct body content type = %q", got)
	}
}

func TestSendOpaqueBodiesKeepTheirContentType(t *testing.T) {
	srv, rec := newRecordingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	c := New(Config{BaseURL: srv.URL})
	ctx := context.Background()

	if _, err := c.Send(ctx, Request{Path: "/blob", Method: http.MethodPost, Body: []byte{0x00, 0x01, 0x02}}); err != nil {
		t.Fatalf("Send blob: %v", err)
	}
	if ct := rec.headers.Get("Content-Type"); ct == "application/json" {
		t.Fatalf("binary body must not default to JSON content type")
	}
	if rec.body != string([]byte{0x00, 0x01, 0x02}) {
		t.Fatalf("blob body = %q", rec.body)
	}

	if _, err := c.Send(ctx, Request{Path: "/stream", Method: http.MethodPost, Body: strings.NewReader("chunk"),
		Headers: map[string]string{"Content-Type": "application/octet-stream"}}); err != nil {
		t.Fatalf("Send reader: %v", err)
	}
	if ct := rec.headers.Get("Content-Type"); ct != "application/octet-stream" {
		t.Fatalf("reader content type = %q", ct)
	}

	form := &Form{
		Fields: map[string]string{"name": "goblin"},
		Files:  []FormFile{{Field: "sheet", FileName: "goblin.txt", ContentType: "text/plain", Reader: strings.NewReader("cr 1/4")}},
	}
	if _, err := c.Send(ctx, Request{Path: "/upload", Method: http.MethodPost, Body: form}); err != nil {
		t.Fatalf("Send form: %v", err)
	}
	if ct := rec.headers.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/form-data") {
		t.Fatalf("form content type = %q", ct)
	}
	if !strings.Contains(rec.body, "goblin") || !strings.Contains(rec.body, "cr 1/4") {
		t.Fatalf("form body missing parts: %q", rec.body)
	}
}

func TestSendTransportErrorIsNotResponseError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	_, err := New(Config{BaseURL: base}).Send(context.Background(), Request{Path: "/api/v1/health"})
	if err == nil {
		t.Fatalf("expected transport error")
	}
	if _, ok := AsResponseError(err); ok {
		t.Fatalf("transport error must not be a *ResponseError: %v", err)
	}
	if StatusCode(err) != 0 {
		t.Fatalf("expected status 0 for transport error")
	}
}

func TestSendReturnsTransportErrorUnwrapped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()
	c := New(Config{BaseURL: base})

	_, err := c.Send(context.Background(), Request{Path: "/api/v1/health"})
	if _, ok := err.(*url.Error); !ok {
		t.Fatalf("expected the transport's *url.Error itself, got %T: %v", err, err)
	}

	_, err = Fetch[map[string]any](context.Background(), c, Request{Path: "/api/v1/health"})
	if _, ok := err.(*url.Error); !ok {
		t.Fatalf("Fetch: expected *url.Error, got %T: %v", err, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Send(ctx, Request{Path: "/api/v1/health"})
	ue, ok := err.(*url.Error)
	if !ok || !errors.Is(ue.Err, context.Canceled) {
		t.Fatalf("expected *url.Error wrapping context.Canceled, got %T: %v", err, err)
	}
}

func TestSendHonorsCancellation(t *testing.T) {
	srv, _ := newRecordingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Config{BaseURL: srv.URL}).Send(ctx, Request{Path: "/x"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSendRejectsRelativePath(t *testing.T) {
	_, err := New(Config{BaseURL: "http://127.0.0.1:1"}).Send(context.Background(), Request{Path: "api/v1/health"})
	if !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
}

func TestFetchDecodesIntoType(t *testing.T) {
	srv, _ := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/none" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, `{"name":"Arcanalyse API","version":"0.1.0","env":"dev"}`)
	})
	c := New(Config{BaseURL: srv.URL})

	type version struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		Env     string `json:"env"`
	}
	v, err := Fetch[version](context.Background(), c, Request{Path: "/api/v1/version"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if v != (version{Name: "Arcanalyse API", Version: "0.1.0", Env: "dev"}) {
		t.Fatalf("unexpected version %+v", v)
	}

	empty, err := Fetch[version](context.Background(), c, Request{Path: "/none"})
	if err != nil || empty != (version{}) {
		t.Fatalf("expected zero value on 204, got %+v err %v", empty, err)
	}
}
