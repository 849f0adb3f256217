package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	sdk "github.com/tarmac-project/bindings"
	"github.com/tarmac-project/bindings/hostmock"
	"github.com/tarmac-project/bindings/vectorize"
	proto "github.com/tarmac-project/protobuf-go/sdk/http"
)

// DefaultBaseURL is the base URL used when Config.BaseURL is empty.
const DefaultBaseURL = "http://localhost:8787/"

var (
	// ErrWorkerNil is returned when no worker is configured.
	ErrWorkerNil = errors.New("worker cannot be nil")

	// ErrInvalidURL indicates a malformed base or request URL.
	ErrInvalidURL = errors.New("invalid URL provided")

	// ErrInvalidMethod indicates an HTTP method the harness does not dispatch.
	ErrInvalidMethod = errors.New("invalid HTTP method")

	// ErrNilRequest indicates Dispatch received a nil Request pointer.
	ErrNilRequest = errors.New("request is nil")

	// ErrMarshalRequest wraps failures while encoding the request envelope.
	ErrMarshalRequest = errors.New("failed to create request")

	// ErrWorker wraps errors returned by the worker itself.
	ErrWorker = errors.New("worker failed")

	// ErrUnmarshalResponse wraps failures while decoding the worker response.
	ErrUnmarshalResponse = errors.New("failed to unmarshal response")
)

// Worker serves encoded requests against a host. router.Router implements it.
type Worker interface {
	Serve(hostCall sdk.HostCall, payload []byte) ([]byte, error)
}

// Config configures a Harness.
type Config struct {
	// Worker is the worker under test.
	Worker Worker

	// BaseURL is the URL requests are resolved against. Defaults to DefaultBaseURL.
	BaseURL string

	// Namespace is the runtime namespace the worker is expected to use.
	Namespace string

	// Vectorize maps binding names to the clients answering for them.
	Vectorize map[string]vectorize.Client
}

// Request is a request to dispatch to the worker.
type Request struct {
	// Method defaults to GET.
	Method string
	// URL may be absolute or relative to the base URL.
	URL    string
	Header http.Header
	Body   []byte
}

// Response is the worker's answer.
type Response struct {
	// Status is the HTTP status text (e.g., "OK").
	Status string
	// StatusCode is the numeric HTTP status code (e.g., 200).
	StatusCode int
	// Header contains response headers.
	Header http.Header
	// Body is the response payload stream. It is never nil.
	Body io.ReadCloser
}

// Text reads and closes the body.
func (r *Response) Text() (string, error) {
	defer func() { _ = r.Body.Close() }()
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// JSON reads the body and decodes it into v.
func (r *Response) JSON(v any) error {
	s, err := r.Text()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(s), v)
}

// Harness hosts a worker and its bindings in memory.
type Harness struct {
	base    *url.URL
	runtime sdk.RuntimeConfig
	worker  Worker
	host    *hostmock.Router

	bindings map[string]vectorize.Client

	mu      sync.Mutex
	logs    []LogEntry
	metrics Metrics
}

// New creates a Harness.
func New(cfg Config) (*Harness, error) {
	if cfg.Worker == nil {
		return nil, ErrWorkerNil
	}

	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("%w: base %q", ErrInvalidURL, cfg.BaseURL)
	}

	bindings := make(map[string]vectorize.Client, len(cfg.Vectorize))
	for name, c := range cfg.Vectorize {
		if name == "" || c == nil {
			return nil, fmt.Errorf("%w: %q", vectorize.ErrInvalidBinding, name)
		}
		bindings[name] = c
	}

	h := &Harness{
		base:     base,
		runtime:  sdk.RuntimeConfig{Namespace: cfg.Namespace}.WithDefaults(),
		worker:   cfg.Worker,
		bindings: bindings,
		metrics:  newMetrics(),
	}
	h.host = h.newHost()
	return h, nil
}

// URL returns the base URL. It always ends with a slash.
func (h *Harness) URL() string { return h.base.String() }

// Namespace returns the runtime namespace the harness serves.
func (h *Harness) Namespace() string { return h.runtime.Namespace }

// HostCall answers host calls made by the worker.
func (h *Harness) HostCall(namespace, capability, function string, payload []byte) ([]byte, error) {
	return h.host.HostCall(namespace, capability, function, payload)
}

// HostCalls returns every host call the worker has made.
func (h *Harness) HostCalls() []hostmock.Call { return h.host.Calls() }

// DispatchFetch sends a GET request for rawURL to the worker.
func (h *Harness) DispatchFetch(ctx context.Context, rawURL string) (*Response, error) {
	return h.Dispatch(ctx, &Request{Method: http.MethodGet, URL: rawURL})
}

// Dispatch sends req to the worker and returns its response.
func (h *Harness) Dispatch(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	if !isValidMethod(method) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, req.Method)
	}

	u, err := h.base.Parse(req.URL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, req.URL)
	}

	pbReq := &proto.HTTPClient{
		Method:  method,
		Url:     u.String(),
		Body:    req.Body,
		Headers: make(map[string]*proto.Header, len(req.Header)),
	}
	for name, values := range req.Header {
		pbReq.Headers[name] = &proto.Header{Values: values}
	}

	b, err := pbReq.MarshalVT()
	if err != nil {
		return nil, errors.Join(ErrMarshalRequest, err)
	}

	out, err := h.worker.Serve(h.HostCall, b)
	if err != nil {
		return nil, errors.Join(ErrWorker, err)
	}

	return decodeResponse(out)
}

// decodeResponse converts the worker's response envelope into a Response.
func decodeResponse(b []byte) (*Response, error) {
	var r proto.HTTPClientResponse
	if err := r.UnmarshalVT(b); err != nil {
		return nil, errors.Join(ErrUnmarshalResponse, err)
	}

	status := r.GetStatus()
	if status == nil {
		return nil, sdk.ErrHostResponseInvalid
	}
	switch code := status.GetCode(); code {
	case sdk.HostStatusOK, sdk.HostStatusPartial:
	default:
		detail := fmt.Sprintf("worker status %d", code)
		if msg := status.GetStatus(); msg != "" {
			detail = fmt.Sprintf("%s: %s", detail, msg)
		}
		return nil, errors.Join(sdk.ErrHostError, errors.New(detail))
	}

	code := int(r.GetCode())
	out := &Response{
		Status:     http.StatusText(code),
		StatusCode: code,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader(r.GetBody())),
	}
	for name, header := range r.GetHeaders() {
		out.Header[name] = header.GetValues()
	}
	return out, nil
}

func isValidMethod(method string) bool {
	switch method {
	case http.MethodGet,
		http.MethodHead,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions:
		return true
	default:
		return false
	}
}
