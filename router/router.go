package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	sdk "github.com/tarmac-project/bindings"
	"github.com/tarmac-project/bindings/logging"
	"github.com/tarmac-project/bindings/metrics"
	"github.com/tarmac-project/bindings/vectorize"
	sdkproto "github.com/tarmac-project/protobuf-go/sdk"
	proto "github.com/tarmac-project/protobuf-go/sdk/http"
	wapc "github.com/wapc/wapc-guest-tinygo"
)

// Metric names emitted for every request.
const (
	MetricRequests      = "worker_requests_total"
	MetricRequestErrors = "worker_request_errors_total"
	MetricLatency       = "worker_request_seconds"
)

var (
	// ErrInvalidRequest wraps failures decoding the request envelope.
	ErrInvalidRequest = errors.New("invalid request payload")

	// ErrMarshalResponse wraps failures encoding the response envelope.
	ErrMarshalResponse = errors.New("failed to marshal response")
)

// HandlerFunc serves one route.
type HandlerFunc func(req *Request, env *Env) (*Response, error)

// Request is the decoded worker request.
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   []byte
}

// DecodeJSON unmarshals the request body into v.
func (r *Request) DecodeJSON(v any) error {
	if len(r.Body) == 0 {
		return errors.New("request body is empty")
	}
	return json.Unmarshal(r.Body, v)
}

// Response is what a handler returns.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON builds a response with v encoded as the body.
func JSON(status int, v any) (*Response, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json response: %w", err)
	}
	return &Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       b,
	}, nil
}

// Text builds a plain text response.
func Text(status int, s string) *Response {
	return &Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
		Body:       []byte(s),
	}
}

// Env exposes the bindings available to a handler for one request.
type Env struct {
	runtime  sdk.RuntimeConfig
	hostCall sdk.HostCall
}

// NewEnv creates an Env bound to the given host.
func NewEnv(runtime sdk.RuntimeConfig, hostCall sdk.HostCall) *Env {
	return &Env{runtime: runtime.WithDefaults(), hostCall: hostCall}
}

// Vectorize returns a client for the named vectorize binding.
func (e *Env) Vectorize(binding string) (vectorize.Client, error) {
	return vectorize.New(vectorize.Config{SDKConfig: e.runtime, Binding: binding, HostCall: e.hostCall})
}

// Logger returns a host logging client.
func (e *Env) Logger() logging.Client {
	l, _ := logging.New(logging.Config{SDKConfig: e.runtime, HostCall: e.hostCall})
	return l
}

// Metrics returns a host metrics client.
func (e *Env) Metrics() *metrics.HostMetrics {
	m, _ := metrics.New(metrics.Config{SDKConfig: e.runtime, HostCall: e.hostCall})
	return m
}

// Config controls the router's runtime and default host.
type Config struct {
	// SDKConfig provides the runtime namespace passed to bindings.
	SDKConfig sdk.RuntimeConfig

	// HostCall is used by Handler. Defaults to wapc.HostCall.
	HostCall sdk.HostCall
}

// Router matches requests by exact path and method.
type Router struct {
	runtime  sdk.RuntimeConfig
	hostCall sdk.HostCall

	mu     sync.RWMutex
	routes map[string]map[string]HandlerFunc
}

// New creates an empty Router.
func New(cfg Config) *Router {
	hostCall := cfg.HostCall
	if hostCall == nil {
		hostCall = wapc.HostCall
	}
	return &Router{
		runtime:  cfg.SDKConfig.WithDefaults(),
		hostCall: hostCall,
		routes:   make(map[string]map[string]HandlerFunc),
	}
}

// Handle registers fn for method and path.
func (r *Router) Handle(method, path string, fn HandlerFunc) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := cleanPath(path)
	if r.routes[p] == nil {
		r.routes[p] = make(map[string]HandlerFunc)
	}
	r.routes[p][strings.ToUpper(method)] = fn
	return r
}

// Get registers a GET route.
func (r *Router) Get(path string, fn HandlerFunc) *Router { return r.Handle(http.MethodGet, path, fn) }

// Post registers a POST route.
func (r *Router) Post(path string, fn HandlerFunc) *Router { return r.Handle(http.MethodPost, path, fn) }

// Handler returns the waPC entry point bound to the configured host.
func (r *Router) Handler() func([]byte) ([]byte, error) {
	return func(payload []byte) ([]byte, error) {
		return r.Serve(r.hostCall, payload)
	}
}

// Serve handles one encoded request against the given host.
func (r *Router) Serve(hostCall sdk.HostCall, payload []byte) ([]byte, error) {
	var in proto.HTTPClient
	if err := in.UnmarshalVT(payload); err != nil {
		return nil, errors.Join(ErrInvalidRequest, err)
	}

	u, err := url.Parse(in.GetUrl())
	if err != nil {
		return nil, errors.Join(ErrInvalidRequest, err)
	}

	method := strings.ToUpper(in.GetMethod())
	if method == "" {
		method = http.MethodGet
	}

	req := &Request{Method: method, URL: u, Header: make(http.Header), Body: in.GetBody()}
	for name, h := range in.GetHeaders() {
		req.Header[name] = h.GetValues()
	}

	resp := r.dispatch(req, NewEnv(r.runtime, hostCall))
	return encode(resp)
}

// dispatch runs the matching handler and records request metrics.
func (r *Router) dispatch(req *Request, env *Env) *Response {
	start := time.Now()
	m := env.Metrics()
	if c, err := m.NewCounter(MetricRequests); err == nil {
		c.Inc()
	}

	resp := r.route(req, env)

	if h, err := m.NewHistogram(MetricLatency); err == nil {
		h.ObserveSince(start)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		if c, err := m.NewCounter(MetricRequestErrors); err == nil {
			c.Inc()
		}
	}
	return resp
}

func (r *Router) route(req *Request, env *Env) *Response {
	r.mu.RLock()
	methods, ok := r.routes[cleanPath(req.URL.Path)]
	var fn HandlerFunc
	if ok {
		fn = methods[req.Method]
	}
	allowed := make([]string, 0, len(methods))
	for m := range methods {
		allowed = append(allowed, m)
	}
	r.mu.RUnlock()

	if !ok {
		return Text(http.StatusNotFound, "not found")
	}
	if fn == nil {
		sort.Strings(allowed)
		resp := Text(http.StatusMethodNotAllowed, "method not allowed")
		resp.Header.Set("Allow", strings.Join(allowed, ", "))
		return resp
	}

	resp, err := fn(req, env)
	if err != nil {
		_ = env.Logger().Error("handler failed", "method", req.Method, "path", req.URL.Path, "error", err)
		return Text(http.StatusInternalServerError, err.Error())
	}
	if resp == nil {
		return &Response{StatusCode: http.StatusNoContent, Header: make(http.Header)}
	}
	if resp.StatusCode == 0 {
		resp.StatusCode = http.StatusOK
	}
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	return resp
}

// encode converts a Response into the host response envelope.
func encode(resp *Response) ([]byte, error) {
	out := &proto.HTTPClientResponse{
		Status:  &sdkproto.Status{Status: "OK", Code: sdk.HostStatusOK},
		Code:    int32(resp.StatusCode),
		Headers: make(map[string]*proto.Header, len(resp.Header)),
		Body:    resp.Body,
	}
	for name, values := range resp.Header {
		out.Headers[name] = &proto.Header{Values: values}
	}

	b, err := out.MarshalVT()
	if err != nil {
		return nil, errors.Join(ErrMarshalResponse, err)
	}
	return b, nil
}

// cleanPath gives paths a leading slash and drops a trailing one.
func cleanPath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}
