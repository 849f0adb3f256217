package hostmock

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnexpectedNamespace is returned when the namespace is not as expected.
	ErrUnexpectedNamespace = errors.New("unexpected namespace")

	// ErrUnexpectedCapability is returned when the capability is not as expected.
	ErrUnexpectedCapability = errors.New("unexpected capability")

	// ErrUnexpectedFunction is returned when the function is not as expected.
	ErrUnexpectedFunction = errors.New("unexpected function")

	// ErrOperationFailed is returned when Fail is set without a custom error.
	ErrOperationFailed = errors.New("operation failed")
)

// Call records one host invocation observed by a Mock or Router.
type Call struct {
	Namespace  string
	Capability string
	Function   string
	Payload    []byte
}

// Config represents the configuration for creating a Mock instance.
type Config struct {
	// ExpectedNamespace defines the namespace expected in the host call.
	ExpectedNamespace string

	// ExpectedCapability defines the capability expected in the host call.
	ExpectedCapability string

	// ExpectedFunction defines the function name expected in the host call.
	ExpectedFunction string

	// Error is the error to return if the mock is configured to fail.
	Error error

	// PayloadValidator validates the payload passed to the host call.
	PayloadValidator func([]byte) error

	// Response defines the response to return for the host call.
	Response func() []byte

	// Fail indicates whether the mock should return an error.
	Fail bool
}

// Mock simulates a single host route with validation and a scripted response.
type Mock struct {
	cfg Config

	mu    sync.Mutex
	calls []Call
}

// New creates a new instance of the Mock based on the provided Config.
func New(config Config) (*Mock, error) {
	return &Mock{cfg: config}, nil
}

// Calls returns a copy of the invocations seen so far.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// HostCall simulates a host call, validating inputs and returning a response or error.
func (m *Mock) HostCall(namespace, capability, function string, payload []byte) ([]byte, error) {
	m.record(namespace, capability, function, payload)

	if m.cfg.Fail {
		if m.cfg.Error != nil {
			return nil, m.cfg.Error
		}
		return nil, ErrOperationFailed
	}

	if err := expect(ErrUnexpectedNamespace, "namespace", m.cfg.ExpectedNamespace, namespace); err != nil {
		return nil, err
	}
	if err := expect(ErrUnexpectedCapability, "capability", m.cfg.ExpectedCapability, capability); err != nil {
		return nil, err
	}
	if err := expect(ErrUnexpectedFunction, "function", m.cfg.ExpectedFunction, function); err != nil {
		return nil, err
	}

	if m.cfg.PayloadValidator != nil {
		if err := m.cfg.PayloadValidator(payload); err != nil {
			return nil, err
		}
	}

	if m.cfg.Response != nil {
		return m.cfg.Response(), nil
	}
	return nil, nil
}

func (m *Mock) record(namespace, capability, function string, payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{
		Namespace:  namespace,
		Capability: capability,
		Function:   function,
		Payload:    append([]byte(nil), payload...),
	})
}

// expect enforces want when it is set; an empty want is a wildcard.
func expect(sentinel error, what, want, got string) error {
	if want == "" || want == got {
		return nil
	}
	return fmt.Errorf("%w: expected %s %s, got %s", sentinel, what, want, got)
}

// RouteFunc answers a routed host call.
type RouteFunc func(payload []byte) ([]byte, error)

// route answers a call with the namespace the caller used.
type route func(namespace string, payload []byte) ([]byte, error)

// Router dispatches host calls to per capability/function handlers so a
// single fake host can serve several capabilities at once.
type Router struct {
	// ExpectedNamespace, when set, is enforced for every call.
	ExpectedNamespace string

	mu     sync.Mutex
	routes map[string]route
	known  map[string]bool
	calls  []Call
}

// NewRouter creates an empty Router.
func NewRouter(namespace string) *Router {
	return &Router{
		ExpectedNamespace: namespace,
		routes:            make(map[string]route),
		known:             make(map[string]bool),
	}
}

func routeKey(capability, function string) string {
	return capability + ":" + function
}

// Handle registers fn for the capability and function pair.
func (r *Router) Handle(capability, function string, fn RouteFunc) *Router {
	return r.handle(capability, function, func(_ string, p []byte) ([]byte, error) {
		return fn(p)
	})
}

// HandleMock routes the mock's expected capability and function to it. The
// mock sees the namespace of the incoming call.
func (r *Router) HandleMock(m *Mock) *Router {
	return r.handle(m.cfg.ExpectedCapability, m.cfg.ExpectedFunction, func(namespace string, p []byte) ([]byte, error) {
		return m.HostCall(namespace, m.cfg.ExpectedCapability, m.cfg.ExpectedFunction, p)
	})
}

func (r *Router) handle(capability, function string, fn route) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[routeKey(capability, function)] = fn
	r.known[capability] = true
	return r
}

// Calls returns a copy of the invocations seen so far.
func (r *Router) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// HostCall routes the call to the registered handler.
func (r *Router) HostCall(namespace, capability, function string, payload []byte) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{
		Namespace:  namespace,
		Capability: capability,
		Function:   function,
		Payload:    append([]byte(nil), payload...),
	})
	fn, ok := r.routes[routeKey(capability, function)]
	known := r.known[capability]
	r.mu.Unlock()

	if err := expect(ErrUnexpectedNamespace, "namespace", r.ExpectedNamespace, namespace); err != nil {
		return nil, err
	}

	if !ok {
		if !known {
			return nil, fmt.Errorf("%w: no routes for capability %s", ErrUnexpectedCapability, capability)
		}
		return nil, fmt.Errorf("%w: no route for %s", ErrUnexpectedFunction, routeKey(capability, function))
	}

	return fn(namespace, payload)
}
