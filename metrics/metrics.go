package metrics

import (
	"errors"
	"regexp"
	"time"

	sdk "github.com/tarmac-project/bindings"
	proto "github.com/tarmac-project/protobuf-go/sdk/metrics"
	wapc "github.com/wapc/wapc-guest-tinygo"
)

const (
	// CapabilityName is the host capability receiving metric updates.
	CapabilityName = "metrics"

	FnCounter   = "counter"
	FnGauge     = "gauge"
	FnHistogram = "histogram"

	ActionInc = "inc"
	ActionDec = "dec"
)

var (
	// ErrInvalidMetricName indicates a metric name that does not match the supported format.
	ErrInvalidMetricName = errors.New("metric name is invalid")

	isMetricNameValid = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)
)

// Client defines the metrics capability interface.
type Client interface {
	NewCounter(name string) (*Counter, error)
	NewGauge(name string) (*Gauge, error)
	NewHistogram(name string) (*Histogram, error)
}

// Config controls how a Client instance interacts with the host runtime.
type Config struct {
	// SDKConfig provides the runtime namespace used for host calls.
	SDKConfig sdk.RuntimeConfig

	// HostCall overrides the waPC host function used for metrics operations.
	HostCall sdk.HostCall
}

// HostMetrics is the metrics capability client implementation.
type HostMetrics struct {
	runtime  sdk.RuntimeConfig
	hostCall sdk.HostCall
}

var _ Client = (*HostMetrics)(nil)

// handle carries what every metric needs to reach the host.
type handle struct {
	name      string
	namespace string
	hostCall  sdk.HostCall
}

// send is best-effort: a metric update never fails the caller.
func (h handle) send(fn string, payload []byte, err error) {
	if err != nil {
		return
	}
	_, _ = h.hostCall(h.namespace, CapabilityName, fn, payload)
}

// Counter is a named counter metric handle.
type Counter struct{ handle }

// Gauge is a named gauge metric handle.
type Gauge struct{ handle }

// Histogram is a named histogram metric handle.
type Histogram struct{ handle }

// New creates a metrics client with namespace defaults and optional host-call override.
func New(config Config) (*HostMetrics, error) {
	hostCall := config.HostCall
	if hostCall == nil {
		hostCall = wapc.HostCall
	}
	return &HostMetrics{runtime: config.SDKConfig.WithDefaults(), hostCall: hostCall}, nil
}

func (c *HostMetrics) handle(name string) (handle, error) {
	if !isMetricNameValid.MatchString(name) {
		return handle{}, ErrInvalidMetricName
	}
	return handle{name: name, namespace: c.runtime.Namespace, hostCall: c.hostCall}, nil
}

// NewCounter creates a named counter metric handle.
func (c *HostMetrics) NewCounter(name string) (*Counter, error) {
	h, err := c.handle(name)
	if err != nil {
		return nil, err
	}
	return &Counter{h}, nil
}

// NewGauge creates a named gauge metric handle.
func (c *HostMetrics) NewGauge(name string) (*Gauge, error) {
	h, err := c.handle(name)
	if err != nil {
		return nil, err
	}
	return &Gauge{h}, nil
}

// NewHistogram creates a named histogram metric handle.
func (c *HostMetrics) NewHistogram(name string) (*Histogram, error) {
	h, err := c.handle(name)
	if err != nil {
		return nil, err
	}
	return &Histogram{h}, nil
}

// Inc increments the counter by one.
func (c *Counter) Inc() {
	b, err := (&proto.MetricsCounter{Name: c.name}).MarshalVT()
	c.send(FnCounter, b, err)
}

// Inc increments the gauge by one.
func (g *Gauge) Inc() { g.emit(ActionInc) }

// Dec decrements the gauge by one.
func (g *Gauge) Dec() { g.emit(ActionDec) }

func (g *Gauge) emit(action string) {
	b, err := (&proto.MetricsGauge{Name: g.name, Action: action}).MarshalVT()
	g.send(FnGauge, b, err)
}

// Observe records a value for the histogram.
func (h *Histogram) Observe(value float64) {
	b, err := (&proto.MetricsHistogram{Name: h.name, Value: value}).MarshalVT()
	h.send(FnHistogram, b, err)
}

// ObserveSince records the seconds elapsed since start.
func (h *Histogram) ObserveSince(start time.Time) {
	h.Observe(time.Since(start).Seconds())
}
