package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-coldbrew/log"
	sdk "github.com/tarmac-project/bindings"
	"github.com/tarmac-project/bindings/hostmock"
	"github.com/tarmac-project/bindings/logging"
	"github.com/tarmac-project/bindings/metrics"
	"github.com/tarmac-project/bindings/vectorize"
	metricsproto "github.com/tarmac-project/protobuf-go/sdk/metrics"
)

// LogEntry is one log line emitted by the worker.
type LogEntry struct {
	Level   string
	Message string
}

// Metrics is a snapshot of the metric updates emitted by the worker.
type Metrics struct {
	Counters   map[string]int
	Gauges     map[string]int
	Histograms map[string][]float64
}

func newMetrics() Metrics {
	return Metrics{
		Counters:   make(map[string]int),
		Gauges:     make(map[string]int),
		Histograms: make(map[string][]float64),
	}
}

// Logs returns the log entries captured so far.
func (h *Harness) Logs() []LogEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]LogEntry(nil), h.logs...)
}

// Metrics returns a copy of the recorded metrics.
func (h *Harness) Metrics() Metrics {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := newMetrics()
	for k, v := range h.metrics.Counters {
		out.Counters[k] = v
	}
	for k, v := range h.metrics.Gauges {
		out.Gauges[k] = v
	}
	for k, v := range h.metrics.Histograms {
		out.Histograms[k] = append([]float64(nil), v...)
	}
	return out
}

// newHost wires every capability the harness serves onto a hostmock router.
func (h *Harness) newHost() *hostmock.Router {
	r := hostmock.NewRouter(h.runtime.Namespace)

	r.Handle(vectorize.CapabilityName, vectorize.FnDescribe, h.vectorize(func(c vectorize.Client, _ vectorize.HostRequest) (vectorize.HostResponse, error) {
		d, err := c.Describe()
		if err != nil {
			return vectorize.HostResponse{}, err
		}
		return vectorize.HostResponse{Details: &d}, nil
	}))
	r.Handle(vectorize.CapabilityName, vectorize.FnInsert, h.vectorize(func(c vectorize.Client, req vectorize.HostRequest) (vectorize.HostResponse, error) {
		m, err := c.Insert(req.Vectors)
		if err != nil {
			return vectorize.HostResponse{}, err
		}
		return vectorize.HostResponse{Mutation: &m}, nil
	}))

	for _, lvl := range []string{logging.LevelInfo, logging.LevelWarn, logging.LevelError, logging.LevelDebug, logging.LevelTrace} {
		r.Handle(logging.CapabilityName, lvl, h.logging(lvl))
	}

	r.Handle(metrics.CapabilityName, metrics.FnCounter, h.counter)
	r.Handle(metrics.CapabilityName, metrics.FnGauge, h.gauge)
	r.Handle(metrics.CapabilityName, metrics.FnHistogram, h.histogram)

	return r
}

// vectorize adapts a binding operation into a host route. Binding failures
// are reported in the response status, never as host call errors.
func (h *Harness) vectorize(op func(vectorize.Client, vectorize.HostRequest) (vectorize.HostResponse, error)) hostmock.RouteFunc {
	return func(payload []byte) ([]byte, error) {
		req, err := vectorize.UnmarshalHostRequest(payload)
		if err != nil {
			return vectorize.HostResponse{Code: sdk.HostStatusBadInput, Status: err.Error()}.Marshal()
		}

		c, ok := h.bindings[req.Binding]
		if !ok {
			return vectorize.HostResponse{
				Code:   sdk.HostStatusMissing,
				Status: fmt.Sprintf("no vectorize binding named %q", req.Binding),
			}.Marshal()
		}

		resp, err := op(c, req)
		if err != nil {
			log.Warn(context.Background(), "msg", "vectorize binding failed", "binding", req.Binding, "err", err)
			return vectorize.HostResponse{Code: bindingStatus(err), Status: err.Error()}.Marshal()
		}

		resp.Code = sdk.HostStatusOK
		resp.Status = "OK"
		return resp.Marshal()
	}
}

// bindingStatus maps a binding error onto a host status code.
func bindingStatus(err error) int32 {
	switch {
	case errors.Is(err, vectorize.ErrBindingNotFound):
		return sdk.HostStatusMissing
	case errors.Is(err, vectorize.ErrInvalidVectors),
		errors.Is(err, vectorize.ErrInvalidVectorID),
		errors.Is(err, vectorize.ErrDimensionMismatch),
		errors.Is(err, vectorize.ErrInvalidBinding):
		return sdk.HostStatusBadInput
	default:
		return sdk.HostStatusError
	}
}

func (h *Harness) logging(level string) hostmock.RouteFunc {
	return func(payload []byte) ([]byte, error) {
		msg := string(payload)

		h.mu.Lock()
		h.logs = append(h.logs, LogEntry{Level: level, Message: msg})
		h.mu.Unlock()

		ctx := context.Background()
		switch level {
		case logging.LevelError:
			log.Error(ctx, "msg", msg, "source", "worker")
		case logging.LevelWarn:
			log.Warn(ctx, "msg", msg, "source", "worker")
		case logging.LevelInfo:
			log.Info(ctx, "msg", msg, "source", "worker")
		default:
			log.Debug(ctx, "msg", msg, "source", "worker", "level", level)
		}
		return nil, nil
	}
}

func (h *Harness) counter(payload []byte) ([]byte, error) {
	var m metricsproto.MetricsCounter
	if err := m.UnmarshalVT(payload); err != nil {
		return nil, errors.Join(sdk.ErrHostResponseInvalid, err)
	}
	h.mu.Lock()
	h.metrics.Counters[m.GetName()]++
	h.mu.Unlock()
	return nil, nil
}

func (h *Harness) gauge(payload []byte) ([]byte, error) {
	var m metricsproto.MetricsGauge
	if err := m.UnmarshalVT(payload); err != nil {
		return nil, errors.Join(sdk.ErrHostResponseInvalid, err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	switch m.GetAction() {
	case metrics.ActionInc:
		h.metrics.Gauges[m.GetName()]++
	case metrics.ActionDec:
		h.metrics.Gauges[m.GetName()]--
	default:
		return nil, fmt.Errorf("unknown gauge action %q", m.GetAction())
	}
	return nil, nil
}

func (h *Harness) histogram(payload []byte) ([]byte, error) {
	var m metricsproto.MetricsHistogram
	if err := m.UnmarshalVT(payload); err != nil {
		return nil, errors.Join(sdk.ErrHostResponseInvalid, err)
	}
	h.mu.Lock()
	h.metrics.Histograms[m.GetName()] = append(h.metrics.Histograms[m.GetName()], m.GetValue())
	h.mu.Unlock()
	return nil, nil
}
