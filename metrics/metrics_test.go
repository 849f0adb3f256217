package metrics

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	sdk "github.com/tarmac-project/bindings"
	"github.com/tarmac-project/bindings/hostmock"
	proto "github.com/tarmac-project/protobuf-go/sdk/metrics"
)

func TestNew(t *testing.T) {
	t.Parallel()

	customHostCall := func(string, string, string, []byte) ([]byte, error) {
		return nil, nil
	}

	tt := []struct {
		name        string
		namespace   string
		hostCall    sdk.HostCall
		wantNS      string
		wantHostPtr uintptr
	}{
		{name: "custom namespace", namespace: "custom", wantNS: "custom"},
		{
			name:        "default namespace with override",
			hostCall:    customHostCall,
			wantNS:      sdk.DefaultNamespace,
			wantHostPtr: reflect.ValueOf(customHostCall).Pointer(),
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c, err := New(Config{SDKConfig: sdk.RuntimeConfig{Namespace: tc.namespace}, HostCall: tc.hostCall})
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			if c.runtime.Namespace != tc.wantNS {
				t.Fatalf("namespace mismatch: want %q, got %q", tc.wantNS, c.runtime.Namespace)
			}
			if tc.wantHostPtr != 0 {
				if got := reflect.ValueOf(c.hostCall).Pointer(); got != tc.wantHostPtr {
					t.Fatalf("hostcall pointer mismatch: want %v, got %v", tc.wantHostPtr, got)
				}
			}
		})
	}
}

func TestMetricNames(t *testing.T) {
	t.Parallel()

	c, _ := New(Config{HostCall: func(string, string, string, []byte) ([]byte, error) { return nil, nil }})

	tt := []struct {
		name    string
		metric  string
		wantErr error
	}{
		{name: "snake case", metric: "worker_requests_total"},
		{name: "colon", metric: "worker:latency"},
		{name: "empty", metric: "", wantErr: ErrInvalidMetricName},
		{name: "whitespace", metric: " \n\t ", wantErr: ErrInvalidMetricName},
		{name: "leading digit", metric: "1st", wantErr: ErrInvalidMetricName},
		{name: "dash", metric: "dot-product", wantErr: ErrInvalidMetricName},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := c.NewCounter(tc.metric); !errors.Is(err, tc.wantErr) {
				t.Fatalf("NewCounter: want %v, got %v", tc.wantErr, err)
			}
			if _, err := c.NewGauge(tc.metric); !errors.Is(err, tc.wantErr) {
				t.Fatalf("NewGauge: want %v, got %v", tc.wantErr, err)
			}
			if _, err := c.NewHistogram(tc.metric); !errors.Is(err, tc.wantErr) {
				t.Fatalf("NewHistogram: want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestEmission(t *testing.T) {
	t.Parallel()

	t.Run("counter", func(t *testing.T) {
		m, _ := hostmock.New(hostmock.Config{
			ExpectedNamespace:  "tarmac",
			ExpectedCapability: CapabilityName,
			ExpectedFunction:   FnCounter,
			PayloadValidator: func(p []byte) error {
				var msg proto.MetricsCounter
				if err := msg.UnmarshalVT(p); err != nil {
					return err
				}
				if msg.GetName() != "worker_requests_total" {
					return fmt.Errorf("unexpected name %q", msg.GetName())
				}
				return nil
			},
		})
		c, _ := New(Config{HostCall: m.HostCall})
		counter, err := c.NewCounter("worker_requests_total")
		if err != nil {
			t.Fatalf("NewCounter: %v", err)
		}
		counter.Inc()
		if n := len(m.Calls()); n != 1 {
			t.Fatalf("expected 1 host call, got %d", n)
		}
	})

	t.Run("gauge", func(t *testing.T) {
		var actions []string
		m, _ := hostmock.New(hostmock.Config{
			ExpectedCapability: CapabilityName,
			ExpectedFunction:   FnGauge,
			PayloadValidator: func(p []byte) error {
				var msg proto.MetricsGauge
				if err := msg.UnmarshalVT(p); err != nil {
					return err
				}
				actions = append(actions, msg.GetAction())
				return nil
			},
		})
		c, _ := New(Config{HostCall: m.HostCall})
		g, _ := c.NewGauge("worker_inflight")
		g.Inc()
		g.Dec()
		if !reflect.DeepEqual(actions, []string{ActionInc, ActionDec}) {
			t.Fatalf("unexpected gauge actions %v", actions)
		}
	})

	t.Run("histogram", func(t *testing.T) {
		var observed []float64
		m, _ := hostmock.New(hostmock.Config{
			ExpectedCapability: CapabilityName,
			ExpectedFunction:   FnHistogram,
			PayloadValidator: func(p []byte) error {
				var msg proto.MetricsHistogram
				if err := msg.UnmarshalVT(p); err != nil {
					return err
				}
				observed = append(observed, msg.GetValue())
				return nil
			},
		})
		c, _ := New(Config{HostCall: m.HostCall})
		h, _ := c.NewHistogram("worker_request_seconds")
		h.Observe(0.25)
		h.ObserveSince(time.Now().Add(-time.Second))
		if len(observed) != 2 || observed[0] != 0.25 || observed[1] < 1 {
			t.Fatalf("unexpected observations %v", observed)
		}
	})

	t.Run("host failure is swallowed", func(t *testing.T) {
		m, _ := hostmock.New(hostmock.Config{Fail: true})
		c, _ := New(Config{HostCall: m.HostCall})
		counter, _ := c.NewCounter("worker_requests_total")
		counter.Inc()
	})
}
