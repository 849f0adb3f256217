package testworker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tarmac-project/bindings/harness"
	"github.com/tarmac-project/bindings/router"
	"github.com/tarmac-project/bindings/vectorize"
	"github.com/tarmac-project/bindings/vectorize/mock"
)

// descriptor is the shape asserted on the describe response.
type descriptor struct {
	Name       string `json:"name"`
	Dimensions int    `json:"dimensions"`
	Metric     string `json:"metric"`
}

func newHarness(t *testing.T, idx vectorize.Client) *harness.Harness {
	t.Helper()
	bindings := map[string]vectorize.Client{}
	if idx != nil {
		bindings[Binding] = idx
	}
	h, err := harness.New(harness.Config{Worker: New(router.Config{}), Vectorize: bindings})
	if err != nil {
		t.Fatalf("harness.New: %v", err)
	}
	return h
}

func TestDescribe(t *testing.T) {
	idx := mock.New(mock.Config{Details: vectorize.IndexDetails{Name: "VECTORIZE", Dimensions: 2, Metric: vectorize.Cosine}})
	h := newHarness(t, idx)

	want := descriptor{Name: "VECTORIZE", Dimensions: 2, Metric: "cosine"}

	for i := 0; i < 3; i++ {
		resp, err := h.DispatchFetch(context.Background(), h.URL()+"vectorize/describe")
		if err != nil {
			t.Fatalf("DispatchFetch: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status 200, got %d", resp.StatusCode)
		}

		body, err := resp.Text()
		if err != nil {
			t.Fatalf("read body: %v", err)
		}

		var got descriptor
		if err := json.Unmarshal([]byte(body), &got); err != nil {
			t.Fatalf("body is not valid JSON: %v\n%s", err, body)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("call %d descriptor mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestDescribeExactBody(t *testing.T) {
	h := newHarness(t, mock.New(mock.Config{Details: vectorize.IndexDetails{Name: "VECTORIZE", Dimensions: 2}}))

	resp, err := h.DispatchFetch(context.Background(), "vectorize/describe")
	if err != nil {
		t.Fatalf("DispatchFetch: %v", err)
	}

	var got map[string]any
	if err := resp.JSON(&got); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	want := map[string]any{
		"name":                  "VECTORIZE",
		"dimensions":            float64(2),
		"metric":                "cosine",
		"processedVectorsCount": float64(0),
		"storedVectorsCount":    float64(0),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected application/json, got %q", ct)
	}
}

func TestDescribeLogsDetails(t *testing.T) {
	h := newHarness(t, mock.New(mock.Config{Details: vectorize.IndexDetails{Name: "VECTORIZE", Dimensions: 2}}))

	if _, err := h.DispatchFetch(context.Background(), h.URL()+"vectorize/describe"); err != nil {
		t.Fatalf("DispatchFetch: %v", err)
	}

	logs := h.Logs()
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}
	if !strings.Contains(logs[0].Message, "name=VECTORIZE") || !strings.Contains(logs[0].Message, "metric=cosine") {
		t.Fatalf("unexpected log message %q", logs[0].Message)
	}
}

func TestDescribeFailures(t *testing.T) {
	t.Run("missing binding", func(t *testing.T) {
		h := newHarness(t, nil)
		resp, err := h.DispatchFetch(context.Background(), h.URL()+"vectorize/describe")
		if err != nil {
			t.Fatalf("DispatchFetch: %v", err)
		}
		if resp.StatusCode != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", resp.StatusCode)
		}
		body, _ := resp.Text()
		if !strings.Contains(body, vectorize.ErrBindingNotFound.Error()) {
			t.Fatalf("expected binding-not-found message, got %q", body)
		}
	})

	t.Run("binding error", func(t *testing.T) {
		idx := mock.New(mock.Config{}).OnDescribe().ReturnError(errors.New("index offline"))
		h := newHarness(t, idx)
		resp, err := h.DispatchFetch(context.Background(), h.URL()+"vectorize/describe")
		if err != nil {
			t.Fatalf("DispatchFetch: %v", err)
		}
		if resp.StatusCode != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", resp.StatusCode)
		}
		if n := h.Metrics().Counters[router.MetricRequestErrors]; n != 1 {
			t.Fatalf("expected 1 request error, got %d", n)
		}
	})
}

func TestInsert(t *testing.T) {
	idx := mock.New(mock.Config{Details: vectorize.IndexDetails{Name: "VECTORIZE", Dimensions: 2}})
	h := newHarness(t, idx)

	tt := []struct {
		name     string
		body     string
		wantCode int
	}{
		{name: "valid", body: `[{"id":"a","values":[0.1,0.2],"metadata":{"tag":"x"}},{"id":"b","values":[0.3,0.4]}]`, wantCode: 200},
		{name: "not json", body: `nope`, wantCode: 400},
		{name: "empty batch", body: `[]`, wantCode: 400},
		{name: "missing id", body: `[{"values":[1,2]}]`, wantCode: 400},
		{name: "wrong dimensions", body: `[{"id":"c","values":[1,2,3]}]`, wantCode: 400},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := h.Dispatch(context.Background(), &harness.Request{
				Method: http.MethodPost,
				URL:    "vectorize/insert",
				Header: http.Header{"Content-Type": []string{"application/json"}},
				Body:   []byte(tc.body),
			})
			if err != nil {
				t.Fatalf("Dispatch: %v", err)
			}
			if resp.StatusCode != tc.wantCode {
				body, _ := resp.Text()
				t.Fatalf("expected %d, got %d: %s", tc.wantCode, resp.StatusCode, body)
			}
		})
	}

	d, _ := idx.Describe()
	if d.StoredVectorsCount != 2 || d.ProcessedVectorsCount != 2 {
		t.Fatalf("expected 2 stored and processed vectors, got %+v", d)
	}
	stored := idx.Stored()
	if stored[0].Metadata["tag"] != "x" {
		t.Fatalf("metadata not carried through, got %+v", stored[0])
	}
}
