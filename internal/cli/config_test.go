package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"
	"github.com/tarmac-project/bindings/harness"
	"github.com/tarmac-project/bindings/vectorize"
)

func writeConfig(t *testing.T, body string) *viper.Viper {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workerd.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	v := viper.New()
	v.SetConfigFile(path)
	return v
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults without a file", func(t *testing.T) {
		cfg, err := LoadConfig(viper.New())
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		want := Config{
			Addr:    ":8787",
			BaseURL: harness.DefaultBaseURL,
			Vectorize: []BindingConfig{
				{Binding: "VECTORIZE", Name: "VECTORIZE", Dimensions: 2, Metric: "cosine"},
			},
		}
		if diff := cmp.Diff(want, cfg); diff != "" {
			t.Fatalf("config mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("file", func(t *testing.T) {
		v := writeConfig(t, `
addr: ":9000"
namespace: dev
vectorize:
  - binding: DOCS
    dimensions: 768
    metric: euclidean
  - binding: TAGS
    name: tags-index
    dimensions: 3
`)
		cfg, err := LoadConfig(v)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		want := Config{
			Addr:      ":9000",
			BaseURL:   harness.DefaultBaseURL,
			Namespace: "dev",
			Vectorize: []BindingConfig{
				{Binding: "DOCS", Name: "DOCS", Dimensions: 768, Metric: "euclidean"},
				{Binding: "TAGS", Name: "tags-index", Dimensions: 3, Metric: "cosine"},
			},
		}
		if diff := cmp.Diff(want, cfg); diff != "" {
			t.Fatalf("config mismatch (-want +got):\n%s", diff)
		}

		b := cfg.Bindings()
		d, err := b["TAGS"].Describe()
		if err != nil {
			t.Fatalf("Describe: %v", err)
		}
		if d.Name != "tags-index" || d.Dimensions != 3 || d.Metric != vectorize.Cosine {
			t.Fatalf("unexpected details %+v", d)
		}
	})

	tt := []struct {
		name string
		body string
	}{
		{name: "missing binding", body: "vectorize:\n  - dimensions: 2\n"},
		{name: "duplicate binding", body: "vectorize:\n  - binding: A\n    dimensions: 2\n  - binding: A\n    dimensions: 2\n"},
		{name: "zero dimensions", body: "vectorize:\n  - binding: A\n"},
		{name: "unknown metric", body: "vectorize:\n  - binding: A\n    dimensions: 2\n    metric: manhattan\n"},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tc.body)); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	t.Run("environment", func(t *testing.T) {
		t.Setenv("WORKERD_NAMESPACE", "staging")
		t.Setenv("WORKERD_BASE_URL", "http://worker.test:9999/")

		v := viper.New()
		bindEnv(v)
		cfg, err := LoadConfig(v)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Namespace != "staging" || cfg.BaseURL != "http://worker.test:9999/" {
			t.Fatalf("environment not applied: %+v", cfg)
		}

		h, err := newHarness(cfg)
		if err != nil {
			t.Fatalf("newHarness: %v", err)
		}
		if h.Namespace() != "staging" || h.URL() != "http://worker.test:9999/" {
			t.Fatalf("harness ignored environment: %s %s", h.Namespace(), h.URL())
		}
	})

	t.Run("unreadable file", func(t *testing.T) {
		v := viper.New()
		v.SetConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
		if _, err := LoadConfig(v); err == nil {
			t.Fatalf("expected error for missing explicit config file")
		}
	})
}

func TestDispatch(t *testing.T) {
	cfg, err := LoadConfig(viper.New())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	t.Run("describe", func(t *testing.T) {
		var out bytes.Buffer
		if err := dispatch(context.Background(), &out, cfg, &harness.Request{URL: "vectorize/describe"}); err != nil {
			t.Fatalf("dispatch: %v", err)
		}
		got := out.String()
		if !strings.HasPrefix(got, "200 OK\n") || !strings.Contains(got, `"name":"VECTORIZE"`) {
			t.Fatalf("unexpected output %q", got)
		}
	})

	t.Run("not found", func(t *testing.T) {
		var out bytes.Buffer
		err := dispatch(context.Background(), &out, cfg, &harness.Request{URL: "/missing"})
		if err == nil {
			t.Fatalf("expected error for 404")
		}
		if !strings.HasPrefix(out.String(), "404 Not Found\n") {
			t.Fatalf("unexpected output %q", out.String())
		}
	})
}
