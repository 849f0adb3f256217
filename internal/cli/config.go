package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
	"github.com/tarmac-project/bindings/harness"
	"github.com/tarmac-project/bindings/internal/testworker"
	"github.com/tarmac-project/bindings/vectorize"
	"github.com/tarmac-project/bindings/vectorize/mock"
)

// ErrInvalidConfig is returned when the loaded configuration cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

// BindingConfig describes one in-memory vectorize binding.
type BindingConfig struct {
	Binding    string `mapstructure:"binding"`
	Name       string `mapstructure:"name"`
	Dimensions uint32 `mapstructure:"dimensions"`
	Metric     string `mapstructure:"metric"`
}

// Config is the merged flag, file and default configuration.
type Config struct {
	Addr      string          `mapstructure:"addr"`
	BaseURL   string          `mapstructure:"base_url"`
	Namespace string          `mapstructure:"namespace"`
	Vectorize []BindingConfig `mapstructure:"vectorize"`
}

// setDefaults registers the defaults on v.
func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8787")
	v.SetDefault("base_url", harness.DefaultBaseURL)
	v.SetDefault("namespace", "")
}

// LoadConfig reads the configuration held by v. A missing file is not an error.
func LoadConfig(v *viper.Viper) (Config, error) {
	setDefaults(v)

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("failed to load config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.Vectorize) == 0 {
		cfg.Vectorize = []BindingConfig{{
			Binding:    testworker.Binding,
			Name:       testworker.Binding,
			Dimensions: 2,
			Metric:     string(vectorize.Cosine),
		}}
	}

	seen := make(map[string]bool, len(cfg.Vectorize))
	for i, b := range cfg.Vectorize {
		if b.Binding == "" {
			return Config{}, fmt.Errorf("%w: vectorize[%d] has no binding", ErrInvalidConfig, i)
		}
		if seen[b.Binding] {
			return Config{}, fmt.Errorf("%w: duplicate binding %q", ErrInvalidConfig, b.Binding)
		}
		seen[b.Binding] = true

		if b.Dimensions == 0 {
			return Config{}, fmt.Errorf("%w: binding %q needs dimensions", ErrInvalidConfig, b.Binding)
		}
		if b.Metric == "" {
			cfg.Vectorize[i].Metric = string(vectorize.DefaultMetric)
		} else if !vectorize.Metric(b.Metric).Valid() {
			return Config{}, fmt.Errorf("%w: binding %q has unknown metric %q", ErrInvalidConfig, b.Binding, b.Metric)
		}
		if b.Name == "" {
			cfg.Vectorize[i].Name = b.Binding
		}
	}

	return cfg, nil
}

// Bindings builds an in-memory client for every configured binding.
func (c Config) Bindings() map[string]vectorize.Client {
	out := make(map[string]vectorize.Client, len(c.Vectorize))
	for _, b := range c.Vectorize {
		out[b.Binding] = mock.New(mock.Config{Details: vectorize.IndexDetails{
			Name:       b.Name,
			Dimensions: b.Dimensions,
			Metric:     vectorize.Metric(b.Metric),
		}})
	}
	return out
}
