package sdk

import (
	"fmt"

	wapc "github.com/wapc/wapc-guest-tinygo"
)

// DefaultNamespace is used when no explicit namespace is provided.
const DefaultNamespace = "tarmac"

// HandlerName is the waPC function name the worker handler is exported under.
const HandlerName = "handler"

var (
	// ErrHandlerNil is returned when the provided function handler is nil.
	ErrHandlerNil = fmt.Errorf("function handler cannot be nil")
)

// HostCall is the waPC host function signature shared by every binding client.
type HostCall func(namespace, capability, function string, payload []byte) ([]byte, error)

// Config provides configuration options for SDK initialization.
type Config struct {
	// Namespace controls the function namespace to use for host callbacks.
	// If empty, DefaultNamespace is used.
	Namespace string

	// Handler is the function to be registered as the main WebAssembly entry point.
	Handler func([]byte) ([]byte, error)

	// Register overrides how the handler is exported. Defaults to wapc.RegisterFunction.
	Register func(name string, fn func([]byte) ([]byte, error))
}

// RuntimeConfig carries configuration that is used during creation of SDK components.
type RuntimeConfig struct {
	// Namespace is the function namespace used to scope host interactions.
	Namespace string
}

// WithDefaults returns a copy of the runtime configuration with empty fields defaulted.
func (r RuntimeConfig) WithDefaults() RuntimeConfig {
	if r.Namespace == "" {
		r.Namespace = DefaultNamespace
	}
	return r
}

// SDK represents the initialized runtime with a registered waPC handler.
type SDK struct {
	runtime RuntimeConfig
	handler func([]byte) ([]byte, error)
}

// New initializes the SDK and registers the handler with waPC.
func New(config Config) (*SDK, error) {
	if config.Handler == nil {
		return nil, ErrHandlerNil
	}

	sdk := &SDK{
		runtime: RuntimeConfig{Namespace: config.Namespace}.WithDefaults(),
		handler: config.Handler,
	}

	register := config.Register
	if register == nil {
		register = func(name string, fn func([]byte) ([]byte, error)) {
			wapc.RegisterFunction(name, fn)
		}
	}
	register(HandlerName, sdk.handler)

	return sdk, nil
}

// Config returns the current runtime configuration snapshot.
func (s *SDK) Config() RuntimeConfig { return s.runtime }
