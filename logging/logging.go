package logging

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	sdk "github.com/tarmac-project/bindings"
	wapc "github.com/wapc/wapc-guest-tinygo"
)

// CapabilityName is the host capability receiving log entries.
const CapabilityName = "logging"

// Level names double as the host function names.
const (
	LevelInfo  = "Info"
	LevelWarn  = "Warn"
	LevelError = "Error"
	LevelDebug = "Debug"
	LevelTrace = "Trace"
)

// ErrEmptyMessage is returned when a log call carries no message.
var ErrEmptyMessage = errors.New("log message is empty")

// Client sends log entries to the host runtime. Fields are key/value pairs
// rendered after the message as key=value.
type Client interface {
	Info(message string, fields ...any) error
	Warn(message string, fields ...any) error
	Error(message string, fields ...any) error
	Debug(message string, fields ...any) error
	Trace(message string, fields ...any) error
}

// Config controls how a Client instance interacts with the host runtime.
type Config struct {
	// SDKConfig provides the runtime namespace used for host calls.
	SDKConfig sdk.RuntimeConfig

	// HostCall overrides the waPC host function used for logging operations.
	HostCall sdk.HostCall
}

// client implements Client using the configured host call entrypoint.
type client struct {
	runtime  sdk.RuntimeConfig
	hostCall sdk.HostCall
}

// New creates a Client that emits logs through the configured host capability.
func New(cfg Config) (Client, error) {
	hostCall := cfg.HostCall
	if hostCall == nil {
		hostCall = wapc.HostCall
	}

	return &client{
		runtime:  cfg.SDKConfig.WithDefaults(),
		hostCall: hostCall,
	}, nil
}

func (c *client) Info(message string, fields ...any) error  { return c.log(LevelInfo, message, fields) }
func (c *client) Warn(message string, fields ...any) error  { return c.log(LevelWarn, message, fields) }
func (c *client) Error(message string, fields ...any) error { return c.log(LevelError, message, fields) }
func (c *client) Debug(message string, fields ...any) error { return c.log(LevelDebug, message, fields) }
func (c *client) Trace(message string, fields ...any) error { return c.log(LevelTrace, message, fields) }

func (c *client) log(level, message string, fields []any) error {
	if message == "" {
		return ErrEmptyMessage
	}
	if _, err := c.hostCall(c.runtime.Namespace, CapabilityName, level, []byte(Format(message, fields...))); err != nil {
		return errors.Join(sdk.ErrHostCall, err)
	}
	return nil
}

// Format renders message followed by key=value pairs. Values containing
// spaces or quotes are quoted; a trailing key without a value is marked MISSING.
func Format(message string, fields ...any) string {
	if len(fields) == 0 {
		return message
	}

	var b strings.Builder
	b.WriteString(message)
	for i := 0; i < len(fields); i += 2 {
		b.WriteByte(' ')
		b.WriteString(fmt.Sprint(fields[i]))
		b.WriteByte('=')
		if i+1 >= len(fields) {
			b.WriteString("MISSING")
			continue
		}
		v := fmt.Sprintf("%+v", fields[i+1])
		if strings.ContainsAny(v, " \t\n\"=") {
			v = strconv.Quote(v)
		}
		b.WriteString(v)
	}
	return b.String()
}
