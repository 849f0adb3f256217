/*
Package sdk provides the core entry point and runtime configuration for
building worker functions that reach host bindings over waPC.

New registers the worker handler, RuntimeConfig is shared by the binding
clients (vectorize, logging, metrics), and HostCall is the signature every
client accepts so tests can swap the real host for hostmock or the harness.
*/
package sdk
