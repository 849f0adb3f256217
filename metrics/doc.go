/*
Package metrics provides a client for emitting custom metrics from worker
functions through the host runtime.

Counter, Gauge and Histogram handles send protobuf payloads over waPC on the
"metrics" capability. Emission is best-effort: Inc, Dec and Observe never
return errors, so instrumentation cannot change a handler's outcome. The
router uses this package for its request counters and latency histogram.
*/
package metrics
