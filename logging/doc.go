/*
Package logging offers a client for emitting log entries from worker functions
to the host runtime.

Each level (Info, Warn, Error, Debug, Trace) maps to a host function of the
same name on the "logging" capability. Optional key/value fields are rendered
after the message:

	log.Info("describe", "binding", "VECTORIZE", "dimensions", 2)
	// describe binding=VECTORIZE dimensions=2
*/
package logging
