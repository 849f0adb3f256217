/*
Package harness runs a worker in-process against in-memory bindings and lets
tests dispatch requests to it, the way a local runtime would.

The harness plays two roles. Toward the test it is a fetch dispatcher: URL
returns the base URL fixture and DispatchFetch sends a request to the worker.
Toward the worker it is the host: vectorize calls are answered by the
configured binding clients, log entries are captured and written to the
structured log, and metric updates are recorded.

	h, _ := harness.New(harness.Config{
		Worker: testworker.New(),
		Vectorize: map[string]vectorize.Client{
			"VECTORIZE": mock.New(mock.Config{Details: vectorize.IndexDetails{Name: "VECTORIZE", Dimensions: 2}}),
		},
	})

	resp, err := h.DispatchFetch(ctx, h.URL()+"vectorize/describe")
	// resp.StatusCode == 200
	// resp.Text() == {"name":"VECTORIZE","dimensions":2,"metric":"cosine",...}

ServeHTTP exposes the same dispatch path over net/http for local development.
*/
package harness
