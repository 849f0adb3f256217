/*
Package hostmock provides a pretend host for waPC calls.

It is meant for binding-client development and wire-level tests where you want
to check exactly what a component sends to the host without a real runtime.

Two shapes are available:

  - Mock answers one route. It enforces ExpectedNamespace, ExpectedCapability
    and ExpectedFunction when they are set, runs PayloadValidator, and returns
    Response bytes. Fail forces an error (Error, or ErrOperationFailed).
  - Router serves several capabilities at once, keyed by capability and
    function. Unknown capabilities yield ErrUnexpectedCapability and unknown
    functions of a known capability yield ErrUnexpectedFunction.

Quick start

	m, _ := hostmock.New(hostmock.Config{
	  ExpectedNamespace:  "tarmac",
	  ExpectedCapability: "vectorize",
	  ExpectedFunction:   "describe",
	  Response:           func() []byte { return describeReply },
	})

	idx, _ := vectorize.New(vectorize.Config{Binding: "VECTORIZE", HostCall: m.HostCall})

Both shapes record every call; use Calls to assert on routing and payloads.
Prefer the component mocks (vectorize/mock) unless you need wire-level checks.
*/
package hostmock
