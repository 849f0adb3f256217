/*
Package vectorize provides a client for the vectorize binding: a host-managed
vector index that worker functions can describe and insert vectors into.

A Client is bound to one named binding (for example "VECTORIZE"). Requests are
encoded as protobuf Struct documents and forwarded to the host with waPC on
the "vectorize" capability. Host statuses are mapped onto the sdk sentinel
errors, so callers can branch with errors.Is:

	idx, err := vectorize.New(vectorize.Config{Binding: "VECTORIZE"})
	if err != nil {
		return err
	}
	details, err := idx.Describe()
	if errors.Is(err, vectorize.ErrBindingNotFound) {
		// the host has no index under that name
	}

Describe reports "cosine" when the host leaves the metric unset. Tests can
inject Config.HostCall (see hostmock) or use the in-memory client from the
mock subpackage.
*/
package vectorize
