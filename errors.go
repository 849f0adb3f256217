package sdk

import "errors"

var (
	// ErrHostCall indicates that a waPC host invocation failed.
	ErrHostCall = errors.New("host call failed")

	// ErrHostResponseInvalid signals that the host returned an invalid or unexpected payload.
	ErrHostResponseInvalid = errors.New("host response is invalid or unexpected")

	// ErrHostError means the host completed the call but reported a failure status.
	ErrHostError = errors.New("host returned an error status")
)

// Host status codes shared by the capability clients and the harness host.
const (
	HostStatusOK       = int32(200)
	HostStatusPartial  = int32(206)
	HostStatusBadInput = int32(400)
	HostStatusMissing  = int32(404)
	HostStatusError    = int32(500)
)
