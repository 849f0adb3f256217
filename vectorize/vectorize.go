package vectorize

import (
	"errors"
	"fmt"

	sdk "github.com/tarmac-project/bindings"
	wapc "github.com/wapc/wapc-guest-tinygo"
)

const (
	// CapabilityName is the host capability serving vectorize bindings.
	CapabilityName = "vectorize"

	// FnDescribe is the host function returning index details.
	FnDescribe = "describe"

	// FnInsert is the host function inserting vectors.
	FnInsert = "insert"
)

// Metric names the distance function an index was created with.
type Metric string

const (
	Cosine     Metric = "cosine"
	Euclidean  Metric = "euclidean"
	DotProduct Metric = "dot-product"
)

// DefaultMetric is reported when the host does not provide one.
const DefaultMetric = Cosine

// Valid reports whether m is a supported metric.
func (m Metric) Valid() bool {
	switch m {
	case Cosine, Euclidean, DotProduct:
		return true
	default:
		return false
	}
}

var (
	// ErrInvalidBinding indicates an empty binding name.
	ErrInvalidBinding = errors.New("binding name is invalid")

	// ErrBindingNotFound means the host has no vectorize binding under the requested name.
	ErrBindingNotFound = errors.New("vectorize binding not found")

	// ErrInvalidVectors indicates an empty vector batch or a vector without values.
	ErrInvalidVectors = errors.New("vectors are invalid")

	// ErrInvalidVectorID indicates a vector with an empty id.
	ErrInvalidVectorID = errors.New("vector id is invalid")

	// ErrRejected means the host refused the request as invalid input.
	ErrRejected = errors.New("vectorize request rejected by host")

	// ErrDimensionMismatch indicates a vector whose length differs from the index dimensions.
	ErrDimensionMismatch = errors.New("vector dimensions do not match index")

	// ErrMarshalRequest wraps failures while encoding the request payload.
	ErrMarshalRequest = errors.New("failed to marshal request")

	// ErrUnmarshalResponse wraps failures while decoding the host response.
	ErrUnmarshalResponse = errors.New("failed to unmarshal response")
)

// IndexDetails describes a vector index.
type IndexDetails struct {
	Name                  string `json:"name"`
	Dimensions            uint32 `json:"dimensions"`
	Metric                Metric `json:"metric"`
	ProcessedVectorsCount uint32 `json:"processedVectorsCount"`
	StoredVectorsCount    uint32 `json:"storedVectorsCount"`
}

// Vector is a single entry to insert into an index.
type Vector struct {
	ID        string         `json:"id"`
	Values    []float64      `json:"values"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Namespace string         `json:"namespace,omitempty"`
}

// Mutation identifies an accepted write. Writes are applied asynchronously by the host.
type Mutation struct {
	MutationID string `json:"mutationId"`
}

// Client defines the vectorize binding interface.
type Client interface {
	// Describe returns the index details.
	Describe() (IndexDetails, error)

	// Insert adds vectors to the index and returns the mutation that carries them.
	Insert(vectors []Vector) (Mutation, error)
}

// Config controls how a Client instance interacts with the host runtime.
type Config struct {
	// SDKConfig provides the runtime namespace used for host calls.
	SDKConfig sdk.RuntimeConfig

	// Binding is the name the index is bound under, e.g. "VECTORIZE".
	Binding string

	// HostCall overrides the waPC host function used for vectorize operations.
	HostCall sdk.HostCall
}

// Index is the host-backed Client implementation.
type Index struct {
	runtime  sdk.RuntimeConfig
	binding  string
	hostCall sdk.HostCall
}

// Ensure Index satisfies the Client interface at compile time.
var _ Client = (*Index)(nil)

// New creates a client for the named binding.
func New(config Config) (*Index, error) {
	if config.Binding == "" {
		return nil, ErrInvalidBinding
	}

	hostCall := config.HostCall
	if hostCall == nil {
		hostCall = wapc.HostCall
	}

	return &Index{
		runtime:  config.SDKConfig.WithDefaults(),
		binding:  config.Binding,
		hostCall: hostCall,
	}, nil
}

// Binding returns the binding name this client targets.
func (i *Index) Binding() string { return i.binding }

// Describe returns the index details reported by the host.
func (i *Index) Describe() (IndexDetails, error) {
	resp, err := i.call(FnDescribe, HostRequest{Binding: i.binding})
	if err != nil {
		return IndexDetails{}, err
	}

	if resp.Details == nil {
		return IndexDetails{}, errors.Join(sdk.ErrHostResponseInvalid, errors.New("describe response has no details"))
	}

	details := *resp.Details
	if details.Metric == "" {
		details.Metric = DefaultMetric
	}
	return details, nil
}

// Insert validates the batch and forwards it to the host.
func (i *Index) Insert(vectors []Vector) (Mutation, error) {
	if err := ValidateVectors(vectors); err != nil {
		return Mutation{}, err
	}

	resp, err := i.call(FnInsert, HostRequest{Binding: i.binding, Vectors: vectors})
	if err != nil {
		return Mutation{}, err
	}

	if resp.Mutation == nil {
		return Mutation{}, errors.Join(sdk.ErrHostResponseInvalid, errors.New("insert response has no mutation"))
	}
	return *resp.Mutation, nil
}

// ValidateVectors applies the batch checks shared by clients and hosts.
func ValidateVectors(vectors []Vector) error {
	if len(vectors) == 0 {
		return ErrInvalidVectors
	}
	for n, v := range vectors {
		if v.ID == "" {
			return fmt.Errorf("%w: vector %d", ErrInvalidVectorID, n)
		}
		if len(v.Values) == 0 {
			return fmt.Errorf("%w: vector %q has no values", ErrInvalidVectors, v.ID)
		}
	}
	return nil
}

// call marshals the request, performs the host call, and checks the returned status.
func (i *Index) call(fn string, req HostRequest) (HostResponse, error) {
	b, err := req.Marshal()
	if err != nil {
		return HostResponse{}, errors.Join(ErrMarshalRequest, err)
	}

	raw, err := i.hostCall(i.runtime.Namespace, CapabilityName, fn, b)
	if err != nil {
		return HostResponse{}, errors.Join(sdk.ErrHostCall, err)
	}

	resp, err := UnmarshalHostResponse(raw)
	if err != nil {
		return HostResponse{}, errors.Join(ErrUnmarshalResponse, err)
	}

	switch resp.Code {
	case sdk.HostStatusOK, sdk.HostStatusPartial:
		return resp, nil
	case sdk.HostStatusMissing:
		return HostResponse{}, errors.Join(ErrBindingNotFound, sdk.ErrHostError, errors.New(resp.detail()))
	case sdk.HostStatusBadInput:
		return HostResponse{}, errors.Join(ErrRejected, sdk.ErrHostError, errors.New(resp.detail()))
	case sdk.HostStatusError:
		return HostResponse{}, errors.Join(sdk.ErrHostError, errors.New(resp.detail()))
	default:
		return HostResponse{}, errors.Join(
			sdk.ErrHostResponseInvalid,
			fmt.Errorf("unexpected host status code %d", resp.Code),
		)
	}
}
