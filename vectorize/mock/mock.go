package mock

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tarmac-project/bindings/vectorize"
)

// Operation names recorded in Calls.
const (
	OpDescribe = "DESCRIBE"
	OpInsert   = "INSERT"
)

// Config configures the mock client.
type Config struct {
	// Details seeds the descriptor returned by Describe.
	Details vectorize.IndexDetails
}

// Call records an operation performed against the mock.
type Call struct {
	Op      string
	Vectors []vectorize.Vector
}

// response describes a configured override.
type response struct {
	details  *vectorize.IndexDetails
	mutation *vectorize.Mutation
	err      error
}

// ResponseBuilder allows fluent configuration of overrides.
type ResponseBuilder struct {
	m  *Client
	op string
}

// ReturnDetails overrides the descriptor returned by Describe.
func (b *ResponseBuilder) ReturnDetails(d vectorize.IndexDetails) *ResponseBuilder {
	b.m.update(b.op, func(r *response) { r.details = &d })
	return b
}

// ReturnMutation overrides the mutation returned by Insert.
func (b *ResponseBuilder) ReturnMutation(m vectorize.Mutation) *ResponseBuilder {
	b.m.update(b.op, func(r *response) { r.mutation = &m })
	return b
}

// ReturnError makes the operation fail with err.
func (b *ResponseBuilder) ReturnError(err error) *Client {
	b.m.update(b.op, func(r *response) { r.err = err })
	return b.m
}

// Client implements vectorize.Client in memory.
type Client struct {
	mu        sync.Mutex
	details   vectorize.IndexDetails
	stored    map[string]vectorize.Vector
	responses map[string]response
	calls     []Call
}

// Ensure Client satisfies the vectorize.Client interface at compile time.
var _ vectorize.Client = (*Client)(nil)

// New creates a new mock vectorize client.
func New(cfg Config) *Client {
	d := cfg.Details
	if d.Metric == "" {
		d.Metric = vectorize.DefaultMetric
	}
	return &Client{
		details:   d,
		stored:    make(map[string]vectorize.Vector),
		responses: make(map[string]response),
	}
}

// OnDescribe configures the Describe response.
func (m *Client) OnDescribe() *ResponseBuilder { return &ResponseBuilder{m: m, op: OpDescribe} }

// OnInsert configures the Insert response.
func (m *Client) OnInsert() *ResponseBuilder { return &ResponseBuilder{m: m, op: OpInsert} }

func (m *Client) update(op string, fn func(*response)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.responses[op]
	fn(&r)
	m.responses[op] = r
}

// Calls returns a copy of the recorded operations.
func (m *Client) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Stored returns the vectors currently held, ordered by id.
func (m *Client) Stored() []vectorize.Vector {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]vectorize.Vector, 0, len(m.stored))
	for _, v := range m.stored {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Describe implements vectorize.Client.
func (m *Client) Describe() (vectorize.IndexDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: OpDescribe})

	if r, ok := m.responses[OpDescribe]; ok {
		if r.err != nil {
			return vectorize.IndexDetails{}, r.err
		}
		if r.details != nil {
			return *r.details, nil
		}
	}
	return m.details, nil
}

// Insert implements vectorize.Client.
func (m *Client) Insert(vectors []vectorize.Vector) (vectorize.Mutation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: OpInsert, Vectors: append([]vectorize.Vector(nil), vectors...)})

	r, overridden := m.responses[OpInsert]
	if overridden && r.err != nil {
		return vectorize.Mutation{}, r.err
	}

	if err := vectorize.ValidateVectors(vectors); err != nil {
		return vectorize.Mutation{}, err
	}
	if dims := int(m.details.Dimensions); dims > 0 {
		for _, v := range vectors {
			if len(v.Values) != dims {
				return vectorize.Mutation{}, fmt.Errorf(
					"%w: vector %q has %d values, index expects %d",
					vectorize.ErrDimensionMismatch, v.ID, len(v.Values), dims,
				)
			}
		}
	}

	for _, v := range vectors {
		v.Values = append([]float64(nil), v.Values...)
		m.stored[v.ID] = v
	}
	m.details.ProcessedVectorsCount += uint32(len(vectors))
	m.details.StoredVectorsCount = uint32(len(m.stored))

	if overridden && r.mutation != nil {
		return *r.mutation, nil
	}
	return vectorize.Mutation{MutationID: uuid.NewString()}, nil
}
