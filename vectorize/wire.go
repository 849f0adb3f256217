package vectorize

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// HostRequest is the payload sent to the host for every vectorize function.
type HostRequest struct {
	// Binding names the index the call targets.
	Binding string
	// Vectors is set for insert calls.
	Vectors []Vector
}

// HostResponse is the payload the host returns for every vectorize function.
type HostResponse struct {
	// Code is the host status code (200, 400, 404, 500).
	Code int32
	// Status is a human readable status message.
	Status string
	// Details is set by describe.
	Details *IndexDetails
	// Mutation is set by insert.
	Mutation *Mutation
}

var errNotAStruct = errors.New("value is not an object")

// Marshal encodes the request as a protobuf Struct.
func (r HostRequest) Marshal() ([]byte, error) {
	fields := map[string]*structpb.Value{
		"binding": structpb.NewStringValue(r.Binding),
	}

	if len(r.Vectors) > 0 {
		list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(r.Vectors))}
		for _, v := range r.Vectors {
			s, err := vectorToStruct(v)
			if err != nil {
				return nil, err
			}
			list.Values = append(list.Values, structpb.NewStructValue(s))
		}
		fields["vectors"] = structpb.NewListValue(list)
	}

	return proto.Marshal(&structpb.Struct{Fields: fields})
}

// UnmarshalHostRequest decodes a request produced by HostRequest.Marshal.
func UnmarshalHostRequest(payload []byte) (HostRequest, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(payload, &s); err != nil {
		return HostRequest{}, err
	}

	f := s.GetFields()
	req := HostRequest{Binding: f["binding"].GetStringValue()}

	for n, item := range f["vectors"].GetListValue().GetValues() {
		vs := item.GetStructValue()
		if vs == nil {
			return HostRequest{}, fmt.Errorf("vector %d: %w", n, errNotAStruct)
		}
		v, err := vectorFromStruct(vs)
		if err != nil {
			return HostRequest{}, fmt.Errorf("vector %d: %w", n, err)
		}
		req.Vectors = append(req.Vectors, v)
	}

	return req, nil
}

// Marshal encodes the response as a protobuf Struct.
func (r HostResponse) Marshal() ([]byte, error) {
	fields := map[string]*structpb.Value{
		"status": structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"code":   structpb.NewNumberValue(float64(r.Code)),
			"status": structpb.NewStringValue(r.Status),
		}}),
	}

	if d := r.Details; d != nil {
		fields["details"] = structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"name":                  structpb.NewStringValue(d.Name),
			"dimensions":            structpb.NewNumberValue(float64(d.Dimensions)),
			"metric":                structpb.NewStringValue(string(d.Metric)),
			"processedVectorsCount": structpb.NewNumberValue(float64(d.ProcessedVectorsCount)),
			"storedVectorsCount":    structpb.NewNumberValue(float64(d.StoredVectorsCount)),
		}})
	}

	if m := r.Mutation; m != nil {
		fields["mutationId"] = structpb.NewStringValue(m.MutationID)
	}

	return proto.Marshal(&structpb.Struct{Fields: fields})
}

// UnmarshalHostResponse decodes a response produced by HostResponse.Marshal.
func UnmarshalHostResponse(payload []byte) (HostResponse, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(payload, &s); err != nil {
		return HostResponse{}, err
	}

	f := s.GetFields()
	status := f["status"].GetStructValue()
	if status == nil {
		return HostResponse{}, errors.New("response has no status")
	}

	resp := HostResponse{
		Code:   int32(status.GetFields()["code"].GetNumberValue()),
		Status: status.GetFields()["status"].GetStringValue(),
	}

	if d := f["details"].GetStructValue(); d != nil {
		df := d.GetFields()
		resp.Details = &IndexDetails{
			Name:                  df["name"].GetStringValue(),
			Dimensions:            uint32(df["dimensions"].GetNumberValue()),
			Metric:                Metric(df["metric"].GetStringValue()),
			ProcessedVectorsCount: uint32(df["processedVectorsCount"].GetNumberValue()),
			StoredVectorsCount:    uint32(df["storedVectorsCount"].GetNumberValue()),
		}
	}

	if id, ok := f["mutationId"]; ok {
		resp.Mutation = &Mutation{MutationID: id.GetStringValue()}
	}

	return resp, nil
}

// detail renders the status for error messages.
func (r HostResponse) detail() string {
	if r.Status == "" {
		return fmt.Sprintf("host status %d", r.Code)
	}
	return fmt.Sprintf("host status %d: %s", r.Code, r.Status)
}

func vectorToStruct(v Vector) (*structpb.Struct, error) {
	values := make([]*structpb.Value, len(v.Values))
	for n, x := range v.Values {
		values[n] = structpb.NewNumberValue(x)
	}

	fields := map[string]*structpb.Value{
		"id":     structpb.NewStringValue(v.ID),
		"values": structpb.NewListValue(&structpb.ListValue{Values: values}),
	}

	if v.Namespace != "" {
		fields["namespace"] = structpb.NewStringValue(v.Namespace)
	}

	if v.Metadata != nil {
		md, err := structpb.NewStruct(v.Metadata)
		if err != nil {
			return nil, fmt.Errorf("vector %q metadata: %w", v.ID, err)
		}
		fields["metadata"] = structpb.NewStructValue(md)
	}

	return &structpb.Struct{Fields: fields}, nil
}

func vectorFromStruct(s *structpb.Struct) (Vector, error) {
	f := s.GetFields()
	v := Vector{
		ID:        f["id"].GetStringValue(),
		Namespace: f["namespace"].GetStringValue(),
	}

	for _, x := range f["values"].GetListValue().GetValues() {
		if _, ok := x.GetKind().(*structpb.Value_NumberValue); !ok {
			return Vector{}, fmt.Errorf("vector %q has a non-numeric value", v.ID)
		}
		v.Values = append(v.Values, x.GetNumberValue())
	}

	if md := f["metadata"].GetStructValue(); md != nil {
		v.Metadata = md.AsMap()
	}

	return v, nil
}
