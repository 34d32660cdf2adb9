package probe

import (
	"LogSpectra/internal/model"
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ToStruct converts a report into a protobuf Struct following its JSON field names.
func ToStruct(report *model.Report) (*structpb.Struct, error) {
	raw, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode report fields: %w", err)
	}
	return structpb.NewStruct(fields)
}

// EncodeReport serializes a report to the protobuf wire format.
func EncodeReport(report *model.Report) ([]byte, error) {
	st, err := ToStruct(report)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(st)
}

// DecodeReport is the inverse of EncodeReport.
func DecodeReport(data []byte) (*model.Report, *structpb.Struct, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return nil, nil, fmt.Errorf("error unmarshalling protobuf: %w", err)
	}
	raw, err := json.Marshal(st.AsMap())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode report fields: %w", err)
	}
	var report model.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &report, &st, nil
}
