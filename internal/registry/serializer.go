package registry

import (
	"encoding/json"
	"fmt"

	"GapCast/internal/forecast"
)

// Serializer encodes and decodes a fitted model blob. The registry does not
// care what the blob contains, only that round-tripping it yields an
// equivalent model.
type Serializer interface {
	// Ext is the file extension for model blobs, without the leading dot.
	Ext() string
	Serialize(model any) ([]byte, error)
	Deserialize(data []byte) (any, error)
}

// JSONModelSerializer persists forecast.Model values as indented JSON.
type JSONModelSerializer struct{}

func (JSONModelSerializer) Ext() string { return "model.json" }

func (JSONModelSerializer) Serialize(model any) ([]byte, error) {
	m, ok := model.(*forecast.Model)
	if !ok {
		return nil, fmt.Errorf("serialize: expected *forecast.Model, got %T", model)
	}
	return json.MarshalIndent(m, "", "  ")
}

func (JSONModelSerializer) Deserialize(data []byte) (any, error) {
	var m forecast.Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("deserialize model: %w", err)
	}
	return &m, nil
}
