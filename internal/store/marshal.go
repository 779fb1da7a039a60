package store

import (
	"fmt"

	"github.com/roach88/txbatch/internal/ir"
)

// marshalValue converts a Value to canonical JSON TEXT for storage.
func marshalValue(v ir.Value) (string, error) {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// unmarshalValue parses stored TEXT back into a Value. Integers above 2^53
// survive because the decoder reads json.Number.
func unmarshalValue(data string) (ir.Value, error) {
	v, err := ir.UnmarshalValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal %q: %w", data, err)
	}
	return v, nil
}
