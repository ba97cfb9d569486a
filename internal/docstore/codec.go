package docstore

import (
	"encoding/json"
	"fmt"
)

// Encode turns a typed value into its JSON-shaped document form.
func Encode(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return out, nil
}

// EncodeDocument is Encode for values that must encode to an object.
func EncodeDocument(v any) (Document, error) {
	out, err := Encode(v)
	if err != nil {
		return nil, err
	}
	m, ok := out.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("encode: %T is not an object", v)
	}
	return Document(m), nil
}

// Decode fills dst from a document-shaped value.
func Decode(src any, dst any) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
