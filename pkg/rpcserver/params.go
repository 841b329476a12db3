package rpcserver

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// positionalParams accepts params either as a JSON array (used as-is) or
// a JSON object (by-name, looked up against names in order), matching
// spec §4.G: "Params may be positional (array) or by-name (object); both
// forms must be accepted for every method." Missing by-name fields
// decode as JSON null.
func positionalParams(raw json.RawMessage, names []string) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		trimmed = []byte("[]")
	}

	switch trimmed[0] {
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return nil, fmt.Errorf("params: invalid array: %w", err)
		}
		return arr, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, fmt.Errorf("params: invalid object: %w", err)
		}
		out := make([]json.RawMessage, len(names))
		for i, name := range names {
			if v, ok := obj[name]; ok {
				out[i] = v
			} else {
				out[i] = json.RawMessage("null")
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("params: must be an array or object, got %q", string(trimmed))
	}
}

// rawArgs converts decoded positional params into the []interface{} the
// backend client's Call expects, letting each json.RawMessage marshal
// itself back out unchanged.
func rawArgs(params []json.RawMessage) []interface{} {
	args := make([]interface{}, len(params))
	for i, p := range params {
		args[i] = p
	}
	return args
}
