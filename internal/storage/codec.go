package storage

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/tidwall/jsonc"
)

var errEmptyValue = errors.New("empty value")

func encode(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decode parses raw into a fresh T. Hand-edited values may carry comments or
// trailing commas. An empty or null document is reported as errEmptyValue so
// the caller keeps its default.
func decode[T any](raw string) (T, error) {
	var v T
	data := bytes.TrimSpace(jsonc.ToJSON([]byte(raw)))
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return v, errEmptyValue
	}
	if err := json.Unmarshal(data, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}
