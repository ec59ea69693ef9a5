package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ContextField is one key/value pair of check context
type ContextField struct {
	Key   string
	Value interface{}
}

// Context carries the extra columns a check query returned, in column
// order. It marshals to a JSON object whose keys keep that order.
type Context []ContextField

// Get returns the value for key and whether it is present
func (c Context) Get(key string) (interface{}, bool) {
	for _, f := range c {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Set appends the field, replacing an existing value for the same key
func (c Context) Set(key string, value interface{}) Context {
	for i, f := range c {
		if f.Key == key {
			c[i].Value = value
			return c
		}
	}
	return append(c, ContextField{Key: key, Value: value})
}

// MarshalJSON writes the context as an object preserving field order
func (c Context) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal context value %q: %w", f.Key, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object back keeping its key order
func (c *Context) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*c = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("context: expected JSON object, got %v", tok)
	}

	out := Context{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("context: expected string key, got %v", keyTok)
		}
		var val interface{}
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("context: decode value for %q: %w", key, err)
		}
		out = append(out, ContextField{Key: key, Value: val})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}

// CheckResult is what the query engine reports for a single evaluation
type CheckResult struct {
	Status      CheckStatus `json:"status"`
	ActualValue *float64    `json:"actual_value,omitempty"`
	Threshold   *float64    `json:"threshold,omitempty"`
	Context     Context     `json:"context,omitempty"`
}
