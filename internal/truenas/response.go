package truenas

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrNotJSON is returned when structured data is requested from a response
// whose body could not be decoded as JSON.
var ErrNotJSON = errors.New("response body is not JSON")

// Response is the body of a successful request: either a decoded JSON value
// or, when decoding failed, the raw text.
type Response struct {
	Value any
	Raw   string
	json  bool
}

func newResponse(raw []byte) Response {
	r := Response{Raw: string(raw)}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return r
	}
	// Trailing data means the body was not a single JSON document
	if _, err := dec.Token(); err != io.EOF {
		return r
	}

	r.Value = v
	r.json = true
	return r
}

// IsRaw reports whether the body was returned verbatim.
func (r Response) IsRaw() bool {
	return !r.json
}

// Decode unmarshals the JSON body into v. Numbers decode as json.Number
// when v holds interface values.
func (r Response) Decode(v any) error {
	if !r.json {
		return fmt.Errorf("%w: %q", ErrNotJSON, truncate(r.Raw, 120))
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(r.Raw)))
	dec.UseNumber()
	return dec.Decode(v)
}

// Remote is a record as returned by the appliance. It always carries a
// server-assigned "id" next to the resource attributes.
type Remote map[string]any

// ID renders the identity field, false if absent.
func (r Remote) ID() (string, bool) {
	v, ok := r["id"]
	if !ok || v == nil {
		return "", false
	}
	switch id := v.(type) {
	case json.Number:
		return id.String(), true
	case string:
		return id, true
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), true
	default:
		return fmt.Sprintf("%v", id), true
	}
}

// WithoutID returns a shallow copy of the record without the identity field.
func (r Remote) WithoutID() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		if k == "id" {
			continue
		}
		out[k] = v
	}
	return out
}

// Decode converts the record into a typed value.
func (r Remote) Decode(v any) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// String returns a string attribute, empty when absent or not a string.
func (r Remote) String(field string) string {
	s, _ := r[field].(string)
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
