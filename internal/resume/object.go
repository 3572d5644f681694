package resume

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/tidwall/gjson"
)

// object is a JSON object that remembers the order of its members.
// Values are kept raw so members the model does not know about survive a
// load/save cycle untouched.
type object struct {
	keys   []string
	values map[string]json.RawMessage
}

func newObject() *object {
	return &object{values: make(map[string]json.RawMessage)}
}

func parseObject(r gjson.Result) (*object, error) {
	if !r.IsObject() {
		return nil, fmt.Errorf("expected object, got %s", describe(r))
	}

	obj := newObject()
	r.ForEach(func(key, value gjson.Result) bool {
		obj.setRaw(key.String(), json.RawMessage(value.Raw))
		return true
	})
	return obj, nil
}

func (o *object) get(key string) (json.RawMessage, bool) {
	v, ok := o.values[key]
	return v, ok
}

func (o *object) has(key string) bool {
	_, ok := o.values[key]
	return ok
}

func (o *object) setRaw(key string, value json.RawMessage) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

func (o *object) set(key string, value any) error {
	raw, err := encode(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	o.setRaw(key, raw)
	return nil
}

// putString writes value unless the stored member already decodes to it.
// An absent member is only created for a non-empty value.
func (o *object) putString(key, value string) error {
	if raw, ok := o.get(key); ok {
		if current, err := decodeString(gjson.ParseBytes(raw)); err == nil && current == value {
			return nil
		}
		return o.set(key, value)
	}
	if value == "" {
		return nil
	}
	return o.set(key, value)
}

func (o *object) putStrings(key string, values []string) error {
	if raw, ok := o.get(key); ok {
		if current, err := decodeStrings(gjson.ParseBytes(raw)); err == nil && slices.Equal(current, values) {
			return nil
		}
		if values == nil {
			values = []string{}
		}
		return o.set(key, values)
	}
	if len(values) == 0 {
		return nil
	}
	return o.set(key, values)
}

func (o *object) clone() *object {
	c := &object{
		keys:   slices.Clone(o.keys),
		values: make(map[string]json.RawMessage, len(o.values)),
	}
	for k, v := range o.values {
		c.values[k] = v
	}
	return c
}

func (o *object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := encode(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(o.values[key])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encode marshals without HTML escaping, matching how the document is written to disk.
func encode(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func decodeString(r gjson.Result) (string, error) {
	switch r.Type {
	case gjson.String:
		return r.String(), nil
	case gjson.Null:
		return "", nil
	case gjson.Number:
		return r.Raw, nil
	default:
		return "", fmt.Errorf("expected string, got %s", describe(r))
	}
}

func decodeStrings(r gjson.Result) ([]string, error) {
	if r.Type == gjson.Null {
		return nil, nil
	}
	if !r.IsArray() {
		return nil, fmt.Errorf("expected array of strings, got %s", describe(r))
	}

	values := make([]string, 0)
	var err error
	r.ForEach(func(_, value gjson.Result) bool {
		if value.Type != gjson.String {
			err = fmt.Errorf("expected string element, got %s", describe(value))
			return false
		}
		values = append(values, value.String())
		return true
	})
	return values, err
}

func describe(r gjson.Result) string {
	switch {
	case !r.Exists():
		return "nothing"
	case r.IsObject():
		return "object"
	case r.IsArray():
		return "array"
	default:
		return r.Type.String()
	}
}
