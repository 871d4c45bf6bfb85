package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var jsonNull = []byte("null")

// object is one provider JSON object keyed by field name.
type object map[string]json.RawMessage

// fieldDecoder reads provider fields one at a time. A field whose value has an
// unexpected type is left at its zero value and recorded, so one odd field
// never costs the whole entry.
type fieldDecoder struct {
	errs []error
}

func decodeObject(data []byte) (object, error) {
	var obj object
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// field decodes obj[key] into a T. Missing and null fields are zero without error.
func field[T any](d *fieldDecoder, obj object, key string) T {
	var v T
	raw, ok := obj[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return v
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		d.errs = append(d.errs, fmt.Errorf("field %q: %w", key, err))
		var zero T
		return zero
	}
	return v
}

// nested returns obj[key] as an object, or nil when it is absent or not an object.
func (d *fieldDecoder) nested(obj object, key string) object {
	return field[object](d, obj, key)
}

// amount reads a number that some institutions send as a numeric string.
// The result is nil when the field is absent, null or not numeric.
func (d *fieldDecoder) amount(obj object, key string) *float64 {
	raw, ok := obj[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			d.errs = append(d.errs, fmt.Errorf("field %q: not a number", key))
			return nil
		}
		n = json.Number(s)
	}

	v, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		d.errs = append(d.errs, fmt.Errorf("field %q: %w", key, err))
		return nil
	}
	return &v
}

func (d *fieldDecoder) err(kind, id string) error {
	if len(d.errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s %q has unreadable fields: %w", kind, id, errors.Join(d.errs...))
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
