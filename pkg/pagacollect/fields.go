package pagacollect

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/shopspring/decimal"
)

// Field is a named request value
type Field struct {
	Name  string
	Value any
}

// Fields is an ordered field mapping. It serializes to a JSON object whose
// keys keep their definition order, and the same ordering drives hash input
// concatenation.
type Fields []Field

// Present returns a copy holding only fields whose value is neither nil nor a
// nil pointer, slice or map. Zero values like 0, false and "" are kept.
// Nested Fields values are not filtered.
func (f Fields) Present() Fields {
	out := make(Fields, 0, len(f))
	for _, field := range f {
		if isNil(field.Value) {
			continue
		}
		out = append(out, field)
	}
	return out
}

// Join concatenates the field values in order
func (f Fields) Join() string {
	var sb strings.Builder
	for _, field := range f {
		sb.WriteString(formatValue(field.Value))
	}
	return sb.String()
}

// Get returns the value stored under name
func (f Fields) Get(name string) (any, bool) {
	for _, field := range f {
		if field.Name == name {
			return field.Value, true
		}
	}
	return nil, false
}

// Names returns the field names in order
func (f Fields) Names() []string {
	names := make([]string, len(f))
	for i, field := range f {
		names[i] = field.Name
	}
	return names
}

// MarshalJSON encodes the fields as a JSON object in definition order
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(field.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal field %s: %w", field.Name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case *string:
		if val == nil {
			return ""
		}
		return *val
	case json.Number:
		return val.String()
	case decimal.Decimal:
		return val.String()
	case *decimal.Decimal:
		if val == nil {
			return ""
		}
		return val.String()
	case *bool:
		if val == nil {
			return ""
		}
		return fmt.Sprint(*val)
	}
	return fmt.Sprint(v)
}

// number renders an amount as a JSON number literal in shortest decimal form
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// optionalNumber is number for optional amounts; nil stays absent
func optionalNumber(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return number(*d)
}

// orNull maps an empty string to nil, the provider's marker for an absent
// nested value
func orNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}
