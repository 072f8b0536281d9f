package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
)

// Field is one named value of an Event.
type Field struct {
	Name  string
	Value FieldValue
}

// Event is a single search result: an ordered mapping of field names to
// values. Events produced by a Reader are never modified after they are
// yielded.
type Event struct {
	fields []Field
	index  map[string]int

	// segmentedRaw is the markup-preserving rendering of the _raw field, set
	// only by the XML reader for the <v> element form.
	segmentedRaw string
}

// NewEvent builds an Event from fields in order. A repeated name replaces the
// earlier value while keeping its original position.
func NewEvent(fields ...Field) Event {
	e := Event{}
	for _, f := range fields {
		e.set(f.Name, f.Value)
	}
	return e
}

func (e *Event) set(name string, value FieldValue) {
	if e.index == nil {
		e.index = make(map[string]int)
	}
	if i, ok := e.index[name]; ok {
		e.fields[i].Value = value
		return
	}
	e.index[name] = len(e.fields)
	e.fields = append(e.fields, Field{Name: name, Value: value})
}

// Get returns the value of the named field.
func (e Event) Get(name string) (FieldValue, bool) {
	i, ok := e.index[name]
	if !ok {
		return FieldValue{}, false
	}
	return e.fields[i].Value, true
}

// String returns the string rendering of the named field, or "" when the
// field is absent.
func (e Event) String(name string) string {
	v, _ := e.Get(name)
	return v.String()
}

// Has reports whether the event carries the named field.
func (e Event) Has(name string) bool {
	_, ok := e.index[name]
	return ok
}

// Len returns the number of fields.
func (e Event) Len() int {
	return len(e.fields)
}

// Names returns the field names in order.
func (e Event) Names() []string {
	names := make([]string, len(e.fields))
	for i, f := range e.fields {
		names[i] = f.Name
	}
	return names
}

// Fields returns a copy of the fields in order.
func (e Event) Fields() []Field {
	fields := make([]Field, len(e.fields))
	copy(fields, e.fields)
	return fields
}

// All iterates the fields in order.
func (e Event) All() iter.Seq2[string, FieldValue] {
	return func(yield func(string, FieldValue) bool) {
		for _, f := range e.fields {
			if !yield(f.Name, f.Value) {
				return
			}
		}
	}
}

// SegmentedRaw returns the markup-preserving _raw rendering, if the XML
// reader captured one.
func (e Event) SegmentedRaw() string {
	return e.segmentedRaw
}

// WithSegmentedRaw returns a copy of e carrying raw as its segmented raw
// rendering.
func (e Event) WithSegmentedRaw(raw string) Event {
	c := NewEvent(e.fields...)
	c.segmentedRaw = raw
	return c
}

// MarshalJSON encodes the event as a JSON object preserving field order.
func (e Event) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range e.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		value, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object produced by MarshalJSON, keeping the
// key order of the document.
func (e *Event) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	t, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := t.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("event: expected object, got %v", t)
	}

	decoded, err := readObjectEvent(dec)
	if err != nil {
		return err
	}
	*e = decoded
	return nil
}
