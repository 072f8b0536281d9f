package results

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

type jsonMode int

const (
	jsonUnprobed jsonMode = iota

	// jsonLegacy is the pre-5.0 top-level array of events.
	jsonLegacy

	// jsonObject is one or more 5.0 objects carrying a "results" array.
	jsonObject
)

// jsonSets parses the normal-endpoint JSON grammars. The first token picks
// the mode.
type jsonSets struct {
	dec  *json.Decoder
	mode jsonMode

	// inSet is true while the current results array has unread elements.
	inSet bool

	// inObject is true while keys of the current 5.0 object remain unread.
	inObject bool

	previewKnown bool
	previewFlag  bool
}

func newJSONSets(r io.Reader) *jsonSets {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	return &jsonSets{dec: dec}
}

func (j *jsonSets) finish() error {
	return j.finishSet()
}

func (j *jsonSets) advance() (bool, error) {
	if err := j.finish(); err != nil {
		return false, err
	}

	switch j.mode {
	case jsonLegacy:
		return false, nil

	case jsonObject:
		tok, err := j.dec.Token()
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, jsonError(err)
		}
		if !isDelim(tok, '{') {
			return false, fmt.Errorf("%w: json: expected results object, got %v", ErrMalformedInput, tok)
		}
		return true, j.openObject()

	default:
		tok, err := j.dec.Token()
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, jsonError(err)
		}

		switch {
		case isDelim(tok, '['):
			j.mode = jsonLegacy
			j.inSet = true
			return true, nil
		case isDelim(tok, '{'):
			j.mode = jsonObject
			return true, j.openObject()
		default:
			return false, fmt.Errorf("%w: json: unexpected leading token %v", ErrMalformedInput, tok)
		}
	}
}

func (j *jsonSets) next() (Event, bool, error) {
	if !j.inSet {
		return Event{}, false, nil
	}

	if !j.dec.More() {
		if err := j.closeArray(); err != nil {
			return Event{}, false, err
		}
		if err := j.finishObject(); err != nil {
			return Event{}, false, err
		}
		return Event{}, false, nil
	}

	tok, err := j.dec.Token()
	if err != nil {
		return Event{}, false, jsonErrorInValue(err)
	}
	if !isDelim(tok, '{') {
		return Event{}, false, fmt.Errorf("%w: json: result is not an object: %v", ErrMalformedInput, tok)
	}

	ev, err := readObjectEvent(j.dec)
	if err != nil {
		return Event{}, false, err
	}
	return ev, true, nil
}

func (j *jsonSets) fields() ([]string, error) {
	return nil, fmt.Errorf("%w: json results carry no field list", ErrUnsupportedOperation)
}

func (j *jsonSets) preview() (bool, error) {
	if !j.previewKnown {
		return false, fmt.Errorf("%w: stream did not report a preview flag", ErrUnsupportedOperation)
	}
	return j.previewFlag, nil
}

func (j *jsonSets) close() error {
	j.inSet = false
	j.inObject = false
	return nil
}

// openObject scans the keys of a 5.0 results object up to its "results"
// array. An object without one is an empty set.
func (j *jsonSets) openObject() error {
	j.inObject = true
	j.previewKnown = false
	j.previewFlag = false

	for j.dec.More() {
		key, err := readKey(j.dec)
		if err != nil {
			return err
		}

		switch key {
		case "preview":
			if err := j.readPreview(); err != nil {
				return err
			}

		case "results":
			tok, err := j.dec.Token()
			if err != nil {
				return jsonErrorInValue(err)
			}
			if tok == nil {
				continue
			}
			if !isDelim(tok, '[') {
				return fmt.Errorf("%w: json: results is not an array: %v", ErrMalformedInput, tok)
			}
			j.inSet = true
			return nil

		default:
			if err := skipValue(j.dec); err != nil {
				return err
			}
		}
	}

	return j.finishObject()
}

// finishSet skips the unread remainder of the current set.
func (j *jsonSets) finishSet() error {
	for j.inSet {
		if !j.dec.More() {
			if err := j.closeArray(); err != nil {
				return err
			}
			break
		}
		if err := skipValue(j.dec); err != nil {
			return err
		}
	}
	return j.finishObject()
}

func (j *jsonSets) closeArray() error {
	j.inSet = false
	return expectDelim(j.dec, ']')
}

// finishObject reads the keys following the results array. A preview flag
// placed after the results still applies to the set just read.
func (j *jsonSets) finishObject() error {
	if !j.inObject {
		return nil
	}
	j.inObject = false

	for j.dec.More() {
		key, err := readKey(j.dec)
		if err != nil {
			return err
		}
		if key == "preview" {
			if err := j.readPreview(); err != nil {
				return err
			}
			continue
		}
		if err := skipValue(j.dec); err != nil {
			return err
		}
	}
	return expectDelim(j.dec, '}')
}

func (j *jsonSets) readPreview() error {
	var v any
	if err := j.dec.Decode(&v); err != nil {
		return jsonErrorInValue(err)
	}
	j.previewFlag = jsonTruthy(v)
	j.previewKnown = true
	return nil
}

// readObjectEvent maps the members of a JSON object to an Event. The opening
// brace has been consumed; the closing brace is consumed before returning.
func readObjectEvent(dec *json.Decoder) (Event, error) {
	ev := Event{}

	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return Event{}, err
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return Event{}, jsonErrorInValue(err)
		}

		value, ok, err := fieldValueFromJSON(raw)
		if err != nil {
			return Event{}, err
		}
		if ok {
			ev.set(key, value)
		}
	}

	if err := expectDelim(dec, '}'); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// fieldValueFromJSON maps one JSON member value. Strings become single
// values and arrays multi values; null omits the field.
func fieldValueFromJSON(raw json.RawMessage) (FieldValue, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return FieldValue{}, false, nil
	}

	switch raw[0] {
	case 'n':
		return FieldValue{}, false, nil

	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return FieldValue{}, false, jsonErrorInValue(err)
		}
		return NewValue(s), true, nil

	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return FieldValue{}, false, jsonErrorInValue(err)
		}

		values := make([]string, 0, len(elems))
		for _, elem := range elems {
			s, err := jsonScalarText(elem)
			if err != nil {
				return FieldValue{}, false, err
			}
			values = append(values, s)
		}
		return NewArrayValue(values), true, nil

	default:
		s, err := jsonScalarText(raw)
		if err != nil {
			return FieldValue{}, false, err
		}
		return NewValue(s), true, nil
	}
}

// jsonScalarText renders a JSON value as field text: strings unquoted, null
// empty, anything else as compact JSON.
func jsonScalarText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", nil
	}

	switch raw[0] {
	case 'n':
		return "", nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", jsonErrorInValue(err)
		}
		return s, nil
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return "", jsonErrorInValue(err)
		}
		return buf.String(), nil
	default:
		return string(raw), nil
	}
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", jsonErrorInValue(err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: json: expected object key, got %v", ErrMalformedInput, tok)
	}
	return key, nil
}

func skipValue(dec *json.Decoder) error {
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return jsonErrorInValue(err)
	}
	return nil
}

func expectDelim(dec *json.Decoder, d json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return jsonErrorInValue(err)
	}
	if !isDelim(tok, d) {
		return fmt.Errorf("%w: json: expected %v, got %v", ErrMalformedInput, d, tok)
	}
	return nil
}

func isDelim(tok json.Token, d json.Delim) bool {
	got, ok := tok.(json.Delim)
	return ok && got == d
}

func jsonTruthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return isTruthy(t)
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	default:
		return false
	}
}

func jsonError(err error) error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%w: json: %w", ErrMalformedInput, err)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: json: %w", ErrMalformedInput, err)
	}
	return fmt.Errorf("json: %w", err)
}

// jsonErrorInValue is jsonError for positions inside an open value, where
// end of stream means truncated input.
func jsonErrorInValue(err error) error {
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: json: %w", ErrMalformedInput, io.ErrUnexpectedEOF)
	}
	return jsonError(err)
}
