package results

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// exportRows reads the export endpoint's line-delimited rows. Each row gets
// its own decoder scoped to that line; the decoder is dropped once the row
// has been consumed.
type exportRows struct {
	src  *bufio.Reader
	line []byte
	num  int

	dec *json.Decoder

	// Row state, reset by readIntoRow.
	preview      bool
	previewKnown bool
	lastRow      bool
	hasResult    bool
	resultRead   bool
	wholeLine    bool
	closed       bool
}

func newExportRows(r io.Reader) *exportRows {
	return &exportRows{src: bufio.NewReader(r)}
}

// readIntoRow reads the next non-blank line and positions the row decoder at
// its "result" value, or at the end of the row when it has none. It returns
// false at end of stream.
func (e *exportRows) readIntoRow() (bool, error) {
	e.dec = nil

	for {
		line, err := e.src.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, fmt.Errorf("json export: %w", err)
		}

		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			e.num++
			return true, e.openRow(line)
		}
		if err != nil {
			return false, nil
		}
	}
}

func (e *exportRows) openRow(line []byte) error {
	e.line = line
	e.preview, e.previewKnown, e.lastRow = false, false, false
	e.hasResult, e.resultRead, e.wholeLine, e.closed = false, false, false, false

	switch line[0] {
	case '[':
		return fmt.Errorf("%w: json export: line %d carries a pre-5.0 JSON array; read this stream with the XML reader instead",
			ErrMalformedInput, e.num)
	case '{':
	default:
		return fmt.Errorf("%w: json export: line %d is not a JSON object", ErrMalformedInput, e.num)
	}

	e.dec = json.NewDecoder(bytes.NewReader(line))
	e.dec.UseNumber()

	if err := expectDelim(e.dec, '{'); err != nil {
		return err
	}

	sawControl := false
	for e.dec.More() {
		key, err := readKey(e.dec)
		if err != nil {
			return err
		}

		switch key {
		case "result":
			e.hasResult = true
			return nil
		case "preview", "lastrow":
			sawControl = true
			if err := e.readControl(key); err != nil {
				return err
			}
		default:
			if err := skipValue(e.dec); err != nil {
				return err
			}
		}
	}

	if err := expectDelim(e.dec, '}'); err != nil {
		return err
	}
	e.closed = true
	e.wholeLine = !sawControl
	return nil
}

func (e *exportRows) readControl(key string) error {
	var v any
	if err := e.dec.Decode(&v); err != nil {
		return jsonErrorInValue(err)
	}

	switch key {
	case "preview":
		e.preview = jsonTruthy(v)
		e.previewKnown = true
	case "lastrow":
		e.lastRow = jsonTruthy(v)
	}
	return nil
}

// readEvent decodes the row's payload. A row without one yields no event.
func (e *exportRows) readEvent() (Event, bool, error) {
	switch {
	case e.hasResult && !e.resultRead:
		e.resultRead = true

		tok, err := e.dec.Token()
		if err != nil {
			return Event{}, false, jsonErrorInValue(err)
		}
		if tok == nil {
			return Event{}, false, nil
		}
		if !isDelim(tok, '{') {
			return Event{}, false, fmt.Errorf("%w: json export: line %d result is not an object", ErrMalformedInput, e.num)
		}

		ev, err := readObjectEvent(e.dec)
		if err != nil {
			return Event{}, false, err
		}
		return ev, true, nil

	case e.wholeLine:
		e.wholeLine = false

		dec := json.NewDecoder(bytes.NewReader(e.line))
		dec.UseNumber()
		if err := expectDelim(dec, '{'); err != nil {
			return Event{}, false, err
		}

		ev, err := readObjectEvent(dec)
		if err != nil {
			return Event{}, false, err
		}
		return ev, true, nil

	default:
		return Event{}, false, nil
	}
}

// skipRestOfRow consumes whatever the row decoder has not read, picking up a
// lastrow flag placed after the result, and releases the decoder.
func (e *exportRows) skipRestOfRow() error {
	defer func() {
		e.dec = nil
		e.line = nil
	}()

	if e.dec == nil || e.closed {
		return nil
	}

	if e.hasResult && !e.resultRead {
		e.resultRead = true
		if err := skipValue(e.dec); err != nil {
			return err
		}
	}

	for e.dec.More() {
		key, err := readKey(e.dec)
		if err != nil {
			return err
		}

		switch key {
		case "preview", "lastrow":
			if err := e.readControl(key); err != nil {
				return err
			}
		default:
			if err := skipValue(e.dec); err != nil {
				return err
			}
		}
	}

	e.closed = true
	return expectDelim(e.dec, '}')
}

// exportSets groups export rows into sets. A set runs from the row after a
// lastrow row up to and including the next lastrow row.
type exportSets struct {
	rows *exportRows

	// rowPending is true when a row has been read but not yet consumed.
	rowPending bool
	setOpen    bool

	previewKnown bool
	previewFlag  bool
}

func newExportSets(r io.Reader) *exportSets {
	return &exportSets{rows: newExportRows(r)}
}

func (s *exportSets) finish() error {
	for s.setOpen {
		if _, _, err := s.nextRow(false); err != nil {
			return err
		}
	}
	return nil
}

func (s *exportSets) advance() (bool, error) {
	if err := s.finish(); err != nil {
		return false, err
	}

	s.previewKnown, s.previewFlag = false, false

	ok, err := s.rows.readIntoRow()
	if err != nil || !ok {
		return false, err
	}

	s.rowPending = true
	s.setOpen = true
	s.previewKnown = s.rows.previewKnown
	s.previewFlag = s.rows.preview
	return true, nil
}

func (s *exportSets) next() (Event, bool, error) {
	for s.setOpen {
		ev, ok, err := s.nextRow(true)
		if err != nil {
			return Event{}, false, err
		}
		if ok {
			return ev, true, nil
		}
	}
	return Event{}, false, nil
}

// nextRow consumes one row of the open set, decoding its event when decode
// is set.
func (s *exportSets) nextRow(decode bool) (Event, bool, error) {
	if !s.rowPending {
		ok, err := s.rows.readIntoRow()
		if err != nil {
			return Event{}, false, err
		}
		if !ok {
			s.setOpen = false
			return Event{}, false, nil
		}
	}

	var (
		ev  Event
		has bool
		err error
	)
	if decode {
		if ev, has, err = s.rows.readEvent(); err != nil {
			return Event{}, false, err
		}
	}
	if err := s.rows.skipRestOfRow(); err != nil {
		return Event{}, false, err
	}

	s.rowPending = false
	if !s.previewKnown && s.rows.previewKnown {
		s.previewKnown, s.previewFlag = true, s.rows.preview
	}
	if s.rows.lastRow {
		s.setOpen = false
	}
	return ev, has, nil
}

func (s *exportSets) fields() ([]string, error) {
	return nil, fmt.Errorf("%w: json export rows carry no field list", ErrUnsupportedOperation)
}

func (s *exportSets) preview() (bool, error) {
	if !s.previewKnown {
		return false, fmt.Errorf("%w: export row did not report a preview flag", ErrUnsupportedOperation)
	}
	return s.previewFlag, nil
}

func (s *exportSets) close() error {
	s.rows.dec = nil
	s.rows.line = nil
	s.setOpen = false
	s.rowPending = false
	return nil
}
