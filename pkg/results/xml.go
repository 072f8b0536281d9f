package results

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// xmlSets parses the <results> element stream. The document is read in
// fragment mode: export endpoints emit several <results> roots back to back.
type xmlSets struct {
	dec *xml.Decoder

	// pending holds tokens pushed back by look-ahead, most recent last.
	pending []xml.Token

	inSet       bool
	fieldOrder  []string
	previewFlag bool
}

func newXMLSets(r io.Reader) *xmlSets {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	return &xmlSets{dec: dec}
}

func (x *xmlSets) finish() error {
	if !x.inSet {
		return nil
	}
	return x.drain()
}

func (x *xmlSets) advance() (bool, error) {
	if err := x.finish(); err != nil {
		return false, err
	}

	x.fieldOrder = nil
	x.previewFlag = false

	for {
		tok, err := x.token()
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, err
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "results" {
			continue
		}

		x.previewFlag = isTruthy(attr(start, "preview"))
		x.inSet = true

		if err := x.readMeta(); err != nil {
			return false, err
		}
		return true, nil
	}
}

func (x *xmlSets) next() (Event, bool, error) {
	if !x.inSet {
		return Event{}, false, nil
	}

	for {
		tok, err := x.token()
		if errors.Is(err, io.EOF) {
			x.inSet = false
			return Event{}, false, nil
		}
		if err != nil {
			return Event{}, false, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "result":
				ev, err := x.readResult()
				if err != nil {
					return Event{}, false, err
				}
				return ev, true, nil
			case "results":
				x.unread(t)
				x.inSet = false
				return Event{}, false, nil
			default:
				if err := x.skip(); err != nil {
					return Event{}, false, err
				}
			}

		case xml.EndElement:
			if t.Name.Local == "results" {
				x.inSet = false
				return Event{}, false, nil
			}
		}
	}
}

func (x *xmlSets) fields() ([]string, error) {
	fields := make([]string, len(x.fieldOrder))
	copy(fields, x.fieldOrder)
	return fields, nil
}

func (x *xmlSets) preview() (bool, error) {
	return x.previewFlag, nil
}

func (x *xmlSets) close() error {
	x.pending = nil
	x.inSet = false
	return nil
}

// drain skips the unread <result> elements of the current set.
func (x *xmlSets) drain() error {
	for x.inSet {
		tok, err := x.token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "results" {
				x.unread(t)
				x.inSet = false
				continue
			}
			if err := x.skip(); err != nil {
				return err
			}
		case xml.EndElement:
			if t.Name.Local == "results" {
				x.inSet = false
			}
		}
	}

	x.inSet = false
	return nil
}

// readMeta consumes an optional <meta> block directly after <results>.
func (x *xmlSets) readMeta() error {
	for {
		tok, err := x.token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.CharData, xml.Comment, xml.ProcInst:
			continue
		case xml.StartElement:
			if t.Name.Local != "meta" {
				x.unread(t)
				return nil
			}
			return x.readMetaBody()
		default:
			x.unread(t)
			return nil
		}
	}
}

func (x *xmlSets) readMetaBody() error {
	for {
		tok, err := x.tokenInElement()
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "fieldOrder" {
				if err := x.skip(); err != nil {
					return err
				}
				continue
			}
			if err := x.readFieldOrder(); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (x *xmlSets) readFieldOrder() error {
	for {
		tok, err := x.tokenInElement()
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "field" {
				if err := x.skip(); err != nil {
					return err
				}
				continue
			}
			name, err := x.readText()
			if err != nil {
				return err
			}
			x.fieldOrder = append(x.fieldOrder, name)
		case xml.EndElement:
			return nil
		}
	}
}

// readResult reads one <result> element whose start tag was consumed.
func (x *xmlSets) readResult() (Event, error) {
	ev := Event{}

	for {
		tok, err := x.tokenInElement()
		if err != nil {
			return Event{}, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "field" {
				if err := x.skip(); err != nil {
					return Event{}, err
				}
				continue
			}

			name, ok := lookupAttr(t, "k")
			if !ok {
				return Event{}, fmt.Errorf("%w: xml: <field> without k attribute", ErrMalformedInput)
			}

			values, raw, err := x.readFieldValues()
			if err != nil {
				return Event{}, err
			}
			if raw != "" {
				ev.segmentedRaw = raw
			}

			switch len(values) {
			case 0:
			case 1:
				ev.set(name, NewValue(values[0]))
			default:
				ev.set(name, NewArrayValue(values))
			}

		case xml.EndElement:
			return ev, nil
		}
	}
}

// readFieldValues collects the <value> texts of a <field>, or the text of
// its <v> element together with that element's markup.
func (x *xmlSets) readFieldValues() ([]string, string, error) {
	var (
		values []string
		raw    string
	)

	for {
		tok, err := x.tokenInElement()
		if err != nil {
			return nil, "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "value":
				text, err := x.readValue()
				if err != nil {
					return nil, "", err
				}
				values = append(values, text)
			case "v":
				markup, text, err := x.readSegmented(t)
				if err != nil {
					return nil, "", err
				}
				values = append(values, text)
				raw = markup
			default:
				if err := x.skip(); err != nil {
					return nil, "", err
				}
			}
		case xml.EndElement:
			return values, raw, nil
		}
	}
}

func (x *xmlSets) readValue() (string, error) {
	var text string

	for {
		tok, err := x.tokenInElement()
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "text" {
				if err := x.skip(); err != nil {
					return "", err
				}
				continue
			}
			if text, err = x.readText(); err != nil {
				return "", err
			}
		case xml.EndElement:
			return text, nil
		}
	}
}

// readSegmented re-serializes a <v> element and returns its markup and its
// plain text.
func (x *xmlSets) readSegmented(start xml.StartElement) (string, string, error) {
	var (
		markup bytes.Buffer
		text   strings.Builder
	)

	enc := xml.NewEncoder(&markup)
	if err := enc.EncodeToken(start); err != nil {
		return "", "", fmt.Errorf("%w: xml: %w", ErrMalformedInput, err)
	}

	for depth := 1; depth > 0; {
		tok, err := x.tokenInElement()
		if err != nil {
			return "", "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			text.Write(t)
		case xml.ProcInst, xml.Directive:
			continue
		}

		if err := enc.EncodeToken(tok); err != nil {
			return "", "", fmt.Errorf("%w: xml: %w", ErrMalformedInput, err)
		}
	}

	if err := enc.Flush(); err != nil {
		return "", "", err
	}
	return markup.String(), text.String(), nil
}

// readText returns the character data of the element whose start tag was
// consumed, including the text of nested elements.
func (x *xmlSets) readText() (string, error) {
	var text strings.Builder

	for depth := 1; depth > 0; {
		tok, err := x.tokenInElement()
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			text.Write(t)
		}
	}

	return text.String(), nil
}

// skip consumes the rest of the element whose start tag was consumed.
func (x *xmlSets) skip() error {
	for depth := 1; depth > 0; {
		tok, err := x.tokenInElement()
		if err != nil {
			return err
		}

		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

func (x *xmlSets) token() (xml.Token, error) {
	if n := len(x.pending); n > 0 {
		tok := x.pending[n-1]
		x.pending = x.pending[:n-1]
		return tok, nil
	}

	tok, err := x.dec.Token()
	if err != nil {
		return nil, xmlError(err)
	}
	return tok, nil
}

// tokenInElement is token for positions inside an open element, where end
// of stream means truncated input.
func (x *xmlSets) tokenInElement() (xml.Token, error) {
	tok, err := x.token()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: xml: %w", ErrMalformedInput, io.ErrUnexpectedEOF)
	}
	return tok, err
}

func (x *xmlSets) unread(tok xml.Token) {
	x.pending = append(x.pending, xml.CopyToken(tok))
}

func xmlError(err error) error {
	if errors.Is(err, io.EOF) {
		return io.EOF
	}

	var syntaxErr *xml.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Errorf("%w: xml: %w", ErrMalformedInput, err)
	}
	return fmt.Errorf("xml: %w", err)
}

func lookupAttr(start xml.StartElement, name string) (string, bool) {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func attr(start xml.StartElement, name string) string {
	v, _ := lookupAttr(start, name)
	return v
}

func isTruthy(s string) bool {
	return s == "1" || strings.EqualFold(s, "true")
}
