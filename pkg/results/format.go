package results

import (
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/sift/pkg/compress"
)

// Format selects the wire encoding of a results stream.
type Format int

const (
	// FormatXML is the <results>/<result>/<field> encoding.
	FormatXML Format = iota + 1
	// FormatJSON covers the pre-5.0 array, the 5.0 object and the 5.0
	// line-delimited export encodings.
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatXML:
		return "xml"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseFormat parses "xml" or "json", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xml":
		return FormatXML, nil
	case "json":
		return FormatJSON, nil
	default:
		return 0, fmt.Errorf("unknown results format: %q (available: xml, json)", s)
	}
}

// DetectFormat picks the format from the extension of a file name, path or
// URL: .json, .jsonl and .ndjson mean JSON and .xml means XML, also behind a
// compression extension such as .gz. Anything else returns fallback.
func DetectFormat(name string, fallback Format) Format {
	ext := filepath.Ext(compress.TrimExt(name))
	if u, err := url.Parse(name); err == nil && u.Scheme != "" && u.Host != "" {
		ext = path.Ext(compress.TrimExt(u.Path))
	}

	switch strings.ToLower(ext) {
	case ".json", ".jsonl", ".ndjson":
		return FormatJSON
	case ".xml":
		return FormatXML
	default:
		return fallback
	}
}

// NewReader returns a reader for the given format over r.
func NewReader(format Format, r io.Reader, opts ...Option) (*Reader, error) {
	switch format {
	case FormatXML:
		return NewXMLReader(r, opts...)
	case FormatJSON:
		return NewJSONReader(r, opts...)
	default:
		return nil, fmt.Errorf("unknown results format: %d", format)
	}
}
