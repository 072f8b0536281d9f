package results

import "io"

// Exporter is implemented by sources that know whether they originate from an
// export endpoint. The JSON export and normal grammars cannot be told apart
// from content alone, so provenance travels with the stream.
type Exporter interface {
	Export() bool
}

// ExportStream marks a byte stream as coming from a continuous export
// endpoint. Readers built over it skip preview sets during initialization and
// use the line-delimited JSON grammar.
type ExportStream struct {
	io.Reader
}

// NewExportStream wraps r as an export-endpoint stream.
func NewExportStream(r io.Reader) *ExportStream {
	return &ExportStream{Reader: r}
}

// Export always reports true.
func (s *ExportStream) Export() bool {
	return true
}

// Close closes the wrapped reader when it is an io.Closer.
func (s *ExportStream) Close() error {
	if c, ok := s.Reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// IsExport reports whether r declares export-endpoint provenance.
func IsExport(r io.Reader) bool {
	e, ok := r.(Exporter)
	return ok && e.Export()
}
