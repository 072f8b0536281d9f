package results

import (
	"io"
	"log/slog"

	"github.com/papercomputeco/sift/pkg/logger"
)

// Option configures a Reader.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	export   *bool
	multiSet bool
}

// WithLogger sets the logger used for set transitions. Defaults to a no-op
// logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithExport overrides the export provenance otherwise derived from the
// source's type (see Exporter).
func WithExport(export bool) Option {
	return func(o *options) {
		o.export = &export
	}
}

// WithMultiSet marks the reader as embedded in a multi-set container.
// Construction then reads nothing and preview sets are never skipped; the
// caller drives the reader with AdvanceToNextSet.
func WithMultiSet() Option {
	return func(o *options) {
		o.multiSet = true
	}
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Nop()
	}
	return o
}

// exportFor resolves export provenance: explicit option first, then the
// source's declared type.
func (o options) exportFor(src io.Reader) bool {
	if o.export != nil {
		return *o.export
	}
	return IsExport(src)
}
