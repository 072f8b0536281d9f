package results

import "errors"

var (
	// ErrMalformedInput indicates the stream violates the wire format, e.g. an
	// XML field without its "k" attribute or a legacy JSON array inside an
	// export stream. The reader must not be used further.
	ErrMalformedInput = errors.New("malformed results input")

	// ErrUnsupportedOperation indicates the operation has no meaning for the
	// stream's format, e.g. Fields on a JSON stream or IsPreview before the
	// server ever emitted the flag.
	ErrUnsupportedOperation = errors.New("operation not supported for this results format")

	// ErrInconsistentSets indicates the server emitted a preview set after a
	// final set within the same stream.
	ErrInconsistentSets = errors.New("preview result set follows a final result set")

	// ErrDisposed is returned by every operation on a closed reader.
	ErrDisposed = errors.New("results reader is closed")

	// ErrAlreadyIterated is returned when a second event sequence is requested
	// from a reader whose sequence was already handed out.
	ErrAlreadyIterated = errors.New("results events can only be iterated once")

	// ErrStaleSet is returned when iterating a ResultSet after its MultiReader
	// has moved on to a later set.
	ErrStaleSet = errors.New("result set is no longer current")
)
