package results

import (
	"errors"
	"io"
	"iter"
	"log/slog"
)

// setParser is the capability each wire format supplies to the Reader. The
// Reader owns the policy (initial preview skipping, set concatenation,
// consistency checks); a setParser only knows how to move between sets and
// pull records out of the current one.
type setParser interface {
	// finish consumes whatever is left of the current set, so trailing
	// metadata such as a late preview flag has been read. It is a no-op when
	// no set is open.
	finish() error

	// advance finishes the current set and positions the parser at the
	// start of the next one. It returns false at end of stream.
	advance() (bool, error)

	// next returns the next event of the current set, or false once the set
	// is exhausted. It never moves to another set.
	next() (Event, bool, error)

	// fields returns the field list of the current set.
	fields() ([]string, error)

	// preview returns the preview flag of the current set, or
	// ErrUnsupportedOperation when the stream has not emitted one.
	preview() (bool, error)

	// close releases any parser state.
	close() error
}

// Reader decodes a search results stream into events.
//
// ┌──────────────────┐
// │ source io.Reader │  xml / json / json export lines
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐
// │    setParser     │  one result set at a time
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐
// │ Reader.Events()  │  sets concatenated, previews never merged
// └──────────────────┘
//
// A Reader is not safe for concurrent use. Its event sequence can be
// obtained once; Close releases the parser and closes the source when it is
// an io.Closer.
type Reader struct {
	source   io.Reader
	parser   setParser
	format   Format
	export   bool
	multiSet bool
	logger   *slog.Logger

	state    State
	setIndex int
	iterated bool

	// sawFinal is set once any set of this stream was known to be final.
	sawFinal bool

	// failed holds the first parse error; the reader refuses further work.
	failed error
}

// NewXMLReader returns a Reader over an XML results stream. Multiple
// <results> elements may follow each other, as on export streams.
func NewXMLReader(r io.Reader, opts ...Option) (*Reader, error) {
	o := buildOptions(opts)
	return newReader(r, FormatXML, o.exportFor(r), newXMLSets(r), o)
}

// NewJSONReader returns a Reader over a JSON results stream. Export
// provenance (see ExportStream and WithExport) selects the line-delimited
// export grammar; otherwise the first token picks between the pre-5.0 array
// and the 5.0 object forms.
func NewJSONReader(r io.Reader, opts ...Option) (*Reader, error) {
	o := buildOptions(opts)
	export := o.exportFor(r)

	var parser setParser
	if export {
		parser = newExportSets(r)
	} else {
		parser = newJSONSets(r)
	}

	return newReader(r, FormatJSON, export, parser, o)
}

func newReader(src io.Reader, format Format, export bool, parser setParser, o options) (*Reader, error) {
	r := &Reader{
		source:   src,
		parser:   parser,
		format:   format,
		export:   export,
		multiSet: o.multiSet,
		logger:   o.logger.With("format", format.String(), "export", export),
		state:    NotStarted,
		setIndex: -1,
	}

	if err := r.finishInitialization(); err != nil {
		_ = r.Close()
		return nil, err
	}

	return r, nil
}

// finishInitialization positions a standalone reader on its first usable
// set. Export streams skip leading preview sets so that a standalone reader
// only ever surfaces the final results.
func (r *Reader) finishInitialization() error {
	if r.multiSet {
		return nil
	}

	ok, err := r.advance()
	if err != nil || !ok || !r.export {
		return err
	}

	for r.currentIsPreview() {
		r.logger.Debug("skipping preview result set", "set", r.setIndex)

		ok, err := r.advance()
		if err != nil || !ok {
			return err
		}
	}

	return nil
}

// Format returns the wire format the reader decodes.
func (r *Reader) Format() Format {
	return r.format
}

// IsExportStream reports whether the reader treats its source as coming from
// an export endpoint.
func (r *Reader) IsExportStream() bool {
	return r.export
}

// State returns the reader's position in its stream.
func (r *Reader) State() State {
	return r.state
}

// SetIndex returns the zero-based index of the current set within the
// stream, counting skipped preview sets, or -1 before the first set.
func (r *Reader) SetIndex() int {
	return r.setIndex
}

// Fields returns the field names of the current set. JSON streams carry no
// field list and return ErrUnsupportedOperation.
func (r *Reader) Fields() ([]string, error) {
	if err := r.usable(); err != nil {
		return nil, err
	}
	return r.parser.fields()
}

// IsPreview reports whether the current set previews an unfinished search.
// It returns ErrUnsupportedOperation when the stream never emitted the flag
// for the current set; callers must not assume finality in that case.
func (r *Reader) IsPreview() (bool, error) {
	if err := r.usable(); err != nil {
		return false, err
	}
	return r.parser.preview()
}

// Events returns the reader's event sequence. Events of consecutive sets are
// concatenated, except that iteration stops at the end of a preview set.
// The sequence can be obtained once; later calls return an iterator failing
// with ErrAlreadyIterated.
func (r *Reader) Events() *EventIterator {
	if err := r.usable(); err != nil {
		return failedIterator(err)
	}
	if r.iterated {
		return failedIterator(ErrAlreadyIterated)
	}

	r.iterated = true
	return newEventIterator(r.nextConcatenated)
}

// All is Events adapted to range-over-func.
func (r *Reader) All() iter.Seq2[Event, error] {
	return r.Events().Seq()
}

// SetEvents returns a cursor over the remaining events of the current set.
// It never advances to another set.
func (r *Reader) SetEvents() *EventIterator {
	if err := r.usable(); err != nil {
		return failedIterator(err)
	}
	return newEventIterator(r.nextInCurrentSet)
}

// AdvanceToNextSet skips the rest of the current set and moves to the next
// one. It returns false when the stream holds no further set.
func (r *Reader) AdvanceToNextSet() (bool, error) {
	if err := r.usable(); err != nil {
		return false, err
	}
	if r.state == Exhausted {
		return false, nil
	}
	return r.advance()
}

// Close releases the parser and closes the source when it is an io.Closer.
// Close is idempotent.
func (r *Reader) Close() error {
	if r.state == Disposed {
		return nil
	}
	r.state = Disposed

	var errs []error
	if err := r.parser.close(); err != nil {
		errs = append(errs, err)
	}
	if c, ok := r.source.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	r.logger.Debug("results reader closed", "sets", r.setIndex+1)
	return errors.Join(errs...)
}

func (r *Reader) usable() error {
	if r.state == Disposed {
		return ErrDisposed
	}
	return r.failed
}

func (r *Reader) fail(err error) error {
	if r.failed == nil {
		r.failed = err
		r.logger.Debug("results reader failed", "set", r.setIndex, "error", err)
	}
	return err
}

// currentIsPreview treats a missing preview flag as final.
func (r *Reader) currentIsPreview() bool {
	preview, err := r.parser.preview()
	return err == nil && preview
}

func (r *Reader) currentIsFinal() bool {
	preview, err := r.parser.preview()
	return err == nil && !preview
}

// advance moves the parser to the next set and enforces that no preview set
// follows a final one. The current set is finished before its preview flag
// is read, since JSON objects and export rows may report it late.
func (r *Reader) advance() (bool, error) {
	if r.state == InSet || r.state == BetweenSets {
		if err := r.parser.finish(); err != nil {
			return false, r.fail(err)
		}
		if r.currentIsFinal() {
			r.sawFinal = true
		}
	}

	ok, err := r.parser.advance()
	if err != nil {
		return false, r.fail(err)
	}
	if !ok {
		r.state = Exhausted
		r.logger.Debug("results stream exhausted", "sets", r.setIndex+1)
		return false, nil
	}

	r.setIndex++
	r.state = InSet

	if r.sawFinal && r.currentIsPreview() {
		return false, r.fail(ErrInconsistentSets)
	}

	r.logger.Debug("result set opened", "set", r.setIndex)
	return true, nil
}

func (r *Reader) nextInSet() (Event, bool, error) {
	ev, ok, err := r.parser.next()
	if err != nil {
		return Event{}, false, r.fail(err)
	}
	if !ok {
		r.state = BetweenSets
		return Event{}, false, nil
	}
	return ev, true, nil
}

func (r *Reader) nextInCurrentSet() (Event, bool, error) {
	if err := r.usable(); err != nil {
		return Event{}, false, err
	}

	if r.state == NotStarted {
		ok, err := r.advance()
		if err != nil || !ok {
			return Event{}, false, err
		}
	}

	if r.state != InSet {
		return Event{}, false, nil
	}
	return r.nextInSet()
}

// nextConcatenated yields events across sets. A preview set ends the
// sequence: it is a snapshot that cannot be merged with what follows.
func (r *Reader) nextConcatenated() (Event, bool, error) {
	for {
		if err := r.usable(); err != nil {
			return Event{}, false, err
		}

		switch r.state {
		case NotStarted:
			ok, err := r.advance()
			if err != nil || !ok {
				return Event{}, false, err
			}

		case InSet:
			ev, ok, err := r.nextInSet()
			if err != nil || ok {
				return ev, ok, err
			}

		case BetweenSets:
			if r.currentIsPreview() {
				return Event{}, false, nil
			}
			ok, err := r.advance()
			if err != nil || !ok {
				return Event{}, false, err
			}

		default:
			return Event{}, false, nil
		}
	}
}
