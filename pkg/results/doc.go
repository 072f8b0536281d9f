// Package results decodes search result streams into events.
//
// Three wire encodings are supported behind one Reader: the <results> XML
// stream, the pre-5.0 JSON array and the 5.0 JSON object, plus the 5.0
// line-delimited export rows. A stream is read incrementally; only the
// current record is held in memory.
//
// A Reader concatenates consecutive result sets into one event sequence but
// stops at the end of a preview set. Readers over export streams skip
// leading preview sets unless embedded in a MultiReader, which surfaces every
// set separately.
package results
