// Package compress transparently decompresses result streams that were saved
// or served as gzip, zstd or lz4. The codec is detected from the stream's
// leading magic bytes, so callers never have to name it.
package compress

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec identifies a compression format.
type Codec int

const (
	None Codec = iota
	Gzip
	Zstd
	LZ4
)

func (c Codec) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return "none"
	}
}

// magic holds the frame headers of each codec.
var magic = []struct {
	codec  Codec
	prefix []byte
}{
	{Gzip, []byte{0x1f, 0x8b}},
	{Zstd, []byte{0x28, 0xb5, 0x2f, 0xfd}},
	{LZ4, []byte{0x04, 0x22, 0x4d, 0x18}},
}

// extensions maps file extensions to the codec they name.
var extensions = map[string]Codec{
	".gz":   Gzip,
	".gzip": Gzip,
	".zst":  Zstd,
	".zstd": Zstd,
	".lz4":  LZ4,
}

// Detect reports the codec whose magic bytes start head.
func Detect(head []byte) Codec {
	for _, m := range magic {
		if bytes.HasPrefix(head, m.prefix) {
			return m.codec
		}
	}
	return None
}

// TrimExt strips a trailing compression extension from name, so that
// "results.json.gz" becomes "results.json".
func TrimExt(name string) string {
	ext := filepath.Ext(name)
	if _, ok := extensions[strings.ToLower(ext)]; ok {
		return strings.TrimSuffix(name, ext)
	}
	return name
}

// NewReader returns a reader over the decompressed content of r. Input that
// does not start with a known frame header is passed through unchanged.
// Closing the returned reader closes r when it is an io.Closer, also when
// NewReader fails.
func NewReader(r io.Reader) (io.ReadCloser, Codec, error) {
	br := bufio.NewReader(r)

	head, err := br.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		closeSource(r)
		return nil, None, fmt.Errorf("reading stream header: %w", err)
	}

	rc := &readCloser{src: r}
	codec := Detect(head)

	switch codec {
	case Gzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			closeSource(r)
			return nil, codec, fmt.Errorf("opening gzip stream: %w", err)
		}
		rc.Reader = zr
		rc.closeDecoder = zr.Close

	case Zstd:
		zr, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			closeSource(r)
			return nil, codec, fmt.Errorf("opening zstd stream: %w", err)
		}
		rc.Reader = zr
		rc.closeDecoder = func() error {
			zr.Close()
			return nil
		}

	case LZ4:
		rc.Reader = lz4.NewReader(br)

	default:
		rc.Reader = br
	}

	return rc, codec, nil
}

type readCloser struct {
	io.Reader

	src          io.Reader
	closeDecoder func() error

	once sync.Once
	err  error
}

func (r *readCloser) Close() error {
	r.once.Do(func() {
		if r.closeDecoder != nil {
			r.err = r.closeDecoder()
		}
		if c, ok := r.src.(io.Closer); ok {
			r.err = errors.Join(r.err, c.Close())
		}
	})
	return r.err
}

func closeSource(r io.Reader) {
	if c, ok := r.(io.Closer); ok {
		_ = c.Close()
	}
}
