// Package source reads project files as text, tolerating the legacy
// encodings still found in older Python trees.
package source

import (
	"bytes"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

//go:generate go run go.uber.org/mock/mockgen@v0.5.2 -source=reader.go -destination=mockreader.gen.go -package=source

var (
	// ErrBinary is returned for content that looks like binary data.
	ErrBinary = errors.New("binary content")
	// ErrTooLarge is returned when a file exceeds the reader's byte limit.
	ErrTooLarge = errors.New("file too large")
)

// Reader returns the decoded text of a file.
type Reader interface {
	ReadText(path string) (string, error)
}

// fallbacks are tried in order when the content is not valid UTF-8. The
// first decode free of replacement characters wins; Latin-1 always
// succeeds and closes the chain.
var fallbacks = []encoding.Encoding{
	charmap.Windows1251,
	charmap.KOI8R,
	charmap.CodePage866,
}

// sniffLen bounds the prefix inspected for NUL bytes.
const sniffLen = 4096

var codingCookie = regexp.MustCompile(`^[ \t\f]*#.*?coding[:=][ \t]*([-\w.]+)`)

// DecodingReader reads files from disk and decodes them to UTF-8.
type DecodingReader struct {
	// MaxBytes rejects files larger than this with ErrTooLarge. Zero
	// disables the check.
	MaxBytes int64
}

// NewReader returns a DecodingReader with the given byte limit.
func NewReader(maxBytes int64) *DecodingReader {
	return &DecodingReader{MaxBytes: maxBytes}
}

func (r *DecodingReader) ReadText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	src := io.Reader(f)
	if r.MaxBytes > 0 {
		info, err := f.Stat()
		if err != nil {
			return "", err
		}
		if info.Size() > r.MaxBytes {
			return "", errors.Wrapf(ErrTooLarge, "%s is %d bytes", path, info.Size())
		}
		src = io.LimitReader(f, r.MaxBytes+1)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", path)
	}
	if r.MaxBytes > 0 && int64(len(data)) > r.MaxBytes {
		return "", errors.Wrapf(ErrTooLarge, "%s grew past %d bytes", path, r.MaxBytes)
	}
	return Decode(data, strings.HasSuffix(strings.ToLower(path), ".py"))
}

// Decode converts raw file bytes to a UTF-8 string. A UTF-8 byte order
// mark is dropped. With honorCookie set, a PEP 263 coding declaration on
// one of the first two lines selects the decoder.
func Decode(data []byte, honorCookie bool) (string, error) {
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return "", ErrBinary
	}

	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	if honorCookie {
		if enc := declaredEncoding(data); enc != nil {
			if out, err := enc.NewDecoder().Bytes(data); err == nil {
				return string(out), nil
			}
		}
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	for _, enc := range fallbacks {
		out, err := enc.NewDecoder().Bytes(data)
		if err == nil && !bytes.ContainsRune(out, utf8.RuneError) {
			return string(out), nil
		}
	}

	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", errors.Wrap(err, "decoding as latin-1")
	}
	return string(out), nil
}

// declaredEncoding returns the non-UTF-8 encoding named by a coding
// cookie, or nil.
func declaredEncoding(data []byte) encoding.Encoding {
	lines := bytes.SplitN(data, []byte("\n"), 3)
	if len(lines) > 2 {
		lines = lines[:2]
	}
	for _, line := range lines {
		m := codingCookie.FindSubmatch(line)
		if m == nil {
			continue
		}
		enc, err := htmlindex.Get(string(m[1]))
		if err != nil {
			return nil
		}
		if name, _ := htmlindex.Name(enc); name == "utf-8" {
			return nil
		}
		return enc
	}
	return nil
}
