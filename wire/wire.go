// Package wire implements the bridge framing: every value on the socket is a
// big-endian uint32 byte count followed by that many UTF-8 bytes. There is no
// envelope; message boundaries follow from the sequence of strings each
// command reads and writes.
package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"
)

// DefaultMaxStringBytes caps a single string when no limit is configured.
const DefaultMaxStringBytes = 16 << 20

var (
	// ErrTooLong is returned when a length prefix exceeds the reader's limit.
	ErrTooLong = errors.New("wire: string exceeds size limit")
	// ErrInvalidUTF8 is returned for payloads that are not valid UTF-8.
	ErrInvalidUTF8 = errors.New("wire: invalid UTF-8")
)

// Reader decodes length-prefixed strings.
type Reader struct {
	r   *bufio.Reader
	max int
}

// NewReader returns a Reader limited to maxBytes per string.
// maxBytes <= 0 selects DefaultMaxStringBytes.
func NewReader(r io.Reader, maxBytes int) *Reader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxStringBytes
	}
	return &Reader{r: bufio.NewReader(r), max: maxBytes}
}

// ReadString reads one string. A stream that ends mid-string yields
// io.ErrUnexpectedEOF; one that ends before the prefix yields io.EOF.
func (r *Reader) ReadString() (string, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r.r, prefix[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint32(prefix[:])
	if uint64(n) > uint64(r.max) {
		return "", fmt.Errorf("%w: %d > %d", ErrTooLong, n, r.max)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", ErrInvalidUTF8
	}
	return string(buf), nil
}

// ReadInt reads a string holding a non-negative decimal count no larger than limit.
func (r *Reader) ReadInt(limit int) (int, error) {
	s, err := r.ReadString()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("wire: bad count %q: %w", s, err)
	}
	if n < 0 || n > limit {
		return 0, fmt.Errorf("wire: count %d out of range [0, %d]", n, limit)
	}
	return n, nil
}

// Writer encodes length-prefixed strings. Output is buffered until Flush.
type Writer struct {
	w   *bufio.Writer
	max int
}

// NewWriter returns a buffered Writer limited to DefaultMaxStringBytes per string.
func NewWriter(w io.Writer) *Writer {
	return NewLimitedWriter(w, 0)
}

// NewLimitedWriter returns a buffered Writer that refuses strings a Reader
// with the same maxBytes would reject. maxBytes <= 0 selects DefaultMaxStringBytes.
func NewLimitedWriter(w io.Writer, maxBytes int) *Writer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxStringBytes
	}
	return &Writer{w: bufio.NewWriter(w), max: maxBytes}
}

// Check reports whether s can be written: ErrInvalidUTF8 or ErrTooLong
// when it cannot. Nothing is written.
func (w *Writer) Check(s string) error {
	if !utf8.ValidString(s) {
		return ErrInvalidUTF8
	}
	if len(s) > w.max {
		return fmt.Errorf("%w: %d > %d", ErrTooLong, len(s), w.max)
	}
	return nil
}

// WriteString writes one string.
func (w *Writer) WriteString(s string) error {
	if err := w.Check(s); err != nil {
		return err
	}
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(s)))
	if _, err := w.w.Write(prefix[:]); err != nil {
		return err
	}
	_, err := w.w.WriteString(s)
	return err
}

// WriteInt writes n as a decimal string.
func (w *Writer) WriteInt(n int) error {
	return w.WriteString(strconv.Itoa(n))
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
