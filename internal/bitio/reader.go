// Package bitio implements the FAST wire transfer codec: stop-bit
// terminated variable-length integers, length-prefixed strings and byte
// vectors, and the growable presence-map bit register. Grounded on the
// teacher's cip/epath.go bit-packing style (explicit shift/mask
// manipulation over a byte-oriented wire format) generalized from CIP
// EPath segments to FAST's stop-bit base-128 framing.
package bitio

import (
	"unicode/utf8"

	"fastcodec/internal/fasterr"
)

// Reader consumes a FAST-encoded byte buffer left to right.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential decoding.
func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

// Pos returns the current byte offset, used for error reporting.
func (r *Reader) Pos() int { return r.pos }

// Remaining reports how many bytes are left unconsumed.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

// readStopBitSeq reads bytes until one has its high bit set (the stop
// bit), returning each byte's low 7 bits in the order read.
func (r *Reader) readStopBitSeq(field string) ([]byte, error) {
	start := r.pos
	var out []byte
	for {
		if r.pos >= len(r.buf) {
			return nil, fasterr.UnexpectedEoff(field, start)
		}
		b := r.buf[r.pos]
		r.pos++
		out = append(out, b&0x7F)
		if b&0x80 != 0 {
			return out, nil
		}
	}
}

// ReadUint reads an unsigned stop-bit-terminated base-128 integer.
func (r *Reader) ReadUint() (uint64, error) {
	raw, err := r.readStopBitSeq("uint")
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, b := range raw {
		v = v<<7 | uint64(b)
	}
	return v, nil
}

// ReadUintNullable reads a nullable unsigned integer: the wire value is
// value+1, with 0 denoting null. ok is false when the field is null.
func (r *Reader) ReadUintNullable() (v uint64, ok bool, err error) {
	raw, err := r.ReadUint()
	if err != nil {
		return 0, false, err
	}
	if raw == 0 {
		return 0, false, nil
	}
	return raw - 1, true, nil
}

// ReadInt reads a signed stop-bit-terminated base-128 integer. The sign
// bit is bit 6 of the first byte; the accumulator is sign-extended before
// the remaining 7-bit groups are folded in.
func (r *Reader) ReadInt() (int64, error) {
	raw, err := r.readStopBitSeq("int")
	if err != nil {
		return 0, err
	}
	var v int64
	if raw[0]&0x40 != 0 {
		v = -1
	}
	for _, b := range raw {
		v = v<<7 | int64(b)
	}
	return v, nil
}

// ReadIntNullable reads a nullable signed integer per spec.md §4.1: for
// the decoded raw value r, r>=0 maps to v=r-1 (null when r==0), r<0 maps
// to v=r unchanged.
func (r *Reader) ReadIntNullable() (v int64, ok bool, err error) {
	raw, err := r.ReadInt()
	if err != nil {
		return 0, false, err
	}
	if raw == 0 {
		return 0, false, nil
	}
	if raw > 0 {
		return raw - 1, true, nil
	}
	return raw, true, nil
}

// readAsciiRaw reads the stop-bit-terminated character sequence of an
// ASCII string field (mandatory or nullable), returning the raw
// (already-unmasked) character codes.
func (r *Reader) readAsciiRaw(field string) ([]byte, error) {
	return r.readStopBitSeq(field)
}

// ReadAsciiString reads a mandatory ASCII string.
func (r *Reader) ReadAsciiString() (string, error) {
	raw, err := r.readAsciiRaw("asciiString")
	if err != nil {
		return "", err
	}
	if len(raw) == 1 && raw[0] == 0 {
		return "", nil
	}
	return string(raw), nil
}

// ReadAsciiStringNullable reads an optional ASCII string. ok is false for null.
func (r *Reader) ReadAsciiStringNullable() (s string, ok bool, err error) {
	raw, err := r.readAsciiRaw("asciiString")
	if err != nil {
		return "", false, err
	}
	if len(raw) == 1 && raw[0] == 0 {
		return "", false, nil
	}
	if len(raw) == 2 && raw[0] == 0 && raw[1] == 0 {
		return "", true, nil
	}
	return string(raw), true, nil
}

// readRawBytes reads exactly n raw (non-stop-bit-encoded) bytes.
func (r *Reader) readRawBytes(n int, field string) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, fasterr.UnexpectedEoff(field, r.pos)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadUnicodeString reads a mandatory Unicode string: a nullable unsigned
// length prefix (must be present for a mandatory field) followed by that
// many raw UTF-8 bytes.
func (r *Reader) ReadUnicodeString() (string, error) {
	n, ok, err := r.ReadUintNullable()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fasterr.Dynamicf("D9", "unicodeString", r.pos, "mandatory unicode string length is null")
	}
	b, err := r.readRawBytes(int(n), "unicodeString")
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fasterr.Dynamicf("R2", "unicodeString", r.pos, "invalid UTF-8 in unicode string")
	}
	return string(b), nil
}

// ReadUnicodeStringNullable reads an optional Unicode string.
func (r *Reader) ReadUnicodeStringNullable() (s string, ok bool, err error) {
	n, present, err := r.ReadUintNullable()
	if err != nil {
		return "", false, err
	}
	if !present {
		return "", false, nil
	}
	b, err := r.readRawBytes(int(n), "unicodeString")
	if err != nil {
		return "", false, err
	}
	if !utf8.Valid(b) {
		return "", false, fasterr.Dynamicf("R2", "unicodeString", r.pos, "invalid UTF-8 in unicode string")
	}
	return string(b), true, nil
}

// ReadBytes reads a mandatory byte vector: a nullable length prefix
// followed by that many raw bytes.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, ok, err := r.ReadUintNullable()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fasterr.Dynamicf("D9", "bytes", r.pos, "mandatory byte vector length is null")
	}
	return r.readRawBytes(int(n), "bytes")
}

// ReadBytesNullable reads an optional byte vector.
func (r *Reader) ReadBytesNullable() (b []byte, ok bool, err error) {
	n, present, err := r.ReadUintNullable()
	if err != nil {
		return nil, false, err
	}
	if !present {
		return nil, false, nil
	}
	data, err := r.readRawBytes(int(n), "bytes")
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// ReadPMap reads a presence map: identical stop-bit framing to an unsigned
// integer, but the payload is a bit string rather than a magnitude.
// Running out of input before any byte is read is reported as Eof (the
// clean end-of-stream signal between messages); running out mid-sequence
// is UnexpectedEof.
func (r *Reader) ReadPMap() (*PMap, error) {
	if r.pos >= len(r.buf) {
		return nil, fasterr.Eoff(r.pos)
	}
	raw, err := r.readStopBitSeq("presenceMap")
	if err != nil {
		return nil, err
	}
	return newPMapFromRawBytes(raw), nil
}
