package bitio

import "fastcodec/internal/fasterr"

// Writer stages FAST-encoded output for one segment. The codec engine
// owns one Writer per nested segment (outer message, group, sequence
// item, dynamic template-ref) and splices the presence-map bytes onto
// the body only when the segment closes (spec.md §4.6, §9 "Encoder staging").
type Writer struct {
	buf []byte
}

// NewWriter returns an empty staging buffer, pre-sized per spec.md §9's
// 1-4KB guidance for typical market-data messages.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 1024)}
}

// Bytes returns the accumulated body bytes written so far.
func (w *Writer) Bytes() []byte { return w.buf }

// Reset clears the buffer for reuse.
func (w *Writer) Reset() { w.buf = w.buf[:0] }

func (w *Writer) writeStopBitSeq(groups []byte) {
	for i, g := range groups {
		b := g & 0x7F
		if i == len(groups)-1 {
			b |= 0x80
		}
		w.buf = append(w.buf, b)
	}
}

// splitBase128Unsigned decomposes an unsigned magnitude into big-endian 7-bit
// groups, always emitting at least one group.
func splitBase128Unsigned(v uint64) []byte {
	if v == 0 {
		return []byte{0}
	}
	var groups []byte
	for v > 0 {
		groups = append([]byte{byte(v & 0x7F)}, groups...)
		v >>= 7
	}
	return groups
}

// splitBase128Signed decomposes a signed value into big-endian 7-bit
// groups using two's-complement sign extension, with bit 6 of the first
// group carrying the sign, matching ReadInt's inverse.
func splitBase128Signed(v int64) []byte {
	// Determine minimal groups such that sign-extending the top group's
	// bit 6 reproduces v.
	groups := []byte{byte(v & 0x7F)}
	v >>= 7
	for {
		top := groups[0]
		topSignBit := top&0x40 != 0
		if (v == 0 && !topSignBit) || (v == -1 && topSignBit) {
			break
		}
		groups = append([]byte{byte(v & 0x7F)}, groups...)
		v >>= 7
	}
	return groups
}

// WriteUint writes an unsigned stop-bit-terminated integer.
func (w *Writer) WriteUint(v uint64) {
	w.writeStopBitSeq(splitBase128Unsigned(v))
}

// WriteUintNullable writes a nullable unsigned integer: present values
// are shifted by +1; ok=false writes the null sentinel 0.
func (w *Writer) WriteUintNullable(v uint64, ok bool) {
	if !ok {
		w.WriteUint(0)
		return
	}
	w.WriteUint(v + 1)
}

// WriteInt writes a signed stop-bit-terminated integer.
func (w *Writer) WriteInt(v int64) {
	w.writeStopBitSeq(splitBase128Signed(v))
}

// WriteIntNullable writes a nullable signed integer per spec.md §4.1.
func (w *Writer) WriteIntNullable(v int64, ok bool) {
	if !ok {
		w.WriteInt(0)
		return
	}
	if v >= 0 {
		w.WriteInt(v + 1)
		return
	}
	w.WriteInt(v)
}

// WriteAsciiString writes a mandatory ASCII string.
func (w *Writer) WriteAsciiString(s string) error {
	if s == "" {
		w.buf = append(w.buf, 0x80)
		return nil
	}
	return w.writeAsciiChars(s)
}

// WriteAsciiStringNullable writes an optional ASCII string.
func (w *Writer) WriteAsciiStringNullable(s string, ok bool) error {
	if !ok {
		w.buf = append(w.buf, 0x80)
		return nil
	}
	if s == "" {
		w.buf = append(w.buf, 0x00, 0x80)
		return nil
	}
	return w.writeAsciiChars(s)
}

func (w *Writer) writeAsciiChars(s string) error {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c > 0x7F {
			return fasterr.Runtimef("", "non-ASCII byte 0x%02x at index %d in ascii-string field", c, i)
		}
		if i == len(s)-1 {
			w.buf = append(w.buf, c|0x80)
		} else {
			w.buf = append(w.buf, c&0x7F)
		}
	}
	return nil
}

// WriteUnicodeString writes a mandatory Unicode string as a length prefix
// followed by raw UTF-8 bytes.
func (w *Writer) WriteUnicodeString(s string) {
	w.WriteUintNullable(uint64(len(s)), true)
	w.buf = append(w.buf, s...)
}

// WriteUnicodeStringNullable writes an optional Unicode string.
func (w *Writer) WriteUnicodeStringNullable(s string, ok bool) {
	if !ok {
		w.WriteUintNullable(0, false)
		return
	}
	w.WriteUintNullable(uint64(len(s)), true)
	w.buf = append(w.buf, s...)
}

// WriteBytes writes a mandatory byte vector.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteUintNullable(uint64(len(b)), true)
	w.buf = append(w.buf, b...)
}

// WriteBytesNullable writes an optional byte vector.
func (w *Writer) WriteBytesNullable(b []byte, ok bool) {
	if !ok {
		w.WriteUintNullable(0, false)
		return
	}
	w.WriteUintNullable(uint64(len(b)), true)
	w.buf = append(w.buf, b...)
}

// WritePMap appends a presence map's packed, trimmed wire bytes.
func (w *Writer) WritePMap(p *PMap) {
	w.buf = append(w.buf, p.ToBytes()...)
}

// Append concatenates raw bytes directly, used to splice a closed child
// segment's framed bytes (pmap + body) into the parent buffer.
func (w *Writer) Append(b []byte) {
	w.buf = append(w.buf, b...)
}
