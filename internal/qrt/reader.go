package qrt

import "encoding/binary"

// recordHeaderSize is the tag byte plus the uint32 payload length.
const recordHeaderSize = 5

// Record is one tag/length/value unit from the stream. Payload may be
// shorter than Length when the buffer ends early; consumers treat that
// as a truncated record.
type Record struct {
	Tag     Tag
	Offset  int // absolute offset of the record header
	Length  int // declared payload length
	Payload []byte
}

// Truncated reports whether the declared length exceeds the bytes that
// were actually available.
func (r Record) Truncated() bool { return len(r.Payload) < r.Length }

// Scanner walks a buffer as a flat sequence of records: one tag byte, a
// little-endian uint32 payload length, then the payload. The scanner
// does not validate declared lengths against the remaining buffer; a
// short final payload is handed to the caller as-is. Nested payloads
// are scanned by creating a new Scanner over the payload slice.
type Scanner struct {
	buf  []byte
	base int
	pos  int
	rec  Record
	err  error
}

// NewScanner returns a scanner over buf. base is the absolute offset of
// buf within the buffer given to Decode, so nested scans report
// meaningful positions in errors and diagnostics.
func NewScanner(buf []byte, base int) *Scanner {
	return &Scanner{buf: buf, base: base}
}

// Scan advances to the next record. It returns false at the end of the
// buffer or when a record header itself is cut off; Err tells the two
// apart.
func (s *Scanner) Scan() bool {
	if s.err != nil || s.pos >= len(s.buf) {
		return false
	}
	start := s.pos
	if len(s.buf)-start < recordHeaderSize {
		s.err = &TruncatedRecordError{
			Tag:    Tag(s.buf[start]),
			Offset: s.base + start,
			Need:   recordHeaderSize,
			Have:   len(s.buf) - start,
		}
		return false
	}
	tag := Tag(s.buf[start])
	length := int(binary.LittleEndian.Uint32(s.buf[start+1 : start+5]))
	s.pos += recordHeaderSize
	end := s.pos + length
	if end > len(s.buf) {
		end = len(s.buf)
	}
	s.rec = Record{
		Tag:     tag,
		Offset:  s.base + start,
		Length:  length,
		Payload: s.buf[s.pos:end],
	}
	s.pos += length
	return true
}

// Record returns the record read by the last call to Scan.
func (s *Scanner) Record() Record { return s.rec }

// Err returns the structural error that stopped the scan, if any.
func (s *Scanner) Err() error { return s.err }
