// Package qrt decodes the binary track data QuickRoute embeds in the
// JPEG images it exports. The embedded section is a stream of
// tagged records, some of which nest further records; Decode walks
// the stream and assembles a typed Document.
//
// Malformed input splits two ways: structural damage (truncated
// records, count mismatches) fails the decode with a typed error,
// while anything skippable (unknown tags, unexpected enum values,
// trailing bytes) is kept out of the way and reported as diagnostics
// on the Document.
package qrt

import (
	"encoding/binary"
	"fmt"
)

// Options adjust decode strictness.
type Options struct {
	// LenientSessionCount keeps the sessions that were found when the
	// count declared in the Sessions record disagrees, recording a
	// diagnostic instead of failing the decode.
	LenientSessionCount bool
}

// Decode parses an embedded QuickRoute data section. On structural
// errors no partial document is returned; inspect the error with
// errors.As against *TruncatedRecordError and *CountMismatchError.
func Decode(data []byte) (*Document, error) {
	return DecodeWithOptions(data, Options{})
}

// DecodeWithOptions is Decode with explicit strictness settings.
func DecodeWithOptions(data []byte, opts Options) (*Document, error) {
	d := &decoder{opts: opts}
	doc, err := d.document(data)
	if err != nil {
		return nil, err
	}
	doc.Diagnostics = d.diags
	return doc, nil
}

// decoder carries options and collected diagnostics through the
// recursive descent.
type decoder struct {
	opts  Options
	diags []Diagnostic
}

func (d *decoder) note(tag Tag, offset int, format string, args ...any) {
	d.diags = append(d.diags, Diagnostic{Tag: tag, Offset: offset, Message: fmt.Sprintf(format, args...)})
}

// document scans the top level of the data section.
func (d *decoder) document(data []byte) (*Document, error) {
	doc := &Document{}
	s := NewScanner(data, 0)
	for s.Scan() {
		rec := s.Record()
		if rec.Truncated() {
			return nil, &TruncatedRecordError{Tag: rec.Tag, Offset: rec.Offset, Need: rec.Length, Have: len(rec.Payload)}
		}
		base := rec.Offset + recordHeaderSize
		var err error
		switch rec.Tag {
		case TagVersion:
			doc.Version, err = decodeVersion(rec.Payload, base)
		case TagMapCornerPositions:
			doc.MapCorners, err = decodeCorners(rec.Payload, rec.Tag, base)
		case TagImageCornerPositions:
			doc.ImageCorners, err = decodeCorners(rec.Payload, rec.Tag, base)
		case TagMapLocationAndSizeInPixels:
			doc.MapLocation, err = decodeMapLocation(rec.Payload, base)
		case TagSessions:
			doc.Sessions, err = d.sessions(rec.Payload, base)
		default:
			d.note(rec.Tag, rec.Offset, "unhandled record (%d bytes)", rec.Length)
			doc.Unhandled = append(doc.Unhandled, UnhandledRecord{Tag: rec.Tag, Offset: rec.Offset, Length: rec.Length})
		}
		if err != nil {
			return nil, err
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}

// sessions decodes a Sessions payload: a uint32 session count, then
// nested records scanned for Session entries. Records of any other
// tag inside Sessions are skipped with a diagnostic. The declared
// count must match the number of sessions found unless
// LenientSessionCount is set.
func (d *decoder) sessions(data []byte, base int) ([]*Session, error) {
	if len(data) < 4 {
		return nil, &TruncatedRecordError{Tag: TagSessions, Offset: base, Need: 4, Have: len(data)}
	}
	declared := int(binary.LittleEndian.Uint32(data[0:4]))

	var sessions []*Session
	s := NewScanner(data[4:], base+4)
	for s.Scan() {
		rec := s.Record()
		if rec.Truncated() {
			return nil, &TruncatedRecordError{Tag: rec.Tag, Offset: rec.Offset, Need: rec.Length, Have: len(rec.Payload)}
		}
		if rec.Tag != TagSession {
			d.note(rec.Tag, rec.Offset, "skipping %s record inside Sessions", rec.Tag)
			continue
		}
		sess, err := d.session(rec.Payload, rec.Offset+recordHeaderSize)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}

	if len(sessions) != declared {
		if !d.opts.LenientSessionCount {
			return nil, &CountMismatchError{Tag: TagSessions, Offset: base, Declared: declared, Found: len(sessions)}
		}
		d.note(TagSessions, base, "declared %d sessions, found %d", declared, len(sessions))
	}
	return sessions, nil
}

// session decodes the nested records of one Session. A repeated tag
// overwrites the value decoded earlier.
func (d *decoder) session(data []byte, base int) (*Session, error) {
	sess := &Session{}
	s := NewScanner(data, base)
	for s.Scan() {
		rec := s.Record()
		if rec.Truncated() {
			return nil, &TruncatedRecordError{Tag: rec.Tag, Offset: rec.Offset, Need: rec.Length, Have: len(rec.Payload)}
		}
		payloadBase := rec.Offset + recordHeaderSize
		var err error
		switch rec.Tag {
		case TagRoute:
			sess.Route, err = d.route(rec.Payload, payloadBase)
		case TagLaps:
			sess.Laps, err = decodeLaps(rec.Payload, payloadBase)
		case TagHandles:
			sess.Handles, err = decodeHandles(rec.Payload, payloadBase)
		case TagProjectionOrigin:
			var origin Coordinate
			origin, err = decodeCoordinate(rec.Payload, rec.Tag, payloadBase)
			if err == nil {
				sess.ProjectionOrigin = &origin
			}
		case TagSessionInfo:
			sess.Info, err = d.sessionInfo(rec.Payload, payloadBase)
		default:
			d.note(rec.Tag, rec.Offset, "unhandled record (%d bytes)", rec.Length)
			sess.Unhandled = append(sess.Unhandled, UnhandledRecord{Tag: rec.Tag, Offset: rec.Offset, Length: rec.Length})
		}
		if err != nil {
			return nil, err
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return sess, nil
}
