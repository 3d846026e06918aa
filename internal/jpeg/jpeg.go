// Package jpeg pulls application segments out of a JPEG marker stream.
// It reads just enough of the container to find embedded metadata; it
// never touches image data.
package jpeg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const (
	markerPrefix = 0xFF
	markerSOI    = 0xD8
	markerApp0   = 0xE0
	markerApp15  = 0xEF
)

// qrMagic prefixes the APP0 body that carries embedded track data.
var qrMagic = []byte("QuickRoute")

// ErrNoQuickRoutePart reports a JPEG stream without an embedded
// QuickRoute segment.
var ErrNoQuickRoutePart = errors.New("jpeg: no QuickRoute APP0 segment")

// AppSegment is the body of one APPn application segment.
type AppSegment struct {
	Index int // n in APPn, 0 through 15
	Data  []byte
}

// ScanAppSegments reads markers from the start of a JPEG stream and
// collects APPn segment bodies. The scan ends at the first marker that
// is neither SOI nor APPn, which is where image data begins, or when
// the stream runs out. A segment cut off by the end of the stream is
// returned with the bytes that were present.
func ScanAppSegments(r io.Reader) ([]AppSegment, error) {
	var segs []AppSegment
	var hdr [2]byte
	for {
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return segs, nil
			}
			return segs, err
		}
		if hdr[0] != markerPrefix {
			// Out of sync with the marker stream.
			return segs, nil
		}
		if hdr[1] == markerSOI {
			continue
		}
		if hdr[1] < markerApp0 || hdr[1] > markerApp15 {
			return segs, nil
		}

		var sz [2]byte
		if _, err := io.ReadFull(r, sz[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return segs, nil
			}
			return segs, err
		}
		// The declared size includes the two size bytes themselves.
		size := int(binary.BigEndian.Uint16(sz[:])) - 2
		if size < 0 {
			return segs, nil
		}
		body := make([]byte, size)
		n, err := io.ReadFull(r, body)
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				segs = append(segs, AppSegment{Index: int(hdr[1] - markerApp0), Data: body[:n]})
				return segs, nil
			}
			return segs, err
		}
		segs = append(segs, AppSegment{Index: int(hdr[1] - markerApp0), Data: body})
	}
}

// ExtractPayload returns the embedded QuickRoute data from a JPEG
// stream: the body of the first APP0 segment starting with the
// "QuickRoute" magic, magic stripped. It returns ErrNoQuickRoutePart
// when no such segment exists.
func ExtractPayload(r io.Reader) ([]byte, error) {
	segs, err := ScanAppSegments(r)
	if err != nil {
		return nil, err
	}
	for _, seg := range segs {
		if seg.Index == 0 && bytes.HasPrefix(seg.Data, qrMagic) {
			return seg.Data[len(qrMagic):], nil
		}
	}
	return nil, ErrNoQuickRoutePart
}
