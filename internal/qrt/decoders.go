package qrt

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Coordinates are stored as little-endian uint32 values in units of
// 1/3600000 of a degree, longitude first.
const coordScale = 3600000.0

// coordinateAt converts the 8 coordinate bytes at the start of data.
// Callers check bounds first.
func coordinateAt(data []byte) Coordinate {
	lon := binary.LittleEndian.Uint32(data[0:4])
	lat := binary.LittleEndian.Uint32(data[4:8])
	return Coordinate{
		Lat: float64(lat) / coordScale,
		Lon: float64(lon) / coordScale,
	}
}

// float64At converts the 8 bytes at the start of data to a float64.
// Callers check bounds first.
func float64At(data []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(data))
}

// decodeVersion decodes a 4-byte Version payload into a dotted
// string, e.g. "2.1.0.5".
func decodeVersion(data []byte, base int) (string, error) {
	if len(data) < 4 {
		return "", &TruncatedRecordError{Tag: TagVersion, Offset: base, Need: 4, Have: len(data)}
	}
	return fmt.Sprintf("%d.%d.%d.%d", data[0], data[1], data[2], data[3]), nil
}

// decodeCoordinate decodes a single 8-byte coordinate payload.
func decodeCoordinate(data []byte, tag Tag, base int) (Coordinate, error) {
	if len(data) < 8 {
		return Coordinate{}, &TruncatedRecordError{Tag: tag, Offset: base, Need: 8, Have: len(data)}
	}
	return coordinateAt(data), nil
}

// decodeCorners decodes a 32-byte payload of four coordinates in
// fixed order: south-west, north-west, north-east, south-east.
func decodeCorners(data []byte, tag Tag, base int) (*CornerSet, error) {
	if len(data) < 32 {
		return nil, &TruncatedRecordError{Tag: tag, Offset: base, Need: 32, Have: len(data)}
	}
	return &CornerSet{
		SouthWest: coordinateAt(data[0:8]),
		NorthWest: coordinateAt(data[8:16]),
		NorthEast: coordinateAt(data[16:24]),
		SouthEast: coordinateAt(data[24:32]),
	}, nil
}

// decodeMapLocation decodes an 8-byte payload of four little-endian
// uint16 values: x, y, width, height.
func decodeMapLocation(data []byte, base int) (*MapLocation, error) {
	if len(data) < 8 {
		return nil, &TruncatedRecordError{Tag: TagMapLocationAndSizeInPixels, Offset: base, Need: 8, Have: len(data)}
	}
	return &MapLocation{
		X:      binary.LittleEndian.Uint16(data[0:2]),
		Y:      binary.LittleEndian.Uint16(data[2:4]),
		Width:  binary.LittleEndian.Uint16(data[4:6]),
		Height: binary.LittleEndian.Uint16(data[6:8]),
	}, nil
}

// decodeLaps decodes a uint32 lap count followed by 9-byte entries:
// an 8-byte tick timestamp and a 1-byte type code.
func decodeLaps(data []byte, base int) ([]Lap, error) {
	if len(data) < 4 {
		return nil, &TruncatedRecordError{Tag: TagLaps, Offset: base, Need: 4, Have: len(data)}
	}
	count := int(binary.LittleEndian.Uint32(data[0:4]))
	need := 4 + count*9
	if len(data) < need {
		return nil, &TruncatedRecordError{Tag: TagLaps, Offset: base, Need: need, Have: len(data)}
	}
	laps := make([]Lap, 0, count)
	pos := 4
	for i := 0; i < count; i++ {
		laps = append(laps, Lap{
			Time: timeFromTicks(binary.LittleEndian.Uint64(data[pos : pos+8])),
			Type: LapType(data[pos+8]),
		})
		pos += 9
	}
	return laps, nil
}

// handleSize is the wire size of one handle: a 3x3 float64 matrix,
// a uint32 segment index with a float64 offset, an x/y pixel pair and
// a uint16 type code.
const handleSize = 9*8 + 4 + 8 + 2*8 + 2

// decodeHandles decodes a uint32 handle count followed by fixed-size
// handle entries.
func decodeHandles(data []byte, base int) ([]Handle, error) {
	if len(data) < 4 {
		return nil, &TruncatedRecordError{Tag: TagHandles, Offset: base, Need: 4, Have: len(data)}
	}
	count := int(binary.LittleEndian.Uint32(data[0:4]))
	need := 4 + count*handleSize
	if len(data) < need {
		return nil, &TruncatedRecordError{Tag: TagHandles, Offset: base, Need: need, Have: len(data)}
	}
	handles := make([]Handle, 0, count)
	pos := 4
	for i := 0; i < count; i++ {
		var h Handle
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				h.Matrix[r][c] = float64At(data[pos : pos+8])
				pos += 8
			}
		}
		h.Location.Segment = binary.LittleEndian.Uint32(data[pos : pos+4])
		h.Location.Offset = float64At(data[pos+4 : pos+12])
		h.Pixel.X = float64At(data[pos+12 : pos+20])
		h.Pixel.Y = float64At(data[pos+20 : pos+28])
		h.Type = binary.LittleEndian.Uint16(data[pos+28 : pos+30])
		pos += 30
		handles = append(handles, h)
	}
	return handles, nil
}

// readLenString reads a uint16 length prefix and that many bytes of
// text, returning the new position.
func readLenString(data []byte, pos, base int) (string, int, error) {
	if len(data)-pos < 2 {
		return "", 0, &TruncatedRecordError{Tag: TagSessionInfo, Offset: base + pos, Need: 2, Have: len(data) - pos}
	}
	n := int(binary.LittleEndian.Uint16(data[pos : pos+2]))
	pos += 2
	if len(data)-pos < n {
		return "", 0, &TruncatedRecordError{Tag: TagSessionInfo, Offset: base + pos, Need: n, Have: len(data) - pos}
	}
	return string(data[pos : pos+n]), pos + n, nil
}

// sessionInfo decodes a SessionInfo payload: length-prefixed name and
// club strings, a uint32 id, then a length-prefixed description.
// Trailing bytes are noted as a diagnostic, not an error.
func (d *decoder) sessionInfo(data []byte, base int) (*SessionInfo, error) {
	info := &SessionInfo{}
	pos := 0
	var err error
	if info.Name, pos, err = readLenString(data, pos, base); err != nil {
		return nil, err
	}
	if info.Club, pos, err = readLenString(data, pos, base); err != nil {
		return nil, err
	}
	if len(data)-pos < 4 {
		return nil, &TruncatedRecordError{Tag: TagSessionInfo, Offset: base + pos, Need: 4, Have: len(data) - pos}
	}
	info.ID = binary.LittleEndian.Uint32(data[pos : pos+4])
	pos += 4
	if info.Description, pos, err = readLenString(data, pos, base); err != nil {
		return nil, err
	}
	if rest := len(data) - pos; rest > 0 {
		d.note(TagSessionInfo, base+pos, "%d trailing bytes after description", rest)
	}
	return info, nil
}
