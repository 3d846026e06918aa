package qrt

import (
	"encoding/binary"
	"time"

	"quickroute/internal/geo"
)

// route decodes a Route payload. The 8-byte header carries the
// attribute bits, the per-waypoint padding length and the segment
// count. Each segment is a uint32 waypoint count followed by packed
// waypoints whose fields are present according to the attribute bits,
// always in the order position, time, heart rate, altitude, padding.
//
// Distance and elapsed time are derived while decoding and restart
// from zero at every segment boundary.
func (d *decoder) route(data []byte, base int) (*Route, error) {
	if len(data) < 8 {
		return nil, &TruncatedRecordError{Tag: TagRoute, Offset: base, Need: 8, Have: len(data)}
	}
	attrs := binary.LittleEndian.Uint16(data[0:2])
	extraLen := int(binary.LittleEndian.Uint16(data[2:4]))
	segCount := int(binary.LittleEndian.Uint32(data[4:8]))
	pos := 8

	route := &Route{Attributes: attrs}
	for i := 0; i < segCount; i++ {
		if len(data)-pos < 4 {
			return nil, &TruncatedRecordError{Tag: TagRoute, Offset: base + pos, Need: 4, Have: len(data) - pos}
		}
		wpCount := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
		pos += 4

		var (
			seg       Segment
			prevCoord Coordinate
			prevDist  float64
			havePrev  bool
			current   time.Time
			first     time.Time
			haveTime  bool
			haveFirst bool
		)
		for j := 0; j < wpCount; j++ {
			var wp Waypoint

			if attrs&AttrPosition != 0 {
				if len(data)-pos < 8 {
					return nil, &TruncatedRecordError{Tag: TagRoute, Offset: base + pos, Need: 8, Have: len(data) - pos}
				}
				c := coordinateAt(data[pos : pos+8])
				pos += 8
				dist := 0.0
				if havePrev {
					dist = prevDist + geo.Haversine(prevCoord.Lat, prevCoord.Lon, c.Lat, c.Lon)
				}
				wp.Position = &c
				wp.Distance = &dist
				prevCoord, prevDist, havePrev = c, dist, true
			}

			if attrs&AttrTime != 0 {
				if len(data)-pos < 1 {
					return nil, &TruncatedRecordError{Tag: TagRoute, Offset: base + pos, Need: 1, Have: len(data) - pos}
				}
				fieldOff := base + pos
				timeType := data[pos]
				pos++
				if timeType == 0 {
					if len(data)-pos < 8 {
						return nil, &TruncatedRecordError{Tag: TagRoute, Offset: base + pos, Need: 8, Have: len(data) - pos}
					}
					current = timeFromTicks(binary.LittleEndian.Uint64(data[pos : pos+8]))
					pos += 8
					haveTime = true
				} else {
					if len(data)-pos < 2 {
						return nil, &TruncatedRecordError{Tag: TagRoute, Offset: base + pos, Need: 2, Have: len(data) - pos}
					}
					ms := binary.LittleEndian.Uint16(data[pos : pos+2])
					pos += 2
					if !haveTime {
						// A delta with no absolute timestamp before it
						// accumulates from the tick epoch.
						current = timeFromTicks(0)
						haveTime = true
						d.note(TagRoute, fieldOff, "time delta before any absolute timestamp")
					}
					current = current.Add(time.Duration(ms) * time.Millisecond)
				}
				if !haveFirst {
					first = current
					haveFirst = true
				}
				t := current
				elapsed := current.Sub(first).Seconds()
				wp.Time = &t
				wp.ElapsedSeconds = &elapsed
			}

			if attrs&AttrHeartRate != 0 {
				if len(data)-pos < 1 {
					return nil, &TruncatedRecordError{Tag: TagRoute, Offset: base + pos, Need: 1, Have: len(data) - pos}
				}
				hr := int(data[pos])
				pos++
				wp.HeartRate = &hr
			}

			if attrs&AttrAltitude != 0 {
				if len(data)-pos < 2 {
					return nil, &TruncatedRecordError{Tag: TagRoute, Offset: base + pos, Need: 2, Have: len(data) - pos}
				}
				alt := int(binary.LittleEndian.Uint16(data[pos : pos+2]))
				pos += 2
				wp.Altitude = &alt
			}

			if extraLen > 0 {
				if len(data)-pos < extraLen {
					return nil, &TruncatedRecordError{Tag: TagRoute, Offset: base + pos, Need: extraLen, Have: len(data) - pos}
				}
				pos += extraLen
			}

			seg.Waypoints = append(seg.Waypoints, wp)
		}
		route.Segments = append(route.Segments, seg)
	}
	return route, nil
}
