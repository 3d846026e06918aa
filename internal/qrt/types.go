package qrt

import (
	"encoding/json"
	"strconv"
	"time"
)

// Coordinate is a geographic position in degrees. The wire encoding is
// two little-endian uint32 values (longitude first), each 1/3,600,000
// of a degree.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CornerSet holds the four calibration corners of a map or image.
type CornerSet struct {
	SouthWest Coordinate `json:"sw"`
	NorthWest Coordinate `json:"nw"`
	NorthEast Coordinate `json:"ne"`
	SouthEast Coordinate `json:"se"`
}

// MapLocation is the map's placement inside the exported image, in pixels.
type MapLocation struct {
	X      uint16 `json:"x"`
	Y      uint16 `json:"y"`
	Width  uint16 `json:"width"`
	Height uint16 `json:"height"`
}

// Waypoint is one recorded sample along a route segment. Field presence
// follows the route's attribute bits, so it is uniform across a route.
type Waypoint struct {
	Position *Coordinate `json:"position,omitempty"`
	// Distance is the cumulative haversine distance in meters from the
	// first waypoint of the segment. Present whenever Position is.
	Distance *float64   `json:"distance,omitempty"`
	Time     *time.Time `json:"time,omitempty"`
	// ElapsedSeconds counts from the first timestamp of the segment.
	// Present whenever Time is.
	ElapsedSeconds *float64 `json:"elapsed_seconds,omitempty"`
	HeartRate      *int     `json:"heart_rate,omitempty"`
	Altitude       *int     `json:"altitude,omitempty"`
}

// Segment is a contiguous run of waypoints between recording pauses.
type Segment struct {
	Waypoints []Waypoint `json:"waypoints"`
}

// Route is the recorded track: segments of waypoints plus the attribute
// bits that applied to every waypoint in them.
type Route struct {
	Attributes uint16    `json:"attributes"`
	Segments   []Segment `json:"segments"`
}

// LapType classifies a lap marker.
type LapType int

// Documented lap types. Codes outside this set are preserved as raw
// numbers rather than rejected.
const (
	LapStart LapType = 0
	LapLap   LapType = 1
	LapStop  LapType = 2
)

// String returns the symbolic name, or the raw code in digits for
// values outside the documented set.
func (t LapType) String() string {
	switch t {
	case LapStart:
		return "start"
	case LapLap:
		return "lap"
	case LapStop:
		return "stop"
	}
	return strconv.Itoa(int(t))
}

// MarshalJSON emits the symbolic name for known types and the raw
// number for unknown ones.
func (t LapType) MarshalJSON() ([]byte, error) {
	switch t {
	case LapStart, LapLap, LapStop:
		return json.Marshal(t.String())
	}
	return json.Marshal(int(t))
}

// Lap is a lap marker with its timestamp.
type Lap struct {
	Time time.Time `json:"time"`
	Type LapType   `json:"type"`
}

// ParameterizedLocation points to a position along the route as a
// segment index plus an offset within that segment.
type ParameterizedLocation struct {
	Segment uint32  `json:"segment"`
	Offset  float64 `json:"offset"`
}

// PixelPoint is a sub-pixel location in image space.
type PixelPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Handle is a calibration control point tying route space to image
// space. The matrix is row-major. It is carried as opaque data; no
// geometric interpretation happens here.
type Handle struct {
	Matrix   [3][3]float64         `json:"matrix"`
	Location ParameterizedLocation `json:"location"`
	Pixel    PixelPoint            `json:"pixel"`
	Type     uint16                `json:"type"`
}

// SessionInfo is free-form metadata attached to a session.
type SessionInfo struct {
	Name        string `json:"name"`
	Club        string `json:"club"`
	ID          uint32 `json:"id"`
	Description string `json:"description"`
}

// UnhandledRecord marks a record that produced no decoded value:
// either its tag is outside the documented table, or no structural
// decoder exists for it where it appeared. The payload is skippable
// because length is self-describing; the value stays null.
type UnhandledRecord struct {
	Tag    Tag `json:"tag"`
	Offset int `json:"offset"`
	Length int `json:"length"`
}

// Session is one recording session. When a tag repeats inside a
// session, the last record wins.
type Session struct {
	Route            *Route            `json:"route,omitempty"`
	Laps             []Lap             `json:"laps,omitempty"`
	Handles          []Handle          `json:"handles,omitempty"`
	ProjectionOrigin *Coordinate       `json:"projection_origin,omitempty"`
	Info             *SessionInfo      `json:"session_info,omitempty"`
	Unhandled        []UnhandledRecord `json:"unhandled,omitempty"`
}

// Document is the fully decoded content of an embedded data section,
// assembled once per Decode call and not mutated afterwards.
type Document struct {
	Version      string            `json:"version,omitempty"`
	MapCorners   *CornerSet        `json:"map_corner_positions,omitempty"`
	ImageCorners *CornerSet        `json:"image_corner_positions,omitempty"`
	MapLocation  *MapLocation      `json:"map_location_and_size,omitempty"`
	Sessions     []*Session        `json:"sessions,omitempty"`
	Unhandled    []UnhandledRecord `json:"unhandled,omitempty"`
	Diagnostics  []Diagnostic      `json:"diagnostics,omitempty"`
}
