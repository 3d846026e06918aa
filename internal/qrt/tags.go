package qrt

import (
	"encoding/json"
	"fmt"
)

// Tag identifies a record type in the embedded data stream.
type Tag uint8

// Record tags. Sessions, Session and Route payloads nest further
// tagged records using the same framing.
const (
	TagVersion                    Tag = 1
	TagMapCornerPositions         Tag = 2
	TagImageCornerPositions       Tag = 3
	TagMapLocationAndSizeInPixels Tag = 4
	TagSessions                   Tag = 5
	TagSession                    Tag = 6
	TagRoute                      Tag = 7
	TagHandles                    Tag = 8
	TagProjectionOrigin           Tag = 9
	TagLaps                       Tag = 10
	TagSessionInfo                Tag = 11
	TagMapReadingInfo             Tag = 12
)

var tagNames = map[Tag]string{
	TagVersion:                    "Version",
	TagMapCornerPositions:         "MapCornerPositions",
	TagImageCornerPositions:       "ImageCornerPositions",
	TagMapLocationAndSizeInPixels: "MapLocationAndSizeInPixels",
	TagSessions:                   "Sessions",
	TagSession:                    "Session",
	TagRoute:                      "Route",
	TagHandles:                    "Handles",
	TagProjectionOrigin:           "ProjectionOrigin",
	TagLaps:                       "Laps",
	TagSessionInfo:                "SessionInfo",
	TagMapReadingInfo:             "MapReadingInfo",
}

// String returns the record name for known tags, or "Unknown(n)".
func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", uint8(t))
}

// Known reports whether the tag is part of the documented tag table.
func (t Tag) Known() bool {
	_, ok := tagNames[t]
	return ok
}

// MarshalJSON emits the record name.
func (t Tag) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// Route attribute bits. Each bit enables one waypoint field for every
// waypoint of the route.
const (
	AttrPosition  = 1 << 0
	AttrTime      = 1 << 1
	AttrHeartRate = 1 << 2
	AttrAltitude  = 1 << 3
)
