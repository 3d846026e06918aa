package export

import (
	"encoding/xml"
	"fmt"
	"time"

	"quickroute/internal/qrt"
)

// GPX structures for XML marshalling, following the GPX 1.1 schema.

type GPX struct {
	XMLName   xml.Name      `xml:"gpx"`
	Version   string        `xml:"version,attr"`
	Creator   string        `xml:"creator,attr"`
	Namespace string        `xml:"xmlns,attr"`
	Metadata  *GPXMetadata  `xml:"metadata,omitempty"`
	Waypoints []GPXWaypoint `xml:"wpt,omitempty"`
	Tracks    []GPXTrack    `xml:"trk,omitempty"`
}

type GPXMetadata struct {
	Name string     `xml:"name,omitempty"`
	Time *time.Time `xml:"time,omitempty"`
}

// GPXWaypoint marks a single point of interest; lap markers are
// exported this way.
type GPXWaypoint struct {
	Lat  float64    `xml:"lat,attr"`
	Lon  float64    `xml:"lon,attr"`
	Time *time.Time `xml:"time,omitempty"`
	Name string     `xml:"name,omitempty"`
}

type GPXTrack struct {
	Name        string            `xml:"name,omitempty"`
	Description string            `xml:"desc,omitempty"`
	Segments    []GPXTrackSegment `xml:"trkseg"`
}

type GPXTrackSegment struct {
	Points []GPXPoint `xml:"trkpt"`
}

type GPXPoint struct {
	Lat       float64    `xml:"lat,attr"`
	Lon       float64    `xml:"lon,attr"`
	Elevation *float64   `xml:"ele,omitempty"`
	Time      *time.Time `xml:"time,omitempty"`
}

// ToGPX renders the document as a GPX 1.1 file: one trk per session,
// one trkseg per route segment, lap markers as wpt entries.
func ToGPX(doc *qrt.Document, name string) ([]byte, error) {
	g := buildGPX(doc, name)
	data, err := xml.MarshalIndent(g, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal gpx: %w", err)
	}
	return append([]byte(xml.Header), data...), nil
}

func buildGPX(doc *qrt.Document, name string) GPX {
	g := GPX{
		Version:   "1.1",
		Creator:   "quickroute",
		Namespace: "http://www.topografix.com/GPX/1/1",
		Metadata: &GPXMetadata{
			Name: name,
			Time: firstTimestamp(doc),
		},
	}

	for si, session := range doc.Sessions {
		trk := GPXTrack{Name: sessionName(session, si, len(doc.Sessions))}
		if session.Info != nil {
			trk.Description = session.Info.Description
		}

		if session.Route != nil {
			for _, seg := range session.Route.Segments {
				var ts GPXTrackSegment
				for i := range seg.Waypoints {
					wp := &seg.Waypoints[i]
					if wp.Position == nil {
						continue
					}
					pt := GPXPoint{
						Lat:  wp.Position.Lat,
						Lon:  wp.Position.Lon,
						Time: wp.Time,
					}
					if wp.Altitude != nil {
						ele := float64(*wp.Altitude)
						pt.Elevation = &ele
					}
					ts.Points = append(ts.Points, pt)
				}
				trk.Segments = append(trk.Segments, ts)
			}
		}
		g.Tracks = append(g.Tracks, trk)

		for i, lap := range session.Laps {
			pos := lapPosition(session.Route, lap.Time)
			if pos == nil {
				continue
			}
			t := lap.Time
			g.Waypoints = append(g.Waypoints, GPXWaypoint{
				Lat:  pos.Lat,
				Lon:  pos.Lon,
				Time: &t,
				Name: lapLabel(session.Laps, i),
			})
		}
	}

	return g
}
