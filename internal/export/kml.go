package export

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"quickroute/internal/qrt"
)

// KML structures for XML marshalling.
// These follow the KML 2.2 specification: https://developers.google.com/kml/documentation/kmlreference

// KML is the root element of a KML document.
type KML struct {
	XMLName   xml.Name    `xml:"kml"`
	Namespace string      `xml:"xmlns,attr"`
	Document  KMLDocument `xml:"Document"`
}

// KMLDocument contains the document metadata and features.
type KMLDocument struct {
	Name        string         `xml:"name"`
	Description string         `xml:"description,omitempty"`
	Styles      []KMLStyle     `xml:"Style,omitempty"`
	Placemarks  []KMLPlacemark `xml:"Placemark"`
}

// KMLStyle defines the visual appearance of features.
type KMLStyle struct {
	ID        string        `xml:"id,attr"`
	LineStyle *KMLLineStyle `xml:"LineStyle,omitempty"`
	IconStyle *KMLIconStyle `xml:"IconStyle,omitempty"`
}

// KMLLineStyle sets line color and width. Color is aabbggrr hex.
type KMLLineStyle struct {
	Color string  `xml:"color"`
	Width float64 `xml:"width"`
}

// KMLIconStyle defines how icons are displayed.
type KMLIconStyle struct {
	Scale float64 `xml:"scale,omitempty"`
	Icon  KMLIcon `xml:"Icon"`
}

// KMLIcon specifies the icon image.
type KMLIcon struct {
	Href string `xml:"href"`
}

// KMLPlacemark represents a geographic feature with geometry and metadata.
type KMLPlacemark struct {
	Name        string         `xml:"name"`
	Description string         `xml:"description,omitempty"`
	StyleURL    string         `xml:"styleUrl,omitempty"`
	TimeStamp   *KMLTimeStamp  `xml:"TimeStamp,omitempty"`
	LineString  *KMLLineString `xml:"LineString,omitempty"`
	Point       *KMLPoint      `xml:"Point,omitempty"`
}

// KMLTimeStamp attaches a point in time to a placemark.
type KMLTimeStamp struct {
	When string `xml:"when"`
}

// KMLLineString represents a connected path.
type KMLLineString struct {
	Tessellate  int    `xml:"tessellate"`
	Coordinates string `xml:"coordinates"` // Space-separated lon,lat,altitude triples.
}

// KMLPoint represents a geographic location.
type KMLPoint struct {
	Coordinates string `xml:"coordinates"` // Format: lon,lat,altitude
}

// ToKML renders the document as a KML 2.2 file: a LineString per
// route segment and a Point placemark per lap marker.
func ToKML(doc *qrt.Document, name string) ([]byte, error) {
	k := buildKML(doc, name)
	data, err := xml.MarshalIndent(k, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal kml: %w", err)
	}
	return append([]byte(xml.Header), data...), nil
}

func buildKML(doc *qrt.Document, name string) KML {
	document := KMLDocument{
		Name: name,
		Styles: []KMLStyle{
			{
				ID:        "trackStyle",
				LineStyle: &KMLLineStyle{Color: "ff0000ff", Width: 3},
			},
			{
				ID: "lapStyle",
				IconStyle: &KMLIconStyle{
					Scale: 0.8,
					Icon: KMLIcon{
						Href: "http://maps.google.com/mapfiles/kml/shapes/placemark_circle.png",
					},
				},
			},
		},
	}

	for si, session := range doc.Sessions {
		label := sessionName(session, si, len(doc.Sessions))
		if label == "" {
			label = name
		}
		if session.Info != nil && document.Description == "" {
			document.Description = session.Info.Description
		}

		if session.Route != nil {
			for gi, seg := range session.Route.Segments {
				coords := segmentCoordinates(seg)
				if coords == "" {
					continue
				}
				pmName := label
				if len(session.Route.Segments) > 1 {
					pmName = fmt.Sprintf("%s (segment %d)", label, gi+1)
				}
				document.Placemarks = append(document.Placemarks, KMLPlacemark{
					Name:     pmName,
					StyleURL: "#trackStyle",
					LineString: &KMLLineString{
						Tessellate:  1,
						Coordinates: coords,
					},
				})
			}
		}

		for i, lap := range session.Laps {
			pos := lapPosition(session.Route, lap.Time)
			if pos == nil {
				continue
			}
			document.Placemarks = append(document.Placemarks, KMLPlacemark{
				Name:     lapLabel(session.Laps, i),
				StyleURL: "#lapStyle",
				TimeStamp: &KMLTimeStamp{
					When: lap.Time.UTC().Format(time.RFC3339),
				},
				Point: &KMLPoint{
					Coordinates: fmt.Sprintf("%.6f,%.6f,0", pos.Lon, pos.Lat),
				},
			})
		}
	}

	return KML{
		Namespace: "http://www.opengis.net/kml/2.2",
		Document:  document,
	}
}

// segmentCoordinates joins a segment's positions into the KML
// coordinate list format.
func segmentCoordinates(seg qrt.Segment) string {
	var b strings.Builder
	for i := range seg.Waypoints {
		wp := &seg.Waypoints[i]
		if wp.Position == nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		alt := 0
		if wp.Altitude != nil {
			alt = *wp.Altitude
		}
		fmt.Fprintf(&b, "%.6f,%.6f,%d", wp.Position.Lon, wp.Position.Lat, alt)
	}
	return b.String()
}
