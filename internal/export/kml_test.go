package export

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"quickroute/internal/qrt"
)

func TestToKML(t *testing.T) {
	base := time.Date(2026, 4, 12, 10, 30, 0, 0, time.UTC)
	data, err := ToKML(exportTestDocument(base), "Night race")
	if err != nil {
		t.Fatalf("ToKML() error: %v", err)
	}

	var k KML
	if err := xml.Unmarshal(data, &k); err != nil {
		t.Fatalf("output does not parse as XML: %v", err)
	}

	if k.Namespace != "http://www.opengis.net/kml/2.2" {
		t.Errorf("namespace = %q", k.Namespace)
	}
	if k.Document.Name != "Night race" {
		t.Errorf("document name = %q, want Night race", k.Document.Name)
	}
	if len(k.Document.Styles) != 2 {
		t.Errorf("got %d styles, want 2", len(k.Document.Styles))
	}

	// Two segment lines plus three lap markers.
	if len(k.Document.Placemarks) != 5 {
		t.Fatalf("got %d placemarks, want 5", len(k.Document.Placemarks))
	}

	line := k.Document.Placemarks[0]
	if line.LineString == nil {
		t.Fatal("first placemark has no LineString")
	}
	if line.Name != "Mats Holmberg (OK Linné) (segment 1)" {
		t.Errorf("line name = %q", line.Name)
	}
	if line.LineString.Tessellate != 1 {
		t.Errorf("tessellate = %d, want 1", line.LineString.Tessellate)
	}
	coords := strings.Fields(line.LineString.Coordinates)
	if len(coords) != 3 {
		t.Fatalf("got %d coordinate triples, want 3", len(coords))
	}
	if coords[0] != "18.000000,59.000000,30" {
		t.Errorf("first coordinate = %q, want 18.000000,59.000000,30", coords[0])
	}
	// Missing altitude renders as zero.
	if coords[1] != "18.002000,59.001000,0" {
		t.Errorf("second coordinate = %q, want 18.002000,59.001000,0", coords[1])
	}
}

func TestToKMLLapMarkers(t *testing.T) {
	base := time.Date(2026, 4, 12, 10, 30, 0, 0, time.UTC)
	data, err := ToKML(exportTestDocument(base), "Night race")
	if err != nil {
		t.Fatalf("ToKML() error: %v", err)
	}

	var k KML
	if err := xml.Unmarshal(data, &k); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	var laps []KMLPlacemark
	for _, pm := range k.Document.Placemarks {
		if pm.Point != nil {
			laps = append(laps, pm)
		}
	}
	if len(laps) != 3 {
		t.Fatalf("got %d lap placemarks, want 3", len(laps))
	}

	if laps[0].Name != "Start" || laps[2].Name != "Finish" {
		t.Errorf("lap names = %q, %q, %q", laps[0].Name, laps[1].Name, laps[2].Name)
	}
	if laps[0].TimeStamp == nil || laps[0].TimeStamp.When != "2026-04-12T10:30:00Z" {
		t.Errorf("start timestamp = %+v", laps[0].TimeStamp)
	}
	if laps[0].Point.Coordinates != "18.000000,59.000000,0" {
		t.Errorf("start coordinates = %q", laps[0].Point.Coordinates)
	}
	if laps[0].StyleURL != "#lapStyle" {
		t.Errorf("lap style = %q, want #lapStyle", laps[0].StyleURL)
	}
}

func TestSegmentCoordinatesSkipsUnpositioned(t *testing.T) {
	seg := qrt.Segment{
		Waypoints: []qrt.Waypoint{
			{Position: coord(55.0, 13.0)},
			{}, // no position
			{Position: coord(55.001, 13.001), Altitude: altPtr(12)},
		},
	}

	got := segmentCoordinates(seg)
	want := "13.000000,55.000000,0 13.001000,55.001000,12"
	if got != want {
		t.Errorf("segmentCoordinates() = %q, want %q", got, want)
	}
}

func TestToKMLEmptySegmentSkipped(t *testing.T) {
	doc := &qrt.Document{
		Sessions: []*qrt.Session{
			{
				Route: &qrt.Route{
					Segments: []qrt.Segment{
						{}, // nothing recorded
						{Waypoints: []qrt.Waypoint{{Position: coord(59, 18)}, {Position: coord(59.1, 18.1)}}},
					},
				},
			},
		},
	}

	data, err := ToKML(doc, "sparse")
	if err != nil {
		t.Fatalf("ToKML() error: %v", err)
	}

	var k KML
	if err := xml.Unmarshal(data, &k); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(k.Document.Placemarks) != 1 {
		t.Errorf("got %d placemarks, want 1", len(k.Document.Placemarks))
	}
	// The segment keeps its original number even when earlier
	// segments were empty.
	if k.Document.Placemarks[0].Name != "sparse (segment 2)" {
		t.Errorf("placemark name = %q, want sparse (segment 2)", k.Document.Placemarks[0].Name)
	}
}
