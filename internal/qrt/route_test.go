package qrt

import (
	"errors"
	"math"
	"testing"
	"time"
)

func decodeRouteForTest(t *testing.T, payload []byte) (*Route, []Diagnostic) {
	t.Helper()
	d := &decoder{}
	r, err := d.route(payload, 0)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	return r, d.diags
}

func TestRouteDistanceIdenticalCoordinates(t *testing.T) {
	// Three samples at the same spot never accumulate distance.
	p := u16le(AttrPosition)
	p = append(p, u16le(0)...)
	p = append(p, u32le(1)...)
	p = append(p, u32le(3)...)
	for i := 0; i < 3; i++ {
		p = append(p, rawCoord(54000000, 198000000)...)
	}

	r, _ := decodeRouteForTest(t, p)
	wps := r.Segments[0].Waypoints
	if len(wps) != 3 {
		t.Fatalf("len(Waypoints) = %d, want 3", len(wps))
	}
	for i, wp := range wps {
		if wp.Distance == nil || *wp.Distance != 0 {
			t.Errorf("Waypoints[%d].Distance = %v, want 0", i, wp.Distance)
		}
	}
}

func TestRouteDistanceOneDegreeLatitude(t *testing.T) {
	// Two samples one degree of latitude apart on the equator are
	// about 111.2 km apart.
	p := u16le(AttrPosition)
	p = append(p, u16le(0)...)
	p = append(p, u32le(1)...)
	p = append(p, u32le(2)...)
	p = append(p, rawCoord(0, 0)...)
	p = append(p, rawCoord(0, 3600000)...)

	r, _ := decodeRouteForTest(t, p)
	wps := r.Segments[0].Waypoints
	if wps[0].Distance == nil || *wps[0].Distance != 0 {
		t.Errorf("Waypoints[0].Distance = %v, want 0", wps[0].Distance)
	}
	if wps[1].Distance == nil || math.Abs(*wps[1].Distance-111195) > 50 {
		t.Errorf("Waypoints[1].Distance = %v, want ~111195 (±50)", wps[1].Distance)
	}
}

func TestRouteTimeDeltas(t *testing.T) {
	// An absolute timestamp followed by two millisecond deltas.
	p := u16le(AttrTime)
	p = append(p, u16le(0)...)
	p = append(p, u32le(1)...)
	p = append(p, u32le(3)...)
	p = append(p, 0)
	p = append(p, u64le(unixEpochTicks)...)
	p = append(p, 1)
	p = append(p, u16le(1500)...)
	p = append(p, 1)
	p = append(p, u16le(2500)...)

	r, diags := decodeRouteForTest(t, p)
	if len(diags) != 0 {
		t.Fatalf("diagnostics = %+v, want none", diags)
	}
	wps := r.Segments[0].Waypoints

	wantTimes := []time.Time{
		time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1970, 1, 1, 0, 0, 1, 500_000_000, time.UTC),
		time.Date(1970, 1, 1, 0, 0, 4, 0, time.UTC),
	}
	wantElapsed := []float64{0, 1.5, 4}
	for i := range wps {
		if wps[i].Time == nil || !wps[i].Time.Equal(wantTimes[i]) {
			t.Errorf("Waypoints[%d].Time = %v, want %v", i, wps[i].Time, wantTimes[i])
		}
		if wps[i].ElapsedSeconds == nil || math.Abs(*wps[i].ElapsedSeconds-wantElapsed[i]) > 1e-9 {
			t.Errorf("Waypoints[%d].ElapsedSeconds = %v, want %v", i, wps[i].ElapsedSeconds, wantElapsed[i])
		}
	}
}

func TestRouteElapsedResetsPerSegment(t *testing.T) {
	// Segment 2 starts an hour later; its first waypoint still has
	// elapsed time zero.
	p := u16le(AttrTime)
	p = append(p, u16le(0)...)
	p = append(p, u32le(2)...)

	p = append(p, u32le(2)...)
	p = append(p, 0)
	p = append(p, u64le(unixEpochTicks)...)
	p = append(p, 1)
	p = append(p, u16le(1000)...)

	p = append(p, u32le(1)...)
	p = append(p, 0)
	p = append(p, u64le(unixEpochTicks+3600*10_000_000)...)

	r, _ := decodeRouteForTest(t, p)
	if len(r.Segments) != 2 {
		t.Fatalf("len(Segments) = %d, want 2", len(r.Segments))
	}
	wp := r.Segments[1].Waypoints[0]
	if wp.Time == nil || !wp.Time.Equal(time.Date(1970, 1, 1, 1, 0, 0, 0, time.UTC)) {
		t.Errorf("segment 2 Time = %v, want 1970-01-01T01:00:00Z", wp.Time)
	}
	if wp.ElapsedSeconds == nil || *wp.ElapsedSeconds != 0 {
		t.Errorf("segment 2 ElapsedSeconds = %v, want 0", wp.ElapsedSeconds)
	}
}

func TestRouteDeltaBeforeAbsolute(t *testing.T) {
	// A delta with no absolute timestamp before it accumulates from
	// the tick epoch and is reported as a diagnostic, not an error.
	p := u16le(AttrTime)
	p = append(p, u16le(0)...)
	p = append(p, u32le(1)...)
	p = append(p, u32le(1)...)
	p = append(p, 1)
	p = append(p, u16le(250)...)

	r, diags := decodeRouteForTest(t, p)
	wp := r.Segments[0].Waypoints[0]
	want := time.Date(1, 1, 1, 0, 0, 0, 250_000_000, time.UTC)
	if wp.Time == nil || !wp.Time.Equal(want) {
		t.Errorf("Time = %v, want %v", wp.Time, want)
	}
	if len(diags) != 1 || diags[0].Tag != TagRoute {
		t.Errorf("diagnostics = %+v, want one Route note", diags)
	}
}

func TestRouteAllAttributes(t *testing.T) {
	p := u16le(AttrPosition | AttrTime | AttrHeartRate | AttrAltitude)
	p = append(p, u16le(0)...)
	p = append(p, u32le(1)...)
	p = append(p, u32le(1)...)
	p = append(p, rawCoord(54000000, 198000000)...)
	p = append(p, 0)
	p = append(p, u64le(unixEpochTicks)...)
	p = append(p, 153)
	p = append(p, u16le(412)...)

	r, _ := decodeRouteForTest(t, p)
	wp := r.Segments[0].Waypoints[0]
	if wp.Position == nil || math.Abs(wp.Position.Lat-55.0) > 1e-9 || math.Abs(wp.Position.Lon-15.0) > 1e-9 {
		t.Errorf("Position = %+v, want lat 55 lon 15", wp.Position)
	}
	if wp.HeartRate == nil || *wp.HeartRate != 153 {
		t.Errorf("HeartRate = %v, want 153", wp.HeartRate)
	}
	if wp.Altitude == nil || *wp.Altitude != 412 {
		t.Errorf("Altitude = %v, want 412", wp.Altitude)
	}
}

func TestRoutePaddingSkipped(t *testing.T) {
	// Three padding bytes per waypoint sit after the decoded fields.
	p := u16le(AttrHeartRate)
	p = append(p, u16le(3)...)
	p = append(p, u32le(1)...)
	p = append(p, u32le(2)...)
	p = append(p, 120, 0xDE, 0xAD, 0xBE)
	p = append(p, 130, 0xDE, 0xAD, 0xBE)

	r, _ := decodeRouteForTest(t, p)
	wps := r.Segments[0].Waypoints
	if len(wps) != 2 {
		t.Fatalf("len(Waypoints) = %d, want 2", len(wps))
	}
	if *wps[0].HeartRate != 120 || *wps[1].HeartRate != 130 {
		t.Errorf("heart rates = %d, %d, want 120, 130", *wps[0].HeartRate, *wps[1].HeartRate)
	}
}

func TestRouteTruncatedWaypoints(t *testing.T) {
	// Two waypoints declared, bytes for one present.
	p := u16le(AttrPosition)
	p = append(p, u16le(0)...)
	p = append(p, u32le(1)...)
	p = append(p, u32le(2)...)
	p = append(p, rawCoord(0, 0)...)

	d := &decoder{}
	_, err := d.route(p, 0)
	var tr *TruncatedRecordError
	if !errors.As(err, &tr) {
		t.Fatalf("route error = %v, want TruncatedRecordError", err)
	}
	if tr.Tag != TagRoute {
		t.Errorf("truncation tag = %s, want Route", tr.Tag)
	}
}

func TestRouteEmptySegment(t *testing.T) {
	p := u16le(AttrPosition)
	p = append(p, u16le(0)...)
	p = append(p, u32le(1)...)
	p = append(p, u32le(0)...)

	r, _ := decodeRouteForTest(t, p)
	if len(r.Segments) != 1 || len(r.Segments[0].Waypoints) != 0 {
		t.Errorf("Segments = %+v, want one empty segment", r.Segments)
	}
}
