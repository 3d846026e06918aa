package qrt

import (
	"errors"
	"math"
	"testing"
)

func TestCoordinateScaling(t *testing.T) {
	tests := []struct {
		name     string
		lon, lat uint32
		wantLon  float64
		wantLat  float64
	}{
		{"Scaled", 10_000_000, 20_000_000, 2.7778, 5.5556},
		{"Origin", 0, 0, 0, 0},
		{"One degree", 3_600_000, 3_600_000, 1, 1},
		{"Stockholm-ish", 64_800_029, 213_120_011, 18.000008, 59.200003},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := coordinateAt(rawCoord(tt.lon, tt.lat))
			if math.Abs(c.Lon-tt.wantLon) > 1e-4 {
				t.Errorf("Lon = %f, want %f", c.Lon, tt.wantLon)
			}
			if math.Abs(c.Lat-tt.wantLat) > 1e-4 {
				t.Errorf("Lat = %f, want %f", c.Lat, tt.wantLat)
			}
		})
	}
}

func TestDecodeLaps(t *testing.T) {
	payload := u32le(3)
	payload = append(payload, u64le(unixEpochTicks)...)
	payload = append(payload, 0)
	payload = append(payload, u64le(unixEpochTicks+600*10_000_000)...)
	payload = append(payload, 1)
	payload = append(payload, u64le(unixEpochTicks+1200*10_000_000)...)
	payload = append(payload, 7)

	laps, err := decodeLaps(payload, 0)
	if err != nil {
		t.Fatalf("decodeLaps: %v", err)
	}
	if len(laps) != 3 {
		t.Fatalf("len(laps) = %d, want 3", len(laps))
	}
	if laps[0].Type != LapStart || laps[0].Type.String() != "start" {
		t.Errorf("laps[0].Type = %v, want start", laps[0].Type)
	}
	if laps[1].Type != LapLap {
		t.Errorf("laps[1].Type = %v, want lap", laps[1].Type)
	}
	// Codes outside the documented set keep their raw value.
	if laps[2].Type != LapType(7) || laps[2].Type.String() != "7" {
		t.Errorf("laps[2].Type = %v, want raw 7", laps[2].Type)
	}
	if got := laps[1].Time.Sub(laps[0].Time).Seconds(); got != 600 {
		t.Errorf("lap spacing = %v s, want 600", got)
	}
}

func TestDecodeLapsTruncated(t *testing.T) {
	payload := u32le(2)
	payload = append(payload, u64le(0)...)
	payload = append(payload, 0)

	_, err := decodeLaps(payload, 40)
	var tr *TruncatedRecordError
	if !errors.As(err, &tr) {
		t.Fatalf("decodeLaps error = %v, want TruncatedRecordError", err)
	}
	if tr.Tag != TagLaps || tr.Offset != 40 {
		t.Errorf("truncation = %+v, want Laps at offset 40", tr)
	}
}

func TestDecodeHandles(t *testing.T) {
	payload := u32le(1)
	for i := 0; i < 9; i++ {
		payload = append(payload, u64le(math.Float64bits(float64(i+1)))...)
	}
	payload = append(payload, u32le(2)...)
	payload = append(payload, u64le(math.Float64bits(0.5))...)
	payload = append(payload, u64le(math.Float64bits(320.25))...)
	payload = append(payload, u64le(math.Float64bits(240.75))...)
	payload = append(payload, u16le(1)...)

	handles, err := decodeHandles(payload, 0)
	if err != nil {
		t.Fatalf("decodeHandles: %v", err)
	}
	if len(handles) != 1 {
		t.Fatalf("len(handles) = %d, want 1", len(handles))
	}
	h := handles[0]
	// Matrix cells fill row-major.
	if h.Matrix[0][0] != 1 || h.Matrix[1][1] != 5 || h.Matrix[2][2] != 9 {
		t.Errorf("Matrix = %v, want 1..9 row-major", h.Matrix)
	}
	if h.Location.Segment != 2 || h.Location.Offset != 0.5 {
		t.Errorf("Location = %+v, want segment 2 offset 0.5", h.Location)
	}
	if h.Pixel.X != 320.25 || h.Pixel.Y != 240.75 {
		t.Errorf("Pixel = %+v, want 320.25/240.75", h.Pixel)
	}
	if h.Type != 1 {
		t.Errorf("Type = %d, want 1", h.Type)
	}
}

func TestDecodeHandlesTruncated(t *testing.T) {
	payload := u32le(2)
	payload = append(payload, make([]byte, handleSize)...)

	_, err := decodeHandles(payload, 0)
	var tr *TruncatedRecordError
	if !errors.As(err, &tr) {
		t.Fatalf("decodeHandles error = %v, want TruncatedRecordError", err)
	}
	if tr.Need != 4+2*handleSize {
		t.Errorf("Need = %d, want %d", tr.Need, 4+2*handleSize)
	}
}

func TestDecodeMapLocation(t *testing.T) {
	payload := append(append(u16le(12), u16le(34)...), append(u16le(800), u16le(600)...)...)

	loc, err := decodeMapLocation(payload, 0)
	if err != nil {
		t.Fatalf("decodeMapLocation: %v", err)
	}
	want := MapLocation{X: 12, Y: 34, Width: 800, Height: 600}
	if *loc != want {
		t.Errorf("MapLocation = %+v, want %+v", *loc, want)
	}
}

func TestDecodeSessionInfo(t *testing.T) {
	info, err := (&decoder{}).sessionInfo(sessionInfoPayload("Mats", "OK Linné", 77, "WOC middle"), 0)
	if err != nil {
		t.Fatalf("sessionInfo: %v", err)
	}
	if info.Name != "Mats" || info.Club != "OK Linné" || info.ID != 77 || info.Description != "WOC middle" {
		t.Errorf("info = %+v", info)
	}
}

func TestDecodeSessionInfoTrailingBytes(t *testing.T) {
	payload := append(sessionInfoPayload("a", "b", 1, "c"), 0xFF, 0xFE)

	d := &decoder{}
	info, err := d.sessionInfo(payload, 100)
	if err != nil {
		t.Fatalf("sessionInfo: %v", err)
	}
	if info.Name != "a" || info.Description != "c" {
		t.Errorf("info = %+v", info)
	}
	if len(d.diags) != 1 {
		t.Fatalf("diags = %+v, want one trailing-bytes note", d.diags)
	}
	if d.diags[0].Tag != TagSessionInfo {
		t.Errorf("diag tag = %s, want SessionInfo", d.diags[0].Tag)
	}
}

func TestDecodeSessionInfoTruncated(t *testing.T) {
	// Club length prefix promises more bytes than remain.
	payload := u16le(1)
	payload = append(payload, 'x')
	payload = append(payload, u16le(50)...)
	payload = append(payload, "short"...)

	_, err := (&decoder{}).sessionInfo(payload, 0)
	var tr *TruncatedRecordError
	if !errors.As(err, &tr) {
		t.Fatalf("sessionInfo error = %v, want TruncatedRecordError", err)
	}
}

func TestDecodeVersionTruncated(t *testing.T) {
	_, err := decodeVersion([]byte{2, 1}, 5)
	var tr *TruncatedRecordError
	if !errors.As(err, &tr) {
		t.Fatalf("decodeVersion error = %v, want TruncatedRecordError", err)
	}
	if tr.Offset != 5 || tr.Need != 4 || tr.Have != 2 {
		t.Errorf("truncation = %+v, want offset 5 need 4 have 2", tr)
	}
}
