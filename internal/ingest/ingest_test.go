package ingest

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"quickroute/internal/qrt"
	"quickroute/internal/storage"
)

func u16le(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func u32le(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func u64le(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func record(tag qrt.Tag, payload []byte) []byte {
	b := []byte{byte(tag)}
	b = append(b, u32le(uint32(len(payload)))...)
	return append(b, payload...)
}

// trackPayload builds a single-session route with two timed waypoints.
func trackPayload() []byte {
	base := time.Date(2026, 5, 3, 9, 0, 0, 0, time.UTC)
	ticks := uint64(base.Unix()+62135596800) * 10_000_000

	routeData := u16le(qrt.AttrPosition | qrt.AttrTime)
	routeData = append(routeData, u16le(0)...)
	routeData = append(routeData, u32le(1)...)
	routeData = append(routeData, u32le(2)...)
	routeData = append(routeData, u32le(18*3600000)...)
	routeData = append(routeData, u32le(59*3600000)...)
	routeData = append(routeData, 0)
	routeData = append(routeData, u64le(ticks)...)
	routeData = append(routeData, u32le(18*3600000+3600)...)
	routeData = append(routeData, u32le(59*3600000+3600)...)
	routeData = append(routeData, 1)
	routeData = append(routeData, u16le(45000)...)

	info := u16le(4)
	info = append(info, "Kari"...)
	info = append(info, u16le(10)...)
	info = append(info, "Stora Tuna"...)
	info = append(info, u32le(3)...)
	info = append(info, u16le(0)...)

	session := record(qrt.TagRoute, routeData)
	session = append(session, record(qrt.TagSessionInfo, info)...)
	sessions := append(u32le(1), record(qrt.TagSession, session)...)

	buf := record(qrt.TagVersion, []byte{2, 3, 0, 0})
	buf = append(buf, record(qrt.TagSessions, sessions)...)
	return buf
}

// wrapJPEG frames a track payload as a JPEG with the marker APP0
// segment the recorder writes.
func wrapJPEG(payload []byte) []byte {
	body := append([]byte("QuickRoute"), payload...)
	buf := []byte{0xFF, 0xD8}
	buf = append(buf, 0xFF, 0xE0)
	sz := make([]byte, 2)
	binary.BigEndian.PutUint16(sz, uint16(len(body)+2))
	buf = append(buf, sz...)
	buf = append(buf, body...)
	buf = append(buf, 0xFF, 0xDA)
	return buf
}

func newTestConsumer(t *testing.T) (*Consumer, storage.Store) {
	t.Helper()

	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "ingest_test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return NewConsumer(DefaultConfig(), store, nil, nil), store
}

func TestProcessInlineData(t *testing.T) {
	c, store := newTestConsumer(t)

	res := c.process(context.Background(), Envelope{
		Source: "jukola-leg2.jpg",
		Data:   wrapJPEG(trackPayload()),
	})

	if res.Error != "" {
		t.Fatalf("process error = %q, want none", res.Error)
	}
	if res.TrackID == 0 {
		t.Fatal("TrackID = 0, want assigned ID")
	}
	if res.Summary == nil || res.Summary.WaypointCount != 2 {
		t.Fatalf("Summary = %+v, want 2 waypoints", res.Summary)
	}
	if res.Summary.Name != "Kari" || res.Summary.Club != "Stora Tuna" {
		t.Errorf("Summary identity = %q/%q, want Kari/Stora Tuna", res.Summary.Name, res.Summary.Club)
	}

	track, err := store.GetByID(context.Background(), res.TrackID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if track == nil {
		t.Fatal("GetByID = nil, want archived track")
	}
	if track.Source != "jukola-leg2.jpg" {
		t.Errorf("Source = %q, want jukola-leg2.jpg", track.Source)
	}
	if track.WaypointCount != 2 {
		t.Errorf("WaypointCount = %d, want 2", track.WaypointCount)
	}
}

func TestProcessFromPath(t *testing.T) {
	c, store := newTestConsumer(t)

	path := filepath.Join(t.TempDir(), "relay.jpg")
	if err := os.WriteFile(path, wrapJPEG(trackPayload()), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	res := c.process(context.Background(), Envelope{Source: "relay.jpg", Path: path})

	if res.Error != "" {
		t.Fatalf("process error = %q, want none", res.Error)
	}
	track, err := store.GetByID(context.Background(), res.TrackID)
	if err != nil || track == nil {
		t.Fatalf("GetByID = %v, %v, want archived track", track, err)
	}
}

func TestProcessMissingFile(t *testing.T) {
	c, _ := newTestConsumer(t)

	res := c.process(context.Background(), Envelope{
		Source: "gone.jpg",
		Path:   filepath.Join(t.TempDir(), "gone.jpg"),
	})

	if res.Error == "" {
		t.Fatal("process error empty, want read failure")
	}
	if res.TrackID != 0 {
		t.Errorf("TrackID = %d, want 0", res.TrackID)
	}
}

func TestProcessEmptyEnvelope(t *testing.T) {
	c, _ := newTestConsumer(t)

	res := c.process(context.Background(), Envelope{Source: "empty.jpg"})

	if !strings.Contains(res.Error, "neither data nor path") {
		t.Errorf("process error = %q, want missing input message", res.Error)
	}
}

func TestProcessNoEmbeddedTrack(t *testing.T) {
	c, _ := newTestConsumer(t)

	// A JPEG whose only APP0 segment is plain JFIF.
	buf := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x07, 'J', 'F', 'I', 'F', 0x00}

	res := c.process(context.Background(), Envelope{Source: "plain.jpg", Data: buf})

	if !strings.Contains(res.Error, "QuickRoute") {
		t.Errorf("process error = %q, want missing segment message", res.Error)
	}
}

func TestProcessCorruptPayload(t *testing.T) {
	c, _ := newTestConsumer(t)

	// Declared record length runs past the payload end.
	bad := []byte{0x01, 0xFF, 0xFF, 0x00, 0x00, 0x02}

	res := c.process(context.Background(), Envelope{Source: "bad.jpg", Data: wrapJPEG(bad)})

	if res.Error == "" {
		t.Fatal("process error empty, want decode failure")
	}
	if res.TrackID != 0 {
		t.Errorf("TrackID = %d, want 0", res.TrackID)
	}
}
