// Package export renders decoded track documents as GPX 1.1 and
// KML 2.2 for use in mapping applications.
package export

import (
	"fmt"
	"time"

	"quickroute/internal/qrt"
)

// sessionName labels a session for export, preferring the recorded
// runner name.
func sessionName(s *qrt.Session, index, total int) string {
	if s.Info != nil && s.Info.Name != "" {
		if s.Info.Club != "" {
			return s.Info.Name + " (" + s.Info.Club + ")"
		}
		return s.Info.Name
	}
	if total > 1 {
		return fmt.Sprintf("Session %d", index+1)
	}
	return ""
}

// lapLabel names a lap marker by its type. Intermediate laps are
// numbered in order.
func lapLabel(laps []qrt.Lap, i int) string {
	switch laps[i].Type {
	case qrt.LapStart:
		return "Start"
	case qrt.LapStop:
		return "Finish"
	}
	n := 0
	for j := 0; j <= i; j++ {
		if laps[j].Type == qrt.LapLap {
			n++
		}
	}
	return fmt.Sprintf("Lap %d", n)
}

// lapPosition finds the route position recorded closest in time to a
// lap marker. Returns nil when the route has no timed positions.
func lapPosition(route *qrt.Route, t time.Time) *qrt.Coordinate {
	if route == nil {
		return nil
	}
	var best *qrt.Coordinate
	var bestDiff time.Duration
	for _, seg := range route.Segments {
		for i := range seg.Waypoints {
			wp := &seg.Waypoints[i]
			if wp.Position == nil || wp.Time == nil {
				continue
			}
			diff := wp.Time.Sub(t)
			if diff < 0 {
				diff = -diff
			}
			if best == nil || diff < bestDiff {
				best, bestDiff = wp.Position, diff
			}
		}
	}
	return best
}

// firstTimestamp returns the earliest waypoint timestamp in the
// document, or nil when nothing carries time.
func firstTimestamp(doc *qrt.Document) *time.Time {
	var first *time.Time
	for _, s := range doc.Sessions {
		if s.Route == nil {
			continue
		}
		for _, seg := range s.Route.Segments {
			for i := range seg.Waypoints {
				wp := &seg.Waypoints[i]
				if wp.Time == nil {
					continue
				}
				if first == nil || wp.Time.Before(*first) {
					first = wp.Time
				}
			}
		}
	}
	return first
}
