// Package extractor derives aggregate track data from decoded
// documents. This package is database-agnostic and can be used with
// any storage backend.
package extractor

import (
	"time"

	"quickroute/internal/qrt"
)

// Bounds is the geographic bounding box of every recorded position.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// TrackSummary contains the aggregate values derived from one decoded
// document. Pointer fields are nil when the underlying route carried
// no samples for them.
type TrackSummary struct {
	Version        string     `json:"version,omitempty"`
	Name           string     `json:"name,omitempty"`
	Club           string     `json:"club,omitempty"`
	Description    string     `json:"description,omitempty"`
	SessionCount   int        `json:"session_count"`
	SegmentCount   int        `json:"segment_count"`
	WaypointCount  int        `json:"waypoint_count"`
	LapCount       int        `json:"lap_count"`
	StartTime      *time.Time `json:"start_time,omitempty"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	DurationSecs   float64    `json:"duration_seconds,omitempty"`
	DistanceMeters float64    `json:"distance_meters,omitempty"`
	Bounds         *Bounds    `json:"bounds,omitempty"`
	MaxHeartRate   int        `json:"max_heart_rate,omitempty"`
	AvgHeartRate   int        `json:"avg_heart_rate,omitempty"`
	MinAltitude    *int       `json:"min_altitude,omitempty"`
	MaxAltitude    *int       `json:"max_altitude,omitempty"`
}

// WaypointRow is one route sample flattened for columnar storage.
// Session, Segment and Index locate the sample within the document.
type WaypointRow struct {
	Session   int
	Segment   int
	Index     int
	Time      *time.Time
	Elapsed   *float64
	Lat       *float64
	Lon       *float64
	Distance  *float64
	HeartRate *int
	Altitude  *int
}

// Summarize walks every session of a decoded document and aggregates
// totals, time range, distance, bounds and pulse statistics. Duration
// is moving time: the sum of each segment's final elapsed value.
func Summarize(doc *qrt.Document) TrackSummary {
	sum := TrackSummary{
		Version:      doc.Version,
		SessionCount: len(doc.Sessions),
	}

	var hrTotal, hrCount int
	for _, sess := range doc.Sessions {
		if sess.Info != nil && sum.Name == "" && sum.Club == "" && sum.Description == "" {
			sum.Name = sess.Info.Name
			sum.Club = sess.Info.Club
			sum.Description = sess.Info.Description
		}
		sum.LapCount += len(sess.Laps)
		if sess.Route == nil {
			continue
		}
		sum.SegmentCount += len(sess.Route.Segments)
		for _, seg := range sess.Route.Segments {
			sum.WaypointCount += len(seg.Waypoints)
			for _, wp := range seg.Waypoints {
				if wp.Time != nil {
					if sum.StartTime == nil || wp.Time.Before(*sum.StartTime) {
						t := *wp.Time
						sum.StartTime = &t
					}
					if sum.EndTime == nil || wp.Time.After(*sum.EndTime) {
						t := *wp.Time
						sum.EndTime = &t
					}
				}
				if wp.Position != nil {
					if sum.Bounds == nil {
						sum.Bounds = &Bounds{
							MinLat: wp.Position.Lat, MaxLat: wp.Position.Lat,
							MinLon: wp.Position.Lon, MaxLon: wp.Position.Lon,
						}
					} else {
						b := sum.Bounds
						if wp.Position.Lat < b.MinLat {
							b.MinLat = wp.Position.Lat
						}
						if wp.Position.Lat > b.MaxLat {
							b.MaxLat = wp.Position.Lat
						}
						if wp.Position.Lon < b.MinLon {
							b.MinLon = wp.Position.Lon
						}
						if wp.Position.Lon > b.MaxLon {
							b.MaxLon = wp.Position.Lon
						}
					}
				}
				if wp.HeartRate != nil {
					hrTotal += *wp.HeartRate
					hrCount++
					if *wp.HeartRate > sum.MaxHeartRate {
						sum.MaxHeartRate = *wp.HeartRate
					}
				}
				if wp.Altitude != nil {
					if sum.MinAltitude == nil || *wp.Altitude < *sum.MinAltitude {
						a := *wp.Altitude
						sum.MinAltitude = &a
					}
					if sum.MaxAltitude == nil || *wp.Altitude > *sum.MaxAltitude {
						a := *wp.Altitude
						sum.MaxAltitude = &a
					}
				}
			}
			if n := len(seg.Waypoints); n > 0 {
				last := seg.Waypoints[n-1]
				if last.Distance != nil {
					sum.DistanceMeters += *last.Distance
				}
				if last.ElapsedSeconds != nil {
					sum.DurationSecs += *last.ElapsedSeconds
				}
			}
		}
	}
	if hrCount > 0 {
		sum.AvgHeartRate = hrTotal / hrCount
	}
	return sum
}

// Rows flattens every waypoint of a document into storage rows.
func Rows(doc *qrt.Document) []WaypointRow {
	var rows []WaypointRow
	for si, sess := range doc.Sessions {
		if sess.Route == nil {
			continue
		}
		for gi, seg := range sess.Route.Segments {
			for wi, wp := range seg.Waypoints {
				row := WaypointRow{
					Session:   si,
					Segment:   gi,
					Index:     wi,
					Time:      wp.Time,
					Elapsed:   wp.ElapsedSeconds,
					Distance:  wp.Distance,
					HeartRate: wp.HeartRate,
					Altitude:  wp.Altitude,
				}
				if wp.Position != nil {
					row.Lat = &wp.Position.Lat
					row.Lon = &wp.Position.Lon
				}
				rows = append(rows, row)
			}
		}
	}
	return rows
}
