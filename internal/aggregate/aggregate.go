// Package aggregate derives the dashboard figures from a raw attendance-record
// collection. Pure computation: malformed input yields a zero value and an
// ok=false flag, never a panic — failure handling belongs to the caller.
package aggregate

import "time"

const wireDateLayout = "2006-01-02"

// DefaultRooms is the fixed room set shown on the dashboard.
var DefaultRooms = []string{"19", "20", "30", "50", "60"}

// Summary holds the rolling attendance counts.
type Summary struct {
	Today      int `json:"today"`
	Last7Days  int `json:"last_7_days"`
	Last30Days int `json:"last_30_days"`
}

// RoomAttendance maps a room number to its attendance count.
type RoomAttendance map[string]int

// History is the attendance collection the engine consumes. TotalRecords is
// nil when the gateway response carried no numeric total.
type History struct {
	TotalRecords *int
	Records      []Record
}

// Record is a single attendance mark.
type Record struct {
	Date       string
	RoomNumber string
}

// ComputeSummary derives the summary from a history fetched for the two-day
// window ending at ref. Today comes from the gateway's record total; the 7 and
// 30 day figures are counted from record dates inside those trailing windows.
// Returns ok=false and a zero Summary when the collection has no total.
func ComputeSummary(h History, ref time.Time) (Summary, bool) {
	if h.TotalRecords == nil {
		return Summary{}, false
	}
	s := Summary{Today: *h.TotalRecords}
	// Compare calendar days; record dates parse as UTC midnight.
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	for _, r := range h.Records {
		d, err := time.Parse(wireDateLayout, r.Date)
		if err != nil {
			continue
		}
		if !d.After(day) && !d.Before(day.AddDate(0, 0, -6)) {
			s.Last7Days++
		}
		if !d.After(day) && !d.Before(day.AddDate(0, 0, -29)) {
			s.Last30Days++
		}
	}
	return s, true
}

// ComputeRoomBreakdown counts records per listed room. Rooms with no matching
// records report 0 explicitly; rooms outside the list are dropped. Returns
// ok=false and an empty map when the collection has no records sequence.
func ComputeRoomBreakdown(h History, rooms []string) (RoomAttendance, bool) {
	out := make(RoomAttendance, len(rooms))
	if h.Records == nil {
		return out, false
	}
	for _, room := range rooms {
		out[room] = 0
	}
	for _, r := range h.Records {
		if _, listed := out[r.RoomNumber]; listed {
			out[r.RoomNumber]++
		}
	}
	return out, true
}
