package gateway

import "strings"

// Trainer is a row from the trainers collection.
type Trainer struct {
	ID             int64   `json:"id"`
	Name           string  `json:"trainer_name"`
	RoomNumber     string  `json:"room_number"`
	ScheduledHours float64 `json:"scheduled_hours"`
	ApprovedHours  float64 `json:"approved_hours"`
}

// UnutilizedTime is always derived, never stored.
func (t Trainer) UnutilizedTime() float64 {
	return t.ApprovedHours - t.ScheduledHours
}

// Student is a roster row. FullName is filled in locally, not by the gateway
// decode: it is the server display name when present, otherwise first+last.
type Student struct {
	ID              int64  `json:"id"`
	Login           string `json:"user_login"`
	DisplayName     string `json:"display_name"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	FullName        string `json:"full_name"`
	CourseID        string `json:"course_id"`
	CoordinatorID   string `json:"coordinator_id"`
	ContactNumber   string `json:"contact_number"`
	CourseStartDate string `json:"course_start_date"`
	CourseEndDate   string `json:"course_end_date"`
	ClassTime       string `json:"class_time"`
	OnHold          bool   `json:"on_hold"`
	HoldRequested   bool   `json:"hold_requested"`
}

// DeriveFullName recomputes FullName after a local first/last name edit.
func (s *Student) DeriveFullName() {
	if s.DisplayName != "" {
		s.FullName = s.DisplayName
		return
	}
	s.FullName = strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Course is read-only reference data. ClassDuration is in minutes.
type Course struct {
	ID            string `json:"id"`
	Name          string `json:"course_name"`
	ClassDuration int    `json:"class_duration"`
}

// Coordinator is read-only reference data.
type Coordinator struct {
	ID   string `json:"id"`
	Name string `json:"coordinator_name"`
}

// HoldRequest is a pending course-hold request; only the count is shown.
type HoldRequest struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// AttendanceRecord is one marked attendance.
type AttendanceRecord struct {
	Date       string `json:"date"`
	RoomNumber string `json:"room_number"`
	StudentID  int64  `json:"student_id"`
}

// AttendanceHistory is decoded leniently: both fields are optional so the
// aggregation layer can report invalid data instead of the decode failing.
type AttendanceHistory struct {
	TotalRecords *int               `json:"total_records"`
	Records      []AttendanceRecord `json:"attendance_records"`
}

// DashboardAttendance carries server-computed rolling counts.
type DashboardAttendance struct {
	Today      int `json:"today"`
	Last7Days  int `json:"last_7_days"`
	Last30Days int `json:"last_30_days"`
}

// AttendanceQuery filters an attendance-history fetch. Zero-valued optional
// fields are omitted from the request.
type AttendanceQuery struct {
	StartDate  string
	EndDate    string
	RoomNumber string
	FullName   string
	Page       int
	PerPage    int
}
