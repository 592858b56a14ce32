// Package roster holds the view-model behind the trainer-details screen: one
// trainer's student roster plus the course, coordinator and trainer reference
// lists, with per-field optimistic edits persisted through the gateway.
package roster

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"studentmonitor/internal/datefmt"
	"studentmonitor/internal/gateway"
)

// Gateway is the slice of the remote client the roster needs.
type Gateway interface {
	Users(ctx context.Context, trainerID int64) ([]gateway.Student, error)
	Courses(ctx context.Context) ([]gateway.Course, error)
	Coordinators(ctx context.Context) ([]gateway.Coordinator, error)
	Trainers(ctx context.Context) ([]gateway.Trainer, error)
	UpdateUser(ctx context.Context, userID int64, field, value string) error
}

// State of the view-model.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// ViewModel owns the roster state. Roster slices are only ever replaced as a
// unit: a failed fetch never leaves mixed old and new data.
type ViewModel struct {
	gw Gateway

	mu           sync.Mutex
	seq          uint64
	state        State
	students     []gateway.Student
	courses      []gateway.Course
	coordinators []gateway.Coordinator
	trainers     []gateway.Trainer
	selected     *gateway.Trainer
	errMsg       string
}

// New creates a roster view-model over an injected gateway.
func New(gw Gateway) *ViewModel {
	return &ViewModel{gw: gw, state: StateLoading}
}

// SelectTrainer loads the full roster for a trainer: students, courses,
// coordinators and trainers are fetched concurrently and committed atomically.
// Rapid switching is safe: each invocation takes a sequence number and only
// the latest one may commit, so stale completions are discarded.
func (vm *ViewModel) SelectTrainer(ctx context.Context, trainerID int64) error {
	vm.mu.Lock()
	vm.seq++
	token := vm.seq
	vm.state = StateLoading
	vm.mu.Unlock()

	var (
		wg           sync.WaitGroup
		students     []gateway.Student
		studentsErr  error
		courses      []gateway.Course
		coursesErr   error
		coordinators []gateway.Coordinator
		coordErr     error
		trainers     []gateway.Trainer
		trainersErr  error
	)
	wg.Add(4)
	go func() { defer wg.Done(); students, studentsErr = vm.gw.Users(ctx, trainerID) }()
	go func() { defer wg.Done(); courses, coursesErr = vm.gw.Courses(ctx) }()
	go func() { defer wg.Done(); coordinators, coordErr = vm.gw.Coordinators(ctx) }()
	go func() { defer wg.Done(); trainers, trainersErr = vm.gw.Trainers(ctx) }()
	wg.Wait()

	if err := firstErr(studentsErr, coursesErr, coordErr, trainersErr); err != nil {
		log.Printf("roster load for trainer %d failed: %v", trainerID, err)
		vm.mu.Lock()
		defer vm.mu.Unlock()
		if token != vm.seq {
			return nil
		}
		vm.students = nil
		vm.courses = nil
		vm.coordinators = nil
		vm.trainers = nil
		vm.selected = nil
		vm.errMsg = "Failed to fetch data"
		vm.state = StateError
		return err
	}

	for i := range students {
		students[i].DeriveFullName()
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if token != vm.seq {
		// A newer selection was issued while this one was in flight.
		return nil
	}
	vm.students = students
	vm.courses = courses
	vm.coordinators = coordinators
	vm.trainers = trainers
	vm.selected = nil
	for i := range trainers {
		if trainers[i].ID == trainerID {
			t := trainers[i]
			vm.selected = &t
			break
		}
	}
	vm.errMsg = ""
	vm.state = StateReady
	return nil
}

// UpdateField persists a single student field edit, then applies it locally.
// Date fields are normalized to wire form before the write; class_time goes
// through the 24-hour conversion; everything else is sent verbatim. Local
// state keeps the original display value and is only touched after the
// gateway acknowledges the write.
func (vm *ViewModel) UpdateField(ctx context.Context, studentID int64, field, rawValue string) error {
	value := rawValue
	if strings.Contains(field, "date") {
		wire, err := datefmt.ToWireDate(rawValue)
		if err != nil {
			vm.fail(fmt.Sprintf("Failed to update user: %v", err))
			return err
		}
		value = wire
	} else if field == "class_time" {
		value = datefmt.To24Hour(rawValue)
	}

	if err := vm.gw.UpdateUser(ctx, studentID, field, value); err != nil {
		log.Printf("update user %d field %s failed: %v", studentID, field, err)
		vm.fail(fmt.Sprintf("Failed to update user: %v", err))
		return err
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	for i := range vm.students {
		if vm.students[i].ID != studentID {
			continue
		}
		applyField(&vm.students[i], field, rawValue)
		if field == "first_name" || field == "last_name" {
			vm.students[i].DeriveFullName()
		}
		break
	}
	vm.errMsg = ""
	return nil
}

// TotalUniqueStudents is the cardinality of the distinct-id set over the
// roster, derived on demand; duplicate rows from the gateway count once.
func (vm *ViewModel) TotalUniqueStudents() int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	seen := make(map[int64]struct{}, len(vm.students))
	for _, s := range vm.students {
		seen[s.ID] = struct{}{}
	}
	return len(seen)
}

// StudentRow is a roster row with display-formatted fields alongside the raw
// student record.
type StudentRow struct {
	gateway.Student
	DisplayStartDate string `json:"display_start_date"`
	DisplayEndDate   string `json:"display_end_date"`
	DisplayClassTime string `json:"display_class_time"`
	ClassDuration    int    `json:"class_duration"`
}

// Snapshot is a consistent copy of the roster state for rendering.
type Snapshot struct {
	State               State                 `json:"state"`
	Students            []StudentRow          `json:"students"`
	Courses             []gateway.Course      `json:"courses"`
	Coordinators        []gateway.Coordinator `json:"coordinators"`
	Trainers            []gateway.Trainer     `json:"trainers"`
	SelectedTrainer     *gateway.Trainer      `json:"selected_trainer"`
	TotalUniqueStudents int                   `json:"total_unique_students"`
	Error               string                `json:"error,omitempty"`
}

// Snapshot returns a copy of the current state with dates and times in
// display form. Dates that fail to parse render the sentinel rather than
// breaking the row.
func (vm *ViewModel) Snapshot() Snapshot {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	durations := make(map[string]int, len(vm.courses))
	for _, c := range vm.courses {
		durations[c.ID] = c.ClassDuration
	}

	rows := make([]StudentRow, len(vm.students))
	seen := make(map[int64]struct{}, len(vm.students))
	for i, s := range vm.students {
		rows[i] = StudentRow{
			Student:          s,
			DisplayStartDate: displayDate(s.CourseStartDate),
			DisplayEndDate:   displayDate(s.CourseEndDate),
			DisplayClassTime: datefmt.To12Hour(s.ClassTime),
			ClassDuration:    durations[s.CourseID],
		}
		seen[s.ID] = struct{}{}
	}

	snap := Snapshot{
		State:               vm.state,
		Students:            rows,
		Courses:             append([]gateway.Course(nil), vm.courses...),
		Coordinators:        append([]gateway.Coordinator(nil), vm.coordinators...),
		Trainers:            append([]gateway.Trainer(nil), vm.trainers...),
		TotalUniqueStudents: len(seen),
		Error:               vm.errMsg,
	}
	if vm.selected != nil {
		t := *vm.selected
		snap.SelectedTrainer = &t
	}
	return snap
}

func (vm *ViewModel) fail(msg string) {
	vm.mu.Lock()
	vm.errMsg = msg
	vm.mu.Unlock()
}

func displayDate(wire string) string {
	out, err := datefmt.ToDisplayDate(wire)
	if err != nil {
		return datefmt.InvalidDate
	}
	return out
}

func applyField(s *gateway.Student, field, value string) {
	switch field {
	case "first_name":
		s.FirstName = value
	case "last_name":
		s.LastName = value
	case "contact_number":
		s.ContactNumber = value
	case "course_id":
		s.CourseID = value
	case "coordinator_id":
		s.CoordinatorID = value
	case "course_start_date":
		s.CourseStartDate = value
	case "course_end_date":
		s.CourseEndDate = value
	case "class_time":
		s.ClassTime = value
	default:
		log.Printf("field %s persisted but has no local mapping", field)
	}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
