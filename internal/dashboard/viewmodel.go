// Package dashboard holds the view-model behind the main monitoring screen:
// attendance summary, per-room breakdown, trainer list and pending course-hold
// requests, reconciled against the remote data gateway.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"studentmonitor/internal/aggregate"
	"studentmonitor/internal/gateway"
)

// Gateway is the slice of the remote client the dashboard needs.
type Gateway interface {
	AttendanceHistory(ctx context.Context, q gateway.AttendanceQuery) (gateway.AttendanceHistory, error)
	DashboardAttendance(ctx context.Context) (gateway.DashboardAttendance, error)
	Trainers(ctx context.Context) ([]gateway.Trainer, error)
	SearchTrainers(ctx context.Context, query string) ([]gateway.Trainer, error)
	SearchUsers(ctx context.Context, query string) (json.RawMessage, error)
	CourseHoldRequests(ctx context.Context, status string) ([]gateway.HoldRequest, error)
}

// State of the view-model; re-entered on every load or search action.
type State string

const (
	StateIdle         State = "idle"
	StateLoading      State = "loading"
	StateReady        State = "ready"
	StatePartialError State = "partial_error"
)

const wireDateLayout = "2006-01-02"

// ViewModel owns the dashboard state. All slices are replaced atomically at
// operation completion, never incrementally.
type ViewModel struct {
	gw  Gateway
	now func() time.Time

	mu           sync.Mutex
	state        State
	summary      aggregate.Summary
	roomData     aggregate.RoomAttendance
	trainers     []gateway.Trainer
	holdRequests []gateway.HoldRequest
	errLog       []string
}

// New creates an idle dashboard view-model over an injected gateway.
func New(gw Gateway) *ViewModel {
	return &ViewModel{
		gw:       gw,
		now:      time.Now,
		state:    StateIdle,
		roomData: aggregate.RoomAttendance{},
	}
}

// Snapshot is a consistent copy of the dashboard state for rendering.
type Snapshot struct {
	State            State                    `json:"state"`
	Summary          aggregate.Summary        `json:"summary"`
	RoomData         aggregate.RoomAttendance `json:"room_data"`
	Trainers         []gateway.Trainer        `json:"trainers"`
	HoldRequestCount int                      `json:"hold_request_count"`
	Errors           []string                 `json:"errors"`
}

// Snapshot returns a copy of the current state.
func (vm *ViewModel) Snapshot() Snapshot {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	snap := Snapshot{
		State:            vm.state,
		Summary:          vm.summary,
		RoomData:         make(aggregate.RoomAttendance, len(vm.roomData)),
		Trainers:         append([]gateway.Trainer(nil), vm.trainers...),
		HoldRequestCount: len(vm.holdRequests),
		Errors:           append([]string(nil), vm.errLog...),
	}
	for room, n := range vm.roomData {
		snap.RoomData[room] = n
	}
	return snap
}

// Load fetches attendance history for [yesterday, today], the trainer list and
// pending hold requests concurrently. Shape problems degrade the affected
// slice and append to the error log; any transport failure blanks all slices
// uniformly under a single terminal message, since partial state after a
// transport failure is misleading.
func (vm *ViewModel) Load(ctx context.Context) {
	vm.mu.Lock()
	vm.state = StateLoading
	vm.errLog = nil
	vm.mu.Unlock()

	today := vm.now()
	q := gateway.AttendanceQuery{
		StartDate: today.AddDate(0, 0, -1).Format(wireDateLayout),
		EndDate:   today.Format(wireDateLayout),
	}

	var (
		wg       sync.WaitGroup
		hist     gateway.AttendanceHistory
		histErr  error
		rolling  gateway.DashboardAttendance
		rollErr  error
		trainers []gateway.Trainer
		trErr    error
		holds    []gateway.HoldRequest
		holdErr  error
	)
	wg.Add(4)
	go func() { defer wg.Done(); hist, histErr = vm.gw.AttendanceHistory(ctx, q) }()
	go func() { defer wg.Done(); rolling, rollErr = vm.gw.DashboardAttendance(ctx) }()
	go func() { defer wg.Done(); trainers, trErr = vm.gw.Trainers(ctx) }()
	go func() { defer wg.Done(); holds, holdErr = vm.gw.CourseHoldRequests(ctx, "pending") }()
	wg.Wait()

	if isTransport(histErr) || isTransport(trErr) || isTransport(holdErr) {
		log.Printf("dashboard load failed: %v", firstErr(histErr, trErr, holdErr))
		vm.mu.Lock()
		vm.summary = aggregate.Summary{}
		vm.roomData = aggregate.RoomAttendance{}
		vm.trainers = nil
		vm.holdRequests = nil
		vm.errLog = []string{"Failed to fetch data"}
		vm.state = StatePartialError
		vm.mu.Unlock()
		return
	}

	var errs []string
	var summary aggregate.Summary
	roomData := aggregate.RoomAttendance{}

	if histErr != nil {
		// Shape failure on the attendance body invalidates both aggregates:
		// they are always recomputed together from the same collection.
		log.Printf("attendance history degraded: %v", histErr)
		errs = append(errs, "Invalid general attendance data", "Invalid room attendance data")
	} else {
		h := toAggregateHistory(hist)
		s, ok := aggregate.ComputeSummary(h, today)
		if !ok {
			errs = append(errs, "Invalid general attendance data")
		}
		summary = s
		r, ok := aggregate.ComputeRoomBreakdown(h, aggregate.DefaultRooms)
		if !ok {
			errs = append(errs, "Invalid room attendance data")
		}
		roomData = r
	}

	// The rolling-count endpoint is best-effort: the server figures win when
	// available, and a failure here never reaches the error log.
	if rollErr == nil {
		summary.Last7Days = rolling.Last7Days
		summary.Last30Days = rolling.Last30Days
	} else {
		log.Printf("dashboard rolling counts unavailable: %v", rollErr)
	}

	if trErr != nil {
		log.Printf("trainers degraded: %v", trErr)
		trainers = nil
		errs = append(errs, "Invalid trainers data")
	}
	if holdErr != nil {
		log.Printf("course hold requests degraded: %v", holdErr)
		holds = nil
		errs = append(errs, "Invalid course hold requests data")
	}

	vm.mu.Lock()
	vm.summary = summary
	vm.roomData = roomData
	vm.trainers = trainers
	vm.holdRequests = holds
	vm.errLog = append(vm.errLog, errs...)
	if len(vm.errLog) == 0 {
		vm.state = StateReady
	} else {
		vm.state = StatePartialError
	}
	vm.mu.Unlock()
}

// SearchTrainers replaces the trainer list with the gateway's filtered result.
// Attendance and hold-request state are untouched either way.
func (vm *ViewModel) SearchTrainers(ctx context.Context, query string) {
	vm.mu.Lock()
	vm.state = StateLoading
	vm.mu.Unlock()

	trainers, err := vm.gw.SearchTrainers(ctx, query)
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if err != nil {
		log.Printf("trainer search failed: %v", err)
		vm.trainers = nil
		if isTransport(err) {
			vm.errLog = append(vm.errLog, "Error searching trainers")
		} else {
			vm.errLog = append(vm.errLog, "Invalid search trainers data")
		}
		vm.state = StatePartialError
		return
	}
	vm.trainers = trainers
	vm.state = StateReady
}

// SearchStudents performs the student lookup. The result is not wired to any
// derived state yet; the call is kept as an observable side channel.
func (vm *ViewModel) SearchStudents(ctx context.Context, query string) {
	result, err := vm.gw.SearchUsers(ctx, query)
	if err != nil {
		log.Printf("student search failed: %v", err)
		vm.mu.Lock()
		vm.errLog = append(vm.errLog, "Error searching students")
		vm.mu.Unlock()
		return
	}
	log.Printf("student search returned %d bytes", len(result))
}

func toAggregateHistory(h gateway.AttendanceHistory) aggregate.History {
	out := aggregate.History{TotalRecords: h.TotalRecords}
	if h.Records != nil {
		out.Records = make([]aggregate.Record, len(h.Records))
		for i, r := range h.Records {
			out.Records[i] = aggregate.Record{Date: r.Date, RoomNumber: r.RoomNumber}
		}
	}
	return out
}

func isTransport(err error) bool {
	var te *gateway.TransportError
	return errors.As(err, &te)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
