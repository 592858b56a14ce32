package roster

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentmonitor/internal/datefmt"
	"studentmonitor/internal/gateway"
)

type fakeGateway struct {
	mu      sync.Mutex
	updates []update

	users        func(trainerID int64) ([]gateway.Student, error)
	courses      func() ([]gateway.Course, error)
	coordinators func() ([]gateway.Coordinator, error)
	trainers     func() ([]gateway.Trainer, error)
	updateUser   func(userID int64, field, value string) error
}

type update struct {
	userID int64
	field  string
	value  string
}

func (f *fakeGateway) Users(_ context.Context, trainerID int64) ([]gateway.Student, error) {
	return f.users(trainerID)
}
func (f *fakeGateway) Courses(context.Context) ([]gateway.Course, error) { return f.courses() }
func (f *fakeGateway) Coordinators(context.Context) ([]gateway.Coordinator, error) {
	return f.coordinators()
}
func (f *fakeGateway) Trainers(context.Context) ([]gateway.Trainer, error) { return f.trainers() }
func (f *fakeGateway) UpdateUser(_ context.Context, userID int64, field, value string) error {
	f.mu.Lock()
	f.updates = append(f.updates, update{userID, field, value})
	f.mu.Unlock()
	if f.updateUser != nil {
		return f.updateUser(userID, field, value)
	}
	return nil
}

func happyGateway() *fakeGateway {
	return &fakeGateway{
		users: func(trainerID int64) ([]gateway.Student, error) {
			return []gateway.Student{
				{ID: 7, Login: "ana.r", FirstName: "Ana", LastName: "Ruiz", CourseID: "c1", CourseStartDate: "2024-01-15", ClassTime: "14:30"},
				{ID: 8, Login: "bo.l", DisplayName: "Bo Liang", FirstName: "Bo", LastName: "Liang", CourseID: "c2"},
			}, nil
		},
		courses: func() ([]gateway.Course, error) {
			return []gateway.Course{{ID: "c1", Name: "Spoken English", ClassDuration: 45}, {ID: "c2", Name: "IELTS", ClassDuration: 60}}, nil
		},
		coordinators: func() ([]gateway.Coordinator, error) {
			return []gateway.Coordinator{{ID: "k1", Name: "Meera"}}, nil
		},
		trainers: func() ([]gateway.Trainer, error) {
			return []gateway.Trainer{{ID: 3, Name: "Priya", RoomNumber: "19"}, {ID: 4, Name: "Ravi", RoomNumber: "30"}}, nil
		},
	}
}

func loadedVM(t *testing.T, gw Gateway) *ViewModel {
	t.Helper()
	vm := New(gw)
	require.NoError(t, vm.SelectTrainer(context.Background(), 3))
	return vm
}

func TestSelectTrainerLoadsRoster(t *testing.T) {
	vm := loadedVM(t, happyGateway())
	snap := vm.Snapshot()

	assert.Equal(t, StateReady, snap.State)
	require.Len(t, snap.Students, 2)
	assert.Equal(t, "Ana Ruiz", snap.Students[0].FullName, "derived from first+last")
	assert.Equal(t, "Bo Liang", snap.Students[1].FullName, "server display name wins")
	assert.Equal(t, "15-Jan-2024", snap.Students[0].DisplayStartDate)
	assert.Equal(t, "2:30 PM", snap.Students[0].DisplayClassTime)
	assert.Equal(t, 45, snap.Students[0].ClassDuration)
	require.NotNil(t, snap.SelectedTrainer)
	assert.Equal(t, "Priya", snap.SelectedTrainer.Name)
	assert.Len(t, snap.Trainers, 2)
	assert.Len(t, snap.Courses, 2)
	assert.Len(t, snap.Coordinators, 1)
}

func TestSelectTrainerUnknownIDClearsSelection(t *testing.T) {
	vm := New(happyGateway())
	require.NoError(t, vm.SelectTrainer(context.Background(), 999))
	snap := vm.Snapshot()

	assert.Equal(t, StateReady, snap.State, "unknown trainer is not an error")
	assert.Nil(t, snap.SelectedTrainer)
}

func TestSelectTrainerFetchFailure(t *testing.T) {
	gw := happyGateway()
	gw.courses = func() ([]gateway.Course, error) {
		return nil, &gateway.TransportError{Endpoint: "courses", Err: errors.New("connection reset")}
	}
	vm := New(gw)
	err := vm.SelectTrainer(context.Background(), 3)
	require.Error(t, err)
	snap := vm.Snapshot()

	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, "Failed to fetch data", snap.Error)
	assert.Empty(t, snap.Students, "no partial roster is shown")
	assert.Empty(t, snap.Trainers)
}

func TestStaleSelectionIsDiscarded(t *testing.T) {
	gw := happyGateway()
	block := make(chan struct{})
	entered := make(chan struct{})
	first := true
	var mu sync.Mutex
	gw.users = func(trainerID int64) ([]gateway.Student, error) {
		mu.Lock()
		isFirst := first
		first = false
		mu.Unlock()
		if isFirst {
			close(entered)
			<-block
			return []gateway.Student{{ID: 1, Login: "stale"}}, nil
		}
		return []gateway.Student{{ID: 2, Login: "fresh"}}, nil
	}

	vm := New(gw)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = vm.SelectTrainer(context.Background(), 3)
	}()
	<-entered

	require.NoError(t, vm.SelectTrainer(context.Background(), 4))
	close(block)
	<-done

	snap := vm.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	require.Len(t, snap.Students, 1)
	assert.Equal(t, "fresh", snap.Students[0].Login, "only the latest selection's data wins")
	require.NotNil(t, snap.SelectedTrainer)
	assert.Equal(t, int64(4), snap.SelectedTrainer.ID)
}

func TestTotalUniqueStudentsIgnoresDuplicateRows(t *testing.T) {
	gw := happyGateway()
	gw.users = func(int64) ([]gateway.Student, error) {
		return []gateway.Student{{ID: 7}, {ID: 7}, {ID: 9}}, nil
	}
	vm := loadedVM(t, gw)

	assert.Equal(t, 2, vm.TotalUniqueStudents())
	assert.Equal(t, 2, vm.Snapshot().TotalUniqueStudents)
}

func TestUpdateFieldDateAlreadyWireForm(t *testing.T) {
	gw := happyGateway()
	vm := loadedVM(t, gw)

	require.NoError(t, vm.UpdateField(context.Background(), 7, "course_start_date", "2024-03-01"))

	require.Len(t, gw.updates, 1)
	assert.Equal(t, update{7, "course_start_date", "2024-03-01"}, gw.updates[0])
	snap := vm.Snapshot()
	assert.Equal(t, "2024-03-01", snap.Students[0].CourseStartDate)
	assert.Equal(t, "1-Mar-2024", snap.Students[0].DisplayStartDate)
}

func TestUpdateFieldDateDisplayForm(t *testing.T) {
	gw := happyGateway()
	vm := loadedVM(t, gw)

	require.NoError(t, vm.UpdateField(context.Background(), 7, "course_end_date", "5-Apr-2024"))

	require.Len(t, gw.updates, 1)
	assert.Equal(t, "2024-04-05", gw.updates[0].value, "gateway always receives wire form")
	// The local copy keeps the original display value, as entered.
	assert.Equal(t, "5-Apr-2024", vm.Snapshot().Students[0].CourseEndDate)
}

func TestUpdateFieldBadDateAbortsEdit(t *testing.T) {
	gw := happyGateway()
	vm := loadedVM(t, gw)

	err := vm.UpdateField(context.Background(), 7, "course_start_date", "someday")
	var fmtErr *datefmt.FormatError
	require.ErrorAs(t, err, &fmtErr)

	assert.Empty(t, gw.updates, "nothing is persisted")
	snap := vm.Snapshot()
	assert.Equal(t, "2024-01-15", snap.Students[0].CourseStartDate, "prior value retained")
	assert.Contains(t, snap.Error, "Failed to update user")
}

func TestUpdateFieldClassTimeNormalized(t *testing.T) {
	gw := happyGateway()
	vm := loadedVM(t, gw)

	require.NoError(t, vm.UpdateField(context.Background(), 7, "class_time", "3:45 PM"))

	require.Len(t, gw.updates, 1)
	assert.Equal(t, "15:45", gw.updates[0].value)
	assert.Equal(t, "3:45 PM", vm.Snapshot().Students[0].ClassTime, "local state keeps the entered value")
}

func TestUpdateFieldNameRecomputesFullName(t *testing.T) {
	gw := happyGateway()
	vm := loadedVM(t, gw)

	require.NoError(t, vm.UpdateField(context.Background(), 7, "last_name", ""))

	snap := vm.Snapshot()
	assert.Equal(t, "", snap.Students[0].LastName)
	assert.Equal(t, "Ana", snap.Students[0].FullName, "trimmed concatenation")
}

func TestUpdateFieldGatewayFailureLeavesStateUntouched(t *testing.T) {
	gw := happyGateway()
	gw.updateUser = func(int64, string, string) error {
		return &gateway.TransportError{Endpoint: "update_user", Status: 500}
	}
	vm := loadedVM(t, gw)
	before := vm.Snapshot()

	err := vm.UpdateField(context.Background(), 7, "contact_number", "555-0101")
	require.Error(t, err)

	after := vm.Snapshot()
	assert.Equal(t, before.Students, after.Students)
	assert.Contains(t, after.Error, "Failed to update user")
}
