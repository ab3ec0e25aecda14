package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	incdomain "plate-registry/internal/domain/incident"
	"plate-registry/internal/notify"
	"plate-registry/internal/repository"
)

// fakeStore implements incidentStore, personDirectory and vehicleDirectory
// in memory. ApplyTransition takes the same mutex for the whole
// read-decide-write cycle, mirroring the row locks the real repository
// takes inside its transaction.
type fakeStore struct {
	mu        sync.Mutex
	incidents map[int64]*repository.Incident
	persons   map[int64]*repository.Person
	vehicles  map[int64]*repository.Vehicle
	profiles  map[int64]*repository.Profile
	nextID    int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		incidents: make(map[int64]*repository.Incident),
		persons:   make(map[int64]*repository.Person),
		vehicles:  make(map[int64]*repository.Vehicle),
		profiles:  make(map[int64]*repository.Profile),
	}
}

func (f *fakeStore) Create(_ context.Context, inc *repository.Incident) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	inc.ID = f.nextID
	stored := *inc
	f.incidents[inc.ID] = &stored
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*repository.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inc, ok := f.incidents[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *inc
	return &copied, nil
}

func (f *fakeStore) List(_ context.Context) ([]repository.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Incident
	for _, inc := range f.incidents {
		out = append(out, *inc)
	}
	return out, nil
}

func (f *fakeStore) ListByReporter(_ context.Context, reporterID int64) ([]repository.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Incident
	for _, inc := range f.incidents {
		if inc.ReporterID == reporterID {
			out = append(out, *inc)
		}
	}
	return out, nil
}

func (f *fakeStore) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.incidents[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.incidents, id)
	return nil
}

func (f *fakeStore) ApplyTransition(
	_ context.Context,
	incidentID int64,
	decide func(rec *repository.TransitionRecord) incdomain.Plan,
) (*repository.TransitionRecord, incdomain.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	inc, ok := f.incidents[incidentID]
	if !ok {
		return nil, incdomain.Plan{}, gorm.ErrRecordNotFound
	}
	affected, ok := f.persons[inc.AffectedPersonID]
	if !ok {
		return nil, incdomain.Plan{}, fmt.Errorf("%w: affected person %d", incdomain.ErrIncomplete, inc.AffectedPersonID)
	}
	reporter, ok := f.persons[inc.ReporterID]
	if !ok {
		return nil, incdomain.Plan{}, fmt.Errorf("%w: reporter %d", incdomain.ErrIncomplete, inc.ReporterID)
	}
	vehicle, ok := f.vehicles[inc.VehicleID]
	if !ok {
		return nil, incdomain.Plan{}, fmt.Errorf("%w: vehicle %d", incdomain.ErrIncomplete, inc.VehicleID)
	}

	rec := &repository.TransitionRecord{
		Incident: *inc,
		Affected: *affected,
		Reporter: *reporter,
		Vehicle:  *vehicle,
	}
	plan := decide(rec)

	inc.Status = plan.Status
	rec.Incident.Status = plan.Status
	if plan.MutatesPerson {
		affected.IncidentCount = plan.IncidentCount
		affected.Status = plan.PersonStatus
		rec.Affected = *affected
	}
	return rec, plan, nil
}

func (f *fakeStore) GetPersonByID(_ context.Context, id int64) (*repository.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	person, ok := f.persons[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *person
	return &copied, nil
}

func (f *fakeStore) GetProfile(_ context.Context, id int64) (*repository.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *profile
	return &copied, nil
}

// persons and vehicles share the GetByID name across the two consumer
// interfaces, so wrap the store per role.
type fakePersons struct{ s *fakeStore }

func (f fakePersons) GetByID(ctx context.Context, id int64) (*repository.Person, error) {
	return f.s.GetPersonByID(ctx, id)
}

func (f fakePersons) GetProfile(ctx context.Context, id int64) (*repository.Profile, error) {
	return f.s.GetProfile(ctx, id)
}

type fakeVehicles struct{ s *fakeStore }

func (f fakeVehicles) GetByID(_ context.Context, id int64) (*repository.Vehicle, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	vehicle, ok := f.s.vehicles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *vehicle
	return &copied, nil
}

type fakeDispatcher struct {
	mu       sync.Mutex
	messages []notify.Message
	fail     bool
}

func (d *fakeDispatcher) Send(_ context.Context, msg notify.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, msg)
	if d.fail {
		return errors.New("smtp unreachable")
	}
	return nil
}

func (d *fakeDispatcher) sent() []notify.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notify.Message(nil), d.messages...)
}

func newTestService(store *fakeStore, dispatcher *fakeDispatcher) *IncidentService {
	return NewIncidentService(store, fakePersons{store}, fakeVehicles{store}, dispatcher, 0, zerolog.Nop())
}

func seedScenario(store *fakeStore, affectedCount int, affectedStatus string) (affectedID, reporterID, vehicleID, incidentID int64) {
	store.profiles[1] = &repository.Profile{ID: 1, Name: "User"}
	store.profiles[2] = &repository.Profile{ID: 2, Name: "Administrator"}
	userProfile := int64(1)
	store.persons[1] = &repository.Person{
		ID: 1, Name: "Juan", Email: "juan@example.com",
		Status: affectedStatus, IncidentCount: affectedCount, ProfileID: &userProfile,
	}
	store.persons[2] = &repository.Person{
		ID: 2, Name: "Ana", Email: "ana@example.com",
		Status: incdomain.PersonAuthorized, ProfileID: &userProfile,
	}
	store.vehicles[1] = &repository.Vehicle{
		ID: 1, Plate: "ABC123", Brand: "Nissan", Model: "Sentra", Color: "Rojo", OwnerID: 1,
	}
	store.incidents[10] = &repository.Incident{
		ID: 10, Description: "parked across two spaces", Date: "2024-05-01",
		Status: incdomain.StatusPending, AffectedPersonID: 1, ReporterID: 2, VehicleID: 1,
	}
	store.nextID = 10
	return 1, 2, 1, 10
}

func TestApplyStatusApprovalSuspendsAtThreshold(t *testing.T) {
	store := newFakeStore()
	affectedID, _, _, incidentID := seedScenario(store, 2, incdomain.PersonAuthorized)
	dispatcher := &fakeDispatcher{}
	svc := newTestService(store, dispatcher)

	result, err := svc.ApplyStatus(context.Background(), incidentID, incdomain.StatusApproved)
	if err != nil {
		t.Fatalf("ApplyStatus failed: %v", err)
	}

	if result.IncidentCount != 3 {
		t.Errorf("expected incident count 3, got %d", result.IncidentCount)
	}
	if !result.Suspended {
		t.Error("expected suspension flag in result")
	}
	if !strings.Contains(result.Message, "suspended") {
		t.Errorf("expected message flagging suspension, got %q", result.Message)
	}

	person := store.persons[affectedID]
	if person.IncidentCount != 3 {
		t.Errorf("expected persisted count 3, got %d", person.IncidentCount)
	}
	if person.Status != incdomain.PersonSuspended {
		t.Errorf("expected persisted status Suspended, got %q", person.Status)
	}
	if store.incidents[incidentID].Status != incdomain.StatusApproved {
		t.Errorf("expected incident Approved, got %q", store.incidents[incidentID].Status)
	}

	messages := dispatcher.sent()
	if len(messages) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(messages))
	}
	if messages[0].Kind != incdomain.AffectedPersonNotice || messages[0].RecipientEmail != "juan@example.com" {
		t.Errorf("unexpected first notification: %+v", messages[0])
	}
	if !messages[0].Suspended {
		t.Error("affected person notice must carry the suspension flag")
	}
	if messages[1].Kind != incdomain.ReporterConfirmation || messages[1].RecipientEmail != "ana@example.com" {
		t.Errorf("unexpected second notification: %+v", messages[1])
	}
}

func TestApplyStatusRejectionMutatesNothing(t *testing.T) {
	store := newFakeStore()
	affectedID, _, _, incidentID := seedScenario(store, 2, incdomain.PersonAuthorized)
	dispatcher := &fakeDispatcher{}
	svc := newTestService(store, dispatcher)

	result, err := svc.ApplyStatus(context.Background(), incidentID, incdomain.StatusRejected)
	if err != nil {
		t.Fatalf("ApplyStatus failed: %v", err)
	}

	if result.Suspended {
		t.Error("rejection must not suspend")
	}
	person := store.persons[affectedID]
	if person.IncidentCount != 2 {
		t.Errorf("expected count unchanged at 2, got %d", person.IncidentCount)
	}
	if person.Status != incdomain.PersonAuthorized {
		t.Errorf("expected status unchanged, got %q", person.Status)
	}
	if store.incidents[incidentID].Status != incdomain.StatusRejected {
		t.Errorf("expected incident Rejected, got %q", store.incidents[incidentID].Status)
	}

	messages := dispatcher.sent()
	if len(messages) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(messages))
	}
	if messages[0].Kind != incdomain.ReporterRejection {
		t.Errorf("expected ReporterRejection, got %q", messages[0].Kind)
	}
}

func TestApplyStatusFreeFormLabel(t *testing.T) {
	store := newFakeStore()
	affectedID, _, _, incidentID := seedScenario(store, 1, incdomain.PersonAuthorized)
	dispatcher := &fakeDispatcher{}
	svc := newTestService(store, dispatcher)

	result, err := svc.ApplyStatus(context.Background(), incidentID, "UnderReview")
	if err != nil {
		t.Fatalf("ApplyStatus failed: %v", err)
	}

	if result.Status != "UnderReview" {
		t.Errorf("expected literal status, got %q", result.Status)
	}
	if store.incidents[incidentID].Status != "UnderReview" {
		t.Errorf("expected persisted literal status, got %q", store.incidents[incidentID].Status)
	}
	if store.persons[affectedID].IncidentCount != 1 {
		t.Error("free-form status must not touch the incident count")
	}
	if len(dispatcher.sent()) != 0 {
		t.Error("free-form status must not notify")
	}
}

func TestApplyStatusNotificationFailureIsSwallowed(t *testing.T) {
	store := newFakeStore()
	affectedID, _, _, incidentID := seedScenario(store, 0, incdomain.PersonAuthorized)
	dispatcher := &fakeDispatcher{fail: true}
	svc := newTestService(store, dispatcher)

	result, err := svc.ApplyStatus(context.Background(), incidentID, incdomain.StatusApproved)
	if err != nil {
		t.Fatalf("delivery failure must not fail the transition: %v", err)
	}
	if result.IncidentCount != 1 {
		t.Errorf("expected count 1, got %d", result.IncidentCount)
	}
	if store.persons[affectedID].IncidentCount != 1 {
		t.Error("transition must persist despite delivery failure")
	}
	// Both dispatches were still attempted.
	if len(dispatcher.sent()) != 2 {
		t.Errorf("expected both notifications attempted, got %d", len(dispatcher.sent()))
	}
}

func TestApplyStatusIncompleteIncident(t *testing.T) {
	store := newFakeStore()
	affectedID, _, _, incidentID := seedScenario(store, 0, incdomain.PersonAuthorized)
	delete(store.persons, affectedID)
	svc := newTestService(store, &fakeDispatcher{})

	_, err := svc.ApplyStatus(context.Background(), incidentID, incdomain.StatusApproved)
	if !errors.Is(err, incdomain.ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
	if store.incidents[incidentID].Status != incdomain.StatusPending {
		t.Error("aborted transition must not persist a status change")
	}
}

func TestApplyStatusUnknownIncident(t *testing.T) {
	store := newFakeStore()
	seedScenario(store, 0, incdomain.PersonAuthorized)
	svc := newTestService(store, &fakeDispatcher{})

	_, err := svc.ApplyStatus(context.Background(), 999, incdomain.StatusApproved)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentApprovalsCountEveryIncident(t *testing.T) {
	store := newFakeStore()
	affectedID, reporterID, vehicleID, _ := seedScenario(store, 0, incdomain.PersonAuthorized)
	dispatcher := &fakeDispatcher{}
	svc := newTestService(store, dispatcher)

	const approvals = 8
	ids := make([]int64, approvals)
	for i := range ids {
		inc := &repository.Incident{
			Description: "incident", Date: "2024-05-01",
			Status: incdomain.StatusPending, AffectedPersonID: affectedID,
			ReporterID: reporterID, VehicleID: vehicleID,
		}
		if err := store.Create(context.Background(), inc); err != nil {
			t.Fatalf("seed incident: %v", err)
		}
		ids[i] = inc.ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(incidentID int64) {
			defer wg.Done()
			if _, err := svc.ApplyStatus(context.Background(), incidentID, incdomain.StatusApproved); err != nil {
				t.Errorf("ApplyStatus(%d) failed: %v", incidentID, err)
			}
		}(id)
	}
	wg.Wait()

	person := store.persons[affectedID]
	if person.IncidentCount != approvals {
		t.Errorf("expected final count %d, got %d (lost or duplicated update)", approvals, person.IncidentCount)
	}
	if person.Status != incdomain.PersonSuspended {
		t.Errorf("expected Suspended after %d approvals, got %q", approvals, person.Status)
	}
}

func TestListVisibilityFilter(t *testing.T) {
	store := newFakeStore()
	affectedID, reporterID, vehicleID, _ := seedScenario(store, 0, incdomain.PersonAuthorized)

	adminProfile := int64(2)
	store.persons[3] = &repository.Person{
		ID: 3, Name: "Carlos", Email: "carlos@example.com",
		Status: incdomain.PersonAuthorized, ProfileID: &adminProfile,
	}

	// A second incident reported by the affected person themselves.
	inc := &repository.Incident{
		Description: "counter report", Date: "2024-05-02",
		Status: incdomain.StatusPending, AffectedPersonID: reporterID,
		ReporterID: affectedID, VehicleID: vehicleID,
	}
	if err := store.Create(context.Background(), inc); err != nil {
		t.Fatalf("seed incident: %v", err)
	}

	svc := newTestService(store, &fakeDispatcher{})

	own, err := svc.List(context.Background(), reporterID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(own) != 1 {
		t.Fatalf("User profile must only see own reports, got %d", len(own))
	}
	if own[0].ReporterID != reporterID {
		t.Errorf("expected only incidents reported by %d, got reporter %d", reporterID, own[0].ReporterID)
	}

	all, err := svc.List(context.Background(), 3)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Administrator profile must see all incidents, got %d", len(all))
	}
}

func TestReportValidatesReferences(t *testing.T) {
	store := newFakeStore()
	affectedID, reporterID, vehicleID, _ := seedScenario(store, 0, incdomain.PersonAuthorized)
	svc := newTestService(store, &fakeDispatcher{})

	input := IncidentInput{
		Description:      "blocked driveway",
		Date:             "2024-06-01",
		AffectedPersonID: affectedID,
		ReporterID:       reporterID,
		VehicleID:        vehicleID,
	}

	inc, err := svc.Report(context.Background(), input)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if inc.Status != incdomain.StatusPending {
		t.Errorf("new incident must start Pending, got %q", inc.Status)
	}

	bad := input
	bad.VehicleID = 999
	if _, err := svc.Report(context.Background(), bad); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing vehicle, got %v", err)
	}

	bad = input
	bad.Description = ""
	if _, err := svc.Report(context.Background(), bad); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty description, got %v", err)
	}
}
