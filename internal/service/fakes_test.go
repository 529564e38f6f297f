package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/model"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/notify"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/repository"
)

// In-memory stores backing the service tests. They mirror the repository
// contract: a missing row is (nil, nil).

type fakeLotStore struct {
	mu   sync.Mutex
	lots map[uuid.UUID]*model.ShipmentLot
}

func newFakeLotStore() *fakeLotStore {
	return &fakeLotStore{lots: make(map[uuid.UUID]*model.ShipmentLot)}
}

func (s *fakeLotStore) Create(_ context.Context, lot *model.ShipmentLot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lot.ID == uuid.Nil {
		lot.ID = uuid.New()
	}
	cp := *lot
	s.lots[lot.ID] = &cp
	return nil
}

func (s *fakeLotStore) GetByID(_ context.Context, id uuid.UUID) (*model.ShipmentLot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lot, ok := s.lots[id]
	if !ok {
		return nil, nil
	}
	cp := *lot
	return &cp, nil
}

func (s *fakeLotStore) UpdateStatus(_ context.Context, id uuid.UUID, status model.LotStatus, totalNetKg *float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lot, ok := s.lots[id]
	if !ok {
		return nil
	}
	lot.Status = status
	if totalNetKg != nil {
		lot.TotalNetWeightKg = totalNetKg
	}
	return nil
}

func (s *fakeLotStore) List(_ context.Context, filter repository.LotListFilter) ([]model.ShipmentLot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ShipmentLot
	for _, lot := range s.lots {
		if filter.Status != nil && lot.Status != *filter.Status {
			continue
		}
		if filter.CooperativeID != nil && lot.CooperativeID != *filter.CooperativeID {
			continue
		}
		if filter.MineralType != nil && lot.MineralType != *filter.MineralType {
			continue
		}
		out = append(out, *lot)
	}
	return out, nil
}

type fakeAssignmentStore struct {
	mu          sync.Mutex
	assignments map[uuid.UUID]*model.TruckAssignment
}

func newFakeAssignmentStore() *fakeAssignmentStore {
	return &fakeAssignmentStore{assignments: make(map[uuid.UUID]*model.TruckAssignment)}
}

func (s *fakeAssignmentStore) Create(_ context.Context, assignment *model.TruckAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if assignment.ID == uuid.Nil {
		assignment.ID = uuid.New()
	}
	cp := *assignment
	s.assignments[assignment.ID] = &cp
	return nil
}

func (s *fakeAssignmentStore) GetByID(_ context.Context, id uuid.UUID) (*model.TruckAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	assignment, ok := s.assignments[id]
	if !ok {
		return nil, nil
	}
	cp := *assignment
	return &cp, nil
}

func (s *fakeAssignmentStore) Update(_ context.Context, assignment *model.TruckAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *assignment
	s.assignments[assignment.ID] = &cp
	return nil
}

func (s *fakeAssignmentStore) ListByLotID(_ context.Context, lotID uuid.UUID) ([]model.TruckAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.TruckAssignment
	for _, a := range s.assignments {
		if a.LotID == lotID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *fakeAssignmentStore) CountByLotID(ctx context.Context, lotID uuid.UUID) (int64, error) {
	list, _ := s.ListByLotID(ctx, lotID)
	return int64(len(list)), nil
}

func (s *fakeAssignmentStore) FindActiveByDriver(_ context.Context, driverID uuid.UUID) (*model.TruckAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assignments {
		if a.DriverID == driverID && !a.State.Terminal() {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

type fakeWeighingStore struct {
	mu          sync.Mutex
	records     []model.WeighingRecord
	assignments *fakeAssignmentStore
}

func newFakeWeighingStore(assignments *fakeAssignmentStore) *fakeWeighingStore {
	return &fakeWeighingStore{assignments: assignments}
}

func (s *fakeWeighingStore) Create(_ context.Context, record *model.WeighingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	s.records = append(s.records, *record)
	return nil
}

func (s *fakeWeighingStore) FindByAssignmentAndType(_ context.Context, assignmentID uuid.UUID, t model.WeighingType) (*model.WeighingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].AssignmentID == assignmentID && s.records[i].Type == t {
			cp := s.records[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeWeighingStore) ListByAssignmentID(_ context.Context, assignmentID uuid.UUID) ([]model.WeighingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.WeighingRecord
	for _, r := range s.records {
		if r.AssignmentID == assignmentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeWeighingStore) SumNetByLot(ctx context.Context, lotID uuid.UUID, t model.WeighingType) (float64, error) {
	s.mu.Lock()
	records := make([]model.WeighingRecord, len(s.records))
	copy(records, s.records)
	s.mu.Unlock()

	var sum float64
	for _, r := range records {
		if r.Type != t {
			continue
		}
		assignment, _ := s.assignments.GetByID(ctx, r.AssignmentID)
		if assignment != nil && assignment.LotID == lotID {
			sum += r.NetKg
		}
	}
	return sum, nil
}

type fakeZoneStore struct {
	mu    sync.Mutex
	zones []model.GeofenceZone
}

func newFakeZoneStore() *fakeZoneStore {
	return &fakeZoneStore{}
}

func (s *fakeZoneStore) Create(_ context.Context, zone *model.GeofenceZone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if zone.ID == uuid.Nil {
		zone.ID = uuid.New()
	}
	s.zones = append(s.zones, *zone)
	return nil
}

func (s *fakeZoneStore) GetByLotAndKind(_ context.Context, lotID uuid.UUID, kind model.ControlPointKind) (*model.GeofenceZone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.zones {
		if s.zones[i].LotID == lotID && s.zones[i].Kind == kind {
			cp := s.zones[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeZoneStore) ListByLotID(_ context.Context, lotID uuid.UUID) ([]model.GeofenceZone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.GeofenceZone
	for _, z := range s.zones {
		if z.LotID == lotID {
			out = append(out, z)
		}
	}
	return out, nil
}

type fakeTrackingStore struct {
	mu      sync.Mutex
	records map[string]*model.TrackingRecord
}

func newFakeTrackingStore() *fakeTrackingStore {
	return &fakeTrackingStore{records: make(map[string]*model.TrackingRecord)}
}

func (s *fakeTrackingStore) GetByAssignmentID(_ context.Context, assignmentID string) (*model.TrackingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[assignmentID]
	if !ok {
		return nil, nil
	}
	cp := *record
	return &cp, nil
}

func (s *fakeTrackingStore) Save(_ context.Context, record *model.TrackingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *record
	s.records[record.AssignmentID] = &cp
	return nil
}

func (s *fakeTrackingStore) ListByLotID(_ context.Context, lotID string) ([]model.TrackingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.TrackingRecord
	for _, r := range s.records {
		if r.LotID == lotID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *fakeTrackingStore) MarkOfflineBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, r := range s.records {
		if r.ConnectionStatus == model.ConnectionOnline && r.LastSyncAt != nil && r.LastSyncAt.Before(cutoff) {
			r.ConnectionStatus = model.ConnectionOffline
			count++
		}
	}
	return count, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *fakeNotifier) Publish(event notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *fakeNotifier) Events() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.Event, len(n.events))
	copy(out, n.events)
	return out
}
