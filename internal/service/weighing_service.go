package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/flow"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/model"
)

// WeighingService validates and stores scale tickets. Registering a
// weighing never advances the journey state; a separate explicit
// transition call does that.
type WeighingService struct {
	weighings   WeighingStore
	assignments AssignmentStore
	lots        LotStore
	locks       *AssignmentLocks
}

func NewWeighingService(weighings WeighingStore, assignments AssignmentStore, lots LotStore, locks *AssignmentLocks) *WeighingService {
	return &WeighingService{
		weighings:   weighings,
		assignments: assignments,
		lots:        lots,
		locks:       locks,
	}
}

type RegisterWeighingInput struct {
	AssignmentID string
	Type         string
	GrossKg      float64
	TareKg       float64
	Notes        string
}

func (s *WeighingService) Register(ctx context.Context, principal model.Principal, input RegisterWeighingInput) (*model.WeighingRecord, error) {
	if !principal.IsScaleOperator() && !principal.IsDriver() && !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	id, err := uuid.Parse(input.AssignmentID)
	if err != nil {
		return nil, ErrInvalidInput
	}

	weighingType := model.WeighingType(input.Type)
	switch weighingType {
	case model.WeighingOriginScale, model.WeighingProcessorScale, model.WeighingTraderScale:
	default:
		return nil, ErrInvalidInput
	}

	if input.GrossKg <= 0 {
		return nil, &WeightError{Field: "gross_kg", Value: input.GrossKg}
	}
	if input.TareKg < 0 {
		return nil, &WeightError{Field: "tare_kg", Value: input.TareKg}
	}
	net := input.GrossKg - input.TareKg
	if net < 0 {
		return nil, &WeightError{Field: "net_kg", Value: net}
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if assignment == nil {
		return nil, ErrNotFound
	}
	if principal.IsDriver() && (principal.DriverID == nil || *principal.DriverID != assignment.DriverID) {
		return nil, ErrPermissionDenied
	}

	lot, err := s.lots.GetByID(ctx, assignment.LotID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, ErrNotFound
	}

	spec := flow.ForLot(lot.MineralType, lot.OperationType)
	if !spec.WeighingAllowed(weighingType, assignment.State) {
		return nil, ErrConflict
	}

	existing, err := s.weighings.FindByAssignmentAndType(ctx, id, weighingType)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateWeighing
	}

	record := &model.WeighingRecord{
		AssignmentID:       id,
		Type:               weighingType,
		GrossKg:            input.GrossKg,
		TareKg:             input.TareKg,
		NetKg:              net,
		Notes:              input.Notes,
		RegisteredByUserID: principal.UserID,
	}

	if err := s.weighings.Create(ctx, record); err != nil {
		return nil, err
	}

	return record, nil
}

func (s *WeighingService) ListByAssignment(ctx context.Context, principal model.Principal, assignmentID string) ([]model.WeighingRecord, error) {
	id, err := uuid.Parse(assignmentID)
	if err != nil {
		return nil, ErrInvalidInput
	}

	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if assignment == nil {
		return nil, ErrNotFound
	}
	if principal.IsDriver() && (principal.DriverID == nil || *principal.DriverID != assignment.DriverID) {
		return nil, ErrPermissionDenied
	}

	return s.weighings.ListByAssignmentID(ctx, id)
}
