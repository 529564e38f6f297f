package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/flow"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/model"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/notify"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/repository"
)

// Notifier receives domain events after a committed transition.
type Notifier interface {
	Publish(event notify.Event)
}

// TransportService owns the journey state of truck assignments. Telemetry
// never drives transitions: every Advance call is an explicit operator or
// driver action.
type TransportService struct {
	lots        LotStore
	assignments AssignmentStore
	weighings   WeighingStore
	zones       ZoneStore
	tracking    *TrackingService
	notifier    Notifier
	locks       *AssignmentLocks
	log         zerolog.Logger
}

func NewTransportService(
	lots LotStore,
	assignments AssignmentStore,
	weighings WeighingStore,
	zones ZoneStore,
	tracking *TrackingService,
	notifier Notifier,
	locks *AssignmentLocks,
	log zerolog.Logger,
) *TransportService {
	return &TransportService{
		lots:        lots,
		assignments: assignments,
		weighings:   weighings,
		zones:       zones,
		tracking:    tracking,
		notifier:    notifier,
		locks:       locks,
		log:         log,
	}
}

type ZoneInput struct {
	Kind      string
	Name      string
	Shape     string
	Vertices  []model.Vertex
	CenterLat float64
	CenterLng float64
	RadiusM   float64
}

type CreateLotInput struct {
	MineID          string
	DestinationID   string
	MineralType     string
	OperationType   string
	RequestedTrucks int
	Notes           string
	Zones           []ZoneInput
}

func (s *TransportService) CreateLot(ctx context.Context, principal model.Principal, input CreateLotInput) (*model.ShipmentLot, error) {
	if !principal.IsCooperative() && !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	mineID, err := uuid.Parse(input.MineID)
	if err != nil {
		return nil, ErrInvalidInput
	}
	destinationID, err := uuid.Parse(input.DestinationID)
	if err != nil {
		return nil, ErrInvalidInput
	}

	mineral := model.MineralType(input.MineralType)
	if mineral != model.MineralComplex && mineral != model.MineralConcentrate {
		return nil, ErrInvalidInput
	}
	operation := model.OperationType(input.OperationType)
	if operation != model.OperationDirectSale && operation != model.OperationPlantProcessing {
		return nil, ErrInvalidInput
	}
	if input.RequestedTrucks < 1 {
		return nil, ErrInvalidInput
	}

	lot := &model.ShipmentLot{
		CooperativeID:   principal.OrgID,
		MineID:          mineID,
		DestinationID:   destinationID,
		MineralType:     mineral,
		OperationType:   operation,
		RequestedTrucks: input.RequestedTrucks,
		Status:          model.LotStatusDraft,
		Notes:           input.Notes,
		CreatedByUserID: principal.UserID,
	}

	if err := s.lots.Create(ctx, lot); err != nil {
		return nil, err
	}

	for _, zi := range input.Zones {
		zone, err := buildZone(lot.ID, zi)
		if err != nil {
			return nil, err
		}
		if err := s.zones.Create(ctx, zone); err != nil {
			return nil, err
		}
	}

	return lot, nil
}

func buildZone(lotID uuid.UUID, input ZoneInput) (*model.GeofenceZone, error) {
	shape := model.ZoneShape(input.Shape)
	zone := &model.GeofenceZone{
		LotID:     lotID,
		Kind:      model.ControlPointKind(input.Kind),
		Name:      input.Name,
		Shape:     shape,
		CenterLat: input.CenterLat,
		CenterLng: input.CenterLng,
		RadiusM:   input.RadiusM,
	}
	switch shape {
	case model.ZoneShapePolygon:
		if len(input.Vertices) < 3 {
			return nil, ErrInvalidInput
		}
		raw, err := json.Marshal(input.Vertices)
		if err != nil {
			return nil, ErrInvalidInput
		}
		zone.Vertices = string(raw)
	case model.ZoneShapeCircle:
		if input.RadiusM <= 0 {
			return nil, ErrInvalidInput
		}
	default:
		return nil, ErrInvalidInput
	}
	return zone, nil
}

func (s *TransportService) GetLot(ctx context.Context, principal model.Principal, id string) (*model.ShipmentLot, []model.TruckAssignment, error) {
	lotID, err := uuid.Parse(id)
	if err != nil {
		return nil, nil, ErrInvalidInput
	}

	lot, err := s.lots.GetByID(ctx, lotID)
	if err != nil {
		return nil, nil, err
	}
	if lot == nil {
		return nil, nil, ErrNotFound
	}
	if !s.canAccessLot(principal, lot) {
		return nil, nil, ErrPermissionDenied
	}

	assignments, err := s.assignments.ListByLotID(ctx, lotID)
	if err != nil {
		return nil, nil, err
	}

	return lot, assignments, nil
}

func (s *TransportService) ListLots(ctx context.Context, principal model.Principal, filter repository.LotListFilter) ([]model.ShipmentLot, error) {
	if principal.IsAdmin() {
		// admins see everything
	} else if principal.IsCooperative() {
		orgID := principal.OrgID
		filter.CooperativeID = &orgID
	} else if principal.IsDriver() {
		if principal.DriverID == nil {
			return nil, ErrPermissionDenied
		}
		filter.DriverID = principal.DriverID
	} else {
		return nil, ErrPermissionDenied
	}

	return s.lots.List(ctx, filter)
}

func (s *TransportService) canAccessLot(principal model.Principal, lot *model.ShipmentLot) bool {
	if principal.IsAdmin() || principal.IsScaleOperator() {
		return true
	}
	if principal.IsCooperative() {
		return lot.CooperativeID == principal.OrgID
	}
	// drivers are checked against their assignment where it matters
	return principal.IsDriver()
}

type CreateAssignmentInput struct {
	CarrierID string
	DriverID  string
	Notes     string
}

// CreateAssignment fills the next truck slot of a lot. The journey state
// starts at the flow's initial state, selected once from the lot here and
// never re-derived per transition.
func (s *TransportService) CreateAssignment(ctx context.Context, principal model.Principal, lotID string, input CreateAssignmentInput) (*model.TruckAssignment, error) {
	if !principal.IsCooperative() && !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	id, err := uuid.Parse(lotID)
	if err != nil {
		return nil, ErrInvalidInput
	}
	carrierID, err := uuid.Parse(input.CarrierID)
	if err != nil {
		return nil, ErrInvalidInput
	}
	driverID, err := uuid.Parse(input.DriverID)
	if err != nil {
		return nil, ErrInvalidInput
	}

	lot, err := s.lots.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, ErrNotFound
	}
	if principal.IsCooperative() && lot.CooperativeID != principal.OrgID {
		return nil, ErrPermissionDenied
	}
	if lot.Status != model.LotStatusDraft && lot.Status != model.LotStatusWaitingToStart {
		return nil, ErrConflict
	}

	count, err := s.assignments.CountByLotID(ctx, id)
	if err != nil {
		return nil, err
	}
	if count >= int64(lot.RequestedTrucks) {
		return nil, ErrConflict
	}

	spec := flow.ForLot(lot.MineralType, lot.OperationType)
	assignment := &model.TruckAssignment{
		LotID:       id,
		CarrierID:   carrierID,
		DriverID:    driverID,
		TruckNumber: int(count) + 1,
		State:       spec.Initial(),
		Notes:       input.Notes,
	}

	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, err
	}

	if lot.Status == model.LotStatusDraft {
		if err := s.lots.UpdateStatus(ctx, lot.ID, model.LotStatusWaitingToStart, nil); err != nil {
			return nil, err
		}
	}

	return assignment, nil
}

// GetActiveAssignment returns the driver's current non-terminal assignment.
// A driver has at most one journey under way at a time.
func (s *TransportService) GetActiveAssignment(ctx context.Context, principal model.Principal) (*model.TruckAssignment, *model.ShipmentLot, error) {
	if !principal.IsDriver() || principal.DriverID == nil {
		return nil, nil, ErrPermissionDenied
	}

	assignment, err := s.assignments.FindActiveByDriver(ctx, *principal.DriverID)
	if err != nil {
		return nil, nil, err
	}
	if assignment == nil {
		return nil, nil, ErrNotFound
	}

	lot, err := s.lots.GetByID(ctx, assignment.LotID)
	if err != nil {
		return nil, nil, err
	}
	if lot == nil {
		return nil, nil, ErrNotFound
	}

	return assignment, lot, nil
}

func (s *TransportService) ListAssignments(ctx context.Context, principal model.Principal, lotID string) ([]model.TruckAssignment, error) {
	id, err := uuid.Parse(lotID)
	if err != nil {
		return nil, ErrInvalidInput
	}

	lot, err := s.lots.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, ErrNotFound
	}
	if !s.canAccessLot(principal, lot) {
		return nil, ErrPermissionDenied
	}

	return s.assignments.ListByLotID(ctx, id)
}

type AdvanceInput struct {
	NewState string
	Notes    string
}

type AdvanceResult struct {
	Assignment      *model.TruckAssignment `json:"assignment"`
	LotStateChanged bool                   `json:"lot_state_changed"`
	LotStatus       model.LotStatus        `json:"lot_status"`
}

// Advance validates and applies one journey-state transition. Requests for
// the state the assignment already sits in are rejected; idempotent retry
// detection belongs to the caller.
func (s *TransportService) Advance(ctx context.Context, principal model.Principal, assignmentID string, input AdvanceInput) (*AdvanceResult, error) {
	id, err := uuid.Parse(assignmentID)
	if err != nil {
		return nil, ErrInvalidInput
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

	lot, err := s.lots.GetByID(ctx, assignment.LotID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, ErrNotFound
	}

	if err := s.checkAdvancePermission(principal, assignment, lot); err != nil {
		return nil, err
	}

	target := model.AssignmentState(strings.TrimSpace(input.NewState))
	spec := flow.ForLot(lot.MineralType, lot.OperationType)
	if target == "" || !spec.Known(target) {
		return nil, ErrInvalidInput
	}
	if target == model.StateTripCancelled && principal.IsDriver() {
		// abandoning a journey is an administrative action
		return nil, ErrPermissionDenied
	}

	if target == assignment.State || !spec.CanTransition(assignment.State, target) {
		return nil, &TransitionError{
			Current:   assignment.State,
			Requested: target,
			Allowed:   spec.Allowed(assignment.State),
		}
	}

	now := time.Now().UTC()
	oldState := assignment.State
	assignment.State = target
	if target == spec.Departure() && assignment.StartedAt == nil {
		assignment.StartedAt = &now
	}
	if target.Terminal() && assignment.EndedAt == nil {
		assignment.EndedAt = &now
	}
	if input.Notes != "" {
		if assignment.Notes != "" {
			assignment.Notes += "\n"
		}
		assignment.Notes += input.Notes
	}

	if err := s.assignments.Update(ctx, assignment); err != nil {
		return nil, err
	}

	// the transition is committed; telemetry bookkeeping must not undo it
	if s.tracking != nil {
		if err := s.tracking.RecordStateEvent(ctx, assignment, lot, spec, oldState, target, now); err != nil {
			s.log.Error().Err(err).
				Str("assignment_id", assignment.ID.String()).
				Msg("failed to record state event")
		}
	}

	lotChanged, lotStatus, err := s.rollupLot(ctx, lot, spec, target)
	if err != nil {
		// the assignment transition stands; the rollup is derived state
		s.log.Error().Err(err).Str("lot_id", lot.ID.String()).Msg("lot rollup failed")
		lotChanged, lotStatus = false, lot.Status
	}

	if s.notifier != nil {
		eventType := notify.EventStateChanged
		if lotChanged && lotStatus == model.LotStatusCompleted {
			eventType = notify.EventLotCompleted
		}
		s.notifier.Publish(notify.Event{
			Type:            eventType,
			AssignmentID:    assignment.ID,
			LotID:           lot.ID,
			OldState:        string(oldState),
			NewState:        string(target),
			LotStateChanged: lotChanged,
			LotStatus:       string(lotStatus),
			At:              now,
		})
	}

	return &AdvanceResult{
		Assignment:      assignment,
		LotStateChanged: lotChanged,
		LotStatus:       lotStatus,
	}, nil
}

func (s *TransportService) checkAdvancePermission(principal model.Principal, assignment *model.TruckAssignment, lot *model.ShipmentLot) error {
	if principal.IsAdmin() {
		return nil
	}
	if principal.IsCooperative() && lot.CooperativeID == principal.OrgID {
		return nil
	}
	if principal.IsDriver() && principal.DriverID != nil && *principal.DriverID == assignment.DriverID {
		return nil
	}
	return ErrPermissionDenied
}

// rollupLot re-derives the lot status after a committed single-assignment
// write. Only when every sibling shares the target state does the lot
// move; at completion the realized weight is the sum of destination-scale
// net weights.
func (s *TransportService) rollupLot(ctx context.Context, lot *model.ShipmentLot, spec *flow.Spec, target model.AssignmentState) (bool, model.LotStatus, error) {
	siblings, err := s.assignments.ListByLotID(ctx, lot.ID)
	if err != nil {
		return false, lot.Status, err
	}
	if len(siblings) < lot.RequestedTrucks {
		return false, lot.Status, nil
	}
	for _, a := range siblings {
		if a.State != target {
			return false, lot.Status, nil
		}
	}

	status, ok := spec.LotStatusFor(target)
	if !ok || status == lot.Status {
		return false, lot.Status, nil
	}

	var totalNet *float64
	if status == model.LotStatusCompleted {
		sum, err := s.weighings.SumNetByLot(ctx, lot.ID, spec.DestinationWeighing)
		if err != nil {
			return false, lot.Status, err
		}
		totalNet = &sum
	}

	if err := s.lots.UpdateStatus(ctx, lot.ID, status, totalNet); err != nil {
		return false, lot.Status, err
	}
	lot.Status = status
	lot.TotalNetWeightKg = totalNet

	return true, status, nil
}
