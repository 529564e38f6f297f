package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/flow"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/model"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/notify"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/repository"
)

type transportFixture struct {
	lots        *fakeLotStore
	assignments *fakeAssignmentStore
	weighings   *fakeWeighingStore
	zones       *fakeZoneStore
	tracking    *fakeTrackingStore
	notifier    *fakeNotifier
	trackingSvc *TrackingService
	svc         *TransportService
}

func newTransportFixture() *transportFixture {
	lots := newFakeLotStore()
	assignments := newFakeAssignmentStore()
	weighings := newFakeWeighingStore(assignments)
	zones := newFakeZoneStore()
	tracking := newFakeTrackingStore()
	notifier := &fakeNotifier{}
	locks := NewAssignmentLocks()
	log := zerolog.Nop()

	trackingSvc := NewTrackingService(tracking, assignments, lots, zones, locks, TrackingOptions{}, log)
	svc := NewTransportService(lots, assignments, weighings, zones, trackingSvc, notifier, locks, log)

	return &transportFixture{
		lots:        lots,
		assignments: assignments,
		weighings:   weighings,
		zones:       zones,
		tracking:    tracking,
		notifier:    notifier,
		trackingSvc: trackingSvc,
		svc:         svc,
	}
}

func adminPrincipal() model.Principal {
	return model.Principal{UserID: uuid.New(), OrgID: uuid.New(), Role: model.RoleAdmin}
}

func cooperativePrincipal(orgID uuid.UUID) model.Principal {
	return model.Principal{UserID: uuid.New(), OrgID: orgID, Role: model.RoleCooperative}
}

func driverPrincipal(driverID uuid.UUID) model.Principal {
	return model.Principal{UserID: uuid.New(), OrgID: uuid.New(), Role: model.RoleDriver, DriverID: &driverID}
}

func scaleOperatorPrincipal() model.Principal {
	return model.Principal{UserID: uuid.New(), OrgID: uuid.New(), Role: model.RoleScaleOperator}
}

func seedLot(t *testing.T, f *transportFixture, mineral model.MineralType, operation model.OperationType, trucks int) *model.ShipmentLot {
	t.Helper()
	lot := &model.ShipmentLot{
		CooperativeID:   uuid.New(),
		MineID:          uuid.New(),
		DestinationID:   uuid.New(),
		MineralType:     mineral,
		OperationType:   operation,
		RequestedTrucks: trucks,
		Status:          model.LotStatusWaitingToStart,
		CreatedByUserID: uuid.New(),
	}
	require.NoError(t, f.lots.Create(context.Background(), lot))
	return lot
}

func seedAssignment(t *testing.T, f *transportFixture, lot *model.ShipmentLot, state model.AssignmentState) *model.TruckAssignment {
	t.Helper()
	assignment := &model.TruckAssignment{
		LotID:       lot.ID,
		CarrierID:   uuid.New(),
		DriverID:    uuid.New(),
		TruckNumber: 1,
		State:       state,
	}
	require.NoError(t, f.assignments.Create(context.Background(), assignment))
	return assignment
}

func TestCreateLot(t *testing.T) {
	f := newTransportFixture()
	coop := cooperativePrincipal(uuid.New())

	lot, err := f.svc.CreateLot(context.Background(), coop, CreateLotInput{
		MineID:          uuid.New().String(),
		DestinationID:   uuid.New().String(),
		MineralType:     "complex",
		OperationType:   "direct_sale",
		RequestedTrucks: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, model.LotStatusDraft, lot.Status)
	assert.Equal(t, coop.OrgID, lot.CooperativeID)
	assert.Equal(t, 3, lot.RequestedTrucks)
}

func TestCreateLotValidation(t *testing.T) {
	f := newTransportFixture()
	coop := cooperativePrincipal(uuid.New())

	base := CreateLotInput{
		MineID:          uuid.New().String(),
		DestinationID:   uuid.New().String(),
		MineralType:     "complex",
		OperationType:   "direct_sale",
		RequestedTrucks: 1,
	}

	bad := base
	bad.MineralType = "gold"
	_, err := f.svc.CreateLot(context.Background(), coop, bad)
	assert.ErrorIs(t, err, ErrInvalidInput)

	bad = base
	bad.OperationType = "export"
	_, err = f.svc.CreateLot(context.Background(), coop, bad)
	assert.ErrorIs(t, err, ErrInvalidInput)

	bad = base
	bad.RequestedTrucks = 0
	_, err = f.svc.CreateLot(context.Background(), coop, bad)
	assert.ErrorIs(t, err, ErrInvalidInput)

	bad = base
	bad.MineID = "not-a-uuid"
	_, err = f.svc.CreateLot(context.Background(), coop, bad)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.CreateLot(context.Background(), driverPrincipal(uuid.New()), base)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestCreateLotWithZones(t *testing.T) {
	f := newTransportFixture()
	coop := cooperativePrincipal(uuid.New())

	input := CreateLotInput{
		MineID:          uuid.New().String(),
		DestinationID:   uuid.New().String(),
		MineralType:     "complex",
		OperationType:   "direct_sale",
		RequestedTrucks: 1,
		Zones: []ZoneInput{
			{
				Kind:  "mine",
				Name:  "Mina San Jose",
				Shape: "polygon",
				Vertices: []model.Vertex{
					{Lat: -19.58, Lng: -65.76},
					{Lat: -19.58, Lng: -65.74},
					{Lat: -19.56, Lng: -65.75},
				},
			},
			{Kind: "coop_scale", Name: "Balanza Coop", Shape: "circle", CenterLat: -19.55, CenterLng: -65.72, RadiusM: 150},
		},
	}

	lot, err := f.svc.CreateLot(context.Background(), coop, input)
	require.NoError(t, err)

	zones, err := f.zones.ListByLotID(context.Background(), lot.ID)
	require.NoError(t, err)
	require.Len(t, zones, 2)

	// A polygon needs at least three vertices.
	input.Zones[0].Vertices = input.Zones[0].Vertices[:2]
	_, err = f.svc.CreateLot(context.Background(), coop, input)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// A circle needs a positive radius.
	input.Zones = []ZoneInput{{Kind: "warehouse", Shape: "circle", RadiusM: 0}}
	_, err = f.svc.CreateLot(context.Background(), coop, input)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateAssignmentFillsSlots(t *testing.T) {
	f := newTransportFixture()
	lot := seedLot(t, f, model.MineralComplex, model.OperationDirectSale, 2)
	require.NoError(t, f.lots.UpdateStatus(context.Background(), lot.ID, model.LotStatusDraft, nil))
	coop := cooperativePrincipal(lot.CooperativeID)

	first, err := f.svc.CreateAssignment(context.Background(), coop, lot.ID.String(), CreateAssignmentInput{
		CarrierID: uuid.New().String(),
		DriverID:  uuid.New().String(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, first.TruckNumber)
	assert.Equal(t, model.StateWaitingToStart, first.State)
	assert.Nil(t, first.StartedAt)

	// first assignment moves the lot out of draft
	stored, err := f.lots.GetByID(context.Background(), lot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LotStatusWaitingToStart, stored.Status)

	second, err := f.svc.CreateAssignment(context.Background(), coop, lot.ID.String(), CreateAssignmentInput{
		CarrierID: uuid.New().String(),
		DriverID:  uuid.New().String(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, second.TruckNumber)

	_, err = f.svc.CreateAssignment(context.Background(), coop, lot.ID.String(), CreateAssignmentInput{
		CarrierID: uuid.New().String(),
		DriverID:  uuid.New().String(),
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateAssignmentConcentrateInitialState(t *testing.T) {
	f := newTransportFixture()
	lot := seedLot(t, f, model.MineralConcentrate, model.OperationDirectSale, 1)
	coop := cooperativePrincipal(lot.CooperativeID)

	assignment, err := f.svc.CreateAssignment(context.Background(), coop, lot.ID.String(), CreateAssignmentInput{
		CarrierID: uuid.New().String(),
		DriverID:  uuid.New().String(),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StateWaitingToStartTrip, assignment.State)
}

func TestCreateAssignmentOtherCooperativeDenied(t *testing.T) {
	f := newTransportFixture()
	lot := seedLot(t, f, model.MineralComplex, model.OperationDirectSale, 1)

	_, err := f.svc.CreateAssignment(context.Background(), cooperativePrincipal(uuid.New()), lot.ID.String(), CreateAssignmentInput{
		CarrierID: uuid.New().String(),
		DriverID:  uuid.New().String(),
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestAdvanceFullDirectSaleJourney(t *testing.T) {
	f := newTransportFixture()
	lot := seedLot(t, f, model.MineralComplex, model.OperationDirectSale, 1)
	assignment := seedAssignment(t, f, lot, model.StateWaitingToStart)
	admin := adminPrincipal()

	spec := flow.ForLot(lot.MineralType, lot.OperationType)
	states := spec.States[1:]

	for _, target := range states {
		result, err := f.svc.Advance(context.Background(), admin, assignment.ID.String(), AdvanceInput{
			NewState: string(target),
		})
		require.NoError(t, err, "advancing to %s", target)
		assert.Equal(t, target, result.Assignment.State)
	}

	final, err := f.assignments.GetByID(context.Background(), assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateTripFinished, final.State)
	require.NotNil(t, final.StartedAt)
	require.NotNil(t, final.EndedAt)
	assert.False(t, final.EndedAt.Before(*final.StartedAt))

	storedLot, err := f.lots.GetByID(context.Background(), lot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LotStatusCompleted, storedLot.Status)
}

func TestAdvanceRejectsSkippedState(t *testing.T) {
	f := newTransportFixture()
	lot := seedLot(t, f, model.MineralComplex, model.OperationDirectSale, 1)
	assignment := seedAssignment(t, f, lot, model.StateWaitingToStart)

	_, err := f.svc.Advance(context.Background(), adminPrincipal(), assignment.ID.String(), AdvanceInput{
		NewState: string(model.StateWaitingForLoading),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	var transitionErr *TransitionError
	require.True(t, errors.As(err, &transitionErr))
	assert.Equal(t, model.StateWaitingToStart, transitionErr.Current)
	assert.Equal(t, model.StateWaitingForLoading, transitionErr.Requested)
	assert.Contains(t, transitionErr.Allowed, model.StateEnRouteToMine)
	assert.Contains(t, transitionErr.Allowed, model.StateTripCancelled)

	// the rejected request changed nothing
	stored, err := f.assignments.GetByID(context.Background(), assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateWaitingToStart, stored.State)
	assert.Empty(t, f.notifier.Events())
}

func TestAdvanceRejectsSameState(t *testing.T) {
	f := newTransportFixture()
	lot := seedLot(t, f, model.MineralComplex, model.OperationDirectSale, 1)
	assignment := seedAssignment(t, f, lot, model.StateEnRouteToMine)

	_, err := f.svc.Advance(context.Background(), adminPrincipal(), assignment.ID.String(), AdvanceInput{
		NewState: string(model.StateEnRouteToMine),
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAdvanceRejectsStateFromOtherFlow(t *testing.T) {
	f := newTransportFixture()
	lot := seedLot(t, f, model.MineralComplex, model.OperationDirectSale, 1)
	assignment := seedAssignment(t, f, lot, model.StateEnRouteToCoopScale)

	_, err := f.svc.Advance(context.Background(), adminPrincipal(), assignment.ID.String(), AdvanceInput{
		NewState: string(model.StateEnRouteToPlant),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAdvanceCancellation(t *testing.T) {
	f := newTransportFixture()
	lot := seedLot(t, f, model.MineralComplex, model.OperationDirectSale, 1)
	assignment := seedAssignment(t, f, lot, model.StateEnRouteToCoopScale)

	// drivers may not abandon a journey
	_, err := f.svc.Advance(context.Background(), driverPrincipal(assignment.DriverID), assignment.ID.String(), AdvanceInput{
		NewState: string(model.StateTripCancelled),
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	result, err := f.svc.Advance(context.Background(), adminPrincipal(), assignment.ID.String(), AdvanceInput{
		NewState: string(model.StateTripCancelled),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StateTripCancelled, result.Assignment.State)
	require.NotNil(t, result.Assignment.EndedAt)

	// cancelled is terminal
	_, err = f.svc.Advance(context.Background(), adminPrincipal(), assignment.ID.String(), AdvanceInput{
		NewState: string(model.StateEnRouteToTraderScale),
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAdvancePermission(t *testing.T) {
	f := newTransportFixture()
	lot := seedLot(t, f, model.MineralComplex, model.OperationDirectSale, 1)
	assignment := seedAssignment(t, f, lot, model.StateWaitingToStart)

	input := AdvanceInput{NewState: string(model.StateEnRouteToMine)}

	_, err := f.svc.Advance(context.Background(), cooperativePrincipal(uuid.New()), assignment.ID.String(), input)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = f.svc.Advance(context.Background(), driverPrincipal(uuid.New()), assignment.ID.String(), input)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// the assigned driver may advance their own journey
	_, err = f.svc.Advance(context.Background(), driverPrincipal(assignment.DriverID), assignment.ID.String(), input)
	assert.NoError(t, err)
}

func TestAdvanceUnknownAssignment(t *testing.T) {
	f := newTransportFixture()

	_, err := f.svc.Advance(context.Background(), adminPrincipal(), uuid.New().String(), AdvanceInput{
		NewState: string(model.StateEnRouteToMine),
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Advance(context.Background(), adminPrincipal(), "not-a-uuid", AdvanceInput{
		NewState: string(model.StateEnRouteToMine),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLotRollupWaitsForAllTrucks(t *testing.T) {
	f := newTransportFixture()
	lot := seedLot(t, f, model.MineralComplex, model.OperationDirectSale, 2)
	first := seedAssignment(t, f, lot, model.StateWaitingToStart)
	second := seedAssignment(t, f, lot, model.StateWaitingToStart)
	admin := adminPrincipal()

	result, err := f.svc.Advance(context.Background(), admin, first.ID.String(), AdvanceInput{
		NewState: string(model.StateEnRouteToMine),
	})
	require.NoError(t, err)
	assert.False(t, result.LotStateChanged)
	assert.Equal(t, model.LotStatusWaitingToStart, result.LotStatus)

	// the second truck catching up moves the lot
	result, err = f.svc.Advance(context.Background(), admin, second.ID.String(), AdvanceInput{
		NewState: string(model.StateEnRouteToMine),
	})
	require.NoError(t, err)
	assert.True(t, result.LotStateChanged)
	assert.Equal(t, model.LotStatusEnRouteToMine, result.LotStatus)

	stored, err := f.lots.GetByID(context.Background(), lot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LotStatusEnRouteToMine, stored.Status)
}

func TestLotRollupWaitsForUnfilledSlots(t *testing.T) {
	f := newTransportFixture()
	lot := seedLot(t, f, model.MineralComplex, model.OperationDirectSale, 2)
	only := seedAssignment(t, f, lot, model.StateWaitingToStart)

	result, err := f.svc.Advance(context.Background(), adminPrincipal(), only.ID.String(), AdvanceInput{
		NewState: string(model.StateEnRouteToMine),
	})
	require.NoError(t, err)
	assert.False(t, result.LotStateChanged)
}

func TestLotCompletionSumsDestinationWeighings(t *testing.T) {
	f := newTransportFixture()
	lot := seedLot(t, f, model.MineralComplex, model.OperationDirectSale, 2)
	first := seedAssignment(t, f, lot, model.StateEnRouteToWarehouse)
	second := seedAssignment(t, f, lot, model.StateEnRouteToWarehouse)
	admin := adminPrincipal()

	for i, a := range []*model.TruckAssignment{first, second} {
		require.NoError(t, f.weighings.Create(context.Background(), &model.WeighingRecord{
			AssignmentID: a.ID,
			Type:         model.WeighingTraderScale,
			GrossKg:      12000 + float64(i)*1000,
			TareKg:       7000,
			NetKg:        5000 + float64(i)*1000,
		}))
		// origin weighings never enter the realized total
		require.NoError(t, f.weighings.Create(context.Background(), &model.WeighingRecord{
			AssignmentID: a.ID,
			Type:         model.WeighingOriginScale,
			GrossKg:      13000,
			TareKg:       7000,
			NetKg:        6000,
		}))
	}

	_, err := f.svc.Advance(context.Background(), admin, first.ID.String(), AdvanceInput{
		NewState: string(model.StateTripFinished),
	})
	require.NoError(t, err)

	result, err := f.svc.Advance(context.Background(), admin, second.ID.String(), AdvanceInput{
		NewState: string(model.StateTripFinished),
	})
	require.NoError(t, err)
	assert.True(t, result.LotStateChanged)
	assert.Equal(t, model.LotStatusCompleted, result.LotStatus)

	stored, err := f.lots.GetByID(context.Background(), lot.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.TotalNetWeightKg)
	assert.InDelta(t, 11000, *stored.TotalNetWeightKg, 1e-9)

	events := f.notifier.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, notify.EventLotCompleted, events[len(events)-1].Type)
}

func TestAdvancePublishesStateChange(t *testing.T) {
	f := newTransportFixture()
	lot := seedLot(t, f, model.MineralComplex, model.OperationDirectSale, 1)
	assignment := seedAssignment(t, f, lot, model.StateWaitingToStart)

	_, err := f.svc.Advance(context.Background(), adminPrincipal(), assignment.ID.String(), AdvanceInput{
		NewState: string(model.StateEnRouteToMine),
	})
	require.NoError(t, err)

	events := f.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notify.EventStateChanged, events[0].Type)
	assert.Equal(t, assignment.ID, events[0].AssignmentID)
	assert.Equal(t, string(model.StateWaitingToStart), events[0].OldState)
	assert.Equal(t, string(model.StateEnRouteToMine), events[0].NewState)
}

func TestAdvanceRecordsStateEvent(t *testing.T) {
	f := newTransportFixture()
	lot := seedLot(t, f, model.MineralComplex, model.OperationDirectSale, 1)
	assignment := seedAssignment(t, f, lot, model.StateEnRouteToMine)

	_, err := f.svc.Advance(context.Background(), adminPrincipal(), assignment.ID.String(), AdvanceInput{
		NewState: string(model.StateWaitingForLoading),
	})
	require.NoError(t, err)

	record, err := f.tracking.GetByAssignmentID(context.Background(), assignment.ID.String())
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Len(t, record.StateEvents, 1)
	assert.Equal(t, model.StateEnRouteToMine, record.StateEvents[0].FromState)
	assert.Equal(t, model.StateWaitingForLoading, record.StateEvents[0].ToState)
}

func TestGetActiveAssignment(t *testing.T) {
	f := newTransportFixture()
	lot := seedLot(t, f, model.MineralComplex, model.OperationDirectSale, 1)
	assignment := seedAssignment(t, f, lot, model.StateEnRouteToCoopScale)
	ctx := context.Background()

	got, gotLot, err := f.svc.GetActiveAssignment(ctx, driverPrincipal(assignment.DriverID))
	require.NoError(t, err)
	assert.Equal(t, assignment.ID, got.ID)
	assert.Equal(t, lot.ID, gotLot.ID)

	_, _, err = f.svc.GetActiveAssignment(ctx, driverPrincipal(uuid.New()))
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = f.svc.GetActiveAssignment(ctx, adminPrincipal())
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// a finished journey is no longer active
	_, err = f.svc.Advance(ctx, adminPrincipal(), assignment.ID.String(), AdvanceInput{
		NewState: string(model.StateTripCancelled),
	})
	require.NoError(t, err)
	_, _, err = f.svc.GetActiveAssignment(ctx, driverPrincipal(assignment.DriverID))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetLotAndList(t *testing.T) {
	f := newTransportFixture()
	lot := seedLot(t, f, model.MineralComplex, model.OperationDirectSale, 1)
	seedAssignment(t, f, lot, model.StateWaitingToStart)

	got, assignments, err := f.svc.GetLot(context.Background(), cooperativePrincipal(lot.CooperativeID), lot.ID.String())
	require.NoError(t, err)
	assert.Equal(t, lot.ID, got.ID)
	assert.Len(t, assignments, 1)

	_, _, err = f.svc.GetLot(context.Background(), cooperativePrincipal(uuid.New()), lot.ID.String())
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, _, err = f.svc.GetLot(context.Background(), adminPrincipal(), uuid.New().String())
	assert.ErrorIs(t, err, ErrNotFound)

	coopLots, err := f.svc.ListLots(context.Background(), cooperativePrincipal(lot.CooperativeID), repository.LotListFilter{})
	require.NoError(t, err)
	assert.Len(t, coopLots, 1)

	otherLots, err := f.svc.ListLots(context.Background(), cooperativePrincipal(uuid.New()), repository.LotListFilter{})
	require.NoError(t, err)
	assert.Empty(t, otherLots)
}
