// Package flow holds the fixed journey-state tables. One Spec fully
// describes a (mineral type, operation type) combination: the ordered
// states, the control-point sequence, the lot-status rollup and the
// weighing gates, so the pieces cannot drift apart.
package flow

import (
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/model"
)

type Variant string

const (
	VariantDirectSale      Variant = "direct_sale"
	VariantPlantProcessing Variant = "plant_processing"
	VariantConcentrate     Variant = "concentrate"
)

// Spec is the complete journey specification of one flow variant.
type Spec struct {
	Variant       Variant
	States        []model.AssignmentState
	ControlPoints []model.ControlPointKind

	// headsTo maps an en-route state to the control point the truck is
	// driving toward; atPoint maps a stationary state to the control point
	// the truck is standing at.
	headsTo map[model.AssignmentState]model.ControlPointKind
	atPoint map[model.AssignmentState]model.ControlPointKind

	lotRollup     map[model.AssignmentState]model.LotStatus
	weighingGates map[model.WeighingType][]model.AssignmentState

	// DestinationWeighing is the scale whose net weights make up the lot's
	// realized total once every truck finishes.
	DestinationWeighing model.WeighingType
}

var (
	directSale = &Spec{
		Variant: VariantDirectSale,
		States: []model.AssignmentState{
			model.StateWaitingToStart,
			model.StateEnRouteToMine,
			model.StateWaitingForLoading,
			model.StateEnRouteToCoopScale,
			model.StateEnRouteToTraderScale,
			model.StateEnRouteToWarehouse,
			model.StateTripFinished,
		},
		ControlPoints: []model.ControlPointKind{
			model.PointMine,
			model.PointCoopScale,
			model.PointTraderScale,
			model.PointWarehouse,
		},
		headsTo: map[model.AssignmentState]model.ControlPointKind{
			model.StateEnRouteToMine:        model.PointMine,
			model.StateEnRouteToCoopScale:   model.PointCoopScale,
			model.StateEnRouteToTraderScale: model.PointTraderScale,
			model.StateEnRouteToWarehouse:   model.PointWarehouse,
		},
		atPoint: map[model.AssignmentState]model.ControlPointKind{
			model.StateWaitingForLoading: model.PointMine,
			model.StateTripFinished:      model.PointWarehouse,
		},
		lotRollup: map[model.AssignmentState]model.LotStatus{
			model.StateWaitingToStart:       model.LotStatusWaitingToStart,
			model.StateEnRouteToMine:        model.LotStatusEnRouteToMine,
			model.StateWaitingForLoading:    model.LotStatusLoading,
			model.StateEnRouteToCoopScale:   model.LotStatusEnRouteToCoopScale,
			model.StateEnRouteToTraderScale: model.LotStatusEnRouteToTraderScale,
			model.StateEnRouteToWarehouse:   model.LotStatusEnRouteToWarehouse,
			model.StateTripFinished:         model.LotStatusCompleted,
			model.StateTripCancelled:        model.LotStatusCancelled,
		},
		weighingGates: map[model.WeighingType][]model.AssignmentState{
			model.WeighingOriginScale: {model.StateEnRouteToCoopScale},
			model.WeighingTraderScale: {model.StateEnRouteToTraderScale},
		},
		DestinationWeighing: model.WeighingTraderScale,
	}

	plantProcessing = &Spec{
		Variant: VariantPlantProcessing,
		States: []model.AssignmentState{
			model.StateWaitingToStart,
			model.StateEnRouteToMine,
			model.StateWaitingForLoading,
			model.StateEnRouteToCoopScale,
			model.StateEnRouteToProcessorScale,
			model.StateEnRouteToPlant,
			model.StateEnRouteToWarehouse,
			model.StateTripFinished,
		},
		ControlPoints: []model.ControlPointKind{
			model.PointMine,
			model.PointCoopScale,
			model.PointProcessorScale,
			model.PointPlant,
			model.PointWarehouse,
		},
		headsTo: map[model.AssignmentState]model.ControlPointKind{
			model.StateEnRouteToMine:           model.PointMine,
			model.StateEnRouteToCoopScale:      model.PointCoopScale,
			model.StateEnRouteToProcessorScale: model.PointProcessorScale,
			model.StateEnRouteToPlant:          model.PointPlant,
			model.StateEnRouteToWarehouse:      model.PointWarehouse,
		},
		atPoint: map[model.AssignmentState]model.ControlPointKind{
			model.StateWaitingForLoading: model.PointMine,
			model.StateTripFinished:      model.PointWarehouse,
		},
		lotRollup: map[model.AssignmentState]model.LotStatus{
			model.StateWaitingToStart:          model.LotStatusWaitingToStart,
			model.StateEnRouteToMine:           model.LotStatusEnRouteToMine,
			model.StateWaitingForLoading:       model.LotStatusLoading,
			model.StateEnRouteToCoopScale:      model.LotStatusEnRouteToCoopScale,
			model.StateEnRouteToProcessorScale: model.LotStatusEnRouteToProcessorScale,
			model.StateEnRouteToPlant:          model.LotStatusEnRouteToPlant,
			model.StateEnRouteToWarehouse:      model.LotStatusEnRouteToWarehouse,
			model.StateTripFinished:            model.LotStatusCompleted,
			model.StateTripCancelled:           model.LotStatusCancelled,
		},
		weighingGates: map[model.WeighingType][]model.AssignmentState{
			model.WeighingOriginScale:    {model.StateEnRouteToCoopScale},
			model.WeighingProcessorScale: {model.StateEnRouteToProcessorScale},
		},
		DestinationWeighing: model.WeighingProcessorScale,
	}

	concentrate = &Spec{
		Variant: VariantConcentrate,
		States: []model.AssignmentState{
			model.StateWaitingToStartTrip,
			model.StateEnRouteToMine,
			model.StateWaitingForLoading,
			model.StateEnRouteToCoopScale,
			model.StateEnRouteToProcessorScale,
			model.StateEnRouteToTraderScale,
			model.StateEnRouteToWarehouse,
			model.StateTripFinished,
		},
		ControlPoints: []model.ControlPointKind{
			model.PointMine,
			model.PointCoopScale,
			model.PointProcessorScale,
			model.PointTraderScale,
			model.PointWarehouse,
		},
		headsTo: map[model.AssignmentState]model.ControlPointKind{
			model.StateEnRouteToMine:           model.PointMine,
			model.StateEnRouteToCoopScale:      model.PointCoopScale,
			model.StateEnRouteToProcessorScale: model.PointProcessorScale,
			model.StateEnRouteToTraderScale:    model.PointTraderScale,
			model.StateEnRouteToWarehouse:      model.PointWarehouse,
		},
		atPoint: map[model.AssignmentState]model.ControlPointKind{
			model.StateWaitingForLoading: model.PointMine,
			model.StateTripFinished:      model.PointWarehouse,
		},
		lotRollup: map[model.AssignmentState]model.LotStatus{
			model.StateWaitingToStartTrip:      model.LotStatusWaitingToStart,
			model.StateEnRouteToMine:           model.LotStatusEnRouteToMine,
			model.StateWaitingForLoading:       model.LotStatusLoading,
			model.StateEnRouteToCoopScale:      model.LotStatusEnRouteToCoopScale,
			model.StateEnRouteToProcessorScale: model.LotStatusEnRouteToProcessorScale,
			model.StateEnRouteToTraderScale:    model.LotStatusEnRouteToTraderScale,
			model.StateEnRouteToWarehouse:      model.LotStatusEnRouteToWarehouse,
			model.StateTripFinished:            model.LotStatusCompleted,
			model.StateTripCancelled:           model.LotStatusCancelled,
		},
		weighingGates: map[model.WeighingType][]model.AssignmentState{
			model.WeighingOriginScale:    {model.StateEnRouteToCoopScale},
			model.WeighingProcessorScale: {model.StateEnRouteToProcessorScale},
			model.WeighingTraderScale:    {model.StateEnRouteToTraderScale},
		},
		DestinationWeighing: model.WeighingTraderScale,
	}
)

// ForLot selects the flow for a lot. Concentrate always wins; complex ore
// splits by operation type. Evaluated once per assignment, never per
// transition.
func ForLot(mineral model.MineralType, operation model.OperationType) *Spec {
	if mineral == model.MineralConcentrate {
		return concentrate
	}
	if operation == model.OperationPlantProcessing {
		return plantProcessing
	}
	return directSale
}

// Initial is the state a fresh assignment starts in.
func (s *Spec) Initial() model.AssignmentState {
	return s.States[0]
}

// Departure is the state whose entry stamps the assignment's start time.
func (s *Spec) Departure() model.AssignmentState {
	return s.States[1]
}

// Terminal is the regular end state of the flow.
func (s *Spec) Terminal() model.AssignmentState {
	return s.States[len(s.States)-1]
}

// Allowed returns the successor set of a state. The ordinary successor is
// the next state in the chain; every non-terminal state may also be
// cancelled administratively.
func (s *Spec) Allowed(from model.AssignmentState) []model.AssignmentState {
	if from.Terminal() {
		return nil
	}
	var out []model.AssignmentState
	for i, st := range s.States {
		if st == from && i+1 < len(s.States) {
			out = append(out, s.States[i+1])
			break
		}
	}
	out = append(out, model.StateTripCancelled)
	return out
}

// CanTransition reports whether requesting target from current is valid.
func (s *Spec) CanTransition(current, target model.AssignmentState) bool {
	for _, st := range s.Allowed(current) {
		if st == target {
			return true
		}
	}
	return false
}

// Known reports whether the state belongs to this flow at all.
func (s *Spec) Known(state model.AssignmentState) bool {
	if state == model.StateTripCancelled {
		return true
	}
	for _, st := range s.States {
		if st == state {
			return true
		}
	}
	return false
}

// HeadsTo returns the control point an en-route state is driving toward,
// or "" for stationary states.
func (s *Spec) HeadsTo(state model.AssignmentState) model.ControlPointKind {
	return s.headsTo[state]
}

// AtPoint returns the control point a stationary state is standing at.
func (s *Spec) AtPoint(state model.AssignmentState) model.ControlPointKind {
	return s.atPoint[state]
}

// LotStatusFor maps a truck state all siblings share to the lot status.
func (s *Spec) LotStatusFor(state model.AssignmentState) (model.LotStatus, bool) {
	status, ok := s.lotRollup[state]
	return status, ok
}

// WeighingAllowed reports whether a weighing of the given type may be
// registered while the assignment sits in the given state.
func (s *Spec) WeighingAllowed(t model.WeighingType, state model.AssignmentState) bool {
	for _, st := range s.weighingGates[t] {
		if st == state {
			return true
		}
	}
	return false
}

// PointIndex returns the position of a control point in the journey
// sequence, or -1 when the flow never visits it.
func (s *Spec) PointIndex(kind model.ControlPointKind) int {
	for i, k := range s.ControlPoints {
		if k == kind {
			return i
		}
	}
	return -1
}
