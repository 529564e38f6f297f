package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/client"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/flow"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/geo"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/model"
)

const (
	RouteSourceProvider     = "provider"
	RouteSourceStraightLine = "straight_line"
)

// RoutingProvider returns road distance and duration for an ordered
// waypoint list.
type RoutingProvider interface {
	Route(ctx context.Context, waypoints []geo.Point) (*client.RouteResult, error)
}

// RouteService estimates the journey's distance and time for display and
// ETA. Estimates never gate transitions or weighings, so a provider
// failure silently degrades to a straight-line estimate.
type RouteService struct {
	assignments AssignmentStore
	lots        LotStore
	zones       ZoneStore
	provider    RoutingProvider
	avgSpeedKmh float64
	log         zerolog.Logger
}

func NewRouteService(
	assignments AssignmentStore,
	lots LotStore,
	zones ZoneStore,
	provider RoutingProvider,
	avgSpeedKmh float64,
	log zerolog.Logger,
) *RouteService {
	if avgSpeedKmh <= 0 {
		avgSpeedKmh = 35
	}
	return &RouteService{
		assignments: assignments,
		lots:        lots,
		zones:       zones,
		provider:    provider,
		avgSpeedKmh: avgSpeedKmh,
		log:         log,
	}
}

type RouteEstimateLeg struct {
	From            model.ControlPointKind `json:"from"`
	To              model.ControlPointKind `json:"to"`
	DistanceKm      float64                `json:"distance_km"`
	DurationSeconds int64                  `json:"duration_seconds"`
}

type RouteEstimate struct {
	DistanceKm      float64            `json:"distance_km"`
	DurationSeconds int64              `json:"duration_seconds"`
	Source          string             `json:"source"`
	Legs            []RouteEstimateLeg `json:"legs"`
}

func (s *RouteService) EstimateForAssignment(ctx context.Context, principal model.Principal, assignmentID string) (*RouteEstimate, error) {
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

	lot, err := s.lots.GetByID(ctx, assignment.LotID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, ErrNotFound
	}
	if principal.IsCooperative() && lot.CooperativeID != principal.OrgID {
		return nil, ErrPermissionDenied
	}

	spec := flow.ForLot(lot.MineralType, lot.OperationType)
	waypoints, kinds, err := s.journeyWaypoints(ctx, lot.ID, spec)
	if err != nil {
		return nil, err
	}

	if s.provider != nil {
		result, err := s.provider.Route(ctx, waypoints)
		if err == nil && len(result.Legs) == len(waypoints)-1 {
			return buildEstimate(result, kinds), nil
		}
		if err != nil {
			s.log.Warn().Err(err).
				Str("assignment_id", assignmentID).
				Msg("routing provider unavailable, using straight-line estimate")
		}
	}

	return s.straightLineEstimate(waypoints, kinds), nil
}

// journeyWaypoints resolves the flow's control points to coordinates, in
// journey order. Every zone of the flow must be configured on the lot.
func (s *RouteService) journeyWaypoints(ctx context.Context, lotID uuid.UUID, spec *flow.Spec) ([]geo.Point, []model.ControlPointKind, error) {
	waypoints := make([]geo.Point, 0, len(spec.ControlPoints))
	for _, kind := range spec.ControlPoints {
		zone, err := s.zones.GetByLotAndKind(ctx, lotID, kind)
		if err != nil {
			return nil, nil, err
		}
		if zone == nil {
			return nil, nil, ErrConflict
		}
		center := geo.Point{Lat: zone.CenterLat, Lng: zone.CenterLng}
		if zone.Shape == model.ZoneShapePolygon {
			vertices, err := zone.Ring()
			if err != nil {
				return nil, nil, err
			}
			ring := make([]geo.Point, 0, len(vertices))
			for _, v := range vertices {
				ring = append(ring, geo.Point{Lat: v.Lat, Lng: v.Lng})
			}
			if geo.ValidRing(ring) {
				center = geo.Centroid(ring)
			}
		}
		waypoints = append(waypoints, center)
	}
	return waypoints, spec.ControlPoints, nil
}

func buildEstimate(result *client.RouteResult, kinds []model.ControlPointKind) *RouteEstimate {
	estimate := &RouteEstimate{
		DistanceKm:      result.DistanceMeters / 1000,
		DurationSeconds: int64(result.DurationSeconds),
		Source:          RouteSourceProvider,
	}
	for i, leg := range result.Legs {
		estimate.Legs = append(estimate.Legs, RouteEstimateLeg{
			From:            kinds[i],
			To:              kinds[i+1],
			DistanceKm:      leg.DistanceMeters / 1000,
			DurationSeconds: int64(leg.DurationSeconds),
		})
	}
	return estimate
}

func (s *RouteService) straightLineEstimate(waypoints []geo.Point, kinds []model.ControlPointKind) *RouteEstimate {
	estimate := &RouteEstimate{Source: RouteSourceStraightLine}
	for i := 1; i < len(waypoints); i++ {
		distKm := geo.HaversineKm(waypoints[i-1], waypoints[i])
		durationSeconds := int64(distKm / s.avgSpeedKmh * 3600)
		estimate.DistanceKm += distKm
		estimate.DurationSeconds += durationSeconds
		estimate.Legs = append(estimate.Legs, RouteEstimateLeg{
			From:            kinds[i-1],
			To:              kinds[i],
			DistanceKm:      distKm,
			DurationSeconds: durationSeconds,
		})
	}
	return estimate
}
