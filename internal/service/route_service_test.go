package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/client"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/geo"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/model"
)

type fakeRoutingProvider struct {
	result    *client.RouteResult
	err       error
	waypoints []geo.Point
}

func (p *fakeRoutingProvider) Route(_ context.Context, waypoints []geo.Point) (*client.RouteResult, error) {
	p.waypoints = waypoints
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

func newRouteFixture(provider RoutingProvider) (*transportFixture, *RouteService) {
	f := newTransportFixture()
	svc := NewRouteService(f.assignments, f.lots, f.zones, provider, 35, zerolog.Nop())
	return f, svc
}

func seedJourneyZones(t *testing.T, f *transportFixture, lot *model.ShipmentLot) {
	t.Helper()
	coords := map[model.ControlPointKind][2]float64{
		model.PointMine:           {-19.60, -65.80},
		model.PointCoopScale:      {-19.55, -65.72},
		model.PointProcessorScale: {-19.50, -65.68},
		model.PointTraderScale:    {-19.45, -65.60},
		model.PointPlant:          {-19.42, -65.55},
		model.PointWarehouse:      {-19.40, -65.50},
	}
	for kind, c := range coords {
		seedCircleZone(t, f, lot.ID, kind, c[0], c[1], 150)
	}
}

func TestEstimateUsesProvider(t *testing.T) {
	provider := &fakeRoutingProvider{
		result: &client.RouteResult{
			DistanceMeters:  42000,
			DurationSeconds: 3600,
			Legs: []client.RouteLeg{
				{DistanceMeters: 10000, DurationSeconds: 900},
				{DistanceMeters: 12000, DurationSeconds: 1000},
				{DistanceMeters: 20000, DurationSeconds: 1700},
			},
		},
	}
	f, svc := newRouteFixture(provider)
	lot := seedLot(t, f, model.MineralComplex, model.OperationDirectSale, 1)
	seedJourneyZones(t, f, lot)
	assignment := seedAssignment(t, f, lot, model.StateEnRouteToMine)

	estimate, err := svc.EstimateForAssignment(context.Background(), adminPrincipal(), assignment.ID.String())
	require.NoError(t, err)
	assert.Equal(t, RouteSourceProvider, estimate.Source)
	assert.InDelta(t, 42, estimate.DistanceKm, 1e-9)
	assert.Equal(t, int64(3600), estimate.DurationSeconds)

	// the direct-sale journey: mine, coop scale, trader scale, warehouse
	require.Len(t, estimate.Legs, 3)
	assert.Equal(t, model.PointMine, estimate.Legs[0].From)
	assert.Equal(t, model.PointCoopScale, estimate.Legs[0].To)
	assert.Equal(t, model.PointWarehouse, estimate.Legs[2].To)
	assert.InDelta(t, 10, estimate.Legs[0].DistanceKm, 1e-9)

	require.Len(t, provider.waypoints, 4)
	assert.InDelta(t, -19.60, provider.waypoints[0].Lat, 1e-9)
}

func TestEstimateFallsBackOnProviderError(t *testing.T) {
	provider := &fakeRoutingProvider{err: errors.New("connection refused")}
	f, svc := newRouteFixture(provider)
	lot := seedLot(t, f, model.MineralComplex, model.OperationDirectSale, 1)
	seedJourneyZones(t, f, lot)
	assignment := seedAssignment(t, f, lot, model.StateEnRouteToMine)

	estimate, err := svc.EstimateForAssignment(context.Background(), adminPrincipal(), assignment.ID.String())
	require.NoError(t, err)
	assert.Equal(t, RouteSourceStraightLine, estimate.Source)
	require.Len(t, estimate.Legs, 3)
	assert.Greater(t, estimate.DistanceKm, 0.0)

	// straight-line duration derives from the assumed average speed
	expected := int64(estimate.Legs[0].DistanceKm / 35 * 3600)
	assert.Equal(t, expected, estimate.Legs[0].DurationSeconds)
}

func TestEstimateFallsBackOnLegMismatch(t *testing.T) {
	provider := &fakeRoutingProvider{
		result: &client.RouteResult{
			DistanceMeters:  42000,
			DurationSeconds: 3600,
			Legs:            []client.RouteLeg{{DistanceMeters: 42000, DurationSeconds: 3600}},
		},
	}
	f, svc := newRouteFixture(provider)
	lot := seedLot(t, f, model.MineralComplex, model.OperationDirectSale, 1)
	seedJourneyZones(t, f, lot)
	assignment := seedAssignment(t, f, lot, model.StateEnRouteToMine)

	estimate, err := svc.EstimateForAssignment(context.Background(), adminPrincipal(), assignment.ID.String())
	require.NoError(t, err)
	assert.Equal(t, RouteSourceStraightLine, estimate.Source)
}

func TestEstimateWithoutProvider(t *testing.T) {
	f, svc := newRouteFixture(nil)
	lot := seedLot(t, f, model.MineralComplex, model.OperationPlantProcessing, 1)
	seedJourneyZones(t, f, lot)
	assignment := seedAssignment(t, f, lot, model.StateEnRouteToMine)

	estimate, err := svc.EstimateForAssignment(context.Background(), adminPrincipal(), assignment.ID.String())
	require.NoError(t, err)
	assert.Equal(t, RouteSourceStraightLine, estimate.Source)

	// the plant flow has five control points
	require.Len(t, estimate.Legs, 4)
	assert.Equal(t, model.PointProcessorScale, estimate.Legs[2].From)
	assert.Equal(t, model.PointPlant, estimate.Legs[2].To)
}

func TestEstimateRequiresAllZones(t *testing.T) {
	f, svc := newRouteFixture(nil)
	lot := seedLot(t, f, model.MineralComplex, model.OperationDirectSale, 1)
	seedCircleZone(t, f, lot.ID, model.PointMine, -19.60, -65.80, 150)
	assignment := seedAssignment(t, f, lot, model.StateEnRouteToMine)

	_, err := svc.EstimateForAssignment(context.Background(), adminPrincipal(), assignment.ID.String())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestEstimateUsesPolygonCentroid(t *testing.T) {
	provider := &fakeRoutingProvider{err: errors.New("down")}
	f, svc := newRouteFixture(provider)
	lot := seedLot(t, f, model.MineralComplex, model.OperationDirectSale, 1)
	seedPolygonZone(t, f, lot.ID, model.PointMine, []model.Vertex{
		{Lat: -19.62, Lng: -65.82},
		{Lat: -19.62, Lng: -65.78},
		{Lat: -19.58, Lng: -65.78},
		{Lat: -19.58, Lng: -65.82},
	})
	seedCircleZone(t, f, lot.ID, model.PointCoopScale, -19.55, -65.72, 150)
	seedCircleZone(t, f, lot.ID, model.PointTraderScale, -19.45, -65.60, 150)
	seedCircleZone(t, f, lot.ID, model.PointWarehouse, -19.40, -65.50, 150)
	assignment := seedAssignment(t, f, lot, model.StateEnRouteToMine)

	_, err := svc.EstimateForAssignment(context.Background(), adminPrincipal(), assignment.ID.String())
	require.NoError(t, err)

	require.Len(t, provider.waypoints, 4)
	assert.InDelta(t, -19.60, provider.waypoints[0].Lat, 1e-9)
	assert.InDelta(t, -65.80, provider.waypoints[0].Lng, 1e-9)
}

func TestEstimatePermissions(t *testing.T) {
	f, svc := newRouteFixture(nil)
	lot := seedLot(t, f, model.MineralComplex, model.OperationDirectSale, 1)
	seedJourneyZones(t, f, lot)
	assignment := seedAssignment(t, f, lot, model.StateEnRouteToMine)

	_, err := svc.EstimateForAssignment(context.Background(), driverPrincipal(uuid.New()), assignment.ID.String())
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = svc.EstimateForAssignment(context.Background(), cooperativePrincipal(uuid.New()), assignment.ID.String())
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = svc.EstimateForAssignment(context.Background(), driverPrincipal(assignment.DriverID), assignment.ID.String())
	assert.NoError(t, err)
}

func TestEstimateUnknownAssignment(t *testing.T) {
	_, svc := newRouteFixture(nil)

	_, err := svc.EstimateForAssignment(context.Background(), adminPrincipal(), uuid.New().String())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.EstimateForAssignment(context.Background(), adminPrincipal(), "nope")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
