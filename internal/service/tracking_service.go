package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/flow"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/geo"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/model"
)

// TrackingOptions are the telemetry tunables from configuration.
type TrackingOptions struct {
	// MovingSpeedThresholdKmh splits sample pairs into moving and
	// stationary time buckets.
	MovingSpeedThresholdKmh float64
	// AllowPreTripSamples admits offline samples captured before the trip
	// start, for pre-trip diagnostics.
	AllowPreTripSamples bool
	StaleAfter          time.Duration
	SweepInterval       time.Duration
}

// TrackingService is the authority for continuous telemetry. It never
// drives journey-state transitions; it only records them.
type TrackingService struct {
	store       TrackingStore
	assignments AssignmentStore
	lots        LotStore
	zones       ZoneStore
	locks       *AssignmentLocks
	opts        TrackingOptions
	log         zerolog.Logger
}

func NewTrackingService(
	store TrackingStore,
	assignments AssignmentStore,
	lots LotStore,
	zones ZoneStore,
	locks *AssignmentLocks,
	opts TrackingOptions,
	log zerolog.Logger,
) *TrackingService {
	if opts.MovingSpeedThresholdKmh <= 0 {
		opts.MovingSpeedThresholdKmh = 3
	}
	return &TrackingService{
		store:       store,
		assignments: assignments,
		lots:        lots,
		zones:       zones,
		locks:       locks,
		opts:        opts,
		log:         log,
	}
}

type PositionInput struct {
	Lat        float64
	Lng        float64
	AccuracyM  *float64
	SpeedKmh   *float64
	Heading    *float64
	AltitudeM  *float64
	CapturedAt *time.Time
}

// GeofenceStatus answers a single position report: whether the truck is
// inside the zone it is currently heading to, how far away it is, and
// whether an arrival confirmation should be offered to the operator.
type GeofenceStatus struct {
	ControlPoint     model.ControlPointKind `json:"control_point,omitempty"`
	ZoneName         string                 `json:"zone_name,omitempty"`
	Inside           bool                   `json:"inside"`
	DistanceKm       float64                `json:"distance_km"`
	ArrivalSuggested bool                   `json:"arrival_suggested"`
}

// ReportPosition ingests one live position sample. Resubmissions of the
// same (timestamp, lat, lng) tuple are deduplicated, so client retries do
// not duplicate history.
func (s *TrackingService) ReportPosition(ctx context.Context, principal model.Principal, assignmentID string, input PositionInput) (*GeofenceStatus, error) {
	id, err := uuid.Parse(assignmentID)
	if err != nil {
		return nil, ErrInvalidInput
	}

	point := geo.Point{Lat: input.Lat, Lng: input.Lng}
	if !point.Valid() {
		return nil, ErrMalformedPosition
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	assignment, lot, err := s.loadAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if principal.IsDriver() && (principal.DriverID == nil || *principal.DriverID != assignment.DriverID) {
		return nil, ErrPermissionDenied
	}

	spec := flow.ForLot(lot.MineralType, lot.OperationType)
	record, err := s.loadOrCreateRecord(ctx, assignment, lot, spec)
	if err != nil {
		return nil, err
	}

	sample := model.PositionSample{
		Lat:           input.Lat,
		Lng:           input.Lng,
		Timestamp:     time.Now().UTC(),
		AccuracyM:     input.AccuracyM,
		SpeedKmh:      input.SpeedKmh,
		Heading:       input.Heading,
		AltitudeM:     input.AltitudeM,
		OfflineOrigin: false,
	}
	if input.CapturedAt != nil {
		sample.Timestamp = input.CapturedAt.UTC()
	}

	if insertSample(record, sample) {
		metrics, err := replayMetrics(record.LocationHistory, s.opts.MovingSpeedThresholdKmh)
		if err != nil {
			return nil, err
		}
		record.TripMetrics = metrics
	}

	now := time.Now().UTC()
	record.ConnectionStatus = model.ConnectionOnline
	record.LastSyncAt = &now

	status, err := s.evaluateGeofence(ctx, lot.ID, spec, assignment.State, point)
	if err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, record); err != nil {
		return nil, err
	}

	return status, nil
}

type OfflineEntry struct {
	Position   PositionInput
	CapturedAt time.Time
}

type SyncFailure struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

type SyncResult struct {
	Synced   int           `json:"synced"`
	Failed   int           `json:"failed"`
	Failures []SyncFailure `json:"failures"`
}

// SyncOfflineBatch reconciles positions captured while disconnected into
// the ordered history. The batch is not atomic: valid entries are kept and
// failures are reported per entry. Metrics are fully recomputed by
// replaying the whole history, never patched incrementally.
func (s *TrackingService) SyncOfflineBatch(ctx context.Context, principal model.Principal, assignmentID string, entries []OfflineEntry) (*SyncResult, error) {
	id, err := uuid.Parse(assignmentID)
	if err != nil {
		return nil, ErrInvalidInput
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	assignment, lot, err := s.loadAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if principal.IsDriver() && (principal.DriverID == nil || *principal.DriverID != assignment.DriverID) {
		return nil, ErrPermissionDenied
	}

	spec := flow.ForLot(lot.MineralType, lot.OperationType)
	record, err := s.loadOrCreateRecord(ctx, assignment, lot, spec)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{}
	for i, entry := range entries {
		point := geo.Point{Lat: entry.Position.Lat, Lng: entry.Position.Lng}
		if !point.Valid() {
			result.Failed++
			result.Failures = append(result.Failures, SyncFailure{Index: i, Reason: ErrMalformedPosition.Error()})
			continue
		}
		if !s.opts.AllowPreTripSamples && assignment.StartedAt != nil && entry.CapturedAt.Before(*assignment.StartedAt) {
			result.Failed++
			result.Failures = append(result.Failures, SyncFailure{Index: i, Reason: ErrStaleSample.Error()})
			continue
		}

		sample := model.PositionSample{
			Lat:           entry.Position.Lat,
			Lng:           entry.Position.Lng,
			Timestamp:     entry.CapturedAt.UTC(),
			AccuracyM:     entry.Position.AccuracyM,
			SpeedKmh:      entry.Position.SpeedKmh,
			Heading:       entry.Position.Heading,
			AltitudeM:     entry.Position.AltitudeM,
			OfflineOrigin: true,
		}
		// duplicates still count as synced: the sample is present
		insertSample(record, sample)
		result.Synced++
	}

	metrics, err := replayMetrics(record.LocationHistory, s.opts.MovingSpeedThresholdKmh)
	if err != nil {
		return nil, err
	}
	record.TripMetrics = metrics

	now := time.Now().UTC()
	record.ConnectionStatus = model.ConnectionOnline
	record.LastSyncAt = &now

	if err := s.store.Save(ctx, record); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *TrackingService) Get(ctx context.Context, principal model.Principal, assignmentID string) (*model.TrackingRecord, error) {
	id, err := uuid.Parse(assignmentID)
	if err != nil {
		return nil, ErrInvalidInput
	}

	assignment, lot, err := s.loadAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if principal.IsDriver() && (principal.DriverID == nil || *principal.DriverID != assignment.DriverID) {
		return nil, ErrPermissionDenied
	}
	if principal.IsCooperative() && lot.CooperativeID != principal.OrgID {
		return nil, ErrPermissionDenied
	}

	record, err := s.store.GetByAssignmentID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotFound
	}
	return record, nil
}

func (s *TrackingService) ListByLot(ctx context.Context, principal model.Principal, lotID string) ([]model.TrackingRecord, error) {
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
	if !principal.IsAdmin() && !(principal.IsCooperative() && lot.CooperativeID == principal.OrgID) {
		return nil, ErrPermissionDenied
	}

	return s.store.ListByLotID(ctx, lotID)
}

// RecordStateEvent appends a committed transition to the event log and
// updates control-point arrivals and departures. The caller already holds
// the assignment lock.
func (s *TrackingService) RecordStateEvent(ctx context.Context, assignment *model.TruckAssignment, lot *model.ShipmentLot, spec *flow.Spec, from, to model.AssignmentState, at time.Time) error {
	record, err := s.loadOrCreateRecord(ctx, assignment, lot, spec)
	if err != nil {
		return err
	}

	event := model.StateEvent{At: at, FromState: from, ToState: to}
	if record.CurrentPosition != nil {
		lat, lng := record.CurrentPosition.Lat, record.CurrentPosition.Lng
		event.Lat, event.Lng = &lat, &lng
	}
	record.StateEvents = append(record.StateEvents, event)

	if kind := spec.AtPoint(to); kind != "" {
		markArrived(record, kind, at)
	}
	if kind := spec.HeadsTo(to); kind != "" {
		// starting a new leg: everything earlier in the sequence has been
		// visited and left
		markDepartedBefore(record, spec, kind, at)
	}
	if to.Terminal() {
		if kind := spec.AtPoint(to); kind != "" {
			markDepartedBefore(record, spec, kind, at)
		}
	}

	return s.store.Save(ctx, record)
}

// RunStaleSweep periodically flips records without recent contact to
// offline. Blocks until the context is cancelled.
func (s *TrackingService) RunStaleSweep(ctx context.Context) {
	if s.opts.StaleAfter <= 0 || s.opts.SweepInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-s.opts.StaleAfter)
			count, err := s.store.MarkOfflineBefore(ctx, cutoff)
			if err != nil {
				s.log.Error().Err(err).Msg("stale connection sweep failed")
				continue
			}
			if count > 0 {
				s.log.Info().Int64("count", count).Msg("marked stale connections offline")
			}
		}
	}
}

func (s *TrackingService) loadAssignment(ctx context.Context, id uuid.UUID) (*model.TruckAssignment, *model.ShipmentLot, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
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

func (s *TrackingService) loadOrCreateRecord(ctx context.Context, assignment *model.TruckAssignment, lot *model.ShipmentLot, spec *flow.Spec) (*model.TrackingRecord, error) {
	record, err := s.store.GetByAssignmentID(ctx, assignment.ID.String())
	if err != nil {
		return nil, err
	}
	if record != nil {
		return record, nil
	}

	zones, err := s.zones.ListByLotID(ctx, lot.ID)
	if err != nil {
		return nil, err
	}
	zoneNames := make(map[model.ControlPointKind]string, len(zones))
	for _, z := range zones {
		zoneNames[z.Kind] = z.Name
	}

	points := make([]model.ControlPoint, 0, len(spec.ControlPoints))
	for _, kind := range spec.ControlPoints {
		name := zoneNames[kind]
		if name == "" {
			name = string(kind)
		}
		points = append(points, model.ControlPoint{
			Kind:   kind,
			Name:   name,
			Status: model.ControlPointPending,
		})
	}

	return &model.TrackingRecord{
		AssignmentID:     assignment.ID.String(),
		LotID:            lot.ID.String(),
		CarrierID:        assignment.CarrierID.String(),
		LocationHistory:  []model.PositionSample{},
		ControlPoints:    points,
		StateEvents:      []model.StateEvent{},
		ConnectionStatus: model.ConnectionOnline,
	}, nil
}

func (s *TrackingService) evaluateGeofence(ctx context.Context, lotID uuid.UUID, spec *flow.Spec, state model.AssignmentState, point geo.Point) (*GeofenceStatus, error) {
	// only the zone the truck is heading to is evaluated; matching against
	// all zones would be ambiguous
	kind := spec.HeadsTo(state)
	if kind == "" {
		return &GeofenceStatus{}, nil
	}

	zone, err := s.zones.GetByLotAndKind(ctx, lotID, kind)
	if err != nil {
		return nil, err
	}
	if zone == nil {
		return &GeofenceStatus{ControlPoint: kind}, nil
	}

	status := &GeofenceStatus{ControlPoint: kind, ZoneName: zone.Name}
	center := geo.Point{Lat: zone.CenterLat, Lng: zone.CenterLng}

	switch zone.Shape {
	case model.ZoneShapePolygon:
		vertices, err := zone.Ring()
		if err != nil {
			return nil, err
		}
		ring := make([]geo.Point, 0, len(vertices))
		for _, v := range vertices {
			ring = append(ring, geo.Point{Lat: v.Lat, Lng: v.Lng})
		}
		status.Inside = geo.PointInPolygon(point, ring)
		if geo.ValidRing(ring) {
			center = geo.Centroid(ring)
		}
	case model.ZoneShapeCircle:
		status.Inside = geo.HaversineKm(center, point)*1000 <= zone.RadiusM
	}

	status.DistanceKm = geo.HaversineKm(center, point)
	status.ArrivalSuggested = status.Inside
	return status, nil
}

// insertSample places a sample at its chronological position, keeping the
// history ordered by timestamp. Returns false when the exact
// (timestamp, lat, lng) tuple is already present.
func insertSample(record *model.TrackingRecord, sample model.PositionSample) bool {
	history := record.LocationHistory
	idx := sort.Search(len(history), func(i int) bool {
		return history[i].Timestamp.After(sample.Timestamp)
	})

	for i := idx - 1; i >= 0 && history[i].Timestamp.Equal(sample.Timestamp); i-- {
		if history[i].Lat == sample.Lat && history[i].Lng == sample.Lng {
			return false
		}
	}

	history = append(history, model.PositionSample{})
	copy(history[idx+1:], history[idx:])
	history[idx] = sample
	record.LocationHistory = history
	last := history[len(history)-1]
	record.CurrentPosition = &last
	return true
}

// replayMetrics rebuilds trip metrics from the ordered history. An
// ordering violation is a data integrity bug, surfaced as
// ErrCorruptHistory and never as a validation error.
func replayMetrics(history []model.PositionSample, movingThresholdKmh float64) (model.TripMetrics, error) {
	var metrics model.TripMetrics
	if len(history) == 0 {
		return metrics, nil
	}

	start := history[0].Timestamp
	end := history[len(history)-1].Timestamp
	metrics.StartedAt = &start
	metrics.EndedAt = &end

	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1], history[i]
		if cur.Timestamp.Before(prev.Timestamp) {
			return model.TripMetrics{}, ErrCorruptHistory
		}
		seconds := cur.Timestamp.Sub(prev.Timestamp).Seconds()
		if seconds <= 0 {
			continue
		}
		distKm := geo.HaversineKm(
			geo.Point{Lat: prev.Lat, Lng: prev.Lng},
			geo.Point{Lat: cur.Lat, Lng: cur.Lng},
		)
		speedKmh := distKm / (seconds / 3600)

		metrics.DistanceKm += distKm
		if speedKmh > movingThresholdKmh {
			metrics.MovingSeconds += seconds
		} else {
			metrics.StationarySeconds += seconds
		}
		if speedKmh > metrics.MaxSpeedKmh {
			metrics.MaxSpeedKmh = speedKmh
		}
	}

	if metrics.MovingSeconds > 0 {
		metrics.AvgSpeedKmh = metrics.DistanceKm / (metrics.MovingSeconds / 3600)
	}
	return metrics, nil
}

func markArrived(record *model.TrackingRecord, kind model.ControlPointKind, at time.Time) {
	for i := range record.ControlPoints {
		cp := &record.ControlPoints[i]
		if cp.Kind != kind {
			continue
		}
		if cp.ArrivedAt == nil {
			cp.ArrivedAt = &at
		}
		if cp.Status == model.ControlPointPending {
			cp.Status = model.ControlPointArrived
		}
		return
	}
}

func markDepartedBefore(record *model.TrackingRecord, spec *flow.Spec, kind model.ControlPointKind, at time.Time) {
	limit := spec.PointIndex(kind)
	if limit < 0 {
		return
	}
	for i := range record.ControlPoints {
		cp := &record.ControlPoints[i]
		if spec.PointIndex(cp.Kind) >= limit {
			continue
		}
		if cp.ArrivedAt == nil {
			cp.ArrivedAt = &at
		}
		if cp.DepartedAt == nil {
			cp.DepartedAt = &at
		}
		cp.Status = model.ControlPointDeparted
	}
}
