package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ConnectionStatus string

const (
	ConnectionOnline  ConnectionStatus = "online"
	ConnectionOffline ConnectionStatus = "offline"
)

type ControlPointState string

const (
	ControlPointPending  ControlPointState = "pending"
	ControlPointArrived  ControlPointState = "arrived"
	ControlPointDeparted ControlPointState = "departed"
)

type PositionSample struct {
	Lat           float64   `bson:"lat" json:"lat"`
	Lng           float64   `bson:"lng" json:"lng"`
	Timestamp     time.Time `bson:"timestamp" json:"timestamp"`
	AccuracyM     *float64  `bson:"accuracy_m,omitempty" json:"accuracy_m,omitempty"`
	SpeedKmh      *float64  `bson:"speed_kmh,omitempty" json:"speed_kmh,omitempty"`
	Heading       *float64  `bson:"heading,omitempty" json:"heading,omitempty"`
	AltitudeM     *float64  `bson:"altitude_m,omitempty" json:"altitude_m,omitempty"`
	OfflineOrigin bool      `bson:"offline_origin" json:"offline_origin"`
}

type ControlPoint struct {
	Kind       ControlPointKind  `bson:"kind" json:"kind"`
	Name       string            `bson:"name" json:"name"`
	Status     ControlPointState `bson:"status" json:"status"`
	ArrivedAt  *time.Time        `bson:"arrived_at,omitempty" json:"arrived_at,omitempty"`
	DepartedAt *time.Time        `bson:"departed_at,omitempty" json:"departed_at,omitempty"`
}

// TripMetrics is always derivable by replaying the location history in
// order; it carries no independent truth.
type TripMetrics struct {
	DistanceKm        float64    `bson:"distance_km" json:"distance_km"`
	MovingSeconds     float64    `bson:"moving_seconds" json:"moving_seconds"`
	StationarySeconds float64    `bson:"stationary_seconds" json:"stationary_seconds"`
	AvgSpeedKmh       float64    `bson:"avg_speed_kmh" json:"avg_speed_kmh"`
	MaxSpeedKmh       float64    `bson:"max_speed_kmh" json:"max_speed_kmh"`
	StartedAt         *time.Time `bson:"started_at,omitempty" json:"started_at,omitempty"`
	EndedAt           *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
}

type StateEvent struct {
	At        time.Time       `bson:"at" json:"at"`
	FromState AssignmentState `bson:"from_state" json:"from_state"`
	ToState   AssignmentState `bson:"to_state" json:"to_state"`
	Lat       *float64        `bson:"lat,omitempty" json:"lat,omitempty"`
	Lng       *float64        `bson:"lng,omitempty" json:"lng,omitempty"`
}

// TrackingRecord is the telemetry aggregate of one truck assignment,
// stored 1:1 as a document keyed by assignment id. It is the shipment's
// audit trail and is retained indefinitely.
type TrackingRecord struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	AssignmentID     string             `bson:"assignment_id" json:"assignment_id"`
	LotID            string             `bson:"lot_id" json:"lot_id"`
	CarrierID        string             `bson:"carrier_id" json:"carrier_id"`
	CurrentPosition  *PositionSample    `bson:"current_position,omitempty" json:"current_position,omitempty"`
	LocationHistory  []PositionSample   `bson:"location_history" json:"location_history"`
	ControlPoints    []ControlPoint     `bson:"control_points" json:"control_points"`
	TripMetrics      TripMetrics        `bson:"trip_metrics" json:"trip_metrics"`
	StateEvents      []StateEvent       `bson:"state_events" json:"state_events"`
	ConnectionStatus ConnectionStatus   `bson:"connection_status" json:"connection_status"`
	LastSyncAt       *time.Time         `bson:"last_sync_at,omitempty" json:"last_sync_at,omitempty"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}
