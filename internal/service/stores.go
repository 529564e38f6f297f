package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/model"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/repository"
)

// Store interfaces are the narrow persistence surface the services need.
// The gorm and mongo repositories satisfy them; tests substitute in-memory
// fakes. A missing row is (nil, nil), not an error.

type LotStore interface {
	Create(ctx context.Context, lot *model.ShipmentLot) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ShipmentLot, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.LotStatus, totalNetKg *float64) error
	List(ctx context.Context, filter repository.LotListFilter) ([]model.ShipmentLot, error)
}

type AssignmentStore interface {
	Create(ctx context.Context, assignment *model.TruckAssignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.TruckAssignment, error)
	Update(ctx context.Context, assignment *model.TruckAssignment) error
	ListByLotID(ctx context.Context, lotID uuid.UUID) ([]model.TruckAssignment, error)
	CountByLotID(ctx context.Context, lotID uuid.UUID) (int64, error)
	FindActiveByDriver(ctx context.Context, driverID uuid.UUID) (*model.TruckAssignment, error)
}

type WeighingStore interface {
	Create(ctx context.Context, record *model.WeighingRecord) error
	FindByAssignmentAndType(ctx context.Context, assignmentID uuid.UUID, t model.WeighingType) (*model.WeighingRecord, error)
	ListByAssignmentID(ctx context.Context, assignmentID uuid.UUID) ([]model.WeighingRecord, error)
	SumNetByLot(ctx context.Context, lotID uuid.UUID, t model.WeighingType) (float64, error)
}

type ZoneStore interface {
	Create(ctx context.Context, zone *model.GeofenceZone) error
	GetByLotAndKind(ctx context.Context, lotID uuid.UUID, kind model.ControlPointKind) (*model.GeofenceZone, error)
	ListByLotID(ctx context.Context, lotID uuid.UUID) ([]model.GeofenceZone, error)
}

type TrackingStore interface {
	GetByAssignmentID(ctx context.Context, assignmentID string) (*model.TrackingRecord, error)
	Save(ctx context.Context, record *model.TrackingRecord) error
	ListByLotID(ctx context.Context, lotID string) ([]model.TrackingRecord, error)
	MarkOfflineBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
