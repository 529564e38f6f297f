package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/model"
)

type AssignmentRepository struct {
	db *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) Create(ctx context.Context, assignment *model.TruckAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *AssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TruckAssignment, error) {
	var assignment model.TruckAssignment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&assignment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &assignment, nil
}

func (r *AssignmentRepository) Update(ctx context.Context, assignment *model.TruckAssignment) error {
	return r.db.WithContext(ctx).Save(assignment).Error
}

func (r *AssignmentRepository) ListByLotID(ctx context.Context, lotID uuid.UUID) ([]model.TruckAssignment, error) {
	var assignments []model.TruckAssignment
	err := r.db.WithContext(ctx).
		Where("lot_id = ?", lotID).
		Order("truck_number ASC").
		Find(&assignments).Error
	return assignments, err
}

func (r *AssignmentRepository) CountByLotID(ctx context.Context, lotID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.TruckAssignment{}).
		Where("lot_id = ?", lotID).
		Count(&count).Error
	return count, err
}

// FindActiveByDriver returns the driver's current non-terminal assignment,
// newest first, or nil when the driver has none.
func (r *AssignmentRepository) FindActiveByDriver(ctx context.Context, driverID uuid.UUID) (*model.TruckAssignment, error) {
	var assignment model.TruckAssignment
	err := r.db.WithContext(ctx).
		Where("driver_id = ? AND state NOT IN ?", driverID,
			[]model.AssignmentState{model.StateTripFinished, model.StateTripCancelled}).
		Order("created_at DESC").
		First(&assignment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &assignment, nil
}
