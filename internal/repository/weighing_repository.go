package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/model"
)

type WeighingRepository struct {
	db *gorm.DB
}

func NewWeighingRepository(db *gorm.DB) *WeighingRepository {
	return &WeighingRepository{db: db}
}

func (r *WeighingRepository) Create(ctx context.Context, record *model.WeighingRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *WeighingRepository) FindByAssignmentAndType(ctx context.Context, assignmentID uuid.UUID, t model.WeighingType) (*model.WeighingRecord, error) {
	var record model.WeighingRecord
	err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND type = ?", assignmentID, t).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *WeighingRepository) ListByAssignmentID(ctx context.Context, assignmentID uuid.UUID) ([]model.WeighingRecord, error) {
	var records []model.WeighingRecord
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at ASC").
		Find(&records).Error
	return records, err
}

// SumNetByLot sums net weights of one weighing type across every truck of a
// lot. Used to compute the lot's realized total at completion.
func (r *WeighingRepository) SumNetByLot(ctx context.Context, lotID uuid.UUID, t model.WeighingType) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Table("weighing_records wr").
		Select("COALESCE(SUM(wr.net_kg), 0)").
		Joins("JOIN truck_assignments ta ON ta.id = wr.assignment_id").
		Where("ta.lot_id = ? AND wr.type = ?", lotID, t).
		Scan(&total).Error
	return total, err
}
