package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/model"
)

type ZoneRepository struct {
	db *gorm.DB
}

func NewZoneRepository(db *gorm.DB) *ZoneRepository {
	return &ZoneRepository{db: db}
}

func (r *ZoneRepository) Create(ctx context.Context, zone *model.GeofenceZone) error {
	return r.db.WithContext(ctx).Create(zone).Error
}

func (r *ZoneRepository) GetByLotAndKind(ctx context.Context, lotID uuid.UUID, kind model.ControlPointKind) (*model.GeofenceZone, error) {
	var zone model.GeofenceZone
	err := r.db.WithContext(ctx).
		Where("lot_id = ? AND kind = ?", lotID, kind).
		First(&zone).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &zone, nil
}

func (r *ZoneRepository) ListByLotID(ctx context.Context, lotID uuid.UUID) ([]model.GeofenceZone, error) {
	var zones []model.GeofenceZone
	err := r.db.WithContext(ctx).
		Where("lot_id = ?", lotID).
		Order("created_at ASC").
		Find(&zones).Error
	return zones, err
}
