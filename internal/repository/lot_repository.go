package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/model"
)

type LotRepository struct {
	db *gorm.DB
}

func NewLotRepository(db *gorm.DB) *LotRepository {
	return &LotRepository{db: db}
}

func (r *LotRepository) Create(ctx context.Context, lot *model.ShipmentLot) error {
	return r.db.WithContext(ctx).Create(lot).Error
}

func (r *LotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ShipmentLot, error) {
	var lot model.ShipmentLot
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&lot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lot, nil
}

// UpdateStatus writes the derived lot status. Last write wins when two
// trucks complete the same transition near-simultaneously; the field is
// derived, not authoritative per truck.
func (r *LotRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.LotStatus, totalNetKg *float64) error {
	updates := map[string]interface{}{"status": status}
	if totalNetKg != nil {
		updates["total_net_weight_kg"] = *totalNetKg
	}
	return r.db.WithContext(ctx).Model(&model.ShipmentLot{}).
		Where("id = ?", id).
		Updates(updates).Error
}

type LotListFilter struct {
	Status        *model.LotStatus
	CooperativeID *uuid.UUID
	MineralType   *model.MineralType
	DriverID      *uuid.UUID
}

func (r *LotRepository) List(ctx context.Context, filter LotListFilter) ([]model.ShipmentLot, error) {
	var lots []model.ShipmentLot
	query := r.db.WithContext(ctx).Model(&model.ShipmentLot{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CooperativeID != nil {
		query = query.Where("cooperative_id = ?", *filter.CooperativeID)
	}
	if filter.MineralType != nil {
		query = query.Where("mineral_type = ?", *filter.MineralType)
	}
	if filter.DriverID != nil {
		query = query.Joins("JOIN truck_assignments ta ON ta.lot_id = shipment_lots.id").
			Where("ta.driver_id = ?", *filter.DriverID)
	}

	if err := query.Order("created_at DESC").Find(&lots).Error; err != nil {
		return nil, err
	}

	return lots, nil
}
