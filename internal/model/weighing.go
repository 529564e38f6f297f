package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WeighingType string

const (
	WeighingOriginScale    WeighingType = "origin_scale"
	WeighingProcessorScale WeighingType = "processor_scale"
	WeighingTraderScale    WeighingType = "trader_scale"
)

// WeighingRecord is an immutable scale ticket. At most one record exists
// per (assignment, type) pair, enforced by a unique index.
type WeighingRecord struct {
	ID                 uuid.UUID    `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	AssignmentID       uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:uq_weighing_assignment_type" json:"assignment_id"`
	Type               WeighingType `gorm:"type:weighing_type;not null;uniqueIndex:uq_weighing_assignment_type" json:"type"`
	GrossKg            float64      `gorm:"not null" json:"gross_kg"`
	TareKg             float64      `gorm:"not null" json:"tare_kg"`
	NetKg              float64      `gorm:"not null" json:"net_kg"`
	Notes              string       `gorm:"type:text" json:"notes"`
	RegisteredByUserID uuid.UUID    `gorm:"type:uuid;not null" json:"registered_by_user_id"`
	CreatedAt          time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

func (WeighingRecord) TableName() string {
	return "weighing_records"
}

func (w *WeighingRecord) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
