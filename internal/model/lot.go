package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MineralType string

const (
	MineralComplex     MineralType = "complex"
	MineralConcentrate MineralType = "concentrate"
)

type OperationType string

const (
	OperationDirectSale      OperationType = "direct_sale"
	OperationPlantProcessing OperationType = "plant_processing"
)

type LotStatus string

const (
	LotStatusDraft                   LotStatus = "draft"
	LotStatusWaitingToStart          LotStatus = "waiting_to_start"
	LotStatusEnRouteToMine           LotStatus = "en_route_to_mine"
	LotStatusLoading                 LotStatus = "loading"
	LotStatusEnRouteToCoopScale      LotStatus = "en_route_to_coop_scale"
	LotStatusEnRouteToProcessorScale LotStatus = "en_route_to_processor_scale"
	LotStatusEnRouteToTraderScale    LotStatus = "en_route_to_trader_scale"
	LotStatusEnRouteToPlant          LotStatus = "en_route_to_plant"
	LotStatusEnRouteToWarehouse      LotStatus = "en_route_to_warehouse"
	LotStatusCompleted               LotStatus = "completed"
	LotStatusCancelled               LotStatus = "cancelled"
)

// ShipmentLot is a batch of ore shipped together, split across one or more
// trucks. Its status is derived from the journey states of its assignments
// and is never authoritative per truck.
type ShipmentLot struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	CooperativeID   uuid.UUID     `gorm:"type:uuid;not null;index" json:"cooperative_id"`
	MineID          uuid.UUID     `gorm:"type:uuid;not null" json:"mine_id"`
	DestinationID   uuid.UUID     `gorm:"type:uuid;not null" json:"destination_id"`
	MineralType     MineralType   `gorm:"type:mineral_type;not null" json:"mineral_type"`
	OperationType   OperationType `gorm:"type:operation_type;not null" json:"operation_type"`
	RequestedTrucks int           `gorm:"not null" json:"requested_trucks"`
	Status          LotStatus     `gorm:"type:lot_status;not null;default:draft" json:"status"`
	TotalNetWeightKg *float64     `json:"total_net_weight_kg"`
	Notes           string        `gorm:"type:text" json:"notes"`
	CreatedByUserID uuid.UUID     `gorm:"type:uuid;not null" json:"created_by_user_id"`
	CreatedAt       time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ShipmentLot) TableName() string {
	return "shipment_lots"
}

func (l *ShipmentLot) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
