package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssignmentState string

const (
	StateWaitingToStart          AssignmentState = "waiting_to_start"
	StateWaitingToStartTrip      AssignmentState = "waiting_to_start_trip"
	StateEnRouteToMine           AssignmentState = "en_route_to_mine"
	StateWaitingForLoading       AssignmentState = "waiting_for_loading"
	StateEnRouteToCoopScale      AssignmentState = "en_route_to_coop_scale"
	StateEnRouteToProcessorScale AssignmentState = "en_route_to_processor_scale"
	StateEnRouteToTraderScale    AssignmentState = "en_route_to_trader_scale"
	StateEnRouteToPlant          AssignmentState = "en_route_to_plant"
	StateEnRouteToWarehouse      AssignmentState = "en_route_to_warehouse"
	StateTripFinished            AssignmentState = "trip_finished"
	StateTripCancelled           AssignmentState = "trip_cancelled"
)

// Terminal reports whether no further transition is allowed from the state.
func (s AssignmentState) Terminal() bool {
	return s == StateTripFinished || s == StateTripCancelled
}

// TruckAssignment is one truck's participation in a lot. It is mutated only
// through validated state transitions and never deleted.
type TruckAssignment struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	LotID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"lot_id"`
	CarrierID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"carrier_id"`
	DriverID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"driver_id"`
	TruckNumber int             `gorm:"not null" json:"truck_number"`
	State       AssignmentState `gorm:"type:assignment_state;not null" json:"state"`
	StartedAt   *time.Time      `json:"started_at"`
	EndedAt     *time.Time      `json:"ended_at"`
	Notes       string          `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TruckAssignment) TableName() string {
	return "truck_assignments"
}

func (a *TruckAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
