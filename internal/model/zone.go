package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ControlPointKind string

const (
	PointMine           ControlPointKind = "mine"
	PointCoopScale      ControlPointKind = "coop_scale"
	PointProcessorScale ControlPointKind = "processor_scale"
	PointTraderScale    ControlPointKind = "trader_scale"
	PointPlant          ControlPointKind = "plant"
	PointWarehouse      ControlPointKind = "warehouse"
)

type ZoneShape string

const (
	ZoneShapePolygon ZoneShape = "polygon"
	ZoneShapeCircle  ZoneShape = "circle"
)

type Vertex struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// GeofenceZone is the boundary of a named control point of a lot's journey.
// Mine boundaries are polygons; scales and warehouses are usually circles
// around a gate coordinate.
type GeofenceZone struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	LotID     uuid.UUID        `gorm:"type:uuid;not null;index" json:"lot_id"`
	Kind      ControlPointKind `gorm:"type:control_point_kind;not null" json:"kind"`
	Name      string           `gorm:"type:varchar(255)" json:"name"`
	Shape     ZoneShape        `gorm:"type:zone_shape;not null" json:"shape"`
	Vertices  string           `gorm:"type:jsonb" json:"vertices"`
	CenterLat float64          `json:"center_lat"`
	CenterLng float64          `json:"center_lng"`
	RadiusM   float64          `json:"radius_m"`
	CreatedAt time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (GeofenceZone) TableName() string {
	return "geofence_zones"
}

func (z *GeofenceZone) BeforeCreate(tx *gorm.DB) error {
	if z.ID == uuid.Nil {
		z.ID = uuid.New()
	}
	return nil
}

// Ring decodes the polygon vertices. Empty for circle zones.
func (z *GeofenceZone) Ring() ([]Vertex, error) {
	if z.Vertices == "" {
		return nil, nil
	}
	var ring []Vertex
	if err := json.Unmarshal([]byte(z.Vertices), &ring); err != nil {
		return nil, err
	}
	return ring, nil
}
