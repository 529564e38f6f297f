package model

import "github.com/google/uuid"

const (
	RoleAdmin         = "ADMIN"
	RoleCooperative   = "COOPERATIVE"
	RoleDriver        = "DRIVER"
	RoleScaleOperator = "SCALE_OPERATOR"
)

// Principal is the authenticated caller extracted from the access token.
type Principal struct {
	UserID   uuid.UUID
	OrgID    uuid.UUID
	Role     string
	DriverID *uuid.UUID
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p Principal) IsCooperative() bool {
	return p.Role == RoleCooperative
}

func (p Principal) IsDriver() bool {
	return p.Role == RoleDriver
}

func (p Principal) IsScaleOperator() bool {
	return p.Role == RoleScaleOperator
}
