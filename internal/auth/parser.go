package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Claims struct {
	UserID   uuid.UUID  `json:"user_id"`
	OrgID    uuid.UUID  `json:"org_id"`
	Role     string     `json:"role"`
	DriverID *uuid.UUID `json:"driver_id,omitempty"`
	jwt.RegisteredClaims
}

type Parser struct {
	accessSecret string
}

func NewParser(accessSecret string) *Parser {
	return &Parser{accessSecret: accessSecret}
}

func (p *Parser) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(p.accessSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
