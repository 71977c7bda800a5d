package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleTenant Role = "tenant"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleTenant
}

// Claims is carried by every issued token. Admin tokens set UserID; tenant
// tokens set ContractID and ContractNumber.
type Claims struct {
	UserID         string `json:"user_id,omitempty"`
	ContractID     string `json:"contract_id,omitempty"`
	ContractNumber string `json:"contract_number,omitempty"`
	Role           Role   `json:"role"`
	jwt.RegisteredClaims
}

// Subject returns the id of whoever the token was issued to.
func (c *Claims) Subject() string {
	if c.Role == RoleTenant {
		return c.ContractID
	}
	return c.UserID
}

type User struct {
	ID        string     `json:"id" gorm:"primaryKey"`
	Username  string     `json:"username" gorm:"not null;uniqueIndex"`
	Password  string     `json:"-" gorm:"not null"` // bcrypt hash
	Role      Role       `json:"role" gorm:"not null"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// LoginRequest is discriminated by which credential pair is present.
type LoginRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	ContractNumber string `json:"contractNumber"`
	AccessCode     string `json:"accessCode"`
}

func (r LoginRequest) IsTenant() bool {
	return r.ContractNumber != "" || r.AccessCode != ""
}

type LoginResponse struct {
	Token     string    `json:"token"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user,omitempty"`
	Contract  *Contract `json:"contract,omitempty"`
}
