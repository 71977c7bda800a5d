package models

import (
	"time"
)

type ContractStatus string

const (
	StatusDraft      ContractStatus = "draft"
	StatusActive     ContractStatus = "active"
	StatusSigned     ContractStatus = "signed"
	StatusTerminated ContractStatus = "terminated"
	StatusDeleted    ContractStatus = "deleted"
)

func (s ContractStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusSigned, StatusTerminated, StatusDeleted:
		return true
	}
	return false
}

// Editable reports whether admin edits, termination and tenant access are still possible.
func (s ContractStatus) Editable() bool {
	return s == StatusDraft || s == StatusActive
}

// Contract amounts are whole rials.
type Contract struct {
	ID             string `json:"id" gorm:"primaryKey"`
	ContractNumber string `json:"contractNumber" gorm:"not null;uniqueIndex"`
	AccessCode     string `json:"accessCode,omitempty" gorm:"not null"`

	TenantName       string `json:"tenantName" gorm:"not null;index"`
	TenantEmail      string `json:"tenantEmail" gorm:"not null"`
	TenantPhone      string `json:"tenantPhone,omitempty"`
	TenantNationalID string `json:"tenantNationalId,omitempty"`

	LandlordName       string `json:"landlordName" gorm:"not null"`
	LandlordEmail      string `json:"landlordEmail" gorm:"not null"`
	LandlordPhone      string `json:"landlordPhone,omitempty"`
	LandlordNationalID string `json:"landlordNationalId,omitempty"`

	PropertyAddress string `json:"propertyAddress" gorm:"not null"`
	PropertyType    string `json:"propertyType,omitempty"`
	PropertySize    string `json:"propertySize,omitempty"`
	RentAmount      int64  `json:"rentAmount" gorm:"not null"`
	Deposit         int64  `json:"deposit"`
	StartDate       string `json:"startDate" gorm:"not null;size:10"`
	EndDate         string `json:"endDate" gorm:"not null;size:10"`
	Description     string `json:"description,omitempty" gorm:"type:text"`

	Status  ContractStatus `json:"status" gorm:"not null;index;size:16"`
	Version int            `json:"version" gorm:"not null;default:1"`

	Signature       string     `json:"signature,omitempty" gorm:"type:text"`
	NationalIDImage string     `json:"nationalIdImage,omitempty" gorm:"type:text"`
	SignedAt        *time.Time `json:"signedAt,omitempty"`
	TerminatedAt    *time.Time `json:"terminatedAt,omitempty"`
	DeletedAt       *time.Time `json:"deletedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Contract) TableName() string { return "contracts" }

// ForTenant strips fields a tenant must not receive.
func (c Contract) ForTenant() Contract {
	c.AccessCode = ""
	return c
}

// Summary drops the large image payloads for list views.
func (c Contract) Summary() Contract {
	c.Signature = ""
	c.NationalIDImage = ""
	return c
}
