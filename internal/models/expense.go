package models

import "time"

type Expense struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Amount      int64     `json:"amount" gorm:"not null"`
	Category    string    `json:"category" gorm:"size:64;not null;index"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	Date        string    `json:"date" gorm:"size:10;not null;index"`
	ContractID  *string   `json:"contractId,omitempty" gorm:"index"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (Expense) TableName() string { return "expenses" }
