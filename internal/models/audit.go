package models

import "time"

type AuditAction string

const (
	AuditLogin             AuditAction = "login"
	AuditLoginFailed       AuditAction = "login_failed"
	AuditLogout            AuditAction = "logout"
	AuditContractCreate    AuditAction = "contract_create"
	AuditContractUpdate    AuditAction = "contract_update"
	AuditContractActivate  AuditAction = "contract_activate"
	AuditContractSign      AuditAction = "contract_sign"
	AuditContractTerminate AuditAction = "contract_terminate"
	AuditContractDelete    AuditAction = "contract_delete"
	AuditSettingsUpdate    AuditAction = "settings_update"
	AuditExpenseCreate     AuditAction = "expense_create"
	AuditExpenseDelete     AuditAction = "expense_delete"
)

// AuditLog rows are insert-only.
type AuditLog struct {
	ID        string      `json:"id" gorm:"primaryKey"`
	Action    AuditAction `json:"action" gorm:"size:32;not null;index"`
	ActorRole Role        `json:"actorRole,omitempty" gorm:"size:16"`
	ActorID   string      `json:"actorId,omitempty" gorm:"index"`
	EntityID  string      `json:"entityId,omitempty" gorm:"index"`
	Details   string      `json:"details,omitempty" gorm:"type:text"`
	IPAddress string      `json:"ipAddress,omitempty" gorm:"size:45"`
	CreatedAt time.Time   `json:"createdAt" gorm:"index"`
}

func (AuditLog) TableName() string { return "audit_logs" }
