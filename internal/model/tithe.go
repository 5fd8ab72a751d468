package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TitheTask status constants
const (
	TitheTaskInProgress = "in_progress"
	TitheTaskCompleted  = "completed"
)

// TitheTask is one periodic dedication-counting session, run jointly by
// the treasurer who opened it and the finance staff they picked.
type TitheTask struct {
	ID                   uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CalculationTimestamp time.Time  `gorm:"not null;index" json:"calculationTimestamp"`
	TreasurerID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"treasurerId"`
	TreasurerName        string     `gorm:"type:varchar(255)" json:"treasurerName"`
	FinanceStaffID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"financeStaffId"`
	FinanceStaffName     string     `gorm:"type:varchar(255)" json:"financeStaffName"`
	Status               string     `gorm:"type:varchar(20);not null;default:'in_progress';index" json:"status"`
	CompletedAt          *time.Time `json:"completedAt"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// DedicationEntry is a single dedication line item inside a tithe task.
type DedicationEntry struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TaskID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"taskId"`
	Task       TitheTask       `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE;" json:"-"`
	Category   string          `gorm:"type:varchar(255);not null" json:"category"`
	MemberName string          `gorm:"type:varchar(255)" json:"memberName"`
	Amount     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	CreatedAt  time.Time       `gorm:"autoCreateTime;index" json:"createdAt"`
}
