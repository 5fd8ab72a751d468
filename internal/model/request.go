package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseRequest status constants
const (
	RequestStatusPending   = "pending"
	RequestStatusPurchased = "purchased"
)

// PurchaseRequest is one purchasing need on the board. The purchase
// fields (amount, date, purchaser name and id) are set together when the
// status moves to purchased and cleared together when it is reverted.
//
// Version is the optimistic lock: every committed update increments it,
// and updates are conditioned on the version they read. Two purchasers
// racing to confirm the same pending item therefore cannot both win.
type PurchaseRequest struct {
	ID                 uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title              string           `gorm:"type:varchar(255);not null" json:"title"`
	Description        string           `gorm:"type:text" json:"description"`
	AccountingCategory string           `gorm:"type:varchar(255)" json:"accountingCategory"`
	Status             string           `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RequesterID        uuid.UUID        `gorm:"type:uuid;not null;index" json:"requesterId"`
	RequesterName      string           `gorm:"type:varchar(255)" json:"requesterName"`
	PurchaseAmount     *decimal.Decimal `gorm:"type:numeric(14,2)" json:"purchaseAmount"`
	PurchaseDate       *time.Time       `json:"purchaseDate"`
	PurchaserName      *string          `gorm:"type:varchar(255)" json:"purchaserName"`
	PurchaserID        *uuid.UUID       `gorm:"type:uuid" json:"purchaserId"`
	Version            int64            `gorm:"not null;default:0" json:"-"`
	CreatedAt          time.Time        `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt          time.Time        `gorm:"autoUpdateTime" json:"updatedAt"`
}
