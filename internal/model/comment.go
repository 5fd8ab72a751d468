package model

import (
	"time"

	"github.com/google/uuid"
)

// Comment is an annotation on one purchase request. AuthorName is a
// snapshot of the author's display name at post time; it is not
// refreshed when the user renames themselves later.
type Comment struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"requestId"`
	Request    PurchaseRequest `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE;" json:"-"`
	Text       string          `gorm:"type:text;not null" json:"text"`
	AuthorID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"userId"`
	AuthorName string          `gorm:"type:varchar(255)" json:"authorName"`
	CreatedAt  time.Time       `gorm:"autoCreateTime;index" json:"createdAt"`
}
