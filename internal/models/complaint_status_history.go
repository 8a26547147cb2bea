package models

import "time"

// ComplaintStatusHistory rows are append-only.
type ComplaintStatusHistory struct {
	ID             uint             `json:"id" gorm:"primaryKey"`
	ComplaintID    uint             `json:"complaintId" gorm:"not null;index"`
	PreviousStatus *ComplaintStatus `json:"previousStatus"`
	NewStatus      ComplaintStatus  `json:"newStatus" gorm:"not null"`
	ChangedByID    uint             `json:"changedById" gorm:"not null"`
	ChangedBy      *User            `json:"changedBy,omitempty" gorm:"foreignKey:ChangedByID"`
	Notes          *string          `json:"notes" gorm:"type:text"`
	ChangedAt      time.Time        `json:"changedAt" gorm:"not null;autoCreateTime"`
}

func (ComplaintStatusHistory) TableName() string {
	return "complaint_status_history"
}
