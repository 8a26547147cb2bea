package models

import (
	"time"

	"gorm.io/gorm"
)

type ComplaintStatus string

const (
	ComplaintNew        ComplaintStatus = "NEW"
	ComplaintAssigned   ComplaintStatus = "ASSIGNED"
	ComplaintInProgress ComplaintStatus = "IN_PROGRESS"
	ComplaintPending    ComplaintStatus = "PENDING"
	ComplaintResolved   ComplaintStatus = "RESOLVED"
	ComplaintClosed     ComplaintStatus = "CLOSED"
	ComplaintRejected   ComplaintStatus = "REJECTED"
)

// Valid reports whether s is one of the complaint lifecycle statuses.
func (s ComplaintStatus) Valid() bool {
	switch s {
	case ComplaintNew, ComplaintAssigned, ComplaintInProgress, ComplaintPending,
		ComplaintResolved, ComplaintClosed, ComplaintRejected:
		return true
	}
	return false
}

const (
	MinComplaintPriority     = 1
	MaxComplaintPriority     = 5
	DefaultComplaintPriority = 3
)

type Complaint struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	Title           string          `json:"title" gorm:"not null"`
	Description     string          `json:"description" gorm:"type:text;not null"`
	Status          ComplaintStatus `json:"status" gorm:"not null;default:'NEW';index"`
	Priority        int             `json:"priority" gorm:"not null;default:3"`
	FinancialImpact *float64        `json:"financialImpact"`
	Entity          EntityRef       `json:"entity" gorm:"embedded;embeddedPrefix:entity_"`
	SubmittedByID   uint            `json:"submittedById" gorm:"not null;index"`
	SubmittedBy     *User           `json:"submittedBy,omitempty" gorm:"foreignKey:SubmittedByID"`
	AssignedAgentID *uint           `json:"assignedAgentId" gorm:"index"`
	AssignedAgent   *User           `json:"assignedAgent,omitempty" gorm:"foreignKey:AssignedAgentID"`
	AssignedAt      *time.Time      `json:"assignedAt"`
	ResolvedAt      *time.Time      `json:"resolvedAt"`
	ClosedAt        *time.Time      `json:"closedAt"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	DeletedAt       gorm.DeletedAt  `json:"-" gorm:"index"`
}

func (Complaint) TableName() string {
	return "complaints"
}
