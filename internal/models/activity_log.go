package models

import "time"

type LogSeverity string

const (
	SeverityInfo     LogSeverity = "INFO"
	SeverityWarning  LogSeverity = "WARNING"
	SeverityError    LogSeverity = "ERROR"
	SeverityCritical LogSeverity = "CRITICAL"
)

const (
	ActionComplaintCreated       = "COMPLAINT_CREATED"
	ActionComplaintStatusChanged = "COMPLAINT_STATUS_CHANGED"
	ActionComplaintAssigned      = "COMPLAINT_ASSIGNED"
	ActionComplaintUpdated       = "COMPLAINT_UPDATED"
	ActionComplaintDeleted       = "COMPLAINT_DELETED"
	ActionCommentAdded           = "COMMENT_ADDED"
	ActionContractCreated        = "CONTRACT_CREATED"
	ActionContractUpdated        = "CONTRACT_UPDATED"
	ActionContractDeleted        = "CONTRACT_DELETED"
	ActionReminderCreated        = "REMINDER_CREATED"
	ActionReminderAcknowledged   = "REMINDER_ACKNOWLEDGED"
	ActionUserRegistered         = "USER_CREATED"
)

// ActivityLog is an append-only audit row.
type ActivityLog struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	Action     string      `json:"action" gorm:"not null;index"`
	EntityType string      `json:"entityType" gorm:"not null;index"`
	EntityID   uint        `json:"entityId"`
	UserID     uint        `json:"userId" gorm:"not null;index"`
	User       *User       `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Severity   LogSeverity `json:"severity" gorm:"not null;default:'INFO'"`
	Details    string      `json:"details" gorm:"type:text"`
	CreatedAt  time.Time   `json:"createdAt" gorm:"index"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
