package models

import "time"

type NotificationType string

const (
	NotificationComplaintUpdated  NotificationType = "COMPLAINT_UPDATED"
	NotificationComplaintAssigned NotificationType = "COMPLAINT_ASSIGNED"
	NotificationContractExpiring  NotificationType = "CONTRACT_EXPIRING"
	NotificationReminder          NotificationType = "REMINDER"
)

type Notification struct {
	ID         uint             `json:"id" gorm:"primaryKey"`
	Title      string           `json:"title" gorm:"not null"`
	Message    string           `json:"message" gorm:"type:text;not null"`
	Type       NotificationType `json:"type" gorm:"not null"`
	UserID     uint             `json:"userId" gorm:"not null;index"`
	EntityType string           `json:"entityType"`
	EntityID   uint             `json:"entityId"`
	IsRead     bool             `json:"isRead" gorm:"not null;default:false"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

func (Notification) TableName() string {
	return "notifications"
}
