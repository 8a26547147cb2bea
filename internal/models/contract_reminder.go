package models

import "time"

type ReminderType string

const (
	ReminderExpiration ReminderType = "expiration"
	ReminderRenewal    ReminderType = "renewal"
	ReminderReview     ReminderType = "review"
)

func (t ReminderType) Valid() bool {
	switch t {
	case ReminderExpiration, ReminderRenewal, ReminderReview:
		return true
	}
	return false
}

type ContractReminder struct {
	ID               uint         `json:"id" gorm:"primaryKey"`
	ContractID       uint         `json:"contractId" gorm:"not null;index"`
	Contract         *Contract    `json:"contract,omitempty" gorm:"foreignKey:ContractID"`
	ReminderDate     time.Time    `json:"reminderDate" gorm:"not null;index"`
	ReminderType     ReminderType `json:"reminderType" gorm:"not null"`
	IsAcknowledged   bool         `json:"isAcknowledged" gorm:"not null;default:false;index"`
	AcknowledgedByID *uint        `json:"acknowledgedById"`
	AcknowledgedAt   *time.Time   `json:"acknowledgedAt"`
	LastDispatchedAt *time.Time   `json:"lastDispatchedAt"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

func (ContractReminder) TableName() string {
	return "contract_reminders"
}
