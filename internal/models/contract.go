package models

import (
	"time"

	"gorm.io/gorm"
)

type ContractType string
type ContractStatus string

const (
	ContractTypeProvider     ContractType = "PROVIDER"
	ContractTypeHumanitarian ContractType = "HUMANITARIAN"
	ContractTypeParking      ContractType = "PARKING"
	ContractTypeBulk         ContractType = "BULK"
)

const (
	ContractDraft             ContractStatus = "DRAFT"
	ContractActive            ContractStatus = "ACTIVE"
	ContractPending           ContractStatus = "PENDING"
	ContractRenewalInProgress ContractStatus = "RENEWAL_IN_PROGRESS"
	ContractExpired           ContractStatus = "EXPIRED"
	ContractTerminated        ContractStatus = "TERMINATED"
)

func (t ContractType) Valid() bool {
	switch t {
	case ContractTypeProvider, ContractTypeHumanitarian, ContractTypeParking, ContractTypeBulk:
		return true
	}
	return false
}

func (s ContractStatus) Valid() bool {
	switch s {
	case ContractDraft, ContractActive, ContractPending, ContractRenewalInProgress,
		ContractExpired, ContractTerminated:
		return true
	}
	return false
}

type Contract struct {
	ID                uint               `json:"id" gorm:"primaryKey"`
	Name              string             `json:"name" gorm:"not null"`
	ContractNumber    string             `json:"contractNumber" gorm:"uniqueIndex;not null"`
	Description       string             `json:"description" gorm:"type:text"`
	Type              ContractType       `json:"type" gorm:"not null;index"`
	Status            ContractStatus     `json:"status" gorm:"not null;default:'DRAFT';index"`
	StartDate         time.Time          `json:"startDate" gorm:"not null"`
	EndDate           time.Time          `json:"endDate" gorm:"not null;index"`
	RevenuePercentage float64            `json:"revenuePercentage"`
	ProviderID        *uint              `json:"providerId" gorm:"index"`
	HumanitarianOrgID *uint              `json:"humanitarianOrgId" gorm:"index"`
	ParkingServiceID  *uint              `json:"parkingServiceId" gorm:"index"`
	CreatedByID       uint               `json:"createdById" gorm:"not null"`
	CreatedBy         *User              `json:"createdBy,omitempty" gorm:"foreignKey:CreatedByID"`
	Reminders         []ContractReminder `json:"reminders,omitempty" gorm:"foreignKey:ContractID"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
	DeletedAt         gorm.DeletedAt     `json:"-" gorm:"index"`
}

func (Contract) TableName() string {
	return "contracts"
}
