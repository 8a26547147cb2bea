// Package storage is the relational persistence layer.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/bizadmin/backend/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 1000
)

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps the page to valid bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}

type ComplaintFilter struct {
	Status          models.ComplaintStatus
	AssignedAgentID *uint
	SubmittedByID   *uint
	Entity          *models.EntityRef
	Page
}

type ContractFilter struct {
	Type              models.ContractType
	Status            models.ContractStatus
	ProviderID        *uint
	HumanitarianOrgID *uint
	ParkingServiceID  *uint
	Search            string
	// ExpiringWithin selects contracts ending in [today, today+N days]; with
	// IncludeExpired it also selects those that ended in the last N days.
	ExpiringWithin *int
	IncludeExpired bool
	Today          time.Time
	Page
}

type ActivityLogFilter struct {
	Action     string
	EntityType string
	UserID     *uint
	Severity   models.LogSeverity
	Page
}

type Store interface {
	Ping(ctx context.Context) error

	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	ListActiveUserIDsByRoles(ctx context.Context, roles ...models.UserRole) ([]uint, error)

	CreateComplaint(ctx context.Context, complaint *models.Complaint) error
	GetComplaint(ctx context.Context, id uint) (*models.Complaint, error)
	UpdateComplaint(ctx context.Context, complaint *models.Complaint) error
	DeleteComplaint(ctx context.Context, id uint) error
	ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, int64, error)
	AppendStatusHistory(ctx context.Context, entry *models.ComplaintStatusHistory) error
	ListStatusHistory(ctx context.Context, complaintID uint) ([]models.ComplaintStatusHistory, error)
	CreateComment(ctx context.Context, comment *models.Comment) error
	ListComments(ctx context.Context, complaintID uint, includeInternal bool) ([]models.Comment, error)

	CreateNotification(ctx context.Context, notification *models.Notification) error
	ListNotifications(ctx context.Context, userID uint, unreadOnly bool) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID uint) error
	MarkAllNotificationsRead(ctx context.Context, userID uint) (int64, error)

	CreateActivityLog(ctx context.Context, entry *models.ActivityLog) error
	ListActivityLogs(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error)

	CreateContract(ctx context.Context, contract *models.Contract) error
	GetContract(ctx context.Context, id uint) (*models.Contract, error)
	UpdateContract(ctx context.Context, contract *models.Contract) error
	DeleteContract(ctx context.Context, id uint) error
	ListContracts(ctx context.Context, filter ContractFilter) ([]models.Contract, int64, error)
	ListExpiringContracts(ctx context.Context, from, to time.Time) ([]models.Contract, error)

	CreateReminder(ctx context.Context, reminder *models.ContractReminder) error
	GetReminder(ctx context.Context, id uint) (*models.ContractReminder, error)
	UpdateReminder(ctx context.Context, reminder *models.ContractReminder) error
	ListDueReminders(ctx context.Context, now time.Time) ([]models.ContractReminder, error)
	ListContractReminders(ctx context.Context, contractID uint) ([]models.ContractReminder, error)
}
