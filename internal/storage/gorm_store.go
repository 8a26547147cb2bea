package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bizadmin/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on top of gorm. Statements are issued one by one;
// callers get no cross-statement atomicity.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, ErrConflict)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Users

func (s *GormStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, translate(err, "get user")
	}
	return &user, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&user).Error
	if err != nil {
		return nil, translate(err, "get user by email")
	}
	return &user, nil
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(user.Email)
	return translate(s.db.WithContext(ctx).Create(user).Error, "create user")
}

func (s *GormStore) ListActiveUserIDsByRoles(ctx context.Context, roles ...models.UserRole) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("role IN ? AND is_active = ?", roles, true).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, translate(err, "list users by role")
	}
	return ids, nil
}

// Complaints

func (s *GormStore) CreateComplaint(ctx context.Context, complaint *models.Complaint) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(complaint).Error, "create complaint")
}

func (s *GormStore) GetComplaint(ctx context.Context, id uint) (*models.Complaint, error) {
	var complaint models.Complaint
	err := s.db.WithContext(ctx).
		Preload("SubmittedBy").
		Preload("AssignedAgent").
		First(&complaint, id).Error
	if err != nil {
		return nil, translate(err, "get complaint")
	}
	return &complaint, nil
}

func (s *GormStore) UpdateComplaint(ctx context.Context, complaint *models.Complaint) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Save(complaint).Error, "update complaint")
}

// DeleteComplaint soft-deletes the complaint; its history and comments stay.
func (s *GormStore) DeleteComplaint(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Complaint{}, id)
	if result.Error != nil {
		return translate(result.Error, "delete complaint")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("delete complaint: %w", ErrNotFound)
	}
	return nil
}

func (s *GormStore) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Complaint{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.AssignedAgentID != nil {
		query = query.Where("assigned_agent_id = ?", *filter.AssignedAgentID)
	}
	if filter.SubmittedByID != nil {
		query = query.Where("submitted_by_id = ?", *filter.SubmittedByID)
	}
	if filter.Entity != nil {
		query = query.Where("entity_type = ? AND entity_id = ?", filter.Entity.Type, filter.Entity.ID)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count complaints")
	}

	page := filter.Page.Normalize()
	var complaints []models.Complaint
	err := query.
		Preload("SubmittedBy").
		Preload("AssignedAgent").
		Order("created_at desc").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&complaints).Error
	if err != nil {
		return nil, 0, translate(err, "list complaints")
	}
	return complaints, total, nil
}

func (s *GormStore) AppendStatusHistory(ctx context.Context, entry *models.ComplaintStatusHistory) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(entry).Error, "append status history")
}

func (s *GormStore) ListStatusHistory(ctx context.Context, complaintID uint) ([]models.ComplaintStatusHistory, error) {
	var history []models.ComplaintStatusHistory
	err := s.db.WithContext(ctx).
		Preload("ChangedBy").
		Where("complaint_id = ?", complaintID).
		Order("changed_at asc, id asc").
		Find(&history).Error
	if err != nil {
		return nil, translate(err, "list status history")
	}
	return history, nil
}

func (s *GormStore) CreateComment(ctx context.Context, comment *models.Comment) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error, "create comment")
}

func (s *GormStore) ListComments(ctx context.Context, complaintID uint, includeInternal bool) ([]models.Comment, error) {
	query := s.db.WithContext(ctx).Preload("User").Where("complaint_id = ?", complaintID)
	if !includeInternal {
		query = query.Where("is_internal = ?", false)
	}

	var comments []models.Comment
	if err := query.Order("created_at asc, id asc").Find(&comments).Error; err != nil {
		return nil, translate(err, "list comments")
	}
	return comments, nil
}

// Notifications

func (s *GormStore) CreateNotification(ctx context.Context, notification *models.Notification) error {
	return translate(s.db.WithContext(ctx).Create(notification).Error, "create notification")
}

func (s *GormStore) ListNotifications(ctx context.Context, userID uint, unreadOnly bool) ([]models.Notification, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	if err := query.Order("created_at desc").Limit(MaxPageSize).Find(&notifications).Error; err != nil {
		return nil, translate(err, "list notifications")
	}
	return notifications, nil
}

func (s *GormStore) MarkNotificationRead(ctx context.Context, id, userID uint) error {
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if result.Error != nil {
		return translate(result.Error, "mark notification read")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("mark notification read: %w", ErrNotFound)
	}
	return nil
}

func (s *GormStore) MarkAllNotificationsRead(ctx context.Context, userID uint) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, translate(result.Error, "mark all notifications read")
	}
	return result.RowsAffected, nil
}

// Activity log

func (s *GormStore) CreateActivityLog(ctx context.Context, entry *models.ActivityLog) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(entry).Error, "create activity log")
}

func (s *GormStore) ListActivityLogs(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.ActivityLog{})

	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count activity logs")
	}

	page := filter.Page.Normalize()
	var logs []models.ActivityLog
	err := query.Preload("User").
		Order("created_at desc").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&logs).Error
	if err != nil {
		return nil, 0, translate(err, "list activity logs")
	}
	return logs, total, nil
}

// Contracts

func (s *GormStore) CreateContract(ctx context.Context, contract *models.Contract) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(contract).Error, "create contract")
}

func (s *GormStore) GetContract(ctx context.Context, id uint) (*models.Contract, error) {
	var contract models.Contract
	err := s.db.WithContext(ctx).
		Preload("CreatedBy").
		Preload("Reminders", func(db *gorm.DB) *gorm.DB {
			return db.Order("reminder_date asc")
		}).
		First(&contract, id).Error
	if err != nil {
		return nil, translate(err, "get contract")
	}
	return &contract, nil
}

func (s *GormStore) UpdateContract(ctx context.Context, contract *models.Contract) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Save(contract).Error, "update contract")
}

// DeleteContract soft-deletes the contract. Its reminders are skipped by the
// sweep once the contract no longer loads.
func (s *GormStore) DeleteContract(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Contract{}, id)
	if result.Error != nil {
		return translate(result.Error, "delete contract")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("delete contract: %w", ErrNotFound)
	}
	return nil
}

func (s *GormStore) ListContracts(ctx context.Context, filter ContractFilter) ([]models.Contract, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Contract{})

	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ProviderID != nil {
		query = query.Where("provider_id = ?", *filter.ProviderID)
	}
	if filter.HumanitarianOrgID != nil {
		query = query.Where("humanitarian_org_id = ?", *filter.HumanitarianOrgID)
	}
	if filter.ParkingServiceID != nil {
		query = query.Where("parking_service_id = ?", *filter.ParkingServiceID)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		like := "%" + term + "%"
		query = query.Where("name ILIKE ? OR contract_number ILIKE ? OR description ILIKE ?", like, like, like)
	}
	if filter.ExpiringWithin != nil {
		today := filter.Today
		future := today.AddDate(0, 0, *filter.ExpiringWithin)
		if filter.IncludeExpired {
			past := today.AddDate(0, 0, -*filter.ExpiringWithin)
			query = query.Where("(end_date >= ? AND end_date <= ?) OR (end_date >= ? AND end_date < ?)",
				today, future, past, today)
		} else {
			query = query.Where("end_date >= ? AND end_date <= ?", today, future)
		}
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count contracts")
	}

	page := filter.Page.Normalize()
	var contracts []models.Contract
	err := query.
		Order("end_date asc").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&contracts).Error
	if err != nil {
		return nil, 0, translate(err, "list contracts")
	}
	return contracts, total, nil
}

func (s *GormStore) ListExpiringContracts(ctx context.Context, from, to time.Time) ([]models.Contract, error) {
	var contracts []models.Contract
	err := s.db.WithContext(ctx).
		Preload("CreatedBy").
		Preload("Reminders", "reminder_type = ?", models.ReminderExpiration).
		Where("status = ? AND end_date >= ? AND end_date <= ?", models.ContractActive, from, to).
		Find(&contracts).Error
	if err != nil {
		return nil, translate(err, "list expiring contracts")
	}
	return contracts, nil
}

// Reminders

func (s *GormStore) CreateReminder(ctx context.Context, reminder *models.ContractReminder) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(reminder).Error, "create reminder")
}

func (s *GormStore) GetReminder(ctx context.Context, id uint) (*models.ContractReminder, error) {
	var reminder models.ContractReminder
	if err := s.db.WithContext(ctx).First(&reminder, id).Error; err != nil {
		return nil, translate(err, "get reminder")
	}
	return &reminder, nil
}

func (s *GormStore) UpdateReminder(ctx context.Context, reminder *models.ContractReminder) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Save(reminder).Error, "update reminder")
}

func (s *GormStore) ListDueReminders(ctx context.Context, now time.Time) ([]models.ContractReminder, error) {
	var reminders []models.ContractReminder
	err := s.db.WithContext(ctx).
		Preload("Contract.CreatedBy").
		Where("is_acknowledged = ? AND reminder_date <= ?", false, now).
		Order("reminder_date asc").
		Find(&reminders).Error
	if err != nil {
		return nil, translate(err, "list due reminders")
	}
	return reminders, nil
}

func (s *GormStore) ListContractReminders(ctx context.Context, contractID uint) ([]models.ContractReminder, error) {
	var reminders []models.ContractReminder
	err := s.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("reminder_date asc").
		Find(&reminders).Error
	if err != nil {
		return nil, translate(err, "list contract reminders")
	}
	return reminders, nil
}

var _ Store = (*GormStore)(nil)
