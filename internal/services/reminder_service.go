package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bizadmin/backend/internal/apperr"
	"github.com/bizadmin/backend/internal/logger"
	"github.com/bizadmin/backend/internal/metrics"
	"github.com/bizadmin/backend/internal/models"
	"github.com/bizadmin/backend/internal/permissions"
	"github.com/bizadmin/backend/internal/storage"
)

const (
	reminderEntityType = "reminder"
	contractEntityType = "contract"
	reminderDateLayout = "2006-01-02"
)

// SweepResult summarises one pass over the due reminders
type SweepResult struct {
	Processed         int    `json:"processed"`
	NotificationsSent int    `json:"notificationsSent"`
	Skipped           int    `json:"skipped"`
	ReminderIDs       []uint `json:"reminderIds"`
}

type CreateReminderInput struct {
	ReminderDate time.Time           `json:"reminderDate" validate:"required"`
	ReminderType models.ReminderType `json:"reminderType" validate:"required,oneof=expiration renewal review"`
}

// ExpiringCheckResult reports what CheckExpiringContracts did
type ExpiringCheckResult struct {
	ContractsChecked  int    `json:"contractsChecked"`
	RemindersCreated  int    `json:"remindersCreated"`
	NotificationsSent int    `json:"notificationsSent"`
	ContractIDs       []uint `json:"contractIds"`
}

type ReminderService struct {
	store         storage.Store
	notifications *NotificationService
	activity      *ActivityLogService
	// redispatchWindow suppresses a second dispatch of the same reminder while
	// its last dispatch is younger than the window. Zero sends on every sweep.
	redispatchWindow time.Duration
	now              func() time.Time
}

func NewReminderService(store storage.Store, notifications *NotificationService, activity *ActivityLogService, redispatchWindow time.Duration) *ReminderService {
	return &ReminderService{
		store:            store,
		notifications:    notifications,
		activity:         activity,
		redispatchWindow: redispatchWindow,
		now:              time.Now,
	}
}

// SweepDueReminders notifies contract creators about every unacknowledged
// reminder whose date has passed. It never acknowledges; callers may invoke it
// any number of times and, unless a redispatch window is set, each run sends again.
func (s *ReminderService) SweepDueReminders(ctx context.Context) (*SweepResult, error) {
	now := s.now()
	reminders, err := s.store.ListDueReminders(ctx, now)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch due reminders", err)
	}

	result := &SweepResult{ReminderIDs: []uint{}}
	for i := range reminders {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		reminder := &reminders[i]
		log := logger.WithReminder(reminder.ID, reminder.ContractID)

		if reminder.Contract == nil {
			log.Warn("Reminder has no contract, skipping")
			result.Skipped++
			continue
		}
		if s.redispatchWindow > 0 && reminder.LastDispatchedAt != nil &&
			now.Sub(*reminder.LastDispatchedAt) < s.redispatchWindow {
			log.Debug("Reminder dispatched recently, skipping")
			result.Skipped++
			continue
		}

		result.Processed++
		result.ReminderIDs = append(result.ReminderIDs, reminder.ID)

		message, ok := reminderMessage(reminder)
		if !ok {
			log.WithField("reminder_type", reminder.ReminderType).Warn("Unknown reminder type")
			continue
		}
		if reminder.Contract.CreatedByID == 0 {
			log.Warn("Contract has no creator to notify")
			continue
		}

		err := s.notifications.Notify(ctx, reminder.Contract.CreatedByID, NotificationInput{
			Title:      "Contract Reminder: " + strings.ToUpper(string(reminder.ReminderType)),
			Message:    message,
			Type:       models.NotificationReminder,
			EntityType: reminderEntityType,
			EntityID:   reminder.ID,
		})
		if err != nil {
			continue
		}
		result.NotificationsSent++
		metrics.ReminderNotifications.WithLabelValues(string(reminder.ReminderType)).Inc()

		dispatched := now
		reminder.LastDispatchedAt = &dispatched
		if err := s.store.UpdateReminder(ctx, reminder); err != nil {
			log.WithError(err).Error("Failed to stamp reminder dispatch time")
		}
	}

	logger.Info("Reminder sweep finished", map[string]interface{}{
		"due":                len(reminders),
		"processed":          result.Processed,
		"notifications_sent": result.NotificationsSent,
		"skipped":            result.Skipped,
	})
	return result, nil
}

func reminderMessage(r *models.ContractReminder) (string, bool) {
	switch r.ReminderType {
	case models.ReminderExpiration:
		return fmt.Sprintf("Contract %q is expiring on %s", r.Contract.Name, r.Contract.EndDate.Format(reminderDateLayout)), true
	case models.ReminderRenewal:
		return fmt.Sprintf("Contract %q renewal reminder.", r.Contract.Name), true
	case models.ReminderReview:
		return fmt.Sprintf("Contract %q requires review.", r.Contract.Name), true
	}
	return "", false
}

// Acknowledge closes a reminder for the acting user
func (s *ReminderService) Acknowledge(ctx context.Context, actor *models.Actor, reminderID uint) (*models.ContractReminder, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !permissions.Can(actor.Role, permissions.Reminders, permissions.Acknowledge) {
		return nil, apperr.Forbidden("Not authorized to acknowledge reminders")
	}

	reminder, err := s.store.GetReminder(ctx, reminderID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("Reminder not found")
		}
		return nil, apperr.Internal("Failed to load reminder", err)
	}
	if reminder.IsAcknowledged {
		return nil, apperr.Conflict("Reminder already acknowledged")
	}

	now := s.now()
	by := actor.ID
	reminder.IsAcknowledged = true
	reminder.AcknowledgedByID = &by
	reminder.AcknowledgedAt = &now
	if err := s.store.UpdateReminder(ctx, reminder); err != nil {
		return nil, apperr.Internal("Failed to acknowledge reminder", err)
	}

	s.activity.Record(ctx, &models.ActivityLog{
		Action:     models.ActionReminderAcknowledged,
		EntityType: reminderEntityType,
		EntityID:   reminder.ID,
		UserID:     actor.ID,
		Details:    fmt.Sprintf("Reminder %d for contract %d acknowledged", reminder.ID, reminder.ContractID),
	})
	return reminder, nil
}

// Create schedules a reminder on a contract. The date may be today but not earlier.
func (s *ReminderService) Create(ctx context.Context, actor *models.Actor, contractID uint, in CreateReminderInput) (*models.ContractReminder, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !permissions.Can(actor.Role, permissions.Reminders, permissions.Create) {
		return nil, apperr.Forbidden("Not authorized to create reminders")
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.ReminderDate.Before(startOfDay(s.now())) {
		return nil, apperr.Validation("Validation failed", map[string]string{"reminderDate": "must not be in the past"})
	}

	if _, err := s.store.GetContract(ctx, contractID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("Contract not found")
		}
		return nil, apperr.Internal("Failed to load contract", err)
	}

	reminder := &models.ContractReminder{
		ContractID:   contractID,
		ReminderDate: in.ReminderDate,
		ReminderType: in.ReminderType,
	}
	if err := s.store.CreateReminder(ctx, reminder); err != nil {
		return nil, apperr.Internal("Failed to create reminder", err)
	}

	s.activity.Record(ctx, &models.ActivityLog{
		Action:     models.ActionReminderCreated,
		EntityType: reminderEntityType,
		EntityID:   reminder.ID,
		UserID:     actor.ID,
		Details:    fmt.Sprintf("%s reminder scheduled for contract %d on %s", reminder.ReminderType, contractID, reminder.ReminderDate.Format(reminderDateLayout)),
	})
	return reminder, nil
}

func (s *ReminderService) ListForContract(ctx context.Context, actor *models.Actor, contractID uint) ([]models.ContractReminder, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !permissions.Can(actor.Role, permissions.Contracts, permissions.View) {
		return nil, apperr.Forbidden("Not authorized to view contracts")
	}
	reminders, err := s.store.ListContractReminders(ctx, contractID)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch reminders", err)
	}
	return reminders, nil
}

// CheckExpiringContracts makes sure every ACTIVE contract ending in the next
// days has an expiration reminder, and tells the creator when one is added.
func (s *ReminderService) CheckExpiringContracts(ctx context.Context, days int) (*ExpiringCheckResult, error) {
	if days < 1 {
		return nil, apperr.Validation("Validation failed", map[string]string{"days": "must be at least 1"})
	}

	today := startOfDay(s.now())
	until := today.AddDate(0, 0, days+1).Add(-time.Nanosecond)
	contracts, err := s.store.ListExpiringContracts(ctx, today, until)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch expiring contracts", err)
	}

	result := &ExpiringCheckResult{ContractIDs: []uint{}}
	for i := range contracts {
		contract := &contracts[i]
		if contract.Status != models.ContractActive {
			continue
		}
		result.ContractsChecked++
		if hasReminderOfType(contract.Reminders, models.ReminderExpiration) {
			continue
		}

		reminder := &models.ContractReminder{
			ContractID:   contract.ID,
			ReminderDate: today,
			ReminderType: models.ReminderExpiration,
		}
		if err := s.store.CreateReminder(ctx, reminder); err != nil {
			logger.WithError(err, "reminder_service").WithField("contract_id", contract.ID).Error("Failed to create expiration reminder")
			continue
		}
		result.RemindersCreated++
		result.ContractIDs = append(result.ContractIDs, contract.ID)

		daysLeft := int(startOfDay(contract.EndDate).Sub(today).Hours() / 24)
		err := s.notifications.Notify(ctx, contract.CreatedByID, NotificationInput{
			Title:      "Contract Expiring Soon",
			Message:    fmt.Sprintf("Contract %q expires in %d days (%s).", contract.Name, daysLeft, contract.EndDate.Format(reminderDateLayout)),
			Type:       models.NotificationContractExpiring,
			EntityType: contractEntityType,
			EntityID:   contract.ID,
		})
		if err == nil {
			result.NotificationsSent++
		}
	}
	return result, nil
}

func hasReminderOfType(reminders []models.ContractReminder, t models.ReminderType) bool {
	for _, r := range reminders {
		if r.ReminderType == t {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
