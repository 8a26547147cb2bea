package services

import (
	"context"

	"github.com/bizadmin/backend/internal/apperr"
	"github.com/bizadmin/backend/internal/logger"
	"github.com/bizadmin/backend/internal/models"
	"github.com/bizadmin/backend/internal/permissions"
	"github.com/bizadmin/backend/internal/storage"
)

// ActivityLogService writes and reads the audit trail
type ActivityLogService struct {
	store storage.Store
}

func NewActivityLogService(store storage.Store) *ActivityLogService {
	return &ActivityLogService{store: store}
}

// Record appends an audit row. Failures are logged and returned; callers on a
// mutation path ignore them so the primary write still reports success.
func (s *ActivityLogService) Record(ctx context.Context, entry *models.ActivityLog) error {
	if entry.Severity == "" {
		entry.Severity = models.SeverityInfo
	}
	if err := s.store.CreateActivityLog(ctx, entry); err != nil {
		logger.WithError(err, "activity_log_service").WithField("action", entry.Action).Error("Failed to record activity")
		return err
	}
	return nil
}

// List returns audit rows for administrators
func (s *ActivityLogService) List(ctx context.Context, actor *models.Actor, filter storage.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	if err := requireActor(actor); err != nil {
		return nil, 0, err
	}
	if !permissions.Can(actor.Role, permissions.SecurityLogs, permissions.View) {
		return nil, 0, apperr.Forbidden("Not authorized to view security logs")
	}

	logs, total, err := s.store.ListActivityLogs(ctx, filter)
	if err != nil {
		return nil, 0, apperr.Internal("Failed to fetch activity logs", err)
	}
	return logs, total, nil
}
