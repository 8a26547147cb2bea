package services

import (
	"context"
	"errors"

	"github.com/bizadmin/backend/internal/apperr"
	"github.com/bizadmin/backend/internal/logger"
	"github.com/bizadmin/backend/internal/models"
	"github.com/bizadmin/backend/internal/storage"
)

type NotificationInput struct {
	Title      string
	Message    string
	Type       models.NotificationType
	EntityType string
	EntityID   uint
}

// NotificationService persists in-app notifications. Delivery is the insert itself.
type NotificationService struct {
	store storage.Store
}

func NewNotificationService(store storage.Store) *NotificationService {
	return &NotificationService{store: store}
}

// Notify creates one notification for userID
func (s *NotificationService) Notify(ctx context.Context, userID uint, in NotificationInput) error {
	n := &models.Notification{
		Title:      in.Title,
		Message:    in.Message,
		Type:       in.Type,
		UserID:     userID,
		EntityType: in.EntityType,
		EntityID:   in.EntityID,
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		logger.WithError(err, "notification_service").WithField("user_id", userID).Error("Failed to create notification")
		return err
	}
	return nil
}

// NotifyRoles fans out to every active user holding one of roles, skipping exclude.
// It returns how many notifications were created.
func (s *NotificationService) NotifyRoles(ctx context.Context, roles []models.UserRole, exclude uint, in NotificationInput) (int, error) {
	ids, err := s.store.ListActiveUserIDsByRoles(ctx, roles...)
	if err != nil {
		logger.WithError(err, "notification_service").Error("Failed to resolve notification recipients")
		return 0, err
	}

	sent := 0
	var errs []error
	for _, id := range ids {
		if id == exclude {
			continue
		}
		if err := s.Notify(ctx, id, in); err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

func (s *NotificationService) ListForUser(ctx context.Context, actor *models.Actor, unreadOnly bool) ([]models.Notification, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	notifications, err := s.store.ListNotifications(ctx, actor.ID, unreadOnly)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch notifications", err)
	}
	return notifications, nil
}

// MarkRead flags one of the actor's own notifications as read
func (s *NotificationService) MarkRead(ctx context.Context, actor *models.Actor, id uint) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if err := s.store.MarkNotificationRead(ctx, id, actor.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("Notification not found")
		}
		return apperr.Internal("Failed to update notification", err)
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, actor *models.Actor) (int64, error) {
	if err := requireActor(actor); err != nil {
		return 0, err
	}
	n, err := s.store.MarkAllNotificationsRead(ctx, actor.ID)
	if err != nil {
		return 0, apperr.Internal("Failed to update notifications", err)
	}
	return n, nil
}
