package services

import (
	"context"
	"errors"
	"testing"

	"github.com/bizadmin/backend/internal/apperr"
	"github.com/bizadmin/backend/internal/models"
	"github.com/bizadmin/backend/internal/storage"
	"github.com/bizadmin/backend/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyRolesSkipsExcludedAndInactive(t *testing.T) {
	store := storagetest.NewMemoryStore()
	seedUsers(t, store)
	svc := NewNotificationService(store)

	sent, err := svc.NotifyRoles(context.Background(), []models.UserRole{models.RoleAdmin, models.RoleAgent}, adminID, NotificationInput{
		Title: "Heads up",
		Type:  models.NotificationComplaintUpdated,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Len(t, notificationsFor(store, agent1ID), 1)
	assert.Len(t, notificationsFor(store, agent2ID), 1)
	assert.Empty(t, notificationsFor(store, adminID))
	assert.Empty(t, notificationsFor(store, inactiveAgentID))
}

func TestNotifyRolesReportsFailures(t *testing.T) {
	store := storagetest.NewMemoryStore()
	seedUsers(t, store)
	store.FailOn("CreateNotification", errors.New("insert failed"))
	svc := NewNotificationService(store)

	sent, err := svc.NotifyRoles(context.Background(), []models.UserRole{models.RoleManager}, 0, NotificationInput{Title: "x"})
	assert.Error(t, err)
	assert.Zero(t, sent)
}

func TestMarkNotificationsRead(t *testing.T) {
	store := storagetest.NewMemoryStore()
	seedUsers(t, store)
	svc := NewNotificationService(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Notify(ctx, customerID, NotificationInput{Title: "Update", Type: models.NotificationComplaintUpdated}))
	}
	require.NoError(t, svc.Notify(ctx, agent1ID, NotificationInput{Title: "Other"}))

	mine, err := svc.ListForUser(ctx, customer, true)
	require.NoError(t, err)
	require.Len(t, mine, 3)

	require.NoError(t, svc.MarkRead(ctx, customer, mine[0].ID))

	agentNote := notificationsFor(store, agent1ID)[0]
	err = svc.MarkRead(ctx, customer, agentNote.ID)
	requireKind(t, err, apperr.KindNotFound)

	n, err := svc.MarkAllRead(ctx, customer)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	unread, err := svc.ListForUser(ctx, customer, true)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestActivityLogListIsAdminOnly(t *testing.T) {
	store := storagetest.NewMemoryStore()
	seedUsers(t, store)
	svc := NewActivityLogService(store)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, &models.ActivityLog{Action: models.ActionUserRegistered, EntityType: "user", EntityID: customerID, UserID: customerID}))
	require.NoError(t, svc.Record(ctx, &models.ActivityLog{Action: models.ActionContractCreated, EntityType: "contract", EntityID: 1, UserID: managerID, Severity: models.SeverityWarning}))

	_, _, err := svc.List(ctx, manager, storage.ActivityLogFilter{})
	requireKind(t, err, apperr.KindForbidden)

	logs, total, err := svc.List(ctx, admin, storage.ActivityLogFilter{Severity: models.SeverityInfo})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActionUserRegistered, logs[0].Action)
}
