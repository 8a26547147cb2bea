package services

import (
	"context"
	"testing"
	"time"

	"github.com/bizadmin/backend/internal/apperr"
	"github.com/bizadmin/backend/internal/models"
	"github.com/bizadmin/backend/internal/storage/storagetest"
	"github.com/stretchr/testify/require"
)

const (
	adminID uint = iota + 1
	managerID
	agent1ID
	agent2ID
	customerID
	inactiveAgentID
)

var fixedNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func actor(id uint, role models.UserRole) *models.Actor {
	return &models.Actor{ID: id, Role: role}
}

var (
	admin    = actor(adminID, models.RoleAdmin)
	manager  = actor(managerID, models.RoleManager)
	agent1   = actor(agent1ID, models.RoleAgent)
	agent2   = actor(agent2ID, models.RoleAgent)
	customer = actor(customerID, models.RoleUser)
)

func seedUsers(t *testing.T, store *storagetest.MemoryStore) {
	t.Helper()
	users := []models.User{
		{ID: adminID, Email: "admin@example.com", Name: "Admin", Role: models.RoleAdmin, IsActive: true},
		{ID: managerID, Email: "manager@example.com", Name: "Manager", Role: models.RoleManager, IsActive: true},
		{ID: agent1ID, Email: "agent1@example.com", Name: "Agent One", Role: models.RoleAgent, IsActive: true},
		{ID: agent2ID, Email: "agent2@example.com", Name: "Agent Two", Role: models.RoleAgent, IsActive: true},
		{ID: customerID, Email: "customer@example.com", Name: "Customer", Role: models.RoleUser, IsActive: true},
		{ID: inactiveAgentID, Email: "gone@example.com", Name: "Former Agent", Role: models.RoleAgent, IsActive: false},
	}
	for i := range users {
		require.NoError(t, store.CreateUser(context.Background(), &users[i]))
	}
}

func notificationsFor(store *storagetest.MemoryStore, userID uint) []models.Notification {
	var out []models.Notification
	for _, n := range store.Notifications() {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, apperr.KindOf(err), "error: %v", err)
}

func uintPtr(v uint) *uint { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func intPtr(v int) *int { return &v }
