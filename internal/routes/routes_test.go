package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bizadmin/backend/internal/cache"
	"github.com/bizadmin/backend/internal/config"
	"github.com/bizadmin/backend/internal/models"
	"github.com/bizadmin/backend/internal/storage/storagetest"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "correct-horse"

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
	Info    string            `json:"info"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	store  *storagetest.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{JWTSecret: "routes-test-secret", JWTExpirationHours: 1}
	cfg.Reminders.SweepToken = "sweep-secret"
	cfg.Reminders.ExpiringContractDays = 30

	store := storagetest.NewMemoryStore()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	for _, u := range []models.User{
		{ID: 1, Email: "admin@example.com", Name: "Admin", Role: models.RoleAdmin},
		{ID: 2, Email: "manager@example.com", Name: "Manager", Role: models.RoleManager},
		{ID: 3, Email: "agent@example.com", Name: "Agent", Role: models.RoleAgent},
		{ID: 4, Email: "user@example.com", Name: "User", Role: models.RoleUser},
	} {
		u.Password = string(hash)
		u.IsActive = true
		require.NoError(t, store.CreateUser(context.Background(), &u))
	}

	r := gin.New()
	SetupRoutes(r, store, cache.NewMemoryCache(time.Minute, time.Minute), cfg)
	return &testServer{t: t, router: r, store: store}
}

func (s *testServer) do(method, path, token string, body interface{}, headers ...string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func (s *testServer) login(email string) string {
	s.t.Helper()
	w, env := s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": testPassword})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var auth struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &auth))
	require.NotEmpty(s.t, auth.Token)
	return auth.Token
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	s.store.FailOn("Ping", assert.AnError)
	w, _ = s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "admin@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)

	w, env = s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "new@example.com", "password": "short", "name": "N"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Fields, "password")
	assert.Contains(t, env.Fields, "name")

	w, _ = s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "new@example.com", "password": "long-enough", "name": "Newcomer"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, _ = s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "new@example.com", "password": "long-enough", "name": "Newcomer"})
	assert.Equal(t, http.StatusConflict, w.Code)

	token := s.login("agent@example.com")
	w, env = s.do(http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"role":"AGENT"`)
	assert.NotContains(t, string(env.Data), "password")

	w, _ = s.do(http.MethodPost, "/api/v1/auth/refresh", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodPost, "/api/v1/auth/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestComplaintLifecycle(t *testing.T) {
	s := newTestServer(t)
	user := s.login("user@example.com")
	admin := s.login("admin@example.com")
	agent := s.login("agent@example.com")

	w, env := s.do(http.MethodPost, "/api/v1/complaints", user, gin.H{
		"title":       "Broken gate",
		"description": "The parking gate does not open.",
		"entity":      gin.H{"type": "parking_service", "id": 12},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Complaint
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, models.ComplaintNew, created.Status)

	path := "/api/v1/complaints/" + jsonID(created.ID)

	w, _ = s.do(http.MethodPatch, path+"/status", user, gin.H{"status": "CLOSED"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(http.MethodPatch, path+"/status", admin, gin.H{"status": "ASSIGNED", "assignedAgentId": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var assigned models.Complaint
	require.NoError(t, json.Unmarshal(env.Data, &assigned))
	assert.Equal(t, models.ComplaintAssigned, assigned.Status)
	require.NotNil(t, assigned.AssignedAgentID)
	assert.Equal(t, uint(3), *assigned.AssignedAgentID)

	w, env = s.do(http.MethodPatch, path+"/status", agent, gin.H{"status": "ASSIGNED"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Status and assignment unchanged", env.Info)

	w, _ = s.do(http.MethodPatch, path+"/status", agent, gin.H{"status": "RESOLVED", "notes": "gate motor replaced"})
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(http.MethodGet, path+"/history", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []models.ComplaintStatusHistory
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 3)
	assert.Equal(t, models.ComplaintResolved, history[2].NewStatus)

	w, env = s.do(http.MethodPatch, path+"/status", admin, gin.H{"status": "DONE"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Fields, "status")

	w, _ = s.do(http.MethodPatch, path+"/assign", agent, gin.H{"assignedAgentId": nil})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodPatch, path+"/assign", admin, gin.H{"assignedAgentId": nil})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/complaints/999", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = s.do(http.MethodGet, "/api/v1/notifications?unread=true", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var notes []models.Notification
	require.NoError(t, json.Unmarshal(env.Data, &notes))
	assert.NotEmpty(t, notes)

	w, _ = s.do(http.MethodPatch, "/api/v1/notifications/read-all", user, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestContractsCacheHeaderAndReminders(t *testing.T) {
	s := newTestServer(t)
	manager := s.login("manager@example.com")
	agent := s.login("agent@example.com")

	w, _ := s.do(http.MethodGet, "/api/v1/contracts?type=PARKING", agent, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	w, _ = s.do(http.MethodGet, "/api/v1/contracts?type=PARKING", agent, nil)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	start := time.Now().UTC().Truncate(time.Second)
	w, env := s.do(http.MethodPost, "/api/v1/contracts", manager, gin.H{
		"name":           "Airport parking",
		"contractNumber": "P-1",
		"type":           "PARKING",
		"status":         "ACTIVE",
		"startDate":      start.AddDate(-1, 0, 0),
		"endDate":        start.AddDate(0, 0, 10),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var contract models.Contract
	require.NoError(t, json.Unmarshal(env.Data, &contract))

	w, _ = s.do(http.MethodGet, "/api/v1/contracts?type=PARKING", agent, nil)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	w, _ = s.do(http.MethodPost, "/api/v1/contracts/expiring/check", agent, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(http.MethodPost, "/api/v1/contracts/expiring/check", manager, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"remindersCreated":1`)

	w, env = s.do(http.MethodGet, "/api/v1/contracts/"+jsonID(contract.ID)+"/reminders", agent, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reminders []models.ContractReminder
	require.NoError(t, json.Unmarshal(env.Data, &reminders))
	require.Len(t, reminders, 1)

	w, _ = s.do(http.MethodPost, "/api/v1/internal/reminders/sweep", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = s.do(http.MethodPost, "/api/v1/internal/reminders/sweep", "", nil, "X-Sweep-Token", "sweep-secret")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"notificationsSent":1`)

	w, _ = s.do(http.MethodPost, "/api/v1/reminders/"+jsonID(reminders[0].ID)+"/acknowledge", agent, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodPost, "/api/v1/reminders/"+jsonID(reminders[0].ID)+"/acknowledge", agent, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSecurityLogsAdminOnly(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin@example.com")
	manager := s.login("manager@example.com")

	w, _ := s.do(http.MethodGet, "/api/v1/security/logs", manager, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/security/logs?limit=5000", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/security/logs?limit=10", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestComplaintEditCommentsAndDelete(t *testing.T) {
	s := newTestServer(t)
	user := s.login("user@example.com")
	agent := s.login("agent@example.com")
	manager := s.login("manager@example.com")
	admin := s.login("admin@example.com")

	w, env := s.do(http.MethodPost, "/api/v1/complaints", user, gin.H{
		"title":       "Broken gate",
		"description": "The parking gate does not open.",
		"entity":      gin.H{"type": "parking_service", "id": 12},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Complaint
	require.NoError(t, json.Unmarshal(env.Data, &created))
	path := "/api/v1/complaints/" + jsonID(created.ID)

	w, env = s.do(http.MethodPatch, path, user, gin.H{"title": "Broken parking gate"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"title":"Broken parking gate"`)

	w, _ = s.do(http.MethodPatch, path, user, gin.H{"entity": gin.H{"type": "provider", "id": 4}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(http.MethodPatch, path, agent, gin.H{"entity": nil})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cleared models.Complaint
	require.NoError(t, json.Unmarshal(env.Data, &cleared))
	assert.True(t, cleared.Entity.IsZero())

	w, env = s.do(http.MethodPatch, path, manager, gin.H{"status": "ASSIGNED", "assignedAgentId": 3, "priority": 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var assigned models.Complaint
	require.NoError(t, json.Unmarshal(env.Data, &assigned))
	assert.Equal(t, models.ComplaintAssigned, assigned.Status)
	assert.Equal(t, 5, assigned.Priority)
	require.NotNil(t, assigned.AssignedAgent)
	assert.Equal(t, uint(3), assigned.AssignedAgent.ID)

	w, env = s.do(http.MethodPatch, path, manager, gin.H{"priority": 5})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Nothing to update", env.Info)

	w, _ = s.do(http.MethodPost, path+"/comments", agent, gin.H{"text": "Motor fuse blown", "isInternal": true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w, _ = s.do(http.MethodPost, path+"/comments", user, gin.H{"text": "Thanks", "isInternal": true})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(http.MethodPost, path+"/comments", user, gin.H{"text": "Thanks"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env = s.do(http.MethodGet, path+"/comments", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var comments []models.Comment
	require.NoError(t, json.Unmarshal(env.Data, &comments))
	require.Len(t, comments, 1)
	assert.Equal(t, "Thanks", comments[0].Text)

	w, env = s.do(http.MethodGet, path+"/comments", agent, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &comments))
	assert.Len(t, comments, 2)

	w, _ = s.do(http.MethodDelete, path, manager, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(http.MethodDelete, path, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodGet, path, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestContractEditDeleteAndManualSweep(t *testing.T) {
	s := newTestServer(t)
	manager := s.login("manager@example.com")
	agent := s.login("agent@example.com")
	admin := s.login("admin@example.com")

	start := time.Now().UTC().Truncate(time.Second)
	w, env := s.do(http.MethodPost, "/api/v1/contracts", manager, gin.H{
		"name":           "Harbor parking",
		"contractNumber": "P-9",
		"type":           "PARKING",
		"startDate":      start,
		"endDate":        start.AddDate(1, 0, 0),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var contract models.Contract
	require.NoError(t, json.Unmarshal(env.Data, &contract))
	path := "/api/v1/contracts/" + jsonID(contract.ID)

	w, _ = s.do(http.MethodPatch, path, agent, gin.H{"name": "Nope"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(http.MethodPatch, path, manager, gin.H{"name": "Harbor parking east", "status": "ACTIVE"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"status":"ACTIVE"`)

	w, env = s.do(http.MethodPatch, path, manager, gin.H{"revenuePercentage": 150})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Fields, "revenuePercentage")

	w, _ = s.do(http.MethodPost, "/api/v1/reminders/sweep", agent, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, env = s.do(http.MethodPost, "/api/v1/reminders/sweep", manager, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"notificationsSent":0`)

	w, _ = s.do(http.MethodDelete, path, manager, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(http.MethodDelete, path, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodGet, path, agent, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoleChangesApplyToIssuedTokens(t *testing.T) {
	s := newTestServer(t)
	manager := s.login("manager@example.com")

	w, _ := s.do(http.MethodPost, "/api/v1/contracts/expiring/check", manager, nil)
	require.Equal(t, http.StatusOK, w.Code)

	demoted, err := s.store.GetUser(context.Background(), 2)
	require.NoError(t, err)
	demoted.Role = models.RoleAgent
	s.store.PutUser(*demoted)

	w, _ = s.do(http.MethodPost, "/api/v1/contracts/expiring/check", manager, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := s.do(http.MethodPost, "/api/v1/auth/refresh", manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"role":"AGENT"`)

	demoted.IsActive = false
	s.store.PutUser(*demoted)
	w, _ = s.do(http.MethodGet, "/api/v1/users/me", manager, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func jsonID(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
