package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bizadmin/backend/internal/models"
	"github.com/bizadmin/backend/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func actorRouter() *gin.Engine {
	r := gin.New()
	r.Use(AuthMiddleware(testSecret))
	r.GET("/me", func(c *gin.Context) {
		actor := ActorFromContext(c)
		c.JSON(http.StatusOK, gin.H{"id": actor.ID, "role": actor.Role})
	})
	return r
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	token := signToken(t, testSecret, jwt.MapClaims{
		"user_id": 7,
		"email":   "agent@example.com",
		"role":    string(models.RoleAgent),
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	actorRouter().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":7,"role":"AGENT"}`, w.Body.String())
}

func TestAuthMiddlewareRejects(t *testing.T) {
	expired := signToken(t, testSecret, jwt.MapClaims{"user_id": 7, "role": "AGENT", "exp": time.Now().Add(-time.Hour).Unix()})
	wrongKey := signToken(t, "other", jwt.MapClaims{"user_id": 7, "role": "AGENT"})
	badRole := signToken(t, testSecret, jwt.MapClaims{"user_id": 7, "role": "ROOT"})
	noUser := signToken(t, testSecret, jwt.MapClaims{"role": "ADMIN"})

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage", "Bearer not-a-token"},
		{"expired", "Bearer " + expired},
		{"wrong key", "Bearer " + wrongKey},
		{"unknown role", "Bearer " + badRole},
		{"no user id", "Bearer " + noUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			actorRouter().ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"success":false`)
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware(), CustomLoggerMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFromContext(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	generated := w.Header().Get(HeaderRequestID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
}

func TestSweepTokenMiddleware(t *testing.T) {
	newRouter := func(token string) *gin.Engine {
		r := gin.New()
		r.POST("/sweep", SweepTokenMiddleware(token), func(c *gin.Context) { c.Status(http.StatusNoContent) })
		return r
	}
	call := func(r *gin.Engine, header string) int {
		req := httptest.NewRequest(http.MethodPost, "/sweep", nil)
		if header != "" {
			req.Header.Set(HeaderSweepToken, header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	r := newRouter("s3cret")
	assert.Equal(t, http.StatusNoContent, call(r, "s3cret"))
	assert.Equal(t, http.StatusUnauthorized, call(r, "wrong"))
	assert.Equal(t, http.StatusUnauthorized, call(r, ""))
	assert.Equal(t, http.StatusNotFound, call(newRouter(""), "anything"))
}

type userTable map[uint]models.User

func (u userTable) GetUser(_ context.Context, id uint) (*models.User, error) {
	if id == 99 {
		return nil, errors.New("connection refused")
	}
	user, ok := u[id]
	if !ok {
		return nil, fmt.Errorf("get user: %w", storage.ErrNotFound)
	}
	return &user, nil
}

func TestCurrentUserMiddlewareUsesStoredAccount(t *testing.T) {
	users := userTable{
		7: {ID: 7, Role: models.RoleUser, IsActive: true},
		8: {ID: 8, Role: models.RoleAgent, IsActive: false},
	}
	r := gin.New()
	r.Use(AuthMiddleware(testSecret), CurrentUserMiddleware(users))
	r.GET("/me", func(c *gin.Context) {
		actor := ActorFromContext(c)
		c.JSON(http.StatusOK, gin.H{"id": actor.ID, "role": actor.Role})
	})

	call := func(id uint) *httptest.ResponseRecorder {
		// every token still claims MANAGER
		token := signToken(t, testSecret, jwt.MapClaims{
			"user_id": id,
			"role":    string(models.RoleManager),
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := call(7)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":7,"role":"USER"}`, w.Body.String())

	assert.Equal(t, http.StatusForbidden, call(8).Code)
	assert.Equal(t, http.StatusUnauthorized, call(42).Code)
	assert.Equal(t, http.StatusInternalServerError, call(99).Code)
}
