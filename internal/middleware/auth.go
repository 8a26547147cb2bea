package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bizadmin/backend/internal/logger"
	"github.com/bizadmin/backend/internal/models"
	"github.com/bizadmin/backend/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUserRole  = "user_role"
)

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   message,
	})
}

// AuthMiddleware validates the bearer token and stores the caller's id, email
// and role on the context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Authorization header required")
			return
		}

		// Check if the header starts with "Bearer "
		if !strings.HasPrefix(authHeader, "Bearer ") {
			unauthorized(c, "Invalid authorization header format")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			// Validate the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			unauthorized(c, "Invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			unauthorized(c, "Invalid token")
			return
		}

		// JSON numbers decode as float64
		userID, ok := claims["user_id"].(float64)
		if !ok || userID <= 0 {
			unauthorized(c, "Invalid token")
			return
		}
		role, _ := claims["role"].(string)
		if !models.UserRole(role).Valid() {
			unauthorized(c, "Invalid token")
			return
		}

		c.Set(ContextUserID, uint(userID))
		c.Set(ContextUserRole, models.UserRole(role))
		if email, ok := claims["email"].(string); ok {
			c.Set(ContextUserEmail, email)
		}

		c.Next()
	}
}

// UserLookup loads the account behind a token.
type UserLookup interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
}

// CurrentUserMiddleware runs after AuthMiddleware and replaces the token's role
// with the stored one. Deleted accounts get 401, deactivated ones 403.
func CurrentUserMiddleware(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetUint(ContextUserID)
		if id == 0 {
			unauthorized(c, "User not authenticated")
			return
		}

		user, err := users.GetUser(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				unauthorized(c, "User not found")
				return
			}
			logger.WithError(err, "auth_middleware").WithField("user_id", id).Error("Failed to load user")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Failed to load user",
			})
			return
		}
		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "Account is disabled",
			})
			return
		}

		c.Set(ContextUserRole, user.Role)
		c.Set(ContextUserEmail, user.Email)
		c.Next()
	}
}

// ActorFromContext returns the authenticated caller, or nil on public routes.
func ActorFromContext(c *gin.Context) *models.Actor {
	id := c.GetUint(ContextUserID)
	if id == 0 {
		return nil
	}
	role, _ := c.Get(ContextUserRole)
	r, _ := role.(models.UserRole)
	return &models.Actor{ID: id, Role: r}
}
