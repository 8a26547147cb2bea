package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bizadmin/backend/internal/apperr"
	"github.com/bizadmin/backend/internal/logger"
	"github.com/bizadmin/backend/internal/middleware"
	"github.com/bizadmin/backend/internal/models"
	"github.com/bizadmin/backend/internal/services"
	"github.com/bizadmin/backend/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type AuthController struct {
	store      storage.Store
	activity   *services.ActivityLogService
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

func NewAuthController(store storage.Store, activity *services.ActivityLogService, secret string, expiration time.Duration) *AuthController {
	return &AuthController{
		store:      store,
		activity:   activity,
		secret:     []byte(secret),
		expiration: expiration,
		now:        time.Now,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required,min=2,max=100"`
}

type AuthResponse struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := ac.store.GetUserByEmail(c.Request.Context(), strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(c, apperr.Unauthenticated("Invalid credentials"))
			return
		}
		respondError(c, apperr.Internal("Failed to load user", err))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		respondError(c, apperr.Unauthenticated("Invalid credentials"))
		return
	}
	if !user.IsActive {
		respondError(c, apperr.Forbidden("Account is disabled"))
		return
	}

	ac.respondWithToken(c, http.StatusOK, user)
}

func (ac *AuthController) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, apperr.Internal("Failed to hash password", err))
		return
	}

	user := &models.User{
		Email:    strings.ToLower(req.Email),
		Password: string(hashedPassword),
		Name:     req.Name,
		Role:     models.RoleUser,
		IsActive: true,
	}
	if err := ac.store.CreateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			respondError(c, apperr.Conflict("User already exists"))
			return
		}
		respondError(c, apperr.Internal("Failed to create user", err))
		return
	}

	ac.activity.Record(c.Request.Context(), &models.ActivityLog{
		Action:     models.ActionUserRegistered,
		EntityType: "user",
		EntityID:   user.ID,
		UserID:     user.ID,
		Details:    "User registered: " + user.Email,
	})
	logger.WithUser(user.ID).Info("User registered")

	ac.respondWithToken(c, http.StatusCreated, user)
}

// RefreshToken issues a new token for the authenticated caller with the
// role currently stored.
func (ac *AuthController) RefreshToken(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	if actor == nil {
		respondError(c, apperr.Unauthenticated("User not authenticated"))
		return
	}

	user, err := ac.store.GetUser(c.Request.Context(), actor.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(c, apperr.Unauthenticated("User not found"))
			return
		}
		respondError(c, apperr.Internal("Failed to load user", err))
		return
	}
	if !user.IsActive {
		respondError(c, apperr.Forbidden("Account is disabled"))
		return
	}

	ac.respondWithToken(c, http.StatusOK, user)
}

func (ac *AuthController) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, expiresAt, err := ac.generateToken(user)
	if err != nil {
		respondError(c, apperr.Internal("Failed to generate token", err))
		return
	}
	respondData(c, status, AuthResponse{
		Token:     token,
		User:      *user,
		ExpiresAt: expiresAt,
	})
}

func (ac *AuthController) generateToken(user *models.User) (string, time.Time, error) {
	expiresAt := ac.now().Add(ac.expiration)
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    string(user.Role),
		"email":   user.Email,
		"name":    user.Name,
		"exp":     expiresAt.Unix(),
		"iat":     ac.now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(ac.secret)
	return tokenString, expiresAt, err
}
