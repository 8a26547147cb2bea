package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/bizadmin/backend/internal/storage"
	"github.com/gin-gonic/gin"
)

const Version = "1.0.0"

type HealthController struct {
	store   storage.Store
	timeout time.Duration
}

func NewHealthController(store storage.Store) *HealthController {
	return &HealthController{store: store, timeout: 3 * time.Second}
}

// Health reports 503 when the database does not answer a ping
func (hc *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), hc.timeout)
	defer cancel()

	dbStatus := gin.H{"status": "ok"}
	overall, code := "ok", http.StatusOK
	if err := hc.store.Ping(ctx); err != nil {
		dbStatus = gin.H{"status": "error", "error": err.Error()}
		overall, code = "error", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    overall,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
		"services": gin.H{
			"database": dbStatus,
		},
	})
}
