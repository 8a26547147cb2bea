package controllers

import (
	"net/http"

	"github.com/bizadmin/backend/internal/middleware"
	"github.com/bizadmin/backend/internal/models"
	"github.com/bizadmin/backend/internal/services"
	"github.com/bizadmin/backend/internal/storage"
	"github.com/gin-gonic/gin"
)

type SecurityLogController struct {
	activity *services.ActivityLogService
}

func NewSecurityLogController(activity *services.ActivityLogService) *SecurityLogController {
	return &SecurityLogController{activity: activity}
}

func (sc *SecurityLogController) GetLogs(c *gin.Context) {
	page, err := queryPage(c)
	if err != nil {
		respondError(c, err)
		return
	}
	filter := storage.ActivityLogFilter{
		Action:     c.Query("action"),
		EntityType: c.Query("entityType"),
		Severity:   models.LogSeverity(c.Query("severity")),
		Page:       page,
	}
	if filter.UserID, err = queryID(c, "userId"); err != nil {
		respondError(c, err)
		return
	}

	logs, total, err := sc.activity.List(c.Request.Context(), middleware.ActorFromContext(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	if logs == nil {
		logs = []models.ActivityLog{}
	}
	respondData(c, http.StatusOK, newPageResponse(logs, total, page))
}
