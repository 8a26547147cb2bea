package controllers

import (
	"net/http"

	"github.com/bizadmin/backend/internal/apperr"
	"github.com/bizadmin/backend/internal/middleware"
	"github.com/bizadmin/backend/internal/permissions"
	"github.com/bizadmin/backend/internal/services"
	"github.com/gin-gonic/gin"
)

type ReminderController struct {
	reminders *services.ReminderService
}

func NewReminderController(reminders *services.ReminderService) *ReminderController {
	return &ReminderController{reminders: reminders}
}

func (rc *ReminderController) Acknowledge(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	reminder, err := rc.reminders.Acknowledge(c.Request.Context(), middleware.ActorFromContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, reminder)
}

// Sweep is the scheduler entry point. Callers may retry; a repeated call
// sends the due notifications again.
func (rc *ReminderController) Sweep(c *gin.Context) {
	result, err := rc.reminders.SweepDueReminders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, result)
}

// TriggerSweep lets a manager run the due-reminder sweep without the
// scheduler token.
func (rc *ReminderController) TriggerSweep(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	if actor == nil {
		respondError(c, apperr.Unauthenticated("User not authenticated"))
		return
	}
	if !permissions.Can(actor.Role, permissions.Reminders, permissions.Sweep) {
		respondError(c, apperr.Forbidden("Not authorized to run reminder checks"))
		return
	}
	rc.Sweep(c)
}
