package controllers

import (
	"net/http"
	"strconv"

	"github.com/bizadmin/backend/internal/apperr"
	"github.com/bizadmin/backend/internal/middleware"
	"github.com/bizadmin/backend/internal/models"
	"github.com/bizadmin/backend/internal/permissions"
	"github.com/bizadmin/backend/internal/services"
	"github.com/bizadmin/backend/internal/storage"
	"github.com/gin-gonic/gin"
)

const headerCache = "X-Cache"

type ContractController struct {
	contracts    *services.ContractService
	reminders    *services.ReminderService
	expiringDays int
}

func NewContractController(contracts *services.ContractService, reminders *services.ReminderService, expiringDays int) *ContractController {
	return &ContractController{
		contracts:    contracts,
		reminders:    reminders,
		expiringDays: expiringDays,
	}
}

func (cc *ContractController) CreateContract(c *gin.Context) {
	var req services.CreateContractInput
	if !bindJSON(c, &req) {
		return
	}
	contract, err := cc.contracts.Create(c.Request.Context(), middleware.ActorFromContext(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, contract)
}

func (cc *ContractController) GetContracts(c *gin.Context) {
	page, err := queryPage(c)
	if err != nil {
		respondError(c, err)
		return
	}
	filter := storage.ContractFilter{
		Type:           models.ContractType(c.Query("type")),
		Status:         models.ContractStatus(c.Query("status")),
		Search:         c.Query("search"),
		IncludeExpired: c.Query("includeExpired") == "true",
		Page:           page,
	}
	for name, dst := range map[string]**uint{
		"providerId":        &filter.ProviderID,
		"humanitarianOrgId": &filter.HumanitarianOrgID,
		"parkingServiceId":  &filter.ParkingServiceID,
	} {
		if *dst, err = queryID(c, name); err != nil {
			respondError(c, err)
			return
		}
	}
	if raw := c.Query("expiringWithin"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, apperr.Validation("Invalid query", map[string]string{"expiringWithin": "must be a number of days"}))
			return
		}
		filter.ExpiringWithin = &days
	}

	result, hit, err := cc.contracts.List(c.Request.Context(), middleware.ActorFromContext(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	if hit {
		c.Header(headerCache, "HIT")
	} else {
		c.Header(headerCache, "MISS")
	}
	respondData(c, http.StatusOK, result)
}

func (cc *ContractController) GetContract(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	contract, err := cc.contracts.Get(c.Request.Context(), middleware.ActorFromContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, contract)
}

func (cc *ContractController) UpdateContract(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateContractInput
	if !bindJSON(c, &req) {
		return
	}
	contract, err := cc.contracts.Update(c.Request.Context(), middleware.ActorFromContext(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, contract)
}

func (cc *ContractController) DeleteContract(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := cc.contracts.Delete(c.Request.Context(), middleware.ActorFromContext(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"message": "Contract deleted"})
}

func (cc *ContractController) GetReminders(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	reminders, err := cc.reminders.ListForContract(c.Request.Context(), middleware.ActorFromContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if reminders == nil {
		reminders = []models.ContractReminder{}
	}
	respondData(c, http.StatusOK, reminders)
}

func (cc *ContractController) CreateReminder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.CreateReminderInput
	if !bindJSON(c, &req) {
		return
	}
	reminder, err := cc.reminders.Create(c.Request.Context(), middleware.ActorFromContext(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, reminder)
}

// CheckExpiring runs the expiring-contract scan on demand. ?days overrides
// the configured horizon.
func (cc *ContractController) CheckExpiring(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	if actor == nil {
		respondError(c, apperr.Unauthenticated("User not authenticated"))
		return
	}
	if !permissions.Can(actor.Role, permissions.Reminders, permissions.Sweep) {
		respondError(c, apperr.Forbidden("Not authorized to run reminder checks"))
		return
	}

	days := cc.expiringDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, apperr.Validation("Invalid query", map[string]string{"days": "must be a number"}))
			return
		}
		days = n
	}

	result, err := cc.reminders.CheckExpiringContracts(c.Request.Context(), days)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, result)
}
