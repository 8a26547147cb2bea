package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/bizadmin/backend/internal/apperr"
	"github.com/bizadmin/backend/internal/middleware"
	"github.com/bizadmin/backend/internal/models"
	"github.com/bizadmin/backend/internal/services"
	"github.com/bizadmin/backend/internal/storage"
	"github.com/gin-gonic/gin"
)

type ComplaintController struct {
	complaints *services.ComplaintService
}

func NewComplaintController(complaints *services.ComplaintService) *ComplaintController {
	return &ComplaintController{complaints: complaints}
}

// optionalID tells an absent JSON key apart from an explicit null.
type optionalID struct {
	Set   bool
	Value *uint
}

func (o *optionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var id uint
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	o.Value = &id
	return nil
}

// optionalEntity is optionalID for the entity reference; null clears it.
type optionalEntity struct {
	Set   bool
	Value models.EntityRef
}

func (o *optionalEntity) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = models.EntityRef{}
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

type UpdateComplaintRequest struct {
	Title           *string                `json:"title"`
	Description     *string                `json:"description"`
	Priority        *int                   `json:"priority"`
	FinancialImpact *float64               `json:"financialImpact"`
	Entity          optionalEntity         `json:"entity"`
	Status          models.ComplaintStatus `json:"status"`
	AssignedAgentID optionalID             `json:"assignedAgentId"`
	Notes           string                 `json:"notes" binding:"max=2000"`
}

type UpdateStatusRequest struct {
	Status          models.ComplaintStatus `json:"status"`
	AssignedAgentID optionalID             `json:"assignedAgentId"`
	Notes           string                 `json:"notes" binding:"max=2000"`
}

type AssignRequest struct {
	AssignedAgentID optionalID `json:"assignedAgentId"`
}

func (cc *ComplaintController) CreateComplaint(c *gin.Context) {
	var req services.CreateComplaintInput
	if !bindJSON(c, &req) {
		return
	}

	complaint, err := cc.complaints.Create(c.Request.Context(), middleware.ActorFromContext(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, complaint)
}

func (cc *ComplaintController) GetComplaints(c *gin.Context) {
	page, err := queryPage(c)
	if err != nil {
		respondError(c, err)
		return
	}
	filter := storage.ComplaintFilter{
		Status: models.ComplaintStatus(c.Query("status")),
		Page:   page,
	}
	if filter.AssignedAgentID, err = queryID(c, "assignedAgentId"); err != nil {
		respondError(c, err)
		return
	}
	if filter.SubmittedByID, err = queryID(c, "submittedById"); err != nil {
		respondError(c, err)
		return
	}
	if et := c.Query("entityType"); et != "" {
		id, err := queryID(c, "entityId")
		if err != nil {
			respondError(c, err)
			return
		}
		if id == nil {
			respondError(c, apperr.Validation("Invalid query", map[string]string{"entityId": "is required with entityType"}))
			return
		}
		ref, err := models.NewEntityRef(models.EntityType(et), *id)
		if err != nil {
			respondError(c, apperr.Validation("Invalid query", map[string]string{"entityType": err.Error()}))
			return
		}
		filter.Entity = &ref
	}

	complaints, total, err := cc.complaints.List(c.Request.Context(), middleware.ActorFromContext(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	if complaints == nil {
		complaints = []models.Complaint{}
	}
	respondData(c, http.StatusOK, newPageResponse(complaints, total, page))
}

func (cc *ComplaintController) GetComplaint(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	complaint, err := cc.complaints.Get(c.Request.Context(), middleware.ActorFromContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, complaint)
}

func (cc *ComplaintController) GetStatusHistory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	history, err := cc.complaints.History(c.Request.Context(), middleware.ActorFromContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if history == nil {
		history = []models.ComplaintStatusHistory{}
	}
	respondData(c, http.StatusOK, history)
}

// UpdateStatus changes status and/or assignment. Omitting assignedAgentId
// leaves the assignee alone; null unassigns.
func (cc *ComplaintController) UpdateStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Status == "" && !req.AssignedAgentID.Set {
		respondError(c, apperr.Validation("Validation failed", map[string]string{"status": "status or assignedAgentId is required"}))
		return
	}

	in := services.ChangeStatusInput{
		ComplaintID: id,
		Status:      req.Status,
		Notes:       req.Notes,
	}
	if req.AssignedAgentID.Set {
		in.Assignment = &services.Assignment{AgentID: req.AssignedAgentID.Value}
	}

	out, err := cc.complaints.ChangeStatus(c.Request.Context(), middleware.ActorFromContext(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOutcome(c, out)
}

func (cc *ComplaintController) AssignComplaint(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req AssignRequest
	if !bindJSON(c, &req) {
		return
	}
	if !req.AssignedAgentID.Set {
		respondError(c, apperr.Validation("Validation failed", map[string]string{"assignedAgentId": "is required"}))
		return
	}

	out, err := cc.complaints.Assign(c.Request.Context(), middleware.ActorFromContext(c), id, req.AssignedAgentID.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOutcome(c, out)
}

// UpdateComplaint edits a complaint. Submitters may change their own text
// fields; entity, status and assignee changes follow staff rules.
func (cc *ComplaintController) UpdateComplaint(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req UpdateComplaintRequest
	if !bindJSON(c, &req) {
		return
	}

	in := services.UpdateComplaintInput{
		Title:           req.Title,
		Description:     req.Description,
		Priority:        req.Priority,
		FinancialImpact: req.FinancialImpact,
		Status:          req.Status,
		Notes:           req.Notes,
	}
	if req.Entity.Set {
		entity := req.Entity.Value
		in.Entity = &entity
	}
	if req.AssignedAgentID.Set {
		in.Assignment = &services.Assignment{AgentID: req.AssignedAgentID.Value}
	}

	out, err := cc.complaints.Update(c.Request.Context(), middleware.ActorFromContext(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOutcome(c, out)
}

func (cc *ComplaintController) DeleteComplaint(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := cc.complaints.Delete(c.Request.Context(), middleware.ActorFromContext(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"message": "Complaint deleted"})
}

func (cc *ComplaintController) GetComments(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	comments, err := cc.complaints.Comments(c.Request.Context(), middleware.ActorFromContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	respondData(c, http.StatusOK, comments)
}

func (cc *ComplaintController) AddComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.AddCommentInput
	if !bindJSON(c, &req) {
		return
	}
	comment, err := cc.complaints.AddComment(c.Request.Context(), middleware.ActorFromContext(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, comment)
}

func respondOutcome(c *gin.Context, out *services.TransitionOutcome) {
	body := gin.H{
		"success": true,
		"data":    out.Complaint,
	}
	if !out.Changed {
		body["info"] = out.Info
	}
	c.JSON(http.StatusOK, body)
}
