package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bizadmin/backend/internal/apperr"
	"github.com/bizadmin/backend/internal/logger"
	"github.com/bizadmin/backend/internal/metrics"
	"github.com/bizadmin/backend/internal/models"
	"github.com/bizadmin/backend/internal/permissions"
	"github.com/bizadmin/backend/internal/storage"
)

const complaintEntityType = "complaint"

// UpdateComplaintInput edits a complaint. Nil fields are left alone. Entity is
// staff-only; a zero EntityRef clears it. Status and Assignment are applied
// through ChangeStatus before the field edits.
type UpdateComplaintInput struct {
	Title           *string           `json:"title" validate:"omitnil,min=5,max=100"`
	Description     *string           `json:"description" validate:"omitnil,min=10"`
	Priority        *int              `json:"priority" validate:"omitnil,min=1,max=5"`
	FinancialImpact *float64          `json:"financialImpact" validate:"omitnil,gte=0"`
	Entity          *models.EntityRef `json:"entity"`

	Status     models.ComplaintStatus `json:"status"`
	Assignment *Assignment            `json:"-"`
	Notes      string                 `json:"notes"`
}

type AddCommentInput struct {
	Text       string `json:"text" validate:"required,max=5000"`
	IsInternal bool   `json:"isInternal"`
}

type CreateComplaintInput struct {
	Title           string            `json:"title" validate:"required,min=5,max=100"`
	Description     string            `json:"description" validate:"required,min=10"`
	Priority        int               `json:"priority" validate:"omitempty,min=1,max=5"`
	FinancialImpact *float64          `json:"financialImpact" validate:"omitempty,gte=0"`
	Entity          *models.EntityRef `json:"entity"`
}

// Assignment carries the requested assignee. A nil AgentID unassigns.
type Assignment struct {
	AgentID *uint
}

type ChangeStatusInput struct {
	ComplaintID uint
	// Status is the requested status; empty keeps the stored one.
	Status models.ComplaintStatus
	// Assignment is nil when the request leaves the assignee alone.
	Assignment *Assignment
	Notes      string
}

// TransitionOutcome describes an accepted request. Changed is false for a no-op.
type TransitionOutcome struct {
	Changed           bool
	StatusChanged     bool
	AssignmentChanged bool
	Info              string
	Complaint         *models.Complaint
}

type ComplaintService struct {
	store         storage.Store
	notifications *NotificationService
	activity      *ActivityLogService
	now           func() time.Time
}

func NewComplaintService(store storage.Store, notifications *NotificationService, activity *ActivityLogService) *ComplaintService {
	return &ComplaintService{
		store:         store,
		notifications: notifications,
		activity:      activity,
		now:           time.Now,
	}
}

// Create stores a NEW complaint, its first history row, the audit row and
// notifies management.
func (s *ComplaintService) Create(ctx context.Context, actor *models.Actor, in CreateComplaintInput) (*models.Complaint, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !permissions.Can(actor.Role, permissions.Complaints, permissions.Create) {
		return nil, apperr.Forbidden("Not authorized to create complaints")
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	complaint := &models.Complaint{
		Title:           in.Title,
		Description:     in.Description,
		Status:          models.ComplaintNew,
		Priority:        in.Priority,
		FinancialImpact: in.FinancialImpact,
		SubmittedByID:   actor.ID,
	}
	if complaint.Priority == 0 {
		complaint.Priority = models.DefaultComplaintPriority
	}
	if in.Entity != nil && !in.Entity.IsZero() {
		ref, err := models.NewEntityRef(in.Entity.Type, in.Entity.ID)
		if err != nil {
			return nil, apperr.Validation("Validation failed", map[string]string{"entity": err.Error()})
		}
		complaint.Entity = ref
	}

	if err := s.store.CreateComplaint(ctx, complaint); err != nil {
		return nil, apperr.Internal("Failed to create complaint", err)
	}

	log := logger.WithComplaint(complaint.ID, actor.ID)
	log.Info("Complaint created")

	s.appendHistory(ctx, &models.ComplaintStatusHistory{
		ComplaintID: complaint.ID,
		NewStatus:   models.ComplaintNew,
		ChangedByID: actor.ID,
	})

	s.activity.Record(ctx, &models.ActivityLog{
		Action:     models.ActionComplaintCreated,
		EntityType: complaintEntityType,
		EntityID:   complaint.ID,
		UserID:     actor.ID,
		Details:    fmt.Sprintf("Complaint created: %s", complaint.Title),
	})

	if _, err := s.notifications.NotifyRoles(ctx, []models.UserRole{models.RoleAdmin, models.RoleManager}, actor.ID, NotificationInput{
		Title:      "New Complaint Submitted",
		Message:    fmt.Sprintf("A new complaint %q has been submitted.", complaint.Title),
		Type:       models.NotificationComplaintUpdated,
		EntityType: complaintEntityType,
		EntityID:   complaint.ID,
	}); err != nil {
		log.WithError(err).Warn("Some management notifications failed")
	}

	return complaint, nil
}

// ChangeStatus applies a status and/or assignment change.
//
// ADMIN and MANAGER may change anything. An AGENT may act on complaints assigned
// to them, or take an unassigned complaint by moving it to ASSIGNED. USER never may.
// Terminal timestamps are stamped only the first time their status is reached.
// History, audit and notification writes follow the complaint update as separate
// statements; their failures are logged and do not fail the call.
func (s *ComplaintService) ChangeStatus(ctx context.Context, actor *models.Actor, in ChangeStatusInput) (*TransitionOutcome, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if in.Status != "" && !in.Status.Valid() {
		return nil, apperr.Validation("Validation failed", map[string]string{
			"status": "must be one of: NEW ASSIGNED IN_PROGRESS PENDING RESOLVED CLOSED REJECTED",
		})
	}

	complaint, err := s.store.GetComplaint(ctx, in.ComplaintID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("Complaint not found")
		}
		return nil, apperr.Internal("Failed to load complaint", err)
	}

	targetAgent := complaint.AssignedAgentID
	if in.Assignment != nil {
		targetAgent = in.Assignment.AgentID
	} else if in.Status == models.ComplaintAssigned && complaint.AssignedAgentID == nil {
		self := actor.ID
		targetAgent = &self
	}

	if err := authorizeTransition(actor, complaint, in.Status, targetAgent); err != nil {
		return nil, err
	}

	previousStatus := complaint.Status
	previousAgent := complaint.AssignedAgentID
	assignmentChanged := !sameID(previousAgent, targetAgent)

	targetStatus := previousStatus
	if in.Status != "" {
		targetStatus = in.Status
	}
	if assignmentChanged && previousAgent == nil && targetAgent != nil && targetStatus == previousStatus {
		targetStatus = models.ComplaintAssigned
	}
	statusChanged := targetStatus != previousStatus

	if !statusChanged && !assignmentChanged {
		return &TransitionOutcome{Info: "Status and assignment unchanged", Complaint: complaint}, nil
	}

	var assignee *models.User
	if assignmentChanged && targetAgent != nil {
		if assignee, err = s.checkAssignee(ctx, *targetAgent); err != nil {
			return nil, err
		}
	}

	now := s.now()
	if statusChanged {
		complaint.Status = targetStatus
		switch targetStatus {
		case models.ComplaintResolved:
			if complaint.ResolvedAt == nil {
				complaint.ResolvedAt = &now
			}
		case models.ComplaintClosed:
			if complaint.ClosedAt == nil {
				complaint.ClosedAt = &now
			}
		}
	}
	if assignmentChanged {
		complaint.AssignedAgentID = targetAgent
		complaint.AssignedAgent = assignee
		if targetAgent == nil {
			complaint.AssignedAt = nil
		} else if previousAgent == nil {
			complaint.AssignedAt = &now
		}
	}
	if complaint.Status == models.ComplaintAssigned && complaint.AssignedAgentID != nil && complaint.AssignedAt == nil {
		complaint.AssignedAt = &now
	}

	if err := s.store.UpdateComplaint(ctx, complaint); err != nil {
		return nil, apperr.Internal("Failed to update complaint status", err)
	}

	log := logger.WithComplaint(complaint.ID, actor.ID)
	log.WithField("from", previousStatus).WithField("to", complaint.Status).
		WithField("assignment_changed", assignmentChanged).Info("Complaint transition applied")

	if statusChanged {
		prev := previousStatus
		entry := &models.ComplaintStatusHistory{
			ComplaintID:    complaint.ID,
			PreviousStatus: &prev,
			NewStatus:      targetStatus,
			ChangedByID:    actor.ID,
		}
		if in.Notes != "" {
			notes := in.Notes
			entry.Notes = &notes
		}
		s.appendHistory(ctx, entry)
		metrics.ComplaintTransitions.WithLabelValues(string(previousStatus), string(targetStatus)).Inc()
	}

	s.recordTransition(ctx, actor, complaint, previousStatus, statusChanged)
	s.notifyTransition(ctx, actor, complaint, previousAgent, statusChanged, assignmentChanged)

	return &TransitionOutcome{
		Changed:           true,
		StatusChanged:     statusChanged,
		AssignmentChanged: assignmentChanged,
		Complaint:         complaint,
	}, nil
}

// Assign is the management-only assignment entry point
func (s *ComplaintService) Assign(ctx context.Context, actor *models.Actor, complaintID uint, agentID *uint) (*TransitionOutcome, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !permissions.Can(actor.Role, permissions.Complaints, permissions.Assign) {
		return nil, apperr.Forbidden("Not authorized to assign complaints")
	}
	return s.ChangeStatus(ctx, actor, ChangeStatusInput{
		ComplaintID: complaintID,
		Assignment:  &Assignment{AgentID: agentID},
	})
}

func authorizeTransition(actor *models.Actor, complaint *models.Complaint, requested models.ComplaintStatus, targetAgent *uint) error {
	if permissions.IsManagement(actor.Role) {
		return nil
	}
	if actor.Role != models.RoleAgent {
		return apperr.Forbidden("Not authorized to update complaint status")
	}

	assignedToActor := complaint.AssignedAgentID != nil && *complaint.AssignedAgentID == actor.ID
	if assignedToActor {
		// The current assignee may release the complaint but not hand it to someone else.
		if targetAgent != nil && *targetAgent != actor.ID {
			return apperr.Forbidden("Agents cannot assign complaints to other agents")
		}
		return nil
	}

	selfAssign := complaint.AssignedAgentID == nil &&
		targetAgent != nil && *targetAgent == actor.ID &&
		(requested == "" || requested == models.ComplaintAssigned)
	if selfAssign {
		return nil
	}
	return apperr.Forbidden("Not authorized to update complaint status")
}

// checkAssignee returns the agent when it may hold complaints.
func (s *ComplaintService) checkAssignee(ctx context.Context, agentID uint) (*models.User, error) {
	agent, err := s.store.GetUser(ctx, agentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.Validation("Validation failed", map[string]string{"assignedAgentId": "user does not exist"})
		}
		return nil, apperr.Internal("Failed to load assignee", err)
	}
	if agent.Role == models.RoleUser || !agent.IsActive {
		return nil, apperr.Validation("Validation failed", map[string]string{"assignedAgentId": "user cannot be assigned complaints"})
	}
	return agent, nil
}

func (s *ComplaintService) appendHistory(ctx context.Context, entry *models.ComplaintStatusHistory) {
	if err := s.store.AppendStatusHistory(ctx, entry); err != nil {
		logger.WithError(err, "complaint_service").WithField("complaint_id", entry.ComplaintID).Error("Failed to append status history")
	}
}

func (s *ComplaintService) recordTransition(ctx context.Context, actor *models.Actor, complaint *models.Complaint, previous models.ComplaintStatus, statusChanged bool) {
	entry := &models.ActivityLog{
		EntityType: complaintEntityType,
		EntityID:   complaint.ID,
		UserID:     actor.ID,
		Severity:   models.SeverityInfo,
	}
	if statusChanged {
		entry.Action = models.ActionComplaintStatusChanged
		entry.Details = fmt.Sprintf("Status changed from %s to %s", previous, complaint.Status)
	} else {
		entry.Action = models.ActionComplaintAssigned
		if complaint.AssignedAgentID != nil {
			entry.Details = fmt.Sprintf("Complaint assigned to user %d", *complaint.AssignedAgentID)
		} else {
			entry.Details = "Complaint unassigned"
		}
	}
	if complaint.Status == models.ComplaintRejected {
		entry.Severity = models.SeverityWarning
	}
	s.activity.Record(ctx, entry)
}

func (s *ComplaintService) notifyTransition(ctx context.Context, actor *models.Actor, complaint *models.Complaint, previousAgent *uint, statusChanged, assignmentChanged bool) {
	if statusChanged && complaint.Status != models.ComplaintAssigned && complaint.SubmittedByID != actor.ID {
		s.notifications.Notify(ctx, complaint.SubmittedByID, NotificationInput{
			Title:      "Complaint status updated",
			Message:    fmt.Sprintf("The status of your complaint %q changed to %s.", complaint.Title, complaint.Status),
			Type:       models.NotificationComplaintUpdated,
			EntityType: complaintEntityType,
			EntityID:   complaint.ID,
		})
	}

	if !assignmentChanged {
		return
	}
	if agent := complaint.AssignedAgentID; agent != nil {
		if *agent != actor.ID {
			s.notifications.Notify(ctx, *agent, NotificationInput{
				Title:      "Complaint assigned to you",
				Message:    fmt.Sprintf("You have been assigned complaint %q.", complaint.Title),
				Type:       models.NotificationComplaintAssigned,
				EntityType: complaintEntityType,
				EntityID:   complaint.ID,
			})
		}
		return
	}
	if previousAgent != nil {
		s.notifications.NotifyRoles(ctx, []models.UserRole{models.RoleAdmin, models.RoleManager}, actor.ID, NotificationInput{
			Title:      "Complaint assignment removed",
			Message:    fmt.Sprintf("The assignment for complaint %q was removed.", complaint.Title),
			Type:       models.NotificationComplaintUpdated,
			EntityType: complaintEntityType,
			EntityID:   complaint.ID,
		})
	}
}

// Get returns a complaint. End users only see their own.
func (s *ComplaintService) Get(ctx context.Context, actor *models.Actor, id uint) (*models.Complaint, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	complaint, err := s.store.GetComplaint(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("Complaint not found")
		}
		return nil, apperr.Internal("Failed to load complaint", err)
	}
	if !permissions.Can(actor.Role, permissions.Complaints, permissions.ViewAll) && complaint.SubmittedByID != actor.ID {
		return nil, apperr.Forbidden("Not authorized to view this complaint")
	}
	return complaint, nil
}

func (s *ComplaintService) List(ctx context.Context, actor *models.Actor, filter storage.ComplaintFilter) ([]models.Complaint, int64, error) {
	if err := requireActor(actor); err != nil {
		return nil, 0, err
	}
	if !permissions.Can(actor.Role, permissions.Complaints, permissions.ViewAll) {
		own := actor.ID
		filter.SubmittedByID = &own
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperr.Validation("Validation failed", map[string]string{"status": "unknown status"})
	}

	complaints, total, err := s.store.ListComplaints(ctx, filter)
	if err != nil {
		return nil, 0, apperr.Internal("Failed to fetch complaints", err)
	}
	return complaints, total, nil
}

// History returns the status trail, oldest first
func (s *ComplaintService) History(ctx context.Context, actor *models.Actor, id uint) ([]models.ComplaintStatusHistory, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	history, err := s.store.ListStatusHistory(ctx, id)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch status history", err)
	}
	return history, nil
}

func sameID(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Update edits the complaint's descriptive fields. Staff may edit any complaint,
// the submitter only their own.
func (s *ComplaintService) Update(ctx context.Context, actor *models.Actor, id uint, in UpdateComplaintInput) (*TransitionOutcome, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	complaint, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	staff := permissions.Can(actor.Role, permissions.Complaints, permissions.Update)
	if !staff && complaint.SubmittedByID != actor.ID {
		return nil, apperr.Forbidden("Not authorized to update this complaint")
	}

	var entity models.EntityRef
	if in.Entity != nil {
		if !staff {
			return nil, apperr.Forbidden("Only staff can change the complaint entity")
		}
		if !in.Entity.IsZero() {
			if entity, err = models.NewEntityRef(in.Entity.Type, in.Entity.ID); err != nil {
				return nil, apperr.Validation("Validation failed", map[string]string{"entity": err.Error()})
			}
		}
	}

	outcome := &TransitionOutcome{Complaint: complaint}
	if in.Status != "" || in.Assignment != nil {
		outcome, err = s.ChangeStatus(ctx, actor, ChangeStatusInput{
			ComplaintID: id,
			Status:      in.Status,
			Assignment:  in.Assignment,
			Notes:       in.Notes,
		})
		if err != nil {
			return nil, err
		}
		complaint = outcome.Complaint
	}

	var changed []string
	if in.Title != nil && *in.Title != complaint.Title {
		complaint.Title = *in.Title
		changed = append(changed, "title")
	}
	if in.Description != nil && *in.Description != complaint.Description {
		complaint.Description = *in.Description
		changed = append(changed, "description")
	}
	if in.Priority != nil && *in.Priority != complaint.Priority {
		complaint.Priority = *in.Priority
		changed = append(changed, "priority")
	}
	if in.FinancialImpact != nil && (complaint.FinancialImpact == nil || *complaint.FinancialImpact != *in.FinancialImpact) {
		impact := *in.FinancialImpact
		complaint.FinancialImpact = &impact
		changed = append(changed, "financialImpact")
	}
	if in.Entity != nil && entity != complaint.Entity {
		complaint.Entity = entity
		changed = append(changed, "entity")
	}

	if len(changed) == 0 {
		if !outcome.Changed {
			outcome.Info = "Nothing to update"
		}
		return outcome, nil
	}

	if err := s.store.UpdateComplaint(ctx, complaint); err != nil {
		return nil, apperr.Internal("Failed to update complaint", err)
	}
	logger.WithComplaint(complaint.ID, actor.ID).WithField("fields", changed).Info("Complaint updated")

	s.activity.Record(ctx, &models.ActivityLog{
		Action:     models.ActionComplaintUpdated,
		EntityType: complaintEntityType,
		EntityID:   complaint.ID,
		UserID:     actor.ID,
		Details:    "Updated fields: " + strings.Join(changed, ", "),
	})
	if complaint.SubmittedByID != actor.ID {
		s.notifications.Notify(ctx, complaint.SubmittedByID, NotificationInput{
			Title:      "Complaint updated",
			Message:    fmt.Sprintf("Your complaint %q was updated.", complaint.Title),
			Type:       models.NotificationComplaintUpdated,
			EntityType: complaintEntityType,
			EntityID:   complaint.ID,
		})
	}

	return &TransitionOutcome{
		Changed:           true,
		StatusChanged:     outcome.StatusChanged,
		AssignmentChanged: outcome.AssignmentChanged,
		Complaint:         complaint,
	}, nil
}

// Delete soft-deletes a complaint. Administrators only.
func (s *ComplaintService) Delete(ctx context.Context, actor *models.Actor, id uint) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !permissions.Can(actor.Role, permissions.Complaints, permissions.Delete) {
		return apperr.Forbidden("Not authorized to delete complaints")
	}
	if err := s.store.DeleteComplaint(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("Complaint not found")
		}
		return apperr.Internal("Failed to delete complaint", err)
	}

	logger.WithComplaint(id, actor.ID).Warn("Complaint deleted")
	s.activity.Record(ctx, &models.ActivityLog{
		Action:     models.ActionComplaintDeleted,
		EntityType: complaintEntityType,
		EntityID:   id,
		UserID:     actor.ID,
		Severity:   models.SeverityWarning,
		Details:    fmt.Sprintf("Complaint %d deleted", id),
	})
	return nil
}

// AddComment posts a comment. Anyone who can see the complaint may comment;
// internal comments need staff.
func (s *ComplaintService) AddComment(ctx context.Context, actor *models.Actor, complaintID uint, in AddCommentInput) (*models.Comment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	in.Text = strings.TrimSpace(in.Text)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	complaint, err := s.Get(ctx, actor, complaintID)
	if err != nil {
		return nil, err
	}
	if in.IsInternal && !permissions.Can(actor.Role, permissions.Complaints, permissions.CommentInternal) {
		return nil, apperr.Forbidden("Not authorized to create internal comments")
	}

	comment := &models.Comment{
		ComplaintID: complaint.ID,
		UserID:      actor.ID,
		Text:        in.Text,
		IsInternal:  in.IsInternal,
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, apperr.Internal("Failed to add comment", err)
	}

	s.activity.Record(ctx, &models.ActivityLog{
		Action:     models.ActionCommentAdded,
		EntityType: complaintEntityType,
		EntityID:   complaint.ID,
		UserID:     actor.ID,
		Details:    fmt.Sprintf("Comment added to complaint %d", complaint.ID),
	})

	targets := make(map[uint]struct{}, 2)
	if complaint.SubmittedByID != actor.ID && !in.IsInternal {
		targets[complaint.SubmittedByID] = struct{}{}
	}
	if agent := complaint.AssignedAgentID; agent != nil && *agent != actor.ID {
		targets[*agent] = struct{}{}
	}
	for userID := range targets {
		s.notifications.Notify(ctx, userID, NotificationInput{
			Title:      "New comment on complaint",
			Message:    fmt.Sprintf("A new comment was added to complaint %q.", complaint.Title),
			Type:       models.NotificationComplaintUpdated,
			EntityType: complaintEntityType,
			EntityID:   complaint.ID,
		})
	}
	return comment, nil
}

// Comments lists a complaint's comments, oldest first. Internal ones are
// hidden from callers who may not write them.
func (s *ComplaintService) Comments(ctx context.Context, actor *models.Actor, complaintID uint) ([]models.Comment, error) {
	if _, err := s.Get(ctx, actor, complaintID); err != nil {
		return nil, err
	}
	internal := permissions.Can(actor.Role, permissions.Complaints, permissions.CommentInternal)
	comments, err := s.store.ListComments(ctx, complaintID, internal)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch comments", err)
	}
	return comments, nil
}
