package services

import (
	"context"
	"testing"

	"github.com/bizadmin/backend/internal/apperr"
	"github.com/bizadmin/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(v string) *string { return &v }

func TestUpdateComplaintSubmitterEditsText(t *testing.T) {
	svc, store := newComplaintService(t)
	ctx := context.Background()
	c := seedComplaint(t, store, models.ComplaintNew, nil)

	out, err := svc.Update(ctx, customer, c.ID, UpdateComplaintInput{Title: strPtr("Water outage in block C, floor 3")})
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.False(t, out.StatusChanged)
	assert.Equal(t, "Water outage in block C, floor 3", out.Complaint.Title)

	stored, err := store.GetComplaint(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Water outage in block C, floor 3", stored.Title)

	logs := store.ActivityLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActionComplaintUpdated, logs[0].Action)
	assert.Equal(t, "Updated fields: title", logs[0].Details)
	assert.Empty(t, store.Notifications(), "submitter is not notified of their own edit")
}

func TestUpdateComplaintSubmitterCannotChangeEntity(t *testing.T) {
	svc, store := newComplaintService(t)
	ctx := context.Background()
	c := seedComplaint(t, store, models.ComplaintNew, nil)

	_, err := svc.Update(ctx, customer, c.ID, UpdateComplaintInput{
		Title:  strPtr("Changed title here"),
		Entity: &models.EntityRef{Type: models.EntityProvider, ID: 4},
	})
	requireKind(t, err, apperr.KindForbidden)

	stored, err := store.GetComplaint(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Water outage in block C", stored.Title)
	assert.True(t, stored.Entity.IsZero())
}

func TestUpdateComplaintOtherUserForbidden(t *testing.T) {
	svc, store := newComplaintService(t)
	ctx := context.Background()
	c := seedComplaint(t, store, models.ComplaintNew, nil)
	stranger := actor(77, models.RoleUser)

	_, err := svc.Update(ctx, stranger, c.ID, UpdateComplaintInput{Title: strPtr("Not my complaint")})
	requireKind(t, err, apperr.KindForbidden)
}

func TestUpdateComplaintStaffRetargetsEntity(t *testing.T) {
	svc, store := newComplaintService(t)
	ctx := context.Background()
	c := seedComplaint(t, store, models.ComplaintInProgress, uintPtr(agent1ID))

	out, err := svc.Update(ctx, agent1, c.ID, UpdateComplaintInput{Entity: &models.EntityRef{Type: models.EntityParkingService, ID: 12}})
	require.NoError(t, err)
	assert.Equal(t, models.EntityRef{Type: models.EntityParkingService, ID: 12}, out.Complaint.Entity)

	stored, err := store.GetComplaint(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EntityParkingService, stored.Entity.Type)

	notes := notificationsFor(store, customerID)
	require.Len(t, notes, 1)
	assert.Equal(t, "Complaint updated", notes[0].Title)

	out, err = svc.Update(ctx, agent1, c.ID, UpdateComplaintInput{Entity: &models.EntityRef{}})
	require.NoError(t, err)
	assert.True(t, out.Complaint.Entity.IsZero())

	_, err = svc.Update(ctx, agent1, c.ID, UpdateComplaintInput{Entity: &models.EntityRef{Type: "warehouse", ID: 1}})
	requireKind(t, err, apperr.KindValidation)
	_, err = svc.Update(ctx, agent1, c.ID, UpdateComplaintInput{Entity: &models.EntityRef{Type: models.EntityProduct}})
	requireKind(t, err, apperr.KindValidation)
}

func TestUpdateComplaintDelegatesStatusChange(t *testing.T) {
	svc, store := newComplaintService(t)
	ctx := context.Background()
	c := seedComplaint(t, store, models.ComplaintNew, nil)

	out, err := svc.Update(ctx, manager, c.ID, UpdateComplaintInput{
		Status:     models.ComplaintAssigned,
		Assignment: &Assignment{AgentID: uintPtr(agent2ID)},
		Priority:   intPtr(5),
		Notes:      "Escalated",
	})
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.True(t, out.StatusChanged)
	assert.True(t, out.AssignmentChanged)
	assert.Equal(t, models.ComplaintAssigned, out.Complaint.Status)
	assert.Equal(t, 5, out.Complaint.Priority)
	require.NotNil(t, out.Complaint.AssignedAgent)
	assert.Equal(t, agent2ID, out.Complaint.AssignedAgent.ID)

	history := store.History()
	require.Len(t, history, 1)
	require.NotNil(t, history[0].Notes)
	assert.Equal(t, "Escalated", *history[0].Notes)
}

func TestUpdateComplaintSubmitterCannotChangeStatus(t *testing.T) {
	svc, store := newComplaintService(t)
	ctx := context.Background()
	c := seedComplaint(t, store, models.ComplaintResolved, uintPtr(agent1ID))

	_, err := svc.Update(ctx, customer, c.ID, UpdateComplaintInput{
		Title:  strPtr("Still broken please reopen"),
		Status: models.ComplaintInProgress,
	})
	requireKind(t, err, apperr.KindForbidden)

	stored, err := store.GetComplaint(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Water outage in block C", stored.Title)
}

func TestUpdateComplaintNothingToUpdate(t *testing.T) {
	svc, store := newComplaintService(t)
	ctx := context.Background()
	c := seedComplaint(t, store, models.ComplaintNew, nil)

	out, err := svc.Update(ctx, customer, c.ID, UpdateComplaintInput{Title: strPtr(c.Title)})
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Equal(t, "Nothing to update", out.Info)
	assert.Empty(t, store.ActivityLogs())

	_, err = svc.Update(ctx, customer, c.ID, UpdateComplaintInput{Title: strPtr("abc")})
	requireKind(t, err, apperr.KindValidation)
}

func TestDeleteComplaintAdminOnly(t *testing.T) {
	svc, store := newComplaintService(t)
	ctx := context.Background()
	c := seedComplaint(t, store, models.ComplaintNew, nil)

	requireKind(t, svc.Delete(ctx, manager, c.ID), apperr.KindForbidden)
	requireKind(t, svc.Delete(ctx, customer, c.ID), apperr.KindForbidden)

	require.NoError(t, svc.Delete(ctx, admin, c.ID))
	_, err := svc.Get(ctx, admin, c.ID)
	requireKind(t, err, apperr.KindNotFound)
	requireKind(t, svc.Delete(ctx, admin, c.ID), apperr.KindNotFound)

	logs := store.ActivityLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActionComplaintDeleted, logs[0].Action)
	assert.Equal(t, models.SeverityWarning, logs[0].Severity)
}

func TestCommentsInternalHiddenFromSubmitter(t *testing.T) {
	svc, store := newComplaintService(t)
	ctx := context.Background()
	c := seedComplaint(t, store, models.ComplaintInProgress, uintPtr(agent1ID))

	_, err := svc.AddComment(ctx, customer, c.ID, AddCommentInput{Text: "  Any update?  "})
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, agent1, c.ID, AddCommentInput{Text: "Pump replacement ordered", IsInternal: true})
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, agent1, c.ID, AddCommentInput{Text: "We are on it."})
	require.NoError(t, err)

	mine, err := svc.Comments(ctx, customer, c.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "Any update?", mine[0].Text)
	assert.Equal(t, "We are on it.", mine[1].Text)

	all, err := svc.Comments(ctx, manager, c.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[1].IsInternal)

	// agent gets the submitter's comment; submitter only the public reply
	assert.Len(t, notificationsFor(store, agent1ID), 1)
	assert.Len(t, notificationsFor(store, customerID), 1)

	logs := store.ActivityLogs()
	require.Len(t, logs, 3)
	assert.Equal(t, models.ActionCommentAdded, logs[0].Action)
}

func TestAddCommentRules(t *testing.T) {
	svc, store := newComplaintService(t)
	ctx := context.Background()
	c := seedComplaint(t, store, models.ComplaintNew, nil)

	_, err := svc.AddComment(ctx, customer, c.ID, AddCommentInput{Text: "secret", IsInternal: true})
	requireKind(t, err, apperr.KindForbidden)

	_, err = svc.AddComment(ctx, customer, c.ID, AddCommentInput{Text: "   "})
	requireKind(t, err, apperr.KindValidation)

	_, err = svc.AddComment(ctx, actor(77, models.RoleUser), c.ID, AddCommentInput{Text: "hello"})
	requireKind(t, err, apperr.KindForbidden)

	_, err = svc.AddComment(ctx, customer, 999, AddCommentInput{Text: "hello"})
	requireKind(t, err, apperr.KindNotFound)
}
