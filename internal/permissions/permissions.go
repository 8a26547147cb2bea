// Package permissions holds the static role/resource/action matrix.
package permissions

import "github.com/bizadmin/backend/internal/models"

type Resource string
type Action string

const (
	Complaints    Resource = "complaints"
	Contracts     Resource = "contracts"
	Reminders     Resource = "reminders"
	SecurityLogs  Resource = "security_logs"
	Notifications Resource = "notifications"
)

const (
	Create      Action = "create"
	Update      Action = "update"
	Assign      Action = "assign"
	Delete      Action = "delete"
	View        Action = "view"
	ViewAll     Action = "view_all"
	Acknowledge Action = "acknowledge"
	Sweep       Action = "sweep"

	// CommentInternal covers writing and reading staff-only complaint comments.
	CommentInternal Action = "comment_internal"
)

type key struct {
	resource Resource
	action   Action
}

var (
	all        = []models.UserRole{models.RoleAdmin, models.RoleManager, models.RoleAgent, models.RoleUser}
	staff      = []models.UserRole{models.RoleAdmin, models.RoleManager, models.RoleAgent}
	management = []models.UserRole{models.RoleAdmin, models.RoleManager}
	adminOnly  = []models.UserRole{models.RoleAdmin}
)

var matrix = map[key][]models.UserRole{
	{Complaints, Create}:          all,
	{Complaints, Update}:          staff,
	{Complaints, Assign}:          management,
	{Complaints, Delete}:          adminOnly,
	{Complaints, View}:            all,
	{Complaints, ViewAll}:         staff,
	{Complaints, CommentInternal}: staff,

	{Contracts, Create}: management,
	{Contracts, Update}: management,
	{Contracts, Delete}: adminOnly,
	{Contracts, View}:   staff,

	{Reminders, Create}:      management,
	{Reminders, Acknowledge}: staff,
	{Reminders, Sweep}:       management,

	{SecurityLogs, View}: adminOnly,

	{Notifications, View}: all,
}

// Can reports whether role may perform action on resource.
func Can(role models.UserRole, resource Resource, action Action) bool {
	for _, r := range matrix[key{resource, action}] {
		if r == role {
			return true
		}
	}
	return false
}

// IsManagement is true for roles that may change anything on a complaint.
func IsManagement(role models.UserRole) bool {
	return role == models.RoleAdmin || role == models.RoleManager
}
