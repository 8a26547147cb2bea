// Package storagetest provides an in-memory storage.Store for tests.
package storagetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bizadmin/backend/internal/models"
	"github.com/bizadmin/backend/internal/storage"
)

// MemoryStore keeps every table in maps. Records are copied in and out so callers
// cannot mutate stored state by accident.
type MemoryStore struct {
	mu sync.Mutex

	nextID uint
	now    func() time.Time

	users         map[uint]models.User
	complaints    map[uint]models.Complaint
	history       []models.ComplaintStatusHistory
	comments      []models.Comment
	notifications []models.Notification
	activity      []models.ActivityLog
	contracts     map[uint]models.Contract
	reminders     map[uint]models.ContractReminder

	failures map[string]error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:        time.Now,
		users:      make(map[uint]models.User),
		complaints: make(map[uint]models.Complaint),
		contracts:  make(map[uint]models.Contract),
		reminders:  make(map[uint]models.ContractReminder),
		failures:   make(map[string]error),
	}
}

// FailOn makes the named method return err until cleared with a nil err.
func (s *MemoryStore) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = err
}

func (s *MemoryStore) fail(method string) error {
	return s.failures[method]
}

func (s *MemoryStore) id() uint {
	s.nextID++
	return s.nextID
}

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
}

// Inspection helpers

// PutUser overwrites a stored user, e.g. to change a role mid-test.
func (s *MemoryStore) PutUser(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

func (s *MemoryStore) History() []models.ComplaintStatusHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ComplaintStatusHistory(nil), s.history...)
}

func (s *MemoryStore) Notifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notification(nil), s.notifications...)
}

func (s *MemoryStore) ActivityLogs() []models.ActivityLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ActivityLog(nil), s.activity...)
}

func (s *MemoryStore) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fail("Ping")
}

// Users

func (s *MemoryStore) GetUser(_ context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetUser"); err != nil {
		return nil, err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, notFound("get user")
	}
	return &u, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, notFound("get user by email")
}

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("create user: %w", storage.ErrConflict)
		}
	}
	if user.ID == 0 {
		user.ID = s.id()
	} else if user.ID > s.nextID {
		s.nextID = user.ID
	}
	user.Email = strings.ToLower(user.Email)
	user.CreatedAt = s.now()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) ListActiveUserIDsByRoles(_ context.Context, roles ...models.UserRole) ([]uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uint
	for _, u := range s.users {
		if !u.IsActive {
			continue
		}
		for _, r := range roles {
			if u.Role == r {
				ids = append(ids, u.ID)
				break
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Complaints

func (s *MemoryStore) withComplaintRelations(c models.Complaint) models.Complaint {
	if u, ok := s.users[c.SubmittedByID]; ok {
		c.SubmittedBy = &u
	}
	c.AssignedAgent = nil
	if c.AssignedAgentID != nil {
		if u, ok := s.users[*c.AssignedAgentID]; ok {
			c.AssignedAgent = &u
		}
	}
	return c
}

func (s *MemoryStore) CreateComplaint(_ context.Context, complaint *models.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateComplaint"); err != nil {
		return err
	}
	if complaint.ID == 0 {
		complaint.ID = s.id()
	} else if complaint.ID > s.nextID {
		s.nextID = complaint.ID
	}
	if complaint.CreatedAt.IsZero() {
		complaint.CreatedAt = s.now()
	}
	complaint.UpdatedAt = s.now()
	stored := *complaint
	stored.SubmittedBy, stored.AssignedAgent = nil, nil
	s.complaints[complaint.ID] = stored
	return nil
}

func (s *MemoryStore) GetComplaint(_ context.Context, id uint) (*models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetComplaint"); err != nil {
		return nil, err
	}
	c, ok := s.complaints[id]
	if !ok {
		return nil, notFound("get complaint")
	}
	c = s.withComplaintRelations(c)
	return &c, nil
}

func (s *MemoryStore) UpdateComplaint(_ context.Context, complaint *models.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateComplaint"); err != nil {
		return err
	}
	if _, ok := s.complaints[complaint.ID]; !ok {
		return notFound("update complaint")
	}
	complaint.UpdatedAt = s.now()
	stored := *complaint
	stored.SubmittedBy, stored.AssignedAgent = nil, nil
	s.complaints[complaint.ID] = stored
	return nil
}

func (s *MemoryStore) DeleteComplaint(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteComplaint"); err != nil {
		return err
	}
	if _, ok := s.complaints[id]; !ok {
		return notFound("delete complaint")
	}
	delete(s.complaints, id)
	return nil
}

func (s *MemoryStore) ListComplaints(_ context.Context, filter storage.ComplaintFilter) ([]models.Complaint, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Complaint
	for _, c := range s.complaints {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.AssignedAgentID != nil && (c.AssignedAgentID == nil || *c.AssignedAgentID != *filter.AssignedAgentID) {
			continue
		}
		if filter.SubmittedByID != nil && c.SubmittedByID != *filter.SubmittedByID {
			continue
		}
		if filter.Entity != nil && c.Entity != *filter.Entity {
			continue
		}
		out = append(out, s.withComplaintRelations(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return paginate(out, filter.Page)
}

func (s *MemoryStore) AppendStatusHistory(_ context.Context, entry *models.ComplaintStatusHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("AppendStatusHistory"); err != nil {
		return err
	}
	entry.ID = s.id()
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = s.now()
	}
	s.history = append(s.history, *entry)
	return nil
}

func (s *MemoryStore) ListStatusHistory(_ context.Context, complaintID uint) ([]models.ComplaintStatusHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ComplaintStatusHistory
	for _, h := range s.history {
		if h.ComplaintID == complaintID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateComment(_ context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateComment"); err != nil {
		return err
	}
	comment.ID = s.id()
	comment.CreatedAt = s.now()
	stored := *comment
	stored.User = nil
	s.comments = append(s.comments, stored)
	return nil
}

func (s *MemoryStore) ListComments(_ context.Context, complaintID uint, includeInternal bool) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Comment
	for _, c := range s.comments {
		if c.ComplaintID != complaintID || (c.IsInternal && !includeInternal) {
			continue
		}
		if u, ok := s.users[c.UserID]; ok {
			c.User = &u
		}
		out = append(out, c)
	}
	return out, nil
}

// Notifications

func (s *MemoryStore) CreateNotification(_ context.Context, notification *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateNotification"); err != nil {
		return err
	}
	notification.ID = s.id()
	notification.CreatedAt = s.now()
	notification.UpdatedAt = notification.CreatedAt
	s.notifications = append(s.notifications, *notification)
	return nil
}

func (s *MemoryStore) ListNotifications(_ context.Context, userID uint, unreadOnly bool) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for i := len(s.notifications) - 1; i >= 0; i-- {
		n := s.notifications[i]
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *MemoryStore) MarkNotificationRead(_ context.Context, id, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id && s.notifications[i].UserID == userID {
			s.notifications[i].IsRead = true
			return nil
		}
	}
	return notFound("mark notification read")
}

func (s *MemoryStore) MarkAllNotificationsRead(_ context.Context, userID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.notifications {
		if s.notifications[i].UserID == userID && !s.notifications[i].IsRead {
			s.notifications[i].IsRead = true
			n++
		}
	}
	return n, nil
}

// Activity log

func (s *MemoryStore) CreateActivityLog(_ context.Context, entry *models.ActivityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateActivityLog"); err != nil {
		return err
	}
	entry.ID = s.id()
	entry.CreatedAt = s.now()
	s.activity = append(s.activity, *entry)
	return nil
}

func (s *MemoryStore) ListActivityLogs(_ context.Context, filter storage.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ActivityLog
	for i := len(s.activity) - 1; i >= 0; i-- {
		l := s.activity[i]
		if filter.Action != "" && l.Action != filter.Action {
			continue
		}
		if filter.EntityType != "" && l.EntityType != filter.EntityType {
			continue
		}
		if filter.UserID != nil && l.UserID != *filter.UserID {
			continue
		}
		if filter.Severity != "" && l.Severity != filter.Severity {
			continue
		}
		out = append(out, l)
	}
	return paginate(out, filter.Page)
}

// Contracts

func (s *MemoryStore) withContractRelations(c models.Contract) models.Contract {
	if u, ok := s.users[c.CreatedByID]; ok {
		c.CreatedBy = &u
	}
	c.Reminders = nil
	for _, r := range s.sortedReminders() {
		if r.ContractID == c.ID {
			c.Reminders = append(c.Reminders, r)
		}
	}
	return c
}

func (s *MemoryStore) CreateContract(_ context.Context, contract *models.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.contracts {
		if c.ContractNumber == contract.ContractNumber {
			return fmt.Errorf("create contract: %w", storage.ErrConflict)
		}
	}
	contract.ID = s.id()
	contract.CreatedAt = s.now()
	contract.UpdatedAt = contract.CreatedAt
	stored := *contract
	stored.CreatedBy, stored.Reminders = nil, nil
	s.contracts[contract.ID] = stored
	return nil
}

func (s *MemoryStore) GetContract(_ context.Context, id uint) (*models.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return nil, notFound("get contract")
	}
	c = s.withContractRelations(c)
	return &c, nil
}

func (s *MemoryStore) UpdateContract(_ context.Context, contract *models.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateContract"); err != nil {
		return err
	}
	if _, ok := s.contracts[contract.ID]; !ok {
		return notFound("update contract")
	}
	for id, c := range s.contracts {
		if id != contract.ID && c.ContractNumber == contract.ContractNumber {
			return fmt.Errorf("update contract: %w", storage.ErrConflict)
		}
	}
	contract.UpdatedAt = s.now()
	stored := *contract
	stored.CreatedBy, stored.Reminders = nil, nil
	s.contracts[contract.ID] = stored
	return nil
}

func (s *MemoryStore) DeleteContract(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contracts[id]; !ok {
		return notFound("delete contract")
	}
	delete(s.contracts, id)
	return nil
}

func (s *MemoryStore) ListContracts(_ context.Context, filter storage.ContractFilter) ([]models.Contract, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Contract
	for _, c := range s.contracts {
		if filter.Type != "" && c.Type != filter.Type {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if !matchID(filter.ProviderID, c.ProviderID) ||
			!matchID(filter.HumanitarianOrgID, c.HumanitarianOrgID) ||
			!matchID(filter.ParkingServiceID, c.ParkingServiceID) {
			continue
		}
		if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" &&
			!strings.Contains(strings.ToLower(c.Name), term) &&
			!strings.Contains(strings.ToLower(c.ContractNumber), term) {
			continue
		}
		if filter.ExpiringWithin != nil {
			future := filter.Today.AddDate(0, 0, *filter.ExpiringWithin)
			upcoming := !c.EndDate.Before(filter.Today) && !c.EndDate.After(future)
			past := filter.Today.AddDate(0, 0, -*filter.ExpiringWithin)
			recent := filter.IncludeExpired && !c.EndDate.Before(past) && c.EndDate.Before(filter.Today)
			if !upcoming && !recent {
				continue
			}
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	return paginate(out, filter.Page)
}

func (s *MemoryStore) ListExpiringContracts(_ context.Context, from, to time.Time) ([]models.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Contract
	for _, c := range s.contracts {
		if c.Status != models.ContractActive || c.EndDate.Before(from) || c.EndDate.After(to) {
			continue
		}
		c = s.withContractRelations(c)
		var expiration []models.ContractReminder
		for _, r := range c.Reminders {
			if r.ReminderType == models.ReminderExpiration {
				expiration = append(expiration, r)
			}
		}
		c.Reminders = expiration
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Reminders

func (s *MemoryStore) sortedReminders() []models.ContractReminder {
	out := make([]models.ContractReminder, 0, len(s.reminders))
	for _, r := range s.reminders {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReminderDate.Equal(out[j].ReminderDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].ReminderDate.Before(out[j].ReminderDate)
	})
	return out
}

func (s *MemoryStore) CreateReminder(_ context.Context, reminder *models.ContractReminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateReminder"); err != nil {
		return err
	}
	reminder.ID = s.id()
	reminder.CreatedAt = s.now()
	reminder.UpdatedAt = reminder.CreatedAt
	stored := *reminder
	stored.Contract = nil
	s.reminders[reminder.ID] = stored
	return nil
}

func (s *MemoryStore) GetReminder(_ context.Context, id uint) (*models.ContractReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok {
		return nil, notFound("get reminder")
	}
	return &r, nil
}

func (s *MemoryStore) UpdateReminder(_ context.Context, reminder *models.ContractReminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateReminder"); err != nil {
		return err
	}
	if _, ok := s.reminders[reminder.ID]; !ok {
		return notFound("update reminder")
	}
	reminder.UpdatedAt = s.now()
	stored := *reminder
	stored.Contract = nil
	s.reminders[reminder.ID] = stored
	return nil
}

func (s *MemoryStore) ListDueReminders(_ context.Context, now time.Time) ([]models.ContractReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListDueReminders"); err != nil {
		return nil, err
	}
	var out []models.ContractReminder
	for _, r := range s.sortedReminders() {
		if r.IsAcknowledged || r.ReminderDate.After(now) {
			continue
		}
		if c, ok := s.contracts[r.ContractID]; ok {
			if u, ok := s.users[c.CreatedByID]; ok {
				c.CreatedBy = &u
			}
			c.Reminders = nil
			r.Contract = &c
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *MemoryStore) ListContractReminders(_ context.Context, contractID uint) ([]models.ContractReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ContractReminder
	for _, r := range s.sortedReminders() {
		if r.ContractID == contractID {
			out = append(out, r)
		}
	}
	return out, nil
}

func matchID(want, got *uint) bool {
	return want == nil || (got != nil && *got == *want)
}

func paginate[T any](items []T, page storage.Page) ([]T, int64, error) {
	total := int64(len(items))
	page = page.Normalize()
	start := page.Offset()
	if start >= len(items) {
		return []T{}, total, nil
	}
	end := start + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], total, nil
}

var _ storage.Store = (*MemoryStore)(nil)
