// Package memory is an in-process document store used in development mode and tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/repository"
)

// Store keeps every collection in memory. Writes that touch several collections are applied
// under one lock so they are atomic with respect to readers.
type Store struct {
	mu        sync.Mutex
	requests  map[string]*domain.MaintenanceRequest
	comments  map[string][]domain.RequestComment
	history   map[string][]domain.RequestHistory
	users     map[string]*domain.User
	writeErr  error
	readErr   error
	readFails int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		requests: map[string]*domain.MaintenanceRequest{},
		comments: map[string][]domain.RequestComment{},
		history:  map[string][]domain.RequestHistory{},
		users:    map[string]*domain.User{},
	}
}

// FailWrites makes every write return err until called again with nil.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// FailReads makes the next n reads return err.
func (s *Store) FailReads(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readFails = n
	s.readErr = err
}

// PutRequest stores a request document as-is, without an audit row.
func (s *Store) PutRequest(req *domain.MaintenanceRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = req.Clone()
}

// PutUser stores a user document as-is.
func (s *Store) PutUser(user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *user
	s.users[user.ID] = &copied
}

func (s *Store) Requests() repository.RequestRepository { return requestStore{s} }
func (s *Store) Comments() repository.CommentRepository { return commentStore{s} }
func (s *Store) History() repository.HistoryRepository  { return historyStore{s} }
func (s *Store) Users() repository.UserRepository       { return userStore{s} }

// readFault must be called with mu held.
func (s *Store) readFault() error {
	if s.readFails <= 0 {
		return nil
	}
	s.readFails--
	return s.readErr
}

type requestStore struct{ s *Store }

func (r requestStore) Get(_ context.Context, id string) (*domain.MaintenanceRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.readFault(); err != nil {
		return nil, err
	}
	req, ok := r.s.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return req.Clone(), nil
}

func (r requestStore) matching(filter domain.RequestFilter) []domain.MaintenanceRequest {
	var result []domain.MaintenanceRequest
	for _, req := range r.s.requests {
		if matches(filter, req) {
			result = append(result, *req.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (r requestStore) List(_ context.Context, filter domain.RequestFilter) ([]domain.MaintenanceRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.readFault(); err != nil {
		return nil, err
	}
	all := r.matching(filter)
	limit, offset := repository.Page(filter.Limit, filter.Offset)
	if offset >= len(all) {
		return nil, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (r requestStore) Count(_ context.Context, filter domain.RequestFilter) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.readFault(); err != nil {
		return 0, err
	}
	return len(r.matching(filter)), nil
}

func (r requestStore) Stats(_ context.Context, filter domain.RequestFilter) (*domain.DashboardStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.readFault(); err != nil {
		return nil, err
	}
	stats := &domain.DashboardStats{
		ByCategory: map[domain.Category]int{},
		ByPriority: map[domain.Priority]int{},
	}
	var hours float64
	var completedWithDate int
	for _, req := range r.matching(filter) {
		stats.TotalRequests++
		switch req.Status {
		case domain.StatusNew:
			stats.NewRequests++
		case domain.StatusInProgress:
			stats.InProgressRequests++
		case domain.StatusCompleted:
			stats.CompletedRequests++
			if req.ActualCompletionDate != nil {
				hours += req.ActualCompletionDate.Sub(req.CreatedAt).Hours()
				completedWithDate++
			}
		case domain.StatusClosed:
			stats.ClosedRequests++
		}
		if req.Priority == domain.PriorityUrgent {
			stats.UrgentRequests++
		}
		stats.ByCategory[req.Category]++
		stats.ByPriority[req.Priority]++
	}
	if completedWithDate > 0 {
		stats.AverageCompletionTime = hours / float64(completedWithDate)
	}
	return stats, nil
}

func (r requestStore) CreateWithHistory(_ context.Context, req *domain.MaintenanceRequest, entry domain.RequestHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.writeErr != nil {
		return r.s.writeErr
	}
	id := strings.Clone(req.ID)
	r.s.requests[id] = req.Clone()
	r.s.history[id] = append(r.s.history[id], ownHistory(entry))
	return nil
}

func (r requestStore) UpdateWithHistory(_ context.Context, req *domain.MaintenanceRequest, rows []domain.RequestHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.writeErr != nil {
		return r.s.writeErr
	}
	if _, ok := r.s.requests[req.ID]; !ok {
		return repository.ErrNotFound
	}
	r.s.requests[req.ID] = req.Clone()
	for _, row := range rows {
		r.s.history[req.ID] = append(r.s.history[req.ID], ownHistory(row))
	}
	return nil
}

func (r requestStore) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.writeErr != nil {
		return r.s.writeErr
	}
	if _, ok := r.s.requests[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.requests, id)
	delete(r.s.comments, id)
	delete(r.s.history, id)
	return nil
}

func matches(filter domain.RequestFilter, req *domain.MaintenanceRequest) bool {
	if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, req.Status) {
		return false
	}
	if len(filter.Categories) > 0 && !slices.Contains(filter.Categories, req.Category) {
		return false
	}
	if len(filter.Priorities) > 0 && !slices.Contains(filter.Priorities, req.Priority) {
		return false
	}
	if filter.AssignedTechnicianID != nil && !req.IsAssignedTo(*filter.AssignedTechnicianID) {
		return false
	}
	if filter.RequesterID != nil && req.RequesterID != *filter.RequesterID {
		return false
	}
	if filter.CreatedFrom != nil && req.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && req.CreatedAt.After(*filter.CreatedTo) {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(filter.SearchTerm)); term != "" {
		haystack := strings.ToLower(req.Title + "\n" + req.Description + "\n" + req.Location)
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

type commentStore struct{ s *Store }

func (c commentStore) CreateWithHistory(_ context.Context, comment *domain.RequestComment, entry domain.RequestHistory) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if c.s.writeErr != nil {
		return c.s.writeErr
	}
	if _, ok := c.s.requests[comment.RequestID]; !ok {
		return repository.ErrNotFound
	}
	owned := *comment
	owned.ID = strings.Clone(comment.ID)
	owned.RequestID = strings.Clone(comment.RequestID)
	owned.AuthorID = strings.Clone(comment.AuthorID)
	owned.Text = strings.Clone(comment.Text)
	c.s.comments[owned.RequestID] = append(c.s.comments[owned.RequestID], owned)
	c.s.history[owned.RequestID] = append(c.s.history[owned.RequestID], ownHistory(entry))
	return nil
}

// ownHistory copies the identifiers of a row so the stored entry never aliases caller buffers.
func ownHistory(entry domain.RequestHistory) domain.RequestHistory {
	entry.ID = strings.Clone(entry.ID)
	entry.RequestID = strings.Clone(entry.RequestID)
	entry.UserID = strings.Clone(entry.UserID)
	entry.OldValue = strings.Clone(entry.OldValue)
	entry.NewValue = strings.Clone(entry.NewValue)
	return entry
}

func (c commentStore) ListByRequest(_ context.Context, requestID string) ([]domain.RequestComment, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.readFault(); err != nil {
		return nil, err
	}
	result := slices.Clone(c.s.comments[requestID])
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

type historyStore struct{ s *Store }

func (h historyStore) ListByRequest(_ context.Context, requestID string) ([]domain.RequestHistory, error) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if err := h.s.readFault(); err != nil {
		return nil, err
	}
	result := slices.Clone(h.s.history[requestID])
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

type userStore struct{ s *Store }

func (u userStore) Create(_ context.Context, user *domain.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	return u.createLocked(user)
}

func (u userStore) CreateFirstSuperAdmin(_ context.Context, user *domain.User) (bool, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, existing := range u.s.users {
		if existing.Role == domain.RoleSuperAdmin {
			return false, nil
		}
	}
	if err := u.createLocked(user); err != nil {
		return false, err
	}
	return true, nil
}

func (u userStore) createLocked(user *domain.User) error {
	if u.s.writeErr != nil {
		return u.s.writeErr
	}
	for _, existing := range u.s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	copied := *user
	copied.ID = strings.Clone(user.ID)
	copied.Email = strings.ToLower(user.Email)
	u.s.users[copied.ID] = &copied
	return nil
}

func (u userStore) Update(_ context.Context, user *domain.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.writeErr != nil {
		return u.s.writeErr
	}
	existing, ok := u.s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	copied := *user
	copied.Email = existing.Email
	copied.CreatedAt = existing.CreatedAt
	copied.CreatedBy = existing.CreatedBy
	u.s.users[user.ID] = &copied
	return nil
}

func (u userStore) Get(_ context.Context, id string) (*domain.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if err := u.s.readFault(); err != nil {
		return nil, err
	}
	user, ok := u.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (u userStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if err := u.s.readFault(); err != nil {
		return nil, err
	}
	email = strings.TrimSpace(email)
	for _, user := range u.s.users {
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (u userStore) List(_ context.Context, filter domain.UserFilter) ([]domain.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if err := u.s.readFault(); err != nil {
		return nil, err
	}
	term := strings.ToLower(strings.TrimSpace(filter.SearchTerm))
	var result []domain.User
	for _, user := range u.s.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		if filter.IsActive != nil && user.IsActive != *filter.IsActive {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(user.Name+"\n"+user.Email), term) {
			continue
		}
		result = append(result, *user)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	limit, offset := repository.Page(filter.Limit, filter.Offset)
	if offset >= len(result) {
		return nil, nil
	}
	return result[offset:min(offset+limit, len(result))], nil
}

func (u userStore) SetActive(_ context.Context, ids []string, active bool) (int, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.writeErr != nil {
		return 0, u.s.writeErr
	}
	var n int
	now := time.Now().UTC()
	for _, id := range ids {
		if user, ok := u.s.users[id]; ok {
			user.IsActive = active
			user.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (u userStore) Delete(_ context.Context, id string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.writeErr != nil {
		return u.s.writeErr
	}
	if _, ok := u.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(u.s.users, id)
	return nil
}

func (u userStore) CountByRole(_ context.Context, role domain.Role) (int, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if err := u.s.readFault(); err != nil {
		return 0, err
	}
	var n int
	for _, user := range u.s.users {
		if user.Role == role {
			n++
		}
	}
	return n, nil
}

func (u userStore) Stats(_ context.Context, since time.Time) (*domain.UserStats, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if err := u.s.readFault(); err != nil {
		return nil, err
	}
	stats := &domain.UserStats{ByRole: map[domain.Role]int{}}
	for _, user := range u.s.users {
		stats.Total++
		if user.IsActive {
			stats.Active++
		} else {
			stats.Inactive++
		}
		stats.ByRole[user.Role]++
		if !user.CreatedAt.Before(since) {
			stats.RecentlyCreated++
		}
	}
	return stats, nil
}
