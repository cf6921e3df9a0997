package task

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskbot/internal/fsstore"
)

var (
	ErrEmptyName     = errors.New("task: name must not be empty")
	ErrDuplicateName = errors.New("task: duplicate name")
	ErrNotFound      = errors.New("task: not found")
	ErrIndexRange    = errors.New("task: index out of range")
)

// document is the on-disk shape of the store.
type document struct {
	Tasks []Task `json:"tasks"`
}

// Store is the process-wide task collection. All mutations persist the full
// document synchronously before returning; a persistence failure is returned
// to the caller but the in-memory change is kept.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
	tasks  []Task
	now    func() time.Time
	newID  func() string
}

func OpenStore(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		path:   path,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
	var doc document
	found, err := fsstore.ReadJSON(path, &doc)
	if err != nil {
		return nil, fmt.Errorf("open task store: %w", err)
	}
	if found {
		s.tasks = doc.Tasks
	}
	return s, nil
}

func (s *Store) save() error {
	if err := fsstore.WriteJSONAtomic(s.path, document{Tasks: s.tasks}); err != nil {
		s.logger.Error("task_store_save_error", "path", s.path, "error", err)
		return err
	}
	return nil
}

// indexByName matches exactly: names differing only in case are distinct
// tasks.
func (s *Store) indexByName(name string) int {
	for i := range s.tasks {
		if s.tasks[i].Name == name {
			return i
		}
	}
	return -1
}

// Add appends a new task. A duplicate name is rejected without changing the
// store.
func (s *Store) Add(f Fields) (Task, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return Task{}, ErrEmptyName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexByName(name) >= 0 {
		return Task{}, fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	t := Task{
		ID:        s.newID(),
		Name:      name,
		DueDate:   f.DueDate,
		Priority:  f.Priority,
		Category:  f.Category,
		CreatedAt: s.now().UTC(),
	}
	s.tasks = append(s.tasks, t)
	if err := s.save(); err != nil {
		return t, err
	}
	return t, nil
}

// Update applies a partial change to the task with the given id.
func (s *Store) Update(id string, p Patch) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID != id {
			continue
		}
		if p.Name != nil {
			name := strings.TrimSpace(*p.Name)
			if name == "" {
				return Task{}, ErrEmptyName
			}
			if j := s.indexByName(name); j >= 0 && j != i {
				return Task{}, fmt.Errorf("%w: %s", ErrDuplicateName, name)
			}
			s.tasks[i].Name = name
		}
		if p.Completed != nil {
			s.tasks[i].Completed = *p.Completed
		}
		if p.DueDate != nil {
			s.tasks[i].DueDate = *p.DueDate
		}
		if p.Priority != nil {
			s.tasks[i].Priority = *p.Priority
		}
		if p.Category != nil {
			s.tasks[i].Category = *p.Category
		}
		now := s.now().UTC()
		s.tasks[i].UpdatedAt = &now
		t := s.tasks[i]
		if err := s.save(); err != nil {
			return t, err
		}
		return t, nil
	}
	return Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Delete removes the task with the given id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return s.save()
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// SetCompletedAt toggles completion on the task at the given position in the
// insertion-ordered list. Positions come from rendered keyboards and may be
// stale if the list changed since rendering.
func (s *Store) SetCompletedAt(idx int, completed bool) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx < 0 || idx >= len(s.tasks) {
		return Task{}, fmt.Errorf("%w: %d", ErrIndexRange, idx)
	}
	s.tasks[idx].Completed = completed
	now := s.now().UTC()
	s.tasks[idx].UpdatedAt = &now
	t := s.tasks[idx]
	if err := s.save(); err != nil {
		return t, err
	}
	return t, nil
}

// DeleteAt removes the task at the given position in the insertion-ordered
// list and returns the removed task.
func (s *Store) DeleteAt(idx int) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx < 0 || idx >= len(s.tasks) {
		return Task{}, fmt.Errorf("%w: %d", ErrIndexRange, idx)
	}
	t := s.tasks[idx]
	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	if err := s.save(); err != nil {
		return t, err
	}
	return t, nil
}

// UpsertByName creates the task if the name is new, otherwise overwrites the
// due date, priority, category and completion of the existing task. Reports
// whether a task was created.
func (s *Store) UpsertByName(f Fields, completed bool) (bool, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return false, ErrEmptyName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexByName(name); i >= 0 {
		s.tasks[i].DueDate = f.DueDate
		s.tasks[i].Priority = f.Priority
		s.tasks[i].Category = f.Category
		s.tasks[i].Completed = completed
		now := s.now().UTC()
		s.tasks[i].UpdatedAt = &now
		return false, s.save()
	}
	s.tasks = append(s.tasks, Task{
		ID:        s.newID(),
		Name:      name,
		Completed: completed,
		DueDate:   f.DueDate,
		Priority:  f.Priority,
		Category:  f.Category,
		CreatedAt: s.now().UTC(),
	})
	return true, s.save()
}

func (s *Store) snapshot(keep func(*Task) bool) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, 0, len(s.tasks))
	for i := range s.tasks {
		if keep == nil || keep(&s.tasks[i]) {
			out = append(out, s.tasks[i])
		}
	}
	return out
}

// All returns a copy of the store in insertion order.
func (s *Store) All() []Task {
	return s.snapshot(nil)
}

func (s *Store) Completed() []Task {
	return s.snapshot(func(t *Task) bool { return t.Completed })
}

func (s *Store) Pending() []Task {
	return s.snapshot(func(t *Task) bool { return !t.Completed })
}

func (s *Store) FilterByCategory(category string) []Task {
	return s.snapshot(func(t *Task) bool { return strings.EqualFold(t.Category, category) })
}

func (s *Store) FilterByPriority(p Priority) []Task {
	return s.snapshot(func(t *Task) bool { return t.Priority == p })
}

func (s *Store) FilterByDueDate(date string) []Task {
	return s.snapshot(func(t *Task) bool { return t.DueDate == date })
}

// Stats computes store totals under the lock.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{Total: len(s.tasks)}
	for i := range s.tasks {
		if s.tasks[i].Completed {
			st.Completed++
		}
	}
	st.Pending = st.Total - st.Completed
	if st.Total > 0 {
		rate := float64(st.Completed) / float64(st.Total) * 100
		st.CompletionRate = math.Round(rate*100) / 100
	}
	return st
}

// ClearCompleted removes every completed task and reports how many were
// removed.
func (s *Store) ClearCompleted() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.tasks[:0]
	removed := 0
	for i := range s.tasks {
		if s.tasks[i].Completed {
			removed++
			continue
		}
		kept = append(kept, s.tasks[i])
	}
	s.tasks = kept
	if removed == 0 {
		return 0, nil
	}
	return removed, s.save()
}

// ClearAll empties the store.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = nil
	return s.save()
}
