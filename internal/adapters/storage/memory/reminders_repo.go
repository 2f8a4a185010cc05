package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"medicine-reminders/internal/domain/reminders"
)

type remindersRepo struct {
	mu   sync.RWMutex
	byID map[string]reminders.MedicineReminder
}

func NewRemindersRepo() reminders.Repository {
	return &remindersRepo{
		byID: make(map[string]reminders.MedicineReminder),
	}
}

func (r *remindersRepo) Create(ctx context.Context, m reminders.MedicineReminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(m.ID) == "" {
		return errors.New("reminder id required")
	}
	if _, exists := r.byID[m.ID]; exists {
		return errors.New("reminder already exists")
	}
	r.byID[m.ID] = cloneReminder(m)
	return nil
}

func (r *remindersRepo) GetByID(ctx context.Context, id string) (reminders.MedicineReminder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return reminders.MedicineReminder{}, reminders.ErrNotFound
	}
	return cloneReminder(m), nil
}

func (r *remindersRepo) ListByUser(ctx context.Context, userID string, f reminders.ListFilter) ([]reminders.MedicineReminder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]reminders.MedicineReminder, 0)
	for _, m := range r.byID {
		if m.UserID != userID {
			continue
		}
		if f.Active != nil && m.IsActive != *f.Active {
			continue
		}
		// Solapamiento del rango activo del reminder con [From, To].
		if f.To != nil && m.StartDate.After(*f.To) {
			continue
		}
		if f.From != nil && m.EndDate != nil && m.EndDate.Before(*f.From) {
			continue
		}
		out = append(out, cloneReminder(m))
	}

	// Orden estable por created_at asc (orden de creación)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}

func (r *remindersRepo) Update(ctx context.Context, m reminders.MedicineReminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[m.ID]; !exists {
		return reminders.ErrNotFound
	}
	r.byID[m.ID] = cloneReminder(m)
	return nil
}

func (r *remindersRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; !exists {
		return reminders.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func cloneReminder(m reminders.MedicineReminder) reminders.MedicineReminder {
	ws := make([]reminders.TimeWindow, len(m.TimeWindows))
	copy(ws, m.TimeWindows)
	m.TimeWindows = ws
	if m.EndDate != nil {
		e := *m.EndDate
		m.EndDate = &e
	}
	return m
}
