package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"medicine-reminders/internal/domain/doses"
)

type dosesRepo struct {
	mu   sync.RWMutex
	byID map[string]doses.Dose
	// keys dedupe por (reminderID, fecha, label) -> dose ID
	keys map[string]string
}

func NewDosesRepo() doses.Repository {
	return &dosesRepo{
		byID: make(map[string]doses.Dose),
		keys: make(map[string]string),
	}
}

func doseKey(reminderID string, date time.Time, label string) string {
	return reminderID + "|" + date.Format("2006-01-02") + "|" + label
}

func (r *dosesRepo) InsertMissing(ctx context.Context, ds []doses.Dose) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inserted := 0
	for _, d := range ds {
		if d.ID == "" {
			return inserted, errors.New("dose id required")
		}
		k := doseKey(d.ReminderID, d.ScheduledDate, d.Window.Label)
		if _, exists := r.keys[k]; exists {
			continue
		}
		r.keys[k] = d.ID
		r.byID[d.ID] = cloneDose(d)
		inserted++
	}
	return inserted, nil
}

func (r *dosesRepo) GetByID(ctx context.Context, id string) (doses.Dose, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byID[id]
	if !ok {
		return doses.Dose{}, doses.ErrNotFound
	}
	return cloneDose(d), nil
}

func (r *dosesRepo) ListByUserRange(ctx context.Context, userID string, from, to time.Time) ([]doses.Dose, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]doses.Dose, 0)
	for _, d := range r.byID {
		if d.UserID != userID {
			continue
		}
		if d.ScheduledDate.Before(from) || d.ScheduledDate.After(to) {
			continue
		}
		out = append(out, cloneDose(d))
	}
	return out, nil
}

func (r *dosesRepo) Transition(ctx context.Context, id string, to doses.Status, respondedAt time.Time, notes string) (doses.Dose, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byID[id]
	if !ok {
		return doses.Dose{}, doses.ErrNotFound
	}
	// Revalidación bajo lock: equivale al UPDATE condicional de Postgres.
	if d.Status != doses.StatusPending {
		return doses.Dose{}, doses.ErrInvalidTransition
	}

	d.Status = to
	d.RespondedAt = &respondedAt
	if notes != "" {
		d.Notes = notes
	}
	r.byID[id] = d
	return cloneDose(d), nil
}

func (r *dosesRepo) MarkNotified(ctx context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byID[id]
	if !ok {
		return false, doses.ErrNotFound
	}
	if d.NotifiedAt != nil {
		return false, nil
	}
	d.NotifiedAt = &at
	r.byID[id] = d
	return true, nil
}

func (r *dosesRepo) SetSnooze(ctx context.Context, id string, until *time.Time) (doses.Dose, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byID[id]
	if !ok {
		return doses.Dose{}, doses.ErrNotFound
	}
	if until != nil {
		u := *until
		d.SnoozedUntil = &u
	} else {
		d.SnoozedUntil = nil
	}
	r.byID[id] = d
	return cloneDose(d), nil
}

func (r *dosesRepo) ListForNotification(ctx context.Context, from, to time.Time) ([]doses.Dose, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]doses.Dose, 0)
	for _, d := range r.byID {
		if d.Status != doses.StatusPending {
			continue
		}
		if d.ScheduledDate.Before(from) || d.ScheduledDate.After(to) {
			continue
		}
		if d.NotifiedAt != nil && d.SnoozedUntil == nil {
			continue
		}
		out = append(out, cloneDose(d))
	}
	return out, nil
}

func (r *dosesRepo) DeleteByReminder(ctx context.Context, reminderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, d := range r.byID {
		if d.ReminderID != reminderID {
			continue
		}
		delete(r.byID, id)
		delete(r.keys, doseKey(d.ReminderID, d.ScheduledDate, d.Window.Label))
	}
	return nil
}

func cloneDose(d doses.Dose) doses.Dose {
	if d.NotifiedAt != nil {
		t := *d.NotifiedAt
		d.NotifiedAt = &t
	}
	if d.RespondedAt != nil {
		t := *d.RespondedAt
		d.RespondedAt = &t
	}
	if d.SnoozedUntil != nil {
		t := *d.SnoozedUntil
		d.SnoozedUntil = &t
	}
	return d
}
