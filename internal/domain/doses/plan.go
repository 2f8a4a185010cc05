package doses

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"medicine-reminders/internal/domain/reminders"
)

// BuildPlan expande un reminder en dosis pendientes, una por (fecha, ventana),
// para las fechas entre max(StartDate, from) y min(EndDate, through) inclusive.
// Es una función pura: la inserción idempotente la hace Materialize.
//
// as_needed no genera dosis (se registran retroactivamente a demanda).
func BuildPlan(r reminders.MedicineReminder, from, through, createdAt time.Time) ([]Dose, error) {
	if r.Frequency == reminders.FreqAsNeeded {
		return nil, nil
	}

	windows := r.TimeWindows
	if len(windows) == 0 {
		return nil, nil
	}

	if r.Frequency == reminders.FreqCustom {
		if err := reminders.ValidateWindows(windows); err != nil {
			return nil, err
		}
	} else {
		// Las ventanas del catálogo pueden cruzar medianoche (23:00–01:00),
		// pero el label nunca puede faltar.
		for _, w := range windows {
			if w.Label == "" {
				return nil, fmt.Errorf("%w: empty label", reminders.ErrInvalidWindow)
			}
		}
	}

	start := dateOnly(r.StartDate)
	if f := dateOnly(from); f.After(start) {
		start = f
	}
	end := dateOnly(through)
	if r.EndDate != nil && r.EndDate.Before(end) {
		end = dateOnly(*r.EndDate)
	}

	var out []Dose
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		for _, w := range windows {
			out = append(out, Dose{
				ID:            uuid.NewString(),
				ReminderID:    r.ID,
				UserID:        r.UserID,
				ScheduledDate: day,
				Window:        w,
				Status:        StatusPending,
				CreatedAt:     createdAt,
			})
		}
	}
	return out, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
