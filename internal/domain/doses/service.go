package doses

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"medicine-reminders/internal/domain/reminders"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("dose not found")
	ErrInvalidTransition = errors.New("invalid dose transition")
)

const (
	// horizonEdgeDays: margen con el que una consulta dispara la extensión
	// perezosa del horizonte de materialización.
	horizonEdgeDays = 3

	defaultSnoozeMinutes = 10
)

// Service es el motor de consultas de agenda y el materializador del plan.
// Lee reminders pero no los muta salvo el bookkeeping de PlanHorizon.
type Service struct {
	repo      Repository
	reminders reminders.Repository
	now       func() time.Time
}

func NewService(repo Repository, remRepo reminders.Repository) *Service {
	return &Service{
		repo:      repo,
		reminders: remRepo,
		now:       time.Now,
	}
}

// Materialize expande el plan del reminder hasta horizonEnd e inserta las
// dosis que falten. Nunca regenera fechas pasadas: arranca en hoy.
func (s *Service) Materialize(ctx context.Context, r reminders.MedicineReminder, horizonEnd time.Time) (int, error) {
	now := s.now()
	plan, err := BuildPlan(r, now, horizonEnd, now)
	if err != nil {
		return 0, err
	}
	if len(plan) == 0 {
		return 0, nil
	}
	return s.repo.InsertMissing(ctx, plan)
}

// Discard elimina todas las dosis del reminder (cascade de Delete).
func (s *Service) Discard(ctx context.Context, reminderID string) error {
	return s.repo.DeleteByReminder(ctx, reminderID)
}

// RecordStatus registra la respuesta del usuario a una dosis:
// pending -> taken|missed|skipped, exactamente una vez.
func (s *Service) RecordStatus(ctx context.Context, userID, doseID string, status Status, notes string) (Dose, error) {
	if !TerminalStatus(status) {
		return Dose{}, fmt.Errorf("%w: status %q", ErrInvalidInput, status)
	}

	if _, err := s.getOwned(ctx, userID, doseID); err != nil {
		return Dose{}, err
	}

	// El repo revalida pending al confirmar (check-then-set optimista), así
	// dos RecordStatus concurrentes sobre la misma dosis no ganan ambos.
	return s.repo.Transition(ctx, doseID, status, s.now(), strings.TrimSpace(notes))
}

// Snooze pospone la notificación de una dosis pendiente.
func (s *Service) Snooze(ctx context.Context, userID, doseID string, minutes int) (Dose, error) {
	if minutes <= 0 {
		minutes = defaultSnoozeMinutes
	}

	d, err := s.getOwned(ctx, userID, doseID)
	if err != nil {
		return Dose{}, err
	}
	if d.Status != StatusPending {
		return Dose{}, ErrInvalidTransition
	}

	until := s.now().Add(time.Duration(minutes) * time.Minute)
	return s.repo.SetSnooze(ctx, doseID, &until)
}

// ForDate devuelve las dosis del usuario para una fecha, ordenadas por inicio
// de ventana y, a igualdad, por orden de creación del reminder. Las dosis ya
// materializadas de reminders pausados siguen siendo consultables.
func (s *Service) ForDate(ctx context.Context, userID string, date time.Time) ([]Dose, error) {
	day := dateOnly(date)
	out, err := s.listSorted(ctx, userID, day, day)
	if err != nil {
		return nil, err
	}
	s.extendHorizonsAsync(userID, day)
	return out, nil
}

// InRange devuelve las dosis del usuario en [from, to], mismo orden que
// ForDate con la fecha como clave principal.
func (s *Service) InRange(ctx context.Context, userID string, from, to time.Time) ([]Dose, error) {
	from, to = dateOnly(from), dateOnly(to)
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end before start", ErrInvalidInput)
	}
	out, err := s.listSorted(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	s.extendHorizonsAsync(userID, to)
	return out, nil
}

// Stats agrega contadores y adherencia sobre el rango.
func (s *Service) Stats(ctx context.Context, userID string, from, to time.Time) (Stats, error) {
	from, to = dateOnly(from), dateOnly(to)
	if to.Before(from) {
		return Stats{}, fmt.Errorf("%w: range end before start", ErrInvalidInput)
	}

	ds, err := s.repo.ListByUserRange(ctx, userID, from, to)
	if err != nil {
		return Stats{}, err
	}

	st := Stats{TotalDoses: len(ds)}
	for _, d := range ds {
		switch d.Status {
		case StatusTaken:
			st.Taken++
		case StatusMissed:
			st.Missed++
		case StatusSkipped:
			st.Skipped++
		default:
			st.Pending++
		}
	}

	if den := st.Taken + st.Missed + st.Skipped; den > 0 {
		rate := float64(st.Taken) / float64(den)
		st.AdherenceRate = &rate
	}

	active := true
	rs, err := s.reminders.ListByUser(ctx, userID, reminders.ListFilter{Active: &active})
	if err != nil {
		return Stats{}, err
	}
	st.TotalReminders = len(rs)

	return st, nil
}

// ExtendHorizons materializa dosis hasta through para los reminders activos
// del usuario cuyo horizonte quede por detrás, y avanza PlanHorizon.
func (s *Service) ExtendHorizons(ctx context.Context, userID string, through time.Time) error {
	through = dateOnly(through)

	rs, err := s.reminders.ListByUser(ctx, userID, reminders.ListFilter{})
	if err != nil {
		return err
	}

	for _, r := range rs {
		if !r.IsActive || r.Frequency == reminders.FreqAsNeeded {
			continue
		}
		target := through
		if r.EndDate != nil && r.EndDate.Before(target) {
			target = dateOnly(*r.EndDate)
		}
		if !r.PlanHorizon.Before(target) {
			continue
		}

		if _, err := s.Materialize(ctx, r, target); err != nil {
			return err
		}
		r.PlanHorizon = target
		if err := s.reminders.Update(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// extendHorizonsAsync dispara la extensión en background, aislada del
// resultado de la consulta que la provocó. Un fallo aquí no se reporta:
// la siguiente consulta lo reintenta.
func (s *Service) extendHorizonsAsync(userID string, queryEnd time.Time) {
	edge := queryEnd.AddDate(0, 0, horizonEdgeDays)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = s.ExtendHorizons(ctx, userID, edge)
	}()
}

func (s *Service) listSorted(ctx context.Context, userID string, from, to time.Time) ([]Dose, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}

	ds, err := s.repo.ListByUserRange(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	// Desempate por orden de creación del reminder dueño.
	createdAt := map[string]time.Time{}
	rs, err := s.reminders.ListByUser(ctx, userID, reminders.ListFilter{})
	if err != nil {
		return nil, err
	}
	for _, r := range rs {
		createdAt[r.ID] = r.CreatedAt
	}

	sort.SliceStable(ds, func(i, j int) bool {
		a, b := ds[i], ds[j]
		if !a.ScheduledDate.Equal(b.ScheduledDate) {
			return a.ScheduledDate.Before(b.ScheduledDate)
		}
		if a.Window.Start != b.Window.Start {
			return a.Window.Start < b.Window.Start
		}
		ca, cb := createdAt[a.ReminderID], createdAt[b.ReminderID]
		if !ca.Equal(cb) {
			return ca.Before(cb)
		}
		return a.ID < b.ID
	})

	return ds, nil
}

func (s *Service) getOwned(ctx context.Context, userID, doseID string) (Dose, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(doseID) == "" {
		return Dose{}, ErrInvalidInput
	}
	d, err := s.repo.GetByID(ctx, doseID)
	if err != nil {
		return Dose{}, err
	}
	if d.UserID != userID {
		return Dose{}, ErrNotFound
	}
	return d, nil
}
