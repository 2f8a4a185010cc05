package reminders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("reminder not found")
)

// DosePlanner materializa y descarta las dosis de un reminder.
// Lo implementa el módulo doses; se inyecta desde el router para no
// acoplar este paquete a la expansión del plan.
type DosePlanner interface {
	Materialize(ctx context.Context, r MedicineReminder, horizonEnd time.Time) (int, error)
	Discard(ctx context.Context, reminderID string) error
}

// PlanHorizonDays acota la generación de dosis hacia adelante; el horizonte
// se extiende de forma perezosa cuando las consultas se acercan al borde.
const PlanHorizonDays = 14

type Service struct {
	repo    Repository
	catalog Catalog
	planner DosePlanner
	now     func() time.Time
}

func NewService(repo Repository, catalog Catalog, planner DosePlanner) *Service {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Service{
		repo:    repo,
		catalog: catalog,
		planner: planner,
		now:     time.Now,
	}
}

type CreateInput struct {
	MedicineName   string
	Dosage         string
	Frequency      Frequency
	Timing         Timing
	StartDate      time.Time
	EndDate        *time.Time
	TimeWindows    []TimeWindow // override opcional; obligatorio si custom
	Instructions   string
	PrescriptionID string
}

func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (MedicineReminder, error) {
	if strings.TrimSpace(userID) == "" {
		return MedicineReminder{}, ErrInvalidInput
	}

	name := strings.TrimSpace(in.MedicineName)
	dosage := strings.TrimSpace(in.Dosage)
	if name == "" {
		return MedicineReminder{}, fmt.Errorf("%w: medicine name is required", ErrInvalidInput)
	}
	if dosage == "" {
		return MedicineReminder{}, fmt.Errorf("%w: dosage is required", ErrInvalidInput)
	}

	if !s.catalog.Known(in.Frequency) {
		return MedicineReminder{}, fmt.Errorf("%w: %q", ErrUnknownFrequency, in.Frequency)
	}

	timing := in.Timing
	if timing == "" {
		timing = TimingAnytime
	}
	if !ValidTiming(timing) {
		return MedicineReminder{}, fmt.Errorf("%w: timing %q", ErrInvalidInput, timing)
	}

	if in.StartDate.IsZero() {
		return MedicineReminder{}, fmt.Errorf("%w: start date is required", ErrInvalidInput)
	}
	start := dateOnly(in.StartDate)

	var end *time.Time
	if in.EndDate != nil {
		e := dateOnly(*in.EndDate)
		end = &e
	}
	// Solo as_needed puede quedar abierto.
	if end == nil && in.Frequency != FreqAsNeeded {
		return MedicineReminder{}, fmt.Errorf("%w: end date is required", ErrInvalidInput)
	}
	if end != nil && end.Before(start) {
		return MedicineReminder{}, fmt.Errorf("%w: end date before start date", ErrInvalidInput)
	}

	windows, err := s.resolveWindows(in.Frequency, in.TimeWindows)
	if err != nil {
		return MedicineReminder{}, err
	}

	now := s.now()
	r := MedicineReminder{
		ID:             uuid.NewString(),
		UserID:         userID,
		PrescriptionID: strings.TrimSpace(in.PrescriptionID),
		MedicineName:   name,
		Dosage:         dosage,
		Frequency:      in.Frequency,
		Timing:         timing,
		StartDate:      start,
		EndDate:        end,
		TimeWindows:    windows,
		IsActive:       true,
		Instructions:   strings.TrimSpace(in.Instructions),
		PlanHorizon:    horizonFor(dateOnly(now), end),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, r); err != nil {
		return MedicineReminder{}, err
	}

	// Materializa el horizonte inicial. Si falla, se deshace el create:
	// devolver error dejando el reminder persistido invita a un retry del
	// cliente que lo duplicaría.
	if s.planner != nil {
		if _, err := s.planner.Materialize(ctx, r, r.PlanHorizon); err != nil {
			_ = s.repo.Delete(ctx, r.ID)
			return MedicineReminder{}, err
		}
	}

	return r, nil
}

func (s *Service) GetByID(ctx context.Context, userID, id string) (MedicineReminder, error) {
	return s.getOwned(ctx, userID, id)
}

func (s *Service) ListByUser(ctx context.Context, userID string, f ListFilter) ([]MedicineReminder, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByUser(ctx, userID, f)
}

type UpdateInput struct {
	// Punteros para PATCH real: nil = no tocar.
	MedicineName *string
	Dosage       *string
	Timing       *Timing
	StartDate    *time.Time
	EndDate      *time.Time
	TimeWindows  *[]TimeWindow
	Instructions *string
}

// Update modifica el reminder. Los cambios de fechas/ventanas solo afectan la
// generación futura: las dosis ya materializadas conservan su ventana original.
func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (MedicineReminder, error) {
	r, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return MedicineReminder{}, err
	}

	if in.MedicineName != nil {
		name := strings.TrimSpace(*in.MedicineName)
		if name == "" {
			return MedicineReminder{}, fmt.Errorf("%w: medicine name is required", ErrInvalidInput)
		}
		r.MedicineName = name
	}
	if in.Dosage != nil {
		dosage := strings.TrimSpace(*in.Dosage)
		if dosage == "" {
			return MedicineReminder{}, fmt.Errorf("%w: dosage is required", ErrInvalidInput)
		}
		r.Dosage = dosage
	}
	if in.Timing != nil {
		if !ValidTiming(*in.Timing) {
			return MedicineReminder{}, fmt.Errorf("%w: timing %q", ErrInvalidInput, *in.Timing)
		}
		r.Timing = *in.Timing
	}
	if in.StartDate != nil {
		r.StartDate = dateOnly(*in.StartDate)
	}
	if in.EndDate != nil {
		e := dateOnly(*in.EndDate)
		r.EndDate = &e
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return MedicineReminder{}, fmt.Errorf("%w: end date before start date", ErrInvalidInput)
	}
	if in.TimeWindows != nil {
		ws := *in.TimeWindows
		if err := ValidateWindows(ws); err != nil {
			return MedicineReminder{}, err
		}
		r.TimeWindows = ws
	}
	if in.Instructions != nil {
		r.Instructions = strings.TrimSpace(*in.Instructions)
	}

	r.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, r); err != nil {
		return MedicineReminder{}, err
	}
	return r, nil
}

// ToggleActive pausa o reanuda el reminder. Pausar no borra dosis pendientes:
// solo suprime la generación nueva y las notificaciones.
func (s *Service) ToggleActive(ctx context.Context, userID, id string) (MedicineReminder, error) {
	r, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return MedicineReminder{}, err
	}

	r.IsActive = !r.IsActive
	r.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, r); err != nil {
		return MedicineReminder{}, err
	}
	return r, nil
}

// Delete elimina el reminder y todas sus dosis. Irreversible.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	r, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return err
	}

	if s.planner != nil {
		if err := s.planner.Discard(ctx, r.ID); err != nil {
			return err
		}
	}
	return s.repo.Delete(ctx, r.ID)
}

func (s *Service) getOwned(ctx context.Context, userID, id string) (MedicineReminder, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(id) == "" {
		return MedicineReminder{}, ErrInvalidInput
	}
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return MedicineReminder{}, err
	}
	// Un reminder ajeno se reporta como inexistente, no como forbidden.
	if r.UserID != userID {
		return MedicineReminder{}, ErrNotFound
	}
	return r, nil
}

func (s *Service) resolveWindows(f Frequency, override []TimeWindow) ([]TimeWindow, error) {
	if len(override) > 0 {
		if err := ValidateWindows(override); err != nil {
			return nil, err
		}
		out := make([]TimeWindow, len(override))
		copy(out, override)
		for i := range out {
			out[i].Label = strings.TrimSpace(out[i].Label)
		}
		return out, nil
	}
	if f == FreqCustom {
		return nil, fmt.Errorf("%w: custom frequency requires time windows", ErrInvalidWindow)
	}
	return s.catalog.Windows(f)
}

func horizonFor(today time.Time, end *time.Time) time.Time {
	h := today.AddDate(0, 0, PlanHorizonDays)
	if end != nil && end.Before(h) {
		return *end
	}
	return h
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
