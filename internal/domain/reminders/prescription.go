package reminders

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MedicationInput es una línea de medicación tal como viene en la receta:
// frecuencia y duración en texto libre ("twice daily", "2 weeks").
type MedicationInput struct {
	Name         string
	Dosage       string
	Frequency    string
	Duration     string
	Timing       string
	Instructions string
}

type PrescriptionInput struct {
	PrescriptionID string
	StartDate      *time.Time // opcional; default hoy
	Medications    []MedicationInput
}

// CreateFromPrescription deriva un reminder por cada medicación de la receta.
// Falla completa si alguna medicación no valida.
func (s *Service) CreateFromPrescription(ctx context.Context, userID string, in PrescriptionInput) ([]MedicineReminder, error) {
	if len(in.Medications) == 0 {
		return nil, fmt.Errorf("%w: prescription has no medications", ErrInvalidInput)
	}

	start := dateOnly(s.now())
	if in.StartDate != nil {
		start = dateOnly(*in.StartDate)
	}

	out := make([]MedicineReminder, 0, len(in.Medications))
	for _, m := range in.Medications {
		freq := MapFrequency(m.Frequency)

		var end *time.Time
		if freq != FreqAsNeeded {
			e := CalculateEndDate(start, m.Duration)
			end = &e
		}

		r, err := s.Create(ctx, userID, CreateInput{
			MedicineName:   m.Name,
			Dosage:         m.Dosage,
			Frequency:      freq,
			Timing:         parseTiming(m.Timing),
			StartDate:      start,
			EndDate:        end,
			Instructions:   m.Instructions,
			PrescriptionID: in.PrescriptionID,
		})
		if err != nil {
			// rollback best-effort de lo ya creado
			for _, created := range out {
				_ = s.Delete(ctx, userID, created.ID)
			}
			return nil, fmt.Errorf("medication %q: %w", m.Name, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// MapFrequency interpreta la frecuencia en texto libre de una receta.
// Lo que no se reconoce cae en as_needed (se registra a demanda).
func MapFrequency(text string) Frequency {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.Contains(t, "12 hour"):
		return FreqEvery12Hours
	case strings.Contains(t, "8 hour"):
		return FreqEvery8Hours
	case strings.Contains(t, "6 hour"):
		return FreqEvery6Hours
	case strings.Contains(t, "thrice"), strings.Contains(t, "three"), strings.Contains(t, "3"):
		return FreqThriceDaily
	case strings.Contains(t, "twice"), strings.Contains(t, "2"):
		return FreqTwiceDaily
	case strings.Contains(t, "once"), strings.Contains(t, "1"):
		return FreqOnceDaily
	default:
		return FreqAsNeeded
	}
}

// CalculateEndDate interpreta duraciones tipo "7 days", "2 weeks", "1 month".
// Sin número o unidad reconocible, asume 7 días.
func CalculateEndDate(start time.Time, duration string) time.Time {
	start = dateOnly(start)
	d := strings.ToLower(strings.TrimSpace(duration))

	n := leadingInt(d)
	switch {
	case n > 0 && strings.Contains(d, "week"):
		return start.AddDate(0, 0, n*7)
	case n > 0 && strings.Contains(d, "month"):
		return start.AddDate(0, n, 0)
	case n > 0 && strings.Contains(d, "day"):
		return start.AddDate(0, 0, n)
	default:
		return start.AddDate(0, 0, 7)
	}
}

func parseTiming(text string) Timing {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case string(TimingBeforeMeal), "before meal":
		return TimingBeforeMeal
	case string(TimingAfterMeal), "after meal":
		return TimingAfterMeal
	default:
		return TimingAnytime
	}
}

func leadingInt(s string) int {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0
	}
	return n
}
