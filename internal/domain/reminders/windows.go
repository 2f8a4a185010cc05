package reminders

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidWindow = errors.New("invalid time window")

// TimeOfDay es una hora del día en minutos desde medianoche (0..1439).
type TimeOfDay int

// ParseTimeOfDay parsea "HH:MM" (24h).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("%w: %q must be HH:MM", ErrInvalidWindow, s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidWindow, s)
	}
	return TimeOfDay(h*60 + m), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < 24*60
}

// At combina la hora con una fecha, en la location de la fecha.
func (t TimeOfDay) At(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, int(t)/60, int(t)%60, 0, 0, date.Location())
}

// TimeWindow es un intervalo horario con nombre ("Morning 07:00–09:00")
// dentro del cual corresponde tomar una dosis.
type TimeWindow struct {
	Label string
	Start TimeOfDay
	End   TimeOfDay
}

// WrapsMidnight indica si la ventana cruza medianoche (End <= Start).
// Solo las ventanas del catálogo pueden venir así (p.ej. 23:00–01:00);
// las ventanas custom del usuario se rechazan en ValidateWindows.
func (w TimeWindow) WrapsMidnight() bool {
	return w.End <= w.Start
}

// StartAt / EndAt anclan la ventana a una fecha concreta.
// Si la ventana cruza medianoche, el fin cae al día siguiente.
func (w TimeWindow) StartAt(date time.Time) time.Time {
	return w.Start.At(date)
}

func (w TimeWindow) EndAt(date time.Time) time.Time {
	if w.WrapsMidnight() {
		return w.End.At(date.AddDate(0, 0, 1))
	}
	return w.End.At(date)
}

// ValidateWindows valida ventanas provistas por el usuario: label no vacío,
// sin duplicados y start < end estricto.
func ValidateWindows(ws []TimeWindow) error {
	if len(ws) == 0 {
		return fmt.Errorf("%w: at least one window is required", ErrInvalidWindow)
	}
	seen := map[string]struct{}{}
	for _, w := range ws {
		label := strings.TrimSpace(w.Label)
		if label == "" {
			return fmt.Errorf("%w: empty label", ErrInvalidWindow)
		}
		if _, dup := seen[label]; dup {
			return fmt.Errorf("%w: duplicate label %q", ErrInvalidWindow, label)
		}
		seen[label] = struct{}{}

		if !w.Start.Valid() || !w.End.Valid() {
			return fmt.Errorf("%w: %q out of range", ErrInvalidWindow, label)
		}
		if w.Start >= w.End {
			return fmt.Errorf("%w: %q must start before it ends", ErrInvalidWindow, label)
		}
	}
	return nil
}
