package doses

import (
	"time"

	"medicine-reminders/internal/domain/reminders"
)

// Status define el ciclo de vida de una dosis. pending es el único estado
// no terminal; taken/missed/skipped son finales.
type Status string

const (
	StatusPending Status = "pending"
	StatusTaken   Status = "taken"
	StatusMissed  Status = "missed"
	StatusSkipped Status = "skipped"
)

func TerminalStatus(s Status) bool {
	switch s {
	case StatusTaken, StatusMissed, StatusSkipped:
		return true
	}
	return false
}

// Dose es una toma concreta, fechada y con ventana, derivada de un reminder.
type Dose struct {
	ID         string
	ReminderID string
	UserID     string

	ScheduledDate time.Time // fecha (00:00 local)

	// Window se copia del reminder al generar la dosis y queda congelada:
	// cambios posteriores en el reminder no la recalculan.
	Window reminders.TimeWindow

	Status Status
	Notes  string

	NotifiedAt   *time.Time // se fija como mucho una vez
	RespondedAt  *time.Time // se fija al salir de pending
	SnoozedUntil *time.Time

	CreatedAt time.Time
}

// WindowStart es el instante en que abre la ventana de la dosis.
func (d Dose) WindowStart() time.Time {
	return d.Window.StartAt(d.ScheduledDate)
}

// WindowEnd es el cierre de la ventana (día siguiente si cruza medianoche).
func (d Dose) WindowEnd() time.Time {
	return d.Window.EndAt(d.ScheduledDate)
}

// Stats resume la adherencia de un usuario en un rango.
type Stats struct {
	TotalReminders int
	TotalDoses     int
	Taken          int
	Missed         int
	Skipped        int
	Pending        int

	// AdherenceRate = taken / (taken+missed+skipped); nil si no hay dosis
	// terminales en el rango (nunca NaN ni división por cero).
	AdherenceRate *float64
}
