package reminders

import "time"

// MedicineReminder representa una pauta de medicación de un usuario:
// qué medicina, con qué frecuencia y durante qué rango de fechas.
type MedicineReminder struct {
	ID     string
	UserID string

	// PrescriptionID enlaza con la receta de origen, si la hay.
	PrescriptionID string

	MedicineName string
	Dosage       string

	Frequency Frequency
	Timing    Timing

	StartDate time.Time  // fecha (00:00 local)
	EndDate   *time.Time // nil => abierto (solo as_needed)

	// TimeWindows son las ventanas efectivas resueltas al crear:
	// override explícito > default del catálogo > vacío (as_needed).
	TimeWindows []TimeWindow

	IsActive     bool
	Instructions string

	// PlanHorizon es la última fecha con dosis ya materializadas.
	PlanHorizon time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
