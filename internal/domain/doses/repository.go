package doses

import (
	"context"
	"time"
)

type Repository interface {
	// InsertMissing inserta solo las dosis cuya clave
	// (reminderID, scheduledDate, window.Label) no exista todavía.
	// Devuelve cuántas insertó.
	InsertMissing(ctx context.Context, ds []Dose) (int, error)

	GetByID(ctx context.Context, id string) (Dose, error)

	// ListByUserRange devuelve las dosis del usuario con fecha en [from, to].
	ListByUserRange(ctx context.Context, userID string, from, to time.Time) ([]Dose, error)

	// Transition pasa la dosis de pending al estado dado. El chequeo es
	// check-then-set: si al confirmar ya no está pending, ErrInvalidTransition.
	Transition(ctx context.Context, id string, to Status, respondedAt time.Time, notes string) (Dose, error)

	// MarkNotified fija notifiedAt solo si aún no estaba fijado.
	// Devuelve false (sin error) si ya lo estaba.
	MarkNotified(ctx context.Context, id string, at time.Time) (bool, error)

	// SetSnooze fija o limpia (nil) snoozedUntil.
	SetSnooze(ctx context.Context, id string, until *time.Time) (Dose, error)

	// ListForNotification devuelve dosis pendientes con fecha en [from, to]
	// que aún no fueron notificadas o que tienen un snooze activo.
	ListForNotification(ctx context.Context, from, to time.Time) ([]Dose, error)

	DeleteByReminder(ctx context.Context, reminderID string) error
}
