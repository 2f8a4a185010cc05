package reminders

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, r MedicineReminder) error
	GetByID(ctx context.Context, id string) (MedicineReminder, error)
	ListByUser(ctx context.Context, userID string, f ListFilter) ([]MedicineReminder, error)
	Update(ctx context.Context, r MedicineReminder) error
	Delete(ctx context.Context, id string) error
}

type ListFilter struct {
	Active *bool
	// From/To acotan por solapamiento del rango [StartDate, EndDate].
	From *time.Time
	To   *time.Time
}
