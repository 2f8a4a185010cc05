package trigger

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"medicine-reminders/internal/domain/doses"
	"medicine-reminders/internal/domain/reminders"
	"medicine-reminders/internal/platform/logger"
	"medicine-reminders/internal/ports/notify"
)

const (
	// graceWindow: una dosis vencida hace más de esto ya no se notifica
	// (evita tormentas de avisos tras un downtime largo); queda pendiente
	// para registro manual.
	graceWindow = 24 * time.Hour

	// maxParallel acota los envíos concurrentes por barrido.
	maxParallel = 4
)

// Trigger es el barrido periódico de notificaciones: busca dosis pendientes
// con ventana abierta y sin aviso, notifica y fija notifiedAt una sola vez.
// Es consumidor read-mostly: notifiedAt/snoozedUntil es lo único que toca.
type Trigger struct {
	doses     doses.Repository
	reminders reminders.Repository
	notifier  notify.Notifier
	log       logger.Logger
	now       func() time.Time
}

func New(doseRepo doses.Repository, remRepo reminders.Repository, n notify.Notifier, log logger.Logger) *Trigger {
	return &Trigger{
		doses:     doseRepo,
		reminders: remRepo,
		notifier:  n,
		log:       log,
		now:       time.Now,
	}
}

type dueItem struct {
	dose     doses.Dose
	reminder reminders.MedicineReminder
	snoozed  bool
}

// Run ejecuta un barrido completo. Es idempotente ante reinicios: el guard de
// notifiedAt evita avisos duplicados y un fallo de entrega se reintenta en el
// siguiente tick. El error devuelto es solo de lectura del storage.
func (t *Trigger) Run(ctx context.Context) error {
	now := t.now()

	// Margen de fechas: la gracia de 24h más una ventana que cruza medianoche
	// pueden referir a dosis de hasta dos días atrás.
	from := dateOnly(now.Add(-graceWindow)).AddDate(0, 0, -1)
	to := dateOnly(now)

	candidates, err := t.doses.ListForNotification(ctx, from, to)
	if err != nil {
		return fmt.Errorf("scan doses: %w", err)
	}

	cache := map[string]reminders.MedicineReminder{}
	var due []dueItem

	for _, d := range candidates {
		r, ok := cache[d.ReminderID]
		if !ok {
			var err error
			r, err = t.reminders.GetByID(ctx, d.ReminderID)
			if err != nil {
				// reminder borrado entre medias: se ignora la dosis
				continue
			}
			cache[d.ReminderID] = r
		}

		// Pausado => sin avisos (las dosis siguen pendientes).
		if !r.IsActive {
			continue
		}

		start := d.WindowStart()
		// Fuera de la gracia no se notifica nunca, ni con snooze vencido:
		// la dosis queda pendiente para registro manual.
		if now.Sub(start) > graceWindow {
			continue
		}

		if d.SnoozedUntil != nil {
			if now.Before(*d.SnoozedUntil) {
				continue
			}
			due = append(due, dueItem{dose: d, reminder: r, snoozed: true})
			continue
		}

		if d.NotifiedAt != nil {
			continue
		}
		if now.Before(start) {
			continue
		}

		due = append(due, dueItem{dose: d, reminder: r})
	}

	if len(due) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)

	for _, item := range due {
		item := item
		g.Go(func() error {
			t.deliver(gctx, item)
			return nil
		})
	}
	return g.Wait()
}

func (t *Trigger) deliver(ctx context.Context, item dueItem) {
	msg := buildMessage(item.reminder, item.dose)

	if err := t.notifier.Notify(ctx, item.dose.UserID, msg, notify.ChannelPush); err != nil {
		// Se loguea y se reintenta en el próximo barrido.
		t.log.Warn("notify failed", map[string]any{
			"dose_id": item.dose.ID,
			"user_id": item.dose.UserID,
			"error":   err.Error(),
		})
		return
	}

	if item.snoozed {
		if _, err := t.doses.SetSnooze(ctx, item.dose.ID, nil); err != nil {
			t.log.Error("clear snooze failed", map[string]any{
				"dose_id": item.dose.ID,
				"error":   err.Error(),
			})
		}
		// Sin return: una dosis pospuesta antes del primer aviso todavía
		// tiene notifiedAt nulo y debe fijarse ahora. MarkNotified es
		// no-op si ya estaba fijado.
	}

	sent, err := t.doses.MarkNotified(ctx, item.dose.ID, t.now())
	if err != nil {
		t.log.Error("mark notified failed", map[string]any{
			"dose_id": item.dose.ID,
			"error":   err.Error(),
		})
		return
	}
	if sent {
		t.log.Debug("dose notified", map[string]any{
			"dose_id":  item.dose.ID,
			"reminder": item.dose.ReminderID,
		})
	}
}

func buildMessage(r reminders.MedicineReminder, d doses.Dose) string {
	msg := fmt.Sprintf("Time to take %s (%s) - %s", r.MedicineName, r.Dosage, d.Window.Label)
	switch r.Timing {
	case reminders.TimingBeforeMeal:
		msg += ", before meal"
	case reminders.TimingAfterMeal:
		msg += ", after meal"
	}
	if r.Instructions != "" {
		msg += ". " + r.Instructions
	}
	return msg
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
