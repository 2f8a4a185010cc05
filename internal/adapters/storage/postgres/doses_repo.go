package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"medicine-reminders/internal/domain/doses"
	"medicine-reminders/internal/domain/reminders"
)

type DosesRepo struct {
	db *sql.DB
}

func NewDosesRepo(db *sql.DB) *DosesRepo {
	return &DosesRepo{db: db}
}

const doseColumns = `
	id, reminder_id, user_id,
	scheduled_date,
	window_label, window_start, window_end,
	status, notes,
	notified_at, responded_at, snoozed_until,
	created_at
`

func scanDose(sc interface{ Scan(...any) error }) (doses.Dose, error) {
	var d doses.Dose
	var status string
	var winStart, winEnd int
	var notified, responded, snoozed sql.NullTime

	if err := sc.Scan(
		&d.ID,
		&d.ReminderID,
		&d.UserID,
		&d.ScheduledDate,
		&d.Window.Label,
		&winStart,
		&winEnd,
		&status,
		&d.Notes,
		&notified,
		&responded,
		&snoozed,
		&d.CreatedAt,
	); err != nil {
		return doses.Dose{}, err
	}

	d.Window.Start = reminders.TimeOfDay(winStart)
	d.Window.End = reminders.TimeOfDay(winEnd)
	d.Status = doses.Status(status)
	if notified.Valid {
		t := notified.Time
		d.NotifiedAt = &t
	}
	if responded.Valid {
		t := responded.Time
		d.RespondedAt = &t
	}
	if snoozed.Valid {
		t := snoozed.Time
		d.SnoozedUntil = &t
	}

	return d, nil
}

// InsertMissing inserta cada dosis con ON CONFLICT DO NOTHING sobre la clave
// única (reminder_id, scheduled_date, window_label): re-ejecutar el plan
// nunca duplica dosis.
func (r *DosesRepo) InsertMissing(ctx context.Context, ds []doses.Dose) (int, error) {
	inserted := 0
	for _, d := range ds {
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO doses (
				id, reminder_id, user_id,
				scheduled_date,
				window_label, window_start, window_end,
				status, notes,
				created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			ON CONFLICT (reminder_id, scheduled_date, window_label) DO NOTHING
		`,
			d.ID,
			d.ReminderID,
			d.UserID,
			d.ScheduledDate,
			d.Window.Label,
			int(d.Window.Start),
			int(d.Window.End),
			string(d.Status),
			d.Notes,
			d.CreatedAt,
		)
		if err != nil {
			return inserted, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, nil
}

func (r *DosesRepo) GetByID(ctx context.Context, id string) (doses.Dose, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return doses.Dose{}, doses.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+doseColumns+` FROM doses WHERE id = $1`, id)

	d, err := scanDose(row)
	if err == sql.ErrNoRows {
		return doses.Dose{}, doses.ErrNotFound
	}
	return d, err
}

func (r *DosesRepo) ListByUserRange(ctx context.Context, userID string, from, to time.Time) ([]doses.Dose, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+doseColumns+`
		FROM doses
		WHERE user_id = $1 AND scheduled_date BETWEEN $2 AND $3
	`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDoses(rows)
}

// Transition es el check-then-set: el WHERE status='pending' garantiza que
// dos transiciones concurrentes sobre la misma dosis no ganen ambas.
func (r *DosesRepo) Transition(ctx context.Context, id string, to doses.Status, respondedAt time.Time, notes string) (doses.Dose, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE doses
		SET status = $2,
		    responded_at = $3,
		    notes = CASE WHEN $4 <> '' THEN $4 ELSE notes END
		WHERE id = $1 AND status = 'pending'
		RETURNING `+doseColumns,
		id, string(to), respondedAt, notes)

	d, err := scanDose(row)
	if err == sql.ErrNoRows {
		// o no existe, o ya era terminal
		if _, gerr := r.GetByID(ctx, id); gerr != nil {
			return doses.Dose{}, gerr
		}
		return doses.Dose{}, doses.ErrInvalidTransition
	}
	return d, err
}

func (r *DosesRepo) MarkNotified(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE doses
		SET notified_at = $2
		WHERE id = $1 AND notified_at IS NULL
	`, id, at)
	if err != nil {
		return false, err
	}

	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *DosesRepo) SetSnooze(ctx context.Context, id string, until *time.Time) (doses.Dose, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE doses
		SET snoozed_until = $2
		WHERE id = $1
		RETURNING `+doseColumns,
		id, until)

	d, err := scanDose(row)
	if err == sql.ErrNoRows {
		return doses.Dose{}, doses.ErrNotFound
	}
	return d, err
}

func (r *DosesRepo) ListForNotification(ctx context.Context, from, to time.Time) ([]doses.Dose, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+doseColumns+`
		FROM doses
		WHERE status = 'pending'
		  AND scheduled_date BETWEEN $1 AND $2
		  AND (notified_at IS NULL OR snoozed_until IS NOT NULL)
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDoses(rows)
}

func (r *DosesRepo) DeleteByReminder(ctx context.Context, reminderID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM doses WHERE reminder_id = $1`, reminderID)
	return err
}

func collectDoses(rows *sql.Rows) ([]doses.Dose, error) {
	out := make([]doses.Dose, 0)
	for rows.Next() {
		d, err := scanDose(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
