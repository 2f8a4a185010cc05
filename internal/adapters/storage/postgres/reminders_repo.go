package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"medicine-reminders/internal/domain/reminders"
)

type RemindersRepo struct {
	db *sql.DB
}

func NewRemindersRepo(db *sql.DB) *RemindersRepo {
	return &RemindersRepo{db: db}
}

// windowRow es la forma JSONB de una ventana (minutos desde medianoche).
type windowRow struct {
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

func encodeWindows(ws []reminders.TimeWindow) ([]byte, error) {
	rows := make([]windowRow, 0, len(ws))
	for _, w := range ws {
		rows = append(rows, windowRow{Label: w.Label, Start: int(w.Start), End: int(w.End)})
	}
	return json.Marshal(rows)
}

func decodeWindows(b []byte) ([]reminders.TimeWindow, error) {
	var rows []windowRow
	if len(b) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, fmt.Errorf("decode time_windows: %w", err)
	}
	out := make([]reminders.TimeWindow, 0, len(rows))
	for _, r := range rows {
		out = append(out, reminders.TimeWindow{
			Label: r.Label,
			Start: reminders.TimeOfDay(r.Start),
			End:   reminders.TimeOfDay(r.End),
		})
	}
	return out, nil
}

func (r *RemindersRepo) Create(ctx context.Context, m reminders.MedicineReminder) error {
	windows, err := encodeWindows(m.TimeWindows)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO medicine_reminders (
			id, user_id, prescription_id,
			medicine_name, dosage,
			frequency, timing,
			start_date, end_date,
			time_windows,
			is_active, instructions,
			plan_horizon,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`,
		m.ID,
		m.UserID,
		nullString(m.PrescriptionID),
		m.MedicineName,
		m.Dosage,
		string(m.Frequency),
		string(m.Timing),
		m.StartDate,
		m.EndDate,
		windows,
		m.IsActive,
		m.Instructions,
		m.PlanHorizon,
		m.CreatedAt,
		m.UpdatedAt,
	)
	return err
}

const reminderColumns = `
	id, user_id, COALESCE(prescription_id, ''),
	medicine_name, dosage,
	frequency, timing,
	start_date, end_date,
	time_windows,
	is_active, instructions,
	plan_horizon,
	created_at, updated_at
`

func scanReminder(sc interface{ Scan(...any) error }) (reminders.MedicineReminder, error) {
	var m reminders.MedicineReminder
	var freq, timing string
	var end sql.NullTime
	var windows []byte

	if err := sc.Scan(
		&m.ID,
		&m.UserID,
		&m.PrescriptionID,
		&m.MedicineName,
		&m.Dosage,
		&freq,
		&timing,
		&m.StartDate,
		&end,
		&windows,
		&m.IsActive,
		&m.Instructions,
		&m.PlanHorizon,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return reminders.MedicineReminder{}, err
	}

	m.Frequency = reminders.Frequency(freq)
	m.Timing = reminders.Timing(timing)
	if end.Valid {
		e := end.Time
		m.EndDate = &e
	}

	ws, err := decodeWindows(windows)
	if err != nil {
		return reminders.MedicineReminder{}, err
	}
	m.TimeWindows = ws

	return m, nil
}

func (r *RemindersRepo) GetByID(ctx context.Context, id string) (reminders.MedicineReminder, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return reminders.MedicineReminder{}, reminders.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+reminderColumns+` FROM medicine_reminders WHERE id = $1`, id)

	m, err := scanReminder(row)
	if err == sql.ErrNoRows {
		return reminders.MedicineReminder{}, reminders.ErrNotFound
	}
	return m, err
}

func (r *RemindersRepo) ListByUser(ctx context.Context, userID string, f reminders.ListFilter) ([]reminders.MedicineReminder, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}

	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + reminderColumns + ` FROM medicine_reminders WHERE user_id = $1`)

	args := []any{userID}
	argN := 2

	if f.Active != nil {
		sb.WriteString(fmt.Sprintf(" AND is_active = $%d", argN))
		args = append(args, *f.Active)
		argN++
	}
	if f.To != nil {
		sb.WriteString(fmt.Sprintf(" AND start_date <= $%d", argN))
		args = append(args, *f.To)
		argN++
	}
	if f.From != nil {
		sb.WriteString(fmt.Sprintf(" AND (end_date IS NULL OR end_date >= $%d)", argN))
		args = append(args, *f.From)
		argN++
	}

	sb.WriteString(" ORDER BY created_at ASC, id ASC")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]reminders.MedicineReminder, 0)
	for rows.Next() {
		m, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *RemindersRepo) Update(ctx context.Context, m reminders.MedicineReminder) error {
	windows, err := encodeWindows(m.TimeWindows)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE medicine_reminders SET
			medicine_name = $2,
			dosage = $3,
			frequency = $4,
			timing = $5,
			start_date = $6,
			end_date = $7,
			time_windows = $8,
			is_active = $9,
			instructions = $10,
			plan_horizon = $11,
			updated_at = $12
		WHERE id = $1
	`,
		m.ID,
		m.MedicineName,
		m.Dosage,
		string(m.Frequency),
		string(m.Timing),
		m.StartDate,
		m.EndDate,
		windows,
		m.IsActive,
		m.Instructions,
		m.PlanHorizon,
		m.UpdatedAt,
	)
	if err != nil {
		return err
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return reminders.ErrNotFound
	}
	return nil
}

func (r *RemindersRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM medicine_reminders WHERE id = $1`, id)
	if err != nil {
		return err
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return reminders.ErrNotFound
	}
	return nil
}

func nullString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
