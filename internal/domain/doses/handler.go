package doses

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"medicine-reminders/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/doses", func(dr chi.Router) {
		dr.Get("/today", todaysDosesHandler(svc))
		dr.Get("/", dosesInRangeHandler(svc))
		dr.Get("/stats", statsHandler(svc))

		dr.Post("/{doseID}/status", recordDoseHandler(svc))
		dr.Post("/{doseID}/snooze", snoozeDoseHandler(svc))
	})
}

type windowDTO struct {
	Label string `json:"label"`
	Start string `json:"start"` // HH:MM
	End   string `json:"end"`   // HH:MM
}

type doseResponse struct {
	ID            string     `json:"id"`
	ReminderID    string     `json:"reminder_id"`
	ScheduledDate string     `json:"scheduled_date"` // YYYY-MM-DD
	Window        windowDTO  `json:"window"`
	Status        string     `json:"status"`
	Notes         string     `json:"notes,omitempty"`
	NotifiedAt    *time.Time `json:"notified_at,omitempty"`
	RespondedAt   *time.Time `json:"responded_at,omitempty"`
	SnoozedUntil  *time.Time `json:"snoozed_until,omitempty"`
}

type dayScheduleResponse struct {
	Date  string         `json:"date"`
	Doses []doseResponse `json:"doses"`
}

type recordDoseRequest struct {
	Status string `json:"status"` // taken | missed | skipped
	Notes  string `json:"notes"`
}

type snoozeDoseRequest struct {
	Minutes int `json:"minutes"`
}

type statsResponse struct {
	TotalReminders int      `json:"total_reminders"`
	TotalDoses     int      `json:"total_doses"`
	Taken          int      `json:"taken"`
	Missed         int      `json:"missed"`
	Skipped        int      `json:"skipped"`
	Pending        int      `json:"pending"`
	AdherenceRate  *float64 `json:"adherence_rate"` // null si no hay dosis terminales
}

func todaysDosesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ds, err := svc.ForDate(r.Context(), claims.UserID, svc.now())
		if err != nil {
			writeDoseError(w, err)
			return
		}

		out := make([]doseResponse, 0, len(ds))
		for _, d := range ds {
			out = append(out, toDoseResponse(d))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func dosesInRangeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		from, to, ok := parseRange(w, r, svc.now())
		if !ok {
			return
		}

		ds, err := svc.InRange(r.Context(), claims.UserID, from, to)
		if err != nil {
			writeDoseError(w, err)
			return
		}

		// Respuesta agrupada por fecha; el orden ya viene del servicio.
		out := make([]dayScheduleResponse, 0)
		for _, d := range ds {
			date := d.ScheduledDate.Format("2006-01-02")
			if len(out) == 0 || out[len(out)-1].Date != date {
				out = append(out, dayScheduleResponse{Date: date, Doses: []doseResponse{}})
			}
			out[len(out)-1].Doses = append(out[len(out)-1].Doses, toDoseResponse(d))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func statsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		from, to, ok := parseRange(w, r, svc.now())
		if !ok {
			return
		}

		st, err := svc.Stats(r.Context(), claims.UserID, from, to)
		if err != nil {
			writeDoseError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, statsResponse{
			TotalReminders: st.TotalReminders,
			TotalDoses:     st.TotalDoses,
			Taken:          st.Taken,
			Missed:         st.Missed,
			Skipped:        st.Skipped,
			Pending:        st.Pending,
			AdherenceRate:  st.AdherenceRate,
		})
	}
}

func recordDoseHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req recordDoseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		d, err := svc.RecordStatus(r.Context(), claims.UserID, chi.URLParam(r, "doseID"), Status(req.Status), req.Notes)
		if err != nil {
			writeDoseError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDoseResponse(d))
	}
}

func snoozeDoseHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req snoozeDoseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		d, err := svc.Snooze(r.Context(), claims.UserID, chi.URLParam(r, "doseID"), req.Minutes)
		if err != nil {
			writeDoseError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDoseResponse(d))
	}
}

func parseRange(w http.ResponseWriter, r *http.Request, now time.Time) (time.Time, time.Time, bool) {
	q := r.URL.Query()

	// Default: últimos 7 días hasta hoy (reloj del servicio, no time.Now).
	to := now
	from := to.AddDate(0, 0, -7)

	if v := q.Get("from"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			http.Error(w, "from must be YYYY-MM-DD", http.StatusBadRequest)
			return time.Time{}, time.Time{}, false
		}
		from = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			http.Error(w, "to must be YYYY-MM-DD", http.StatusBadRequest)
			return time.Time{}, time.Time{}, false
		}
		to = t
	}
	return from, to, true
}

func toDoseResponse(d Dose) doseResponse {
	return doseResponse{
		ID:            d.ID,
		ReminderID:    d.ReminderID,
		ScheduledDate: d.ScheduledDate.Format("2006-01-02"),
		Window: windowDTO{
			Label: d.Window.Label,
			Start: d.Window.Start.String(),
			End:   d.Window.End.String(),
		},
		Status:       string(d.Status),
		Notes:        d.Notes,
		NotifiedAt:   d.NotifiedAt,
		RespondedAt:  d.RespondedAt,
		SnoozedUntil: d.SnoozedUntil,
	}
}

func writeDoseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "dose not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidTransition):
		http.Error(w, "dose already resolved", http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// (reminders/doses) para no crear helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
