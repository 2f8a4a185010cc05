package reminders

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
	r.Route("/reminders", func(rr chi.Router) {
		rr.Post("/", createReminderHandler(svc))
		rr.Get("/", listRemindersHandler(svc))

		// Derivar reminders desde una receta médica
		rr.Post("/from-prescription", fromPrescriptionHandler(svc))

		rr.Get("/{reminderID}", getReminderHandler(svc))
		rr.Patch("/{reminderID}", updateReminderHandler(svc))
		rr.Post("/{reminderID}/toggle", toggleReminderHandler(svc))
		rr.Delete("/{reminderID}", deleteReminderHandler(svc))
	})
}

type timeWindowDTO struct {
	Label string `json:"label"`
	Start string `json:"start"` // HH:MM
	End   string `json:"end"`   // HH:MM
}

type createReminderRequest struct {
	MedicineName string          `json:"medicine_name"`
	Dosage       string          `json:"dosage"`
	Frequency    string          `json:"frequency"`
	Timing       string          `json:"timing"`
	StartDate    string          `json:"start_date"` // YYYY-MM-DD
	EndDate      string          `json:"end_date"`   // YYYY-MM-DD, opcional
	TimeWindows  []timeWindowDTO `json:"time_windows"`
	Instructions string          `json:"instructions"`
}

type updateReminderRequest struct {
	// Punteros para PATCH real: nil = no tocar.
	MedicineName *string          `json:"medicine_name"`
	Dosage       *string          `json:"dosage"`
	Timing       *string          `json:"timing"`
	StartDate    *string          `json:"start_date"`
	EndDate      *string          `json:"end_date"`
	TimeWindows  *[]timeWindowDTO `json:"time_windows"`
	Instructions *string          `json:"instructions"`
}

type prescriptionRequest struct {
	PrescriptionID string `json:"prescription_id"`
	StartDate      string `json:"start_date"` // opcional
	Medications    []struct {
		Name         string `json:"name"`
		Dosage       string `json:"dosage"`
		Frequency    string `json:"frequency"`
		Duration     string `json:"duration"`
		Timing       string `json:"timing"`
		Instructions string `json:"instructions"`
	} `json:"medications"`
}

type reminderResponse struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	PrescriptionID string          `json:"prescription_id,omitempty"`
	MedicineName   string          `json:"medicine_name"`
	Dosage         string          `json:"dosage"`
	Frequency      string          `json:"frequency"`
	Timing         string          `json:"timing"`
	StartDate      string          `json:"start_date"`
	EndDate        *string         `json:"end_date,omitempty"`
	TimeWindows    []timeWindowDTO `json:"time_windows"`
	IsActive       bool            `json:"is_active"`
	Instructions   string          `json:"instructions"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func createReminderHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createReminderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in, err := toCreateInput(req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		m, err := svc.Create(r.Context(), claims.UserID, in)
		if err != nil {
			writeReminderError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toReminderResponse(m))
	}
}

func listRemindersHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var f ListFilter
		if v := r.URL.Query().Get("active"); v != "" {
			active := v == "true"
			f.Active = &active
		}
		if v := r.URL.Query().Get("from"); v != "" {
			t, err := time.ParseInLocation("2006-01-02", v, time.Local)
			if err != nil {
				http.Error(w, "from must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			f.From = &t
		}
		if v := r.URL.Query().Get("to"); v != "" {
			t, err := time.ParseInLocation("2006-01-02", v, time.Local)
			if err != nil {
				http.Error(w, "to must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			f.To = &t
		}

		items, err := svc.ListByUser(r.Context(), claims.UserID, f)
		if err != nil {
			writeReminderError(w, err)
			return
		}

		out := make([]reminderResponse, 0, len(items))
		for _, m := range items {
			out = append(out, toReminderResponse(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func fromPrescriptionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req prescriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := PrescriptionInput{PrescriptionID: req.PrescriptionID}
		if strings.TrimSpace(req.StartDate) != "" {
			t, err := time.ParseInLocation("2006-01-02", req.StartDate, time.Local)
			if err != nil {
				http.Error(w, "start_date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			in.StartDate = &t
		}
		for _, m := range req.Medications {
			in.Medications = append(in.Medications, MedicationInput{
				Name:         m.Name,
				Dosage:       m.Dosage,
				Frequency:    m.Frequency,
				Duration:     m.Duration,
				Timing:       m.Timing,
				Instructions: m.Instructions,
			})
		}

		created, err := svc.CreateFromPrescription(r.Context(), claims.UserID, in)
		if err != nil {
			writeReminderError(w, err)
			return
		}

		out := make([]reminderResponse, 0, len(created))
		for _, m := range created {
			out = append(out, toReminderResponse(m))
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

func getReminderHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		m, err := svc.GetByID(r.Context(), claims.UserID, chi.URLParam(r, "reminderID"))
		if err != nil {
			writeReminderError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toReminderResponse(m))
	}
}

func updateReminderHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req updateReminderRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := UpdateInput{
			MedicineName: req.MedicineName,
			Dosage:       req.Dosage,
			Instructions: req.Instructions,
		}
		if req.Timing != nil {
			t := Timing(*req.Timing)
			in.Timing = &t
		}
		if req.StartDate != nil {
			t, err := time.ParseInLocation("2006-01-02", *req.StartDate, time.Local)
			if err != nil {
				http.Error(w, "start_date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			in.StartDate = &t
		}
		if req.EndDate != nil {
			t, err := time.ParseInLocation("2006-01-02", *req.EndDate, time.Local)
			if err != nil {
				http.Error(w, "end_date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			in.EndDate = &t
		}
		if req.TimeWindows != nil {
			ws, err := toTimeWindows(*req.TimeWindows)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			in.TimeWindows = &ws
		}

		m, err := svc.Update(r.Context(), claims.UserID, chi.URLParam(r, "reminderID"), in)
		if err != nil {
			writeReminderError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toReminderResponse(m))
	}
}

func toggleReminderHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		m, err := svc.ToggleActive(r.Context(), claims.UserID, chi.URLParam(r, "reminderID"))
		if err != nil {
			writeReminderError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toReminderResponse(m))
	}
}

func deleteReminderHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.Delete(r.Context(), claims.UserID, chi.URLParam(r, "reminderID")); err != nil {
			writeReminderError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func toCreateInput(req createReminderRequest) (CreateInput, error) {
	in := CreateInput{
		MedicineName: req.MedicineName,
		Dosage:       req.Dosage,
		Frequency:    Frequency(req.Frequency),
		Timing:       Timing(req.Timing),
		Instructions: req.Instructions,
	}

	if strings.TrimSpace(req.StartDate) != "" {
		t, err := time.ParseInLocation("2006-01-02", req.StartDate, time.Local)
		if err != nil {
			return CreateInput{}, errors.New("start_date must be YYYY-MM-DD")
		}
		in.StartDate = t
	}
	if strings.TrimSpace(req.EndDate) != "" {
		t, err := time.ParseInLocation("2006-01-02", req.EndDate, time.Local)
		if err != nil {
			return CreateInput{}, errors.New("end_date must be YYYY-MM-DD")
		}
		in.EndDate = &t
	}

	ws, err := toTimeWindows(req.TimeWindows)
	if err != nil {
		return CreateInput{}, err
	}
	in.TimeWindows = ws

	return in, nil
}

func toTimeWindows(dtos []timeWindowDTO) ([]TimeWindow, error) {
	if len(dtos) == 0 {
		return nil, nil
	}
	out := make([]TimeWindow, 0, len(dtos))
	for _, d := range dtos {
		start, err := ParseTimeOfDay(d.Start)
		if err != nil {
			return nil, err
		}
		end, err := ParseTimeOfDay(d.End)
		if err != nil {
			return nil, err
		}
		out = append(out, TimeWindow{Label: d.Label, Start: start, End: end})
	}
	return out, nil
}

func toReminderResponse(m MedicineReminder) reminderResponse {
	resp := reminderResponse{
		ID:             m.ID,
		UserID:         m.UserID,
		PrescriptionID: m.PrescriptionID,
		MedicineName:   m.MedicineName,
		Dosage:         m.Dosage,
		Frequency:      string(m.Frequency),
		Timing:         string(m.Timing),
		StartDate:      m.StartDate.Format("2006-01-02"),
		TimeWindows:    toWindowDTOs(m.TimeWindows),
		IsActive:       m.IsActive,
		Instructions:   m.Instructions,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.EndDate != nil {
		e := m.EndDate.Format("2006-01-02")
		resp.EndDate = &e
	}
	return resp
}

func toWindowDTOs(ws []TimeWindow) []timeWindowDTO {
	out := make([]timeWindowDTO, 0, len(ws))
	for _, w := range ws {
		out = append(out, timeWindowDTO{
			Label: w.Label,
			Start: w.Start.String(),
			End:   w.End.String(),
		})
	}
	return out
}

func writeReminderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrUnknownFrequency),
		errors.Is(err, ErrInvalidWindow):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "reminder not found", http.StatusNotFound)
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
