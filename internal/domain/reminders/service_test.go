package reminders

import (
	"context"
	"errors"
	"testing"
	"time"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

var errRepoNotFound = ErrNotFound

type testRepo struct {
	byID map[string]MedicineReminder
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]MedicineReminder{}}
}

func (r *testRepo) Create(ctx context.Context, m MedicineReminder) error {
	if m.ID == "" {
		return errors.New("repo: id required")
	}
	if _, ok := r.byID[m.ID]; ok {
		return errors.New("repo: already exists")
	}
	r.byID[m.ID] = m
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (MedicineReminder, error) {
	m, ok := r.byID[id]
	if !ok {
		return MedicineReminder{}, errRepoNotFound
	}
	return m, nil
}

func (r *testRepo) ListByUser(ctx context.Context, userID string, f ListFilter) ([]MedicineReminder, error) {
	out := make([]MedicineReminder, 0)
	for _, m := range r.byID {
		if m.UserID != userID {
			continue
		}
		if f.Active != nil && m.IsActive != *f.Active {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *testRepo) Update(ctx context.Context, m MedicineReminder) error {
	if _, ok := r.byID[m.ID]; !ok {
		return errRepoNotFound
	}
	r.byID[m.ID] = m
	return nil
}

func (r *testRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return errRepoNotFound
	}
	delete(r.byID, id)
	return nil
}

// testPlanner registra las llamadas de materialización/descarte.
type testPlanner struct {
	materialized []string
	discarded    []string
	failWith     error
}

func (p *testPlanner) Materialize(ctx context.Context, r MedicineReminder, horizonEnd time.Time) (int, error) {
	if p.failWith != nil {
		return 0, p.failWith
	}
	p.materialized = append(p.materialized, r.ID)
	return 1, nil
}

func (p *testPlanner) Discard(ctx context.Context, reminderID string) error {
	p.discarded = append(p.discarded, reminderID)
	return nil
}

func newTestService() (*Service, *testRepo, *testPlanner) {
	repo := newTestRepo()
	planner := &testPlanner{}
	svc := NewService(repo, nil, planner)
	return svc, repo, planner
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// -------------------------
// Tests
// -------------------------

func TestService_Create_DefaultsFromCatalog(t *testing.T) {
	svc, _, planner := newTestService()

	now := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	r, err := svc.Create(context.Background(), "user-1", CreateInput{
		MedicineName: "Amoxicillin",
		Dosage:       "500mg",
		Frequency:    FreqTwiceDaily,
		StartDate:    now,
		EndDate:      datePtr(2026, 3, 7),
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if len(r.TimeWindows) != 2 {
		t.Fatalf("expected 2 catalog windows, got %d", len(r.TimeWindows))
	}
	if r.TimeWindows[0].Label != "Morning" || r.TimeWindows[1].Label != "Night" {
		t.Fatalf("unexpected window labels: %+v", r.TimeWindows)
	}
	if r.Timing != TimingAnytime {
		t.Fatalf("expected timing default anytime, got %s", r.Timing)
	}
	if !r.IsActive {
		t.Fatalf("expected new reminder active")
	}
	// start_date normalizado a fecha
	if r.StartDate.Hour() != 0 || r.StartDate.Day() != 1 {
		t.Fatalf("expected start date at midnight, got %v", r.StartDate)
	}
	// end antes del horizonte de 14 días => horizonte = end
	if !r.PlanHorizon.Equal(*datePtr(2026, 3, 7)) {
		t.Fatalf("expected plan horizon capped at end date, got %v", r.PlanHorizon)
	}
	if len(planner.materialized) != 1 || planner.materialized[0] != r.ID {
		t.Fatalf("expected one materialize call for %s, got %v", r.ID, planner.materialized)
	}
}

func TestService_Create_HorizonCappedAt14Days(t *testing.T) {
	svc, _, _ := newTestService()

	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	r, err := svc.Create(context.Background(), "user-1", CreateInput{
		MedicineName: "Metformin",
		Dosage:       "850mg",
		Frequency:    FreqOnceDaily,
		StartDate:    now,
		EndDate:      datePtr(2026, 6, 1), // mucho más lejos que el horizonte
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if !r.PlanHorizon.Equal(want) {
		t.Fatalf("expected horizon %v, got %v", want, r.PlanHorizon)
	}
}

func TestService_Create_UndoneWhenMaterializeFails(t *testing.T) {
	repo := newTestRepo()
	planner := &testPlanner{failWith: errors.New("dose storage down")}
	svc := NewService(repo, nil, planner)

	_, err := svc.Create(context.Background(), "user-1", CreateInput{
		MedicineName: "Amoxicillin",
		Dosage:       "500mg",
		Frequency:    FreqOnceDaily,
		StartDate:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      datePtr(2026, 3, 7),
	})
	if err == nil {
		t.Fatalf("expected error from failed materialization")
	}
	// sin reminder a medias: el retry del cliente no duplica
	if len(repo.byID) != 0 {
		t.Fatalf("expected reminder rolled back, got %d left", len(repo.byID))
	}

	// recuperado el planner, el retry crea normalmente
	planner.failWith = nil
	r, err := svc.Create(context.Background(), "user-1", CreateInput{
		MedicineName: "Amoxicillin",
		Dosage:       "500mg",
		Frequency:    FreqOnceDaily,
		StartDate:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      datePtr(2026, 3, 7),
	})
	if err != nil {
		t.Fatalf("retry Create error: %v", err)
	}
	if len(repo.byID) != 1 || repo.byID[r.ID].ID != r.ID {
		t.Fatalf("expected single reminder after retry")
	}
}

func TestService_Create_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := datePtr(2026, 3, 7)

	cases := map[string]CreateInput{
		"missing name":   {Dosage: "500mg", Frequency: FreqOnceDaily, StartDate: start, EndDate: end},
		"missing dosage": {MedicineName: "A", Frequency: FreqOnceDaily, StartDate: start, EndDate: end},
		"missing start":  {MedicineName: "A", Dosage: "500mg", Frequency: FreqOnceDaily, EndDate: end},
		"missing end":    {MedicineName: "A", Dosage: "500mg", Frequency: FreqOnceDaily, StartDate: start},
		"end before start": {
			MedicineName: "A", Dosage: "500mg", Frequency: FreqOnceDaily,
			StartDate: start, EndDate: datePtr(2026, 2, 1),
		},
		"bad timing": {
			MedicineName: "A", Dosage: "500mg", Frequency: FreqOnceDaily,
			Timing: Timing("with_wine"), StartDate: start, EndDate: end,
		},
	}
	for name, in := range cases {
		if _, err := svc.Create(ctx, "user-1", in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", name, err)
		}
	}

	if _, err := svc.Create(ctx, "user-1", CreateInput{
		MedicineName: "A", Dosage: "500mg", Frequency: Frequency("hourly"),
		StartDate: start, EndDate: end,
	}); !errors.Is(err, ErrUnknownFrequency) {
		t.Fatalf("expected ErrUnknownFrequency, got %v", err)
	}
}

func TestService_Create_AsNeeded_OpenEnded(t *testing.T) {
	svc, _, planner := newTestService()

	r, err := svc.Create(context.Background(), "user-1", CreateInput{
		MedicineName: "Ibuprofen",
		Dosage:       "400mg",
		Frequency:    FreqAsNeeded,
		StartDate:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if r.EndDate != nil {
		t.Fatalf("expected open-ended reminder")
	}
	if len(r.TimeWindows) != 0 {
		t.Fatalf("expected no windows for as_needed, got %v", r.TimeWindows)
	}
	// Materialize se llama igual; BuildPlan decide que no hay nada que generar.
	if len(planner.materialized) != 1 {
		t.Fatalf("expected materialize call, got %v", planner.materialized)
	}
}

func TestService_Create_CustomRequiresWindows(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	if _, err := svc.Create(ctx, "user-1", CreateInput{
		MedicineName: "A", Dosage: "1 tablet", Frequency: FreqCustom,
		StartDate: start, EndDate: datePtr(2026, 3, 7),
	}); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow without windows, got %v", err)
	}

	r, err := svc.Create(ctx, "user-1", CreateInput{
		MedicineName: "A", Dosage: "1 tablet", Frequency: FreqCustom,
		StartDate: start, EndDate: datePtr(2026, 3, 7),
		TimeWindows: []TimeWindow{
			{Label: "Before bed", Start: hm(21, 30), End: hm(22, 30)},
		},
	})
	if err != nil {
		t.Fatalf("Create with windows error: %v", err)
	}
	if len(r.TimeWindows) != 1 || r.TimeWindows[0].Label != "Before bed" {
		t.Fatalf("unexpected windows: %+v", r.TimeWindows)
	}
}

func TestService_Create_WindowOverrideBeatsCatalog(t *testing.T) {
	svc, _, _ := newTestService()

	r, err := svc.Create(context.Background(), "user-1", CreateInput{
		MedicineName: "Levothyroxine",
		Dosage:       "50mcg",
		Frequency:    FreqOnceDaily,
		StartDate:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      datePtr(2026, 3, 30),
		TimeWindows: []TimeWindow{
			{Label: "Early", Start: hm(5, 30), End: hm(6, 30)},
		},
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if len(r.TimeWindows) != 1 || r.TimeWindows[0].Label != "Early" {
		t.Fatalf("expected override window, got %+v", r.TimeWindows)
	}
}

func TestService_GetByID_ForeignUserLooksNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	r, err := svc.Create(ctx, "user-1", CreateInput{
		MedicineName: "A", Dosage: "1", Frequency: FreqAsNeeded,
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if _, err := svc.GetByID(ctx, "user-2", r.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign user, got %v", err)
	}
	if _, err := svc.GetByID(ctx, "user-1", r.ID); err != nil {
		t.Fatalf("owner should read reminder: %v", err)
	}
}

func TestService_Update_PatchSemantics(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	r, err := svc.Create(ctx, "user-1", CreateInput{
		MedicineName: "Amoxicillin", Dosage: "500mg", Frequency: FreqTwiceDaily,
		StartDate: now, EndDate: datePtr(2026, 3, 10),
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	later := now.Add(2 * time.Hour)
	svc.now = func() time.Time { return later }

	newDosage := "250mg"
	got, err := svc.Update(ctx, "user-1", r.ID, UpdateInput{Dosage: &newDosage})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if got.Dosage != "250mg" {
		t.Fatalf("expected dosage updated, got %s", got.Dosage)
	}
	if got.MedicineName != "Amoxicillin" {
		t.Fatalf("unset fields must not change, got %s", got.MedicineName)
	}
	if !got.UpdatedAt.Equal(later) {
		t.Fatalf("expected UpdatedAt bumped")
	}

	empty := "  "
	if _, err := svc.Update(ctx, "user-1", r.ID, UpdateInput{MedicineName: &empty}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank name, got %v", err)
	}
}

func TestService_ToggleActive(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	r, err := svc.Create(ctx, "user-1", CreateInput{
		MedicineName: "A", Dosage: "1", Frequency: FreqOnceDaily,
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   datePtr(2026, 3, 7),
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	paused, err := svc.ToggleActive(ctx, "user-1", r.ID)
	if err != nil {
		t.Fatalf("ToggleActive error: %v", err)
	}
	if paused.IsActive {
		t.Fatalf("expected paused")
	}

	resumed, err := svc.ToggleActive(ctx, "user-1", r.ID)
	if err != nil {
		t.Fatalf("ToggleActive error: %v", err)
	}
	if !resumed.IsActive {
		t.Fatalf("expected resumed")
	}
}

func TestService_Delete_DiscardsDoses(t *testing.T) {
	svc, repo, planner := newTestService()
	ctx := context.Background()

	r, err := svc.Create(ctx, "user-1", CreateInput{
		MedicineName: "A", Dosage: "1", Frequency: FreqOnceDaily,
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   datePtr(2026, 3, 7),
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if err := svc.Delete(ctx, "user-2", r.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign delete: expected ErrNotFound, got %v", err)
	}

	if err := svc.Delete(ctx, "user-1", r.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if len(planner.discarded) != 1 || planner.discarded[0] != r.ID {
		t.Fatalf("expected dose discard for %s, got %v", r.ID, planner.discarded)
	}
	if _, ok := repo.byID[r.ID]; ok {
		t.Fatalf("expected reminder removed from repo")
	}
}

// -------------------------
// Prescription derivation
// -------------------------

func TestMapFrequency(t *testing.T) {
	cases := []struct {
		in   string
		want Frequency
	}{
		{"Once daily", FreqOnceDaily},
		{"1 time a day", FreqOnceDaily},
		{"Twice daily", FreqTwiceDaily},
		{"2 times per day", FreqTwiceDaily},
		{"Thrice daily", FreqThriceDaily},
		{"three times a day", FreqThriceDaily},
		{"every 6 hours", FreqEvery6Hours},
		{"Every 8 Hours", FreqEvery8Hours},
		{"every 12 hours", FreqEvery12Hours},
		{"as needed", FreqAsNeeded},
		{"when required", FreqAsNeeded},
		{"", FreqAsNeeded},
	}
	for _, tc := range cases {
		if got := MapFrequency(tc.in); got != tc.want {
			t.Fatalf("MapFrequency(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestCalculateEndDate(t *testing.T) {
	start := time.Date(2026, 3, 1, 15, 45, 0, 0, time.UTC)

	cases := []struct {
		in   string
		want time.Time
	}{
		{"7 days", time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)},
		{"10 days", time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)},
		{"2 weeks", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"1 month", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
		// texto irreconocible => 7 días
		{"until finished", time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)},
		{"", time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		if got := CalculateEndDate(start, tc.in); !got.Equal(tc.want) {
			t.Fatalf("CalculateEndDate(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestService_CreateFromPrescription(t *testing.T) {
	svc, _, planner := newTestService()
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	rs, err := svc.CreateFromPrescription(ctx, "user-1", PrescriptionInput{
		PrescriptionID: "rx-42",
		Medications: []MedicationInput{
			{Name: "Amoxicillin", Dosage: "500mg", Frequency: "three times a day", Duration: "7 days", Timing: "after meal"},
			{Name: "Ibuprofen", Dosage: "400mg", Frequency: "as needed", Instructions: "For pain only"},
		},
	})
	if err != nil {
		t.Fatalf("CreateFromPrescription error: %v", err)
	}
	if len(rs) != 2 {
		t.Fatalf("expected 2 reminders, got %d", len(rs))
	}

	amox := rs[0]
	if amox.Frequency != FreqThriceDaily || amox.Timing != TimingAfterMeal {
		t.Fatalf("unexpected mapping: freq=%s timing=%s", amox.Frequency, amox.Timing)
	}
	if amox.PrescriptionID != "rx-42" {
		t.Fatalf("expected prescription link, got %q", amox.PrescriptionID)
	}
	wantEnd := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	if amox.EndDate == nil || !amox.EndDate.Equal(wantEnd) {
		t.Fatalf("expected end %v, got %v", wantEnd, amox.EndDate)
	}

	ibu := rs[1]
	if ibu.Frequency != FreqAsNeeded || ibu.EndDate != nil {
		t.Fatalf("expected open-ended as_needed, got freq=%s end=%v", ibu.Frequency, ibu.EndDate)
	}

	if len(planner.materialized) != 2 {
		t.Fatalf("expected materialize per reminder, got %v", planner.materialized)
	}
}

func TestService_CreateFromPrescription_FailsWhole(t *testing.T) {
	svc, repo, _ := newTestService()

	_, err := svc.CreateFromPrescription(context.Background(), "user-1", PrescriptionInput{
		Medications: []MedicationInput{
			{Name: "Valid", Dosage: "1 tablet", Frequency: "once daily", Duration: "7 days"},
			{Name: "", Dosage: "1 tablet", Frequency: "once daily", Duration: "7 days"},
		},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(repo.byID) != 0 {
		t.Fatalf("expected rollback of created reminders, got %d left", len(repo.byID))
	}
}
