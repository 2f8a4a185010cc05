package router

import (
	"database/sql"
	"net/http"
	"os"

	mem "medicine-reminders/internal/adapters/storage/memory"
	pg "medicine-reminders/internal/adapters/storage/postgres"
	"medicine-reminders/internal/domain/doses"
	"medicine-reminders/internal/domain/reminders"
	"medicine-reminders/internal/middleware"
	"medicine-reminders/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	// Opcional: repos ya construidos (main los comparte con el trigger).
	ReminderRepo reminders.Repository
	DoseRepo     doses.Repository

	// Opcional: catálogo propio (tests); nil => DefaultCatalog.
	Catalog reminders.Catalog
}

func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	remRepo, doseRepo := ResolveRepos(opts)

	// Services por módulo. El servicio de doses implementa el DosePlanner
	// que el aggregate de reminders necesita para materializar el plan.
	dosesSvc := doses.NewService(doseRepo, remRepo)
	remindersSvc := reminders.NewService(remRepo, opts.Catalog, dosesSvc)

	reminders.RegisterRoutes(r, remindersSvc)
	doses.RegisterRoutes(r, dosesSvc)

	return r
}

// ResolveRepos elige el storage: repos explícitos > DB (o DB_DSN por env) >
// in-memory (dev/tests).
func ResolveRepos(opts Options) (reminders.Repository, doses.Repository) {
	if opts.ReminderRepo != nil && opts.DoseRepo != nil {
		return opts.ReminderRepo, opts.DoseRepo
	}

	db := opts.DB
	if db == nil {
		if dsn := os.Getenv("DB_DSN"); dsn != "" {
			if opened, err := pg.Open(dsn); err == nil {
				db = opened
			}
		}
	}

	if db != nil {
		return pg.NewRemindersRepo(db), pg.NewDosesRepo(db)
	}
	return mem.NewRemindersRepo(), mem.NewDosesRepo()
}
