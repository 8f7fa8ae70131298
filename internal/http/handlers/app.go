package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/billing"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/domain"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/infra"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/middleware"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/realtime"
)

// App is the handler container; dependencies are injected once at startup.
type App struct {
	Jobs    domain.JobRepository
	Assets  domain.AssetRepository
	Billing *billing.Processor
	Hub     *realtime.Hub
	Logger  infra.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
