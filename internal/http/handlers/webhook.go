package handlers

import (
	"io"
	"net/http"

	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/domain"
)

// BillingEvents ingests signed billing provider webhooks. Duplicate
// deliveries return 200 so the provider stops retrying; only infrastructure
// failures return 5xx.
func (a *App) BillingEvents(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid_body", "could not read request body")
		return
	}

	signature := r.Header.Get("X-Billing-Signature")
	outcome, err := a.Billing.Handle(r.Context(), payload, signature)
	if err != nil {
		a.Logger.Error().Err(err).Msg("billing event processing failed")
		a.error(w, http.StatusInternalServerError, "internal", "event processing failed")
		return
	}

	switch outcome {
	case domain.EventApplied, domain.EventSkipped:
		a.json(w, http.StatusOK, map[string]string{"status": string(outcome)})
	default:
		a.error(w, http.StatusUnauthorized, "rejected", "event rejected")
	}
}
