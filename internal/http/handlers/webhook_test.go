package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/billing"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/infra"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/sqlinline"
)

const webhookSecret = "webhook-test-secret"

// billingSQL fakes just enough of the transactor for the webhook path.
type billingSQL struct {
	processed map[string]bool
	failExec  bool
}

func (f *billingSQL) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	if f.failExec {
		return pgconn.CommandTag{}, fmt.Errorf("connection reset")
	}
	if query == sqlinline.QInsertProcessedEvent {
		id := args[0].(string)
		if f.processed[id] {
			return pgconn.CommandTag{}, &pgconn.PgError{Code: "23505"}
		}
		f.processed[id] = true
	}
	return pgconn.CommandTag{}, nil
}

func (f *billingSQL) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	if query == sqlinline.QProcessedEventExists {
		exists := f.processed[args[0].(string)]
		return boolRow{value: exists}
	}
	return boolRow{err: pgx.ErrNoRows}
}

func (f *billingSQL) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, fmt.Errorf("query not supported in fake")
}

func (f *billingSQL) WithTx(_ context.Context, fn func(tx infra.SQLExecutor) error) error {
	return fn(f)
}

type boolRow struct {
	value bool
	err   error
}

func (r boolRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*bool)) = r.value
	return nil
}

func newWebhookApp(sql infra.SQLTransactor) *App {
	return &App{
		Billing: billing.NewProcessor(sql, webhookSecret, nil, zerolog.Nop()),
		Logger:  zerolog.Nop(),
	}
}

func postEvent(t *testing.T, app *App, payload, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/v1/billing/events", strings.NewReader(payload))
	req.Header.Set("X-Billing-Signature", signature)
	rr := httptest.NewRecorder()
	app.BillingEvents(rr, req)
	return rr
}

func TestBillingEventsAppliedThenSkipped(t *testing.T) {
	app := newWebhookApp(&billingSQL{processed: map[string]bool{}})

	payload := `{"id":"evt-1","type":"payment.succeeded","user_id":"user-1","data":{"credits":100}}`
	sig := billing.SignPayload(webhookSecret, []byte(payload))

	rr := postEvent(t, app, payload, sig)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "applied" {
		t.Fatalf("status = %q, want applied", resp["status"])
	}

	// Redelivery: same 200 so the sender stops, but marked skipped.
	rr = postEvent(t, app, payload, sig)
	if rr.Code != http.StatusOK {
		t.Fatalf("redelivery status = %d, want 200", rr.Code)
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "skipped" {
		t.Fatalf("redelivery status = %q, want skipped", resp["status"])
	}
}

func TestBillingEventsBadSignatureUnauthorized(t *testing.T) {
	app := newWebhookApp(&billingSQL{processed: map[string]bool{}})

	payload := `{"id":"evt-1","type":"payment.succeeded","user_id":"user-1","data":{"credits":100}}`
	rr := postEvent(t, app, payload, "forged")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestBillingEventsInfrastructureFailureIs500(t *testing.T) {
	app := newWebhookApp(&billingSQL{processed: map[string]bool{}, failExec: true})

	payload := `{"id":"evt-1","type":"payment.succeeded","user_id":"user-1","data":{"credits":100}}`
	sig := billing.SignPayload(webhookSecret, []byte(payload))
	rr := postEvent(t, app, payload, sig)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 so the sender redelivers", rr.Code)
	}
}
