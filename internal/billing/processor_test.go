package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/domain"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/infra"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/sqlinline"
)

const testSecret = "billing-test-secret"

type execCall struct {
	query string
	args  []any
}

// ledgerSQL fakes the transactor: it tracks ledger membership in memory and
// rolls a transaction back by discarding its calls when fn errors.
type ledgerSQL struct {
	processed map[string]bool
	execs     []execCall
	insertErr error
}

func newLedgerSQL() *ledgerSQL {
	return &ledgerSQL{processed: map[string]bool{}}
}

func (f *ledgerSQL) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	if query == sqlinline.QInsertProcessedEvent {
		if f.insertErr != nil {
			return pgconn.CommandTag{}, f.insertErr
		}
		id := args[0].(string)
		if f.processed[id] {
			return pgconn.CommandTag{}, &pgconn.PgError{Code: "23505"}
		}
		f.processed[id] = true
	}
	f.execs = append(f.execs, execCall{query: query, args: args})
	return pgconn.CommandTag{}, nil
}

func (f *ledgerSQL) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	if query == sqlinline.QProcessedEventExists {
		exists := f.processed[args[0].(string)]
		return scanRow{scan: func(dest ...any) error {
			*(dest[0].(*bool)) = exists
			return nil
		}}
	}
	return scanRow{}
}

func (f *ledgerSQL) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, fmt.Errorf("query not supported in fake")
}

func (f *ledgerSQL) WithTx(_ context.Context, fn func(tx infra.SQLExecutor) error) error {
	checkpoint := len(f.execs)
	processed := make(map[string]bool, len(f.processed))
	for k, v := range f.processed {
		processed[k] = v
	}
	if err := fn(f); err != nil {
		f.execs = f.execs[:checkpoint]
		f.processed = processed
		return err
	}
	return nil
}

func (f *ledgerSQL) execsFor(query string) []execCall {
	var out []execCall
	for _, c := range f.execs {
		if c.query == query {
			out = append(out, c)
		}
	}
	return out
}

type scanRow struct {
	scan func(dest ...any) error
}

func (r scanRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

func signedEvent(t *testing.T, event domain.BillingEvent) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload, SignPayload(testSecret, payload)
}

func newTestProcessor(sql infra.SQLTransactor) *Processor {
	return NewProcessor(sql, testSecret, nil, zerolog.Nop())
}

func TestHandleAppliesCreditGrantOnce(t *testing.T) {
	sql := newLedgerSQL()
	p := newTestProcessor(sql)

	payload, sig := signedEvent(t, domain.BillingEvent{
		ID:     "evt-1",
		Type:   domain.BillingEventPaymentSucceeded,
		UserID: "user-1",
		Data:   json.RawMessage(`{"credits":100}`),
	})

	outcome, err := p.Handle(context.Background(), payload, sig)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if outcome != domain.EventApplied {
		t.Fatalf("outcome = %s, want applied", outcome)
	}

	grants := sql.execsFor(sqlinline.QGrantCredits)
	if len(grants) != 1 {
		t.Fatalf("credit grants = %d, want 1", len(grants))
	}
	if grants[0].args[0] != "user-1" || grants[0].args[1] != 100 {
		t.Fatalf("grant args = %v", grants[0].args)
	}

	// Redelivery of the same event id is acknowledged but not reapplied.
	outcome, err = p.Handle(context.Background(), payload, sig)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if outcome != domain.EventSkipped {
		t.Fatalf("redelivery outcome = %s, want skipped", outcome)
	}
	if got := len(sql.execsFor(sqlinline.QGrantCredits)); got != 1 {
		t.Fatalf("credit grants after redelivery = %d, want 1", got)
	}
}

func TestHandleRejectsBadSignature(t *testing.T) {
	sql := newLedgerSQL()
	p := newTestProcessor(sql)

	payload, _ := signedEvent(t, domain.BillingEvent{
		ID:     "evt-1",
		Type:   domain.BillingEventPaymentSucceeded,
		UserID: "user-1",
		Data:   json.RawMessage(`{"credits":100}`),
	})

	outcome, err := p.Handle(context.Background(), payload, "tampered")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if outcome != domain.EventRejected {
		t.Fatalf("outcome = %s, want rejected", outcome)
	}
	if len(sql.execs) != 0 {
		t.Fatalf("no statements should run for a rejected event, got %d", len(sql.execs))
	}
}

func TestHandleRejectsMalformedAndUnknownEvents(t *testing.T) {
	sql := newLedgerSQL()
	p := newTestProcessor(sql)

	for name, event := range map[string]domain.BillingEvent{
		"missing id":   {Type: domain.BillingEventPaymentSucceeded, UserID: "user-1"},
		"missing user": {ID: "evt-1", Type: domain.BillingEventPaymentSucceeded},
		"unknown type": {ID: "evt-1", Type: "payment.refunded", UserID: "user-1"},
	} {
		payload, sig := signedEvent(t, event)
		outcome, err := p.Handle(context.Background(), payload, sig)
		if err != nil {
			t.Fatalf("%s: handle: %v", name, err)
		}
		if outcome != domain.EventRejected {
			t.Fatalf("%s: outcome = %s, want rejected", name, outcome)
		}
	}

	payload := []byte(`not json`)
	outcome, err := p.Handle(context.Background(), payload, SignPayload(testSecret, payload))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if outcome != domain.EventRejected {
		t.Fatalf("outcome = %s, want rejected", outcome)
	}
}

func TestHandleApplierFailureLeavesNoLedgerEntry(t *testing.T) {
	sql := newLedgerSQL()
	p := newTestProcessor(sql)

	// Non-positive credit amounts fail the applier inside the transaction.
	payload, sig := signedEvent(t, domain.BillingEvent{
		ID:     "evt-1",
		Type:   domain.BillingEventPaymentSucceeded,
		UserID: "user-1",
		Data:   json.RawMessage(`{"credits":0}`),
	})

	if _, err := p.Handle(context.Background(), payload, sig); err == nil {
		t.Fatalf("expected error from failing applier")
	}
	if sql.processed["evt-1"] {
		t.Fatalf("failed event must not be recorded in the ledger")
	}

	// The sender's retry with a corrected payload would be a new event; the
	// same event id is still applicable.
	payload, sig = signedEvent(t, domain.BillingEvent{
		ID:     "evt-1",
		Type:   domain.BillingEventPaymentSucceeded,
		UserID: "user-1",
		Data:   json.RawMessage(`{"credits":50}`),
	})
	outcome, err := p.Handle(context.Background(), payload, sig)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if outcome != domain.EventApplied {
		t.Fatalf("retry outcome = %s, want applied", outcome)
	}
}

func TestHandleLostInsertRaceIsSkipped(t *testing.T) {
	sql := newLedgerSQL()
	sql.insertErr = &pgconn.PgError{Code: "23505"}
	p := newTestProcessor(sql)

	payload, sig := signedEvent(t, domain.BillingEvent{
		ID:     "evt-1",
		Type:   domain.BillingEventSubscriptionCancelled,
		UserID: "user-1",
	})

	outcome, err := p.Handle(context.Background(), payload, sig)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if outcome != domain.EventSkipped {
		t.Fatalf("outcome = %s, want skipped", outcome)
	}
	if got := len(sql.execsFor(sqlinline.QCancelSubscription)); got != 0 {
		t.Fatalf("side effect survived rolled-back transaction: %d", got)
	}
}

func TestHandleInfrastructureErrorPropagates(t *testing.T) {
	sql := newLedgerSQL()
	sql.insertErr = errors.New("connection reset")
	p := newTestProcessor(sql)

	payload, sig := signedEvent(t, domain.BillingEvent{
		ID:     "evt-1",
		Type:   domain.BillingEventSubscriptionCancelled,
		UserID: "user-1",
	})

	if _, err := p.Handle(context.Background(), payload, sig); err == nil {
		t.Fatalf("expected infrastructure error to propagate")
	}
}

func TestApplySubscriptionLifecycle(t *testing.T) {
	sql := newLedgerSQL()
	p := newTestProcessor(sql)

	deliver := func(id string, eventType domain.BillingEventType, data string) domain.EventOutcome {
		t.Helper()
		payload, sig := signedEvent(t, domain.BillingEvent{
			ID: id, Type: eventType, UserID: "user-1", Data: json.RawMessage(data),
		})
		outcome, err := p.Handle(context.Background(), payload, sig)
		if err != nil {
			t.Fatalf("handle %s: %v", id, err)
		}
		return outcome
	}

	if got := deliver("evt-1", domain.BillingEventSubscriptionActivated, `{"plan":"premium","period_end":"2026-10-01T00:00:00Z"}`); got != domain.EventApplied {
		t.Fatalf("activation outcome = %s", got)
	}
	if got := deliver("evt-2", domain.BillingEventSubscriptionRenewed, `{"period_end":"2026-11-01T00:00:00Z"}`); got != domain.EventApplied {
		t.Fatalf("renewal outcome = %s", got)
	}
	if got := deliver("evt-3", domain.BillingEventSubscriptionCancelled, `{}`); got != domain.EventApplied {
		t.Fatalf("cancellation outcome = %s", got)
	}

	if len(sql.execsFor(sqlinline.QActivateSubscription)) != 1 ||
		len(sql.execsFor(sqlinline.QRenewSubscription)) != 1 ||
		len(sql.execsFor(sqlinline.QCancelSubscription)) != 1 {
		t.Fatalf("unexpected statement mix: %+v", sql.execs)
	}
}
