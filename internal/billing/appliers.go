package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/domain"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/infra"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/sqlinline"
)

// Applier executes the domain side effect for one billing event. It runs
// inside the same transaction as the ledger insert, so a failing applier
// leaves no trace and a redelivery retries from scratch.
type Applier func(ctx context.Context, tx infra.SQLExecutor, event *domain.BillingEvent) error

// DefaultAppliers wires the built-in side effects per event type.
func DefaultAppliers() map[domain.BillingEventType]Applier {
	return map[domain.BillingEventType]Applier{
		domain.BillingEventPaymentSucceeded:      ApplyCreditGrant,
		domain.BillingEventSubscriptionActivated: ApplySubscriptionActivation,
		domain.BillingEventSubscriptionRenewed:   ApplySubscriptionRenewal,
		domain.BillingEventSubscriptionCancelled: ApplySubscriptionCancellation,
	}
}

type creditGrantData struct {
	Credits int `json:"credits"`
}

// ApplyCreditGrant adds the purchased credits to the user's balance.
func ApplyCreditGrant(ctx context.Context, tx infra.SQLExecutor, event *domain.BillingEvent) error {
	var data creditGrantData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("decode credit grant: %w", err)
	}
	if data.Credits <= 0 {
		return fmt.Errorf("credit grant for event %s: non-positive amount %d", event.ID, data.Credits)
	}
	_, err := tx.Exec(ctx, sqlinline.QGrantCredits, event.UserID, data.Credits)
	return err
}

type subscriptionData struct {
	Plan      string    `json:"plan"`
	PeriodEnd time.Time `json:"period_end"`
}

// ApplySubscriptionActivation creates or reactivates the user's subscription.
func ApplySubscriptionActivation(ctx context.Context, tx infra.SQLExecutor, event *domain.BillingEvent) error {
	var data subscriptionData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("decode subscription activation: %w", err)
	}
	if data.Plan == "" {
		return fmt.Errorf("subscription activation for event %s: plan required", event.ID)
	}
	_, err := tx.Exec(ctx, sqlinline.QActivateSubscription, event.UserID, data.Plan, data.PeriodEnd)
	return err
}

// ApplySubscriptionRenewal extends the current period.
func ApplySubscriptionRenewal(ctx context.Context, tx infra.SQLExecutor, event *domain.BillingEvent) error {
	var data subscriptionData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("decode subscription renewal: %w", err)
	}
	_, err := tx.Exec(ctx, sqlinline.QRenewSubscription, event.UserID, data.PeriodEnd)
	return err
}

// ApplySubscriptionCancellation marks the subscription cancelled.
func ApplySubscriptionCancellation(ctx context.Context, tx infra.SQLExecutor, event *domain.BillingEvent) error {
	_, err := tx.Exec(ctx, sqlinline.QCancelSubscription, event.UserID)
	return err
}
