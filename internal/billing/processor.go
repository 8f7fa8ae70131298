package billing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/domain"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/infra"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/sqlinline"
)

// Processor consumes inbound billing events exactly once despite
// at-least-once delivery. The processed-events ledger, unique on event id,
// is the commit point: the side effect and the ledger insert share one
// transaction, so either both happen or neither does.
type Processor struct {
	sql      infra.SQLTransactor
	secret   string
	appliers map[domain.BillingEventType]Applier
	log      infra.Logger
}

// NewProcessor wires the event processor. A nil applier map selects the
// built-in defaults.
func NewProcessor(sql infra.SQLTransactor, secret string, appliers map[domain.BillingEventType]Applier, log infra.Logger) *Processor {
	if appliers == nil {
		appliers = DefaultAppliers()
	}
	return &Processor{sql: sql, secret: secret, appliers: appliers, log: log}
}

// Handle verifies, deduplicates and applies one inbound event. The returned
// outcome distinguishes the first application from an idempotent redelivery
// and from rejection; err is non-nil only for infrastructure failures where
// the sender should redeliver.
func (p *Processor) Handle(ctx context.Context, payload []byte, signature string) (domain.EventOutcome, error) {
	if !VerifySignature(p.secret, payload, signature) {
		p.log.Warn().Msg("billing: event signature rejected")
		return domain.EventRejected, nil
	}

	var event domain.BillingEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		p.log.Warn().Err(err).Msg("billing: undecodable event payload")
		return domain.EventRejected, nil
	}
	if event.ID == "" || event.UserID == "" {
		return domain.EventRejected, nil
	}
	applier, ok := p.appliers[event.Type]
	if !ok {
		p.log.Warn().Str("event_id", event.ID).Str("type", string(event.Type)).Msg("billing: unknown event type")
		return domain.EventRejected, nil
	}

	// Fast path under redelivery; the unique constraint still guards the
	// race between this check and the insert below.
	exists, err := p.exists(ctx, event.ID)
	if err != nil {
		return "", fmt.Errorf("ledger lookup %s: %w", event.ID, err)
	}
	if exists {
		p.log.Debug().Str("event_id", event.ID).Msg("billing: duplicate event skipped")
		return domain.EventSkipped, nil
	}

	err = p.sql.WithTx(ctx, func(tx infra.SQLExecutor) error {
		if err := applier(ctx, tx, &event); err != nil {
			return fmt.Errorf("apply %s event %s: %w", event.Type, event.ID, err)
		}
		if _, err := tx.Exec(ctx, sqlinline.QInsertProcessedEvent, event.ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if infra.IsUniqueViolation(err) {
			// A concurrent delivery committed first.
			p.log.Debug().Str("event_id", event.ID).Msg("billing: lost insert race, event skipped")
			return domain.EventSkipped, nil
		}
		return "", err
	}

	p.log.Info().Str("event_id", event.ID).Str("type", string(event.Type)).Msg("billing: event applied")
	return domain.EventApplied, nil
}

func (p *Processor) exists(ctx context.Context, eventID string) (bool, error) {
	row := p.sql.QueryRow(ctx, sqlinline.QProcessedEventExists, eventID)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
