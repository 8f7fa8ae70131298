package realtime

import (
	"context"

	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/domain"
)

// Target is anything progress messages can be pushed into.
type Target interface {
	Publish(ctx context.Context, msg domain.ProgressMessage)
}

// Fanout publishes every message to all targets, in order.
type Fanout []Target

func (f Fanout) Publish(ctx context.Context, msg domain.ProgressMessage) {
	for _, t := range f {
		t.Publish(ctx, msg)
	}
}
