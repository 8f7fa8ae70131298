package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/domain"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/infra"
)

const subscriberBuffer = 16

// Subscription is one live listener on a job's progress. Close deregisters
// it; the channel is closed by the hub afterwards.
type Subscription struct {
	JobID string
	C     <-chan domain.ProgressMessage

	id  string
	ch  chan domain.ProgressMessage
	hub *Hub
}

// Close deregisters the subscription from the hub.
func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.hub.remove(s)
}

// Hub is the in-process progress broadcaster, keyed by job id. Delivery is
// best effort: with no subscriber attached, or a subscriber too slow to
// drain its buffer, messages are dropped. The job row is the source of
// truth; clients reconcile by polling.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[string]*Subscription
	log  infra.Logger
}

func NewHub(log infra.Logger) *Hub {
	return &Hub{
		subs: make(map[string]map[string]*Subscription),
		log:  log,
	}
}

// Subscribe registers a live listener for the job. Multiple concurrent
// subscribers per job are allowed.
func (h *Hub) Subscribe(jobID string) *Subscription {
	sub := &Subscription{
		JobID: jobID,
		id:    uuid.NewString(),
		ch:    make(chan domain.ProgressMessage, subscriberBuffer),
		hub:   h,
	}
	sub.C = sub.ch

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[jobID]
	if !ok {
		set = make(map[string]*Subscription)
		h.subs[jobID] = set
	}
	set[sub.id] = sub
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[sub.JobID]
	if !ok {
		return
	}
	if _, ok := set[sub.id]; !ok {
		return
	}
	delete(set, sub.id)
	if len(set) == 0 {
		delete(h.subs, sub.JobID)
	}
	close(sub.ch)
}

// Publish fans the message out to all current subscribers of the job.
func (h *Hub) Publish(_ context.Context, msg domain.ProgressMessage) {
	if msg.JobID == "" {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs[msg.JobID] {
		select {
		case sub.ch <- msg:
		default:
			h.log.Warn().Str("job_id", msg.JobID).Msg("realtime: subscriber buffer full, dropping message")
		}
	}
}

// SubscriberCount reports how many listeners a job currently has.
func (h *Hub) SubscriberCount(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[jobID])
}
