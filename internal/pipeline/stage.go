package pipeline

import (
	"context"
	"encoding/json"

	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/domain"
)

// Artifact is one stage's contribution to the job result, keyed so stages
// can read each other's output from the accumulated context.
type Artifact struct {
	Key   string
	Value json.RawMessage
}

// Delta renders the artifact as the partial-result merge payload.
func (a *Artifact) Delta() json.RawMessage {
	if a == nil || a.Key == "" {
		return nil
	}
	raw, err := json.Marshal(map[string]json.RawMessage{a.Key: a.Value})
	if err != nil {
		return nil
	}
	return raw
}

// Executor is the uniform adapter contract around one external generation
// capability: given the accumulated context, it eventually returns an
// artifact or fails.
type Executor interface {
	Name() string
	Run(ctx context.Context, job *domain.Job, acc *Accumulator) (*Artifact, error)
}

// Accumulator carries the execution context through the stage sequence.
// Each stage's output seeds the next stage's input; stages run strictly
// sequentially, so no locking is needed here.
type Accumulator struct {
	Input     *domain.JobInput
	Artifacts map[string]json.RawMessage
}

// NewAccumulator builds the execution context from a job's decoded input.
func NewAccumulator(input *domain.JobInput) *Accumulator {
	return &Accumulator{
		Input:     input,
		Artifacts: make(map[string]json.RawMessage),
	}
}

// Merge records a completed stage's artifact.
func (a *Accumulator) Merge(art *Artifact) {
	if art == nil || art.Key == "" {
		return
	}
	a.Artifacts[art.Key] = art.Value
}

// Artifact returns the raw artifact stored under key, or nil.
func (a *Accumulator) Artifact(key string) json.RawMessage {
	return a.Artifacts[key]
}

// DecodeArtifact unmarshals the artifact stored under key into out.
func (a *Accumulator) DecodeArtifact(key string, out any) error {
	raw, ok := a.Artifacts[key]
	if !ok {
		return domain.ErrNotFound
	}
	return json.Unmarshal(raw, out)
}

// FinalResult assembles the completed job result from all artifacts.
func (a *Accumulator) FinalResult() json.RawMessage {
	raw, err := json.Marshal(a.Artifacts)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}
