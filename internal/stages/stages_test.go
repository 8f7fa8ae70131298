package stages

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/domain"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/pipeline"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/providers/genai"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/storage"
)

type memAssets struct {
	mu     sync.Mutex
	saved  []domain.Asset
	failed bool
}

func (m *memAssets) SaveAll(_ context.Context, assets []domain.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failed {
		return errors.New("db unavailable")
	}
	m.saved = append(m.saved, assets...)
	return nil
}

func (m *memAssets) ListByJobID(_ context.Context, jobID string) ([]domain.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Asset
	for _, a := range m.saved {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	return out, nil
}

func syntheticClient(t *testing.T) *genai.Client {
	t.Helper()
	client, err := genai.NewClient(genai.Options{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func tempStore(t *testing.T) *storage.FileStore {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	return store
}

func completeStoryAccumulator(t *testing.T) (*domain.Job, *pipeline.Accumulator) {
	t.Helper()
	input := &domain.JobInput{
		Type: domain.JobTypeCompleteStory,
		Full: &domain.CompleteStoryInput{Theme: "orman macerasi", HeroName: "Ela", Locale: "tr", PageCount: 3},
	}
	job := &domain.Job{ID: "job-1", OwnerID: "user-1", Type: domain.JobTypeCompleteStory}
	return job, pipeline.NewAccumulator(input)
}

func TestFullStageSequenceProducesIndexedAssets(t *testing.T) {
	client := syntheticClient(t)
	store := tempStore(t)
	assets := &memAssets{}
	job, acc := completeStoryAccumulator(t)

	sequence := []pipeline.Executor{
		NewTextStage(client, zerolog.Nop()),
		NewImageStage(client, store, zerolog.Nop()),
		NewAudioStage(client, store, "masal-f1", zerolog.Nop()),
		NewIndexStage(assets, store, zerolog.Nop()),
	}
	for _, stage := range sequence {
		artifact, err := stage.Run(context.Background(), job, acc)
		if err != nil {
			t.Fatalf("stage %s: %v", stage.Name(), err)
		}
		acc.Merge(artifact)
	}

	var index IndexArtifact
	if err := acc.DecodeArtifact("index", &index); err != nil {
		t.Fatalf("decode index: %v", err)
	}
	if index.PageCount != 3 || index.ImageCount != 1 || !index.HasAudio {
		t.Fatalf("index = %+v", index)
	}
	// story.json + illustration + narration
	if len(index.StorageKeys) != 3 {
		t.Fatalf("storage keys = %d, want 3", len(index.StorageKeys))
	}
	for _, key := range index.StorageKeys {
		if _, err := os.Stat(filepath.Join(store.BasePath(), key)); err != nil {
			t.Fatalf("artifact %s not on disk: %v", key, err)
		}
	}

	saved, _ := assets.ListByJobID(context.Background(), "job-1")
	if len(saved) != 3 {
		t.Fatalf("asset rows = %d, want 3", len(saved))
	}
	kinds := map[domain.AssetKind]bool{}
	for _, a := range saved {
		if a.OwnerID != "user-1" {
			t.Fatalf("asset owner = %q, want user-1", a.OwnerID)
		}
		kinds[a.Kind] = true
	}
	if !kinds[domain.AssetKindStoryText] || !kinds[domain.AssetKindImage] || !kinds[domain.AssetKindAudio] {
		t.Fatalf("asset kinds = %v", kinds)
	}
}

func TestAudioStageWithoutStoryIsPermanent(t *testing.T) {
	client := syntheticClient(t)
	store := tempStore(t)
	job, acc := completeStoryAccumulator(t)

	_, err := NewAudioStage(client, store, "masal-f1", zerolog.Nop()).Run(context.Background(), job, acc)
	var se *pipeline.StageError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want StageError", err)
	}
	if se.Transient {
		t.Fatalf("missing story text must be permanent")
	}
}

func TestIndexStageWithoutArtifactsIsPermanent(t *testing.T) {
	store := tempStore(t)
	job, acc := completeStoryAccumulator(t)

	_, err := NewIndexStage(&memAssets{}, store, zerolog.Nop()).Run(context.Background(), job, acc)
	var se *pipeline.StageError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want StageError", err)
	}
	if se.Transient {
		t.Fatalf("empty run must fail permanently")
	}
}

func TestIndexStagePersistenceFailureIsTransient(t *testing.T) {
	client := syntheticClient(t)
	store := tempStore(t)
	job, acc := completeStoryAccumulator(t)

	artifact, err := NewTextStage(client, zerolog.Nop()).Run(context.Background(), job, acc)
	if err != nil {
		t.Fatalf("text stage: %v", err)
	}
	acc.Merge(artifact)

	_, err = NewIndexStage(&memAssets{failed: true}, store, zerolog.Nop()).Run(context.Background(), job, acc)
	var se *pipeline.StageError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want StageError", err)
	}
	if !se.Transient {
		t.Fatalf("asset persistence failure must retry")
	}
}

func TestClassifyProviderErr(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		transient bool
	}{
		{"rate limited", &genai.APIError{Status: http.StatusTooManyRequests}, true},
		{"upstream fault", &genai.APIError{Status: http.StatusBadGateway}, true},
		{"content policy", &genai.APIError{Status: http.StatusUnprocessableEntity}, false},
		{"bad request", &genai.APIError{Status: http.StatusBadRequest}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"unknown", errors.New("boom"), true},
	}
	for _, tc := range cases {
		var se *pipeline.StageError
		if !errors.As(classifyProviderErr("text", tc.err), &se) {
			t.Fatalf("%s: not a StageError", tc.name)
		}
		if se.Transient != tc.transient {
			t.Fatalf("%s: transient = %v, want %v", tc.name, se.Transient, tc.transient)
		}
	}
}
