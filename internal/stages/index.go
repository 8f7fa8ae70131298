package stages

import (
	"context"
	"encoding/json"

	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/domain"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/infra"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/pipeline"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/storage"
)

// IndexArtifact is the final catalogue of everything the job produced.
type IndexArtifact struct {
	Title       string   `json:"title,omitempty"`
	PageCount   int      `json:"page_count,omitempty"`
	ImageCount  int      `json:"image_count,omitempty"`
	HasAudio    bool     `json:"has_audio"`
	StorageKeys []string `json:"storage_keys"`
}

// IndexStage closes every run: it writes the story text to the artifact
// store, records asset rows for all stored artifacts, and produces the
// catalogue that becomes part of the final result.
type IndexStage struct {
	assets domain.AssetRepository
	store  *storage.FileStore
	log    infra.Logger
}

func NewIndexStage(assets domain.AssetRepository, store *storage.FileStore, log infra.Logger) *IndexStage {
	return &IndexStage{assets: assets, store: store, log: log}
}

func (s *IndexStage) Name() string { return pipeline.StageIndex }

func (s *IndexStage) Run(ctx context.Context, job *domain.Job, acc *pipeline.Accumulator) (*pipeline.Artifact, error) {
	var (
		index  IndexArtifact
		assets []domain.Asset
	)

	var story StoryArtifact
	if err := acc.DecodeArtifact("story", &story); err == nil {
		index.Title = story.Title
		index.PageCount = len(story.Pages)

		raw, _ := json.Marshal(story)
		key, err := s.store.Write(ctx, storage.ArtifactKey(job.ID, "story", "story.json"), raw)
		if err != nil {
			return nil, pipeline.Transient(s.Name(), "artifact store unavailable", err)
		}
		index.StorageKeys = append(index.StorageKeys, key)
		assets = append(assets, domain.Asset{
			JobID:      job.ID,
			OwnerID:    job.OwnerID,
			Kind:       domain.AssetKindStoryText,
			StorageKey: key,
			MimeType:   "application/json",
			SizeBytes:  int64(len(raw)),
		})
	}

	var images []MediaRef
	if err := acc.DecodeArtifact("images", &images); err == nil {
		index.ImageCount = len(images)
		for _, ref := range images {
			index.StorageKeys = append(index.StorageKeys, ref.StorageKey)
			assets = append(assets, domain.Asset{
				JobID:      job.ID,
				OwnerID:    job.OwnerID,
				Kind:       domain.AssetKindImage,
				StorageKey: ref.StorageKey,
				MimeType:   ref.MimeType,
				SizeBytes:  ref.SizeBytes,
			})
		}
	}

	var audio AudioArtifact
	if err := acc.DecodeArtifact("audio", &audio); err == nil && audio.StorageKey != "" {
		index.HasAudio = true
		index.StorageKeys = append(index.StorageKeys, audio.StorageKey)
		assets = append(assets, domain.Asset{
			JobID:      job.ID,
			OwnerID:    job.OwnerID,
			Kind:       domain.AssetKindAudio,
			StorageKey: audio.StorageKey,
			MimeType:   audio.MimeType,
			SizeBytes:  audio.SizeBytes,
		})
	}

	if len(assets) == 0 {
		return nil, pipeline.Permanent(s.Name(), "no artifacts to index", nil)
	}
	if err := s.assets.SaveAll(ctx, assets); err != nil {
		return nil, pipeline.Transient(s.Name(), "asset persistence failed", err)
	}

	raw, err := json.Marshal(index)
	if err != nil {
		return nil, pipeline.Permanent(s.Name(), "index artifact not encodable", err)
	}
	return &pipeline.Artifact{Key: "index", Value: raw}, nil
}

var _ pipeline.Executor = (*IndexStage)(nil)
