package stages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/domain"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/infra"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/pipeline"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/providers/genai"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/storage"
)

// ImageStage generates illustrations and persists the binaries to the
// artifact store; only references travel through the partial result.
type ImageStage struct {
	client *genai.Client
	store  *storage.FileStore
	log    infra.Logger
}

func NewImageStage(client *genai.Client, store *storage.FileStore, log infra.Logger) *ImageStage {
	return &ImageStage{client: client, store: store, log: log}
}

func (s *ImageStage) Name() string { return pipeline.StageImage }

func (s *ImageStage) Run(ctx context.Context, job *domain.Job, acc *pipeline.Accumulator) (*pipeline.Artifact, error) {
	req := s.imageRequest(job, acc)

	images, err := s.client.GenerateImages(ctx, req)
	if err != nil {
		return nil, classifyProviderErr(s.Name(), err)
	}

	refs := make([]MediaRef, 0, len(images))
	for i, img := range images {
		name := fmt.Sprintf("illustration-%02d%s", i+1, extensionForMIME(img.MimeType))
		key, err := s.store.Write(ctx, storage.ArtifactKey(job.ID, "images", name), img.Data)
		if err != nil {
			return nil, pipeline.Transient(s.Name(), "artifact store unavailable", err)
		}
		refs = append(refs, MediaRef{
			StorageKey: key,
			MimeType:   img.MimeType,
			SizeBytes:  int64(len(img.Data)),
		})
	}

	raw, err := json.Marshal(refs)
	if err != nil {
		return nil, pipeline.Permanent(s.Name(), "image artifact not encodable", err)
	}
	return &pipeline.Artifact{Key: "images", Value: raw}, nil
}

// imageRequest derives the illustration prompt: an explicit image input wins,
// otherwise the prompt is built from the story generated earlier in the run.
func (s *ImageStage) imageRequest(job *domain.Job, acc *pipeline.Accumulator) genai.ImageRequest {
	if acc.Input.Type == domain.JobTypeImageGenerate {
		return genai.ImageRequest{
			Prompt:      acc.Input.Image.Prompt,
			Style:       acc.Input.Image.Style,
			AspectRatio: acc.Input.Image.AspectRatio,
			Count:       acc.Input.Image.Count,
			RequestID:   job.ID,
		}
	}

	req := genai.ImageRequest{Count: 1, AspectRatio: "1:1", RequestID: job.ID}
	if acc.Input.Full != nil {
		req.Style = acc.Input.Full.Style
		req.Prompt = acc.Input.Full.Theme
	}
	var story StoryArtifact
	if err := acc.DecodeArtifact("story", &story); err == nil && story.Title != "" {
		req.Prompt = fmt.Sprintf("Cover art for the children's story %q", story.Title)
	}
	return req
}

var _ pipeline.Executor = (*ImageStage)(nil)
