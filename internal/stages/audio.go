package stages

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/domain"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/infra"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/pipeline"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/providers/genai"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/storage"
)

// AudioStage narrates text into audio and persists the binary artifact.
type AudioStage struct {
	client       *genai.Client
	store        *storage.FileStore
	defaultVoice string
	log          infra.Logger
}

func NewAudioStage(client *genai.Client, store *storage.FileStore, defaultVoice string, log infra.Logger) *AudioStage {
	return &AudioStage{client: client, store: store, defaultVoice: defaultVoice, log: log}
}

func (s *AudioStage) Name() string { return pipeline.StageAudio }

func (s *AudioStage) Run(ctx context.Context, job *domain.Job, acc *pipeline.Accumulator) (*pipeline.Artifact, error) {
	req, err := s.speechRequest(job, acc)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GenerateSpeech(ctx, req)
	if err != nil {
		return nil, classifyProviderErr(s.Name(), err)
	}

	name := "narration" + extensionForMIME(result.MimeType)
	key, err := s.store.Write(ctx, storage.ArtifactKey(job.ID, "audio", name), result.Data)
	if err != nil {
		return nil, pipeline.Transient(s.Name(), "artifact store unavailable", err)
	}

	artifact := AudioArtifact{
		MediaRef: MediaRef{
			StorageKey: key,
			MimeType:   result.MimeType,
			SizeBytes:  int64(len(result.Data)),
		},
		DurationSeconds: result.DurationSeconds,
	}
	raw, err := json.Marshal(artifact)
	if err != nil {
		return nil, pipeline.Permanent(s.Name(), "audio artifact not encodable", err)
	}
	return &pipeline.Artifact{Key: "audio", Value: raw}, nil
}

// speechRequest narrates the explicit tts input, or the story text produced
// earlier in the run.
func (s *AudioStage) speechRequest(job *domain.Job, acc *pipeline.Accumulator) (genai.SpeechRequest, error) {
	if acc.Input.Type == domain.JobTypeTTSGenerate {
		voice := acc.Input.TTS.Voice
		if voice == "" {
			voice = s.defaultVoice
		}
		return genai.SpeechRequest{
			Text:      acc.Input.TTS.Text,
			Voice:     voice,
			Locale:    acc.Input.TTS.Locale,
			RequestID: job.ID,
		}, nil
	}

	var story StoryArtifact
	if err := acc.DecodeArtifact("story", &story); err != nil || len(story.Pages) == 0 {
		return genai.SpeechRequest{}, pipeline.Permanent(s.Name(), "no narratable text available", err)
	}
	voice := s.defaultVoice
	if acc.Input.Full != nil && acc.Input.Full.Voice != "" {
		voice = acc.Input.Full.Voice
	}
	return genai.SpeechRequest{
		Text:      strings.Join(story.Pages, "\n"),
		Voice:     voice,
		Locale:    story.Locale,
		RequestID: job.ID,
	}, nil
}

var _ pipeline.Executor = (*AudioStage)(nil)
