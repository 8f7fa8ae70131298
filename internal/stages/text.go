package stages

import (
	"context"
	"encoding/json"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/domain"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/infra"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/pipeline"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/providers/genai"
)

// TextStage generates the story text.
type TextStage struct {
	client *genai.Client
	log    infra.Logger
}

func NewTextStage(client *genai.Client, log infra.Logger) *TextStage {
	return &TextStage{client: client, log: log}
}

func (s *TextStage) Name() string { return pipeline.StageText }

func (s *TextStage) Run(ctx context.Context, job *domain.Job, acc *pipeline.Accumulator) (*pipeline.Artifact, error) {
	req, err := storyRequest(job, acc.Input)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GenerateStory(ctx, req)
	if err != nil {
		return nil, classifyProviderErr(s.Name(), err)
	}

	artifact := StoryArtifact{
		Title:  titleCase(result.Title, req.Locale),
		Pages:  result.Pages,
		Locale: req.Locale,
	}
	raw, err := json.Marshal(artifact)
	if err != nil {
		return nil, pipeline.Permanent(s.Name(), "story artifact not encodable", err)
	}
	return &pipeline.Artifact{Key: "story", Value: raw}, nil
}

func storyRequest(job *domain.Job, input *domain.JobInput) (genai.StoryRequest, error) {
	switch input.Type {
	case domain.JobTypeStoryGenerate:
		return genai.StoryRequest{
			Theme:     input.Story.Theme,
			HeroName:  input.Story.HeroName,
			AgeGroup:  input.Story.AgeGroup,
			Locale:    input.Story.Locale,
			PageCount: input.Story.PageCount,
			RequestID: job.ID,
		}, nil
	case domain.JobTypeCompleteStory:
		return genai.StoryRequest{
			Theme:     input.Full.Theme,
			HeroName:  input.Full.HeroName,
			AgeGroup:  input.Full.AgeGroup,
			Locale:    input.Full.Locale,
			PageCount: input.Full.PageCount,
			RequestID: job.ID,
		}, nil
	}
	return genai.StoryRequest{}, pipeline.Permanent(pipeline.StageText, "job type carries no story input", nil)
}

func titleCase(title, locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return cases.Title(tag).String(title)
}

var _ pipeline.Executor = (*TextStage)(nil)
