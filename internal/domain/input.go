package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	MaxStoryPages     = 12
	MaxImageCount     = 4
	defaultPages      = 5
	defaultImageCount = 1
)

// JobInput is the tagged-variant creation payload. Type selects which of the
// typed inputs is meaningful; Validate enforces that exactly the matching
// variant is well formed before a job row is ever written.
type JobInput struct {
	Type  JobType             `json:"type"`
	Story *StoryInput         `json:"story,omitempty"`
	Image *ImageInput         `json:"image,omitempty"`
	TTS   *TTSInput           `json:"tts,omitempty"`
	Full  *CompleteStoryInput `json:"complete_story,omitempty"`
}

// StoryInput describes a story-text generation request.
type StoryInput struct {
	Theme     string `json:"theme"`
	HeroName  string `json:"hero_name,omitempty"`
	AgeGroup  string `json:"age_group,omitempty"`
	Locale    string `json:"locale,omitempty"`
	PageCount int    `json:"page_count,omitempty"`
}

// ImageInput describes an illustration request.
type ImageInput struct {
	Prompt      string `json:"prompt"`
	Style       string `json:"style,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Count       int    `json:"count,omitempty"`
}

// TTSInput describes a narration request over existing text.
type TTSInput struct {
	Text   string `json:"text"`
	Voice  string `json:"voice,omitempty"`
	Locale string `json:"locale,omitempty"`
}

// CompleteStoryInput drives the full pipeline: text, illustration and
// narration generated from a single theme.
type CompleteStoryInput struct {
	Theme     string `json:"theme"`
	HeroName  string `json:"hero_name,omitempty"`
	AgeGroup  string `json:"age_group,omitempty"`
	Locale    string `json:"locale,omitempty"`
	PageCount int    `json:"page_count,omitempty"`
	Style     string `json:"style,omitempty"`
	Voice     string `json:"voice,omitempty"`
}

// Validate checks the discriminator and the matching variant, applying
// defaults in place. The locale argument fills missing per-input locales.
func (in *JobInput) Validate(locale string) error {
	if in == nil {
		return fmt.Errorf("%w: missing input", ErrInvalidInput)
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: unknown job type %q", ErrInvalidInput, in.Type)
	}
	switch in.Type {
	case JobTypeStoryGenerate:
		if in.Story == nil {
			return fmt.Errorf("%w: story input required", ErrInvalidInput)
		}
		return in.Story.validate(locale)
	case JobTypeImageGenerate:
		if in.Image == nil {
			return fmt.Errorf("%w: image input required", ErrInvalidInput)
		}
		return in.Image.validate()
	case JobTypeTTSGenerate:
		if in.TTS == nil {
			return fmt.Errorf("%w: tts input required", ErrInvalidInput)
		}
		return in.TTS.validate(locale)
	case JobTypeCompleteStory:
		if in.Full == nil {
			return fmt.Errorf("%w: complete_story input required", ErrInvalidInput)
		}
		return in.Full.validate(locale)
	}
	return nil
}

func (s *StoryInput) validate(locale string) error {
	if strings.TrimSpace(s.Theme) == "" {
		return fmt.Errorf("%w: story theme required", ErrInvalidInput)
	}
	if s.PageCount <= 0 {
		s.PageCount = defaultPages
	}
	if s.PageCount > MaxStoryPages {
		return fmt.Errorf("%w: page count %d exceeds limit %d", ErrInvalidInput, s.PageCount, MaxStoryPages)
	}
	if s.Locale == "" {
		s.Locale = locale
	}
	return nil
}

func (i *ImageInput) validate() error {
	if strings.TrimSpace(i.Prompt) == "" {
		return fmt.Errorf("%w: image prompt required", ErrInvalidInput)
	}
	if i.Count <= 0 {
		i.Count = defaultImageCount
	}
	if i.Count > MaxImageCount {
		return fmt.Errorf("%w: image count %d exceeds limit %d", ErrInvalidInput, i.Count, MaxImageCount)
	}
	if i.AspectRatio == "" {
		i.AspectRatio = "1:1"
	}
	return nil
}

func (t *TTSInput) validate(locale string) error {
	if strings.TrimSpace(t.Text) == "" {
		return fmt.Errorf("%w: tts text required", ErrInvalidInput)
	}
	if t.Locale == "" {
		t.Locale = locale
	}
	return nil
}

func (c *CompleteStoryInput) validate(locale string) error {
	if strings.TrimSpace(c.Theme) == "" {
		return fmt.Errorf("%w: story theme required", ErrInvalidInput)
	}
	if c.PageCount <= 0 {
		c.PageCount = defaultPages
	}
	if c.PageCount > MaxStoryPages {
		return fmt.Errorf("%w: page count %d exceeds limit %d", ErrInvalidInput, c.PageCount, MaxStoryPages)
	}
	if c.Locale == "" {
		c.Locale = locale
	}
	return nil
}

// MarshalInput serializes a validated input for storage on the job row.
func MarshalInput(in *JobInput) (json.RawMessage, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode job input: %w", err)
	}
	return raw, nil
}

// UnmarshalInput decodes a stored job input payload.
func UnmarshalInput(raw json.RawMessage) (*JobInput, error) {
	var in JobInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("decode job input: %w", err)
	}
	return &in, nil
}
