// Package stages provides the pipeline stage executors. Each executor adapts
// one external generation capability to the uniform pipeline contract and
// classifies its failures as transient or permanent.
package stages

import (
	"context"
	"errors"
	"net/http"

	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/pipeline"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/providers/genai"
)

// StoryArtifact is the text stage output, consumed by the audio and index
// stages.
type StoryArtifact struct {
	Title  string   `json:"title"`
	Pages  []string `json:"pages"`
	Locale string   `json:"locale"`
}

// MediaRef points at one stored binary artifact.
type MediaRef struct {
	StorageKey string `json:"storage_key"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
}

// AudioArtifact is the narration stage output.
type AudioArtifact struct {
	MediaRef
	DurationSeconds int `json:"duration_seconds"`
}

// classifyProviderErr maps a provider failure onto the stage error taxonomy.
// Rate limits, upstream faults and timeouts retry; request rejections (bad
// input, content policy) are terminal. Anything unrecognized retries.
func classifyProviderErr(stage string, err error) error {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Temporary() {
			return pipeline.Transient(stage, "generation service unavailable", err)
		}
		if apiErr.Status == http.StatusUnprocessableEntity {
			return pipeline.Permanent(stage, "content policy rejection", err)
		}
		return pipeline.Permanent(stage, "generation request rejected", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return pipeline.Transient(stage, "generation timed out", err)
	}
	return pipeline.Transient(stage, "generation failed", err)
}

func extensionForMIME(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav":
		return ".wav"
	default:
		return ".bin"
	}
}
