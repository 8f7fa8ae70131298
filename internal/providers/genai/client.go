package genai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/infra"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client provides a lightweight facade over Gemini so stage executors can
// focus on translating domain requests to API calls. Without an API key the
// client produces deterministic synthetic artifacts, keeping the pipeline
// fully operational in local and CI environments.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// StoryRequest asks for story text.
type StoryRequest struct {
	Theme     string
	HeroName  string
	AgeGroup  string
	Locale    string
	PageCount int
	RequestID string
}

// StoryResult is the normalized story text artifact.
type StoryResult struct {
	Title string   `json:"title"`
	Pages []string `json:"pages"`
}

// ImageRequest asks for one or more illustrations.
type ImageRequest struct {
	Prompt      string
	Style       string
	AspectRatio string
	Count       int
	RequestID   string
}

// ImageResult is one generated illustration.
type ImageResult struct {
	MimeType string
	Data     []byte
}

// SpeechRequest asks for narration audio over text.
type SpeechRequest struct {
	Text      string
	Voice     string
	Locale    string
	RequestID string
}

// SpeechResult is the narration artifact.
type SpeechResult struct {
	MimeType        string
	Data            []byte
	DurationSeconds int
}

// APIError is a failed remote invocation. Temporary distinguishes capacity
// and upstream faults (worth retrying) from request rejections.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini status %d: %s", e.Status, e.Message)
}

// Temporary reports whether the failure class is worth retrying.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

// NewClient constructs a Gemini client with sane defaults. Callers may
// provide a nil HTTP client; one with a sensible timeout is created.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	model := opts.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Model returns the configured Gemini model identifier.
func (c *Client) Model() string {
	return c.model
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	CandidateCount   int     `json:"candidateCount,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// GenerateStory produces structured story text. With no API key configured a
// deterministic synthetic story is returned so downstream stages stay
// exercised.
func (c *Client) GenerateStory(ctx context.Context, req StoryRequest) (*StoryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.apiKey == "" {
		return c.syntheticStory(req), nil
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: buildStoryPrompt(req)}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:      0.8,
			CandidateCount:   1,
			ResponseMimeType: "application/json",
		},
	}

	var response geminiGenerateContentResponse
	if err := c.invoke(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.model)), payload, &response); err != nil {
		return nil, err
	}

	for _, candidate := range response.Candidates {
		if strings.EqualFold(candidate.FinishReason, "SAFETY") {
			return nil, &APIError{Status: http.StatusUnprocessableEntity, Message: "content policy rejection"}
		}
		for _, part := range candidate.Content.Parts {
			if part.Text == "" {
				continue
			}
			var result StoryResult
			if err := json.Unmarshal([]byte(part.Text), &result); err != nil {
				continue
			}
			if len(result.Pages) > 0 {
				return &result, nil
			}
		}
	}
	return nil, &APIError{Status: http.StatusBadGateway, Message: "no story content returned"}
}

// GenerateImages produces illustrations for the prompt.
func (c *Client) GenerateImages(ctx context.Context, req ImageRequest) ([]ImageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	count := req.Count
	if count <= 0 {
		count = 1
	}
	if c.apiKey == "" {
		return c.syntheticImages(req, count), nil
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: buildImagePrompt(req)}},
		}},
		GenerationConfig: &geminiGenerationConfig{CandidateCount: count},
	}

	var response geminiGenerateContentResponse
	if err := c.invoke(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.model)), payload, &response); err != nil {
		return nil, err
	}

	var images []ImageResult
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil || len(data) == 0 {
				continue
			}
			mime := part.InlineData.MimeType
			if mime == "" {
				mime = "image/png"
			}
			images = append(images, ImageResult{MimeType: mime, Data: data})
			if len(images) >= count {
				return images, nil
			}
		}
	}
	if len(images) == 0 {
		return nil, &APIError{Status: http.StatusBadGateway, Message: "no image content returned"}
	}
	return images, nil
}

// GenerateSpeech produces narration audio for the text.
func (c *Client) GenerateSpeech(ctx context.Context, req SpeechRequest) (*SpeechResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.apiKey == "" {
		return c.syntheticSpeech(req), nil
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: buildSpeechPrompt(req)}},
		}},
	}

	var response geminiGenerateContentResponse
	if err := c.invoke(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.model)), payload, &response); err != nil {
		return nil, err
	}

	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil || len(data) == 0 {
				continue
			}
			mime := part.InlineData.MimeType
			if mime == "" {
				mime = "audio/mpeg"
			}
			return &SpeechResult{
				MimeType:        mime,
				Data:            data,
				DurationSeconds: estimateSpeechSeconds(req.Text),
			}, nil
		}
	}
	return nil, &APIError{Status: http.StatusBadGateway, Message: "no audio content returned"}
}

func (c *Client) invoke(ctx context.Context, path string, payload any, out any) error {
	endpoint := c.baseURL + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr geminiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return &APIError{Status: resp.StatusCode, Message: apiErr.Error.Message}
		}
		return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func buildStoryPrompt(req StoryRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a children's story about %q", req.Theme)
	if req.HeroName != "" {
		fmt.Fprintf(&b, " featuring a hero named %s", req.HeroName)
	}
	if req.AgeGroup != "" {
		fmt.Fprintf(&b, " for ages %s", req.AgeGroup)
	}
	fmt.Fprintf(&b, " in locale %s, exactly %d pages.", req.Locale, req.PageCount)
	b.WriteString(` Respond with JSON: {"title": string, "pages": [string]}.`)
	return b.String()
}

func buildImagePrompt(req ImageRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Illustrate: %s", req.Prompt)
	if req.Style != "" {
		fmt.Fprintf(&b, " in %s style", req.Style)
	}
	if req.AspectRatio != "" {
		fmt.Fprintf(&b, ", aspect ratio %s", req.AspectRatio)
	}
	return b.String()
}

func buildSpeechPrompt(req SpeechRequest) string {
	return fmt.Sprintf("Narrate with voice %s (%s): %s", req.Voice, req.Locale, req.Text)
}

func (c *Client) syntheticStory(req StoryRequest) *StoryResult {
	pages := make([]string, req.PageCount)
	for i := range pages {
		pages[i] = fmt.Sprintf("Page %d of the tale of %s about %s.", i+1, heroOrDefault(req.HeroName), req.Theme)
	}
	c.logger.Debug().Str("request_id", req.RequestID).Msg("genai: synthetic story generated")
	return &StoryResult{
		Title: fmt.Sprintf("The Tale of %s", heroOrDefault(req.HeroName)),
		Pages: pages,
	}
}

func (c *Client) syntheticImages(req ImageRequest, count int) []ImageResult {
	images := make([]ImageResult, count)
	for i := range images {
		images[i] = ImageResult{
			MimeType: "image/png",
			Data:     syntheticBytes(req.RequestID, req.Prompt, i, 2048),
		}
	}
	c.logger.Debug().Str("request_id", req.RequestID).Int("count", count).Msg("genai: synthetic images generated")
	return images
}

func (c *Client) syntheticSpeech(req SpeechRequest) *SpeechResult {
	c.logger.Debug().Str("request_id", req.RequestID).Msg("genai: synthetic speech generated")
	return &SpeechResult{
		MimeType:        "audio/mpeg",
		Data:            syntheticBytes(req.RequestID, req.Text, 0, 4096),
		DurationSeconds: estimateSpeechSeconds(req.Text),
	}
}

func heroOrDefault(name string) string {
	if name == "" {
		return "Little Star"
	}
	return name
}

// syntheticBytes derives stable placeholder content from the request, so
// repeated runs of the same job produce identical artifacts.
func syntheticBytes(requestID, prompt string, index, size int) []byte {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", requestID, prompt, index)))
	seed := hex.EncodeToString(sum[:])
	buf := make([]byte, 0, size)
	for len(buf) < size {
		buf = append(buf, seed...)
	}
	return buf[:size]
}

func estimateSpeechSeconds(text string) int {
	words := len(strings.Fields(text))
	seconds := words / 3
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}
