package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

type stubTransport struct {
	status  int
	body    string
	lastURL string
	lastReq geminiGenerateContentRequest
}

func (t *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.lastURL = req.URL.String()
	if req.Body != nil {
		payload, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(payload, &t.lastReq)
	}
	return &http.Response{
		StatusCode: t.status,
		Body:       io.NopCloser(strings.NewReader(t.body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}, nil
}

func newStubClient(t *testing.T, transport *stubTransport) *Client {
	t.Helper()
	client, err := NewClient(Options{
		APIKey:     "test-key",
		Model:      "gemini-1.5-flash",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestGenerateStoryParsesCandidate(t *testing.T) {
	story := `{"title":"Ela ve Orman","pages":["Bir varmis","bir yokmus"]}`
	response, _ := json.Marshal(geminiGenerateContentResponse{
		Candidates: []geminiCandidate{{
			Content: geminiContent{Parts: []geminiPart{{Text: story}}},
		}},
	})
	transport := &stubTransport{status: http.StatusOK, body: string(response)}
	client := newStubClient(t, transport)

	result, err := client.GenerateStory(context.Background(), StoryRequest{
		Theme: "orman", HeroName: "Ela", Locale: "tr", PageCount: 2,
	})
	if err != nil {
		t.Fatalf("generate story: %v", err)
	}
	if result.Title != "Ela ve Orman" || len(result.Pages) != 2 {
		t.Fatalf("result = %+v", result)
	}
	if !strings.Contains(transport.lastURL, "models/gemini-1.5-flash:generateContent") {
		t.Fatalf("url = %q", transport.lastURL)
	}
	if transport.lastReq.GenerationConfig == nil || transport.lastReq.GenerationConfig.ResponseMimeType != "application/json" {
		t.Fatalf("request did not ask for JSON output: %+v", transport.lastReq)
	}
}

func TestGenerateStorySafetyBlockIsPermanent(t *testing.T) {
	response, _ := json.Marshal(geminiGenerateContentResponse{
		Candidates: []geminiCandidate{{FinishReason: "SAFETY"}},
	})
	transport := &stubTransport{status: http.StatusOK, body: string(response)}
	client := newStubClient(t, transport)

	_, err := client.GenerateStory(context.Background(), StoryRequest{Theme: "x", PageCount: 1})
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("error = %v, want APIError", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", apiErr.Status)
	}
	if apiErr.Temporary() {
		t.Fatalf("safety block must not be temporary")
	}
}

func TestInvokeSurfacesAPIErrors(t *testing.T) {
	transport := &stubTransport{status: http.StatusTooManyRequests, body: `{"error":{"code":429,"message":"quota exceeded"}}`}
	client := newStubClient(t, transport)

	_, err := client.GenerateStory(context.Background(), StoryRequest{Theme: "x", PageCount: 1})
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("error = %v, want APIError", err)
	}
	if apiErr.Status != http.StatusTooManyRequests || apiErr.Message != "quota exceeded" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
	if !apiErr.Temporary() {
		t.Fatalf("429 should be temporary")
	}
}

func TestGenerateImagesDecodesInlineData(t *testing.T) {
	pixels := []byte{0x89, 0x50, 0x4e, 0x47}
	response, _ := json.Marshal(geminiGenerateContentResponse{
		Candidates: []geminiCandidate{{
			Content: geminiContent{Parts: []geminiPart{{
				InlineData: &geminiInlineData{
					MimeType: "image/png",
					Data:     base64.StdEncoding.EncodeToString(pixels),
				},
			}}},
		}},
	})
	transport := &stubTransport{status: http.StatusOK, body: string(response)}
	client := newStubClient(t, transport)

	images, err := client.GenerateImages(context.Background(), ImageRequest{Prompt: "a fox", Count: 1})
	if err != nil {
		t.Fatalf("generate images: %v", err)
	}
	if len(images) != 1 {
		t.Fatalf("images = %d, want 1", len(images))
	}
	if images[0].MimeType != "image/png" || !bytes.Equal(images[0].Data, pixels) {
		t.Fatalf("image = %+v", images[0])
	}
}

func TestSyntheticFallbackWithoutAPIKey(t *testing.T) {
	client, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	story, err := client.GenerateStory(context.Background(), StoryRequest{Theme: "deniz", HeroName: "Kerem", PageCount: 3})
	if err != nil {
		t.Fatalf("synthetic story: %v", err)
	}
	if len(story.Pages) != 3 {
		t.Fatalf("pages = %d, want 3", len(story.Pages))
	}

	first, err := client.GenerateImages(context.Background(), ImageRequest{RequestID: "job-1", Prompt: "a fox", Count: 2})
	if err != nil {
		t.Fatalf("synthetic images: %v", err)
	}
	second, err := client.GenerateImages(context.Background(), ImageRequest{RequestID: "job-1", Prompt: "a fox", Count: 2})
	if err != nil {
		t.Fatalf("synthetic images: %v", err)
	}
	if len(first) != 2 || !bytes.Equal(first[0].Data, second[0].Data) {
		t.Fatalf("synthetic images are not deterministic per request")
	}

	speech, err := client.GenerateSpeech(context.Background(), SpeechRequest{RequestID: "job-1", Text: "bir varmis bir yokmus uzak diyarlarda"})
	if err != nil {
		t.Fatalf("synthetic speech: %v", err)
	}
	if speech.DurationSeconds < 1 {
		t.Fatalf("duration = %d, want >= 1", speech.DurationSeconds)
	}
}

func TestEstimateSpeechSeconds(t *testing.T) {
	if got := estimateSpeechSeconds(""); got != 1 {
		t.Fatalf("empty text = %d, want 1", got)
	}
	if got := estimateSpeechSeconds(strings.Repeat("kelime ", 30)); got != 10 {
		t.Fatalf("30 words = %d, want 10", got)
	}
}
