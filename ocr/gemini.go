package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

const (
	// DefaultModel is used when GeminiProvider is built without an
	// explicit model override.
	DefaultModel = "gemini-2.0-flash"

	defaultInstruction = "Convert the attached document to clean, faithful " +
		"Markdown. Preserve headings, lists, tables and emphasis. Do not " +
		"summarize or omit content. Respond with Markdown only, no " +
		"surrounding commentary. If the source spans multiple pages, " +
		"separate each page's Markdown with a single form-feed character."

	// defaultTemperature favors faithful transcription over creative
	// rephrasing.
	defaultTemperature = 0.2
)

// contentGenerator is the narrow subset of *genai.Models this package
// calls, so tests can substitute a fake instead of reaching the network.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiProvider implements Provider against the Gemini API.
type GeminiProvider struct {
	models      contentGenerator
	model       string
	instruction string
	temperature float64
	log         *slog.Logger
}

// GeminiOption configures a GeminiProvider.
type GeminiOption func(*GeminiProvider)

// WithModel overrides DefaultModel.
func WithModel(model string) GeminiOption {
	return func(p *GeminiProvider) {
		p.model = model
	}
}

// WithInstruction overrides the default conversion prompt.
func WithInstruction(instruction string) GeminiOption {
	return func(p *GeminiProvider) {
		p.instruction = instruction
	}
}

// WithLogger overrides the provider's logger.
func WithLogger(log *slog.Logger) GeminiOption {
	return func(p *GeminiProvider) {
		p.log = log
	}
}

// WithTemperature overrides defaultTemperature.
func WithTemperature(temperature float64) GeminiOption {
	return func(p *GeminiProvider) {
		p.temperature = temperature
	}
}

// NewGeminiProvider builds a GeminiProvider authenticated with apiKey.
func NewGeminiProvider(ctx context.Context, apiKey string, opts ...GeminiOption) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("ocr: creating Gemini client: %w", err)
	}

	p := &GeminiProvider{
		models:      client.Models,
		model:       DefaultModel,
		instruction: defaultInstruction,
		temperature: defaultTemperature,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// newGeminiProviderWithGenerator builds a GeminiProvider around an
// already-constructed content generator, used by tests to inject a fake.
func newGeminiProviderWithGenerator(models contentGenerator, opts ...GeminiOption) *GeminiProvider {
	p := &GeminiProvider{
		models:      models,
		model:       DefaultModel,
		instruction: defaultInstruction,
		temperature: defaultTemperature,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ Provider = (*GeminiProvider)(nil)

// Convert sends data inline to Gemini alongside the conversion
// instruction and returns the Markdown candidate text plus token usage.
func (p *GeminiProvider) Convert(ctx context.Context, data []byte, mimeType string, filename string) (Result, error) {
	p.log.Debug("converting document", "filename", filename, "mime_type", mimeType, "bytes", len(data), "model", p.model)

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: p.instruction},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
			},
		},
	}

	temperature := float32(p.temperature)
	config := &genai.GenerateContentConfig{Temperature: &temperature}

	resp, err := p.models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return Result{}, fmt.Errorf("ocr: generating content for %s: %w", filename, err)
	}

	markdown, pages, err := extractMarkdown(resp)
	if err != nil {
		return Result{}, fmt.Errorf("ocr: %s: %w", filename, err)
	}

	result := Result{
		Markdown:       markdown,
		Model:          p.model,
		ExtractedPages: pages,
		Temperature:    p.temperature,
	}
	if resp.UsageMetadata != nil {
		result.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		result.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return result, nil
}

// extractMarkdown joins the response's text parts and counts pages,
// delimited by the form-feed character the conversion instruction asks
// the model to emit between pages.
func extractMarkdown(resp *genai.GenerateContentResponse) (string, int, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", 0, fmt.Errorf("no content in response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", 0, fmt.Errorf("response contained no text parts")
	}

	raw := sb.String()
	pages := strings.Count(raw, "\f") + 1
	markdown := strings.TrimSpace(strings.ReplaceAll(raw, "\f", "\n\n"))
	return markdown, pages, nil
}
