// Package ocr converts document bytes into Markdown through a
// vision-capable language model. The only implementation wraps Gemini,
// following the client-wrapper shape used elsewhere in the retrieved
// pack for large-language-model calls.
package ocr

import "context"

// Result is the outcome of a successful conversion.
type Result struct {
	// Markdown is the converted document text.
	Markdown string

	// Model is the model name that served the request, recorded onto
	// the document's conversion metadata.
	Model string

	// ExtractedPages is the provider's best estimate of how many source
	// pages it processed.
	ExtractedPages int

	// Temperature is the sampling temperature the request was made
	// with, recorded onto the document's conversion metadata.
	Temperature float64

	// PromptTokens, CompletionTokens and TotalTokens are the token
	// counts the provider billed for the request, recorded onto the
	// usage ledger.
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Provider converts a single document's raw bytes to Markdown.
type Provider interface {
	// Convert submits data (with the given MIME type, and filename for
	// provider-side logging/context) for conversion and returns the
	// resulting Markdown plus token usage.
	Convert(ctx context.Context, data []byte, mimeType string, filename string) (Result, error)
}
