package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Provider defines the interface for vision-capable model providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Assess asks the model whether the image plausibly depicts the described issue
	Assess(ctx context.Context, req AssessRequest) (*AssessResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// AssessRequest contains the input for an authenticity assessment
type AssessRequest struct {
	// Image is the raw photo as uploaded (JPEG, PNG, WebP, HEIC)
	Image []byte

	Title       string
	Category    string
	Description string

	// Model overrides the configured model
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// MIMEType sniffs the image content type, defaulting to JPEG
func (r AssessRequest) MIMEType() string {
	ct := http.DetectContentType(r.Image)
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "image/jpeg"
}

// AssessResponse contains the raw model output
type AssessResponse struct {
	// Content is the text returned by the model (expected to be a JSON verdict)
	Content string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// MaxDeduction caps the score deduction a verdict can apply
	MaxDeduction int

	// DefaultDeduction applies when the model rejects the image without a deduction
	DefaultDeduction int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:         "", // Disabled by default
		Model:            "",
		Timeout:          15,
		MaxTokens:        300,
		MaxDeduction:     100,
		DefaultDeduction: 40,
	}
}

// systemPrompt frames every assessment
const systemPrompt = "You review photos submitted to a civic issue reporting app. You answer with a single JSON object and nothing else."

// BuildPrompt constructs the assessment prompt for a report
func BuildPrompt(req AssessRequest) string {
	return fmt.Sprintf(`A citizen submitted this photo as evidence of a civic issue.

Report:
- Title: %s
- Category: %s
- Description: %s

Decide whether the photo plausibly shows this issue as an outdoor, real-world
scene. Reject photos that are unrelated to the description, taken indoors,
screenshots, stock images, drawings, or otherwise fabricated.

Respond with JSON only:
{"is_authentic": true|false, "reason": "<one sentence>", "deduction": <integer 0-100>}

"deduction" is how many trust points to remove: 0 when the photo matches,
higher the less plausible it is.`,
		oneLine(req.Title), oneLine(req.Category), oneLine(truncate(req.Description, 1000)))
}

// Helper functions

func oneLine(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(none)"
	}
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
