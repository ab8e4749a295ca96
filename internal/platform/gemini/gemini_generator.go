package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/retainapp/retain-api/internal/config"
	"github.com/retainapp/retain-api/internal/domain"
	"github.com/retainapp/retain-api/internal/generation"
)

// defaultPromptTemplate instructs the model to return strict JSON matching
// ResponseSchema. The response MIME type is also pinned to application/json
// in the request config, but models still occasionally wrap output in
// markdown fences, which extractJSON strips.
const defaultPromptTemplate = `You are a flashcard author helping someone retain what they read.

Given the highlighted passage below, write between one and five flashcards
that test the key ideas. Each card must stand alone: the front is a single
clear question, the back is a concise answer, and the optional hint nudges
recall without giving the answer away.

Respond with JSON only, in exactly this shape:
{"cards": [{"front": "...", "back": "...", "hint": "..."}]}

Passage:
{{.SourceText}}`

// GeminiGenerator implements the generation.Generator interface using
// Google's Gemini API to generate flashcards from source text.
type GeminiGenerator struct {
	logger         *slog.Logger
	config         config.LLMConfig
	promptTemplate *template.Template
	client         *genai.Client
	model          string
}

// NewGeminiGenerator creates a generator backed by the Gemini API.
// The context is used for client initialization only.
func NewGeminiGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*GeminiGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	promptTemplate, err := template.New("flashcard").Parse(defaultPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v",
			generation.ErrInvalidConfig, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &GeminiGenerator{
		logger:         logger.With(slog.String("component", "gemini_generator")),
		config:         cfg,
		promptTemplate: promptTemplate,
		client:         client,
		model:          cfg.ModelName,
	}, nil
}

// Ensure GeminiGenerator implements generation.Generator interface
var _ generation.Generator = (*GeminiGenerator)(nil)

// GenerateCards implements generation.Generator.GenerateCards.
// The returned cards are in draft status and reference the given source.
func (g *GeminiGenerator) GenerateCards(ctx context.Context, sourceText string, sourceID uuid.UUID) ([]*domain.Card, error) {
	prompt, err := g.createPrompt(sourceText)
	if err != nil {
		return nil, err
	}

	schema, err := g.callGeminiWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	cards, err := cardsFromSchema(schema, sourceID)
	if err != nil {
		return nil, err
	}

	g.logger.InfoContext(ctx, "cards generated",
		slog.String("source_id", sourceID.String()),
		slog.Int("count", len(cards)))
	return cards, nil
}

// createPrompt renders the prompt template with the source text.
func (g *GeminiGenerator) createPrompt(sourceText string) (string, error) {
	if strings.TrimSpace(sourceText) == "" {
		return "", ErrEmptySourceText
	}

	var buf bytes.Buffer
	if err := g.promptTemplate.Execute(&buf, promptData{SourceText: sourceText}); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}

	return buf.String(), nil
}

// callGeminiWithRetry calls the API with exponential backoff and jitter.
// Permanent failures (blocked content, unparseable responses) are returned
// immediately; transient failures are retried up to config.MaxRetries times.
func (g *GeminiGenerator) callGeminiWithRetry(ctx context.Context, prompt string) (*ResponseSchema, error) {
	maxRetries := g.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 3
	}
	baseDelaySeconds := g.config.RetryDelaySeconds
	if baseDelaySeconds < 1 {
		baseDelaySeconds = 2
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		g.logger.DebugContext(ctx, "calling gemini api",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", maxRetries+1))

		schema, err := g.callGemini(ctx, prompt)
		if err == nil {
			return schema, nil
		}

		if !errors.Is(err, generation.ErrTransientFailure) {
			return nil, err
		}
		lastErr = err

		if attempt == maxRetries {
			break
		}

		// Exponential backoff with up to one second of jitter.
		delay := time.Duration(float64(baseDelaySeconds)*math.Pow(2, float64(attempt))) * time.Second
		delay += time.Duration(rng.Intn(1000)) * time.Millisecond

		g.logger.WarnContext(ctx, "gemini call failed, retrying",
			slog.String("error", err.Error()),
			slog.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("%w: retries exhausted: %v", generation.ErrGenerationFailed, lastErr)
}

// callGemini makes a single API call and parses the response.
func (g *GeminiGenerator) callGemini(ctx context.Context, prompt string) (*ResponseSchema, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
		})
	if err != nil {
		return nil, classifyAPIError(err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: %s", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", generation.ErrInvalidResponse)
	}

	var schema ResponseSchema
	if err := json.Unmarshal([]byte(extractJSON(text)), &schema); err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
	}

	return &schema, nil
}

// classifyAPIError maps API failures onto the generation sentinel errors so
// the retry loop can distinguish transient from permanent problems.
func classifyAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429, 500, 502, 503, 504:
			return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		}
		return fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}

	// Network-level failures without an API status are worth retrying.
	return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
}

// extractJSON strips markdown code fences the model sometimes wraps around
// its JSON output.
func extractJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// cardsFromSchema converts the parsed response into domain cards.
// Cards with an empty front or back are rejected rather than silently
// dropped so a malformed response surfaces as an error.
func cardsFromSchema(schema *ResponseSchema, sourceID uuid.UUID) ([]*domain.Card, error) {
	if len(schema.Cards) == 0 {
		return nil, fmt.Errorf("%w: no cards in response", generation.ErrInvalidResponse)
	}

	cards := make([]*domain.Card, 0, len(schema.Cards))
	for i, cs := range schema.Cards {
		card, err := domain.NewCard(
			strings.TrimSpace(cs.Front),
			strings.TrimSpace(cs.Back),
			strings.TrimSpace(cs.Hint),
			&sourceID,
			domain.CardStatusDraft,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: card %d: %v", generation.ErrInvalidResponse, i, err)
		}
		cards = append(cards, card)
	}

	return cards, nil
}
