package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mediator/internal/models"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Client wraps the Gemini API client for draft analysis, mention detection
// and information extraction.
type Client struct {
	client     *genai.Client
	model      *genai.GenerativeModel
	logger     *zap.Logger
	modelName  string
	maxRetries int
	retryDelay time.Duration
}

// Config for the analyzer client
type Config struct {
	APIKey     string
	ModelName  string // Default: "gemini-2.0-flash-exp"
	MaxRetries int
	RetryDelay time.Duration
}

// NewClient creates a new analyzer client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("analyzer API key is required")
	}

	if cfg.ModelName == "" {
		cfg.ModelName = "gemini-2.0-flash-exp"
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}

	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.ModelName)

	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SystemInstruction)},
	}

	model.ResponseMIMEType = "application/json"

	model.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr[float32](0.4),
		TopP:            genai.Ptr[float32](0.9),
		TopK:            genai.Ptr[int32](40),
		MaxOutputTokens: genai.Ptr[int32](1024),
	}

	logger.Info("Analyzer client initialized",
		zap.String("model", cfg.ModelName),
		zap.Int("max_retries", cfg.MaxRetries))

	return &Client{
		client:     client,
		model:      model,
		logger:     logger,
		modelName:  cfg.ModelName,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Close closes the underlying Gemini client
func (c *Client) Close() error {
	return c.client.Close()
}

// Analyze judges a draft message against its conversation context. A nil
// Intervention with a nil error means the draft should pass through as-is.
func (c *Client) Analyze(ctx context.Context, msg *models.Message, actx *models.AnalysisContext) (*models.Intervention, error) {
	prompt := BuildAnalysisPrompt(msg, actx)

	raw, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	intervention, err := ParseDecision(raw)
	if err != nil {
		c.logger.Error("Failed to parse analyzer decision",
			zap.String("raw_response", raw),
			zap.Error(err))
		return nil, err
	}

	if intervention != nil {
		c.logger.Debug("Analyzer decision",
			zap.String("type", intervention.Type),
			zap.String("risk_level", intervention.Escalation.RiskLevel))
	}
	return intervention, nil
}

// DetectMentions looks for third parties referenced in a message that are not
// yet tracked as contacts.
func (c *Client) DetectMentions(ctx context.Context, text string, contacts []models.Contact, participants []string) ([]models.MentionCandidate, error) {
	prompt := BuildMentionPrompt(text, contacts, participants)

	raw, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseMentions(raw)
}

// ExtractInformation pulls structured contact facts out of an approved
// message.
func (c *Client) ExtractInformation(ctx context.Context, text string, contacts []models.Contact) (*models.ExtractionResult, error) {
	if len(contacts) == 0 {
		return &models.ExtractionResult{}, nil
	}
	prompt := BuildExtractionPrompt(text, contacts)

	raw, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseExtraction(raw)
}

// generate runs one prompt through the model with retries and returns the raw
// text of the first candidate.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying analyzer request",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", c.maxRetries))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			lastErr = fmt.Errorf("gemini API error: %w", err)
			c.logger.Error("Gemini API error", zap.Error(err), zap.Int("attempt", attempt+1))
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}

		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			lastErr = fmt.Errorf("empty response from gemini")
			c.logger.Error("Empty response from Gemini", zap.Int("attempt", attempt+1))
			continue
		}

		textPart, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
		if !ok {
			lastErr = fmt.Errorf("unexpected response type from gemini")
			c.logger.Error("Unexpected response type", zap.Int("attempt", attempt+1))
			continue
		}

		return strings.TrimSpace(string(textPart)), nil
	}

	return "", fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}
