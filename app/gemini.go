// Model gateway: calls the Gemini generateContent API with a per-attempt
// timeout and a one-shot fallback to a backup credential.
package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gabbezeira/handtrap-api/app/config"
	"github.com/gabbezeira/handtrap-api/app/models"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// tokenPrices is USD per 1M tokens, used only for the accounting log.
var tokenPrices = map[string]struct{ Input, Output float64 }{
	"gemini-2.5-pro":   {Input: 1.25, Output: 10.00},
	"gemini-2.5-flash": {Input: 0.30, Output: 2.50},
}

// UsageRecorder appends one row to the api_usage accounting log. Failures
// are logged and swallowed by the caller; accounting must never block a
// successful analysis from reaching the user.
type UsageRecorder interface {
	Record(ctx context.Context, rec models.APIUsageRecord) error
}

// GeminiClient invokes the upstream model. Credentials are loaded once at
// construction and treated as immutable; nothing reaches for a singleton.
type GeminiClient struct {
	primaryKey string
	backupKey  string
	proModel   string
	flashModel string
	baseURL    string
	timeout    time.Duration
	httpc      *http.Client
	recorder   UsageRecorder
}

// NewGeminiClient builds the gateway from config. A missing primary key is
// a configuration error, fatal at startup rather than per-request.
func NewGeminiClient(cfg *config.Config, recorder UsageRecorder) (*GeminiClient, error) {
	if cfg.Gemini.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY must be set")
	}

	baseURL := cfg.Gemini.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}

	return &GeminiClient{
		primaryKey: cfg.Gemini.APIKey,
		backupKey:  cfg.Gemini.BackupAPIKey,
		proModel:   cfg.Gemini.ProModel,
		flashModel: cfg.Gemini.FlashModel,
		baseURL:    baseURL,
		timeout:    cfg.Gemini.Timeout,
		httpc:      &http.Client{},
		recorder:   recorder,
	}, nil
}

// modelFor selects the upstream variant: premium users get the
// higher-capability model for deck analysis; card and hand analysis always
// use the economical model regardless of plan, as a cost-control policy.
func (g *GeminiClient) modelFor(op models.Operation, plan models.Plan) string {
	if op == models.OpDeckAnalysis && plan == models.PlanPremium {
		return g.proModel
	}
	return g.flashModel
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

type tokenUsage struct {
	Input  int
	Output int
}

// generate runs one logical request: primary attempt, then exactly one
// retry against the backup credential if configured. Each attempt gets its
// own timeout; a timeout is treated identically to an upstream error.
func (g *GeminiClient) generate(ctx context.Context, op models.Operation, plan models.Plan, prompt string) (string, error) {
	model := g.modelFor(op, plan)

	text, usage, err := g.attempt(ctx, model, g.primaryKey, prompt)
	if err != nil {
		if g.backupKey == "" {
			return "", fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
		}
		log.Warn().Err(err).Str("model", model).Str("operation", string(op)).
			Msg("primary model call failed, retrying with backup credential")
		text, usage, err = g.attempt(ctx, model, g.backupKey, prompt)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
		}
	}

	g.record(ctx, model, op, usage)
	return text, nil
}

func (g *GeminiClient) attempt(ctx context.Context, model, apiKey, prompt string) (string, tokenUsage, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", tokenUsage{}, err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", tokenUsage{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", apiKey)

	res, err := g.httpc.Do(req)
	if err != nil {
		return "", tokenUsage{}, err
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return "", tokenUsage{}, err
	}
	if res.StatusCode != http.StatusOK {
		return "", tokenUsage{}, fmt.Errorf("gemini http %d: %s", res.StatusCode, truncate(string(resBody), 200))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(resBody, &parsed); err != nil {
		return "", tokenUsage{}, err
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", tokenUsage{}, errors.New("gemini returned no candidates")
	}

	usage := tokenUsage{
		Input:  parsed.UsageMetadata.PromptTokenCount,
		Output: parsed.UsageMetadata.CandidatesTokenCount,
	}
	return parsed.Candidates[0].Content.Parts[0].Text, usage, nil
}

// record appends to the accounting log. Log-and-continue on failure.
func (g *GeminiClient) record(ctx context.Context, model string, op models.Operation, usage tokenUsage) {
	if g.recorder == nil {
		return
	}

	rec := models.APIUsageRecord{
		Timestamp:        time.Now().UTC(),
		Model:            model,
		Operation:        op,
		InputTokens:      usage.Input,
		OutputTokens:     usage.Output,
		EstimatedCostUSD: estimateCostUSD(model, usage.Input, usage.Output),
	}
	if err := g.recorder.Record(ctx, rec); err != nil {
		log.Error().Err(err).Str("model", model).Str("operation", string(op)).
			Msg("failed to write api usage record")
	}
}

func estimateCostUSD(model string, inputTokens, outputTokens int) float64 {
	price, ok := tokenPrices[model]
	if !ok {
		return 0
	}
	return (float64(inputTokens)*price.Input + float64(outputTokens)*price.Output) / 1_000_000
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// PGUsageRecorder appends accounting rows to the api_usage table.
type PGUsageRecorder struct{}

func (PGUsageRecorder) Record(ctx context.Context, rec models.APIUsageRecord) error {
	if db == nil {
		return nil
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO api_usage (ts, model, operation, input_tokens, output_tokens, estimated_cost_usd)
		VALUES ($1, $2, $3, $4, $5, $6);
	`, rec.Timestamp, rec.Model, rec.Operation, rec.InputTokens, rec.OutputTokens, rec.EstimatedCostUSD)
	return err
}
