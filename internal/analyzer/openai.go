package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/utafrali/storefront-reviews/internal/domain"
	apperrors "github.com/utafrali/storefront-reviews/pkg/errors"
)

const openAIInstructions = `You analyze customer product review comments.
Reply with a single JSON object and nothing else, using these keys:
"sentiment": one of "positive", "neutral", "negative";
"score": a number from -1 (very negative) to 1 (very positive);
"summary": one short sentence;
"topics": an array of short lowercase topic strings.`

// OpenAIConfig configures the chat-completion analyzer.
type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	MaxRetries int
}

// OpenAI analyzes comments with an OpenAI-compatible chat completion API.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	options := []option.RequestOption{option.WithMaxRetries(cfg.MaxRetries)}
	if cfg.BaseURL != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		options = append(options, option.WithAPIKey(cfg.APIKey))
	}

	client := openai.NewClient(options...)
	return &OpenAI{client: &client, model: cfg.Model}
}

func (a *OpenAI) AnalyzeComment(ctx context.Context, comment string) (domain.Analysis, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(openAIInstructions),
			openai.UserMessage(comment),
		},
		Model: a.model,
	})
	if err != nil {
		return nil, apperrors.AnalysisFailed("comment analysis failed", err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.AnalysisFailed("comment analysis failed", errors.New("no choices returned"))
	}
	return parseAnalysis(resp.Choices[0].Message.Content), nil
}

// parseAnalysis decodes a JSON object reply, tolerating a surrounding
// markdown code fence. Anything else is kept as {"raw": content}.
func parseAnalysis(content string) domain.Analysis {
	body := strings.TrimSpace(content)
	if strings.HasPrefix(body, "```") {
		body = strings.TrimPrefix(body, "```json")
		body = strings.TrimPrefix(body, "```")
		body = strings.TrimSuffix(body, "```")
		body = strings.TrimSpace(body)
	}

	var analysis domain.Analysis
	if err := json.Unmarshal([]byte(body), &analysis); err != nil || analysis == nil {
		return domain.Analysis{"raw": content}
	}
	return analysis
}
