package ai

import (
	"LogSpectra/internal/config"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
)

const alertPrompt = "You are a senior site reliability engineer. " +
	"Please analyze the following alert summary produced from an nginx access log. " +
	"Point out which endpoints dominate request time, whether the parse error rate is worrying, " +
	"and what to investigate first. Answer in short markdown.\n\n" +
	"--- Alert Data ---\n%s\n--- End of Alert Data ---"

// maxAnswerTokens caps streamed answers to API clients.
const maxAnswerTokens = 2048

// ReportAnalyzer talks to an OpenAI compatible API about finished reports.
// It implements model.Analyzer for alert commentary and streams free-form answers for the query API.
type ReportAnalyzer struct {
	model  string
	client *openai.Client
}

// NewReportAnalyzer creates a ReportAnalyzer. A custom BaseURL points it at any compatible endpoint.
func NewReportAnalyzer(cfg *config.AIConfig) (*ReportAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("AI API key is not configured")
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &ReportAnalyzer{model: cfg.Model, client: openai.NewClientWithConfig(clientConfig)}, nil
}

func (a *ReportAnalyzer) request(prompt string, maxTokens int, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:     a.model,
		MaxTokens: maxTokens,
		Stream:    stream,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
}

// wrapError names context failures separately from API errors.
func wrapError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("AI request timeout: %w", err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("AI request canceled by client: %w", err)
	default:
		return fmt.Errorf("OpenAI API error: %w", err)
	}
}

// AnalyzeReport asks the model to comment on triggered alerts and the slowest endpoints.
func (a *ReportAnalyzer) AnalyzeReport(ctx context.Context, input string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, a.request(fmt.Sprintf(alertPrompt, input), 0, false))
	if err != nil {
		return "", wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI API returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// AnalyzeStream sends prompt as is and hands every content delta to sendChunk as it arrives.
// An error from sendChunk stops the stream.
func (a *ReportAnalyzer) AnalyzeStream(ctx context.Context, prompt string, sendChunk func(string) error) error {
	stream, err := a.client.CreateChatCompletionStream(ctx, a.request(prompt, maxAnswerTokens, true))
	if err != nil {
		return wrapError(err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return wrapError(err)
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		if err := sendChunk(resp.Choices[0].Delta.Content); err != nil {
			return fmt.Errorf("failed to send chunk: %w", err)
		}
	}
}
