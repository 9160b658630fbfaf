package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"buggfix/internal/config"
	"buggfix/internal/domain"
)

var ErrNoSuggestion = errors.New("completion API returned no choices")

// AIFixService proxies fix-code requests to an OpenAI-compatible
// chat-completion API, instructing the model to fence the improved code
// in <AI_CODE> tags so the client parser can split code from feedback.
type AIFixService struct {
	cfg    config.AIConfig
	client *http.Client
}

func NewAIFixService(cfg config.AIConfig) *AIFixService {
	return &AIFixService{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// FixCode returns the model's raw suggestion text for the given code.
func (s *AIFixService) FixCode(ctx context.Context, req *domain.FixCodeRequest) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(string(req.Language))},
			{Role: "user", Content: userPrompt(string(req.Language), req.Code)},
		},
		Temperature: 0.5,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("completion API returned %d: %s", resp.StatusCode, detail)
	}

	var completion chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", ErrNoSuggestion
	}

	return completion.Choices[0].Message.Content, nil
}

func systemPrompt(language string) string {
	return fmt.Sprintf(`You are an advanced coding assistant specializing in %s code improvement.

Your response MUST follow this exact format with these specific markers:

1. ALWAYS place improved code between <AI_CODE> and </AI_CODE> tags
2. Do NOT include the language name, backticks, or any other markers inside these tags - ONLY the actual code
3. After the code block, provide a detailed explanation of your changes

If no significant improvements are needed, still provide the original code between <AI_CODE> and </AI_CODE> tags followed by your assessment.

IMPORTANT: The code between the <AI_CODE> tags will be automatically inserted into the user's editor. Everything else will be shown as feedback. DO NOT use backticks or any other code formatting inside or near these tags.`, language)
}

func userPrompt(language, code string) string {
	return fmt.Sprintf("Review and suggest improvements for the following %s code:\n%s", language, code)
}
