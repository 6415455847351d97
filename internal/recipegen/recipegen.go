// Package recipegen turns a free-form prompt into a structured recipe
// through the chat-completions API.
package recipegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/zapcooking/backend/internal/models"
)

const systemPrompt = "You are a recipe writer. Answer with a single JSON object " +
	"with the fields title, summary, ingredients (array of strings) and " +
	"directions (array of strings). No prose outside the JSON."

var (
	ErrDisabled    = errors.New("recipe generation is disabled")
	ErrEmptyPrompt = errors.New("empty prompt")
)

type Service struct {
	enabled bool
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.SugaredLogger
}

func NewService(enabled bool, baseURL string, apiKey string, logger *zap.SugaredLogger) *Service {
	return &Service{
		enabled: enabled,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatReq struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatRes struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (s *Service) Generate(ctx context.Context, prompt string) (*models.GeneratedRecipe, error) {
	if !s.enabled {
		return nil, ErrDisabled
	}
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	body, err := json.Marshal(chatReq{
		Model: "gpt-4o-mini",
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error encoding completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error building completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("completion API responded %d", res.StatusCode)
	}

	var completion chatRes
	if err := json.NewDecoder(res.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("error decoding completion response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("completion response has no choices")
	}

	var recipe models.GeneratedRecipe
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &recipe); err != nil {
		return nil, fmt.Errorf("error decoding generated recipe: %w", err)
	}

	return &recipe, nil
}
