// Package followup drafts and registers AI follow-up sequences against an
// OpenAI-compatible completion endpoint.
package followup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"tourcrm_backend/internal/followup/repository"
	"tourcrm_backend/platform/config"
	"tourcrm_backend/platform/logger"

	"github.com/google/uuid"
)

const systemPrompt = `You draft the first touch of a follow-up sequence for a tour operator's
sales team. Write one short, friendly message referencing the customer's
trip context. Plain text only.`

type Sequencer struct {
	baseURL string
	apiKey  string
	model   string
	enabled bool
	client  *http.Client
	repo    *repository.Repository
	log     *logger.Logger
}

func NewSequencer(cfg config.FollowUpConfig, repo *repository.Repository, log *logger.Logger) *Sequencer {
	return &Sequencer{
		baseURL: cfg.GetFollowUpAPIURL(),
		apiKey:  cfg.GetFollowUpAPIKey(),
		model:   cfg.GetFollowUpModel(),
		enabled: cfg.IsFollowUpEnabled(),
		client:  &http.Client{Timeout: cfg.GetFollowUpTimeout()},
		repo:    repo,
		log:     log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error interface{} `json:"error"`
}

// StartSequence drafts the first follow-up touch and registers the sequence.
// When the sequencer is disabled by config it hands back a stub execution id
// so callers can treat the step as done without branching.
func (s *Sequencer) StartSequence(ctx context.Context, tenantID uuid.UUID, customerID uuid.UUID, trigger string, contextData map[string]string) (string, error) {
	if !s.enabled {
		return "stub-" + uuid.NewString(), nil
	}

	draft, err := s.draftFirstTouch(ctx, trigger, contextData)
	if err != nil {
		return "", err
	}

	seq, err := s.repo.Create(ctx, repository.CreateParams{
		TenantID:   tenantID,
		CustomerID: customerID,
		Trigger:    trigger,
		Draft:      draft,
		Model:      s.model,
	})
	if err != nil {
		return "", err
	}
	return seq.ID.String(), nil
}

func (s *Sequencer) draftFirstTouch(ctx context.Context, trigger string, contextData map[string]string) (string, error) {
	var prompt strings.Builder
	prompt.WriteString("Trigger: " + trigger + "\n")
	for key, value := range contextData {
		prompt.WriteString(key + ": " + value + "\n")
	}

	payload := map[string]interface{}{
		"model": s.model,
		"messages": []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt.String()},
		},
	}

	jsonBody, _ := json.Marshal(payload)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode follow-up response: %v", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("follow-up api error: %v", result.Error)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("follow-up api error: empty choices")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
