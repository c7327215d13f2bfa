package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"github.com/cosmin-sisman/monday-project-generator/domain"
)

// ErrEmptyResponse is returned when the API answers without content.
var ErrEmptyResponse = errors.New("no response from AI")

// Client talks to the chat-completions endpoint.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a client; zero Config fields fall back to documented defaults.
func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens"`
	TopP           float64       `json:"top_p"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// GenerateProject turns a free-text description into a schema-validated
// board structure. Validation failure fails the whole call; nothing is
// persisted by the caller in that case.
func (c *Client) GenerateProject(ctx context.Context, input string) (domain.GeneratedProject, error) {
	messages := []chatMessage{
		{Role: "system", Content: generateSystemPrompt},
		{Role: "user", Content: "Create a structured project plan for the following description:\n\n" + input},
	}
	content, err := c.complete(ctx, messages)
	if err != nil {
		return domain.GeneratedProject{}, err
	}

	var gen domain.GeneratedProject
	if err := sonic.Unmarshal([]byte(content), &gen); err != nil {
		return domain.GeneratedProject{}, fmt.Errorf("parse AI response: %w", err)
	}
	if err := gen.Validate(); err != nil {
		return domain.GeneratedProject{}, fmt.Errorf("AI response failed validation: %w", err)
	}
	return gen, nil
}

// ChatReply is the assistant's answer to a conversational edit. When
// UpdatedProject is set the caller runs the reconciliation protocol.
type ChatReply struct {
	Message          string                  `json:"message"`
	ActionsPerformed []string                `json:"actions_performed"`
	UpdatedProject   *domain.ProposedProject `json:"updated_project"`
}

// Chat sends the user's message with the project context and prior
// transcript, and parses the structured reply. A reply whose updated_project
// fails validation fails the whole change-request before any write.
func (c *Client) Chat(ctx context.Context, project domain.Project, history []domain.ConversationTurn, message string) (ChatReply, error) {
	messages := make([]chatMessage, 0, len(history)+2)
	messages = append(messages, chatMessage{Role: "system", Content: chatSystemPrompt(project)})
	for _, turn := range history {
		messages = append(messages, chatMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: message})

	content, err := c.complete(ctx, messages)
	if err != nil {
		return ChatReply{}, err
	}

	var reply ChatReply
	if err := sonic.Unmarshal([]byte(content), &reply); err != nil {
		return ChatReply{}, fmt.Errorf("parse AI response: %w", err)
	}
	if reply.Message == "" {
		return ChatReply{}, ErrEmptyResponse
	}
	if reply.UpdatedProject != nil {
		if err := reply.UpdatedProject.Validate(); err != nil {
			return ChatReply{}, fmt.Errorf("AI response failed validation: %w", err)
		}
	}
	return reply, nil
}

func (c *Client) complete(ctx context.Context, messages []chatMessage) (string, error) {
	if c.cfg.APIKey == "" {
		return "", errors.New("AI API key is not configured")
	}

	req := completionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		TopP:        c.cfg.TopP,
	}
	req.ResponseFormat.Type = "json_object"

	body, err := sonic.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * initialRetryDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("AI request failed: %w", err)
			continue
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read AI response: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			var apiErr apiError
			if sonic.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
				lastErr = fmt.Errorf("AI API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
			} else {
				lastErr = fmt.Errorf("AI API error (%d)", resp.StatusCode)
			}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				continue
			}
			return "", lastErr
		}

		var completion completionResponse
		if err := sonic.Unmarshal(respBody, &completion); err != nil {
			return "", fmt.Errorf("decode AI response: %w", err)
		}
		if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
			return "", ErrEmptyResponse
		}
		return completion.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}
