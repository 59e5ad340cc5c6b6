package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultBaseURL  = "https://api.letta.com"
	defaultMaxSteps = 50
)

// APIError is a non-2xx response from the Letta API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("letta api error: status %d: %s", e.StatusCode, e.Body)
}

// Client is a thin HTTP client for the Letta agent API. Requests run
// under the caller's context deadline; the client itself sets no
// timeout because agent invocations are legitimately slow.
type Client struct {
	baseURL    string
	apiKey     string
	agentID    string
	maxSteps   int
	httpClient *http.Client
}

// NewClient creates a Letta client bound to one agent.
func NewClient(baseURL, apiKey, agentID string, maxSteps int) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		agentID:    agentID,
		maxSteps:   maxSteps,
		httpClient: &http.Client{},
	}
}

// ToolCall is one tool invocation the agent made while handling a message.
type ToolCall struct {
	Name      string
	Arguments string
}

// InvokeResult is the collected output of one agent invocation.
type InvokeResult struct {
	// Text is the concatenated assistant message text.
	Text string

	// ToolCalls lists the tools the agent invoked.
	ToolCalls []ToolCall
}

type invokeRequest struct {
	Messages []invokeMessage `json:"messages"`
	MaxSteps int             `json:"max_steps,omitempty"`
}

type invokeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type invokeResponseMessage struct {
	MessageType string `json:"message_type"`
	Content     string `json:"content"`
	ToolCall    *struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"tool_call"`
}

type invokeResponse struct {
	Messages []invokeResponseMessage `json:"messages"`
}

// Invoke sends one user message to the agent and collects the response.
func (c *Client) Invoke(ctx context.Context, prompt string) (*InvokeResult, error) {
	reqBody := invokeRequest{
		Messages: []invokeMessage{{Role: "user", Content: prompt}},
		MaxSteps: c.maxSteps,
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling agent request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/agents/%s/messages", c.baseURL, c.agentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating agent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoking agent %s: %w", c.agentID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading agent response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var parsed invokeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding agent response: %w", err)
	}

	result := &InvokeResult{}
	var parts []string
	for _, m := range parsed.Messages {
		switch m.MessageType {
		case "assistant_message":
			if m.Content != "" {
				parts = append(parts, m.Content)
			}
		case "tool_call_message":
			if m.ToolCall != nil {
				result.ToolCalls = append(result.ToolCalls, ToolCall{
					Name:      m.ToolCall.Name,
					Arguments: m.ToolCall.Arguments,
				})
			}
		}
	}
	result.Text = strings.TrimSpace(strings.Join(parts, "\n"))

	return result, nil
}
