package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const postLogFileName = "posts.log"

// PostResult describes one autonomous posting attempt.
type PostResult struct {
	Topic  string
	Text   string
	Posted bool
}

// Poster generates unprompted original posts by invoking the agent with
// a topic drawn from the prompt pool, and appends every attempt to a
// JSONL log under the data directory.
type Poster struct {
	client    *Client
	publisher Publisher
	logPath   string
}

// NewPoster creates a poster logging attempts under dataDir.
func NewPoster(client *Client, publisher Publisher, dataDir string) *Poster {
	return &Poster{
		client:    client,
		publisher: publisher,
		logPath:   filepath.Join(dataDir, postLogFileName),
	}
}

// GeneratePost picks a topic, invokes the agent, and publishes the
// result unless dryRun is set.
func (p *Poster) GeneratePost(ctx context.Context, dryRun bool) (*PostResult, error) {
	topic := topicPrompts[rand.IntN(len(topicPrompts))]

	result, err := p.client.Invoke(ctx, autonomousPostPrompt(topic))
	if err != nil {
		p.logAttempt(topic, "", false, err)
		return nil, fmt.Errorf("generating post: %w", err)
	}

	text := truncateReply(strings.TrimSpace(result.Text))
	if text == "" {
		err := errors.New("agent did not generate post text")
		p.logAttempt(topic, "", false, err)
		return nil, err
	}

	if dryRun {
		p.logAttempt(topic, text, false, nil)
		return &PostResult{Topic: topic, Text: text}, nil
	}

	if err := p.publisher.Publish(ctx, text); err != nil {
		p.logAttempt(topic, text, false, err)
		return nil, fmt.Errorf("publishing post: %w", err)
	}

	p.logAttempt(topic, text, true, nil)
	return &PostResult{Topic: topic, Text: text, Posted: true}, nil
}

type postLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Topic     string    `json:"topic"`
	Content   string    `json:"content,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// logAttempt appends one JSONL entry; logging failures are swallowed
// because the log is advisory.
func (p *Poster) logAttempt(topic, content string, success bool, attemptErr error) {
	entry := postLogEntry{
		Timestamp: time.Now(),
		Success:   success,
		Topic:     topic,
		Content:   content,
	}
	if attemptErr != nil {
		entry.Error = attemptErr.Error()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	f, err := os.OpenFile(p.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	f.Write(append(data, '\n'))
}
