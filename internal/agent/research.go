package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	topicsFileName  = "research_topics.json"
	researchLogName = "research.log"
	topicIDMaxLen   = 50
)

// ResearchMaxSteps gives the agent enough room for the searches and
// memory writes a research session asks for.
const ResearchMaxSteps = 70

// ErrNoActiveTopics is returned by Run when the topic queue is empty.
var ErrNoActiveTopics = errors.New("no active research topics")

// ResearchTopic is one entry in the research queue. LastResearched is
// nil until the topic has been researched at least once.
type ResearchTopic struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Priority       string     `json:"priority"`
	LastResearched *time.Time `json:"last_researched"`
}

type topicsFile struct {
	Active    []ResearchTopic `json:"active"`
	Completed []ResearchTopic `json:"completed"`
}

// ResearchResult describes one completed research session.
type ResearchResult struct {
	Topic           ResearchTopic
	Findings        string
	Searches        int
	ArchivalEntries int
	BlogCreated     bool
	ToolCalls       int
}

// Researcher runs self-directed research sessions: it picks the
// stalest high-priority topic from a persistent queue, invokes the
// agent with a research prompt, and appends every session to a JSONL
// log under the data directory.
type Researcher struct {
	client     *Client
	topicsPath string
	logPath    string
}

// NewResearcher creates a researcher persisting its topic queue and
// session log under dataDir.
func NewResearcher(client *Client, dataDir string) *Researcher {
	return &Researcher{
		client:     client,
		topicsPath: filepath.Join(dataDir, topicsFileName),
		logPath:    filepath.Join(dataDir, researchLogName),
	}
}

// defaultTopics seeds the queue on first use.
func defaultTopics() []ResearchTopic {
	seeds := []struct {
		title, description, priority string
	}{
		{"ASI alignment and safety", "Current research directions in aligning artificial superintelligence with human values", "high"},
		{"Virtual reality and computation", "The computational theory of mind, simulation, and virtual worlds", "high"},
		{"Mathematics and AI", "How machine learning is changing mathematical practice and discovery", "medium"},
		{"Cypherpunk movement", "History and present of cryptography as a tool for social change", "medium"},
		{"Data science methods", "Statistical methodology, causal inference, and reproducibility", "low"},
	}

	topics := make([]ResearchTopic, 0, len(seeds))
	for _, s := range seeds {
		topics = append(topics, ResearchTopic{
			ID:          topicID(s.title),
			Title:       s.title,
			Description: s.description,
			Priority:    s.priority,
		})
	}
	return topics
}

// topicID derives a stable slug from the topic title.
func topicID(title string) string {
	id := strings.ReplaceAll(strings.ToLower(title), " ", "-")
	if len(id) > topicIDMaxLen {
		id = id[:topicIDMaxLen]
	}
	return id
}

// loadTopics reads the queue from disk, seeding the defaults when no
// file exists yet.
func (r *Researcher) loadTopics() (*topicsFile, error) {
	data, err := os.ReadFile(r.topicsPath)
	if errors.Is(err, os.ErrNotExist) {
		return &topicsFile{Active: defaultTopics()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading research topics: %w", err)
	}

	var tf topicsFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", r.topicsPath, err)
	}
	return &tf, nil
}

func (r *Researcher) saveTopics(tf *topicsFile) error {
	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding research topics: %w", err)
	}

	tmp := r.topicsPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing research topics: %w", err)
	}
	if err := os.Rename(tmp, r.topicsPath); err != nil {
		return fmt.Errorf("committing research topics: %w", err)
	}
	return nil
}

// Topics returns the active research queue.
func (r *Researcher) Topics() ([]ResearchTopic, error) {
	tf, err := r.loadTopics()
	if err != nil {
		return nil, err
	}
	return tf.Active, nil
}

// AddTopic appends a topic to the active queue. Priority defaults to
// medium when blank.
func (r *Researcher) AddTopic(title, description, priority string) (*ResearchTopic, error) {
	if title == "" {
		return nil, errors.New("topic title is required")
	}
	if priority == "" {
		priority = "medium"
	}
	switch priority {
	case "high", "medium", "low":
	default:
		return nil, fmt.Errorf("invalid priority %q (want high, medium, or low)", priority)
	}

	tf, err := r.loadTopics()
	if err != nil {
		return nil, err
	}

	topic := ResearchTopic{
		ID:          topicID(title),
		Title:       title,
		Description: description,
		Priority:    priority,
	}
	for _, t := range tf.Active {
		if t.ID == topic.ID {
			return nil, fmt.Errorf("topic %q already queued", topic.ID)
		}
	}

	tf.Active = append(tf.Active, topic)
	if err := r.saveTopics(tf); err != nil {
		return nil, err
	}
	return &topic, nil
}

// priorityRank orders topics for selection; unknown priorities sort last.
func priorityRank(p string) int {
	switch p {
	case "high":
		return 0
	case "medium":
		return 1
	case "low":
		return 2
	}
	return 3
}

// pickTopic selects the highest-priority topic, breaking ties by the
// oldest last-researched timestamp. Never-researched topics count as
// oldest.
func pickTopic(active []ResearchTopic) *ResearchTopic {
	if len(active) == 0 {
		return nil
	}

	idx := make([]int, len(active))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ta, tb := active[idx[a]], active[idx[b]]
		ra, rb := priorityRank(ta.Priority), priorityRank(tb.Priority)
		if ra != rb {
			return ra < rb
		}
		if ta.LastResearched == nil {
			return tb.LastResearched != nil
		}
		if tb.LastResearched == nil {
			return false
		}
		return ta.LastResearched.Before(*tb.LastResearched)
	})
	return &active[idx[0]]
}

// Run executes one research session: pick a topic, invoke the agent,
// stamp the topic, and log the session.
func (r *Researcher) Run(ctx context.Context) (*ResearchResult, error) {
	tf, err := r.loadTopics()
	if err != nil {
		return nil, err
	}

	topic := pickTopic(tf.Active)
	if topic == nil {
		return nil, ErrNoActiveTopics
	}

	invoked, err := r.client.Invoke(ctx, researchPrompt(*topic))
	if err != nil {
		r.logSession(*topic, "", err)
		return nil, fmt.Errorf("researching %s: %w", topic.ID, err)
	}

	result := &ResearchResult{
		Topic:     *topic,
		Findings:  invoked.Text,
		ToolCalls: len(invoked.ToolCalls),
	}
	for _, call := range invoked.ToolCalls {
		switch call.Name {
		case "web_search":
			result.Searches++
		case "archival_memory_insert":
			result.ArchivalEntries++
		case "create_whitewind_blog_post":
			result.BlogCreated = true
		}
	}

	now := time.Now()
	topic.LastResearched = &now
	if err := r.saveTopics(tf); err != nil {
		return nil, err
	}

	r.logSession(*topic, invoked.Text, nil)
	return result, nil
}

type researchLogEntry struct {
	Timestamp      time.Time `json:"timestamp"`
	Topic          string    `json:"topic"`
	TopicID        string    `json:"topic_id"`
	Success        bool      `json:"success"`
	FindingsLength int       `json:"findings_length"`
	Error          string    `json:"error,omitempty"`
}

// logSession appends one JSONL entry; logging failures are swallowed
// because the log is advisory.
func (r *Researcher) logSession(topic ResearchTopic, findings string, sessionErr error) {
	entry := researchLogEntry{
		Timestamp:      time.Now(),
		Topic:          topic.Title,
		TopicID:        topic.ID,
		Success:        sessionErr == nil,
		FindingsLength: len(findings),
	}
	if sessionErr != nil {
		entry.Error = sessionErr.Error()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	f, err := os.OpenFile(r.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	f.Write(append(data, '\n'))
}
