package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/gaugehq/bskyagent/internal/agent"
	"github.com/gaugehq/bskyagent/internal/coordinator"
	"github.com/gaugehq/bskyagent/internal/credential"
	"github.com/gaugehq/bskyagent/internal/feed/bluesky"
	"github.com/gaugehq/bskyagent/internal/inspect"
	"github.com/gaugehq/bskyagent/internal/model"
	"github.com/gaugehq/bskyagent/internal/queue"
	"github.com/gaugehq/bskyagent/internal/store"
)

const trackingDBFileName = "tracking.db"

// newFlagSet creates a flag set with the shared --config flag and a
// quiet error mode so main formats errors uniformly.
func newFlagSet(name string) (*pflag.FlagSet, *string) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	configPath := fs.String("config", model.DefaultConfigPath(), "path to the config file")
	return fs, configPath
}

// app bundles the collaborators most commands need.
type app struct {
	cfg   *model.AppConfig
	log   *logrus.Logger
	store *store.SQLiteStore
	queue *queue.Queue
}

// openApp loads configuration and opens the durable collections under
// the data directory.
func openApp(configPath string) (*app, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Bot.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", cfg.Bot.DataDir, err)
	}

	s, err := store.NewSQLiteStore(filepath.Join(cfg.Bot.DataDir, trackingDBFileName))
	if err != nil {
		return nil, err
	}

	q, err := queue.Open(cfg.Bot.DataDir)
	if err != nil {
		s.Close()
		return nil, err
	}

	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)

	return &app{cfg: cfg, log: log, store: s, queue: q}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("closing tracking store")
	}
}

func (a *app) inspector() *inspect.Service {
	return inspect.New(a.store, a.queue)
}

// blueskyPassword resolves the app password from config or, when the
// config leaves it blank, from the system keyring.
func (a *app) blueskyPassword() (string, error) {
	if a.cfg.Bluesky.Password != "" {
		return a.cfg.Bluesky.Password, nil
	}
	pw, err := credential.Get(credential.KeyBlueskyPassword)
	if err != nil {
		return "", fmt.Errorf("no Bluesky app password configured (run 'bskyagent setup'): %w", err)
	}
	return pw, nil
}

// lettaAPIKey resolves the agent API key from config or the keyring.
func (a *app) lettaAPIKey() (string, error) {
	if a.cfg.Letta.APIKey != "" {
		return a.cfg.Letta.APIKey, nil
	}
	key, err := credential.Get(credential.KeyLettaAPIKey)
	if err != nil {
		return "", fmt.Errorf("no Letta API key configured (run 'bskyagent setup'): %w", err)
	}
	return key, nil
}

// feedAdapter builds the Bluesky adapter with credentials resolved.
func (a *app) feedAdapter() (*bluesky.Adapter, error) {
	if a.cfg.Bluesky.Username == "" {
		return nil, fmt.Errorf("no Bluesky username configured (run 'bskyagent setup')")
	}
	password, err := a.blueskyPassword()
	if err != nil {
		return nil, err
	}

	client := bluesky.NewClient(a.cfg.Bluesky.PDSURI, a.cfg.Bluesky.Username, password)
	return bluesky.NewAdapter(client, a.cfg.Bot.DataDir), nil
}

// agentClient builds the Letta client with credentials resolved.
func (a *app) agentClient() (*agent.Client, error) {
	return a.agentClientSteps(a.cfg.Letta.MaxSteps)
}

// agentClientSteps builds the Letta client with an explicit step budget
// for commands that need more room than the configured default.
func (a *app) agentClientSteps(maxSteps int) (*agent.Client, error) {
	if a.cfg.Letta.AgentID == "" {
		return nil, fmt.Errorf("no Letta agent id configured (run 'bskyagent setup')")
	}
	apiKey, err := a.lettaAPIKey()
	if err != nil {
		return nil, err
	}
	return agent.NewClient(a.cfg.Letta.BaseURL, apiKey, a.cfg.Letta.AgentID, maxSteps), nil
}

// responder wires the Letta responder over the given publisher.
func (a *app) responder(publisher agent.Publisher) (*agent.LettaResponder, error) {
	client, err := a.agentClient()
	if err != nil {
		return nil, err
	}
	opts := agent.ResponderOptions{
		Autofollow:     a.cfg.Bluesky.Autofollow,
		MaxThreadPosts: a.cfg.Bot.MaxThreadPosts,
	}
	return agent.NewLettaResponder(client, publisher, opts, a.log), nil
}

// coordinatorConfig maps the bot config onto coordinator tuning.
func (a *app) coordinatorConfig() coordinator.Config {
	return coordinator.Config{
		PollPageSize:     a.cfg.Bot.PollPageSize,
		RetryCeiling:     a.cfg.Bot.RetryCeiling,
		RetryBackoff:     time.Duration(a.cfg.Bot.RetryBackoffSec) * time.Second,
		ResponderTimeout: time.Duration(a.cfg.Bot.ResponderTimeoutSec) * time.Second,
	}
}
