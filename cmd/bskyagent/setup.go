package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/gaugehq/bskyagent/internal/credential"
	"github.com/gaugehq/bskyagent/internal/model"
)

// setupCmd walks through the configuration interactively. Secrets go
// into the system keyring; everything else is written to the YAML
// config file.
func setupCmd(args []string) error {
	fs, configPath := newFlagSet("setup")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	var (
		username   = cfg.Bluesky.Username
		password   string
		pdsURI     = cfg.Bluesky.PDSURI
		autofollow = cfg.Bluesky.Autofollow
		agentID    = cfg.Letta.AgentID
		apiKey     string
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Bluesky handle").
				Description("The bot account (e.g., gauge.bsky.social)").
				Placeholder("handle.bsky.social").
				Value(&username).
				Validate(validateRequired("handle")),
			huh.NewInput().
				Title("App password").
				Description("Generate one under Settings > App Passwords. Stored in the system keyring. Leave blank to keep the current one.").
				EchoMode(huh.EchoModePassword).
				Value(&password),
			huh.NewInput().
				Title("PDS URL").
				Description("Personal data server").
				Value(&pdsURI).
				Validate(validateURL),
			huh.NewConfirm().
				Title("Follow back new followers?").
				Value(&autofollow),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Letta agent id").
				Description("The agent that drafts replies").
				Value(&agentID).
				Validate(validateRequired("agent id")),
			huh.NewInput().
				Title("Letta API key").
				Description("Stored in the system keyring. Leave blank to keep the current one.").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Bluesky.Username = strings.TrimSpace(username)
	cfg.Bluesky.PDSURI = strings.TrimRight(strings.TrimSpace(pdsURI), "/")
	cfg.Bluesky.Autofollow = autofollow
	cfg.Letta.AgentID = strings.TrimSpace(agentID)

	if password != "" {
		if err := credential.Set(credential.KeyBlueskyPassword, password); err != nil {
			return err
		}
	}
	if apiKey != "" {
		if err := credential.Set(credential.KeyLettaAPIKey, apiKey); err != nil {
			return err
		}
	}

	if err := model.SaveConfig(*configPath, cfg); err != nil {
		return err
	}

	fmt.Printf("configuration written to %s\n", *configPath)
	return nil
}

func validateRequired(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func validateURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("enter a full URL including https://")
	}
	return nil
}
