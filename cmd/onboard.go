package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/hollyrath/scrybot/internal/config"
	"github.com/hollyrath/scrybot/internal/mastodon"
)

func onboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Interactive setup wizard",
		Long:  "Prompts for the Mastodon instance and access token, verifies the credentials, and writes the config file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnboard()
		},
	}
}

func runOnboard() error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Mastodon instance URL").
				Placeholder("https://botsin.space").
				Value(&cfg.Instance).
				Validate(func(s string) error {
					if !strings.HasPrefix(s, "https://") && !strings.HasPrefix(s, "http://") {
						return fmt.Errorf("must start with https://")
					}
					return nil
				}),
			huh.NewInput().
				Title("Access token").
				Description("From your instance: Preferences → Development → New application (scopes: read, write, follow).").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.AccessToken),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	account, err := verifyAccount(cfg)
	if err != nil {
		return fmt.Errorf("credential check failed: %w", err)
	}
	fmt.Printf("Authenticated as @%s\n", account.Acct)

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(cfgPath, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Printf("Config written to %s — start the bot with: scrybot\n", cfgPath)
	return nil
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that the configured credentials work",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			account, err := verifyAccount(cfg)
			if err != nil {
				return err
			}
			fmt.Printf("OK: authenticated as @%s on %s\n", account.Acct, cfg.Instance)
			return nil
		},
	}
}

func verifyAccount(cfg *config.Config) (*mastodon.Account, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return mastodon.NewClient(cfg.Instance, cfg.AccessToken).VerifyCredentials(ctx)
}
