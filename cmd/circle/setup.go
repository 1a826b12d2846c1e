// ABOUTME: Cobra command for interactive Circle account setup.
// ABOUTME: Launches a bubbletea TUI wizard to collect and validate the API URL and token.
package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/2389-research/circle/internal/config"
	"github.com/2389-research/circle/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Connect your Circle account",
	Long:  "Interactive wizard to configure the API URL and store your login token.",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg := globalConfig
	existing, _ := globalTokens.Load()

	model := tui.NewSetupModel(cfg.API.URL, existing)

	p := tea.NewProgram(model)
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tui.SetupModel)
	if !final.ShouldSave() {
		fmt.Println("Setup cancelled.")
		return nil
	}

	apiURL, token := final.Result()
	cfg.API.URL = apiURL
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	if err := globalTokens.Save(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	configPath, err := config.GetConfigPath()
	if err != nil {
		fmt.Println("Config saved successfully.")
	} else {
		fmt.Printf("Config saved to %s\n", configPath)
	}
	return nil
}
