package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pders01/repo-mechanic/internal/config"
)

var (
	settingsModel      string
	settingsToken      string
	settingsClearToken bool
	settingsClearModel bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the model and GitHub token",
	Long: `Settings override the configuration file and survive session resets.

Without flags the current settings are shown with the token masked.

Examples:
  repomech settings
  repomech settings --model gemini-2.5-flash
  repomech settings --token ghp_xxx
  repomech settings --clear-token`,
	Args: cobra.NoArgs,
	RunE: runSettings,
}

func init() {
	rootCmd.AddCommand(settingsCmd)

	settingsCmd.Flags().StringVar(&settingsModel, "model", "", "Model to use for every mode")
	settingsCmd.Flags().StringVar(&settingsToken, "token", "", "GitHub token for ingestion")
	settingsCmd.Flags().BoolVar(&settingsClearToken, "clear-token", false, "Remove the stored GitHub token")
	settingsCmd.Flags().BoolVar(&settingsClearModel, "clear-model", false, "Fall back to the configured model")
}

func runSettings(cmd *cobra.Command, args []string) error {
	st := openSettings()
	s := st.Get()

	changed := false
	if settingsModel != "" {
		s.SelectedModel = settingsModel
		changed = true
	}
	if settingsClearModel {
		s.SelectedModel = ""
		changed = true
	}
	if settingsToken != "" {
		s.GitHubToken = settingsToken
		changed = true
	}
	if settingsClearToken {
		s.GitHubToken = ""
		changed = true
	}

	if changed {
		if err := st.Save(s); err != nil {
			return err
		}
		successf("Settings saved")
		s = st.Get()
	}

	model := s.SelectedModel
	source := "settings"
	if model == "" {
		model, source = config.GetModel(), "config"
	}
	fmt.Printf("Provider: %s\n", config.GetProvider())
	fmt.Printf("Model:    %s (%s)\n", model, source)

	token, source := s.GitHubToken, "settings"
	if token == "" {
		token, source = config.GetGitHubToken(), "config"
	}
	if token == "" {
		fmt.Println("Token:    none (unauthenticated rate limits apply)")
	} else {
		fmt.Printf("Token:    %s (%s)\n", maskToken(token), source)
	}
	return nil
}

// maskToken keeps the first and last four characters
func maskToken(t string) string {
	if len(t) <= 8 {
		return strings.Repeat("*", len(t))
	}
	return t[:4] + strings.Repeat("*", len(t)-8) + t[len(t)-4:]
}
