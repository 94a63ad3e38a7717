package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pders01/repo-mechanic/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the default configuration",
	Long: `Write ~/.config/repomech/config.toml with the built-in defaults and create
the session directory.

An existing config file is left alone unless --force is given. API keys are
never written; set GEMINI_API_KEY, ANTHROPIC_API_KEY or REPOMECH_LLM_API_KEY
in the environment.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := cfgFile
	if configPath == "" {
		p, err := config.Path()
		if err != nil {
			return err
		}
		configPath = p
	}

	if _, err := os.Stat(configPath); err == nil && !initForce {
		fmt.Printf("Config already exists: %s\n", configPath)
	} else {
		if err := config.Write(configPath, config.Default()); err != nil {
			return err
		}
		successf("Created default config: %s", configPath)
	}

	dir := config.GetSessionDir()
	if err := sessionFs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	fmt.Printf("  Session directory: %s\n", dir)

	fmt.Println("\n✓ repomech initialized successfully!")
	fmt.Println("  You can now use: repomech ingest <github-url>")
	return nil
}
