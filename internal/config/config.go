package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/pders01/repo-mechanic/internal/github"
)

const (
	// ProviderGemini selects the Gemini backend
	ProviderGemini = "gemini"
	// ProviderOllama selects a local Ollama server
	ProviderOllama = "ollama"
	// ProviderAnthropic selects the Anthropic Messages API
	ProviderAnthropic = "anthropic"

	// DefaultModel is used when neither config nor settings name one
	DefaultModel = "gemini-3-flash-preview"
	// DefaultOllamaURL is the default Ollama API endpoint
	DefaultOllamaURL = "http://localhost:11434"
)

// SetDefaults registers every default on the global viper instance.
func SetDefaults() {
	viper.SetDefault("llm.provider", ProviderGemini)
	viper.SetDefault("llm.model", DefaultModel)
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.ollama_url", DefaultOllamaURL)

	viper.SetDefault("github.api_url", github.DefaultAPIURL)
	viper.SetDefault("github.raw_url", github.DefaultRawURL)
	viper.SetDefault("github.token", "")
	viper.SetDefault("github.timeout", github.DefaultTimeout)

	viper.SetDefault("ingest.max_files", github.DefaultMaxFiles)
	viper.SetDefault("ingest.max_file_size", github.DefaultMaxFileSize)
	viper.SetDefault("ingest.ignore_dirs", github.DefaultIgnoreDirs)
	viper.SetDefault("ingest.extensions", github.DefaultExtensions)

	viper.SetDefault("research.phases", 4)
	viper.SetDefault("research.phase_delay", 800*time.Millisecond)
	viper.SetDefault("research.thinking_budget", 32768)

	viper.SetDefault("analysis.diagram_concurrency", 4)

	viper.SetDefault("embeddings.enabled", true)
	viper.SetDefault("embeddings.model", "nomic-embed-text")
	viper.SetDefault("search.keyword_weight", 0.3)
	viper.SetDefault("search.semantic_weight", 0.7)

	viper.SetDefault("session.dir", defaultSessionDir())
	viper.SetDefault("log.level", "warn")
}

func defaultSessionDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "repomech")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".repomech"
	}
	return filepath.Join(home, ".cache", "repomech")
}

// GetProvider returns the configured LLM backend name
func GetProvider() string {
	return strings.ToLower(strings.TrimSpace(viper.GetString("llm.provider")))
}

// GetModel returns the configured model id
func GetModel() string {
	return viper.GetString("llm.model")
}

// GetAPIKey returns the LLM API key. For Gemini the conventional
// environment variables are consulted when no key is configured.
func GetAPIKey() string {
	if key := viper.GetString("llm.api_key"); key != "" {
		return key
	}
	switch GetProvider() {
	case ProviderGemini:
		for _, env := range []string{"GEMINI_API_KEY", "API_KEY"} {
			if key := os.Getenv(env); key != "" {
				return key
			}
		}
	case ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return ""
}

// GetOllamaURL returns the Ollama endpoint
func GetOllamaURL() string {
	return viper.GetString("llm.ollama_url")
}

// GetGitHubAPIURL returns the GitHub REST endpoint
func GetGitHubAPIURL() string {
	return viper.GetString("github.api_url")
}

// GetGitHubRawURL returns the raw content endpoint
func GetGitHubRawURL() string {
	return viper.GetString("github.raw_url")
}

// GetGitHubToken returns the token from config, if any
func GetGitHubToken() string {
	return viper.GetString("github.token")
}

// GetGitHubTimeout returns the per-request timeout
func GetGitHubTimeout() time.Duration {
	return viper.GetDuration("github.timeout")
}

// GetMaxFiles returns the ingestion file cap
func GetMaxFiles() int {
	return viper.GetInt("ingest.max_files")
}

// GetMaxFileSize returns the per-file byte cap
func GetMaxFileSize() int {
	return viper.GetInt("ingest.max_file_size")
}

// GetIgnoreDirs returns the ignored path segments
func GetIgnoreDirs() []string {
	return viper.GetStringSlice("ingest.ignore_dirs")
}

// GetExtensions returns the extension allow-list
func GetExtensions() []string {
	return viper.GetStringSlice("ingest.extensions")
}

// GetResearchPhases returns the number of research phases
func GetResearchPhases() int {
	return viper.GetInt("research.phases")
}

// GetResearchPhaseDelay returns the pause between research phases
func GetResearchPhaseDelay() time.Duration {
	return viper.GetDuration("research.phase_delay")
}

// GetThinkingBudget returns the research thinking budget
func GetThinkingBudget() int32 {
	return viper.GetInt32("research.thinking_budget")
}

// GetDiagramConcurrency returns how many diagrams are generated at once
func GetDiagramConcurrency() int {
	return viper.GetInt("analysis.diagram_concurrency")
}

// GetEmbeddingsEnabled returns whether semantic search is attempted
func GetEmbeddingsEnabled() bool {
	return viper.GetBool("embeddings.enabled")
}

// GetEmbeddingModel returns the Ollama model used for embeddings
func GetEmbeddingModel() string {
	return viper.GetString("embeddings.model")
}

// GetKeywordWeight returns the weight for keyword matching in hybrid search
func GetKeywordWeight() float64 {
	return viper.GetFloat64("search.keyword_weight")
}

// GetSemanticWeight returns the weight for semantic similarity in hybrid search
func GetSemanticWeight() float64 {
	return viper.GetFloat64("search.semantic_weight")
}

// GetSessionDir returns the directory holding the session snapshot and settings
func GetSessionDir() string {
	return viper.GetString("session.dir")
}

// GetLogLevel returns the configured log level
func GetLogLevel() string {
	return viper.GetString("log.level")
}

// IngestOptions assembles ingestion bounds from configuration
func IngestOptions() github.IngestOptions {
	return github.IngestOptions{
		Filter: github.FilterOptions{
			IgnoreDirs: GetIgnoreDirs(),
			Extensions: GetExtensions(),
			MaxFiles:   GetMaxFiles(),
		},
		MaxFileSize: GetMaxFileSize(),
	}
}

// File is the on-disk layout written by `repomech init`.
type File struct {
	LLM        LLMSection        `toml:"llm"`
	GitHub     GitHubSection     `toml:"github"`
	Ingest     IngestSection     `toml:"ingest"`
	Research   ResearchSection   `toml:"research"`
	Analysis   AnalysisSection   `toml:"analysis"`
	Embeddings EmbeddingsSection `toml:"embeddings"`
	Search     SearchSection     `toml:"search"`
	Log        LogSection        `toml:"log"`
}

type LLMSection struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	OllamaURL string `toml:"ollama_url"`
}

type GitHubSection struct {
	APIURL  string `toml:"api_url"`
	RawURL  string `toml:"raw_url"`
	Timeout string `toml:"timeout"`
}

type IngestSection struct {
	MaxFiles    int      `toml:"max_files"`
	MaxFileSize int      `toml:"max_file_size"`
	IgnoreDirs  []string `toml:"ignore_dirs"`
	Extensions  []string `toml:"extensions"`
}

type ResearchSection struct {
	Phases         int    `toml:"phases"`
	PhaseDelay     string `toml:"phase_delay"`
	ThinkingBudget int    `toml:"thinking_budget"`
}

type AnalysisSection struct {
	DiagramConcurrency int `toml:"diagram_concurrency"`
}

type EmbeddingsSection struct {
	Enabled bool   `toml:"enabled"`
	Model   string `toml:"model"`
}

type SearchSection struct {
	KeywordWeight  float64 `toml:"keyword_weight"`
	SemanticWeight float64 `toml:"semantic_weight"`
}

type LogSection struct {
	Level string `toml:"level"`
}

// Default returns the configuration file matching the built-in defaults.
// Secrets are left out; they belong in the environment or settings.
func Default() File {
	return File{
		LLM:    LLMSection{Provider: ProviderGemini, Model: DefaultModel, OllamaURL: DefaultOllamaURL},
		GitHub: GitHubSection{APIURL: github.DefaultAPIURL, RawURL: github.DefaultRawURL, Timeout: github.DefaultTimeout.String()},
		Ingest: IngestSection{
			MaxFiles:    github.DefaultMaxFiles,
			MaxFileSize: github.DefaultMaxFileSize,
			IgnoreDirs:  github.DefaultIgnoreDirs,
			Extensions:  github.DefaultExtensions,
		},
		Research:   ResearchSection{Phases: 4, PhaseDelay: (800 * time.Millisecond).String(), ThinkingBudget: 32768},
		Analysis:   AnalysisSection{DiagramConcurrency: 4},
		Embeddings: EmbeddingsSection{Enabled: true, Model: "nomic-embed-text"},
		Search:     SearchSection{KeywordWeight: 0.3, SemanticWeight: 0.7},
		Log:        LogSection{Level: "warn"},
	}
}

// Write encodes f as TOML to path, creating parent directories.
func Write(path string, f File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer out.Close()

	if err := toml.NewEncoder(out).Encode(f); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Path returns the default config file location
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "repomech", "config.toml"), nil
}
