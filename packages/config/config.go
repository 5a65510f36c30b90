package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfig is wrapped by every configuration validation error.
var ErrConfig = errors.New("invalid configuration")

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DefaultModel         = "gpt-4o"
	DefaultMaxTokens     = 200
	DefaultBaseURL       = "https://api.openai.com/v1"
	DefaultPatchFile     = "changes.patch"
	DefaultIssueTitle    = "No issue title provided"
	DefaultIssueBody     = "No issue body provided"
	DefaultLogLevel      = "info"
	DefaultGeminiModel   = "gemini-2.5-flash"
	configPathEnvVar     = "AIPR_CONFIG"
	defaultTargetDirPath = "."
)

// Config represents the application configuration
type Config struct {
	Issue      IssueConfig      `yaml:"issue"`
	AI         AIConfig         `yaml:"ai"`
	Repository RepositoryConfig `yaml:"repository"`
	GitHub     GitHubConfig     `yaml:"github"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// IssueConfig contains the issue the patch is generated for
type IssueConfig struct {
	Title  string `yaml:"title"`
	Body   string `yaml:"body"`
	Number int    `yaml:"number"`
}

// AIConfig contains completion backend configuration
type AIConfig struct {
	Provider       string        `yaml:"provider"`
	APIKey         string        `yaml:"api_key"`
	GeminiAPIKey   string        `yaml:"gemini_api_key"`
	Model          string        `yaml:"model"`
	MaxTokens      int           `yaml:"max_tokens"`
	ChunkSize      int           `yaml:"chunk_size"`
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// RepositoryConfig contains target tree and patch output configuration
type RepositoryConfig struct {
	TargetDirectory  string `yaml:"target_directory"`
	PatchFile        string `yaml:"patch_file"`
	RespectGitignore bool   `yaml:"respect_gitignore"`
}

// GitHubConfig contains the optional issue source
type GitHubConfig struct {
	Repository string `yaml:"repository"`
	Token      string `yaml:"token"`
}

// LoggingConfig contains log output configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Issue: IssueConfig{
			Title: DefaultIssueTitle,
			Body:  DefaultIssueBody,
		},
		AI: AIConfig{
			Provider:  ProviderOpenAI,
			MaxTokens: DefaultMaxTokens,
			BaseURL:   DefaultBaseURL,
		},
		Repository: RepositoryConfig{
			TargetDirectory: defaultTargetDirPath,
			PatchFile:       DefaultPatchFile,
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
		},
	}
}

// LoadConfig builds the configuration from the optional YAML file at
// configPath (falling back to $AIPR_CONFIG) overlaid by the process
// environment.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = os.Getenv(configPathEnvVar)
	}
	return load(configPath, os.LookupEnv)
}

func load(configPath string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.readFile(configPath); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) readFile(configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: config file not found: %s", ErrConfig, configPath)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: failed to parse config file: %v", ErrConfig, err)
	}
	return nil
}

// applyEnv overrides file values with environment variables. Empty values
// count as unset.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return "", false
		}
		return v, true
	}

	if v, ok := get("ISSUE_TITLE"); ok {
		c.Issue.Title = v
	}
	if v, ok := get("ISSUE_BODY"); ok {
		c.Issue.Body = v
	}
	if v, ok := get("OPENAI_API_KEY"); ok {
		c.AI.APIKey = v
	}
	if v, ok := get("GEMINI_API_KEY"); ok {
		c.AI.GeminiAPIKey = v
	}
	if v, ok := get("OPENAI_MODEL"); ok {
		c.AI.Model = v
	}
	if v, ok := get("OPENAI_BASE_URL"); ok {
		c.AI.BaseURL = v
	}
	if v, ok := get("AIPR_PROVIDER"); ok {
		c.AI.Provider = strings.ToLower(v)
	}
	if v, ok := get("TARGET_DIRECTORY"); ok {
		c.Repository.TargetDirectory = v
	}
	if v, ok := get("AIPR_PATCH_FILE"); ok {
		c.Repository.PatchFile = v
	}
	if v, ok := get("GITHUB_REPOSITORY"); ok {
		c.GitHub.Repository = v
	}
	if v, ok := get("GITHUB_TOKEN"); ok {
		c.GitHub.Token = v
	}
	if v, ok := get("AIPR_LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	if v, ok := get("AIPR_LOG_FILE"); ok {
		c.Logging.File = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"OPENAI_TOKENS", &c.AI.MaxTokens},
		{"FILE_CHUNKS", &c.AI.ChunkSize},
		{"ISSUE_NUMBER", &c.Issue.Number},
	}
	for _, i := range ints {
		v, ok := get(i.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer, got %q", ErrConfig, i.key, v)
		}
		*i.dst = n
	}

	if v, ok := get("AIPR_REQUEST_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: AIPR_REQUEST_TIMEOUT must be a duration, got %q", ErrConfig, v)
		}
		c.AI.RequestTimeout = d
	}

	if v, ok := get("AIPR_RESPECT_GITIGNORE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: AIPR_RESPECT_GITIGNORE must be a boolean, got %q", ErrConfig, v)
		}
		c.Repository.RespectGitignore = b
	}

	return nil
}

func (c *Config) normalize() error {
	// A zero token limit means "use the default".
	if c.AI.MaxTokens == 0 {
		c.AI.MaxTokens = DefaultMaxTokens
	}
	if c.AI.Model == "" {
		if c.AI.Provider == ProviderGemini {
			c.AI.Model = DefaultGeminiModel
		} else {
			c.AI.Model = DefaultModel
		}
	}
	if c.AI.BaseURL == "" {
		c.AI.BaseURL = DefaultBaseURL
	}
	c.AI.BaseURL = strings.TrimSuffix(c.AI.BaseURL, "/")
	if c.Repository.PatchFile == "" {
		c.Repository.PatchFile = DefaultPatchFile
	}
	if c.Repository.TargetDirectory == "" {
		c.Repository.TargetDirectory = defaultTargetDirPath
	}

	abs, err := filepath.Abs(c.Repository.TargetDirectory)
	if err != nil {
		return fmt.Errorf("failed to resolve target directory: %w", err)
	}
	c.Repository.TargetDirectory = abs
	return nil
}

// Validate checks the invariants a run depends on.
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case ProviderOpenAI:
		if c.AI.APIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is required", ErrConfig)
		}
	case ProviderGemini:
		if c.AI.GeminiAPIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY is required for the gemini provider", ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrConfig, c.AI.Provider)
	}

	if c.AI.MaxTokens < 0 {
		return fmt.Errorf("%w: OPENAI_TOKENS must not be negative", ErrConfig)
	}
	if c.AI.ChunkSize < 0 {
		return fmt.Errorf("%w: FILE_CHUNKS must not be negative", ErrConfig)
	}
	if c.AI.RequestTimeout < 0 {
		return fmt.Errorf("%w: request timeout must not be negative", ErrConfig)
	}
	if c.Issue.Number < 0 {
		return fmt.Errorf("%w: ISSUE_NUMBER must not be negative", ErrConfig)
	}
	if c.GitHub.Repository != "" && len(strings.Split(c.GitHub.Repository, "/")) != 2 {
		return fmt.Errorf("%w: GITHUB_REPOSITORY must be owner/repo, got %q", ErrConfig, c.GitHub.Repository)
	}
	return nil
}

// PatchPath returns the absolute path of the patch artifact. Relative patch
// file names resolve against the working directory.
func (c *Config) PatchPath() (string, error) {
	return filepath.Abs(c.Repository.PatchFile)
}

// FetchIssue reports whether the issue should be read from GitHub instead of
// the configured title and body.
func (c *Config) FetchIssue() bool {
	return c.Issue.Number > 0 && c.GitHub.Repository != ""
}
