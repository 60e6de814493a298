package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const defaultMatchTimeoutMS = 2000

type Config struct {
	Policy   PolicySettings  `toml:"policy" yaml:"policy"`
	Backends []BackendConfig `toml:"backends" yaml:"backends" validate:"dive"`
	Regex    RegexConfig     `toml:"regex" yaml:"regex"`
	Log      LogConfig       `toml:"log" yaml:"log"`
}

// PolicySettings is the snapshot of rule options for one evaluation.
// Empty strings disable the corresponding regex rule.
type PolicySettings struct {
	RequireJiraIssue              bool   `toml:"require_jira_issue" yaml:"require_jira_issue"`
	RequireMatchingAuthorEmail    bool   `toml:"require_matching_author_email" yaml:"require_matching_author_email"`
	RequireMatchingAuthorName     bool   `toml:"require_matching_author_name" yaml:"require_matching_author_name"`
	ExcludeMergeCommits           bool   `toml:"exclude_merge_commits" yaml:"exclude_merge_commits"`
	ExcludeServiceUserCommits     bool   `toml:"exclude_service_user_commits" yaml:"exclude_service_user_commits"`
	ExcludeByRegex                string `toml:"exclude_by_regex" yaml:"exclude_by_regex"`
	CommitMessageRegex            string `toml:"commit_message_regex" yaml:"commit_message_regex"`
	CommitterEmailRegex           string `toml:"committer_email_regex" yaml:"committer_email_regex"`
	IgnoreUnknownIssueProjectKeys bool   `toml:"ignore_unknown_issue_project_keys" yaml:"ignore_unknown_issue_project_keys"`
	IssueJqlMatcher               string `toml:"issue_jql_matcher" yaml:"issue_jql_matcher"`
	BranchNameRegex               string `toml:"branch_name_regex" yaml:"branch_name_regex"`
	ExcludeBranchRegex            string `toml:"exclude_branch_regex" yaml:"exclude_branch_regex"`
}

// BackendConfig describes one issue tracker instance
type BackendConfig struct {
	Name string `toml:"name" yaml:"name" validate:"required"`
	// URL is the server root, e.g. https://jira.example.com
	URL  string `toml:"url" yaml:"url" validate:"required,url"`
	User string `toml:"user" yaml:"user"`
	// TokenEnv names the environment variable holding the API token
	TokenEnv string `toml:"token_env" yaml:"token_env"`
	// AuthURL is shown to users who need to re-authenticate (defaults to URL)
	AuthURL           string  `toml:"auth_url" yaml:"auth_url" validate:"omitempty,url"`
	RequestsPerSecond float64 `toml:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"`
	TimeoutSeconds    int     `toml:"timeout_seconds" yaml:"timeout_seconds" validate:"gte=0"`
}

type RegexConfig struct {
	MatchTimeoutMS int `toml:"match_timeout_ms" yaml:"match_timeout_ms" validate:"gte=0"`
}

type LogConfig struct {
	Level string `toml:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

var validate = validator.New()

func DefaultConfig() *Config {
	return &Config{
		Regex: RegexConfig{
			MatchTimeoutMS: defaultMatchTimeoutMS,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the config location in the user config directory
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "cgate.toml"), nil
}

// Load reads the config at path, or the default path when path is empty,
// and checks its struct constraints. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Read is Load without the struct constraint check, so that every problem
// can be reported at once. A .env file next to the config, then one in the
// working directory, is loaded first so token_env variables can be kept
// out of the config. Variables already set are never overridden.
func Read(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}

	var envFiles []string
	if path != "" {
		envFiles = append(envFiles, filepath.Join(filepath.Dir(path), ".env"))
	}
	envFiles = append(envFiles, ".env")
	for _, f := range envFiles {
		if err := loadDotEnv(f); err != nil {
			return nil, err
		}
	}

	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := unmarshal(path, data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

func unmarshal(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return toml.Unmarshal(data, cfg)
	}
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// Validate checks the struct constraints of the config
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes the config as TOML to path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// MatchTimeout returns the regex match timeout
func (c *Config) MatchTimeout() time.Duration {
	return time.Duration(c.Regex.MatchTimeoutMS) * time.Millisecond
}

// Token returns the API token from the backend's environment variable
func (b BackendConfig) Token() string {
	if b.TokenEnv == "" {
		return ""
	}
	return os.Getenv(b.TokenEnv)
}

// ReauthURL returns the URL users visit to authenticate
func (b BackendConfig) ReauthURL() string {
	if b.AuthURL != "" {
		return b.AuthURL
	}
	return b.URL
}

// Timeout returns the per-request timeout, zero meaning none
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}
