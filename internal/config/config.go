package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// AppName names the config directory and the environment prefix
const AppName = "livesnap"

// File is the on-disk layout of config.toml
type File struct {
	Project ProjectSection `toml:"project"`
	Git     GitSection     `toml:"git"`
	History HistorySection `toml:"history"`
	Restore RestoreSection `toml:"restore"`
	Log     LogSection     `toml:"log"`
	Search  SearchSection  `toml:"search"`
}

type ProjectSection struct {
	MarkerExt string `toml:"marker_ext"`
}

type GitSection struct {
	Binary    string `toml:"binary"`
	UserName  string `toml:"user_name"`
	UserEmail string `toml:"user_email"`
}

type HistorySection struct {
	Limit int `toml:"limit"`
}

type RestoreSection struct {
	AutoCommit bool `toml:"auto_commit"`
}

type LogSection struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type SearchSection struct {
	Enabled        bool    `toml:"enabled"`
	Model          string  `toml:"model"`
	OllamaURL      string  `toml:"ollama_url"`
	KeywordWeight  float64 `toml:"keyword_weight"`
	SemanticWeight float64 `toml:"semantic_weight"`
}

// Defaults returns the built-in settings
func Defaults() File {
	return File{
		Project: ProjectSection{MarkerExt: ".als"},
		Git:     GitSection{Binary: "git"},
		History: HistorySection{Limit: 50},
		Restore: RestoreSection{AutoCommit: true},
		Log:     LogSection{Level: "info", Format: "text"},
		Search: SearchSection{
			Enabled:        true,
			Model:          "nomic-embed-text",
			OllamaURL:      "http://localhost:11434",
			KeywordWeight:  0.3,
			SemanticWeight: 0.7,
		},
	}
}

// SetDefaults registers the built-in settings with v
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("project.marker_ext", d.Project.MarkerExt)
	v.SetDefault("git.binary", d.Git.Binary)
	v.SetDefault("git.user_name", d.Git.UserName)
	v.SetDefault("git.user_email", d.Git.UserEmail)
	v.SetDefault("history.limit", d.History.Limit)
	v.SetDefault("restore.auto_commit", d.Restore.AutoCommit)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("search.enabled", d.Search.Enabled)
	v.SetDefault("search.model", d.Search.Model)
	v.SetDefault("search.ollama_url", d.Search.OllamaURL)
	v.SetDefault("search.keyword_weight", d.Search.KeywordWeight)
	v.SetDefault("search.semantic_weight", d.Search.SemanticWeight)
}

// BindEnv makes LIVESNAP_SECTION_KEY override section.key
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// DefaultPath returns $HOME/.config/livesnap/config.toml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", AppName, "config.toml"), nil
}

// WriteDefault writes the built-in settings to path unless a file exists
// there. It reports whether a file was written.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return false, fmt.Errorf("failed to create config file: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(Defaults()); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("failed to write config file: %w", err)
	}
	return true, f.Close()
}

// GetMarkerExt returns the extension that marks a project folder
func GetMarkerExt() string {
	return viper.GetString("project.marker_ext")
}

// GetGitBinary returns the git executable to run
func GetGitBinary() string {
	return viper.GetString("git.binary")
}

// GetIdentity returns the configured commit identity, which may be empty
func GetIdentity() (name, email string) {
	return viper.GetString("git.user_name"), viper.GetString("git.user_email")
}

// GetHistoryLimit returns how many versions list shows by default
func GetHistoryLimit() int {
	return viper.GetInt("history.limit")
}

// GetAutoCommit reports whether a restore is recorded as a new version
func GetAutoCommit() bool {
	return viper.GetBool("restore.auto_commit")
}

// GetLogLevel returns the diagnostic log level
func GetLogLevel() string {
	return viper.GetString("log.level")
}

// GetLogFormat returns text or json
func GetLogFormat() string {
	return viper.GetString("log.format")
}

// GetSearchEnabled reports whether semantic search is enabled
func GetSearchEnabled() bool {
	return viper.GetBool("search.enabled")
}

// GetEmbeddingModel returns the Ollama embedding model
func GetEmbeddingModel() string {
	return viper.GetString("search.model")
}

// GetOllamaURL returns the Ollama endpoint
func GetOllamaURL() string {
	return viper.GetString("search.ollama_url")
}

// GetKeywordWeight returns the keyword share of the hybrid score
func GetKeywordWeight() float64 {
	return viper.GetFloat64("search.keyword_weight")
}

// GetSemanticWeight returns the semantic share of the hybrid score
func GetSemanticWeight() float64 {
	return viper.GetFloat64("search.semantic_weight")
}
