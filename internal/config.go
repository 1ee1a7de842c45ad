package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/vaultfill/internal/apperr"
	pkgconfig "github.com/starford/vaultfill/pkg/config"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

var imageSizeRe = regexp.MustCompile(`^(auto|\d+x\d+)$`)

// Config represents the configuration shared by both tools.
type Config struct {
	App      ApplicationConfig `yaml:"app" toml:"app" json:"app"`
	Vault    VaultConfig       `yaml:"vault" toml:"vault" json:"vault"`
	Services ServicesConfig    `yaml:"services" toml:"services" json:"services"`
	Journal  JournalConfig     `yaml:"journal" toml:"journal" json:"journal"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Vault.Validate(); err != nil {
		return fmt.Errorf("vault: %w", err)
	}
	if err := c.Services.Validate(); err != nil {
		return fmt.Errorf("services: %w", err)
	}
	return nil
}

// JournalPath returns the journal database location, defaulting to a file
// inside the backup directory.
func (c *Config) JournalPath() string {
	if c.Journal.Path != "" {
		return expandHome(c.Journal.Path)
	}
	return filepath.Join(c.Vault.Path, filepath.FromSlash(c.Vault.BackupDir), "journal.db")
}

// ApplicationConfig holds logging configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level" toml:"log_level" json:"log_level"`
	LogFormat string     `yaml:"log_format" toml:"log_format" json:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatText
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatText, LogFormatJSON)),
	)
}

// VaultConfig locates the vault and the folders the tools write into.
type VaultConfig struct {
	Path           string   `yaml:"path" toml:"path" json:"path"`
	AttachmentsDir string   `yaml:"attachments_dir" toml:"attachments_dir" json:"attachments_dir"`
	BackupDir      string   `yaml:"backup_dir" toml:"backup_dir" json:"backup_dir"`
	ConfirmWrites  bool     `yaml:"confirm_writes" toml:"confirm_writes" json:"confirm_writes"`
	Extensions     []string `yaml:"extensions" toml:"extensions" json:"extensions"`
}

// Validate expands a leading ~ in Path and checks that the vault exists.
func (c *VaultConfig) Validate() error {
	c.Path = expandHome(c.Path)
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required, validation.By(existingDir)),
		validation.Field(&c.AttachmentsDir, validation.Required, validation.By(insideVault)),
		validation.Field(&c.BackupDir, validation.Required, validation.By(insideVault)),
		validation.Field(&c.Extensions, validation.Required),
	)
}

// ServicesConfig configures the lookup and generation services.
type ServicesConfig struct {
	UserAgent       string             `yaml:"user_agent" toml:"user_agent" json:"user_agent"`
	Timeout         pkgconfig.Duration `yaml:"timeout" toml:"timeout" json:"timeout"`
	DownloadTimeout pkgconfig.Duration `yaml:"download_timeout" toml:"download_timeout" json:"download_timeout"`
	TMDB            TMDBConfig         `yaml:"tmdb" toml:"tmdb" json:"tmdb"`
	OpenAI          OpenAIConfig       `yaml:"openai" toml:"openai" json:"openai"`
	Endpoints       EndpointsConfig    `yaml:"endpoints" toml:"endpoints" json:"endpoints"`
}

// Validate validates the services configuration.
func (c *ServicesConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.UserAgent, validation.Required),
		validation.Field(&c.Timeout, validation.By(positiveDuration)),
		validation.Field(&c.DownloadTimeout, validation.By(positiveDuration)),
	); err != nil {
		return err
	}
	if err := c.TMDB.Validate(); err != nil {
		return fmt.Errorf("tmdb: %w", err)
	}
	if err := c.OpenAI.Validate(); err != nil {
		return fmt.Errorf("openai: %w", err)
	}
	return nil
}

// TMDBConfig holds TMDB credentials. An empty key disables MOVIE and TV
// lookups.
type TMDBConfig struct {
	APIKey string `yaml:"api_key" toml:"api_key" json:"api_key"`
	Region string `yaml:"region" toml:"region" json:"region"`
}

// Validate normalizes the region code.
func (c *TMDBConfig) Validate() error {
	c.Region = strings.ToUpper(strings.TrimSpace(c.Region))
	return validation.ValidateStruct(c,
		validation.Field(&c.Region, validation.Required, validation.Length(2, 2)),
	)
}

// OpenAIConfig configures AIIMAGE generation.
type OpenAIConfig struct {
	APIKey  string             `yaml:"api_key" toml:"api_key" json:"api_key"`
	Model   string             `yaml:"model" toml:"model" json:"model"`
	Size    string             `yaml:"size" toml:"size" json:"size"`
	Timeout pkgconfig.Duration `yaml:"timeout" toml:"timeout" json:"timeout"`
}

// Validate validates the OpenAI configuration.
func (c *OpenAIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.Size, validation.Required, validation.Match(imageSizeRe)),
		validation.Field(&c.Timeout, validation.By(positiveDuration)),
	)
}

// EndpointsConfig overrides service base URLs, e.g. for a caching proxy.
// Empty values select the public endpoints.
type EndpointsConfig struct {
	Wikimedia         string `yaml:"wikimedia" toml:"wikimedia" json:"wikimedia"`
	OpenLibrarySearch string `yaml:"openlibrary_search" toml:"openlibrary_search" json:"openlibrary_search"`
	OpenLibraryCovers string `yaml:"openlibrary_covers" toml:"openlibrary_covers" json:"openlibrary_covers"`
	TMDBAPI           string `yaml:"tmdb_api" toml:"tmdb_api" json:"tmdb_api"`
	TMDBImages        string `yaml:"tmdb_images" toml:"tmdb_images" json:"tmdb_images"`
	OpenAI            string `yaml:"openai" toml:"openai" json:"openai"`
}

// JournalConfig controls the change journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled" json:"enabled"`
	Path    string `yaml:"path" toml:"path" json:"path"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatText,
		},
		Vault: VaultConfig{
			AttachmentsDir: "attachments",
			BackupDir:      ".vault_backups",
			ConfirmWrites:  true,
			Extensions:     []string{".md"},
		},
		Services: ServicesConfig{
			UserAgent:       "vaultfill/0.1.0",
			Timeout:         pkgconfig.Duration(20 * time.Second),
			DownloadTimeout: pkgconfig.Duration(30 * time.Second),
			TMDB: TMDBConfig{
				Region: "US",
			},
			OpenAI: OpenAIConfig{
				Model:   "gpt-image-1",
				Size:    "1024x1024",
				Timeout: pkgconfig.Duration(60 * time.Second),
			},
		},
		Journal: JournalConfig{
			Enabled: true,
		},
	}
}

// LoadConfig reads and validates the config file at path. Every failure is
// an apperr.Config error.
func LoadConfig(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.LoadWithDefaults(path, "", cfg); err != nil {
		return nil, apperr.Config(fmt.Errorf("failed to parse config: %w", err))
	}
	return cfg, nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

func existingDir(value any) error {
	p, _ := value.(string)
	if p == "" {
		return nil
	}
	info, err := os.Stat(p)
	if err != nil {
		return fmt.Errorf("vault path not found: %s", p)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault path is not a directory: %s", p)
	}
	return nil
}

func insideVault(value any) error {
	p, _ := value.(string)
	if p == "" {
		return nil
	}
	if filepath.IsAbs(p) {
		return errors.New("must be relative to the vault")
	}
	clean := filepath.Clean(filepath.FromSlash(p))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return errors.New("must be a directory inside the vault")
	}
	return nil
}

func positiveDuration(value any) error {
	d, _ := value.(pkgconfig.Duration)
	if d <= 0 {
		return errors.New("must be a positive duration")
	}
	return nil
}
