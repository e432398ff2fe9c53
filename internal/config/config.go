package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// ErrMissingCredentials is returned when a required integration has no credentials.
var ErrMissingCredentials = errors.New("missing credentials")

type Config struct {
	Plex       Plex       `yaml:"plex"`
	Completion Completion `yaml:"completion"`
	Ombi       Ombi       `yaml:"ombi"`
	Trakt      Trakt      `yaml:"trakt"`
	Forward    Forward    `yaml:"forward"`
	Themes     Themes     `yaml:"themes"`
	Output     Output     `yaml:"output"`
	Schedule   string     `yaml:"schedule"`
	Logging    Logging    `yaml:"logging"`
}

type Plex struct {
	URL          string `yaml:"url" validate:"required,url"`
	Token        string `yaml:"token"`
	MovieSection string `yaml:"movie_section" validate:"required"`
	ShowSection  string `yaml:"show_section" validate:"required"`
}

type Completion struct {
	BaseURL     string  `yaml:"base_url" validate:"required,url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model" validate:"required"`
	MaxTokens   int     `yaml:"max_tokens" validate:"gt=0"`
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=2"`
}

type Ombi struct {
	Enabled      bool   `yaml:"enabled"`
	URL          string `yaml:"url" validate:"omitempty,url"`
	APIKey       string `yaml:"api_key"`
	LanguageCode string `yaml:"language_code"`
}

// Trakt holds the client credentials and the OAuth token written back by
// the device flow and by token refreshes. ExpiresAt is unix seconds.
type Trakt struct {
	Enabled      bool   `yaml:"enabled"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	AccessToken  string `yaml:"access_token"`
	RefreshToken string `yaml:"refresh_token"`
	ExpiresAt    int64  `yaml:"expires_at"`
}

type Forward struct {
	Delay   time.Duration `yaml:"delay" validate:"gte=0s"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0s"`
}

type Themes struct {
	History  bool    `yaml:"history"`
	Ratings  bool    `yaml:"ratings"`
	Count    int     `yaml:"count" validate:"gt=0"`
	Defaults bool    `yaml:"defaults"`
	Custom   []Theme `yaml:"custom" validate:"dive"`
}

// Theme is a user-defined recommendation category.
type Theme struct {
	Name       string `yaml:"name" validate:"required"`
	Prompt     string `yaml:"prompt" validate:"required"`
	Kind       string `yaml:"kind" validate:"omitempty,oneof=movie show"`
	Feed       string `yaml:"feed" validate:"omitempty,url"`
	WithReason bool   `yaml:"with_reason"`
}

type Output struct {
	Dir       string `yaml:"dir"`
	Report    bool   `yaml:"report"`
	HistoryDB string `yaml:"history_db"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format" validate:"omitempty,oneof=console json"`
}

// ConfigDir returns the XDG config directory for plexrec.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "plexrec")
}

// DataDir returns the XDG data directory for plexrec.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "plexrec")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > $CONFIG_FILE > ~/.config/plexrec/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit == "" {
		explicit = os.Getenv("CONFIG_FILE")
	}
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'plexrec init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file. Variables from a .env file in
// the working directory are loaded first and fill empty secrets.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Plex: Plex{
			URL:          "http://localhost:32400",
			MovieSection: "Movies",
			ShowSection:  "TV Shows",
		},
		Completion: Completion{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			MaxTokens:   10000,
			Temperature: 0.7,
		},
		Ombi:     Ombi{Enabled: true, LanguageCode: "en"},
		Forward:  Forward{Delay: time.Second, Timeout: 30 * time.Second},
		Themes:   Themes{History: true, Count: 10, Defaults: true},
		Output:   Output{Dir: "/output", Report: true},
		Schedule: "0 0 4 * * *",
		Logging:  Logging{Level: "info", Format: "console"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	setIfEmpty(&c.Plex.Token, "PLEX_TOKEN")
	setIfEmpty(&c.Completion.APIKey, "OPENAI_API_KEY")
	setIfEmpty(&c.Ombi.APIKey, "OMBI_API_KEY")
	setIfEmpty(&c.Trakt.ClientID, "TRAKT_CLIENT_ID")
	setIfEmpty(&c.Trakt.ClientSecret, "TRAKT_CLIENT_SECRET")
}

func setIfEmpty(field *string, env string) {
	if *field == "" {
		*field = os.Getenv(env)
	}
}

// Validate checks field formats. Missing secrets are not format errors;
// see CheckCore and the per-integration Ready methods.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// CheckCore reports the credentials the run cannot proceed without.
func (c *Config) CheckCore() error {
	var missing []string
	if c.Plex.Token == "" {
		missing = append(missing, "plex.token")
	}
	if c.Completion.APIKey == "" {
		missing = append(missing, "completion.api_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// Ready reports whether the Ombi integration is enabled and usable.
func (o Ombi) Ready() error {
	if !o.Enabled {
		return errors.New("disabled")
	}
	if o.URL == "" || o.APIKey == "" {
		return fmt.Errorf("%w: ombi.url or ombi.api_key is empty", ErrMissingCredentials)
	}
	return nil
}

// Ready reports whether the Trakt integration is enabled and has client
// credentials. A missing token is handled by the device flow.
func (t Trakt) Ready() error {
	if !t.Enabled {
		return errors.New("disabled")
	}
	if t.ClientID == "" || t.ClientSecret == "" {
		return fmt.Errorf("%w: trakt.client_id or trakt.client_secret is empty", ErrMissingCredentials)
	}
	return nil
}

// HistoryDBPath returns the history database path, or "" when disabled.
func (c *Config) HistoryDBPath() string {
	switch c.Output.HistoryDB {
	case "":
		return ""
	case "default":
		return filepath.Join(DataDir(), "history.db")
	default:
		return c.Output.HistoryDB
	}
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
