// Package config loads the engine's own settings: where rule sources live,
// logging, and default script timeouts.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	envPrefix        = "CLAUDE_HOOKS"
	settingsFileName = "engine.yaml"
)

// Settings holds engine settings.
type Settings struct {
	// Sources are rule source directories in precedence order; later wins.
	Sources []string `mapstructure:"sources"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`
	// LogFile is where log actions append when they name no file.
	LogFile string `mapstructure:"log_file"`
	// ConditionTimeout bounds predicate scripts without their own timeout.
	ConditionTimeout time.Duration `mapstructure:"condition_timeout"`
	// ActionTimeout bounds synchronous action scripts without their own timeout.
	ActionTimeout time.Duration `mapstructure:"action_timeout"`
}

// DefaultSettings returns settings with the built-in defaults.
func DefaultSettings() *Settings {
	return &Settings{
		Sources:          DefaultSources(),
		LogLevel:         "warn",
		LogFile:          filepath.Join(homeDir(), ".claude", "logs", "hooks.jsonl"),
		ConditionTimeout: 5 * time.Second,
		ActionTimeout:    30 * time.Second,
	}
}

// DefaultSources returns the rule source directories in precedence order:
// global, machine-specific, user-level, then project-level.
func DefaultSources() []string {
	home := homeDir()
	sources := []string{
		filepath.Join(home, ".claude-hooks"),
	}

	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		sources = append(sources, filepath.Join(home, ".claude-hooks", "machines", hostname))
	}

	projectDir := os.Getenv("CLAUDE_PROJECT_DIR")
	if projectDir == "" {
		projectDir = "."
	}

	return append(sources,
		filepath.Join(home, ".claude"),
		filepath.Join(projectDir, ".claude"),
	)
}

// DefaultSettingsPath returns the settings file read when none is given.
func DefaultSettingsPath() string {
	return filepath.Join(homeDir(), ".claude-hooks", settingsFileName)
}

// Load reads settings from path, the environment (CLAUDE_HOOKS_*) and defaults,
// in that order of precedence after the environment. An empty path falls back
// to DefaultSettingsPath, which may be absent.
func Load(path string) (*Settings, error) {
	defaults := DefaultSettings()

	v := viper.New()
	v.SetDefault("sources", defaults.Sources)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_file", defaults.LogFile)
	v.SetDefault("condition_timeout", defaults.ConditionTimeout)
	v.SetDefault("action_timeout", defaults.ActionTimeout)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultSettingsPath()
	}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("settings file %s: %w", path, err)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(string(os.PathListSeparator)),
	))); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("settings validation failed: %w", err)
	}

	return settings, nil
}

// Validate checks value ranges and normalizes the log level and paths.
func (s *Settings) Validate() error {
	level := strings.ToLower(strings.TrimSpace(s.LogLevel))
	switch level {
	case "":
		s.LogLevel = "warn"
	case "debug", "info", "warn", "error":
		s.LogLevel = level
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", s.LogLevel)
	}

	if s.ConditionTimeout <= 0 {
		return fmt.Errorf("condition_timeout must be positive, got %v", s.ConditionTimeout)
	}
	if s.ActionTimeout <= 0 {
		return fmt.Errorf("action_timeout must be positive, got %v", s.ActionTimeout)
	}
	if len(s.Sources) == 0 {
		return errors.New("sources must not be empty")
	}

	for i, source := range s.Sources {
		s.Sources[i] = expandHome(strings.TrimSpace(source))
	}
	s.LogFile = expandHome(s.LogFile)

	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func expandHome(path string) string {
	if path == "~" {
		return homeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}
