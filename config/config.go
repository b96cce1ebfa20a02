package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Settings holds everything the gateway needs at startup, read from the
// environment with an optional .env file underneath.
type Settings struct {
	Port     string `mapstructure:"PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	SupabaseURL        string `mapstructure:"SUPABASE_URL"`
	SupabaseServiceKey string `mapstructure:"SUPABASE_SERVICE_KEY"`
	VideoBucket        string `mapstructure:"VIDEO_BUCKET"`

	AssemblyAIAPIKey      string `mapstructure:"ASSEMBLYAI_API_KEY"`
	TranscriptionLanguage string `mapstructure:"TRANSCRIPTION_LANGUAGE"`

	OpenRouterAPIKey string `mapstructure:"OPENROUTER_API_KEY"`
	OpenRouterModel  string `mapstructure:"OPENROUTER_MODEL"`
	AppReferer       string `mapstructure:"APP_REFERER"`
	AppTitle         string `mapstructure:"APP_TITLE"`
}

var settingsKeys = []string{
	"PORT", "LOG_LEVEL",
	"SUPABASE_URL", "SUPABASE_SERVICE_KEY", "VIDEO_BUCKET",
	"ASSEMBLYAI_API_KEY", "TRANSCRIPTION_LANGUAGE",
	"OPENROUTER_API_KEY", "OPENROUTER_MODEL", "APP_REFERER", "APP_TITLE",
}

// Keys that have no sensible default; startup fails without them.
var requiredKeys = []string{
	"SUPABASE_URL", "SUPABASE_SERVICE_KEY", "ASSEMBLYAI_API_KEY", "OPENROUTER_API_KEY",
}

// Load reads settings from the environment, falling back to a .env file in
// the working directory when one exists.
func Load() (Settings, error) {
	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("VIDEO_BUCKET", "lesson-videos")
	v.SetDefault("TRANSCRIPTION_LANGUAGE", "en")
	for _, key := range settingsKeys {
		if err := v.BindEnv(key); err != nil {
			return Settings{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return Settings{}, fmt.Errorf("unmarshal settings: %w", err)
	}

	var missing []string
	for _, key := range requiredKeys {
		if strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return Settings{}, fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return settings, nil
}
