package config

import (
	"strings"
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_SERVICE_KEY", "service-key")
	t.Setenv("ASSEMBLYAI_API_KEY", "aai-key")
	t.Setenv("OPENROUTER_API_KEY", "or-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	settings, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if settings.Port != "8080" {
		t.Errorf("Port = %q", settings.Port)
	}
	if settings.VideoBucket != "lesson-videos" {
		t.Errorf("VideoBucket = %q", settings.VideoBucket)
	}
	if settings.TranscriptionLanguage != "en" {
		t.Errorf("TranscriptionLanguage = %q", settings.TranscriptionLanguage)
	}
	if settings.SupabaseURL != "https://example.supabase.co" {
		t.Errorf("SupabaseURL = %q", settings.SupabaseURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("OPENROUTER_MODEL", "some/model")

	settings, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if settings.Port != "9090" {
		t.Errorf("Port = %q", settings.Port)
	}
	if settings.OpenRouterModel != "some/model" {
		t.Errorf("OpenRouterModel = %q", settings.OpenRouterModel)
	}
}

func TestLoadMissingRequiredKeys(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_SERVICE_KEY", "")
	t.Setenv("ASSEMBLYAI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "or-key")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing keys")
	}
	if !strings.Contains(err.Error(), "SUPABASE_SERVICE_KEY") || !strings.Contains(err.Error(), "ASSEMBLYAI_API_KEY") {
		t.Errorf("err = %v", err)
	}
}
