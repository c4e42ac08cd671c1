package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
platforms:
  threads: true
threads:
  access_token: tok
  user_id: "123"
llm:
  api_key: sk-test
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LLM.Provider != "openai" {
		t.Errorf("provider = %q, want openai", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", cfg.LLM.Model)
	}
	if cfg.Schedule.TextPostsPerDay != 10 || cfg.Schedule.ImagePostsPerDay != 5 {
		t.Errorf("schedule = %d/%d, want 10/5",
			cfg.Schedule.TextPostsPerDay, cfg.Schedule.ImagePostsPerDay)
	}
	if !cfg.Schedule.RandomTimesEnabled() || !cfg.Schedule.WeightedRandomEnabled() {
		t.Error("random and weighted scheduling should default on")
	}
	if cfg.DataDir != "data" {
		t.Errorf("data_dir = %q, want data", cfg.DataDir)
	}
	if !cfg.Threads.Configured() {
		t.Error("threads should be configured")
	}
	if cfg.Twitter.Configured() {
		t.Error("twitter should not be configured")
	}
}

func TestLoadExplicitFalseDisablesRandomTimes(t *testing.T) {
	path := writeConfig(t, `
platforms:
  twitter: true
twitter:
  api_key: k
  api_secret: s
  access_token: t
  access_token_secret: ts
llm:
  api_key: sk-test
schedule:
  random_times: false
  weighted_random: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Schedule.RandomTimesEnabled() {
		t.Error("random_times: false should disable random scheduling")
	}
	if cfg.Schedule.WeightedRandomEnabled() {
		t.Error("weighted_random: false should disable weighting")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("THREADS_ACCESS_TOKEN", "env-token")
	t.Setenv("ENABLE_TWITTER", "true")
	t.Setenv("TWITTER_API_KEY", "env-key")

	path := writeConfig(t, `
platforms:
  threads: true
threads:
  access_token: file-token
  user_id: "123"
llm:
  api_key: sk-test
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Threads.AccessToken != "env-token" {
		t.Errorf("access_token = %q, want env-token", cfg.Threads.AccessToken)
	}
	if !cfg.Platforms.Twitter {
		t.Error("ENABLE_TWITTER=true should enable the platform")
	}
	if cfg.Twitter.APIKey != "env-key" {
		t.Errorf("twitter api_key = %q, want env-key", cfg.Twitter.APIKey)
	}
}

func TestLoadExpandsEnvReferences(t *testing.T) {
	t.Setenv("MY_SECRET", "expanded-value")

	path := writeConfig(t, `
platforms:
  threads: true
threads:
  access_token: ${MY_SECRET}
  user_id: "123"
llm:
  api_key: sk-test
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Threads.AccessToken != "expanded-value" {
		t.Errorf("access_token = %q, want expanded-value", cfg.Threads.AccessToken)
	}
}

func TestValidateRejectsBrokenConfigs(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "no platforms enabled",
			mutate:  func(c *Config) {},
			wantErr: "at least one platform",
		},
		{
			name: "unknown provider",
			mutate: func(c *Config) {
				c.Platforms.Threads = true
				c.LLM.Provider = "llama-farm"
				c.LLM.APIKey = "k"
			},
			wantErr: "llm.provider",
		},
		{
			name: "missing api key",
			mutate: func(c *Config) {
				c.Platforms.Threads = true
			},
			wantErr: "API key",
		},
		{
			name: "bad post time",
			mutate: func(c *Config) {
				c.Platforms.Threads = true
				c.LLM.APIKey = "k"
				c.Schedule.PostTime = "9am"
			},
			wantErr: "post_time",
		},
		{
			name: "out of range post time",
			mutate: func(c *Config) {
				c.Platforms.Threads = true
				c.LLM.APIKey = "k"
				c.Schedule.PostTime = "25:00"
			},
			wantErr: "out of range",
		},
		{
			name: "bad log level",
			mutate: func(c *Config) {
				c.Platforms.Threads = true
				c.LLM.APIKey = "k"
				c.LogLevel = "verbose"
			},
			wantErr: "log level",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"  warn  ", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidateClock(t *testing.T) {
	valid := []string{"00:00", "09:30", "23:59"}
	for _, s := range valid {
		if err := validateClock(s); err != nil {
			t.Errorf("validateClock(%q) = %v, want nil", s, err)
		}
	}
	invalid := []string{"24:00", "12:60", "9:30", "12-30", "noon", ""}
	for _, s := range invalid {
		if err := validateClock(s); err == nil {
			t.Errorf("validateClock(%q) = nil, want error", s)
		}
	}
}
