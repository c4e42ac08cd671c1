// Package config handles autopost configuration loading.
//
// Configuration is layered: a YAML file provides the base, a .env file
// (when present) seeds the environment, and environment variables
// override individual credentials and enable flags. Environment always
// wins over the file, matching how credentials are expected to be
// supplied in deployment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all autopost configuration.
type Config struct {
	Platforms PlatformsConfig `yaml:"platforms"`
	Threads   ThreadsConfig   `yaml:"threads"`
	Twitter   TwitterConfig   `yaml:"twitter"`
	LLM       LLMConfig       `yaml:"llm"`
	Images    ImagesConfig    `yaml:"images"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Replies   RepliesConfig   `yaml:"replies"`
	DataDir   string          `yaml:"data_dir"`
	LogLevel  string          `yaml:"log_level"`
}

// PlatformsConfig enables or disables each posting target.
type PlatformsConfig struct {
	Threads bool `yaml:"threads"`
	Twitter bool `yaml:"twitter"`
}

// ThreadsConfig defines Threads Graph API credentials and the
// auto-reply toggle.
type ThreadsConfig struct {
	AccessToken       string `yaml:"access_token"`
	UserID            string `yaml:"user_id"`
	EnableAutoReplies bool   `yaml:"enable_auto_replies"`
}

// Configured reports whether the Threads credentials are present.
func (c ThreadsConfig) Configured() bool {
	return c.AccessToken != "" && c.UserID != ""
}

// TwitterConfig defines Twitter/X API credentials.
type TwitterConfig struct {
	APIKey            string `yaml:"api_key"`
	APISecret         string `yaml:"api_secret"`
	AccessToken       string `yaml:"access_token"`
	AccessTokenSecret string `yaml:"access_token_secret"`
	BearerToken       string `yaml:"bearer_token"`
}

// Configured reports whether the OAuth 1.0a user-context credentials
// needed for posting are present.
func (c TwitterConfig) Configured() bool {
	return c.APIKey != "" && c.APISecret != "" && c.AccessToken != "" && c.AccessTokenSecret != ""
}

// LLMConfig defines the content generation provider and its knobs.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai (default) or gemini
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	PromptsFile string  `yaml:"prompts_file"`
	StoriesFile string  `yaml:"stories_file"`
	PersonaFile string  `yaml:"persona_file"`
}

// ImagesConfig defines the local image library and upload service.
type ImagesConfig struct {
	Folder         string   `yaml:"folder"`
	FileExtensions []string `yaml:"file_extensions"`
	UploadService  string   `yaml:"upload_service"` // imgbb (default) or imgur
	UploadAPIKey   string   `yaml:"upload_api_key"`
}

// ScheduleConfig defines the daily posting plan parameters.
type ScheduleConfig struct {
	TextPostsPerDay  int    `yaml:"text_posts_per_day"`
	ImagePostsPerDay int    `yaml:"image_posts_per_day"`
	RandomTimes      *bool  `yaml:"random_times"`    // default true
	WeightedRandom   *bool  `yaml:"weighted_random"` // default true
	PostTime         string `yaml:"post_time"`       // fixed mode, "HH:MM"
}

// RandomTimesEnabled returns the random_times setting with its default.
func (c ScheduleConfig) RandomTimesEnabled() bool {
	return c.RandomTimes == nil || *c.RandomTimes
}

// WeightedRandomEnabled returns the weighted_random setting with its default.
func (c ScheduleConfig) WeightedRandomEnabled() bool {
	return c.WeightedRandom == nil || *c.WeightedRandom
}

// RepliesConfig overrides the reply gate rate limits. Zero values fall
// back to the gate defaults.
type RepliesConfig struct {
	MaxPerDay        int `yaml:"max_replies_per_day"`
	MaxPerThread     int `yaml:"max_replies_per_thread"`
	MaxPerUser       int `yaml:"max_replies_per_user"`
	MinDelaySec      int `yaml:"min_reply_delay_sec"`
	MaxDelaySec      int `yaml:"max_reply_delay_sec"`
	CheckIntervalMin int `yaml:"reply_check_interval_min"`
}

// Load reads configuration from a YAML file, seeds the process
// environment from .env when one exists, applies defaults, and merges
// environment overrides. The returned config is validated.
func Load(path string) (*Config, error) {
	// A missing .env is fine; explicit environment still applies.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// Expand ${VAR} references so secrets can live in the environment
	// while the file stays checked in.
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with all defaults applied and no
// platform enabled.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o",
			Temperature: 0.7,
			MaxTokens:   500,
			PromptsFile: "prompts.txt",
			StoriesFile: "stories.txt",
		},
		Images: ImagesConfig{
			Folder:         "images",
			FileExtensions: []string{".jpg", ".jpeg", ".png", ".gif", ".webp"},
			UploadService:  "imgbb",
		},
		Schedule: ScheduleConfig{
			TextPostsPerDay:  10,
			ImagePostsPerDay: 5,
			PostTime:         "09:00",
		},
		DataDir:  "data",
		LogLevel: "info",
	}
}

// ApplyEnv merges environment variable overrides into the config.
// Credentials and enable flags can always be supplied via environment,
// regardless of what the file says.
func (c *Config) ApplyEnv() {
	if envBool("ENABLE_THREADS") {
		c.Platforms.Threads = true
	}
	if envBool("ENABLE_TWITTER") {
		c.Platforms.Twitter = true
	}
	if envBool("ENABLE_AUTO_REPLIES") {
		c.Threads.EnableAutoReplies = true
	}

	override(&c.Threads.AccessToken, "THREADS_ACCESS_TOKEN")
	override(&c.Threads.UserID, "THREADS_USER_ID")

	override(&c.Twitter.APIKey, "TWITTER_API_KEY")
	override(&c.Twitter.APISecret, "TWITTER_API_SECRET")
	override(&c.Twitter.AccessToken, "TWITTER_ACCESS_TOKEN")
	override(&c.Twitter.AccessTokenSecret, "TWITTER_ACCESS_TOKEN_SECRET")
	override(&c.Twitter.BearerToken, "TWITTER_BEARER_TOKEN")

	switch c.LLM.Provider {
	case "gemini":
		override(&c.LLM.APIKey, "GEMINI_API_KEY")
	default:
		override(&c.LLM.APIKey, "OPENAI_API_KEY")
	}

	switch c.Images.UploadService {
	case "imgur":
		override(&c.Images.UploadAPIKey, "IMGUR_CLIENT_ID")
	default:
		override(&c.Images.UploadAPIKey, "IMGBB_API_KEY")
	}
}

// Validate checks invariants that make startup pointless when broken.
func (c *Config) Validate() error {
	if !c.Platforms.Threads && !c.Platforms.Twitter {
		return fmt.Errorf("at least one platform must be enabled (set platforms.threads / platforms.twitter or ENABLE_THREADS / ENABLE_TWITTER)")
	}
	if c.LLM.Provider != "openai" && c.LLM.Provider != "gemini" {
		return fmt.Errorf("unknown llm.provider %q (valid: openai, gemini)", c.LLM.Provider)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not set (llm.api_key, OPENAI_API_KEY, or GEMINI_API_KEY)")
	}
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	if c.Schedule.PostTime != "" {
		if err := validateClock(c.Schedule.PostTime); err != nil {
			return fmt.Errorf("schedule.post_time: %w", err)
		}
	}
	return nil
}

func validateClock(s string) error {
	var h, m int
	if _, err := fmt.Sscanf(s, "%02d:%02d", &h, &m); err != nil || len(s) != 5 || s[2] != ':' {
		return fmt.Errorf("expected HH:MM, got %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return fmt.Errorf("time %q out of range", s)
	}
	return nil
}

func envBool(key string) bool {
	return strings.EqualFold(os.Getenv(key), "true")
}

func override(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
