package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr string `json:"listen_addr"`
	DataDir    string `json:"data_dir"`
	LogLevel   string `json:"log_level"`
	Webhook    struct {
		AppSecret   string `json:"app_secret"`
		VerifyToken string `json:"verify_token"`
	} `json:"webhook"`
	LLM struct {
		Provider        string  `json:"provider"`
		BaseURL         string  `json:"base_url"`
		APIKey          string  `json:"api_key"`
		Model           string  `json:"model"`
		MaxTokens       int     `json:"max_tokens"`
		Temperature     float32 `json:"temperature"`
		MaxPromptTokens int     `json:"max_prompt_tokens"`
	} `json:"llm"`
	SystemPromptPath string `json:"system_prompt_path"`
	Responses        struct {
		DMPositive      string `json:"dm_positive"`
		DMNegative      string `json:"dm_negative"`
		CommentPositive string `json:"comment_positive"`
		CommentNegative string `json:"comment_negative"`
	} `json:"responses"`
	// Accounts maps platform account id to its API access token. Loaded once
	// at startup; read-only afterwards.
	Accounts map[string]string `json:"accounts"`
	Debounce struct {
		InitialDelayMinSec int `json:"initial_delay_min_sec"`
		InitialDelayMaxSec int `json:"initial_delay_max_sec"`
		RescheduleDelaySec int `json:"reschedule_delay_sec"`
		DMExpirySec        int `json:"dm_expiry_sec"`
		CommentDelayMinSec int `json:"comment_delay_min_sec"`
		CommentDelayMaxSec int `json:"comment_delay_max_sec"`
		CommentExpirySec   int `json:"comment_expiry_sec"`
	} `json:"debounce"`
	Executor struct {
		MaxWorkers    int64  `json:"max_workers"`
		SweepSchedule string `json:"sweep_schedule"`
	} `json:"executor"`
	// StopBatchOnSelfComment switches self-comment handling from "skip this
	// event" to "stop processing the rest of the delivery batch". Off by
	// default; kept as an option for parity with older deployments.
	StopBatchOnSelfComment bool `json:"stop_batch_on_self_comment"`
}

// Load reads the config file, writing defaults first if it doesn't exist,
// then applies environment overrides. A .env file in the working directory
// is loaded before the environment is consulted.
func Load(path string) (*Config, error) {
	// Best effort; a missing .env is not an error.
	_ = godotenv.Load()

	cfg := defaults()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if cfg.Accounts == nil {
		cfg.Accounts = map[string]string{}
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{
		ListenAddr: ":8000",
		DataDir:    filepath.Join(os.Getenv("HOME"), ".metareply"),
		LogLevel:   "info",
	}
	cfg.LLM.Provider = "gemini"
	cfg.LLM.BaseURL = "https://generativelanguage.googleapis.com"
	cfg.LLM.Model = "gemini-1.5-flash"
	cfg.LLM.MaxTokens = 1024
	cfg.LLM.Temperature = 0.7
	cfg.LLM.MaxPromptTokens = 8192
	cfg.Responses.DMPositive = "Thank you so much for reaching out! We really appreciate it."
	cfg.Responses.DMNegative = "We're sorry to hear that. Could you tell us more so we can help?"
	cfg.Responses.CommentPositive = "Thank you for the kind words!"
	cfg.Responses.CommentNegative = "We're sorry about your experience. Please DM us so we can make it right."
	cfg.Debounce.InitialDelayMinSec = 60
	cfg.Debounce.InitialDelayMaxSec = 120
	cfg.Debounce.RescheduleDelaySec = 30
	cfg.Debounce.DMExpirySec = 3600
	cfg.Debounce.CommentDelayMinSec = 60
	cfg.Debounce.CommentDelayMaxSec = 120
	cfg.Debounce.CommentExpirySec = 600
	cfg.Executor.MaxWorkers = 4
	cfg.Executor.SweepSchedule = "@every 1m"
	return cfg
}

// applyEnv overlays environment variables onto the config. Env has the
// highest precedence, matching the original deployment's conventions.
func applyEnv(cfg *Config) {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("APP_SECRET"); v != "" {
		cfg.Webhook.AppSecret = v
	}
	if v := os.Getenv("VERIFY_TOKEN"); v != "" {
		cfg.Webhook.VerifyToken = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("MODEL_NAME"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("SYSTEM_PROMPT_PATH"); v != "" {
		cfg.SystemPromptPath = v
	}
	if v := os.Getenv("ACCOUNTS"); v != "" {
		var accounts map[string]string
		if err := json.Unmarshal([]byte(v), &accounts); err == nil {
			cfg.Accounts = accounts
		}
	}
}

// Save writes the config to disk atomically (tmp file + rename).
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
