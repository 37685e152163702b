package config

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"SolanaPredictor/internal/logger"
	"SolanaPredictor/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Log logger.Config `yaml:"log"`

	DataSource struct {
		Type        string `yaml:"type" default:"csv" validate:"oneof=csv yahoo"`
		HistoryFile string `yaml:"history_file" default:"data/solana_historical.csv" validate:"required_if=Type csv"`
		Symbol      string `yaml:"symbol" default:"SOL"`
		Days        int    `yaml:"days" default:"730" validate:"min=1"`
		BaseURL     string `yaml:"base_url"`
	} `yaml:"data_source"`

	Feedback struct {
		Dir     string `yaml:"dir" default:"feedback"`
		Pattern string `yaml:"pattern" default:"feedback_*.csv"`
	} `yaml:"feedback"`

	Trigger struct {
		MinFeedback int `yaml:"min_feedback" default:"10" validate:"min=0"`
	} `yaml:"trigger"`

	Training struct {
		SplitRatio      float64               `yaml:"split_ratio" default:"0.8" validate:"gt=0,lt=1"`
		MinSamples      int                   `yaml:"min_samples" default:"10" validate:"min=2"`
		TargetMode      string                `yaml:"target_mode" default:"delta" validate:"oneof=delta level"`
		Hyperparameters model.Hyperparameters `yaml:"hyperparameters"`
	} `yaml:"training"`

	Artifact struct {
		Name      string `yaml:"name" default:"Random Forest Solana Predictor"`
		Version   string `yaml:"version" default:"2.0"`
		ModelDir  string `yaml:"model_dir" default:"models" validate:"required"`
		BackupDir string `yaml:"backup_dir" default:"model_backups" validate:"required"`
		LogFile   string `yaml:"log_file" default:"logs/retraining.log" validate:"required"`
	} `yaml:"artifact"`

	Schedule struct {
		RetrainCron string `yaml:"retrain_cron" default:"0 0 3 * * *"`
		ForcedCron  string `yaml:"forced_cron" default:"0 0 4 * * 1"`
	} `yaml:"schedule"`

	Database struct {
		SQLitePath string `yaml:"sqlite_path" default:"data/retraining.db"`
	} `yaml:"database"`

	Metrics struct {
		TextfilePath string `yaml:"textfile_path"`
	} `yaml:"metrics"`

	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
	} `yaml:"telegram"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"min=0"`
		Channel  string `yaml:"channel" default:"model:updates"`
	} `yaml:"redis"`

	Proxy string `yaml:"proxy"`
}

var validate = validator.New()

// Load fills defaults, then reads config from a YAML file, then applies environment
// variable overrides. Values set in the file, zero values included, win over defaults.
// A missing file is not an error: defaults and environment are enough to run.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("RETRAIN_CRON"); v != "" {
		cfg.Schedule.RetrainCron = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return cfg, nil
}

// Validate checks field constraints declared in struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
