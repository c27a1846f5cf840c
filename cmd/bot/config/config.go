// Package config загружает конфигурацию бота из YAML-файла с переопределением
// секретов через переменные окружения (.env поддерживается через godotenv).
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// LoggingConfig задает уровень и формат логирования.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json или text
}

// BotConfig содержит конфигурацию Telegram-бота.
type BotConfig struct {
	Token      string  `yaml:"token"`
	ChannelID  int64   `yaml:"channel_id"`
	AdminIDs   []int64 `yaml:"admin_ids"`
	DataDir    string  `yaml:"data_dir"`
	FooterText string  `yaml:"footer_text"`

	AlbumDebounceMS        int `yaml:"album_debounce_ms"`
	PendingCap             int `yaml:"pending_cap"`
	CleanupIntervalMinutes int `yaml:"cleanup_interval_minutes"`
	BroadcastDelayMS       int `yaml:"broadcast_delay_ms"`
	OpsPort                int `yaml:"ops_port"` // 0 — сервисный HTTP выключен

	Logging LoggingConfig `yaml:"logging"`
}

// Config является оберткой для соответствия структуре YAML файла.
type Config struct {
	Bot BotConfig `yaml:"bot"`
}

// LoadBotConfig загружает конфигурацию из указанного файла и дополняет ее
// переменными окружения: BOT_TOKEN и CHANNEL_ID всегда имеют приоритет
// над значениями из YAML.
func LoadBotConfig(filename string) (*BotConfig, error) {
	// .env опционален: в проде переменные приходят из окружения.
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(filename)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read bot config file %s: %w", filename, err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bot config: %w", err)
	}

	botCfg := &cfg.Bot
	if token := os.Getenv("BOT_TOKEN"); token != "" {
		botCfg.Token = token
	}
	if raw := os.Getenv("CHANNEL_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid CHANNEL_ID %q: %w", raw, err)
		}
		botCfg.ChannelID = id
	}

	applyDefaults(botCfg)
	return botCfg, nil
}

func applyDefaults(cfg *BotConfig) {
	if cfg.DataDir == "" {
		// Railway монтирует volume в /app/data; локально пишем в текущую папку.
		if _, err := os.Stat(railwayDataDir); err == nil {
			cfg.DataDir = railwayDataDir
		} else {
			cfg.DataDir = "."
		}
	}
	if cfg.AlbumDebounceMS == 0 {
		cfg.AlbumDebounceMS = DefaultAlbumDebounceMS
	}
	if cfg.PendingCap == 0 {
		cfg.PendingCap = DefaultPendingCap
	}
	if cfg.CleanupIntervalMinutes == 0 {
		cfg.CleanupIntervalMinutes = DefaultCleanupIntervalMinutes
	}
	if cfg.BroadcastDelayMS == 0 {
		cfg.BroadcastDelayMS = DefaultBroadcastDelayMS
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate проверяет корректность конфигурации бота.
func (c *BotConfig) Validate() error {
	if c.Token == "" || c.Token == "YOUR_TELEGRAM_BOT_TOKEN" {
		return fmt.Errorf("bot.token is not configured")
	}
	if c.ChannelID == 0 {
		return fmt.Errorf("bot.channel_id is not configured")
	}
	if len(c.AdminIDs) == 0 {
		return fmt.Errorf("bot.admin_ids cannot be empty")
	}
	if c.AlbumDebounceMS <= 0 {
		return fmt.Errorf("bot.album_debounce_ms must be positive")
	}
	if c.PendingCap <= 0 {
		return fmt.Errorf("bot.pending_cap must be positive")
	}
	return nil
}

// IsAdmin сообщает, входит ли указанный Telegram ID в список администраторов.
func (c *BotConfig) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}
