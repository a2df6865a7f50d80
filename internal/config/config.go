package config

import "github.com/kelseyhightower/envconfig"

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken     string `envconfig:"BOT_TOKEN" required:"true"`
	OwnerID      int64  `envconfig:"OWNER_ID" default:"0"` // always treated as premium
	PaymentToken string `envconfig:"PAYMENT_TOKEN" default:""`
	DBPath       string `envconfig:"DB_PATH" default:"./data/eventbot.db"`
	DefaultTZ    string `envconfig:"DEFAULT_TZ" default:"Europe/Moscow"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr     string `envconfig:"HTTP_ADDR" default:":8080"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
