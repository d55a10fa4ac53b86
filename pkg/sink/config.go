package sink

import (
	"fmt"
	"time"

	"github.com/memwarden/agent/internal/utils"
	"github.com/spf13/viper"
)

const (
	DEFAULT_CONFIG_KEY = "webhook"

	MIN_INTERVAL_DEFAULT = 15 * time.Second
	RETRY_MAX_DEFAULT    = 5
)

// WebhookConfig configures the alerting webhook. An empty URL disables the
// sink.
type WebhookConfig struct {
	URL         string        `mapstructure:"url" validate:"omitempty,url"`
	MinInterval time.Duration `mapstructure:"min_interval"`
	RetryMax    int           `mapstructure:"retry_max" validate:"gte=0"`
}

func WebhookConfigFromViper(key *string) (WebhookConfig, error) {
	var keyValue string
	if key == nil {
		keyValue = DEFAULT_CONFIG_KEY
	} else {
		keyValue = *key
	}

	webhookConfig := viper.Sub(keyValue)
	if webhookConfig == nil {
		webhookConfig = viper.New()
	}

	webhookConfig.BindEnv("url", "MW_WEBHOOK_URL")
	webhookConfig.BindEnv("min_interval", "MW_WEBHOOK_MIN_INTERVAL")
	webhookConfig.BindEnv("retry_max", "MW_WEBHOOK_RETRY_MAX")

	webhookConfig.SetDefault("min_interval", MIN_INTERVAL_DEFAULT)
	webhookConfig.SetDefault("retry_max", RETRY_MAX_DEFAULT)

	var config WebhookConfig
	err := webhookConfig.Unmarshal(&config)
	if err != nil {
		return WebhookConfig{}, fmt.Errorf("unable to decode into struct, %v", err)
	}

	err = utils.ValidateStruct(&config)
	if err != nil {
		return WebhookConfig{}, err
	}
	return config, nil
}
