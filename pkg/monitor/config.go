package monitor

import (
	"fmt"
	"time"

	"github.com/memwarden/agent/internal/utils"
	"github.com/spf13/viper"
)

const (
	DEFAULT_CONFIG_KEY = "monitor"

	CHECK_INTERVAL_DEFAULT       = 30 * time.Second
	RECOVERY_INTERVAL_DEFAULT    = 30 * time.Second
	MAX_SNAPSHOTS_DEFAULT        = 100
	MAX_RECOVERY_HISTORY_DEFAULT = 100
)

type Config struct {
	// CheckInterval is how often the background loop takes a snapshot.
	CheckInterval time.Duration `mapstructure:"check_interval"`
	// RecoveryInterval is the global throttle between recovery passes.
	RecoveryInterval time.Duration `mapstructure:"recovery_interval"`
	// MaxSnapshots bounds the snapshot history; once exceeded the history
	// is batch-trimmed to half this value.
	MaxSnapshots int `mapstructure:"max_snapshots" validate:"gte=2"`
	// MaxRecoveryHistory bounds the recovery outcome history the same way.
	MaxRecoveryHistory int `mapstructure:"max_recovery_history" validate:"gte=2"`
}

func DefaultConfig() Config {
	return Config{
		CheckInterval:      CHECK_INTERVAL_DEFAULT,
		RecoveryInterval:   RECOVERY_INTERVAL_DEFAULT,
		MaxSnapshots:       MAX_SNAPSHOTS_DEFAULT,
		MaxRecoveryHistory: MAX_RECOVERY_HISTORY_DEFAULT,
	}
}

func ConfigFromViper(key *string) (Config, error) {
	var keyValue string
	if key == nil {
		keyValue = DEFAULT_CONFIG_KEY
	} else {
		keyValue = *key
	}

	monitorConfig := viper.Sub(keyValue)
	if monitorConfig == nil {
		monitorConfig = viper.New()
	}

	monitorConfig.BindEnv("check_interval", "MW_CHECK_INTERVAL")
	monitorConfig.BindEnv("recovery_interval", "MW_RECOVERY_INTERVAL")
	monitorConfig.BindEnv("max_snapshots", "MW_MAX_SNAPSHOTS")
	monitorConfig.BindEnv("max_recovery_history", "MW_MAX_RECOVERY_HISTORY")

	monitorConfig.SetDefault("check_interval", CHECK_INTERVAL_DEFAULT)
	monitorConfig.SetDefault("recovery_interval", RECOVERY_INTERVAL_DEFAULT)
	monitorConfig.SetDefault("max_snapshots", MAX_SNAPSHOTS_DEFAULT)
	monitorConfig.SetDefault("max_recovery_history", MAX_RECOVERY_HISTORY_DEFAULT)

	var config Config
	err := monitorConfig.Unmarshal(&config)
	if err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct, %v", err)
	}

	err = utils.ValidateStruct(&config)
	if err != nil {
		return Config{}, err
	}
	return config, nil
}
