package pressure

import (
	"fmt"

	"github.com/memwarden/agent/internal/utils"
	"github.com/spf13/viper"
)

const (
	DEFAULT_CONFIG_KEY = "thresholds"

	MODERATE_PERCENT_DEFAULT  = 70.0
	HIGH_PERCENT_DEFAULT      = 80.0
	CRITICAL_PERCENT_DEFAULT  = 90.0
	EMERGENCY_PERCENT_DEFAULT = 95.0
	GC_THRESHOLD_MB_DEFAULT   = 500
)

// DefaultThresholds returns the stock pressure boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ModeratePercent:  MODERATE_PERCENT_DEFAULT,
		HighPercent:      HIGH_PERCENT_DEFAULT,
		CriticalPercent:  CRITICAL_PERCENT_DEFAULT,
		EmergencyPercent: EMERGENCY_PERCENT_DEFAULT,
		GCThresholdMB:    GC_THRESHOLD_MB_DEFAULT,
	}
}

func ConfigFromViper(key *string) (Thresholds, error) {
	var keyValue string
	if key == nil {
		keyValue = DEFAULT_CONFIG_KEY
	} else {
		keyValue = *key
	}

	thresholdConfig := viper.Sub(keyValue)
	if thresholdConfig == nil {
		thresholdConfig = viper.New()
	}

	thresholdConfig.BindEnv("moderate_percent", "MW_MODERATE_PERCENT")
	thresholdConfig.BindEnv("high_percent", "MW_HIGH_PERCENT")
	thresholdConfig.BindEnv("critical_percent", "MW_CRITICAL_PERCENT")
	thresholdConfig.BindEnv("emergency_percent", "MW_EMERGENCY_PERCENT")
	thresholdConfig.BindEnv("gc_threshold_mb", "MW_GC_THRESHOLD_MB")

	thresholdConfig.SetDefault("moderate_percent", MODERATE_PERCENT_DEFAULT)
	thresholdConfig.SetDefault("high_percent", HIGH_PERCENT_DEFAULT)
	thresholdConfig.SetDefault("critical_percent", CRITICAL_PERCENT_DEFAULT)
	thresholdConfig.SetDefault("emergency_percent", EMERGENCY_PERCENT_DEFAULT)
	thresholdConfig.SetDefault("gc_threshold_mb", GC_THRESHOLD_MB_DEFAULT)

	var thresholds Thresholds
	err := thresholdConfig.Unmarshal(&thresholds)
	if err != nil {
		return Thresholds{}, fmt.Errorf("unable to decode into struct, %v", err)
	}

	err = utils.ValidateStruct(&thresholds)
	if err != nil {
		return Thresholds{}, err
	}
	return thresholds, nil
}
