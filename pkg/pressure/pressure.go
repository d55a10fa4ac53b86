package pressure

// Level classifies how close the system is to memory exhaustion.
// Levels are ordered: the monitor compares two levels to decide whether a
// recovery pass actually improved the situation.
type Level int

const (
	Low Level = iota
	Moderate
	High
	Critical
	Emergency
)

func (l Level) String() string {
	switch l {
	case Low:
		return "low"
	case Moderate:
		return "moderate"
	case High:
		return "high"
	case Critical:
		return "critical"
	case Emergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// Thresholds holds the percent-used boundaries between pressure levels.
// The boundaries must be strictly ascending. GCThresholdMB is part of the
// configuration contract but is not consulted by the classification logic.
type Thresholds struct {
	ModeratePercent  float64 `mapstructure:"moderate_percent" validate:"gt=0,lt=100"`
	HighPercent      float64 `mapstructure:"high_percent" validate:"gtfield=ModeratePercent,lt=100"`
	CriticalPercent  float64 `mapstructure:"critical_percent" validate:"gtfield=HighPercent,lt=100"`
	EmergencyPercent float64 `mapstructure:"emergency_percent" validate:"gtfield=CriticalPercent,lte=100"`
	GCThresholdMB    int     `mapstructure:"gc_threshold_mb" validate:"gte=0"`
}

// Classify maps a percent-used reading to a pressure level.
// A value exactly on a boundary counts as reaching that level.
func Classify(percentUsed float64, t Thresholds) Level {
	switch {
	case percentUsed >= t.EmergencyPercent:
		return Emergency
	case percentUsed >= t.CriticalPercent:
		return Critical
	case percentUsed >= t.HighPercent:
		return High
	case percentUsed >= t.ModeratePercent:
		return Moderate
	default:
		return Low
	}
}
