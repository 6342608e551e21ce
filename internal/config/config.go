package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"github.com/meridianlab/meridian-trading/pkg/errors"
)

// Config is the flat option map recognized by the strategies, the risk
// manager and the backtest simulator. It is parsed from YAML and validated
// once at load time; components read it as plain typed fields afterwards.
type Config struct {
	// Indicator lengths.
	EMAFastLen   int `yaml:"ema_fast_len" json:"ema_fast_len" validate:"gt=0"`
	EMASlowLen   int `yaml:"ema_slow_len" json:"ema_slow_len" validate:"gt=0"`
	EMATrendLen  int `yaml:"ema_trend_len" json:"ema_trend_len" validate:"gt=0"`
	ATRLen       int `yaml:"atr_len" json:"atr_len" validate:"gt=0"`
	ADXLen       int `yaml:"adx_len" json:"adx_len" validate:"gt=0"`
	RSILen       int `yaml:"rsi_len" json:"rsi_len" validate:"gt=0"`
	StochK       int `yaml:"stoch_k" json:"stoch_k" validate:"gt=0"`
	StochD       int `yaml:"stoch_d" json:"stoch_d" validate:"gt=0"`
	StochSmoothK int `yaml:"stoch_smooth_k" json:"stoch_smooth_k" validate:"gt=0"`

	// Signal thresholds.
	ADXThreshold    float64 `yaml:"adx_threshold" json:"adx_threshold" validate:"gte=0,lte=100"`
	RSIOverbought   float64 `yaml:"rsi_overbought" json:"rsi_overbought" validate:"gte=0,lte=100"`
	RSIOversold     float64 `yaml:"rsi_oversold" json:"rsi_oversold" validate:"gte=0,lte=100"`
	StochOversold   float64 `yaml:"stoch_oversold" json:"stoch_oversold" validate:"gte=0,lte=100"`
	StochOverbought float64 `yaml:"stoch_overbought" json:"stoch_overbought" validate:"gte=0,lte=100"`

	// Sentiment gate. An empty slug disables the gate entirely.
	SentimentThreshold float64 `yaml:"sentiment_threshold" json:"sentiment_threshold" validate:"gte=-1,lte=1"`
	Slug               string  `yaml:"slug" json:"slug"`

	// Risk limits and sizing.
	RiskPerTrade         float64 `yaml:"risk_per_trade" json:"risk_per_trade" validate:"gt=0,lte=1"`
	MaxTradeValue        float64 `yaml:"max_trade_value" json:"max_trade_value" validate:"gt=0"`
	MaxOpenTrades        int     `yaml:"max_open_trades" json:"max_open_trades" validate:"gt=0"`
	DailyLossLimitPct    float64 `yaml:"daily_loss_limit_pct" json:"daily_loss_limit_pct" validate:"gt=0,lte=1"`
	ConsecutiveLossLimit int     `yaml:"consecutive_loss_limit" json:"consecutive_loss_limit" validate:"gt=0"`
	RRRatio              float64 `yaml:"rr_ratio" json:"rr_ratio" validate:"gt=0"`
}

// DefaultConfig returns a Config populated with the standard defaults.
func DefaultConfig() Config {
	return Config{
		EMAFastLen:           20,
		EMASlowLen:           50,
		EMATrendLen:          200,
		ATRLen:               14,
		ADXLen:               14,
		RSILen:               14,
		StochK:               14,
		StochD:               3,
		StochSmoothK:         3,
		ADXThreshold:         25,
		RSIOverbought:        70,
		RSIOversold:          30,
		StochOversold:        20,
		StochOverbought:      80,
		SentimentThreshold:   0.3,
		Slug:                 "",
		RiskPerTrade:         0.02,
		MaxTradeValue:        10000,
		MaxOpenTrades:        3,
		DailyLossLimitPct:    0.03,
		ConsecutiveLossLimit: 3,
		RRRatio:              2.0,
	}
}

// ParseConfig parses a YAML document on top of the defaults and validates
// the result. Unknown keys are ignored.
func ParseConfig(data string) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(data), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file: %s", path)
	}

	return ParseConfig(string(data))
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	if c.RSIOversold >= c.RSIOverbought {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"rsi_oversold (%.2f) must be below rsi_overbought (%.2f)", c.RSIOversold, c.RSIOverbought)
	}

	if c.StochOversold >= c.StochOverbought {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"stoch_oversold (%.2f) must be below stoch_overbought (%.2f)", c.StochOversold, c.StochOverbought)
	}

	return nil
}
