package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ftilbury/aibot/risk"
	"github.com/ftilbury/aibot/sim"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to environment overrides, e.g. AIBOT_RISK_MAX_DAILY_LOSS.
const EnvPrefix = "AIBOT"

// Config is the complete process configuration, loaded once at start.
type Config struct {
	Account    AccountConfig    `mapstructure:"account" json:"account" yaml:"account"`
	Execution  ExecutionConfig  `mapstructure:"execution" json:"execution" yaml:"execution"`
	Risk       RiskConfig       `mapstructure:"risk" json:"risk" yaml:"risk"`
	Evaluation EvaluationConfig `mapstructure:"evaluation" json:"evaluation" yaml:"evaluation"`
	Journal    JournalConfig    `mapstructure:"journal" json:"journal" yaml:"journal"`
	Alert      AlertConfig      `mapstructure:"alert" json:"alert" yaml:"alert"`
	Log        LogConfig        `mapstructure:"log" json:"log" yaml:"log"`
	Live       LiveConfig       `mapstructure:"live" json:"live" yaml:"live"`
	API        APIConfig        `mapstructure:"api" json:"api" yaml:"api"`

	Symbols []string `mapstructure:"symbols" json:"symbols" yaml:"symbols"`
	// DataDir holds one <SYMBOL>.csv (or .csv.xz) bar+signal file per symbol.
	DataDir string `mapstructure:"data_dir" json:"data_dir" yaml:"data_dir"`
}

type AccountConfig struct {
	Currency       string  `mapstructure:"currency" json:"currency" yaml:"currency"`
	InitialCapital float64 `mapstructure:"initial_capital" json:"initial_capital" yaml:"initial_capital"`
}

type ExecutionConfig struct {
	Slippage    float64 `mapstructure:"slippage" json:"slippage" yaml:"slippage"` // price units per leg
	Latency     int     `mapstructure:"latency" json:"latency" yaml:"latency"`    // bars
	LatencyMode string  `mapstructure:"latency_mode" json:"latency_mode" yaml:"latency_mode"`
}

type RiskConfig struct {
	MaxDailyLoss        float64 `mapstructure:"max_daily_loss" json:"max_daily_loss" yaml:"max_daily_loss"`
	MaxTrailingDrawdown float64 `mapstructure:"max_trailing_drawdown" json:"max_trailing_drawdown" yaml:"max_trailing_drawdown"`
}

type EvaluationConfig struct {
	RiskFreeRate   float64 `mapstructure:"risk_free_rate" json:"risk_free_rate" yaml:"risk_free_rate"`
	PeriodsPerYear int     `mapstructure:"periods_per_year" json:"periods_per_year" yaml:"periods_per_year"`
	TrainFraction  float64 `mapstructure:"train_fraction" json:"train_fraction" yaml:"train_fraction"`
}

type JournalConfig struct {
	Type      string         `mapstructure:"type" json:"type" yaml:"type"` // "csv", "sqlite" or "postgres"
	OutputDir string         `mapstructure:"output_dir" json:"output_dir" yaml:"output_dir"`
	DBPath    string         `mapstructure:"db_path" json:"db_path,omitempty" yaml:"db_path,omitempty"`
	Postgres  PostgresConfig `mapstructure:"postgres" json:"postgres" yaml:"postgres"`
}

type AlertConfig struct {
	Type   string `mapstructure:"type" json:"type" yaml:"type"` // "log" or "telegram"
	ChatID string `mapstructure:"chat_id" json:"chat_id,omitempty" yaml:"chat_id,omitempty"`
	Token  string `mapstructure:"token" json:"-" yaml:"-"`
	// TokenParam names an SSM parameter holding the bot token.
	TokenParam string  `mapstructure:"token_param" json:"token_param,omitempty" yaml:"token_param,omitempty"`
	BaseURL    string  `mapstructure:"base_url" json:"base_url,omitempty" yaml:"base_url,omitempty"`
	RatePerSec float64 `mapstructure:"rate_per_sec" json:"rate_per_sec" yaml:"rate_per_sec"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" json:"level" yaml:"level"`                   // "debug", "info", "warn", "error"
	Format      string `mapstructure:"format" json:"format" yaml:"format"`                // "json" or "console"
	OutputFile  string `mapstructure:"output_file" json:"output_file" yaml:"output_file"` // optional rotated file
	Environment string `mapstructure:"environment" json:"environment" yaml:"environment"` // "dev" or "prod"
}

type LiveConfig struct {
	URL              string        `mapstructure:"url" json:"url" yaml:"url"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" json:"handshake_timeout" yaml:"handshake_timeout"`
	ReconnectDelay   time.Duration `mapstructure:"reconnect_delay" json:"reconnect_delay" yaml:"reconnect_delay"`
	// MaxBars bounds the per-symbol history kept in memory; 0 keeps all.
	MaxBars int `mapstructure:"max_bars" json:"max_bars" yaml:"max_bars"`
}

type APIConfig struct {
	Addr string `mapstructure:"addr" json:"addr" yaml:"addr"`
}

// Default mirrors the stock paper-trading setup.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Currency:       "USD",
			InitialCapital: 100_000,
		},
		Execution: ExecutionConfig{
			Slippage:    0.00001,
			Latency:     1,
			LatencyMode: string(sim.LatencyWrap),
		},
		Risk: RiskConfig{
			MaxDailyLoss:        0.025,
			MaxTrailingDrawdown: 0.10,
		},
		Evaluation: EvaluationConfig{
			RiskFreeRate:   0,
			PeriodsPerYear: 252,
			TrainFraction:  0.8,
		},
		Journal: JournalConfig{
			Type:      "csv",
			OutputDir: "results",
			DBPath:    "results/journal.db",
			Postgres: PostgresConfig{
				Host:    "localhost",
				Port:    5432,
				User:    "postgres",
				DBName:  "aibot",
				SSLMode: "disable",
			},
		},
		Alert: AlertConfig{
			Type:       "log",
			RatePerSec: 1,
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			Environment: "dev",
		},
		Live: LiveConfig{
			URL:              "ws://localhost:8765/bars",
			HandshakeTimeout: 10 * time.Second,
			ReconnectDelay:   5 * time.Second,
			MaxBars:          5000,
		},
		API: APIConfig{
			Addr: ":8080",
		},
		Symbols: []string{"EURUSD", "GBPUSD", "USDJPY", "USDCHF", "USDCAD", "AUDUSD", "NZDUSD"},
		DataDir: "data",
	}
}

// LoadFromFile reads path (YAML or JSON by extension) over the defaults and
// applies AIBOT_* environment overrides. A .env file in the working
// directory is loaded first when present. An empty path uses defaults and
// environment only.
func LoadFromFile(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so that AutomaticEnv can override keys
// missing from the file.
func setDefaults(v *viper.Viper, d *Config) {
	defaults := map[string]any{
		"account.currency":                d.Account.Currency,
		"account.initial_capital":         d.Account.InitialCapital,
		"execution.slippage":              d.Execution.Slippage,
		"execution.latency":               d.Execution.Latency,
		"execution.latency_mode":          d.Execution.LatencyMode,
		"risk.max_daily_loss":             d.Risk.MaxDailyLoss,
		"risk.max_trailing_drawdown":      d.Risk.MaxTrailingDrawdown,
		"evaluation.risk_free_rate":       d.Evaluation.RiskFreeRate,
		"evaluation.periods_per_year":     d.Evaluation.PeriodsPerYear,
		"evaluation.train_fraction":       d.Evaluation.TrainFraction,
		"journal.type":                    d.Journal.Type,
		"journal.output_dir":              d.Journal.OutputDir,
		"journal.db_path":                 d.Journal.DBPath,
		"journal.postgres.host":           d.Journal.Postgres.Host,
		"journal.postgres.port":           d.Journal.Postgres.Port,
		"journal.postgres.user":           d.Journal.Postgres.User,
		"journal.postgres.password":       d.Journal.Postgres.Password,
		"journal.postgres.password_param": d.Journal.Postgres.PasswordParam,
		"journal.postgres.dbname":         d.Journal.Postgres.DBName,
		"journal.postgres.sslmode":        d.Journal.Postgres.SSLMode,
		"journal.postgres.timezone":       d.Journal.Postgres.TimeZone,
		"journal.postgres.create_db":      d.Journal.Postgres.CreateDB,
		"alert.type":                      d.Alert.Type,
		"alert.chat_id":                   d.Alert.ChatID,
		"alert.token":                     d.Alert.Token,
		"alert.token_param":               d.Alert.TokenParam,
		"alert.base_url":                  d.Alert.BaseURL,
		"alert.rate_per_sec":              d.Alert.RatePerSec,
		"log.level":                       d.Log.Level,
		"log.format":                      d.Log.Format,
		"log.output_file":                 d.Log.OutputFile,
		"log.environment":                 d.Log.Environment,
		"live.url":                        d.Live.URL,
		"live.handshake_timeout":          d.Live.HandshakeTimeout,
		"live.reconnect_delay":            d.Live.ReconnectDelay,
		"live.max_bars":                   d.Live.MaxBars,
		"api.addr":                        d.API.Addr,
		"symbols":                         d.Symbols,
		"data_dir":                        d.DataDir,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// SaveToFile saves configuration to a file (YAML for .yaml/.yml, JSON
// otherwise). Secrets are never written.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate returns the first violated rule.
func (c *Config) Validate() error {
	if c.Account.InitialCapital <= 0 {
		return fmt.Errorf("account.initial_capital must be positive")
	}
	if c.Execution.Slippage < 0 {
		return fmt.Errorf("execution.slippage must not be negative")
	}
	if c.Execution.Latency < 0 {
		return fmt.Errorf("execution.latency must not be negative")
	}
	if _, err := sim.ParseLatencyMode(c.Execution.LatencyMode); err != nil {
		return fmt.Errorf("execution.latency_mode: %w", err)
	}
	if c.Risk.MaxDailyLoss <= 0 || c.Risk.MaxDailyLoss >= 1 {
		return fmt.Errorf("risk.max_daily_loss must be between 0 and 1")
	}
	if c.Risk.MaxTrailingDrawdown <= 0 || c.Risk.MaxTrailingDrawdown >= 1 {
		return fmt.Errorf("risk.max_trailing_drawdown must be between 0 and 1")
	}
	if c.Evaluation.PeriodsPerYear <= 0 {
		return fmt.Errorf("evaluation.periods_per_year must be positive")
	}
	if c.Evaluation.TrainFraction <= 0 || c.Evaluation.TrainFraction >= 1 {
		return fmt.Errorf("evaluation.train_fraction must be between 0 and 1")
	}

	switch c.Journal.Type {
	case "csv":
		if c.Journal.OutputDir == "" {
			return fmt.Errorf("journal.output_dir required for csv type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for sqlite type")
		}
	case "postgres":
		if c.Journal.Postgres.Host == "" || c.Journal.Postgres.DBName == "" {
			return fmt.Errorf("journal.postgres host and dbname required for postgres type")
		}
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'postgres'")
	}

	switch c.Alert.Type {
	case "log", "":
	case "telegram":
		if c.Alert.ChatID == "" {
			return fmt.Errorf("alert.chat_id required for telegram type")
		}
		if c.Alert.Token == "" && c.Alert.TokenParam == "" {
			return fmt.Errorf("alert.token or alert.token_param required for telegram type")
		}
	default:
		return fmt.Errorf("alert.type must be 'log' or 'telegram'")
	}

	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols must not be empty")
	}
	for _, s := range c.Symbols {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("symbols must not contain blanks")
		}
	}
	return nil
}

// RiskLimits builds the risk engine limits.
func (c *Config) RiskLimits() risk.Limits {
	return risk.Limits{
		InitialCapital:      c.Account.InitialCapital,
		MaxDailyLoss:        c.Risk.MaxDailyLoss,
		MaxTrailingDrawdown: c.Risk.MaxTrailingDrawdown,
	}
}

// SimConfig builds the simulator configuration for symbol. LatencyMode must
// already have passed Validate.
func (c *Config) SimConfig(symbol string) sim.Config {
	mode, _ := sim.ParseLatencyMode(c.Execution.LatencyMode)
	return sim.Config{
		Symbol:         symbol,
		Slippage:       c.Execution.Slippage,
		Latency:        c.Execution.Latency,
		LatencyMode:    mode,
		InitialCapital: c.Account.InitialCapital,
	}
}
