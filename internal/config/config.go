package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"DipTracker/internal/calculator"
	"DipTracker/internal/model"
	"DipTracker/internal/pricecache"
)

// PeriodConfig is a period as written in the config file.
// Dates are YYYY-MM-DD (UTC midnight) or RFC3339.
type PeriodConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Config holds all application configuration.
type Config struct {
	CoinListFile string `yaml:"coin_list_file"`
	API          struct {
		BaseURL           string        `yaml:"base_url"`
		VsCurrency        string        `yaml:"vs_currency"`
		Timeout           time.Duration `yaml:"timeout"`
		MaxAttempts       int           `yaml:"max_attempts"`
		RateLimitDelay    time.Duration `yaml:"rate_limit_delay"`
		RetryDelay        time.Duration `yaml:"retry_delay"`
		RequestsPerMinute int           `yaml:"requests_per_minute"`
	} `yaml:"api"`
	Cache struct {
		Backend     string `yaml:"backend"`
		CSVPath     string `yaml:"csv_path"`
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"cache"`
	Report struct {
		Dir string `yaml:"dir"`
	} `yaml:"report"`
	Investment struct {
		Amount              float64 `yaml:"amount"`
		PeriodMode          string  `yaml:"period_mode"`
		MissingCurrentPrice string  `yaml:"missing_current_price"`
	} `yaml:"investment"`
	Periods  []PeriodConfig `yaml:"periods"`
	Schedule struct {
		Cron string `yaml:"cron"`
	} `yaml:"schedule"`
	Recorder struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"recorder"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		TopN     int    `yaml:"top_n"`
	} `yaml:"telegram"`
	Metrics struct {
		TextfilePath string `yaml:"textfile_path"`
	} `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
	Proxy   string        `yaml:"proxy"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // text or json
	File       string `yaml:"file"`   // empty means stdout
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// DefaultPeriods are used when the config file lists none.
var DefaultPeriods = []PeriodConfig{
	{Start: "2024-08-04", End: "2024-08-06"},
	{Start: "2024-09-06", End: "2024-09-08"},
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("COIN_LIST_FILE"); v != "" {
		cfg.CoinListFile = v
	}
	if v := os.Getenv("COINGECKO_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("PRICE_CACHE_FILE"); v != "" {
		cfg.Cache.CSVPath = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Cache.SQLitePath = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Cache.PostgresDSN = v
	}
	if v := os.Getenv("RESULTS_DIR"); v != "" {
		cfg.Report.Dir = v
	}
	if v := os.Getenv("INVESTMENT_AMOUNT"); v != "" {
		if amount, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Investment.Amount = amount
		}
	}
	if v := os.Getenv("PERIOD_MODE"); v != "" {
		cfg.Investment.PeriodMode = v
	}
	if v := os.Getenv("MISSING_PRICE_POLICY"); v != "" {
		cfg.Investment.MissingCurrentPrice = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("CRON_SCHEDULE"); v != "" {
		cfg.Schedule.Cron = v
	}
	if v := os.Getenv("HISTORY_DB"); v != "" {
		cfg.Recorder.SQLitePath = v
	}
	if v := os.Getenv("METRICS_TEXTFILE"); v != "" {
		cfg.Metrics.TextfilePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.CoinListFile == "" {
		cfg.CoinListFile = "coin_list.txt"
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if cfg.API.VsCurrency == "" {
		cfg.API.VsCurrency = "usd"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 30 * time.Second
	}
	if cfg.API.MaxAttempts == 0 {
		cfg.API.MaxAttempts = 3
	}
	if cfg.API.RateLimitDelay == 0 {
		cfg.API.RateLimitDelay = time.Second
	}
	if cfg.API.RetryDelay == 0 {
		cfg.API.RetryDelay = time.Minute
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = pricecache.BackendCSV
	}
	if cfg.Cache.CSVPath == "" {
		cfg.Cache.CSVPath = "results/price_data.csv"
	}
	if cfg.Cache.SQLitePath == "" {
		cfg.Cache.SQLitePath = "data/price_cache.db"
	}
	if cfg.Report.Dir == "" {
		cfg.Report.Dir = "results"
	}
	if cfg.Investment.Amount == 0 {
		cfg.Investment.Amount = 100
	}
	if cfg.Investment.PeriodMode == "" {
		cfg.Investment.PeriodMode = string(calculator.PeriodsAll)
	}
	if cfg.Investment.MissingCurrentPrice == "" {
		cfg.Investment.MissingCurrentPrice = string(calculator.MissingPriceFail)
	}
	if len(cfg.Periods) == 0 {
		cfg.Periods = append([]PeriodConfig(nil), DefaultPeriods...)
	}
	if cfg.Telegram.TopN == 0 {
		cfg.Telegram.TopN = 10
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	if c.API.MaxAttempts < 1 {
		return fmt.Errorf("api.max_attempts must be at least 1")
	}
	if c.API.RateLimitDelay < 0 || c.API.RetryDelay < 0 {
		return fmt.Errorf("api delays must not be negative")
	}
	if c.API.RequestsPerMinute < 0 {
		return fmt.Errorf("api.requests_per_minute must not be negative")
	}
	switch c.Cache.Backend {
	case pricecache.BackendCSV, pricecache.BackendSQLite:
	case pricecache.BackendPostgres:
		if c.Cache.PostgresDSN == "" {
			return fmt.Errorf("cache.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("cache.backend must be csv, sqlite or postgres, got %q", c.Cache.Backend)
	}
	if c.Investment.Amount <= 0 {
		return fmt.Errorf("investment.amount must be positive")
	}
	switch calculator.PeriodMode(c.Investment.PeriodMode) {
	case calculator.PeriodsAll, calculator.PeriodsLatest:
	default:
		return fmt.Errorf("investment.period_mode must be all or latest, got %q", c.Investment.PeriodMode)
	}
	switch calculator.MissingPricePolicy(c.Investment.MissingCurrentPrice) {
	case calculator.MissingPriceFail, calculator.MissingPriceZero:
	default:
		return fmt.Errorf("investment.missing_current_price must be fail or zero, got %q", c.Investment.MissingCurrentPrice)
	}
	if _, err := c.ParsePeriods(); err != nil {
		return err
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// ParsePeriods converts the configured periods, checking start < end.
func (c *Config) ParsePeriods() ([]model.Period, error) {
	periods := make([]model.Period, 0, len(c.Periods))
	for i, pc := range c.Periods {
		start, err := ParseDate(pc.Start)
		if err != nil {
			return nil, fmt.Errorf("periods[%d].start: %w", i, err)
		}
		end, err := ParseDate(pc.End)
		if err != nil {
			return nil, fmt.Errorf("periods[%d].end: %w", i, err)
		}
		p, err := model.NewPeriod(start, end)
		if err != nil {
			return nil, fmt.Errorf("periods[%d]: %w", i, err)
		}
		periods = append(periods, p)
	}
	return periods, nil
}

// InvestmentOptions returns the calculator options described by the config.
func (c *Config) InvestmentOptions() calculator.Options {
	return calculator.Options{
		Amount:       decimal.NewFromFloat(c.Investment.Amount),
		PeriodMode:   calculator.PeriodMode(c.Investment.PeriodMode),
		MissingPrice: calculator.MissingPricePolicy(c.Investment.MissingCurrentPrice),
	}
}

// CacheOptions returns the price cache backend settings.
func (c *Config) CacheOptions() pricecache.Options {
	return pricecache.Options{
		Backend:     c.Cache.Backend,
		CSVPath:     c.Cache.CSVPath,
		SQLitePath:  c.Cache.SQLitePath,
		PostgresDSN: c.Cache.PostgresDSN,
	}
}

// ParseDate accepts YYYY-MM-DD (UTC midnight) or an RFC3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC3339", s)
	}
	return t.UTC(), nil
}

// RunDate resolves the as-of date: the override when set, else the DATE
// environment variable, else today in UTC.
func RunDate(override string, now time.Time) (time.Time, error) {
	v := override
	if v == "" {
		v = os.Getenv("DATE")
	}
	if v == "" {
		return now.UTC().Truncate(24 * time.Hour), nil
	}
	return ParseDate(v)
}
