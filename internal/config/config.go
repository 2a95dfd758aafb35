package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string
	Environment string
	LogLevel    string

	// Database
	DatabaseURL   string
	RunMigrations bool
	DBPool        DBPool

	// Background Workers
	WorkerCount             int
	MaturityRefreshInterval time.Duration
	OverdueScanInterval     time.Duration

	// HTTP
	AllowedOrigins []string
	RateLimit      string

	// Sentry
	SentryDSN string

	// Lending rules
	Lending Lending
}

// DBPool sizes the Postgres connection pool and the slow query log
type DBPool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	SlowQuery       time.Duration
}

// Lending holds the business constants of the ledger, loan and maturity engines
type Lending struct {
	LoanMonthlyRate      decimal.Decimal
	LoanToDepositRatio   decimal.Decimal
	LoanMinAmount        decimal.Decimal
	LoanTermDays         int
	MaturityMonthlyRate  decimal.Decimal
	MaturityTenureMonths int
	MaturityWindowMonths int
	HistoryDefaultLimit  int
	HistoryMaxLimit      int
}

// Load reads configuration from the environment and an optional .env file
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Port:                    v.GetString("PORT"),
		Environment:             v.GetString("ENVIRONMENT"),
		LogLevel:                v.GetString("LOG_LEVEL"),
		DatabaseURL:             v.GetString("DATABASE_URL"),
		RunMigrations:           v.GetBool("RUN_MIGRATIONS"),
		DBPool: DBPool{
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: v.GetDuration("DB_CONN_MAX_IDLE_TIME"),
			SlowQuery:       v.GetDuration("DB_SLOW_QUERY"),
		},
		WorkerCount:             v.GetInt("WORKER_COUNT"),
		MaturityRefreshInterval: v.GetDuration("MATURITY_REFRESH_INTERVAL"),
		OverdueScanInterval:     v.GetDuration("OVERDUE_SCAN_INTERVAL"),
		AllowedOrigins:          splitList(v.GetString("ALLOWED_ORIGINS")),
		RateLimit:               v.GetString("RATE_LIMIT"),
		SentryDSN:               v.GetString("SENTRY_DSN"),
	}

	lending, err := loadLending(v)
	if err != nil {
		return nil, err
	}
	cfg.Lending = lending

	// Validate required configuration
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.MaturityRefreshInterval <= 0 || cfg.OverdueScanInterval <= 0 {
		return nil, fmt.Errorf("job intervals must be positive")
	}
	if cfg.DBPool.MaxOpenConns < 1 || cfg.DBPool.MaxIdleConns > cfg.DBPool.MaxOpenConns {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS must be positive and at least DB_MAX_IDLE_CONNS")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("RUN_MIGRATIONS", true)
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", "5m")
	v.SetDefault("DB_SLOW_QUERY", "200ms")
	v.SetDefault("WORKER_COUNT", 2)
	v.SetDefault("MATURITY_REFRESH_INTERVAL", "24h")
	v.SetDefault("OVERDUE_SCAN_INTERVAL", "6h")
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT", "300-M")
	v.SetDefault("SENTRY_DSN", "")

	v.SetDefault("LOAN_MONTHLY_RATE", "0.01")
	v.SetDefault("LOAN_TO_DEPOSIT_RATIO", "0.80")
	v.SetDefault("LOAN_MIN_AMOUNT", "1000")
	v.SetDefault("LOAN_TERM_DAYS", 30)
	v.SetDefault("MATURITY_MONTHLY_RATE", "0.002778")
	v.SetDefault("MATURITY_TENURE_MONTHS", 36)
	v.SetDefault("MATURITY_WINDOW_MONTHS", 3)
	v.SetDefault("HISTORY_DEFAULT_LIMIT", 50)
	v.SetDefault("HISTORY_MAX_LIMIT", 500)
}

func loadLending(v *viper.Viper) (Lending, error) {
	l := Lending{
		LoanTermDays:         v.GetInt("LOAN_TERM_DAYS"),
		MaturityTenureMonths: v.GetInt("MATURITY_TENURE_MONTHS"),
		MaturityWindowMonths: v.GetInt("MATURITY_WINDOW_MONTHS"),
		HistoryDefaultLimit:  v.GetInt("HISTORY_DEFAULT_LIMIT"),
		HistoryMaxLimit:      v.GetInt("HISTORY_MAX_LIMIT"),
	}

	decimals := []struct {
		key string
		dst *decimal.Decimal
	}{
		{"LOAN_MONTHLY_RATE", &l.LoanMonthlyRate},
		{"LOAN_TO_DEPOSIT_RATIO", &l.LoanToDepositRatio},
		{"LOAN_MIN_AMOUNT", &l.LoanMinAmount},
		{"MATURITY_MONTHLY_RATE", &l.MaturityMonthlyRate},
	}
	for _, d := range decimals {
		val, err := decimal.NewFromString(v.GetString(d.key))
		if err != nil {
			return Lending{}, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		if val.IsNegative() {
			return Lending{}, fmt.Errorf("%s must not be negative", d.key)
		}
		*d.dst = val
	}

	if l.LoanTermDays <= 0 || l.MaturityTenureMonths <= 0 {
		return Lending{}, fmt.Errorf("LOAN_TERM_DAYS and MATURITY_TENURE_MONTHS must be positive")
	}
	if l.HistoryDefaultLimit <= 0 || l.HistoryMaxLimit < l.HistoryDefaultLimit {
		return Lending{}, fmt.Errorf("HISTORY_DEFAULT_LIMIT must be positive and not exceed HISTORY_MAX_LIMIT")
	}

	return l, nil
}

// splitList reads a comma-separated value, dropping blanks
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DefaultLending returns the lending rules used when no overrides are set
func DefaultLending() Lending {
	return Lending{
		LoanMonthlyRate:      decimal.RequireFromString("0.01"),
		LoanToDepositRatio:   decimal.RequireFromString("0.80"),
		LoanMinAmount:        decimal.NewFromInt(1000),
		LoanTermDays:         30,
		MaturityMonthlyRate:  decimal.RequireFromString("0.002778"),
		MaturityTenureMonths: 36,
		MaturityWindowMonths: 3,
		HistoryDefaultLimit:  50,
		HistoryMaxLimit:      500,
	}
}
