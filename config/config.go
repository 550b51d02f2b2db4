package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const EnvPrefix = "LMS"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	// DriverPostgresPQ talks to Postgres through lib/pq instead of pgx.
	DriverPostgresPQ = "postgres-pq"

	// DeleteActiveRestore returns the copy to the shelf when an active
	// borrowing is deleted; DeleteActiveReject refuses the delete.
	DeleteActiveRestore = "restore"
	DeleteActiveReject  = "reject"

	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Borrowing BorrowingConfig
	Server    ServerConfig
}

// Load reads the LMS_* environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default mirrors the tag defaults without reading the environment.
func Default() *Config {
	return &Config{
		App: AppConfig{Env: "dev", LogLevel: "info", LogFormat: LogFormatConsole},
		DB: DBConfig{
			Driver:          DriverSQLite,
			Path:            "library.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 10 * time.Minute,
			AutoMigrate:     true,
		},
		Borrowing: BorrowingConfig{
			DefaultLoanDays:    14,
			DeleteActivePolicy: DeleteActiveRestore,
			DailyFine:          decimal.RequireFromString("0.25"),
		},
		Server: ServerConfig{Addr: ":8080", ReadTimeout: 5 * time.Second, WriteTimeout: 10 * time.Second},
	}
}

func (c *Config) Validate() error {
	switch c.DB.Driver {
	case DriverSQLite:
		if c.DB.DSN == "" && strings.TrimSpace(c.DB.Path) == "" {
			return fmt.Errorf("LMS_DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres, DriverPostgresPQ:
		if c.DB.DSN == "" {
			return fmt.Errorf("LMS_DB_DSN is required for the %s driver", c.DB.Driver)
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.DB.Driver)
	}

	switch c.Borrowing.DeleteActivePolicy {
	case DeleteActiveRestore, DeleteActiveReject:
	default:
		return fmt.Errorf("unsupported delete policy %q", c.Borrowing.DeleteActivePolicy)
	}

	if c.Borrowing.DefaultLoanDays <= 0 {
		return fmt.Errorf("LMS_BORROWING_DEFAULT_LOAN_DAYS must be positive")
	}
	if c.Borrowing.MaxLoanDays < 0 || c.Borrowing.MaxActivePerMember < 0 {
		return fmt.Errorf("borrowing limits cannot be negative")
	}
	if c.Borrowing.DailyFine.IsNegative() {
		return fmt.Errorf("LMS_BORROWING_DAILY_FINE cannot be negative")
	}

	switch c.App.LogFormat {
	case LogFormatJSON, LogFormatConsole:
	default:
		return fmt.Errorf("unsupported log format %q", c.App.LogFormat)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"LMS_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"LMS_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"LMS_LOG_FORMAT" default:"console"`
	LogFile      string `envconfig:"LMS_LOG_FILE"`
	LogWarnStack bool   `envconfig:"LMS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, "dev")
}

type DBConfig struct {
	Driver string `envconfig:"LMS_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"LMS_DB_DSN"`
	Path   string `envconfig:"LMS_DB_PATH" default:"library.db"`

	MaxOpenConns    int           `envconfig:"LMS_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"LMS_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"LMS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LMS_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"LMS_DB_AUTO_MIGRATE" default:"true"`
	LogQueries  bool `envconfig:"LMS_DB_LOG_QUERIES" default:"false"`
}

type BorrowingConfig struct {
	DefaultLoanDays    int             `envconfig:"LMS_BORROWING_DEFAULT_LOAN_DAYS" default:"14"`
	MaxLoanDays        int             `envconfig:"LMS_BORROWING_MAX_LOAN_DAYS" default:"0"`
	MaxActivePerMember int             `envconfig:"LMS_BORROWING_MAX_ACTIVE_PER_MEMBER" default:"0"`
	DeleteActivePolicy string          `envconfig:"LMS_BORROWING_DELETE_ACTIVE_POLICY" default:"restore"`
	DailyFine          decimal.Decimal `envconfig:"LMS_BORROWING_DAILY_FINE" default:"0.25"`
}

type ServerConfig struct {
	Addr         string        `envconfig:"LMS_SERVER_ADDR" default:":8080"`
	ReadTimeout  time.Duration `envconfig:"LMS_SERVER_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LMS_SERVER_WRITE_TIMEOUT" default:"10s"`
}
