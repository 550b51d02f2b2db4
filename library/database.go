package library

import (
	"context"
	"embed"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"library-lms/config"
	pkgerrors "library-lms/errors"
	"library-lms/logger"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const migrationDir = "migrations"

// Database owns the GORM connection shared by every store.
type Database struct {
	conn    *gorm.DB
	dialect string
}

// NewDatabase opens the configured database. SQLite files are created on
// first use; schema migrations run when cfg.AutoMigrate is set.
func NewDatabase(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Database, error) {
	if logg == nil {
		logg = logger.Nop()
	}

	var (
		dialector gorm.Dialector
		dialect   string
	)
	switch cfg.Driver {
	case config.DriverSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			// Ensure directory exists so first-run succeeds.
			if dir := filepath.Dir(cfg.Path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("create db dir: %w", err)
				}
			}
			dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1&_txlock=immediate", cfg.Path)
		}
		dialector = sqlite.Open(dsn)
		dialect = "sqlite3"
	case config.DriverPostgres:
		dialector = postgres.New(postgres.Config{
			DSN:                  cfg.DSN,
			PreferSimpleProtocol: true,
		})
		dialect = "postgres"
	case config.DriverPostgresPQ:
		dialector = postgres.New(postgres.Config{
			DriverName: "postgres",
			DSN:        cfg.DSN,
		})
		dialect = "postgres"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gormLog := gormlogger.Discard
	if cfg.LogQueries {
		gormLog = gormlogger.New(
			log.New(logg.Zerolog(), "", 0),
			gormlogger.Config{LogLevel: gormlogger.Info},
		)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLog,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	db := &Database{conn: conn, dialect: dialect}

	if dialect == "sqlite3" {
		// WAL improves write concurrency.
		if err := conn.WithContext(ctx).Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
		logg.Debug(ctx, "schema migrations applied")
	}

	logg.Info(logg.WithField(ctx, "driver", cfg.Driver), "database connection established")
	return db, nil
}

// Migrate runs a goose command ("up", "down", "status", "version", ...)
// against the embedded migrations.
func (d *Database) Migrate(ctx context.Context, command string, args ...string) error {
	sqlDB, err := d.conn.DB()
	if err != nil {
		return fmt.Errorf("getting sql db handle: %w", err)
	}

	goose.SetBaseFS(migrationFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(d.dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.RunContext(ctx, command, sqlDB, migrationDir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// SchemaVersion reports the latest applied migration.
func (d *Database) SchemaVersion(ctx context.Context) (int64, error) {
	sqlDB, err := d.conn.DB()
	if err != nil {
		return 0, err
	}
	if err := goose.SetDialect(d.dialect); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, sqlDB)
}

// Close releases the pooled connections.
func (d *Database) Close() error {
	sqlDB, err := d.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping verifies the datasource is reachable.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Conn returns the underlying GORM connection.
func (d *Database) Conn() *gorm.DB {
	return d.conn
}

// WithTx executes fn inside a transaction, rolling back on error or panic.
func (d *Database) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := d.conn.WithContext(ctx).Begin()
	if tx.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, tx.Error, "begin transaction")
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit transaction")
	}
	return nil
}
