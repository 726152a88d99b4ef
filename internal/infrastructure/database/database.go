package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net"
	"path"
	"strconv"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/asakaida/polylink/internal/infrastructure/config"
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

// Database represents an open graph database connection
type Database struct {
	DB     *sql.DB
	Driver string
}

// Open connects to the database selected by cfg.Driver
func Open(cfg *config.DatabaseConfig) (*Database, error) {
	switch cfg.Driver {
	case DriverPostgres, "":
		return NewPostgres(cfg)
	case DriverMySQL:
		return NewMySQL(cfg)
	case DriverSQLite:
		return NewSQLite(cfg.Path)
	}
	return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
}

// NewPostgres creates a new PostgreSQL connection
func NewPostgres(cfg *config.DatabaseConfig) (*Database, error) {
	return open(DriverPostgres, cfg.ConnectionString(), 25)
}

// NewMySQL creates a new MySQL connection
func NewMySQL(cfg *config.DatabaseConfig) (*Database, error) {
	return open(DriverMySQL, MySQLDSN(cfg), 25)
}

// NewSQLite opens (or creates) a SQLite database file
func NewSQLite(file string) (*Database, error) {
	if file == "" {
		return nil, fmt.Errorf("sqlite database path is required")
	}
	return open(DriverSQLite, SQLiteDSN(file), 4)
}

// MySQLDSN returns the go-sql-driver/mysql DSN for cfg
func MySQLDSN(cfg *config.DatabaseConfig) string {
	mc := gomysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.MultiStatements = true
	return mc.FormatDSN()
}

// SQLiteDSN returns the modernc.org/sqlite DSN for a database file.
// Foreign keys are enabled and writers wait instead of failing with SQLITE_BUSY.
func SQLiteDSN(file string) string {
	return file + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
}

func open(driver, dsn string, maxOpen int) (*Database, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{DB: db, Driver: driver}, nil
}

// NewMigrateDriver creates the golang-migrate database driver for the connection
func (d *Database) NewMigrateDriver() (migratedb.Driver, error) {
	switch d.Driver {
	case DriverPostgres:
		return migratepg.WithInstance(d.DB, &migratepg.Config{})
	case DriverMySQL:
		return migratemysql.WithInstance(d.DB, &migratemysql.Config{})
	case DriverSQLite:
		return migratesqlite.WithInstance(d.DB, &migratesqlite.Config{})
	}
	return nil, fmt.Errorf("unsupported database driver: %s", d.Driver)
}

// NewMigrate creates a migrate instance reading the embedded migrations of the driver.
// Closing the returned instance also closes the database connection.
func (d *Database) NewMigrate() (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, path.Join("migrations", d.Driver))
	if err != nil {
		return nil, fmt.Errorf("failed to open migration source: %w", err)
	}

	driver, err := d.NewMigrateDriver()
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, d.Driver, driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}

	return m, nil
}

// RunMigrations runs database migrations
func (d *Database) RunMigrations() error {
	m, err := d.NewMigrate()
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// HealthCheck checks if the database connection is healthy
func (d *Database) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
