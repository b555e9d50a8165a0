package model

import (
	"fmt"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the gorm-backed implementation of the Remote table collaborator.
type DB struct {
	db     *gorm.DB
	Config *Config
}

type Config struct {
	Basedir             string
	CookieSecret        string
	MailAPIKey          string
	MailSecret          string
	Mode                string
	Port                int
	PublicBaseURL       string
	RegistrationAllowed bool
	Servers             map[string]server
}

type server struct {
	Database   string
	DBName     string
	DBUser     string
	DBPassword string
	DBHost     string
}

func (d *DB) autoMigrate() error {
	for _, m := range []any{
		&User{},
		&Client{},
		&Invoice{},
		&InvoiceItem{},
		&Payment{},
		&APIToken{},
	} {
		if err := d.db.AutoMigrate(m); err != nil {
			return err
		}
	}
	d.db.Exec(`CREATE INDEX IF NOT EXISTS idx_invoices_created_at
         ON invoices(created_at DESC)`)
	return nil
}

// InitDatabase opens the configured database and migrates the schema.
func InitDatabase(cfg *Config) (*DB, error) {
	var err error

	d := &DB{Config: cfg}
	svr := cfg.Servers[cfg.Mode]
	gormConfig := &gorm.Config{}
	if cfg.Mode == "development" {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	} else {
		gormConfig.Logger = logger.Default.LogMode(logger.Silent)
	}

	switch svr.Database {
	case "sqlite3":
		filename := filepath.Join("db", svr.DBName)
		d.db, err = gorm.Open(sqlite.Open(filename), gormConfig)
		if err != nil {
			return nil, err
		}
	case "postgresql":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=5432 sslmode=disable TimeZone=UTC",
			svr.DBHost, svr.DBUser, svr.DBPassword, svr.DBName)
		d.db, err = gorm.Open(postgres.Open(dsn), gormConfig)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown database %q", svr.Database)
	}
	if err = d.autoMigrate(); err != nil {
		return nil, err
	}
	return d, nil
}

// OpenMemory opens a throwaway in-memory sqlite database. Used by tests.
func OpenMemory() (*DB, error) {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	d := &DB{db: gdb, Config: &Config{Mode: "test"}}
	if err := d.autoMigrate(); err != nil {
		return nil, err
	}
	return d, nil
}
