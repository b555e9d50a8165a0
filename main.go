package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"github.com/quickbill/dashboard/controller"
	"github.com/quickbill/dashboard/model"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/pelletier/go-toml/v2"
)

var migrateOnly = flag.Bool("migrate", false, "apply pending schema migrations and exit")

func readConfig() (*model.Config, error) {
	data, err := os.ReadFile("config.toml")
	if err != nil {
		return nil, err
	}
	cfg := &model.Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runMigrations(cfg *model.Config) error {
	m, err := migrate.New("file://"+migrationsDir(), migrateDSN(cfg))
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}

func dothings() error {
	cfg, err := readConfig()
	if err != nil {
		return err
	}
	if *migrateOnly {
		return runMigrations(cfg)
	}
	db, err := model.InitDatabase(cfg)
	if err != nil {
		return err
	}
	store := model.NewStore(db)
	return controller.NewController(db, store)
}

func main() {
	flag.Parse()
	if err := dothings(); err != nil {
		log.Fatal(err)
	}
}
