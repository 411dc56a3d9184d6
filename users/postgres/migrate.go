package postgres

import (
	"database/sql"
	"embed"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies all pending schema migrations. Already applied migrations are skipped.
func Migrate(db *sql.DB) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return errors.Wrap(err, "[postgres.Migrate] creating driver")
	}
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return errors.Wrap(err, "[postgres.Migrate] creating source")
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return errors.Wrap(err, "[postgres.Migrate] creating migrator")
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "[postgres.Migrate] running migrations")
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return errors.Wrap(err, "[postgres.Migrate] reading version")
	}
	if dirty {
		log.Warn().Uint("version", version).Msg("user store migration state is dirty")
	} else {
		log.Info().Uint("version", version).Msg("user store migrations complete")
	}
	return nil
}
