package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mediaplan/forecast-service/internal/cfg"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/mediaplan/forecast-service/pkg/logger"
)

// PgDatabase держит пул соединений и умеет накатывать миграции.
type PgDatabase struct {
	Pool           *pgxpool.Pool
	dsn            string
	migrationsPath string
}

// DSN собирает строку подключения в формате key=value.
func DSN(c *cfg.PGDBCfg) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// MigrationsSource превращает путь к каталогу миграций в URL источника golang-migrate.
func MigrationsSource(path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	return "file://" + path
}

// Connect открывает пул и проверяет соединение.
func Connect(ctx context.Context, c *cfg.PGDBCfg) (*PgDatabase, error) {
	const op = "PgDatabase.Connect"

	dsn := DSN(c)
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if c.MaxConns > 0 {
		poolCfg.MaxConns = int32(c.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	db := &PgDatabase{Pool: pool, dsn: dsn, migrationsPath: c.MigrationsPath}
	if err := db.Ping(ctx); err != nil {
		pool.Close()
		return nil, e.Wrap(op, err)
	}

	return db, nil
}

func (db *PgDatabase) Ping(ctx context.Context) error {
	if err := db.Pool.Ping(ctx); err != nil {
		return e.Wrap("PgDatabase.Ping", err)
	}
	return nil
}

func (db *PgDatabase) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// RunMigrations применяет миграции refresh_tasks и forecast_history.
// Отсутствие новых миграций ошибкой не считается.
func (db *PgDatabase) RunMigrations(log logger.Logger) error {
	const op = "PgDatabase.RunMigrations"

	sqlDb, err := sql.Open("pgx", db.dsn)
	if err != nil {
		return e.Wrap(op, err)
	}
	defer sqlDb.Close()

	driver, err := postgres.WithInstance(sqlDb, &postgres.Config{})
	if err != nil {
		return e.Wrap(op, err)
	}

	m, err := migrate.NewWithDatabaseInstance(MigrationsSource(db.migrationsPath), "postgres", driver)
	if err != nil {
		return e.Wrap(op, err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Debugf("database schema is up to date")
			return nil
		}
		return e.Wrap(op, err)
	}

	version, dirty, verr := m.Version()
	if verr == nil {
		log.Infof("migrations applied, schema version %d (dirty=%t)", version, dirty)
	}
	return nil
}
