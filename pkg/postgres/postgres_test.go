package postgres

import (
	"testing"

	"github.com/mediaplan/forecast-service/internal/cfg"
	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	dsn := DSN(&cfg.PGDBCfg{
		Host: "db", Port: "5433", User: "forecast", Password: "secret", DBName: "mediaplan", SSLMode: "disable",
	})
	assert.Equal(t, "host=db port=5433 user=forecast password=secret dbname=mediaplan sslmode=disable", dsn)
}

func TestMigrationsSource(t *testing.T) {
	assert.Equal(t, "file://db/migrations", MigrationsSource("db/migrations"))
	assert.Equal(t, "file:///srv/migrations", MigrationsSource("/srv/migrations"))
	assert.Equal(t, "file://custom/dir", MigrationsSource("file://custom/dir"))
}
