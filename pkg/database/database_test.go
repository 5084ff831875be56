package database

import (
	"context"
	"path/filepath"
	"testing"

	"affiliate-link/internal/config"
	"affiliate-link/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	mysqlCfg := config.DB{Driver: "mysql", Host: "db", Port: 3306, User: "u", Password: "p", Name: "aff"}
	assert.Equal(t, "u:p@tcp(db:3306)/aff?charset=utf8mb4&parseTime=True&loc=Local", DSN(mysqlCfg))

	pgCfg := config.DB{Driver: "postgres", Host: "pg", Port: 5432, User: "u", Password: "p", Name: "aff", SSLMode: "disable"}
	assert.Equal(t, "host=pg user=u password=p dbname=aff port=5432 sslmode=disable TimeZone=UTC", DSN(pgCfg))

	explicit := config.DB{Driver: "postgres", DSN: "postgres://x"}
	assert.Equal(t, "postgres://x", DSN(explicit))
}

func TestDialectorUnknownDriver(t *testing.T) {
	_, err := Dialector(config.DB{Driver: "oracle"})
	assert.Error(t, err)
}

func TestOpenSQLiteMigrates(t *testing.T) {
	cfg := config.DB{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "aff.db")}

	db, err := Open(cfg)
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, Ping(context.Background(), db))
	for _, table := range []any{&model.Link{}, &model.Offer{}, &model.ClickLog{}, &model.Conversion{}, &model.User{}} {
		assert.True(t, db.Migrator().HasTable(table))
	}
}
