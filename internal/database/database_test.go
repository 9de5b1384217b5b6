package database

import (
	"context"
	"testing"

	"yatube/internal/config"
	"yatube/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func sqliteConfig() *config.Config {
	return &config.Config{
		Env:                      "test",
		DBDriver:                 "sqlite",
		SQLitePath:               "file::memory:",
		DBConnMaxLifetimeMinutes: 5,
	}
}

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestConnect_SQLiteAutoMigrates(t *testing.T) {
	db, err := Connect(context.Background(), sqliteConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	for _, model := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(model), "%T table missing", model)
	}
	assert.NoError(t, Ping(context.Background(), db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestConnect_SQLiteRejectsSelfFollow(t *testing.T) {
	db, err := Connect(context.Background(), sqliteConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	u := models.User{Username: "leo", Email: "leo@example.com", Password: "x"}
	require.NoError(t, db.Create(&u).Error)

	err = db.Create(&models.Follow{UserID: u.ID, AuthorID: u.ID}).Error
	assert.Error(t, err)
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantSQL bool
		wantAut bool
		wantErr bool
	}{
		{"hybrid dev", config.Config{Env: "development"}, true, true, false},
		{"hybrid prod", config.Config{Env: "production"}, true, false, false},
		{"sql", config.Config{Env: "development", DBSchemaMode: "sql"}, true, false, false},
		{"auto dev", config.Config{Env: "development", DBSchemaMode: "auto"}, false, true, false},
		{"auto prod refused", config.Config{Env: "prod", DBSchemaMode: "auto"}, false, false, true},
		{"sqlite forces auto", config.Config{Env: "test", DBDriver: "sqlite", DBSchemaMode: "sql"}, false, true, false},
		{"unknown", config.Config{Env: "development", DBSchemaMode: "magic"}, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runSQL, runAuto, err := schemaPolicy(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, runSQL)
			assert.Equal(t, tt.wantAut, runAuto)
		})
	}
}

func TestMigrations_EmbeddedAndOrdered(t *testing.T) {
	ms := Migrations()
	require.NotEmpty(t, ms)
	for i, m := range ms {
		assert.NotEmpty(t, m.UpScript, m.String())
		assert.NotEmpty(t, m.DownScript, m.String())
		if i > 0 {
			assert.Greater(t, m.Version, ms[i-1].Version)
		}
	}
	assert.Equal(t, "000001_init_schema", ms[0].String())
}

func TestValidateAppliedVersions(t *testing.T) {
	registered := []Migration{{Version: 1}, {Version: 2}}
	assert.NoError(t, validateAppliedVersions([]int{1, 2}, registered))
	err := validateAppliedVersions([]int{1, 7}, registered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000007")
}

func TestMigrator_PendingAndMissingTable(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	m := NewMigrator(db)
	applied, err := m.Applied(context.Background())
	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.Len(t, m.Pending(applied), len(Migrations()))
	assert.Len(t, m.Pending([]int{1}), len(Migrations())-1)
}
