package main

import (
	"context"
	"path/filepath"
	"testing"

	"parking-violation-monitor/be/database"
	"parking-violation-monitor/be/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm/logger"
)

func TestUpsertOperator(t *testing.T) {
	db, err := database.Open(sqlite.Open(filepath.Join(t.TempDir(), "ops.db")), logger.Default.LogMode(logger.Silent))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store := database.NewStore(db)
	ctx := context.Background()

	created, err := upsertOperator(ctx, store, "ops@example.com", "first", "Ops", "admin")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = upsertOperator(ctx, store, "ops@example.com", "second", "Ignored", "operator")
	require.NoError(t, err)
	assert.False(t, created)

	operator, err := store.FindOperatorByEmail(ctx, "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ops", operator.Name)
	assert.Equal(t, "admin", operator.Role)
	assert.True(t, utils.CheckPassword(operator.Password, "second"))
	assert.False(t, utils.CheckPassword(operator.Password, "first"))
}

func TestCommand_RequiresFlags(t *testing.T) {
	cmd := command()
	cmd.SetArgs([]string{"--email", "ops@example.com"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password")
}

func TestCommand_CreatesOperatorAndReleasesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("DATABASE_URL", "sqlite:///"+path)

	cmd := command()
	cmd.SetArgs([]string{"--email", "cli@example.com", "--password", "secret", "--role", "admin"})
	require.NoError(t, cmd.Execute())

	db, err := database.Open(sqlite.Open(path), logger.Default.LogMode(logger.Silent))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	operator, err := database.NewStore(db).FindOperatorByEmail(context.Background(), "cli@example.com")
	require.NoError(t, err)
	assert.Equal(t, "admin", operator.Role)
	assert.True(t, utils.CheckPassword(operator.Password, "secret"))
}
