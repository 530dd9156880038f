package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_CreatesAllTables(t *testing.T) {
	db := setupTestDB(t, "migrate")

	require.NoError(t, Migrate(db))
	for _, m := range Models {
		assert.True(t, db.Migrator().HasTable(m))
	}

	// Running twice is harmless.
	require.NoError(t, Migrate(db))
}

func TestSeedAdmin(t *testing.T) {
	db := setupTestDB(t, "seed_admin", &User{})

	admin := User{Name: "Admin", Email: "Admin@MindCare.dev", Password: "argon2id$s$h"}
	require.NoError(t, SeedAdmin(db, admin))
	require.NoError(t, SeedAdmin(db, admin))

	var users []User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, RoleAdmin, users[0].Role)
	assert.Equal(t, "admin@mindcare.dev", users[0].Email)
}

func TestSeedAdmin_SkipsWithoutCredentials(t *testing.T) {
	db := setupTestDB(t, "seed_admin_empty", &User{})

	require.NoError(t, SeedAdmin(db, User{Email: "admin@mindcare.dev"}))

	var count int64
	require.NoError(t, db.Model(&User{}).Count(&count).Error)
	assert.Zero(t, count)
}
