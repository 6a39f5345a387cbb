//go:build integration

// Package store_test contains integration tests for the Data Access Layer.
// We use the '_test' suffix to enforce black-box testing, ensuring we only
// access the exported API of the store package.
package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/mimir/internal/store"
	"github.com/rafaeljc/mimir/internal/testsupport"
)

// TestPostgresStore_Integration orchestrates the integration tests for the
// repository. It spins up a real PostgreSQL container once and runs
// scenarios against it.
func TestPostgresStore_Integration(t *testing.T) {
	// 1. Infrastructure Setup
	ctx := context.Background()

	// Relative path from 'internal/store' to the 'migrations' folder in root.
	// Note: In CI/CD, ensure the working directory allows this traversal.
	migrationsPath := "../../migrations"

	pgContainer, err := testsupport.StartPostgresContainer(ctx, migrationsPath)
	require.NoError(t, err, "failed to start postgres container")

	// Ensure resource cleanup even if tests fail
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	// Initialize the Repository with the real pool
	repo := store.NewPostgresStore(pgContainer.DB)

	// 2. Scenarios
	// We run these sequentially as they share the same container state.

	t.Run("GetConfig_ReturnsNotFound_WhenRealmHasNoRow", func(t *testing.T) {
		// Act
		pc, err := repo.GetConfig(ctx, "unknown-realm")

		// Assert
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.Nil(t, pc)
	})

	t.Run("SetConfig_CreatesRow_WithVersionOne", func(t *testing.T) {
		// Arrange
		doc := `{"attributes": [{"name": "nickname"}]}`

		// Act
		err := repo.SetConfig(ctx, "acme", &doc)

		// Assert
		require.NoError(t, err)

		pc, err := repo.GetConfig(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, "acme", pc.Realm)
		assert.Equal(t, doc, pc.Document)
		assert.Equal(t, int64(1), pc.Version, "new rows must start at Version 1")
		assert.False(t, pc.CreatedAt.IsZero(), "expected DB to assign CreatedAt")
		assert.False(t, pc.UpdatedAt.IsZero(), "expected DB to assign UpdatedAt")
	})

	t.Run("SetConfig_BumpsVersion_OnUpdate", func(t *testing.T) {
		// Arrange
		updated := `{"attributes": [{"name": "nickname"}, {"name": "locale"}]}`

		// Act
		err := repo.SetConfig(ctx, "acme", &updated)

		// Assert
		require.NoError(t, err)

		pc, err := repo.GetConfig(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, updated, pc.Document)
		assert.Equal(t, int64(2), pc.Version, "every write must bump the version")
		assert.True(t, pc.UpdatedAt.After(pc.CreatedAt) || pc.UpdatedAt.Equal(pc.CreatedAt))
	})

	t.Run("ListVersions_ReturnsAllRealms", func(t *testing.T) {
		// Arrange
		doc := `{"attributes": []}`
		require.NoError(t, repo.SetConfig(ctx, "globex", &doc))

		// Act
		versions, err := repo.ListVersions(ctx)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, int64(2), versions["acme"])
		assert.Equal(t, int64(1), versions["globex"])
	})

	t.Run("SetConfig_DeletesRow_WhenDocumentIsNil", func(t *testing.T) {
		// Act
		err := repo.SetConfig(ctx, "acme", nil)

		// Assert
		require.NoError(t, err)

		_, err = repo.GetConfig(ctx, "acme")
		assert.ErrorIs(t, err, store.ErrNotFound)

		versions, err := repo.ListVersions(ctx)
		require.NoError(t, err)
		assert.NotContains(t, versions, "acme")
	})

	t.Run("SetConfig_DeleteIsIdempotent", func(t *testing.T) {
		// Act: deleting a realm that has no row must not fail
		err := repo.SetConfig(ctx, "acme", nil)

		// Assert
		assert.NoError(t, err)
	})
}
