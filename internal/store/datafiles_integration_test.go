//go:build integration

// Package store_test contains integration tests for the revision archive.
// The '_test' suffix enforces black-box testing through the exported API.
package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/mimir/internal/store"
	"github.com/rafaeljc/mimir/internal/testsupport"
)

// TestPostgresArchive_Integration spins up a real PostgreSQL container once
// and runs scenarios against it.
func TestPostgresArchive_Integration(t *testing.T) {
	ctx := context.Background()

	// Relative path from 'internal/store' to the 'migrations' folder in root.
	migrationsPath := "../../migrations"

	pgContainer, err := testsupport.StartPostgresContainer(ctx, migrationsPath)
	require.NoError(t, err, "failed to start postgres container")

	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	archive := store.NewPostgresArchive(pgContainer.DB)

	// Scenarios run sequentially because they share container state.

	t.Run("SaveRevision_AssignsIDAndTimestamp", func(t *testing.T) {
		rev := &store.DatafileRevision{
			SDKKey:    "sdk-int-1",
			Revision:  "1",
			Payload:   []byte(`{"version":"4","revision":"1"}`),
			FetchedAt: time.Now().UTC(),
		}

		err := archive.SaveRevision(ctx, rev)

		require.NoError(t, err)
		assert.NotZero(t, rev.ID, "expected DB to assign an ID")
		assert.False(t, rev.CreatedAt.IsZero(), "expected DB to assign CreatedAt")
	})

	t.Run("SaveRevision_DuplicateIsNoOp", func(t *testing.T) {
		rev := &store.DatafileRevision{
			SDKKey:    "sdk-int-1",
			Revision:  "1",
			Payload:   []byte(`{"version":"4","revision":"1"}`),
			FetchedAt: time.Now().UTC(),
		}

		// Same (sdk_key, revision) pair as the previous scenario.
		err := archive.SaveRevision(ctx, rev)
		require.NoError(t, err)

		_, total, err := archive.ListRevisions(ctx, "sdk-int-1", 10, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total, "duplicate save must not add a row")
	})

	t.Run("LatestRevision_ReturnsNewestWithPayload", func(t *testing.T) {
		for i := 2; i <= 4; i++ {
			err := archive.SaveRevision(ctx, &store.DatafileRevision{
				SDKKey:    "sdk-int-1",
				Revision:  fmt.Sprintf("%d", i),
				Payload:   []byte(fmt.Sprintf(`{"version":"4","revision":"%d"}`, i)),
				FetchedAt: time.Now().UTC(),
			})
			require.NoError(t, err)
		}

		latest, err := archive.LatestRevision(ctx, "sdk-int-1")
		require.NoError(t, err)

		assert.Equal(t, "4", latest.Revision)
		assert.Equal(t, []byte(`{"version":"4","revision":"4"}`), latest.Payload)
	})

	t.Run("LatestRevision_UnknownKey", func(t *testing.T) {
		_, err := archive.LatestRevision(ctx, "sdk-unknown")

		assert.ErrorIs(t, err, store.ErrRevisionNotFound)
	})

	t.Run("ListRevisions_PagesNewestFirstWithoutPayloads", func(t *testing.T) {
		page, total, err := archive.ListRevisions(ctx, "sdk-int-1", 2, 0)
		require.NoError(t, err)

		assert.Equal(t, int64(4), total)
		require.Len(t, page, 2)
		assert.Equal(t, "4", page[0].Revision)
		assert.Equal(t, "3", page[1].Revision)
		assert.Nil(t, page[0].Payload, "listings must not carry payloads")

		page, _, err = archive.ListRevisions(ctx, "sdk-int-1", 2, 2)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "2", page[0].Revision)
		assert.Equal(t, "1", page[1].Revision)
	})

	t.Run("ListRevisions_UnknownKeyIsEmptyNotError", func(t *testing.T) {
		page, total, err := archive.ListRevisions(ctx, "sdk-unknown", 10, 0)

		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, page)
	})
}
