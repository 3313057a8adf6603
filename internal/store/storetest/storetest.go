// Package storetest is a behavioral suite every notes.Store backend must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/quicknotes/internal/notes"
)

// Factory returns an empty store. Cleanup belongs in t.Cleanup.
type Factory func(t *testing.T) notes.Store

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return base.Add(time.Duration(minutes) * time.Minute)
}

// Run executes the suite against fresh stores from newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("InsertAssignsID", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a, err := s.Insert(ctx, notes.Note{Title: "a", Content: "x", CreatedAt: at(0), UpdatedAt: at(0)})
		require.NoError(t, err)
		b, err := s.Insert(ctx, notes.Note{Title: "b", CreatedAt: at(0), UpdatedAt: at(0)})
		require.NoError(t, err)

		assert.NotEmpty(t, a.ID)
		assert.NotEqual(t, a.ID, b.ID)
		assert.Equal(t, "a", a.Title)
		assert.Equal(t, "x", a.Content)
	})

	t.Run("FindByIDRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		created, err := s.Insert(ctx, notes.Note{Title: "hello", Content: "# body", CreatedAt: at(1), UpdatedAt: at(1)})
		require.NoError(t, err)

		got, err := s.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "hello", got.Title)
		assert.Equal(t, "# body", got.Content)
		assert.True(t, got.CreatedAt.Equal(at(1)), "createdAt %v", got.CreatedAt)
		assert.True(t, got.UpdatedAt.Equal(at(1)), "updatedAt %v", got.UpdatedAt)
	})

	t.Run("UnknownIDIsNotFound", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, id := range []string{"missing", "000000000000000000000000", "not/a/valid id"} {
			_, err := s.FindByID(ctx, id)
			assert.True(t, errors.Is(err, notes.ErrNotFound), "FindByID(%q) = %v", id, err)

			_, err = s.FindAndReplaceByID(ctx, id, "t", "c", at(5))
			assert.True(t, errors.Is(err, notes.ErrNotFound), "FindAndReplaceByID(%q) = %v", id, err)

			_, err = s.FindAndDeleteByID(ctx, id)
			assert.True(t, errors.Is(err, notes.ErrNotFound), "FindAndDeleteByID(%q) = %v", id, err)
		}
	})

	t.Run("SortedNewestFirst", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		old, err := s.Insert(ctx, notes.Note{Title: "old", CreatedAt: at(0), UpdatedAt: at(0)})
		require.NoError(t, err)
		mid, err := s.Insert(ctx, notes.Note{Title: "mid", CreatedAt: at(1), UpdatedAt: at(1)})
		require.NoError(t, err)
		_, err = s.FindAndReplaceByID(ctx, old.ID, "old edited", "", at(2))
		require.NoError(t, err)

		list, err := s.FindAllSorted(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, old.ID, list[0].ID)
		assert.Equal(t, mid.ID, list[1].ID)
	})

	t.Run("EmptyListIsNotNil", func(t *testing.T) {
		s := newStore(t)
		list, err := s.FindAllSorted(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})

	t.Run("ReplaceKeepsCreatedAt", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		created, err := s.Insert(ctx, notes.Note{Title: "t", Content: "c", CreatedAt: at(0), UpdatedAt: at(0)})
		require.NoError(t, err)

		updated, err := s.FindAndReplaceByID(ctx, created.ID, "t2", "", at(3))
		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "t2", updated.Title)
		assert.Equal(t, "", updated.Content)
		assert.True(t, updated.CreatedAt.Equal(at(0)))
		assert.True(t, updated.UpdatedAt.Equal(at(3)))

		got, err := s.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "t2", got.Title)
	})

	t.Run("DeleteReturnsRemovedNote", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		created, err := s.Insert(ctx, notes.Note{Title: "gone", CreatedAt: at(0), UpdatedAt: at(0)})
		require.NoError(t, err)

		removed, err := s.FindAndDeleteByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, removed.ID)
		assert.Equal(t, "gone", removed.Title)

		_, err = s.FindByID(ctx, created.ID)
		assert.ErrorIs(t, err, notes.ErrNotFound)

		_, err = s.FindAndDeleteByID(ctx, created.ID)
		assert.ErrorIs(t, err, notes.ErrNotFound)

		list, err := s.FindAllSorted(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("Ping", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(context.Background()))
	})
}
