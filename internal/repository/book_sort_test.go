package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-reading-room/internal/model"
)

func sampleBooks() []model.Book {
	return []model.Book{
		{Name: "SICP", PublishYear: 1985},
		{Name: "Clean Architecture", PublishYear: 2017},
		{Name: "The Go Programming Language", PublishYear: 2015},
	}
}

func TestSortBooks(t *testing.T) {
	t.Run("by name ascending", func(t *testing.T) {
		books := sampleBooks()
		require.NoError(t, SortBooks(books, "name", "asc"))
		assert.Equal(t, "Clean Architecture", books[0].Name)
		assert.Equal(t, "The Go Programming Language", books[2].Name)
	})

	t.Run("by publish year descending", func(t *testing.T) {
		books := sampleBooks()
		require.NoError(t, SortBooks(books, "publish_year", "desc"))
		assert.Equal(t, 2017, books[0].PublishYear)
		assert.Equal(t, 1985, books[2].PublishYear)
	})

	t.Run("order defaults to ascending", func(t *testing.T) {
		books := sampleBooks()
		require.NoError(t, SortBooks(books, "publish_year", ""))
		assert.Equal(t, 1985, books[0].PublishYear)
	})

	t.Run("unknown key is rejected", func(t *testing.T) {
		books := sampleBooks()
		err := SortBooks(books, "author", "asc")
		assert.ErrorIs(t, err, ErrUnknownSortKey)
		// The slice must be untouched on error.
		assert.Equal(t, sampleBooks(), books)
	})
}
