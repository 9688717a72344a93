// Package catalog persists the book catalog a model is trained from.
package catalog

import (
	"context"
	"errors"

	"github.com/hyperjump/bookrec/internal/models"
)

// ErrNotFound is returned when a book id is not in the catalog.
var ErrNotFound = errors.New("book not found")

// Store defines book catalog persistence operations. Books keep the order they were stored in.
type Store interface {
	// ReplaceAll atomically swaps the whole catalog for books.
	ReplaceAll(ctx context.Context, books []models.Book) error
	GetBook(ctx context.Context, id string) (*models.Book, error)
	// ListBooks returns books in catalog order. A non-positive limit returns all books from offset.
	ListBooks(ctx context.Context, offset, limit int) ([]models.Book, error)
	CountBooks(ctx context.Context) (int64, error)

	Close() error
}
