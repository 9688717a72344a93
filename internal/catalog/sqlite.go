package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/bookrec/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS books (
		position INTEGER NOT NULL UNIQUE,
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		price REAL,
		review_score REAL,
		review_summary TEXT,
		text TEXT NOT NULL,
		imported_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_books_position ON books(position);
	`
	_, err := db.Exec(schema)
	return err
}

// ReplaceAll deletes every stored book and inserts books in order, in one transaction.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, books []models.Book) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM books`); err != nil {
		return fmt.Errorf("failed to clear catalog: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO books (position, id, title, price, review_score, review_summary, text)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, b := range books {
		if _, err := stmt.ExecContext(ctx, i, b.ID, b.Title,
			nullFloat(b.Price), nullFloat(b.ReviewScore), nullString(b.ReviewSummary), b.Text,
		); err != nil {
			return fmt.Errorf("failed to insert book %q: %w", b.ID, err)
		}
	}
	return tx.Commit()
}

// GetBook returns a book by ID, or an error wrapping ErrNotFound.
func (s *SQLiteStore) GetBook(ctx context.Context, id string) (*models.Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, price, review_score, review_summary, text
		 FROM books WHERE id = ?`, id,
	)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBooks returns books in catalog order.
func (s *SQLiteStore) ListBooks(ctx context.Context, offset, limit int) ([]models.Book, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, price, review_score, review_summary, text
		 FROM books ORDER BY position LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// CountBooks returns the total number of books.
func (s *SQLiteStore) CountBooks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBook(sc scanner) (models.Book, error) {
	var (
		b       models.Book
		price   sql.NullFloat64
		score   sql.NullFloat64
		summary sql.NullString
	)
	if err := sc.Scan(&b.ID, &b.Title, &price, &score, &summary, &b.Text); err != nil {
		return models.Book{}, err
	}
	if price.Valid {
		b.Price = models.Float(price.Float64)
	}
	if score.Valid {
		b.ReviewScore = models.Float(score.Float64)
	}
	if summary.Valid {
		b.ReviewSummary = models.String(summary.String)
	}
	return b, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
