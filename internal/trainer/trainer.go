// Package trainer builds model artifacts from book catalogs.
package trainer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/bookrec/internal/catalog"
	"github.com/hyperjump/bookrec/internal/ingest"
	"github.com/hyperjump/bookrec/internal/models"
	"github.com/hyperjump/bookrec/internal/vsm"
	"go.uber.org/zap"
)

// Trainer fits models over book catalogs and optionally records the catalog in a store.
type Trainer struct {
	store  catalog.Store // optional; when set, trained catalogs are persisted
	logger *zap.Logger   // optional; when set, logs debug events
}

// TrainerOption configures a Trainer.
type TrainerOption func(*Trainer)

// WithLogger sets a logger for debug output (catalog read, model built, artifact saved).
func WithLogger(l *zap.Logger) TrainerOption {
	return func(t *Trainer) { t.logger = l }
}

// WithStore records every trained catalog in store.
func WithStore(s catalog.Store) TrainerOption {
	return func(t *Trainer) { t.store = s }
}

// NewTrainer creates a trainer.
func NewTrainer(opts ...TrainerOption) *Trainer {
	t := &Trainer{}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Result summarizes a saved training run.
type Result struct {
	Books        int           `json:"books"`
	Terms        int           `json:"terms"`
	ArtifactPath string        `json:"artifact_path"`
	Duration     time.Duration `json:"duration_ns"`
}

// Train normalizes book text and builds a model. Returns vsm.ErrCorpusEmpty for no books.
func (t *Trainer) Train(ctx context.Context, books []models.Book) (*vsm.Model, error) {
	prepared := make([]models.Book, len(books))
	for i, b := range books {
		b.Title = ingest.Preprocess(b.Title)
		b.Text = ingest.Preprocess(b.Text)
		prepared[i] = b
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := vsm.Build(prepared)
	if err != nil {
		return nil, fmt.Errorf("failed to build model: %w", err)
	}
	if t.logger != nil {
		t.logger.Debug("trainer model built",
			zap.Int("books", m.Size()),
			zap.Int("terms", m.VocabularySize()))
	}
	return m, nil
}

// TrainFile reads the catalog at src, trains a model, and atomically writes it to artifactPath.
func (t *Trainer) TrainFile(ctx context.Context, src, artifactPath string) (*Result, error) {
	start := time.Now()
	if ext := strings.ToLower(filepath.Ext(src)); !extensionAllowed(ext, ingest.Extensions) {
		return nil, fmt.Errorf("%w: %q", ingest.ErrUnsupportedFormat, ext)
	}
	if t.logger != nil {
		t.logger.Debug("trainer reading catalog", zap.String("path", src))
	}
	books, err := ingest.Read(src)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return t.trainAndSave(ctx, books, artifactPath, start)
}

// TrainCatalog retrains from the books already in the store and writes the artifact.
func (t *Trainer) TrainCatalog(ctx context.Context, artifactPath string) (*Result, error) {
	start := time.Now()
	if t.store == nil {
		return nil, fmt.Errorf("no catalog store configured")
	}
	books, err := t.store.ListBooks(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	return t.trainAndSave(ctx, books, artifactPath, start)
}

func (t *Trainer) trainAndSave(ctx context.Context, books []models.Book, artifactPath string, start time.Time) (*Result, error) {
	m, err := t.Train(ctx, books)
	if err != nil {
		return nil, err
	}
	if err := m.Save(artifactPath); err != nil {
		return nil, fmt.Errorf("save model: %w", err)
	}
	// The catalog only changes once the artifact it describes is in place.
	if t.store != nil {
		books := make([]models.Book, m.Size())
		for i := range books {
			books[i] = m.Item(i)
		}
		if err := t.store.ReplaceAll(ctx, books); err != nil {
			return nil, fmt.Errorf("failed to store catalog: %w", err)
		}
	}
	res := &Result{
		Books:        m.Size(),
		Terms:        m.VocabularySize(),
		ArtifactPath: artifactPath,
		Duration:     time.Since(start),
	}
	if t.logger != nil {
		t.logger.Debug("trainer artifact saved",
			zap.String("path", artifactPath),
			zap.Int("books", res.Books),
			zap.Duration("duration", res.Duration))
	}
	return res, nil
}

// extensionAllowed returns true if ext (e.g. ".csv") is in allowed (case-insensitive).
func extensionAllowed(ext string, allowed []string) bool {
	ext = strings.ToLower(ext)
	for _, a := range allowed {
		if strings.ToLower(a) == ext {
			return true
		}
	}
	return false
}
