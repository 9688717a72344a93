package loader

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyperjump/bookrec/internal/vsm"
	"go.uber.org/zap"
)

// Snapshot describes the model currently being served.
type Snapshot struct {
	Model    *vsm.Model
	Source   string
	LoadedAt time.Time
}

// Holder serves one immutable model at a time and replaces it wholesale on reload.
// Readers never observe a partially loaded model.
type Holder struct {
	src     Source
	logger  *zap.Logger
	current atomic.Pointer[Snapshot]
	reload  sync.Mutex
	onLoad  []func(*vsm.Model, error)
}

// HolderOption configures a Holder.
type HolderOption func(*Holder)

// WithLogger sets a logger for load and reload events.
func WithLogger(l *zap.Logger) HolderOption {
	return func(h *Holder) { h.logger = l }
}

// OnLoad registers fn to be called after every load attempt with the new model or the error.
func OnLoad(fn func(*vsm.Model, error)) HolderOption {
	return func(h *Holder) { h.onLoad = append(h.onLoad, fn) }
}

// NewHolder creates a holder for src. No model is loaded until Reload succeeds.
func NewHolder(src Source, opts ...HolderOption) *Holder {
	h := &Holder{src: src, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewStaticHolder serves m without any backing source.
func NewStaticHolder(m *vsm.Model) *Holder {
	h := NewHolder(Source{})
	h.Set(m, "static")
	return h
}

// Current returns the serving model, or nil if none has been loaded.
func (h *Holder) Current() *vsm.Model {
	if s := h.current.Load(); s != nil {
		return s.Model
	}
	return nil
}

// Snapshot returns the serving model with its provenance. ok is false before the first load.
func (h *Holder) Snapshot() (Snapshot, bool) {
	s := h.current.Load()
	if s == nil {
		return Snapshot{}, false
	}
	return *s, true
}

// Set replaces the serving model with m.
func (h *Holder) Set(m *vsm.Model, source string) {
	h.current.Store(&Snapshot{Model: m, Source: source, LoadedAt: time.Now()})
}

// Reload loads the artifact from the holder's source. On failure the previous model keeps serving.
func (h *Holder) Reload(ctx context.Context) error {
	h.reload.Lock()
	defer h.reload.Unlock()

	m, err := Load(ctx, h.src)
	for _, fn := range h.onLoad {
		fn(m, err)
	}
	if err != nil {
		h.logger.Warn("model load failed", zap.String("source", h.src.String()), zap.Error(err))
		return err
	}
	h.Set(m, h.src.String())
	h.logger.Info("model loaded",
		zap.String("source", h.src.String()),
		zap.Int("items", m.Size()),
		zap.Int("vocabulary", m.VocabularySize()))
	return nil
}
