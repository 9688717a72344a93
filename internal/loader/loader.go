// Package loader fetches model artifacts from disk or over HTTP and holds the serving model.
package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hyperjump/bookrec/internal/vsm"
)

// maxArtifactBytes bounds remote artifact downloads.
const maxArtifactBytes = 1 << 30

// Source locates a model artifact. URL, when set, takes precedence over Path.
type Source struct {
	Path    string
	URL     string
	Timeout time.Duration // applies to URL fetches; zero means no timeout
}

// String returns the URL or path the model is read from.
func (s Source) String() string {
	if s.URL != "" {
		return s.URL
	}
	return s.Path
}

// Load reads and decodes the artifact described by src. All failures wrap vsm.ErrLoadFailure.
func Load(ctx context.Context, src Source) (*vsm.Model, error) {
	if src.URL == "" {
		if src.Path == "" {
			return nil, fmt.Errorf("%w: no model path or url configured", vsm.ErrLoadFailure)
		}
		return vsm.Load(src.Path)
	}
	return fetch(ctx, src.URL, src.Timeout)
}

func fetch(ctx context.Context, url string, timeout time.Duration) (*vsm.Model, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", vsm.ErrLoadFailure, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %w", vsm.ErrLoadFailure, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: fetch %s: status %d", vsm.ErrLoadFailure, url, resp.StatusCode)
	}
	return vsm.Decode(io.LimitReader(resp.Body, maxArtifactBytes))
}
