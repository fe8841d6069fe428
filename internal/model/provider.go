package model

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Loader produces a bundle from persistent storage
type Loader interface {
	Load(ctx context.Context) (*Bundle, error)
}

// LoaderFunc adapts a function to the Loader interface
type LoaderFunc func(ctx context.Context) (*Bundle, error)

// Load calls f
func (f LoaderFunc) Load(ctx context.Context) (*Bundle, error) {
	return f(ctx)
}

// Provider loads the model on first use and shares it afterwards. Concurrent
// first callers block on one load; a failed load is not remembered, so the
// next call tries again. Reload swaps in a new bundle after retraining.
type Provider struct {
	loader  Loader
	logger  *logrus.Logger
	mu      sync.Mutex
	current atomic.Pointer[Bundle]
	loads   atomic.Int64
}

// ProviderOption is a functional option for Provider
type ProviderOption func(*Provider)

// WithProviderLogger sets the logger used for load events
func WithProviderLogger(logger *logrus.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = logger
	}
}

// NewProvider creates a provider backed by loader
func NewProvider(loader Loader, opts ...ProviderOption) *Provider {
	p := &Provider{loader: loader}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logrus.New()
	}
	return p
}

// Model returns the loaded bundle, loading it if needed
func (p *Provider) Model(ctx context.Context) (*Bundle, error) {
	if b := p.current.Load(); b != nil {
		return b, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if b := p.current.Load(); b != nil {
		return b, nil
	}
	b, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	p.current.Store(b)
	return b, nil
}

// Reload loads the artifacts again and replaces the shared bundle. On
// failure the previous bundle keeps serving.
func (p *Provider) Reload(ctx context.Context) (*Bundle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	previous := p.current.Swap(b)
	if previous != nil {
		p.logger.WithFields(logrus.Fields{
			"previous_version": previous.Version,
			"version":          b.Version,
		}).Info("Model reloaded")
	}
	return b, nil
}

func (p *Provider) load(ctx context.Context) (*Bundle, error) {
	start := time.Now()
	b, err := p.loader.Load(ctx)
	if err != nil {
		p.logger.WithError(err).Warn("Model load failed")
		return nil, err
	}
	p.loads.Add(1)
	p.logger.WithFields(logrus.Fields{
		"version":  b.Version,
		"classes":  b.Labels.Len(),
		"features": b.Vectorizer.Dim(),
		"duration": time.Since(start).String(),
	}).Info("Model loaded")
	return b, nil
}

// Loaded reports whether a bundle is currently held
func (p *Provider) Loaded() bool {
	return p.current.Load() != nil
}

// Version returns the version of the held bundle, or "" if none is loaded
func (p *Provider) Version() string {
	if b := p.current.Load(); b != nil {
		return b.Version
	}
	return ""
}

// LoadCount returns how many loads have succeeded
func (p *Provider) LoadCount() int64 {
	return p.loads.Load()
}
