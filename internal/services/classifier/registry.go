package classifier

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"PQAnalyzer/internal/domain/models"
	"PQAnalyzer/internal/domain/service"
	applogger "PQAnalyzer/pkg/logger"
)

// Registry resolves the classifier for each phenomenon. Local artifacts are
// loaded on first use and cached only after a successful load.
type Registry struct {
	mu         sync.Mutex
	modelDir   string
	files      map[models.Phenomenon]string
	serviceURL string
	timeout    time.Duration
	cache      map[models.Phenomenon]service.Classifier
	l          *applogger.Logger
}

type RegistryOption func(*Registry)

// WithModelDir sets the directory holding <phenomenon>.json artifacts.
func WithModelDir(dir string) RegistryOption {
	return func(r *Registry) { r.modelDir = dir }
}

// WithModelFile overrides the artifact path for one phenomenon.
func WithModelFile(p models.Phenomenon, path string) RegistryOption {
	return func(r *Registry) {
		if path != "" {
			r.files[p] = path
		}
	}
}

// WithModelService routes every phenomenon to a remote model service.
func WithModelService(url string, timeout time.Duration) RegistryOption {
	return func(r *Registry) {
		r.serviceURL = url
		r.timeout = timeout
	}
}

func WithLogger(l *applogger.Logger) RegistryOption {
	return func(r *Registry) { r.l = l }
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		modelDir: "models",
		files:    make(map[models.Phenomenon]string),
		cache:    make(map[models.Phenomenon]service.Classifier),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register pins a classifier for p, replacing any cached one.
func (r *Registry) Register(p models.Phenomenon, c service.Classifier) {
	r.mu.Lock()
	r.cache[p] = c
	r.mu.Unlock()
}

// Path returns the artifact location for p.
func (r *Registry) Path(p models.Phenomenon) string {
	if f, ok := r.files[p]; ok {
		return f
	}
	return filepath.Join(r.modelDir, string(p)+".json")
}

func (r *Registry) Classifier(_ context.Context, p models.Phenomenon) (service.Classifier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.cache[p]; ok {
		return c, nil
	}
	if r.serviceURL != "" {
		c := NewHTTPClassifier(r.serviceURL, p, r.timeout)
		r.cache[p] = c
		return c, nil
	}

	path := r.Path(p)
	f, err := LoadForest(path)
	if err != nil {
		if r.l != nil {
			r.l.Error("classifier load failed",
				applogger.String("phenomenon", string(p)),
				applogger.String("path", path),
				applogger.Error(err),
			)
		}
		return nil, err
	}
	if r.l != nil {
		r.l.Info("classifier loaded",
			applogger.String("phenomenon", string(p)),
			applogger.String("path", path),
			applogger.Int("trees", len(f.Trees)),
		)
	}
	r.cache[p] = f
	return f, nil
}

var _ service.ClassifierResolver = (*Registry)(nil)
