package core

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultImportTimeout is the maximum duration of an asynchronous import run.
const DefaultImportTimeout = 10 * time.Minute

// runRetention is how long finished asynchronous runs stay queryable.
const runRetention = 5 * time.Minute

// ServiceConfig carries the collaborators and tunables of a Service. Zero
// values select defaults; only Store and Catalog are mandatory.
type ServiceConfig struct {
	Store         Store
	Catalog       *Catalog
	Locker        Locker         // default: in-process LocalLocker
	Limiter       *ImportLimiter // default: DefaultMaxConcurrentImports slots
	Metrics       *Metrics       // default: no metrics
	Logger        *slog.Logger   // default: slog.Default()
	BatchSize     int            // default: DefaultBatchSize
	ImportTimeout time.Duration  // default: DefaultImportTimeout
	Now           func() time.Time
}

// Service is the entry point for imports, exports and templates. It has no
// transport dependencies and is shared by the HTTP server and the CLI.
type Service struct {
	store         Store
	catalog       *Catalog
	locker        Locker
	limiter       *ImportLimiter
	metrics       *Metrics
	logger        *slog.Logger
	batchSize     int
	importTimeout time.Duration
	now           func() time.Time

	mu   sync.RWMutex
	runs map[string]*activeImport
}

// NewService creates a Service from cfg.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		store:         cfg.Store,
		catalog:       cfg.Catalog,
		locker:        cfg.Locker,
		limiter:       cfg.Limiter,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
		batchSize:     cfg.BatchSize,
		importTimeout: cfg.ImportTimeout,
		now:           cfg.Now,
		runs:          make(map[string]*activeImport),
	}
	if s.locker == nil {
		s.locker = NewLocalLocker()
	}
	if s.limiter == nil {
		s.limiter = NewImportLimiter(DefaultMaxConcurrentImports, DefaultMaxWaitTime)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.batchSize <= 0 {
		s.batchSize = DefaultBatchSize
	}
	if s.importTimeout <= 0 {
		s.importTimeout = DefaultImportTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Catalog returns the schemas the service was built with.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// LimiterStatus reports the asynchronous import slots.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until every asynchronous run has finished or ctx is
// done. Used during graceful shutdown.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

type activeImport struct {
	ID       string
	Kind     Kind
	FileName string
	Cancel   context.CancelFunc
	Result   *ImportResult
	Done     chan struct{}

	mu        sync.Mutex
	progress  ImportProgress
	listeners []chan ImportProgress
}

// update applies fn to the progress snapshot and notifies listeners.
func (run *activeImport) update(fn func(*ImportProgress)) {
	run.mu.Lock()
	defer run.mu.Unlock()

	fn(&run.progress)
	for _, ch := range run.listeners {
		select {
		case ch <- run.progress:
		default:
			// Listener is slow, skip this update
		}
	}
}

func (run *activeImport) snapshot() ImportProgress {
	run.mu.Lock()
	defer run.mu.Unlock()
	return run.progress
}

// finish closes all listener channels and marks the run done. Both happen
// under the lock so a late subscriber cannot miss the close.
func (run *activeImport) finish() {
	run.mu.Lock()
	defer run.mu.Unlock()

	for _, ch := range run.listeners {
		close(ch)
	}
	run.listeners = nil
	close(run.Done)
}

// cleanup removes the run from tracking after a delay.
func (s *Service) cleanup(runID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.runs, runID)
		s.mu.Unlock()
	})
}

func (s *Service) lookup(runID string) (*activeImport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	return run, ok
}
