package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// StartImport begins an asynchronous import and returns its run ID at once.
// Use SubscribeProgress for updates and GetImportResult for the outcome.
//
// Returns ErrTooManyImports if the concurrent import limit is reached and no
// slot becomes available within the wait period.
func (s *Service) StartImport(ctx context.Context, kind Kind, mode Mode, fileName string, data []byte) (string, error) {
	if _, ok := s.catalog.Get(kind); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return "", err
	}

	runID := uuid.New().String()

	// The run outlives the request that started it; keep only its values.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.importTimeout)
	runCtx = ContextWithRunID(runCtx, runID)

	run := &activeImport{
		ID:       runID,
		Kind:     kind,
		FileName: fileName,
		Cancel:   cancel,
		Done:     make(chan struct{}),
		progress: ImportProgress{
			RunID:    runID,
			Kind:     kind,
			FileName: fileName,
			Phase:    PhaseStarting,
		},
	}

	s.mu.Lock()
	s.runs[runID] = run
	s.mu.Unlock()

	go func() {
		defer s.limiter.Release()
		defer cancel()
		defer func() {
			run.finish()
			s.cleanup(runID, runRetention)
		}()

		result := s.Import(runCtx, ImportRequest{
			Data:     data,
			FileName: fileName,
			Kind:     kind,
			Mode:     mode,
			OnPhase: func(p ImportPhase) {
				run.update(func(pr *ImportProgress) { pr.Phase = p })
			},
			OnProgress: func(pct float64) {
				run.update(func(pr *ImportProgress) { pr.Percent = pct })
			},
		})
		run.Result = &result

		run.update(func(pr *ImportProgress) {
			switch result.Status {
			case StatusSuccess:
				pr.Phase = PhaseComplete
				pr.Percent = 100
			case StatusCancelled:
				pr.Phase = PhaseCancelled
			default:
				if result.TotalRecords > 0 {
					// Partial imports still ran to the end.
					pr.Phase = PhaseComplete
					pr.Percent = 100
				} else {
					pr.Phase = PhaseFailed
				}
				if len(result.Errors) > 0 {
					pr.Error = result.Errors[0].String()
				}
			}
		})
	}()

	return runID, nil
}

// SubscribeProgress returns a channel that receives progress updates. The
// current snapshot is sent first; the channel is closed when the run ends.
func (s *Service) SubscribeProgress(runID string) (<-chan ImportProgress, error) {
	run, ok := s.lookup(runID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	ch := make(chan ImportProgress, 10)

	run.mu.Lock()
	defer run.mu.Unlock()

	ch <- run.progress
	select {
	case <-run.Done:
		// Finished runs get the final snapshot only.
		close(ch)
	default:
		run.listeners = append(run.listeners, ch)
	}
	return ch, nil
}

// CancelImport cancels a running import. Batches already committed stay
// committed and the result reports StatusCancelled.
func (s *Service) CancelImport(runID string) error {
	run, ok := s.lookup(runID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	run.Cancel()
	return nil
}

// GetImportResult waits for the run to finish and returns its result.
func (s *Service) GetImportResult(ctx context.Context, runID string) (*ImportResult, error) {
	run, ok := s.lookup(runID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	select {
	case <-run.Done:
		return run.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetImportProgress returns the current progress without blocking.
func (s *Service) GetImportProgress(runID string) (ImportProgress, error) {
	run, ok := s.lookup(runID)
	if !ok {
		return ImportProgress{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run.snapshot(), nil
}
