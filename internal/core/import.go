package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/roster/internal/tabular"
)

// MaxFileSize is the maximum accepted import file size (50MB). Files are held
// in memory for the whole run.
var MaxFileSize int64 = 50 * 1024 * 1024

// ImportRequest describes one import run. All callbacks are optional.
type ImportRequest struct {
	Data     []byte
	FileName string // the extension selects the format
	Kind     Kind
	Mode     Mode

	// OnProgress receives commit progress in [0, 100].
	OnProgress func(percent float64)
	// OnPhase is told when the run moves to a new stage.
	OnPhase func(ImportPhase)
	// OnComplete receives the result whenever one is assembled, including
	// results that report validation, schema or commit failures.
	OnComplete func(ImportResult)
	// OnError receives failures that pre-empt validation: unreadable files,
	// an unknown kind, a held lock or an internal panic.
	OnError func(error)
}

// Import runs parse, validate and commit for one file and returns its result.
// It never panics and always returns a result; see ImportRequest for which
// callback fires on which path.
func (s *Service) Import(ctx context.Context, req ImportRequest) (result ImportResult) {
	start := s.now()
	runID, _ := ctx.Value(ctxKeyRunID).(string)
	log := s.logger.With(
		"run_id", runID,
		"kind", req.Kind,
		"mode", req.Mode,
		"file", req.FileName,
	)
	if ip := GetIPAddressFromContext(ctx); ip != "" {
		log = log.With("ip", ip)
	}

	result = ImportResult{
		RunID:    runID,
		Kind:     req.Kind,
		Mode:     req.Mode,
		FileName: req.FileName,
		Status:   StatusFailure,
		Errors:   []ImportError{},
	}

	fail := func(err error) ImportResult {
		result.Errors = []ImportError{{Message: err.Error()}}
		result.Duration = s.now().Sub(start)
		if req.OnError != nil {
			req.OnError(err)
		}
		log.Warn("import aborted", "error", err)
		s.metrics.recordImport(ctx, result)
		return result
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic in import", "panic", r)
			result = fail(fmt.Errorf("internal error: %v", r))
		}
	}()

	phase := func(p ImportPhase) {
		if req.OnPhase != nil {
			req.OnPhase(p)
		}
	}

	schema, ok := s.catalog.Get(req.Kind)
	if !ok {
		return fail(fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind))
	}
	if req.Mode != ModeMerge && req.Mode != ModeReplace {
		return fail(fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode))
	}

	phase(PhaseParsing)
	table, err := s.parse(req)
	if err != nil {
		return fail(err)
	}

	release, err := s.locker.Acquire(ctx, req.Kind)
	if err != nil {
		return fail(err)
	}
	defer release()

	phase(PhaseValidating)
	validation, err := NewValidator(schema, s.now()).Validate(table)
	if err != nil {
		var schemaErr *SchemaError
		if !errors.As(err, &schemaErr) {
			return fail(err)
		}
		result.Errors = []ImportError{{Message: schemaErr.Error()}}
		result.Duration = s.now().Sub(start)
		log.Warn("import rejected", "error", err)
		s.metrics.recordImport(ctx, result)
		if req.OnComplete != nil {
			req.OnComplete(result)
		}
		return result
	}

	var outcome CommitOutcome
	if len(validation.Records) > 0 {
		phase(PhaseCommitting)
		committer := Committer{
			Store:     s.store,
			BatchSize: s.batchSize,
			Metrics:   s.metrics,
			Logger:    log,
		}
		outcome = committer.Commit(ctx, schema, validation.Records, req.Mode, req.OnProgress)
	} else if req.OnProgress != nil {
		req.OnProgress(100)
	}

	for _, e := range validation.Errors {
		result.Errors = append(result.Errors, ImportError{Row: e.Row, Message: e.Message})
	}
	result.Errors = append(result.Errors, outcome.Errors...)

	result.TotalRecords = validation.Total
	result.ImportedRecords = outcome.Committed
	result.SkippedRecords = result.TotalRecords - result.ImportedRecords
	result.Duration = s.now().Sub(start)

	switch {
	case outcome.Cancelled || ctx.Err() != nil:
		result.Status = StatusCancelled
	case len(result.Errors) == 0:
		result.Status = StatusSuccess
		result.Success = true
	default:
		result.Status = StatusFailure
	}

	log.Info("import finished",
		"status", result.Status,
		"total", result.TotalRecords,
		"imported", result.ImportedRecords,
		"skipped", result.SkippedRecords,
		"errors", len(result.Errors),
		"duration", result.Duration,
	)
	s.metrics.recordImport(ctx, result)

	if req.OnComplete != nil {
		req.OnComplete(result)
	}
	return result
}

// parse infers the format from the file name and decodes the file. A JSON
// bundle produced by an "all" export is narrowed to the requested kind.
func (s *Service) parse(req ImportRequest) (*tabular.Table, error) {
	if int64(len(req.Data)) > MaxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes exceeds limit of %d", len(req.Data), MaxFileSize)
	}

	format, err := tabular.FormatFromFileName(req.FileName)
	if err != nil {
		return nil, err
	}

	var opts []tabular.Option
	if format == tabular.FormatJSON && tabular.HasArrayAt(req.Data, string(req.Kind)) {
		opts = append(opts, tabular.WithRecordPath("$."+string(req.Kind)))
	}
	return tabular.Parse(req.Data, format, opts...)
}
