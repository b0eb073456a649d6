package core

// commit.go writes validated records to the store in fixed-size batches.
//
// Batches are submitted one at a time in file order so progress is monotonic
// and two rows sharing a natural key resolve in file order (last one wins).
// A failed batch is recorded and the next batch is still attempted; committed
// batches are never rolled back. Only the replace-mode wipe is fatal.

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// DefaultBatchSize is the number of records per store call.
const DefaultBatchSize = 25

// MaxBatchSize bounds configured batch sizes.
const MaxBatchSize = 500

// CommitOutcome is the result of one Commit call.
type CommitOutcome struct {
	Committed int
	Batches   int // batches attempted
	Errors    []ImportError
	Cancelled bool
}

// Committer writes records for one kind through a Store.
type Committer struct {
	Store     Store
	BatchSize int
	Metrics   *Metrics
	Logger    *slog.Logger
}

func (c *Committer) batchSize() int {
	if c.BatchSize <= 0 {
		return DefaultBatchSize
	}
	if c.BatchSize > MaxBatchSize {
		return MaxBatchSize
	}
	return c.BatchSize
}

func (c *Committer) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Commit stores records under mode. Cancellation of ctx is checked before
// the wipe and between batches; the outcome is then marked cancelled and
// already committed batches stay committed.
func (c *Committer) Commit(ctx context.Context, schema Schema, records []Record, mode Mode, progress ProgressFunc) CommitOutcome {
	var out CommitOutcome
	report := func(p float64) {
		if progress != nil {
			progress(p)
		}
	}

	if ctx.Err() != nil {
		out.Cancelled = true
		return out
	}

	if mode == ModeReplace {
		err := c.Store.Delete(ctx, schema.Kind, Predicate{Column: "id", Op: OpNotEqual, Value: SentinelID})
		if err != nil {
			perr := &PersistenceError{Batch: 0, Err: err}
			c.logger().Error("replace wipe failed", "kind", schema.Kind, "error", err)
			c.Metrics.recordBatchFailure(ctx, schema.Kind)
			out.Errors = append(out.Errors, ImportError{Message: perr.Error()})
			out.Cancelled = isCancellation(ctx, err)
			return out
		}
	}

	size := c.batchSize()
	total := (len(records) + size - 1) / size

	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			out.Cancelled = true
			return out
		}

		start := i * size
		end := min(start+size, len(records))
		batch := withIDs(records[start:end])

		var err error
		if mode == ModeReplace {
			err = c.Store.Insert(ctx, schema.Kind, batch)
		} else {
			err = c.Store.Upsert(ctx, schema.Kind, batch, schema.NaturalKey)
		}
		out.Batches++

		if err != nil {
			perr := &PersistenceError{Batch: i + 1, Err: err}
			c.logger().Warn("batch commit failed",
				"kind", schema.Kind,
				"batch", i+1,
				"records", len(batch),
				"error", err,
			)
			c.Metrics.recordBatchFailure(ctx, schema.Kind)
			out.Errors = append(out.Errors, ImportError{Batch: i + 1, Message: perr.Error()})
			if isCancellation(ctx, err) {
				out.Cancelled = true
				return out
			}
		} else {
			out.Committed += len(batch)
		}

		report(float64(i+1) / float64(total) * 100)
	}

	report(100)
	return out
}

// withIDs returns the batch with a generated id on records that lack one.
// The input records are not modified.
func withIDs(batch []Record) []Record {
	out := make([]Record, len(batch))
	for i, rec := range batch {
		if rec.String("id") != "" {
			out[i] = rec
			continue
		}
		cp := make(Record, len(rec)+1)
		for k, v := range rec {
			cp[k] = v
		}
		cp["id"] = uuid.NewString()
		out[i] = cp
	}
	return out
}

func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
