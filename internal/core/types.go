package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Kind identifies one of the importable entity kinds.
type Kind string

const (
	KindMembers    Kind = "members"
	KindPayments   Kind = "payments"
	KindAttendance Kind = "attendance"
	KindClasses    Kind = "classes"
)

// TargetAll selects every kind for export.
const TargetAll = "all"

// ParseKind validates a kind name (case-insensitive).
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindMembers, KindPayments, KindAttendance, KindClasses:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Mode is the commit policy of an import.
type Mode string

const (
	// ModeMerge upserts by natural key and keeps unrelated rows.
	ModeMerge Mode = "merge"
	// ModeReplace wipes the kind before inserting the new rows.
	ModeReplace Mode = "replace"
)

// ParseMode validates a mode name. An empty string means merge.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeMerge, nil
	case ModeMerge, ModeReplace:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Record is a canonical, validated row keyed by snake_case field name.
//
// Values are typed: string, time.Time, decimal.Decimal, int, bool or
// MembershipType. Absent optional fields have no key.
type Record map[string]any

// String returns the value of a text field, or "" if unset.
func (r Record) String(field string) string {
	if s, ok := r[field].(string); ok {
		return s
	}
	return ""
}

// RowError is a validation failure of a single input row. Row is 1-based and
// excludes the header row.
type RowError struct {
	Row     int
	Message string
}

func (e RowError) Error() string {
	return fmt.Sprintf("Row %d: %s", e.Row, e.Message)
}

// ImportError is one entry of ImportResult.Errors. Row is set for validation
// failures, Batch for persistence failures (0 for the replace wipe). File and
// schema failures carry only a message.
type ImportError struct {
	Row     int    `json:"row,omitempty"`
	Batch   int    `json:"batch,omitempty"`
	Message string `json:"message"`
}

func (e ImportError) String() string {
	if e.Row > 0 {
		return fmt.Sprintf("Row %d: %s", e.Row, e.Message)
	}
	return e.Message
}

// ImportStatus is the terminal state of an import run.
type ImportStatus string

const (
	StatusSuccess   ImportStatus = "success"
	StatusFailure   ImportStatus = "failure"
	StatusCancelled ImportStatus = "cancelled"
)

// ImportResult summarizes one import run. It is built once by the orchestrator
// and not modified after it is returned.
type ImportResult struct {
	RunID           string        `json:"runId,omitempty"`
	Kind            Kind          `json:"kind"`
	Mode            Mode          `json:"mode"`
	FileName        string        `json:"fileName"`
	Success         bool          `json:"success"`
	Status          ImportStatus  `json:"status"`
	TotalRecords    int           `json:"totalRecords"`
	ImportedRecords int           `json:"importedRecords"`
	SkippedRecords  int           `json:"skippedRecords"`
	Errors          []ImportError `json:"errors"`
	Duration        time.Duration `json:"duration"`
}

// ErrorStrings renders every error the way it is shown to users.
func (r ImportResult) ErrorStrings() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.String()
	}
	return out
}

// ImportPhase indicates the current stage of an import run.
type ImportPhase string

const (
	PhaseStarting   ImportPhase = "starting"
	PhaseParsing    ImportPhase = "parsing"
	PhaseValidating ImportPhase = "validating"
	PhaseCommitting ImportPhase = "committing"
	PhaseComplete   ImportPhase = "complete"
	PhaseFailed     ImportPhase = "failed"
	PhaseCancelled  ImportPhase = "cancelled"
)

// ImportProgress is a snapshot of an asynchronous import run.
type ImportProgress struct {
	RunID    string      `json:"runId"`
	Kind     Kind        `json:"kind"`
	FileName string      `json:"fileName"`
	Phase    ImportPhase `json:"phase"`
	Percent  float64     `json:"percent"`
	Error    string      `json:"error,omitempty"`
}

// Done reports whether the run has reached a terminal phase.
func (p ImportProgress) Done() bool {
	switch p.Phase {
	case PhaseComplete, PhaseFailed, PhaseCancelled:
		return true
	}
	return false
}

// ProgressFunc receives commit progress as a percentage in [0, 100].
type ProgressFunc func(percent float64)

// Blob is a named file produced by an export or template request.
type Blob struct {
	Name        string
	ContentType string
	Data        []byte
}

// DateRange restricts exports of dated kinds. A zero Start or End leaves that
// side open. Both ends are whole days and inclusive.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Window converts the range into a half-open [from, until) interval.
func (r DateRange) Window() (from, until time.Time) {
	from = r.Start
	if !r.End.IsZero() {
		y, m, d := r.End.Date()
		until = time.Date(y, m, d, 0, 0, 0, 0, r.End.Location()).AddDate(0, 0, 1)
	}
	return from, until
}

// Filter narrows a Select. DateColumn is empty when no range applies.
type Filter struct {
	DateColumn string
	From       time.Time
	Until      time.Time
}

// Operator compares a column with a value in a Predicate.
type Operator string

const (
	OpEqual    Operator = "eq"
	OpNotEqual Operator = "neq"
)

// Predicate selects the rows a Delete removes.
type Predicate struct {
	Column string
	Op     Operator
	Value  any
}

// SentinelID never identifies a stored record. Deleting every row whose id
// differs from it wipes the collection.
const SentinelID = "00000000-0000-0000-0000-000000000000"

// Store is the narrow persistence surface the engine depends on. Calls are
// independent; no transaction spans two calls.
type Store interface {
	Select(ctx context.Context, kind Kind, filter Filter) ([]Record, error)
	Insert(ctx context.Context, kind Kind, records []Record) error
	Upsert(ctx context.Context, kind Kind, records []Record, conflictKey string) error
	Delete(ctx context.Context, kind Kind, pred Predicate) error
}
