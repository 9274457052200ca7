// Package sync orchestrates a synchronization run: load parameters, map
// columns, build and flatten records, then supersede the currently-active
// line-item generation in the remote store with a new revision.
//
// The remote steps are a saga, not a transaction. Deactivation and insertion
// each report per-record outcomes; a run interrupted between them can leave
// the old generation deactivated with the new batch partially inserted.
// Callers handle that by re-running or reconciling manually.
package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/evanrobinson2/olisync/internal/logging"
	"github.com/evanrobinson2/olisync/internal/mapping"
	"github.com/evanrobinson2/olisync/internal/params"
	"github.com/evanrobinson2/olisync/internal/salesforce"
	"github.com/evanrobinson2/olisync/internal/table"
)

// MissingParentError reports a run that produced no records, or whose first
// record lacks the parent identifier.
type MissingParentError struct {
	Reason string
}

func (e *MissingParentError) Error() string {
	return "missing parent: " + e.Reason
}

// ParameterSource provides the raw parameter cells for a run.
type ParameterSource interface {
	ParameterCells(ctx context.Context) ([]string, error)
}

// TableSource provides the header row and the data rows that follow it.
// headerRow is 1-based.
type TableSource interface {
	HeaderRow(ctx context.Context, sheet string, headerRow int) ([]string, error)
	DataRows(ctx context.Context, sheet string, headerRow int) ([][]any, error)
}

// LineItemStore is the remote collaborator holding the persisted line-item
// generations.
type LineItemStore interface {
	ActiveLineItems(ctx context.Context, parentID string) ([]string, error)
	MaxRevision(ctx context.Context, parentID string) (int, error)
	DeactivateAll(ctx context.Context, ids []string) (salesforce.BatchResult, error)
	InsertRevision(ctx context.Context, records []map[string]any) (salesforce.BatchResult, error)
}

// Summary is the terminal result of a successful run. Per-record batch
// failures live inside the two BatchResults; their presence does not make
// the run itself a failure.
type Summary struct {
	RunID        string                 `json:"runId"`
	ParentID     string                 `json:"parentId"`
	Revision     int                    `json:"revision"`
	Records      int                    `json:"records"`
	Deactivation salesforce.BatchResult `json:"deactivation"`
	Insertion    salesforce.BatchResult `json:"insertion"`
}

// Runner wires the collaborators for one or more runs. Runs are single
// threaded; concurrent runs against the same parent can race on the active
// generation and are not supported.
type Runner struct {
	Params ParameterSource
	Tables TableSource
	Store  LineItemStore
	RunLog *logging.RunLog
	Logger *slog.Logger

	// LineItemGroup names the grouping key whose nested object carries the
	// parent identifier.
	LineItemGroup string

	// ParentField is the field read from that group and stamped back onto
	// every outgoing record.
	ParentField string

	// ActiveField and RevisionField are stamped onto every outgoing record.
	ActiveField   string
	RevisionField string
}

// Run executes one synchronization and returns its summary.
//
// Failures while loading or identifying the parent are fatal: they are
// logged, flushed to the run log, and returned with no summary. From
// deactivation onward, only transport-level errors abort; individual record
// rejections accumulate in the summary instead.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	runID := uuid.NewString()
	logger := r.logger().With("run_id", runID)

	flats, records, err := r.load(ctx, logger)
	if err != nil {
		return nil, r.fail(logger, err)
	}
	r.RunLog.Logf("built %d records from input sheet", len(records))

	parentID, err := r.identifyParent(records)
	if err != nil {
		return nil, r.fail(logger, err)
	}
	logger.Info("parent identified", "parent_id", parentID, "records", len(flats))
	r.flush(logger)

	activeIDs, err := r.Store.ActiveLineItems(ctx, parentID)
	if err != nil {
		return nil, r.fail(logger, fmt.Errorf("query active line items: %w", err))
	}
	deactivation, err := r.Store.DeactivateAll(ctx, activeIDs)
	if err != nil {
		return nil, r.fail(logger, fmt.Errorf("deactivate prior generation: %w", err))
	}
	r.RunLog.Logf("deactivated %d of %d active line items", deactivation.Succeeded, deactivation.Attempted)
	r.flush(logger)

	maxRev, err := r.Store.MaxRevision(ctx, parentID)
	if err != nil {
		return nil, r.fail(logger, fmt.Errorf("query max revision: %w", err))
	}
	revision := maxRev + 1

	for _, flat := range flats {
		flat[r.ParentField] = parentID
		flat[r.ActiveField] = true
		flat[r.RevisionField] = revision
	}

	insertion, err := r.Store.InsertRevision(ctx, flats)
	if err != nil {
		return nil, r.fail(logger, fmt.Errorf("insert revision %d: %w", revision, err))
	}
	r.RunLog.Logf("inserted revision %d: %d of %d records", revision, insertion.Succeeded, insertion.Attempted)
	r.flush(logger)

	logger.Info("run complete",
		"revision", revision,
		"deactivated", deactivation.Succeeded,
		"inserted", insertion.Succeeded,
		"insert_failures", len(insertion.Failures),
	)

	return &Summary{
		RunID:        runID,
		ParentID:     parentID,
		Revision:     revision,
		Records:      len(flats),
		Deactivation: deactivation,
		Insertion:    insertion,
	}, nil
}

// load runs the table-building pipeline: parameters, mapping, rows.
func (r *Runner) load(ctx context.Context, logger *slog.Logger) ([]map[string]any, []table.Record, error) {
	cells, err := r.Params.ParameterCells(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read parameter cells: %w", err)
	}

	set, err := params.Aggregate(cells)
	if err != nil {
		return nil, nil, err
	}

	sheet, err := set.InputSheet()
	if err != nil {
		return nil, nil, err
	}
	headerRow, err := set.HeaderRow()
	if err != nil {
		return nil, nil, err
	}

	header, err := r.Tables.HeaderRow(ctx, sheet, headerRow)
	if err != nil {
		return nil, nil, err
	}
	resolved := mapping.Resolve(set, header, logger)

	rows, err := r.Tables.DataRows(ctx, sheet, headerRow)
	if err != nil {
		return nil, nil, err
	}

	records := table.NewBuilder(resolved.Groups(), rows).BuildAll()

	flats := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		flats = append(flats, table.Flatten(rec))
	}
	return flats, records, nil
}

// identifyParent reads the parent id from the first record's line-item
// group. A group that resolved to only the parent column is accepted; any
// other single-column group has no field to read the parent from.
func (r *Runner) identifyParent(records []table.Record) (string, error) {
	if len(records) == 0 {
		return "", &MissingParentError{Reason: "no records were built from the input sheet"}
	}

	group, ok := records[0].Group(r.LineItemGroup)
	if !ok {
		return "", &MissingParentError{Reason: fmt.Sprintf("first record has no %q group", r.LineItemGroup)}
	}
	if !group.Nested() {
		if group.Single.Name == r.ParentField {
			if id := stringValue(group.Single.Value); id != "" {
				return id, nil
			}
		}
		return "", &MissingParentError{Reason: fmt.Sprintf("field %q is empty in the first record", r.ParentField)}
	}
	for _, f := range group.Fields {
		if f.Name == r.ParentField {
			if id := stringValue(f.Value); id != "" {
				return id, nil
			}
			break
		}
	}
	return "", &MissingParentError{Reason: fmt.Sprintf("field %q is empty in the first record", r.ParentField)}
}

// fail logs a fatal error, flushes the run log, and passes the error back.
func (r *Runner) fail(logger *slog.Logger, err error) error {
	logger.Error("run failed", "error", err)
	r.RunLog.Logf("run failed: %v", err)
	r.flush(logger)
	return err
}

func (r *Runner) flush(logger *slog.Logger) {
	if err := r.RunLog.Flush(); err != nil {
		logger.Warn("run log flush failed", "error", err)
	}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func stringValue(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
