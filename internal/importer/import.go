package importer

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/vinacert/regadmin/internal/logging"
	"github.com/vinacert/regadmin/internal/registry"
)

// Summary reports the outcome of one import run. Errors carries one message
// per failed batch, not per row.
type Summary struct {
	Total   int      `json:"total"`
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// Store is the subset of the registry store the pipeline persists through.
type Store interface {
	DeleteByCompany(ctx context.Context, companyCode string) error
	InsertRegistrations(ctx context.Context, recs []registry.Registration) error
}

// Pipeline runs spreadsheet imports: parse the upload, map rows to records,
// optionally clear the scope, then persist in fixed-size batches.
type Pipeline struct {
	store     Store
	batchSize int
}

// NewPipeline creates an import pipeline persisting batchSize records per call.
func NewPipeline(store Store, batchSize int) *Pipeline {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Pipeline{store: store, batchSize: batchSize}
}

// Run executes one import. Rows failing the mandatory-field check are dropped
// silently and never counted. With replace set, existing records for the
// scope are deleted before the first insert; the delete and the inserts are
// separate backend calls, not one transaction. Each batch fails independently:
// a failed batch adds its row count to Failed and one message to Errors
// without stopping later batches.
func (p *Pipeline) Run(ctx context.Context, filename string, r io.Reader, companyCode string, replace bool) (*Summary, error) {
	logger := logging.FromContext(ctx).With(
		"import_id", uuid.NewString(),
		"company_code", companyCode,
	)

	rows, err := ParseRows(filename, r)
	if err != nil {
		return nil, err
	}

	recs := make([]registry.Registration, 0, len(rows))
	for _, row := range rows {
		rec, ok := MapRow(row)
		if !ok {
			continue
		}
		rec.CompanyCode = companyCode
		recs = append(recs, rec)
	}

	logger.Info("import started",
		"file", filename,
		"rows", len(rows),
		"mapped", len(recs),
		"replace", replace,
	)

	if replace {
		if err := p.store.DeleteByCompany(ctx, companyCode); err != nil {
			return nil, fmt.Errorf("replace mode: %w", err)
		}
	}

	summary := &Summary{Total: len(recs), Errors: []string{}}
	for start := 0; start < len(recs); start += p.batchSize {
		end := min(start+p.batchSize, len(recs))
		batch := recs[start:end]

		if err := p.store.InsertRegistrations(ctx, batch); err != nil {
			summary.Failed += len(batch)
			summary.Errors = append(summary.Errors, fmt.Sprintf("rows %d-%d: %v", start+1, end, err))
			logger.Warn("batch failed", "from", start+1, "to", end, "error", err)
			continue
		}
		summary.Success += len(batch)
	}

	logger.Info("import finished",
		"total", summary.Total,
		"success", summary.Success,
		"failed", summary.Failed,
	)
	return summary, nil
}
