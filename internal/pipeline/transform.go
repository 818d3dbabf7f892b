package pipeline

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/couchcryptid/snowpack-etl/internal/domain"
)

// ReportTransformer implements Transformer by parsing the CSV report and
// applying the region filter.
type ReportTransformer struct {
	filter domain.RegionFilter
	logger *slog.Logger
}

// NewTransformer creates a ReportTransformer. A zero filter keeps every row.
func NewTransformer(filter domain.RegionFilter, logger *slog.Logger) *ReportTransformer {
	return &ReportTransformer{
		filter: filter,
		logger: logger,
	}
}

func (t *ReportTransformer) Transform(_ context.Context, raw domain.RawReport) (domain.Batch, error) {
	rows, err := domain.ParseReport(bytes.NewReader(raw.Body))
	if err != nil {
		return domain.Batch{}, err
	}

	kept, removed := t.filter.Apply(raw.Request, rows)
	if removed > 0 {
		t.logger.Info("region filter removed rows",
			"request", raw.Request.String(),
			"state", t.filter.State,
			"removed", removed,
			"kept", len(kept),
		)
	}

	return domain.Batch{Request: raw.Request, Rows: kept, Filtered: removed}, nil
}
