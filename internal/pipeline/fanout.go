package pipeline

import (
	"context"

	"github.com/couchcryptid/snowpack-etl/internal/domain"
)

// Fanout is a BatchLoader that hands each batch to several loaders in order.
// The first failure stops the batch.
type Fanout []BatchLoader

// NewFanout drops nil loaders. It returns nil when none remain so the
// pipeline runs without writes.
func NewFanout(loaders ...BatchLoader) BatchLoader {
	var f Fanout
	for _, l := range loaders {
		if l != nil {
			f = append(f, l)
		}
	}
	switch len(f) {
	case 0:
		return nil
	case 1:
		return f[0]
	}
	return f
}

func (f Fanout) LoadBatch(ctx context.Context, rows []domain.Row) (LoadResult, error) {
	var total LoadResult
	for _, l := range f {
		res, err := l.LoadBatch(ctx, rows)
		if err != nil {
			return total, err
		}
		total.Add(res)
	}
	return total, nil
}
