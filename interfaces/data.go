package interfaces

import (
	"context"

	"github.com/caio-sobreiro/dicommwl/types"
)

// RecordSource supplies a point-in-time snapshot of the scheduled procedure steps,
// ordered by ascending id.
type RecordSource interface {
	ListCurrentRecords(ctx context.Context) ([]types.WorklistRecord, error)
}

// RecordStore owns persistence of worklist records.
type RecordStore interface {
	RecordSource
	Get(ctx context.Context, id int64) (*types.WorklistRecord, error)
	Add(ctx context.Context, record *types.WorklistRecord) (int64, error)
	Update(ctx context.Context, record *types.WorklistRecord) error
	Delete(ctx context.Context, id int64) error
}

// RecordSourceFunc adapts a function to RecordSource.
type RecordSourceFunc func(ctx context.Context) ([]types.WorklistRecord, error)

// ListCurrentRecords calls f(ctx).
func (f RecordSourceFunc) ListCurrentRecords(ctx context.Context) ([]types.WorklistRecord, error) {
	return f(ctx)
}
